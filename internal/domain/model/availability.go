package model

// Availability status values reported by the availability endpoint.
const (
	AvailabilityAvailable   = "available"
	AvailabilityUnavailable = "unavailable"
)

// AvailabilityResponse is the wire shape returned by the availability endpoint.
// The endpoint always answers 200; degraded configuration or storage shows up
// in the status field rather than as an HTTP error.
type AvailabilityResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Uptime  string `json:"uptime,omitempty"`
}
