package model

import "encoding/json"

// PaymentRequest is a created payment request as returned by the payment
// service. Raw preserves the full response body so payment terms can be
// passed through to the purchaser verbatim.
type PaymentRequest struct {
	BlockchainID string
	Raw          json.RawMessage
}
