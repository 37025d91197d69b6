package data

import "errors"

// Shared sentinel errors for job store implementations.
var (
	// ErrJobNotFound is returned when no job exists for the requested id.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobExists is returned when inserting a job whose id is already present.
	ErrJobExists = errors.New("job already exists")
)
