package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrSessionNotActive    = errors.New("negotiation session is not active")
	ErrSessionBusy         = errors.New("negotiation session is busy")
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
	ErrMalformedResponse   = errors.New("malformed upstream response")

	// Storage
	ErrInvalidExecContext = errors.New("invalid executor context")
)
