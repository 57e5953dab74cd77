package model

import (
	"fmt"

	"negotiation-agent/internal/domain"
)

// ValidationError describes rejected input at the session boundary.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return domain.ErrInvalidArgument }
