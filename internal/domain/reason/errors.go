package reason

import "errors"

// Sentinel errors for generation attempts. They never reach callers of the
// engine; they classify attempt failures in logs and metrics.
var (
	ErrEmptyOutput    = errors.New("empty generation output")
	ErrUnusableOutput = errors.New("unusable generation output")
	ErrTierDisabled   = errors.New("generation tier disabled")
)
