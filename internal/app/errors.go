package service

import "errors"

// Sentinel kinds surfaced to callers.
var (
	ErrProfileNotReady      = errors.New("profile or embedding missing")
	ErrProfileNotFound      = errors.New("profile not found")
	ErrCandidateUnavailable = errors.New("candidate not available")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrQueueFull            = errors.New("trigger queue full")
	ErrNotStarted           = errors.New("service not started")
)
