package repository

import (
	"time"

	"github.com/okian/matchwise/pkg/logger"
)

// Option configures a BadgerStore.
type Option func(*BadgerStore)

// WithInMemory keeps the badger instance entirely in memory.
func WithInMemory(inMemory bool) Option {
	return func(s *BadgerStore) {
		s.inMemory = inMemory
	}
}

// WithConflictRetries bounds how often a conflicting transaction is retried.
func WithConflictRetries(attempts uint, delay time.Duration) Option {
	return func(s *BadgerStore) {
		if attempts > 0 {
			s.conflictAttempts = attempts
		}
		if delay > 0 {
			s.conflictDelay = delay
		}
	}
}

// WithLogger overrides the package logger.
func WithLogger(l logger.Logger) Option {
	return func(s *BadgerStore) {
		if l != nil {
			s.logger = l
		}
	}
}
