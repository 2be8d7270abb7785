package candidates

import "github.com/okian/matchwise/pkg/logger"

// Option configures a Collector.
type Option func(*Collector)

// WithBackfillConcurrency caps concurrent template embedding backfills.
func WithBackfillConcurrency(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithLogger overrides the package logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Collector) {
		if l != nil {
			c.logger = l
		}
	}
}
