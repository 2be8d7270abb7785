package embedding

import (
	"time"

	"github.com/okian/matchwise/pkg/logger"
)

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithTimeout bounds each embedding call.
func WithTimeout(d time.Duration) Option {
	return func(p *Provisioner) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger overrides the package logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Provisioner) {
		if l != nil {
			p.logger = l
		}
	}
}
