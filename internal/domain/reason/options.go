package reason

import (
	"time"

	"github.com/okian/matchwise/pkg/logger"
)

// Option configures an Engine.
type Option func(*Engine)

// WithDirectMode skips the workflow tier.
func WithDirectMode(direct bool) Option {
	return func(e *Engine) { e.direct = direct }
}

// WithWorkflowIDs sets the reason and intro workflow ids.
func WithWorkflowIDs(reasonID, introID string) Option {
	return func(e *Engine) {
		e.reasonWorkflowID = reasonID
		e.introWorkflowID = introID
	}
}

// WithTimeouts bounds each workflow and prompt call.
func WithTimeouts(workflow, prompt time.Duration) Option {
	return func(e *Engine) {
		if workflow > 0 {
			e.workflowTimeout = workflow
		}
		if prompt > 0 {
			e.promptTimeout = prompt
		}
	}
}

// WithLogger overrides the package logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
