package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/okian/matchwise/pkg/logger"
	"github.com/okian/matchwise/pkg/metrics"
)

// WorkflowRunner runs a managed workflow.
type WorkflowRunner interface {
	Run(ctx context.Context, workflowID string, inputs any) ([]byte, error)
}

// TextGenerator answers a single prompt.
type TextGenerator interface {
	Prompt(ctx context.Context, text string) (string, error)
}

// BreakerSettings configures a circuit breaker around one capability.
type BreakerSettings struct {
	Name         string
	FailureRatio float64 // trip when failures/requests reaches this
	MinRequests  uint32
	OpenTimeout  time.Duration
}

type breaker[T any] struct {
	cb     *gobreaker.CircuitBreaker[T]
	name   string
	logger logger.Logger
}

func newBreaker[T any](s BreakerSettings) *breaker[T] {
	if s.FailureRatio <= 0 {
		s.FailureRatio = 0.6
	}
	if s.MinRequests == 0 {
		s.MinRequests = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	log := logger.Named("breaker").With(logger.String("breaker", s.Name))
	metrics.UpdateBreakerState(s.Name, stateValue(gobreaker.StateClosed))

	cb := gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn(context.Background(), "circuit breaker state changed", logger.String("from", from.String()), logger.String("to", to.String()))
			metrics.UpdateBreakerState(name, stateValue(to))
		},
		// A caller giving up says nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &breaker[T]{cb: cb, name: s.Name, logger: log}
}

func (b *breaker[T]) execute(fn func() (T, error)) (T, error) {
	v, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.RecordErrorByComponent("breaker", "rejected")
		return v, fmt.Errorf("%s: %w: %w", b.name, ErrUnavailable, err)
	}
	return v, err
}

// State returns the current breaker state.
func (b *breaker[T]) State() gobreaker.State { return b.cb.State() }

func stateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// BreakerWorkflow guards a WorkflowRunner with a circuit breaker.
type BreakerWorkflow struct {
	next WorkflowRunner
	*breaker[[]byte]
}

// NewBreakerWorkflow wraps next.
func NewBreakerWorkflow(next WorkflowRunner, s BreakerSettings) *BreakerWorkflow {
	if s.Name == "" {
		s.Name = "workflow"
	}
	return &BreakerWorkflow{next: next, breaker: newBreaker[[]byte](s)}
}

func (b *BreakerWorkflow) Run(ctx context.Context, workflowID string, inputs any) ([]byte, error) {
	return b.execute(func() ([]byte, error) {
		return b.next.Run(ctx, workflowID, inputs)
	})
}

// BreakerPrompter guards a TextGenerator with a circuit breaker.
type BreakerPrompter struct {
	next TextGenerator
	*breaker[string]
}

// NewBreakerPrompter wraps next.
func NewBreakerPrompter(next TextGenerator, s BreakerSettings) *BreakerPrompter {
	if s.Name == "" {
		s.Name = "prompt"
	}
	return &BreakerPrompter{next: next, breaker: newBreaker[string](s)}
}

func (b *BreakerPrompter) Prompt(ctx context.Context, text string) (string, error) {
	return b.execute(func() (string, error) {
		return b.next.Prompt(ctx, text)
	})
}
