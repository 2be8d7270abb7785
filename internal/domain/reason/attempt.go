package reason

import (
	"context"
	"errors"
	"time"

	"github.com/okian/matchwise/pkg/logger"
	"github.com/okian/matchwise/pkg/metrics"
)

// Tier names used in logs and metrics.
const (
	tierWorkflow     = "workflow"
	tierPrompt       = "prompt"
	tierPerCandidate = "per_candidate"
	tierStatic       = "static"
)

// attempt is one tier of a fallback chain.
type attempt[T any] struct {
	tier    string
	timeout time.Duration
	run     func(ctx context.Context) (T, error)
}

// firstSuccess runs attempts in order and returns the first result without
// error. Each attempt gets its own timeout. ok is false when every attempt
// failed or ctx ended.
func firstSuccess[T any](ctx context.Context, log logger.Logger, op string, attempts ...attempt[T]) (result T, tier string, ok bool) {
	for _, a := range attempts {
		if ctx.Err() != nil {
			break
		}
		v, err := runAttempt(ctx, op, a)
		if err == nil {
			return v, a.tier, true
		}
		if errors.Is(err, ErrTierDisabled) {
			continue
		}
		log.Warn(ctx, "generation attempt failed, falling back",
			logger.String("operation", op),
			logger.String("tier", a.tier),
			logger.Error(err),
		)
	}
	var zero T
	return zero, "", false
}

func runAttempt[T any](ctx context.Context, op string, a attempt[T]) (T, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	start := time.Now()
	v, err := a.run(ctx)
	outcome := "success"
	switch {
	case errors.Is(err, ErrTierDisabled):
		return v, err
	case err != nil:
		outcome = "failure"
	}
	metrics.RecordGeneration(op, a.tier, outcome, float64(time.Since(start).Milliseconds()))
	return v, err
}
