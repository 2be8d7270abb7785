package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/codeGROOVE-dev/retry"
	json "github.com/goccy/go-json"

	"github.com/okian/matchwise/pkg/logger"
)

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the raw embedding of text. Rate limiting, server errors and
// network failures are retried; other failures are returned as they are.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	var lastErr error
	vec, err := retry.DoWithData(
		func() ([]float64, error) {
			v, err := c.embedOnce(ctx, text)
			lastErr = err
			return v, err
		},
		retry.Context(ctx),
		retry.Attempts(c.embedAttempts),
		retry.Delay(c.retryDelay),
		retry.MaxJitter(c.retryDelay/2),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug(ctx, "retrying embedding request", logger.Int("attempt", int(n)+1), logger.Error(err))
		}),
	)
	if err != nil {
		if lastErr != nil {
			return nil, fmt.Errorf("embed: %w", lastErr)
		}
		return nil, fmt.Errorf("embed: %w", err)
	}
	return vec, nil
}

func (c *Client) embedOnce(ctx context.Context, text string) ([]float64, error) {
	data, err := c.post(ctx, "/v1/embeddings", c.apiKey, embeddingRequest{Model: c.embeddingModel, Input: text})
	if err != nil {
		return nil, err
	}
	var resp embeddingResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned", ErrMalformedResponse)
	}
	return resp.Data[0].Embedding, nil
}

// isRetryable reports whether err is transient.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrMalformedResponse) || errors.Is(err, ErrMissingAPIKey) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false
		}
	}
	return true
}
