package llm

import (
	"net/http"
	"strings"
	"time"

	"github.com/okian/matchwise/pkg/logger"
)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API host.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			c.baseURL = u
		}
	}
}

// WithAPIKey sets the key for embeddings and direct prompts.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithWorkflowAPIKey sets the key for workflow runs. Defaults to the API key.
func WithWorkflowAPIKey(key string) Option {
	return func(c *Client) { c.workflowKey = key }
}

// WithModels selects the embedding and text models.
func WithModels(embedding, text string) Option {
	return func(c *Client) {
		if embedding != "" {
			c.embeddingModel = embedding
		}
		if text != "" {
			c.textModel = text
		}
	}
}

// WithHTTPClient replaces the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithEmbedRetry sets how often a transient embedding failure is attempted
// and the base delay between attempts.
func WithEmbedRetry(attempts uint, delay time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.embedAttempts = attempts
		}
		if delay > 0 {
			c.retryDelay = delay
		}
	}
}

// WithLogger overrides the package logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
