// Package llm talks to the embedding, direct prompt and managed workflow
// endpoints of the text-generation provider.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/okian/matchwise/pkg/logger"
)

const (
	defaultBaseURL        = "https://api.openai.com"
	defaultEmbeddingModel = "text-embedding-3-small"
	defaultTextModel      = "gpt-4o-mini"

	maxResponseBytes = 4 << 20
)

// Client is safe for concurrent use.
type Client struct {
	http           *http.Client
	baseURL        string
	apiKey         string
	workflowKey    string
	embeddingModel string
	textModel      string
	embedAttempts  uint
	retryDelay     time.Duration
	logger         logger.Logger
}

// NewClient builds a client. Per-call deadlines come from the caller's context.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:           &http.Client{Timeout: time.Minute},
		baseURL:        defaultBaseURL,
		embeddingModel: defaultEmbeddingModel,
		textModel:      defaultTextModel,
		embedAttempts:  3,
		retryDelay:     200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.workflowKey == "" {
		c.workflowKey = c.apiKey
	}
	if c.logger == nil {
		c.logger = logger.Named("llm")
	}
	return c
}

// post sends body as JSON and returns the raw 2xx response body.
func (c *Client) post(ctx context.Context, path, key string, body any) ([]byte, error) {
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: url, Body: string(data)}
	}
	return data, nil
}
