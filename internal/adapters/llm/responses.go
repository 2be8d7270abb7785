package llm

import (
	"context"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

type responsesRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type responsesResponse struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// Prompt sends one prompt to the responses endpoint and returns the trimmed text.
func (c *Client) Prompt(ctx context.Context, text string) (string, error) {
	data, err := c.post(ctx, "/v1/responses", c.apiKey, responsesRequest{Model: c.textModel, Input: text})
	if err != nil {
		return "", fmt.Errorf("prompt: %w", err)
	}
	var resp responsesResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("prompt: %w: %w", ErrMalformedResponse, err)
	}
	out := strings.TrimSpace(resp.OutputText)
	if out == "" {
		var b strings.Builder
		for _, item := range resp.Output {
			for _, part := range item.Content {
				if part.Type == "output_text" {
					b.WriteString(part.Text)
				}
			}
		}
		out = strings.TrimSpace(b.String())
	}
	if out == "" {
		return "", fmt.Errorf("prompt: %w", ErrEmptyOutput)
	}
	return out, nil
}
