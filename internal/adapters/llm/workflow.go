package llm

import (
	"context"
	"fmt"
	"net/url"

	json "github.com/goccy/go-json"

	"github.com/okian/matchwise/pkg/logger"
)

type workflowRequest struct {
	Inputs any `json:"inputs"`
}

// Run starts a workflow and returns the JSON of its first output, unwrapped.
func (c *Client) Run(ctx context.Context, workflowID string, inputs any) ([]byte, error) {
	data, err := c.post(ctx, "/v1/workflows/"+url.PathEscape(workflowID)+"/runs", c.workflowKey, workflowRequest{Inputs: inputs})
	if err != nil {
		return nil, fmt.Errorf("workflow %s: %w", workflowID, err)
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("workflow %s: %w: %w", workflowID, ErrMalformedResponse, err)
	}
	out, kind := extractOutput(raw)
	c.logger.Debug(ctx, "workflow response received", logger.String("workflowId", workflowID), logger.String("payload", kind))
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("workflow %s: %w", workflowID, err)
	}
	return b, nil
}

// extractOutput picks the payload out of a run response. The outputs list
// is read from response.outputs, outputs or output; its first element's
// content (or the element itself) is unwrapped by part type. Anything else
// yields the raw response.
func extractOutput(raw any) (any, string) {
	m, _ := raw.(map[string]any)
	var outputs []any
	if resp, ok := m["response"].(map[string]any); ok && resp["outputs"] != nil {
		outputs, _ = resp["outputs"].([]any)
	} else if m["outputs"] != nil {
		outputs, _ = m["outputs"].([]any)
	} else {
		outputs, _ = m["output"].([]any)
	}
	if len(outputs) == 0 {
		return raw, "raw"
	}

	content := outputs[0]
	if first, ok := content.(map[string]any); ok && first["content"] != nil {
		content = first["content"]
	}
	switch v := content.(type) {
	case []any:
		if len(v) > 0 {
			if part, ok := v[0].(map[string]any); ok && part["type"] == "json" {
				return part["json"], "json"
			}
		}
		return v, "array"
	case map[string]any:
		switch v["type"] {
		case "json":
			return v["json"], "json"
		case "text":
			return map[string]any{"text": v["text"]}, "text"
		}
		return v, "object"
	}
	return raw, "raw"
}
