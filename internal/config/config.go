// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers file and environment on top of the defaults and validates.
// - Durations are configured in milliseconds and exposed through accessors.
package config

import (
	"runtime"
	"time"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreBadger = "badger"
)

// AI modes.
const (
	AIModeWorkflow = "workflow"
	AIModeDirect   = "direct"
)

// Default workflow ids of the managed text-generation service.
const (
	DefaultReasonBatchWorkflowID = "wf_6913516ec01081908c14c2c76263cb1b0463dd17238b2541"
	DefaultIntroWorkflowID       = "wf_69137b4bc6748190b1e1af0992a98d6601f0c7b9b6a3caa6"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver is memory or badger; StorePath is the badger directory.
	StoreDriver string `koanf:"store_driver"`
	StorePath   string `koanf:"store_path"`

	// OpenAI credentials and endpoints. WorkflowAPIKey falls back to OpenAIAPIKey.
	OpenAIAPIKey   string `koanf:"openai_api_key"`
	OpenAIBaseURL  string `koanf:"openai_base_url"`
	WorkflowAPIKey string `koanf:"workflow_api_key"`
	EmbeddingModel string `koanf:"embedding_model"`
	TextModel      string `koanf:"text_model"`

	// AIMode is workflow (managed workflow first) or direct (prompt only).
	AIMode string `koanf:"ai_mode"`

	WorkflowReasonBatchID string `koanf:"workflow_reason_batch_id"`
	WorkflowIntroID       string `koanf:"workflow_intro_id"`

	// Per-call timeouts.
	WorkflowTimeoutMS int `koanf:"workflow_timeout_ms"`
	PromptTimeoutMS   int `koanf:"prompt_timeout_ms"`
	EmbedTimeoutMS    int `koanf:"embed_timeout_ms"`

	// EmbedRetryAttempts bounds retries of transient embedding failures.
	EmbedRetryAttempts int `koanf:"embed_retry_attempts"`

	// Circuit breaker around text generation.
	BreakerFailureRatio  float64 `koanf:"breaker_failure_ratio"`
	BreakerMinRequests   int     `koanf:"breaker_min_requests"`
	BreakerOpenTimeoutMS int     `koanf:"breaker_open_timeout_ms"`

	// MaxCandidates is the size of the creation-triggered notification.
	MaxCandidates int `koanf:"max_candidates"`

	// DefaultLimit and MaxLimit bound on-demand recommendation requests.
	DefaultLimit int `koanf:"default_limit"`
	MaxLimit     int `koanf:"max_limit"`

	// BackfillConcurrency caps concurrent template embedding backfills per request.
	BackfillConcurrency int `koanf:"backfill_concurrency"`

	// TriggerQueueSize bounds the in-memory profile-created queue.
	TriggerQueueSize int `koanf:"trigger_queue_size"`

	// WorkerCount sets the number of trigger workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the trigger deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// AutoReplyDelayMS delays the automatic reply for template proposals.
	AutoReplyDelayMS int `koanf:"auto_reply_delay_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		StoreDriver:           StoreMemory,
		OpenAIBaseURL:         "https://api.openai.com",
		EmbeddingModel:        "text-embedding-3-small",
		TextModel:             "gpt-4o-mini",
		AIMode:                AIModeWorkflow,
		WorkflowReasonBatchID: DefaultReasonBatchWorkflowID,
		WorkflowIntroID:       DefaultIntroWorkflowID,
		WorkflowTimeoutMS:     10_000,
		PromptTimeoutMS:       15_000,
		EmbedTimeoutMS:        10_000,
		EmbedRetryAttempts:    3,
		BreakerFailureRatio:   0.6,
		BreakerMinRequests:    5,
		BreakerOpenTimeoutMS:  30_000,
		MaxCandidates:         3,
		DefaultLimit:          3,
		MaxLimit:              10,
		BackfillConcurrency:   4,
		TriggerQueueSize:      1_000,
		WorkerCount:           runtime.NumCPU(),
		DedupeSize:            10_000,
		AutoReplyDelayMS:      800,
	}
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// WorkflowTimeout bounds one managed workflow call.
func (c *Config) WorkflowTimeout() time.Duration { return ms(c.WorkflowTimeoutMS) }

// PromptTimeout bounds one direct prompt call.
func (c *Config) PromptTimeout() time.Duration { return ms(c.PromptTimeoutMS) }

// EmbedTimeout bounds one embedding call including retries.
func (c *Config) EmbedTimeout() time.Duration { return ms(c.EmbedTimeoutMS) }

// BreakerOpenTimeout is how long an open breaker rejects calls.
func (c *Config) BreakerOpenTimeout() time.Duration { return ms(c.BreakerOpenTimeoutMS) }

// AutoReplyDelay is the pause before a template auto-reply is written.
func (c *Config) AutoReplyDelay() time.Duration { return ms(c.AutoReplyDelayMS) }
