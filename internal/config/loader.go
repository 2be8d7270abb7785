package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "MATCHWISE_"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if MATCHWISE_CONFIG is set
//  3. env (prefix MATCHWISE_)
//
// The provider keys fall back to OPENAI_API_KEY when not set explicitly.
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// MATCHWISE_AI_MODE -> ai_mode (flat keys, underscores preserved)
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if cfg.OpenAIAPIKey == "" {
		cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.WorkflowAPIKey == "" {
		cfg.WorkflowAPIKey = cfg.OpenAIAPIKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return invalid("addr must not be empty")
	case c.StoreDriver != StoreMemory && c.StoreDriver != StoreBadger:
		return invalid("unknown store_driver %q", c.StoreDriver)
	case c.StoreDriver == StoreBadger && strings.TrimSpace(c.StorePath) == "":
		return invalid("store_path is required for the badger driver")
	case c.AIMode != AIModeWorkflow && c.AIMode != AIModeDirect:
		return invalid("unknown ai_mode %q", c.AIMode)
	case c.DefaultLimit < 1 || c.MaxLimit < 1:
		return invalid("default_limit and max_limit must be positive")
	case c.DefaultLimit > c.MaxLimit:
		return invalid("default_limit %d exceeds max_limit %d", c.DefaultLimit, c.MaxLimit)
	case c.MaxCandidates < 1:
		return invalid("max_candidates must be positive")
	case c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1:
		return invalid("breaker_failure_ratio must be in (0,1]")
	case c.TriggerQueueSize < 1 || c.WorkerCount < 1 || c.DedupeSize < 1:
		return invalid("trigger_queue_size, worker_count and dedupe_size must be positive")
	}
	return nil
}
