// Package config loads the editor's settings from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/cargo-intake/internal/assist"
	"github.com/danielpatrickdp/cargo-intake/internal/history"
	"github.com/danielpatrickdp/cargo-intake/internal/kv"
	"github.com/danielpatrickdp/cargo-intake/internal/logging"
	"github.com/danielpatrickdp/cargo-intake/internal/persist"
	"github.com/danielpatrickdp/cargo-intake/internal/suggest"
)

// AI collaborator modes.
const (
	ModeHeuristic = "heuristic"
	ModeOpenAI    = "openai"
	ModeCodec     = "codec"
)

// #region types
// Config is the full editor configuration.
type Config struct {
	// SchemaPath points at a YAML schema. Empty means the built-in cargo schema.
	SchemaPath string `yaml:"schema_path"`
	// StorageKey is the key the record list is saved under.
	StorageKey   string `yaml:"storage_key" validate:"required"`
	HistoryLimit int    `yaml:"history_limit" validate:"gte=1"`

	Logging logging.Config `yaml:"logging"`
	KV      kv.Config      `yaml:"kv"`
	AI      AIConfig       `yaml:"ai"`

	// ProvenancePath is the SQLite file AI decisions are recorded in. Empty
	// disables provenance.
	ProvenancePath string `yaml:"provenance_path"`
	// MetricsAddr serves /metrics when set.
	MetricsAddr string `yaml:"metrics_addr"`
}

// AIConfig selects and tunes the AI collaborator.
type AIConfig struct {
	Mode        string              `yaml:"mode" validate:"oneof=heuristic openai codec"`
	AssistAddr  string              `yaml:"assist_addr" validate:"required_if=Mode codec"`
	OpenAI      assist.OpenAIConfig `yaml:"openai"`
	Thresholds  suggest.Thresholds  `yaml:"thresholds"`
	MaxContext  int                 `yaml:"max_context" validate:"gte=0"`
	BatchLimit  int                 `yaml:"batch_limit" validate:"gte=1"`
	RatePerSec  float64             `yaml:"rate_per_sec" validate:"gte=0"`
	RateBurst   int                 `yaml:"rate_burst" validate:"gte=0"`
	Degradation bool                `yaml:"degradation"`
}

// #endregion types

// #region defaults
// Default returns a configuration that runs fully offline.
func Default() Config {
	return Config{
		StorageKey:   persist.DefaultKey,
		HistoryLimit: history.DefaultLimit,
		Logging:      logging.Config{Level: "info", Format: "console", OutputPath: "stderr"},
		KV:           kv.Config{Backend: kv.BackendSQLite, Path: "cargo_intake.db"},
		AI: AIConfig{
			Mode:        ModeHeuristic,
			Thresholds:  suggest.DefaultThresholds(),
			MaxContext:  suggest.DefaultMaxContext,
			BatchLimit:  4,
			RatePerSec:  2,
			RateBurst:   4,
			Degradation: true,
		},
	}
}

// #endregion defaults

// #region load
// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.AI.Mode == ModeOpenAI && cfg.AI.OpenAI.APIKey == "" {
		return fmt.Errorf("invalid config: ai mode %q needs an API key", ModeOpenAI)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.KV.Backend = envOr("CARGO_KV_BACKEND", cfg.KV.Backend)
	cfg.KV.Path = envOr("CARGO_KV_PATH", cfg.KV.Path)
	cfg.KV.RedisAddr = envOr("CARGO_REDIS_ADDR", cfg.KV.RedisAddr)
	cfg.KV.RedisPassword = envOr("CARGO_REDIS_PASSWORD", cfg.KV.RedisPassword)
	cfg.Logging.Level = envOr("CARGO_LOG_LEVEL", cfg.Logging.Level)
	cfg.ProvenancePath = envOr("CARGO_PROVENANCE_DB", cfg.ProvenancePath)
	cfg.MetricsAddr = envOr("CARGO_METRICS_ADDR", cfg.MetricsAddr)

	cfg.AI.Mode = envOr("CARGO_AI_MODE", cfg.AI.Mode)
	cfg.AI.AssistAddr = envOr("ASSIST_ADDR", cfg.AI.AssistAddr)
	cfg.AI.OpenAI.APIKey = envOr("OPENAI_API_KEY", cfg.AI.OpenAI.APIKey)
	cfg.AI.OpenAI.Model = envOr("OPENAI_MODEL", cfg.AI.OpenAI.Model)
	cfg.AI.OpenAI.BaseURL = envOr("OPENAI_BASE_URL", cfg.AI.OpenAI.BaseURL)

	if v := os.Getenv("CARGO_HISTORY_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CARGO_HISTORY_LIMIT: %w", err)
		}
		cfg.HistoryLimit = n
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion load
