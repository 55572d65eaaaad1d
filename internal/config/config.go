// Package config loads architect settings from file, .env and environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/jorgeantonio/flutter-architect/pkg/agent"
	"github.com/jorgeantonio/flutter-architect/pkg/coretools"
	"github.com/jorgeantonio/flutter-architect/pkg/managed"
)

// Provider kinds selectable from the CLI.
const (
	ProviderDeepSeek  = "deepseek"
	ProviderAnthropic = "anthropic"
)

// Config is the architect configuration.
type Config struct {
	// Provider is the backend to use. Empty means ask at startup.
	Provider string `json:"provider" mapstructure:"provider"`

	// WorkingDir is where Flutter projects are created. Defaults to the cwd.
	WorkingDir string `json:"working_dir" mapstructure:"working_dir"`

	DeepSeek  DeepSeekConfig  `json:"deepseek" mapstructure:"deepseek"`
	Anthropic AnthropicConfig `json:"anthropic" mapstructure:"anthropic"`
	Flutter   FlutterConfig   `json:"flutter" mapstructure:"flutter"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
	Metrics   MetricsConfig   `json:"metrics" mapstructure:"metrics"`
	Tracing   TracingConfig   `json:"tracing" mapstructure:"tracing"`
}

// DeepSeekConfig configures the raw chat-completion backend.
type DeepSeekConfig struct {
	APIKey     string        `json:"api_key" mapstructure:"api_key"`
	BaseURL    string        `json:"base_url" mapstructure:"base_url"`
	Model      string        `json:"model" mapstructure:"model"`
	Timeout    time.Duration `json:"timeout" mapstructure:"timeout"`
	MaxRetries int           `json:"max_retries" mapstructure:"max_retries"`
}

// AnthropicConfig configures the managed agent backend.
type AnthropicConfig struct {
	APIKey    string        `json:"api_key" mapstructure:"api_key"`
	BaseURL   string        `json:"base_url" mapstructure:"base_url"`
	Model     string        `json:"model" mapstructure:"model"`
	MaxTokens int64         `json:"max_tokens" mapstructure:"max_tokens"`
	MaxTurns  int           `json:"max_turns" mapstructure:"max_turns"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
}

// FlutterConfig configures the flutter_ops tool.
type FlutterConfig struct {
	Binary      string        `json:"binary" mapstructure:"binary"`
	Timeout     time.Duration `json:"timeout" mapstructure:"timeout"`
	OutputLimit int           `json:"output_limit" mapstructure:"output_limit"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// TracingConfig controls OpenTelemetry.
type TracingConfig struct {
	Enabled     bool   `json:"enabled" mapstructure:"enabled"`
	ServiceName string `json:"service_name" mapstructure:"service_name"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		DeepSeek: DeepSeekConfig{
			BaseURL:    agent.DefaultBaseURL,
			Model:      agent.DefaultRawModel,
			Timeout:    agent.DefaultRequestTimeout,
			MaxRetries: 2,
		},
		Anthropic: AnthropicConfig{
			Model:     managed.DefaultModel,
			MaxTokens: managed.DefaultMaxTokens,
			MaxTurns:  managed.DefaultMaxTurns,
			Timeout:   agent.DefaultRequestTimeout,
		},
		Flutter: FlutterConfig{
			Binary:      coretools.DefaultFlutterBinary,
			Timeout:     coretools.DefaultTimeout,
			OutputLimit: coretools.DefaultOutputLimit,
		},
		Logging: LoggingConfig{
			Level:     "warn",
			Pretty:    true,
			MaxSize:   10,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9464",
		},
		Tracing: TracingConfig{
			ServiceName: "flutter-architect",
		},
	}
}

// NormalizeProvider maps a CLI choice to a provider kind. It accepts the
// menu numbers "1" and "2" as well as names.
func NormalizeProvider(choice string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(choice)) {
	case "1", ProviderDeepSeek:
		return ProviderDeepSeek, nil
	case "2", ProviderAnthropic, "managed", "claude":
		return ProviderAnthropic, nil
	default:
		return "", fmt.Errorf("unknown provider %q (expected %s or %s)", choice, ProviderDeepSeek, ProviderAnthropic)
	}
}

// Profile builds the agent profile for a provider kind.
func (c *Config) Profile(kind string) (agent.ProviderProfile, error) {
	kind, err := NormalizeProvider(kind)
	if err != nil {
		return agent.ProviderProfile{}, err
	}

	switch kind {
	case ProviderDeepSeek:
		if c.DeepSeek.APIKey == "" {
			return agent.ProviderProfile{}, fmt.Errorf("DEEPSEEK_API_KEY is not set")
		}
		return agent.ProviderProfile{
			Kind:           kind,
			APIKey:         c.DeepSeek.APIKey,
			BaseURL:        c.DeepSeek.BaseURL,
			Model:          c.DeepSeek.Model,
			MaxRetries:     c.DeepSeek.MaxRetries,
			RequestTimeout: c.DeepSeek.Timeout,
		}, nil
	default:
		if c.Anthropic.APIKey == "" {
			return agent.ProviderProfile{}, fmt.Errorf("ANTHROPIC_API_KEY is not set")
		}
		return agent.ProviderProfile{
			Kind:           kind,
			APIKey:         c.Anthropic.APIKey,
			BaseURL:        c.Anthropic.BaseURL,
			Model:          c.Anthropic.Model,
			MaxTokens:      c.Anthropic.MaxTokens,
			MaxTurns:       c.Anthropic.MaxTurns,
			RequestTimeout: c.Anthropic.Timeout,
		}, nil
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	return NewValidator().ValidateConfig(c)
}
