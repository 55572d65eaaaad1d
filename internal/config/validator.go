package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAPIKey validates an API key format
func (v *Validator) ValidateAPIKey(key string, provider string) error {
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", provider)
	}

	switch provider {
	case ProviderAnthropic:
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("invalid Anthropic API key format (should start with sk-ant-)")
		}
	case ProviderDeepSeek:
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("invalid DeepSeek API key format (should start with sk-)")
		}
	}

	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateAddr validates a host:port listen address.
func (v *Validator) ValidateAddr(addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	return nil
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) error {
	var errs []error

	if cfg.Provider != "" {
		kind, err := NormalizeProvider(cfg.Provider)
		if err != nil {
			errs = append(errs, err)
		} else {
			key := cfg.DeepSeek.APIKey
			if kind == ProviderAnthropic {
				key = cfg.Anthropic.APIKey
			}
			if err := v.ValidateAPIKey(key, kind); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if cfg.DeepSeek.Timeout < 0 || cfg.Anthropic.Timeout < 0 {
		errs = append(errs, fmt.Errorf("request timeouts must be >= 0"))
	}
	if cfg.DeepSeek.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("deepseek.max_retries must be >= 0"))
	}
	if cfg.Anthropic.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("anthropic.max_tokens must be >= 0"))
	}
	if cfg.Anthropic.MaxTurns < 0 {
		errs = append(errs, fmt.Errorf("anthropic.max_turns must be >= 0"))
	}
	if cfg.Flutter.Timeout < 0 {
		errs = append(errs, fmt.Errorf("flutter.timeout must be >= 0"))
	}
	if cfg.Flutter.OutputLimit < 0 {
		errs = append(errs, fmt.Errorf("flutter.output_limit must be >= 0"))
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, err)
	}

	if cfg.Metrics.Enabled {
		if err := v.ValidateAddr(cfg.Metrics.Addr); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
