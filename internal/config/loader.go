package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "ARCHITECT"

// Loader handles configuration loading
type Loader struct {
	configPath string
	envFile    string
}

// NewLoader creates a loader. An empty configPath means
// ~/.architect/architect.json; an empty envFile means ./.env.
func NewLoader(configPath, envFile string) *Loader {
	return &Loader{
		configPath: configPath,
		envFile:    envFile,
	}
}

// Load merges defaults, the JSON file, the .env file and the environment.
// Missing files are not an error.
func (l *Loader) Load() (*Config, error) {
	if err := l.loadEnvFile(); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional key names used by the provider SDKs.
	bindings := map[string][]string{
		"deepseek.api_key":  {envPrefix + "_DEEPSEEK_API_KEY", "DEEPSEEK_API_KEY"},
		"anthropic.api_key": {envPrefix + "_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	configPath := l.GetConfigPath()
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("json")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if l.configPath != "" {
			return nil, fmt.Errorf("config file %s: %w", configPath, err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.WorkingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		cfg.WorkingDir = wd
	}

	return cfg, nil
}

// loadEnvFile exports .env entries that are not already set in the process
// environment.
func (l *Loader) loadEnvFile() error {
	path := l.envFile
	if path == "" {
		path = ".env"
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && l.envFile == "" {
			return nil
		}
		return fmt.Errorf("env file %s: %w", path, err)
	}

	ev := viper.New()
	ev.SetConfigFile(path)
	ev.SetConfigType("env")
	if err := ev.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read env file: %w", err)
	}

	for _, key := range ev.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, ev.GetString(key)); err != nil {
			return fmt.Errorf("failed to export %s: %w", name, err)
		}
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("provider", cfg.Provider)
	v.SetDefault("working_dir", cfg.WorkingDir)

	v.SetDefault("deepseek.api_key", cfg.DeepSeek.APIKey)
	v.SetDefault("deepseek.base_url", cfg.DeepSeek.BaseURL)
	v.SetDefault("deepseek.model", cfg.DeepSeek.Model)
	v.SetDefault("deepseek.timeout", cfg.DeepSeek.Timeout)
	v.SetDefault("deepseek.max_retries", cfg.DeepSeek.MaxRetries)

	v.SetDefault("anthropic.api_key", cfg.Anthropic.APIKey)
	v.SetDefault("anthropic.base_url", cfg.Anthropic.BaseURL)
	v.SetDefault("anthropic.model", cfg.Anthropic.Model)
	v.SetDefault("anthropic.max_tokens", cfg.Anthropic.MaxTokens)
	v.SetDefault("anthropic.max_turns", cfg.Anthropic.MaxTurns)
	v.SetDefault("anthropic.timeout", cfg.Anthropic.Timeout)

	v.SetDefault("flutter.binary", cfg.Flutter.Binary)
	v.SetDefault("flutter.timeout", cfg.Flutter.Timeout)
	v.SetDefault("flutter.output_limit", cfg.Flutter.OutputLimit)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.pretty", cfg.Logging.Pretty)
	v.SetDefault("logging.max_size", cfg.Logging.MaxSize)
	v.SetDefault("logging.max_age", cfg.Logging.MaxAge)
	v.SetDefault("logging.compress", cfg.Logging.Compress)
	v.SetDefault("logging.redaction", cfg.Logging.Redaction)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.addr", cfg.Metrics.Addr)

	v.SetDefault("tracing.enabled", cfg.Tracing.Enabled)
	v.SetDefault("tracing.service_name", cfg.Tracing.ServiceName)
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".architect", "architect.json")
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath, envFile string) (*Config, error) {
	return NewLoader(configPath, envFile).Load()
}
