// Package config handles configuration loading for swarmq.
// It supports XDG config paths, project-level overrides, and environment
// variables, plus a separate hot-reloadable scheduling rules file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for swarmq.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Pool      PoolConfig      `mapstructure:"pool"`
	Decompose DecomposeConfig `mapstructure:"decompose"`
	Audit     AuditConfig     `mapstructure:"audit"`
	TUI       TUIConfig       `mapstructure:"tui"`
}

// AnthropicConfig holds settings for the Claude execution backend.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key; ${VAR} references are expanded.
	APIKey string `mapstructure:"api_key"`
	// Model overrides the default Claude model.
	Model string `mapstructure:"model"`
	// UseBedrock routes requests through AWS Bedrock.
	UseBedrock bool `mapstructure:"use_bedrock"`
	// AWSRegion is the AWS region for Bedrock.
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the optional AWS profile name.
	AWSProfile string `mapstructure:"aws_profile"`
}

// PoolConfig holds worker pool sizing.
type PoolConfig struct {
	// InitialWorkers is the pool size at startup.
	InitialWorkers int `mapstructure:"initial_workers"`
	// MinWorkers is the scale-down floor.
	MinWorkers int `mapstructure:"min_workers"`
	// Backend selects the execution backend: "simulate" or "claude".
	Backend string `mapstructure:"backend"`
}

// DecomposeConfig holds goal decomposition settings.
type DecomposeConfig struct {
	// MaxTasks caps the number of micro-tasks per run.
	MaxTasks int `mapstructure:"max_tasks"`
}

// AuditConfig holds audit sink settings.
type AuditConfig struct {
	// Enabled turns the SQLite audit sink on.
	Enabled bool `mapstructure:"enabled"`
	// Path overrides the audit database location.
	Path string `mapstructure:"path"`
	// RetentionDays bounds how long audit records are kept.
	RetentionDays int `mapstructure:"retention_days"`
}

// TUIConfig holds watch dashboard settings.
type TUIConfig struct {
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.swarmq.yaml in current directory or parent)
// 3. User config (~/.config/swarmq/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(userConfigDir, "config.yaml"))

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("pool.initial_workers", cfg.Pool.InitialWorkers)
	v.Set("pool.min_workers", cfg.Pool.MinWorkers)
	v.Set("pool.backend", cfg.Pool.Backend)
	v.Set("decompose.max_tasks", cfg.Decompose.MaxTasks)
	v.Set("audit.enabled", cfg.Audit.Enabled)
	v.Set("audit.path", cfg.Audit.Path)
	v.Set("audit.retention_days", cfg.Audit.RetentionDays)
	v.Set("tui.refresh_rate", cfg.TUI.RefreshRate.String())

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it
// exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_bedrock", false)

	v.SetDefault("pool.initial_workers", 5)
	v.SetDefault("pool.min_workers", 1)
	v.SetDefault("pool.backend", "simulate")

	v.SetDefault("decompose.max_tasks", 2000)

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.path", "")
	v.SetDefault("audit.retention_days", 30)

	v.SetDefault("tui.refresh_rate", "500ms")
}

// getUserConfigDir returns the XDG config directory for swarmq.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "swarmq")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "swarmq")
	}
	return filepath.Join(home, ".config", "swarmq")
}

// findProjectConfig searches for .swarmq.yaml in the current directory
// and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".swarmq.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Pool: PoolConfig{
			InitialWorkers: 5,
			MinWorkers:     1,
			Backend:        "simulate",
		},
		Decompose: DecomposeConfig{
			MaxTasks: 2000,
		},
		Audit: AuditConfig{
			Enabled:       true,
			RetentionDays: 30,
		},
		TUI: TUIConfig{
			RefreshRate: 500 * time.Millisecond,
		},
	}
}
