// Package config resolves benchguard's working directory and settings.
// The root directory comes from BENCHGUARD_PATH, or defaults to
// ./.benchguard; settings are read from config.yaml inside it, with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds benchguard settings.
type Config struct {
	Path        string // root directory for data and logs
	Storage     string // "sqlite" or "postgres"
	PostgresDSN string
	LogLevel    string
	MetricsAddr string // optional listen address for the runner's /metrics
}

// Load resolves the root directory and reads config.yaml if present.
// A missing config file is not an error; defaults and environment
// variables apply.
func Load(cfgFile string) (*Config, error) {
	root := os.Getenv("BENCHGUARD_PATH")
	if root == "" {
		root = ".benchguard"
	}

	v := viper.New()
	v.SetDefault("storage", "sqlite")
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("BENCHGUARD")
	v.AutomaticEnv()
	v.BindEnv("postgres_dsn")
	v.BindEnv("storage")
	v.BindEnv("log_level")
	v.BindEnv("metrics_addr")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", cfgFile, err)
		}
	} else {
		v.AddConfigPath(root)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &Config{
		Path:        root,
		Storage:     v.GetString("storage"),
		PostgresDSN: v.GetString("postgres_dsn"),
		LogLevel:    v.GetString("log_level"),
		MetricsAddr: v.GetString("metrics_addr"),
	}

	return cfg, nil
}

// DataPath returns the data directory, creating it on first use.
func (c *Config) DataPath() (string, error) {
	dir := filepath.Join(c.Path, "data")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return dir, nil
}

// LogPath returns the log directory, creating it on first use.
func (c *Config) LogPath() (string, error) {
	dir := filepath.Join(c.Path, "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}
	return dir, nil
}

// DatabaseDSN returns the backend-specific DSN: the SQLite file path under
// the data directory, or the configured PostgreSQL connection string.
func (c *Config) DatabaseDSN() (string, error) {
	if c.Storage == "postgres" {
		return c.PostgresDSN, nil
	}
	dataDir, err := c.DataPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "results.db"), nil
}
