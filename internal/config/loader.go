package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPath()
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			// Config file is optional, don't fail if it doesn't exist
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	loadFromEnv(cfg)

	return cfg, nil
}

// ConfigDir returns the directory holding the config file, database and logs.
func ConfigDir() string {
	if p := getConfigPath(); p != "" {
		return filepath.Dir(p)
	}
	return "."
}

// getConfigPath returns the path to the config file.
func getConfigPath() string {
	// Check XDG_CONFIG_HOME first
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "aide", "config.yaml")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	// On macOS prefer Library/Application Support/aide if present
	if runtime.GOOS == "darwin" {
		appSupport := filepath.Join(homeDir, "Library", "Application Support", "aide", "config.yaml")
		if _, err := os.Stat(appSupport); err == nil {
			return appSupport
		}
		dotConfig := filepath.Join(homeDir, ".config", "aide", "config.yaml")
		if _, err := os.Stat(dotConfig); err == nil {
			return dotConfig
		}
		return appSupport
	}

	return filepath.Join(homeDir, ".config", "aide", "config.yaml")
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Expand environment variables in the config file
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables.
func loadFromEnv(cfg *Config) {
	// Priority: AIDE_API_KEY > GEMINI_API_KEY
	if apiKey := os.Getenv("AIDE_API_KEY"); apiKey != "" {
		cfg.API.GeminiKey = apiKey
	} else if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		cfg.API.GeminiKey = apiKey
	}

	if model := os.Getenv("AIDE_MODEL"); model != "" {
		cfg.Model.Name = model
	}

	if provider := os.Getenv("AIDE_PROVIDER"); provider != "" {
		cfg.API.ActiveProvider = provider
	}

	if baseURL := os.Getenv("OLLAMA_HOST"); baseURL != "" && cfg.API.OllamaBaseURL == "" {
		cfg.API.OllamaBaseURL = baseURL
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.API.GetActiveProvider() == "gemini" && c.API.GeminiKey == "" {
		return ErrMissingAuth
	}
	return nil
}

// ConfigError is a sentinel configuration validation error.
type ConfigError string

func (e ConfigError) Error() string {
	return string(e)
}

const (
	ErrMissingAuth ConfigError = "missing authentication: set GEMINI_API_KEY or AIDE_API_KEY, or switch to the ollama provider"
)

// GetConfigPath returns the path to the config file (exported for external use).
func GetConfigPath() string {
	return getConfigPath()
}

// DatabasePath resolves the SQLite database path, defaulting into the config dir.
func (c *Config) DatabasePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	return filepath.Join(ConfigDir(), "aide.db")
}

// Save saves the configuration to the config file.
func (c *Config) Save() error {
	configPath := getConfigPath()
	if configPath == "" {
		return fmt.Errorf("could not determine config path")
	}

	// 0700: config may contain API keys
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to temp file then rename (atomic on POSIX systems)
	tmpPath := configPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	if err := os.Rename(tmpPath, configPath); err != nil {
		if err := os.WriteFile(configPath, data, 0600); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
	}

	return nil
}
