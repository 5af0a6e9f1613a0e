// Package config loads configuration from an optional YAML file layered
// under environment variables. Command-line flags override both.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration values.
type Config struct {
	// itch.io API
	APIKey string
	APIURL string

	// Download behavior
	OutputDir     string
	MaxConcurrent int
	Unzip         bool
	PacingMs      int

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// fileConfig mirrors the YAML file layout.
type fileConfig struct {
	APIKey        string `yaml:"api_key"`
	APIURL        string `yaml:"api_url"`
	OutputDir     string `yaml:"output_dir"`
	MaxConcurrent int    `yaml:"max_concurrent"`
	Unzip         *bool  `yaml:"unzip"`
	PacingMs      int    `yaml:"pacing_ms"`
	LogFile       string `yaml:"log_file"`
	LogLevel      string `yaml:"log_level"`
}

// Load reads configuration: built-in defaults, then the config file if
// present, then environment variables.
func Load() Config {
	cfg := Config{
		APIURL:        "https://api.itch.io",
		OutputDir:     ".",
		MaxConcurrent: 16,
		PacingMs:      500,
		LogFile:       "",
		LogLevel:      slog.LevelInfo,
	}

	if fc, err := loadFile(DefaultPath()); err != nil {
		slog.Warn("config file unreadable, ignoring", "error", err)
	} else if fc != nil {
		applyFile(&cfg, fc)
	}

	cfg.APIKey = getEnv("ITCH_API_KEY", cfg.APIKey)
	cfg.APIURL = getEnv("ITCHGRAB_API_URL", cfg.APIURL)
	cfg.OutputDir = getEnv("ITCHGRAB_OUTPUT_DIR", cfg.OutputDir)
	cfg.MaxConcurrent = getEnvInt("ITCHGRAB_MAX_CONCURRENT", cfg.MaxConcurrent)
	cfg.PacingMs = getEnvInt("ITCHGRAB_PACING_MS", cfg.PacingMs)
	cfg.LogFile = getEnv("ITCHGRAB_LOG_FILE", cfg.LogFile)
	cfg.LogLevel = parseLogLevel(getEnv("ITCHGRAB_LOG_LEVEL", ""), cfg.LogLevel)
	if v := os.Getenv("ITCHGRAB_UNZIP"); v != "" {
		cfg.Unzip = v == "true" || v == "1"
	}

	return cfg
}

// DefaultPath returns the per-user config file location, honoring
// XDG_CONFIG_HOME.
func DefaultPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "itchgrab", "config.yaml")
}

// loadFile parses the YAML config at path. A missing file is not an
// error; it simply yields nil.
func loadFile(path string) (*fileConfig, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &fc, nil
}

func applyFile(cfg *Config, fc *fileConfig) {
	if fc.APIKey != "" {
		cfg.APIKey = fc.APIKey
	}
	if fc.APIURL != "" {
		cfg.APIURL = fc.APIURL
	}
	if fc.OutputDir != "" {
		cfg.OutputDir = fc.OutputDir
	}
	if fc.MaxConcurrent > 0 {
		cfg.MaxConcurrent = fc.MaxConcurrent
	}
	if fc.Unzip != nil {
		cfg.Unzip = *fc.Unzip
	}
	if fc.PacingMs > 0 {
		cfg.PacingMs = fc.PacingMs
	}
	if fc.LogFile != "" {
		cfg.LogFile = fc.LogFile
	}
	cfg.LogLevel = parseLogLevel(fc.LogLevel, cfg.LogLevel)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		slog.Warn("ignoring non-numeric environment value", "key", key, "value", val)
		return defaultVal
	}
	return n
}

func parseLogLevel(s string, defaultLevel slog.Level) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return defaultLevel
	}
}
