package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIURL            string `yaml:"api_url"`
	AssetURL          string `yaml:"asset_url"`
	DBPath            string `yaml:"db_path"`
	DownloadDir       string `yaml:"download_dir"`
	HTTPTimeout       int    `yaml:"http_timeout_seconds"`
	LogLevel          string `yaml:"log_level"`
	LogFormat         string `yaml:"log_format"`
	RollbackOnFailure bool   `yaml:"rollback_on_failure"`
}

func defaults() *Config {
	return &Config{
		APIURL:      "http://localhost:5000",
		AssetURL:    "http://localhost:8000",
		DBPath:      "skureview.db",
		DownloadDir: "downloads",
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and SKUREVIEW_* environment variables, in that order of precedence.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		path = os.Getenv("SKUREVIEW_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.APIURL = getEnv("SKUREVIEW_API_URL", cfg.APIURL)
	cfg.AssetURL = getEnv("SKUREVIEW_ASSET_URL", cfg.AssetURL)
	cfg.DBPath = getEnv("SKUREVIEW_DB_PATH", cfg.DBPath)
	cfg.DownloadDir = getEnv("SKUREVIEW_DOWNLOAD_DIR", cfg.DownloadDir)
	cfg.HTTPTimeout = getEnvInt("SKUREVIEW_HTTP_TIMEOUT_SECONDS", cfg.HTTPTimeout)
	cfg.LogLevel = getEnv("SKUREVIEW_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("SKUREVIEW_LOG_FORMAT", cfg.LogFormat)
	cfg.RollbackOnFailure = getEnvBool("SKUREVIEW_ROLLBACK_ON_FAILURE", cfg.RollbackOnFailure)

	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	cfg.AssetURL = strings.TrimRight(cfg.AssetURL, "/")
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("api url must not be empty")
	}
	return cfg, nil
}

// Timeout is the HTTP client timeout; zero means none.
func (c *Config) Timeout() time.Duration {
	if c.HTTPTimeout <= 0 {
		return 0
	}
	return time.Duration(c.HTTPTimeout) * time.Second
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}
