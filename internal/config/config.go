package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	coreconfig "github.com/go-core-fx/config"
)

const (
	SessionBackendFile   = "file"
	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"
)

type Config struct {
	APIBaseURL     string        `koanf:"api_base_url"`
	Timeout        time.Duration `koanf:"timeout"`
	SessionBackend string        `koanf:"session_backend"`
	SessionFile    string        `koanf:"session_file"`
	RedisAddr      string        `koanf:"redis_addr"`
	RedisPrefix    string        `koanf:"redis_prefix"`
	StaleTime      time.Duration `koanf:"stale_time"`
	SearchDebounce time.Duration `koanf:"search_debounce"`
	PageSize       int           `koanf:"page_size"`
	LLMBaseURL     string        `koanf:"llm_base_url"`
	LLMAPIKey      string        `koanf:"llm_api_key"`
	LLMModel       string        `koanf:"llm_model"`
	MetricsFile    string        `koanf:"metrics_file"`
	LogFile        string        `koanf:"log_file"`
	Debug          bool          `koanf:"debug"`
}

func Default() Config {
	return Config{
		APIBaseURL:     "http://localhost:8080/api",
		Timeout:        10 * time.Second,
		SessionBackend: SessionBackendFile,
		SessionFile:    defaultSessionFile(),
		RedisAddr:      "127.0.0.1:6379",
		RedisPrefix:    "steelpos:",
		StaleTime:      5 * time.Minute,
		SearchDebounce: 300 * time.Millisecond,
		PageSize:       20,
		LogFile:        "./steelpos.log",
		Debug:          false,
	}
}

func New() (Config, error) {
	cfg := Default()

	if err := coreconfig.Load(&cfg); err != nil {
		return Config{}, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return fmt.Errorf("api_base_url is required")
	}
	switch c.SessionBackend {
	case SessionBackendFile, SessionBackendRedis, SessionBackendMemory:
	default:
		return fmt.Errorf("unknown session_backend %q", c.SessionBackend)
	}
	if c.SessionBackend == SessionBackendFile && strings.TrimSpace(c.SessionFile) == "" {
		return fmt.Errorf("session_file is required for the file session backend")
	}
	if c.PageSize <= 0 || c.PageSize > 100 {
		return fmt.Errorf("page_size must be between 1 and 100, got %d", c.PageSize)
	}
	return nil
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "./steelpos-session.json"
	}
	return filepath.Join(dir, "steelpos", "session.json")
}
