// Package config provides configuration for the UAT service.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvConfigFile names an optional config file read before the environment.
const EnvConfigFile = "UAT_CONFIG"

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort      int
	PublicBaseURL string

	// Database
	DatabaseURL string

	// Email provider
	EmailAPIURL  string
	EmailAPIKey  string
	EmailFrom    string
	EmailTimeout time.Duration

	// LLM summarization
	LiteLLMURL    string
	LiteLLMAPIKey string
	LLMModel      string
	LLMTimeout    time.Duration

	// WebSocket settings
	WSPingInterval   time.Duration
	WSWriteTimeout   time.Duration
	WSReadTimeout    time.Duration
	WSMaxMessageSize int64

	// Logging
	LogLevel string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", 8080)
	v.SetDefault("public_base_url", "http://localhost:8080")
	v.SetDefault("database_url", "file:uat.db?cache=shared&mode=rwc&_foreign_keys=on")
	v.SetDefault("email_api_url", "https://api.resend.com")
	v.SetDefault("email_api_key", "")
	v.SetDefault("email_from", "UAT <uat@localhost>")
	v.SetDefault("email_timeout_ms", 10000)
	v.SetDefault("litellm_url", "")
	v.SetDefault("litellm_api_key", "")
	v.SetDefault("llm_model", "gpt-4o-mini")
	v.SetDefault("llm_timeout_ms", 20000)
	v.SetDefault("ws_ping_interval_ms", 30000)
	v.SetDefault("ws_write_timeout_ms", 10000)
	v.SetDefault("ws_read_timeout_ms", 60000)
	v.SetDefault("ws_max_message_size", 65536)
	v.SetDefault("log_level", "info")
}

// Load loads configuration from defaults, an optional config file and
// environment variables (HTTP_PORT, DATABASE_URL, ...). An empty path falls back
// to UAT_CONFIG.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		HTTPPort:         v.GetInt("http_port"),
		PublicBaseURL:    strings.TrimRight(v.GetString("public_base_url"), "/"),
		DatabaseURL:      v.GetString("database_url"),
		EmailAPIURL:      strings.TrimRight(v.GetString("email_api_url"), "/"),
		EmailAPIKey:      v.GetString("email_api_key"),
		EmailFrom:        v.GetString("email_from"),
		EmailTimeout:     millis(v, "email_timeout_ms"),
		LiteLLMURL:       strings.TrimRight(v.GetString("litellm_url"), "/"),
		LiteLLMAPIKey:    v.GetString("litellm_api_key"),
		LLMModel:         v.GetString("llm_model"),
		LLMTimeout:       millis(v, "llm_timeout_ms"),
		WSPingInterval:   millis(v, "ws_ping_interval_ms"),
		WSWriteTimeout:   millis(v, "ws_write_timeout_ms"),
		WSReadTimeout:    millis(v, "ws_read_timeout_ms"),
		WSMaxMessageSize: v.GetInt64("ws_max_message_size"),
		LogLevel:         v.GetString("log_level"),
	}
	if cfg.HTTPPort <= 0 {
		return nil, fmt.Errorf("invalid http_port %d", cfg.HTTPPort)
	}
	for key, d := range map[string]time.Duration{
		"email_timeout_ms":    cfg.EmailTimeout,
		"llm_timeout_ms":      cfg.LLMTimeout,
		"ws_ping_interval_ms": cfg.WSPingInterval,
		"ws_write_timeout_ms": cfg.WSWriteTimeout,
		"ws_read_timeout_ms":  cfg.WSReadTimeout,
	} {
		if d <= 0 {
			return nil, fmt.Errorf("invalid %s %d: must be positive", key, d.Milliseconds())
		}
	}
	if cfg.WSMaxMessageSize <= 0 {
		return nil, fmt.Errorf("invalid ws_max_message_size %d", cfg.WSMaxMessageSize)
	}
	return cfg, nil
}

func millis(v *viper.Viper, key string) time.Duration {
	return time.Duration(v.GetInt(key)) * time.Millisecond
}
