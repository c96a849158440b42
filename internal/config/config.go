// Package config loads server settings from the environment. Command-line
// flags override what is loaded here.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joeshaw/envdecode"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)


// Config holds every setting the server reads from the environment.
type Config struct {
	// LogLevel is debug, info, warn or error. ENV: ZOOF_LSP_LOG_LEVEL
	LogLevel string `env:"ZOOF_LSP_LOG_LEVEL,default=info"`
	// LogFormat is text or json. ENV: ZOOF_LSP_LOG_FORMAT
	LogFormat string `env:"ZOOF_LSP_LOG_FORMAT,default=text"`
	// LogUDP mirrors log records over UDP. ENV: ZOOF_LSP_LOG_UDP
	LogUDP bool `env:"ZOOF_LSP_LOG_UDP,default=false"`
	// LogUDPAddr is the UDP log destination. ENV: ZOOF_LSP_LOG_UDP_ADDR
	LogUDPAddr string `env:"ZOOF_LSP_LOG_UDP_ADDR,default=127.0.0.1:12012"`

	// Listen serves a single TCP connection instead of stdio when set.
	// ENV: ZOOF_LSP_LISTEN
	Listen string `env:"ZOOF_LSP_LISTEN"`
	// StopOnEOF stops the server when input ends. ENV: ZOOF_LSP_STOP_ON_EOF
	StopOnEOF bool `env:"ZOOF_LSP_STOP_ON_EOF,default=true"`
	// Watch enables workspace folder watching. ENV: ZOOF_LSP_WATCH
	Watch bool `env:"ZOOF_LSP_WATCH,default=false"`

	// Store selects the document store backend. ENV: ZOOF_LSP_STORE
	Store string `env:"ZOOF_LSP_STORE,default=memory"`
	// MaxDocuments bounds the in-memory store. ENV: ZOOF_LSP_MAX_DOCUMENTS
	MaxDocuments int `env:"ZOOF_LSP_MAX_DOCUMENTS,default=1024"`
	// RedisAddr like "localhost:6379". ENV: ZOOF_LSP_REDIS_ADDR
	RedisAddr string `env:"ZOOF_LSP_REDIS_ADDR,default=localhost:6379"`
	// RedisPrefix for all document keys. ENV: ZOOF_LSP_REDIS_PREFIX
	RedisPrefix string `env:"ZOOF_LSP_REDIS_PREFIX,default=zoof-lsp:documents:"`

	// MetricsAddr serves /metrics and /healthz when set. ENV: ZOOF_LSP_METRICS_ADDR
	MetricsAddr string `env:"ZOOF_LSP_METRICS_ADDR"`
	// MaxContentLength bounds accepted message bodies; 0 keeps the transport
	// default. ENV: ZOOF_LSP_MAX_CONTENT_LENGTH
	MaxContentLength int `env:"ZOOF_LSP_MAX_CONTENT_LENGTH,default=0"`
}

// Load decodes the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks enumerated and numeric fields.
func (c *Config) Validate() error {
	c.LogFormat = strings.ToLower(c.LogFormat)
	switch c.LogFormat {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("config: unknown log format %q", c.LogFormat)
	}
	c.Store = strings.ToLower(c.Store)
	switch c.Store {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("config: unknown store %q", c.Store)
	}
	if c.Store == StoreMemory && c.MaxDocuments <= 0 {
		return fmt.Errorf("config: max documents must be positive, got %d", c.MaxDocuments)
	}
	if c.MaxContentLength < 0 {
		return fmt.Errorf("config: max content length must not be negative, got %d", c.MaxContentLength)
	}
	return nil
}
