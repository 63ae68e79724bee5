// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for weathergate.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	Server      ServerConfig        `yaml:"server"`
	Concurrency ConcurrencyConfig   `yaml:"concurrency"`
	Cache       CacheConfig         `yaml:"cache"`
	Session     SessionConfig       `yaml:"session"`
	Redis       RedisConfig         `yaml:"redis"`
	Answer      AnswerConfig        `yaml:"answer"`
	Regions     map[string][]string `yaml:"regions,omitempty"`
	Sweep       SweepConfig         `yaml:"sweep"`
	Telemetry   TelemetryConfig     `yaml:"telemetry"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Bind            string   `yaml:"bind"`
	APIKey          string   `yaml:"api_key"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// ConcurrencyConfig bounds in-flight answer calls.
type ConcurrencyConfig struct {
	MaxConcurrent  int      `yaml:"max_concurrent"`
	AcquireTimeout Duration `yaml:"acquire_timeout"`
}

// CacheConfig controls the reply cache.
type CacheConfig struct {
	TTL       Duration `yaml:"ttl"`
	KeyPrefix string   `yaml:"key_prefix"`
}

// SessionConfig controls conversation history.
type SessionConfig struct {
	MaxTurns int      `yaml:"max_turns"`
	IdleTTL  Duration `yaml:"idle_ttl"`
}

// RedisConfig selects the backing store. When neither URL nor Addr is set
// the in-process fallbacks are used.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Configured reports whether any Redis endpoint is set.
func (r RedisConfig) Configured() bool {
	return r.URL != "" || r.Addr != ""
}

// AnswerConfig configures the upstream answer generator.
type AnswerConfig struct {
	APIKey       string   `yaml:"api_key"`
	BaseURL      string   `yaml:"base_url"`
	Model        string   `yaml:"model"`
	SystemPrompt string   `yaml:"system_prompt"`
	Timeout      Duration `yaml:"timeout"`
}

// SweepConfig schedules the background expiry sweep.
type SweepConfig struct {
	// Schedule is a five-field cron expression or a descriptor such as
	// "@hourly" or "@every 30s".
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig controls trace export.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP/HTTP collector host:port. Empty falls back to
	// the exporter's environment-driven default.
	Endpoint string `yaml:"endpoint"`
}

// Defaults fills zero values with the service defaults.
func (c *Config) Defaults() {
	if c.Server.Bind == "" {
		c.Server.Bind = "127.0.0.1:8000"
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = Duration(10 * time.Second)
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = Duration(2 * time.Minute)
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = Duration(5 * time.Second)
	}
	if c.Concurrency.MaxConcurrent == 0 {
		c.Concurrency.MaxConcurrent = 5
	}
	if c.Concurrency.AcquireTimeout <= 0 {
		c.Concurrency.AcquireTimeout = Duration(30 * time.Second)
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = Duration(30 * time.Minute)
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "answer"
	}
	if c.Session.MaxTurns == 0 {
		c.Session.MaxTurns = 5
	}
	if c.Session.IdleTTL <= 0 {
		c.Session.IdleTTL = Duration(time.Hour)
	}
	if c.Sweep.Schedule == "" {
		c.Sweep.Schedule = "*/5 * * * *"
	}
}

// Duration is a time.Duration that unmarshals from YAML duration strings
// ("30s", "1h") or plain integer seconds.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var secs int64
	if err := node.Decode(&secs); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	var raw string
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("config: invalid duration value")
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}
