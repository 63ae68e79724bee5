package gateway

import "time"

// Config holds the HTTP server settings.
type Config struct {
	Bind            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// APIKey is the server-side upstream credential. Requests may override
	// it with their own Authorization bearer key.
	APIKey string

	// MaxTurns and IdleTTL mirror the session store configuration so
	// /status can report them.
	MaxTurns int
	IdleTTL  time.Duration
}

func (c *Config) defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8000"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 120 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}
