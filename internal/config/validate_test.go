package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Defaults()
	return cfg
}

func TestValidateDefaults(t *testing.T) {
	t.Parallel()

	if err := Validate(validConfig()); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{
			name:    "bad bind address",
			mutate:  func(c *Config) { c.Server.Bind = "not-an-addr" },
			wantSub: "server.bind",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Concurrency.MaxConcurrent = -1 },
			wantSub: "max_concurrent",
		},
		{
			name:    "zero cache ttl",
			mutate:  func(c *Config) { c.Cache.TTL = 0 },
			wantSub: "cache.ttl",
		},
		{
			name:    "zero history window",
			mutate:  func(c *Config) { c.Session.MaxTurns = -3 },
			wantSub: "max_turns",
		},
		{
			name:    "region without aliases",
			mutate:  func(c *Config) { c.Regions = map[string][]string{"三亚": {}} },
			wantSub: "regions[三亚]",
		},
		{
			name:    "bad sweep schedule",
			mutate:  func(c *Config) { c.Sweep.Schedule = "whenever" },
			wantSub: "sweep.schedule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestValidateJoinsAllErrors(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Server.Bind = "bogus"
	cfg.Cache.TTL = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"server.bind", "cache.ttl"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error missing %q: %v", want, err)
		}
	}
}
