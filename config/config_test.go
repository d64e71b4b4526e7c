package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		MaxSearchPages:  50,
		MaxBuildings:    0,
		MaxRetries:      3,
		AutoRestart:     true,
		MaxSessions:     50,
		SessionCooldown: 10 * time.Minute,
		TargetListings:  1000,
		DedupePolicy:    FirstSeenWins,
		GeocodeDelay:    1500 * time.Millisecond,
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Validate() = %v; want nil", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative search pages", func(c *Config) { c.MaxSearchPages = -1 }},
		{"negative buildings", func(c *Config) { c.MaxBuildings = -5 }},
		{"negative cooldown", func(c *Config) { c.SessionCooldown = -time.Second }},
		{"auto-restart without sessions", func(c *Config) { c.MaxSessions = 0 }},
		{"auto-restart without target", func(c *Config) { c.TargetListings = 0 }},
		{"unknown dedupe policy", func(c *Config) { c.DedupePolicy = "newest" }},
		{"negative geocode delay", func(c *Config) { c.GeocodeDelay = -time.Second }},
	}

	for _, tt := range tests {
		cfg := validConfig()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: Validate() = nil; want error", tt.name)
		}
	}
}

func TestValidateSingleSessionIgnoresRestartBounds(t *testing.T) {
	cfg := validConfig()
	cfg.AutoRestart = false
	cfg.MaxSessions = 0
	cfg.TargetListings = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("restart bounds should not matter in single-session mode: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.MaxSearchPages != 50 {
		t.Errorf("MaxSearchPages = %d; want 50", cfg.MaxSearchPages)
	}
	if cfg.AutoRestart {
		t.Error("AutoRestart should default to off")
	}
	if cfg.DedupePolicy != FirstSeenWins {
		t.Errorf("DedupePolicy = %s; want %s", cfg.DedupePolicy, FirstSeenWins)
	}
	if cfg.SessionCooldown != 10*time.Minute {
		t.Errorf("SessionCooldown = %v; want 10m", cfg.SessionCooldown)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MAX_SEARCH_PAGES", "5")
	t.Setenv("AUTO_RESTART", "true")
	t.Setenv("DEDUPE_POLICY", "last_write")

	cfg := Load()

	if cfg.MaxSearchPages != 5 {
		t.Errorf("MaxSearchPages = %d; want 5", cfg.MaxSearchPages)
	}
	if !cfg.AutoRestart {
		t.Error("AUTO_RESTART=true not applied")
	}
	if cfg.DedupePolicy != LastWriteWins {
		t.Errorf("DedupePolicy = %s; want last_write", cfg.DedupePolicy)
	}
}
