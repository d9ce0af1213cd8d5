package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		App: AppConfig{Env: "production"},
		Auth: AuthConfig{
			SessionSecret: "session",
			SessionTTL:    24 * time.Hour,
			ResetSecret:   "reset",
			ResetTTL:      20 * time.Minute,
		},
		Mail: MailConfig{Transport: "log"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing session secret", mutate: func(c *Config) { c.Auth.SessionSecret = "" }, wantErr: true},
		{name: "missing reset secret", mutate: func(c *Config) { c.Auth.ResetSecret = "" }, wantErr: true},
		{name: "shared secret in production", mutate: func(c *Config) { c.Auth.ResetSecret = "session" }, wantErr: true},
		{name: "shared secret in development", mutate: func(c *Config) {
			c.App.Env = "development"
			c.Auth.ResetSecret = "session"
		}},
		{name: "zero reset ttl", mutate: func(c *Config) { c.Auth.ResetTTL = 0 }, wantErr: true},
		{name: "unknown transport", mutate: func(c *Config) { c.Mail.Transport = "pigeon" }, wantErr: true},
		{name: "amqp transport", mutate: func(c *Config) { c.Mail.Transport = "amqp" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("CLIENT_URL", "http://client.test/")
	t.Setenv("MAIL_TRANSPORT", "LOG")
	t.Setenv("RATE_LIMIT_CAPACITY", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Auth.SessionTTL != 24*time.Hour {
		t.Errorf("session ttl = %v", cfg.Auth.SessionTTL)
	}
	if cfg.Auth.ResetTTL != 20*time.Minute {
		t.Errorf("reset ttl = %v", cfg.Auth.ResetTTL)
	}
	if cfg.App.ClientURL != "http://client.test" {
		t.Errorf("client url = %q", cfg.App.ClientURL)
	}
	if cfg.Mail.Transport != "log" {
		t.Errorf("transport = %q", cfg.Mail.Transport)
	}
	if cfg.RateLimit.Capacity != 1 {
		t.Errorf("capacity = %d, want normalized to 1", cfg.RateLimit.Capacity)
	}
}

func TestRequestTimeout(t *testing.T) {
	if got := (AppConfig{RequestTimeoutSeconds: 0}).RequestTimeout(); got != 0 {
		t.Errorf("zero seconds = %v", got)
	}
	if got := (AppConfig{RequestTimeoutSeconds: 5}).RequestTimeout(); got != 5*time.Second {
		t.Errorf("five seconds = %v", got)
	}
}
