package bootstrap

import (
	"strings"
	"testing"
	"time"
)

func TestValidateApp(t *testing.T) {
	good := AppConfig{
		SessionKey:    strings.Repeat("k", 40),
		JWTSecret:     strings.Repeat("j", 40),
		JWTTTL:        24 * time.Hour,
		AuditLogAuth:  "all",
		AuditLogAdmin: "db",
	}

	tests := []struct {
		name    string
		env     string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"valid", "prod", func(*AppConfig) {}, ""},
		{"short jwt secret", "dev", func(c *AppConfig) { c.JWTSecret = "short" }, "jwt_secret must be at least 32 characters"},
		{"zero ttl", "dev", func(c *AppConfig) { c.JWTTTL = 0 }, "jwt_ttl must be positive"},
		{"redis without addr", "dev", func(c *AppConfig) { c.RedisEnabled = true }, "redis_enabled requires redis_addr"},
		{"bad audit mode", "dev", func(c *AppConfig) { c.AuditLogAdmin = "everything" }, "audit_log_auth and audit_log_admin must be one of all, db, log, off"},
		{"dev defaults allowed in dev", "dev", func(c *AppConfig) { c.SessionKey, c.JWTSecret = devSessionKey, devJWTSecret }, ""},
		{"dev session key in prod", "prod", func(c *AppConfig) { c.SessionKey = devSessionKey }, "session_key and jwt_secret must be set in production"},
		{"dev jwt secret in prod", "prod", func(c *AppConfig) { c.JWTSecret = devJWTSecret }, "session_key and jwt_secret must be set in production"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := good
			tt.mutate(&cfg)
			err := validateApp(tt.env, cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("error: got %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestStopBackground_RunsEachStopOnce(t *testing.T) {
	calls := 0
	onShutdown(func() { calls++ })
	onShutdown(func() { calls++ })

	stopBackground()
	stopBackground()

	if calls != 2 {
		t.Errorf("stop calls: got %d, want 2", calls)
	}
}
