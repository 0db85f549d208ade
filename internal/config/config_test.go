package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const strongSecret = "0123456789abcdef0123456789abcdef-strong"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BAZAAR_ENV", "production")
	t.Setenv("BAZAAR_JWT_SECRET", strongSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AccessTTL != time.Hour {
		t.Fatalf("unexpected access ttl: %v", cfg.AccessTTL)
	}
	if cfg.RefreshTTL != 10080*time.Minute {
		t.Fatalf("unexpected refresh ttl: %v", cfg.RefreshTTL)
	}
	rl := cfg.RateLimit
	if rl.AuthPerWindow != 10 || rl.UploadPerWindow != 20 || rl.CreatePerWindow != 30 || rl.DefaultPerWindow != 60 || rl.AdminPerWindow != 200 {
		t.Fatalf("unexpected quotas: %+v", rl)
	}
	if rl.Window != time.Minute {
		t.Fatalf("unexpected window: %v", rl.Window)
	}
	if string(cfg.JWTSecret) != strongSecret {
		t.Fatalf("secret not loaded")
	}
	if cfg.IsDevelopment() {
		t.Fatalf("production must not be treated as development")
	}
	if !cfg.GRPCEnabled {
		t.Fatalf("grpc should be enabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BAZAAR_ENV", "production")
	t.Setenv("BAZAAR_JWT_SECRET", strongSecret)
	t.Setenv("BAZAAR_JWT_ACCESS_TTL_MINUTES", "15")
	t.Setenv("BAZAAR_RATE_AUTH_PER_MIN", "3")
	t.Setenv("BAZAAR_RATE_WINDOW", "30s")
	t.Setenv("BAZAAR_CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("BAZAAR_GRPC_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AccessTTL != 15*time.Minute {
		t.Fatalf("unexpected access ttl: %v", cfg.AccessTTL)
	}
	if cfg.RateLimit.AuthPerWindow != 3 || cfg.RateLimit.Window != 30*time.Second {
		t.Fatalf("unexpected rate limit: %+v", cfg.RateLimit)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", cfg.CORSOrigins)
	}
	if cfg.GRPCEnabled {
		t.Fatalf("grpc should be disabled")
	}
}

func TestLoadRejectsPlaceholderOutsideDevelopment(t *testing.T) {
	t.Setenv("BAZAAR_ENV", "production")
	t.Setenv("BAZAAR_JWT_SECRET", "bazaar-dev-secret-change-me-please-0000")

	_, err := Load()
	if !errors.Is(err, ErrPlaceholderSecret) {
		t.Fatalf("expected ErrPlaceholderSecret, got %v", err)
	}
}

func TestLoadRejectsShortSecret(t *testing.T) {
	t.Setenv("BAZAAR_ENV", "staging")
	t.Setenv("BAZAAR_JWT_SECRET", "too-short")

	_, err := Load()
	if !errors.Is(err, ErrWeakSecret) {
		t.Fatalf("expected ErrWeakSecret, got %v", err)
	}
}

func TestLoadRequiresSecretOutsideDevelopment(t *testing.T) {
	t.Setenv("BAZAAR_ENV", "production")
	t.Setenv("BAZAAR_JWT_SECRET", "")

	_, err := Load()
	if !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}

func TestLoadDevelopmentFallbacks(t *testing.T) {
	t.Setenv("BAZAAR_ENV", "development")
	t.Setenv("BAZAAR_JWT_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.JWTSecret) != MinSecretBytes {
		t.Fatalf("expected ephemeral key, got %d bytes", len(cfg.JWTSecret))
	}
	if cfg.SecretWarning == "" {
		t.Fatalf("expected warning for ephemeral key")
	}

	t.Setenv("BAZAAR_JWT_SECRET", "bazaar-dev-secret-change-me-please-0000")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load with placeholder in development: %v", err)
	}
	if !strings.Contains(cfg.SecretWarning, "placeholder") {
		t.Fatalf("expected placeholder warning, got %q", cfg.SecretWarning)
	}
}

func TestValidateSecret(t *testing.T) {
	cases := []struct {
		secret string
		dev    bool
		want   error
	}{
		{strongSecret, false, nil},
		{"changeme", false, ErrPlaceholderSecret},
		{"changeme", true, ErrWeakSecret},
		{"CHANGEME-but-long-enough-to-pass-length", false, ErrPlaceholderSecret},
		{"short", true, ErrWeakSecret},
	}
	for _, tc := range cases {
		err := ValidateSecret(tc.secret, tc.dev)
		if !errors.Is(err, tc.want) {
			t.Fatalf("ValidateSecret(%q, %v) = %v, want %v", tc.secret, tc.dev, err, tc.want)
		}
	}
}
