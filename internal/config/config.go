package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// MinSecretBytes is the shortest signing secret accepted for HS256.
const MinSecretBytes = 32

var (
	ErrMissingSecret     = errors.New("config: jwt secret is not configured")
	ErrWeakSecret        = fmt.Errorf("config: jwt secret must be at least %d bytes", MinSecretBytes)
	ErrPlaceholderSecret = errors.New("config: jwt secret is a known placeholder value")
)

// placeholderSecrets are values shipped in samples and docs that must never sign production tokens.
var placeholderSecrets = []string{
	"changeme",
	"change-me",
	"secret",
	"your-secret-key",
	"your-256-bit-secret",
	"dev-insecure-secret-change",
	"mySecretKey",
	"bazaar-dev-secret-change-me-please-0000",
}

// Config contains runtime configuration values.
type Config struct {
	Environment string
	HTTPAddr    string
	GRPCAddr    string
	GRPCEnabled bool
	DatabaseDSN string
	Version     string
	Commit      string

	JWTSecret     []byte
	JWTIssuer     string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SecretWarning string

	RateLimit RateLimit

	AuditQueueSize int
	MaxBodyBytes   int64
	CORSOrigins    []string
}

// RateLimit holds per-class quotas (requests per window) and limiter timing.
type RateLimit struct {
	AuthPerWindow    int
	UploadPerWindow  int
	CreatePerWindow  int
	DefaultPerWindow int
	AdminPerWindow   int
	Window           time.Duration
	SweepInterval    time.Duration
}

// Load reads configuration from environment variables with sane defaults.
// A weak or placeholder secret is returned as an error and must abort startup.
func Load() (Config, error) {
	cfg := Config{
		Environment: strings.ToLower(getEnv("BAZAAR_ENV", "development")),
		HTTPAddr:    getEnv("BAZAAR_HTTP_ADDR", ":8080"),
		GRPCAddr:    getEnv("BAZAAR_GRPC_ADDR", ":9090"),
		GRPCEnabled: getBool("BAZAAR_GRPC_ENABLED", true),
		DatabaseDSN: os.Getenv("BAZAAR_PG_DSN"),
		Version:     getEnv("BAZAAR_VERSION", "dev"),
		Commit:      getEnv("BAZAAR_COMMIT", "unknown"),
		JWTIssuer:   getEnv("BAZAAR_JWT_ISSUER", "bazaar"),
		AccessTTL:   time.Duration(getInt("BAZAAR_JWT_ACCESS_TTL_MINUTES", 60)) * time.Minute,
		RefreshTTL:  time.Duration(getInt("BAZAAR_JWT_REFRESH_TTL_MINUTES", 10080)) * time.Minute,
		RateLimit: RateLimit{
			AuthPerWindow:    getInt("BAZAAR_RATE_AUTH_PER_MIN", 10),
			UploadPerWindow:  getInt("BAZAAR_RATE_UPLOAD_PER_MIN", 20),
			CreatePerWindow:  getInt("BAZAAR_RATE_CREATE_PER_MIN", 30),
			DefaultPerWindow: getInt("BAZAAR_RATE_DEFAULT_PER_MIN", 60),
			AdminPerWindow:   getInt("BAZAAR_RATE_ADMIN_PER_MIN", 200),
			Window:           getDuration("BAZAAR_RATE_WINDOW", time.Minute),
			SweepInterval:    getDuration("BAZAAR_RATE_SWEEP_INTERVAL", time.Minute),
		},
		AuditQueueSize: getInt("BAZAAR_AUDIT_QUEUE", 1024),
		MaxBodyBytes:   int64(getInt("BAZAAR_MAX_BODY_BYTES", 1<<20)),
		CORSOrigins:    getList("BAZAAR_CORS_ORIGINS", []string{"http://localhost:3000"}),
	}

	if cfg.AccessTTL <= 0 {
		return Config{}, errors.New("config: access token ttl must be positive")
	}
	if cfg.RefreshTTL <= 0 {
		return Config{}, errors.New("config: refresh token ttl must be positive")
	}
	if cfg.RateLimit.Window <= 0 {
		return Config{}, errors.New("config: rate limit window must be positive")
	}

	secret, warning, err := resolveSecret(os.Getenv("BAZAAR_JWT_SECRET"), cfg.IsDevelopment())
	if err != nil {
		return Config{}, err
	}
	cfg.JWTSecret = secret
	cfg.SecretWarning = warning
	return cfg, nil
}

// IsDevelopment reports whether relaxed secret handling is allowed.
func (c Config) IsDevelopment() bool {
	switch c.Environment {
	case "development", "dev", "local", "test":
		return true
	}
	return false
}

// ValidateSecret enforces the signing secret policy. Placeholder values are
// tolerated only in development environments.
func ValidateSecret(secret string, development bool) error {
	if !development && isPlaceholder(secret) {
		return ErrPlaceholderSecret
	}
	if len(secret) < MinSecretBytes {
		return ErrWeakSecret
	}
	return nil
}

func resolveSecret(raw string, development bool) ([]byte, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if !development {
			return nil, "", ErrMissingSecret
		}
		key := make([]byte, MinSecretBytes)
		if _, err := rand.Read(key); err != nil {
			return nil, "", fmt.Errorf("config: generate ephemeral secret: %w", err)
		}
		return key, "BAZAAR_JWT_SECRET unset; using an ephemeral key, tokens will not survive restarts", nil
	}
	if err := ValidateSecret(raw, development); err != nil {
		return nil, "", err
	}
	var warning string
	if isPlaceholder(raw) {
		warning = "BAZAAR_JWT_SECRET is a placeholder value; never deploy it"
	}
	return []byte(raw), warning, nil
}

func isPlaceholder(secret string) bool {
	normalized := strings.ToLower(strings.TrimSpace(secret))
	for _, p := range placeholderSecrets {
		if normalized == strings.ToLower(p) {
			return true
		}
	}
	return strings.HasPrefix(normalized, "changeme") || strings.HasPrefix(normalized, "your-secret")
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err == nil {
			return b
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}
