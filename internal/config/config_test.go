package config

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "HTTP_READ_TIMEOUT", "HTTP_WRITE_TIMEOUT", "HTTP_REQUEST_TIMEOUT", "HTTP_IDLE_TIMEOUT", "ALLOWED_ORIGINS",
		"STORE_DRIVER", "DATABASE_URL", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
		"DB_SSLMODE", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"JWT_SECRET_KEY", "ACCESS_TOKEN_TTL", "GOOGLE_CLIENT_ID", "GOOGLE_JWKS_URL",
		"REDIS_URL", "REDIS_PASSWORD", "REDIS_DB",
		"BOOKING_LOCK_TIMEOUT", "BOOKING_LOCK_RETRIES", "BOOKING_RETRY_BACKOFF",
		"LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET_KEY", "a-long-enough-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, DriverPostgres, cfg.Store)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, 10*time.Second, cfg.HTTP.RequestTimeout)
	assert.Equal(t, 2*time.Second, cfg.Booking.LockTimeout)
	assert.Equal(t, 3, cfg.Booking.LockRetries)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=festival sslmode=disable", cfg.Database.DSN())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET_KEY", "a-long-enough-secret")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/fest?sslmode=require")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("BOOKING_LOCK_TIMEOUT", "500ms")
	t.Setenv("HTTP_REQUEST_TIMEOUT", "3s")
	t.Setenv("BOOKING_LOCK_RETRIES", "not-a-number")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Store)
	assert.Equal(t, "postgres://u:p@db:5432/fest?sslmode=require", cfg.Database.DSN())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, 500*time.Millisecond, cfg.Booking.LockTimeout)
	assert.Equal(t, 3*time.Second, cfg.HTTP.RequestTimeout)
	assert.Equal(t, 3, cfg.Booking.LockRetries, "unparsable values fall back")
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{}},
		{"short secret", map[string]string{"JWT_SECRET_KEY": "short"}},
		{"unknown driver", map[string]string{"JWT_SECRET_KEY": "a-long-enough-secret", "STORE_DRIVER": "mongo"}},
		{"bad log level", map[string]string{"JWT_SECRET_KEY": "a-long-enough-secret", "LOG_LEVEL": "loud"}},
		{"min above max conns", map[string]string{"JWT_SECRET_KEY": "a-long-enough-secret", "DB_MIN_CONNS": "50"}},
		{"request timeout above write timeout", map[string]string{"JWT_SECRET_KEY": "a-long-enough-secret", "HTTP_REQUEST_TIMEOUT": "1m"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Log{Level: "warn", Format: "json"}, &buf)

	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.Warn("shown", slog.String("k", "v"))
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"k":"v"`)

	buf.Reset()
	NewLogger(Log{Level: "debug", Format: "text"}, &buf).Debug("text line")
	assert.Contains(t, buf.String(), "msg=\"text line\"")
}
