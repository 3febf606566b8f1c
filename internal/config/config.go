// Package config reads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the full runtime configuration.
type Config struct {
	HTTP     HTTP
	Store    string `validate:"oneof=postgres memory"`
	Database Database
	Auth     Auth
	Redis    Redis
	Booking  Booking
	Log      Log
}

// HTTP holds listener settings.
type HTTP struct {
	Port           string        `validate:"required,numeric"`
	ReadTimeout    time.Duration `validate:"gt=0"`
	WriteTimeout   time.Duration `validate:"gt=0"`
	// RequestTimeout bounds a handler's context; keep it below WriteTimeout.
	RequestTimeout time.Duration `validate:"gt=0,ltefield=WriteTimeout"`
	IdleTimeout    time.Duration `validate:"gt=0"`
	AllowedOrigins []string
}

// Database holds PostgreSQL connection settings. URL, when set, overrides the
// individual parts.
type Database struct {
	URL      string
	Host     string `validate:"required_without=URL"`
	Port     string `validate:"required_without=URL"`
	User     string `validate:"required_without=URL"`
	Password string
	Name     string `validate:"required_without=URL"`
	SSLMode  string `validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns int32  `validate:"min=1"`
	MinConns int32  `validate:"min=0,ltefield=MaxConns"`
}

// DSN builds a libpq-compatible connection string.
func (c Database) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Auth holds token signing and Google sign-in settings.
type Auth struct {
	JWTSecret      string        `validate:"required,min=16"`
	TokenTTL       time.Duration `validate:"gt=0"`
	GoogleClientID string
	GoogleJWKSURL  string `validate:"omitempty,url"`
}

// Redis is optional; an empty URL disables token revocation.
type Redis struct {
	URL      string
	Password string
	DB       int `validate:"min=0"`
}

// Booking tunes day-lock waits and contention retries.
type Booking struct {
	LockTimeout  time.Duration `validate:"gt=0"`
	LockRetries  int           `validate:"min=0,max=20"`
	RetryBackoff time.Duration `validate:"min=0"`
}

// Log selects the slog level and output format.
type Log struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json text"`
}

// Load reads .env (if present) and the environment, then validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		HTTP: HTTP{
			Port:           getEnv("PORT", "8080"),
			ReadTimeout:    getDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
			RequestTimeout: getDuration("HTTP_REQUEST_TIMEOUT", 10*time.Second),
			IdleTimeout:    getDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			AllowedOrigins: getList("ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		},
		Store: getEnv("STORE_DRIVER", DriverPostgres),
		Database: Database{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "festival"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getInt("DB_MAX_CONNS", 20)),
			MinConns: int32(getInt("DB_MIN_CONNS", 2)),
		},
		Auth: Auth{
			JWTSecret:      os.Getenv("JWT_SECRET_KEY"),
			TokenTTL:       getDuration("ACCESS_TOKEN_TTL", 30*time.Minute),
			GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),
			GoogleJWKSURL:  getEnv("GOOGLE_JWKS_URL", "https://www.googleapis.com/oauth2/v3/certs"),
		},
		Redis: Redis{
			URL:      os.Getenv("REDIS_URL"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		Booking: Booking{
			LockTimeout:  getDuration("BOOKING_LOCK_TIMEOUT", 2*time.Second),
			LockRetries:  getInt("BOOKING_LOCK_RETRIES", 3),
			RetryBackoff: getDuration("BOOKING_RETRY_BACKOFF", 50*time.Millisecond),
		},
		Log: Log{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			return fmt.Errorf("invalid config: DATABASE_URL: %w", err)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
