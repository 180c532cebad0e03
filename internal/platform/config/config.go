package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// ServerConfig configures cmd/server.
type ServerConfig struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	SessionTTL time.Duration `env:"SESSION_TTL" default:"168h"` // 7 days

	VoteRateCapacity  int `env:"VOTE_RATE_CAPACITY" default:"30"`
	VoteRatePerMinute int `env:"VOTE_RATE_PER_MINUTE" default:"60"`

	PasswordMinLength int `env:"PASSWORD_MIN_LENGTH" default:"8"`
}

// ClientConfig configures cmd/threadpulse.
type ClientConfig struct {
	APIURL      string        `env:"THREADPULSE_API_URL" default:"http://localhost:8080"`
	Token       string        `env:"THREADPULSE_TOKEN"`
	Timeout     time.Duration `env:"THREADPULSE_TIMEOUT" default:"10s"`
	VoteTimeout time.Duration `env:"THREADPULSE_VOTE_TIMEOUT" default:"5s"`
	LogLevel    string        `env:"LOG_LEVEL" default:"warn"`
	LogFormat   string        `env:"LOG_FORMAT" default:"text"`
}

func LoadServer() (*ServerConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg ServerConfig
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validateServer(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func LoadClient() (*ClientConfig, error) {
	// .env is optional for the client as well; errors are not interesting here.
	_ = godotenv.Load()

	var cfg ClientConfig
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validateClient(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validateServer(cfg *ServerConfig) error {
	required := []struct{ name, value string }{
		{"DATABASE_URL", cfg.DatabaseURL},
		{"REDIS_URL", cfg.RedisURL},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.name)
		}
	}

	if cfg.AppEnv == "production" {
		if mode := sslMode(cfg.DatabaseURL); mode == "disable" || mode == "allow" {
			return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
		}
	}

	if cfg.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if cfg.VoteRateCapacity < 1 || cfg.VoteRatePerMinute < 1 {
		return errors.New("VOTE_RATE_CAPACITY and VOTE_RATE_PER_MINUTE must be at least 1")
	}
	if cfg.PasswordMinLength < 1 {
		return errors.New("PASSWORD_MIN_LENGTH must be at least 1")
	}

	return nil
}

func validateClient(cfg *ClientConfig) error {
	u, err := url.Parse(cfg.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("THREADPULSE_API_URL must be an absolute http(s) URL, got %q", cfg.APIURL)
	}
	if cfg.Timeout <= 0 {
		return errors.New("THREADPULSE_TIMEOUT must be positive")
	}
	if cfg.VoteTimeout <= 0 {
		return errors.New("THREADPULSE_VOTE_TIMEOUT must be positive")
	}
	return nil
}

func sslMode(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Query().Get("sslmode"))
}
