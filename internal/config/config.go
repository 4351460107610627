// Package config loads credguard-server process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	HasherBcrypt   = "bcrypt"
	HasherArgon2id = "argon2id"
)

type Config struct {
	Addr        string
	MetricsAddr string
	RedisURL    string
	DBDSN       string
	LogLevel    slog.Level
	TrustProxy  bool
	Namespace   string

	JWTSecret string
	JWTTTL    time.Duration

	GatewayRPS   float64
	GatewayBurst int

	Hasher      string
	AuditStream string
}

func Load() (Config, error) {
	return LoadFromEnv(os.Getenv)
}

func LoadFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Addr:         strings.TrimSpace(getenv("CREDGUARD_ADDR")),
		MetricsAddr:  strings.TrimSpace(getenv("CREDGUARD_METRICS_ADDR")),
		RedisURL:     strings.TrimSpace(getenv("CREDGUARD_REDIS_URL")),
		DBDSN:        strings.TrimSpace(getenv("CREDGUARD_DB_DSN")),
		Namespace:    strings.TrimSpace(getenv("CREDGUARD_NAMESPACE")),
		JWTSecret:    getenv("CREDGUARD_JWT_SECRET"),
		AuditStream:  strings.TrimSpace(getenv("CREDGUARD_AUDIT_STREAM")),
		Hasher:       strings.ToLower(strings.TrimSpace(getenv("CREDGUARD_HASHER"))),
		JWTTTL:       15 * time.Minute,
		GatewayRPS:   50,
		GatewayBurst: 100,
	}

	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}
	if cfg.Hasher == "" {
		cfg.Hasher = HasherBcrypt
	}
	switch cfg.Hasher {
	case HasherBcrypt, HasherArgon2id:
	default:
		return Config{}, errors.New("CREDGUARD_HASHER: must be bcrypt or argon2id")
	}

	if raw := strings.TrimSpace(getenv("CREDGUARD_LOG_LEVEL")); raw != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(raw)); err != nil {
			return Config{}, fmt.Errorf("CREDGUARD_LOG_LEVEL: %w", err)
		}
	}

	if raw := strings.TrimSpace(getenv("CREDGUARD_TRUST_PROXY")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("CREDGUARD_TRUST_PROXY: %w", err)
		}
		cfg.TrustProxy = v
	}

	if raw := strings.TrimSpace(getenv("CREDGUARD_JWT_TTL")); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("CREDGUARD_JWT_TTL: %w", err)
		}
		if ttl <= 0 {
			return Config{}, errors.New("CREDGUARD_JWT_TTL: must be > 0")
		}
		cfg.JWTTTL = ttl
	}
	if cfg.JWTSecret != "" && len(cfg.JWTSecret) < 32 {
		return Config{}, errors.New("CREDGUARD_JWT_SECRET: must be at least 32 bytes")
	}

	if raw := strings.TrimSpace(getenv("CREDGUARD_GATEWAY_RPS")); raw != "" {
		rps, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Config{}, fmt.Errorf("CREDGUARD_GATEWAY_RPS: %w", err)
		}
		if rps < 0 {
			return Config{}, errors.New("CREDGUARD_GATEWAY_RPS: must be >= 0")
		}
		cfg.GatewayRPS = rps
	}
	if raw := strings.TrimSpace(getenv("CREDGUARD_GATEWAY_BURST")); raw != "" {
		burst, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("CREDGUARD_GATEWAY_BURST: %w", err)
		}
		if burst < 1 {
			return Config{}, errors.New("CREDGUARD_GATEWAY_BURST: must be >= 1")
		}
		cfg.GatewayBurst = burst
	}

	if cfg.AuditStream != "" && cfg.RedisURL == "" {
		return Config{}, errors.New("CREDGUARD_AUDIT_STREAM: requires CREDGUARD_REDIS_URL")
	}

	return cfg, nil
}

// ThrottleEnabled reports whether the per-IP front-door limiter should run.
func (c Config) ThrottleEnabled() bool { return c.GatewayRPS > 0 }

// TokensEnabled reports whether login responses carry an access token.
func (c Config) TokensEnabled() bool { return c.JWTSecret != "" }
