package authz

import "os"

// Mode selects how the caller identity is established.
type Mode string

const (
	// ModeHeader trusts the X-User-Id header. Development only.
	ModeHeader Mode = "header"
	// ModeJWT validates a bearer token and reads the identity claims.
	ModeJWT Mode = "jwt"
)

// Config controls the auth adapter.
type Config struct {
	Mode      Mode
	JWTSecret string
}

// DefaultConfig returns the development default: header-based identity.
func DefaultConfig() *Config {
	return &Config{Mode: ModeHeader}
}

// ConfigFromEnv loads auth configuration from environment variables:
// ARBITRAGE_AUTH_MODE (header or jwt) and ARBITRAGE_JWT_SECRET.
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("ARBITRAGE_AUTH_MODE"); v != "" {
		cfg.Mode = Mode(v)
	}
	cfg.JWTSecret = os.Getenv("ARBITRAGE_JWT_SECRET")

	return cfg
}
