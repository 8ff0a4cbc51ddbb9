package token

import (
	"errors"
	"os"
	"time"
)

var (
	// ErrInvalidToken is returned when a token fails parsing or signature checks.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpired is returned when a well-formed token is past its expiry.
	ErrExpired = errors.New("token expired")

	// ErrConfig is returned for invalid token configuration.
	ErrConfig = errors.New("invalid token config")
)

// Config defines runtime configuration for the token service.
//
// Two distinct signing keys are required; this keeps access-token and
// refresh-token forgery independent failure domains.
type Config struct {
	// Issuer is set in the "iss" claim of every token.
	Issuer string

	// AccessTTL is the lifetime of access tokens.
	AccessTTL time.Duration

	// RefreshTTL is the lifetime of refresh tokens.
	RefreshTTL time.Duration

	// ClockSkew is the allowed time skew during expiry validation.
	ClockSkew time.Duration

	// AccessSecretKeyHex / RefreshSecretKeyHex are hex-encoded Ed25519 secret
	// keys used to sign PASETO v4.public tokens. They must differ.
	AccessSecretKeyHex  string
	RefreshSecretKeyHex string
}

// DefaultConfig returns the default TTL policy: 1h access, 2h refresh.
func DefaultConfig() Config {
	return Config{
		Issuer:     "courier",
		AccessTTL:  time.Hour,
		RefreshTTL: 2 * time.Hour,
		ClockSkew:  30 * time.Second,
	}
}

// LoadConfigFromEnv loads token configuration from environment variables.
//
// Required:
//   - COURIER_ACCESS_SECRET_KEY_HEX
//   - COURIER_REFRESH_SECRET_KEY_HEX
//
// Optional:
//   - COURIER_TOKEN_ISSUER
//   - COURIER_ACCESS_TTL
//   - COURIER_REFRESH_TTL
//   - COURIER_TOKEN_CLOCK_SKEW
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("COURIER_TOKEN_ISSUER"); v != "" {
		cfg.Issuer = v
	}
	if v := os.Getenv("COURIER_ACCESS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.AccessTTL = d
	}
	if v := os.Getenv("COURIER_REFRESH_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTTL = d
	}
	if v := os.Getenv("COURIER_TOKEN_CLOCK_SKEW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.ClockSkew = d
	}

	cfg.AccessSecretKeyHex = os.Getenv("COURIER_ACCESS_SECRET_KEY_HEX")
	cfg.RefreshSecretKeyHex = os.Getenv("COURIER_REFRESH_SECRET_KEY_HEX")

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Issuer == "" || c.AccessTTL <= 0 || c.RefreshTTL <= 0 || c.ClockSkew < 0 {
		return ErrConfig
	}
	if c.AccessSecretKeyHex == "" || c.RefreshSecretKeyHex == "" {
		return ErrConfig
	}
	if c.AccessSecretKeyHex == c.RefreshSecretKeyHex {
		return ErrConfig
	}
	return nil
}
