package authapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"
)

// Config defines runtime configuration for the auth HTTP surface.
type Config struct {
	MaxBodyBytes int64

	RefreshCookieName string
	CookiePath        string
	CookieDomain      string
	CookieSecure      bool
	CookieSameSite    http.SameSite
}

// DefaultConfig returns defaults suitable for development.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:      1 << 20,
		RefreshCookieName: "courier_refresh",
		CookiePath:        "/",
		CookieSecure:      false,
		CookieSameSite:    http.SameSiteLaxMode,
	}
}

// LoadConfigFromEnv loads auth API configuration from environment variables.
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("COURIER_HTTP_MAX_BODY_BYTES")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxBodyBytes = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("COURIER_REFRESH_COOKIE_NAME")); v != "" {
		cfg.RefreshCookieName = v
	}
	if v := strings.TrimSpace(os.Getenv("COURIER_COOKIE_PATH")); v != "" {
		cfg.CookiePath = v
	}
	if v := strings.TrimSpace(os.Getenv("COURIER_COOKIE_DOMAIN")); v != "" {
		cfg.CookieDomain = v
	}
	if v := strings.TrimSpace(os.Getenv("COURIER_COOKIE_SECURE")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.CookieSecure = b
		}
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("COURIER_COOKIE_SAMESITE"))) {
	case "strict":
		cfg.CookieSameSite = http.SameSiteStrictMode
	case "none":
		cfg.CookieSameSite = http.SameSiteNoneMode
	case "lax":
		cfg.CookieSameSite = http.SameSiteLaxMode
	}

	return cfg
}
