package goAuthClient

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config configures a [Store].
type Config struct {
	API       APIConfig     `mapstructure:"api"`
	Routes    RoutesConfig  `mapstructure:"routes"`
	Session   SessionConfig `mapstructure:"session"`
	Metrics   MetricsConfig `mapstructure:"metrics"`
	DevBypass string        `mapstructure:"dev_bypass"`
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the remote auth API. Ignored when a client is passed to
// [Builder.WithAPI].
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

/*
====================================
ROUTES CONFIG
====================================
*/

// RoutesConfig names the views the session lifecycle navigates to.
type RoutesConfig struct {
	Landing   string `mapstructure:"landing"`
	Login     string `mapstructure:"login"`
	Dashboard string `mapstructure:"dashboard"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig tunes restoration.
type SessionConfig struct {
	// ExpiryLeeway is the clock skew tolerated when a persisted JWT is checked
	// for expiry before calling the verify endpoint.
	ExpiryLeeway time.Duration `mapstructure:"expiry_leeway"`
	// SkipLocalExpiryCheck always defers to the verify endpoint.
	SkipLocalExpiryCheck bool `mapstructure:"skip_local_expiry_check"`
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles in-process counters.
type MetricsConfig struct {
	Enabled                 bool `mapstructure:"enabled"`
	EnableLatencyHistograms bool `mapstructure:"enable_latency_histograms"`
}

// DefaultConfig returns the configuration used by the document-chat front-end.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Timeout:   10 * time.Second,
			UserAgent: "goAuthClient",
		},
		Routes: RoutesConfig{
			Landing:   "/",
			Login:     "/login",
			Dashboard: "/dashboard",
		},
		Session: SessionConfig{
			ExpiryLeeway: 30 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// DevBypassEnabled reports whether the development bypass is switched on.
// Only the exact value "1" enables it.
func (c Config) DevBypassEnabled() bool {
	return strings.TrimSpace(c.DevBypass) == "1"
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: api base url %q is not absolute", ErrInvalidConfig, c.API.BaseURL)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%w: api base url scheme %q unsupported", ErrInvalidConfig, u.Scheme)
		}
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("%w: api timeout must not be negative", ErrInvalidConfig)
	}

	for name, path := range map[string]string{
		"landing":   c.Routes.Landing,
		"login":     c.Routes.Login,
		"dashboard": c.Routes.Dashboard,
	} {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("%w: %s route %q must start with /", ErrInvalidConfig, name, path)
		}
	}
	if c.Routes.Login == c.Routes.Dashboard {
		return fmt.Errorf("%w: login and dashboard routes must differ", ErrInvalidConfig)
	}

	if c.Session.ExpiryLeeway < 0 || c.Session.ExpiryLeeway > 5*time.Minute {
		return fmt.Errorf("%w: expiry leeway must be within [0, 5m]", ErrInvalidConfig)
	}

	return nil
}
