package devserver

import (
	"errors"
	"time"

	"github.com/MrEthical07/goAuthClient/internal/rate"
	"github.com/MrEthical07/goAuthClient/password"
)

// Config configures a [Server].
type Config struct {
	// RedisPrefix namespaces every key the server writes.
	RedisPrefix string `mapstructure:"redis_prefix"`
	// JWTSecret signs session tokens; at least 32 bytes.
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`

	ResetTokenTTL time.Duration `mapstructure:"reset_token_ttl"`
	// ResetURL is the front-end page the reset link points to; the token is
	// appended as the "token" query parameter.
	ResetURL string `mapstructure:"reset_url"`

	// EnableDevLogin serves POST /auth/dev-login as DevUser.
	EnableDevLogin bool    `mapstructure:"enable_dev_login"`
	DevUser        DevUser `mapstructure:"dev_user"`

	MaxLoginAttempts   int           `mapstructure:"max_login_attempts"`
	LoginCooldown      time.Duration `mapstructure:"login_cooldown"`
	MaxResetRequests   int           `mapstructure:"max_reset_requests"`
	ResetRequestWindow time.Duration `mapstructure:"reset_request_window"`
	// TrustProxy takes the client address from X-Forwarded-For.
	TrustProxy bool `mapstructure:"trust_proxy"`
	// AuditBuffer bounds queued audit events; extras are dropped.
	AuditBuffer int `mapstructure:"audit_buffer"`

	Password password.Config `mapstructure:"-"`
}

// DevUser is the account used by the development bypass.
type DevUser struct {
	Name  string `mapstructure:"name"`
	Email string `mapstructure:"email"`
	Role  string `mapstructure:"role"`
}

// DefaultConfig returns a configuration without a JWT secret; callers must
// set one.
func DefaultConfig() Config {
	return Config{
		RedisPrefix:   "devauth",
		Issuer:        "goauthclient-devserver",
		TokenTTL:      24 * time.Hour,
		ResetTokenTTL: 30 * time.Minute,
		ResetURL:      "http://localhost:8080/reset-password",
		DevUser: DevUser{
			Name:  "Developer",
			Email: "dev@localhost",
			Role:  "admin",
		},
		MaxLoginAttempts:   5,
		LoginCooldown:      15 * time.Minute,
		MaxResetRequests:   3,
		ResetRequestWindow: time.Hour,
		AuditBuffer:        256,
		Password:           password.FastConfig(),
	}
}

func (c Config) validate() error {
	if len(c.JWTSecret) < 32 {
		return errors.New("devserver: jwt secret must be at least 32 bytes")
	}
	if c.TokenTTL <= 0 {
		return errors.New("devserver: token ttl must be positive")
	}
	if c.ResetTokenTTL <= 0 {
		return errors.New("devserver: reset token ttl must be positive")
	}
	if c.EnableDevLogin && c.DevUser.Email == "" {
		return errors.New("devserver: dev user email required when dev login is enabled")
	}
	return nil
}

func (c Config) rateConfig() rate.Config {
	return rate.Config{
		EnableIPThrottle:   true,
		MaxLoginAttempts:   c.MaxLoginAttempts,
		LoginCooldown:      c.LoginCooldown,
		MaxResetRequests:   c.MaxResetRequests,
		ResetRequestWindow: c.ResetRequestWindow,
	}
}
