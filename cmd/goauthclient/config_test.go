package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.Client.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Client.API.Timeout)
	assert.Equal(t, "/login", cfg.Client.Routes.Login)
	assert.Equal(t, "file", cfg.Store.Backend)
	assert.Equal(t, "default", cfg.Profile)
	assert.Equal(t, 24*time.Hour, cfg.Devserver.TokenTTL)
	assert.Equal(t, "dev@localhost", cfg.Devserver.DevUser.Email)
	assert.False(t, cfg.Client.DevBypassEnabled())
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("GOAUTHCLIENT_API_URL", "http://api.test")
	t.Setenv("GOAUTHCLIENT_DEV_BYPASS", "1")
	t.Setenv("GOAUTHCLIENT_CLIENT_SESSION_EXPIRY_LEEWAY", "1m")
	t.Setenv("GOAUTHCLIENT_PROFILE", "work")

	cfg, err := loadConfig(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "http://api.test", cfg.Client.API.BaseURL)
	assert.True(t, cfg.Client.DevBypassEnabled())
	assert.Equal(t, time.Minute, cfg.Client.Session.ExpiryLeeway)
	assert.Equal(t, "work", cfg.Profile)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
client:
  api:
    base_url: http://file.test
  routes:
    dashboard: /chats
store:
  backend: redis
redis:
  addr: 127.0.0.1:6380
devserver:
  enable_dev_login: true
  login_cooldown: 30s
`), 0o600))

	cfg, err := loadConfig(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "http://file.test", cfg.Client.API.BaseURL)
	assert.Equal(t, "/chats", cfg.Client.Routes.Dashboard)
	assert.Equal(t, "/login", cfg.Client.Routes.Login)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "127.0.0.1:6380", cfg.Redis.Addr)
	assert.True(t, cfg.Devserver.EnableDevLogin)
	assert.Equal(t, 30*time.Second, cfg.Devserver.LoginCooldown)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Run("backend", func(t *testing.T) {
		t.Setenv("GOAUTHCLIENT_STORE_BACKEND", "floppy")
		_, err := loadConfig(viper.New(), "")
		assert.ErrorContains(t, err, "floppy")
	})
	t.Run("base url", func(t *testing.T) {
		t.Setenv("GOAUTHCLIENT_API_URL", "not a url")
		_, err := loadConfig(viper.New(), "")
		assert.Error(t, err)
	})
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(LoggingConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.True(t, logger.IsLevelEnabled(logrus.DebugLevel))

	_, err = newLogger(LoggingConfig{Level: "loud"})
	assert.Error(t, err)
	_, err = newLogger(LoggingConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
