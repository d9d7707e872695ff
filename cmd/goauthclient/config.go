package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/devserver"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const envPrefix = "GOAUTHCLIENT"

// Config is everything the CLI reads from flags, environment and the
// optional config file.
type Config struct {
	Client    goAuthClient.Config `mapstructure:"client"`
	Profile   string              `mapstructure:"profile"`
	Store     StoreConfig         `mapstructure:"store"`
	Redis     RedisConfig         `mapstructure:"redis"`
	Logging   LoggingConfig       `mapstructure:"logging"`
	Listen    string              `mapstructure:"listen"`
	Devserver devserver.Config    `mapstructure:"devserver"`
}

// StoreConfig selects where the session token is kept between runs.
type StoreConfig struct {
	// Backend is "file" or "redis".
	Backend     string `mapstructure:"backend"`
	Path        string `mapstructure:"path"`
	RedisPrefix string `mapstructure:"redis_prefix"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// loadConfig reads .env, then the config file, then GOAUTHCLIENT_* variables
// and bound flags, later sources winning.
func loadConfig(v *viper.Viper, configFile string) (*Config, error) {
	loadEnvFile()

	v.SetConfigName("goauthclient")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(dir + "/goauthclient")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	setDefaults(v)
	bindEnvironmentVariables(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Devserver.Password = devserver.DefaultConfig().Password

	if err := cfg.Client.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Store.Backend {
	case "file", "redis":
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	return &cfg, nil
}

func loadEnvFile() {
	if err := gotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warnln("Error loading .env file")
	}
}

func setDefaults(v *viper.Viper) {
	client := goAuthClient.DefaultConfig()
	v.SetDefault("client.api.base_url", "http://localhost:8000")
	v.SetDefault("client.api.timeout", client.API.Timeout)
	v.SetDefault("client.api.user_agent", "goauthclient-cli")
	v.SetDefault("client.routes.landing", client.Routes.Landing)
	v.SetDefault("client.routes.login", client.Routes.Login)
	v.SetDefault("client.routes.dashboard", client.Routes.Dashboard)
	v.SetDefault("client.session.expiry_leeway", client.Session.ExpiryLeeway)
	v.SetDefault("client.session.skip_local_expiry_check", false)
	v.SetDefault("client.metrics.enabled", true)
	v.SetDefault("client.metrics.enable_latency_histograms", true)
	v.SetDefault("client.dev_bypass", "")

	v.SetDefault("profile", "default")
	v.SetDefault("store.backend", "file")
	v.SetDefault("store.path", "")
	v.SetDefault("store.redis_prefix", "gac")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("logging.level", "warning")
	v.SetDefault("logging.format", "text")

	dev := devserver.DefaultConfig()
	v.SetDefault("listen", "127.0.0.1:8000")
	v.SetDefault("devserver.redis_prefix", dev.RedisPrefix)
	v.SetDefault("devserver.jwt_secret", "")
	v.SetDefault("devserver.issuer", dev.Issuer)
	v.SetDefault("devserver.token_ttl", dev.TokenTTL)
	v.SetDefault("devserver.reset_token_ttl", dev.ResetTokenTTL)
	v.SetDefault("devserver.reset_url", dev.ResetURL)
	v.SetDefault("devserver.enable_dev_login", false)
	v.SetDefault("devserver.dev_user.name", dev.DevUser.Name)
	v.SetDefault("devserver.dev_user.email", dev.DevUser.Email)
	v.SetDefault("devserver.dev_user.role", dev.DevUser.Role)
	v.SetDefault("devserver.max_login_attempts", dev.MaxLoginAttempts)
	v.SetDefault("devserver.login_cooldown", dev.LoginCooldown)
	v.SetDefault("devserver.max_reset_requests", dev.MaxResetRequests)
	v.SetDefault("devserver.reset_request_window", dev.ResetRequestWindow)
	v.SetDefault("devserver.trust_proxy", false)
}

func bindEnvironmentVariables(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Short aliases for the settings people actually export.
	_ = v.BindEnv("client.api.base_url", envPrefix+"_CLIENT_API_BASE_URL", envPrefix+"_API_URL")
	_ = v.BindEnv("client.dev_bypass", envPrefix+"_CLIENT_DEV_BYPASS", envPrefix+"_DEV_BYPASS")
	_ = v.BindEnv("devserver.jwt_secret", envPrefix+"_DEVSERVER_JWT_SECRET", envPrefix+"_JWT_SECRET")
}

// newLogger builds the CLI logger. Logs go to stderr so command output stays
// scriptable.
func newLogger(cfg LoggingConfig) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("error parsing log level: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(level)
	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return logger, nil
}
