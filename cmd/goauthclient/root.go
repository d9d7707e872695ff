package main

import (
	"context"
	"fmt"
	"io"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/metrics/export/prometheus"
	"github.com/MrEthical07/goAuthClient/tokenstore"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries state shared by every subcommand of one invocation.
type app struct {
	v      *viper.Viper
	cfg    *Config
	logger *logrus.Logger

	store   *goAuthClient.Store
	closers []func()
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "goauthclient",
		Short:         "Manage a document-chat login session",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.finish(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default ./goauthclient.yaml)")
	flags.String("api-url", "", "auth API base URL")
	flags.String("profile", "", "session profile name")
	flags.String("store", "", "token store backend: file or redis")
	flags.String("token-file", "", "session file path for the file backend")
	flags.String("redis-addr", "", "redis address")
	flags.String("log-level", "", "log level")
	flags.BoolP("verbose", "v", false, "debug logging")
	flags.Bool("print-metrics", false, "print session metrics to stderr after the command")

	_ = a.v.BindPFlag("client.api.base_url", flags.Lookup("api-url"))
	_ = a.v.BindPFlag("profile", flags.Lookup("profile"))
	_ = a.v.BindPFlag("store.backend", flags.Lookup("store"))
	_ = a.v.BindPFlag("store.path", flags.Lookup("token-file"))
	_ = a.v.BindPFlag("redis.addr", flags.Lookup("redis-addr"))
	_ = a.v.BindPFlag("logging.level", flags.Lookup("log-level"))

	root.AddCommand(
		a.loginCmd(),
		a.registerCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.refreshCmd(),
		a.forgotPasswordCmd(),
		a.resetPasswordCmd(),
		a.devserverCmd(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	a.cfg, err = loadConfig(a.v, configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.logger, err = newLogger(a.cfg.Logging)
	if err != nil {
		return err
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		a.logger.SetLevel(logrus.DebugLevel)
	}
	return nil
}

func (a *app) finish(cmd *cobra.Command) error {
	defer func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			a.closers[i]()
		}
		a.closers = nil
	}()

	if a.store == nil {
		return nil
	}
	if show, _ := cmd.Flags().GetBool("print-metrics"); show {
		_, err := io.WriteString(cmd.ErrOrStderr(), prometheus.NewPrometheusExporter(a.store).Render())
		return err
	}
	return nil
}

func (a *app) tokenStore() (tokenstore.Store, error) {
	switch a.cfg.Store.Backend {
	case "redis":
		if a.cfg.Redis.Addr == "" {
			return nil, fmt.Errorf("redis store backend needs --redis-addr")
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{a.cfg.Redis.Addr},
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		a.closers = append(a.closers, func() { _ = client.Close() })
		return tokenstore.NewRedisStore(client, a.cfg.Store.RedisPrefix, a.cfg.Profile, 0), nil
	default:
		path := a.cfg.Store.Path
		if path == "" {
			var err error
			if path, err = tokenstore.DefaultPath(a.cfg.Profile); err != nil {
				return nil, err
			}
		}
		return tokenstore.NewFileStore(path), nil
	}
}

// session builds the store for this invocation. When restore is set the
// persisted token is verified first.
func (a *app) session(ctx context.Context, restore bool) (*goAuthClient.Store, error) {
	tokens, err := a.tokenStore()
	if err != nil {
		return nil, err
	}

	log := a.logger.WithField("profile", a.cfg.Profile)
	store, err := goAuthClient.New().
		WithConfig(a.cfg.Client).
		WithTokenStore(tokens).
		WithLogger(log).
		WithNavigator(goAuthClient.NavigatorFunc(func(path string) {
			log.WithField("path", path).Debugln("Navigate")
		})).
		Build()
	if err != nil {
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	if restore {
		if err := store.Restore(ctx); err != nil {
			return nil, err
		}
	}
	return store, nil
}
