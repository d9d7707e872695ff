package goAuthClient

import (
	"time"

	"github.com/MrEthical07/goAuthClient/api"
	"github.com/MrEthical07/goAuthClient/tokenstore"
	"github.com/sirupsen/logrus"
)

// Builder assembles a [Store].
//
// Builder instances are intended to be configured during initialization and
// then discarded; Build may be called once.
type Builder struct {
	config Config
	api    AuthAPI
	tokens tokenstore.Store
	nav    Navigator
	logger logrus.FieldLogger
	now    func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithAPI sets the auth API client. Without it, Build constructs an
// [api.Client] from Config.API.
func (b *Builder) WithAPI(client AuthAPI) *Builder {
	b.api = client
	return b
}

// WithTokenStore sets where the token is persisted. Defaults to an
// in-memory store.
func (b *Builder) WithTokenStore(ts tokenstore.Store) *Builder {
	b.tokens = ts
	return b
}

// WithNavigator sets the navigation side effect used by Logout.
func (b *Builder) WithNavigator(nav Navigator) *Builder {
	b.nav = nav
	return b
}

// WithLogger sets the logger. Defaults to logrus.StandardLogger.
func (b *Builder) WithLogger(logger logrus.FieldLogger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the remote call latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock overrides the clock used for local token expiry checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and returns a Store whose restoration
// has not started yet. Call [Store.Restore] next.
func (b *Builder) Build() (*Store, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	client := b.api
	if client == nil {
		if cfg.API.BaseURL == "" {
			return nil, ErrAPIRequired
		}
		c, err := api.NewClient(api.Config{
			BaseURL:   cfg.API.BaseURL,
			Timeout:   cfg.API.Timeout,
			UserAgent: cfg.API.UserAgent,
		}, logger)
		if err != nil {
			return nil, err
		}
		client = c
	}

	tokens := b.tokens
	if tokens == nil {
		tokens = tokenstore.NewMemoryStore()
	}

	nav := b.nav
	if nav == nil {
		nav = nopNavigator{}
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	b.built = true

	return &Store{
		config:      cfg,
		api:         client,
		tokens:      tokens,
		nav:         nav,
		logger:      logger.WithField("component", "session"),
		metrics:     NewMetrics(cfg.Metrics),
		now:         now,
		restoreDone: make(chan struct{}),
	}, nil
}
