package devserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goAuthClient/api"
	"github.com/MrEthical07/goAuthClient/internal"
	"github.com/MrEthical07/goAuthClient/internal/audit"
	"github.com/MrEthical07/goAuthClient/internal/rate"
	"github.com/MrEthical07/goAuthClient/internal/stores"
	"github.com/MrEthical07/goAuthClient/jwt"
	"github.com/MrEthical07/goAuthClient/password"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Server serves the auth API. It implements http.Handler.
type Server struct {
	config   Config
	router   *mux.Router
	users    *stores.UserStore
	resets   *stores.ResetTokenStore
	limiter  *rate.Limiter
	hasher   passwordHasher
	decoy    string
	tokens   *jwt.Manager
	notifier ResetNotifier
	sink     audit.Sink
	audit    *audit.Dispatcher
	logger   logrus.FieldLogger
	now      func() time.Time
}

// passwordHasher is the part of [password.Argon2] the handlers use.
type passwordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
	NeedsUpgrade(encodedHash string) (bool, error)
	MinLength() int
}

// Option customizes a [Server].
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) { s.logger = l }
}

// WithNotifier sets where reset links are delivered. Defaults to
// [LogNotifier].
func WithNotifier(n ResetNotifier) Option {
	return func(s *Server) { s.notifier = n }
}

// WithAuditSink receives one event per authentication outcome. Without it
// no events are recorded.
func WithAuditSink(sink AuditSink) Option {
	return func(s *Server) { s.sink = sink }
}

// WithClock overrides the clock used to issue tokens.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New builds a Server storing its state in rdb.
func New(rdb redis.UniversalClient, cfg Config, opts ...Option) (*Server, error) {
	if rdb == nil {
		return nil, errors.New("devserver: redis client required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	hasher, err := password.NewArgon2(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("devserver: %w", err)
	}
	// Logins for unknown emails verify against this hash.
	decoyPlain, err := internal.NewResetToken()
	if err != nil {
		return nil, fmt.Errorf("devserver: %w", err)
	}
	decoy, err := hasher.Hash(decoyPlain)
	if err != nil {
		return nil, fmt.Errorf("devserver: decoy hash: %w", err)
	}

	tokens, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.TokenTTL,
		SigningMethod: jwt.MethodHS256,
		Secret:        []byte(cfg.JWTSecret),
		Issuer:        cfg.Issuer,
	})
	if err != nil {
		return nil, fmt.Errorf("devserver: %w", err)
	}

	s := &Server{
		config:  cfg,
		users:   stores.NewUserStore(rdb, cfg.RedisPrefix+":user"),
		resets:  stores.NewResetTokenStore(rdb, cfg.RedisPrefix+":reset"),
		limiter: rate.New(rdb, cfg.rateConfig()),
		hasher:  hasher,
		decoy:   decoy,
		tokens:  tokens,
		logger:  logrus.StandardLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = LogNotifier{Logger: s.logger}
	}
	s.logger = s.logger.WithField("component", "devserver")
	s.audit = audit.NewDispatcher(audit.Config{BufferSize: cfg.AuditBuffer, DropIfFull: true}, s.sink)

	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	auth.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	auth.HandleFunc("/verify", s.handleVerify).Methods(http.MethodGet)
	auth.HandleFunc("/dev-login", s.handleDevLogin).Methods(http.MethodPost)
	auth.HandleFunc("/forgot-password", s.handleForgotPassword).Methods(http.MethodPost)
	auth.HandleFunc("/reset-password", s.handleResetPassword).Methods(http.MethodPost)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, api.MessageResponse{Message: "OK"})
	}).Methods(http.MethodGet)
	r.Use(s.logRequests)
	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close flushes pending audit events. The server must not be serving.
func (s *Server) Close() {
	s.audit.Close()
}

// AuditDropped counts audit events discarded under backpressure.
func (s *Server) AuditDropped() uint64 {
	return s.audit.Dropped()
}

func (s *Server) record(r *http.Request, ev AuditEvent) {
	ev.Timestamp = s.now().UTC()
	ev.IP = internal.ClientIP(r, s.config.TrustProxy)
	ev.RequestID = r.Header.Get(api.RequestIDHeader)
	s.audit.Emit(r.Context(), ev)
}

// SeedUser creates an account directly, bypassing registration throttles.
func (s *Server) SeedUser(ctx context.Context, name, email, plain, role string) (*api.User, error) {
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return nil, err
	}
	rec := &stores.UserRecord{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Role:         role,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, rec); err != nil {
		return nil, err
	}
	return toUser(rec), nil
}

func (s *Server) issue(rec *stores.UserRecord) (api.AuthResponse, error) {
	token, _, err := s.tokens.Issue(rec.ID, rec.Email, s.now())
	if err != nil {
		return api.AuthResponse{}, err
	}
	ok := true
	return api.AuthResponse{Success: &ok, Token: token, User: toUser(rec)}, nil
}

func (s *Server) resetLink(token string) string {
	sep := "?"
	if strings.Contains(s.config.ResetURL, "?") {
		sep = "&"
	}
	return s.config.ResetURL + sep + "token=" + token
}

func toUser(rec *stores.UserRecord) *api.User {
	return &api.User{ID: rec.ID, Name: rec.Name, Email: rec.Email, Role: rec.Role}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.WithFields(logrus.Fields{
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    rec.status,
			"requestID": r.Header.Get(api.RequestIDHeader),
			"elapsed":   time.Since(start),
		}).Debugln("Handled request")
	})
}
