package goAuthClient

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goAuthClient/api"
	"github.com/MrEthical07/goAuthClient/jwt"
	"github.com/MrEthical07/goAuthClient/tokenstore"
	"github.com/sirupsen/logrus"
)

// Store is the single source of truth for who is logged in.
//
// Build it with [Builder]. The zero value is not usable.
type Store struct {
	config  Config
	api     AuthAPI
	tokens  tokenstore.Store
	nav     Navigator
	logger  logrus.FieldLogger
	metrics *Metrics
	now     func() time.Time

	// persistMu pairs each token store write with its in-memory change.
	persistMu sync.Mutex

	mu             sync.Mutex
	identity       *User
	token          string
	version        uint64
	restored       bool
	inflight       int
	closed         bool
	restoreStarted bool
	restoreDone    chan struct{}

	subsMu  sync.Mutex
	subs    map[uint64]func(State)
	nextSub uint64
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	return State{
		Identity: s.identity.Clone(),
		Loading:  !s.restored || s.inflight > 0,
		Restored: s.restored,
		Version:  s.version,
	}
}

// Identity returns a copy of the authenticated user.
func (s *Store) Identity() (*User, bool) {
	st := s.Snapshot()
	return st.Identity, st.Identity != nil
}

// Loading reports whether restoration or an auth call is pending.
func (s *Store) Loading() bool {
	return s.Snapshot().Loading
}

// Token returns the bearer token of the current session, or "" when
// unauthenticated.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// MetricsSnapshot returns the Store's counters.
func (s *Store) MetricsSnapshot() MetricsSnapshot {
	return s.metrics.Snapshot()
}

// Subscribe registers fn to receive every visible state change. fn runs on
// the goroutine that caused the change, outside the Store's lock, so
// deliveries for concurrent changes may arrive out of order. Compare
// [State.Version] or re-read [Store.Snapshot] when order matters. The
// returned function unsubscribes; calling it twice is harmless.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	s.subsMu.Lock()
	if s.subs == nil {
		s.subs = make(map[uint64]func(State))
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

func (s *Store) notify(st State) {
	s.subsMu.Lock()
	listeners := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range listeners {
		fn(st)
	}
}

// update applies fn under the lock and notifies subscribers when the visible
// state changed. It reports false, without calling fn, once the Store is
// closed.
func (s *Store) update(fn func()) bool {
	after, changed, ok := s.apply(fn)
	if changed {
		s.notify(after)
	}
	return ok
}

// apply is update without the notification. A visible change bumps the
// version.
func (s *Store) apply(fn func()) (after State, changed, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return State{}, false, false
	}
	before := s.snapshotLocked()
	fn()
	after = s.snapshotLocked()
	if sameState(before, after) {
		return after, false, true
	}
	s.version++
	after.Version = s.version
	return after, true, true
}

// Close disposes the Store. Responses that arrive afterwards no longer
// change its state, and subscribers are dropped.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.subsMu.Lock()
	s.subs = nil
	s.subsMu.Unlock()
}

/*
====================================
RESTORATION
====================================
*/

// Restore rebuilds the session from the persisted token. Only the first call
// does any work; concurrent callers wait for it and later callers return
// immediately. Loading is released on every exit path.
//
// Remote and storage failures leave the Store unauthenticated and are not
// returned. The only errors are ErrStoreClosed and ctx's error while waiting
// on another caller's attempt.
func (s *Store) Restore(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	if s.restoreStarted {
		done := s.restoreDone
		s.mu.Unlock()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.restoreStarted = true
	s.mu.Unlock()

	defer s.settle()
	s.restore(ctx)
	return nil
}

// Restored returns a channel closed once restoration has settled.
func (s *Store) Restored() <-chan struct{} {
	return s.restoreDone
}

func (s *Store) settle() {
	s.mu.Lock()
	before := s.snapshotLocked()
	s.restored = true
	after := s.snapshotLocked()
	changed := !sameState(before, after)
	if changed {
		s.version++
		after.Version = s.version
	}
	closed := s.closed
	s.mu.Unlock()

	close(s.restoreDone)
	if !closed && changed {
		s.notify(after)
	}
}

func (s *Store) restore(ctx context.Context) {
	log := s.logger.WithField("op", "restore")

	persisted, ok, err := s.tokens.Get(ctx)
	if err != nil {
		log.WithError(err).Warnln("Persisted session unreadable, clearing")
		s.discard(ctx, log, "")
		s.metrics.Inc(MetricRestoreStorageFailure)
		return
	}

	if !ok || persisted.Token == "" {
		if s.config.DevBypassEnabled() {
			s.devLogin(ctx, log)
			return
		}
		log.Debugln("No persisted session")
		s.metrics.Inc(MetricRestoreNoToken)
		return
	}

	if !s.config.Session.SkipLocalExpiryCheck &&
		jwt.Expired(persisted.Token, s.now(), s.config.Session.ExpiryLeeway) {
		log.Infoln("Persisted token expired, clearing")
		s.discard(ctx, log, persisted.Token)
		s.metrics.Inc(MetricRestoreExpired)
		return
	}

	user, err := s.verify(ctx, persisted.Token)
	if err != nil {
		log.WithError(err).Infoln("Persisted token rejected, clearing")
		s.discard(ctx, log, persisted.Token)
		s.metrics.Inc(MetricRestoreRejected)
		return
	}

	err = s.commit(ctx, log, persisted.Token, user, commitOptions{keepNewer: true, bestEffortWrite: true})
	switch {
	case err == nil:
		log.WithField("userID", user.ID).Debugln("Session restored")
		s.metrics.Inc(MetricRestoreSuccess)
	case errors.Is(err, errSuperseded):
		log.Debugln("Newer session established while verifying, keeping it")
	}
}

func (s *Store) devLogin(ctx context.Context, log logrus.FieldLogger) {
	log = log.WithField("devBypass", true)

	var resp *api.AuthResponse
	err := s.timed(func() (err error) {
		resp, err = s.api.DevLogin(ctx)
		return err
	})
	if err != nil || !resp.Complete() {
		log.WithError(err).Warnln("Development bypass login failed")
		s.metrics.Inc(MetricDevLoginFailure)
		return
	}

	err = s.commit(ctx, log, resp.Token, resp.User, commitOptions{keepNewer: true})
	switch {
	case err == nil:
		s.metrics.Inc(MetricDevLoginSuccess)
	case errors.Is(err, errSuperseded), errors.Is(err, ErrStoreClosed):
		log.Debugln("Development session discarded")
	default:
		log.WithError(err).Warnln("Failed to persist development session")
		s.metrics.Inc(MetricDevLoginFailure)
	}
}

/*
====================================
LOGIN / REGISTER
====================================
*/

// Login authenticates with email and password. Failures, including
// transport errors and success-shaped responses lacking a token or user, are
// returned as a Result and leave the identity unchanged.
func (s *Store) Login(ctx context.Context, creds Credentials) Result {
	email := strings.TrimSpace(creds.Email)
	if email == "" {
		return failure(MsgEmailRequired)
	}
	if creds.Password == "" {
		return failure(MsgPasswordRequired)
	}

	return s.authenticate(ctx, "login", MsgLoginFailed, MetricLoginSuccess, MetricLoginFailure,
		func(ctx context.Context) (*api.AuthResponse, error) {
			return s.api.Login(ctx, api.LoginRequest{Email: email, Password: creds.Password})
		})
}

// Register creates an account and logs into it, with the same failure
// contract as Login.
func (s *Store) Register(ctx context.Context, data RegisterData) Result {
	name := strings.TrimSpace(data.Name)
	email := strings.TrimSpace(data.Email)
	switch {
	case name == "":
		return failure(MsgNameRequired)
	case email == "":
		return failure(MsgEmailRequired)
	case data.Password == "":
		return failure(MsgPasswordRequired)
	}

	return s.authenticate(ctx, "register", MsgRegisterFailed, MetricRegisterSuccess, MetricRegisterFailure,
		func(ctx context.Context) (*api.AuthResponse, error) {
			return s.api.Register(ctx, api.RegisterRequest{Name: name, Email: email, Password: data.Password})
		})
}

func (s *Store) authenticate(
	ctx context.Context,
	op string,
	fallback string,
	successID MetricID,
	failureID MetricID,
	call func(context.Context) (*api.AuthResponse, error),
) Result {
	log := s.logger.WithField("op", op)

	if !s.update(func() { s.inflight++ }) {
		return failure(MsgStoreClosed)
	}
	defer s.update(func() { s.inflight-- })

	var resp *api.AuthResponse
	err := s.timed(func() (err error) {
		resp, err = call(ctx)
		return err
	})
	if err != nil {
		log.WithError(err).Infoln("Authentication rejected")
		s.metrics.Inc(failureID)
		return failure(api.ErrorMessage(err, fallback))
	}

	if !resp.Complete() {
		msg := fallback
		if resp != nil && strings.TrimSpace(resp.Message) != "" {
			msg = strings.TrimSpace(resp.Message)
		}
		log.Infoln("Authentication response incomplete")
		s.metrics.Inc(failureID)
		return failure(msg)
	}

	if err := s.commit(ctx, log, resp.Token, resp.User, commitOptions{}); err != nil {
		if errors.Is(err, ErrStoreClosed) {
			return failure(MsgStoreClosed)
		}
		log.WithError(err).Errorln("Failed to persist session")
		s.metrics.Inc(failureID)
		return failure(MsgSaveSessionFailed)
	}

	log.WithField("userID", resp.User.ID).Debugln("Authenticated")
	s.metrics.Inc(successID)
	return Result{Success: true}
}

/*
====================================
LOGOUT / REFRESH
====================================
*/

// Logout clears the persisted token and identity, then navigates to the
// landing route. Calling it while logged out only navigates.
func (s *Store) Logout(ctx context.Context) {
	after, changed := s.clearLocked(ctx, s.logger.WithField("op", "logout"), nil)
	if changed {
		s.notify(after)
	}
	s.metrics.Inc(MetricLogout)
	s.nav.Push(s.config.Routes.Landing)
}

// RefreshUser re-fetches the profile with the current token. Any failure,
// including having no token, ends in the same state as Logout, unless a
// login replaced the session while the profile call was pending.
func (s *Store) RefreshUser(ctx context.Context) Result {
	log := s.logger.WithField("op", "refresh")

	token := s.currentToken(ctx)
	if token == "" {
		s.metrics.Inc(MetricRefreshFailure)
		s.Logout(ctx)
		return failure(MsgNoSession)
	}

	if !s.config.Session.SkipLocalExpiryCheck &&
		jwt.Expired(token, s.now(), s.config.Session.ExpiryLeeway) {
		log.Infoln("Session token expired")
		s.metrics.Inc(MetricRefreshFailure)
		s.Logout(ctx)
		return failure(MsgSessionExpired)
	}

	user, err := s.verify(ctx, token)
	if err != nil {
		s.metrics.Inc(MetricRefreshFailure)
		if !s.holds(token) {
			log.WithError(err).Infoln("Profile refresh failed for a replaced session")
		} else {
			log.WithError(err).Infoln("Profile refresh failed, logging out")
			s.Logout(ctx)
		}
		return failure(api.ErrorMessage(err, MsgSessionExpired))
	}

	err = s.commit(ctx, log, token, user, commitOptions{keepNewer: true, bestEffortWrite: true})
	switch {
	case errors.Is(err, ErrStoreClosed):
		return failure(MsgStoreClosed)
	case errors.Is(err, errSuperseded):
		log.Debugln("Session replaced while refreshing, keeping it")
		return Result{Success: true}
	}
	s.metrics.Inc(MetricRefreshSuccess)
	return Result{Success: true}
}

func (s *Store) currentToken(ctx context.Context) string {
	if token := s.Token(); token != "" {
		return token
	}
	persisted, ok, err := s.tokens.Get(ctx)
	if err != nil || !ok {
		return ""
	}
	return persisted.Token
}

/*
====================================
PASSWORD RESET
====================================
*/

// ForgotPassword asks the API to send a reset link to email.
func (s *Store) ForgotPassword(ctx context.Context, email string) Result {
	email = strings.TrimSpace(email)
	if email == "" {
		return failure(MsgEmailRequired)
	}

	s.metrics.Inc(MetricPasswordResetRequest)
	err := s.timed(func() error { return s.api.ForgotPassword(ctx, email) })
	if err != nil {
		s.logger.WithField("op", "forgot-password").WithError(err).Infoln("Reset request failed")
		return failure(api.ErrorMessage(err, MsgForgotPasswordFailed))
	}
	return Result{Success: true}
}

// ResetPassword consumes a reset token. It does not log the user in.
func (s *Store) ResetPassword(ctx context.Context, token, newPassword string) Result {
	token = strings.TrimSpace(token)
	if token == "" {
		return failure(MsgResetTokenRequired)
	}
	if newPassword == "" {
		return failure(MsgPasswordRequired)
	}

	err := s.timed(func() error { return s.api.ResetPassword(ctx, token, newPassword) })
	if err != nil {
		s.logger.WithField("op", "reset-password").WithError(err).Infoln("Password reset rejected")
		s.metrics.Inc(MetricPasswordResetFailure)
		return failure(api.ErrorMessage(err, MsgResetPasswordFailed))
	}
	s.metrics.Inc(MetricPasswordResetSuccess)
	return Result{Success: true}
}

/*
====================================
HELPERS
====================================
*/

func (s *Store) verify(ctx context.Context, token string) (*User, error) {
	var user *User
	err := s.timed(func() (err error) {
		user, err = s.api.Verify(ctx, token)
		return err
	})
	if err != nil {
		return nil, err
	}
	if user == nil || user.ID == "" {
		return nil, &api.Error{Op: "verify", Err: api.ErrMalformedResponse}
	}
	return user, nil
}

// errSuperseded reports that another call established a session while a
// commit or discard for an older token was pending.
var errSuperseded = errors.New("session superseded")

type commitOptions struct {
	// keepNewer leaves a session established by another call in place.
	keepNewer bool
	// bestEffortWrite logs a failed token store write instead of failing.
	bestEffortWrite bool
}

// commit persists token and user and makes them the current session. It
// returns ErrStoreClosed once the Store is closed, errSuperseded when
// opts.keepNewer found another session, or the token store's error.
func (s *Store) commit(ctx context.Context, log logrus.FieldLogger, token string, user *User, opts commitOptions) error {
	after, changed, err := s.commitLocked(ctx, log, token, user, opts)
	if changed {
		s.notify(after)
	}
	return err
}

func (s *Store) commitLocked(ctx context.Context, log logrus.FieldLogger, token string, user *User, opts commitOptions) (State, bool, error) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if s.isClosed() {
		return State{}, false, ErrStoreClosed
	}
	if opts.keepNewer && !s.holds(token) {
		return State{}, false, errSuperseded
	}
	if err := s.tokens.Set(ctx, token, user); err != nil {
		if !opts.bestEffortWrite {
			return State{}, false, err
		}
		log.WithError(err).Warnln("Failed to persist session")
	}
	after, changed, ok := s.apply(func() {
		s.identity = user.Clone()
		s.token = token
	})
	if !ok {
		return State{}, false, ErrStoreClosed
	}
	return after, changed, nil
}

// discard drops the session identified by token, or any persisted value
// when token is "". A session established by another call since token was
// read is left alone.
func (s *Store) discard(ctx context.Context, log logrus.FieldLogger, token string) {
	after, changed := s.clearLocked(ctx, log, &token)
	if changed {
		s.notify(after)
	}
}

// clearLocked clears the token store and the identity. When only is non-nil,
// a session other than *only is kept.
func (s *Store) clearLocked(ctx context.Context, log logrus.FieldLogger, only *string) (State, bool) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if only != nil && !s.holds(*only) {
		log.Debugln("Newer session in place, keeping it")
		return State{}, false
	}
	if err := s.tokens.Clear(ctx); err != nil {
		log.WithError(err).Warnln("Failed to clear persisted session")
	}
	after, changed, _ := s.apply(func() {
		s.identity = nil
		s.token = ""
	})
	return after, changed
}

// holds reports whether token is the current session token or no session is
// in place.
func (s *Store) holds(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token == "" || s.token == token
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) timed(fn func() error) error {
	start := time.Now()
	err := fn()
	s.metrics.Observe(MetricRemoteLatency, time.Since(start))
	return err
}
