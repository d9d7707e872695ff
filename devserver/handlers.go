package devserver

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/MrEthical07/goAuthClient/api"
	"github.com/MrEthical07/goAuthClient/internal"
	"github.com/MrEthical07/goAuthClient/internal/rate"
	"github.com/MrEthical07/goAuthClient/internal/stores"
)

// Messages returned to clients.
const (
	MsgInvalidCredentials = "Invalid credentials"
	MsgTooManyAttempts    = "Too many login attempts, try again later"
	MsgEmailTaken         = "Email already registered"
	MsgInvalidToken       = "Invalid or expired token"
	MsgInvalidResetToken  = "Invalid or expired reset token"
	MsgResetSent          = "If that email is registered, a reset link has been sent"
	MsgPasswordReset      = "Password has been reset"
	MsgDevLoginDisabled   = "Development login is disabled"
	msgBadRequest         = "Malformed request body"
	msgInternal           = "Internal server error"
)

const maxBodyBytes = 1 << 16

type errorResponse struct {
	Success *bool  `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
	Detail  any    `json:"detail,omitempty"`
}

type validationEntry struct {
	Loc []string `json:"loc"`
	Msg string   `json:"msg"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	ok := false
	writeJSON(w, status, errorResponse{Success: &ok, Message: msg})
}

func writeDetail(w http.ResponseWriter, status int, detail any) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := decode(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	ctx := r.Context()
	ip := internal.ClientIP(r, s.config.TrustProxy)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	log := s.logger.WithField("op", "login")

	if err := s.limiter.CheckLogin(ctx, email, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			s.record(r, AuditEvent{Type: AuditLogin, Email: email, Reason: "throttled"})
			writeFailure(w, http.StatusTooManyRequests, MsgTooManyAttempts)
			return
		}
		log.WithError(err).Errorln("Login throttle check failed")
		writeFailure(w, http.StatusServiceUnavailable, msgInternal)
		return
	}

	rec, err := s.users.ByEmail(ctx, email)
	if err != nil && !errors.Is(err, stores.ErrUserNotFound) {
		log.WithError(err).Errorln("User lookup failed")
		writeFailure(w, http.StatusServiceUnavailable, msgInternal)
		return
	}

	hash := s.decoy
	if rec != nil {
		hash = rec.PasswordHash
	}
	ok, err := s.hasher.Verify(req.Password, hash)
	if err != nil {
		if rec != nil {
			log.WithError(err).Warnln("Stored password hash unusable")
		}
		ok = false
	}
	ok = ok && rec != nil
	if !ok {
		if err := s.limiter.IncrementLogin(ctx, email, ip); err != nil && !errors.Is(err, rate.ErrRateLimited) {
			log.WithError(err).Warnln("Failed to record login failure")
		}
		s.record(r, AuditEvent{Type: AuditLogin, Email: email, Reason: "invalid_credentials"})
		writeFailure(w, http.StatusUnauthorized, MsgInvalidCredentials)
		return
	}

	if err := s.limiter.ResetLogin(ctx, email, ip); err != nil {
		log.WithError(err).Warnln("Failed to reset login counters")
	}
	if up, _ := s.hasher.NeedsUpgrade(rec.PasswordHash); up {
		if hash, err := s.hasher.Hash(req.Password); err == nil {
			_ = s.users.SetPasswordHash(ctx, rec.ID, hash)
		}
	}

	resp, err := s.issue(rec)
	if err != nil {
		log.WithError(err).Errorln("Token issue failed")
		writeFailure(w, http.StatusInternalServerError, msgInternal)
		return
	}
	s.record(r, AuditEvent{Type: AuditLogin, UserID: rec.ID, Email: rec.Email, Success: true})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := decode(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	var problems []validationEntry
	if strings.TrimSpace(req.Name) == "" {
		problems = append(problems, validationEntry{Loc: []string{"body", "name"}, Msg: "Name is required"})
	}
	if !strings.Contains(req.Email, "@") {
		problems = append(problems, validationEntry{Loc: []string{"body", "email"}, Msg: "A valid email is required"})
	}
	if len(req.Password) < s.hasher.MinLength() {
		problems = append(problems, validationEntry{
			Loc: []string{"body", "password"},
			Msg: fmt.Sprintf("Password must be at least %d characters", s.hasher.MinLength()),
		})
	}
	if len(problems) > 0 {
		writeDetail(w, http.StatusUnprocessableEntity, problems)
		return
	}

	user, err := s.SeedUser(r.Context(), req.Name, req.Email, req.Password, "user")
	switch {
	case errors.Is(err, stores.ErrUserExists):
		s.record(r, AuditEvent{Type: AuditRegister, Email: strings.ToLower(strings.TrimSpace(req.Email)), Reason: "email_taken"})
		writeDetail(w, http.StatusConflict, MsgEmailTaken)
		return
	case err != nil:
		s.logger.WithField("op", "register").WithError(err).Errorln("Account creation failed")
		writeFailure(w, http.StatusInternalServerError, msgInternal)
		return
	}

	resp, err := s.issue(&stores.UserRecord{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role})
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, msgInternal)
		return
	}
	s.record(r, AuditEvent{Type: AuditRegister, UserID: user.ID, Email: user.Email, Success: true})
	writeJSON(w, http.StatusCreated, resp)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}
	token := strings.TrimSpace(value[len(bearer):])
	return token, token != ""
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		writeDetail(w, http.StatusUnauthorized, MsgInvalidToken)
		return
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		s.record(r, AuditEvent{Type: AuditVerify, Reason: "invalid_token"})
		writeDetail(w, http.StatusUnauthorized, MsgInvalidToken)
		return
	}

	rec, err := s.users.ByID(r.Context(), claims.UserID)
	switch {
	case errors.Is(err, stores.ErrUserNotFound):
		s.record(r, AuditEvent{Type: AuditVerify, UserID: claims.UserID, Reason: "unknown_user"})
		writeDetail(w, http.StatusUnauthorized, MsgInvalidToken)
		return
	case err != nil:
		s.logger.WithField("op", "verify").WithError(err).Errorln("User lookup failed")
		writeFailure(w, http.StatusServiceUnavailable, msgInternal)
		return
	}

	ok = true
	writeJSON(w, http.StatusOK, api.VerifyResponse{Success: &ok, User: toUser(rec)})
}

func (s *Server) handleDevLogin(w http.ResponseWriter, r *http.Request) {
	if !s.config.EnableDevLogin {
		writeFailure(w, http.StatusNotFound, MsgDevLoginDisabled)
		return
	}
	ctx := r.Context()
	dev := s.config.DevUser

	rec, err := s.users.ByEmail(ctx, dev.Email)
	if errors.Is(err, stores.ErrUserNotFound) {
		if _, err = s.SeedUser(ctx, dev.Name, dev.Email, randomPassword(), dev.Role); err != nil && !errors.Is(err, stores.ErrUserExists) {
			s.logger.WithField("op", "dev-login").WithError(err).Errorln("Dev user creation failed")
			writeFailure(w, http.StatusInternalServerError, msgInternal)
			return
		}
		rec, err = s.users.ByEmail(ctx, dev.Email)
	}
	if err != nil {
		s.logger.WithField("op", "dev-login").WithError(err).Errorln("Dev user lookup failed")
		writeFailure(w, http.StatusServiceUnavailable, msgInternal)
		return
	}

	resp, err := s.issue(rec)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, msgInternal)
		return
	}
	s.record(r, AuditEvent{Type: AuditDevLogin, UserID: rec.ID, Email: rec.Email, Success: true})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req api.ForgotPasswordRequest
	if err := decode(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		writeDetail(w, http.StatusUnprocessableEntity, []validationEntry{
			{Loc: []string{"body", "email"}, Msg: "Email is required"},
		})
		return
	}

	// Every path below answers the same way so account existence does not leak.
	done := func() { writeJSON(w, http.StatusOK, api.MessageResponse{Message: MsgResetSent}) }
	ctx := r.Context()
	log := s.logger.WithField("op", "forgot-password")

	if err := s.limiter.AllowResetRequest(ctx, email); err != nil {
		s.record(r, AuditEvent{Type: AuditResetRequest, Email: email, Reason: "throttled"})
		log.WithError(err).Infoln("Reset request throttled")
		done()
		return
	}

	rec, err := s.users.ByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, stores.ErrUserNotFound) {
			log.WithError(err).Errorln("User lookup failed")
		}
		done()
		return
	}

	token, err := internal.NewResetToken()
	if err != nil {
		log.WithError(err).Errorln("Reset token generation failed")
		done()
		return
	}
	if err := s.resets.Save(ctx, token, rec.ID, s.config.ResetTokenTTL); err != nil {
		log.WithError(err).Errorln("Reset token save failed")
		done()
		return
	}
	if err := s.notifier.SendReset(ctx, rec.Email, s.resetLink(token)); err != nil {
		log.WithError(err).Errorln("Reset notification failed")
	}
	s.record(r, AuditEvent{Type: AuditResetRequest, UserID: rec.ID, Email: rec.Email, Success: true})
	done()
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req api.ResetPasswordRequest
	if err := decode(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	if err := internal.ValidResetToken(req.Token); err != nil {
		writeDetail(w, http.StatusBadRequest, MsgInvalidResetToken)
		return
	}
	if len(req.NewPassword) < s.hasher.MinLength() {
		writeDetail(w, http.StatusBadRequest,
			fmt.Sprintf("Password must be at least %d characters", s.hasher.MinLength()))
		return
	}

	ctx := r.Context()
	log := s.logger.WithField("op", "reset-password")

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.resets.Consume(ctx, req.Token)
	switch {
	case errors.Is(err, stores.ErrResetNotFound):
		s.record(r, AuditEvent{Type: AuditResetComplete, Reason: "invalid_token"})
		writeDetail(w, http.StatusBadRequest, MsgInvalidResetToken)
		return
	case err != nil:
		log.WithError(err).Errorln("Reset token consume failed")
		writeFailure(w, http.StatusServiceUnavailable, msgInternal)
		return
	}

	if err := s.users.SetPasswordHash(ctx, rec.UserID, hash); err != nil {
		if errors.Is(err, stores.ErrUserNotFound) {
			writeDetail(w, http.StatusBadRequest, MsgInvalidResetToken)
			return
		}
		log.WithError(err).Errorln("Password update failed")
		writeFailure(w, http.StatusServiceUnavailable, msgInternal)
		return
	}
	if user, err := s.users.ByID(ctx, rec.UserID); err == nil {
		_ = s.limiter.ResetLogin(ctx, user.Email, "")
	}

	s.record(r, AuditEvent{Type: AuditResetComplete, UserID: rec.UserID, Success: true})
	writeJSON(w, http.StatusOK, api.MessageResponse{Message: MsgPasswordReset})
}

func randomPassword() string {
	var b [24]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
