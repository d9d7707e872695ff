package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader carries a per-call correlation id.
const RequestIDHeader = "X-Request-ID"

// Paths lists the endpoint paths, relative to Config.BaseURL.
type Paths struct {
	Login          string
	Register       string
	Verify         string
	DevLogin       string
	ForgotPassword string
	ResetPassword  string
}

// DefaultPaths returns the endpoint layout served by the document-chat backend.
func DefaultPaths() Paths {
	return Paths{
		Login:          "/auth/login",
		Register:       "/auth/register",
		Verify:         "/auth/verify",
		DevLogin:       "/auth/dev-login",
		ForgotPassword: "/auth/forgot-password",
		ResetPassword:  "/auth/reset-password",
	}
}

// Config configures a [Client].
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Paths     Paths
}

// Client calls the remote auth API. It is safe for concurrent use.
type Client struct {
	http   *resty.Client
	paths  Paths
	logger logrus.FieldLogger
}

// NewClient builds a Client with its own resty client.
func NewClient(cfg Config, logger logrus.FieldLogger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("api base url is required")
	}
	rc := resty.New().SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	return NewClientWithResty(rc, cfg, logger), nil
}

// NewClientWithResty wraps an existing resty client. BaseURL in cfg is
// ignored; Timeout and UserAgent are applied when set.
func NewClientWithResty(rc *resty.Client, cfg Config, logger logrus.FieldLogger) *Client {
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}
	if cfg.UserAgent != "" {
		rc.SetHeader("User-Agent", cfg.UserAgent)
	}
	rc.SetHeader("Accept", "application/json")
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		http:   rc,
		paths:  withDefaultPaths(cfg.Paths),
		logger: logger,
	}
}

func withDefaultPaths(p Paths) Paths {
	d := DefaultPaths()
	if p.Login == "" {
		p.Login = d.Login
	}
	if p.Register == "" {
		p.Register = d.Register
	}
	if p.Verify == "" {
		p.Verify = d.Verify
	}
	if p.DevLogin == "" {
		p.DevLogin = d.DevLogin
	}
	if p.ForgotPassword == "" {
		p.ForgotPassword = d.ForgotPassword
	}
	if p.ResetPassword == "" {
		p.ResetPassword = d.ResetPassword
	}
	return p
}

// Login posts credentials. A 2xx response is returned as-is even when it is
// marked as failed; the caller checks [AuthResponse.Complete].
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, "login", http.MethodPost, c.paths.Login, "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns its first session.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, "register", http.MethodPost, c.paths.Register, "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DevLogin asks a development backend for a session without credentials.
func (c *Client) DevLogin(ctx context.Context) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, "dev-login", http.MethodPost, c.paths.DevLogin, "", struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Verify exchanges a bearer token for the current profile.
func (c *Client) Verify(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, &Error{Op: "verify", Err: ErrMissingToken}
	}
	var out VerifyResponse
	if err := c.do(ctx, "verify", http.MethodGet, c.paths.Verify, token, nil, &out); err != nil {
		return nil, err
	}
	if (out.Success != nil && !*out.Success) || out.User == nil || out.User.ID == "" {
		return nil, &Error{
			Op:   "verify",
			Body: ErrorBody{Message: out.Message},
			Err:  ErrMalformedResponse,
		}
	}
	return out.User, nil
}

// ForgotPassword requests a reset link for email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	var out MessageResponse
	return c.do(ctx, "forgot-password", http.MethodPost, c.paths.ForgotPassword, "",
		ForgotPasswordRequest{Email: email}, &out)
}

// ResetPassword consumes a reset token.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	var out MessageResponse
	return c.do(ctx, "reset-password", http.MethodPost, c.paths.ResetPassword, "",
		ResetPasswordRequest{Token: token, NewPassword: newPassword}, &out)
}

func (c *Client) do(ctx context.Context, op, method, path, bearer string, body, out any) error {
	requestID := uuid.NewString()
	var errBody ErrorBody

	req := c.http.R().
		SetContext(ctx).
		SetHeader(RequestIDHeader, requestID).
		SetResult(out).
		SetError(&errBody)
	if bearer != "" {
		req.SetAuthToken(bearer)
	}
	if body != nil {
		req.SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	fields := logrus.Fields{
		"op":        op,
		"path":      path,
		"requestID": requestID,
		"elapsed":   time.Since(start),
	}
	if err != nil {
		c.logger.WithFields(fields).WithError(err).Debugln("Auth API request failed")
		return &Error{Op: op, Err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}

	fields["status"] = resp.StatusCode()
	if resp.IsError() {
		c.logger.WithFields(fields).Debugln("Auth API rejected request")
		return &Error{Op: op, StatusCode: resp.StatusCode(), Body: errBody, Err: ErrRejected}
	}

	c.logger.WithFields(fields).Debugln("Auth API request completed")
	return nil
}
