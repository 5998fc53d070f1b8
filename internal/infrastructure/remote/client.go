// Package remote is the HTTP adapter for the HRIS Remote Service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sdca/hris-portal/internal/core/domain"
	"github.com/sdca/hris-portal/internal/core/ports"
	"github.com/sdca/hris-portal/internal/pkg/metrics"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 1 << 20

	statusSuccess = "success"
)

// Config captures the settings for reaching the Remote Service.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client implements ports.RemoteService over JSON/HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

var _ ports.RemoteService = (*Client)(nil)

// NewClient builds a Client. A default timeout is applied when none is provided.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// --- Wire envelopes ---

type authEnvelope struct {
	Status  string       `json:"status"`
	Message string       `json:"message,omitempty"`
	Token   string       `json:"token"`
	User    *domain.User `json:"user"`
}

type validateEnvelope struct {
	Status string `json:"status"`
	Valid  *bool  `json:"valid"`
}

type profileEnvelope struct {
	Status   string                 `json:"status"`
	Message  string                 `json:"message,omitempty"`
	Employee *ports.EmployeeProfile `json:"employee"`
}

type statusEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type userIDRequest struct {
	UserID string `json:"userId"`
}

// Login posts credentials to /auth/login.
func (c *Client) Login(ctx context.Context, req ports.LoginRequest) (*ports.AuthResult, error) {
	var env authEnvelope
	status, err := c.do(ctx, "login", http.MethodPost, "/auth/login", "", req, &env)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return authResult("login", status, env, domain.ErrInvalidCredentials)
}

// Register posts the registration payload to /auth/register.
func (c *Client) Register(ctx context.Context, req ports.RegisterRequest) (*ports.AuthResult, error) {
	var env authEnvelope
	status, err := c.do(ctx, "register", http.MethodPost, "/auth/register", "", req, &env)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return authResult("register", status, env, domain.ErrRequestRejected)
}

func authResult(op string, status int, env authEnvelope, rejected error) (*ports.AuthResult, error) {
	if !is2xx(status) || env.Status != statusSuccess {
		return nil, fmt.Errorf("%s: %w (status %d: %s)", op, rejected, status, env.Message)
	}
	if env.Token == "" || env.User == nil {
		return nil, fmt.Errorf("%s: %w: token or user missing", op, domain.ErrMalformedResponse)
	}
	return &ports.AuthResult{Token: env.Token, User: *env.User}, nil
}

// ValidateSession asks /auth/verify-session whether the token is still good.
// Only a readable answer or an authorization refusal counts as a verdict.
func (c *Client) ValidateSession(ctx context.Context, userID, token string) (bool, error) {
	var env validateEnvelope
	status, err := c.do(ctx, "verify_session", http.MethodPost, "/auth/verify-session", token, userIDRequest{UserID: userID}, &env)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return false, nil
	case err != nil:
		return false, fmt.Errorf("verify session: %w", err)
	case env.Valid == nil:
		return false, fmt.Errorf("verify session: %w: no verdict (status %d)", domain.ErrMalformedResponse, status)
	}
	return *env.Valid, nil
}

// GetProfile fetches the employee record.
func (c *Client) GetProfile(ctx context.Context, userID, token string) (*ports.EmployeeProfile, error) {
	var env profileEnvelope
	status, err := c.do(ctx, "get_profile", http.MethodGet, "/employees/get/"+url.PathEscape(userID), token, nil, &env)
	if err := classify(status, err); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if env.Status != statusSuccess || env.Employee == nil {
		return nil, fmt.Errorf("get profile: %w: no employee", domain.ErrMalformedResponse)
	}
	return env.Employee, nil
}

// UpdateProfile sends a partial profile update.
func (c *Client) UpdateProfile(ctx context.Context, userID, token string, payload ports.ProfileUpdatePayload) error {
	var env statusEnvelope
	status, err := c.do(ctx, "update_profile", http.MethodPut, "/employees/update/"+url.PathEscape(userID), token, payload, &env)
	if err := classify(status, err); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if env.Status != statusSuccess {
		return fmt.Errorf("update profile: %w: %s", domain.ErrRequestRejected, env.Message)
	}
	return nil
}

// Logout tells the Remote Service the session is over. Any 2xx is success.
func (c *Client) Logout(ctx context.Context, userID, token string) error {
	status, err := c.do(ctx, "logout", http.MethodPost, "/auth/logout", token, userIDRequest{UserID: userID}, nil)
	if err := classify(status, err); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// classify folds transport errors and HTTP status codes into domain errors.
func classify(status int, err error) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.ErrSessionRejected
	case err != nil:
		return err
	case status >= 500:
		return fmt.Errorf("%w: status %d", domain.ErrRemoteUnavailable, status)
	case !is2xx(status):
		return fmt.Errorf("%w: status %d", domain.ErrRequestRejected, status)
	}
	return nil
}

// do performs one JSON round-trip. It returns the HTTP status (0 when no
// response arrived) and an error for transport failures, 5xx answers and
// undecodable bodies. out may be nil.
func (c *Client) do(ctx context.Context, op, method, path, token string, body, out any) (int, error) {
	start := time.Now()
	status, err := c.roundTrip(ctx, method, path, token, body, out)

	outcome := "ok"
	switch {
	case errors.Is(err, domain.ErrRemoteUnavailable):
		outcome = "unavailable"
	case errors.Is(err, domain.ErrMalformedResponse):
		outcome = "malformed"
	case !is2xx(status):
		outcome = "rejected"
	}
	metrics.RemoteRequestDuration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		c.log.Debug().Err(err).Str("op", op).Int("status", status).Msg("remote call failed")
	}
	return status, err
}

func (c *Client) roundTrip(ctx context.Context, method, path, token string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%w: read body: %v", domain.ErrRemoteUnavailable, err)
	}
	if resp.StatusCode >= 500 {
		return resp.StatusCode, fmt.Errorf("%w: status %d", domain.ErrRemoteUnavailable, resp.StatusCode)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		if is2xx(resp.StatusCode) {
			return resp.StatusCode, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
		}
		// Error pages from proxies are not JSON; the status speaks for itself.
		return resp.StatusCode, nil
	}
	return resp.StatusCode, nil
}

func is2xx(status int) bool {
	return status >= 200 && status < 300
}
