// Package identity talks to the external identity service that owns admin
// accounts and sessions. The service speaks the GoTrue REST dialect: every call
// carries the project key in an apikey header, user calls add the session as a
// bearer token.
package identity

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

	"intakedesk/pkg/platform/middleware/auth"
	"intakedesk/pkg/platform/sentinel"
)

const (
	headerAPIKey   = "apikey"
	defaultTimeout = 10 * time.Second
)

// User is the account behind a session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is an issued access token and its account.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"-"`
	User         User      `json:"user"`
}

// Error is a rejection reported by the identity service. Message is the
// service's own wording and is safe to show to the admin.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("identity service: %d %s", e.Status, e.Message)
}

// Unwrap maps rejections onto the infrastructure sentinels.
func (e *Error) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return sentinel.ErrInvalidToken
	case e.Code == "invalid_grant" || e.Code == "invalid_credentials":
		return sentinel.ErrInvalidCredentials
	case e.Status >= http.StatusInternalServerError:
		return sentinel.ErrUnavailable
	default:
		return nil
	}
}

// Client calls one identity service project.
type Client struct {
	baseURL    string
	serviceKey string
	http       *http.Client
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a client for the project at baseURL authenticated with
// serviceKey.
func NewClient(baseURL, serviceKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/") + "/auth/v1",
		serviceKey: serviceKey,
		http:       &http.Client{Timeout: defaultTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetUser exchanges an access token for its user.
func (c *Client) GetUser(ctx context.Context, accessToken string) (User, error) {
	var user User
	if err := c.call(ctx, http.MethodGet, "/user", accessToken, nil, &user); err != nil {
		return User{}, err
	}
	if user.ID == "" {
		return User{}, sentinel.ErrInvalidToken
	}
	return user, nil
}

// VerifyToken implements auth.Verifier.
func (c *Client) VerifyToken(ctx context.Context, token string) (*auth.Identity, error) {
	user, err := c.GetUser(ctx, token)
	if err != nil {
		return nil, err
	}
	return &auth.Identity{UserID: user.ID, Email: user.Email}, nil
}

// SignInWithPassword opens a session with an email and password.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (Session, error) {
	body := map[string]string{"email": strings.TrimSpace(email), "password": password}
	var s Session
	if err := c.call(ctx, http.MethodPost, "/token?grant_type=password", "", body, &s); err != nil {
		return Session{}, err
	}
	if s.ExpiresIn > 0 {
		s.ExpiresAt = c.now().Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	return s, nil
}

// SignOut revokes the session behind accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.call(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
}

// RecoverPassword asks the service to email a recovery link that returns the
// user to redirectTo.
func (c *Client) RecoverPassword(ctx context.Context, email, redirectTo string) error {
	path := "/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	return c.call(ctx, http.MethodPost, path, "", map[string]string{"email": strings.TrimSpace(email)}, nil)
}

// UpdatePassword sets a new password for the user behind accessToken, which
// is usually a recovery session.
func (c *Client) UpdatePassword(ctx context.Context, accessToken, password string) (User, error) {
	var user User
	err := c.call(ctx, http.MethodPut, "/user", accessToken, map[string]string{"password": password}, &user)
	return user, err
}

func (c *Client) call(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode identity request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build identity request: %w", err)
	}
	req.Header.Set(headerAPIKey, c.serviceKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: identity %s %s: %w", sentinel.ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode identity response: %w", err)
	}
	return nil
}

// decodeError reads the error envelope. GoTrue has used several field names
// over time, so the first non-empty one wins.
func decodeError(resp *http.Response) error {
	var body struct {
		Code             any    `json:"code"`
		ErrorCode        string `json:"error_code"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &body)

	e := &Error{Status: resp.StatusCode}
	e.Code = firstNonEmpty(body.ErrorCode, body.Error)
	if code, ok := body.Code.(string); ok && e.Code == "" {
		e.Code = code
	}
	e.Message = firstNonEmpty(body.ErrorDescription, body.Msg, body.Message, http.StatusText(resp.StatusCode))
	return e
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
