// Package client talks to the intake service over HTTP: the public submit
// endpoint and the gated admin API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"intakedesk/internal/intake/models"
	"intakedesk/internal/intake/validation"
	"intakedesk/pkg/platform/sentinel"
)

// HeaderAdminToken carries the shared static admin secret.
const HeaderAdminToken = "X-Admin-Token"

const defaultTimeout = 30 * time.Second

// Auth holds the admin credentials sent with admin calls. Bearer wins when
// both are set.
type Auth struct {
	Bearer     string
	AdminToken string
}

// Client calls one intake service.
type Client struct {
	baseURL string
	http    *http.Client
	auth    Auth
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithAuth sets the admin credentials.
func WithAuth(a Auth) Option {
	return func(c *Client) {
		c.auth = a
	}
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithAuth returns a copy of c that sends a.
func (c *Client) WithAuth(a Auth) *Client {
	cp := *c
	cp.auth = a
	return &cp
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
	Code    string
	Issues  []validation.Issue
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("intake api: %d %s (%s)", e.Status, e.Message, e.Code)
	}
	return fmt.Sprintf("intake api: %d %s", e.Status, e.Message)
}

// Unwrap maps statuses that describe infrastructure facts onto sentinels.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return sentinel.ErrNotFound
	case http.StatusUnauthorized:
		return sentinel.ErrInvalidToken
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return sentinel.ErrUnavailable
	default:
		return nil
	}
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Document is a downloaded PDF export.
type Document struct {
	Filename string
	Data     []byte
}

// Submit posts one submission to the public endpoint.
func (c *Client) Submit(ctx context.Context, sub models.Submission) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/intake", bytes.NewReader(body), false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return drain(resp)
}

// ListSubmissions returns the newest submissions, newest first.
func (c *Client) ListSubmissions(ctx context.Context) ([]models.SubmissionView, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/admin/submissions", nil, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out models.ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode submissions: %w", err)
	}
	if out.Submissions == nil {
		out.Submissions = []models.SubmissionView{}
	}
	return out.Submissions, nil
}

// DeleteSubmission removes one submission. Unknown ids succeed.
func (c *Client) DeleteSubmission(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/api/admin/submissions/"+url.PathEscape(id), nil, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return drain(resp)
}

// ExportPDF downloads the PDF rendering of one submission.
func (c *Client) ExportPDF(ctx context.Context, id string) (Document, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/admin/submissions/"+url.PathEscape(id)+"/pdf", nil, true)
	if err != nil {
		return Document{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Document{}, fmt.Errorf("read pdf: %w", err)
	}
	doc := Document{Filename: "submission_" + id + ".pdf", Data: data}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		doc.Filename = params["filename"]
	}
	return doc, nil
}

// do sends the request and turns any non-2xx status into an *APIError. On
// success the caller owns the body.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, admin bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if admin {
		switch {
		case c.auth.Bearer != "":
			req.Header.Set("Authorization", "Bearer "+c.auth.Bearer)
		case c.auth.AdminToken != "":
			req.Header.Set(HeaderAdminToken, c.auth.AdminToken)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", method, path, sentinel.ErrUnavailable, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	var body struct {
		Message string             `json:"message"`
		Error   string             `json:"error"`
		Issues  []validation.Issue `json:"issues"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := json.Unmarshal(raw, &body); err != nil || body.Message == "" {
		body.Message = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: body.Message, Code: body.Error, Issues: body.Issues}
}

func drain(resp *http.Response) error {
	_, err := io.Copy(io.Discard, resp.Body)
	return err
}
