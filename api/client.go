// Package api talks to the backing API's unauthenticated endpoints (login,
// signup, token refresh and logout). Its requests never pass through the
// authorization gateway, which is what lets the gateway call Refresh from
// inside its own failure path without recursing.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-auth-gateway/internal/config"
)

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 4 << 10
)

// ErrEmptyToken is returned when a 2xx response carries no access token.
var ErrEmptyToken = errors.New("api returned an empty access token")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.StatusCode, e.Body)
}

// Paths are the endpoint paths relative to the base URL.
type Paths struct {
	Login       string
	Signup      string
	Refresh     string
	Logout      string
	CurrentUser string
}

// DefaultPaths matches the reference API routes.
func DefaultPaths() Paths {
	return Paths{
		Login:       "/login",
		Signup:      "/signup",
		Refresh:     "/token/refresh",
		Logout:      "/logout",
		CurrentUser: "/me",
	}
}

// Client is a plain JSON client. It owns its own http.Client; do not hand it
// one whose transport is the authorization gateway.
type Client struct {
	httpClient *http.Client
	baseURL    string
	paths      Paths
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithPaths overrides the endpoint paths.
func WithPaths(p Paths) ClientOption {
	return func(c *Client) {
		c.paths = p
	}
}

// New returns a client for the API at baseURL (e.g. "http://localhost:8080").
func New(baseURL string, options ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		paths:      DefaultPaths(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// NewFromConfig builds a client from the gateway configuration.
func NewFromConfig(cfg config.GatewayConfig) *Client {
	return New(cfg.GetAPIBaseURL(),
		WithHTTPClient(&http.Client{Timeout: cfg.GetRequestTimeout()}),
		WithPaths(Paths{
			Login:       cfg.GetLoginPath(),
			Signup:      cfg.GetSignupPath(),
			Refresh:     cfg.GetRefreshPath(),
			Logout:      cfg.GetLogoutPath(),
			CurrentUser: cfg.GetCurrentUserPath(),
		}))
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Paths() Paths {
	return c.paths
}

// Login exchanges a username and password for a token pair.
func (c *Client) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.postJSON(ctx, c.paths.Login, LoginRequest{Username: username, Password: password}, &resp); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if resp.Access == "" {
		return nil, fmt.Errorf("login: %w", ErrEmptyToken)
	}
	return &resp, nil
}

// Signup registers an account and returns its first token pair.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.postJSON(ctx, c.paths.Signup, req, &resp); err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	if resp.Access == "" {
		return nil, fmt.Errorf("signup: %w", ErrEmptyToken)
	}
	return &resp, nil
}

// Refresh mints a new access token from refreshToken.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var resp RefreshResponse
	if err := c.postJSON(ctx, c.paths.Refresh, RefreshRequest{Refresh: refreshToken}, &resp); err != nil {
		return "", fmt.Errorf("refresh: %w", err)
	}
	if resp.Access == "" {
		return "", fmt.Errorf("refresh: %w", ErrEmptyToken)
	}
	return resp.Access, nil
}

// Logout asks the API to revoke refreshToken. The response body is ignored.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	if err := c.postJSON(ctx, c.paths.Logout, LogoutRequest{Refresh: refreshToken}, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if result == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}
