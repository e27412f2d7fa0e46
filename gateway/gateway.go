package gateway

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

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-gateway/credentials"
)

const (
	defaultRequestTimeout = 30 * time.Second
	maxErrorBody          = 4 << 10
)

// Gateway sends API requests with the stored access token and recovers from
// a 401 by refreshing once and replaying the request.
type Gateway struct {
	baseURL     string
	client      *http.Client
	store       *credentials.Store
	coordinator *Coordinator
	metrics     *Metrics
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the client used to send requests. Its transport
// must not be this gateway's Transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *Gateway) {
		g.client = hc
	}
}

// WithMetrics counts replays.
func WithMetrics(m *Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// New returns a Gateway for the API at baseURL.
func New(baseURL string, store *credentials.Store, coordinator *Coordinator, options ...Option) (*Gateway, error) {
	if store == nil {
		return nil, errors.New("[gateway.New] credential store is required")
	}
	if coordinator == nil {
		return nil, errors.New("[gateway.New] refresh coordinator is required")
	}
	g := &Gateway{
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      &http.Client{Timeout: defaultRequestTimeout},
		store:       store,
		coordinator: coordinator,
	}
	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

// Do sends req with the current access token.
//
// A 401 answer is resolved as follows: with no refresh token stored Do
// returns ErrUnauthenticated; otherwise it waits for a fresh access token and
// sends req exactly once more. A 401 to that replay is returned as a
// *StatusError matching ErrAuthorizationFailure. If the refresh fails the
// error matches ErrSessionExpired and the credentials have been cleared.
//
// Every other response is returned unchanged and the caller must close its
// body. Network failures are returned as *TransportError.
func (g *Gateway) Do(ctx context.Context, req *Request) (*http.Response, error) {
	requestID := req.Header.Get(HeaderRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	access, _ := g.store.Get(credentials.FieldAccess)
	resp, err := g.send(ctx, req, access, requestID)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	drain(resp)

	if _, ok := g.store.Get(credentials.FieldRefresh); !ok {
		log.Debug().Str("request_id", requestID).Str("path", req.Path).Msg("Unauthorized with no refresh token")
		return nil, ErrUnauthenticated
	}

	fresh, err := g.coordinator.Refresh(ctx, access)
	if err != nil {
		return nil, err
	}

	g.metrics.replayed()
	log.Debug().Str("request_id", requestID).Str("path", req.Path).Msg("Replaying request with refreshed token")
	resp, err = g.send(ctx, req, fresh, requestID)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, statusError(resp)
	}
	return resp, nil
}

// DoJSON sends in as a JSON body (none when nil) and decodes a 2xx answer
// into out when out is non-nil. Non-2xx answers are returned as *StatusError.
func (g *Gateway) DoJSON(ctx context.Context, method, path string, in, out any) error {
	req, err := NewJSONRequest(method, path, in)
	if err != nil {
		return err
	}

	resp, err := g.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// Transport exposes the gateway as an http.RoundTripper so a plain
// http.Client can use it. Request bodies are read fully to allow the replay.
func (g *Gateway) Transport() http.RoundTripper {
	return &transport{gateway: g}
}

func (g *Gateway) send(ctx context.Context, req *Request, access, requestID string) (*http.Response, error) {
	httpReq, err := req.build(ctx, g.baseURL, requestID)
	if err != nil {
		return nil, err
	}
	httpReq = Authorize(httpReq, access)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Method: httpReq.Method, URL: httpReq.URL.String(), Err: err}
	}
	return resp, nil
}

type transport struct {
	gateway *Gateway
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
	}

	return t.gateway.Do(req.Context(), &Request{
		Method: req.Method,
		Path:   req.URL.String(),
		Body:   body,
		Header: req.Header.Clone(),
	})
}

// statusError consumes and closes resp.
func statusError(resp *http.Response) *StatusError {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{StatusCode: resp.StatusCode, Body: bytes.TrimSpace(body)}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
}
