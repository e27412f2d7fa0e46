package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HeaderRequestID correlates the original send and its replay in API logs.
const HeaderRequestID = "X-Request-ID"

// Request is a replayable description of an API call. Body is kept as bytes
// so the same request can be sent twice.
type Request struct {
	Method string
	// Path is relative to the gateway base URL, or an absolute URL.
	Path   string
	Body   []byte
	Header http.Header
}

// NewRequest returns a request with an empty header set.
func NewRequest(method, path string, body []byte) *Request {
	return &Request{
		Method: method,
		Path:   path,
		Body:   body,
		Header: http.Header{},
	}
}

// NewJSONRequest encodes v as the request body. A nil v sends no body.
func NewJSONRequest(method, path string, v any) (*Request, error) {
	r := NewRequest(method, path, nil)
	r.Header.Set("Accept", "application/json")
	if v == nil {
		return r, nil
	}
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	r.Body = body
	r.Header.Set("Content-Type", "application/json")
	return r, nil
}

func (r *Request) url(baseURL string) string {
	if strings.HasPrefix(r.Path, "http://") || strings.HasPrefix(r.Path, "https://") {
		return r.Path
	}
	return baseURL + r.Path
}

// build creates a fresh *http.Request; it is called once per send.
func (r *Request) build(ctx context.Context, baseURL, requestID string) (*http.Request, error) {
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.url(baseURL), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get(HeaderRequestID) == "" {
		req.Header.Set(HeaderRequestID, requestID)
	}
	return req, nil
}
