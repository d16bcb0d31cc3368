// Package apiclient is the typed client for the upstream VoteFlow REST API.
//
// Every call attaches the session's bearer token, unwraps the
// {success, message, data} envelope and returns an *APIError on failure.
// A 401 from any endpoint fires the unauthorized hook. There is no retry,
// backoff or caching.
package apiclient

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

	"voteflow-backend/internal/logger"
	"voteflow-backend/internal/metrics"
)

// DefaultTimeout applies to every request.
const DefaultTimeout = 10 * time.Second

// TokenSource supplies the bearer token for the current caller, or "".
type TokenSource interface {
	Token(ctx context.Context) string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) string

func (f TokenFunc) Token(ctx context.Context) string { return f(ctx) }

// ErrorSource selects where an endpoint's error text is read from. The
// upstream endpoints disagree on this, so each method names its own.
type ErrorSource int

const (
	FromMessage ErrorSource = iota // envelope "message"
	FromData                       // envelope "data" when it is a string
	FromBody                       // raw response text
)

// APIError is the normalised failure returned by every method.
type APIError struct {
	Endpoint string
	Status   int
	Message  string
	Err      error
}

func (e *APIError) Error() string { return e.Message }

func (e *APIError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type Client struct {
	baseURL        string
	http           *http.Client
	tokens         TokenSource
	onUnauthorized func(ctx context.Context)
}

type Option func(*Client)

// WithHTTPClient uses a copy of hc with its timeout forced to
// DefaultTimeout. hc itself is not modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithUnauthorizedHandler sets the hook run on any 401 response.
func WithUnauthorizedHandler(fn func(ctx context.Context)) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		tokens:  tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	// copy so a shared client such as http.DefaultClient is left alone
	hc := *c.http
	hc.Timeout = DefaultTimeout
	c.http = &hc
	return c
}

// call describes one request.
type call struct {
	name     string
	method   string
	path     string
	query    url.Values
	body     interface{}
	errFrom  ErrorSource
	fallback string
}

func (c *Client) do(ctx context.Context, cl call, out interface{}) error {
	log := logger.For("apiclient").WithField("endpoint", cl.name)

	token := ""
	if c.tokens != nil {
		token = c.tokens.Token(ctx)
	}

	q := url.Values{}
	for k, v := range cl.query {
		q[k] = v
	}
	// The API also expects the token as a query parameter on reads,
	// updates and deletes.
	if token != "" && (cl.method == http.MethodGet || cl.method == http.MethodPut || cl.method == http.MethodDelete) {
		q.Set("token", token)
	}
	u := c.baseURL + cl.path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return &APIError{Endpoint: cl.name, Message: cl.fallback, Err: err}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return &APIError{Endpoint: cl.name, Message: cl.fallback, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(cl.name, "network_error").Inc()
		log.WithError(err).Warn("[API] Request failed")
		return &APIError{Endpoint: cl.name, Message: cl.fallback, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
		log.Info("[API] 401 received, clearing session")
		c.onUnauthorized(ctx)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Endpoint: cl.name, Status: resp.StatusCode, Message: cl.fallback, Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if ok && decodeErr == nil && env.Success != nil && !*env.Success {
		ok = false
	}
	if !ok {
		metrics.UpstreamRequestsTotal.WithLabelValues(cl.name, "error").Inc()
		msg := errorMessage(cl.errFrom, env, raw, decodeErr == nil)
		if msg == "" {
			msg = cl.fallback
		}
		return &APIError{Endpoint: cl.name, Status: resp.StatusCode, Message: msg}
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(cl.name, "ok").Inc()

	if out == nil {
		return nil
	}
	if decodeErr != nil {
		return &APIError{Endpoint: cl.name, Status: resp.StatusCode, Message: cl.fallback, Err: decodeErr}
	}
	payload := env.Data
	if len(payload) == 0 || string(payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &APIError{Endpoint: cl.name, Status: resp.StatusCode, Message: cl.fallback, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}

func errorMessage(src ErrorSource, env envelope, raw []byte, decoded bool) string {
	switch src {
	case FromData:
		if !decoded {
			return ""
		}
		var s string
		if json.Unmarshal(env.Data, &s) == nil {
			return s
		}
		return ""
	case FromBody:
		return strings.TrimSpace(string(raw))
	default:
		if !decoded {
			return ""
		}
		return env.Message
	}
}
