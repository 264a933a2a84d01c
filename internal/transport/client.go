// Package transport is the HTTP gateway to the finance backend. It attaches
// the current bearer token, decodes JSON, retries safe reads, and turns every
// failure into a *Error.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"finsync/internal/log"
)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultReadRetries = 2
	DefaultBackoff     = 200 * time.Millisecond

	maxErrorBody = 64 << 10
)

// TokenSource yields the bearer token to attach. An empty token means the
// request goes out unauthenticated.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a plain function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// UnauthorizedHandler runs when a request carrying a token is rejected with
// 401. The error is still returned to the caller afterwards.
type UnauthorizedHandler func(ctx context.Context, err *Error)

type Client struct {
	baseURL        *url.URL
	http           *http.Client
	tokens         TokenSource
	timeout        time.Duration
	readRetries    int
	backoff        time.Duration
	logger         *log.Logger
	onUnauthorized UnauthorizedHandler
}

type Option func(*Client)

// WithTimeout bounds each individual attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithReadRetries sets how many extra attempts a GET gets after a retryable
// failure. Writes are never retried.
func WithReadRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.readRetries = n
		}
	}
}

func WithRetryBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithUnauthorizedHandler(h UnauthorizedHandler) Option {
	return func(c *Client) { c.onUnauthorized = h }
}

func New(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https, got %q", baseURL)
	}
	if tokens == nil {
		tokens = TokenFunc(func() string { return "" })
	}

	c := &Client{
		baseURL:     u,
		tokens:      tokens,
		timeout:     DefaultTimeout,
		readRetries: DefaultReadRetries,
		backoff:     DefaultBackoff,
		logger:      log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent(log.ComponentTransport)

	hc := &http.Client{}
	if c.http != nil {
		copied := *c.http
		hc = &copied
	}
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc.Transport = &loggingTransport{base: base, logger: c.logger}
	hc.Timeout = c.timeout
	c.http = hc

	return c, nil
}

// BaseURL returns the configured server root.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// Get decodes a JSON response into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, out)
}

// Do sends one logical request. path is already escaped, segment by
// segment. A nil out discards the response body; an empty 2xx body leaves
// out untouched.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		payload = b
	}

	resp, err := c.roundTrip(ctx, method, path, query, payload, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindNetwork, Method: method, Path: path, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// Stream issues a GET and hands back the raw body with its content type.
// The caller closes the reader.
func (c *Client) Stream(ctx context.Context, path string, query url.Values) (io.ReadCloser, string, error) {
	resp, err := c.roundTrip(ctx, http.MethodGet, path, query, nil, "application/pdf, */*")
	if err != nil {
		return nil, "", err
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// roundTrip returns a 2xx response with its body open, or a *Error.
func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, payload []byte, accept string) (*http.Response, error) {
	attempts := 1
	if method == http.MethodGet {
		attempts += c.readRetries
	}

	var lastErr *Error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, tokenSent, err := c.send(ctx, method, path, query, payload, accept)
		if err == nil && resp.StatusCode < 400 {
			return resp, nil
		}

		if err != nil {
			lastErr = &Error{Kind: KindNetwork, Method: method, Path: path, Err: err}
		} else {
			lastErr = c.responseError(method, path, resp)
		}

		if lastErr.StatusCode == http.StatusUnauthorized && tokenSent && c.onUnauthorized != nil {
			c.logger.WarnContext(ctx, "Authenticated request rejected", log.FieldMethod, method, log.FieldPath, path)
			c.onUnauthorized(ctx, lastErr)
			return nil, lastErr
		}

		if !lastErr.Retryable() || attempt == attempts || ctx.Err() != nil {
			break
		}

		c.logger.DebugContext(ctx, "Retrying read",
			log.FieldMethod, method, log.FieldPath, path, log.FieldAttempt, attempt+1, log.FieldError, lastErr.Error())
		if err := sleep(ctx, c.backoff*time.Duration(attempt)); err != nil {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte, accept string) (*http.Response, bool, error) {
	// RawPath keeps an escaped slash inside a segment intact.
	u := *c.baseURL
	u.RawPath = c.baseURL.EscapedPath() + "/" + strings.TrimLeft(path, "/")
	p, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return nil, false, fmt.Errorf("bad request path %q: %w", path, err)
	}
	u.Path = p
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", accept)
	req.Header.Set(HeaderRequestID, uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Read on every attempt so a token set mid-flight is picked up.
	token := c.tokens.Token()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, token != "", err
	}
	return resp, token != "", nil
}

func (c *Client) responseError(method, path string, resp *http.Response) *Error {
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &Error{
		Kind:       KindServer,
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Message:    serverMessage(resp.Header.Get("Content-Type"), data),
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
