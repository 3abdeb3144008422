// Package rest implements the repository contracts over the bookshelf REST API.
//
// All resources share one Client; each binds a path to a wire shape and its
// conversion through endpoint, so no resource duplicates the HTTP plumbing.
package rest

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

	"go.uber.org/zap"

	"github.com/and161185/bookshelf/internal/errs"
	"github.com/and161185/bookshelf/internal/session"
)

const (
	// DefaultTimeout applies when New is given a non-positive timeout.
	DefaultTimeout = 5 * time.Second

	maxErrorBody = 4 << 10
)

// Client performs authorized JSON calls against the API root.
type Client struct {
	base           string
	http           *http.Client
	session        session.Accessor
	onUnauthorized func()
	log            *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its transport is
// wrapped with request logging.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithUnauthorizedHook registers a callback run when any call is rejected
// with 401, typically clearing the session.
func WithUnauthorizedHook(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// New constructs a Client for baseURL. acc may be nil for anonymous calls.
func New(baseURL string, timeout time.Duration, acc session.Accessor, log *zap.Logger, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		base:    strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		session: acc,
		log:     log,
	}
	for _, o := range opts {
		o(c)
	}
	next := c.http.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	hc := *c.http
	hc.Transport = LoggingTransport(next, log)
	c.http = &hc
	return c
}

// do sends a request and returns the response body of a 2xx answer.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.session != nil {
		if tok, ok := c.session.CurrentToken(); ok {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		return data, nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, c.statusError(method, path, resp.StatusCode, msg)
}

func (c *Client) statusError(method, path string, status int, body []byte) error {
	switch status {
	case http.StatusNotFound:
		return errs.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", errs.ErrBadRequest, strings.TrimSpace(string(body)))
	case http.StatusUnauthorized:
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return errs.ErrUnauthorized
	default:
		return &errs.HTTPError{Method: method, Path: path, Status: status, Body: string(body)}
	}
}

// sendJSON encodes payload (when non-nil) and returns the raw response body.
func (c *Client) sendJSON(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	ct := ""
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body, ct = bytes.NewReader(b), "application/json"
	}
	return c.do(ctx, method, path, body, ct)
}

// sendForm posts an urlencoded form.
func (c *Client) sendForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

// endpoint binds a wire shape W to its domain conversion.
type endpoint[W, M any] struct {
	c       *Client
	convert func(W) (M, error)
}

func (e endpoint[W, M]) decode(data []byte) (M, error) {
	var zero M
	var w W
	if err := json.Unmarshal(data, &w); err != nil {
		return zero, fmt.Errorf("decode response: %w", err)
	}
	return e.convert(w)
}

func (e endpoint[W, M]) get(ctx context.Context, path string) (M, error) {
	data, err := e.c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		var zero M
		return zero, err
	}
	return e.decode(data)
}

func (e endpoint[W, M]) send(ctx context.Context, method, path string, payload any) (M, error) {
	data, err := e.c.sendJSON(ctx, method, path, payload)
	if err != nil {
		var zero M
		return zero, err
	}
	return e.decode(data)
}
