package downstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nextstep/nextstep-bff/internal/logger"
	"github.com/nextstep/nextstep-bff/middleware"
)

// ClientConfig holds configuration for the HTTP client wrapper
type ClientConfig struct {
	// BaseURL is the API root, e.g. http://localhost:8000/api
	BaseURL string
	// ReadTimeout is used for GET requests
	ReadTimeout time.Duration
	// WriteTimeout is used for POST, PUT, PATCH, DELETE requests
	WriteTimeout time.Duration
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:      "http://localhost:8000/api",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Client is a centralized HTTP client wrapper that:
// 1. Injects X-Request-ID from context
// 2. Enforces timeouts based on HTTP method (read vs write)
// 3. Provides unified error mapping
// 4. Logs requests with correlation ID
type Client struct {
	baseClient *http.Client
	config     ClientConfig
}

// NewClient builds a client on rt; nil uses http.DefaultTransport.
func NewClient(config ClientConfig, rt http.RoundTripper) *Client {
	if rt == nil {
		rt = http.DefaultTransport
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &Client{
		baseClient: &http.Client{
			Transport: rt,
			// No global timeout - we set per-request timeouts
			Timeout: 0,
			// The API never redirects; surface 3xx as-is instead of following
			// with a dropped Authorization header.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		config: config,
	}
}

// WithTransport returns a copy of c that sends through rt.
func (c *Client) WithTransport(rt http.RoundTripper) *Client {
	hc := *c.baseClient
	hc.Transport = rt
	return &Client{baseClient: &hc, config: c.config}
}

func (c *Client) BaseURL() string { return c.config.BaseURL }

// URL joins path onto the base URL and appends q.
func (c *Client) URL(path string, q url.Values) string {
	u := c.config.BaseURL + "/" + strings.TrimLeft(path, "/")
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// Do executes req with request-id injection, a method-based timeout, logging
// and error mapping. The response body must be closed by the caller.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if reqID := middleware.GetRequestID(ctx); reqID != "" {
		req.Header.Set(middleware.HeaderXRequestID, reqID)
	}

	timeout := c.config.ReadTimeout
	if isWriteMethod(req.Method) {
		timeout = c.config.WriteTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	req = req.WithContext(ctx)

	log := logger.Ctx(ctx).With().
		Str("method", req.Method).
		Str("url", req.URL.Redacted()).
		Logger()

	start := time.Now()
	resp, err := c.baseClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		cancel()
		log.Warn().
			Err(err).
			Dur("duration", duration).
			Msg("downstream_request_failed")
		return nil, c.mapError(err)
	}

	log.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Msg("downstream_request_completed")

	// The timeout context must outlive Do; release it when the body is closed.
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// mapError converts low-level errors to domain errors
func (c *Client) mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ErrTimeout
	}
	// Connection refused, DNS errors, etc.
	return ErrUnavailable
}

// isWriteMethod returns true for HTTP methods that modify state
func isWriteMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// doJSON sends in (if non-nil) as JSON and decodes a 2xx body into out (if
// non-nil). Non-2xx answers become *StatusError.
func (c *Client) doJSON(ctx context.Context, method, path string, q url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path, q), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusNotFound && method == http.MethodGet {
			return ErrNotFound
		}
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return err
	}
	return nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
