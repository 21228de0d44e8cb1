package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/noah-isme/adaptive-learning-portal/pkg/config"
	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
	"github.com/noah-isme/adaptive-learning-portal/pkg/middleware/requestid"
)

// Observer receives one observation per backend round trip.
type Observer interface {
	ObserveBackendCall(endpoint string, status int, duration time.Duration)
}

type tokenKey struct{}

// WithToken attaches the bearer token used for calls made with ctx.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the bearer token attached by WithToken.
func TokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Client is the single wrapper every backend call goes through.
type Client struct {
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	logger   *zap.Logger
	observer Observer
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying transport, mostly for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithLogger sets the logger used for failed calls.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver records per-endpoint latency.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithRateLimit throttles outgoing calls; a non-positive limit disables throttling.
func WithRateLimit(limit float64, burst int) Option {
	return func(c *Client) {
		if limit <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(limit), burst)
	}
}

// New constructs a backend client from configuration.
func New(cfg config.BackendConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  zap.NewNop(),
	}
	WithRateLimit(cfg.RateLimit, cfg.RateBurst)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type call struct {
	method   string
	path     string
	endpoint string
	query    url.Values
	body     interface{}
	// raw overrides body with a pre-encoded payload.
	raw         io.Reader
	contentType string
}

func (c *Client) do(ctx context.Context, rc call, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return appErrors.WithCause(appErrors.ErrNetwork, err, "request throttled")
		}
	}

	target := c.baseURL + rc.path
	if len(rc.query) > 0 {
		target += "?" + rc.query.Encode()
	}

	var body io.Reader
	contentType := rc.contentType
	switch {
	case rc.raw != nil:
		body = rc.raw
	case rc.body != nil:
		payload, err := json.Marshal(rc.body)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode request")
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, rc.method, target, body)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.HeaderKey, id)
	}

	endpoint := rc.endpoint
	if endpoint == "" {
		endpoint = rc.method + " " + rc.path
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(endpoint, 0, time.Since(start))
		c.logger.Warn("backend call failed", zap.String("endpoint", endpoint), zap.Error(err))
		return classifyTransport(err)
	}
	defer resp.Body.Close()
	c.observe(endpoint, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransport(err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := classifyStatus(resp.StatusCode, data)
		c.logger.Debug("backend returned error",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message),
		)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], data...)
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return appErrors.WithCause(appErrors.ErrUpstream, err, "unexpected response from learning service")
	}
	return nil
}

func (c *Client) observe(endpoint string, status int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveBackendCall(endpoint, status, d)
	}
}

func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return appErrors.WithCause(appErrors.ErrTimeout, err, "")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return appErrors.WithCause(appErrors.ErrTimeout, err, "")
	}
	return appErrors.WithCause(appErrors.ErrNetwork, err, "")
}

func classifyStatus(status int, body []byte) *appErrors.Error {
	message := detailMessage(body)
	var tmpl *appErrors.Error
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		tmpl = appErrors.ErrValidation
	case status == http.StatusUnauthorized:
		tmpl = appErrors.ErrUnauthorized
	case status == http.StatusForbidden:
		tmpl = appErrors.ErrForbidden
	case status == http.StatusNotFound:
		tmpl = appErrors.ErrNotFound
	case status == http.StatusConflict:
		tmpl = appErrors.ErrConflict
	default:
		tmpl = appErrors.ErrUpstream
	}
	return appErrors.WithCause(tmpl, fmt.Errorf("backend status %d", status), message)
}

// detailMessage extracts FastAPI's detail field, which is either a string or a list of
// validation entries.
func detailMessage(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		return text
	}
	var entries []struct {
		Msg string        `json:"msg"`
		Loc []interface{} `json:"loc"`
	}
	if err := json.Unmarshal(payload.Detail, &entries); err == nil {
		parts := make([]string, 0, len(entries))
		for _, e := range entries {
			if len(e.Loc) > 0 {
				parts = append(parts, fmt.Sprintf("%v: %s", e.Loc[len(e.Loc)-1], e.Msg))
				continue
			}
			parts = append(parts, e.Msg)
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

func idPath(prefix string, id int64) string {
	return fmt.Sprintf("%s%d", prefix, id)
}
