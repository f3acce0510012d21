// Package backend is the HTTP client for the external storefront REST API. It attaches
// the caller's bearer token, records upstream metrics and classifies failures into
// upstream (non-2xx), timeout and transport errors.
package backend

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

	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

// Request describes one outbound call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Token is the caller's bearer credential; empty sends no Authorization header.
	Token       string
	Body        io.Reader
	ContentType string
	Header      http.Header
	// Route labels metrics; defaults to "METHOD path".
	Route string
}

// Response is a fully read backend response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// UpstreamError is a non-2xx backend response.
type UpstreamError struct {
	Status int
	Body   []byte
	Header http.Header
}

// UpstreamStatus exposes the backend status to error dumps.
func (e *UpstreamError) UpstreamStatus() int {
	return e.Status
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.Status, truncate(e.Body, 256))
}

// Client performs calls against the fixed backend base URL.
type Client struct {
	baseURL string
	http    *http.Client
	logg    *logger.Logger
	metrics *metrics.UpstreamMetrics
}

// New validates the base URL and builds a client with the configured request timeout.
func New(cfg config.BackendConfig, logg *logger.Logger, m *metrics.UpstreamMetrics) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", cfg.URL)
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		logg:    logg,
		metrics: m,
	}, nil
}

// NewWithHTTPClient is used by tests to target an httptest server.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// Stream sends the request and returns the live response; the caller closes the body.
func (c *Client) Stream(ctx context.Context, req Request) (*http.Response, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}
	route := routeLabel(req)
	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.IncFailure(route)
		return nil, err
	}
	c.metrics.Observe(route, resp.StatusCode, time.Since(started))
	return resp, nil
}

// Do sends the request and reads the full body. Non-2xx statuses are returned as a
// Response, not an error; only transport and read failures produce an error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	resp, err := c.Stream(ctx, req)
	if err != nil {
		if c.logg != nil {
			c.logg.Warn(c.logg.WithFields(ctx, map[string]any{"upstream_route": routeLabel(req), "error": err.Error()}), "backend.transport_failed")
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read backend response: %w", err)
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// JSON sends the request and decodes a 2xx body into out (skipped when out is nil).
// Non-2xx responses return *UpstreamError.
func (c *Client) JSON(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &UpstreamError{Status: resp.Status, Body: resp.Body, Header: resp.Header}
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode backend response: %w", err)
	}
	return nil
}

// JSONBody encodes v for use as Request.Body.
func JSONBody(v any) (io.Reader, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(payload), nil
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, req.Body)
	if err != nil {
		return nil, fmt.Errorf("build backend request: %w", err)
	}
	for k, vals := range req.Header {
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}
	if id := RequestIDFromContext(ctx); id != "" && httpReq.Header.Get(RequestIDHeader) == "" {
		httpReq.Header.Set(RequestIDHeader, id)
	}
	return httpReq, nil
}

// RequestIDHeader carries the inbound request id to the backend.
const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// WithRequestID tags ctx so every backend call made with it carries the id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Classify maps a client error onto the typed error codes used by workflow code:
// deadline hits become CodeTimeout, upstream statuses keep their meaning where one
// exists and everything else is a dependency failure.
func Classify(err error, message string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, message+": timed out")
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		code := pkgerrors.CodeDependency
		switch upstream.Status {
		case http.StatusUnauthorized:
			code = pkgerrors.CodeUnauthorized
		case http.StatusForbidden:
			code = pkgerrors.CodeForbidden
		case http.StatusNotFound:
			code = pkgerrors.CodeNotFound
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			code = pkgerrors.CodeValidation
		case http.StatusConflict:
			code = pkgerrors.CodeConflict
		}
		return pkgerrors.Wrap(code, err, message).WithDetails(map[string]any{
			"upstream_status": upstream.Status,
		})
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}

// WithTimeout bounds ctx by d when d is positive.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

func routeLabel(req Request) string {
	if req.Route != "" {
		return req.Route
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	return method + " " + req.Path
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
