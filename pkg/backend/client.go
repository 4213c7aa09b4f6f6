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

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

const (
	defaultTimeout         = 10 * time.Second
	responseReadLimit int64 = 4 << 20
)

var errBaseURLRequired = errors.New("backend base url is required")

// Client is the single HTTP transport to the commerce REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *metrics.BackendMetrics
	logg       *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured backend base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout sets the per-call timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 && c.httpClient != nil {
			c.httpClient.Timeout = timeout
		}
	}
}

func WithMetrics(m *metrics.BackendMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		c.logg = logg
	}
}

// NewClient builds the backend client for the provided base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	client := &Client{
		baseURL:    strings.TrimSpace(baseURL),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.baseURL == "" {
		return nil, errBaseURLRequired
	}
	return client, nil
}

// Request describes a single backend call.
type Request struct {
	// Op names the call for metrics and logs, e.g. "cart.add".
	Op     string
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
	// Anonymous skips credentials entirely: no bearer header and no refresh.
	Anonymous bool
}

// Do performs the request and returns the raw response body. A 401 answered
// to an authenticated call triggers exactly one credential refresh and one
// retry of the original request.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "backend client not configured")
	}

	var creds Credentials
	if !req.Anonymous {
		creds = CredentialsFromContext(ctx)
	}

	body, status, err := c.send(ctx, req, creds)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized && creds != nil {
		refreshed, refreshErr := creds.Refresh(ctx)
		if refreshErr != nil && c.logg != nil {
			logCtx := c.logg.WithFields(ctx, map[string]any{"op": req.Op, "error": refreshErr.Error()})
			c.logg.Warn(logCtx, "backend.refresh_failed")
		}
		if refreshed {
			body, status, err = c.send(ctx, req, creds)
			if err != nil {
				return nil, err
			}
		}
	}
	if status < 200 || status >= 300 {
		apiErr := &APIError{Status: status, Message: ExtractMessage(body, status)}
		return nil, pkgerrors.Wrap(pkgerrors.CodeForStatus(status), apiErr, apiErr.Message)
	}
	return body, nil
}

func (c *Client) send(ctx context.Context, req Request, creds Credentials) ([]byte, int, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var reader io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal backend request")
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.buildURL(req.Path, req.Query), reader)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build backend request")
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if creds != nil {
		if token := strings.TrimSpace(creds.AccessToken(ctx)); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.IncTransportFailure(req.Op)
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("%s request failed", opName(req)))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
	c.metrics.Observe(req.Op, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("read %s response", opName(req)))
	}
	return body, resp.StatusCode, nil
}

func (c *Client) buildURL(path string, query url.Values) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	full := fmt.Sprintf("%s/%s", trimmed, path)
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	return full
}

func opName(req Request) string {
	if req.Op != "" {
		return req.Op
	}
	return strings.ToLower(req.Method) + " " + req.Path
}
