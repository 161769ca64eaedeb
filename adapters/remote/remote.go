// Package remote is the client for the REST backend that owns every
// business record. It speaks JSON over HTTP and never caches.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/artpar/bizadmin/adapters/metrics"
	"github.com/artpar/bizadmin/core/schema"
)

// Client provides HTTP communication with the backend.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	headers     map[string]string
	readRetries int
	retryWait   time.Duration
	logger      zerolog.Logger
	metrics     *metrics.Collector
}

// ClientConfig configures the remote client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Headers map[string]string

	// ReadRetries is the number of extra attempts for GET requests that
	// failed with a network error or a 5xx status. Writes are never retried.
	ReadRetries int
	RetryWait   time.Duration

	Logger     zerolog.Logger
	Metrics    *metrics.Collector
	HTTPClient *http.Client
}

// NewClient creates a new remote HTTP client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	retries := cfg.ReadRetries
	if retries < 0 {
		retries = 0
	}

	return &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		headers:     cfg.Headers,
		readRetries: retries,
		retryWait:   cfg.RetryWait,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
	}
}

// RequestFailed is returned for any non-2xx response or network failure.
// Status is 0 when no response was received.
type RequestFailed struct {
	Method  string
	URL     string
	Status  int
	Message string
	Err     error
}

func (e *RequestFailed) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.Status, e.Message)
}

func (e *RequestFailed) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error is a 404.
func IsNotFound(err error) bool {
	var rf *RequestFailed
	return errors.As(err, &rf) && rf.Status == http.StatusNotFound
}

// FetchAll lists every record of an endpoint. The body may be a bare array
// or an object with a "data" array.
func (c *Client) FetchAll(ctx context.Context, endpoint string) ([]schema.Record, error) {
	data, err := c.read(ctx, c.resolve(endpoint))
	if err != nil {
		return nil, err
	}
	records, err := decodeList(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return records, nil
}

// Create posts a new record and returns the backend's copy.
func (c *Client) Create(ctx context.Context, endpoint string, record schema.Record) (schema.Record, error) {
	var created schema.Record
	if err := c.Request(ctx, http.MethodPost, c.resolve(endpoint), record, &created); err != nil {
		return nil, err
	}
	return orEmpty(created), nil
}

// Update replaces the record with the given id: PUT {endpoint}/{id}.
func (c *Client) Update(ctx context.Context, endpoint, id string, record schema.Record) (schema.Record, error) {
	var updated schema.Record
	if err := c.Request(ctx, http.MethodPut, c.itemURL(endpoint, id), record, &updated); err != nil {
		return nil, err
	}
	return orEmpty(updated), nil
}

// Remove deletes the record with the given id: DELETE {endpoint}/{id}.
func (c *Client) Remove(ctx context.Context, endpoint, id string) error {
	return c.Request(ctx, http.MethodDelete, c.itemURL(endpoint, id), nil, nil)
}

// Dashboard fetches the pre-aggregated summary statistics.
func (c *Client) Dashboard(ctx context.Context) (map[string]any, error) {
	return c.readObject(ctx, c.resolve("/api/dashboard"))
}

// SalesReport fetches the sales report for an inclusive date range.
func (c *Client) SalesReport(ctx context.Context, start, end time.Time) (map[string]any, error) {
	q := url.Values{}
	q.Set("startDate", start.Format("2006-01-02"))
	q.Set("endDate", end.Format("2006-01-02"))
	return c.readObject(ctx, c.resolve("/api/sales/report")+"?"+q.Encode())
}

func (c *Client) readObject(ctx context.Context, target string) (map[string]any, error) {
	data, err := c.read(ctx, target)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// read performs a GET with a fixed number of retries on network errors
// and 5xx responses.
func (c *Client) read(ctx context.Context, target string) ([]byte, error) {
	var b backoff.BackOff = backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryWait), uint64(c.readRetries))
	b = backoff.WithContext(b, ctx)

	var body []byte
	op := func() error {
		data, err := c.do(ctx, http.MethodGet, target, nil)
		if err != nil {
			var rf *RequestFailed
			if errors.As(err, &rf) && rf.Status >= 400 && rf.Status < 500 {
				return backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		body = data
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn().Err(err).Str("url", target).Dur("wait", wait).Msg("retrying backend read")
		if c.metrics != nil {
			c.metrics.BackendRetries.WithLabelValues(http.MethodGet).Inc()
		}
	}

	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, err
	}
	return body, nil
}

// Ping checks that the backend answers at its base URL. Any response
// below 500 counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, c.baseURL+"/", nil)
	var rf *RequestFailed
	if errors.As(err, &rf) && rf.Status > 0 && rf.Status < 500 {
		return nil
	}
	return err
}

// Request sends a single JSON request and decodes the response into
// result when both are non-empty.
func (c *Client) Request(ctx context.Context, method, target string, body, result any) error {
	data, err := c.do(ctx, method, target, body)
	if err != nil {
		return err
	}
	if result == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, target string, body any) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.observe(method, resp, start)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("url", target).Msg("backend request failed")
		return nil, &RequestFailed{Method: method, URL: target, Message: networkMessage(err), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestFailed{Method: method, URL: target, Status: resp.StatusCode, Message: "read response body", Err: err}
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", target).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestFailed{
			Method:  method,
			URL:     target,
			Status:  resp.StatusCode,
			Message: errorMessage(resp.StatusCode, data),
		}
	}
	return data, nil
}

func (c *Client) observe(method string, resp *http.Response, start time.Time) {
	if c.metrics == nil {
		return
	}
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	c.metrics.BackendRequests.WithLabelValues(method, metrics.StatusClass(status)).Inc()
	c.metrics.BackendDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// resolve joins a relative endpoint to the base URL; absolute URLs pass
// through unchanged.
func (c *Client) resolve(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return c.baseURL + endpoint
}

func (c *Client) itemURL(endpoint, id string) string {
	return strings.TrimRight(c.resolve(endpoint), "/") + "/" + url.PathEscape(id)
}

func decodeList(data []byte) ([]schema.Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []schema.Record{}, nil
	}

	switch trimmed[0] {
	case '[':
		var records []schema.Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, err
		}
		return records, nil
	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, err
		}
		raw, ok := envelope["data"]
		if !ok {
			return nil, errors.New("object response without a data array")
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			return []schema.Record{}, nil
		}
		if raw[0] != '[' {
			return nil, fmt.Errorf("data is not an array: %q", truncate(string(raw), 32))
		}
		var records []schema.Record
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, err
		}
		return records, nil
	default:
		return nil, fmt.Errorf("expected a JSON array, got %q", truncate(string(trimmed), 32))
	}
}

// errorMessage prefers a JSON "message" or "error" field, then the body
// text, then the status text.
func errorMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "{") {
		return truncate(text, 200)
	}
	return http.StatusText(status)
}

func networkMessage(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	default:
		return err.Error()
	}
}

func orEmpty(r schema.Record) schema.Record {
	if r == nil {
		return schema.Record{}
	}
	return r
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
