package mddb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

const maxErrorBody = 64 << 10

// Client talks to one MDDB server. It is safe for concurrent use.
type Client struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
	http     *http.Client
	ownsHTTP bool
	obs      *observer
}

// New creates a Client and, unless disabled with WithReadinessTimeout(0),
// waits until the server answers /health. ctx bounds the readiness wait.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	endpoint := strings.TrimRight(cfg.endpoint, "/")
	if endpoint == "" {
		return nil, errors.New("mddb: endpoint required")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	c := &Client{endpoint: endpoint, apiKey: cfg.apiKey, timeout: cfg.timeout, http: cfg.httpClient, obs: obs}
	if c.http == nil {
		// без Timeout: дедлайн ставится на контекст, export стримится дольше
		c.http = &http.Client{}
		c.ownsHTTP = true
	}

	if cfg.readinessTimeout > 0 {
		if err := c.waitForReady(ctx, cfg.readinessTimeout); err != nil {
			c.Close()
			return nil, fmt.Errorf("mddb: server not ready: %w", err)
		}
	}
	return c, nil
}

// Close releases idle connections of the default HTTP client.
func (c *Client) Close() {
	if c.ownsHTTP {
		c.http.CloseIdleConnections()
	}
}

// Endpoint returns the server base URL.
func (c *Client) Endpoint() string { return c.endpoint }

// waitForReady polls /health until the server responds or timeout expires.
func (c *Client) waitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if _, err := c.health(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// call runs one observed request/response exchange.
func (c *Client) call(ctx context.Context, op, method, path string, in, out any) (err error) {
	start := time.Now()
	defer func() { c.obs.observe(op, start, err) }()

	if err = c.do(ctx, method, path, in, out); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// withTimeout bounds one request/response exchange by the client timeout.
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.send(ctx, method, path, in)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// send issues the request. The caller closes the response body.
func (c *Client) send(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Code != "" {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
		return apiErr
	}

	// не наш JSON: прокси или чужой сервер
	apiErr.Code = codeForStatus(resp.StatusCode)
	apiErr.Message = strings.TrimSpace(string(data))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "read_only"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusRequestEntityTooLarge:
		return "batch_too_large"
	}
	if status >= http.StatusInternalServerError {
		return "internal_error"
	}
	return "bad_request"
}
