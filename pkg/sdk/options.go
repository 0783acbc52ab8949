package mddb

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Defaults.
const (
	DefaultEndpoint         = "http://localhost:11023"
	DefaultTimeout          = 30 * time.Second
	DefaultReadinessTimeout = 10 * time.Second
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	endpoint         string
	apiKey           string
	httpClient       *http.Client
	timeout          time.Duration
	readinessTimeout time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

func defaultConfig() *clientConfig {
	return &clientConfig{
		endpoint:         DefaultEndpoint,
		timeout:          DefaultTimeout,
		readinessTimeout: DefaultReadinessTimeout,
	}
}

// WithEndpoint sets the server base URL. Default: http://localhost:11023.
func WithEndpoint(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.endpoint = url
	})
}

// WithAPIKey sends the key as a Bearer token on every request.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = key
	})
}

// WithHTTPClient replaces the HTTP client. Its own Timeout wins over WithTimeout.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithTimeout bounds each request through its context. Default: 30s. 0 disables it.
// Export applies it only until response headers arrive.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithReadinessTimeout bounds how long New waits for /health. 0 skips the check.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readinessTimeout = d
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
