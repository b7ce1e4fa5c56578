// Package client is a DriveLock administration API client with bounded retry,
// offset pagination and credential redaction.
package client

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/operion-drivelock/pkg/log"
)

const defaultUserAgent = "operion-drivelock"

// Client talks to one DriveLock tenant. It is safe for concurrent use.
type Client struct {
	credentials CredentialsProvider
	httpClient  *http.Client
	logger      *slog.Logger
	tracer      trace.Tracer
	retry       RetryPolicy
	userAgent   string
	newKey      func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default instrumented HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.retry = policy
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// New creates a client resolving credentials from provider on every request.
func New(provider CredentialsProvider, opts ...Option) *Client {
	c := &Client{
		credentials: provider,
		httpClient:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		logger:      log.WithModule("drivelock_client"),
		tracer:      otel.Tracer("github.com/dukex/operion-drivelock/pkg/drivelock/client"),
		retry:       DefaultRetryPolicy(),
		userAgent:   defaultUserAgent,
		newKey:      uuid.NewString,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}
