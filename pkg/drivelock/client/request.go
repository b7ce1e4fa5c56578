package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/operion-drivelock/pkg/otelhelper"
)

// APIPrefix is prepended to every administration endpoint.
const APIPrefix = "/api/administration"

// RawResponse is an undecoded API response.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// endpoint is the request path with the API key redacted.
	endpoint string
}

// RequestOption adjusts a single logical request.
type RequestOption func(*requestConfig)

type requestConfig struct {
	header      http.Header
	idempotency bool
}

// WithHeader sets an additional request header.
func WithHeader(key, value string) RequestOption {
	return func(rc *requestConfig) {
		rc.header.Set(key, value)
	}
}

// WithIdempotencyKey sends an Idempotency-Key header. The key is generated
// once per logical request and repeated on every retry.
func WithIdempotencyKey() RequestOption {
	return func(rc *requestConfig) {
		rc.idempotency = true
	}
}

// Do performs a request and decodes the response envelope. A nil body sends
// no payload; q may be nil.
func Do[T any](ctx context.Context, c *Client, method, endpoint string, body any, q *Query, opts ...RequestOption) (*Response[T], error) {
	raw, err := c.send(ctx, method, endpoint, body, q, opts...)
	if err != nil {
		return nil, err
	}

	out := &Response[T]{}
	if len(bytes.TrimSpace(raw.Body)) == 0 {
		return out, nil
	}

	if err := json.Unmarshal(raw.Body, out); err != nil {
		return nil, fmt.Errorf("DriveLock %s %s: %w", method, raw.endpoint, err)
	}

	return out, nil
}

// DoRaw performs a request and returns the body as received.
func DoRaw(ctx context.Context, c *Client, method, endpoint string, body any, q *Query, opts ...RequestOption) (*RawResponse, error) {
	return c.send(ctx, method, endpoint, body, q, opts...)
}

// Verify checks the configured credentials with a cheap entity query.
func (c *Client) Verify(ctx context.Context) error {
	_, err := c.send(ctx, http.MethodGet, APIPrefix+"/entity/Computers", nil, &Query{Query: "eq(name,MyComputer)"})

	return err
}

func (c *Client) send(ctx context.Context, method, endpoint string, body any, q *Query, opts ...RequestOption) (*RawResponse, error) {
	rc := &requestConfig{header: make(http.Header)}
	for _, opt := range opts {
		opt(rc)
	}

	creds, err := c.credentials.Credentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve DriveLock credentials: %w", err)
	}

	if creds.APIKey == "" {
		return nil, ErrMissingCredentials
	}

	target := ResolveBaseURL(creds.BaseURL) + endpoint

	// Path segments come from rendered parameters and may carry anything.
	shown := redact(endpoint, creds.APIKey)

	values, err := q.Values()
	if err != nil {
		return nil, err
	}

	if encoded := values.Encode(); encoded != "" {
		target += "?" + encoded
	}

	payload, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	attrs := []attribute.KeyValue{
		attribute.String(otelhelper.HTTPMethodKey, method),
		attribute.String(otelhelper.EndpointKey, shown),
	}

	if rc.idempotency {
		key := c.newKey()
		rc.header.Set("Idempotency-Key", key)
		attrs = append(attrs, attribute.String(otelhelper.IdempotencyKey, key))
	}

	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "drivelock.request", attrs...)
	defer span.End()

	attempts := 0

	operation := func() (*RawResponse, error) {
		attempts++

		c.logger.DebugContext(ctx, "sending DriveLock request",
			"method", method,
			"endpoint", shown,
			"attempt", attempts,
		)

		resp, err := c.attempt(ctx, method, target, payload, creds.APIKey, rc.header)
		if resp != nil {
			resp.endpoint = shown
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}

			return nil, newTransportError(method, endpoint, err, creds.APIKey)
		}

		span.SetAttributes(attribute.Int(otelhelper.StatusCodeKey, resp.StatusCode))

		switch {
		case IsRetryableStatus(resp.StatusCode):
			return nil, newStatusError(method, endpoint, resp.StatusCode, resp.Body, creds.APIKey)
		case resp.StatusCode >= http.StatusBadRequest:
			return nil, backoff.Permanent(newStatusError(method, endpoint, resp.StatusCode, resp.Body, creds.APIKey))
		}

		return resp, nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.WarnContext(ctx, "retrying DriveLock request",
			"method", method,
			"endpoint", shown,
			"attempt", attempts,
			"wait", wait,
			"error", err,
		)
		span.AddEvent("retry", trace.WithAttributes(
			attribute.Int(otelhelper.AttemptKey, attempts),
			attribute.String("error", err.Error()),
		))
	}

	resp, err := backoff.RetryNotifyWithData(operation, backoff.WithContext(c.retry.backOff(), ctx), notify)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			apiErr.Attempts = attempts
		}

		otelhelper.SetError(span, err, attribute.Int(otelhelper.AttemptKey, attempts))

		return nil, err
	}

	return resp, nil
}

func (c *Client) attempt(ctx context.Context, method, target string, payload []byte, apiKey string, extra http.Header) (*RawResponse, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("apikey", apiKey)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for key, values := range extra {
		req.Header[key] = values
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &RawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func encodeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	return payload, nil
}
