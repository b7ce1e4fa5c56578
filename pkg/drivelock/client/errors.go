package client

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	// ErrMissingCredentials is returned when no API key is configured.
	ErrMissingCredentials = errors.New("missing DriveLock API key")

	// ErrMalformedResponse indicates a response body that does not match the
	// expected envelope.
	ErrMalformedResponse = errors.New("malformed DriveLock response")
)

const maxErrorBody = 4096

// headerPaths are removed from error bodies. Gateways and proxies are known
// to echo the failing request, headers included.
var headerPaths = []string{
	"headers",
	"request.headers",
	"response.headers",
	"config.headers",
	"options.headers",
}

// APIError describes a request that failed for good: a non-retryable status,
// or a retryable one after the retry budget ran out. StatusCode is zero for
// transport failures. No field contains the API key, and Body holds no headers.
type APIError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Message    string
	Body       []byte
	Attempts   int

	err error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("DriveLock %s %s failed after %d attempt(s): %s", e.Method, e.Endpoint, e.Attempts, e.Message)
	}

	return fmt.Sprintf("DriveLock %s %s returned HTTP %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Message)
}

// Unwrap returns the transport error, if any.
func (e *APIError) Unwrap() error {
	return e.err
}

// Retryable reports whether the failure was transient.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 0 || IsRetryableStatus(e.StatusCode)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}

	return 0
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsUnauthorized reports whether the API rejected the credentials.
func IsUnauthorized(err error) bool {
	status := StatusCode(err)

	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

func newStatusError(method, endpoint string, status int, body []byte, secret string) *APIError {
	clean := sanitizeBody(body, secret)

	return &APIError{
		Method:     redact(method, secret),
		Endpoint:   redact(endpoint, secret),
		StatusCode: status,
		Message:    errorMessage(status, clean),
		Body:       clean,
	}
}

func newTransportError(method, endpoint string, err error, secret string) *APIError {
	return &APIError{
		Method:   redact(method, secret),
		Endpoint: redact(endpoint, secret),
		Message:  redact(err.Error(), secret),
		err:      err,
	}
}

// errorMessage picks the most descriptive message of an error body.
func errorMessage(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"message", "error.message", "error", "detail", "title"} {
			if v := gjson.GetBytes(body, path); v.Type == gjson.String && v.Str != "" {
				return v.Str
			}
		}
	} else if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 200 {
		return text
	}

	if text := http.StatusText(status); text != "" {
		return text
	}

	return "unexpected status"
}

func sanitizeBody(body []byte, secret string) []byte {
	if len(body) == 0 {
		return nil
	}

	out := bytes.Clone(body)

	if gjson.ValidBytes(out) {
		for _, path := range headerPaths {
			if !gjson.GetBytes(out, path).Exists() {
				continue
			}

			if stripped, err := sjson.DeleteBytes(out, path); err == nil {
				out = stripped
			}
		}
	}

	if secret != "" {
		out = bytes.ReplaceAll(out, []byte(secret), []byte(redacted))
	}

	if len(out) > maxErrorBody {
		out = out[:maxErrorBody]
	}

	return out
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}

	return strings.ReplaceAll(s, secret, redacted)
}
