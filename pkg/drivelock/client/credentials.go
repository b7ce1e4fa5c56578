package client

import (
	"context"
	"log/slog"
	"strings"
)

// DefaultBaseURL is used when credentials carry no base URL.
const DefaultBaseURL = "https://api.drivelock.cloud"

// Environments maps the short environment names to their API base URLs.
var Environments = map[string]string{
	"api":   "https://api.drivelock.cloud",
	"alpha": "https://alpha.drivelock.cloud",
	"dev":   "https://dev.drivelock.cloud",
}

const redacted = "[REDACTED]"

// Credentials authenticate against the DriveLock administration API.
type Credentials struct {
	APIKey  string `json:"api_key"            validate:"required"`
	BaseURL string `json:"base_url,omitempty"`
}

// String never prints the API key.
func (c Credentials) String() string {
	return "Credentials{BaseURL: " + c.BaseURL + ", APIKey: " + redacted + "}"
}

// GoString keeps %#v from printing the API key.
func (c Credentials) GoString() string {
	return c.String()
}

// LogValue keeps slog from printing the API key.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("base_url", c.BaseURL),
		slog.String("api_key", redacted),
	)
}

// CredentialsProvider supplies credentials for every request. Implementations
// are called once per logical request, never per retry.
type CredentialsProvider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// StaticCredentials is a CredentialsProvider returning fixed credentials.
type StaticCredentials Credentials

func (s StaticCredentials) Credentials(context.Context) (Credentials, error) {
	return Credentials(s), nil
}

// CredentialsFunc adapts a function to CredentialsProvider.
type CredentialsFunc func(ctx context.Context) (Credentials, error)

func (f CredentialsFunc) Credentials(ctx context.Context) (Credentials, error) {
	return f(ctx)
}

// ResolveBaseURL accepts an environment name, a host or a full URL and
// returns a scheme-qualified base URL without trailing slash.
func ResolveBaseURL(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultBaseURL
	}

	if env, ok := Environments[strings.ToLower(value)]; ok {
		return env
	}

	if !strings.Contains(value, "://") {
		value = "https://" + value
	}

	return strings.TrimRight(value, "/")
}
