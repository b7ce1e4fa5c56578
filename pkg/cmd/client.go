package cmd

import (
	"context"
	"log/slog"
	"net/http"

	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dukex/operion-drivelock/pkg/drivelock/client"
	"github.com/dukex/operion-drivelock/pkg/log"
	"github.com/dukex/operion-drivelock/pkg/otelhelper"
	"github.com/dukex/operion-drivelock/pkg/registry"
)

// Credentials returns the credentials given by the common flags.
func Credentials(command *cli.Command) client.StaticCredentials {
	return client.StaticCredentials{
		APIKey:  command.String("api-key"),
		BaseURL: command.String("base-url"),
	}
}

// ClientOptions returns the client options given by the common flags.
func ClientOptions(command *cli.Command) []client.Option {
	return []client.Option{
		client.WithHTTPClient(&http.Client{
			Timeout:   command.Duration("timeout"),
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}),
	}
}

// NewClient returns a DriveLock client configured by the common flags.
func NewClient(command *cli.Command) *client.Client {
	return client.New(Credentials(command), ClientOptions(command)...)
}

func NewRegistry(command *cli.Command, logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultNodes(Credentials(command), ClientOptions(command)...)

	return reg
}

// Setup configures logging and, when enabled, tracing. The returned function
// flushes pending spans.
func Setup(ctx context.Context, command *cli.Command, service string) (func(), error) {
	log.Setup(command.String("log-level"), command.String("log-format"))

	if !command.Bool("tracing") {
		return func() {}, nil
	}

	shutdown, err := otelhelper.Setup(ctx, service)
	if err != nil {
		return nil, err
	}

	return func() {
		if err := shutdown(context.Background()); err != nil {
			log.WithModule("tracing").Error("Failed to shutdown tracer provider", "error", err)
		}
	}, nil
}
