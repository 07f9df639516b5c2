package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/term"

	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
	"github.com/fivetwenty-io/flanks-go/pkg/flanksclient"
)

// logLevel maps --debug and --verbose to a slog level.
func logLevel() slog.Level {
	switch {
	case viper.GetBool("debug"):
		return slog.LevelDebug
	case viper.GetBool("verbose"):
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

// buildConfig assembles a flanks.Config from flags, FLANKS_* variables and the
// config file.
func buildConfig(cmd *cobra.Command) (*flanks.Config, error) {
	config := flanks.DefaultConfig()
	config.BaseURL = viper.GetString("base-url")
	config.ClientID = viper.GetString("client-id")
	config.ClientSecret = viper.GetString("client-secret")
	config.Timeout = viper.GetDuration("timeout")
	config.MaxRetries = viper.GetInt("max-retries")
	config.RetryNetworkErrors = viper.GetBool("retry-network-errors")
	config.Debug = viper.GetBool("debug")
	config.Logger = NewLogger(cmd.ErrOrStderr(), logLevel(), viper.GetBool("no-color"))

	if config.ClientID != "" && config.ClientSecret == "" {
		secret, err := promptSecret(cmd)
		if err != nil {
			return nil, err
		}

		config.ClientSecret = secret
	}

	return config, nil
}

// promptSecret reads the client secret from an interactive terminal. It returns
// an empty string when stdin is not a terminal.
func promptSecret(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec // file descriptors fit in int
	if !term.IsTerminal(fd) {
		return "", nil
	}

	_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Client secret: ")

	secret, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(cmd.ErrOrStderr())

	if err != nil {
		return "", fmt.Errorf("failed to read client secret: %w", err)
	}

	return string(secret), nil
}

// CreateClient builds an API client from the command's configuration. The
// returned cleanup closes the client and flushes any trace exporter.
func CreateClient(cmd *cobra.Command) (flanks.Client, func(), error) {
	config, err := buildConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	var tracerProvider *sdktrace.TracerProvider

	if viper.GetBool("trace") {
		exporter, err := stdouttrace.New(
			stdouttrace.WithWriter(cmd.ErrOrStderr()),
			stdouttrace.WithPrettyPrint(),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}

		tracerProvider = sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
		config.TracerProvider = tracerProvider
	}

	client, err := flanksclient.New(cmd.Context(), config)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = client.Close()

		if tracerProvider != nil {
			_ = tracerProvider.Shutdown(context.Background())
		}
	}

	return client, cleanup, nil
}
