package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/amaumene/mona/internal/config"
	"github.com/amaumene/mona/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "mona",
		Short:         "Redirects artwork requests to the best matching TVDB image",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("log-level", "", "log level (overrides LOG_LEVEL)")
	flags.String("log-format", "", "log format, text or json (overrides LOG_FORMAT)")
	bindFlag(flags, "LOG_LEVEL", "log-level")
	bindFlag(flags, "LOG_FORMAT", "log-format")

	root.AddCommand(newServeCommand(), newResolveCommand())
	return root
}

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP redirect service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}

	cmd.Flags().String("port", "", "listen port (overrides SERVER_PORT)")
	bindFlag(cmd.Flags(), "SERVER_PORT", "port")

	return cmd
}

// bindFlag lets an explicitly set flag win over the environment
func bindFlag(flags *pflag.FlagSet, key, name string) {
	if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
		panic(err)
	}
}

func run(ctx context.Context) error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger
	logger := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting Mona")
	logger.WithFields(logrus.Fields{
		"cache_backend":   cfg.CacheBackend,
		"redirect_status": cfg.RedirectStatus,
	}).Info("Configuration loaded")

	// 3. Setup tracing
	tp := newTracerProvider()
	defer shutdownTracer(tp, logger)

	// 4. Initialize components
	app, cleanup, err := initializeApp(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer cleanup()
	logger.Info("Components initialized")

	// 5. Initialize scheduler
	if err := app.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer app.scheduler.Stop()

	// 6. Start HTTP server
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start returns once the listener fails or ctx is canceled and shutdown completed
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- app.server.Start(ctx)
	}()

	// 7. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Mona is running")

	select {
	case err := <-serverDone:
		if err != nil {
			return err
		}
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := <-serverDone; err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
	}

	logger.Info("Mona stopped")
	return nil
}

// tracerShutdowner is the part of the tracer provider stopped on exit
type tracerShutdowner interface {
	Shutdown(ctx context.Context) error
}

// shutdownTracer flushes pending spans; a failure is logged since exit proceeds anyway
func shutdownTracer(tp tracerShutdowner, logger *logrus.Logger) {
	if err := tp.Shutdown(context.Background()); err != nil {
		logger.WithError(err).Warn("Failed to shut down tracer provider")
	}
}

// newTracerProvider installs the global tracer provider. Spans carry the trace ids
// that request logs are correlated with.
func newTracerProvider() *sdktrace.TracerProvider {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", "mona"))),
	)
	otel.SetTracerProvider(tp)
	return tp
}
