package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"aicentral-hq/gateway/pkg/cli"
	"aicentral-hq/gateway/pkg/config"
	"aicentral-hq/gateway/pkg/pipelinefactory"
	"aicentral-hq/gateway/pkg/server"
	"aicentral-hq/gateway/pkg/telemetry"
	"aicentral-hq/gateway/pkg/telemetry/logging"
	"aicentral-hq/gateway/pkg/telemetry/metrics"
	"aicentral-hq/gateway/pkg/telemetry/tracing"
)

var serveFlags struct {
	listenAddress string
	logLevel      string
	watch         bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway server",
	Long: `Start the gateway with the specified configuration.

The server listens on the configured address, routes each request by its Host
header to a pipeline, and proxies it to the pipeline's endpoints.

Examples:
  # Start with default config
  aicentral serve

  # Start with custom config and secrets from a .env file
  aicentral serve --config /etc/aicentral/gateway.yaml --env-file /etc/aicentral/.env

  # Override listen address
  aicentral serve --listen 0.0.0.0:8080

  # Rebuild pipelines whenever the config file changes
  aicentral serve --watch`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVarP(&serveFlags.watch, "watch", "w", false, "reload pipelines when the config file changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError(cfgFile, err)
	}
	cfg := config.GetConfig()

	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	if serveFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = serveFlags.logLevel
	}

	logger, err := logging.New(logging.Config{
		Level:         cfg.Telemetry.Logging.Level,
		Format:        cfg.Telemetry.Logging.Format,
		AddSource:     cfg.Telemetry.Logging.AddSource,
		RedactSecrets: cfg.Telemetry.Logging.RedactSecrets,
	})
	if err != nil {
		return cli.NewConfigError(cfgFile, err)
	}
	slog.SetDefault(logger.Slog())

	out := cmd.OutOrStdout()
	printBanner(out, cfg)

	tracer, err := tracing.New(cfg.Telemetry.Tracing, tracing.Options{Version: Version})
	if err != nil {
		return cli.NewConfigError(cfgFile, fmt.Errorf("failed to initialize tracing: %w", err))
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
	rt, err := pipelinefactory.NewRuntime(cfg, pipelinefactory.Options{
		Sink: telemetry.Sinks{telemetry.NewLogSink(logger.Slog()), collector},
	})
	if err != nil {
		return cli.NewConfigError(cfgFile, err)
	}
	fmt.Fprintf(out, "✓ Pipelines built (%d pipelines, %d endpoints)\n",
		len(rt.Pipelines().Router().Pipelines()), len(rt.Current().Endpoints))

	var metricsHandler http.Handler
	if cfg.Telemetry.Metrics.Enabled {
		if err := collector.WatchEndpoints(rt); err != nil {
			return fmt.Errorf("failed to register endpoint metrics: %w", err)
		}
		metricsHandler = collector.Handler()
	}

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	if serveFlags.watch {
		watcher, err := config.NewWatcher(cfgFile, 0, logger.Slog())
		if err != nil {
			return cli.NewCommandError("serve", err)
		}
		go func() {
			if err := watcher.Watch(ctx, rt.Reload); err != nil {
				slog.Error("configuration watcher stopped", "error", err)
			}
		}()
		defer watcher.Stop()
		fmt.Fprintf(out, "✓ Watching %s for changes\n", cfgFile)
	}

	srv := server.NewServer(cfg.Server, server.Options{
		Pipelines:   rt.Pipelines(),
		Endpoints:   rt,
		Metrics:     metricsHandler,
		MetricsPath: cfg.Telemetry.Metrics.Path,
		Version:     Version,
		Commit:      GitCommit,
	})

	fmt.Fprintf(out, "✓ Listening on %s\n", cfg.Server.ListenAddress)
	fmt.Fprintf(out, "✓ Health endpoint: http://%s%s\n", cfg.Server.ListenAddress, server.ReadinessPath)
	if metricsHandler != nil {
		fmt.Fprintf(out, "✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}

	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}

func printBanner(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "AI Central v%s\n", Version)
	fmt.Fprintf(w, "Loading configuration from: %s\n", cfgFile)
	fmt.Fprintln(w, "✓ Configuration loaded")

	slog.Debug("configuration sections",
		"endpoints", len(cfg.Endpoints),
		"endpoint_selectors", len(cfg.EndpointSelectors),
		"auth_providers", len(cfg.AuthProviders),
		"generic_steps", len(cfg.GenericSteps),
		"pipelines", len(cfg.Pipelines),
	)
	if cfg.Telemetry.Tracing.Enabled {
		slog.Debug("tracing enabled",
			"exporter", cfg.Telemetry.Tracing.Exporter,
			"sampler", cfg.Telemetry.Tracing.Sampler,
		)
	}
}
