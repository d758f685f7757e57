// Command agent runs the sitepulse relay: it accepts analytics events over
// HTTP, batches them, and delivers the batches to a collection endpoint.
// It optionally polls a live metrics source and serves the latest snapshot.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"sitepulse/internal/config"
	hhttp "sitepulse/internal/handler/http"
	"sitepulse/internal/observability/logging"
	"sitepulse/internal/observability/tracing"
	pkgconfig "sitepulse/internal/pkg/config"
	"sitepulse/internal/usecase/livemetrics"
	"sitepulse/internal/usecase/track"
)

func main() {
	logger := logging.NewLogger()
	if os.Getenv("LOG_FORMAT") == "text" {
		logger = logging.NewTextLogger()
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("agent stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.LoadConfigFromEnv(logger, pkgconfig.NewConfigMetrics("agent"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	version := getVersion()

	shutdownTracing := tracing.InitProvider(cfg.TraceSampleRatio)

	app, err := newApp(cfg, version, logger)
	if err != nil {
		return err
	}

	logger.Info("agent starting",
		slog.String("version", version),
		slog.Int("port", cfg.Port),
		slog.Int("metrics_port", cfg.MetricsPort),
		slog.Bool("delivery_enabled", cfg.DeliveryEnabled()),
		slog.Bool("live_metrics_enabled", cfg.LiveMetricsEnabled()),
		slog.Duration("flush_interval", cfg.FlushInterval),
		slog.Int("max_batch_size", cfg.MaxBatchSize))

	if app.poller != nil {
		if err := app.poller.Start(); err != nil {
			return fmt.Errorf("start live metrics poller: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(app.server, "public") })
	g.Go(func() error { return serve(app.metricsServer, "metrics") })
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		err := app.shutdown(shutdownCtx)
		if tErr := shutdownTracing(shutdownCtx); tErr != nil {
			logger.Warn("tracer provider shutdown failed", slog.Any("error", tErr))
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("agent stopped")
	return nil
}

// app holds the wired components of a running agent.
type app struct {
	batcher       *track.Batcher
	poller        *livemetrics.Poller
	server        *http.Server
	metricsServer *http.Server
	logger        *slog.Logger
}

func newApp(cfg *config.AgentConfig, version string, logger *slog.Logger) (*app, error) {
	sender, breaker, err := newSender(cfg)
	if err != nil {
		return nil, fmt.Errorf("create sender: %w", err)
	}

	batcher, err := track.New(sender, trackConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("create batcher: %w", err)
	}

	var circuits []hhttp.Circuit
	if breaker != nil {
		circuits = append(circuits, breaker)
	}

	routes := hhttp.DefaultRouterConfig()
	routes.Batcher = batcher
	routes.Version = version
	routes.Logger = logger
	routes.CORS = hhttp.CORSConfig{AllowedOrigins: cfg.AllowedOrigins}

	var poller *livemetrics.Poller
	if cfg.LiveMetricsEnabled() {
		poller, err = livemetrics.NewPoller(liveMetricsConfig(cfg))
		if err != nil {
			batcher.Destroy()
			return nil, fmt.Errorf("create live metrics poller: %w", err)
		}
		routes.LiveMetrics = poller
		circuits = append(circuits, poller.Breaker())
	}
	routes.Circuits = circuits

	return &app{
		batcher:       batcher,
		poller:        poller,
		server:        newPublicServer(cfg.Port, hhttp.NewRouter(routes)),
		metricsServer: newMetricsServer(cfg.MetricsPort),
		logger:        logger,
	}, nil
}

// shutdown stops intake first, then the poller, then flushes the queue,
// and stops the metrics server last so the final flush is still scraped.
func (a *app) shutdown(ctx context.Context) error {
	var errs []error

	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("public server: %w", err))
	}
	if a.poller != nil {
		if err := a.poller.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("live metrics poller: %w", err))
		}
	}
	if err := a.batcher.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("batcher: %w", err))
	}
	if err := a.metricsServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("metrics server: %w", err))
	}

	if len(errs) > 0 {
		a.logger.Error("graceful shutdown incomplete", slog.Any("error", errors.Join(errs...)))
		return errors.Join(errs...)
	}
	a.logger.Info("graceful shutdown complete")
	return nil
}

func newPublicServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second, // Slowloris
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func serve(srv *http.Server, name string) error {
	slog.Info("server listening", slog.String("server", name), slog.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", name, err)
	}
	return nil
}

// getVersion returns the application version from environment or default.
func getVersion() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return version
}
