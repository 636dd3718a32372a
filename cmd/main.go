package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/angeloszaimis/orbitview/config"
	"github.com/angeloszaimis/orbitview/internal/healthcheck"
	"github.com/angeloszaimis/orbitview/internal/httpserver"
	"github.com/angeloszaimis/orbitview/internal/metrics"
	"github.com/angeloszaimis/orbitview/internal/pages"
	"github.com/angeloszaimis/orbitview/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	engine, err := pages.New(siteFromConfig(cfg))
	if err != nil {
		log.Error("Failed to load pages", slog.Any("err", err))
		os.Exit(1)
	}

	// The collector outlives ctx so requests finishing during Shutdown are
	// still counted.
	metricsCtx, stopMetrics := context.WithCancel(context.Background())
	defer stopMetrics()

	collector, checker := startBackground(ctx, metricsCtx, cfg, log, engine)

	srv, err := httpserver.New(
		cfg.Server.Address,
		setupRouter(log, engine, collector, checker),
		httpserver.WithTimeouts(cfg.ServerTimeouts()),
	)
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	ln, err := srv.Listen()
	if err != nil {
		log.Error("Failed to listen", slog.String("address", srv.Addr()), slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		log.Info("Listening", slog.String("address", ln.Addr().String()))
		srvErrCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
		flushMetrics(stopMetrics, collector, log)
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting server", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func siteFromConfig(cfg *config.Config) pages.Site {
	return pages.Site{
		Title:             cfg.Site.Title,
		AssetsBaseURL:     cfg.Site.AssetsBaseURL,
		EarthTextureURL:   cfg.Site.EarthTextureURL,
		SatellitesDataURL: cfg.Site.SatellitesDataURL,
	}
}

// startBackground starts the metrics collector (bound to metricsCtx) and the
// health checker (bound to ctx) when they are enabled. Disabled components
// come back nil.
func startBackground(ctx, metricsCtx context.Context, cfg *config.Config, log *slog.Logger, engine *pages.Engine) (*metrics.Collector, *healthcheck.Checker) {
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.BufferSize, log)
		collector.Start(metricsCtx)
	}

	var checker *healthcheck.Checker
	if cfg.Health.Enabled {
		checker = healthcheck.New(engine, pages.Names(), log)
		go checker.Run(ctx, cfg.HealthInterval())
	}

	return collector, checker
}

// flushMetrics stops the collector, waits for it to drain and logs the final
// snapshot. Call it after the server has shut down.
func flushMetrics(stop context.CancelFunc, collector *metrics.Collector, log *slog.Logger) {
	if collector == nil {
		return
	}

	stop()
	<-collector.Done()

	snap := collector.Snapshot()
	log.Info("Final metrics",
		slog.Int64("total_requests", snap.TotalRequests),
		slog.Duration("uptime", snap.Uptime),
		slog.Any("routes", snap.Routes))
}
