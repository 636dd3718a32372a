package main

import (
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/orbitview/internal/handler"
	"github.com/angeloszaimis/orbitview/internal/healthcheck"
	"github.com/angeloszaimis/orbitview/internal/metrics"
	"github.com/angeloszaimis/orbitview/internal/pages"
)

func setupRouter(log *slog.Logger, engine *pages.Engine, collector *metrics.Collector, checker *healthcheck.Checker) http.Handler {
	opts := handler.Options{
		Static:  engine.Static(),
		Metrics: collector,
	}

	// A nil *Checker stored in the interface would not compare equal to nil.
	if checker != nil {
		opts.Health = checker
	}

	return handler.NewRouter(log, engine, opts)
}
