package healthcheck

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Renderer is the part of the page engine the checker exercises.
type Renderer interface {
	RenderTo(w io.Writer, name string) error
}

// Checker renders every page on a timer and remembers whether the last
// round succeeded.
type Checker struct {
	renderer Renderer
	pages    []string
	logger   *slog.Logger
	healthy  atomic.Bool
	checked  atomic.Bool
}

func New(renderer Renderer, pages []string, logger *slog.Logger) *Checker {
	return &Checker{
		renderer: renderer,
		pages:    pages,
		logger:   logger,
	}
}

// Check renders all pages once and records the outcome. It returns true
// when every page rendered.
func (c *Checker) Check() bool {
	healthy := true
	for _, page := range c.pages {
		if err := c.renderer.RenderTo(io.Discard, page); err != nil {
			c.logger.Error("Page failed to render",
				slog.String("page", page),
				slog.Any("err", err))
			healthy = false
		}
	}

	previous := c.healthy.Swap(healthy)
	first := !c.checked.Swap(true)

	if first || previous != healthy {
		if healthy {
			c.logger.Info("Pages are rendering")
		} else {
			c.logger.Warn("Pages are failing to render")
		}
	}

	return healthy
}

// Run checks immediately and then every interval until ctx is cancelled.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	c.Check()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Health check stopped")
			return
		case <-ticker.C:
			c.Check()
		}
	}
}

// Healthy reports the result of the last check. It is false until the
// first check has run.
func (c *Checker) Healthy() bool {
	return c.healthy.Load()
}

type status struct {
	Status string `json:"status"`
}

func (c *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code, body := http.StatusOK, status{Status: "ok"}
	if !c.Healthy() {
		code, body = http.StatusServiceUnavailable, status{Status: "unavailable"}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
