package handler

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/angeloszaimis/orbitview/internal/metrics"
	"github.com/angeloszaimis/orbitview/internal/pages"
)

// Renderer writes a named page with a status code.
type Renderer interface {
	Render(w http.ResponseWriter, status int, name string) error
}

// Route maps a path to the page rendered for it.
type Route struct {
	Path string
	Page string
}

// Routes is the fixed page table. Everything else is answered by NotFound.
var Routes = []Route{
	{Path: "/", Page: pages.Index},
	{Path: "/simulation", Page: pages.Simulation},
	{Path: "/instructions", Page: pages.Instructions},
	{Path: "/models", Page: pages.Models},
}

// Options enables the optional parts of the router. Nil fields are off.
type Options struct {
	Static  fs.FS
	Metrics *metrics.Collector
	Health  http.Handler
}

type PageHandler struct {
	logger   *slog.Logger
	renderer Renderer
}

func NewPageHandler(logger *slog.Logger, renderer Renderer) *PageHandler {
	return &PageHandler{
		logger:   logger,
		renderer: renderer,
	}
}

// NewRouter builds the site router. Only GET is routed; any other method,
// like any unknown path, gets the rendered 404 page.
func NewRouter(logger *slog.Logger, renderer Renderer, opts Options) chi.Router {
	h := NewPageHandler(logger, renderer)

	r := chi.NewRouter()
	r.Use(DecodedPath)
	r.Use(middleware.RequestID)
	r.Use(Instrument(logger, opts.Metrics))
	r.Use(middleware.Recoverer)

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.NotFound)

	for _, route := range Routes {
		r.Get(route.Path, h.Page(route.Page))
	}

	if opts.Static != nil {
		r.Get("/static/*", h.Static(opts.Static))
	}
	if opts.Health != nil {
		r.Get("/health", opts.Health.ServeHTTP)
	}
	if opts.Metrics != nil {
		r.Get("/metrics", opts.Metrics.Handler())
	}

	return r
}

// Page returns a handler rendering the named page with status 200.
func (h *PageHandler) Page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, http.StatusOK, name)
	}
}

func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, pages.NotFound)
}

// Static serves files from assets. Missing files and directories fall
// through to NotFound so the error page stays consistent.
func (h *PageHandler) Static(assets fs.FS) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(chi.URLParam(r, "*"), "/")

		info, err := fs.Stat(assets, name)
		if name == "" || err != nil || info.IsDir() {
			h.NotFound(w, r)
			return
		}

		http.ServeFileFS(w, r, assets, name)
	}
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, name string) {
	err := h.renderer.Render(w, status, name)
	if err == nil {
		return
	}

	attrs := []any{
		slog.String("page", name),
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Any("err", err),
	}

	// The header is already out; only the log is left.
	if errors.Is(err, pages.ErrWrite) {
		h.logger.Warn("Failed to write page", attrs...)
		return
	}

	h.logger.Error("Failed to render page", attrs...)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
