package handler_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/orbitview/internal/handler"
	"github.com/angeloszaimis/orbitview/internal/metrics"
	"github.com/angeloszaimis/orbitview/internal/pages"
)

type failingRenderer struct{}

func (failingRenderer) Render(w http.ResponseWriter, status int, name string) error {
	return errors.New("template exploded")
}

// disconnectedRenderer sends the header and then fails the body write, the
// way pages.Engine does when the client is gone.
type disconnectedRenderer struct{}

func (disconnectedRenderer) Render(w http.ResponseWriter, status int, name string) error {
	w.WriteHeader(status)
	return fmt.Errorf("%w %s: %w", pages.ErrWrite, name, errors.New("broken pipe"))
}

var _ = Describe("Router", func() {
	var (
		engine *pages.Engine
		router chi.Router
		log    *slog.Logger
	)

	BeforeEach(func() {
		log = slog.New(slog.DiscardHandler)

		var err error
		engine, err = pages.New(pages.Site{
			Title:             "Orbit View",
			AssetsBaseURL:     "/static/assets/",
			EarthTextureURL:   "https://cdn.example.com/earth.jpg",
			SatellitesDataURL: "/static/data/satellites.json",
		})
		Expect(err).NotTo(HaveOccurred())

		router = handler.NewRouter(log, engine, handler.Options{Static: engine.Static()})
	})

	do := func(method, path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w
	}

	Describe("page routes", func() {
		DescribeTable("renders the page with 200",
			func(path, marker string) {
				w := do(http.MethodGet, path)

				Expect(w.Code).To(Equal(http.StatusOK))
				Expect(w.Header().Get("Content-Type")).To(HavePrefix("text/html"))
				Expect(w.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
				Expect(w.Body.String()).To(ContainSubstring(marker))
			},
			Entry("home", "/", `class="hero"`),
			Entry("simulation", "/simulation", "window.APP_CONFIG"),
			Entry("instructions", "/instructions", "<h1>Instructions</h1>"),
			Entry("models", "/models", `id="modelsGrid"`),
		)

		It("returns the same status on repeated requests", func() {
			first := do(http.MethodGet, "/simulation")
			second := do(http.MethodGet, "/simulation")

			Expect(first.Code).To(Equal(http.StatusOK))
			Expect(second.Code).To(Equal(first.Code))
			Expect(second.Body.String()).To(Equal(first.Body.String()))
		})

		It("matches percent-encoded paths after decoding", func() {
			Expect(do(http.MethodGet, "/%6Dodels").Code).To(Equal(http.StatusOK))
			Expect(do(http.MethodGet, "/static/js/%6Dain.js").Code).To(Equal(http.StatusOK))
			Expect(do(http.MethodGet, "/%6Eope").Code).To(Equal(http.StatusNotFound))
			Expect(do(http.MethodGet, "/static/%2E%2E/go.mod").Code).To(Equal(http.StatusNotFound))
		})

		It("is not affected by earlier unmatched requests", func() {
			Expect(do(http.MethodGet, "/nonexistent").Code).To(Equal(http.StatusNotFound))
			Expect(do(http.MethodGet, "/models").Code).To(Equal(http.StatusOK))
		})
	})

	Describe("unmatched requests", func() {
		DescribeTable("render the 404 page with 404",
			func(method, path string) {
				w := do(method, path)

				Expect(w.Code).To(Equal(http.StatusNotFound))
				Expect(w.Header().Get("Content-Type")).To(HavePrefix("text/html"))
				Expect(w.Body.String()).To(ContainSubstring("<h1>404</h1>"))
			},
			Entry("unknown path", http.MethodGet, "/nonexistent"),
			Entry("trailing slash", http.MethodGet, "/models/"),
			Entry("nested path", http.MethodGet, "/simulation/extra"),
			Entry("POST on a page", http.MethodPost, "/"),
			Entry("DELETE on a page", http.MethodDelete, "/models"),
			Entry("HEAD on a page", http.MethodHead, "/instructions"),
			Entry("missing asset", http.MethodGet, "/static/js/nope.js"),
			Entry("unused viewer script", http.MethodGet, "/static/js/modelviewer.js"),
			Entry("asset directory", http.MethodGet, "/static/js"),
			Entry("asset root", http.MethodGet, "/static/"),
			Entry("disabled health endpoint", http.MethodGet, "/health"),
			Entry("disabled metrics endpoint", http.MethodGet, "/metrics"),
		)

		It("ignores query strings", func() {
			Expect(do(http.MethodGet, "/models?filter=satellite").Code).To(Equal(http.StatusOK))
			Expect(do(http.MethodGet, "/nope?x=1").Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("static assets", func() {
		It("serves embedded JavaScript", func() {
			w := do(http.MethodGet, "/static/js/main.js")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(ContainSubstring("javascript"))
			Expect(w.Body.String()).To(ContainSubstring("APP_CONFIG"))
		})

		It("serves the satellite data", func() {
			w := do(http.MethodGet, "/static/data/satellites.json")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(HavePrefix("application/json"))
		})

		It("rejects path traversal", func() {
			Expect(do(http.MethodGet, "/static/../go.mod").Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("render failures", func() {
		It("answers with 500", func() {
			router = handler.NewRouter(log, failingRenderer{}, handler.Options{})
			w := do(http.MethodGet, "/")

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(strings.TrimSpace(w.Body.String())).To(Equal("internal server error"))
		})

		It("does not answer again when the body write fails", func() {
			var logs bytes.Buffer
			log = slog.New(slog.NewTextHandler(&logs, nil))
			router = handler.NewRouter(log, disconnectedRenderer{}, handler.Options{})

			w := do(http.MethodGet, "/models")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).NotTo(ContainSubstring("internal server error"))
			Expect(logs.String()).To(ContainSubstring("Failed to write page"))
			Expect(logs.String()).NotTo(ContainSubstring("Failed to render page"))
		})
	})

	Describe("optional endpoints", func() {
		var (
			collector *metrics.Collector
			ctx       context.Context
			cancel    context.CancelFunc
		)

		BeforeEach(func() {
			ctx, cancel = context.WithCancel(context.Background())
			collector = metrics.NewCollector(100, log)
			collector.Start(ctx)

			health := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			router = handler.NewRouter(log, engine, handler.Options{
				Static:  engine.Static(),
				Metrics: collector,
				Health:  health,
			})
		})

		AfterEach(func() {
			cancel()
		})

		It("serves the health endpoint", func() {
			Expect(do(http.MethodGet, "/health").Code).To(Equal(http.StatusOK))
		})

		It("records requests per route pattern", func() {
			do(http.MethodGet, "/models")
			do(http.MethodGet, "/models")
			do(http.MethodGet, "/missing")
			do(http.MethodPost, "/models")
			do(http.MethodGet, "/static/css/style.css")

			Eventually(func() int64 { return collector.Snapshot().TotalRequests }).Should(Equal(int64(5)))

			snap := collector.Snapshot()
			Expect(snap.Routes["/models"].Requests).To(Equal(int64(2)))
			Expect(snap.Routes["/models"].StatusCodes[http.StatusOK]).To(Equal(int64(2)))
			Expect(snap.Routes[metrics.RouteNotFound].Requests).To(Equal(int64(2)))
			Expect(snap.Routes[metrics.RouteNotFound].StatusCodes[http.StatusNotFound]).To(Equal(int64(2)))
			Expect(snap.Routes["/static/*"].Requests).To(Equal(int64(1)))
		})

		It("serves the metrics snapshot", func() {
			do(http.MethodGet, "/")
			Eventually(func() int64 { return collector.Snapshot().TotalRequests }).Should(Equal(int64(1)))

			w := do(http.MethodGet, "/metrics")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring(`"total_requests"`))
		})
	})
})
