package metrics_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/orbitview/internal/metrics"
)

var _ = Describe("Collector", func() {
	var (
		collector *metrics.Collector
		log       *slog.Logger
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		log = slog.New(slog.DiscardHandler)
		ctx, cancel = context.WithCancel(context.Background())
		collector = metrics.NewCollector(100, log)
	})

	AfterEach(func() {
		cancel()
	})

	requestsFor := func(route string) func() int64 {
		return func() int64 {
			return collector.Snapshot().Routes[route].Requests
		}
	}

	Describe("Start and event processing", func() {
		It("should process EventRequestReceived", func() {
			collector.Start(ctx)

			Expect(collector.Emit(metrics.MetricEvent{
				Type:      metrics.EventRequestReceived,
				Timestamp: time.Now(),
				Route:     "/models",
			})).To(BeTrue())

			Eventually(requestsFor("/models")).Should(Equal(int64(1)))
		})

		It("should process EventResponseCompleted", func() {
			collector.Start(ctx)

			Expect(collector.Emit(metrics.MetricEvent{
				Type:       metrics.EventResponseCompleted,
				Timestamp:  time.Now(),
				Route:      "/models",
				Duration:   100 * time.Millisecond,
				StatusCode: 200,
			})).To(BeTrue())

			Eventually(func() int64 {
				return collector.Snapshot().Routes["/models"].StatusCodes[200]
			}).Should(Equal(int64(1)))
			Expect(collector.Snapshot().Routes["/models"].AvgResponse).To(Equal(100 * time.Millisecond))
		})

		It("should ignore unknown event types", func() {
			collector.Start(ctx)

			Expect(collector.Emit(metrics.MetricEvent{Type: "bogus", Route: "/"})).To(BeTrue())
			Expect(collector.Emit(metrics.MetricEvent{Type: metrics.EventRequestReceived, Route: "/"})).To(BeTrue())

			Eventually(requestsFor("/")).Should(Equal(int64(1)))
		})

		It("should drain events on context cancellation", func() {
			for i := 0; i < 5; i++ {
				Expect(collector.Emit(metrics.MetricEvent{
					Type:  metrics.EventRequestReceived,
					Route: metrics.RouteNotFound,
				})).To(BeTrue())
			}

			cancel()
			collector.Start(ctx)
			Eventually(collector.Done()).Should(BeClosed())

			Expect(requestsFor(metrics.RouteNotFound)()).To(Equal(int64(5)))
		})
	})

	Describe("Emit", func() {
		It("should drop events when the buffer is full", func() {
			small := metrics.NewCollector(1, log)

			Expect(small.Emit(metrics.MetricEvent{Type: metrics.EventRequestReceived})).To(BeTrue())
			Expect(small.Emit(metrics.MetricEvent{Type: metrics.EventRequestReceived})).To(BeFalse())
		})
	})

	Describe("Handler", func() {
		It("should serve the snapshot as JSON", func() {
			collector.Start(ctx)
			collector.Emit(metrics.MetricEvent{Type: metrics.EventRequestReceived, Route: "/"})
			Eventually(requestsFor("/")).Should(Equal(int64(1)))

			w := httptest.NewRecorder()
			collector.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("application/json"))

			var snap metrics.Snapshot
			Expect(json.Unmarshal(w.Body.Bytes(), &snap)).To(Succeed())
			Expect(snap.TotalRequests).To(Equal(int64(1)))
			Expect(snap.Routes).To(HaveKey("/"))
		})
	})
})
