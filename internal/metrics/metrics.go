package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carrypal",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "carrypal",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	claimTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carrypal",
			Subsystem: "claims",
			Name:      "transitions_total",
			Help:      "Claim status transitions committed.",
		},
		[]string{"from", "to"},
	)

	escrowCents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carrypal",
			Subsystem: "wallet",
			Name:      "movements_cents_total",
			Help:      "Wallet movements by kind, in cents.",
		},
		[]string{"kind"},
	)
)

func init() {
	Registry.MustRegister(httpRequests, httpDuration, claimTransitions, escrowCents)
}

// Handler exposes the registry for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency keyed by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func RecordClaimTransition(from, to string) {
	if from == "" {
		from = "none"
	}
	claimTransitions.WithLabelValues(from, to).Inc()
}

func RecordWalletMovement(kind string, cents int64) {
	if cents <= 0 {
		return
	}
	escrowCents.WithLabelValues(kind).Add(float64(cents))
}
