package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "divvy_http_requests_total",
		Help: "HTTP requests by method and status code.",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "divvy_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	expensesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "divvy_expenses_created_total",
		Help: "Expenses accepted and persisted.",
	})

	paymentsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "divvy_payments_recorded_total",
		Help: "Settlement payments accepted and persisted.",
	})

	splitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "divvy_split_rejections_total",
		Help: "Expenses rejected because the shares did not satisfy the split rules.",
	})

	integrityFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "divvy_integrity_failures_total",
		Help: "Balance computations that produced a non-zero residual.",
	})

	balancesCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "divvy_balances_cache_hits_total",
		Help: "Balance responses served from the LRU cache.",
	})
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func instrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		requestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		requestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
