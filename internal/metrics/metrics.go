// Package metrics exposes Prometheus metrics for the chat relay.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chat_relay"

var latencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

var (
	// HTTPRequestsTotal counts relay responses by route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests served by the relay",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_latency_seconds",
			Help:      "End-to-end request latency in seconds",
			Buckets:   latencyBuckets,
		},
		[]string{"method", "route"},
	)

	// UpstreamRequestsTotal counts upstream completion calls by model and status.
	// Status is "none" when no response was received.
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Total upstream chat-completion calls",
		},
		[]string{"model", "status"},
	)

	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_latency_seconds",
			Help:      "Upstream chat-completion latency in seconds",
			Buckets:   latencyBuckets,
		},
		[]string{"model"},
	)

	// RelayErrors counts failed relay requests by error kind.
	RelayErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total relay errors by kind",
		},
		[]string{"kind"},
	)
)

// RecordUpstream records one upstream call under an already-bounded model
// label (see ModelLabeler). statusCode 0 means no response.
func RecordUpstream(modelLabel string, statusCode int, latency time.Duration) {
	if !utf8.ValidString(modelLabel) || modelLabel == "" {
		modelLabel = OtherLabel
	}
	status := "none"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	UpstreamRequestsTotal.WithLabelValues(modelLabel, status).Inc()
	UpstreamLatency.WithLabelValues(modelLabel).Observe(latency.Seconds())
}

func RecordError(kind string) {
	RelayErrors.WithLabelValues(kind).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and latency per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(recorder, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		method := methodLabel(r.Method)
		HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(recorder.statusCode)).Inc()
		HTTPRequestLatency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// OtherLabel stands in for any label value outside the bounded set.
const OtherLabel = "other"

// DefaultKnownModels are recorded under their own name; any other model
// the client asks for is counted as OtherLabel.
var DefaultKnownModels = []string{
	"gpt-3.5-turbo",
	"gpt-4",
	"gpt-4-turbo",
	"gpt-4o",
	"gpt-4o-mini",
}

// ModelLabeler maps client-chosen model names onto a fixed label set.
type ModelLabeler struct {
	known map[string]struct{}
}

func NewModelLabeler(models ...string) *ModelLabeler {
	l := &ModelLabeler{known: make(map[string]struct{}, len(models))}
	for _, m := range models {
		m = strings.TrimSpace(m)
		if m == "" || !utf8.ValidString(m) {
			continue
		}
		l.known[m] = struct{}{}
	}
	return l
}

func (l *ModelLabeler) Label(model string) string {
	if _, ok := l.known[strings.TrimSpace(model)]; ok {
		return strings.TrimSpace(model)
	}
	return OtherLabel
}

func methodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodOptions:
		return method
	default:
		return OtherLabel
	}
}
