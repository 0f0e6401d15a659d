// Package metrics exposes Prometheus instrumentation at GET /metrics.
//
//	marquee_http_requests_total           counter by method/path/status
//	marquee_http_request_duration_seconds histogram by method/path
//	marquee_cache_lookups_total           counter by tier/result
//	marquee_upstream_requests_total       counter by provider/status
//	marquee_ws_clients                    gauge
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "marquee_http_requests_total",
	Help: "Total HTTP requests handled.",
}, []string{"method", "path", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "marquee_http_request_duration_seconds",
	Help:    "HTTP request latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "path"})

// CacheLookups counts response cache lookups. tier is memory or redis,
// result is hit or miss.
var CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "marquee_cache_lookups_total",
	Help: "Response cache lookups by tier and result.",
}, []string{"tier", "result"})

var UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "marquee_upstream_requests_total",
	Help: "Requests sent to metadata providers.",
}, []string{"provider", "status"})

var WSClients = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "marquee_ws_clients",
	Help: "Connected websocket clients.",
})

func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		path := PathLabel(r.URL.Path)
		HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(rw.status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Hijack hands the connection to the websocket upgrader, which asserts
// http.Hijacker directly.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("%T does not implement http.Hijacker", w.ResponseWriter)
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// PathLabel collapses numeric and uuid-looking segments to ":id" to keep
// label cardinality bounded.
func PathLabel(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if _, err := strconv.Atoi(p); err == nil || (len(p) == 36 && strings.Count(p, "-") == 4) {
			parts[i] = ":id"
		}
	}
	out := strings.Join(parts, "/")
	if len(out) > 64 {
		return out[:64] + "..."
	}
	return out
}
