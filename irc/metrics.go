// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package irc

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/boardirc/boardirc/irc/proto"
)

// Metrics holds the server's Prometheus collectors. Each server has its own
// registry, so several servers can coexist in one process (as in tests).
type Metrics struct {
	Registry *prometheus.Registry

	connections       prometheus.Counter
	rejected          prometheus.Counter
	sessionsActive    prometheus.Gauge
	handshakeFailures *prometheus.CounterVec
	parseErrors       *prometheus.CounterVec
	boardPosts        prometheus.Counter
	requestDuration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors. Channel and user counts are read from
// registry at scrape time.
func NewMetrics(registry *Registry) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	metrics := &Metrics{
		Registry: reg,
		connections: factory.NewCounter(prometheus.CounterOpts{
			Name: "boardirc_connections_total",
			Help: "Connections accepted",
		}),
		rejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "boardirc_connections_rejected_total",
			Help: "Connections refused because max-connections was reached",
		}),
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "boardirc_sessions_active",
			Help: "Sessions currently running",
		}),
		handshakeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "boardirc_handshake_failures_total",
			Help: "Sessions that ended before completing the handshake",
		}, []string{"reason"}),
		parseErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "boardirc_parse_errors_total",
			Help: "Lines dropped because they could not be parsed",
		}, []string{"kind"}),
		boardPosts: factory.NewCounter(prometheus.CounterOpts{
			Name: "boardirc_board_posts_total",
			Help: "Lines appended to message boards",
		}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "boardirc_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "code"}),
	}
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "boardirc_channels",
		Help: "Channels in the registry",
	}, func() float64 {
		channels, _ := registry.Counts()
		return float64(channels)
	})
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "boardirc_users",
		Help: "Users in the registry",
	}, func() float64 {
		_, users := registry.Counts()
		return float64(users)
	})
	return metrics
}

func (metrics *Metrics) handshakeFailed(err error) {
	var reason string
	switch {
	case errors.Is(err, ErrMissingUser):
		reason = "missing_user"
	case errors.Is(err, ErrDoSWarning):
		reason = "missing_pong"
	case isTimeout(err):
		reason = "timeout"
	default:
		reason = "disconnect"
	}
	metrics.handshakeFailures.WithLabelValues(reason).Inc()
}

func (metrics *Metrics) parseFailed(err error) {
	var kind string
	switch {
	case errors.Is(err, proto.ErrMissingArgument):
		kind = "missing_argument"
	case errors.Is(err, proto.ErrNoCommandFound):
		kind = "no_command"
	case errors.Is(err, proto.ErrEmptyString):
		kind = "empty"
	case errors.Is(err, proto.ErrPrefixOnly):
		kind = "prefix_only"
	case errors.Is(err, proto.ErrEncoding):
		kind = "encoding"
	default:
		kind = "other"
	}
	metrics.parseErrors.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (metrics *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Middleware records the latency of each API request.
func (metrics *Metrics) Middleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			metrics.requestDuration.WithLabelValues(r.Method, strconv.Itoa(recorder.status)).Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
