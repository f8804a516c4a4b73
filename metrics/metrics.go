package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/b13-niass/esign/auth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultTimeout = "timeout"
)

// Metrics holds the client-side Prometheus metrics. It implements
// auth.Observer so a Coordinator can report refresh and replay events.
type Metrics struct {
	// Token refresh metrics
	RefreshAttempts *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	RefreshInFlight prometheus.Gauge

	// Queue and replay metrics
	QueuedRequests prometheus.Counter
	Replays        *prometheus.CounterVec

	// Outgoing HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

var _ auth.Observer = (*Metrics)(nil)

// NewMetrics creates a Metrics instance with all metrics registered on registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		RefreshAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esign_token_refresh_total",
				Help: "Total number of access token refresh calls",
			},
			[]string{"result"},
		),
		RefreshDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "esign_token_refresh_duration_seconds",
				Help:    "Token refresh call duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		RefreshInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "esign_token_refresh_in_flight",
				Help: "Whether a token refresh call is in flight",
			},
		),
		QueuedRequests: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "esign_requests_queued_total",
				Help: "Total number of requests queued behind an in-flight refresh",
			},
		),
		Replays: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esign_requests_replayed_total",
				Help: "Total number of requests replayed after a refresh",
			},
			[]string{"result"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esign_http_requests_total",
				Help: "Total number of HTTP requests sent to the backend",
			},
			[]string{"code", "method"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "esign_http_request_duration_seconds",
				Help:    "Backend HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
}

func (m *Metrics) RefreshStarted() {
	m.RefreshInFlight.Set(1)
}

func (m *Metrics) RefreshCompleted(err error, elapsed time.Duration) {
	m.RefreshInFlight.Set(0)
	m.RefreshDuration.Observe(elapsed.Seconds())
	m.RefreshAttempts.WithLabelValues(refreshResult(err)).Inc()
}

func (m *Metrics) RequestQueued() {
	m.QueuedRequests.Inc()
}

func (m *Metrics) RequestReplayed(err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	m.Replays.WithLabelValues(result).Inc()
}

// InstrumentRoundTripper counts and times the requests sent through next.
func (m *Metrics) InstrumentRoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperCounter(m.HTTPRequests,
		promhttp.InstrumentRoundTripperDuration(m.HTTPDuration, next))
}

func refreshResult(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, auth.ErrRefreshTimeout):
		return ResultTimeout
	default:
		return ResultFailure
	}
}
