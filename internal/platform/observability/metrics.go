package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the exchange collectors on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	exchanges       *prometheus.CounterVec
	exchangeHops    prometheus.Histogram
	exchangeLatency *prometheus.HistogramVec
	activeExchanges prometheus.Gauge
	tokens          *prometheus.CounterVec
	toolCalls       *prometheus.CounterVec
	toolLatency     *prometheus.HistogramVec
	providerLatency *prometheus.HistogramVec
	breakerState    *prometheus.GaugeVec
	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
	wsSessions      prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		exchanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "socialhub_exchanges_total",
			Help: "Exchanges processed, by provider and outcome",
		}, []string{"provider", "outcome"}),
		exchangeHops: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "socialhub_exchange_hops",
			Help:    "Model calls per exchange",
			Buckets: []float64{1, 2, 3, 4, 5, 7, 10},
		}),
		exchangeLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "socialhub_exchange_duration_seconds",
			Help:    "Wall time of one exchange",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 60, 120},
		}, []string{"provider"}),
		activeExchanges: f.NewGauge(prometheus.GaugeOpts{
			Name: "socialhub_active_exchanges",
			Help: "Exchanges currently running",
		}),
		tokens: f.NewCounterVec(prometheus.CounterOpts{
			Name: "socialhub_tokens_total",
			Help: "Tokens consumed, by provider and direction",
		}, []string{"provider", "direction"}),
		toolCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "socialhub_tool_calls_total",
			Help: "Tool calls dispatched, by tool and status",
		}, []string{"tool", "status"}),
		toolLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "socialhub_tool_latency_seconds",
			Help:    "Tool handler latency",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15},
		}, []string{"tool"}),
		providerLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "socialhub_provider_latency_seconds",
			Help:    "Latency of one model call",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"provider"}),
		breakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "socialhub_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"provider"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "socialhub_http_requests_total",
			Help: "HTTP requests, by method, route and status",
		}, []string{"method", "path", "status"}),
		httpLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "socialhub_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		wsSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "socialhub_websocket_sessions",
			Help: "Open websocket conversation sessions",
		}),
	}
}

// ExchangeStarted increments the active gauge and returns the matching decrement.
func (m *Metrics) ExchangeStarted() func() {
	if m == nil {
		return func() {}
	}
	m.activeExchanges.Inc()
	return m.activeExchanges.Dec
}

// RecordExchange records the outcome of one exchange ("completed", "hop_limit",
// "timeout", "failed").
func (m *Metrics) RecordExchange(provider, outcome string, hops int, elapsed time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.exchanges.WithLabelValues(provider, outcome).Inc()
	m.exchangeHops.Observe(float64(hops))
	m.exchangeLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
	m.tokens.WithLabelValues(provider, "input").Add(float64(inputTokens))
	m.tokens.WithLabelValues(provider, "output").Add(float64(outputTokens))
}

func (m *Metrics) RecordToolCall(tool string, ok bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, strconv.FormatBool(ok)).Inc()
	m.toolLatency.WithLabelValues(tool).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordProviderCall(provider string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.providerLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func (m *Metrics) SetBreakerState(provider string, state int) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(provider).Set(float64(state))
}

func (m *Metrics) RecordHTTPRequest(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func (m *Metrics) SetWebsocketSessions(n int) {
	if m == nil {
		return
	}
	m.wsSessions.Set(float64(n))
}

// Registry exposes the underlying registry for scraping and tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
