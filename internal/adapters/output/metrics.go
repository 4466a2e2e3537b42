package output

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/trafficradar/internal/domain"
	"github.com/xoelrdgz/trafficradar/internal/ports"
)

var (
	_ ports.Notifier      = (*PrometheusMetrics)(nil)
	_ ports.PollObserver  = (*PrometheusMetrics)(nil)
	_ ports.StateObserver = (*PrometheusMetrics)(nil)
)

type PrometheusMetrics struct {
	pollCycles    *prometheus.CounterVec
	pollDuration  prometheus.Histogram
	totalPackets  prometheus.Gauge
	blockedIPs    prometheus.Gauge
	trackedIPs    prometheus.Gauge
	historyPoints prometheus.Gauge
	notifications *prometheus.CounterVec
	sniffing      prometheus.Gauge
	breakerState  *prometheus.GaugeVec

	registry *prometheus.Registry
	server   *http.Server
	mu       sync.Mutex
}

type MetricsConfig struct {
	Port string
	Path string

	// Health is mounted at /ready when set.
	Health http.Handler
}

func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Port: ":9090",
		Path: "/metrics",
	}
}

// NewPrometheusMetrics registers the collectors on reg. A nil reg gets a
// fresh registry, so several instances can coexist in tests.
func NewPrometheusMetrics(namespace string, reg *prometheus.Registry) *PrometheusMetrics {
	if namespace == "" {
		namespace = "trafficradar"
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	m := &PrometheusMetrics{registry: reg}

	m.pollCycles = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "poll_cycles_total",
		Help:      "Poll cycles by result (success, failure, stale)",
	}, []string{"result"})

	m.pollDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "poll_duration_seconds",
		Help:      "Time from cycle start until both fetches resolved",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
	})

	m.totalPackets = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "total_packets",
		Help:      "Sum of packet counts in the latest snapshot",
	})

	m.blockedIPs = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "blocked_ips",
		Help:      "Number of IPs blocked by the detection service",
	})

	m.trackedIPs = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tracked_ips",
		Help:      "Number of source IPs with a packet count",
	})

	m.historyPoints = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "history_points",
		Help:      "Number of points in the traffic history window",
	})

	m.notifications = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Notifications emitted by level and action",
	}, []string{"level", "action"})

	m.sniffing = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sniffing",
		Help:      "1 once packet sniffing has been started in this session",
	})

	m.breakerState = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_state",
		Help:      "Detection service circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})

	return m
}

func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *PrometheusMetrics) ObservePoll(result string, d time.Duration) {
	m.pollCycles.WithLabelValues(result).Inc()
	if result != "stale" {
		m.pollDuration.Observe(d.Seconds())
	}
}

func (m *PrometheusMetrics) OnSnapshot(s domain.Snapshot) {
	m.totalPackets.Set(float64(s.Total))
	m.blockedIPs.Set(float64(len(s.Blocked)))
	m.trackedIPs.Set(float64(len(s.Counts)))
	m.historyPoints.Set(float64(len(s.History)))
	if s.Sniffing {
		m.sniffing.Set(1)
	} else {
		m.sniffing.Set(0)
	}
}

func (m *PrometheusMetrics) OnNotification(n *domain.Notification) {
	m.notifications.WithLabelValues(string(n.Level), string(n.Action)).Inc()
	if n.Action == domain.ActionStartSniffing && n.Level == domain.NotificationSuccess {
		m.sniffing.Set(1)
	}
}

// SetBreakerState records a circuit breaker transition.
func (m *PrometheusMetrics) SetBreakerState(name, state string) {
	var v float64
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	m.breakerState.WithLabelValues(name).Set(v)
}

func (m *PrometheusMetrics) StartServer(config MetricsConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if config.Path == "" {
		config.Path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(config.Path, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	if config.Health != nil {
		mux.Handle("/ready", config.Health)
	}

	m.server = &http.Server{
		Addr:              config.Port,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", config.Port).Str("path", config.Path).Msg("Starting Prometheus metrics server")
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Metrics server error")
		}
	}()

	return nil
}

func (m *PrometheusMetrics) StopServer() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.server != nil {
		return m.server.Close()
	}
	return nil
}
