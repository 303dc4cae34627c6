package metrics

import (
	"sync"

	"github.com/c1ydehhx/upflb/types"
	"github.com/prometheus/client_golang/prometheus"
)

const defaultNamespace = "upflb"

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Collectors are created and registered lazily on first use, so constructing
// a PrometheusCollector that is never exercised leaves the registry untouched.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	// Policy metrics
	assignments  *prometheus.CounterVec
	passDuration *prometheus.HistogramVec
	headroom     *prometheus.GaugeVec

	// Telemetry metrics
	telemetryFetches  *prometheus.CounterVec
	telemetryDuration prometheus.Histogram

	// Publisher metrics
	publishResults *prometheus.CounterVec

	// Switch metrics
	switchEntries *prometheus.CounterVec

	// Balancer metrics
	rebalances        *prometheus.CounterVec
	rebalanceDuration prometheus.Histogram
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "upflb" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = defaultNamespace
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.assignments = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "policy",
			Name:      "assignments_total",
			Help:      "Total client placements by policy, gateway and result (fit,overflow,kept).",
		}, []string{"policy", "gateway", "result"})

		p.passDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "policy",
			Name:      "pass_duration_seconds",
			Help:      "Duration of assignment passes in seconds by policy.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8), // 100us .. ~1.6s
		}, []string{"policy"})

		p.headroom = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      "gateway_headroom_mbps",
			Help:      "Remaining gateway headroom in Mbps after the last pass (may be negative).",
		}, []string{"gateway"})

		p.telemetryFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "telemetry",
			Name:      "fetch_total",
			Help:      "Total load source queries by result (success,failure).",
		}, []string{"result"})

		p.telemetryDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "telemetry",
			Name:      "fetch_duration_seconds",
			Help:      "Latency of load source queries in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		})

		p.publishResults = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "publisher",
			Name:      "publish_total",
			Help:      "Total binding publications by result (success,failure,unchanged).",
		}, []string{"result"})

		p.switchEntries = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "switch",
			Name:      "entries_total",
			Help:      "Total switch table entry operations by op (add,modify) and result.",
		}, []string{"op", "result"})

		p.rebalances = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "balancer",
			Name:      "rebalance_total",
			Help:      "Total rebalance passes by result (success,partial,failure).",
		}, []string{"result"})

		p.rebalanceDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "balancer",
			Name:      "rebalance_duration_seconds",
			Help:      "Duration of rebalance passes in seconds, resolution and publication included.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8), // 1ms .. ~16s
		})

		p.reg.MustRegister(p.assignments)
		p.reg.MustRegister(p.passDuration)
		p.reg.MustRegister(p.headroom)
		p.reg.MustRegister(p.telemetryFetches)
		p.reg.MustRegister(p.telemetryDuration)
		p.reg.MustRegister(p.publishResults)
		p.reg.MustRegister(p.switchEntries)
		p.reg.MustRegister(p.rebalances)
		p.reg.MustRegister(p.rebalanceDuration)
	})
}

// PolicyMetrics implementation

// RecordAssignment increments the placement counter.
func (p *PrometheusCollector) RecordAssignment(policy, gateway, result string) {
	p.ensureRegistered()
	p.assignments.WithLabelValues(policy, gateway, result).Inc()
}

// RecordPassDuration observes the duration of one pass.
func (p *PrometheusCollector) RecordPassDuration(policy string, duration float64) {
	p.ensureRegistered()
	p.passDuration.WithLabelValues(policy).Observe(duration)
}

// RecordHeadroom sets the headroom gauge of a gateway.
func (p *PrometheusCollector) RecordHeadroom(gateway string, mbps float64) {
	p.ensureRegistered()
	p.headroom.WithLabelValues(gateway).Set(mbps)
}

// TelemetryMetrics implementation

// RecordTelemetryFetch counts one query and observes its latency.
func (p *PrometheusCollector) RecordTelemetryFetch(success bool, duration float64) {
	p.ensureRegistered()
	p.telemetryFetches.WithLabelValues(resultLabel(success)).Inc()
	p.telemetryDuration.Observe(duration)
}

// PublisherMetrics implementation

// RecordPublish counts one publication attempt.
func (p *PrometheusCollector) RecordPublish(result string) {
	p.ensureRegistered()
	p.publishResults.WithLabelValues(result).Inc()
}

// SwitchMetrics implementation

// RecordSwitchEntry counts one table entry operation.
func (p *PrometheusCollector) RecordSwitchEntry(op string, success bool) {
	p.ensureRegistered()
	p.switchEntries.WithLabelValues(op, resultLabel(success)).Inc()
}

// BalancerMetrics implementation

// RecordRebalance counts one pass and observes its duration.
func (p *PrometheusCollector) RecordRebalance(result string, duration float64) {
	p.ensureRegistered()
	p.rebalances.WithLabelValues(result).Inc()
	p.rebalanceDuration.Observe(duration)
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}

	return "failure"
}
