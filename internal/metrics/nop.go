// Package metrics provides types.MetricsCollector implementations.
package metrics

import "github.com/c1ydehhx/upflb/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. It is the default collector of every upflb component.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
//
// Example:
//
//	sticky := policy.NewSticky(policy.WithMetrics(metrics.NewNop()))
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// PolicyMetrics implementation

// RecordAssignment discards the assignment metric.
func (n *NopMetrics) RecordAssignment(_ /* policy */, _ /* gateway */, _ /* result */ string) {
	// No-op
}

// RecordPassDuration discards the pass duration metric.
func (n *NopMetrics) RecordPassDuration(_ /* policy */ string, _ /* duration */ float64) {
	// No-op
}

// RecordHeadroom discards the headroom metric.
func (n *NopMetrics) RecordHeadroom(_ /* gateway */ string, _ /* mbps */ float64) {
	// No-op
}

// TelemetryMetrics implementation

// RecordTelemetryFetch discards the telemetry fetch metric.
func (n *NopMetrics) RecordTelemetryFetch(_ /* success */ bool, _ /* duration */ float64) {
	// No-op
}

// PublisherMetrics implementation

// RecordPublish discards the publish metric.
func (n *NopMetrics) RecordPublish(_ /* result */ string) {
	// No-op
}

// SwitchMetrics implementation

// RecordSwitchEntry discards the switch entry metric.
func (n *NopMetrics) RecordSwitchEntry(_ /* op */ string, _ /* success */ bool) {
	// No-op
}

// BalancerMetrics implementation

// RecordRebalance discards the rebalance metric.
func (n *NopMetrics) RecordRebalance(_ /* result */ string, _ /* duration */ float64) {
	// No-op
}
