package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and safe for concurrent use.
// The interface composes smaller, domain-focused interfaces so that each
// component only depends on the metrics it records.
type MetricsCollector interface {
	PolicyMetrics
	TelemetryMetrics
	PublisherMetrics
	SwitchMetrics
	BalancerMetrics
}

// Assignment results recorded by PolicyMetrics.RecordAssignment.
const (
	// AssignmentFit marks a client placed within remaining headroom.
	AssignmentFit = "fit"

	// AssignmentOverflow marks a client placed by the over-subscription fallback.
	AssignmentOverflow = "overflow"

	// AssignmentKept marks a client whose existing binding was preserved.
	AssignmentKept = "kept"
)

// PolicyMetrics defines metrics for assignment passes.
type PolicyMetrics interface {
	// RecordAssignment records one client placement.
	//
	// Parameters:
	//   - policy: Policy name ("swap", "sticky")
	//   - gateway: Gateway the client was bound to
	//   - result: AssignmentFit, AssignmentOverflow or AssignmentKept
	RecordAssignment(policy, gateway, result string)

	// RecordPassDuration records the time taken by one assignment pass.
	//
	// Parameters:
	//   - policy: Policy name
	//   - duration: Time taken in seconds
	RecordPassDuration(policy string, duration float64)

	// RecordHeadroom sets the remaining headroom of a gateway after a pass (gauge metric).
	//
	// The value is the policy's own ledger: swap overflow placements are not
	// charged against it.
	RecordHeadroom(gateway string, mbps float64)
}

// TelemetryMetrics defines metrics for load source queries.
type TelemetryMetrics interface {
	// RecordTelemetryFetch records one load source query.
	//
	// Parameters:
	//   - success: true if the query returned a value
	//   - duration: Time taken in seconds
	RecordTelemetryFetch(success bool, duration float64)
}

// PublisherMetrics defines metrics for binding publication.
type PublisherMetrics interface {
	// RecordPublish records one publication attempt.
	//
	// Parameters:
	//   - result: "success", "failure" or "unchanged"
	RecordPublish(result string)
}

// SwitchMetrics defines metrics for forwarding rule programming.
type SwitchMetrics interface {
	// RecordSwitchEntry records one table entry operation.
	//
	// Parameters:
	//   - op: "add" or "modify"
	//   - success: true if the switch accepted the entry
	RecordSwitchEntry(op string, success bool)
}

// Rebalance outcomes recorded by BalancerMetrics.RecordRebalance.
const (
	// RebalanceSuccess marks a pass whose rules and publication all succeeded.
	RebalanceSuccess = "success"

	// RebalancePartial marks a pass that assigned clients but failed to
	// program or publish them.
	RebalancePartial = "partial"

	// RebalanceFailure marks a pass that produced no binding set.
	RebalanceFailure = "failure"
)

// BalancerMetrics defines metrics for complete rebalance passes.
type BalancerMetrics interface {
	// RecordRebalance records one rebalance pass.
	//
	// Parameters:
	//   - result: RebalanceSuccess, RebalancePartial or RebalanceFailure
	//   - duration: Time taken in seconds, including resolution and publication
	RecordRebalance(result string, duration float64)
}
