package types

import "errors"

// Sentinel errors shared across upflb packages.
//
// Callers check them with errors.Is. Components wrap them with context using
// fmt.Errorf("%s: %w", msg, err).

// Assignment errors - returned by the assignment policies and the capacity ledger.
var (
	// ErrNoGateways is returned when a pass is given no gateways.
	// The pass cannot produce a valid binding and is rejected as a configuration error.
	ErrNoGateways = errors.New("no gateways available for assignment")

	// ErrDuplicateGateway is returned when two gateways share an ID.
	ErrDuplicateGateway = errors.New("duplicate gateway ID")

	// ErrUnknownGateway is returned when a client is bound to a gateway that is not
	// part of the pass.
	ErrUnknownGateway = errors.New("client bound to unknown gateway")

	// ErrUnresolvedDemand is returned when a client's demand is missing, NaN or infinite.
	ErrUnresolvedDemand = errors.New("client demand is not resolved")
)

// Discovery errors - returned by client sources and the UE registry.
var (
	// ErrClientNotFound is returned when no client is registered for an address.
	ErrClientNotFound = errors.New("client not found")

	// ErrClientNotReady is returned when a client has no tunnel identifier yet.
	ErrClientNotReady = errors.New("client is not ready")
)

// Telemetry errors - returned by load sources.
var (
	// ErrTelemetryUnavailable is returned when the metrics backend cannot be queried.
	ErrTelemetryUnavailable = errors.New("telemetry backend unavailable")

	// ErrUnexpectedResult is returned when the metrics backend returns an unexpected value type.
	ErrUnexpectedResult = errors.New("unexpected telemetry result")
)
