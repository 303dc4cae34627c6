package types

import (
	"context"
	"time"
)

// LoadSource supplies measured throughput for an exporter series.
//
// Implementations return 0 when the backend has no matching series and wrap
// ErrTelemetryUnavailable when the backend cannot be reached. The engine never
// calls a LoadSource directly.
type LoadSource interface {
	// FetchRateMbps returns the rate of the device on instance averaged over window.
	FetchRateMbps(ctx context.Context, instance, device string, window time.Duration) (float64, error)
}

// ClientSource discovers the clients that take part in a pass.
type ClientSource interface {
	// ListClients returns the clients ready for assignment.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//
	// Returns:
	//   - []Client: Clients of the pass (bindings may be unset)
	//   - error: Discovery error (nil on success)
	ListClients(ctx context.Context) ([]Client, error)
}

// DemandResolver turns raw telemetry into resolved engine inputs.
//
// Resolvers must hand back fully resolved values. Collaborator failures are
// replaced by a documented default and never surface as unresolved demand.
type DemandResolver interface {
	// ResolveClients returns a copy of clients with Demand resolved.
	ResolveClients(ctx context.Context, clients []Client) ([]Client, error)

	// ResolveGateways returns a copy of gateways with BackgroundLoadMbps refreshed.
	ResolveGateways(ctx context.Context, gateways []Gateway) ([]Gateway, error)
}

// BindingPublisher exports the binding set of a pass to downstream readers.
type BindingPublisher interface {
	// Publish stores the bindings of clients.
	//
	// Returns:
	//   - bool: true if anything was written, false if the set was unchanged
	//   - error: Publication error
	Publish(ctx context.Context, clients []Client) (bool, error)
}

// RuleProgrammer realises bindings as forwarding rules.
type RuleProgrammer interface {
	// Apply installs or updates rules so that next is in effect.
	// previous is the binding set that was last applied.
	Apply(ctx context.Context, previous, next []Client) error
}

// MatchKey is one match field of a switch table entry.
type MatchKey struct {
	Name  string `json:"name"`
	Value uint64 `json:"value"`
}

// DataField is one action parameter of a switch table entry.
type DataField struct {
	Name  string `json:"name"`
	Value uint64 `json:"value"`
}

// TableEntry is a switch table record.
type TableEntry struct {
	Table  string      `json:"table"`
	Keys   []MatchKey  `json:"keys"`
	Action string      `json:"action,omitempty"`
	Data   []DataField `json:"data"`
}

// SwitchConfigClient programs table entries on a switch.
type SwitchConfigClient interface {
	// AddEntry installs a new table entry.
	AddEntry(ctx context.Context, entry TableEntry) error

	// ModifyEntry replaces the action data of an existing entry.
	ModifyEntry(ctx context.Context, entry TableEntry) error
}
