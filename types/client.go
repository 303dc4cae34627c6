package types

import (
	"math"
	"net/netip"
)

// TrafficSource references the exporter series that carries an entity's traffic.
//
// The engine never reads it; it is consumed by the telemetry layer only.
type TrafficSource struct {
	// Instance is the exporter host (e.g., "192.168.132.48").
	Instance string `json:"instance" yaml:"instance"`

	// Device is the network interface on that host (e.g., "uesimtun0").
	Device string `json:"device" yaml:"device"`
}

// IsZero reports whether the source is unset.
func (s TrafficSource) IsZero() bool {
	return s.Instance == "" && s.Device == ""
}

// Demand is an expected bandwidth reading that may not have been resolved yet.
//
// A zero Demand is unresolved. The assignment policies refuse unresolved
// demand; callers resolve it through a DemandResolver or with KnownDemand.
type Demand struct {
	// Mbps is the expected bandwidth in megabits per second.
	Mbps float64 `json:"mbps"`

	// Resolved is true once Mbps holds a defined value.
	Resolved bool `json:"resolved"`
}

// KnownDemand returns a resolved demand of mbps.
func KnownDemand(mbps float64) Demand {
	return Demand{Mbps: mbps, Resolved: true}
}

// Valid reports whether the demand is resolved and finite.
func (d Demand) Valid() bool {
	return d.Resolved && !math.IsNaN(d.Mbps) && !math.IsInf(d.Mbps, 0)
}

// Effective returns the capacity consumed by this demand.
// Negative or zero demand is trivially satisfiable and consumes nothing.
func (d Demand) Effective() float64 {
	if d.Mbps <= 0 {
		return 0
	}

	return d.Mbps
}

// Client is a UE session whose traffic must be routed through a gateway.
//
// Clients are values. The assignment policies copy them and return a new
// slice; the caller's slice is never modified.
type Client struct {
	// TEID is the GTP tunnel endpoint identifier. Zero means not yet discovered.
	TEID uint32 `json:"teid"`

	// Address is the UE IPv4 address and the client's identity within a pass.
	Address netip.Addr `json:"address"`

	// Source locates the UE's traffic series for telemetry.
	Source TrafficSource `json:"source"`

	// Demand is the expected bandwidth for the current pass.
	Demand Demand `json:"demand"`

	// Gateway is the current binding. Empty means unbound.
	Gateway GatewayID `json:"gateway,omitempty"`
}

// IsBound reports whether the client currently has a gateway binding.
func (c Client) IsBound() bool {
	return c.Gateway != ""
}

// Key returns the identity used to match clients across passes.
func (c Client) Key() string {
	return c.Address.String()
}

// CloneClients returns a shallow copy of clients.
func CloneClients(clients []Client) []Client {
	if clients == nil {
		return nil
	}
	out := make([]Client, len(clients))
	copy(out, clients)

	return out
}
