package types

import (
	"net"
	"net/netip"
)

// GatewayID identifies a UPF instance.
type GatewayID string

// String returns the identifier as a plain string.
func (id GatewayID) String() string {
	return string(id)
}

// Gateway is a user-plane gateway instance with finite outbound capacity.
type Gateway struct {
	// ID uniquely identifies the gateway within a pass.
	ID GatewayID `json:"id"`

	// Address is the gateway's N3 IPv4 address.
	Address netip.Addr `json:"address"`

	// MAC is the gateway's N3 hardware address, used when programming forwarding rules.
	MAC net.HardwareAddr `json:"mac,omitempty"`

	// OutputPort is the switch device port facing the gateway.
	OutputPort uint32 `json:"outputPort"`

	// MaxCapacityMbps is the static maximum outbound capacity.
	MaxCapacityMbps float64 `json:"maxCapacityMbps"`

	// BackgroundLoadMbps is load not attributable to managed clients.
	BackgroundLoadMbps float64 `json:"backgroundLoadMbps"`

	// Source optionally locates the gateway's N6 series for background load refresh.
	Source TrafficSource `json:"source"`
}

// Headroom returns capacity minus background load.
//
// The result is negative when background load exceeds capacity. That is an
// over-subscribed state, not an error.
func (g Gateway) Headroom() float64 {
	return g.MaxCapacityMbps - g.BackgroundLoadMbps
}

// CloneGateways returns a shallow copy of gateways.
func CloneGateways(gateways []Gateway) []Gateway {
	if gateways == nil {
		return nil
	}
	out := make([]Gateway, len(gateways))
	copy(out, gateways)

	return out
}
