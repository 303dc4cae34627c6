package types

import "net/netip"

// Tunnel is one UE tunnel interface reported by a RAN.
type Tunnel struct {
	// Device is the tunnel interface name on the RAN host (e.g., "uesimtun0").
	Device string `json:"device"`

	// Address is the UE address assigned to the tunnel.
	Address netip.Addr `json:"address"`
}
