package types

import (
	"net/netip"
	"slices"
)

// Binding relates one client to the gateway that serves it.
type Binding struct {
	// Client is the UE address.
	Client netip.Addr `json:"client"`

	// TEID is the client's tunnel identifier at the time of the pass.
	TEID uint32 `json:"teid"`

	// Gateway is the serving gateway.
	Gateway GatewayID `json:"gateway"`

	// DemandMbps is the demand accounted for the client in the pass.
	DemandMbps float64 `json:"demandMbps"`
}

// BindingChange describes how one client's binding differs between two passes.
type BindingChange struct {
	Client   Client
	Previous GatewayID // empty when the client was unbound before
}

// BindingDiff is the result of comparing two binding sets.
type BindingDiff struct {
	// Added holds clients bound in next that were unbound or absent in previous.
	Added []BindingChange

	// Moved holds clients whose gateway changed.
	Moved []BindingChange

	// Unchanged holds clients with the same gateway in both sets.
	Unchanged []Client
}

// Bindings extracts the binding records of all bound clients, sorted by client address.
func Bindings(clients []Client) []Binding {
	out := make([]Binding, 0, len(clients))
	for _, c := range clients {
		if !c.IsBound() {
			continue
		}
		out = append(out, Binding{
			Client:     c.Address,
			TEID:       c.TEID,
			Gateway:    c.Gateway,
			DemandMbps: c.Demand.Mbps,
		})
	}

	slices.SortFunc(out, func(a, b Binding) int {
		return a.Client.Compare(b.Client)
	})

	return out
}

// GroupByGateway returns the clients bound to each gateway, in input order.
// Unbound clients are omitted.
func GroupByGateway(clients []Client) map[GatewayID][]Client {
	groups := make(map[GatewayID][]Client)
	for _, c := range clients {
		if !c.IsBound() {
			continue
		}
		groups[c.Gateway] = append(groups[c.Gateway], c)
	}

	return groups
}

// CarryBindings copies the gateway of each client in previous onto the client
// with the same address in clients. Clients that already carry a binding keep it.
//
// The result is a new slice; neither input is modified.
func CarryBindings(clients, previous []Client) []Client {
	prior := make(map[netip.Addr]GatewayID, len(previous))
	for _, p := range previous {
		if p.IsBound() {
			prior[p.Address] = p.Gateway
		}
	}

	out := CloneClients(clients)
	for i := range out {
		if out[i].IsBound() {
			continue
		}
		if gw, ok := prior[out[i].Address]; ok {
			out[i].Gateway = gw
		}
	}

	return out
}

// DiffBindings compares the bindings in previous with those in next.
// Only bound clients of next are classified.
func DiffBindings(previous, next []Client) BindingDiff {
	prior := make(map[netip.Addr]GatewayID, len(previous))
	for _, p := range previous {
		if p.IsBound() {
			prior[p.Address] = p.Gateway
		}
	}

	var diff BindingDiff
	for _, c := range next {
		if !c.IsBound() {
			continue
		}
		was, ok := prior[c.Address]
		switch {
		case !ok:
			diff.Added = append(diff.Added, BindingChange{Client: c})
		case was != c.Gateway:
			diff.Moved = append(diff.Moved, BindingChange{Client: c, Previous: was})
		default:
			diff.Unchanged = append(diff.Unchanged, c)
		}
	}

	return diff
}
