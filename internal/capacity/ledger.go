// Package capacity tracks per-gateway headroom during a single assignment pass.
package capacity

import (
	"fmt"

	"github.com/c1ydehhx/upflb/types"
)

// Ledger holds the remaining headroom of every gateway in one pass.
//
// A Ledger starts from each gateway's static headroom (capacity minus
// background load) and is reduced as clients are placed. It belongs to a
// single pass and is never written back to the Gateway values.
//
// Ledger is not safe for concurrent use.
type Ledger struct {
	remaining map[types.GatewayID]float64
	order     []types.GatewayID
}

// NewLedger creates a ledger seeded with the headroom of gateways.
//
// Parameters:
//   - gateways: Gateways of the pass
//
// Returns:
//   - *Ledger: Ledger with one entry per gateway
//   - error: types.ErrNoGateways if gateways is empty, types.ErrDuplicateGateway on repeated IDs
func NewLedger(gateways []types.Gateway) (*Ledger, error) {
	if len(gateways) == 0 {
		return nil, types.ErrNoGateways
	}

	l := &Ledger{
		remaining: make(map[types.GatewayID]float64, len(gateways)),
		order:     make([]types.GatewayID, 0, len(gateways)),
	}
	for _, g := range gateways {
		if _, dup := l.remaining[g.ID]; dup {
			return nil, fmt.Errorf("gateway %q: %w", g.ID, types.ErrDuplicateGateway)
		}
		l.remaining[g.ID] = g.Headroom()
		l.order = append(l.order, g.ID)
	}

	return l, nil
}

// Has reports whether id is tracked by the ledger.
func (l *Ledger) Has(id types.GatewayID) bool {
	_, ok := l.remaining[id]
	return ok
}

// Remaining returns the headroom left on id. Unknown gateways report 0.
func (l *Ledger) Remaining(id types.GatewayID) float64 {
	return l.remaining[id]
}

// Deduct subtracts the effective demand from id's headroom.
// The result may go negative. Unknown gateways are ignored.
func (l *Ledger) Deduct(id types.GatewayID, demand types.Demand) {
	if _, ok := l.remaining[id]; !ok {
		return
	}
	l.remaining[id] -= demand.Effective()
}

// FirstFit returns the first gateway in order whose headroom covers demand.
//
// A non-positive demand is trivially satisfiable and fits the first gateway.
//
// Returns:
//   - types.GatewayID: Selected gateway
//   - bool: false if no gateway has enough headroom
func (l *Ledger) FirstFit(order []types.GatewayID, demand types.Demand) (types.GatewayID, bool) {
	for _, id := range order {
		rem, ok := l.remaining[id]
		if !ok {
			continue
		}
		if demand.Mbps <= 0 || rem >= demand.Mbps {
			return id, true
		}
	}

	return "", false
}

// MostRemaining returns the gateway in order with the largest headroom.
// Ties resolve to the earliest gateway in order.
func (l *Ledger) MostRemaining(order []types.GatewayID) types.GatewayID {
	return l.pick(order, func(candidate, best float64) bool { return candidate > best })
}

// LeastRemaining returns the gateway in order with the smallest headroom.
// Ties resolve to the earliest gateway in order.
func (l *Ledger) LeastRemaining(order []types.GatewayID) types.GatewayID {
	return l.pick(order, func(candidate, best float64) bool { return candidate < best })
}

func (l *Ledger) pick(order []types.GatewayID, better func(candidate, best float64) bool) types.GatewayID {
	var (
		best    types.GatewayID
		bestRem float64
		found   bool
	)
	for _, id := range order {
		rem, ok := l.remaining[id]
		if !ok {
			continue
		}
		if !found || better(rem, bestRem) {
			best, bestRem, found = id, rem, true
		}
	}

	return best
}

// Order returns the gateway IDs in the order they were given to NewLedger.
func (l *Ledger) Order() []types.GatewayID {
	return append([]types.GatewayID(nil), l.order...)
}

// Snapshot returns a copy of the remaining headroom per gateway.
func (l *Ledger) Snapshot() map[types.GatewayID]float64 {
	out := make(map[types.GatewayID]float64, len(l.remaining))
	for id, rem := range l.remaining {
		out[id] = rem
	}

	return out
}
