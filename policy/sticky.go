package policy

import (
	"fmt"
	"time"

	"github.com/c1ydehhx/upflb/internal/capacity"
	"github.com/c1ydehhx/upflb/types"
)

// NameSticky is the name of the incremental policy.
const NameSticky = "sticky"

// Sticky keeps existing bindings and places new clients on the gateway with the
// most remaining headroom.
//
// It is deterministic: for the same input it always produces the same output,
// and feeding its output back in changes nothing.
type Sticky struct {
	logger  types.Logger
	metrics types.MetricsCollector
}

var _ types.AssignmentPolicy = (*Sticky)(nil)

// NewSticky creates a sticky policy.
//
// Parameters:
//   - opts: Optional configuration (WithLogger, WithMetrics)
//
// Returns:
//   - *Sticky: Policy ready for use
func NewSticky(opts ...Option) *Sticky {
	s := newSettings(opts)

	return &Sticky{logger: s.logger, metrics: s.metrics}
}

// Name returns "sticky".
func (s *Sticky) Name() string {
	return NameSticky
}

// Assign keeps bound clients where they are and places the unbound ones.
//
// The algorithm:
//  1. Seed a headroom ledger from the gateways
//  2. Charge the demand of every bound client to its gateway
//  3. For each unbound client in input order, pick the gateway with the most
//     remaining headroom (earliest gateway on ties) and charge it, even if the
//     headroom goes negative
//
// Parameters:
//   - clients: Clients of the pass; a non-empty Gateway is an existing binding
//   - gateways: Gateways of the pass
//
// Returns:
//   - []types.Client: New slice in input order with every client bound
//   - error: types.ErrNoGateways, types.ErrDuplicateGateway, types.ErrUnresolvedDemand,
//     or types.ErrUnknownGateway when a client is bound to a gateway not in the pass
func (s *Sticky) Assign(clients []types.Client, gateways []types.Gateway) ([]types.Client, error) {
	start := time.Now()

	ledger, err := capacity.NewLedger(gateways)
	if err != nil {
		return nil, err
	}
	if err := validateDemand(clients); err != nil {
		return nil, err
	}

	out := types.CloneClients(clients)

	for _, c := range out {
		if !c.IsBound() {
			continue
		}
		if !ledger.Has(c.Gateway) {
			return nil, fmt.Errorf("client %s bound to %q: %w", c.Key(), c.Gateway, types.ErrUnknownGateway)
		}
		ledger.Deduct(c.Gateway, c.Demand)
	}

	order := ledger.Order()
	for i := range out {
		c := &out[i]
		if c.IsBound() {
			s.metrics.RecordAssignment(NameSticky, c.Gateway.String(), types.AssignmentKept)
			continue
		}

		id := ledger.MostRemaining(order)
		fits := c.Demand.Mbps <= 0 || ledger.Remaining(id) >= c.Demand.Mbps
		ledger.Deduct(id, c.Demand)
		c.Gateway = id

		if !fits {
			s.logger.Warn("gateway over-subscribed by new client",
				"policy", NameSticky,
				"client", c.Key(),
				"gateway", id,
				"demand_mbps", c.Demand.Mbps,
				"remaining_mbps", ledger.Remaining(id),
			)
			s.metrics.RecordAssignment(NameSticky, id.String(), types.AssignmentOverflow)

			continue
		}

		s.logger.Info("client assigned",
			"policy", NameSticky,
			"client", c.Key(),
			"gateway", id,
			"demand_mbps", c.Demand.Mbps,
			"remaining_mbps", ledger.Remaining(id),
		)
		s.metrics.RecordAssignment(NameSticky, id.String(), types.AssignmentFit)
	}

	recordPass(s.metrics, NameSticky, ledger, start)

	return out, nil
}
