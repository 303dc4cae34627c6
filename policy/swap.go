package policy

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/c1ydehhx/upflb/internal/capacity"
	"github.com/c1ydehhx/upflb/types"
)

// NameSwap is the name of the full re-optimisation policy.
const NameSwap = "swap"

// Swap implements first-fit-decreasing assignment over a shuffled gateway order.
//
// Existing bindings are ignored; every client is placed again on each pass.
// Swap is safe for concurrent use. Calls to Assign share the random source and
// are serialised only around the shuffle.
type Swap struct {
	logger  types.Logger
	metrics types.MetricsCollector

	mu  sync.Mutex
	rng types.RandSource
}

var _ types.AssignmentPolicy = (*Swap)(nil)

// NewSwap creates a swap policy.
//
// Parameters:
//   - opts: Optional configuration (WithLogger, WithMetrics, WithSeed, WithRandSource)
//
// Returns:
//   - *Swap: Policy ready for use
//
// Example:
//
//	swap := policy.NewSwap(policy.WithSeed(42))
//	bound, err := swap.Assign(clients, gateways)
func NewSwap(opts ...Option) *Swap {
	s := newSettings(opts)

	return &Swap{
		logger:  s.logger,
		metrics: s.metrics,
		rng:     s.rng,
	}
}

// Name returns "swap".
func (s *Swap) Name() string {
	return NameSwap
}

// Assign binds every client using first-fit-decreasing.
//
// The algorithm:
//  1. Seed a headroom ledger from the gateways
//  2. Order clients by demand, largest first (ties keep input order)
//  3. Shuffle a copy of the gateway order
//  4. Place each client on the first gateway whose remaining headroom covers
//     its demand, and charge the demand to that gateway
//  5. A client that fits nowhere is bound to the gateway with the least
//     remaining headroom without charging it, and a warning is logged
//
// Parameters:
//   - clients: Clients of the pass (previous bindings are ignored)
//   - gateways: Gateways of the pass
//
// Returns:
//   - []types.Client: New slice in input order with every client bound
//   - error: types.ErrNoGateways, types.ErrDuplicateGateway or types.ErrUnresolvedDemand
func (s *Swap) Assign(clients []types.Client, gateways []types.Gateway) ([]types.Client, error) {
	start := time.Now()

	ledger, err := capacity.NewLedger(gateways)
	if err != nil {
		return nil, err
	}
	if err := validateDemand(clients); err != nil {
		return nil, err
	}

	out := types.CloneClients(clients)
	order := s.shuffle(ledger.Order())

	for _, i := range byDemandDescending(out) {
		c := &out[i]

		if id, ok := ledger.FirstFit(order, c.Demand); ok {
			ledger.Deduct(id, c.Demand)
			c.Gateway = id
			s.logger.Info("client assigned",
				"policy", NameSwap,
				"client", c.Key(),
				"gateway", id,
				"demand_mbps", c.Demand.Mbps,
				"remaining_mbps", ledger.Remaining(id),
			)
			s.metrics.RecordAssignment(NameSwap, id.String(), types.AssignmentFit)

			continue
		}

		id := ledger.LeastRemaining(order)
		c.Gateway = id
		s.logger.Warn("no gateway has enough headroom, binding to least loaded",
			"policy", NameSwap,
			"client", c.Key(),
			"gateway", id,
			"demand_mbps", c.Demand.Mbps,
			"remaining_mbps", ledger.Remaining(id),
		)
		s.metrics.RecordAssignment(NameSwap, id.String(), types.AssignmentOverflow)
	}

	recordPass(s.metrics, NameSwap, ledger, start)

	return out, nil
}

// shuffle returns a shuffled copy of order.
func (s *Swap) shuffle(order []types.GatewayID) []types.GatewayID {
	shuffled := slices.Clone(order)

	s.mu.Lock()
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	s.mu.Unlock()

	return shuffled
}

// byDemandDescending returns the indexes of clients ordered by demand, largest
// first. Equal demands keep their input order.
func byDemandDescending(clients []types.Client) []int {
	idx := make([]int, len(clients))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(clients[b].Demand.Mbps, clients[a].Demand.Mbps)
	})

	return idx
}

// recordPass reports the pass duration and the final headroom of every gateway.
func recordPass(mc types.MetricsCollector, policy string, ledger *capacity.Ledger, start time.Time) {
	mc.RecordPassDuration(policy, time.Since(start).Seconds())
	for _, id := range ledger.Order() {
		mc.RecordHeadroom(id.String(), ledger.Remaining(id))
	}
}
