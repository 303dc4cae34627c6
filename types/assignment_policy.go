package types

// AssignmentPolicy binds every client of a pass to exactly one gateway.
//
// Policies implement different selection rules:
//   - Swap: Full re-optimisation, first-fit-decreasing over a shuffled gateway order
//   - Sticky: Incremental, keeps existing bindings and places new clients on the least-loaded gateway
//
// Policy implementations should:
//   - Return a new slice and never mutate the input clients or gateways
//   - Bind every client (over-subscription is allowed and reported, not rejected)
//   - Fail with ErrNoGateways when gateways is empty
//   - Fail with ErrUnresolvedDemand when a client's demand is not resolved
type AssignmentPolicy interface {
	// Name returns the policy name (e.g., "swap", "sticky").
	Name() string

	// Assign computes the bindings for one pass.
	//
	// Parameters:
	//   - clients: Clients of the pass; their Gateway field is the previous binding
	//   - gateways: Gateways of the pass
	//
	// Returns:
	//   - []Client: New client slice, in input order, with every client bound
	//   - error: Configuration or input error (nothing is returned on error)
	Assign(clients []Client, gateways []Gateway) ([]Client, error)
}

// RandSource provides the tie-break ordering used by randomised policies.
//
// *math/rand.Rand and *math/rand/v2.Rand both satisfy it.
type RandSource interface {
	// Shuffle pseudo-randomises the order of n elements using swap.
	Shuffle(n int, swap func(i, j int))
}
