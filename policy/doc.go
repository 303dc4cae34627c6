// Package policy provides the built-in client-to-gateway assignment policies.
//
// Both policies bind every client of a pass to exactly one gateway while
// keeping the bandwidth placed on each gateway within its headroom
// (capacity minus background load) whenever that is possible:
//
//   - Swap: Full re-optimisation. Clients are placed largest demand first onto
//     the first gateway of a shuffled order that can hold them. A client that
//     fits nowhere is parked on the gateway with the least remaining headroom.
//   - Sticky: Incremental. Existing bindings are kept and their demand is
//     charged first; unbound clients go to the gateway with the most remaining
//     headroom, even when that drives it negative.
//
// # Policy Selection Guide
//
// Swap:
//   - Use when clients may be moved freely between passes
//   - Produces the best packing, at the cost of churn
//   - Randomised tie-break, reproducible with WithSeed
//
// Sticky:
//   - Use when moving a session is expensive
//   - Deterministic and idempotent
//   - Fails the pass with types.ErrUnknownGateway if a client is bound to a gateway that is gone
//
// Policies never mutate their inputs. They return a new client slice in the
// order the clients were given.
//
// Custom policies can be implemented by satisfying the types.AssignmentPolicy interface.
package policy
