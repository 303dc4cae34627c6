package source

import (
	"context"
	"sync"

	"github.com/c1ydehhx/upflb/types"
)

// Static implements a client source with a fixed list of clients.
type Static struct {
	mu      sync.RWMutex
	clients []types.Client
}

var _ types.ClientSource = (*Static)(nil)

// NewStatic creates a static client source.
//
// Example:
//
//	src := source.NewStatic([]types.Client{
//	    {TEID: 1, Address: netip.MustParseAddr("10.60.0.1"), Demand: types.KnownDemand(20)},
//	})
//	err := balancer.Run(ctx, src)
func NewStatic(clients []types.Client) *Static {
	return &Static{clients: types.CloneClients(clients)}
}

// ListClients returns a copy of the client list. It never fails.
func (s *Static) ListClients(_ context.Context) ([]types.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]types.Client, len(s.clients))
	copy(result, s.clients)

	return result, nil
}

// Update replaces the client list.
func (s *Static) Update(clients []types.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clients = types.CloneClients(clients)
}
