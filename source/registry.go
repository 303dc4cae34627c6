package source

import (
	"context"
	"fmt"
	"net/netip"
	"slices"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/c1ydehhx/upflb/internal/logging"
	"github.com/c1ydehhx/upflb/types"
)

// Registry tracks known UE sessions by address.
//
// Sessions are learnt piecemeal: the address and expected demand come from
// configuration or subscriber data, the tunnel device from RAN discovery and
// the TEID from the session establishment. A client becomes ready (and is
// listed) once its TEID is known.
//
// Registry is safe for concurrent use.
type Registry struct {
	clients *xsync.Map[netip.Addr, types.Client]
	logger  types.Logger
}

var _ types.ClientSource = (*Registry)(nil)

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the registry logger.
func WithRegistryLogger(logger types.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		clients: xsync.NewMap[netip.Addr, types.Client](),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// Add stores client, replacing any entry with the same address.
// The client's binding is not kept; bindings belong to the balancer.
func (r *Registry) Add(client types.Client) {
	client.Gateway = ""
	r.clients.Store(client.Address, client)
}

// Remove forgets the client at addr.
func (r *Registry) Remove(addr netip.Addr) {
	r.clients.Delete(addr)
}

// Len returns the number of registered clients, ready or not.
func (r *Registry) Len() int {
	return r.clients.Size()
}

// RegisterDevice records where the traffic of the client at addr is exported.
//
// Returns types.ErrClientNotFound if addr is unknown.
func (r *Registry) RegisterDevice(addr netip.Addr, instance, device string) error {
	return r.update(addr, func(c *types.Client) {
		c.Source = types.TrafficSource{Instance: instance, Device: device}
	})
}

// RegisterTEID records the tunnel identifier of the client at addr.
//
// Returns types.ErrClientNotFound if addr is unknown.
func (r *Registry) RegisterTEID(addr netip.Addr, teid uint32) error {
	return r.update(addr, func(c *types.Client) {
		c.TEID = teid
	})
}

// Client returns the client registered at addr.
//
// Returns:
//   - types.Client: The client
//   - error: types.ErrClientNotFound if addr is unknown,
//     types.ErrClientNotReady if its TEID is not known yet
func (r *Registry) Client(addr netip.Addr) (types.Client, error) {
	c, ok := r.clients.Load(addr)
	if !ok {
		return types.Client{}, fmt.Errorf("%s: %w", addr, types.ErrClientNotFound)
	}
	if c.TEID == 0 {
		return types.Client{}, fmt.Errorf("%s: %w", addr, types.ErrClientNotReady)
	}

	return c, nil
}

// ListClients returns the ready clients sorted by address.
func (r *Registry) ListClients(_ context.Context) ([]types.Client, error) {
	out := make([]types.Client, 0, r.clients.Size())
	r.clients.Range(func(_ netip.Addr, c types.Client) bool {
		if c.TEID != 0 {
			out = append(out, c)
		}

		return true
	})

	slices.SortFunc(out, func(a, b types.Client) int {
		return a.Address.Compare(b.Address)
	})

	return out, nil
}

// SyncTunnels attaches tunnel devices reported by the RAN at instance.
//
// Addresses not yet registered are added without demand or TEID, so they
// stay unlisted until their session is established.
//
// Returns:
//   - int: Number of newly added clients
func (r *Registry) SyncTunnels(instance string, tunnels []types.Tunnel) int {
	added := 0
	for _, tun := range tunnels {
		src := types.TrafficSource{Instance: instance, Device: tun.Device}

		created := false
		r.clients.Compute(tun.Address, func(old types.Client, loaded bool) (types.Client, xsync.ComputeOp) {
			if !loaded {
				old = types.Client{Address: tun.Address}
				created = true
			}
			old.Source = src

			return old, xsync.UpdateOp
		})
		if created {
			added++
			r.logger.Debug("discovered tunnel for unregistered client", "client", tun.Address, "instance", instance, "device", tun.Device)
		}
	}

	return added
}

func (r *Registry) update(addr netip.Addr, fn func(c *types.Client)) error {
	found := false
	r.clients.Compute(addr, func(old types.Client, loaded bool) (types.Client, xsync.ComputeOp) {
		if !loaded {
			return old, xsync.CancelOp
		}
		found = true
		fn(&old)

		return old, xsync.UpdateOp
	})
	if !found {
		return fmt.Errorf("%s: %w", addr, types.ErrClientNotFound)
	}

	return nil
}
