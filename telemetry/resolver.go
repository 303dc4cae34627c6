package telemetry

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/sync/errgroup"

	"github.com/c1ydehhx/upflb/internal/logging"
	"github.com/c1ydehhx/upflb/internal/metrics"
	"github.com/c1ydehhx/upflb/types"
)

const (
	defaultWindow         = time.Second
	defaultTimeout        = 2 * time.Second
	defaultMaxConcurrency = 8
)

// ResolverConfig controls how the Resolver queries and what it substitutes.
type ResolverConfig struct {
	// Window is the rate window passed to the load source.
	Window time.Duration

	// Timeout bounds each individual query.
	Timeout time.Duration

	// MaxConcurrency bounds the number of queries in flight.
	MaxConcurrency int

	// DefaultDemandMbps replaces a client demand that could not be measured.
	DefaultDemandMbps float64

	// KeepLastOnError substitutes the last successful reading of the failed
	// series instead of the default when a query fails. Series never measured
	// fall back to the client's resolved demand or the configured background.
	KeepLastOnError bool
}

// Resolver implements types.DemandResolver on top of a types.LoadSource.
//
// Clients with a TrafficSource are measured; clients without one keep their
// demand if it is resolved and get DefaultDemandMbps otherwise. Gateways with
// a TrafficSource have their background load refreshed. A gateway whose
// query fails keeps its configured background load.
//
// The last successful reading of every series is cached across calls.
type Resolver struct {
	source  types.LoadSource
	cfg     ResolverConfig
	logger  types.Logger
	metrics types.TelemetryMetrics
	last    *xsync.Map[types.TrafficSource, float64]
}

var _ types.DemandResolver = (*Resolver)(nil)

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger used for fallback warnings.
func WithResolverLogger(logger types.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithResolverMetrics sets the collector for query outcomes.
func WithResolverMetrics(collector types.TelemetryMetrics) ResolverOption {
	return func(r *Resolver) {
		if collector != nil {
			r.metrics = collector
		}
	}
}

// NewResolver creates a resolver. Zero config fields take their defaults
// (1s window, 2s timeout, 8 concurrent queries).
func NewResolver(source types.LoadSource, cfg ResolverConfig, opts ...ResolverOption) *Resolver {
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = defaultMaxConcurrency
	}

	r := &Resolver{
		source:  source,
		cfg:     cfg,
		logger:  logging.NewNop(),
		metrics: metrics.NewNop(),
		last:    xsync.NewMap[types.TrafficSource, float64](),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// ResolveClients returns a copy of clients with every demand resolved.
//
// Query failures never fail the call; only cancellation of ctx does.
func (r *Resolver) ResolveClients(ctx context.Context, clients []types.Client) ([]types.Client, error) {
	out := types.CloneClients(clients)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.MaxConcurrency)

	for i := range out {
		c := &out[i]
		if c.Source.IsZero() {
			if !c.Demand.Valid() {
				c.Demand = types.KnownDemand(r.cfg.DefaultDemandMbps)
			}
			continue
		}

		g.Go(func() error {
			mbps, err := r.fetch(gctx, c.Source)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.Demand = r.clientFallback(*c, err)

				return nil
			}
			c.Demand = types.KnownDemand(mbps)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// ResolveGateways returns a copy of gateways with background load refreshed.
func (r *Resolver) ResolveGateways(ctx context.Context, gateways []types.Gateway) ([]types.Gateway, error) {
	out := types.CloneGateways(gateways)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.MaxConcurrency)

	for i := range out {
		gw := &out[i]
		if gw.Source.IsZero() {
			continue
		}

		g.Go(func() error {
			mbps, err := r.fetch(gctx, gw.Source)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				fallback := gw.BackgroundLoadMbps
				if r.cfg.KeepLastOnError {
					if mbps, ok := r.last.Load(gw.Source); ok {
						fallback = mbps
					}
				}
				r.logger.Warn("gateway load unavailable, using fallback",
					"gateway", gw.ID,
					"instance", gw.Source.Instance,
					"device", gw.Source.Device,
					"fallback_mbps", fallback,
					"error", err,
				)
				gw.BackgroundLoadMbps = fallback

				return nil
			}
			gw.BackgroundLoadMbps = mbps

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *Resolver) fetch(ctx context.Context, src types.TrafficSource) (float64, error) {
	fctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	start := time.Now()
	mbps, err := r.source.FetchRateMbps(fctx, src.Instance, src.Device, r.cfg.Window)
	r.metrics.RecordTelemetryFetch(err == nil, time.Since(start).Seconds())
	if err != nil {
		return 0, err
	}
	r.last.Store(src, mbps)

	return mbps, nil
}

func (r *Resolver) clientFallback(c types.Client, err error) types.Demand {
	fallback := types.KnownDemand(r.cfg.DefaultDemandMbps)
	if r.cfg.KeepLastOnError {
		if mbps, ok := r.last.Load(c.Source); ok {
			fallback = types.KnownDemand(mbps)
		} else if c.Demand.Valid() {
			fallback = c.Demand
		}
	}

	r.logger.Warn("client demand unavailable, using fallback",
		"client", c.Key(),
		"instance", c.Source.Instance,
		"device", c.Source.Device,
		"fallback_mbps", fallback.Mbps,
		"error", err,
	)

	return fallback
}
