package upflb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/c1ydehhx/upflb/internal/capacity"
	"github.com/c1ydehhx/upflb/internal/logging"
	"github.com/c1ydehhx/upflb/internal/metrics"
	"github.com/c1ydehhx/upflb/types"
)

// Balancer runs assignment passes and hands their result to the collaborators.
//
// A pass resolves gateway load and client demand, runs the assignment policy,
// programs forwarding rules for the bindings that changed and publishes the
// full binding set. Only the policy is required; every other collaborator is
// optional.
//
// Balancer is safe for concurrent use, but passes are serialised.
type Balancer struct {
	cfg      Config
	gateways []types.Gateway
	policy   types.AssignmentPolicy

	logger     Logger
	metrics    MetricsCollector
	resolver   DemandResolver
	publisher  BindingPublisher
	programmer RuleProgrammer

	passMu sync.Mutex // serialises passes

	mu       sync.RWMutex
	bindings []types.Client // result of the last successful assignment
	applied  []types.Client // binding set last programmed without error
}

// NewBalancer creates a balancer for a fixed gateway set.
//
// Parameters:
//   - cfg: Configuration (copied; missing values take defaults)
//   - gateways: Gateways of every pass (at least one, unique IDs)
//   - policy: Assignment policy (see package policy)
//   - opts: Optional configuration (WithLogger, WithMetrics, WithDemandResolver, ...)
//
// Returns:
//   - *Balancer: Initialized balancer
//   - error: ErrInvalidConfig or ErrPolicyRequired
//
// Example:
//
//	p, _ := policy.New("sticky")
//	b, err := upflb.NewBalancer(cfg, gateways, p, upflb.WithLogger(logger))
func NewBalancer(cfg *Config, gateways []types.Gateway, policy AssignmentPolicy, opts ...Option) (*Balancer, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if policy == nil {
		return nil, ErrPolicyRequired
	}
	if _, err := capacity.NewLedger(gateways); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	c := *cfg
	SetDefaults(&c)
	if c.Interval <= 0 {
		return nil, fmt.Errorf("%w: interval must be > 0, got %v", ErrInvalidConfig, c.Interval)
	}

	options := &balancerOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	metricsCollector := options.metrics
	if metricsCollector == nil {
		metricsCollector = metrics.NewNop()
	}

	loggerInstance := options.logger
	if loggerInstance == nil {
		loggerInstance = logging.NewNop()
	}

	c.ValidateWithWarnings(loggerInstance)

	return &Balancer{
		cfg:        c,
		gateways:   types.CloneGateways(gateways),
		policy:     policy,
		logger:     loggerInstance,
		metrics:    metricsCollector,
		resolver:   options.resolver,
		publisher:  options.publisher,
		programmer: options.programmer,
	}, nil
}

// Policy returns the name of the balancer's assignment policy.
func (b *Balancer) Policy() string {
	return b.policy.Name()
}

// Bindings returns a copy of the bindings of the last successful pass.
func (b *Balancer) Bindings() []types.Client {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return types.CloneClients(b.bindings)
}

// Rebalance runs one pass over clients.
//
// The clients' Gateway fields are their previous bindings. The returned slice
// is the new binding set and belongs to the caller.
//
// A failed assignment returns nil and an error wrapping ErrAssignmentFailed.
// Programming and publication failures still return the new binding set,
// together with an error wrapping ErrProgrammingFailed or ErrPublishFailed;
// rules that failed are retried on the next pass.
//
// Parameters:
//   - ctx: Context for cancellation of the collaborators
//   - clients: Clients of the pass (not modified)
//
// Returns:
//   - []types.Client: New binding set, in input order
//   - error: Pass error (see above)
func (b *Balancer) Rebalance(ctx context.Context, clients []types.Client) ([]types.Client, error) {
	b.passMu.Lock()
	defer b.passMu.Unlock()

	start := time.Now()

	gateways := b.gateways
	if b.resolver != nil {
		var err error
		gateways, err = b.resolver.ResolveGateways(ctx, gateways)
		if err != nil {
			b.recordPass(types.RebalanceFailure, start)
			return nil, fmt.Errorf("%w: resolve gateways: %w", ErrAssignmentFailed, err)
		}
		clients, err = b.resolver.ResolveClients(ctx, clients)
		if err != nil {
			b.recordPass(types.RebalanceFailure, start)
			return nil, fmt.Errorf("%w: resolve clients: %w", ErrAssignmentFailed, err)
		}
	}

	next, err := b.policy.Assign(clients, gateways)
	if err != nil {
		b.logger.Error("assignment pass failed", "policy", b.policy.Name(), "error", err)
		b.recordPass(types.RebalanceFailure, start)
		return nil, fmt.Errorf("%w: %w", ErrAssignmentFailed, err)
	}

	b.mu.Lock()
	b.bindings = types.CloneClients(next)
	previous := b.applied
	b.mu.Unlock()

	var errs []error
	if b.programmer != nil {
		if err := b.programmer.Apply(ctx, previous, next); err != nil {
			b.logger.Error("forwarding rules not fully applied", "error", err)
			errs = append(errs, fmt.Errorf("%w: %w", ErrProgrammingFailed, err))
		} else {
			b.mu.Lock()
			b.applied = types.CloneClients(next)
			b.mu.Unlock()
		}
	}

	if b.publisher != nil {
		if err := b.publish(ctx, next); err != nil {
			b.logger.Error("binding publication failed", "error", err)
			errs = append(errs, fmt.Errorf("%w: %w", ErrPublishFailed, err))
		}
	}

	result := types.RebalanceSuccess
	if len(errs) > 0 {
		result = types.RebalancePartial
	}
	b.recordPass(result, start)

	b.logger.Info("rebalance complete",
		"policy", b.policy.Name(),
		"clients", len(next),
		"gateways", len(gateways),
		"duration", time.Since(start),
	)

	return next, errors.Join(errs...)
}

// RunOnce lists the clients of src, carries the bindings of the previous pass
// onto them and rebalances.
func (b *Balancer) RunOnce(ctx context.Context, src ClientSource) ([]types.Client, error) {
	clients, err := src.ListClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}

	return b.Rebalance(ctx, types.CarryBindings(clients, b.Bindings()))
}

// Run rebalances the clients of src every cfg.Interval until ctx is done.
//
// The first pass runs immediately. Failed passes are logged and retried on
// the next tick.
//
// Returns:
//   - error: ctx.Err() once the context is canceled
func (b *Balancer) Run(ctx context.Context, src ClientSource) error {
	b.logger.Info("balancer started", "policy", b.policy.Name(), "interval", b.cfg.Interval)

	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := b.RunOnce(ctx, src); err != nil {
			if ctx.Err() != nil {
				break
			}
			b.logger.Warn("pass failed, retrying next interval", "error", err)
		}

		select {
		case <-ctx.Done():
			b.logger.Info("balancer stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}

	b.logger.Info("balancer stopped")

	return ctx.Err()
}

func (b *Balancer) publish(ctx context.Context, clients []types.Client) error {
	if b.cfg.Bindings.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Bindings.OperationTimeout)
		defer cancel()
	}

	written, err := b.publisher.Publish(ctx, clients)
	if err != nil {
		return err
	}
	if !written {
		b.logger.Debug("bindings unchanged, publication skipped")
	}

	return nil
}

// recordPass records the outcome of a pass. Gateway headroom is left to the
// policy, which owns the ledger the placements were made against.
func (b *Balancer) recordPass(result string, start time.Time) {
	b.metrics.RecordRebalance(result, time.Since(start).Seconds())
}
