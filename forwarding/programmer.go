package forwarding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/c1ydehhx/upflb/internal/logging"
	"github.com/c1ydehhx/upflb/internal/metrics"
	"github.com/c1ydehhx/upflb/types"
)

// Table entry operations recorded through types.SwitchMetrics.
const (
	OpAdd    = "add"
	OpModify = "modify"
)

// Config names the table, key, action and data fields of the binding table.
type Config struct {
	Table     string `yaml:"table"`
	MatchKey  string `yaml:"matchKey"`
	Action    string `yaml:"action"`
	MACField  string `yaml:"macField"`
	IPField   string `yaml:"ipField"`
	PortField string `yaml:"portField"`
}

// DefaultConfig returns the binding table layout of the uplink steering pipeline.
func DefaultConfig() Config {
	return Config{
		Table:     "ue_upf_binding_table",
		MatchKey:  "hdr.inner_ipv4.src_addr",
		Action:    "forward_to_upf",
		MACField:  "dstMacAddr",
		IPField:   "dstIPAddr",
		PortField: "port",
	}
}

// withDefaults fills empty fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Table == "" {
		c.Table = d.Table
	}
	if c.MatchKey == "" {
		c.MatchKey = d.MatchKey
	}
	if c.Action == "" {
		c.Action = d.Action
	}
	if c.MACField == "" {
		c.MACField = d.MACField
	}
	if c.IPField == "" {
		c.IPField = d.IPField
	}
	if c.PortField == "" {
		c.PortField = d.PortField
	}

	return c
}

// Programmer implements types.RuleProgrammer on a types.SwitchConfigClient.
//
// Newly bound clients get an AddEntry, clients that moved get a ModifyEntry,
// and unchanged clients cost nothing. Rules of clients that left are kept;
// the pipeline has no delete path and a stale rule is harmless once the UE
// address is gone.
type Programmer struct {
	client  types.SwitchConfigClient
	cfg     Config
	logger  types.Logger
	metrics types.SwitchMetrics

	mu       sync.RWMutex
	gateways map[types.GatewayID]types.Gateway
}

var _ types.RuleProgrammer = (*Programmer)(nil)

// Option configures a Programmer.
type Option func(*Programmer)

// WithLogger sets the programmer logger.
func WithLogger(logger types.Logger) Option {
	return func(p *Programmer) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics sets the switch metrics collector.
func WithMetrics(collector types.SwitchMetrics) Option {
	return func(p *Programmer) {
		if collector != nil {
			p.metrics = collector
		}
	}
}

// NewProgrammer creates a programmer for the given gateways.
//
// Parameters:
//   - client: Switch the entries are written to
//   - gateways: Gateways whose MAC, address and port fill the action data
//   - cfg: Table layout (empty fields take DefaultConfig values)
//   - opts: Optional configuration (WithLogger, WithMetrics)
func NewProgrammer(client types.SwitchConfigClient, gateways []types.Gateway, cfg Config, opts ...Option) *Programmer {
	p := &Programmer{
		client:  client,
		cfg:     cfg.withDefaults(),
		logger:  logging.NewNop(),
		metrics: metrics.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	p.SetGateways(gateways)

	return p
}

// SetGateways replaces the gateway table used to build action data.
func (p *Programmer) SetGateways(gateways []types.Gateway) {
	table := make(map[types.GatewayID]types.Gateway, len(gateways))
	for _, g := range gateways {
		table[g.ID] = g
	}

	p.mu.Lock()
	p.gateways = table
	p.mu.Unlock()
}

// Entry builds the binding table entry that steers c to gateway g.
func (p *Programmer) Entry(c types.Client, g types.Gateway) (types.TableEntry, error) {
	ue, err := IPv4ToUint32(c.Address)
	if err != nil {
		return types.TableEntry{}, fmt.Errorf("client %s: %w", c.Key(), err)
	}
	gwIP, err := IPv4ToUint32(g.Address)
	if err != nil {
		return types.TableEntry{}, fmt.Errorf("gateway %s: %w", g.ID, err)
	}
	mac, err := MACToUint64(g.MAC)
	if err != nil {
		return types.TableEntry{}, fmt.Errorf("gateway %s: %w", g.ID, err)
	}

	return types.TableEntry{
		Table:  p.cfg.Table,
		Keys:   []types.MatchKey{{Name: p.cfg.MatchKey, Value: uint64(ue)}},
		Action: p.cfg.Action,
		Data: []types.DataField{
			{Name: p.cfg.MACField, Value: mac},
			{Name: p.cfg.IPField, Value: uint64(gwIP)},
			{Name: p.cfg.PortField, Value: uint64(g.OutputPort)},
		},
	}, nil
}

// Apply programs the changes between previous and next.
//
// Every change is attempted; failures are collected and returned together.
func (p *Programmer) Apply(ctx context.Context, previous, next []types.Client) error {
	diff := types.DiffBindings(previous, next)

	var errs []error
	for _, ch := range diff.Added {
		if err := p.program(ctx, OpAdd, ch); err != nil {
			errs = append(errs, err)
		}
	}
	for _, ch := range diff.Moved {
		if err := p.program(ctx, OpModify, ch); err != nil {
			errs = append(errs, err)
		}
	}

	if len(diff.Added)+len(diff.Moved) > 0 {
		p.logger.Info("forwarding rules applied",
			"added", len(diff.Added),
			"moved", len(diff.Moved),
			"unchanged", len(diff.Unchanged),
			"failed", len(errs),
		)
	}

	return errors.Join(errs...)
}

func (p *Programmer) program(ctx context.Context, op string, ch types.BindingChange) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.RLock()
	g, ok := p.gateways[ch.Client.Gateway]
	p.mu.RUnlock()
	if !ok {
		p.metrics.RecordSwitchEntry(op, false)
		return fmt.Errorf("client %s bound to %q: %w", ch.Client.Key(), ch.Client.Gateway, types.ErrUnknownGateway)
	}

	entry, err := p.Entry(ch.Client, g)
	if err != nil {
		p.metrics.RecordSwitchEntry(op, false)
		return err
	}

	if op == OpModify {
		err = p.client.ModifyEntry(ctx, entry)
	} else {
		err = p.client.AddEntry(ctx, entry)
	}
	p.metrics.RecordSwitchEntry(op, err == nil)
	if err != nil {
		p.logger.Error("switch rejected table entry",
			"op", op,
			"client", ch.Client.Key(),
			"gateway", g.ID,
			"error", err,
		)

		return fmt.Errorf("%s entry for %s: %w", op, ch.Client.Key(), err)
	}

	p.logger.Debug("table entry written",
		"op", op,
		"client", ch.Client.Key(),
		"gateway", g.ID,
		"previous", ch.Previous,
	)

	return nil
}
