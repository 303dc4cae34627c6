package upflb

import "github.com/c1ydehhx/upflb/types"

// Re-export types from the types package.
//
// Internal packages depend on types only; these aliases give callers of the
// root package upflb.Client, upflb.Gateway and friends without an import cycle.
type (
	Client        = types.Client
	Gateway       = types.Gateway
	GatewayID     = types.GatewayID
	Demand        = types.Demand
	TrafficSource = types.TrafficSource
	Binding       = types.Binding
	TableEntry    = types.TableEntry
)

// Re-export interfaces from the types package for convenience.
type (
	AssignmentPolicy   = types.AssignmentPolicy
	ClientSource       = types.ClientSource
	DemandResolver     = types.DemandResolver
	BindingPublisher   = types.BindingPublisher
	RuleProgrammer     = types.RuleProgrammer
	SwitchConfigClient = types.SwitchConfigClient
	LoadSource         = types.LoadSource
	MetricsCollector   = types.MetricsCollector
	Logger             = types.Logger
)

// KnownDemand returns a resolved demand of mbps.
func KnownDemand(mbps float64) Demand {
	return types.KnownDemand(mbps)
}
