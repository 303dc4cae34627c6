// Package upflb balances UE sessions across user-plane gateways by bandwidth.
//
// Every pass binds each client (a UE session) to exactly one gateway (a UPF),
// accounting for the client's bandwidth demand against the gateway's
// remaining headroom. Two assignment policies are available in package policy:
//
//   - swap: full re-optimisation, first-fit-decreasing over a shuffled gateway order
//   - sticky: keeps existing bindings and places new clients on the gateway with
//     the most remaining headroom
//
// # Quick Start
//
//	cfg, err := upflb.LoadConfig("upflb.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	gateways, err := cfg.BuildGateways()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	p, err := policy.New(cfg.Policy)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	b, err := upflb.NewBalancer(cfg, gateways, p,
//	    upflb.WithDemandResolver(resolver),
//	    upflb.WithRuleProgrammer(programmer),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = b.Run(ctx, registry)
//
// # Collaborators
//
// The balancer core never performs I/O. Demand is resolved by a DemandResolver
// (package telemetry), clients are discovered through a ClientSource (package
// source), bindings are realised by a RuleProgrammer (package forwarding) and
// exported by a BindingPublisher (package publisher). All of them are optional.
//
// See cmd/upflb for a complete wiring.
package upflb
