package upflb

// Option configures a Balancer with optional dependencies.
type Option func(*balancerOptions)

// balancerOptions holds optional Balancer configuration.
type balancerOptions struct {
	logger     Logger
	metrics    MetricsCollector
	resolver   DemandResolver
	publisher  BindingPublisher
	programmer RuleProgrammer
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (see internal/logging for zap and slog adapters)
//
// Returns:
//   - Option: Functional option for NewBalancer
//
// Example:
//
//	logger := logging.NewZap(zap.NewExample().Sugar())
//	b, err := upflb.NewBalancer(cfg, gateways, p, upflb.WithLogger(logger))
func WithLogger(logger Logger) Option {
	return func(o *balancerOptions) {
		o.logger = logger
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewBalancer
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *balancerOptions) {
		o.metrics = metrics
	}
}

// WithDemandResolver sets the resolver that refreshes gateway background load
// and client demand before every pass.
//
// Without a resolver, clients must carry resolved demand.
//
// Example:
//
//	src, _ := telemetry.NewPrometheusSource("http://prometheus:9090")
//	resolver := telemetry.NewResolver(src, cfg.Telemetry.ResolverConfig())
//	b, err := upflb.NewBalancer(cfg, gateways, p, upflb.WithDemandResolver(resolver))
func WithDemandResolver(resolver DemandResolver) Option {
	return func(o *balancerOptions) {
		o.resolver = resolver
	}
}

// WithBindingPublisher sets the publisher that exports every pass's bindings.
func WithBindingPublisher(publisher BindingPublisher) Option {
	return func(o *balancerOptions) {
		o.publisher = publisher
	}
}

// WithRuleProgrammer sets the programmer that realises bindings as forwarding rules.
//
// Example:
//
//	programmer := forwarding.NewProgrammer(switchClient, gateways, cfg.Forwarding)
//	b, err := upflb.NewBalancer(cfg, gateways, p, upflb.WithRuleProgrammer(programmer))
func WithRuleProgrammer(programmer RuleProgrammer) Option {
	return func(o *balancerOptions) {
		o.programmer = programmer
	}
}
