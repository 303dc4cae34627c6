// Command upflb balances UE sessions across UPF gateways.
//
// It loads a YAML configuration, measures demand through Prometheus, discovers
// UE tunnels on the RAN hosts, runs the configured assignment policy every
// interval and publishes the bindings to NATS JetStream KV.
//
// Usage:
//
//	upflb -config upflb.yaml [-policy swap|sticky] [-once] [-dry-run]
//
// With -dry-run nothing leaves the process: bindings are not published and
// the forwarding table entries they imply are logged instead.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/c1ydehhx/upflb"
	"github.com/c1ydehhx/upflb/forwarding"
	"github.com/c1ydehhx/upflb/internal/logging"
	"github.com/c1ydehhx/upflb/internal/metrics"
	"github.com/c1ydehhx/upflb/internal/natsutil"
	"github.com/c1ydehhx/upflb/policy"
	"github.com/c1ydehhx/upflb/publisher"
	"github.com/c1ydehhx/upflb/source"
	"github.com/c1ydehhx/upflb/telemetry"
	"github.com/c1ydehhx/upflb/types"
)

func main() {
	configPath := flag.String("config", "upflb.yaml", "path to the YAML configuration")
	policyName := flag.String("policy", "", "assignment policy, overrides the configuration (swap, sticky)")
	once := flag.Bool("once", false, "run a single pass and exit")
	dryRun := flag.Bool("dry-run", false, "log forwarding entries and skip publication")
	flag.Parse()

	zl, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewZap(zl.Sugar())
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *policyName, *once, *dryRun); err != nil {
		logger.Error("upflb exited with error", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *logging.ZapLogger, configPath, policyName string, once, dryRun bool) error {
	cfg, err := upflb.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if policyName != "" {
		cfg.Policy = policyName
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	gateways, err := cfg.BuildGateways()
	if err != nil {
		return err
	}
	clients, err := cfg.BuildClients()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewPrometheus(reg, cfg.Metrics.Namespace)

	policyOpts := []policy.Option{policy.WithLogger(logger), policy.WithMetrics(collector)}
	if cfg.Seed != nil {
		policyOpts = append(policyOpts, policy.WithSeed(*cfg.Seed))
	}
	p, err := policy.New(cfg.Policy, policyOpts...)
	if err != nil {
		return err
	}

	resolver, err := newResolver(cfg, logger, collector)
	if err != nil {
		return err
	}

	opts := []upflb.Option{
		upflb.WithLogger(logger),
		upflb.WithMetrics(collector),
		upflb.WithDemandResolver(resolver),
	}

	if dryRun {
		programmer := forwarding.NewProgrammer(forwarding.NewLogClient(logger), gateways, cfg.Forwarding,
			forwarding.WithLogger(logger),
			forwarding.WithMetrics(collector),
		)
		opts = append(opts, upflb.WithRuleProgrammer(programmer))
	} else if cfg.Bindings.NATSURL != "" {
		pub, closeFn, err := openPublisher(ctx, cfg.Bindings, logger, collector)
		if err != nil {
			return err
		}
		defer closeFn()
		opts = append(opts, upflb.WithBindingPublisher(pub))
	}

	balancer, err := upflb.NewBalancer(cfg, gateways, p, opts...)
	if err != nil {
		return err
	}

	src := newClientSource(cfg, clients, logger)

	if once {
		next, err := balancer.RunOnce(ctx, src)
		for _, c := range next {
			logger.Info("binding", "client", c.Key(), "teid", c.TEID, "gateway", c.Gateway, "demandMbps", c.Demand.Mbps)
		}

		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.ListenAddress != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.ListenAddress,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("metrics server listening", "address", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}

			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		if err := balancer.Run(gctx, src); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}

		return nil
	})

	return g.Wait()
}

func newResolver(cfg *upflb.Config, logger types.Logger, collector types.TelemetryMetrics) (*telemetry.Resolver, error) {
	var load types.LoadSource = telemetry.NewStatic()
	if cfg.Telemetry.PrometheusURL != "" {
		prom, err := telemetry.NewPrometheusSource(cfg.Telemetry.PrometheusURL,
			telemetry.WithMetricName(cfg.Telemetry.MetricName),
			telemetry.WithExporterPort(cfg.Telemetry.ExporterPort),
			telemetry.WithOverheadFactor(cfg.Telemetry.OverheadFactor),
			telemetry.WithPrometheusLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		load = prom
	}

	return telemetry.NewResolver(load, cfg.Telemetry.ResolverConfig(),
		telemetry.WithResolverLogger(logger),
		telemetry.WithResolverMetrics(collector),
	), nil
}

func openPublisher(
	ctx context.Context,
	cfg upflb.BindingsConfig,
	logger types.Logger,
	collector types.PublisherMetrics,
) (*publisher.KVPublisher, func(), error) {
	nc, err := natsutil.Connect(cfg.NATSURL, "upflb", logger)
	if err != nil {
		return nil, nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}

	openCtx, cancel := context.WithTimeout(ctx, cfg.OperationTimeout)
	defer cancel()

	pub, err := publisher.Open(openCtx, js, cfg.Bucket, cfg.KeyPrefix,
		publisher.WithLogger(logger),
		publisher.WithMetrics(collector),
	)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}

	return pub, func() { nc.Close() }, nil
}

// newClientSource returns the configured clients, with RAN tunnel discovery
// before every listing when RAN endpoints are configured.
func newClientSource(cfg *upflb.Config, clients []types.Client, logger types.Logger) types.ClientSource {
	if len(cfg.RAN.Endpoints) == 0 {
		return source.NewStatic(clients)
	}

	registry := source.NewRegistry(source.WithRegistryLogger(logger))
	for _, c := range clients {
		registry.Add(c)
	}

	return &discoveringSource{
		registry:  registry,
		endpoints: cfg.RAN.Endpoints,
		logger:    logger,
		ran: telemetry.NewRANClient(
			telemetry.WithRANPort(cfg.RAN.Port),
			telemetry.WithTunnelPrefix(cfg.RAN.DevicePrefix),
			telemetry.WithRANLogger(logger),
		),
	}
}

// discoveringSource refreshes tunnel devices from every RAN endpoint, then
// lists the registry. An unreachable endpoint keeps its last known devices.
type discoveringSource struct {
	registry  *source.Registry
	ran       *telemetry.RANClient
	endpoints []string
	logger    types.Logger
}

func (s *discoveringSource) ListClients(ctx context.Context) ([]types.Client, error) {
	for _, endpoint := range s.endpoints {
		tunnels, err := s.ran.FetchTunnels(ctx, endpoint)
		if err != nil {
			s.logger.Warn("ran discovery failed", "endpoint", endpoint, "error", err)
			continue
		}
		instance := endpoint
		if host, _, err := net.SplitHostPort(endpoint); err == nil {
			instance = host
		}
		if added := s.registry.SyncTunnels(instance, tunnels); added > 0 {
			s.logger.Info("new tunnels discovered", "endpoint", endpoint, "added", added)
		}
	}

	return s.registry.ListClients(ctx)
}
