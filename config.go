package upflb

import (
	"fmt"
	"net"
	"net/netip"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c1ydehhx/upflb/forwarding"
	"github.com/c1ydehhx/upflb/policy"
	"github.com/c1ydehhx/upflb/telemetry"
	"github.com/c1ydehhx/upflb/types"
)

// TelemetryConfig configures the Prometheus load source and the demand resolver.
type TelemetryConfig struct {
	// PrometheusURL is the base URL of the Prometheus HTTP API.
	// Empty disables measurement; every client then gets DefaultDemandMbps
	// unless its demand is configured.
	PrometheusURL string `yaml:"prometheusUrl"`

	// Window is the rate window of each query.
	Window time.Duration `yaml:"window"`

	// Timeout bounds a single query.
	Timeout time.Duration `yaml:"timeout"`

	// MaxConcurrency bounds the queries in flight during one resolution.
	MaxConcurrency int `yaml:"maxConcurrency"`

	// DefaultDemandMbps is used for clients that cannot be measured.
	DefaultDemandMbps float64 `yaml:"defaultDemandMbps"`

	// KeepLastOnError keeps the previous reading when a query fails.
	KeepLastOnError bool `yaml:"keepLastOnError"`

	// ExporterPort is appended to the instance label (node_exporter listens on 9100).
	ExporterPort int `yaml:"exporterPort"`

	// OverheadFactor scales measured throughput to account for encapsulation overhead.
	OverheadFactor float64 `yaml:"overheadFactor"`

	// MetricName is the exporter counter queried for traffic.
	MetricName string `yaml:"metricName"`
}

// ResolverConfig returns the resolver settings of the telemetry section.
func (c TelemetryConfig) ResolverConfig() telemetry.ResolverConfig {
	return telemetry.ResolverConfig{
		Window:            c.Window,
		Timeout:           c.Timeout,
		MaxConcurrency:    c.MaxConcurrency,
		DefaultDemandMbps: c.DefaultDemandMbps,
		KeepLastOnError:   c.KeepLastOnError,
	}
}

// GatewayConfig is the textual form of a types.Gateway.
type GatewayConfig struct {
	ID                 string              `yaml:"id"`
	Address            string              `yaml:"address"`
	MAC                string              `yaml:"mac"`
	OutputPort         uint32              `yaml:"outputPort"`
	MaxCapacityMbps    float64             `yaml:"maxCapacityMbps"`
	BackgroundLoadMbps float64             `yaml:"backgroundLoadMbps"`
	Source             types.TrafficSource `yaml:"source"`
}

// ClientConfig is the textual form of a types.Client.
type ClientConfig struct {
	Address string              `yaml:"address"`
	TEID    uint32              `yaml:"teid"`
	Source  types.TrafficSource `yaml:"source"`

	// DemandMbps is the configured demand. Nil leaves it to telemetry.
	DemandMbps *float64 `yaml:"demandMbps"`

	// Gateway is an initial binding, useful with the sticky policy.
	Gateway string `yaml:"gateway"`
}

// RANConfig configures tunnel discovery on the RAN simulator hosts.
type RANConfig struct {
	// Endpoints are the hosts queried for tunnel interfaces. Empty disables discovery.
	Endpoints []string `yaml:"endpoints"`

	// Port is the discovery HTTP port.
	Port int `yaml:"port"`

	// DevicePrefix selects the tunnel interfaces.
	DevicePrefix string `yaml:"devicePrefix"`
}

// BindingsConfig configures publication of bindings to NATS JetStream KV.
type BindingsConfig struct {
	// NATSURL is the NATS server URL. Empty disables publication.
	NATSURL string `yaml:"natsUrl"`

	// Bucket is the KV bucket holding binding records.
	Bucket string `yaml:"bucket"`

	// KeyPrefix prefixes every record key.
	KeyPrefix string `yaml:"keyPrefix"`

	// OperationTimeout bounds each publication.
	OperationTimeout time.Duration `yaml:"operationTimeout"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	// ListenAddress is the HTTP listen address. Empty disables the endpoint.
	ListenAddress string `yaml:"listenAddress"`

	// Namespace prefixes every metric name.
	Namespace string `yaml:"namespace"`
}

// Config is the configuration of the balancer and its collaborators.
//
// All duration fields accept standard Go duration strings like "500ms", "5s".
type Config struct {
	// Policy names the assignment policy ("swap" or "sticky").
	Policy string `yaml:"policy"`

	// Seed fixes the swap policy's shuffle. Nil seeds randomly.
	Seed *int64 `yaml:"seed"`

	// Interval is the time between passes in Run.
	Interval time.Duration `yaml:"interval"`

	Telemetry  TelemetryConfig   `yaml:"telemetry"`
	Gateways   []GatewayConfig   `yaml:"gateways"`
	Clients    []ClientConfig    `yaml:"clients"`
	RAN        RANConfig         `yaml:"ran"`
	Forwarding forwarding.Config `yaml:"forwarding"`
	Bindings   BindingsConfig    `yaml:"bindings"`
	Metrics    MetricsConfig     `yaml:"metrics"`
}

// DefaultConfig returns a Config with sensible defaults and no gateways.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		Policy:   policy.NameSticky,
		Interval: 5 * time.Second,
		Telemetry: TelemetryConfig{
			Window:            time.Second,
			Timeout:           2 * time.Second,
			MaxConcurrency:    8,
			DefaultDemandMbps: 0,
			ExporterPort:      telemetry.DefaultExporterPort,
			OverheadFactor:    telemetry.DefaultOverheadFactor,
			MetricName:        telemetry.DefaultMetricName,
		},
		RAN: RANConfig{
			Port:         telemetry.DefaultRANPort,
			DevicePrefix: telemetry.DefaultTunnelPrefix,
		},
		Forwarding: forwarding.DefaultConfig(),
		Bindings: BindingsConfig{
			Bucket:           "upflb-bindings",
			KeyPrefix:        "bindings",
			OperationTimeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Namespace: "upflb",
		},
	}
}

// SetDefaults fills in missing configuration values with production defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Policy == "" {
		cfg.Policy = defaults.Policy
	}
	if cfg.Interval == 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.Telemetry.Window == 0 {
		cfg.Telemetry.Window = defaults.Telemetry.Window
	}
	if cfg.Telemetry.Timeout == 0 {
		cfg.Telemetry.Timeout = defaults.Telemetry.Timeout
	}
	if cfg.Telemetry.MaxConcurrency == 0 {
		cfg.Telemetry.MaxConcurrency = defaults.Telemetry.MaxConcurrency
	}
	if cfg.Telemetry.ExporterPort == 0 {
		cfg.Telemetry.ExporterPort = defaults.Telemetry.ExporterPort
	}
	if cfg.Telemetry.OverheadFactor == 0 {
		cfg.Telemetry.OverheadFactor = defaults.Telemetry.OverheadFactor
	}
	if cfg.Telemetry.MetricName == "" {
		cfg.Telemetry.MetricName = defaults.Telemetry.MetricName
	}
	if cfg.RAN.Port == 0 {
		cfg.RAN.Port = defaults.RAN.Port
	}
	if cfg.RAN.DevicePrefix == "" {
		cfg.RAN.DevicePrefix = defaults.RAN.DevicePrefix
	}
	if cfg.Forwarding.Table == "" {
		cfg.Forwarding.Table = defaults.Forwarding.Table
	}
	if cfg.Forwarding.MatchKey == "" {
		cfg.Forwarding.MatchKey = defaults.Forwarding.MatchKey
	}
	if cfg.Forwarding.Action == "" {
		cfg.Forwarding.Action = defaults.Forwarding.Action
	}
	if cfg.Forwarding.MACField == "" {
		cfg.Forwarding.MACField = defaults.Forwarding.MACField
	}
	if cfg.Forwarding.IPField == "" {
		cfg.Forwarding.IPField = defaults.Forwarding.IPField
	}
	if cfg.Forwarding.PortField == "" {
		cfg.Forwarding.PortField = defaults.Forwarding.PortField
	}
	if cfg.Bindings.Bucket == "" {
		cfg.Bindings.Bucket = defaults.Bindings.Bucket
	}
	if cfg.Bindings.KeyPrefix == "" {
		cfg.Bindings.KeyPrefix = defaults.Bindings.KeyPrefix
	}
	if cfg.Bindings.OperationTimeout == 0 {
		cfg.Bindings.OperationTimeout = defaults.Bindings.OperationTimeout
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = defaults.Metrics.Namespace
	}
	// Note: DefaultDemandMbps of 0 is valid (unmeasured clients consume nothing)
}

// Validate checks configuration constraints and returns error for invalid values.
//
// Hard Validation Rules:
//   - Policy names a known policy
//   - Interval > 0
//   - At least one gateway, with unique non-empty IDs and parseable addresses
//   - Telemetry timeout, window and overhead factor > 0
//   - Client addresses parse and are unique
//
// Returns:
//   - error: Validation error wrapping ErrInvalidConfig, nil if valid
func (cfg *Config) Validate() error {
	if !slices.Contains(policy.Names(), strings.ToLower(strings.TrimSpace(cfg.Policy))) {
		return fmt.Errorf("%w: unknown policy %q (want one of %v)", ErrInvalidConfig, cfg.Policy, policy.Names())
	}

	if cfg.Interval <= 0 {
		return fmt.Errorf("%w: interval must be > 0, got %v", ErrInvalidConfig, cfg.Interval)
	}

	if cfg.Telemetry.Window <= 0 || cfg.Telemetry.Timeout <= 0 {
		return fmt.Errorf("%w: telemetry window (%v) and timeout (%v) must be > 0",
			ErrInvalidConfig, cfg.Telemetry.Window, cfg.Telemetry.Timeout)
	}

	if cfg.Telemetry.OverheadFactor <= 0 {
		return fmt.Errorf("%w: telemetry overheadFactor must be > 0, got %v", ErrInvalidConfig, cfg.Telemetry.OverheadFactor)
	}

	if cfg.Telemetry.MaxConcurrency < 0 {
		return fmt.Errorf("%w: telemetry maxConcurrency must be >= 0, got %d", ErrInvalidConfig, cfg.Telemetry.MaxConcurrency)
	}

	if _, err := cfg.BuildGateways(); err != nil {
		return err
	}

	if _, err := cfg.BuildClients(); err != nil {
		return err
	}

	if cfg.Bindings.NATSURL != "" && cfg.Bindings.Bucket == "" {
		return fmt.Errorf("%w: bindings bucket is required when natsUrl is set", ErrInvalidConfig)
	}

	return nil
}

// ValidateWithWarnings logs warnings for values that are valid but likely wrong.
//
// Parameters:
//   - logger: Logger instance for warning output
func (cfg *Config) ValidateWithWarnings(logger Logger) {
	if cfg.Telemetry.Timeout >= cfg.Interval {
		logger.Warn("telemetry timeout is not shorter than the pass interval, passes may overlap their deadline",
			"timeout", cfg.Telemetry.Timeout,
			"interval", cfg.Interval,
		)
	}

	for _, g := range cfg.Gateways {
		if g.MaxCapacityMbps <= 0 {
			logger.Warn("gateway has no capacity, every client bound to it overflows",
				"gateway", g.ID,
				"maxCapacityMbps", g.MaxCapacityMbps,
			)
		}
	}

	if cfg.Telemetry.PrometheusURL == "" && cfg.Telemetry.DefaultDemandMbps == 0 {
		logger.Warn("no telemetry configured and no default demand, unconfigured clients consume no headroom")
	}
}

// BuildGateways converts the gateway section into typed gateways.
//
// Returns:
//   - []types.Gateway: Gateways in configuration order
//   - error: ErrInvalidConfig wrapped with the offending gateway
func (cfg *Config) BuildGateways() ([]types.Gateway, error) {
	if len(cfg.Gateways) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, types.ErrNoGateways)
	}

	seen := make(map[string]struct{}, len(cfg.Gateways))
	out := make([]types.Gateway, 0, len(cfg.Gateways))
	for i, g := range cfg.Gateways {
		if g.ID == "" {
			return nil, fmt.Errorf("%w: gateway #%d has no id", ErrInvalidConfig, i)
		}
		if _, dup := seen[g.ID]; dup {
			return nil, fmt.Errorf("%w: %w: %s", ErrInvalidConfig, types.ErrDuplicateGateway, g.ID)
		}
		seen[g.ID] = struct{}{}

		gw := types.Gateway{
			ID:                 types.GatewayID(g.ID),
			OutputPort:         g.OutputPort,
			MaxCapacityMbps:    g.MaxCapacityMbps,
			BackgroundLoadMbps: g.BackgroundLoadMbps,
			Source:             g.Source,
		}

		if g.Address != "" {
			addr, err := netip.ParseAddr(g.Address)
			if err != nil {
				return nil, fmt.Errorf("%w: gateway %s address: %w", ErrInvalidConfig, g.ID, err)
			}
			gw.Address = addr
		}

		if g.MAC != "" {
			mac, err := net.ParseMAC(g.MAC)
			if err != nil {
				return nil, fmt.Errorf("%w: gateway %s mac: %w", ErrInvalidConfig, g.ID, err)
			}
			gw.MAC = mac
		}

		out = append(out, gw)
	}

	return out, nil
}

// BuildClients converts the client section into typed clients.
//
// Clients with a configured demand are resolved; the others are left for
// the demand resolver.
func (cfg *Config) BuildClients() ([]types.Client, error) {
	seen := make(map[netip.Addr]struct{}, len(cfg.Clients))
	out := make([]types.Client, 0, len(cfg.Clients))
	for i, c := range cfg.Clients {
		addr, err := netip.ParseAddr(c.Address)
		if err != nil {
			return nil, fmt.Errorf("%w: client #%d address: %w", ErrInvalidConfig, i, err)
		}
		if _, dup := seen[addr]; dup {
			return nil, fmt.Errorf("%w: duplicate client address %s", ErrInvalidConfig, addr)
		}
		seen[addr] = struct{}{}

		client := types.Client{
			TEID:    c.TEID,
			Address: addr,
			Source:  c.Source,
			Gateway: types.GatewayID(c.Gateway),
		}
		if c.DemandMbps != nil {
			client.Demand = types.KnownDemand(*c.DemandMbps)
		}

		out = append(out, client)
	}

	return out, nil
}

// LoadConfig loads configuration from a YAML file.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded configuration with defaults applied
//   - error: Error if file cannot be read, parsed or validated
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML configuration, applies defaults and validates it.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrInvalidConfig, err)
	}

	SetDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
