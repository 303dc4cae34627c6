package telemetry

import (
	"context"
	"fmt"
	"math"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"github.com/c1ydehhx/upflb/internal/logging"
	"github.com/c1ydehhx/upflb/types"
)

const (
	// DefaultMetricName is the node_exporter counter queried for transmit rates.
	DefaultMetricName = "node_network_transmit_bytes_total"

	// DefaultExporterPort is the node_exporter port appended to bare instance hosts.
	DefaultExporterPort = 9100

	// DefaultOverheadFactor accounts for framing overhead not seen by the byte counter.
	DefaultOverheadFactor = 1.07
)

// PrometheusSource implements types.LoadSource over the Prometheus HTTP API.
//
// For an instance and device it evaluates
//
//	rate(<metric>{instance="<host>:<port>", device="<device>"}[<window>])*8*<overhead>
//
// and reports the first sample in Mbps. An empty result vector means the
// series does not exist (yet) and yields 0.
type PrometheusSource struct {
	api      promv1.API
	metric   string
	port     int
	overhead float64
	logger   types.Logger
	now      func() time.Time
}

var _ types.LoadSource = (*PrometheusSource)(nil)

// PrometheusOption configures a PrometheusSource.
type PrometheusOption func(*PrometheusSource)

// WithMetricName sets the byte counter to rate.
func WithMetricName(name string) PrometheusOption {
	return func(s *PrometheusSource) {
		if name != "" {
			s.metric = name
		}
	}
}

// WithExporterPort sets the port appended to instances given without one.
// Zero leaves instances untouched.
func WithExporterPort(port int) PrometheusOption {
	return func(s *PrometheusSource) {
		s.port = port
	}
}

// WithOverheadFactor sets the multiplier applied to the measured bit rate.
func WithOverheadFactor(factor float64) PrometheusOption {
	return func(s *PrometheusSource) {
		if factor > 0 {
			s.overhead = factor
		}
	}
}

// WithPrometheusLogger sets the logger used for query warnings.
func WithPrometheusLogger(logger types.Logger) PrometheusOption {
	return func(s *PrometheusSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewPrometheusSource creates a source that queries the Prometheus server at address.
//
// Parameters:
//   - address: Base URL of the Prometheus server (e.g., "http://192.168.132.47:9090")
//   - opts: Optional configuration (WithMetricName, WithExporterPort, WithOverheadFactor, WithPrometheusLogger)
//
// Returns:
//   - *PrometheusSource: Source ready for use
//   - error: Invalid address
func NewPrometheusSource(address string, opts ...PrometheusOption) (*PrometheusSource, error) {
	client, err := api.NewClient(api.Config{Address: address})
	if err != nil {
		return nil, fmt.Errorf("create prometheus client for %s: %w", address, err)
	}

	return newPrometheusSource(promv1.NewAPI(client), opts...), nil
}

func newPrometheusSource(queryAPI promv1.API, opts ...PrometheusOption) *PrometheusSource {
	s := &PrometheusSource{
		api:      queryAPI,
		metric:   DefaultMetricName,
		port:     DefaultExporterPort,
		overhead: DefaultOverheadFactor,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Query builds the PromQL expression for instance and device.
func (s *PrometheusSource) Query(instance, device string, window time.Duration) string {
	return fmt.Sprintf(`rate(%s{instance=%q, device=%q}[%s])*8*%s`,
		s.metric,
		s.instance(instance),
		device,
		model.Duration(window),
		strconv.FormatFloat(s.overhead, 'f', -1, 64),
	)
}

// FetchRateMbps returns the transmit rate of device on instance in Mbps.
//
// Returns:
//   - float64: Rate in Mbps (0 when no series matches)
//   - error: types.ErrTelemetryUnavailable on transport failures,
//     types.ErrUnexpectedResult on a non-numeric answer
func (s *PrometheusSource) FetchRateMbps(ctx context.Context, instance, device string, window time.Duration) (float64, error) {
	query := s.Query(instance, device, window)

	value, warnings, err := s.api.Query(ctx, query, s.now())
	if err != nil {
		return 0, fmt.Errorf("%w: query %s: %w", types.ErrTelemetryUnavailable, query, err)
	}
	if len(warnings) > 0 {
		s.logger.Warn("prometheus query returned warnings", "query", query, "warnings", strings.Join(warnings, "; "))
	}

	if value == nil {
		return 0, fmt.Errorf("%w: empty response for %s", types.ErrUnexpectedResult, query)
	}

	var bps float64
	switch v := value.(type) {
	case model.Vector:
		if len(v) == 0 {
			return 0, nil
		}
		bps = float64(v[0].Value)
	case *model.Scalar:
		bps = float64(v.Value)
	default:
		return 0, fmt.Errorf("%w: %s result for %s", types.ErrUnexpectedResult, value.Type(), query)
	}

	if math.IsNaN(bps) || math.IsInf(bps, 0) {
		return 0, fmt.Errorf("%w: non-finite sample %v for %s", types.ErrUnexpectedResult, bps, query)
	}

	return bps / 1e6, nil
}

// instance appends the exporter port unless instance already has one.
func (s *PrometheusSource) instance(instance string) string {
	if s.port <= 0 {
		return instance
	}
	if _, _, err := net.SplitHostPort(instance); err == nil {
		return instance
	}

	return net.JoinHostPort(instance, strconv.Itoa(s.port))
}
