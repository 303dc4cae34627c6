package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/c1ydehhx/upflb/internal/logging"
	"github.com/c1ydehhx/upflb/types"
)

const (
	// DefaultRANPort is the port of the RAN simulator's tunnel listing.
	DefaultRANPort = 48763

	// DefaultTunnelPrefix selects UE tunnel devices in the listing.
	DefaultTunnelPrefix = "uesimtun"
)

// RANClient lists the UE tunnels that RAN simulators have brought up.
//
// A RAN answers GET http://<endpoint>:<port>/ with a JSON object mapping each
// interface name to its addresses:
//
//	{"uesimtun0": ["10.60.0.1"], "eth0": ["192.168.132.30"]}
type RANClient struct {
	http   *http.Client
	port   int
	prefix string
	logger types.Logger
}

// RANOption configures a RANClient.
type RANOption func(*RANClient)

// WithHTTPClient sets the HTTP client used for listing requests.
func WithHTTPClient(client *http.Client) RANOption {
	return func(c *RANClient) {
		if client != nil {
			c.http = client
		}
	}
}

// WithRANPort sets the listing port.
func WithRANPort(port int) RANOption {
	return func(c *RANClient) {
		if port > 0 {
			c.port = port
		}
	}
}

// WithTunnelPrefix sets the substring that identifies UE tunnel devices.
func WithTunnelPrefix(prefix string) RANOption {
	return func(c *RANClient) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithRANLogger sets the logger used for skipped entries.
func WithRANLogger(logger types.Logger) RANOption {
	return func(c *RANClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewRANClient creates a RAN discovery client.
func NewRANClient(opts ...RANOption) *RANClient {
	c := &RANClient{
		http:   &http.Client{Timeout: 5 * time.Second},
		port:   DefaultRANPort,
		prefix: DefaultTunnelPrefix,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// FetchTunnels returns the UE tunnels listed by the RAN at endpoint, sorted by device.
//
// endpoint is a host, or host:port to override the configured port. Devices
// without an address or with an unparsable first address are skipped.
func (c *RANClient) FetchTunnels(ctx context.Context, endpoint string) ([]types.Tunnel, error) {
	url := "http://" + c.hostPort(endpoint) + "/"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build RAN request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrTelemetryUnavailable, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %s: status %d", types.ErrTelemetryUnavailable, url, resp.StatusCode)
	}

	var listing map[string][]string
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", types.ErrUnexpectedResult, url, err)
	}

	tunnels := make([]types.Tunnel, 0, len(listing))
	for device, addrs := range listing {
		if !strings.Contains(device, c.prefix) {
			continue
		}
		if len(addrs) == 0 {
			c.logger.Debug("tunnel device has no address", "endpoint", endpoint, "device", device)
			continue
		}
		addr, err := netip.ParseAddr(addrs[0])
		if err != nil {
			c.logger.Warn("skipping tunnel with invalid address", "endpoint", endpoint, "device", device, "address", addrs[0])
			continue
		}
		tunnels = append(tunnels, types.Tunnel{Device: device, Address: addr})
	}

	slices.SortFunc(tunnels, func(a, b types.Tunnel) int {
		return strings.Compare(a.Device, b.Device)
	})

	return tunnels, nil
}

func (c *RANClient) hostPort(endpoint string) string {
	if _, _, err := net.SplitHostPort(endpoint); err == nil {
		return endpoint
	}

	return net.JoinHostPort(endpoint, strconv.Itoa(c.port))
}
