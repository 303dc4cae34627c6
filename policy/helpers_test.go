package policy

import (
	"fmt"
	"net/netip"
	"sync"

	"github.com/c1ydehhx/upflb/internal/metrics"
	"github.com/c1ydehhx/upflb/types"
)

type recordingLogger struct {
	mu           sync.Mutex
	infoMessages []string
	warnMessages []string
}

func (l *recordingLogger) Debug(string, ...any) {}

func (l *recordingLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoMessages = append(l.infoMessages, msg)
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnMessages = append(l.warnMessages, msg)
}

func (l *recordingLogger) Error(string, ...any) {}

func (l *recordingLogger) Fatal(string, ...any) {}

type recordingMetrics struct {
	*metrics.NopMetrics

	mu       sync.Mutex
	results  map[string]int // "<gateway>/<result>" -> count
	headroom map[string]float64
	passes   int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		NopMetrics: metrics.NewNop(),
		results:    make(map[string]int),
		headroom:   make(map[string]float64),
	}
}

func (m *recordingMetrics) RecordAssignment(_, gateway, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[gateway+"/"+result]++
}

func (m *recordingMetrics) RecordPassDuration(string, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passes++
}

func (m *recordingMetrics) RecordHeadroom(gateway string, mbps float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headroom[gateway] = mbps
}

// identityRand leaves the gateway order untouched.
type identityRand struct{}

func (identityRand) Shuffle(int, func(i, j int)) {}

// reverseRand reverses the gateway order.
type reverseRand struct{}

func (reverseRand) Shuffle(n int, swap func(i, j int)) {
	for i := 0; i < n/2; i++ {
		swap(i, n-1-i)
	}
}

func gw(id string, capMbps, background float64) types.Gateway {
	return types.Gateway{ID: types.GatewayID(id), MaxCapacityMbps: capMbps, BackgroundLoadMbps: background}
}

func ue(n int, mbps float64) types.Client {
	return types.Client{
		TEID:    uint32(n), //nolint:gosec // test data
		Address: netip.MustParseAddr(fmt.Sprintf("10.60.0.%d", n)),
		Demand:  types.KnownDemand(mbps),
	}
}

func boundUE(n int, mbps float64, gateway string) types.Client {
	c := ue(n, mbps)
	c.Gateway = types.GatewayID(gateway)

	return c
}

func gatewaysOf(clients []types.Client) []types.GatewayID {
	out := make([]types.GatewayID, len(clients))
	for i, c := range clients {
		out[i] = c.Gateway
	}

	return out
}

// placedLoad sums the effective demand bound to each gateway.
func placedLoad(clients []types.Client) map[types.GatewayID]float64 {
	load := make(map[types.GatewayID]float64)
	for _, c := range clients {
		load[c.Gateway] += c.Demand.Effective()
	}

	return load
}
