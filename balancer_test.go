package upflb

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/c1ydehhx/upflb/forwarding"
	"github.com/c1ydehhx/upflb/internal/metrics"
	"github.com/c1ydehhx/upflb/policy"
	"github.com/c1ydehhx/upflb/source"
	"github.com/c1ydehhx/upflb/telemetry"
	upflbtest "github.com/c1ydehhx/upflb/testing"
	"github.com/c1ydehhx/upflb/types"
)

type passRecorder struct {
	*metrics.NopMetrics

	mu             sync.Mutex
	headroom       map[string]float64
	headroomWrites int
	results        []string
}

func newPassRecorder() *passRecorder {
	return &passRecorder{NopMetrics: metrics.NewNop(), headroom: map[string]float64{}}
}

func (r *passRecorder) RecordHeadroom(gateway string, mbps float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.headroom[gateway] = mbps
	r.headroomWrites++
}

func (r *passRecorder) RecordRebalance(result string, _ float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

type fakePublisher struct {
	mu    sync.Mutex
	calls [][]types.Client
	err   error
}

func (p *fakePublisher) Publish(_ context.Context, clients []types.Client) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return false, p.err
	}
	p.calls = append(p.calls, types.CloneClients(clients))

	return true, nil
}

type countingSource struct {
	calls   atomic.Int32
	clients []types.Client
	err     error
	onCall  func(n int32)
}

func (s *countingSource) ListClients(_ context.Context) ([]types.Client, error) {
	n := s.calls.Add(1)
	if s.onCall != nil {
		s.onCall(n)
	}
	if s.err != nil {
		return nil, s.err
	}

	return types.CloneClients(s.clients), nil
}

func testGateway(t *testing.T, id string, last byte, capacity float64) types.Gateway {
	t.Helper()

	mac, err := net.ParseMAC("02:00:00:00:00:00")
	require.NoError(t, err)
	mac[5] = last

	return types.Gateway{
		ID:              types.GatewayID(id),
		Address:         netip.AddrFrom4([4]byte{192, 168, 50, last}),
		MAC:             mac,
		OutputPort:      uint32(last),
		MaxCapacityMbps: capacity,
	}
}

func testClient(last byte, mbps float64) types.Client {
	return types.Client{
		TEID:    uint32(last),
		Address: netip.AddrFrom4([4]byte{10, 60, 0, last}),
		Demand:  types.KnownDemand(mbps),
	}
}

func newSticky(t *testing.T) types.AssignmentPolicy {
	t.Helper()

	p, err := policy.New(policy.NameSticky)
	require.NoError(t, err)

	return p
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Interval = 10 * time.Millisecond
	cfg.Telemetry.Timeout = time.Millisecond

	return &cfg
}

func TestNewBalancer_Errors(t *testing.T) {
	gws := []types.Gateway{testGateway(t, "upf-1", 1, 10)}

	_, err := NewBalancer(nil, gws, newSticky(t))
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewBalancer(testConfig(), gws, nil)
	require.ErrorIs(t, err, ErrPolicyRequired)

	_, err = NewBalancer(testConfig(), nil, newSticky(t))
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.ErrorIs(t, err, types.ErrNoGateways)

	_, err = NewBalancer(testConfig(), append(gws, gws[0]), newSticky(t))
	require.ErrorIs(t, err, types.ErrDuplicateGateway)

	cfg := testConfig()
	cfg.Interval = -time.Second
	_, err = NewBalancer(cfg, gws, newSticky(t))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewBalancer_AppliesDefaults(t *testing.T) {
	b, err := NewBalancer(&Config{}, []types.Gateway{testGateway(t, "upf-1", 1, 10)}, newSticky(t))
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, b.cfg.Interval)
	require.Equal(t, "sticky", b.Policy())
}

func TestBalancer_RebalanceSticky(t *testing.T) {
	gws := []types.Gateway{testGateway(t, "G1", 1, 10), testGateway(t, "G2", 2, 10)}
	recorder := newPassRecorder()

	b, err := NewBalancer(testConfig(), gws, policy.NewSticky(policy.WithMetrics(recorder)),
		WithLogger(upflbtest.NewTestLogger(t)),
		WithMetrics(recorder),
	)
	require.NoError(t, err)

	clients := []types.Client{testClient(1, 7), testClient(2, 6), testClient(3, 5)}
	next, err := b.Rebalance(context.Background(), clients)
	require.NoError(t, err)

	require.Equal(t, []types.GatewayID{"G1", "G2", "G2"},
		[]types.GatewayID{next[0].Gateway, next[1].Gateway, next[2].Gateway})
	require.InDelta(t, 3, recorder.headroom["G1"], 1e-9)
	require.InDelta(t, -1, recorder.headroom["G2"], 1e-9)
	require.Equal(t, 2, recorder.headroomWrites, "only the policy writes the headroom gauge")
	require.Equal(t, []string{types.RebalanceSuccess}, recorder.results)

	// Input is untouched; the balancer keeps its own copy.
	require.False(t, clients[0].IsBound())
	next[0].Gateway = "mutated"
	require.Equal(t, types.GatewayID("G1"), b.Bindings()[0].Gateway)
}

func TestBalancer_RebalanceAssignmentFailure(t *testing.T) {
	pub := &fakePublisher{}
	recorder := newPassRecorder()
	b, err := NewBalancer(testConfig(), []types.Gateway{testGateway(t, "upf-1", 1, 10)}, newSticky(t),
		WithBindingPublisher(pub),
		WithMetrics(recorder),
	)
	require.NoError(t, err)

	unresolved := types.Client{TEID: 1, Address: netip.MustParseAddr("10.60.0.1")}
	next, err := b.Rebalance(context.Background(), []types.Client{unresolved})
	require.Nil(t, next)
	require.ErrorIs(t, err, ErrAssignmentFailed)
	require.ErrorIs(t, err, types.ErrUnresolvedDemand)
	require.Empty(t, pub.calls)
	require.Equal(t, []string{types.RebalanceFailure}, recorder.results)
}

func TestBalancer_RebalanceWithResolver(t *testing.T) {
	gw := testGateway(t, "upf-1", 1, 100)
	gw.Source = types.TrafficSource{Instance: "192.168.50.1", Device: "n6"}

	src := telemetry.NewStatic()
	src.Set("192.168.50.1", "n6", 40)
	src.Set("192.168.132.48", "uesimtun0", 25)

	resolver := telemetry.NewResolver(src, telemetry.ResolverConfig{DefaultDemandMbps: 5})
	recorder := newPassRecorder()

	b, err := NewBalancer(testConfig(), []types.Gateway{gw}, policy.NewSticky(policy.WithMetrics(recorder)),
		WithDemandResolver(resolver),
		WithMetrics(recorder),
	)
	require.NoError(t, err)

	measured := types.Client{
		TEID:    1,
		Address: netip.MustParseAddr("10.60.0.1"),
		Source:  types.TrafficSource{Instance: "192.168.132.48", Device: "uesimtun0"},
	}
	unmeasured := types.Client{TEID: 2, Address: netip.MustParseAddr("10.60.0.2")}

	next, err := b.Rebalance(context.Background(), []types.Client{measured, unmeasured})
	require.NoError(t, err)
	require.Equal(t, types.KnownDemand(25), next[0].Demand)
	require.Equal(t, types.KnownDemand(5), next[1].Demand)

	// 100 capacity - 40 background - 25 - 5
	require.InDelta(t, 30, recorder.headroom["upf-1"], 1e-9)
}

func TestBalancer_ProgramsOnlyChanges(t *testing.T) {
	gws := []types.Gateway{testGateway(t, "G1", 1, 10), testGateway(t, "G2", 2, 10)}
	sw := upflbtest.NewRecordingSwitch()
	programmer := forwarding.NewProgrammer(sw, gws, forwarding.Config{})

	b, err := NewBalancer(testConfig(), gws, newSticky(t), WithRuleProgrammer(programmer))
	require.NoError(t, err)
	ctx := context.Background()

	first, err := b.Rebalance(ctx, []types.Client{testClient(1, 7), testClient(2, 6)})
	require.NoError(t, err)
	require.Len(t, sw.Calls(), 2)

	sw.Reset()
	_, err = b.Rebalance(ctx, first)
	require.NoError(t, err)
	require.Empty(t, sw.Calls())

	moved := types.CloneClients(first)
	moved[0].Gateway = "G2"
	_, err = b.Rebalance(ctx, moved)
	require.NoError(t, err)

	calls := sw.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, upflbtest.OpModify, calls[0].Op)
}

func TestBalancer_ProgrammingFailureRetried(t *testing.T) {
	gws := []types.Gateway{testGateway(t, "G1", 1, 10), testGateway(t, "G2", 2, 10)}
	sw := upflbtest.NewRecordingSwitch()
	sw.Err = errors.New("thrift: connection refused")
	sw.FailOn[0x0a3c0002] = true
	programmer := forwarding.NewProgrammer(sw, gws, forwarding.Config{})

	recorder := newPassRecorder()
	b, err := NewBalancer(testConfig(), gws, newSticky(t), WithRuleProgrammer(programmer), WithMetrics(recorder))
	require.NoError(t, err)
	ctx := context.Background()

	next, err := b.Rebalance(ctx, []types.Client{testClient(1, 3), testClient(2, 3)})
	require.ErrorIs(t, err, ErrProgrammingFailed)
	require.Len(t, next, 2)
	require.True(t, next[1].IsBound())

	delete(sw.FailOn, 0x0a3c0002)
	sw.Reset()

	_, err = b.Rebalance(ctx, next)
	require.NoError(t, err)
	require.Len(t, sw.Calls(), 2)
	require.Equal(t, []string{types.RebalancePartial, types.RebalanceSuccess}, recorder.results)
}

func TestBalancer_Publish(t *testing.T) {
	pub := &fakePublisher{}
	b, err := NewBalancer(testConfig(), []types.Gateway{testGateway(t, "upf-1", 1, 10)}, newSticky(t),
		WithBindingPublisher(pub),
	)
	require.NoError(t, err)

	_, err = b.Rebalance(context.Background(), []types.Client{testClient(1, 1)})
	require.NoError(t, err)
	require.Len(t, pub.calls, 1)
	require.Equal(t, types.GatewayID("upf-1"), pub.calls[0][0].Gateway)

	pub.err = errors.New("nats: timeout")
	next, err := b.Rebalance(context.Background(), []types.Client{testClient(1, 1)})
	require.ErrorIs(t, err, ErrPublishFailed)
	require.Len(t, next, 1)
}

func TestBalancer_RunOnceCarriesBindings(t *testing.T) {
	gws := []types.Gateway{testGateway(t, "G1", 1, 10), testGateway(t, "G2", 2, 10)}
	b, err := NewBalancer(testConfig(), gws, newSticky(t))
	require.NoError(t, err)
	ctx := context.Background()

	src := source.NewStatic([]types.Client{testClient(1, 4)})
	first, err := b.RunOnce(ctx, src)
	require.NoError(t, err)
	require.Equal(t, types.GatewayID("G1"), first[0].Gateway)

	src.Update([]types.Client{testClient(1, 4), testClient(2, 4), testClient(3, 4)})
	second, err := b.RunOnce(ctx, src)
	require.NoError(t, err)

	// The source reports unbound clients; the first one keeps G1.
	require.Equal(t, types.GatewayID("G1"), second[0].Gateway)
	require.Equal(t, types.GatewayID("G2"), second[1].Gateway)
	require.Equal(t, types.GatewayID("G1"), second[2].Gateway)
}

func TestBalancer_RunOnceKeepsLastDemand(t *testing.T) {
	loads := telemetry.NewStatic()
	loads.Set("192.168.132.48", "uesimtun0", 9)
	resolver := telemetry.NewResolver(loads, telemetry.ResolverConfig{DefaultDemandMbps: 5, KeepLastOnError: true})

	b, err := NewBalancer(testConfig(), []types.Gateway{testGateway(t, "upf-1", 1, 100)}, newSticky(t),
		WithDemandResolver(resolver),
		WithLogger(upflbtest.NewTestLogger(t)),
	)
	require.NoError(t, err)
	ctx := context.Background()

	// Discovered UEs carry a traffic source but no demand.
	src := source.NewStatic([]types.Client{{
		TEID:    1,
		Address: netip.MustParseAddr("10.60.0.1"),
		Source:  types.TrafficSource{Instance: "192.168.132.48", Device: "uesimtun0"},
	}})

	first, err := b.RunOnce(ctx, src)
	require.NoError(t, err)
	require.Equal(t, types.KnownDemand(9), first[0].Demand)

	loads.Fail("192.168.132.48", "uesimtun0", errors.New("prometheus unreachable"))
	second, err := b.RunOnce(ctx, src)
	require.NoError(t, err)
	require.Equal(t, types.KnownDemand(9), second[0].Demand, "measured reading of the previous pass is kept")
	require.Equal(t, types.GatewayID("upf-1"), second[0].Gateway)
}

func TestBalancer_RunOnceSourceError(t *testing.T) {
	b, err := NewBalancer(testConfig(), []types.Gateway{testGateway(t, "upf-1", 1, 10)}, newSticky(t))
	require.NoError(t, err)

	errDiscovery := errors.New("ran unreachable")
	_, err = b.RunOnce(context.Background(), &countingSource{err: errDiscovery})
	require.ErrorIs(t, err, errDiscovery)
}

func TestBalancer_Run(t *testing.T) {
	b, err := NewBalancer(testConfig(), []types.Gateway{testGateway(t, "upf-1", 1, 10)}, newSticky(t),
		WithLogger(upflbtest.NewTestLogger(t)),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &countingSource{clients: []types.Client{testClient(1, 1)}}
	src.onCall = func(n int32) {
		if n == 3 {
			cancel()
		}
	}

	done := make(chan error, 1)
	go func() { done <- b.Run(ctx, src) }()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	require.GreaterOrEqual(t, src.calls.Load(), int32(3))
	require.Len(t, b.Bindings(), 1)
}

func TestBalancer_RunRetriesAfterFailure(t *testing.T) {
	b, err := NewBalancer(testConfig(), []types.Gateway{testGateway(t, "upf-1", 1, 10)}, newSticky(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &countingSource{err: errors.New("ran unreachable")}
	src.onCall = func(n int32) {
		if n == 2 {
			cancel()
		}
	}

	err = b.Run(ctx, src)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, int32(2), src.calls.Load())
	require.Empty(t, b.Bindings())
}
