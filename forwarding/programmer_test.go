package forwarding

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c1ydehhx/upflb/internal/metrics"
	upflbtest "github.com/c1ydehhx/upflb/testing"
	"github.com/c1ydehhx/upflb/types"
)

type entryCounter struct {
	*metrics.NopMetrics
	counts map[string]int
}

func (c *entryCounter) RecordSwitchEntry(op string, success bool) {
	key := op + "/ok"
	if !success {
		key = op + "/fail"
	}
	c.counts[key]++
}

func testGateways(t *testing.T) []types.Gateway {
	t.Helper()

	mac1, err := net.ParseMAC("02:00:00:00:00:01")
	require.NoError(t, err)
	mac2, err := net.ParseMAC("02:00:00:00:00:02")
	require.NoError(t, err)

	return []types.Gateway{
		{ID: "upf-1", Address: netip.MustParseAddr("192.168.50.1"), MAC: mac1, OutputPort: 1, MaxCapacityMbps: 100},
		{ID: "upf-2", Address: netip.MustParseAddr("192.168.50.2"), MAC: mac2, OutputPort: 2, MaxCapacityMbps: 100},
	}
}

func bound(addr, gateway string) types.Client {
	return types.Client{
		TEID:    1,
		Address: netip.MustParseAddr(addr),
		Demand:  types.KnownDemand(1),
		Gateway: types.GatewayID(gateway),
	}
}

func TestProgrammer_Entry(t *testing.T) {
	gws := testGateways(t)
	p := NewProgrammer(upflbtest.NewRecordingSwitch(), gws, Config{})

	entry, err := p.Entry(bound("10.60.0.1", "upf-2"), gws[1])
	require.NoError(t, err)

	require.Equal(t, types.TableEntry{
		Table:  "ue_upf_binding_table",
		Keys:   []types.MatchKey{{Name: "hdr.inner_ipv4.src_addr", Value: 0x0a3c0001}},
		Action: "forward_to_upf",
		Data: []types.DataField{
			{Name: "dstMacAddr", Value: 0x020000000002},
			{Name: "dstIPAddr", Value: 0xc0a83202},
			{Name: "port", Value: 2},
		},
	}, entry)
}

func TestProgrammer_EntryCustomLayout(t *testing.T) {
	gws := testGateways(t)
	p := NewProgrammer(upflbtest.NewRecordingSwitch(), gws, Config{Table: "steer", MACField: "mac"})

	entry, err := p.Entry(bound("10.60.0.1", "upf-1"), gws[0])
	require.NoError(t, err)
	require.Equal(t, "steer", entry.Table)
	require.Equal(t, "forward_to_upf", entry.Action)
	require.Equal(t, "mac", entry.Data[0].Name)
	require.Equal(t, "dstIPAddr", entry.Data[1].Name)
}

func TestProgrammer_ApplyAddsAndModifies(t *testing.T) {
	sw := upflbtest.NewRecordingSwitch()
	counter := &entryCounter{NopMetrics: metrics.NewNop(), counts: map[string]int{}}
	p := NewProgrammer(sw, testGateways(t), Config{},
		WithLogger(upflbtest.NewTestLogger(t)),
		WithMetrics(counter),
	)
	ctx := context.Background()

	first := []types.Client{bound("10.60.0.1", "upf-1"), bound("10.60.0.2", "upf-2")}
	require.NoError(t, p.Apply(ctx, nil, first))

	calls := sw.Calls()
	require.Len(t, calls, 2)
	for _, c := range calls {
		require.Equal(t, upflbtest.OpAdd, c.Op)
	}

	sw.Reset()
	second := []types.Client{
		bound("10.60.0.1", "upf-2"), // moved
		bound("10.60.0.2", "upf-2"), // unchanged
		bound("10.60.0.3", "upf-1"), // new
	}
	require.NoError(t, p.Apply(ctx, first, second))

	calls = sw.Calls()
	require.Len(t, calls, 2)
	require.Equal(t, upflbtest.OpAdd, calls[0].Op)
	require.Equal(t, uint64(0x0a3c0003), calls[0].Entry.Keys[0].Value)
	require.Equal(t, upflbtest.OpModify, calls[1].Op)
	require.Equal(t, uint64(0x0a3c0001), calls[1].Entry.Keys[0].Value)
	require.Equal(t, uint64(2), calls[1].Entry.Data[2].Value)

	require.Equal(t, 3, counter.counts["add/ok"])
	require.Equal(t, 1, counter.counts["modify/ok"])
}

func TestProgrammer_ApplyUnchangedIsNoop(t *testing.T) {
	sw := upflbtest.NewRecordingSwitch()
	p := NewProgrammer(sw, testGateways(t), Config{})

	set := []types.Client{bound("10.60.0.1", "upf-1")}
	require.NoError(t, p.Apply(context.Background(), set, set))
	require.Empty(t, sw.Calls())
}

func TestProgrammer_ApplySkipsUnbound(t *testing.T) {
	sw := upflbtest.NewRecordingSwitch()
	p := NewProgrammer(sw, testGateways(t), Config{})

	unbound := bound("10.60.0.9", "")
	require.NoError(t, p.Apply(context.Background(), nil, []types.Client{unbound}))
	require.Empty(t, sw.Calls())
}

func TestProgrammer_ApplyCollectsFailures(t *testing.T) {
	errRejected := errors.New("table full")
	sw := upflbtest.NewRecordingSwitch()
	sw.Err = errRejected
	sw.FailOn[0x0a3c0001] = true

	counter := &entryCounter{NopMetrics: metrics.NewNop(), counts: map[string]int{}}
	p := NewProgrammer(sw, testGateways(t), Config{}, WithMetrics(counter))

	next := []types.Client{
		bound("10.60.0.1", "upf-1"),
		bound("10.60.0.2", "upf-9"),
		bound("10.60.0.3", "upf-2"),
	}
	err := p.Apply(context.Background(), nil, next)
	require.ErrorIs(t, err, errRejected)
	require.ErrorIs(t, err, types.ErrUnknownGateway)

	// The healthy entry is still written.
	calls := sw.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, uint64(0x0a3c0003), calls[0].Entry.Keys[0].Value)
	require.Equal(t, 1, counter.counts["add/ok"])
	require.Equal(t, 2, counter.counts["add/fail"])
}

func TestProgrammer_SetGateways(t *testing.T) {
	sw := upflbtest.NewRecordingSwitch()
	p := NewProgrammer(sw, nil, Config{})

	next := []types.Client{bound("10.60.0.1", "upf-1")}
	require.ErrorIs(t, p.Apply(context.Background(), nil, next), types.ErrUnknownGateway)

	p.SetGateways(testGateways(t))
	require.NoError(t, p.Apply(context.Background(), nil, next))
	require.Len(t, sw.Calls(), 1)
}

func TestProgrammer_ApplyCanceled(t *testing.T) {
	sw := upflbtest.NewRecordingSwitch()
	p := NewProgrammer(sw, testGateways(t), Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Apply(ctx, nil, []types.Client{bound("10.60.0.1", "upf-1")})
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, sw.Calls())
}

func TestLogClient(t *testing.T) {
	c := NewLogClient(upflbtest.NewTestLogger(t))
	entry := types.TableEntry{Table: "t", Keys: []types.MatchKey{{Name: "k", Value: 1}}}

	require.NoError(t, c.AddEntry(context.Background(), entry))
	require.NoError(t, c.ModifyEntry(context.Background(), entry))
}
