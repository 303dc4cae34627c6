package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/c1ydehhx/upflb/types"
)

// Static is a types.LoadSource backed by a fixed rate table.
//
// Unknown series read as 0, matching a Prometheus query with no result.
// It is safe for concurrent use and is mostly useful offline and in tests.
type Static struct {
	mu     sync.RWMutex
	rates  map[string]float64
	failed map[string]error
}

var _ types.LoadSource = (*Static)(nil)

// NewStatic creates an empty static source.
func NewStatic() *Static {
	return &Static{
		rates:  make(map[string]float64),
		failed: make(map[string]error),
	}
}

// Set records the rate reported for instance and device.
func (s *Static) Set(instance, device string, mbps float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := seriesKey(instance, device)
	s.rates[key] = mbps
	delete(s.failed, key)
}

// Fail makes queries for instance and device return err wrapped in
// types.ErrTelemetryUnavailable.
func (s *Static) Fail(instance, device string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failed[seriesKey(instance, device)] = err
}

// FetchRateMbps returns the recorded rate. The window is ignored.
func (s *Static) FetchRateMbps(ctx context.Context, instance, device string, _ time.Duration) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	key := seriesKey(instance, device)
	if err, ok := s.failed[key]; ok {
		return 0, fmt.Errorf("%w: %s: %w", types.ErrTelemetryUnavailable, key, err)
	}

	return s.rates[key], nil
}

func seriesKey(instance, device string) string {
	return instance + "/" + device
}
