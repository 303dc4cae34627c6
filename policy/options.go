package policy

import (
	"math/rand/v2"

	"github.com/c1ydehhx/upflb/internal/logging"
	"github.com/c1ydehhx/upflb/internal/metrics"
	"github.com/c1ydehhx/upflb/types"
)

// Option configures a policy.
//
// Options that a policy has no use for are ignored (Sticky has no randomness).
type Option func(*settings)

type settings struct {
	logger  types.Logger
	metrics types.MetricsCollector
	rng     types.RandSource
}

func newSettings(opts []Option) settings {
	s := settings{
		logger:  logging.NewNop(),
		metrics: metrics.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // tie-break only
	}

	return s
}

// WithLogger sets the logger used for per-client placement logs.
func WithLogger(logger types.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the collector that receives placement and headroom metrics.
func WithMetrics(collector types.MetricsCollector) Option {
	return func(s *settings) {
		if collector != nil {
			s.metrics = collector
		}
	}
}

// WithSeed makes the gateway shuffle reproducible.
//
// Two Swap policies built with the same seed produce identical bindings for
// identical input sequences.
func WithSeed(seed int64) Option {
	return func(s *settings) {
		u := uint64(seed) //nolint:gosec // bit pattern is all that matters
		s.rng = rand.New(rand.NewPCG(u, u)) //nolint:gosec // tie-break only
	}
}

// WithRandSource sets the source used to shuffle gateways.
//
// It overrides WithSeed. *math/rand.Rand and *math/rand/v2.Rand both qualify.
func WithRandSource(src types.RandSource) Option {
	return func(s *settings) {
		if src != nil {
			s.rng = src
		}
	}
}
