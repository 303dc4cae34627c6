package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c1ydehhx/upflb/internal/hash"
	"github.com/c1ydehhx/upflb/internal/kvutil"
	"github.com/c1ydehhx/upflb/internal/logging"
	"github.com/c1ydehhx/upflb/internal/metrics"
	"github.com/c1ydehhx/upflb/internal/natsutil"
	"github.com/c1ydehhx/upflb/types"
)

// Publish results recorded through types.PublisherMetrics.
const (
	ResultSuccess   = "success"
	ResultFailure   = "failure"
	ResultUnchanged = "unchanged"
)

const defaultKeyPrefix = "bindings"

// KVPublisher writes binding records to a JetStream KV bucket.
//
// Versions stay monotonic across restarts when DiscoverHighestVersion is
// called before the first Publish. KVPublisher is safe for concurrent use;
// publications are serialised.
type KVPublisher struct {
	kv        jetstream.KeyValue
	prefix    string
	keyPrefix string // cached "prefix."

	mu          sync.Mutex
	version     int64
	fingerprint uint64
	published   bool

	logger  types.Logger
	metrics types.PublisherMetrics
	now     func() time.Time
}

var _ types.BindingPublisher = (*KVPublisher)(nil)

// Option configures a KVPublisher.
type Option func(*KVPublisher)

// WithLogger sets the publisher logger.
func WithLogger(logger types.Logger) Option {
	return func(p *KVPublisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics sets the publisher metrics collector.
func WithMetrics(collector types.PublisherMetrics) Option {
	return func(p *KVPublisher) {
		if collector != nil {
			p.metrics = collector
		}
	}
}

// NewKVPublisher creates a publisher over an existing bucket.
//
// Parameters:
//   - kv: Bucket that receives the records
//   - prefix: Key prefix (defaults to "bindings" when empty)
//   - opts: Optional configuration (WithLogger, WithMetrics)
//
// Returns:
//   - *KVPublisher: Publisher ready for use
func NewKVPublisher(kv jetstream.KeyValue, prefix string, opts ...Option) *KVPublisher {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}

	p := &KVPublisher{
		kv:        kv,
		prefix:    prefix,
		keyPrefix: prefix + ".",
		logger:    logging.NewNop(),
		metrics:   metrics.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p
}

// Open ensures bucket exists and returns a publisher over it with its
// version counter recovered from the existing records.
//
// Parameters:
//   - ctx: Context for bucket creation and version discovery
//   - js: JetStream context
//   - bucket: Bucket name
//   - prefix: Key prefix
//   - opts: Optional configuration
//
// Returns:
//   - *KVPublisher: Publisher ready for use
//   - error: Bucket creation or discovery failure
func Open(ctx context.Context, js jetstream.JetStream, bucket, prefix string, opts ...Option) (*KVPublisher, error) {
	kv, err := kvutil.EnsureBucket(ctx, js, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "UE to UPF bindings",
		History:     1,
	}, 3)
	if err != nil {
		return nil, err
	}

	p := NewKVPublisher(kv, prefix, opts...)
	if err := p.DiscoverHighestVersion(ctx); err != nil {
		return nil, err
	}

	return p, nil
}

// DiscoverHighestVersion scans the bucket for the highest record version.
//
// Unreadable or malformed records are skipped.
func (p *KVPublisher) DiscoverHighestVersion(ctx context.Context) error {
	keys, err := kvutil.Keys(ctx, p.kv)
	if err != nil {
		return fmt.Errorf("failed to list KV keys: %w", err)
	}

	highest := int64(0)
	checked := 0
	for _, key := range keys {
		if !strings.HasPrefix(key, p.keyPrefix) {
			continue
		}

		checked++
		entry, err := p.kv.Get(ctx, key)
		if err != nil {
			p.logger.Debug("failed to read binding record", "key", key, "error", err)
			continue
		}

		var rec Record
		if err := json.Unmarshal(entry.Value(), &rec); err != nil {
			p.logger.Debug("failed to unmarshal binding record", "key", key, "error", err)
			continue
		}
		highest = max(highest, rec.Version)
	}

	p.mu.Lock()
	p.version = max(p.version, highest)
	p.mu.Unlock()

	if highest > 0 {
		p.logger.Info("discovered existing bindings", "highest_version", highest, "checked_keys", checked)
	}

	return nil
}

// Publish writes the bindings of clients.
//
// Unbound clients are skipped. When the binding fingerprint equals that of
// the last successful publication nothing is written.
//
// Returns:
//   - bool: true if records were written
//   - error: Marshal or KV failure (the fingerprint is not advanced)
func (p *KVPublisher) Publish(ctx context.Context, clients []types.Client) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fp := hash.Fingerprint(clients, 0)
	if p.published && fp == p.fingerprint {
		p.logger.Debug("bindings unchanged, skipping publish", "version", p.version)
		p.metrics.RecordPublish(ResultUnchanged)

		return false, nil
	}

	version := p.version + 1
	bindings := types.Bindings(clients)
	now := p.now().UTC()

	active := make(map[string]struct{}, len(bindings))
	for _, b := range bindings {
		key := p.keyPrefix + keyToken(b.Client.String())
		active[key] = struct{}{}

		data, err := json.Marshal(Record{
			Version:    version,
			Client:     b.Client.String(),
			TEID:       b.TEID,
			Gateway:    b.Gateway,
			DemandMbps: b.DemandMbps,
			UpdatedAt:  now,
		})
		if err != nil {
			p.metrics.RecordPublish(ResultFailure)
			return false, fmt.Errorf("failed to marshal binding record: %w", err)
		}

		if _, err := p.kv.Put(ctx, key, data); err != nil {
			p.metrics.RecordPublish(ResultFailure)
			switch natsutil.Classify(err) {
			case natsutil.KindConnectivity:
				p.logger.Warn("nats unreachable, bindings not published", "key", key, "error", err)
			case natsutil.KindMissingBucket:
				p.logger.Error("binding bucket is gone, restart to recreate it", "key", key, "error", err)
			}

			return false, fmt.Errorf("failed to publish binding %s: %w", key, err)
		}
	}

	deleted, err := p.deleteStale(ctx, active)
	if err != nil {
		// best-effort; stale records are retried on the next change
		p.logger.Warn("stale binding cleanup failed", "error", err)
	}

	p.version = version
	p.fingerprint = fp
	p.published = true
	p.metrics.RecordPublish(ResultSuccess)

	p.logger.Info("bindings published",
		"version", version,
		"clients", len(bindings),
		"deleted", deleted,
	)

	return true, nil
}

// Cleanup deletes every record under the prefix.
func (p *KVPublisher) Cleanup(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, err := p.deleteStale(ctx, nil)
	p.published = false

	return err
}

// CurrentVersion returns the version of the last written pass.
func (p *KVPublisher) CurrentVersion() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.version
}

// deleteStale removes records under the prefix whose key is not in active.
// A nil active set deletes everything under the prefix.
func (p *KVPublisher) deleteStale(ctx context.Context, active map[string]struct{}) (int, error) {
	keys, err := kvutil.Keys(ctx, p.kv)
	if err != nil {
		return 0, fmt.Errorf("failed to list keys: %w", err)
	}

	deleted := 0
	for _, key := range keys {
		if !strings.HasPrefix(key, p.keyPrefix) {
			continue
		}
		if _, keep := active[key]; keep {
			continue
		}

		if err := p.kv.Delete(ctx, key); err != nil {
			p.logger.Warn("failed to delete stale binding", "key", key, "error", err)
			continue
		}
		deleted++
	}

	return deleted, nil
}
