// Package kvutil provides helpers for NATS JetStream KeyValue buckets.
package kvutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c1ydehhx/upflb/internal/natsutil"
)

const (
	defaultAttempts  = 3
	defaultBaseDelay = 10 * time.Millisecond
)

// EnsureBucket creates or opens a KV bucket, retrying transient failures.
//
// Several balancer replicas may start together and race to create the same
// bucket; losing that race is not an error, the existing bucket is opened.
// Between attempts the delay doubles starting from 10ms.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - js: JetStream context
//   - config: KV bucket configuration
//   - attempts: Maximum number of attempts (defaults to 3 when <= 0)
//
// Returns:
//   - jetstream.KeyValue: The KV bucket
//   - error: The last failure once all attempts are used, or the context error
//
// Example:
//
//	kv, err := kvutil.EnsureBucket(ctx, js, jetstream.KeyValueConfig{
//	    Bucket:  "upf-bindings",
//	    History: 1,
//	}, 3)
func EnsureBucket(
	ctx context.Context,
	js jetstream.JetStream,
	config jetstream.KeyValueConfig,
	attempts int,
) (jetstream.KeyValue, error) {
	if attempts <= 0 {
		attempts = defaultAttempts
	}

	delay := defaultBaseDelay
	var lastErr error
	for attempt := 1; ; attempt++ {
		kv, err := openOrCreate(ctx, js, config)
		if err == nil {
			return kv, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("ensure KV bucket %s: %w", config.Bucket, ctx.Err())
		}
		// Misconfiguration will not heal by waiting.
		if natsutil.Classify(err) == natsutil.KindOther && !errors.Is(err, jetstream.ErrBucketExists) {
			return nil, fmt.Errorf("ensure KV bucket %s: %w", config.Bucket, err)
		}
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("ensure KV bucket %s: %w", config.Bucket, ctx.Err())
		case <-timer.C:
		}
		delay *= 2
	}

	return nil, fmt.Errorf("ensure KV bucket %s after %d attempts: %w", config.Bucket, attempts, lastErr)
}

// openOrCreate creates the bucket, or opens it when another replica won the race.
func openOrCreate(ctx context.Context, js jetstream.JetStream, config jetstream.KeyValueConfig) (jetstream.KeyValue, error) {
	kv, err := js.CreateKeyValue(ctx, config)
	if !errors.Is(err, jetstream.ErrBucketExists) {
		return kv, err
	}

	kv, err = js.KeyValue(ctx, config.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%w, open failed: %w", jetstream.ErrBucketExists, err)
	}

	return kv, nil
}

// Keys lists the keys of kv. An empty bucket yields an empty slice, not an error.
func Keys(ctx context.Context, kv jetstream.KeyValue) ([]string, error) {
	keys, err := kv.Keys(ctx)
	if errors.Is(err, jetstream.ErrNoKeysFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	return keys, nil
}
