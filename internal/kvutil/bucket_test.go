package kvutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	upflbtest "github.com/c1ydehhx/upflb/testing"
)

func TestEnsureBucket(t *testing.T) {
	_, nc := upflbtest.StartEmbeddedNATS(t)

	ctx := context.Background()
	js, err := jetstream.New(nc)
	require.NoError(t, err)

	t.Run("creates a missing bucket", func(t *testing.T) {
		kv, err := EnsureBucket(ctx, js, jetstream.KeyValueConfig{Bucket: "fresh", History: 1}, 0)
		require.NoError(t, err)
		require.Equal(t, "fresh", kv.Bucket())
	})

	t.Run("opens an existing bucket", func(t *testing.T) {
		cfg := jetstream.KeyValueConfig{Bucket: "existing", History: 1}
		first, err := EnsureBucket(ctx, js, cfg, 3)
		require.NoError(t, err)
		_, err = first.Put(ctx, "bindings.10.60.0.1", []byte("upf-1"))
		require.NoError(t, err)

		second, err := EnsureBucket(ctx, js, cfg, 3)
		require.NoError(t, err)
		entry, err := second.Get(ctx, "bindings.10.60.0.1")
		require.NoError(t, err)
		require.Equal(t, "upf-1", string(entry.Value()))
	})

	t.Run("concurrent replicas race for the same bucket", func(t *testing.T) {
		const replicas = 5
		cfg := jetstream.KeyValueConfig{Bucket: "contended", History: 1}

		var wg sync.WaitGroup
		errs := make(chan error, replicas)
		for i := 0; i < replicas; i++ {
			wg.Add(1) //nolint:revive // Standard pattern for concurrent operations
			go func() {
				defer wg.Done()
				_, err := EnsureBucket(ctx, js, cfg, 5)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}
	})

	t.Run("invalid bucket name fails without retrying", func(t *testing.T) {
		start := time.Now()
		_, err := EnsureBucket(ctx, js, jetstream.KeyValueConfig{Bucket: "bad name"}, 10)
		require.ErrorIs(t, err, jetstream.ErrInvalidBucketName)
		require.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithTimeout(ctx, time.Nanosecond)
		defer cancel()
		time.Sleep(time.Millisecond)

		_, err := EnsureBucket(cctx, js, jetstream.KeyValueConfig{Bucket: "never"}, 3)
		require.Error(t, err)
	})
}

func TestKeys(t *testing.T) {
	_, nc := upflbtest.StartEmbeddedNATS(t)
	kv := upflbtest.CreateJetStreamKV(t, nc, "keys")
	ctx := context.Background()

	keys, err := Keys(ctx, kv)
	require.NoError(t, err)
	require.Empty(t, keys)

	_, err = kv.Put(ctx, "bindings.10.60.0.1", []byte("x"))
	require.NoError(t, err)
	_, err = kv.Put(ctx, "bindings.10.60.0.2", []byte("y"))
	require.NoError(t, err)

	keys, err = Keys(ctx, kv)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"bindings.10.60.0.1", "bindings.10.60.0.2"}, keys)
}
