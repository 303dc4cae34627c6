package testing

import (
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"
)

// ServerOption adjusts the options of an embedded NATS server before it starts.
type ServerOption func(*server.Options)

// WithoutJetStream starts the server with JetStream disabled, for tests of
// behaviour against a server that cannot host KV buckets.
func WithoutJetStream() ServerOption {
	return func(o *server.Options) {
		o.JetStream = false
	}
}

// StartEmbeddedNATS starts an in-process JetStream-enabled NATS server on a
// random loopback port and connects a client to it.
//
// Both are stopped through t.Cleanup; the client is closed first.
//
// Example:
//
//	_, nc := upflbtest.StartEmbeddedNATS(t)
//	kv := upflbtest.CreateJetStreamKV(t, nc, "bindings")
func StartEmbeddedNATS(t *testing.T, opts ...ServerOption) (*server.Server, *nats.Conn) {
	t.Helper()

	sopts := &server.Options{
		ServerName: "upflb-test",
		Host:       "127.0.0.1",
		Port:       server.RANDOM_PORT,
		JetStream:  true,
		StoreDir:   t.TempDir(),
		NoLog:      true,
		NoSigs:     true,
	}
	for _, opt := range opts {
		opt(sopts)
	}

	ns, err := server.NewServer(sopts)
	require.NoError(t, err, "create embedded nats server")

	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		t.Fatal("embedded nats server not ready after 5s")
	}

	nc, err := nats.Connect(ns.ClientURL(), nats.Name(t.Name()), nats.Timeout(2*time.Second))
	if err != nil {
		ns.Shutdown()
		require.NoError(t, err, "connect to embedded nats server")
	}

	t.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	})

	return ns, nc
}

// CreateJetStreamKV creates a memory-backed KV bucket keeping one revision per key.
func CreateJetStreamKV(t *testing.T, nc *nats.Conn, bucket string) jetstream.KeyValue {
	t.Helper()

	js, err := jetstream.New(nc)
	require.NoError(t, err, "jetstream context")

	kv, err := js.CreateKeyValue(t.Context(), jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "upflb test bindings",
		History:     1,
		Storage:     jetstream.MemoryStorage,
	})
	require.NoError(t, err, "create kv bucket %s", bucket)

	return kv
}
