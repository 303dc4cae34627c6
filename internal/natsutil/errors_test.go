package natsutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}

	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"timeout", nats.ErrTimeout, KindConnectivity},
		{"wrapped no servers", fmt.Errorf("publish: %w", nats.ErrNoServers), KindConnectivity},
		{"closed", nats.ErrConnectionClosed, KindConnectivity},
		{"dial refused", fmt.Errorf("connect: %w", refused), KindConnectivity},
		{"context deadline", context.DeadlineExceeded, KindConnectivity},
		{"bucket gone", fmt.Errorf("put: %w", jetstream.ErrBucketNotFound), KindMissingBucket},
		{"unrelated", errors.New("json: unsupported value"), KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Classify(tt.err))
			require.Equal(t, tt.want == KindConnectivity, IsConnectivityError(tt.err))
		})
	}
}

func TestErrorKind_String(t *testing.T) {
	require.Equal(t, "none", KindNone.String())
	require.Equal(t, "connectivity", KindConnectivity.String())
	require.Equal(t, "missing-bucket", KindMissingBucket.String())
	require.Equal(t, "other", KindOther.String())
	require.Equal(t, "other", ErrorKind(42).String())
}
