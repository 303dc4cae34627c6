// Package natsutil holds NATS connection helpers shared by the publisher and the CLI.
package natsutil

import (
	"errors"
	"net"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// ErrorKind groups NATS failures by how a caller should react to them.
type ErrorKind int

const (
	// KindNone is the kind of a nil error.
	KindNone ErrorKind = iota

	// KindConnectivity marks a server that cannot be reached right now.
	// The operation can be retried once the connection is back.
	KindConnectivity

	// KindMissingBucket marks a KV bucket or stream that no longer exists.
	// Retrying is pointless until the bucket is recreated.
	KindMissingBucket

	// KindOther is any other failure.
	KindOther
)

// String returns the kind as a log-friendly label.
func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindConnectivity:
		return "connectivity"
	case KindMissingBucket:
		return "missing-bucket"
	default:
		return "other"
	}
}

var connectivitySentinels = []error{
	nats.ErrTimeout,
	nats.ErrNoServers,
	nats.ErrDisconnected,
	nats.ErrConnectionClosed,
	nats.ErrConnectionReconnecting,
	jetstream.ErrNoStreamResponse,
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
}

var missingBucketSentinels = []error{
	jetstream.ErrBucketNotFound,
	jetstream.ErrStreamNotFound,
}

// Classify returns the kind of err.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	for _, target := range connectivitySentinels {
		if errors.Is(err, target) {
			return KindConnectivity
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindConnectivity
	}

	for _, target := range missingBucketSentinels {
		if errors.Is(err, target) {
			return KindMissingBucket
		}
	}

	return KindOther
}

// IsConnectivityError reports whether err is caused by the NATS server being unreachable.
func IsConnectivityError(err error) bool {
	return Classify(err) == KindConnectivity
}
