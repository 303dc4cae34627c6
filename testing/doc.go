// Package testing provides test utilities for upflb.
//
// It follows Go's convention of providing testing helpers in a dedicated
// package (similar to net/http/httptest).
//
// Key utilities:
//   - StartEmbeddedNATS: Single in-process NATS server with JetStream (WithoutJetStream to disable)
//   - CreateJetStreamKV: Convenience wrapper for KV bucket creation
//   - NewTestLogger: types.Logger that writes through t.Logf
//   - RecordingSwitch: types.SwitchConfigClient that records the entries it receives
//
// Example usage:
//
//	import (
//	    "testing"
//	    upflbtest "github.com/c1ydehhx/upflb/testing"
//	)
//
//	func TestPublisher(t *testing.T) {
//	    _, nc := upflbtest.StartEmbeddedNATS(t)
//	    kv := upflbtest.CreateJetStreamKV(t, nc, "upf-bindings")
//	    // ...
//	}
package testing
