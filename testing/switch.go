package testing

import (
	"context"
	"sync"

	"github.com/c1ydehhx/upflb/types"
)

// Switch operations recorded by RecordingSwitch.
const (
	OpAdd    = "add"
	OpModify = "modify"
)

// SwitchCall is one call received by RecordingSwitch.
type SwitchCall struct {
	Op    string
	Entry types.TableEntry
}

// RecordingSwitch is a types.SwitchConfigClient that records every entry it receives.
//
// Set FailOn to make calls for a given match key value fail with Err.
// It is safe for concurrent use.
type RecordingSwitch struct {
	mu    sync.Mutex
	calls []SwitchCall

	// FailOn holds match key values whose entries are rejected.
	FailOn map[uint64]bool

	// Err is returned for rejected entries.
	Err error
}

var _ types.SwitchConfigClient = (*RecordingSwitch)(nil)

// NewRecordingSwitch returns an empty RecordingSwitch.
func NewRecordingSwitch() *RecordingSwitch {
	return &RecordingSwitch{FailOn: make(map[uint64]bool)}
}

// AddEntry records an add call.
func (s *RecordingSwitch) AddEntry(_ context.Context, entry types.TableEntry) error {
	return s.record(OpAdd, entry)
}

// ModifyEntry records a modify call.
func (s *RecordingSwitch) ModifyEntry(_ context.Context, entry types.TableEntry) error {
	return s.record(OpModify, entry)
}

func (s *RecordingSwitch) record(op string, entry types.TableEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range entry.Keys {
		if s.FailOn[k.Value] {
			return s.Err
		}
	}
	s.calls = append(s.calls, SwitchCall{Op: op, Entry: entry})

	return nil
}

// Calls returns a copy of the recorded calls in arrival order.
func (s *RecordingSwitch) Calls() []SwitchCall {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SwitchCall(nil), s.calls...)
}

// Reset forgets all recorded calls.
func (s *RecordingSwitch) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = nil
}
