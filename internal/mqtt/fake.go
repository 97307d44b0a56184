package mqtt

import (
	"sync"

	"github.com/wjvent/gate-controller/internal/gate"
)

// FakePublisher records published snapshots for test assertions. It
// implements gate.Publisher.
type FakePublisher struct {
	mu sync.Mutex

	// Statuses contains every snapshot passed to PublishStatus.
	Statuses []gate.StatusSnapshot

	// Telemetry contains every snapshot passed to PublishTelemetry.
	Telemetry []gate.StatusSnapshot

	// Connected controls IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishStatus records the snapshot.
func (f *FakePublisher) PublishStatus(s gate.StatusSnapshot) {
	f.mu.Lock()
	f.Statuses = append(f.Statuses, s)
	f.mu.Unlock()
}

// PublishTelemetry records the snapshot.
func (f *FakePublisher) PublishTelemetry(s gate.StatusSnapshot) {
	f.mu.Lock()
	f.Telemetry = append(f.Telemetry, s)
	f.mu.Unlock()
}

// IsConnected reports the configured connection state.
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// LastStatus returns the most recent status snapshot, or false if none.
func (f *FakePublisher) LastStatus() (gate.StatusSnapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Statuses) == 0 {
		return gate.StatusSnapshot{}, false
	}
	return f.Statuses[len(f.Statuses)-1], true
}

// Reset clears recorded snapshots.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	f.Statuses = nil
	f.Telemetry = nil
	f.mu.Unlock()
}
