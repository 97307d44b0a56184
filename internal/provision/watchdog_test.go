package provision

import (
	"context"
	"testing"
	"time"

	"github.com/wjvent/gate-controller/internal/creds"
)

// fakeModeStore records every persisted mode.
type fakeModeStore struct {
	modes []creds.Mode
}

func (s *fakeModeStore) SaveMode(_ context.Context, m creds.Mode) error {
	s.modes = append(s.modes, m)
	return nil
}

func (s *fakeModeStore) last() (creds.Mode, bool) {
	if len(s.modes) == 0 {
		return 0, false
	}
	return s.modes[len(s.modes)-1], true
}

func newTestWatchdog(at time.Time) (*Watchdog, *fakeModeStore, *int) {
	store := &fakeModeStore{}
	restarts := 0
	w := NewWatchdog(30*time.Second, store, func() { restarts++ }, nil)
	w.now = func() time.Time { return at }
	return w, store, &restarts
}

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestTimeoutRestartsIntoConfigMode(t *testing.T) {
	w, store, restarts := newTestWatchdog(t0)
	w.ConnectStarted()

	if w.Check(t0.Add(30 * time.Second)) {
		t.Fatal("fired at exactly the timeout")
	}
	if !w.Check(t0.Add(30*time.Second + 100*time.Millisecond)) {
		t.Fatal("did not fire past the timeout")
	}
	if *restarts != 1 {
		t.Errorf("restarts: got %d, want 1", *restarts)
	}
	if mode, ok := store.last(); !ok || mode != creds.ModeConfigAP {
		t.Errorf("persisted mode: got %v/%v, want CONFIG_AP", mode, ok)
	}
}

func TestTimeoutFiresAtMostOnce(t *testing.T) {
	w, _, restarts := newTestWatchdog(t0)
	w.ConnectStarted()

	deadline := t0.Add(31 * time.Second)
	w.Check(deadline)
	for i := 0; i < 5; i++ {
		if w.Check(deadline.Add(time.Duration(i) * time.Second)) {
			t.Fatal("fired again after restart request")
		}
	}
	if *restarts != 1 {
		t.Errorf("restarts: got %d, want 1", *restarts)
	}
}

func TestAddressAcquiredDisarmsAndPersistsStation(t *testing.T) {
	w, store, restarts := newTestWatchdog(t0)
	w.ConnectStarted()
	w.AddressAcquired("192.168.4.17")

	if state, _ := w.State(); state != Connected {
		t.Errorf("state: got %s, want CONNECTED", state)
	}
	if mode, ok := store.last(); !ok || mode != creds.ModeStationOnly {
		t.Errorf("persisted mode: got %v/%v, want STATION_ONLY", mode, ok)
	}
	if w.Check(t0.Add(time.Hour)) {
		t.Error("fired while connected")
	}
	if *restarts != 0 {
		t.Errorf("restarts: got %d, want 0", *restarts)
	}
}

func TestConnectStartedRearms(t *testing.T) {
	w, _, restarts := newTestWatchdog(t0)
	w.ConnectStarted()
	w.Check(t0.Add(31 * time.Second)) // first expiry

	// A fresh attempt re-arms from its own start time.
	later := t0.Add(time.Minute)
	w.now = func() time.Time { return later }
	w.ConnectStarted()

	if w.Check(later.Add(29 * time.Second)) {
		t.Fatal("fired before the new attempt's timeout")
	}
	if !w.Check(later.Add(31 * time.Second)) {
		t.Fatal("did not fire for the new attempt")
	}
	if *restarts != 2 {
		t.Errorf("restarts: got %d, want 2", *restarts)
	}
}

func TestLinkLostDoesNotArm(t *testing.T) {
	w, _, restarts := newTestWatchdog(t0)
	w.ConnectStarted()
	w.AddressAcquired("192.168.4.17")
	w.LinkLost("beacon loss")

	if state, _ := w.State(); state != Disconnected {
		t.Errorf("state: got %s, want DISCONNECTED", state)
	}
	if w.Check(t0.Add(time.Hour)) {
		t.Error("fired while disconnected")
	}
	if *restarts != 0 {
		t.Errorf("restarts: got %d, want 0", *restarts)
	}
}

func TestDisarmedWatchdogNeverFires(t *testing.T) {
	w, _, restarts := newTestWatchdog(t0)
	if w.Check(t0.Add(time.Hour)) {
		t.Error("fired without ConnectStarted")
	}
	if *restarts != 0 {
		t.Errorf("restarts: got %d, want 0", *restarts)
	}
}

func TestConnectivityString(t *testing.T) {
	tests := []struct {
		c    Connectivity
		want string
	}{
		{Disconnected, "DISCONNECTED"},
		{Connecting, "CONNECTING"},
		{Connected, "CONNECTED"},
	}
	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("String(%d): got %q, want %q", tt.c, got, tt.want)
		}
	}
}
