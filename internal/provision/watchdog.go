// Package provision supervises network association. If the device sits in
// CONNECTING for too long without acquiring an address, the watchdog records
// configuration mode and requests a full restart — that is the only
// automatic-recovery path for a broken network configuration. There is no
// retry-with-backoff.
package provision

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wjvent/gate-controller/internal/creds"
)

// Connectivity is the network association state.
type Connectivity int

const (
	Disconnected Connectivity = iota
	Connecting
	Connected
)

func (c Connectivity) String() string {
	switch c {
	case Connecting:
		return "CONNECTING"
	case Connected:
		return "CONNECTED"
	}
	return "DISCONNECTED"
}

// ModeStore persists the provisioning mode across restarts.
type ModeStore interface {
	SaveMode(ctx context.Context, m creds.Mode) error
}

const (
	// DefaultTimeout is how long CONNECTING may last without an address.
	DefaultTimeout = 30 * time.Second
	// checkInterval is the watchdog tick. The timeout is a wall-clock
	// comparison re-evaluated each tick, not a scheduled callback.
	checkInterval = 500 * time.Millisecond
)

// Watchdog owns the connectivity state. Network-event callbacks are the only
// writers; the tick loop is the only other reader.
type Watchdog struct {
	mu        sync.Mutex
	state     Connectivity
	since     time.Time
	restarted bool

	timeout time.Duration
	store   ModeStore
	restart func()
	log     *zap.Logger
	now     func() time.Time
}

// NewWatchdog creates a disarmed watchdog. restart is invoked at most once
// per connection attempt when the timeout fires.
func NewWatchdog(timeout time.Duration, store ModeStore, restart func(), log *zap.Logger) *Watchdog {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watchdog{
		timeout: timeout,
		store:   store,
		restart: restart,
		log:     log,
		now:     time.Now,
	}
}

// ConnectStarted arms the watchdog: the device has begun associating.
func (w *Watchdog) ConnectStarted() {
	w.mu.Lock()
	w.state = Connecting
	w.since = w.now()
	w.restarted = false
	w.mu.Unlock()
	w.log.Info("connection attempt started, watchdog armed")
}

// AddressAcquired disarms the watchdog and persists station mode: the
// configuration is proven good.
func (w *Watchdog) AddressAcquired(ip string) {
	w.mu.Lock()
	w.state = Connected
	w.mu.Unlock()
	w.log.Info("address acquired, watchdog disarmed", zap.String("ip", ip))
	if err := w.store.SaveMode(context.Background(), creds.ModeStationOnly); err != nil {
		w.log.Error("persist station mode", zap.Error(err))
	}
}

// LinkLost marks the link down. It does not arm the watchdog: a previously
// proven configuration is left to the platform's own reconnect logic.
func (w *Watchdog) LinkLost(reason string) {
	w.mu.Lock()
	prev := w.state
	w.state = Disconnected
	w.mu.Unlock()
	w.log.Warn("link lost", zap.String("reason", reason), zap.Stringer("was", prev))
}

// State returns the connectivity state and when CONNECTING began.
func (w *Watchdog) State() (Connectivity, time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state, w.since
}

// Check evaluates the timeout at the given instant. On expiry it persists
// ModeConfigAP and requests exactly one restart, reporting true.
func (w *Watchdog) Check(now time.Time) bool {
	w.mu.Lock()
	expired := w.state == Connecting && !w.restarted && now.Sub(w.since) > w.timeout
	if expired {
		w.restarted = true
	}
	w.mu.Unlock()
	if !expired {
		return false
	}

	w.log.Warn("no address within timeout, returning to configuration mode",
		zap.Duration("timeout", w.timeout))
	if err := w.store.SaveMode(context.Background(), creds.ModeConfigAP); err != nil {
		w.log.Error("persist config mode", zap.Error(err))
	}
	w.restart()
	return true
}

// Run ticks the timeout check until the context is cancelled.
func (w *Watchdog) Run(ctx context.Context) error {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Check(w.now())
		}
	}
}
