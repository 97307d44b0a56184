// Package sensor debounces the two limit-switch inputs into stable logical
// states. A read blocks the calling task for at least the debounce window,
// so it must only run on the state-machine task, never on a latency-critical
// callback.
package sensor

import (
	"fmt"
	"time"

	"github.com/wjvent/gate-controller/internal/gate"
)

// Line is the input a switch is wired to.
type Line interface {
	Value() (int, error)
}

// activeLevel is the raw level of a pressed limit switch. The switches pull
// the line low when the gate reaches them.
const activeLevel = 0

const (
	// DefaultWindow is how long a level must hold unchanged to count as stable.
	DefaultWindow = 20 * time.Millisecond
	// pollStep is the raw sampling interval inside a debounce read.
	pollStep = 5 * time.Millisecond
)

// Reader produces debounced snapshots of the open and closed limit switches.
type Reader struct {
	openSwitch   Line
	closedSwitch Line
	window       time.Duration
	step         time.Duration
	sleep        func(time.Duration)
}

// New creates a Reader. A window <= 0 uses DefaultWindow.
func New(openSwitch, closedSwitch Line, window time.Duration) *Reader {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Reader{
		openSwitch:   openSwitch,
		closedSwitch: closedSwitch,
		window:       window,
		step:         pollStep,
		sleep:        time.Sleep,
	}
}

// ReadStable polls the line until the raw level has held unchanged for the
// full debounce window, then returns it. The elapsed-stable counter resets
// on every raw change, so a bouncing contact extends the call; a stuck pin
// simply yields a stable but possibly wrong level, which the state machine's
// consistency check catches downstream.
func (r *Reader) ReadStable(l Line) (int, error) {
	stable, err := l.Value()
	if err != nil {
		return 0, fmt.Errorf("read line: %w", err)
	}
	var elapsed time.Duration
	for elapsed < r.window {
		r.sleep(r.step)
		v, err := l.Value()
		if err != nil {
			return 0, fmt.Errorf("read line: %w", err)
		}
		if v != stable {
			stable = v
			elapsed = 0
		} else {
			elapsed += r.step
		}
	}
	return stable, nil
}

// Snapshot reads both switches. It blocks for at least two debounce windows.
func (r *Reader) Snapshot() (gate.SensorSnapshot, error) {
	open, err := r.ReadStable(r.openSwitch)
	if err != nil {
		return gate.SensorSnapshot{}, fmt.Errorf("open switch: %w", err)
	}
	closed, err := r.ReadStable(r.closedSwitch)
	if err != nil {
		return gate.SensorSnapshot{}, fmt.Errorf("closed switch: %w", err)
	}
	return gate.SensorSnapshot{
		OpenActive:   open == activeLevel,
		ClosedActive: closed == activeLevel,
	}, nil
}
