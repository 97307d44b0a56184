// Package motor translates a direction intent into mutually-exclusive
// actuator outputs. Driving both direction relays at once would short the
// motor windings, so every direction change deasserts the opposite output
// and waits a settle delay before asserting the new one.
package motor

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wjvent/gate-controller/internal/gate"
)

// Line is an output the driver writes.
type Line interface {
	SetValue(v int) error
}

// DefaultSettle is the minimum make-before-break delay.
const DefaultSettle = 10 * time.Millisecond

// Driver is the only path allowed to write the motor outputs.
type Driver struct {
	open   Line
	close  Line
	settle time.Duration
	sleep  func(time.Duration)
	log    *zap.Logger
}

// New creates a Driver. A settle <= 0 uses DefaultSettle.
func New(openLine, closeLine Line, settle time.Duration, log *zap.Logger) *Driver {
	if settle <= 0 {
		settle = DefaultSettle
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{
		open:   openLine,
		close:  closeLine,
		settle: settle,
		sleep:  time.Sleep,
		log:    log,
	}
}

// Drive applies a direction. DirStop deasserts both outputs immediately with
// no delay; DirOpen and DirClose deassert the opposite output first and hold
// the settle delay before asserting.
func (d *Driver) Drive(dir gate.Direction) error {
	switch dir {
	case gate.DirStop:
		if err := d.open.SetValue(0); err != nil {
			return fmt.Errorf("deassert open output: %w", err)
		}
		if err := d.close.SetValue(0); err != nil {
			return fmt.Errorf("deassert close output: %w", err)
		}
	case gate.DirOpen:
		if err := d.close.SetValue(0); err != nil {
			return fmt.Errorf("deassert close output: %w", err)
		}
		d.sleep(d.settle)
		if err := d.open.SetValue(1); err != nil {
			return fmt.Errorf("assert open output: %w", err)
		}
	case gate.DirClose:
		if err := d.open.SetValue(0); err != nil {
			return fmt.Errorf("deassert open output: %w", err)
		}
		d.sleep(d.settle)
		if err := d.close.SetValue(1); err != nil {
			return fmt.Errorf("assert close output: %w", err)
		}
	default:
		return fmt.Errorf("unknown direction %d", dir)
	}
	d.log.Debug("motor driven", zap.Stringer("direction", dir))
	return nil
}

// Lamp drives the courtesy lamp output.
type Lamp struct {
	line Line
}

// NewLamp wraps an output line.
func NewLamp(line Line) *Lamp {
	return &Lamp{line: line}
}

// Set switches the lamp.
func (l *Lamp) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := l.line.SetValue(v); err != nil {
		return fmt.Errorf("set lamp output: %w", err)
	}
	return nil
}
