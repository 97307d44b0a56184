// Package gpio provides GPIO line access with hardware abstraction.
// The real implementation uses the Linux GPIO character device; fakes allow
// testing without hardware.
package gpio

// InputLine reads a digital input.
type InputLine interface {
	Value() (int, error)
	Close() error
}

// OutputLine writes a digital output.
type OutputLine interface {
	SetValue(v int) error
	Close() error
}

// DefaultChip is the GPIO character device name.
const DefaultChip = "gpiochip0"

// Default pin assignments (BCM numbering).
const (
	DefaultPinLimitOpen   = 23 // limit switch: gate fully open
	DefaultPinLimitClosed = 24 // limit switch: gate fully closed
	DefaultPinMotorOpen   = 17 // relay: drive open
	DefaultPinMotorClose  = 27 // relay: drive close
	DefaultPinLamp        = 22 // courtesy lamp
)
