// Package gate implements the automatic-gate state machine: a two-direction
// motor driven between two limit switches, with commands arriving over a
// bounded queue and status published on every transition.
// This package has no hardware or network dependencies — sensors, motor,
// lamp, and publishing are injected interfaces, and time is always passed in.
package gate

import "strings"

// State is the gate state. Exactly one is active at any instant; transitions
// happen only inside the Controller's dispatch loop.
type State int

const (
	StateInitial State = iota
	StateError
	StateOpening
	StateOpen
	StateClosing
	StateClosed
	StateStopped
	StateUnknown
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "INITIAL"
	case StateError:
		return "ERROR"
	case StateOpening:
		return "OPENING"
	case StateOpen:
		return "OPEN"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	case StateStopped:
		return "STOPPED"
	case StateUnknown:
		return "UNKNOWN"
	}
	return "???"
}

// ErrorCode identifies why the controller entered StateError. It is set
// immediately before the transition and cleared only when ERROR is left
// through a fresh sensor read.
type ErrorCode int

const (
	ErrNone                    ErrorCode = 0
	ErrTimeoutOpen             ErrorCode = 1
	ErrTimeoutClose            ErrorCode = 2
	ErrLimitSwitchInconsistent ErrorCode = 3
	ErrStateGuardrail          ErrorCode = 99
)

// Command is a decoded gate command. Commands are transient: created by the
// network decoder, destroyed on dequeue.
type Command int

const (
	CmdNone Command = iota
	CmdOpen
	CmdClose
	CmdStop
	CmdToggle
	CmdLampOn
	CmdLampOff
)

func (c Command) String() string {
	switch c {
	case CmdOpen:
		return "OPEN"
	case CmdClose:
		return "CLOSE"
	case CmdStop:
		return "STOP"
	case CmdToggle:
		return "TOGGLE"
	case CmdLampOn:
		return "LAMP_ON"
	case CmdLampOff:
		return "LAMP_OFF"
	}
	return "NONE"
}

// ParseCommand maps a command name (case-insensitive) to a Command.
// Anything unrecognized maps to CmdNone.
func ParseCommand(s string) Command {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OPEN":
		return CmdOpen
	case "CLOSE":
		return CmdClose
	case "STOP":
		return CmdStop
	case "TOGGLE":
		return CmdToggle
	case "LAMP_ON":
		return CmdLampOn
	case "LAMP_OFF":
		return CmdLampOff
	}
	return CmdNone
}

// SensorSnapshot holds one debounced reading of both limit switches.
// Both true is not a legal state; the controller routes it to ERROR.
type SensorSnapshot struct {
	OpenActive   bool
	ClosedActive bool
}

// Direction is a motor intent.
type Direction int

const (
	DirStop Direction = iota
	DirOpen
	DirClose
)

func (d Direction) String() string {
	switch d {
	case DirOpen:
		return "OPEN"
	case DirClose:
		return "CLOSE"
	}
	return "STOP"
}

// Motor drives the gate actuator. Implementations must guarantee the two
// direction outputs are never simultaneously asserted.
type Motor interface {
	Drive(d Direction) error
}

// Lamp switches the courtesy lamp output.
type Lamp interface {
	Set(on bool) error
}

// SensorSource produces debounced limit-switch snapshots. A read may block
// for up to the debounce window.
type SensorSource interface {
	Snapshot() (SensorSnapshot, error)
}

// StatusSnapshot is the externally visible controller state.
type StatusSnapshot struct {
	State      State
	Err        ErrorCode
	Sensors    SensorSnapshot
	MotorOpen  bool
	MotorClose bool
	Lamp       bool
}

// Publisher receives status snapshots. PublishStatus fires on every state
// transition; PublishTelemetry fires on the periodic tick regardless of
// state changes. Implementations must not block the dispatch loop.
type Publisher interface {
	PublishStatus(s StatusSnapshot)
	PublishTelemetry(s StatusSnapshot)
}
