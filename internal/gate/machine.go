package gate

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Config holds controller timing. Zero values fall back to the defaults the
// gate hardware was tuned for.
type Config struct {
	// OpenTimeout / CloseTimeout bound a travel attempt, measured from the
	// moment the motor starts driving that direction. A mid-travel reversal
	// re-arms the deadline in full.
	OpenTimeout  time.Duration
	CloseTimeout time.Duration

	// TelemetryInterval is the unconditional republish period.
	TelemetryInterval time.Duration

	// MotionPoll / IdlePoll are the dispatch-loop sleep periods. They are a
	// scheduling contract, not an implementation detail: command latency and
	// travel-timeout precision are both ± one loop period.
	MotionPoll time.Duration
	IdlePoll   time.Duration
}

const (
	DefaultOpenTimeout       = 15 * time.Second
	DefaultCloseTimeout      = 15 * time.Second
	DefaultTelemetryInterval = 30 * time.Second
	DefaultMotionPoll        = 10 * time.Millisecond
	DefaultIdlePoll          = 20 * time.Millisecond
)

func (c Config) withDefaults() Config {
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = DefaultOpenTimeout
	}
	if c.CloseTimeout <= 0 {
		c.CloseTimeout = DefaultCloseTimeout
	}
	if c.TelemetryInterval <= 0 {
		c.TelemetryInterval = DefaultTelemetryInterval
	}
	if c.MotionPoll <= 0 {
		c.MotionPoll = DefaultMotionPoll
	}
	if c.IdlePoll <= 0 {
		c.IdlePoll = DefaultIdlePoll
	}
	return c
}

// Controller owns every mutable field of the gate state machine. All motor
// and lamp writes funnel through it; no other task may assert those outputs.
type Controller struct {
	cfg     Config
	motor   Motor
	lamp    Lamp
	sensors SensorSource
	queue   *Queue
	pub     Publisher
	log     *zap.Logger

	now   func() time.Time
	sleep func(time.Duration)

	state         State
	errCode       ErrorCode
	deadline      time.Time
	lastSensors   SensorSnapshot
	motorOpen     bool
	motorClose    bool
	lampOn        bool
	lastTelemetry time.Time
	started       bool
}

// NewController wires a controller in StateInitial. The motor is not touched
// until Run or the first Step.
func NewController(cfg Config, motor Motor, lamp Lamp, sensors SensorSource, queue *Queue, pub Publisher, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		cfg:     cfg.withDefaults(),
		motor:   motor,
		lamp:    lamp,
		sensors: sensors,
		queue:   queue,
		pub:     pub,
		log:     log,
		now:     time.Now,
		sleep:   time.Sleep,
		state:   StateInitial,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// LastError returns the most recent error code.
func (c *Controller) LastError() ErrorCode {
	return c.errCode
}

// Status returns the externally visible snapshot.
func (c *Controller) Status() StatusSnapshot {
	return StatusSnapshot{
		State:      c.state,
		Err:        c.errCode,
		Sensors:    c.lastSensors,
		MotorOpen:  c.motorOpen,
		MotorClose: c.motorClose,
		Lamp:       c.lampOn,
	}
}

// Run executes the dispatch loop until the context is cancelled. The loop
// sleeps MotionPoll while a travel is in progress and IdlePoll otherwise;
// travel deadlines are wall-clock comparisons re-evaluated every iteration,
// so there are no timer-cancellation races on reversal or STOP.
func (c *Controller) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			c.driveMotor(DirStop)
			c.log.Info("controller stopped", zap.Stringer("state", c.state))
			return err
		}
		c.Step(c.now())
		c.sleep(c.pollInterval())
	}
}

// startAt runs one-time setup on the first tick: outputs deasserted, lamp
// off, telemetry clock armed.
func (c *Controller) startAt(now time.Time) {
	if c.started {
		return
	}
	c.started = true
	c.driveMotor(DirStop)
	c.setLamp(false)
	c.lastTelemetry = now
}

func (c *Controller) pollInterval() time.Duration {
	if c.state == StateOpening || c.state == StateClosing {
		return c.cfg.MotionPoll
	}
	return c.cfg.IdlePoll
}

// Step performs one dispatch iteration at the given instant: read sensors,
// dispatch the current state's handler (which drains at most one queued
// command), run entry actions on a transition, and fire the telemetry tick.
// Exposed with an explicit time so the transition table is testable without
// sleeping.
func (c *Controller) Step(now time.Time) {
	c.startAt(now)

	snap, err := c.sensors.Snapshot()
	if err != nil {
		c.log.Warn("sensor read failed, skipping tick", zap.Error(err))
		return
	}
	c.lastSensors = snap

	// Handlers fetch the command lazily: a sensor-driven transition leaves
	// any pending command in the queue for the next tick, same as commands
	// arriving a moment later.
	fetched := false
	fetch := func() Command {
		if fetched {
			return CmdNone
		}
		fetched = true
		cmd, ok := c.queue.TryDequeue()
		if !ok {
			return CmdNone
		}
		switch cmd {
		case CmdLampOn:
			c.setLamp(true)
			return CmdNone
		case CmdLampOff:
			c.setLamp(false)
			return CmdNone
		}
		c.log.Debug("command fetched", zap.Stringer("cmd", cmd), zap.Stringer("state", c.state))
		return cmd
	}

	next := c.dispatch(snap, fetch, now)
	if next != c.state {
		c.transition(next, now)
	}

	if now.Sub(c.lastTelemetry) >= c.cfg.TelemetryInterval {
		c.lastTelemetry = now
		c.pub.PublishTelemetry(c.Status())
	}
}

func (c *Controller) dispatch(snap SensorSnapshot, fetch func() Command, now time.Time) State {
	switch c.state {
	case StateInitial:
		return c.stepInitial(snap)
	case StateOpen:
		return c.stepOpen(snap, fetch)
	case StateClosed:
		return c.stepClosed(snap, fetch)
	case StateOpening:
		return c.stepOpening(snap, fetch, now)
	case StateClosing:
		return c.stepClosing(snap, fetch, now)
	case StateStopped:
		return c.stepStopped(snap, fetch)
	case StateUnknown:
		return c.stepUnknown(snap, fetch)
	case StateError:
		return c.stepError(snap, fetch)
	}
	// Guardrail: a state outside the known set is a programming-invariant
	// violation, not a hardware condition.
	c.errCode = ErrStateGuardrail
	return StateError
}

// stepInitial classifies the first stable sensor read. No command is drained.
func (c *Controller) stepInitial(snap SensorSnapshot) State {
	switch {
	case snap.OpenActive && snap.ClosedActive:
		c.errCode = ErrLimitSwitchInconsistent
		return StateError
	case snap.OpenActive:
		return StateOpen
	case snap.ClosedActive:
		return StateClosed
	}
	return StateUnknown
}

func (c *Controller) stepOpen(snap SensorSnapshot, fetch func() Command) State {
	if snap.OpenActive && snap.ClosedActive {
		c.errCode = ErrLimitSwitchInconsistent
		return StateError
	}
	if snap.ClosedActive && !snap.OpenActive {
		return StateClosed
	}
	if !snap.OpenActive && !snap.ClosedActive {
		return StateUnknown
	}
	switch fetch() {
	case CmdClose, CmdToggle:
		return StateClosing
	}
	// OPEN and STOP are no-ops: already open, already stopped.
	return StateOpen
}

func (c *Controller) stepClosed(snap SensorSnapshot, fetch func() Command) State {
	if snap.OpenActive && snap.ClosedActive {
		c.errCode = ErrLimitSwitchInconsistent
		return StateError
	}
	if snap.OpenActive && !snap.ClosedActive {
		return StateOpen
	}
	if !snap.OpenActive && !snap.ClosedActive {
		return StateUnknown
	}
	switch fetch() {
	case CmdOpen, CmdToggle:
		return StateOpening
	}
	return StateClosed
}

func (c *Controller) stepOpening(snap SensorSnapshot, fetch func() Command, now time.Time) State {
	if snap.OpenActive && snap.ClosedActive {
		c.errCode = ErrLimitSwitchInconsistent
		return StateError
	}
	if snap.OpenActive {
		return StateOpen
	}
	if now.After(c.deadline) {
		c.errCode = ErrTimeoutOpen
		return StateError
	}
	switch fetch() {
	case CmdStop, CmdToggle:
		return StateStopped
	case CmdClose:
		// Reversal: entry into CLOSING switches the motor direction and
		// re-arms the deadline to the full close timeout.
		return StateClosing
	}
	return StateOpening
}

func (c *Controller) stepClosing(snap SensorSnapshot, fetch func() Command, now time.Time) State {
	if snap.OpenActive && snap.ClosedActive {
		c.errCode = ErrLimitSwitchInconsistent
		return StateError
	}
	if snap.ClosedActive {
		return StateClosed
	}
	if now.After(c.deadline) {
		c.errCode = ErrTimeoutClose
		return StateError
	}
	switch fetch() {
	case CmdStop, CmdToggle:
		return StateStopped
	case CmdOpen:
		return StateOpening
	}
	return StateClosing
}

func (c *Controller) stepStopped(snap SensorSnapshot, fetch func() Command) State {
	if snap.OpenActive && snap.ClosedActive {
		c.errCode = ErrLimitSwitchInconsistent
		return StateError
	}
	if snap.OpenActive && !snap.ClosedActive {
		return StateOpen
	}
	if snap.ClosedActive && !snap.OpenActive {
		return StateClosed
	}
	switch fetch() {
	case CmdOpen:
		return StateOpening
	case CmdClose:
		return StateClosing
	case CmdToggle:
		// Resume semantics: direction chosen by which end the gate rests at.
		if snap.ClosedActive {
			return StateOpening
		}
		return StateClosing
	}
	return StateStopped
}

func (c *Controller) stepUnknown(snap SensorSnapshot, fetch func() Command) State {
	if snap.OpenActive && snap.ClosedActive {
		c.errCode = ErrLimitSwitchInconsistent
		return StateError
	}
	if snap.OpenActive && !snap.ClosedActive {
		return StateOpen
	}
	if snap.ClosedActive && !snap.OpenActive {
		return StateClosed
	}
	switch fetch() {
	case CmdOpen, CmdToggle:
		return StateOpening
	case CmdClose:
		return StateClosing
	}
	return StateUnknown
}

// stepError waits for the sensors to resolve to a single active switch (or
// none), which clears the code, or for an operator override command, which
// retries travel with the code left intact.
func (c *Controller) stepError(snap SensorSnapshot, fetch func() Command) State {
	if !(snap.OpenActive && snap.ClosedActive) {
		c.errCode = ErrNone
		if snap.ClosedActive && !snap.OpenActive {
			return StateClosed
		}
		if snap.OpenActive && !snap.ClosedActive {
			return StateOpen
		}
		return StateUnknown
	}
	switch fetch() {
	case CmdOpen, CmdToggle:
		return StateOpening
	case CmdClose:
		return StateClosing
	}
	return StateError
}

func (c *Controller) transition(next State, now time.Time) {
	prev := c.state
	c.state = next
	c.enter(next, now)
	if next == StateError {
		c.log.Warn("entering ERROR",
			zap.Stringer("from", prev),
			zap.Int("code", int(c.errCode)))
	} else {
		c.log.Info("state changed",
			zap.Stringer("from", prev),
			zap.Stringer("to", next))
	}
	c.pub.PublishStatus(c.Status())
}

// enter runs the new state's entry action. Motion states start the motor and
// arm the travel deadline; every other state stops the motor.
func (c *Controller) enter(s State, now time.Time) {
	switch s {
	case StateOpening:
		c.driveMotor(DirOpen)
		c.deadline = now.Add(c.cfg.OpenTimeout)
	case StateClosing:
		c.driveMotor(DirClose)
		c.deadline = now.Add(c.cfg.CloseTimeout)
	case StateInitial:
	default:
		c.driveMotor(DirStop)
	}
}

func (c *Controller) driveMotor(d Direction) {
	if err := c.motor.Drive(d); err != nil {
		c.log.Error("motor drive failed", zap.Stringer("direction", d), zap.Error(err))
	}
	c.motorOpen = d == DirOpen
	c.motorClose = d == DirClose
}

func (c *Controller) setLamp(on bool) {
	if err := c.lamp.Set(on); err != nil {
		c.log.Error("lamp set failed", zap.Bool("on", on), zap.Error(err))
	}
	c.lampOn = on
}
