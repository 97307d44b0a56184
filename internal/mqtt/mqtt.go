// Package mqtt carries the gate's command channel and status/telemetry
// publishing over an MQTT broker, with abstraction for testing.
package mqtt

import (
	"encoding/json"

	"github.com/wjvent/gate-controller/internal/gate"
)

// Topics names the three configurable topics. Any empty topic disables that
// direction; the core behaves safely with all of them unset.
type Topics struct {
	Command   string // subscription: decoded gate commands
	Status    string // publication: snapshot on every state transition
	Telemetry string // publication: periodic snapshot
}

// StatusPayload is the wire format published on every state transition.
type StatusPayload struct {
	State      string `json:"state"`
	LSAOpen    bool   `json:"lsa_open"`
	LSCClosed  bool   `json:"lsc_closed"`
	MotorOpen  bool   `json:"motor_open"`
	MotorClose bool   `json:"motor_close"`
	Err        int    `json:"err"`
}

// TelemetryPayload is the periodic wire format. Motor and error fields are
// status-only.
type TelemetryPayload struct {
	State     string `json:"state"`
	LSAOpen   bool   `json:"lsa_open"`
	LSCClosed bool   `json:"lsc_closed"`
}

// FormatStatus renders the status payload for a snapshot.
func FormatStatus(s gate.StatusSnapshot) ([]byte, error) {
	return json.Marshal(StatusPayload{
		State:      s.State.String(),
		LSAOpen:    s.Sensors.OpenActive,
		LSCClosed:  s.Sensors.ClosedActive,
		MotorOpen:  s.MotorOpen,
		MotorClose: s.MotorClose,
		Err:        int(s.Err),
	})
}

// FormatTelemetry renders the telemetry payload for a snapshot.
func FormatTelemetry(s gate.StatusSnapshot) ([]byte, error) {
	return json.Marshal(TelemetryPayload{
		State:     s.State.String(),
		LSAOpen:   s.Sensors.OpenActive,
		LSCClosed: s.Sensors.ClosedActive,
	})
}

// commandPayload is the inbound command message.
type commandPayload struct {
	Cmd string `json:"cmd"`
}

// DecodeCommand parses an inbound command message. Malformed JSON and
// unknown command names decode to CmdNone, which the caller discards.
func DecodeCommand(payload []byte) gate.Command {
	var msg commandPayload
	if err := json.Unmarshal(payload, &msg); err != nil {
		return gate.CmdNone
	}
	return gate.ParseCommand(msg.Cmd)
}
