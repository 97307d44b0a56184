package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for the portal's status endpoint.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	State         string     `json:"state"`
	Err           int        `json:"err"`
	LSAOpen       bool       `json:"lsa_open"`
	LSCClosed     bool       `json:"lsc_closed"`
	MotorOpen     bool       `json:"motor_open"`
	MotorClose    bool       `json:"motor_close"`
	Lamp          bool       `json:"lamp"`
	Connectivity  string     `json:"connectivity"`
	Mode          string     `json:"mode"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Config        ConfigJSON `json:"config"`
}

// MQTTStatus reports broker connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	CommandTopic   string `json:"command_topic"`
	StatusTopic    string `json:"status_topic"`
	TelemetryTopic string `json:"telemetry_topic"`
	HTTPAddr       string `json:"http_addr"`
	Interface      string `json:"interface"`
	OpenTimeoutMs  int64  `json:"open_timeout_ms"`
	CloseTimeoutMs int64  `json:"close_timeout_ms"`
	DebounceMs     int64  `json:"debounce_ms"`
	TelemetryMs    int64  `json:"telemetry_ms"`
}

// FormatJSON returns the JSON status for the portal endpoint.
func FormatJSON(snap Snapshot) []byte {
	connectivity := snap.Connectivity
	if connectivity == "" {
		connectivity = "DISCONNECTED"
	}
	inner := StatusInner{
		State:         snap.Gate.State.String(),
		Err:           int(snap.Gate.Err),
		LSAOpen:       snap.Gate.Sensors.OpenActive,
		LSCClosed:     snap.Gate.Sensors.ClosedActive,
		MotorOpen:     snap.Gate.MotorOpen,
		MotorClose:    snap.Gate.MotorClose,
		Lamp:          snap.Gate.Lamp,
		Connectivity:  connectivity,
		Mode:          snap.Mode,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			CommandTopic:   snap.Config.CommandTopic,
			StatusTopic:    snap.Config.StatusTopic,
			TelemetryTopic: snap.Config.TelemetryTopic,
			HTTPAddr:       snap.Config.HTTPAddr,
			Interface:      snap.Config.Interface,
			OpenTimeoutMs:  snap.Config.OpenTimeoutMs,
			CloseTimeoutMs: snap.Config.CloseTimeoutMs,
			DebounceMs:     snap.Config.DebounceMs,
			TelemetryMs:    snap.Config.TelemetryMs,
		},
	}
	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}
