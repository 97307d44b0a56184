// Package status provides a thread-safe status tracker for the gate daemon.
// It is read by the configuration portal's handlers.
package status

import (
	"sync"
	"time"

	"github.com/wjvent/gate-controller/internal/gate"
)

// Config contains daemon configuration for display.
type Config struct {
	Broker         string
	CommandTopic   string
	StatusTopic    string
	TelemetryTopic string
	HTTPAddr       string
	Interface      string
	OpenTimeoutMs  int64
	CloseTimeoutMs int64
	DebounceMs     int64
	TelemetryMs    int64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Gate          gate.StatusSnapshot
	Connectivity  string
	MQTTConnected bool
	WiFiSSID      string
	Mode          string
	StartTime     time.Time
	Now           time.Time
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex. It implements
// gate.Publisher so the controller feeds it on the same path as MQTT.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// PublishStatus records a state-transition snapshot.
func (t *Tracker) PublishStatus(s gate.StatusSnapshot) {
	t.mu.Lock()
	t.snap.Gate = s
	t.mu.Unlock()
}

// PublishTelemetry records a periodic snapshot.
func (t *Tracker) PublishTelemetry(s gate.StatusSnapshot) {
	t.mu.Lock()
	t.snap.Gate = s
	t.mu.Unlock()
}

// SetConnectivity records the network association state.
func (t *Tracker) SetConnectivity(state string) {
	t.mu.Lock()
	t.snap.Connectivity = state
	t.mu.Unlock()
}

// SetMQTTConnected records the broker connection state.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetWiFiSSID records the configured network name for display.
func (t *Tracker) SetWiFiSSID(ssid string) {
	t.mu.Lock()
	t.snap.WiFiSSID = ssid
	t.mu.Unlock()
}

// SetMode records the provisioning mode for display.
func (t *Tracker) SetMode(mode string) {
	t.mu.Lock()
	t.snap.Mode = mode
	t.mu.Unlock()
}

// SetBrokerConfig updates the displayed broker and topics after the portal
// applies new MQTT settings.
func (t *Tracker) SetBrokerConfig(broker, cmdTopic, statusTopic, teleTopic string) {
	t.mu.Lock()
	t.snap.Config.Broker = broker
	t.snap.Config.CommandTopic = cmdTopic
	t.snap.Config.StatusTopic = statusTopic
	t.snap.Config.TelemetryTopic = teleTopic
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
