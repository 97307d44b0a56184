package portal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wjvent/gate-controller/internal/creds"
	"github.com/wjvent/gate-controller/internal/gate"
	"github.com/wjvent/gate-controller/internal/status"
)

// fakeApplier records applied values without touching storage or the radio.
type fakeApplier struct {
	wifi    creds.WiFi
	mqtt    creds.MQTT
	mode    creds.Mode
	applied []string
	wiped   bool
}

func (a *fakeApplier) Current(context.Context) (creds.WiFi, creds.MQTT, creds.Mode, error) {
	return a.wifi, a.mqtt, a.mode, nil
}

func (a *fakeApplier) ApplyWiFi(_ context.Context, w creds.WiFi) error {
	a.wifi = w
	a.applied = append(a.applied, "wifi")
	return nil
}

func (a *fakeApplier) ApplyMQTT(_ context.Context, m creds.MQTT) error {
	a.mqtt = m
	a.applied = append(a.applied, "mqtt")
	return nil
}

func (a *fakeApplier) Wipe(context.Context) error {
	a.wiped = true
	return nil
}

func newTestServer() (*Server, *fakeApplier, *status.Tracker) {
	applier := &fakeApplier{
		wifi: creds.WiFi{SSID: "backyard"},
		mqtt: creds.MQTT{Broker: "tcp://broker.local:1883", CommandTopic: "gate/cmd"},
		mode: creds.ModeStationOnly,
	}
	tracker := status.NewTracker(time.Now(), status.Config{Broker: "tcp://broker.local:1883"})
	srv := New(":0", tracker, applier, nil)
	return srv, applier, tracker
}

func TestIndexShowsCurrentConfig(t *testing.T) {
	srv, _, tracker := newTestServer()
	tracker.PublishStatus(gate.StatusSnapshot{State: gate.StateClosed, Sensors: gate.SensorSnapshot{ClosedActive: true}})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "backyard")
	assert.Contains(t, body, "tcp://broker.local:1883")
	assert.Contains(t, body, "gate/cmd")
	assert.Contains(t, body, "CLOSED")
	assert.Contains(t, body, "STATION_ONLY")
}

func postForm(t *testing.T, srv *Server, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestApplyWiFi(t *testing.T) {
	srv, applier, _ := newTestServer()

	rec := postForm(t, srv, url.Values{
		"act":  {"wifi"},
		"ssid": {"frontyard"},
		"pass": {"hunter2"},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	require.Equal(t, []string{"wifi"}, applier.applied)
	assert.Equal(t, creds.WiFi{SSID: "frontyard", Passphrase: "hunter2"}, applier.wifi)
}

func TestApplyWiFiEmptySSIDRejected(t *testing.T) {
	srv, applier, _ := newTestServer()

	rec := postForm(t, srv, url.Values{"act": {"wifi"}, "ssid": {""}})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, applier.applied)

	// The follow-up GET surfaces the validation message.
	getRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(getRec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, getRec.Body.String(), "SSID is empty")
}

func TestApplyMQTT(t *testing.T) {
	srv, applier, _ := newTestServer()

	rec := postForm(t, srv, url.Values{
		"act":    {"mqtt"},
		"broker": {"tcp://other:1883"},
		"t1":     {"g/cmd"},
		"t2":     {"g/status"},
		"t3":     {"g/tele"},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, []string{"mqtt"}, applier.applied)
	assert.Equal(t, creds.MQTT{
		Broker:         "tcp://other:1883",
		CommandTopic:   "g/cmd",
		StatusTopic:    "g/status",
		TelemetryTopic: "g/tele",
	}, applier.mqtt)
}

func TestWipe(t *testing.T) {
	srv, applier, _ := newTestServer()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?wipe=1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, applier.wiped)
	assert.Contains(t, rec.Body.String(), "Credentials erased")
}

func TestStatusJSON(t *testing.T) {
	srv, _, tracker := newTestServer()
	tracker.PublishStatus(gate.StatusSnapshot{State: gate.StateOpening, MotorOpen: true})
	tracker.SetMQTTConnected(true)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status.json", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var decoded status.StatusJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, "OPENING", decoded.Status.State)
	assert.True(t, decoded.Status.MotorOpen)
	assert.True(t, decoded.Status.MQTT.Connected)
	assert.Equal(t, "tcp://broker.local:1883", decoded.Status.MQTT.Broker)
}

func TestUnknownPathIs404(t *testing.T) {
	srv, _, _ := newTestServer()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
