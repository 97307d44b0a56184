package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wjvent/gate-controller/internal/creds"
	"github.com/wjvent/gate-controller/internal/mqtt"
	"github.com/wjvent/gate-controller/internal/provision"
	"github.com/wjvent/gate-controller/internal/status"
)

// configApplier carries portal actions into storage, the watchdog, and the
// MQTT link. It implements portal.Applier.
type configApplier struct {
	store   *creds.Store
	wd      *provision.Watchdog
	client  *mqtt.Client
	tracker *status.Tracker
	restart func()
	log     *zap.Logger
}

func (a *configApplier) Current(ctx context.Context) (creds.WiFi, creds.MQTT, creds.Mode, error) {
	wifi, err := a.store.WiFi(ctx)
	if err != nil {
		return creds.WiFi{}, creds.MQTT{}, creds.ModeConfigAP, err
	}
	m, err := a.store.MQTT(ctx)
	if err != nil {
		return creds.WiFi{}, creds.MQTT{}, creds.ModeConfigAP, err
	}
	mode, err := a.store.Mode(ctx)
	if err != nil {
		return creds.WiFi{}, creds.MQTT{}, creds.ModeConfigAP, err
	}
	return wifi, m, mode, nil
}

// ApplyWiFi saves credentials and arms the watchdog. The mode stays
// CONFIG_AP until an acquired address proves the credentials; the watchdog
// persists STATION_ONLY on that event.
func (a *configApplier) ApplyWiFi(ctx context.Context, w creds.WiFi) error {
	if err := a.store.SaveWiFi(ctx, w); err != nil {
		return fmt.Errorf("save wifi: %w", err)
	}
	if err := a.store.SaveMode(ctx, creds.ModeConfigAP); err != nil {
		return fmt.Errorf("save mode: %w", err)
	}
	a.tracker.SetWiFiSSID(w.SSID)
	a.wd.ConnectStarted()
	a.log.Info("wifi credentials applied", zap.String("ssid", w.SSID))
	return nil
}

// ApplyMQTT merges non-empty fields over the stored configuration, saves it,
// and restarts the broker link. WiFi is untouched.
func (a *configApplier) ApplyMQTT(ctx context.Context, m creds.MQTT) error {
	current, err := a.store.MQTT(ctx)
	if err != nil {
		return fmt.Errorf("load mqtt: %w", err)
	}
	merged := mergeMQTT(current, m)
	if err := a.store.SaveMQTT(ctx, merged); err != nil {
		return fmt.Errorf("save mqtt: %w", err)
	}
	if err := a.client.Reconfigure(merged.Broker, mqtt.Topics{
		Command:   merged.CommandTopic,
		Status:    merged.StatusTopic,
		Telemetry: merged.TelemetryTopic,
	}); err != nil {
		return fmt.Errorf("restart mqtt: %w", err)
	}
	a.tracker.SetBrokerConfig(merged.Broker, merged.CommandTopic, merged.StatusTopic, merged.TelemetryTopic)
	a.log.Info("mqtt configuration applied", zap.String("broker", merged.Broker))
	return nil
}

func (a *configApplier) Wipe(ctx context.Context) error {
	if err := a.store.Wipe(ctx); err != nil {
		return fmt.Errorf("wipe store: %w", err)
	}
	a.log.Warn("credentials wiped, restarting into configuration mode")
	a.restart()
	return nil
}

func mergeMQTT(current, update creds.MQTT) creds.MQTT {
	if update.Broker != "" {
		current.Broker = update.Broker
	}
	if update.CommandTopic != "" {
		current.CommandTopic = update.CommandTopic
	}
	if update.StatusTopic != "" {
		current.StatusTopic = update.StatusTopic
	}
	if update.TelemetryTopic != "" {
		current.TelemetryTopic = update.TelemetryTopic
	}
	return current
}
