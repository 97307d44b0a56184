// Package creds persists the device configuration — WiFi credentials, MQTT
// broker and topics, and the provisioning mode — durably across restarts.
// Everything is absent by default: callers must behave safely with empty
// values.
package creds

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

// Mode is the provisioning mode recorded for the next boot.
type Mode uint8

const (
	// ModeConfigAP boots the device into its configuration portal.
	ModeConfigAP Mode = 0
	// ModeStationOnly boots the device straight onto the configured network.
	ModeStationOnly Mode = 1
)

func (m Mode) String() string {
	if m == ModeStationOnly {
		return "STATION_ONLY"
	}
	return "CONFIG_AP"
}

// WiFi holds the station credentials.
type WiFi struct {
	SSID       string
	Passphrase string
}

// MQTT holds the broker address and topic names.
type MQTT struct {
	Broker         string
	CommandTopic   string
	StatusTopic    string
	TelemetryTopic string
}

// Storage keys. Stable: they are the device's persistent schema.
const (
	keyWiFiSSID    = "wifi_ssid"
	keyWiFiPass    = "wifi_pass"
	keyMQTTURI     = "mqtt_uri"
	keyTopicCmd    = "topic_cmd"
	keyTopicStatus = "topic_status"
	keyTopicTele   = "topic_tele"
	keyBootMode    = "boot_mode"
)

// Store is a SQLite-backed key/value store with a single connection.
type Store struct {
	db *sql.DB
}

// Open creates or opens the store at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil && !errors.Is(err, os.ErrNotExist) {
		db.Close()
		return nil, fmt.Errorf("chmod db path: %w", err)
	}
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS config (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create config table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO config(key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
`, key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// get returns "" for absent keys.
func (s *Store) get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// SaveWiFi persists the station credentials.
func (s *Store) SaveWiFi(ctx context.Context, w WiFi) error {
	if err := s.set(ctx, keyWiFiSSID, w.SSID); err != nil {
		return err
	}
	return s.set(ctx, keyWiFiPass, w.Passphrase)
}

// WiFi loads the station credentials; absent keys yield empty fields.
func (s *Store) WiFi(ctx context.Context) (WiFi, error) {
	ssid, err := s.get(ctx, keyWiFiSSID)
	if err != nil {
		return WiFi{}, err
	}
	pass, err := s.get(ctx, keyWiFiPass)
	if err != nil {
		return WiFi{}, err
	}
	return WiFi{SSID: ssid, Passphrase: pass}, nil
}

// SaveMQTT persists the broker address and topics.
func (s *Store) SaveMQTT(ctx context.Context, m MQTT) error {
	pairs := []struct{ key, value string }{
		{keyMQTTURI, m.Broker},
		{keyTopicCmd, m.CommandTopic},
		{keyTopicStatus, m.StatusTopic},
		{keyTopicTele, m.TelemetryTopic},
	}
	for _, p := range pairs {
		if err := s.set(ctx, p.key, p.value); err != nil {
			return err
		}
	}
	return nil
}

// MQTT loads the broker configuration; absent keys yield empty fields.
func (s *Store) MQTT(ctx context.Context) (MQTT, error) {
	var m MQTT
	var err error
	if m.Broker, err = s.get(ctx, keyMQTTURI); err != nil {
		return MQTT{}, err
	}
	if m.CommandTopic, err = s.get(ctx, keyTopicCmd); err != nil {
		return MQTT{}, err
	}
	if m.StatusTopic, err = s.get(ctx, keyTopicStatus); err != nil {
		return MQTT{}, err
	}
	if m.TelemetryTopic, err = s.get(ctx, keyTopicTele); err != nil {
		return MQTT{}, err
	}
	return m, nil
}

// SaveMode records the provisioning mode for the next boot.
func (s *Store) SaveMode(ctx context.Context, m Mode) error {
	return s.set(ctx, keyBootMode, strconv.Itoa(int(m)))
}

// Mode loads the provisioning mode. Absent or unparseable values yield
// ModeConfigAP, the safe default for an unconfigured device.
func (s *Store) Mode(ctx context.Context) (Mode, error) {
	v, err := s.get(ctx, keyBootMode)
	if err != nil {
		return ModeConfigAP, err
	}
	n, err := strconv.Atoi(v)
	if err != nil || n != int(ModeStationOnly) {
		return ModeConfigAP, nil
	}
	return ModeStationOnly, nil
}

// Wipe erases all credentials and records ModeConfigAP, returning the device
// to its configuration portal on next boot.
func (s *Store) Wipe(ctx context.Context) error {
	for _, key := range []string{keyWiFiSSID, keyWiFiPass, keyMQTTURI, keyTopicCmd, keyTopicStatus, keyTopicTele} {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM config WHERE key = ?`, key); err != nil {
			return fmt.Errorf("wipe %s: %w", key, err)
		}
	}
	return s.SaveMode(ctx, ModeConfigAP)
}
