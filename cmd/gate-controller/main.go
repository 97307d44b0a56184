// Command gate-controller drives an automatic gate between two limit
// switches, takes commands over MQTT, and serves a configuration portal for
// WiFi and broker provisioning.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/wjvent/gate-controller/internal/creds"
	"github.com/wjvent/gate-controller/internal/gate"
	"github.com/wjvent/gate-controller/internal/gpio"
	"github.com/wjvent/gate-controller/internal/motor"
	"github.com/wjvent/gate-controller/internal/mqtt"
	"github.com/wjvent/gate-controller/internal/portal"
	"github.com/wjvent/gate-controller/internal/provision"
	"github.com/wjvent/gate-controller/internal/sensor"
	"github.com/wjvent/gate-controller/internal/status"
)

// restartExitCode tells the service supervisor this is a requested device
// restart, not a crash. The unit re-reads the provisioning mode on start.
const restartExitCode = 3

func main() {
	// Optional .env for development; the service unit sets real env vars.
	_ = godotenv.Load()

	dbPath := flag.String("db", envOr("GATE_DB", "/var/lib/gate-controller/config.db"), "Credential store path")
	httpAddr := flag.String("http", envOr("GATE_HTTP", ":80"), "Configuration portal address (empty to disable)")
	iface := flag.String("iface", envOr("GATE_IFACE", "wlan0"), "Network interface supervised by the provisioning watchdog")
	chipName := flag.String("chip", envOr("GATE_CHIP", gpio.DefaultChip), "GPIO character device")
	pinLSA := flag.Int("pin-lsa", envOrInt("GATE_PIN_LSA", gpio.DefaultPinLimitOpen), "BCM pin: open limit switch")
	pinLSC := flag.Int("pin-lsc", envOrInt("GATE_PIN_LSC", gpio.DefaultPinLimitClosed), "BCM pin: closed limit switch")
	pinMotorA := flag.Int("pin-motor-open", envOrInt("GATE_PIN_MOTOR_OPEN", gpio.DefaultPinMotorOpen), "BCM pin: open relay")
	pinMotorC := flag.Int("pin-motor-close", envOrInt("GATE_PIN_MOTOR_CLOSE", gpio.DefaultPinMotorClose), "BCM pin: close relay")
	pinLamp := flag.Int("pin-lamp", envOrInt("GATE_PIN_LAMP", gpio.DefaultPinLamp), "BCM pin: courtesy lamp")
	debounce := flag.Duration("debounce", sensor.DefaultWindow, "Limit-switch debounce window")
	settle := flag.Duration("settle", motor.DefaultSettle, "Motor direction-change settle delay")
	tOpen := flag.Duration("t-open", gate.DefaultOpenTimeout, "Open travel timeout")
	tClose := flag.Duration("t-close", gate.DefaultCloseTimeout, "Close travel timeout")
	telemetry := flag.Duration("telemetry", gate.DefaultTelemetryInterval, "Telemetry republish interval")
	connectTimeout := flag.Duration("connect-timeout", provision.DefaultTimeout, "Provisioning watchdog timeout")
	printState := flag.Bool("print-state", false, "Print current sensor state and exit")
	dev := flag.Bool("dev", false, "Human-readable log output")

	flag.Parse()

	logger, err := newLogger(*dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	err = run(runConfig{
		dbPath:         *dbPath,
		httpAddr:       *httpAddr,
		iface:          *iface,
		chipName:       *chipName,
		pinLSA:         *pinLSA,
		pinLSC:         *pinLSC,
		pinMotorA:      *pinMotorA,
		pinMotorC:      *pinMotorC,
		pinLamp:        *pinLamp,
		debounce:       *debounce,
		settle:         *settle,
		tOpen:          *tOpen,
		tClose:         *tClose,
		telemetry:      *telemetry,
		connectTimeout: *connectTimeout,
		printState:     *printState,
	}, logger)
	if err != nil {
		logger.Fatal("fatal", zap.Error(err))
	}
}

type runConfig struct {
	dbPath         string
	httpAddr       string
	iface          string
	chipName       string
	pinLSA         int
	pinLSC         int
	pinMotorA      int
	pinMotorC      int
	pinLamp        int
	debounce       time.Duration
	settle         time.Duration
	tOpen          time.Duration
	tClose         time.Duration
	telemetry      time.Duration
	connectTimeout time.Duration
	printState     bool
}

func run(cfg runConfig, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// GPIO
	chip, err := gpio.OpenChip(cfg.chipName)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer chip.Close()

	lsaLine, err := chip.RequestInput(cfg.pinLSA)
	if err != nil {
		return fmt.Errorf("open limit switch: %w", err)
	}
	lscLine, err := chip.RequestInput(cfg.pinLSC)
	if err != nil {
		return fmt.Errorf("closed limit switch: %w", err)
	}
	sensors := sensor.New(lsaLine, lscLine, cfg.debounce)

	if cfg.printState {
		snap, err := sensors.Snapshot()
		if err != nil {
			return fmt.Errorf("read sensors: %w", err)
		}
		fmt.Printf("LSA(open): %s, LSC(closed): %s\n", activeString(snap.OpenActive), activeString(snap.ClosedActive))
		return nil
	}

	motorOpenLine, err := chip.RequestOutput(cfg.pinMotorA)
	if err != nil {
		return fmt.Errorf("motor open output: %w", err)
	}
	motorCloseLine, err := chip.RequestOutput(cfg.pinMotorC)
	if err != nil {
		return fmt.Errorf("motor close output: %w", err)
	}
	lampLine, err := chip.RequestOutput(cfg.pinLamp)
	if err != nil {
		return fmt.Errorf("lamp output: %w", err)
	}
	drv := motor.New(motorOpenLine, motorCloseLine, cfg.settle, logger)
	lamp := motor.NewLamp(lampLine)

	// Persistent configuration
	store, err := creds.Open(ctx, cfg.dbPath)
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}
	defer store.Close()

	wifi, err := store.WiFi(ctx)
	if err != nil {
		return fmt.Errorf("load wifi config: %w", err)
	}
	mqttCfg, err := store.MQTT(ctx)
	if err != nil {
		return fmt.Errorf("load mqtt config: %w", err)
	}
	mode, err := store.Mode(ctx)
	if err != nil {
		return fmt.Errorf("load provisioning mode: %w", err)
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		Broker:         mqttCfg.Broker,
		CommandTopic:   mqttCfg.CommandTopic,
		StatusTopic:    mqttCfg.StatusTopic,
		TelemetryTopic: mqttCfg.TelemetryTopic,
		HTTPAddr:       cfg.httpAddr,
		Interface:      cfg.iface,
		OpenTimeoutMs:  cfg.tOpen.Milliseconds(),
		CloseTimeoutMs: cfg.tClose.Milliseconds(),
		DebounceMs:     cfg.debounce.Milliseconds(),
		TelemetryMs:    cfg.telemetry.Milliseconds(),
	})
	tracker.SetWiFiSSID(wifi.SSID)
	tracker.SetMode(mode.String())

	restart := func() {
		logger.Warn("restart requested, exiting for supervisor restart")
		logger.Sync()
		os.Exit(restartExitCode)
	}

	// Provisioning watchdog + interface monitor
	watchdog := provision.NewWatchdog(cfg.connectTimeout, store, restart, logger)
	monitor := provision.NewInterfaceMonitor(cfg.iface, 0, watchdog, logger)
	go monitor.Run(ctx)
	go watchdog.Run(ctx)

	// Command queue and MQTT link
	queue := gate.NewQueue(gate.DefaultQueueDepth)
	client := mqtt.NewClient(
		func(cmd gate.Command) bool { return queue.TryEnqueue(cmd) },
		func() gate.StatusSnapshot { return tracker.Snapshot().Gate },
		logger,
	)
	defer client.Close()
	if mqttCfg.Broker != "" {
		if err := client.Start(mqttCfg.Broker, mqtt.Topics{
			Command:   mqttCfg.CommandTopic,
			Status:    mqttCfg.StatusTopic,
			Telemetry: mqttCfg.TelemetryTopic,
		}); err != nil {
			logger.Error("mqtt start failed, continuing without broker", zap.Error(err))
		}
	} else {
		logger.Info("mqtt not started: broker not configured")
	}

	// Configuration portal
	if cfg.httpAddr != "" {
		applier := &configApplier{
			store:   store,
			wd:      watchdog,
			client:  client,
			tracker: tracker,
			restart: restart,
			log:     logger,
		}
		srv := portal.New(cfg.httpAddr, tracker, applier, logger)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("portal server error", zap.Error(err))
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("configuration portal listening", zap.String("addr", cfg.httpAddr))
	}

	// Keep the tracker's connectivity view fresh for the portal.
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tracker.SetMQTTConnected(client.IsConnected())
				state, _ := watchdog.State()
				tracker.SetConnectivity(state.String())
			}
		}
	}()

	controller := gate.NewController(gate.Config{
		OpenTimeout:       cfg.tOpen,
		CloseTimeout:      cfg.tClose,
		TelemetryInterval: cfg.telemetry,
	}, drv, lamp, sensors, queue, fanout{tracker, client}, logger)

	logger.Info("started",
		zap.String("mode", mode.String()),
		zap.String("broker", mqttCfg.Broker),
		zap.Duration("t_open", cfg.tOpen),
		zap.Duration("t_close", cfg.tClose))

	done := make(chan error, 1)
	go func() { done <- controller.Run(ctx) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sigCh:
		logger.Info("received signal, shutting down", zap.String("signal", s.String()))
		cancel()
		<-done
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return nil
}

// fanout delivers controller snapshots to every publisher.
type fanout []gate.Publisher

func (f fanout) PublishStatus(s gate.StatusSnapshot) {
	for _, p := range f {
		p.PublishStatus(s)
	}
}

func (f fanout) PublishTelemetry(s gate.StatusSnapshot) {
	for _, p := range f {
		p.PublishTelemetry(s)
	}
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func activeString(active bool) string {
	if active {
		return "ACTIVE"
	}
	return "INACTIVE"
}
