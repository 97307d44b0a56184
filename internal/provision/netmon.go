package provision

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
)

// InterfaceMonitor polls a network interface and translates its state into
// the watchdog's connectivity events: link up without an address means
// CONNECTING, a global unicast address means CONNECTED.
type InterfaceMonitor struct {
	iface    string
	interval time.Duration
	wd       *Watchdog
	log      *zap.Logger

	last  Connectivity
	first bool
}

const defaultPollInterval = 2 * time.Second

// NewInterfaceMonitor creates a monitor for the named interface.
func NewInterfaceMonitor(iface string, interval time.Duration, wd *Watchdog, log *zap.Logger) *InterfaceMonitor {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &InterfaceMonitor{
		iface:    iface,
		interval: interval,
		wd:       wd,
		log:      log,
		first:    true,
	}
}

// Run polls until the context is cancelled, feeding edge events to the
// watchdog.
func (m *InterfaceMonitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	m.poll()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.poll()
		}
	}
}

func (m *InterfaceMonitor) poll() {
	state, ip := m.probe()
	if !m.first && state == m.last {
		return
	}
	m.first = false
	m.last = state

	switch state {
	case Connecting:
		m.wd.ConnectStarted()
	case Connected:
		m.wd.AddressAcquired(ip)
	default:
		m.wd.LinkLost("interface down")
	}
}

// probe classifies the interface. Errors (including a missing interface)
// count as disconnected.
func (m *InterfaceMonitor) probe() (Connectivity, string) {
	ifi, err := net.InterfaceByName(m.iface)
	if err != nil {
		return Disconnected, ""
	}
	if ifi.Flags&net.FlagUp == 0 {
		return Disconnected, ""
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		m.log.Warn("interface addrs", zap.String("iface", m.iface), zap.Error(err))
		return Connecting, ""
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		if ip := ipNet.IP.To4(); ip != nil && ip.IsGlobalUnicast() {
			return Connected, ip.String()
		}
	}
	return Connecting, ""
}
