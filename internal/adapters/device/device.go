// Package device probes host capabilities that feed safety decisions:
// the active network transport, an optional battery reading, and basic
// platform identity. Capabilities the platform does not expose stay nil
// rather than being guessed.
package device

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/net"

	"github.com/guardiansafety/aegis/internal/domain/connectivity"
	"github.com/guardiansafety/aegis/pkg/logger"
)

// Interface name prefixes used to classify the active transport. These are
// heuristics: an unrecognized interface still counts as online, just with
// an unknown transport label.
var (
	defaultWifiPrefixes     = []string{"wl", "wifi", "ath", "ap"}
	defaultCellularPrefixes = []string{"rmnet", "wwan", "pdp_ip", "ccmni"}
	defaultEthernetPrefixes = []string{"eth", "en", "em", "lan"}
)

// Capabilities is one sampled snapshot of the host's optional capability
// set. Pointer fields are nil when the platform exposes no such reading.
type Capabilities struct {
	BatteryLevel *int   `json:"battery_level,omitempty"`
	LowPowerMode *bool  `json:"low_power_mode,omitempty"`
	Transport    string `json:"transport"`
	// Interfaces counts usable paths: up, addressed, not loopback.
	Interfaces int       `json:"interfaces"`
	Platform   string    `json:"platform,omitempty"`
	SampledAt  time.Time `json:"sampled_at"`
}

// BatteryFunc supplies an optional battery reading. Either return may be
// nil when the platform cannot answer.
type BatteryFunc func(ctx context.Context) (level *int, lowPower *bool)

// interfaceFunc and hostInfoFunc exist so tests can script the host.
type (
	interfaceFunc func(ctx context.Context) (net.InterfaceStatList, error)
	hostInfoFunc  func(ctx context.Context) (*host.InfoStat, error)
)

// SystemProbe reads capabilities from the running host. It implements
// connectivity.Probe.
type SystemProbe struct {
	interfaces interfaceFunc
	hostInfo   hostInfoFunc
	battery    BatteryFunc

	wifiPrefixes     []string
	cellularPrefixes []string
	ethernetPrefixes []string

	logger logger.Logger
}

// NewSystemProbe creates a probe backed by the local system.
func NewSystemProbe(opts ...Option) *SystemProbe {
	p := &SystemProbe{
		interfaces:       net.InterfacesWithContext,
		hostInfo:         host.InfoWithContext,
		wifiPrefixes:     defaultWifiPrefixes,
		cellularPrefixes: defaultCellularPrefixes,
		ethernetPrefixes: defaultEthernetPrefixes,
		logger:           logger.Get().Named("device"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ActiveTransport classifies the current network path. It returns
// connectivity.TransportNone when no usable interface exists and wraps
// ErrProbeFailed when the host cannot be read at all.
func (p *SystemProbe) ActiveTransport(ctx context.Context) (string, error) {
	stats, err := p.interfaces(ctx)
	if err != nil {
		return connectivity.TransportUnknown, fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	transport, _ := p.classify(stats)
	return transport, nil
}

// Snapshot samples the full capability set. It never fails: unreadable
// capabilities fall back to their absent defaults.
func (p *SystemProbe) Snapshot(ctx context.Context) Capabilities {
	caps := Capabilities{
		Transport: connectivity.TransportUnknown,
		SampledAt: time.Now(),
	}

	if stats, err := p.interfaces(ctx); err != nil {
		p.logger.Warn(ctx, "interface scan failed", logger.Error(err))
	} else {
		caps.Transport, caps.Interfaces = p.classify(stats)
	}

	if info, err := p.hostInfo(ctx); err != nil {
		p.logger.Warn(ctx, "host info unavailable", logger.Error(err))
	} else if info != nil {
		caps.Platform = strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
	}

	if p.battery != nil {
		caps.BatteryLevel, caps.LowPowerMode = p.battery(ctx)
	}

	return caps
}

// classify picks the transport label for the best usable interface.
// Preference order: wifi, ethernet, cellular, then any other up interface.
func (p *SystemProbe) classify(stats net.InterfaceStatList) (string, int) {
	var usable int
	best := connectivity.TransportNone
	for _, stat := range stats {
		if !usableInterface(stat) {
			continue
		}
		usable++
		best = preferTransport(best, p.transportFor(stat.Name))
	}
	return best, usable
}

func (p *SystemProbe) transportFor(name string) string {
	name = strings.ToLower(name)
	switch {
	case hasAnyPrefix(name, p.wifiPrefixes):
		return connectivity.TransportWifi
	case hasAnyPrefix(name, p.cellularPrefixes):
		return connectivity.TransportCellular
	case hasAnyPrefix(name, p.ethernetPrefixes):
		return connectivity.TransportEthernet
	default:
		return connectivity.TransportUnknown
	}
}

// usableInterface requires an interface that is up, carries at least one
// address, and is not loopback.
func usableInterface(stat net.InterfaceStat) bool {
	if len(stat.Addrs) == 0 {
		return false
	}
	var up bool
	for _, flag := range stat.Flags {
		switch strings.ToLower(flag) {
		case "loopback":
			return false
		case "up":
			up = true
		}
	}
	return up
}

// transportRank orders labels for preference; higher wins.
func transportRank(t string) int {
	switch t {
	case connectivity.TransportWifi:
		return 4
	case connectivity.TransportEthernet:
		return 3
	case connectivity.TransportCellular:
		return 2
	case connectivity.TransportUnknown:
		return 1
	default:
		return 0
	}
}

func preferTransport(a, b string) string {
	if transportRank(b) > transportRank(a) {
		return b
	}
	return a
}

func hasAnyPrefix(name string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
