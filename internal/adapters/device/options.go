package device

import (
	"context"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/net"

	"github.com/guardiansafety/aegis/pkg/logger"
)

// Option configures a SystemProbe.
type Option func(*SystemProbe)

// WithBatterySource wires an optional battery reading.
func WithBatterySource(fn BatteryFunc) Option {
	return func(p *SystemProbe) {
		if fn != nil {
			p.battery = fn
		}
	}
}

// WithInterfaceSource overrides how interfaces are enumerated.
func WithInterfaceSource(fn func(ctx context.Context) (net.InterfaceStatList, error)) Option {
	return func(p *SystemProbe) {
		if fn != nil {
			p.interfaces = fn
		}
	}
}

// WithHostInfoSource overrides how platform identity is read.
func WithHostInfoSource(fn func(ctx context.Context) (*host.InfoStat, error)) Option {
	return func(p *SystemProbe) {
		if fn != nil {
			p.hostInfo = fn
		}
	}
}

// WithWifiPrefixes replaces the wifi interface name heuristics.
func WithWifiPrefixes(prefixes ...string) Option {
	return func(p *SystemProbe) {
		if len(prefixes) > 0 {
			p.wifiPrefixes = prefixes
		}
	}
}

// WithCellularPrefixes replaces the cellular interface name heuristics.
func WithCellularPrefixes(prefixes ...string) Option {
	return func(p *SystemProbe) {
		if len(prefixes) > 0 {
			p.cellularPrefixes = prefixes
		}
	}
}

// WithEthernetPrefixes replaces the ethernet interface name heuristics.
func WithEthernetPrefixes(prefixes ...string) Option {
	return func(p *SystemProbe) {
		if len(prefixes) > 0 {
			p.ethernetPrefixes = prefixes
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(p *SystemProbe) {
		if l != nil {
			p.logger = l
		}
	}
}
