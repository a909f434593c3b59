package device

import (
	"context"
	"sync"
	"time"

	"github.com/guardiansafety/aegis/internal/domain/connectivity"
)

// StaticProbe is a scriptable capability source for simulations and tests.
// It implements connectivity.Probe.
type StaticProbe struct {
	mu        sync.Mutex
	transport string
	err       error
	battery   *int
	lowPower  *bool
	platform  string
}

// NewStaticProbe creates a probe that always reports the given transport.
func NewStaticProbe(transport string) *StaticProbe {
	if transport == "" {
		transport = connectivity.TransportWifi
	}
	return &StaticProbe{transport: transport, platform: "simulated"}
}

// SetTransport changes the reported transport.
func (p *StaticProbe) SetTransport(transport string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transport = transport
	p.err = nil
}

// SetError makes subsequent transport probes fail with err. A nil err
// clears the failure.
func (p *StaticProbe) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// SetBattery scripts the battery reading.
func (p *StaticProbe) SetBattery(level int, lowPower bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.battery = &level
	p.lowPower = &lowPower
}

// ClearBattery removes the battery reading, modelling a host without one.
func (p *StaticProbe) ClearBattery() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.battery = nil
	p.lowPower = nil
}

// ActiveTransport implements connectivity.Probe.
func (p *StaticProbe) ActiveTransport(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return connectivity.TransportUnknown, p.err
	}
	return p.transport, nil
}

// Snapshot returns the scripted capability set.
func (p *StaticProbe) Snapshot(context.Context) Capabilities {
	p.mu.Lock()
	defer p.mu.Unlock()

	caps := Capabilities{
		Transport: p.transport,
		Platform:  p.platform,
		SampledAt: time.Now(),
	}
	if p.err != nil {
		caps.Transport = connectivity.TransportUnknown
	}
	if p.transport != connectivity.TransportNone && p.err == nil {
		caps.Interfaces = 1
	}
	if p.battery != nil {
		level := *p.battery
		caps.BatteryLevel = &level
	}
	if p.lowPower != nil {
		low := *p.lowPower
		caps.LowPowerMode = &low
	}
	return caps
}
