// Package geo provides positioning sources implementing track.Provider.
//
// The MVP ships with a deterministic simulated provider used by tests and
// the simulator. Platform providers (CoreLocation, fused location) slot in
// behind the same contract.
package geo

import (
	"context"
	"sync"
	"time"

	"github.com/guardiansafety/aegis/internal/domain/model"
	"github.com/guardiansafety/aegis/internal/domain/track"
)

// Default simulated provider configuration constants.
const (
	defaultSimLatitude  = 37.7749
	defaultSimLongitude = -122.4194
	defaultSimStep      = 0.0001
	defaultSimAccuracy  = 15.0
	defaultSimInterval  = time.Second
)

// SimProvider is a scriptable positioning source. Tests push fixes and
// errors directly; the simulator drives a self-advancing walk.
type SimProvider struct {
	mu         sync.Mutex
	permission track.Permission
	watcher    track.WatchFunc

	lat      float64
	lng      float64
	stepLat  float64
	stepLng  float64
	accuracy float64
	interval time.Duration
	now      func() time.Time

	walkDone chan struct{}
}

// NewSimProvider creates a simulated provider with configuration options.
func NewSimProvider(opts ...SimOption) *SimProvider {
	p := &SimProvider{
		permission: track.PermissionGranted,
		lat:        defaultSimLatitude,
		lng:        defaultSimLongitude,
		stepLat:    defaultSimStep,
		stepLng:    defaultSimStep,
		accuracy:   defaultSimAccuracy,
		interval:   defaultSimInterval,
		now:        time.Now,
	}

	// Apply all options
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Permission reports the simulated permission state.
func (p *SimProvider) Permission(_ context.Context) track.Permission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.permission
}

// SetPermission changes the simulated permission state.
func (p *SimProvider) SetPermission(perm track.Permission) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.permission = perm
}

// Watch registers fn as the single active watcher.
func (p *SimProvider) Watch(_ context.Context, fn track.WatchFunc) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.permission != track.PermissionGranted {
		return nil, track.ErrPermissionDenied
	}
	if p.watcher != nil {
		return nil, track.ErrWatchBusy
	}
	p.watcher = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.watcher = nil
	}, nil
}

// Emit delivers a fix to the active watcher, if any.
func (p *SimProvider) Emit(fix model.LocationSample) {
	p.mu.Lock()
	fn := p.watcher
	p.mu.Unlock()

	if fn != nil {
		fn(fix, nil)
	}
}

// EmitError delivers a device error to the active watcher, if any.
func (p *SimProvider) EmitError(err error) {
	p.mu.Lock()
	fn := p.watcher
	p.mu.Unlock()

	if fn != nil {
		fn(model.LocationSample{}, err)
	}
}

// Advance moves the walk one step and emits the resulting fix.
func (p *SimProvider) Advance() model.LocationSample {
	p.mu.Lock()
	p.lat += p.stepLat
	p.lng += p.stepLng
	fix := model.LocationSample{
		Latitude:  p.lat,
		Longitude: p.lng,
		Accuracy:  p.accuracy,
		Timestamp: p.now(),
	}
	fn := p.watcher
	p.mu.Unlock()

	if fn != nil {
		fn(fix, nil)
	}
	return fix
}

// StartWalk begins emitting fixes on the configured interval until the
// context is cancelled or StopWalk is called.
func (p *SimProvider) StartWalk(ctx context.Context) {
	p.mu.Lock()
	if p.walkDone != nil {
		p.mu.Unlock()
		return // already walking
	}
	done := make(chan struct{})
	p.walkDone = done
	interval := p.interval
	p.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.Advance()
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
	}()
}

// StopWalk halts a running walk. Safe to call when no walk is active.
func (p *SimProvider) StopWalk() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.walkDone != nil {
		close(p.walkDone)
		p.walkDone = nil
	}
}
