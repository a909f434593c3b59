// Package track manages the device location stream lifecycle.
//
// A Tracker shares one device subscription across any number of logical
// streams: the first stream acquires the watch, the last one out releases
// it. Device fixes are validated as they arrive; the freshest good fix is
// replayed to every stream at the cadence of that stream's tracking mode.
// Switching modes re-arms a stream's cadence without touching the device
// subscription.
package track

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/guardiansafety/aegis/internal/domain/model"
	"github.com/guardiansafety/aegis/pkg/logger"
	"github.com/guardiansafety/aegis/pkg/metrics"
)

// Default tracker configuration constants.
const (
	defaultNormalInterval    = 30 * time.Second
	defaultEmergencyInterval = 10 * time.Second
	defaultAccuracyCeiling   = 1000.0 // meters
	defaultStreamBuffer      = 16
)

// Permission is the device location permission state.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionPrompt  Permission = "prompt"
)

// WatchFunc receives device fixes and device errors. Exactly one of fix or
// err is meaningful per call: err == nil carries a fix, err != nil reports a
// device failure and the fix is zero.
type WatchFunc func(fix model.LocationSample, err error)

// Provider is a continuous positioning source. Implementations live under
// internal/adapters/geo.
type Provider interface {
	// Permission reports the current permission state without prompting.
	Permission(ctx context.Context) Permission

	// Watch starts continuous fix delivery to fn and returns a stop
	// function that releases the device subscription. Watch fails with
	// ErrPermissionDenied when location permission is missing, and with
	// ErrWatchBusy when another watch already holds the device.
	Watch(ctx context.Context, fn WatchFunc) (func(), error)
}

// Update is one stream emission: a location sample, or a non-fatal stream
// error when the device could not produce a usable fix.
type Update struct {
	Sample model.LocationSample
	Err    error
}

// Stream is a live sequence of location updates at the mode cadence.
type Stream struct {
	id      string
	mu      sync.RWMutex
	mode    model.TrackingMode
	updates chan Update
	rearm   chan struct{}
	done    chan struct{}
}

// ID identifies the stream for StopTracking and SetMode.
func (s *Stream) ID() string {
	return s.id
}

// Updates returns the channel carrying stream emissions. It is closed after
// the stream stops.
func (s *Stream) Updates() <-chan Update {
	return s.updates
}

// Done is closed when the stream has been stopped.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Mode reports the stream's current tracking mode.
func (s *Stream) Mode() model.TrackingMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *Stream) setMode(mode model.TrackingMode) {
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()

	// Nudge the emit loop so the new cadence takes effect immediately.
	select {
	case s.rearm <- struct{}{}:
	default:
	}
}

// Tracker validates device fixes and fans them out on per-stream cadences.
type Tracker struct {
	mu sync.Mutex

	provider          Provider
	normalInterval    time.Duration
	emergencyInterval time.Duration
	accuracyCeiling   float64
	streamBuffer      int
	logger            logger.Logger

	streams   map[string]*Stream
	stopWatch func()
	lastGood  *model.LocationSample
	lastErr   error
}

// New creates a Tracker with configuration options.
func New(provider Provider, opts ...Option) *Tracker {
	t := &Tracker{
		provider:          provider,
		normalInterval:    defaultNormalInterval,
		emergencyInterval: defaultEmergencyInterval,
		accuracyCeiling:   defaultAccuracyCeiling,
		streamBuffer:      defaultStreamBuffer,
		streams:           make(map[string]*Stream),
		logger:            logger.Get().Named("track"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// StartTracking opens a logical stream. The first stream subscribes to the
// device; later streams share that subscription.
func (t *Tracker) StartTracking(ctx context.Context, mode model.TrackingMode) (*Stream, error) {
	if !mode.Valid() {
		return nil, ErrInvalidMode
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.provider.Permission(ctx) == PermissionDenied {
		metrics.RecordSampleRejected("permission_denied")
		return nil, ErrPermissionDenied
	}

	if len(t.streams) == 0 {
		stop, err := t.provider.Watch(ctx, t.onFix)
		if err != nil {
			metrics.RecordErrorByComponent("track", "watch_failed")
			return nil, err
		}
		t.stopWatch = stop
		t.lastGood = nil
		t.lastErr = nil
	}

	s := &Stream{
		id:      uuid.NewString(),
		mode:    mode,
		updates: make(chan Update, t.streamBuffer),
		rearm:   make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	t.streams[s.id] = s

	go t.run(s)

	metrics.UpdateActiveStreams(len(t.streams))
	t.logger.Info(ctx, "tracking stream started",
		logger.String("stream", s.id),
		logger.String("mode", string(mode)),
		logger.Int("streams", len(t.streams)))
	return s, nil
}

// StopTracking halts one stream. The device subscription is released only
// when the last stream stops. After it returns, the stream emits nothing
// further and its channel is closed.
func (t *Tracker) StopTracking(ctx context.Context, streamID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.streams[streamID]
	if !ok {
		return ErrNoStream
	}

	close(s.done)
	delete(t.streams, streamID)

	if len(t.streams) == 0 && t.stopWatch != nil {
		t.stopWatch()
		t.stopWatch = nil
	}

	metrics.UpdateActiveStreams(len(t.streams))
	t.logger.Info(ctx, "tracking stream stopped",
		logger.String("stream", streamID),
		logger.Int("streams", len(t.streams)))
	return nil
}

// SetMode switches one stream's cadence without re-subscribing to the
// device. The new cadence applies from the next emission.
func (t *Tracker) SetMode(ctx context.Context, streamID string, mode model.TrackingMode) error {
	if !mode.Valid() {
		return ErrInvalidMode
	}

	t.mu.Lock()
	s, ok := t.streams[streamID]
	t.mu.Unlock()

	if !ok {
		return ErrNoStream
	}

	s.setMode(mode)
	t.logger.Info(ctx, "tracking mode changed",
		logger.String("stream", streamID),
		logger.String("mode", string(mode)))
	return nil
}

// Active reports whether any stream is currently live.
func (t *Tracker) Active(_ context.Context) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.streams) > 0
}

// ActiveStreams reports the number of live streams.
func (t *Tracker) ActiveStreams(_ context.Context) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.streams)
}

// Current returns the freshest validated fix. It fails with ErrNoFix until
// the device has produced one good fix for the active subscription.
func (t *Tracker) Current(_ context.Context) (model.LocationSample, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.lastGood == nil {
		return model.LocationSample{}, ErrNoFix
	}
	return t.lastGood.Clone(), nil
}

// onFix validates one device callback and folds it into tracker state.
func (t *Tracker) onFix(fix model.LocationSample, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.streams) == 0 {
		return // stale callback after the last stop
	}

	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			metrics.RecordSampleRejected("permission_denied")
			t.haltLocked()
			return
		}
		t.lastErr = err
		metrics.RecordSampleRejected("device_unavailable")
		return
	}

	if fix.Accuracy < 0 {
		t.lastErr = ErrLowAccuracy
		metrics.RecordSampleRejected("invalid_accuracy")
		return
	}
	if fix.Accuracy > t.accuracyCeiling {
		t.lastErr = ErrLowAccuracy
		metrics.RecordSampleRejected("low_accuracy")
		return
	}
	if t.lastGood != nil && !fix.Timestamp.After(t.lastGood.Timestamp) {
		// Out-of-order fix. Keep the newer one we already have.
		metrics.RecordSampleRejected("timestamp_regression")
		return
	}

	good := fix.Clone()
	t.lastGood = &good
	t.lastErr = nil
	metrics.RecordSampleAccuracy(fix.Accuracy)
}

// haltLocked tears everything down after a permission revocation: every
// stream receives the error exactly once, then closes. Tracking resumes
// only when a caller starts a new stream. Callers hold t.mu.
func (t *Tracker) haltLocked() {
	for _, s := range t.streams {
		pushUpdate(s, Update{Err: ErrPermissionDenied})
		close(s.done)
	}
	t.streams = make(map[string]*Stream)

	if t.stopWatch != nil {
		t.stopWatch()
		t.stopWatch = nil
	}
	t.lastErr = ErrPermissionDenied

	metrics.UpdateActiveStreams(0)
	t.logger.Warn(context.Background(), "location permission revoked, tracking halted")
}

// run emits the freshest state at the mode cadence until the stream stops.
func (t *Tracker) run(s *Stream) {
	defer close(s.updates)

	for {
		timer := time.NewTimer(t.intervalFor(s.Mode()))

		select {
		case <-s.done:
			timer.Stop()
			return
		case <-s.rearm:
			timer.Stop()
			continue
		case <-timer.C:
		}

		t.emit(s)
	}
}

// emit pushes one update if the tracker has anything to report. Emission
// and stop share the tracker mutex so nothing is emitted after
// StopTracking returns.
func (t *Tracker) emit(s *Stream) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, live := t.streams[s.id]; !live {
		return
	}

	var u Update
	switch {
	case t.lastErr != nil:
		u = Update{Err: t.lastErr}
	case t.lastGood != nil:
		u = Update{Sample: t.lastGood.Clone()}
	default:
		return // nothing from the device yet
	}

	pushUpdate(s, u)

	if u.Err == nil {
		metrics.RecordSampleEmitted()
	}
}

// pushUpdate delivers with latest-wins backpressure: the oldest buffered
// update is dropped when the stream buffer is full.
func pushUpdate(s *Stream, u Update) {
	select {
	case s.updates <- u:
	default:
		select {
		case <-s.updates:
		default:
		}
		s.updates <- u
	}
}

func (t *Tracker) intervalFor(mode model.TrackingMode) time.Duration {
	if mode == model.ModeEmergency {
		return t.emergencyInterval
	}
	return t.normalInterval
}
