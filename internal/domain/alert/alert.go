// Package alert is the SOS alert state machine.
//
// Alerts move created → active → {cancelled | resolved}; terminal states
// accept no further transitions, and replaying a terminal request returns
// the settled alert instead of erroring, since network retries may deliver
// the same request twice. Each alert serializes its transitions behind its
// own mutex, binds an emergency-cadence location stream, and owns a
// supervised delivery task that ships the alert and its location trail to
// the delivery collaborator under a bounded retry budget. Collaborator
// failures degrade the alert, they never fail it: an SOS that cannot reach
// the network still stands locally.
//
// Conventions:
//   - Everything outside the machine sees deep copies, never live state.
//   - Owner-only operations compare against the triggering sender.
//   - Delivery exhaustion raises a critical notification and moves on.
package alert

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/guardiansafety/aegis/internal/domain/escalate"
	"github.com/guardiansafety/aegis/internal/domain/model"
	"github.com/guardiansafety/aegis/internal/domain/track"
	"github.com/guardiansafety/aegis/pkg/logger"
	"github.com/guardiansafety/aegis/pkg/metrics"
)

// Default machine configuration constants.
const (
	defaultTrailLimit = 360 // one hour of emergency-cadence samples
)

// defaultRetrySchedule is the delivery backoff: an immediate attempt, then
// one retry per entry.
var defaultRetrySchedule = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}

// Streamer opens and closes tracking streams. *track.Tracker satisfies it.
type Streamer interface {
	StartTracking(ctx context.Context, mode model.TrackingMode) (*track.Stream, error)
	StopTracking(ctx context.Context, streamID string) error
}

// Channel is the real-time delivery collaborator carrying alerts out to
// recipients and responder events back. Calls are best-effort network
// operations subject to the machine's retry budget. Implementations live
// under internal/adapters/delivery.
type Channel interface {
	CreateAlert(ctx context.Context, alert model.Alert) error
	UpdateAlertLocation(ctx context.Context, alertID string, sample model.LocationSample) error
	UpdateAlertStatus(ctx context.Context, alertID string, status model.AlertStatus) error

	// PushResponse injects a responder event from the remote side; it
	// reaches every SubscribeResponses callback for the alert.
	PushResponse(ctx context.Context, alertID string, r model.Response) error

	// SubscribeResponses delivers responder events for one alert to fn
	// until the returned unsubscribe function runs. fn must be prompt.
	SubscribeResponses(ctx context.Context, alertID string, fn func(model.Response)) (func(), error)
}

// Verifier authorizes password-protected cancellations. Implementations
// live under internal/adapters/policy.
type Verifier interface {
	VerifyCancelPassword(ctx context.Context, candidate string) bool
}

// Notifier raises and retires local notifications. *escalate.Escalator
// satisfies it.
type Notifier interface {
	Notify(ctx context.Context, ev escalate.Event) *model.Notification
	Dismiss(id string) bool
}

// Recorder persists the audit trail. Writes are best-effort; failures are
// logged, never surfaced.
type Recorder interface {
	RecordTransition(ctx context.Context, alertID string, from, to model.AlertStatus, actorID string, at time.Time) error
	RecordResponse(ctx context.Context, alertID string, r model.Response) error
}

// TriggerRequest carries everything needed to raise an alert.
type TriggerRequest struct {
	SenderID   string
	SenderName string
	SenderKey  string
	Message    string
	Priority   model.Priority
	Location   *model.LocationSample
	Recipients []model.Contact

	// PasswordProtected routes cancellation through the policy verifier.
	PasswordProtected bool
}

// Countdown describes an armed delayed trigger.
type Countdown struct {
	ID      string
	FiresAt time.Time
}

// alertState pairs an alert with its serialization lock and the handles of
// its supervised tasks.
type alertState struct {
	mu              sync.Mutex
	alert           *model.Alert
	streamID        string
	sharingNoticeID string
	stop            context.CancelFunc
	unsubscribe     func()
}

type countdown struct {
	id      string
	timer   *time.Timer
	firesAt time.Time
}

// Machine owns every alert's lifecycle.
type Machine struct {
	streams  Streamer
	channel  Channel
	verifier Verifier
	notifier Notifier
	recorder Recorder

	retrySchedule []time.Duration
	trailLimit    int
	now           func() time.Time

	mu         sync.RWMutex
	alerts     map[string]*alertState
	countdowns map[string]*countdown

	active atomic.Int64
	wg     sync.WaitGroup

	rootCtx context.Context
	cancel  context.CancelFunc

	logger logger.Logger
}

// New creates a Machine over the tracking and delivery collaborators.
func New(streams Streamer, channel Channel, opts ...Option) *Machine {
	rootCtx, cancel := context.WithCancel(context.Background())
	m := &Machine{
		streams:       streams,
		channel:       channel,
		retrySchedule: append([]time.Duration(nil), defaultRetrySchedule...),
		trailLimit:    defaultTrailLimit,
		now:           time.Now,
		alerts:        make(map[string]*alertState),
		countdowns:    make(map[string]*countdown),
		rootCtx:       rootCtx,
		cancel:        cancel,
		logger:        logger.Get().Named("alert"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Trigger raises an alert: active immediately, emergency tracking bound,
// delivery supervised. A tracking failure degrades the alert to
// location-less rather than failing the trigger; the sender is told
// through a critical notification.
func (m *Machine) Trigger(ctx context.Context, req TriggerRequest) (model.Alert, error) {
	if len(req.Recipients) == 0 {
		metrics.RecordTransitionRejected("no_recipients")
		return model.Alert{}, ErrNoRecipients
	}
	if req.SenderID == "" {
		metrics.RecordTransitionRejected("no_sender")
		return model.Alert{}, ErrNoSender
	}

	priority := req.Priority
	if !priority.Valid() {
		priority = model.PriorityCritical
	}

	now := m.now()
	a := &model.Alert{
		ID:                uuid.NewString(),
		SenderID:          req.SenderID,
		SenderName:        req.SenderName,
		SenderKey:         req.SenderKey,
		Message:           req.Message,
		Recipients:        append([]model.Contact(nil), req.Recipients...),
		Priority:          priority,
		Status:            model.StatusActive,
		PasswordProtected: req.PasswordProtected,
		CreatedAt:         now,
	}
	if req.Location != nil {
		loc := req.Location.Clone()
		a.Location = &loc
		a.Trail = []model.LocationSample{loc}
	}

	fctx, stop := context.WithCancel(m.rootCtx)
	st := &alertState{alert: a, stop: stop}

	stream, err := m.streams.StartTracking(ctx, model.ModeEmergency)
	if err != nil {
		metrics.RecordErrorByComponent("alert", "tracking_unavailable")
		m.logger.Warn(ctx, "emergency tracking unavailable",
			logger.String("alert", a.ID), logger.Error(err))
		m.notifyTrackingLoss(ctx, a.ID, err)
	} else {
		st.streamID = stream.ID()
		st.sharingNoticeID = m.notifySharing(ctx, a.ID)
	}

	unsub, err := m.channel.SubscribeResponses(ctx, a.ID, func(r model.Response) {
		if _, rerr := m.Respond(context.Background(), a.ID, r); rerr != nil {
			m.logger.Debug(context.Background(), "responder event dropped",
				logger.String("alert", a.ID), logger.Error(rerr))
		}
	})
	if err != nil {
		m.logger.Warn(ctx, "response subscription unavailable",
			logger.String("alert", a.ID), logger.Error(err))
	} else {
		st.unsubscribe = unsub
	}

	snapshot := a.Clone()

	// Publish last so no concurrent transition can slip in mid-setup.
	m.mu.Lock()
	m.alerts[a.ID] = st
	m.mu.Unlock()
	m.active.Add(1)

	m.wg.Add(1)
	go m.forward(fctx, a.ID, stream, snapshot)

	metrics.RecordAlertTriggered()
	metrics.UpdateActiveAlerts(int(m.active.Load()))
	m.record(ctx, func(r Recorder) error {
		return r.RecordTransition(ctx, a.ID, model.StatusCreated, model.StatusActive, req.SenderID, now)
	})
	m.notify(ctx, escalate.Event{
		Type:     model.NotificationEmergency,
		Priority: priority,
		Title:    "SOS alert active",
		Message:  fmt.Sprintf("Emergency alert sent to %d contacts.", len(a.Recipients)),
		AlertID:  a.ID,
		Key:      a.ID + ":status",
	})
	m.logger.Info(ctx, "alert triggered",
		logger.String("alert", a.ID),
		logger.String("sender", req.SenderID),
		logger.Int("recipients", len(a.Recipients)))
	return snapshot, nil
}

// ReportLocation attaches a sample to an active alert and forwards it to
// the delivery collaborator under the retry budget. Late samples against a
// terminal alert are dropped. Delivery runs in the caller's time; the
// tracking stream itself is never held up by a slow collaborator.
func (m *Machine) ReportLocation(ctx context.Context, alertID string, sample model.LocationSample) error {
	st, err := m.state(alertID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	if st.alert.Terminal() {
		st.mu.Unlock()
		metrics.RecordErrorByComponent("alert", "late_location")
		m.logger.Debug(ctx, "late location dropped", logger.String("alert", alertID))
		return nil
	}
	loc := sample.Clone()
	st.alert.Location = &loc
	st.alert.Trail = append(st.alert.Trail, loc)
	if over := len(st.alert.Trail) - m.trailLimit; over > 0 {
		st.alert.Trail = st.alert.Trail[over:]
	}
	st.mu.Unlock()

	m.deliver(ctx, alertID, "location", func(c context.Context) error {
		return m.channel.UpdateAlertLocation(c, alertID, sample)
	})
	return nil
}

// Respond appends a responder event to an active alert. Responses against
// a terminal alert are dropped and the settled snapshot returned.
func (m *Machine) Respond(ctx context.Context, alertID string, r model.Response) (model.Alert, error) {
	if !r.Kind.Valid() {
		return model.Alert{}, ErrInvalidResponse
	}

	st, err := m.state(alertID)
	if err != nil {
		return model.Alert{}, err
	}

	st.mu.Lock()
	if st.alert.Terminal() {
		snapshot := st.alert.Clone()
		st.mu.Unlock()
		metrics.RecordErrorByComponent("alert", "late_response")
		m.logger.Debug(ctx, "late response dropped",
			logger.String("alert", alertID),
			logger.String("responder", r.ResponderID))
		return snapshot, nil
	}
	if !st.alert.HasRecipient(r.ResponderID) {
		st.mu.Unlock()
		metrics.RecordErrorByComponent("alert", "unknown_responder")
		return model.Alert{}, ErrUnknownResponder
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = m.now()
	}
	if r.Location != nil {
		loc := r.Location.Clone()
		r.Location = &loc
	}
	st.alert.Responses = append(st.alert.Responses, r)
	allAcked := st.alert.AllAcknowledged()
	snapshot := st.alert.Clone()
	st.mu.Unlock()

	metrics.RecordAlertResponse(string(r.Kind))
	m.record(ctx, func(rec Recorder) error { return rec.RecordResponse(ctx, alertID, r) })

	name := r.ResponderName
	if name == "" {
		name = r.ResponderID
	}
	m.notify(ctx, escalate.Event{
		Type:     model.NotificationEmergency,
		Priority: model.PriorityMedium,
		Title:    "Responder update",
		Message:  fmt.Sprintf("%s %s.", name, kindText(r.Kind)),
		AlertID:  alertID,
		Key:      alertID + ":response:" + r.ResponderID,
	})
	if allAcked {
		m.notify(ctx, escalate.Event{
			Type:     model.NotificationEmergency,
			Priority: model.PriorityHigh,
			Title:    "All contacts acknowledged",
			Message:  "Every contact has acknowledged the alert.",
			AlertID:  alertID,
			Key:      alertID + ":acked",
		})
	}
	m.logger.Info(ctx, "response recorded",
		logger.String("alert", alertID),
		logger.String("responder", r.ResponderID),
		logger.String("kind", string(r.Kind)))
	return snapshot, nil
}

// Cancel transitions an alert to cancelled. Owner-only; password-protected
// alerts must pass the policy verifier first. Cancelling a terminal alert
// is a no-op returning the settled state.
func (m *Machine) Cancel(ctx context.Context, alertID, actorID, password string) (model.Alert, error) {
	return m.applyTerminal(ctx, alertID, actorID, password, model.StatusCancelled)
}

// Resolve transitions an alert to resolved. Owner-only; resolving a
// terminal alert is a no-op returning the settled state.
func (m *Machine) Resolve(ctx context.Context, alertID, actorID string) (model.Alert, error) {
	return m.applyTerminal(ctx, alertID, actorID, "", model.StatusResolved)
}

// Get returns a deep copy of one alert.
func (m *Machine) Get(ctx context.Context, alertID string) (model.Alert, error) {
	st, err := m.state(alertID)
	if err != nil {
		return model.Alert{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.alert.Clone(), nil
}

// ActiveAlerts returns copies of every non-terminal alert, newest first.
func (m *Machine) ActiveAlerts(ctx context.Context) []model.Alert {
	m.mu.RLock()
	states := make([]*alertState, 0, len(m.alerts))
	for _, st := range m.alerts {
		states = append(states, st)
	}
	m.mu.RUnlock()

	out := make([]model.Alert, 0, len(states))
	for _, st := range states {
		st.mu.Lock()
		if !st.alert.Terminal() {
			out = append(out, st.alert.Clone())
		}
		st.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// StartCountdown arms a delayed trigger, giving the sender a window to
// abort before the alert goes out. The request is validated up front so a
// doomed trigger fails now, not when the timer fires.
func (m *Machine) StartCountdown(ctx context.Context, req TriggerRequest, delay time.Duration) (Countdown, error) {
	if len(req.Recipients) == 0 {
		metrics.RecordTransitionRejected("no_recipients")
		return Countdown{}, ErrNoRecipients
	}
	if req.SenderID == "" {
		metrics.RecordTransitionRejected("no_sender")
		return Countdown{}, ErrNoSender
	}
	if delay <= 0 {
		return Countdown{}, ErrInvalidCountdown
	}

	id := uuid.NewString()
	firesAt := m.now().Add(delay)

	// Arm while holding the lock: an instant fire blocks on it and then
	// finds the countdown registered.
	m.mu.Lock()
	cd := &countdown{id: id, firesAt: firesAt}
	cd.timer = time.AfterFunc(delay, func() { m.fireCountdown(id, req) })
	m.countdowns[id] = cd
	m.mu.Unlock()

	m.logger.Info(ctx, "countdown armed",
		logger.String("countdown", id),
		logger.Duration("delay", delay))
	return Countdown{ID: id, FiresAt: firesAt}, nil
}

// CancelCountdown aborts an armed countdown. It reports whether the
// countdown was still pending.
func (m *Machine) CancelCountdown(ctx context.Context, id string) bool {
	m.mu.Lock()
	cd, ok := m.countdowns[id]
	if ok {
		cd.timer.Stop()
		delete(m.countdowns, id)
	}
	m.mu.Unlock()

	if ok {
		metrics.RecordCountdownAborted()
		m.logger.Info(ctx, "countdown cancelled", logger.String("countdown", id))
	}
	return ok
}

// Countdowns returns the armed countdowns, soonest first.
func (m *Machine) Countdowns(ctx context.Context) []Countdown {
	m.mu.RLock()
	out := make([]Countdown, 0, len(m.countdowns))
	for _, cd := range m.countdowns {
		out = append(out, Countdown{ID: cd.id, FiresAt: cd.firesAt})
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].FiresAt.Before(out[j].FiresAt) })
	return out
}

// Close aborts armed countdowns, releases every alert's tracking stream,
// and cancels the supervised delivery tasks. Alert state stays readable;
// nothing is delivered afterwards.
func (m *Machine) Close(ctx context.Context) error {
	m.mu.Lock()
	for _, cd := range m.countdowns {
		cd.timer.Stop()
	}
	m.countdowns = make(map[string]*countdown)
	m.mu.Unlock()

	m.mu.RLock()
	states := make([]*alertState, 0, len(m.alerts))
	for _, st := range m.alerts {
		states = append(states, st)
	}
	m.mu.RUnlock()
	for _, st := range states {
		st.mu.Lock()
		m.stopAlertLocked(ctx, st)
		st.mu.Unlock()
	}

	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// applyTerminal serializes one terminal transition per alert: exactly one
// of two racing calls applies, the other observes the settled state.
func (m *Machine) applyTerminal(ctx context.Context, alertID, actorID, password string, to model.AlertStatus) (model.Alert, error) {
	st, err := m.state(alertID)
	if err != nil {
		return model.Alert{}, err
	}

	st.mu.Lock()

	if st.alert.Terminal() {
		snapshot := st.alert.Clone()
		st.mu.Unlock()
		metrics.RecordTransitionRejected("already_terminal")
		m.logger.Debug(ctx, "terminal transition replayed",
			logger.String("alert", alertID),
			logger.String("status", string(snapshot.Status)))
		return snapshot, nil
	}
	if st.alert.SenderID != actorID {
		st.mu.Unlock()
		metrics.RecordTransitionRejected("not_owner")
		return model.Alert{}, ErrNotOwner
	}
	if to == model.StatusCancelled && st.alert.PasswordProtected {
		if m.verifier == nil || !m.verifier.VerifyCancelPassword(ctx, password) {
			st.mu.Unlock()
			metrics.RecordTransitionRejected("cancel_denied")
			m.logger.Warn(ctx, "cancellation denied", logger.String("alert", alertID))
			return model.Alert{}, ErrCancelDenied
		}
	}

	from := st.alert.Status
	now := m.now()
	st.alert.Status = to
	st.alert.ResolvedAt = &now

	// Stopping the stream inside the transition lock guarantees no sample
	// is attached after the terminal state is visible.
	m.stopAlertLocked(ctx, st)

	snapshot := st.alert.Clone()
	st.mu.Unlock()

	m.active.Add(-1)
	switch to {
	case model.StatusCancelled:
		metrics.RecordAlertCancelled()
	case model.StatusResolved:
		metrics.RecordAlertResolved()
	}
	metrics.UpdateActiveAlerts(int(m.active.Load()))
	m.record(ctx, func(r Recorder) error {
		return r.RecordTransition(ctx, alertID, from, to, actorID, now)
	})
	m.notify(ctx, escalate.Event{
		Type:     model.NotificationEmergency,
		Priority: model.PriorityMedium,
		Title:    "Alert " + string(to),
		Message:  fmt.Sprintf("The emergency alert was %s.", to),
		AlertID:  alertID,
		Key:      alertID + ":status",
	})

	m.wg.Add(1)
	go m.deliverStatus(alertID, to)

	m.logger.Info(ctx, "alert transitioned",
		logger.String("alert", alertID),
		logger.String("from", string(from)),
		logger.String("to", string(to)),
		logger.String("actor", actorID))
	return snapshot, nil
}

// stopAlertLocked releases an alert's supervised tasks. Callers hold st.mu.
func (m *Machine) stopAlertLocked(ctx context.Context, st *alertState) {
	if st.stop != nil {
		st.stop()
		st.stop = nil
	}
	if st.unsubscribe != nil {
		st.unsubscribe()
		st.unsubscribe = nil
	}
	if st.streamID != "" {
		// ErrNoStream is fine here: a permission revocation may already
		// have torn the stream down.
		if err := m.streams.StopTracking(ctx, st.streamID); err != nil && !errors.Is(err, track.ErrNoStream) {
			m.logger.Warn(ctx, "stream stop failed",
				logger.String("stream", st.streamID), logger.Error(err))
		}
		st.streamID = ""
	}
	if st.sharingNoticeID != "" {
		if m.notifier != nil {
			m.notifier.Dismiss(st.sharingNoticeID)
		}
		st.sharingNoticeID = ""
	}
}

// forward is the supervised delivery task bound to one alert: it ships the
// created alert, then relays stream samples until the alert turns terminal
// or the stream ends.
func (m *Machine) forward(ctx context.Context, alertID string, stream *track.Stream, a model.Alert) {
	defer m.wg.Done()

	m.deliver(ctx, alertID, "create", func(c context.Context) error {
		return m.channel.CreateAlert(c, a)
	})

	if stream == nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-stream.Updates():
			if !ok {
				// The stream died mid-alert; the sharing notice no
				// longer tells the truth.
				m.endSharing(alertID)
				return
			}
			if u.Err != nil {
				if errors.Is(u.Err, track.ErrPermissionDenied) {
					m.notifyTrackingLoss(ctx, alertID, u.Err)
				}
				continue
			}
			_ = m.ReportLocation(ctx, alertID, u.Sample)
		}
	}
}

// deliver runs one collaborator call under the retry budget: an immediate
// attempt, then a retry per schedule entry. It reports whether any attempt
// succeeded; exhaustion raises the non-fatal delivery notification.
func (m *Machine) deliver(ctx context.Context, alertID, what string, op func(context.Context) error) bool {
	for attempt := 0; ; attempt++ {
		metrics.RecordDeliveryAttempt()
		start := time.Now()
		err := op(ctx)
		metrics.RecordDeliveryLatency(float64(time.Since(start).Milliseconds()))
		if err == nil {
			return true
		}
		metrics.RecordDeliveryFailure()

		if attempt >= len(m.retrySchedule) {
			metrics.RecordDeliveryExhausted()
			m.logger.Warn(ctx, "delivery budget exhausted",
				logger.String("alert", alertID),
				logger.String("operation", what),
				logger.Error(err))
			m.notify(ctx, escalate.Event{
				Type:     model.NotificationEmergency,
				Priority: model.PriorityCritical,
				Title:    "Delivery failing",
				Message:  "Alert updates are not reaching the emergency service.",
				AlertID:  alertID,
				Key:      alertID + ":delivery",
			})
			return false
		}
		metrics.RecordDeliveryRetry()

		select {
		case <-ctx.Done():
			return false
		case <-time.After(m.retrySchedule[attempt]):
		}
	}
}

func (m *Machine) deliverStatus(alertID string, status model.AlertStatus) {
	defer m.wg.Done()

	m.deliver(m.rootCtx, alertID, "status", func(c context.Context) error {
		return m.channel.UpdateAlertStatus(c, alertID, status)
	})
}

func (m *Machine) fireCountdown(id string, req TriggerRequest) {
	m.mu.Lock()
	_, live := m.countdowns[id]
	delete(m.countdowns, id)
	m.mu.Unlock()

	if !live {
		return
	}
	if _, err := m.Trigger(context.Background(), req); err != nil {
		m.logger.Error(context.Background(), "countdown trigger failed",
			logger.String("countdown", id), logger.Error(err))
	}
}

// notifySharing pins the ongoing location-sharing notice for an alert and
// reports its notification ID, or "" when no notifier is wired.
func (m *Machine) notifySharing(ctx context.Context, alertID string) string {
	if m.notifier == nil {
		return ""
	}
	pinned := true
	n := m.notifier.Notify(ctx, escalate.Event{
		Type:       model.NotificationLocationSharing,
		Priority:   model.PriorityLow,
		Title:      "Sharing live location",
		Message:    "Your contacts can see your position while the alert is active.",
		AlertID:    alertID,
		Key:        alertID + ":sharing",
		Persistent: &pinned,
	})
	if n == nil {
		return ""
	}
	return n.ID
}

// endSharing retires the location-sharing notice outside the terminal
// path, typically when the stream ends underneath a live alert.
func (m *Machine) endSharing(alertID string) {
	st, err := m.state(alertID)
	if err != nil {
		return
	}
	st.mu.Lock()
	id := st.sharingNoticeID
	st.sharingNoticeID = ""
	st.mu.Unlock()
	if id != "" && m.notifier != nil {
		m.notifier.Dismiss(id)
	}
}

func (m *Machine) notifyTrackingLoss(ctx context.Context, alertID string, err error) {
	msg := "Location tracking is unavailable; the alert carries no live position."
	if errors.Is(err, track.ErrPermissionDenied) {
		msg = "Location permission is denied; the alert carries no live position."
	}
	m.notify(ctx, escalate.Event{
		Type:     model.NotificationEmergency,
		Priority: model.PriorityCritical,
		Title:    "Location unavailable",
		Message:  msg,
		AlertID:  alertID,
		Key:      alertID + ":tracking",
	})
}

func (m *Machine) state(alertID string) (*alertState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.alerts[alertID]
	if !ok {
		return nil, ErrNotFound
	}
	return st, nil
}

func (m *Machine) record(ctx context.Context, op func(Recorder) error) {
	if m.recorder == nil {
		return
	}
	if err := op(m.recorder); err != nil {
		m.logger.Warn(ctx, "history write failed", logger.Error(err))
	}
}

func (m *Machine) notify(ctx context.Context, ev escalate.Event) {
	if m.notifier == nil {
		return
	}
	m.notifier.Notify(ctx, ev)
}

func kindText(k model.ResponseKind) string {
	switch k {
	case model.ResponseAcknowledged:
		return "acknowledged the alert"
	case model.ResponseEnroute:
		return "is en route"
	case model.ResponseDeclined:
		return "declined the alert"
	}
	return string(k)
}
