// Package escalate decides which events become user-visible notifications.
//
// An Escalator collapses bursts of equivalent events into a single
// notification, assigns display duration by priority, and raises the
// secondary signal for critical classes. Pending notifications form the
// notification center: newest first, one prominent entry, the rest counted
// but never silently discarded.
//
// Conventions:
//   - Notify returns nil for a suppressed duplicate; the collapsed-into
//     notification keeps its identity, takes the newer message, and its
//     display timer restarts.
//   - Expiry is enforced at read time; the sweep goroutine only reclaims.
//   - One Escalator per process, torn down with Close.
package escalate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/guardiansafety/aegis/internal/domain/model"
	"github.com/guardiansafety/aegis/pkg/logger"
	"github.com/guardiansafety/aegis/pkg/metrics"
)

// Default escalator configuration constants.
const (
	defaultDedupeWindow  = 2 * time.Second
	defaultSoundThrottle = 2 * time.Second
	defaultBacklogCap    = 200
	defaultSweepInterval = time.Second

	// Display durations per priority class. Critical applies only when the
	// notification is not persistent.
	criticalDisplay        = 30 * time.Second
	defaultHighDisplay     = 10 * time.Second
	defaultStandardDisplay = 5 * time.Second

	dedupeEntries = 256
)

// Event is a raw occurrence offered for escalation.
type Event struct {
	Type     model.NotificationType
	Priority model.Priority
	Title    string
	Message  string
	AlertID  string

	// Key collapses bursts: events sharing Type and Key within the dedupe
	// window merge into one notification. Falls back to AlertID, then Title.
	Key string

	// Persistent overrides the priority default: critical pins until
	// dismissed, everything else expires after its display duration.
	Persistent *bool
}

// Sounder plays the secondary audible or haptic signal for critical
// notifications. Implementations must return promptly.
type Sounder interface {
	Play(ctx context.Context, n model.Notification)
}

// Center is a point-in-time view of pending notifications, newest first.
type Center struct {
	// Prominent is the entry to display; nil when nothing is pending.
	Prominent *model.Notification
	// Backlog counts the entries behind the prominent one.
	Backlog int
	// Pending holds every live entry, Prominent included.
	Pending []model.Notification
}

// Escalator turns events into notifications and owns the pending set.
type Escalator struct {
	sounder         Sounder
	dedupeWindow    time.Duration
	soundThrottle   time.Duration
	highDisplay     time.Duration
	standardDisplay time.Duration
	backlogCap      int
	sweepInterval   time.Duration
	now             func() time.Time

	window *expirable.LRU[string, string] // dedupe key -> notification ID

	mu        sync.Mutex
	pending   []*model.Notification // newest first
	lastSound time.Time
	closed    bool

	closeOnce sync.Once
	shutdown  chan struct{}
	done      chan struct{}

	logger logger.Logger
}

// Option configures an Escalator.
type Option func(*Escalator)

// WithSounder sets the secondary signal for critical notifications.
func WithSounder(s Sounder) Option {
	return func(e *Escalator) {
		if s != nil {
			e.sounder = s
		}
	}
}

// WithDedupeWindow sets how long equivalent events collapse into one
// notification.
func WithDedupeWindow(d time.Duration) Option {
	return func(e *Escalator) {
		if d > 0 {
			e.dedupeWindow = d
		}
	}
}

// WithSoundThrottle sets the minimum gap between secondary signals.
func WithSoundThrottle(d time.Duration) Option {
	return func(e *Escalator) {
		if d > 0 {
			e.soundThrottle = d
		}
	}
}

// WithDisplayWindows sets the auto-expiry for high and for medium/low
// priority notifications. Critical entries keep their fixed window.
func WithDisplayWindows(high, standard time.Duration) Option {
	return func(e *Escalator) {
		if high > 0 {
			e.highDisplay = high
		}
		if standard > 0 {
			e.standardDisplay = standard
		}
	}
}

// WithBacklogCap bounds the pending set.
func WithBacklogCap(n int) Option {
	return func(e *Escalator) {
		if n > 0 {
			e.backlogCap = n
		}
	}
}

// WithSweepInterval sets how often reclaimed expirations are swept.
func WithSweepInterval(d time.Duration) Option {
	return func(e *Escalator) {
		if d > 0 {
			e.sweepInterval = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Escalator) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Escalator) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Escalator and starts its sweep goroutine.
func New(opts ...Option) *Escalator {
	e := &Escalator{
		dedupeWindow:    defaultDedupeWindow,
		soundThrottle:   defaultSoundThrottle,
		highDisplay:     defaultHighDisplay,
		standardDisplay: defaultStandardDisplay,
		backlogCap:      defaultBacklogCap,
		sweepInterval:   defaultSweepInterval,
		now:             time.Now,
		shutdown:        make(chan struct{}),
		done:            make(chan struct{}),
		logger:          logger.Get().Named("escalate"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.window = expirable.NewLRU[string, string](dedupeEntries, nil, e.dedupeWindow)

	go e.sweep()
	return e
}

// Notify offers an event for escalation. It returns the raised notification,
// or nil when the event collapsed into one raised within the dedupe window.
func (e *Escalator) Notify(ctx context.Context, ev Event) *model.Notification {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	now := e.now()
	key := e.dedupeKey(ev)

	if id, ok := e.window.Get(key); ok {
		if n := e.find(id); n != nil {
			n.Message = ev.Message
			if ev.Title != "" {
				n.Title = ev.Title
			}
			n.Timestamp = now
			e.promote(id)
			e.window.Add(key, id) // restart the window
			play := n.Priority == model.PriorityCritical && e.armSound(now)
			merged := *n
			e.mu.Unlock()

			metrics.RecordNotificationDeduped()
			e.logger.Debug(ctx, "notification deduplicated",
				logger.String("id", merged.ID),
				logger.String("key", key))
			if play {
				e.play(ctx, merged)
			}
			return nil
		}
		// The collapse target was dismissed or expired; raise fresh.
	}

	n := e.build(ev, now)
	entry := n // the stored entry may be merged into later; n stays the caller's
	e.pending = append([]*model.Notification{&entry}, e.pending...)
	dropped := e.trimOverflow()
	e.window.Add(key, n.ID)
	play := n.Priority == model.PriorityCritical && e.armSound(now)
	backlog := len(e.pending)
	e.mu.Unlock()

	metrics.RecordNotificationRaised(string(n.Priority))
	metrics.UpdateCenterBacklog(backlog)
	e.logger.Info(ctx, "notification raised",
		logger.String("id", n.ID),
		logger.String("type", string(n.Type)),
		logger.String("priority", string(n.Priority)),
		logger.Bool("persistent", n.Persistent))
	if dropped != "" {
		e.logger.Warn(ctx, "notification dropped, backlog over cap",
			logger.String("id", dropped),
			logger.Int("cap", e.backlogCap))
	}
	if play {
		e.play(ctx, n)
	}
	return &n
}

// Center returns the pending set, expired entries excluded.
func (e *Escalator) Center() Center {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	out := Center{Pending: make([]model.Notification, 0, len(e.pending))}
	for _, n := range e.pending {
		if n.Expired(now) {
			continue
		}
		out.Pending = append(out.Pending, *n)
	}
	if len(out.Pending) > 0 {
		head := out.Pending[0]
		out.Prominent = &head
		out.Backlog = len(out.Pending) - 1
	}
	return out
}

// Dismiss removes a notification by ID. It reports whether the ID was
// pending.
func (e *Escalator) Dismiss(id string) bool {
	e.mu.Lock()
	found := e.remove(id)
	backlog := len(e.pending)
	e.mu.Unlock()

	if found {
		metrics.RecordNotificationDismissed()
		metrics.UpdateCenterBacklog(backlog)
	}
	return found
}

// Close stops the sweep goroutine and clears the pending set. Notify calls
// after Close are suppressed.
func (e *Escalator) Close() {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()

		close(e.shutdown)
		<-e.done

		e.mu.Lock()
		e.pending = nil
		e.mu.Unlock()
		e.window.Purge()
	})
}

// build assembles a notification from an event, normalizing missing fields.
func (e *Escalator) build(ev Event, now time.Time) model.Notification {
	typ := ev.Type
	if typ == "" {
		typ = model.NotificationGeneral
	}
	priority := ev.Priority
	if !priority.Valid() {
		priority = model.PriorityMedium
	}

	persistent := priority == model.PriorityCritical
	if ev.Persistent != nil {
		persistent = *ev.Persistent
	}

	n := model.Notification{
		ID:         uuid.NewString(),
		Type:       typ,
		Priority:   priority,
		Title:      ev.Title,
		Message:    ev.Message,
		AlertID:    ev.AlertID,
		Timestamp:  now,
		Persistent: persistent,
	}
	if !persistent {
		n.AutoExpireAfter = e.displayFor(priority)
	}
	return n
}

func (e *Escalator) displayFor(p model.Priority) time.Duration {
	switch p {
	case model.PriorityCritical:
		return criticalDisplay
	case model.PriorityHigh:
		return e.highDisplay
	default:
		return e.standardDisplay
	}
}

func (e *Escalator) dedupeKey(ev Event) string {
	key := ev.Key
	if key == "" {
		key = ev.AlertID
	}
	if key == "" {
		key = ev.Title
	}
	return fmt.Sprintf("%s:%s", ev.Type, key)
}

// find locates a pending notification by ID. Callers hold e.mu.
func (e *Escalator) find(id string) *model.Notification {
	for _, n := range e.pending {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// promote moves a pending notification to the head. Callers hold e.mu.
func (e *Escalator) promote(id string) {
	for i, n := range e.pending {
		if n.ID == id {
			if i > 0 {
				copy(e.pending[1:i+1], e.pending[:i])
				e.pending[0] = n
			}
			return
		}
	}
}

// remove deletes a pending notification by ID. Callers hold e.mu.
func (e *Escalator) remove(id string) bool {
	for i, n := range e.pending {
		if n.ID == id {
			e.pending = append(e.pending[:i], e.pending[i+1:]...)
			return true
		}
	}
	return false
}

// trimOverflow enforces the backlog cap, preferring to drop the oldest
// expirable entry before touching persistent ones. It returns the dropped
// ID, if any. Callers hold e.mu.
func (e *Escalator) trimOverflow() string {
	if len(e.pending) <= e.backlogCap {
		return ""
	}
	for i := len(e.pending) - 1; i >= 0; i-- {
		if !e.pending[i].Persistent {
			id := e.pending[i].ID
			e.pending = append(e.pending[:i], e.pending[i+1:]...)
			return id
		}
	}
	id := e.pending[len(e.pending)-1].ID
	e.pending = e.pending[:len(e.pending)-1]
	return id
}

// armSound claims the secondary-signal slot when the throttle allows.
// Callers hold e.mu.
func (e *Escalator) armSound(now time.Time) bool {
	if e.sounder == nil {
		return false
	}
	if !e.lastSound.IsZero() && now.Sub(e.lastSound) < e.soundThrottle {
		metrics.RecordSoundThrottled()
		return false
	}
	e.lastSound = now
	return true
}

func (e *Escalator) play(ctx context.Context, n model.Notification) {
	metrics.RecordSoundPlayed()
	e.sounder.Play(ctx, n)
}

// sweep reclaims expired notifications until Close.
func (e *Escalator) sweep() {
	defer close(e.done)

	ticker := time.NewTicker(e.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.shutdown:
			return
		case <-ticker.C:
			e.reclaim()
		}
	}
}

func (e *Escalator) reclaim() {
	e.mu.Lock()
	now := e.now()
	kept := e.pending[:0]
	expired := 0
	for _, n := range e.pending {
		if n.Expired(now) {
			expired++
			continue
		}
		kept = append(kept, n)
	}
	e.pending = kept
	backlog := len(e.pending)
	e.mu.Unlock()

	if expired == 0 {
		return
	}
	for i := 0; i < expired; i++ {
		metrics.RecordNotificationExpired()
	}
	metrics.UpdateCenterBacklog(backlog)
	e.logger.Debug(context.Background(), "expired notifications reclaimed",
		logger.Int("count", expired))
}
