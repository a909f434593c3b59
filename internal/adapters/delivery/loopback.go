package delivery

import (
	"context"
	"sync"

	"github.com/guardiansafety/aegis/internal/domain/model"
)

// Loopback is the in-memory stand-in for the remote alert service: alerts
// land in a table, and responses pushed through it fan out to subscribers
// exactly as backend-relayed responder events would. The simulator runs
// against it; Ping always succeeds, so a connectivity monitor wired to it
// reports the backend reachable.
type Loopback struct {
	mu      sync.RWMutex
	alerts  map[string]model.Alert
	subs    map[string]map[int]func(model.Response)
	nextSub int
}

// NewLoopback creates an empty loopback backend.
func NewLoopback() *Loopback {
	return &Loopback{
		alerts: make(map[string]model.Alert),
		subs:   make(map[string]map[int]func(model.Response)),
	}
}

func (l *Loopback) CreateAlert(_ context.Context, a model.Alert) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.alerts[a.ID] = a.Clone()
	return nil
}

func (l *Loopback) UpdateAlertLocation(_ context.Context, alertID string, sample model.LocationSample) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.alerts[alertID]
	if !ok {
		return ErrUnknownAlert
	}
	loc := sample.Clone()
	a.Location = &loc
	a.Trail = append(a.Trail, loc)
	l.alerts[alertID] = a
	return nil
}

func (l *Loopback) UpdateAlertStatus(_ context.Context, alertID string, status model.AlertStatus) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.alerts[alertID]
	if !ok {
		return ErrUnknownAlert
	}
	a.Status = status
	l.alerts[alertID] = a
	return nil
}

// PushResponse records the response on the stored alert and fans it out,
// playing the part of the backend relaying a responder event.
func (l *Loopback) PushResponse(_ context.Context, alertID string, r model.Response) error {
	l.mu.Lock()
	a, ok := l.alerts[alertID]
	if !ok {
		l.mu.Unlock()
		return ErrUnknownAlert
	}
	a.Responses = append(a.Responses, r)
	l.alerts[alertID] = a

	fns := make([]func(model.Response), 0, len(l.subs[alertID]))
	for _, fn := range l.subs[alertID] {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(r)
	}
	return nil
}

func (l *Loopback) SubscribeResponses(_ context.Context, alertID string, fn func(model.Response)) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.subs[alertID] == nil {
		l.subs[alertID] = make(map[int]func(model.Response))
	}
	id := l.nextSub
	l.nextSub++
	l.subs[alertID][id] = fn

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if set, ok := l.subs[alertID]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(l.subs, alertID)
			}
		}
	}, nil
}

// Ping always succeeds: the loopback backend is this process.
func (l *Loopback) Ping(context.Context) error { return nil }

// Alert returns the stored copy of one alert.
func (l *Loopback) Alert(alertID string) (model.Alert, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.alerts[alertID]
	if !ok {
		return model.Alert{}, false
	}
	return a.Clone(), true
}

// Alerts returns stored copies of every alert the backend has seen.
func (l *Loopback) Alerts() []model.Alert {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.Alert, 0, len(l.alerts))
	for _, a := range l.alerts {
		out = append(out, a.Clone())
	}
	return out
}
