// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"strings"
	"time"

	"github.com/guardiansafety/aegis/internal/adapters/history"
	"github.com/guardiansafety/aegis/internal/domain/alert"
	"github.com/guardiansafety/aegis/internal/domain/escalate"
	"github.com/guardiansafety/aegis/internal/domain/model"
)

// locationPayload mirrors the OpenAPI Location schema.
type locationPayload struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy_m,omitempty"`
	Heading   *float64  `json:"heading,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (p locationPayload) validate() error {
	if p.Latitude < -90 || p.Latitude > 90 || p.Longitude < -180 || p.Longitude > 180 {
		return errors.New("coordinates out of range")
	}
	if p.Accuracy < 0 {
		return errors.New("negative accuracy")
	}
	return nil
}

// toSample converts the payload into a domain sample. A missing timestamp
// is stamped with the arrival time.
func (p locationPayload) toSample() model.LocationSample {
	ts := p.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return model.LocationSample{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Accuracy:  p.Accuracy,
		Heading:   p.Heading,
		Speed:     p.Speed,
		Timestamp: ts,
	}
}

func toLocationPayload(s model.LocationSample) locationPayload {
	return locationPayload{
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		Accuracy:  s.Accuracy,
		Heading:   s.Heading,
		Speed:     s.Speed,
		Timestamp: s.Timestamp,
	}
}

type contactPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Phone       string `json:"phone,omitempty"`
	GuardianKey string `json:"guardian_key,omitempty"`
}

type responsePayload struct {
	ResponderID   string           `json:"responder_id"`
	ResponderName string           `json:"responder_name,omitempty"`
	Kind          string           `json:"kind"`
	Timestamp     time.Time        `json:"timestamp"`
	Location      *locationPayload `json:"location,omitempty"`
}

type alertPayload struct {
	ID                string            `json:"id"`
	SenderID          string            `json:"sender_id"`
	SenderName        string            `json:"sender_name,omitempty"`
	Message           string            `json:"message,omitempty"`
	Priority          string            `json:"priority"`
	Status            string            `json:"status"`
	Recipients        []contactPayload  `json:"recipients"`
	Location          *locationPayload  `json:"location,omitempty"`
	Trail             []locationPayload `json:"trail,omitempty"`
	Responses         []responsePayload `json:"responses,omitempty"`
	AllAcknowledged   bool              `json:"all_acknowledged"`
	PasswordProtected bool              `json:"password_protected"`
	CreatedAt         time.Time         `json:"created_at"`
	ResolvedAt        *time.Time        `json:"resolved_at,omitempty"`
}

func toAlertPayload(a model.Alert) alertPayload {
	out := alertPayload{
		ID:                a.ID,
		SenderID:          a.SenderID,
		SenderName:        a.SenderName,
		Message:           a.Message,
		Priority:          string(a.Priority),
		Status:            string(a.Status),
		Recipients:        make([]contactPayload, 0, len(a.Recipients)),
		AllAcknowledged:   a.AllAcknowledged(),
		PasswordProtected: a.PasswordProtected,
		CreatedAt:         a.CreatedAt,
		ResolvedAt:        a.ResolvedAt,
	}
	for _, c := range a.Recipients {
		out.Recipients = append(out.Recipients, contactPayload{
			ID:          c.ID,
			Name:        c.Name,
			Phone:       c.Phone,
			GuardianKey: c.GuardianKey,
		})
	}
	if a.Location != nil {
		loc := toLocationPayload(*a.Location)
		out.Location = &loc
	}
	for _, s := range a.Trail {
		out.Trail = append(out.Trail, toLocationPayload(s))
	}
	for _, r := range a.Responses {
		out.Responses = append(out.Responses, toResponsePayload(r))
	}
	return out
}

func toResponsePayload(r model.Response) responsePayload {
	out := responsePayload{
		ResponderID:   r.ResponderID,
		ResponderName: r.ResponderName,
		Kind:          string(r.Kind),
		Timestamp:     r.Timestamp,
	}
	if r.Location != nil {
		loc := toLocationPayload(*r.Location)
		out.Location = &loc
	}
	return out
}

// triggerRequest mirrors the OpenAPI schema for POST /alerts. The same
// shape arms a countdown via POST /countdowns.
type triggerRequest struct {
	RequestID         string           `json:"request_id,omitempty"`
	SenderID          string           `json:"sender_id"`
	SenderName        string           `json:"sender_name,omitempty"`
	SenderKey         string           `json:"sender_key,omitempty"`
	Message           string           `json:"message,omitempty"`
	Priority          string           `json:"priority,omitempty"`
	PasswordProtected bool             `json:"password_protected,omitempty"`
	Location          *locationPayload `json:"location,omitempty"`
	Recipients        []contactPayload `json:"recipients"`
}

func (t triggerRequest) validate() error {
	switch {
	case strings.TrimSpace(t.SenderID) == "":
		return errors.New("missing sender_id")
	case len(t.Recipients) == 0:
		return errors.New("missing recipients")
	}
	for _, c := range t.Recipients {
		if strings.TrimSpace(c.ID) == "" {
			return errors.New("recipient missing id")
		}
	}
	if t.Location != nil {
		if err := t.Location.validate(); err != nil {
			return err
		}
	}
	return nil
}

// toTrigger converts the request. An unknown priority passes through; the
// state machine defaults it to critical rather than refusing a panic dial.
func (t triggerRequest) toTrigger() alert.TriggerRequest {
	out := alert.TriggerRequest{
		SenderID:          t.SenderID,
		SenderName:        t.SenderName,
		SenderKey:         t.SenderKey,
		Message:           t.Message,
		Priority:          model.Priority(t.Priority),
		PasswordProtected: t.PasswordProtected,
		Recipients:        make([]model.Contact, 0, len(t.Recipients)),
	}
	for _, c := range t.Recipients {
		out.Recipients = append(out.Recipients, model.Contact{
			ID:          c.ID,
			Name:        c.Name,
			Phone:       c.Phone,
			GuardianKey: c.GuardianKey,
		})
	}
	if t.Location != nil {
		sample := t.Location.toSample()
		out.Location = &sample
	}
	return out
}

type respondRequest struct {
	ResponderID   string           `json:"responder_id"`
	ResponderName string           `json:"responder_name,omitempty"`
	Kind          string           `json:"kind"`
	Location      *locationPayload `json:"location,omitempty"`
}

func (t respondRequest) validate() error {
	switch {
	case strings.TrimSpace(t.ResponderID) == "":
		return errors.New("missing responder_id")
	case strings.TrimSpace(t.Kind) == "":
		return errors.New("missing kind")
	}
	if t.Location != nil {
		if err := t.Location.validate(); err != nil {
			return err
		}
	}
	return nil
}

// toResponse leaves the timestamp zero; the state machine stamps arrivals
// itself so responder clocks cannot reorder history.
func (t respondRequest) toResponse() model.Response {
	out := model.Response{
		ResponderID:   t.ResponderID,
		ResponderName: t.ResponderName,
		Kind:          model.ResponseKind(t.Kind),
	}
	if t.Location != nil {
		sample := t.Location.toSample()
		out.Location = &sample
	}
	return out
}

type cancelRequest struct {
	ActorID  string `json:"actor_id"`
	Password string `json:"password,omitempty"`
}

func (t cancelRequest) validate() error {
	if strings.TrimSpace(t.ActorID) == "" {
		return errors.New("missing actor_id")
	}
	return nil
}

type resolveRequest struct {
	ActorID string `json:"actor_id"`
}

func (t resolveRequest) validate() error {
	if strings.TrimSpace(t.ActorID) == "" {
		return errors.New("missing actor_id")
	}
	return nil
}

type countdownPayload struct {
	ID      string    `json:"id"`
	FiresAt time.Time `json:"fires_at"`
}

func toCountdownPayload(c alert.Countdown) countdownPayload {
	return countdownPayload{ID: c.ID, FiresAt: c.FiresAt}
}

type factorPayload struct {
	ID          string  `json:"id"`
	Value       float64 `json:"value"`
	Weight      float64 `json:"weight"`
	Trend       string  `json:"trend"`
	Source      string  `json:"source"`
	Unavailable bool    `json:"unavailable,omitempty"`
}

type readingPayload struct {
	Timestamp     time.Time       `json:"timestamp"`
	OverallScore  int             `json:"overall_score"`
	Confidence    int             `json:"confidence"`
	RiskLevel     string          `json:"risk_level"`
	Factors       []factorPayload `json:"factors"`
	Degraded      bool            `json:"degraded,omitempty"`
	LowConfidence bool            `json:"low_confidence,omitempty"`
}

func toReadingPayload(r model.SafetyReading) readingPayload {
	out := readingPayload{
		Timestamp:     r.Timestamp,
		OverallScore:  r.OverallScore,
		Confidence:    r.Confidence,
		RiskLevel:     string(r.RiskLevel),
		Factors:       make([]factorPayload, 0, len(r.Factors)),
		Degraded:      r.Degraded,
		LowConfidence: r.LowConfidence,
	}
	for _, f := range r.Factors {
		out.Factors = append(out.Factors, factorPayload{
			ID:          f.ID,
			Value:       f.Value,
			Weight:      f.Weight,
			Trend:       string(f.Trend),
			Source:      string(f.Source),
			Unavailable: f.Unavailable,
		})
	}
	return out
}

type notificationPayload struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Priority   string     `json:"priority"`
	Title      string     `json:"title"`
	Message    string     `json:"message,omitempty"`
	AlertID    string     `json:"alert_id,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
	Persistent bool       `json:"persistent"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

func toNotificationPayload(n model.Notification) notificationPayload {
	out := notificationPayload{
		ID:         n.ID,
		Type:       string(n.Type),
		Priority:   string(n.Priority),
		Title:      n.Title,
		Message:    n.Message,
		AlertID:    n.AlertID,
		Timestamp:  n.Timestamp,
		Persistent: n.Persistent,
	}
	if !n.Persistent && n.AutoExpireAfter > 0 {
		exp := n.Timestamp.Add(n.AutoExpireAfter)
		out.ExpiresAt = &exp
	}
	return out
}

type centerPayload struct {
	Prominent *notificationPayload  `json:"prominent,omitempty"`
	Backlog   int                   `json:"backlog"`
	Pending   []notificationPayload `json:"pending"`
}

func toCenterPayload(c escalate.Center) centerPayload {
	out := centerPayload{
		Backlog: c.Backlog,
		Pending: make([]notificationPayload, 0, len(c.Pending)),
	}
	if c.Prominent != nil {
		p := toNotificationPayload(*c.Prominent)
		out.Prominent = &p
	}
	for _, n := range c.Pending {
		out.Pending = append(out.Pending, toNotificationPayload(n))
	}
	return out
}

type timelineEntryPayload struct {
	Kind          string           `json:"kind"`
	AlertID       string           `json:"alert_id"`
	OccurredAt    time.Time        `json:"occurred_at"`
	From          string           `json:"from,omitempty"`
	To            string           `json:"to,omitempty"`
	Actor         string           `json:"actor,omitempty"`
	ResponderID   string           `json:"responder_id,omitempty"`
	ResponderName string           `json:"responder_name,omitempty"`
	ResponseKind  string           `json:"response_kind,omitempty"`
	Location      *locationPayload `json:"location,omitempty"`
}

func toTimelinePayload(entries []history.Entry) []timelineEntryPayload {
	out := make([]timelineEntryPayload, 0, len(entries))
	for _, e := range entries {
		p := timelineEntryPayload{
			Kind:          string(e.Kind),
			AlertID:       e.AlertID,
			OccurredAt:    e.OccurredAt,
			From:          string(e.From),
			To:            string(e.To),
			Actor:         e.Actor,
			ResponderID:   e.ResponderID,
			ResponderName: e.ResponderName,
			ResponseKind:  string(e.ResponseKind),
		}
		if e.Location != nil {
			loc := toLocationPayload(*e.Location)
			p.Location = &loc
		}
		out = append(out, p)
	}
	return out
}

type keyRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
}

type keyResponse struct {
	Key string `json:"key"`
}

type keyValidationRequest struct {
	Key string `json:"key"`
}

type keyValidationResponse struct {
	Valid bool `json:"valid"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

type configuredResponse struct {
	Configured bool `json:"configured"`
}

type dismissedResponse struct {
	Dismissed bool `json:"dismissed"`
}

type cancelledResponse struct {
	Cancelled bool `json:"cancelled"`
}
