package model

import "time"

// AlertStatus is the lifecycle state of an SOS alert.
type AlertStatus string

const (
	// StatusCreated is the transient pre-active state. It appears in audit
	// records; a live alert is never held in it.
	StatusCreated   AlertStatus = "created"
	StatusActive    AlertStatus = "active"
	StatusCancelled AlertStatus = "cancelled"
	StatusResolved  AlertStatus = "resolved"
)

// Terminal reports whether no further transitions are possible.
func (s AlertStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusResolved
}

// Priority classifies alerts and notifications.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether the priority is one of the defined classes.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Contact is a recipient of an alert, addressed by their guardian key.
type Contact struct {
	ID          string
	Name        string
	Phone       string
	GuardianKey string
}

// ResponseKind is a responder's declared intent.
type ResponseKind string

const (
	ResponseAcknowledged ResponseKind = "acknowledged"
	ResponseEnroute      ResponseKind = "enroute"
	ResponseDeclined     ResponseKind = "declined"
)

// Valid reports whether the kind is one of the defined responses.
func (k ResponseKind) Valid() bool {
	switch k {
	case ResponseAcknowledged, ResponseEnroute, ResponseDeclined:
		return true
	}
	return false
}

// Response is one responder event. A responder may respond more than once;
// only their latest response by timestamp is authoritative, older ones are
// retained for history.
type Response struct {
	ResponderID   string
	ResponderName string
	Kind          ResponseKind
	Timestamp     time.Time
	Location      *LocationSample
}

// Alert is the central entity of the engine. Its status is mutated only by
// the alert state machine; everything outside the machine sees deep copies.
type Alert struct {
	ID         string
	SenderID   string
	SenderName string
	SenderKey  string
	Message    string
	Recipients []Contact
	Priority   Priority
	Status     AlertStatus

	// Location is the latest accepted sample; Trail retains the samples
	// accepted while the alert was active, oldest first.
	Location *LocationSample
	Trail    []LocationSample

	Responses []Response

	// PasswordProtected marks alerts whose cancellation must pass the
	// policy verifier.
	PasswordProtected bool

	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// Terminal reports whether the alert reached a terminal status.
func (a *Alert) Terminal() bool { return a.Status.Terminal() }

// HasRecipient reports whether id names one of the alert's recipients.
func (a *Alert) HasRecipient(id string) bool {
	for _, c := range a.Recipients {
		if c.ID == id {
			return true
		}
	}
	return false
}

// LatestResponses reduces the response history to the authoritative entry
// per responder (latest by timestamp; ties keep the later append).
func (a *Alert) LatestResponses() map[string]Response {
	out := make(map[string]Response, len(a.Recipients))
	for _, r := range a.Responses {
		prev, ok := out[r.ResponderID]
		if !ok || !r.Timestamp.Before(prev.Timestamp) {
			out[r.ResponderID] = r
		}
	}
	return out
}

// AllAcknowledged reports whether every recipient's authoritative response
// is an acknowledgment. Recipients who have not responded, or whose latest
// response is enroute or declined, count as outstanding.
func (a *Alert) AllAcknowledged() bool {
	if len(a.Recipients) == 0 {
		return false
	}
	latest := a.LatestResponses()
	for _, c := range a.Recipients {
		r, ok := latest[c.ID]
		if !ok || r.Kind != ResponseAcknowledged {
			return false
		}
	}
	return true
}

// Clone returns a deep copy safe to hand outside the state machine.
func (a *Alert) Clone() Alert {
	out := *a
	out.Recipients = append([]Contact(nil), a.Recipients...)
	if a.Location != nil {
		loc := a.Location.Clone()
		out.Location = &loc
	}
	out.Trail = make([]LocationSample, len(a.Trail))
	for i := range a.Trail {
		out.Trail[i] = a.Trail[i].Clone()
	}
	out.Responses = make([]Response, len(a.Responses))
	for i, r := range a.Responses {
		out.Responses[i] = r
		if r.Location != nil {
			loc := r.Location.Clone()
			out.Responses[i].Location = &loc
		}
	}
	if a.ResolvedAt != nil {
		ts := *a.ResolvedAt
		out.ResolvedAt = &ts
	}
	return out
}
