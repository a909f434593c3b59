package delivery

import (
	"time"

	"github.com/guardiansafety/aegis/internal/domain/model"
)

// Wire payloads. Domain types stay tag-free; the shapes below are the
// protocol's.

type alertPayload struct {
	ID                string           `json:"id"`
	SenderID          string           `json:"sender_id"`
	SenderName        string           `json:"sender_name,omitempty"`
	SenderKey         string           `json:"sender_key,omitempty"`
	Message           string           `json:"message,omitempty"`
	Priority          string           `json:"priority"`
	Status            string           `json:"status"`
	PasswordProtected bool             `json:"password_protected,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	Location          *samplePayload   `json:"location,omitempty"`
	Recipients        []contactPayload `json:"recipients"`
}

type contactPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Phone       string `json:"phone,omitempty"`
	GuardianKey string `json:"guardian_key,omitempty"`
}

type samplePayload struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Heading   *float64  `json:"heading,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type statusPayload struct {
	Status string `json:"status"`
}

type responsePayload struct {
	ResponderID   string         `json:"responder_id"`
	ResponderName string         `json:"responder_name,omitempty"`
	Kind          string         `json:"kind"`
	Timestamp     time.Time      `json:"timestamp"`
	Location      *samplePayload `json:"location,omitempty"`
}

func encodeAlert(a model.Alert) alertPayload {
	p := alertPayload{
		ID:                a.ID,
		SenderID:          a.SenderID,
		SenderName:        a.SenderName,
		SenderKey:         a.SenderKey,
		Message:           a.Message,
		Priority:          string(a.Priority),
		Status:            string(a.Status),
		PasswordProtected: a.PasswordProtected,
		CreatedAt:         a.CreatedAt,
		Recipients:        make([]contactPayload, 0, len(a.Recipients)),
	}
	if a.Location != nil {
		loc := encodeSample(*a.Location)
		p.Location = &loc
	}
	for _, c := range a.Recipients {
		p.Recipients = append(p.Recipients, contactPayload{
			ID:          c.ID,
			Name:        c.Name,
			Phone:       c.Phone,
			GuardianKey: c.GuardianKey,
		})
	}
	return p
}

func encodeSample(s model.LocationSample) samplePayload {
	return samplePayload{
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		Accuracy:  s.Accuracy,
		Heading:   s.Heading,
		Speed:     s.Speed,
		Timestamp: s.Timestamp,
	}
}

func decodeSample(p samplePayload) model.LocationSample {
	return model.LocationSample{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Accuracy:  p.Accuracy,
		Heading:   p.Heading,
		Speed:     p.Speed,
		Timestamp: p.Timestamp,
	}
}

func encodeResponse(r model.Response) responsePayload {
	p := responsePayload{
		ResponderID:   r.ResponderID,
		ResponderName: r.ResponderName,
		Kind:          string(r.Kind),
		Timestamp:     r.Timestamp,
	}
	if r.Location != nil {
		loc := encodeSample(*r.Location)
		p.Location = &loc
	}
	return p
}

func decodeResponse(p responsePayload) model.Response {
	r := model.Response{
		ResponderID:   p.ResponderID,
		ResponderName: p.ResponderName,
		Kind:          model.ResponseKind(p.Kind),
		Timestamp:     p.Timestamp,
	}
	if p.Location != nil {
		loc := decodeSample(*p.Location)
		r.Location = &loc
	}
	return r
}
