package model

import "time"

// NotificationType routes a notification to its channel.
type NotificationType string

const (
	NotificationEmergency       NotificationType = "emergency_alerts"
	NotificationLocationSharing NotificationType = "location_sharing"
	NotificationGeneral         NotificationType = "general_notifications"
)

// Notification is a single escalated message queued for display.
type Notification struct {
	ID        string
	Type      NotificationType
	Priority  Priority
	Title     string
	Message   string
	AlertID   string // optional back-reference to the alert that raised it
	Timestamp time.Time

	// Persistent notifications never auto-expire and must be dismissed
	// explicitly. Critical-priority notifications are always persistent.
	Persistent bool
	// AutoExpireAfter is the display duration for non-persistent
	// notifications, measured from Timestamp.
	AutoExpireAfter time.Duration
}

// Expired reports whether a non-persistent notification has outlived its
// display window. Persistent notifications never expire.
func (n Notification) Expired(now time.Time) bool {
	if n.Persistent || n.AutoExpireAfter <= 0 {
		return false
	}
	return now.Sub(n.Timestamp) >= n.AutoExpireAfter
}
