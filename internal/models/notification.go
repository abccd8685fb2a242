package models

import "time"

type NotificationKind string

const (
	NotifyRegistered    NotificationKind = "registered"
	NotifyLeave         NotificationKind = "leave"
	NotifyCancelled     NotificationKind = "cancelled"
	NotifySpeakerBooked NotificationKind = "speaker_booked"
)

// Notification is the summary broadcast after a registration change commits.
type Notification struct {
	EventID string           `json:"event_id"`
	Kind    NotificationKind `json:"kind"`
	Name    string           `json:"name"`
	Role    Role             `json:"role"`
	Summary string           `json:"summary"`
	At      time.Time        `json:"at"`
}
