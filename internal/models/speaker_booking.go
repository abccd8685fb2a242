package models

import (
	"time"

	"github.com/uptrace/bun"
)

// SpeakerBooking is counted against Event.SpeakerQuota and never billed.
type SpeakerBooking struct {
	bun.BaseModel `bun:"table:speaker_bookings"`

	BookingID string    `bun:"booking_id,pk" json:"booking_id"`
	EventID   string    `bun:"event_id,notnull" json:"event_id"`
	MemberID  string    `bun:"member_id,nullzero" json:"member_id,omitempty"`
	Phone     string    `bun:"phone,notnull" json:"phone"`
	Name      string    `bun:"name,notnull" json:"name"`
	Topic     string    `bun:"topic,nullzero" json:"topic,omitempty"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

type SpeakerRequest struct {
	Identity
	Topic string `json:"topic,omitempty"`
}
