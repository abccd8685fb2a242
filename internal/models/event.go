package models

import (
	"time"

	"github.com/uptrace/bun"
)

type EventType string

const (
	EventTypeGeneral EventType = "GENERAL"
	EventTypeClosed  EventType = "CLOSED"
	EventTypeBOD     EventType = "BOD"
	EventTypeDinner  EventType = "DINNER"
	EventTypeJoint   EventType = "JOINT"
	EventTypeSoft    EventType = "SOFT"
	EventTypeVisit   EventType = "VISIT"
)

// Valid reports whether t is one of the fixed event types.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeGeneral, EventTypeClosed, EventTypeBOD, EventTypeDinner,
		EventTypeJoint, EventTypeSoft, EventTypeVisit:
		return true
	}
	return false
}

type PricingMode string

const (
	PricingModeDefault      PricingMode = "DEFAULT"
	PricingModeManualPerReg PricingMode = "MANUAL_PER_REG"
)

// Event is an organization meeting. Price fields are nullable; which ones
// must be set depends on Type and is enforced when the event is created.
type Event struct {
	bun.BaseModel `bun:"table:events"`

	EventID             string      `bun:"event_id,pk" json:"event_id"`
	Title               string      `bun:"title,notnull" json:"title"`
	Location            string      `bun:"location" json:"location,omitempty"`
	StartsAt            time.Time   `bun:"starts_at,nullzero" json:"starts_at,omitempty"`
	Type                EventType   `bun:"type,notnull" json:"type"`
	PricingMode         PricingMode `bun:"pricing_mode,notnull" json:"pricing_mode"`
	AllowGuests         bool        `bun:"allow_guests,notnull,default:false" json:"allow_guests"`
	AllowSpeakers       bool        `bun:"allow_speakers,notnull,default:false" json:"allow_speakers"`
	SpeakerQuota        *int        `bun:"speaker_quota" json:"speaker_quota"`
	GuestPriceCents     *int64      `bun:"guest_price_cents" json:"guest_price_cents"`
	BODMemberPriceCents *int64      `bun:"bod_member_price_cents" json:"bod_member_price_cents"`
	BODGuestPriceCents  *int64      `bun:"bod_guest_price_cents" json:"bod_guest_price_cents"`
	DefaultPriceCents   *int64      `bun:"default_price_cents" json:"default_price_cents"`
	CreatedAt           time.Time   `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// SpeakersEnabled reports whether speaker bookings can be taken at all.
func (e *Event) SpeakersEnabled() bool {
	return e.AllowSpeakers && e.SpeakerQuota != nil
}

// EventInput is the raw creation payload before the event configuration is
// resolved. AllowGuests is only a request; the event type may override it.
type EventInput struct {
	Title               string      `json:"title"`
	Location            string      `json:"location"`
	StartsAt            time.Time   `json:"starts_at"`
	Type                EventType   `json:"type"`
	PricingMode         PricingMode `json:"pricing_mode"`
	AllowGuests         bool        `json:"allow_guests"`
	SpeakerQuota        *int        `json:"speaker_quota"`
	GuestPriceCents     *int64      `json:"guest_price_cents"`
	BODMemberPriceCents *int64      `json:"bod_member_price_cents"`
	BODGuestPriceCents  *int64      `json:"bod_guest_price_cents"`
	DefaultPriceCents   *int64      `json:"default_price_cents"`
}

// DeleteBlockers lists who is still attached to an event.
type DeleteBlockers struct {
	Members  []string `json:"members"`
	Guests   []string `json:"guests"`
	Speakers []string `json:"speakers"`
}

// Empty reports whether nothing blocks deletion.
func (b DeleteBlockers) Empty() bool {
	return len(b.Members) == 0 && len(b.Guests) == 0 && len(b.Speakers) == 0
}

type DeleteCheck struct {
	Allowed  bool           `json:"allowed"`
	Blockers DeleteBlockers `json:"blockers"`
}
