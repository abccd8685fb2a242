package models

import (
	"time"

	"github.com/uptrace/bun"
)

// RegistrationStatus is the lifecycle state of a registration row.
type RegistrationStatus string

const (
	StatusRegistered RegistrationStatus = "REGISTERED"
	StatusOnLeave    RegistrationStatus = "LEAVE"
	StatusCancelled  RegistrationStatus = "CANCELLED"
)

func (s RegistrationStatus) Valid() bool {
	return s == StatusRegistered || s == StatusOnLeave || s == StatusCancelled
}

// Active reports whether the row occupies the (event, phone) slot.
func (s RegistrationStatus) Active() bool {
	return s == StatusRegistered || s == StatusOnLeave
}

type Registration struct {
	bun.BaseModel `bun:"table:registrations"`

	RegistrationID string             `bun:"registration_id,pk" json:"registration_id"`
	EventID        string             `bun:"event_id,notnull" json:"event_id"`
	MemberID       string             `bun:"member_id,nullzero" json:"member_id,omitempty"`
	Phone          string             `bun:"phone,notnull" json:"phone"`
	Name           string             `bun:"name,notnull" json:"name"`
	Company        string             `bun:"company,nullzero" json:"company,omitempty"`
	Role           Role               `bun:"role,notnull" json:"role"`
	Status         RegistrationStatus `bun:"status,notnull" json:"status"`
	BillingType    BillingType        `bun:"billing_type,notnull" json:"billing_type"`
	PaymentStatus  PaymentStatus      `bun:"payment_status,notnull" json:"payment_status"`
	PriceCents     int64              `bun:"price_cents,notnull,default:0" json:"price_cents"`
	CreatedAt      time.Time          `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt      time.Time          `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}

// RegisterRequest is the registrant data supplied to register.
type RegisterRequest struct {
	Role     Role   `json:"role"`
	MemberID string `json:"member_id,omitempty"`
	Phone    string `json:"phone"`
	Name     string `json:"name"`
	Company  string `json:"company,omitempty"`
}

// Identity names a person for leave, cancel and speaker booking.
type Identity struct {
	MemberID string `json:"member_id,omitempty"`
	Phone    string `json:"phone"`
	Name     string `json:"name"`
	Role     Role   `json:"role,omitempty"`
}

type PaymentUpdateRequest struct {
	PaymentStatus PaymentStatus `json:"payment_status"`
}
