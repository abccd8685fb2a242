package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Member struct {
	bun.BaseModel `bun:"table:members"`

	MemberID   string     `bun:"member_id,pk" json:"member_id"`
	Name       string     `bun:"name,notnull" json:"name"`
	Phone      string     `bun:"phone,unique,notnull" json:"phone"`
	Company    string     `bun:"company,nullzero" json:"company,omitempty"`
	MemberType MemberType `bun:"member_type,notnull" json:"member_type"`
	CreatedAt  time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}
