package analytics

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"ms-membership/internal/models"
)

// DuesRow is one group of an event's registrations.
type DuesRow struct {
	Status        models.RegistrationStatus `bun:"status"`
	Role          models.Role               `bun:"role"`
	BillingType   models.BillingType        `bun:"billing_type"`
	PaymentStatus models.PaymentStatus      `bun:"payment_status"`
	Count         int                       `bun:"count"`
	TotalCents    int64                     `bun:"total_cents"`
}

type DB struct {
	bun *bun.DB
}

func NewDB(db *bun.DB) *DB {
	return &DB{bun: db}
}

// DuesRows groups the event's registrations by state and billing.
func (db *DB) DuesRows(ctx context.Context, eventID string) ([]DuesRow, error) {
	var rows []DuesRow
	err := db.bun.NewSelect().
		Model((*models.Registration)(nil)).
		Column("status", "role", "billing_type", "payment_status").
		ColumnExpr("COUNT(*) AS count").
		ColumnExpr("COALESCE(SUM(price_cents), 0) AS total_cents").
		Where("event_id = ?", eventID).
		Group("status", "role", "billing_type", "payment_status").
		Order("status", "role", "billing_type", "payment_status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("dues rows: %w", err)
	}
	return rows, nil
}

func (db *DB) SpeakerCount(ctx context.Context, eventID string) (int, error) {
	return db.bun.NewSelect().
		Model((*models.SpeakerBooking)(nil)).
		Where("event_id = ?", eventID).
		Count(ctx)
}
