package database

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ms-membership/internal/models"
)

// Tables in dependency order.
var tables = []interface{}{
	(*models.Member)(nil),
	(*models.Event)(nil),
	(*models.Registration)(nil),
	(*models.SpeakerBooking)(nil),
}

// CreateSchema creates tables and indexes from the bun models. The SQL files
// under migrations/ are the source of truth for Postgres; this is used for
// SQLite and tests.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, m := range tables {
		q := db.NewCreateTable().Model(m).IfNotExists()
		switch m.(type) {
		case *models.Registration, *models.SpeakerBooking:
			q = q.ForeignKey("(event_id) REFERENCES events (event_id)")
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}

	// One active row per (event, phone); cancelled rows fall out of the scope.
	_, err := db.NewCreateIndex().
		Model((*models.Registration)(nil)).
		Unique().
		IfNotExists().
		Index("ux_registrations_event_phone_active").
		Column("event_id", "phone").
		Where("status <> 'CANCELLED'").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create registrations unique index: %w", err)
	}

	_, err = db.NewCreateIndex().
		Model((*models.SpeakerBooking)(nil)).
		Unique().
		IfNotExists().
		Index("ux_speaker_bookings_event_phone").
		Column("event_id", "phone").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create speaker_bookings unique index: %w", err)
	}
	return nil
}

// DropSchema drops all tables in reverse dependency order.
func DropSchema(ctx context.Context, db bun.IDB) error {
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(tables[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop table for %T: %w", tables[i], err)
		}
	}
	return nil
}

// Seed inserts a small demo data set for local development.
func Seed(ctx context.Context, db bun.IDB) error {
	members := []models.Member{
		{MemberID: "mem-001", Name: "Alice Tan", Phone: "0911000001", Company: "Tan Trading", MemberType: models.MemberTypeFixed, CreatedAt: time.Now()},
		{MemberID: "mem-002", Name: "Bob Lin", Phone: "0911000002", Company: "Lin Design", MemberType: models.MemberTypeSingle, CreatedAt: time.Now()},
	}
	if _, err := db.NewInsert().Model(&members).Ignore().Exec(ctx); err != nil {
		return fmt.Errorf("seed members: %w", err)
	}

	quota := 5
	guestPrice := int64(25000)
	event := models.Event{
		EventID:         "evt-001",
		Title:           "Weekly breakfast meeting",
		Location:        "Main hall",
		StartsAt:        time.Now().AddDate(0, 0, 7),
		Type:            models.EventTypeGeneral,
		PricingMode:     models.PricingModeDefault,
		AllowGuests:     true,
		AllowSpeakers:   true,
		SpeakerQuota:    &quota,
		GuestPriceCents: &guestPrice,
		CreatedAt:       time.Now(),
	}
	if _, err := db.NewInsert().Model(&event).Ignore().Exec(ctx); err != nil {
		return fmt.Errorf("seed event: %w", err)
	}
	return nil
}
