package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"ms-membership/internal/apperr"
	"ms-membership/internal/models"
)

const uniqueViolation = "23505"

type DB struct {
	Bun *bun.DB
}

// isUniqueViolation recognizes a unique index hit from Postgres or SQLite.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func translateInsert(err error, what string) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", what, apperr.ErrDuplicateRegistration)
	}
	return fmt.Errorf("insert %s: %w", what, err)
}

func activeRow(ctx context.Context, tx bun.IDB, eventID, phone string) (*models.Registration, error) {
	var reg models.Registration
	err := tx.NewSelect().
		Model(&reg).
		Where("event_id = ?", eventID).
		Where("phone = ?", phone).
		Where("status <> ?", models.StatusCancelled).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select active registration: %w", err)
	}
	return &reg, nil
}

// Register inserts reg as the active row for its (event, phone). A leave row
// in the way is superseded; a registered row is a duplicate.
func (d *DB) Register(ctx context.Context, reg *models.Registration) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := activeRow(ctx, tx, reg.EventID, reg.Phone)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Status == models.StatusRegistered {
				return fmt.Errorf("%s at event %s: %w", reg.Phone, reg.EventID, apperr.ErrDuplicateRegistration)
			}
			_, err = tx.NewDelete().
				Model((*models.Registration)(nil)).
				Where("registration_id = ?", existing.RegistrationID).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("delete leave row: %w", err)
			}
		}

		return insertRegistration(ctx, tx, reg)
	})
}

// insertRegistration relies on the active-row unique index to reject a
// writer that raced past the existence check.
func insertRegistration(ctx context.Context, db bun.IDB, reg *models.Registration) error {
	_, err := db.NewInsert().Model(reg).Exec(ctx)
	return translateInsert(err, "registration")
}

// ReplaceWithLeave drops whatever active row exists for the leave's
// (event, phone) and stores the leave row instead.
func (d *DB) ReplaceWithLeave(ctx context.Context, leave *models.Registration) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*models.Registration)(nil)).
			Where("event_id = ?", leave.EventID).
			Where("phone = ?", leave.Phone).
			Where("status <> ?", models.StatusCancelled).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete active registration: %w", err)
		}
		_, err = tx.NewInsert().Model(leave).Exec(ctx)
		return translateInsert(err, "leave")
	})
}

// Cancel moves the active registration to CANCELLED and removes any speaker
// booking held by the same phone. It reports ErrNotFound if there was neither.
func (d *DB) Cancel(ctx context.Context, eventID, phone string) (*models.Registration, *models.SpeakerBooking, error) {
	var (
		reg     *models.Registration
		booking *models.SpeakerBooking
	)
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		reg, err = activeRow(ctx, tx, eventID, phone)
		if err != nil {
			return err
		}
		if reg != nil {
			reg.Status = models.StatusCancelled
			reg.UpdatedAt = time.Now().UTC()
			_, err = tx.NewUpdate().
				Model(reg).
				Column("status", "updated_at").
				WherePK().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("cancel registration: %w", err)
			}
		}

		var sb models.SpeakerBooking
		err = tx.NewSelect().
			Model(&sb).
			Where("event_id = ?", eventID).
			Where("phone = ?", phone).
			Limit(1).
			Scan(ctx)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("select speaker booking: %w", err)
		default:
			if _, err := tx.NewDelete().Model(&sb).WherePK().Exec(ctx); err != nil {
				return fmt.Errorf("delete speaker booking: %w", err)
			}
			booking = &sb
		}

		if reg == nil && booking == nil {
			return fmt.Errorf("no registration for %s at event %s: %w", phone, eventID, apperr.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return reg, booking, nil
}

func (d *DB) GetRegistration(ctx context.Context, registrationID string) (*models.Registration, error) {
	var reg models.Registration
	err := d.Bun.NewSelect().
		Model(&reg).
		Where("registration_id = ?", registrationID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("registration %s: %w", registrationID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return &reg, nil
}

// UpdatePaymentStatus changes only the payment status; the frozen price and
// billing type are left alone. Only REGISTERED rows match, so a row that was
// cancelled or put on leave after the caller read it is not touched.
func (d *DB) UpdatePaymentStatus(ctx context.Context, registrationID string, status models.PaymentStatus) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Registration)(nil)).
		Set("payment_status = ?", status).
		Set("updated_at = ?", time.Now().UTC()).
		Where("registration_id = ?", registrationID).
		Where("status = ?", models.StatusRegistered).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		exists, err := d.Bun.NewSelect().
			Model((*models.Registration)(nil)).
			Where("registration_id = ?", registrationID).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("update payment status: %w", err)
		}
		if exists {
			return fmt.Errorf("%w: registration %s is no longer registered", apperr.ErrNotAllowed, registrationID)
		}
		return fmt.Errorf("registration %s: %w", registrationID, apperr.ErrNotFound)
	}
	return nil
}

// ListRegistrations returns the event's rows, optionally for one status.
func (d *DB) ListRegistrations(ctx context.Context, eventID string, status models.RegistrationStatus) ([]models.Registration, error) {
	regs := []models.Registration{}
	q := d.Bun.NewSelect().
		Model(&regs).
		Where("event_id = ?", eventID).
		Order("created_at", "registration_id")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}

// BookSpeaker counts the event's bookings and inserts b in one transaction.
// Callers serialize per event so the count cannot go stale.
func (d *DB) BookSpeaker(ctx context.Context, b *models.SpeakerBooking, quota int) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*models.SpeakerBooking)(nil)).
			Where("event_id = ?", b.EventID).
			Where("phone = ?", b.Phone).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("check speaker booking: %w", err)
		}
		if exists {
			return fmt.Errorf("speaker %s at event %s: %w", b.Phone, b.EventID, apperr.ErrDuplicateRegistration)
		}

		count, err := tx.NewSelect().
			Model((*models.SpeakerBooking)(nil)).
			Where("event_id = ?", b.EventID).
			Count(ctx)
		if err != nil {
			return fmt.Errorf("count speaker bookings: %w", err)
		}
		if count >= quota {
			return fmt.Errorf("event %s has %d of %d speakers: %w", b.EventID, count, quota, apperr.ErrQuotaExceeded)
		}

		return insertSpeakerBooking(ctx, tx, b)
	})
}

func insertSpeakerBooking(ctx context.Context, db bun.IDB, b *models.SpeakerBooking) error {
	_, err := db.NewInsert().Model(b).Exec(ctx)
	return translateInsert(err, "speaker booking")
}

func (d *DB) ListSpeakers(ctx context.Context, eventID string) ([]models.SpeakerBooking, error) {
	bookings := []models.SpeakerBooking{}
	err := d.Bun.NewSelect().
		Model(&bookings).
		Where("event_id = ?", eventID).
		Order("created_at", "booking_id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list speaker bookings: %w", err)
	}
	return bookings, nil
}
