package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"ms-membership/internal/apperr"
	"ms-membership/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// CreateEvent → insert a resolved event
func (d *DB) CreateEvent(ctx context.Context, event *models.Event) error {
	if _, err := d.Bun.NewInsert().Model(event).Exec(ctx); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetEvent → fetch one event by its ID
func (d *DB) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	return getEvent(ctx, d.Bun, eventID)
}

func getEvent(ctx context.Context, db bun.IDB, eventID string) (*models.Event, error) {
	var event models.Event
	err := db.NewSelect().
		Model(&event).
		Where("event_id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", eventID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &event, nil
}

// ListEvents → all events, most recent first
func (d *DB) ListEvents(ctx context.Context) ([]models.Event, error) {
	events := []models.Event{}
	err := d.Bun.NewSelect().
		Model(&events).
		Order("starts_at DESC", "created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// ListBlockers → names of everyone still attached to the event
func (d *DB) ListBlockers(ctx context.Context, eventID string) (models.DeleteBlockers, error) {
	return listBlockers(ctx, d.Bun, eventID)
}

func listBlockers(ctx context.Context, db bun.IDB, eventID string) (models.DeleteBlockers, error) {
	blockers := models.DeleteBlockers{Members: []string{}, Guests: []string{}, Speakers: []string{}}

	var regs []models.Registration
	err := db.NewSelect().
		Model(&regs).
		Column("name", "role").
		Where("event_id = ?", eventID).
		Where("status <> ?", models.StatusCancelled).
		Order("created_at").
		Scan(ctx)
	if err != nil {
		return blockers, fmt.Errorf("list blocking registrations: %w", err)
	}
	for _, r := range regs {
		switch r.Role {
		case models.RoleMember:
			blockers.Members = append(blockers.Members, r.Name)
		case models.RoleGuest:
			blockers.Guests = append(blockers.Guests, r.Name)
		case models.RoleSpeaker:
			blockers.Speakers = append(blockers.Speakers, r.Name)
		}
	}

	var speakers []models.SpeakerBooking
	err = db.NewSelect().
		Model(&speakers).
		Column("name").
		Where("event_id = ?", eventID).
		Order("created_at").
		Scan(ctx)
	if err != nil {
		return blockers, fmt.Errorf("list blocking speaker bookings: %w", err)
	}
	for _, s := range speakers {
		blockers.Speakers = append(blockers.Speakers, s.Name)
	}
	return blockers, nil
}

// DeleteEvent → delete the event if nothing blocks it. The blocker check and
// the delete run in one transaction; cancelled registrations go with the event.
func (d *DB) DeleteEvent(ctx context.Context, eventID string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := getEvent(ctx, tx, eventID); err != nil {
			return err
		}

		blockers, err := listBlockers(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if !blockers.Empty() {
			return &apperr.HasDependentsError{EventID: eventID, Blockers: blockers}
		}

		_, err = tx.NewDelete().
			Model((*models.Registration)(nil)).
			Where("event_id = ?", eventID).
			Where("status = ?", models.StatusCancelled).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete cancelled registrations: %w", err)
		}

		_, err = tx.NewDelete().
			Model((*models.Event)(nil)).
			Where("event_id = ?", eventID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		return nil
	})
}
