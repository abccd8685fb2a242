package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ms-membership/internal/apperr"
	"ms-membership/internal/events"
	"ms-membership/internal/logger"
	"ms-membership/internal/models"
	"ms-membership/internal/utils"
)

type DBLayer interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	ListBlockers(ctx context.Context, eventID string) (models.DeleteBlockers, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

type EventService struct {
	DB     DBLayer
	Logger *logger.Logger
}

func NewEventService(db DBLayer, log *logger.Logger) *EventService {
	return &EventService{DB: db, Logger: log}
}

// CreateEvent resolves the input into a consistent configuration and stores it.
func (s *EventService) CreateEvent(ctx context.Context, in models.EventInput) (*models.Event, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperr.Validation("title is required")
	}
	event, err := events.ResolveEventConfig(in)
	if err != nil {
		return nil, err
	}
	event.EventID = utils.NewID("evt")
	event.CreatedAt = time.Now().UTC()

	if err := s.DB.CreateEvent(ctx, &event); err != nil {
		s.Logger.Error("EVENT", fmt.Sprintf("Failed to create event %q: %v", in.Title, err))
		return nil, err
	}
	s.Logger.LogEvent("CREATED", event.EventID, fmt.Sprintf("type=%s guests=%t speakers=%t", event.Type, event.AllowGuests, event.AllowSpeakers))
	return &event, nil
}

func (s *EventService) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	return s.DB.GetEvent(ctx, eventID)
}

func (s *EventService) ListEvents(ctx context.Context) ([]models.Event, error) {
	return s.DB.ListEvents(ctx)
}

// CanDeleteEvent reports whether the event is free of members, guests and
// speakers, and names them if not.
func (s *EventService) CanDeleteEvent(ctx context.Context, eventID string) (models.DeleteCheck, error) {
	if _, err := s.DB.GetEvent(ctx, eventID); err != nil {
		return models.DeleteCheck{}, err
	}
	blockers, err := s.DB.ListBlockers(ctx, eventID)
	if err != nil {
		return models.DeleteCheck{}, err
	}
	return models.DeleteCheck{Allowed: blockers.Empty(), Blockers: blockers}, nil
}

// DeleteEvent fails with a HasDependentsError while anyone is still attached.
func (s *EventService) DeleteEvent(ctx context.Context, eventID string) error {
	if err := s.DB.DeleteEvent(ctx, eventID); err != nil {
		s.Logger.Warn("EVENT", fmt.Sprintf("Delete of event %s refused: %v", eventID, err))
		return err
	}
	s.Logger.LogEvent("DELETED", eventID, "")
	return nil
}
