// Package service implements the registration lifecycle: register, leave,
// speaker booking, cancellation and payment marking.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-membership/internal/apperr"
	"ms-membership/internal/logger"
	"ms-membership/internal/models"
	"ms-membership/internal/monitoring"
	"ms-membership/internal/notify"
	"ms-membership/internal/pricing"
	"ms-membership/internal/utils"
)

type DBLayer interface {
	Register(ctx context.Context, reg *models.Registration) error
	ReplaceWithLeave(ctx context.Context, leave *models.Registration) error
	Cancel(ctx context.Context, eventID, phone string) (*models.Registration, *models.SpeakerBooking, error)
	GetRegistration(ctx context.Context, registrationID string) (*models.Registration, error)
	UpdatePaymentStatus(ctx context.Context, registrationID string, status models.PaymentStatus) error
	ListRegistrations(ctx context.Context, eventID string, status models.RegistrationStatus) ([]models.Registration, error)
	BookSpeaker(ctx context.Context, booking *models.SpeakerBooking, quota int) error
	ListSpeakers(ctx context.Context, eventID string) ([]models.SpeakerBooking, error)
}

type EventReader interface {
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
}

type MemberDirectory interface {
	ResolveMember(ctx context.Context, memberID, phone string) (*models.Member, error)
}

// Locker serializes speaker bookings per event.
type Locker interface {
	Acquire(ctx context.Context, eventID string) (func(), error)
}

type Dispatcher interface {
	Dispatch(n models.Notification)
}

type RegistrationService struct {
	DB       DBLayer
	Events   EventReader
	Members  MemberDirectory
	Lock     Locker
	Notifier Dispatcher
	Logger   *logger.Logger
}

func NewRegistrationService(db DBLayer, events EventReader, members MemberDirectory, lock Locker, notifier Dispatcher, log *logger.Logger) *RegistrationService {
	return &RegistrationService{
		DB:       db,
		Events:   events,
		Members:  members,
		Lock:     lock,
		Notifier: notifier,
		Logger:   log,
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrDuplicateRegistration):
		return "duplicate"
	case errors.Is(err, apperr.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, apperr.ErrNotAvailable):
		return "not_available"
	case errors.Is(err, apperr.ErrNotAllowed):
		return "not_allowed"
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrConfig):
		return "invalid"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	}
	return "error"
}

func (s *RegistrationService) record(op, eventID string, err error) {
	monitoring.RegistrationOutcomes.WithLabelValues(op, outcome(err)).Inc()
	if err != nil {
		s.Logger.Warn("REGISTRATION", fmt.Sprintf("%s at event %s failed: %v", op, eventID, err))
	}
}

func (s *RegistrationService) notify(kind models.NotificationKind, eventID, name string, role models.Role) {
	s.Notifier.Dispatch(models.Notification{
		EventID: eventID,
		Kind:    kind,
		Name:    name,
		Role:    role,
		Summary: notify.Summary(kind, name, role),
		At:      time.Now().UTC(),
	})
}

// resolveMember looks the member up and checks that a supplied phone is the
// one on record. Member rows are always keyed by the recorded phone.
func (s *RegistrationService) resolveMember(ctx context.Context, memberID, phone string) (*models.Member, error) {
	member, err := s.Members.ResolveMember(ctx, memberID, phone)
	if err != nil {
		return nil, err
	}
	if phone != "" && phone != member.Phone {
		return nil, apperr.Validation("phone %s does not match member %s", phone, member.MemberID)
	}
	return member, nil
}

// Register prices the registrant against the event and stores a REGISTERED
// row with the charge frozen into it. A leave row for the same phone is
// replaced.
func (s *RegistrationService) Register(ctx context.Context, eventID string, req models.RegisterRequest) (reg *models.Registration, err error) {
	defer func() { s.record("register", eventID, err) }()

	req.Phone = strings.TrimSpace(req.Phone)
	req.Name = strings.TrimSpace(req.Name)
	req.MemberID = strings.TrimSpace(req.MemberID)
	if !req.Role.Valid() {
		return nil, apperr.Validation("unknown role %q", req.Role)
	}
	if req.Phone == "" && (req.Role != models.RoleMember || req.MemberID == "") {
		return nil, apperr.Validation("phone is required")
	}

	event, err := s.Events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	registrant := models.Registrant{Role: req.Role}
	switch req.Role {
	case models.RoleSpeaker:
		return nil, fmt.Errorf("%w: speakers book through the speaker endpoint", apperr.ErrNotAllowed)
	case models.RoleGuest:
		if !event.AllowGuests {
			return nil, fmt.Errorf("%w: event %s does not accept guests", apperr.ErrNotAllowed, eventID)
		}
		if req.Name == "" {
			return nil, apperr.Validation("guest name is required")
		}
	case models.RoleMember:
		member, err := s.resolveMember(ctx, req.MemberID, req.Phone)
		if err != nil {
			return nil, err
		}
		req.MemberID = member.MemberID
		req.Phone = member.Phone
		if req.Name == "" {
			req.Name = member.Name
		}
		if req.Company == "" {
			req.Company = member.Company
		}
		registrant.MemberType = member.MemberType
	}

	charge, err := pricing.ComputeCharge(*event, registrant)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	reg = &models.Registration{
		RegistrationID: utils.NewID("reg"),
		EventID:        eventID,
		MemberID:       req.MemberID,
		Phone:          req.Phone,
		Name:           req.Name,
		Company:        req.Company,
		Role:           req.Role,
		Status:         models.StatusRegistered,
		BillingType:    charge.BillingType,
		PaymentStatus:  charge.PaymentStatus,
		PriceCents:     charge.PriceCents,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.DB.Register(ctx, reg); err != nil {
		return nil, err
	}

	s.Logger.LogRegistration("REGISTERED", eventID, fmt.Sprintf("%s (%s) billing=%s price=%d", reg.Name, reg.Role, reg.BillingType, reg.PriceCents))
	s.notify(models.NotifyRegistered, eventID, reg.Name, reg.Role)
	return reg, nil
}

// RequestLeave records that the person will not attend. Any active row is
// replaced by a settled leave row; no prior registration is needed.
func (s *RegistrationService) RequestLeave(ctx context.Context, eventID string, id models.Identity) (leave *models.Registration, err error) {
	defer func() { s.record("leave", eventID, err) }()

	id.Phone = strings.TrimSpace(id.Phone)
	id.Name = strings.TrimSpace(id.Name)
	id.MemberID = strings.TrimSpace(id.MemberID)
	if id.Role != "" && !id.Role.Valid() {
		return nil, apperr.Validation("unknown role %q", id.Role)
	}
	if id.Role == "" {
		id.Role = models.RoleGuest
		if id.MemberID != "" {
			id.Role = models.RoleMember
		}
	}
	if id.Phone == "" && (id.Role != models.RoleMember || id.MemberID == "") {
		return nil, apperr.Validation("phone is required")
	}
	if _, err := s.Events.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}

	if id.Role == models.RoleMember {
		member, err := s.resolveMember(ctx, id.MemberID, id.Phone)
		if err != nil {
			return nil, err
		}
		id.MemberID = member.MemberID
		id.Phone = member.Phone
		if id.Name == "" {
			id.Name = member.Name
		}
	}
	if id.Name == "" {
		return nil, apperr.Validation("name is required")
	}

	now := time.Now().UTC()
	leave = &models.Registration{
		RegistrationID: utils.NewID("reg"),
		EventID:        eventID,
		MemberID:       id.MemberID,
		Phone:          id.Phone,
		Name:           id.Name,
		Role:           id.Role,
		Status:         models.StatusOnLeave,
		BillingType:    models.BillingNone,
		PaymentStatus:  models.PaymentPaid,
		PriceCents:     0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.DB.ReplaceWithLeave(ctx, leave); err != nil {
		return nil, err
	}

	s.Logger.LogRegistration("LEAVE", eventID, leave.Name)
	s.notify(models.NotifyLeave, eventID, leave.Name, leave.Role)
	return leave, nil
}

// BookSpeaker takes one of the event's speaker slots. The count and insert
// run under the per-event lock so concurrent bookings cannot overshoot the
// quota.
func (s *RegistrationService) BookSpeaker(ctx context.Context, eventID string, req models.SpeakerRequest) (booking *models.SpeakerBooking, err error) {
	defer func() { s.record("book_speaker", eventID, err) }()

	req.Phone = strings.TrimSpace(req.Phone)
	req.Name = strings.TrimSpace(req.Name)
	req.MemberID = strings.TrimSpace(req.MemberID)
	if req.MemberID == "" && (req.Phone == "" || req.Name == "") {
		return nil, apperr.Validation("speaker phone and name are required")
	}

	event, err := s.Events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.SpeakersEnabled() {
		return nil, fmt.Errorf("%w: event %s takes no speakers", apperr.ErrNotAvailable, eventID)
	}

	// A member speaking books under the phone on record.
	if req.MemberID != "" {
		member, err := s.resolveMember(ctx, req.MemberID, req.Phone)
		if err != nil {
			return nil, err
		}
		req.Phone = member.Phone
		if req.Name == "" {
			req.Name = member.Name
		}
	}

	booking = &models.SpeakerBooking{
		BookingID: utils.NewID("spk"),
		EventID:   eventID,
		MemberID:  req.MemberID,
		Phone:     req.Phone,
		Name:      req.Name,
		Topic:     strings.TrimSpace(req.Topic),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.bookLocked(ctx, booking, *event.SpeakerQuota); err != nil {
		return nil, err
	}

	monitoring.SpeakerBookings.Inc()
	s.Logger.LogRegistration("SPEAKER", eventID, booking.Name)
	s.notify(models.NotifySpeakerBooked, eventID, booking.Name, models.RoleSpeaker)
	return booking, nil
}

func (s *RegistrationService) bookLocked(ctx context.Context, booking *models.SpeakerBooking, quota int) error {
	start := time.Now()
	release, err := s.Lock.Acquire(ctx, booking.EventID)
	monitoring.LockWaitSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}
	defer release()
	return s.DB.BookSpeaker(ctx, booking, quota)
}

// Cancel marks the person's active registration CANCELLED and drops their
// speaker booking, freeing the phone to register again.
func (s *RegistrationService) Cancel(ctx context.Context, eventID, phone string) (reg *models.Registration, err error) {
	defer func() { s.record("cancel", eventID, err) }()

	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, apperr.Validation("phone is required")
	}
	reg, booking, err := s.DB.Cancel(ctx, eventID, phone)
	if err != nil {
		return nil, err
	}

	name, role := "", models.RoleSpeaker
	if booking != nil {
		name = booking.Name
	}
	if reg != nil {
		name, role = reg.Name, reg.Role
	}
	s.Logger.LogRegistration("CANCELLED", eventID, name)
	s.notify(models.NotifyCancelled, eventID, name, role)
	return reg, nil
}

// MarkPayment records a payment status change. The frozen price and billing
// type never change; leave rows are settled and immutable; fixed monthly
// members only move between MONTHLY_BILL and PAID.
func (s *RegistrationService) MarkPayment(ctx context.Context, registrationID string, status models.PaymentStatus) (*models.Registration, error) {
	if !status.Valid() {
		return nil, apperr.Validation("unknown payment status %q", status)
	}
	reg, err := s.DB.GetRegistration(ctx, registrationID)
	if err != nil {
		return nil, err
	}

	switch {
	case reg.Status == models.StatusOnLeave:
		return nil, fmt.Errorf("%w: leave rows are settled", apperr.ErrNotAllowed)
	case reg.Status == models.StatusCancelled:
		return nil, fmt.Errorf("%w: registration is cancelled", apperr.ErrNotAllowed)
	case reg.BillingType == models.BillingNone:
		return nil, fmt.Errorf("%w: nothing is billed", apperr.ErrNotAllowed)
	case reg.BillingType == models.BillingFixedMonthly:
		if status == models.PaymentUnpaid {
			return nil, apperr.Validation("fixed monthly registrations are MONTHLY_BILL or PAID")
		}
	default:
		if status == models.PaymentMonthlyBill {
			return nil, apperr.Validation("only fixed monthly registrations go on the monthly bill")
		}
	}

	if err := s.DB.UpdatePaymentStatus(ctx, registrationID, status); err != nil {
		return nil, err
	}
	s.Logger.LogRegistration("PAYMENT", reg.EventID, fmt.Sprintf("%s %s -> %s", registrationID, reg.PaymentStatus, status))
	reg.PaymentStatus = status
	return reg, nil
}

func (s *RegistrationService) GetRegistration(ctx context.Context, registrationID string) (*models.Registration, error) {
	return s.DB.GetRegistration(ctx, registrationID)
}

// ListRegistrations returns the event's rows, all of them when status is empty.
func (s *RegistrationService) ListRegistrations(ctx context.Context, eventID string, status models.RegistrationStatus) ([]models.Registration, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Validation("unknown status %q", status)
	}
	if _, err := s.Events.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.DB.ListRegistrations(ctx, eventID, status)
}

func (s *RegistrationService) ListSpeakers(ctx context.Context, eventID string) ([]models.SpeakerBooking, error) {
	if _, err := s.Events.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.DB.ListSpeakers(ctx, eventID)
}
