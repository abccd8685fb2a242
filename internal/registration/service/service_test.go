package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"ms-membership/internal/apperr"
	"ms-membership/internal/database/dbtest"
	eventdb "ms-membership/internal/events/db"
	"ms-membership/internal/logger"
	"ms-membership/internal/membership"
	"ms-membership/internal/models"
	"ms-membership/internal/notify"
	regdb "ms-membership/internal/registration/db"
	regredis "ms-membership/internal/registration/redis"
	"ms-membership/internal/registration/service"
)

type recorder struct {
	mu  sync.Mutex
	got []models.Notification
}

func (r *recorder) Dispatch(n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recorder) kinds() []models.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.NotificationKind
	for _, n := range r.got {
		out = append(out, n.Kind)
	}
	return out
}

type fixture struct {
	svc    *service.RegistrationService
	bun    *bun.DB
	events *eventdb.DB
	sent   *recorder
}

func setup(t *testing.T) *fixture {
	return setupWithDispatcher(t, nil)
}

func setupWithDispatcher(t *testing.T, dispatcher service.Dispatcher) *fixture {
	bunDB := dbtest.Seeded(t)
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	log := logger.NewNopLogger()
	events := &eventdb.DB{Bun: bunDB}
	members := membership.NewService(&membership.DB{Bun: bunDB}, nil, log)
	lock := regredis.NewEventLock(client, 10*time.Second, 10*time.Second, log)

	sent := &recorder{}
	if dispatcher == nil {
		dispatcher = sent
	}
	svc := service.NewRegistrationService(&regdb.DB{Bun: bunDB}, events, members, lock, dispatcher, log)
	return &fixture{svc: svc, bun: bunDB, events: events, sent: sent}
}

func (f *fixture) createEvent(t *testing.T, e models.Event) {
	require.NoError(t, f.events.CreateEvent(context.Background(), &e))
}

func intp(v int) *int       { return &v }
func centsp(v int64) *int64 { return &v }

func TestRegisterMemberFreezesCharge(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, "evt-001", models.RegisterRequest{Role: models.RoleMember, Phone: "0911000001"})
	require.NoError(t, err)
	assert.Equal(t, "mem-001", reg.MemberID)
	assert.Equal(t, "Alice Tan", reg.Name)
	assert.Equal(t, models.BillingFixedMonthly, reg.BillingType)
	assert.Equal(t, int64(18000), reg.PriceCents)
	assert.Equal(t, models.PaymentMonthlyBill, reg.PaymentStatus)

	reg, err = f.svc.Register(ctx, "evt-001", models.RegisterRequest{Role: models.RoleMember, MemberID: "mem-002", Phone: "0911000002"})
	require.NoError(t, err)
	assert.Equal(t, models.BillingSingle220, reg.BillingType)
	assert.Equal(t, int64(22000), reg.PriceCents)
	assert.Equal(t, models.PaymentUnpaid, reg.PaymentStatus)

	assert.Equal(t, []models.NotificationKind{models.NotifyRegistered, models.NotifyRegistered}, f.sent.kinds())
}

func TestMemberRowsUseRecordedPhone(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	activeFor := func(memberID string) int {
		n, err := f.bun.NewSelect().
			Model((*models.Registration)(nil)).
			Where("member_id = ?", memberID).
			Where("status <> ?", models.StatusCancelled).
			Count(ctx)
		require.NoError(t, err)
		return n
	}

	_, err := f.svc.Register(ctx, "evt-001", models.RegisterRequest{Role: models.RoleMember, MemberID: "mem-001", Phone: "0911000001"})
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, "evt-001", models.RegisterRequest{Role: models.RoleMember, MemberID: "mem-001", Phone: "0999999999"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	_, err = f.svc.Register(ctx, "evt-001", models.RegisterRequest{Role: models.RoleMember, MemberID: "mem-001"})
	assert.True(t, errors.Is(err, apperr.ErrDuplicateRegistration))
	assert.Equal(t, 1, activeFor("mem-001"))

	// Another member cannot take Alice's phone slot.
	_, err = f.svc.Register(ctx, "evt-001", models.RegisterRequest{Role: models.RoleMember, MemberID: "mem-002", Phone: "0911000001"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	reg, err := f.svc.Register(ctx, "evt-001", models.RegisterRequest{Role: models.RoleMember, MemberID: "mem-002"})
	require.NoError(t, err)
	assert.Equal(t, "0911000002", reg.Phone)

	_, err = f.svc.RequestLeave(ctx, "evt-001", models.Identity{MemberID: "mem-404", Name: "Ghost", Phone: "0977"})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	_, err = f.svc.RequestLeave(ctx, "evt-001", models.Identity{MemberID: "mem-001", Name: "Alice", Phone: "0999999999"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	leave, err := f.svc.RequestLeave(ctx, "evt-001", models.Identity{MemberID: "mem-001", Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "0911000001", leave.Phone)
	assert.Equal(t, models.StatusOnLeave, leave.Status)
	assert.Equal(t, 1, activeFor("mem-001"))

	_, err = f.svc.BookSpeaker(ctx, "evt-001", models.SpeakerRequest{Identity: models.Identity{MemberID: "mem-002", Phone: "0911000001"}})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	b, err := f.svc.BookSpeaker(ctx, "evt-001", models.SpeakerRequest{Identity: models.Identity{MemberID: "mem-002"}})
	require.NoError(t, err)
	assert.Equal(t, "0911000002", b.Phone)
	assert.Equal(t, "Bob Lin", b.Name)
}

func TestMarkPaymentAfterCancel(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	guest, err := f.svc.Register(ctx, "evt-001", models.RegisterRequest{Role: models.RoleGuest, Phone: "0922", Name: "Gina"})
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, "evt-001", "0922")
	require.NoError(t, err)

	_, err = f.svc.MarkPayment(ctx, guest.RegistrationID, models.PaymentPaid)
	assert.True(t, errors.Is(err, apperr.ErrNotAllowed))
	stored, err := f.svc.GetRegistration(ctx, guest.RegistrationID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentUnpaid, stored.PaymentStatus)
}

func TestRegisterRejections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.createEvent(t, models.Event{
		EventID: "evt-closed", Title: "Closed", Type: models.EventTypeClosed, PricingMode: models.PricingModeDefault,
	})

	_, err := f.svc.Register(ctx, "evt-closed", models.RegisterRequest{Role: models.RoleGuest, Phone: "0999", Name: "Gary"})
	assert.True(t, errors.Is(err, apperr.ErrNotAllowed))

	_, err = f.svc.Register(ctx, "evt-001", models.RegisterRequest{Role: models.RoleSpeaker, Phone: "0999", Name: "Sue"})
	assert.True(t, errors.Is(err, apperr.ErrNotAllowed))

	_, err = f.svc.Register(ctx, "evt-404", models.RegisterRequest{Role: models.RoleGuest, Phone: "0999", Name: "Gary"})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = f.svc.Register(ctx, "evt-001", models.RegisterRequest{Role: models.RoleGuest, Name: "Gary"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = f.svc.Register(ctx, "evt-001", models.RegisterRequest{Role: models.RoleMember, Phone: "0000"})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	assert.Empty(t, f.sent.kinds())
}

func TestConcurrentRegisterSamePhone(t *testing.T) {
	f := setup(t)
	const n = 20

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		ok    int
		dupes int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Register(context.Background(), "evt-001", models.RegisterRequest{
				Role: models.RoleGuest, Phone: "0922333444", Name: "Gina",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, apperr.ErrDuplicateRegistration):
				dupes++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dupes)
	regs, err := f.svc.ListRegistrations(context.Background(), "evt-001", models.StatusRegistered)
	require.NoError(t, err)
	assert.Len(t, regs, 1)
}

func TestConcurrentSpeakerQuota(t *testing.T) {
	f := setup(t)
	const quota = 5
	f.createEvent(t, models.Event{
		EventID: "evt-talks", Title: "Talks", Type: models.EventTypeSoft, PricingMode: models.PricingModeDefault,
		AllowSpeakers: true, SpeakerQuota: intp(quota),
	})

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		ok     int
		denied int
	)
	for i := 0; i < quota+4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.BookSpeaker(context.Background(), "evt-talks", models.SpeakerRequest{
				Identity: models.Identity{Phone: fmt.Sprintf("0955%04d", i), Name: fmt.Sprintf("Speaker %d", i)},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, apperr.ErrQuotaExceeded):
				denied++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, quota, ok)
	assert.Equal(t, 4, denied)
	speakers, err := f.svc.ListSpeakers(context.Background(), "evt-talks")
	require.NoError(t, err)
	assert.Len(t, speakers, quota)
}

func TestBookSpeakerRules(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.createEvent(t, models.Event{
		EventID: "evt-nospeak", Title: "Visit", Type: models.EventTypeVisit, PricingMode: models.PricingModeDefault,
	})

	_, err := f.svc.BookSpeaker(ctx, "evt-nospeak", models.SpeakerRequest{Identity: models.Identity{Phone: "01", Name: "Sue"}})
	assert.True(t, errors.Is(err, apperr.ErrNotAvailable))

	b, err := f.svc.BookSpeaker(ctx, "evt-001", models.SpeakerRequest{Identity: models.Identity{Phone: "01", Name: "Sue"}, Topic: "Exporting"})
	require.NoError(t, err)
	assert.Equal(t, "Exporting", b.Topic)

	_, err = f.svc.BookSpeaker(ctx, "evt-001", models.SpeakerRequest{Identity: models.Identity{Phone: "01", Name: "Sue"}})
	assert.True(t, errors.Is(err, apperr.ErrDuplicateRegistration))
}

func TestLeaveThenRegister(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	leave, err := f.svc.RequestLeave(ctx, "evt-001", models.Identity{MemberID: "mem-001", Phone: "0911000001"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusOnLeave, leave.Status)
	assert.Equal(t, models.PaymentPaid, leave.PaymentStatus)
	assert.Zero(t, leave.PriceCents)
	assert.Equal(t, "Alice Tan", leave.Name)

	// Idempotent in net state.
	_, err = f.svc.RequestLeave(ctx, "evt-001", models.Identity{MemberID: "mem-001", Phone: "0911000001"})
	require.NoError(t, err)

	reg, err := f.svc.Register(ctx, "evt-001", models.RegisterRequest{Role: models.RoleMember, Phone: "0911000001"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRegistered, reg.Status)

	all, err := f.svc.ListRegistrations(ctx, "evt-001", "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, reg.RegistrationID, all[0].RegistrationID)
}

func TestRegisterThenLeave(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "evt-001", models.RegisterRequest{Role: models.RoleGuest, Phone: "0922", Name: "Gina"})
	require.NoError(t, err)
	_, err = f.svc.RequestLeave(ctx, "evt-001", models.Identity{Phone: "0922", Name: "Gina"})
	require.NoError(t, err)

	all, err := f.svc.ListRegistrations(ctx, "evt-001", "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, models.StatusOnLeave, all[0].Status)
	assert.Equal(t, models.RoleGuest, all[0].Role)
	assert.Equal(t, []models.NotificationKind{models.NotifyRegistered, models.NotifyLeave}, f.sent.kinds())
}

func TestCancelAllowsReregistration(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "evt-001", models.RegisterRequest{Role: models.RoleGuest, Phone: "0922", Name: "Gina"})
	require.NoError(t, err)
	cancelled, err := f.svc.Cancel(ctx, "evt-001", "0922")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	_, err = f.svc.Register(ctx, "evt-001", models.RegisterRequest{Role: models.RoleGuest, Phone: "0922", Name: "Gina"})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, "evt-001", "0000")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestMarkPayment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	fixed, err := f.svc.Register(ctx, "evt-001", models.RegisterRequest{Role: models.RoleMember, Phone: "0911000001"})
	require.NoError(t, err)
	guest, err := f.svc.Register(ctx, "evt-001", models.RegisterRequest{Role: models.RoleGuest, Phone: "0922", Name: "Gina"})
	require.NoError(t, err)
	leave, err := f.svc.RequestLeave(ctx, "evt-001", models.Identity{Phone: "0933", Name: "Lee"})
	require.NoError(t, err)

	_, err = f.svc.MarkPayment(ctx, fixed.RegistrationID, models.PaymentUnpaid)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	updated, err := f.svc.MarkPayment(ctx, fixed.RegistrationID, models.PaymentPaid)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, updated.PaymentStatus)
	assert.Equal(t, int64(18000), updated.PriceCents)

	_, err = f.svc.MarkPayment(ctx, guest.RegistrationID, models.PaymentMonthlyBill)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	_, err = f.svc.MarkPayment(ctx, guest.RegistrationID, models.PaymentPaid)
	require.NoError(t, err)

	_, err = f.svc.MarkPayment(ctx, leave.RegistrationID, models.PaymentUnpaid)
	assert.True(t, errors.Is(err, apperr.ErrNotAllowed))

	stored, err := f.svc.GetRegistration(ctx, guest.RegistrationID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, stored.PaymentStatus)
	assert.Equal(t, models.BillingManual, stored.BillingType)
	assert.Equal(t, int64(25000), stored.PriceCents)
}

type failingNotifier struct{}

func (failingNotifier) Name() string { return "failing" }

func (failingNotifier) Notify(ctx context.Context, n models.Notification) error {
	return errors.New("push gateway unreachable")
}

func TestNotificationFailureDoesNotFailRegistration(t *testing.T) {
	dispatcher := notify.NewDispatcher(50*time.Millisecond, logger.NewNopLogger(), failingNotifier{})
	f := setupWithDispatcher(t, dispatcher)
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, "evt-001", models.RegisterRequest{Role: models.RoleGuest, Phone: "0922", Name: "Gina"})
	require.NoError(t, err)
	dispatcher.Wait()

	stored, err := f.svc.GetRegistration(ctx, reg.RegistrationID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRegistered, stored.Status)
}

func TestDinnerRegistrationUsesDefaultPrice(t *testing.T) {
	f := setup(t)
	f.createEvent(t, models.Event{
		EventID: "evt-dinner", Title: "Year-end dinner", Type: models.EventTypeDinner,
		PricingMode: models.PricingModeManualPerReg, AllowGuests: true, DefaultPriceCents: centsp(120000),
	})

	reg, err := f.svc.Register(context.Background(), "evt-dinner", models.RegisterRequest{Role: models.RoleMember, Phone: "0911000001"})
	require.NoError(t, err)
	assert.Equal(t, models.BillingManual, reg.BillingType)
	assert.Equal(t, int64(120000), reg.PriceCents)
}
