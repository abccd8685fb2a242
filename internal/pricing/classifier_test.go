package pricing_test

import (
	"errors"
	"testing"

	"ms-membership/internal/apperr"
	"ms-membership/internal/models"
	"ms-membership/internal/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cents(v int64) *int64 { return &v }

var allTypes = []models.EventType{
	models.EventTypeGeneral, models.EventTypeClosed, models.EventTypeBOD, models.EventTypeDinner,
	models.EventTypeJoint, models.EventTypeSoft, models.EventTypeVisit,
}

var nonSpeakers = []models.Registrant{
	{Role: models.RoleMember, MemberType: models.MemberTypeFixed},
	{Role: models.RoleMember, MemberType: models.MemberTypeSingle},
	{Role: models.RoleGuest},
}

func TestComputeCharge_SpeakerNeverPays(t *testing.T) {
	for _, eventType := range allTypes {
		for _, mode := range []models.PricingMode{models.PricingModeDefault, models.PricingModeManualPerReg} {
			// No price fields at all: the speaker rule must win before any ConfigError
			event := models.Event{Type: eventType, PricingMode: mode}
			charge, err := pricing.ComputeCharge(event, models.Registrant{Role: models.RoleSpeaker})
			require.NoError(t, err)
			assert.Equal(t, models.Charge{
				BillingType:   models.BillingNone,
				PriceCents:    0,
				PaymentStatus: models.PaymentUnpaid,
			}, charge, "type=%s mode=%s", eventType, mode)
		}
	}
}

func TestComputeCharge_DinnerIsManualDefaultPrice(t *testing.T) {
	event := models.Event{
		Type:                models.EventTypeDinner,
		PricingMode:         models.PricingModeManualPerReg,
		DefaultPriceCents:   cents(99000),
		GuestPriceCents:     cents(1),
		BODMemberPriceCents: cents(2),
	}
	for _, registrant := range nonSpeakers {
		charge, err := pricing.ComputeCharge(event, registrant)
		require.NoError(t, err)
		assert.Equal(t, models.BillingManual, charge.BillingType)
		assert.Equal(t, int64(99000), charge.PriceCents)
		assert.Equal(t, models.PaymentUnpaid, charge.PaymentStatus)
	}
}

func TestComputeCharge_ManualPerRegOverridesType(t *testing.T) {
	event := models.Event{
		Type:              models.EventTypeGeneral,
		PricingMode:       models.PricingModeManualPerReg,
		DefaultPriceCents: cents(5000),
	}
	charge, err := pricing.ComputeCharge(event, models.Registrant{Role: models.RoleMember, MemberType: models.MemberTypeFixed})
	require.NoError(t, err)
	assert.Equal(t, models.Charge{BillingType: models.BillingManual, PriceCents: 5000, PaymentStatus: models.PaymentUnpaid}, charge)
}

func TestComputeCharge_MissingDefaultPriceIsConfigError(t *testing.T) {
	event := models.Event{Type: models.EventTypeDinner, PricingMode: models.PricingModeManualPerReg}
	_, err := pricing.ComputeCharge(event, models.Registrant{Role: models.RoleGuest})
	assert.True(t, errors.Is(err, apperr.ErrConfig))
}

func TestComputeCharge_BOD(t *testing.T) {
	event := models.Event{
		Type:                models.EventTypeBOD,
		PricingMode:         models.PricingModeDefault,
		BODMemberPriceCents: cents(30000),
		BODGuestPriceCents:  cents(60000),
	}

	charge, err := pricing.ComputeCharge(event, models.Registrant{Role: models.RoleMember, MemberType: models.MemberTypeFixed})
	require.NoError(t, err)
	assert.Equal(t, models.Charge{BillingType: models.BillingManual, PriceCents: 30000, PaymentStatus: models.PaymentUnpaid}, charge)

	charge, err = pricing.ComputeCharge(event, models.Registrant{Role: models.RoleGuest})
	require.NoError(t, err)
	assert.Equal(t, models.Charge{BillingType: models.BillingManual, PriceCents: 60000, PaymentStatus: models.PaymentUnpaid}, charge)
}

func TestComputeCharge_BODMissingPriceIsConfigError(t *testing.T) {
	event := models.Event{Type: models.EventTypeBOD, BODGuestPriceCents: cents(60000)}

	_, err := pricing.ComputeCharge(event, models.Registrant{Role: models.RoleMember, MemberType: models.MemberTypeSingle})
	assert.True(t, errors.Is(err, apperr.ErrConfig))

	// Guest price is present, so a guest still prices fine
	charge, err := pricing.ComputeCharge(event, models.Registrant{Role: models.RoleGuest})
	require.NoError(t, err)
	assert.Equal(t, int64(60000), charge.PriceCents)
}

func TestComputeCharge_MemberTable(t *testing.T) {
	cases := []struct {
		name       string
		eventType  models.EventType
		memberType models.MemberType
		want       models.Charge
	}{
		{"fixed general", models.EventTypeGeneral, models.MemberTypeFixed, models.Charge{BillingType: models.BillingFixedMonthly, PriceCents: 18000, PaymentStatus: models.PaymentMonthlyBill}},
		{"fixed joint", models.EventTypeJoint, models.MemberTypeFixed, models.Charge{BillingType: models.BillingFixedMonthly, PriceCents: 18000, PaymentStatus: models.PaymentMonthlyBill}},
		{"fixed closed", models.EventTypeClosed, models.MemberTypeFixed, models.Charge{BillingType: models.BillingNone, PriceCents: 0, PaymentStatus: models.PaymentUnpaid}},
		{"single general", models.EventTypeGeneral, models.MemberTypeSingle, models.Charge{BillingType: models.BillingSingle220, PriceCents: 22000, PaymentStatus: models.PaymentUnpaid}},
		{"single closed", models.EventTypeClosed, models.MemberTypeSingle, models.Charge{BillingType: models.BillingSingle220, PriceCents: 22000, PaymentStatus: models.PaymentUnpaid}},
		{"single joint", models.EventTypeJoint, models.MemberTypeSingle, models.Charge{BillingType: models.BillingSingle220, PriceCents: 22000, PaymentStatus: models.PaymentUnpaid}},
		{"fixed soft", models.EventTypeSoft, models.MemberTypeFixed, models.Charge{BillingType: models.BillingNone, PriceCents: 0, PaymentStatus: models.PaymentUnpaid}},
		{"single visit", models.EventTypeVisit, models.MemberTypeSingle, models.Charge{BillingType: models.BillingNone, PriceCents: 0, PaymentStatus: models.PaymentUnpaid}},
		{"unknown member type", models.EventTypeGeneral, "", models.Charge{BillingType: models.BillingNone, PriceCents: 0, PaymentStatus: models.PaymentUnpaid}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			event := models.Event{Type: c.eventType, PricingMode: models.PricingModeDefault, GuestPriceCents: cents(1)}
			charge, err := pricing.ComputeCharge(event, models.Registrant{Role: models.RoleMember, MemberType: c.memberType})
			require.NoError(t, err)
			assert.Equal(t, c.want, charge)
		})
	}
}

func TestComputeCharge_Guest(t *testing.T) {
	// Unset guest price falls back to the default
	event := models.Event{Type: models.EventTypeGeneral, PricingMode: models.PricingModeDefault}
	charge, err := pricing.ComputeCharge(event, models.Registrant{Role: models.RoleGuest})
	require.NoError(t, err)
	assert.Equal(t, models.Charge{BillingType: models.BillingManual, PriceCents: 25000, PaymentStatus: models.PaymentUnpaid}, charge)

	event.GuestPriceCents = cents(30000)
	charge, err = pricing.ComputeCharge(event, models.Registrant{Role: models.RoleGuest})
	require.NoError(t, err)
	assert.Equal(t, int64(30000), charge.PriceCents)

	// Guests at a SOFT event are still priced by the guest rule
	event = models.Event{Type: models.EventTypeSoft}
	charge, err = pricing.ComputeCharge(event, models.Registrant{Role: models.RoleGuest})
	require.NoError(t, err)
	assert.Equal(t, models.BillingManual, charge.BillingType)
	assert.Equal(t, pricing.DefaultGuestPriceCents, charge.PriceCents)
}

func TestComputeCharge_DoesNotMutateEvent(t *testing.T) {
	event := models.Event{Type: models.EventTypeGeneral}
	before := event
	_, err := pricing.ComputeCharge(event, models.Registrant{Role: models.RoleGuest})
	require.NoError(t, err)
	assert.Equal(t, before, event)
	assert.Nil(t, event.GuestPriceCents)
}
