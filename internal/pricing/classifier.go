// Package pricing maps an event and a registrant to the charge that is frozen
// into a registration. The decision table is fixed organization policy.
package pricing

import (
	"ms-membership/internal/apperr"
	"ms-membership/internal/models"
)

// Organization-wide amounts in cents.
const (
	FixedMonthlyCents      int64 = 18000
	SingleMemberCents      int64 = 22000
	DefaultGuestPriceCents int64 = 25000
)

// ComputeCharge applies the pricing rules in order; the first matching rule
// wins. It returns an ErrConfig error when a price field the matching rule
// needs is missing on the event.
func ComputeCharge(event models.Event, registrant models.Registrant) (models.Charge, error) {
	if registrant.Role == models.RoleSpeaker {
		return noCharge(), nil
	}

	if event.Type == models.EventTypeDinner || event.PricingMode == models.PricingModeManualPerReg {
		if event.DefaultPriceCents == nil {
			return models.Charge{}, apperr.Config("event %s requires default price", event.EventID)
		}
		return manual(*event.DefaultPriceCents), nil
	}

	if event.Type == models.EventTypeBOD {
		price := event.BODGuestPriceCents
		if registrant.Role == models.RoleMember {
			price = event.BODMemberPriceCents
		}
		if price == nil {
			return models.Charge{}, apperr.Config("BOD event %s missing %s price", event.EventID, registrant.Role)
		}
		return manual(*price), nil
	}

	if registrant.Role == models.RoleMember {
		switch {
		case registrant.MemberType == models.MemberTypeFixed && oneOf(event.Type, models.EventTypeGeneral, models.EventTypeJoint):
			return models.Charge{
				BillingType:   models.BillingFixedMonthly,
				PriceCents:    FixedMonthlyCents,
				PaymentStatus: models.PaymentMonthlyBill,
			}, nil
		case registrant.MemberType == models.MemberTypeSingle && oneOf(event.Type, models.EventTypeGeneral, models.EventTypeClosed, models.EventTypeJoint):
			return models.Charge{
				BillingType:   models.BillingSingle220,
				PriceCents:    SingleMemberCents,
				PaymentStatus: models.PaymentUnpaid,
			}, nil
		}
	}

	if registrant.Role == models.RoleGuest {
		if event.GuestPriceCents != nil {
			return manual(*event.GuestPriceCents), nil
		}
		return manual(DefaultGuestPriceCents), nil
	}

	return noCharge(), nil
}

func noCharge() models.Charge {
	return models.Charge{BillingType: models.BillingNone, PriceCents: 0, PaymentStatus: models.PaymentUnpaid}
}

func manual(cents int64) models.Charge {
	return models.Charge{BillingType: models.BillingManual, PriceCents: cents, PaymentStatus: models.PaymentUnpaid}
}

func oneOf(t models.EventType, types ...models.EventType) bool {
	for _, candidate := range types {
		if t == candidate {
			return true
		}
	}
	return false
}
