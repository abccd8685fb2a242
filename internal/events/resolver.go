// Package events normalizes event configuration before an event is stored.
package events

import (
	"strings"

	"ms-membership/internal/apperr"
	"ms-membership/internal/models"
	"ms-membership/internal/pricing"
)

// DefaultGeneralSpeakerQuota is applied to GENERAL events created without a quota.
const DefaultGeneralSpeakerQuota = 5

// ResolveEventConfig validates raw creation input and returns the event with
// type-dependent defaults applied. The returned event has no ID yet.
func ResolveEventConfig(in models.EventInput) (models.Event, error) {
	if !in.Type.Valid() {
		return models.Event{}, apperr.Validation("unknown event type %q", in.Type)
	}

	mode := in.PricingMode
	if mode == "" {
		mode = models.PricingModeDefault
	}
	if mode != models.PricingModeDefault && mode != models.PricingModeManualPerReg {
		return models.Event{}, apperr.Validation("unknown pricing mode %q", in.PricingMode)
	}

	if in.SpeakerQuota != nil && *in.SpeakerQuota < 0 {
		return models.Event{}, apperr.Validation("speaker quota must not be negative")
	}
	for name, price := range map[string]*int64{
		"guest_price_cents":      in.GuestPriceCents,
		"bod_member_price_cents": in.BODMemberPriceCents,
		"bod_guest_price_cents":  in.BODGuestPriceCents,
		"default_price_cents":    in.DefaultPriceCents,
	} {
		if price != nil && *price < 0 {
			return models.Event{}, apperr.Validation("%s must not be negative", name)
		}
	}

	event := models.Event{
		Title:               strings.TrimSpace(in.Title),
		Location:            strings.TrimSpace(in.Location),
		StartsAt:            in.StartsAt,
		Type:                in.Type,
		PricingMode:         mode,
		AllowGuests:         in.AllowGuests,
		SpeakerQuota:        copyInt(in.SpeakerQuota),
		GuestPriceCents:     copyCents(in.GuestPriceCents),
		BODMemberPriceCents: copyCents(in.BODMemberPriceCents),
		BODGuestPriceCents:  copyCents(in.BODGuestPriceCents),
		DefaultPriceCents:   copyCents(in.DefaultPriceCents),
	}

	switch event.Type {
	case models.EventTypeBOD:
		if !positive(event.BODMemberPriceCents) || !positive(event.BODGuestPriceCents) {
			return models.Event{}, apperr.Validation("BOD event requires member and guest prices")
		}
		event.AllowGuests = true
	case models.EventTypeDinner:
		event.PricingMode = models.PricingModeManualPerReg
		if event.DefaultPriceCents == nil {
			return models.Event{}, apperr.Validation("DINNER event requires a default price")
		}
		event.AllowGuests = true
	case models.EventTypeClosed:
		event.AllowGuests = false
	case models.EventTypeJoint:
		event.AllowGuests = true
	case models.EventTypeGeneral:
		event.AllowGuests = true
		if event.SpeakerQuota == nil {
			quota := DefaultGeneralSpeakerQuota
			event.SpeakerQuota = &quota
		}
		if event.GuestPriceCents == nil {
			price := pricing.DefaultGuestPriceCents
			event.GuestPriceCents = &price
		}
	}

	if event.PricingMode == models.PricingModeManualPerReg && event.DefaultPriceCents == nil {
		return models.Event{}, apperr.Validation("manual pricing requires a default price")
	}

	// Speaker eligibility follows the quota alone, including the GENERAL default.
	event.AllowSpeakers = event.SpeakerQuota != nil && *event.SpeakerQuota > 0

	return event, nil
}

func positive(v *int64) bool {
	return v != nil && *v > 0
}

func copyCents(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
