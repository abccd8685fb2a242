// Package analytics summarizes what an event's registrations owe.
package analytics

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"ms-membership/internal/models"
)

type DBLayer interface {
	DuesRows(ctx context.Context, eventID string) ([]DuesRow, error)
	SpeakerCount(ctx context.Context, eventID string) (int, error)
}

type EventReader interface {
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
}

type Service struct {
	db     DBLayer
	events EventReader
}

func NewService(db DBLayer, events EventReader) *Service {
	return &Service{db: db, events: events}
}

// BillingTotal is money per billing type over registered rows.
type BillingTotal struct {
	BillingType models.BillingType `json:"billing_type"`
	Count       int                `json:"count"`
	Total       string             `json:"total"`
}

// DuesSummary is the per-event roll-up. Amounts are decimal strings in the
// organization's currency ("180.00"); cancelled and leave rows carry no money.
type DuesSummary struct {
	EventID     string                            `json:"event_id"`
	Title       string                            `json:"title"`
	ByStatus    map[models.RegistrationStatus]int `json:"by_status"`
	ByRole      map[models.Role]int               `json:"registered_by_role"`
	ByPayment   map[models.PaymentStatus]int      `json:"registered_by_payment"`
	Speakers    int                               `json:"speakers"`
	ByBilling   []BillingTotal                    `json:"by_billing"`
	Outstanding string                            `json:"outstanding"`
	MonthlyBill string                            `json:"monthly_bill"`
	Collected   string                            `json:"collected"`
	Expected    string                            `json:"expected"`
}

func money(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Summarize builds the dues summary for one event.
func (s *Service) Summarize(ctx context.Context, eventID string) (*DuesSummary, error) {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.DuesRows(ctx, eventID)
	if err != nil {
		return nil, err
	}
	speakers, err := s.db.SpeakerCount(ctx, eventID)
	if err != nil {
		return nil, err
	}

	sum := &DuesSummary{
		EventID:   eventID,
		Title:     event.Title,
		ByStatus:  map[models.RegistrationStatus]int{},
		ByRole:    map[models.Role]int{},
		ByPayment: map[models.PaymentStatus]int{},
		Speakers:  speakers,
		ByBilling: []BillingTotal{},
	}

	var outstanding, monthly, collected decimal.Decimal
	billing := map[models.BillingType]*BillingTotal{}
	billingCents := map[models.BillingType]decimal.Decimal{}

	for _, r := range rows {
		sum.ByStatus[r.Status] += r.Count
		if r.Status != models.StatusRegistered {
			continue
		}
		sum.ByRole[r.Role] += r.Count
		sum.ByPayment[r.PaymentStatus] += r.Count

		amount := money(r.TotalCents)
		switch r.PaymentStatus {
		case models.PaymentUnpaid:
			outstanding = outstanding.Add(amount)
		case models.PaymentMonthlyBill:
			monthly = monthly.Add(amount)
		case models.PaymentPaid:
			collected = collected.Add(amount)
		}

		bt, ok := billing[r.BillingType]
		if !ok {
			bt = &BillingTotal{BillingType: r.BillingType}
			billing[r.BillingType] = bt
		}
		bt.Count += r.Count
		billingCents[r.BillingType] = billingCents[r.BillingType].Add(amount)
	}

	for t, bt := range billing {
		bt.Total = billingCents[t].StringFixed(2)
		sum.ByBilling = append(sum.ByBilling, *bt)
	}
	sort.Slice(sum.ByBilling, func(i, j int) bool { return sum.ByBilling[i].BillingType < sum.ByBilling[j].BillingType })

	sum.Outstanding = outstanding.StringFixed(2)
	sum.MonthlyBill = monthly.StringFixed(2)
	sum.Collected = collected.StringFixed(2)
	sum.Expected = outstanding.Add(monthly).Add(collected).StringFixed(2)
	return sum, nil
}
