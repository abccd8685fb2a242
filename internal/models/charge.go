package models

type Role string

const (
	RoleMember  Role = "MEMBER"
	RoleGuest   Role = "GUEST"
	RoleSpeaker Role = "SPEAKER"
)

func (r Role) Valid() bool {
	return r == RoleMember || r == RoleGuest || r == RoleSpeaker
}

type MemberType string

const (
	MemberTypeFixed  MemberType = "FIXED"
	MemberTypeSingle MemberType = "SINGLE"
)

func (t MemberType) Valid() bool {
	return t == MemberTypeFixed || t == MemberTypeSingle
}

type BillingType string

const (
	BillingNone         BillingType = "NONE"
	BillingManual       BillingType = "MANUAL"
	BillingFixedMonthly BillingType = "FIXED_MONTHLY"
	BillingSingle220    BillingType = "SINGLE_220"
)

type PaymentStatus string

const (
	PaymentUnpaid      PaymentStatus = "UNPAID"
	PaymentPaid        PaymentStatus = "PAID"
	PaymentMonthlyBill PaymentStatus = "MONTHLY_BILL"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentUnpaid || s == PaymentPaid || s == PaymentMonthlyBill
}

// Registrant is who is being priced. MemberType only matters for RoleMember.
type Registrant struct {
	Role       Role       `json:"role"`
	MemberType MemberType `json:"member_type,omitempty"`
}

// Charge is the pricing decision frozen into a registration.
type Charge struct {
	BillingType   BillingType   `json:"billing_type"`
	PriceCents    int64         `json:"price_cents"`
	PaymentStatus PaymentStatus `json:"payment_status"`
}

// ChargePreviewRequest is the payload of the charge preview endpoint.
type ChargePreviewRequest struct {
	Event      Event      `json:"event"`
	Registrant Registrant `json:"registrant"`
}
