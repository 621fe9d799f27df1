package order

import (
	"time"
)

// OrderState is the payment state of an order. WAITING is the initial
// state; CONFIRMED and REJECTED are terminal settlements; EXPIRED is a
// terminal state set by the timeout sweep, never by the payment flow.
type OrderState string

const (
	StateWaiting   OrderState = "waiting"
	StateConfirmed OrderState = "confirmed"
	StateRejected  OrderState = "rejected"
	StateExpired   OrderState = "expired"
)

type Order struct {
	ID          uint
	OrderNumber string
	State       OrderState
	UIReturnURL string
	Reservation Reservation
	Lines       []OrderLine
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Reservation carries the billing contact the payment processor wants.
type Reservation struct {
	ID               uint
	BillingEmail     string
	BillingFirstName string
	BillingLastName  string
}

type OrderLine struct {
	ID       uint
	Quantity int
	Product  Product
}

type Product struct {
	ID    uint
	SKU   string
	Name  string
	Price string // decimal string, e.g. "12.50"

	// Tax rate in parts-per-million so rates compare exactly:
	// 24% is 24_000_000.
	TaxRatePPM int64
}
