package payment

import (
	"context"
	"net/http"

	"varaus-payments/internal/order"
)

// Provider is the capability a payment processor integration exposes to
// the web boundary. The Ceepos gateway is the concrete implementation;
// anything speaking the same three entry points can replace it.
type Provider interface {
	// InitiatePayment creates a payment at the processor and returns
	// the address the user is redirected to for paying the order.
	InitiatePayment(ctx context.Context, o *order.Order) (string, error)

	// HandleReturn consumes the user-return callback (GET). It never
	// fails: tampering, unknown orders and illegal transitions all
	// collapse into a failure outcome with a redirect target.
	HandleReturn(r *http.Request) ReturnResult

	// HandleNotify consumes the asynchronous notification callback
	// (POST). The processor only wants an acknowledgment; every
	// internal failure is absorbed and recorded.
	HandleNotify(r *http.Request)
}
