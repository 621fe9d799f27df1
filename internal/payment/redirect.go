package payment

import (
	"net/url"

	"varaus-payments/internal/logger"
	"varaus-payments/internal/order"

	"go.uber.org/zap"
)

// RedirectBuilder constructs the UI addresses the user is sent back to
// after the payment flow. The order's own return URL is used when the
// order is known, otherwise the configured fallback.
type RedirectBuilder struct {
	FallbackURL string
}

func (b RedirectBuilder) SuccessURL(o *order.Order) string {
	return b.build(o, "success")
}

func (b RedirectBuilder) FailureURL(o *order.Order) string {
	return b.build(o, "failure")
}

func (b RedirectBuilder) build(o *order.Order, status string) string {
	base := b.FallbackURL
	orderNumber := ""
	if o != nil {
		if o.UIReturnURL != "" {
			base = o.UIReturnURL
		}
		orderNumber = o.OrderNumber
	}

	u, err := url.Parse(base)
	if err != nil {
		logger.L().Warn("unparseable ui return url", zap.String("url", base))
		return b.FallbackURL
	}

	q := u.Query()
	q.Set("payment_status", status)
	if orderNumber != "" {
		q.Set("order_id", orderNumber)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
