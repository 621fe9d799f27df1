package webhook

import (
	"encoding/json"
	"errors"
	"net/http"

	"varaus-payments/internal/logger"
	"varaus-payments/internal/order"
	"varaus-payments/internal/payment"

	"go.uber.org/zap"
)

// Handler exposes the payment provider's three entry points over HTTP.
type Handler struct {
	Provider payment.Provider
	OrderSvc order.Service
}

func NewHandler(provider payment.Provider, orderSvc order.Service) *Handler {
	return &Handler{
		Provider: provider,
		OrderSvc: orderSvc,
	}
}

type initiateRequest struct {
	OrderNumber string `json:"order_number"`
}

type initiateResponse struct {
	PaymentURL string `json:"payment_url"`
}

// InitiateHandler starts the payment flow for an order and returns the
// processor address the user should be sent to.
func (h *Handler) InitiateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderNumber == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	o, err := h.OrderSvc.GetByOrderNumber(r.Context(), req.OrderNumber)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	paymentURL, err := h.Provider.InitiatePayment(r.Context(), o)
	if err != nil {
		logger.FromCtx(r.Context()).Warn("payment initiation failed",
			zap.String("order_number", req.OrderNumber),
			zap.Error(err),
		)
		http.Error(w, err.Error(), initiateStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(initiateResponse{PaymentURL: paymentURL})
}

func initiateStatus(err error) int {
	switch {
	case errors.Is(err, payment.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, payment.ErrPayloadValidation):
		return http.StatusBadRequest
	case errors.Is(err, payment.ErrDuplicateOrder):
		return http.StatusConflict
	case errors.Is(err, payment.ErrPaymentCreationFailed),
		errors.Is(err, payment.ErrUnknownReturnCode):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ReturnHandler receives the user coming back from the payment flow
// (GET) and redirects them to the UI with the outcome.
func (h *Handler) ReturnHandler(w http.ResponseWriter, r *http.Request) {
	res := h.Provider.HandleReturn(r)
	http.Redirect(w, r, res.RedirectURL, http.StatusFound)
}

// NotifyHandler receives the asynchronous notification (POST). The
// processor retries until it sees a 200, so the acknowledgment does not
// depend on what happened internally.
func (h *Handler) NotifyHandler(w http.ResponseWriter, r *http.Request) {
	h.Provider.HandleNotify(r)
	w.WriteHeader(http.StatusOK)
}
