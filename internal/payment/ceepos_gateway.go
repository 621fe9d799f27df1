package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"varaus-payments/internal/config"
	"varaus-payments/internal/logger"
	"varaus-payments/internal/order"
	"varaus-payments/internal/utils"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const initiateTimeout = 60 * time.Second

type ceeposGateway struct {
	apiURL string
	apiKey string
	secret string

	returnURL string
	notifyURL string

	httpClient *http.Client
	orders     order.Service
	events     Repository
	redirects  RedirectBuilder
}

// NewCeeposGateway builds the Ceepos payment provider. The callback
// base URL is where the processor reaches this service: the return and
// notify addresses sent in every initiation payload hang off it.
func NewCeeposGateway(cfg *config.Config, orders order.Service, events Repository) Provider {
	base := strings.TrimRight(cfg.CallbackBaseURL, "/")

	return &ceeposGateway{
		apiURL:    cfg.CeeposAPIURL,
		apiKey:    cfg.CeeposAPIKey,
		secret:    cfg.CeeposAPISecret,
		returnURL: base + "/payments/return",
		notifyURL: base + "/payments/notify",
		httpClient: &http.Client{
			Timeout: initiateTimeout,
		},
		orders:    orders,
		events:    events,
		redirects: RedirectBuilder{FallbackURL: cfg.UIFallbackURL},
	}
}

// ----------------- InitiatePayment -----------------

func (g *ceeposGateway) InitiatePayment(ctx context.Context, o *order.Order) (string, error) {
	log := logger.FromCtx(ctx).With(zap.String("order_number", o.OrderNumber))

	payload, err := g.buildPayload(o)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrapf(ErrPayloadValidation, "marshal initiation payload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrapf(ErrServiceUnavailable, "build initiation request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Info("sending payment initiation request")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Warn("payment api unreachable", zap.Error(err))
		return "", errors.Wrapf(ErrServiceUnavailable, "post initiation request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("payment api returned non-success status", zap.Int("http_status", resp.StatusCode))
		return "", errors.Wrapf(ErrServiceUnavailable, "payment api returned http %d", resp.StatusCode)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var decoded map[string]interface{}
	if err := dec.Decode(&decoded); err != nil {
		log.Warn("undecodable initiation response", zap.Error(err))
		return "", errors.Wrapf(ErrPayloadValidation, "decode initiation response: %v", err)
	}

	return g.interpretInitiationResponse(ctx, decoded)
}

// buildPayload assembles the outbound initiation payload. The insertion
// order of the fields is part of the protocol: the trailing Hash field
// covers every value inserted before it, in order.
func (g *ceeposGateway) buildPayload(o *order.Order) (*Payload, error) {
	payload := &Payload{}
	payload.Add("ApiVersion", apiVersion)
	payload.Add("Source", g.apiKey)
	payload.Add("Id", o.OrderNumber)
	payload.Add("Mode", paymentMode)
	payload.Add("Action", actionNewPayment)

	items, err := productItems(o)
	if err != nil {
		return nil, err
	}
	payload.Add("Products", items)

	payload.Add("Email", o.Reservation.BillingEmail)
	payload.Add("FirstName", o.Reservation.BillingFirstName)
	payload.Add("LastName", o.Reservation.BillingLastName)
	payload.Add("ReturnAddress", g.returnURL)
	payload.Add("NotificationAddress", g.notifyURL)
	payload.Add("Hash", CalculateChecksum(payload.ChecksumValues(), g.secret))

	return payload, nil
}

func productItems(o *order.Order) ([]ProductItem, error) {
	items := make([]ProductItem, 0, len(o.Lines))
	for _, line := range o.Lines {
		taxcode, err := taxcodeForRate(line.Product.TaxRatePPM)
		if err != nil {
			return nil, errors.WithMessagef(err, "product %s", line.Product.SKU)
		}
		price, err := utils.PriceToSubUnits(line.Product.Price)
		if err != nil {
			return nil, errors.Wrapf(ErrPayloadValidation, "product %s: %v", line.Product.SKU, err)
		}
		items = append(items, ProductItem{
			Code:        line.Product.SKU,
			Amount:      line.Quantity,
			Price:       price,
			Description: line.Product.Name,
			Taxcode:     taxcode,
		})
	}
	return items, nil
}

func (g *ceeposGateway) interpretInitiationResponse(ctx context.Context, resp map[string]interface{}) (string, error) {
	log := logger.FromCtx(ctx)

	status, err := intField(resp, "Status")
	if err != nil {
		return "", err
	}

	switch status {
	case StatusInProgress:
		if !g.verifyResponseChecksum(ctx, resp) {
			return "", errors.Wrap(ErrPayloadValidation, "invalid response checksum")
		}
		address, _ := resp["PaymentAddress"].(string)
		if address == "" {
			return "", errors.Wrap(ErrPayloadValidation, "response carries no payment address")
		}
		return address, nil
	case StatusFailed:
		return "", ErrPaymentCreationFailed
	case StatusDuplicateID:
		return "", ErrDuplicateOrder
	case StatusSystemError:
		return "", errors.Wrap(ErrServiceUnavailable, "processor reported a system error")
	case StatusFaultyRequest:
		return "", errors.Wrap(ErrPayloadValidation, "processor rejected the payment request")
	default:
		log.Warn("unrecognized initiation status code", zap.Int64("status", status))
		return "", errors.Wrapf(ErrUnknownReturnCode, "status code %d", status)
	}
}

func intField(resp map[string]interface{}, name string) (int64, error) {
	num, ok := resp[name].(json.Number)
	if !ok {
		return 0, errors.Wrapf(ErrPayloadValidation, "response field %s missing or not a number", name)
	}
	n, err := num.Int64()
	if err != nil {
		return 0, errors.Wrapf(ErrPayloadValidation, "response field %s: %v", name, err)
	}
	return n, nil
}

// verifyResponseChecksum checks the initiation response against its
// Hash field. Checksum values are the response-specific fields, in
// order, skipping the ones the processor left out.
func (g *ceeposGateway) verifyResponseChecksum(ctx context.Context, resp map[string]interface{}) bool {
	received, _ := resp["Hash"].(string)

	var values []string
	for _, name := range responseChecksumParams {
		if v, ok := resp[name]; ok {
			values = append(values, stringify(v))
		}
	}

	if !VerifyChecksum(received, values, g.secret) {
		logger.FromCtx(ctx).Warn("incorrect response checksum", zap.String("received", received))
		return false
	}
	return true
}

// verifyRequestChecksum checks an inbound callback against its Hash
// parameter. Only the checksum-covered parameters participate; extra
// processor fields are ignored.
func (g *ceeposGateway) verifyRequestChecksum(ctx context.Context, params url.Values) bool {
	received := params.Get("Hash")

	var values []string
	for _, name := range requestChecksumParams {
		if params.Has(name) {
			values = append(values, params.Get(name))
		}
	}

	if !VerifyChecksum(received, values, g.secret) {
		logger.FromCtx(ctx).Warn("incorrect request checksum", zap.String("received", received))
		return false
	}
	return true
}

// ----------------- HandleReturn -----------------

// HandleReturn processes the user-return callback. The outcome follows
// what the processor reported, except that a settlement the state
// machine refused turns into a failure so the user is not shown a
// success page for an order that did not confirm.
func (g *ceeposGateway) HandleReturn(r *http.Request) ReturnResult {
	ctx := r.Context()
	params := r.URL.Query()
	log := logger.FromCtx(ctx).With(
		zap.String("channel", "return"),
		zap.String("order_number", params.Get("Id")),
	)
	log.Debug("handling ceepos user return request")

	valid := g.verifyRequestChecksum(ctx, params)
	event := g.recordCallback(ctx, "return", params, valid)
	if !valid {
		g.failEvent(ctx, event, "invalid checksum")
		return g.failure(nil)
	}

	o, err := g.orders.GetByOrderNumber(ctx, params.Get("Id"))
	if err != nil {
		log.Warn("order does not exist", zap.Error(err))
		g.failEvent(ctx, event, "order not found")
		return g.failure(nil)
	}

	status := params.Get("Status")
	switch status {
	case "1":
		log.Debug("payment completed successfully")
		res, err := g.orders.RequestTransition(ctx, o, order.StateConfirmed,
			"Code 1 (payment succeeded) in Ceepos return request.")
		if err != nil {
			g.failEvent(ctx, event, err.Error())
			return g.failure(o)
		}
		if !res.Ok() {
			g.failEvent(ctx, event, res.Reason)
			return g.failure(o)
		}
		g.markProcessed(ctx, event)
		return g.success(o)
	case "0":
		log.Debug("payment failed")
		if _, err := g.orders.RequestTransition(ctx, o, order.StateRejected,
			"Code 0 (payment failed) in Ceepos return request."); err != nil {
			g.failEvent(ctx, event, err.Error())
			return g.failure(o)
		}
		g.markProcessed(ctx, event)
		return g.failure(o)
	case "98":
		log.Debug("ceepos system error")
		g.auditOrder(ctx, o, "Code 98: Ceepos system error")
		g.markProcessed(ctx, event)
		return g.failure(o)
	default:
		log.Warn("incorrect status code", zap.String("status", status))
		g.auditOrder(ctx, o, fmt.Sprintf("Ceepos incorrect status code %q.", status))
		g.markProcessed(ctx, event)
		return g.failure(o)
	}
}

// ----------------- HandleNotify -----------------

// HandleNotify processes the asynchronous notification. The first
// notification for a successful payment can arrive before the user
// returns, and can be retried, so everything here is absorbed: the
// handler above always acknowledges the processor.
func (g *ceeposGateway) HandleNotify(r *http.Request) {
	ctx := r.Context()
	_ = r.ParseForm()
	params := r.PostForm
	log := logger.FromCtx(ctx).With(
		zap.String("channel", "notify"),
		zap.String("order_number", params.Get("Id")),
	)
	log.Debug("handling ceepos notify request")

	valid := g.verifyRequestChecksum(ctx, params)
	event := g.recordCallback(ctx, "notify", params, valid)
	if !valid {
		g.failEvent(ctx, event, "invalid checksum")
		return
	}

	o, err := g.orders.GetByOrderNumber(ctx, params.Get("Id"))
	if err != nil {
		log.Warn("notify: order does not exist", zap.Error(err))
		g.failEvent(ctx, event, "order not found")
		return
	}

	status := params.Get("Status")
	switch status {
	case "1":
		log.Debug("notify: payment completed successfully")
		res, err := g.orders.RequestTransition(ctx, o, order.StateConfirmed,
			"Code 1 (payment succeeded) in Ceepos notify request.")
		g.settleEvent(ctx, event, res, err)
	case "0":
		log.Debug("notify: payment failed")
		res, err := g.orders.RequestTransition(ctx, o, order.StateRejected,
			"Code 0 (payment failed) in Ceepos notify request.")
		g.settleEvent(ctx, event, res, err)
	case "98":
		log.Debug("notify: ceepos system error")
		g.markProcessed(ctx, event)
	default:
		log.Debug("notify: incorrect status code", zap.String("status", status))
		g.markProcessed(ctx, event)
	}
}

// ----------------- helpers -----------------

func (g *ceeposGateway) success(o *order.Order) ReturnResult {
	return ReturnResult{
		Success:     true,
		OrderNumber: o.OrderNumber,
		RedirectURL: g.redirects.SuccessURL(o),
	}
}

func (g *ceeposGateway) failure(o *order.Order) ReturnResult {
	res := ReturnResult{RedirectURL: g.redirects.FailureURL(o)}
	if o != nil {
		res.OrderNumber = o.OrderNumber
	}
	return res
}

func (g *ceeposGateway) recordCallback(ctx context.Context, channel string, params url.Values, sigValid bool) *CallbackEvent {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil
	}

	e := &CallbackEvent{
		Channel:        channel,
		OrderNumber:    params.Get("Id"),
		Status:         params.Get("Status"),
		Timestamp:      params.Get("Timestamp"),
		SignatureValid: sigValid,
		Params:         raw,
	}
	duplicate, err := g.events.SaveCallbackEvent(ctx, e)
	if err != nil {
		logger.FromCtx(ctx).Warn("failed to record callback event", zap.Error(err))
		return nil
	}
	if duplicate {
		logger.FromCtx(ctx).Info("duplicate callback event",
			zap.String("channel", channel),
			zap.String("order_number", e.OrderNumber),
		)
	}
	return e
}

func (g *ceeposGateway) settleEvent(ctx context.Context, e *CallbackEvent, res order.TransitionResult, err error) {
	switch {
	case err != nil:
		g.failEvent(ctx, e, err.Error())
	case !res.Ok():
		g.failEvent(ctx, e, res.Reason)
	default:
		g.markProcessed(ctx, e)
	}
}

func (g *ceeposGateway) markProcessed(ctx context.Context, e *CallbackEvent) {
	if e == nil {
		return
	}
	if err := g.events.MarkEventProcessed(ctx, e.ID); err != nil {
		logger.FromCtx(ctx).Warn("failed to mark callback event processed", zap.Error(err))
	}
}

func (g *ceeposGateway) failEvent(ctx context.Context, e *CallbackEvent, reason string) {
	if e == nil {
		return
	}
	if err := g.events.MarkEventFailed(ctx, e.ID, reason); err != nil {
		logger.FromCtx(ctx).Warn("failed to mark callback event failed", zap.Error(err))
	}
}

func (g *ceeposGateway) auditOrder(ctx context.Context, o *order.Order, message string) {
	if err := g.orders.CreateLogEntry(ctx, o, message); err != nil {
		logger.FromCtx(ctx).Warn("failed to create order log entry", zap.Error(err))
	}
}
