package order

import (
	"context"
	"fmt"

	"varaus-payments/internal/logger"

	"go.uber.org/zap"
)

// TransitionResult is the outcome of a requested state transition.
// Illegal transitions are absorbed here, not raised: the notify and
// return channels may both settle the same order, in either order, and
// a late conflicting settlement must never crash a callback handler.
type TransitionResult struct {
	// Applied reports whether the order actually changed state.
	Applied bool

	// Noop is set when the order was already in the target state, so
	// the request counts as an idempotent success.
	Noop bool

	// Reason explains why a transition was not applied.
	Reason string
}

// Ok reports whether the requested settlement holds, either because it
// was just applied or because the order was already there.
func (t TransitionResult) Ok() bool {
	return t.Applied || t.Noop
}

type Service interface {
	GetByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)
	RequestTransition(ctx context.Context, o *Order, target OrderState, note string) (TransitionResult, error)
	ExpireOrder(ctx context.Context, orderNumber string) (TransitionResult, error)
	CreateLogEntry(ctx context.Context, o *Order, message string) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetByOrderNumber(ctx context.Context, orderNumber string) (*Order, error) {
	return s.repo.GetByOrderNumber(ctx, orderNumber)
}

// RequestTransition moves the order from WAITING into a terminal state.
// Any returned error is infrastructure trouble; an illegal transition
// comes back as a TransitionResult with Applied == false.
func (s *service) RequestTransition(ctx context.Context, o *Order, target OrderState, note string) (TransitionResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("order_number", o.OrderNumber),
		zap.String("target_state", string(target)),
	)

	if target == StateWaiting {
		return s.absorb(ctx, log, o, target, note, string(o.State))
	}

	applied, err := s.repo.UpdateStateFrom(ctx, o.OrderNumber, StateWaiting, target)
	if err != nil {
		return TransitionResult{}, err
	}
	if applied {
		o.State = target
		if err := s.repo.InsertLogEntry(ctx, o.ID, note); err != nil {
			return TransitionResult{}, err
		}
		log.Debug("order state transition applied")
		return TransitionResult{Applied: true}, nil
	}

	current, err := s.repo.GetState(ctx, o.OrderNumber)
	if err != nil {
		return TransitionResult{}, err
	}
	if current == target {
		// Duplicate settlement through the other channel. Absorbed
		// as an idempotent success, no audit entry needed.
		log.Debug("order already in target state")
		return TransitionResult{Noop: true}, nil
	}

	return s.absorb(ctx, log, o, target, note, string(current))
}

func (s *service) absorb(ctx context.Context, log *zap.Logger, o *Order, target OrderState, note, current string) (TransitionResult, error) {
	reason := fmt.Sprintf("%v: from %s to %s", ErrIllegalTransition, current, target)
	log.Warn("order state transition not applied",
		zap.String("current_state", current),
	)
	if err := s.repo.InsertLogEntry(ctx, o.ID, fmt.Sprintf("%s (not applied: %s)", note, reason)); err != nil {
		return TransitionResult{}, err
	}
	return TransitionResult{Reason: reason}, nil
}

// ExpireOrder is the timeout sweep entry point. Orders that already
// settled are left alone.
func (s *service) ExpireOrder(ctx context.Context, orderNumber string) (TransitionResult, error) {
	o, err := s.repo.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		return TransitionResult{}, err
	}
	return s.RequestTransition(ctx, o, StateExpired, "Order expired by timeout sweep.")
}

func (s *service) CreateLogEntry(ctx context.Context, o *Order, message string) error {
	return s.repo.InsertLogEntry(ctx, o.ID, message)
}
