package order

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) GetState(ctx context.Context, orderNumber string) (OrderState, error) {
	args := m.Called(ctx, orderNumber)
	return args.Get(0).(OrderState), args.Error(1)
}

func (m *MockRepository) UpdateStateFrom(ctx context.Context, orderNumber string, from, to OrderState) (bool, error) {
	args := m.Called(ctx, orderNumber, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) InsertLogEntry(ctx context.Context, orderID uint, message string) error {
	args := m.Called(ctx, orderID, message)
	return args.Error(0)
}

func waitingOrder() *Order {
	return &Order{
		ID:          42,
		OrderNumber: "ORD-1001",
		State:       StateWaiting,
	}
}

func TestService_RequestTransition(t *testing.T) {
	ctx := context.Background()

	t.Run("WaitingToConfirmed", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)
		o := waitingOrder()

		repo.On("UpdateStateFrom", ctx, "ORD-1001", StateWaiting, StateConfirmed).Return(true, nil)
		repo.On("InsertLogEntry", ctx, uint(42), "payment succeeded").Return(nil)

		res, err := svc.RequestTransition(ctx, o, StateConfirmed, "payment succeeded")
		require.NoError(t, err)
		assert.True(t, res.Applied)
		assert.True(t, res.Ok())
		assert.Equal(t, StateConfirmed, o.State)
		repo.AssertExpectations(t)
	})

	t.Run("WaitingToRejected", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)
		o := waitingOrder()

		repo.On("UpdateStateFrom", ctx, "ORD-1001", StateWaiting, StateRejected).Return(true, nil)
		repo.On("InsertLogEntry", ctx, uint(42), mock.Anything).Return(nil)

		res, err := svc.RequestTransition(ctx, o, StateRejected, "payment failed")
		require.NoError(t, err)
		assert.True(t, res.Applied)
	})

	t.Run("AlreadyConfirmedIsIdempotent", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)
		o := waitingOrder()
		o.State = StateConfirmed

		repo.On("UpdateStateFrom", ctx, "ORD-1001", StateWaiting, StateConfirmed).Return(false, nil)
		repo.On("GetState", ctx, "ORD-1001").Return(StateConfirmed, nil)

		res, err := svc.RequestTransition(ctx, o, StateConfirmed, "payment succeeded")
		require.NoError(t, err)
		assert.False(t, res.Applied)
		assert.True(t, res.Noop)
		assert.True(t, res.Ok())
		repo.AssertNotCalled(t, "InsertLogEntry", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ExpiredAbsorbsConfirmation", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)
		o := waitingOrder()
		o.State = StateExpired

		repo.On("UpdateStateFrom", ctx, "ORD-1001", StateWaiting, StateConfirmed).Return(false, nil)
		repo.On("GetState", ctx, "ORD-1001").Return(StateExpired, nil)
		repo.On("InsertLogEntry", ctx, uint(42), mock.MatchedBy(func(msg string) bool {
			return len(msg) > 0
		})).Return(nil)

		res, err := svc.RequestTransition(ctx, o, StateConfirmed, "payment succeeded")
		require.NoError(t, err)
		assert.False(t, res.Applied)
		assert.False(t, res.Noop)
		assert.False(t, res.Ok())
		assert.Contains(t, res.Reason, "illegal order state transition")
		repo.AssertExpectations(t)
	})

	t.Run("ExpiredAbsorbsRejection", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)
		o := waitingOrder()
		o.State = StateExpired

		repo.On("UpdateStateFrom", ctx, "ORD-1001", StateWaiting, StateRejected).Return(false, nil)
		repo.On("GetState", ctx, "ORD-1001").Return(StateExpired, nil)
		repo.On("InsertLogEntry", ctx, uint(42), mock.Anything).Return(nil)

		res, err := svc.RequestTransition(ctx, o, StateRejected, "payment failed")
		require.NoError(t, err)
		assert.False(t, res.Ok())
	})

	t.Run("ConflictingSettlementAbsorbed", func(t *testing.T) {
		// Notify confirmed the order first, then the return channel
		// reports a failure for the same order.
		repo := new(MockRepository)
		svc := NewService(repo)
		o := waitingOrder()

		repo.On("UpdateStateFrom", ctx, "ORD-1001", StateWaiting, StateRejected).Return(false, nil)
		repo.On("GetState", ctx, "ORD-1001").Return(StateConfirmed, nil)
		repo.On("InsertLogEntry", ctx, uint(42), mock.Anything).Return(nil)

		res, err := svc.RequestTransition(ctx, o, StateRejected, "payment failed")
		require.NoError(t, err)
		assert.False(t, res.Applied)
		assert.False(t, res.Noop)
	})

	t.Run("BackToWaitingIsIllegal", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)
		o := waitingOrder()
		o.State = StateConfirmed

		repo.On("InsertLogEntry", ctx, uint(42), mock.Anything).Return(nil)

		res, err := svc.RequestTransition(ctx, o, StateWaiting, "weird request")
		require.NoError(t, err)
		assert.False(t, res.Ok())
		repo.AssertNotCalled(t, "UpdateStateFrom", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("RepositoryError", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)
		o := waitingOrder()

		repo.On("UpdateStateFrom", ctx, "ORD-1001", StateWaiting, StateConfirmed).
			Return(false, errors.New("db down"))

		_, err := svc.RequestTransition(ctx, o, StateConfirmed, "payment succeeded")
		assert.Error(t, err)
	})
}

func TestService_ExpireOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("WaitingOrderExpires", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		repo.On("GetByOrderNumber", ctx, "ORD-1001").Return(waitingOrder(), nil)
		repo.On("UpdateStateFrom", ctx, "ORD-1001", StateWaiting, StateExpired).Return(true, nil)
		repo.On("InsertLogEntry", ctx, uint(42), mock.Anything).Return(nil)

		res, err := svc.ExpireOrder(ctx, "ORD-1001")
		require.NoError(t, err)
		assert.True(t, res.Applied)
	})

	t.Run("SettledOrderDoesNotExpire", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)
		confirmed := waitingOrder()
		confirmed.State = StateConfirmed

		repo.On("GetByOrderNumber", ctx, "ORD-1001").Return(confirmed, nil)
		repo.On("UpdateStateFrom", ctx, "ORD-1001", StateWaiting, StateExpired).Return(false, nil)
		repo.On("GetState", ctx, "ORD-1001").Return(StateConfirmed, nil)
		repo.On("InsertLogEntry", ctx, uint(42), mock.Anything).Return(nil)

		res, err := svc.ExpireOrder(ctx, "ORD-1001")
		require.NoError(t, err)
		assert.False(t, res.Ok())
	})

	t.Run("UnknownOrder", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		repo.On("GetByOrderNumber", ctx, "ORD-404").Return(nil, ErrOrderNotFound)

		_, err := svc.ExpireOrder(ctx, "ORD-404")
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}
