package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CallbackEvent is an audit record of one inbound processor callback.
// Events are stored before they are acted on, so a disputed settlement
// can be traced even when the checksum did not verify.
type CallbackEvent struct {
	ID             uuid.UUID
	Channel        string // "return" or "notify"
	OrderNumber    string
	Status         string
	Timestamp      string // processor-supplied Timestamp parameter
	SignatureValid bool
	Params         json.RawMessage
}

type Repository interface {
	// SaveCallbackEvent records the event idempotently: a processor
	// retry of the same notification is reported as a duplicate, not
	// stored twice.
	SaveCallbackEvent(ctx context.Context, e *CallbackEvent) (duplicate bool, err error)

	MarkEventProcessed(ctx context.Context, id uuid.UUID) error
	MarkEventFailed(ctx context.Context, id uuid.UUID, reason string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) SaveCallbackEvent(ctx context.Context, e *CallbackEvent) (bool, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	const q = `
	INSERT INTO payment_callback_events (
		id,
		channel,
		order_number,
		status,
		payment_timestamp,
		signature_valid,
		params
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (channel, order_number, status, payment_timestamp)
	DO NOTHING
	RETURNING id;
	`

	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, q,
		e.ID, e.Channel, e.OrderNumber, e.Status, e.Timestamp,
		e.SignatureValid, e.Params,
	).Scan(&id)
	if err != nil {
		// Conflict swallowed the insert: the processor retried.
		if errors.Is(err, sql.ErrNoRows) {
			return true, nil
		}
		return false, fmt.Errorf("failed to save callback event: %w", err)
	}
	return false, nil
}

func (r *repository) MarkEventProcessed(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_callback_events
		SET processed_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to mark callback event processed: %w", err)
	}
	return nil
}

func (r *repository) MarkEventFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_callback_events
		SET failed_at = NOW(), failure_reason = $2
		WHERE id = $1
	`, id, reason)
	if err != nil {
		return fmt.Errorf("failed to mark callback event failed: %w", err)
	}
	return nil
}
