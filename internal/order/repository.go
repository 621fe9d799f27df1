package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type Repository interface {
	GetByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)
	GetState(ctx context.Context, orderNumber string) (OrderState, error)

	// UpdateStateFrom performs a single-row conditional update and
	// reports whether the row was changed. The condition makes the
	// transition atomic: when the return and notify channels race on
	// the same order, the first settlement wins and the loser sees
	// applied == false.
	UpdateStateFrom(ctx context.Context, orderNumber string, from, to OrderState) (bool, error)

	InsertLogEntry(ctx context.Context, orderID uint, message string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByOrderNumber(ctx context.Context, orderNumber string) (*Order, error) {
	const q = `
		SELECT o.id, o.order_number, o.state, o.ui_return_url, o.created_at, o.updated_at,
		       r.id, r.billing_email, r.billing_first_name, r.billing_last_name
		FROM orders o
		JOIN reservations r ON r.id = o.reservation_id
		WHERE o.order_number = $1
	`

	var o Order
	err := r.db.QueryRowContext(ctx, q, orderNumber).Scan(
		&o.ID, &o.OrderNumber, &o.State, &o.UIReturnURL, &o.CreatedAt, &o.UpdatedAt,
		&o.Reservation.ID, &o.Reservation.BillingEmail,
		&o.Reservation.BillingFirstName, &o.Reservation.BillingLastName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}

	lines, err := r.fetchLines(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Lines = lines

	return &o, nil
}

func (r *repository) fetchLines(ctx context.Context, orderID uint) ([]OrderLine, error) {
	const q = `
		SELECT ol.id, ol.quantity,
		       p.id, p.sku, p.name, p.price, p.tax_rate_ppm
		FROM order_lines ol
		JOIN products p ON p.id = ol.product_id
		WHERE ol.order_id = $1
		ORDER BY ol.id
	`

	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order lines: %w", err)
	}
	defer rows.Close()

	var lines []OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(
			&l.ID, &l.Quantity,
			&l.Product.ID, &l.Product.SKU, &l.Product.Name,
			&l.Product.Price, &l.Product.TaxRatePPM,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *repository) GetState(ctx context.Context, orderNumber string) (OrderState, error) {
	var state OrderState
	err := r.db.QueryRowContext(ctx,
		`SELECT state FROM orders WHERE order_number = $1`, orderNumber,
	).Scan(&state)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrOrderNotFound
		}
		return "", fmt.Errorf("failed to fetch order state: %w", err)
	}
	return state, nil
}

func (r *repository) UpdateStateFrom(ctx context.Context, orderNumber string, from, to OrderState) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET state = $1, updated_at = NOW()
		WHERE order_number = $2 AND state = $3
	`, to, orderNumber, from)
	if err != nil {
		return false, fmt.Errorf("failed to update order state: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *repository) InsertLogEntry(ctx context.Context, orderID uint, message string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_log_entries (order_id, message) VALUES ($1, $2)
	`, orderID, message)
	if err != nil {
		return fmt.Errorf("failed to insert order log entry: %w", err)
	}
	return nil
}
