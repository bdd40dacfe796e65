package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/martadelgado/pg-product-form/internal/queue"
)

// Orders persists submitted orders. Draft computation never touches this
// layer; it only receives finished payloads from the submission queue.
type Orders struct {
	Pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	id uuid PRIMARY KEY,
	outlet_id text NOT NULL,
	outlet_address text NOT NULL DEFAULT '',
	total_amount numeric(12,2) NOT NULL,
	submitted_at timestamptz NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS order_lines (
	order_id uuid NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	line_index int NOT NULL,
	ean text NOT NULL,
	item_name text NOT NULL,
	quantity numeric(12,2) NOT NULL,
	unit_price numeric(12,2) NOT NULL,
	discount_percent numeric(5,2) NOT NULL,
	total numeric(12,2) NOT NULL,
	PRIMARY KEY (order_id, line_index)
);`

// EnsureSchema creates the order tables when they do not exist yet.
func (s *Orders) EnsureSchema(ctx context.Context) error {
	if s == nil || s.Pool == nil {
		return errors.New("store: pool not configured")
	}
	if _, err := s.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("store: ensure schema: %w", err)
	}
	return nil
}

// SaveSubmitted writes the order and its lines in one transaction. Replays of
// the same order id (queue retries) are no-ops.
func (s *Orders) SaveSubmitted(ctx context.Context, payload queue.SubmittedPayload) error {
	if s == nil || s.Pool == nil {
		return errors.New("store: pool not configured")
	}
	order := payload.Order
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`INSERT INTO orders (id, outlet_id, outlet_address, total_amount, submitted_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		order.ID, order.OutletID, order.OutletAddress, order.TotalAmount.String(), payload.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("store: insert order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Already persisted by an earlier delivery.
		return tx.Commit(ctx)
	}
	for _, line := range order.Lines {
		if _, err := tx.Exec(ctx,
			`INSERT INTO order_lines (order_id, line_index, ean, item_name, quantity, unit_price, discount_percent, total)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			order.ID, line.Index, line.EAN, line.ItemName,
			line.Quantity.String(), line.UnitPrice.String(), line.DiscountPercent.String(), line.Total.String(),
		); err != nil {
			return fmt.Errorf("store: insert line %d: %w", line.Index, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}
