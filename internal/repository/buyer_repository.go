package repository

import (
	"context"
	"fmt"
	"time"

	"orderdesk/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type buyerRepository struct {
	logger zerolog.Logger
}

// NewBuyerRepository creates a PostgreSQL-backed buyer aggregate store.
// All of its writes run on the caller's transaction.
func NewBuyerRepository(logger zerolog.Logger) BuyerRepository {
	return &buyerRepository{
		logger: logger.With().Str("repository", "buyer").Logger(),
	}
}

// RecordPurchase increments the counters with an in-place update expression,
// so concurrent orders by one buyer never lose an increment.
func (r *buyerRepository) RecordPurchase(ctx context.Context, tx pgx.Tx, buyerID int64, amount decimal.Decimal, at time.Time) error {
	query := `
		UPDATE users
		SET total_orders = total_orders + 1,
		    total_spent = total_spent + $1,
		    last_order_date = $2
		WHERE id = $3
	`

	tag, err := tx.Exec(ctx, query, amount, at, buyerID)
	if err != nil {
		r.logger.Error().Err(err).Int64("buyer_id", buyerID).Msg("failed to record purchase")
		return fmt.Errorf("failed to record purchase: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.Warn().Int64("buyer_id", buyerID).Msg("buyer not found")
		return model.ErrBuyerNotFound
	}

	return nil
}
