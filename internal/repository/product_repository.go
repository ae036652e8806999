package repository

import (
	"context"
	"errors"
	"fmt"

	"orderdesk/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed inventory ledger.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

// GetStockByIDs reads current stock for the given products in one query.
func (r *productRepository) GetStockByIDs(ctx context.Context, tx pgx.Tx, ids []int64) ([]model.ProductStock, error) {
	if len(ids) == 0 {
		return []model.ProductStock{}, nil
	}

	query := `
		SELECT id, name, stock, sales_count
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
	`

	rows, err := tx.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query product stock")
		return nil, fmt.Errorf("failed to query product stock: %w", err)
	}
	defer rows.Close()

	products := make([]model.ProductStock, 0, len(ids))
	for rows.Next() {
		var p model.ProductStock
		if err := rows.Scan(&p.ID, &p.Name, &p.Stock, &p.SalesCount); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product stock row")
			return nil, fmt.Errorf("failed to scan product stock: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product stock rows")
		return nil, fmt.Errorf("error iterating product stock: %w", err)
	}

	return products, nil
}

// DecrementStock applies "stock = stock - q WHERE stock >= q" per line, so
// stock never drops below zero even when concurrent orders passed the
// earlier read. A line whose update touched no row becomes a shortfall.
func (r *productRepository) DecrementStock(ctx context.Context, tx pgx.Tx, lines []model.StockLine) ([]model.StockShortfall, error) {
	if len(lines) == 0 {
		return nil, nil
	}

	query := `
		UPDATE products
		SET stock = stock - $1, sales_count = sales_count + $1
		WHERE id = $2 AND stock >= $1
	`

	batch := &pgx.Batch{}
	for _, line := range lines {
		batch.Queue(query, line.Quantity, line.ProductID)
	}

	results := tx.SendBatch(ctx, batch)

	var uncovered []model.StockLine
	for _, line := range lines {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			r.logger.Error().
				Err(err).
				Int64("product_id", line.ProductID).
				Int("quantity", line.Quantity).
				Msg("failed to decrement stock")
			return nil, fmt.Errorf("failed to decrement stock: %w", err)
		}
		if tag.RowsAffected() == 0 {
			uncovered = append(uncovered, line)
		}
	}

	if err := results.Close(); err != nil {
		r.logger.Error().Err(err).Msg("failed to close stock batch")
		return nil, fmt.Errorf("failed to decrement stock: %w", err)
	}

	if len(uncovered) == 0 {
		r.logger.Debug().Int("count", len(lines)).Msg("stock decremented")
		return nil, nil
	}

	shortfalls := make([]model.StockShortfall, 0, len(uncovered))
	for _, line := range uncovered {
		var available int
		err := tx.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, line.ProductID).Scan(&available)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to read stock for product %d: %w", line.ProductID, err)
		}
		shortfalls = append(shortfalls, model.StockShortfall{
			ProductID: line.ProductID,
			Available: available,
			Requested: line.Quantity,
		})
	}

	r.logger.Warn().
		Int("shortfall_count", len(shortfalls)).
		Msg("stock decrement lost a race with a concurrent order")

	return shortfalls, nil
}
