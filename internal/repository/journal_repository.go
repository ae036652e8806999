package repository

import (
	"context"
	"fmt"

	"orderdesk/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type journalRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewJournalRepository creates a PostgreSQL-backed order status journal.
// The journal only ever inserts and reads; there is no update or delete.
func NewJournalRepository(pool *pgxpool.Pool, logger zerolog.Logger) JournalRepository {
	return &journalRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "journal").Logger(),
	}
}

func (r *journalRepository) Append(ctx context.Context, tx pgx.Tx, entry *model.JournalEntry) error {
	query := `
		INSERT INTO order_status_history (order_id, status, comment, actor, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := tx.QueryRow(ctx, query, entry.OrderID, entry.Status, entry.Comment, entry.Actor, entry.CreatedAt).Scan(&entry.ID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Int64("order_id", entry.OrderID).
			Str("status", string(entry.Status)).
			Msg("failed to append journal entry")
		return fmt.Errorf("failed to append journal entry: %w", err)
	}

	return nil
}

func (r *journalRepository) ListByOrder(ctx context.Context, orderID int64) ([]model.JournalEntry, error) {
	query := `
		SELECT id, order_id, status, comment, actor, created_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to query journal")
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	entries := []model.JournalEntry{}
	for rows.Next() {
		var e model.JournalEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Status, &e.Comment, &e.Actor, &e.CreatedAt); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan journal row")
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal entries: %w", err)
	}

	return entries, nil
}
