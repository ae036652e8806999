package repository

import (
	"context"
	"testing"
	"time"

	"orderdesk/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalRepository_AppendAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	logger := zerolog.Nop()
	orders := NewOrderRepository(pool, logger)
	journal := NewJournalRepository(pool, logger)
	ctx := context.Background()

	buyer := seedBuyer(t, pool, "ada@example.com")
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	order := newTestOrder(buyer, "ORD-JOURNAL-1", base)
	insertOrder(t, pool, orders, order)

	entries := []model.JournalEntry{
		{OrderID: order.ID, Status: model.StatusPending, Comment: "Order placed", Actor: model.SystemActor, CreatedAt: base},
		{OrderID: order.ID, Status: model.StatusConfirmed, Comment: "Payment confirmed", Actor: "admin:1", CreatedAt: base.Add(time.Hour)},
		// Clock stepped backwards between writers.
		{OrderID: order.ID, Status: model.StatusProcessing, Comment: "Packing", Actor: "admin:1", CreatedAt: base.Add(-time.Hour)},
	}

	for i := range entries {
		tx, err := pool.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, journal.Append(ctx, tx, &entries[i]))
		require.NoError(t, tx.Commit(ctx))
		assert.NotZero(t, entries[i].ID)
	}

	listed, err := journal.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, listed, 3)

	assert.Equal(t, model.StatusPending, listed[0].Status)
	assert.Equal(t, model.StatusConfirmed, listed[1].Status)
	assert.Equal(t, model.StatusProcessing, listed[2].Status)
	assert.Equal(t, "admin:1", listed[1].Actor)
	assert.Equal(t, "Payment confirmed", listed[1].Comment)
}

func TestJournalRepository_ListByOrder_Empty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	journal := NewJournalRepository(pool, zerolog.Nop())

	listed, err := journal.ListByOrder(context.Background(), 999)
	require.NoError(t, err)
	assert.Empty(t, listed)
}
