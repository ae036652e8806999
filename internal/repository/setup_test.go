package repository

import (
	"context"
	"testing"
	"time"

	"orderdesk/internal/database"
	"orderdesk/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a PostgreSQL container and applies the schema.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, database.Migrate(ctx, pool, zerolog.Nop()))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

func seedBuyer(t *testing.T, pool *pgxpool.Pool, email string) int64 {
	var id int64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO users (email, name) VALUES ($1, $2) RETURNING id`, email, "Buyer "+email,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func seedProduct(t *testing.T, pool *pgxpool.Pool, name string, stock int) int64 {
	var id int64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO products (name, price, stock) VALUES ($1, $2, $3) RETURNING id`, name, "9.99", stock,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func productStock(t *testing.T, pool *pgxpool.Pool, id int64) (stock, sales int) {
	err := pool.QueryRow(context.Background(),
		`SELECT stock, sales_count FROM products WHERE id = $1`, id,
	).Scan(&stock, &sales)
	require.NoError(t, err)
	return stock, sales
}

func newTestOrder(buyerID int64, number string, at time.Time) *model.Order {
	return &model.Order{
		OrderNumber:   number,
		BuyerID:       buyerID,
		Status:        model.StatusPending,
		Subtotal:      decimal.RequireFromString("1000.00"),
		ShippingCost:  decimal.RequireFromString("50.00"),
		Tax:           decimal.RequireFromString("18.00"),
		Discount:      decimal.RequireFromString("100.00"),
		Total:         decimal.RequireFromString("968.00"),
		PaymentMethod: "card",
		PaymentStatus: model.PaymentStatusPending,
		ShippingAddress: model.Address{
			Name:       "Ada Lovelace",
			Street:     "12 Analytical Row",
			City:       "London",
			State:      "LDN",
			PostalCode: "N1 9GU",
			Country:    "GB",
			Phone:      "+44 20 0000 0000",
		},
		OrderDate: at,
	}
}

// insertOrder commits one order with a single item.
func insertOrder(t *testing.T, pool *pgxpool.Pool, repo OrderRepository, order *model.Order) {
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	require.NoError(t, repo.CreateOrder(ctx, tx, order))
	require.NoError(t, repo.CreateOrderItems(ctx, tx, []model.OrderItem{{
		OrderID:       order.ID,
		ProductID:     42,
		Name:          "Walnut desk",
		UnitPrice:     decimal.RequireFromString("500.00"),
		OriginalPrice: decimal.RequireFromString("550.00"),
		Quantity:      2,
		Variant:       model.Variant{Color: "walnut"},
	}}))
	require.NoError(t, tx.Commit(ctx))
}
