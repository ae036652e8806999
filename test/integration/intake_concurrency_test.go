package integration

import (
	"context"
	"errors"
	"sync"
	"testing"

	"orderdesk/internal/config"
	"orderdesk/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleLineRequest(productID int64, quantity int) *model.OrderRequest {
	total := decimal.NewFromInt(500).Mul(decimal.NewFromInt(int64(quantity)))
	return &model.OrderRequest{
		Items: []model.OrderItemRequest{
			{ProductID: productID, Quantity: quantity, UnitPrice: decimal.NewFromInt(500), Name: "Walnut desk"},
		},
		Pricing: model.Pricing{Subtotal: total, Total: total},
		ShippingAddress: model.Address{
			Name: "Ada Lovelace", Street: "12 Analytical Row", City: "Pune",
			State: "MH", PostalCode: "411001", Phone: "+91 90000 00000",
		},
	}
}

func TestOrderIntake_ConcurrentOrdersNeverOversell(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	svc := newOrderService(t, testDB, config.TransitionPolicyStrict)

	const (
		buyers = 8
		stock  = 3
	)

	productID := SeedProduct(t, testDB.Pool, "Walnut desk", stock)
	ids := make([]int64, buyers)
	for i := range ids {
		ids[i] = SeedBuyer(t, testDB.Pool, "buyer"+string(rune('a'+i))+"@example.com")
	}

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		placed     int
		shortfalls int
		failures   []error
	)

	for _, id := range ids {
		wg.Add(1)
		go func(buyerID int64) {
			defer wg.Done()

			caller := model.Identity{ID: buyerID, Role: model.RoleBuyer}
			_, err := svc.CreateOrder(context.Background(), caller, singleLineRequest(productID, 1))

			mu.Lock()
			defer mu.Unlock()

			var shortfall *model.StockShortfallError
			switch {
			case err == nil:
				placed++
			case errors.As(err, &shortfall):
				shortfalls++
			default:
				failures = append(failures, err)
			}
		}(id)
	}
	wg.Wait()

	require.Empty(t, failures)
	assert.Equal(t, stock, placed)
	assert.Equal(t, buyers-stock, shortfalls)

	remaining, sales := ProductStock(t, testDB.Pool, productID)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, stock, sales)
	assert.Equal(t, stock, CountRows(t, testDB.Pool, "orders"))
	assert.Equal(t, stock, CountRows(t, testDB.Pool, "order_status_history"))
}

func TestOrderIntake_ConcurrentOrdersBySameBuyer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	svc := newOrderService(t, testDB, config.TransitionPolicyStrict)

	buyerID := SeedBuyer(t, testDB.Pool, "ada@example.com")
	productID := SeedProduct(t, testDB.Pool, "Walnut desk", 100)
	caller := model.Identity{ID: buyerID, Role: model.RoleBuyer}

	const orders = 10

	var wg sync.WaitGroup
	errs := make(chan error, orders)
	for i := 0; i < orders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateOrder(context.Background(), caller, singleLineRequest(productID, 2))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	count, spent := BuyerTotals(t, testDB.Pool, buyerID)
	assert.Equal(t, orders, count)
	assert.Equal(t, "10000.00", spent)

	remaining, _ := ProductStock(t, testDB.Pool, productID)
	assert.Equal(t, 100-2*orders, remaining)
}
