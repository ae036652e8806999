package integration

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"orderdesk/internal/config"
	"orderdesk/internal/coupon"
	"orderdesk/internal/handler"
	"orderdesk/internal/middleware"
	"orderdesk/internal/model"
	"orderdesk/internal/repository"
	"orderdesk/internal/router"
	"orderdesk/internal/service"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAPIKey      = "test-api-key"
	testTokenSecret = "test-token-secret"
)

func writeCouponFile(t *testing.T, codes ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "coupons.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gz := gzip.NewWriter(f)
	for _, code := range codes {
		_, err := gz.Write([]byte(code + "\n"))
		require.NoError(t, err)
	}
	require.NoError(t, gz.Close())

	return path
}

func newOrderService(t *testing.T, testDB *TestDB, policy string) service.OrderService {
	t.Helper()

	logger := zerolog.Nop()
	ctx := context.Background()

	orderRepo := repository.NewOrderRepository(testDB.Pool, logger)
	productRepo := repository.NewProductRepository(testDB.Pool, logger)
	buyerRepo := repository.NewBuyerRepository(logger)
	journalRepo := repository.NewJournalRepository(testDB.Pool, logger)

	validator, err := coupon.NewValidator(ctx,
		[]string{writeCouponFile(t, "SAVE10", "WELCOME")},
		coupon.NewFileLoader(logger), logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		validator.Close()
	})

	return service.NewOrderService(
		service.NewOrderIntake(orderRepo, productRepo, buyerRepo, journalRepo, service.IntakeOptions{
			Coupons:        validator,
			Numbers:        service.NewOrderNumberGenerator("ORD"),
			DefaultCountry: "IN",
		}, logger),
		service.NewOrderStatusController(orderRepo, journalRepo, service.NewTransitionPolicy(policy), logger),
		service.NewOrderQuery(orderRepo, journalRepo, 10, 100, logger),
	)
}

func setupTestServer(t *testing.T, testDB *TestDB) http.Handler {
	t.Helper()

	logger := zerolog.Nop()
	svc := newOrderService(t, testDB, config.TransitionPolicyStrict)

	return router.New(handler.NewOrderHandler(svc, logger), testDB.Pool, router.Config{
		APIKey:      testAPIKey,
		TokenSecret: testTokenSecret,
	}, logger)
}

func tokenFor(t *testing.T, id int64, role model.Role) string {
	t.Helper()

	claims := middleware.IdentityClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id, 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testTokenSecret))
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, server http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()

	server.ServeHTTP(w, req)
	return w
}

func orderBody(productID int64, quantity int, coupon string) map[string]interface{} {
	body := map[string]interface{}{
		"items": []map[string]interface{}{
			{"productId": productID, "quantity": quantity, "unitPrice": 500, "originalPrice": 550, "name": "Walnut desk"},
		},
		"pricing": map[string]interface{}{
			"subtotal": 500 * quantity, "shipping": 0, "tax": 0, "discount": 0, "total": 500 * quantity,
		},
		"paymentMethod": "card",
		"shippingAddress": map[string]interface{}{
			"name": "Ada Lovelace", "street": "12 Analytical Row", "city": "Pune",
			"state": "MH", "postalCode": "411001", "phone": "+91 90000 00000",
		},
	}
	if coupon != "" {
		body["couponCode"] = coupon
	}
	return body
}

func TestOrderAPI_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	server := setupTestServer(t, testDB)
	admin := tokenFor(t, 1, model.RoleAdmin)

	t.Run("POST /api/orders places an order and takes stock", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		buyerID := SeedBuyer(t, testDB.Pool, "ada@example.com")
		productID := SeedProduct(t, testDB.Pool, "Walnut desk", 10)

		w := doRequest(t, server, http.MethodPost, "/api/orders", tokenFor(t, buyerID, model.RoleBuyer), orderBody(productID, 2, "save10"))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var resp model.OrderResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Regexp(t, `^ORD-[0-9A-HJKMNP-TV-Z]{26}$`, resp.OrderNumber)
		assert.Equal(t, buyerID, resp.BuyerID)
		assert.Equal(t, model.StatusPending, resp.Status)
		assert.Equal(t, "IN", resp.ShippingAddress.Country)
		require.NotNil(t, resp.CouponCode)
		assert.Equal(t, "SAVE10", *resp.CouponCode)
		require.Len(t, resp.Items, 1)
		assert.Equal(t, 2, resp.Items[0].Quantity)
		require.Len(t, resp.History, 1)
		assert.Equal(t, model.SystemActor, resp.History[0].Actor)

		stock, sales := ProductStock(t, testDB.Pool, productID)
		assert.Equal(t, 8, stock)
		assert.Equal(t, 2, sales)

		orders, spent := BuyerTotals(t, testDB.Pool, buyerID)
		assert.Equal(t, 1, orders)
		assert.Equal(t, "1000.00", spent)
	})

	t.Run("POST /api/orders rejects insufficient stock without side effects", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		buyerID := SeedBuyer(t, testDB.Pool, "ada@example.com")
		productID := SeedProduct(t, testDB.Pool, "Walnut desk", 3)

		w := doRequest(t, server, http.MethodPost, "/api/orders", tokenFor(t, buyerID, model.RoleBuyer), orderBody(productID, 5, ""))
		require.Equal(t, http.StatusConflict, w.Code)

		var body model.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, model.ErrCodeInsufficientStock, body.Error)
		assert.Equal(t, []model.StockShortfall{{ProductID: productID, Available: 3, Requested: 5}}, body.Shortfalls)

		stock, _ := ProductStock(t, testDB.Pool, productID)
		assert.Equal(t, 3, stock)
		assert.Equal(t, 0, CountRows(t, testDB.Pool, "orders"))
		assert.Equal(t, 0, CountRows(t, testDB.Pool, "order_status_history"))
	})

	t.Run("POST /api/orders rejects an unknown coupon", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		buyerID := SeedBuyer(t, testDB.Pool, "ada@example.com")
		productID := SeedProduct(t, testDB.Pool, "Walnut desk", 3)

		w := doRequest(t, server, http.MethodPost, "/api/orders", tokenFor(t, buyerID, model.RoleBuyer), orderBody(productID, 1, "NOPE"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, 0, CountRows(t, testDB.Pool, "orders"))
	})

	t.Run("POST /api/orders rolls back for an unknown buyer", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		productID := SeedProduct(t, testDB.Pool, "Walnut desk", 3)

		w := doRequest(t, server, http.MethodPost, "/api/orders", tokenFor(t, 999, model.RoleBuyer), orderBody(productID, 1, ""))
		assert.NotEqual(t, http.StatusCreated, w.Code)

		stock, _ := ProductStock(t, testDB.Pool, productID)
		assert.Equal(t, 3, stock)
		assert.Equal(t, 0, CountRows(t, testDB.Pool, "orders"))
	})

	t.Run("order lifecycle through status updates", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		buyerID := SeedBuyer(t, testDB.Pool, "ada@example.com")
		productID := SeedProduct(t, testDB.Pool, "Walnut desk", 10)
		buyerToken := tokenFor(t, buyerID, model.RoleBuyer)

		w := doRequest(t, server, http.MethodPost, "/api/orders", buyerToken, orderBody(productID, 1, ""))
		require.Equal(t, http.StatusCreated, w.Code)
		var created model.OrderResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
		statusPath := "/api/orders/" + strconv.FormatInt(created.ID, 10) + "/status"

		w = doRequest(t, server, http.MethodPut, statusPath, admin, map[string]string{"status": "shipped"})
		assert.Equal(t, http.StatusConflict, w.Code, "strict lifecycle must not skip confirmation")

		w = doRequest(t, server, http.MethodPut, statusPath, buyerToken, map[string]string{"status": "confirmed"})
		assert.Equal(t, http.StatusForbidden, w.Code)

		for _, status := range []string{"confirmed", "processing", "shipped", "delivered"} {
			w = doRequest(t, server, http.MethodPut, statusPath, admin, map[string]string{"status": status, "trackingNumber": "TRK123"})
			require.Equal(t, http.StatusOK, w.Code, status)
		}

		w = doRequest(t, server, http.MethodGet, "/api/orders/"+strconv.FormatInt(created.ID, 10), buyerToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var got model.OrderResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		assert.Equal(t, model.StatusDelivered, got.Status)
		require.NotNil(t, got.TrackingNumber)
		assert.Equal(t, "TRK123", *got.TrackingNumber)
		assert.NotNil(t, got.DeliveryDate)
		require.Len(t, got.History, 5)
		assert.Equal(t, model.StatusPending, got.History[0].Status)
		assert.Equal(t, model.StatusDelivered, got.History[4].Status)
		assert.Equal(t, "admin:1", got.History[4].Actor)

		other := tokenFor(t, SeedBuyer(t, testDB.Pool, "eve@example.com"), model.RoleBuyer)
		w = doRequest(t, server, http.MethodGet, "/api/orders/"+strconv.FormatInt(created.ID, 10), other, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("GET /api/orders scopes buyers and paginates", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		ada := SeedBuyer(t, testDB.Pool, "ada@example.com")
		eve := SeedBuyer(t, testDB.Pool, "eve@example.com")
		productID := SeedProduct(t, testDB.Pool, "Walnut desk", 100)

		for i := 0; i < 3; i++ {
			w := doRequest(t, server, http.MethodPost, "/api/orders", tokenFor(t, ada, model.RoleBuyer), orderBody(productID, 1, ""))
			require.Equal(t, http.StatusCreated, w.Code)
		}
		w := doRequest(t, server, http.MethodPost, "/api/orders", tokenFor(t, eve, model.RoleBuyer), orderBody(productID, 1, ""))
		require.Equal(t, http.StatusCreated, w.Code)

		w = doRequest(t, server, http.MethodGet, "/api/orders?limit=2", tokenFor(t, ada, model.RoleBuyer), nil)
		require.Equal(t, http.StatusOK, w.Code)

		var page model.OrderListResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&page))
		assert.Len(t, page.Orders, 2)
		assert.Equal(t, 3, page.Pagination.Total)
		assert.Equal(t, 2, page.Pagination.TotalPages)
		for _, o := range page.Orders {
			assert.Equal(t, ada, o.BuyerID)
			assert.Len(t, o.Items, 1)
		}

		w = doRequest(t, server, http.MethodGet, "/api/orders", admin, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.NewDecoder(w.Body).Decode(&page))
		assert.Equal(t, 4, page.Pagination.Total)

		w = doRequest(t, server, http.MethodGet, "/api/orders/stats", admin, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var stats model.OrderStats
		require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
		assert.Equal(t, 4, stats.TotalOrders)
		assert.True(t, decimal.NewFromInt(2000).Equal(stats.TotalRevenue), stats.TotalRevenue.String())
		require.Len(t, stats.ByStatus, len(model.AllStatuses))
		assert.Equal(t, 4, stats.ByStatus[0].Count)
	})

	t.Run("GET /health reports the database", func(t *testing.T) {
		w := doRequest(t, server, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
