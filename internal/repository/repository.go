package repository

import (
	"context"
	"time"

	"orderdesk/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ProductRepository is the inventory ledger: stock and sales counters of
// catalog products.
type ProductRepository interface {
	// GetStockByIDs reads current stock for the given products in one query.
	// Unknown IDs are simply absent from the result.
	GetStockByIDs(ctx context.Context, tx pgx.Tx, ids []int64) ([]model.ProductStock, error)

	// DecrementStock takes each line out of stock and adds it to the sales
	// counter with a conditional update. Lines that could not be covered are
	// returned as shortfalls; the caller must roll back when any are present.
	DecrementStock(ctx context.Context, tx pgx.Tx, lines []model.StockLine) ([]model.StockShortfall, error)
}

// BuyerRepository maintains the lifetime purchase aggregate of buyers.
type BuyerRepository interface {
	// RecordPurchase increments order count and spend in place and stamps the
	// last order date. Returns model.ErrBuyerNotFound for an unknown buyer.
	RecordPurchase(ctx context.Context, tx pgx.Tx, buyerID int64, amount decimal.Decimal, at time.Time) error
}

// JournalRepository is the append-only status history of orders.
type JournalRepository interface {
	// Append inserts an entry and fills in its ID. CreatedAt is stored as given.
	Append(ctx context.Context, tx pgx.Tx, entry *model.JournalEntry) error

	// ListByOrder returns an order's entries in insertion order.
	ListByOrder(ctx context.Context, orderID int64) ([]model.JournalEntry, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// OrderNumberExists reports whether an order number is already taken.
	OrderNumberExists(ctx context.Context, tx pgx.Tx, orderNumber string) (bool, error)

	// CreateOrder inserts a new order within the provided transaction and sets its ID.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts the order's items within the provided transaction and sets their IDs.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetForUpdate loads an order and locks its row until the transaction ends.
	// Returns nil when the order does not exist.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Order, error)

	// UpdateStatus writes the mutable lifecycle fields of an order. Nil
	// tracking number or delivery date leave the stored value unchanged.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, status model.OrderStatus, trackingNumber *string, deliveryDate *time.Time) error

	// GetByID retrieves an order by its ID along with its items.
	// Returns a nil order when it does not exist.
	GetByID(ctx context.Context, id int64) (*model.Order, []model.OrderItem, error)

	// List returns a page of orders, newest first, and the total matching count.
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error)

	// ItemsByOrderIDs returns the items of several orders keyed by order ID.
	ItemsByOrderIDs(ctx context.Context, orderIDs []int64) (map[int64][]model.OrderItem, error)

	// Stats aggregates order counts and totals by status within an optional date range.
	Stats(ctx context.Context, startDate, endDate *time.Time) ([]model.StatusStat, error)
}
