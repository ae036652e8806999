package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"orderdesk/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderColumns = `
	id, order_number, buyer_id, status, subtotal, shipping_cost, tax, discount, total,
	payment_method, payment_status, shipping_address, instructions, coupon_code,
	order_date, delivery_date, tracking_number`

const itemColumns = `id, order_id, product_id, name, image, unit_price, original_price, quantity, variant`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

func (r *orderRepository) OrderNumberExists(ctx context.Context, tx pgx.Tx, orderNumber string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE order_number = $1)`, orderNumber).Scan(&exists)
	if err != nil {
		r.logger.Error().Err(err).Str("order_number", orderNumber).Msg("failed to check order number")
		return false, fmt.Errorf("failed to check order number: %w", err)
	}
	return exists, nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (
			order_number, buyer_id, status, subtotal, shipping_cost, tax, discount, total,
			payment_method, payment_status, shipping_address, instructions, coupon_code, order_date
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`

	err := tx.QueryRow(ctx, query,
		order.OrderNumber,
		order.BuyerID,
		order.Status,
		order.Subtotal,
		order.ShippingCost,
		order.Tax,
		order.Discount,
		order.Total,
		order.PaymentMethod,
		order.PaymentStatus,
		order.ShippingAddress,
		order.Instructions,
		order.CouponCode,
		order.OrderDate,
	).Scan(&order.ID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_number", order.OrderNumber).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Int64("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Msg("order created successfully")

	return nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (order_id, product_id, name, image, unit_price, original_price, quantity, variant)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query,
			item.OrderID,
			item.ProductID,
			item.Name,
			item.Image,
			item.UnitPrice,
			item.OriginalPrice,
			item.Quantity,
			item.Variant,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := range items {
		if err := results.QueryRow().Scan(&items[i].ID); err != nil {
			r.logger.Error().
				Err(err).
				Int64("order_id", items[i].OrderID).
				Int64("product_id", items[i].ProductID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

func (r *orderRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	order, err := scanOrder(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("order_id", id).Msg("failed to lock order")
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	return order, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, status model.OrderStatus, trackingNumber *string, deliveryDate *time.Time) error {
	query := `
		UPDATE orders
		SET status = $1,
		    tracking_number = COALESCE($2, tracking_number),
		    delivery_date = COALESCE($3, delivery_date)
		WHERE id = $4
	`

	tag, err := tx.Exec(ctx, query, status, trackingNumber, deliveryDate, id)
	if err != nil {
		r.logger.Error().
			Err(err).
			Int64("order_id", id).
			Str("status", string(status)).
			Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}
	return nil
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, []model.OrderItem, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Int64("order_id", id).Msg("order not found")
			return nil, nil, nil
		}
		r.logger.Error().Err(err).Int64("order_id", id).Msg("failed to query order")
		return nil, nil, fmt.Errorf("failed to query order: %w", err)
	}

	itemsByOrder, err := r.ItemsByOrderIDs(ctx, []int64{id})
	if err != nil {
		return nil, nil, err
	}

	items := itemsByOrder[id]
	if items == nil {
		items = []model.OrderItem{}
	}

	return order, items, nil
}

func (r *orderRepository) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error) {
	where, args := filterClause(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		r.logger.Error().Err(err).Msg("failed to count orders")
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY order_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, 0, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, total, nil
}

func (r *orderRepository) ItemsByOrderIDs(ctx context.Context, orderIDs []int64) (map[int64][]model.OrderItem, error) {
	result := make(map[int64][]model.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return result, nil
	}

	query := `SELECT ` + itemColumns + ` FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, id`

	rows, err := r.pool.Query(ctx, query, orderIDs)
	if err != nil {
		r.logger.Error().Err(err).Int("order_count", len(orderIDs)).Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Name,
			&item.Image,
			&item.UnitPrice,
			&item.OriginalPrice,
			&item.Quantity,
			&item.Variant,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		result[item.OrderID] = append(result[item.OrderID], item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return result, nil
}

func (r *orderRepository) Stats(ctx context.Context, startDate, endDate *time.Time) ([]model.StatusStat, error) {
	where, args := filterClause(model.OrderFilter{StartDate: startDate, EndDate: endDate})

	query := `SELECT status, COUNT(*), COALESCE(SUM(total), 0) FROM orders` + where + ` GROUP BY status ORDER BY status`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query order stats")
		return nil, fmt.Errorf("failed to query order stats: %w", err)
	}
	defer rows.Close()

	stats := []model.StatusStat{}
	for rows.Next() {
		var s model.StatusStat
		if err := rows.Scan(&s.Status, &s.Count, &s.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan order stats: %w", err)
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order stats: %w", err)
	}

	return stats, nil
}

// filterClause builds a WHERE clause with positional arguments. The start
// date is inclusive and the end date exclusive.
func filterClause(filter model.OrderFilter) (string, []any) {
	var conditions []string
	var args []any

	add := func(condition string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.BuyerID != nil {
		add("buyer_id = $%d", *filter.BuyerID)
	}
	if filter.Status != nil {
		add("status = $%d", *filter.Status)
	}
	if filter.StartDate != nil {
		add("order_date >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("order_date < $%d", *filter.EndDate)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.BuyerID,
		&o.Status,
		&o.Subtotal,
		&o.ShippingCost,
		&o.Tax,
		&o.Discount,
		&o.Total,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.ShippingAddress,
		&o.Instructions,
		&o.CouponCode,
		&o.OrderDate,
		&o.DeliveryDate,
		&o.TrackingNumber,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
