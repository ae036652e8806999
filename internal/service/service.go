package service

import (
	"context"
	"time"

	"orderdesk/internal/model"
)

// OrderIntake turns a buyer's cart into a durable order.
type OrderIntake interface {
	// CreateOrder validates the request, takes stock, and writes the order,
	// its items, its first journal entry and the buyer aggregate in one
	// transaction.
	CreateOrder(ctx context.Context, caller model.Identity, req *model.OrderRequest) (*model.OrderResponse, error)
}

// OrderStatusController moves orders through their lifecycle.
type OrderStatusController interface {
	// UpdateStatus transitions an order and appends a journal entry. Admin only.
	UpdateStatus(ctx context.Context, caller model.Identity, orderID int64, req *model.StatusUpdateRequest) (*model.Order, error)
}

// ListParams are the caller-facing listing options.
type ListParams struct {
	Page      int
	Limit     int
	Status    *model.OrderStatus
	StartDate *time.Time
	EndDate   *time.Time
}

// OrderQuery is the read side of the order engine. It never mutates.
type OrderQuery interface {
	// GetOrder returns an order with its items and status history.
	GetOrder(ctx context.Context, caller model.Identity, orderID int64) (*model.OrderResponse, error)

	// ListOrders returns a page of orders visible to the caller.
	ListOrders(ctx context.Context, caller model.Identity, params ListParams) (*model.OrderListResponse, error)

	// Stats aggregates orders by status. Admin only.
	Stats(ctx context.Context, caller model.Identity, startDate, endDate *time.Time) (*model.OrderStats, error)
}

// OrderService is the full order engine as exposed over HTTP.
type OrderService interface {
	OrderIntake
	OrderStatusController
	OrderQuery
}

type orderService struct {
	OrderIntake
	OrderStatusController
	OrderQuery
}

// NewOrderService combines the engine components into one service.
func NewOrderService(intake OrderIntake, controller OrderStatusController, query OrderQuery) OrderService {
	return &orderService{
		OrderIntake:           intake,
		OrderStatusController: controller,
		OrderQuery:            query,
	}
}

// CouponValidator checks a coupon code against the active registry.
type CouponValidator interface {
	Validate(ctx context.Context, code string) error
}

// Clock returns the current time.
type Clock func() time.Time
