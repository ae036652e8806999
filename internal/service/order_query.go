package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"orderdesk/internal/model"
	"orderdesk/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// orderQuery implements OrderQuery.
type orderQuery struct {
	orderRepo       repository.OrderRepository
	journalRepo     repository.JournalRepository
	defaultPageSize int
	maxPageSize     int
	logger          zerolog.Logger
}

// NewOrderQuery creates the read side of the order engine.
func NewOrderQuery(
	orderRepo repository.OrderRepository,
	journalRepo repository.JournalRepository,
	defaultPageSize, maxPageSize int,
	logger zerolog.Logger,
) OrderQuery {
	return &orderQuery{
		orderRepo:       orderRepo,
		journalRepo:     journalRepo,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		logger:          logger.With().Str("service", "order-query").Logger(),
	}
}

// GetOrder retrieves an order with its items and status history. Buyers may
// only read their own orders.
func (s *orderQuery) GetOrder(ctx context.Context, caller model.Identity, orderID int64) (*model.OrderResponse, error) {
	order, items, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order == nil {
		s.logger.Debug().Int64("order_id", orderID).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}

	if !caller.IsAdmin() && order.BuyerID != caller.ID {
		s.logger.Warn().
			Int64("order_id", orderID).
			Str("actor", caller.Actor()).
			Msg("buyer attempted to read another buyer's order")
		return nil, model.ErrForbidden
	}

	history, err := s.journalRepo.ListByOrder(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to list status history")
		return nil, fmt.Errorf("failed to get order history: %w", err)
	}

	return &model.OrderResponse{
		Order:   *order,
		Items:   items,
		History: history,
	}, nil
}

// ListOrders returns a page of orders, newest first. Buyers are always
// scoped to their own orders.
func (s *orderQuery) ListOrders(ctx context.Context, caller model.Identity, params ListParams) (*model.OrderListResponse, error) {
	if params.Status != nil && !params.Status.Valid() {
		return nil, model.ErrInvalidStatus
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	if limit < 1 {
		limit = s.defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}
	// Keep the offset from overflowing; such a page is always empty.
	if page > math.MaxInt/limit {
		page = math.MaxInt / limit
	}

	filter := model.OrderFilter{
		Status:    params.Status,
		StartDate: params.StartDate,
		EndDate:   params.EndDate,
		Limit:     limit,
		Offset:    (page - 1) * limit,
	}
	if !caller.IsAdmin() {
		buyerID := caller.ID
		filter.BuyerID = &buyerID
	}

	orders, total, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).Str("actor", caller.Actor()).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}

	items, err := s.orderRepo.ItemsByOrderIDs(ctx, ids)
	if err != nil {
		s.logger.Error().Err(err).Int("order_count", len(ids)).Msg("failed to load order items")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	result := make([]model.OrderResponse, len(orders))
	for i, o := range orders {
		orderItems := items[o.ID]
		if orderItems == nil {
			orderItems = []model.OrderItem{}
		}
		result[i] = model.OrderResponse{Order: o, Items: orderItems}
	}

	return &model.OrderListResponse{
		Orders: result,
		Pagination: model.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
		},
	}, nil
}

// Stats reports order counts and revenue per status. Every status is listed,
// including those with no orders. Revenue totals leave out cancelled and
// refunded orders.
func (s *orderQuery) Stats(ctx context.Context, caller model.Identity, startDate, endDate *time.Time) (*model.OrderStats, error) {
	if !caller.IsAdmin() {
		return nil, model.ErrForbidden
	}

	rows, err := s.orderRepo.Stats(ctx, startDate, endDate)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to compute order stats")
		return nil, fmt.Errorf("failed to compute order stats: %w", err)
	}

	byStatus := make(map[model.OrderStatus]model.StatusStat, len(rows))
	for _, r := range rows {
		byStatus[r.Status] = r
	}

	stats := &model.OrderStats{
		ByStatus:     make([]model.StatusStat, 0, len(model.AllStatuses)),
		TotalRevenue: decimal.Zero,
	}
	for _, status := range model.AllStatuses {
		stat, ok := byStatus[status]
		if !ok {
			stat = model.StatusStat{Status: status, Revenue: decimal.Zero}
		}
		stats.ByStatus = append(stats.ByStatus, stat)
		stats.TotalOrders += stat.Count
		if status != model.StatusCancelled && status != model.StatusRefunded {
			stats.TotalRevenue = stats.TotalRevenue.Add(stat.Revenue)
		}
	}

	return stats, nil
}
