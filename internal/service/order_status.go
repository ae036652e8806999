package service

import (
	"context"
	"fmt"
	"time"

	"orderdesk/internal/metrics"
	"orderdesk/internal/model"
	"orderdesk/internal/repository"

	"github.com/rs/zerolog"
)

// orderStatusController implements OrderStatusController.
type orderStatusController struct {
	orderRepo   repository.OrderRepository
	journalRepo repository.JournalRepository
	policy      TransitionPolicy
	now         Clock
	logger      zerolog.Logger
}

// NewOrderStatusController creates the lifecycle controller. A nil policy
// enforces the strict transition graph.
func NewOrderStatusController(
	orderRepo repository.OrderRepository,
	journalRepo repository.JournalRepository,
	policy TransitionPolicy,
	logger zerolog.Logger,
) OrderStatusController {
	if policy == nil {
		policy = strictTransitions{}
	}
	return &orderStatusController{
		orderRepo:   orderRepo,
		journalRepo: journalRepo,
		policy:      policy,
		now:         time.Now,
		logger:      logger.With().Str("service", "order-status").Logger(),
	}
}

// UpdateStatus moves an order to req.Status under a row lock and journals it.
func (s *orderStatusController) UpdateStatus(ctx context.Context, caller model.Identity, orderID int64, req *model.StatusUpdateRequest) (order *model.Order, err error) {
	if !caller.IsAdmin() {
		s.logger.Warn().Str("actor", caller.Actor()).Int64("order_id", orderID).Msg("non-admin attempted a status change")
		return nil, model.ErrForbidden
	}

	if req == nil || !req.Status.Valid() {
		return nil, model.ErrInvalidStatus
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	order, err = s.orderRepo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		err = model.ErrOrderNotFound
		return nil, err
	}

	from := order.Status
	if !s.policy.Allows(from, req.Status) {
		s.logger.Info().
			Int64("order_id", orderID).
			Str("from", string(from)).
			Str("to", string(req.Status)).
			Msg("transition rejected")
		return nil, &model.TransitionError{From: from, To: req.Status}
	}

	now := s.now()
	var deliveryDate *time.Time
	if req.Status == model.StatusDelivered {
		deliveryDate = &now
	}

	var tracking *string
	if req.TrackingNumber != nil && *req.TrackingNumber != "" {
		tracking = req.TrackingNumber
	}

	if err = s.orderRepo.UpdateStatus(ctx, tx, orderID, req.Status, tracking, deliveryDate); err != nil {
		s.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to update order status")
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	comment := req.Comment
	if comment == "" {
		comment = fmt.Sprintf("Order status updated to %s", req.Status)
	}

	entry := &model.JournalEntry{
		OrderID:   orderID,
		Status:    req.Status,
		Comment:   comment,
		Actor:     caller.Actor(),
		CreatedAt: now,
	}
	if err = s.journalRepo.Append(ctx, tx, entry); err != nil {
		s.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to append journal entry")
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	order.Status = req.Status
	if tracking != nil {
		order.TrackingNumber = tracking
	}
	if deliveryDate != nil {
		order.DeliveryDate = deliveryDate
	}

	metrics.OrderStatusTransitionsTotal.WithLabelValues(string(req.Status)).Inc()
	s.logger.Info().
		Int64("order_id", orderID).
		Str("from", string(from)).
		Str("to", string(req.Status)).
		Str("actor", entry.Actor).
		Msg("order status updated")

	return order, nil
}
