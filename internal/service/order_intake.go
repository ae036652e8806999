package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"orderdesk/internal/metrics"
	"orderdesk/internal/model"
	"orderdesk/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// maxOrderNumberAttempts bounds regeneration when a number is already taken.
const maxOrderNumberAttempts = 5

// orderIntake implements OrderIntake.
type orderIntake struct {
	orderRepo      repository.OrderRepository
	productRepo    repository.ProductRepository
	buyerRepo      repository.BuyerRepository
	journalRepo    repository.JournalRepository
	coupons        CouponValidator
	numbers        OrderNumberGenerator
	defaultCountry string
	now            Clock
	logger         zerolog.Logger
}

// IntakeOptions configures an OrderIntake.
type IntakeOptions struct {
	// Coupons validates coupon codes. Nil disables coupon checks.
	Coupons CouponValidator

	// Numbers generates order numbers. Defaults to ULIDs prefixed "ORD".
	Numbers OrderNumberGenerator

	// DefaultCountry fills an address that leaves the country empty.
	DefaultCountry string
}

// NewOrderIntake creates the order intake component.
func NewOrderIntake(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	buyerRepo repository.BuyerRepository,
	journalRepo repository.JournalRepository,
	opts IntakeOptions,
	logger zerolog.Logger,
) OrderIntake {
	if opts.Numbers == nil {
		opts.Numbers = NewOrderNumberGenerator("ORD")
	}
	return &orderIntake{
		orderRepo:      orderRepo,
		productRepo:    productRepo,
		buyerRepo:      buyerRepo,
		journalRepo:    journalRepo,
		coupons:        opts.Coupons,
		numbers:        opts.Numbers,
		defaultCountry: opts.DefaultCountry,
		now:            time.Now,
		logger:         logger.With().Str("service", "order-intake").Logger(),
	}
}

// CreateOrder validates the request and writes the order in one transaction.
func (s *orderIntake) CreateOrder(ctx context.Context, caller model.Identity, req *model.OrderRequest) (resp *model.OrderResponse, err error) {
	if caller.Role != model.RoleBuyer {
		s.logger.Warn().Str("actor", caller.Actor()).Msg("non-buyer attempted to create an order")
		return nil, model.ErrForbidden
	}

	if err := s.validateOrderRequest(req); err != nil {
		metrics.OrdersRejectedTotal.WithLabelValues(metrics.ReasonValidation).Inc()
		return nil, err
	}

	if req.CouponCode != nil && *req.CouponCode != "" && s.coupons != nil {
		if err := s.coupons.Validate(ctx, *req.CouponCode); err != nil {
			s.logger.Warn().
				Str("coupon_code", *req.CouponCode).
				Err(err).
				Msg("invalid coupon code")
			metrics.OrdersRejectedTotal.WithLabelValues(metrics.ReasonCoupon).Inc()
			return nil, err
		}
	}

	start := time.Now()
	defer func() {
		metrics.OrderIntakeDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.OrdersRejectedTotal.WithLabelValues(rejectionReason(err)).Inc()
		}
	}()

	lines := mergeLines(req.Items)

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	known, err := s.checkStock(ctx, tx, lines)
	if err != nil {
		return nil, err
	}

	orderNumber, err := s.nextOrderNumber(ctx, tx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	order := &model.Order{
		OrderNumber:     orderNumber,
		BuyerID:         caller.ID,
		Status:          model.StatusPending,
		Subtotal:        req.Pricing.Subtotal,
		ShippingCost:    req.Pricing.Shipping,
		Tax:             req.Pricing.Tax,
		Discount:        req.Pricing.Discount,
		Total:           req.Pricing.Total,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   model.PaymentStatusPending,
		ShippingAddress: req.ShippingAddress,
		Instructions:    req.Instructions,
		CouponCode:      normaliseCoupon(req.CouponCode),
		OrderDate:       now,
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = model.DefaultPaymentMethod
	}
	if order.ShippingAddress.Country == "" {
		order.ShippingAddress.Country = s.defaultCountry
	}

	if err = s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		s.logger.Error().Err(err).Str("order_number", orderNumber).Msg("failed to create order")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	items := make([]model.OrderItem, len(req.Items))
	for i, item := range req.Items {
		name := item.Name
		if name == "" {
			if p, ok := known[item.ProductID]; ok {
				name = p.Name
			}
		}
		items[i] = model.OrderItem{
			OrderID:       order.ID,
			ProductID:     item.ProductID,
			Name:          name,
			Image:         item.Image,
			UnitPrice:     item.UnitPrice,
			OriginalPrice: item.OriginalPrice,
			Quantity:      item.Quantity,
			Variant:       item.Variant,
		}
	}

	if err = s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
		s.logger.Error().
			Err(err).
			Int64("order_id", order.ID).
			Int("item_count", len(items)).
			Msg("failed to create order items")
		return nil, fmt.Errorf("failed to create order items: %w", err)
	}

	if err = s.takeStock(ctx, tx, lines, known); err != nil {
		return nil, err
	}

	entry := &model.JournalEntry{
		OrderID:   order.ID,
		Status:    model.StatusPending,
		Comment:   "Order placed",
		Actor:     model.SystemActor,
		CreatedAt: now,
	}
	if err = s.journalRepo.Append(ctx, tx, entry); err != nil {
		s.logger.Error().Err(err).Int64("order_id", order.ID).Msg("failed to append journal entry")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err = s.buyerRepo.RecordPurchase(ctx, tx, caller.ID, order.Total, now); err != nil {
		if errors.Is(err, model.ErrBuyerNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to record purchase: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Int64("order_id", order.ID).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	metrics.OrdersCreatedTotal.Inc()
	s.logger.Info().
		Int64("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Int64("buyer_id", caller.ID).
		Int("item_count", len(items)).
		Msg("order created successfully")

	return &model.OrderResponse{
		Order:   *order,
		Items:   items,
		History: []model.JournalEntry{*entry},
	}, nil
}

// checkStock reads stock for every line and rejects the order when a known
// product cannot cover its quantity. Unknown products are tolerated.
func (s *orderIntake) checkStock(ctx context.Context, tx pgx.Tx, lines []model.StockLine) (map[int64]model.ProductStock, error) {
	ids := make([]int64, len(lines))
	for i, line := range lines {
		ids[i] = line.ProductID
	}

	products, err := s.productRepo.GetStockByIDs(ctx, tx, ids)
	if err != nil {
		s.logger.Error().Err(err).Int("product_count", len(ids)).Msg("failed to read stock")
		return nil, fmt.Errorf("failed to read stock: %w", err)
	}

	known := make(map[int64]model.ProductStock, len(products))
	for _, p := range products {
		known[p.ID] = p
	}

	var shortfalls []model.StockShortfall
	for _, line := range lines {
		p, ok := known[line.ProductID]
		if !ok {
			s.logger.Warn().
				Int64("product_id", line.ProductID).
				Msg("product not in catalog, using submitted snapshot")
			continue
		}
		if p.Stock < line.Quantity {
			shortfalls = append(shortfalls, model.StockShortfall{
				ProductID: line.ProductID,
				Available: p.Stock,
				Requested: line.Quantity,
			})
		}
	}

	if len(shortfalls) > 0 {
		s.logger.Info().Int("shortfall_count", len(shortfalls)).Msg("order rejected for insufficient stock")
		return nil, &model.StockShortfallError{Items: shortfalls}
	}

	return known, nil
}

// takeStock decrements known products. A shortfall here means a concurrent
// order took the stock after checkStock read it.
func (s *orderIntake) takeStock(ctx context.Context, tx pgx.Tx, lines []model.StockLine, known map[int64]model.ProductStock) error {
	take := make([]model.StockLine, 0, len(lines))
	for _, line := range lines {
		if _, ok := known[line.ProductID]; ok {
			take = append(take, line)
		}
	}
	if len(take) == 0 {
		return nil
	}
	// Lock rows in id order so concurrent multi-line orders cannot deadlock.
	slices.SortFunc(take, func(a, b model.StockLine) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})

	shortfalls, err := s.productRepo.DecrementStock(ctx, tx, take)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if len(shortfalls) > 0 {
		return &model.StockShortfallError{Items: shortfalls}
	}
	return nil
}

func (s *orderIntake) nextOrderNumber(ctx context.Context, tx pgx.Tx) (string, error) {
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		number, err := s.numbers.Next(s.now())
		if err != nil {
			return "", err
		}

		exists, err := s.orderRepo.OrderNumberExists(ctx, tx, number)
		if err != nil {
			return "", fmt.Errorf("failed to check order number: %w", err)
		}
		if !exists {
			return number, nil
		}

		s.logger.Warn().Str("order_number", number).Int("attempt", attempt).Msg("order number collision")
	}
	return "", fmt.Errorf("failed to generate a unique order number after %d attempts", maxOrderNumberAttempts)
}

// validateOrderRequest validates the order request.
func (s *orderIntake) validateOrderRequest(req *model.OrderRequest) error {
	if req == nil || len(req.Items) == 0 {
		return model.ErrEmptyOrder
	}

	for i, item := range req.Items {
		if item.ProductID <= 0 {
			return &model.ValidationError{
				Field:   fmt.Sprintf("items[%d].productId", i),
				Message: "must be a positive product id",
			}
		}

		if item.Quantity <= 0 {
			s.logger.Warn().
				Int("item_index", i).
				Int64("product_id", item.ProductID).
				Int("quantity", item.Quantity).
				Msg("invalid quantity")
			return model.ErrInvalidQuantity
		}

		if item.UnitPrice.IsNegative() {
			return &model.ValidationError{Field: fmt.Sprintf("items[%d].unitPrice", i), Message: "must not be negative"}
		}
		if item.OriginalPrice.IsNegative() {
			return &model.ValidationError{Field: fmt.Sprintf("items[%d].originalPrice", i), Message: "must not be negative"}
		}
	}

	money := []struct {
		field string
		neg   bool
	}{
		{"pricing.subtotal", req.Pricing.Subtotal.IsNegative()},
		{"pricing.shipping", req.Pricing.Shipping.IsNegative()},
		{"pricing.tax", req.Pricing.Tax.IsNegative()},
		{"pricing.discount", req.Pricing.Discount.IsNegative()},
		{"pricing.total", req.Pricing.Total.IsNegative()},
	}
	for _, m := range money {
		if m.neg {
			return &model.ValidationError{Field: m.field, Message: "must not be negative"}
		}
	}

	addr := req.ShippingAddress
	required := []struct {
		field string
		value string
	}{
		{"shippingAddress.name", addr.Name},
		{"shippingAddress.street", addr.Street},
		{"shippingAddress.city", addr.City},
		{"shippingAddress.state", addr.State},
		{"shippingAddress.postalCode", addr.PostalCode},
		{"shippingAddress.phone", addr.Phone},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return model.NewMissingFieldError(r.field)
		}
	}

	return nil
}

// mergeLines sums quantities per product, keeping first-seen order.
func mergeLines(items []model.OrderItemRequest) []model.StockLine {
	index := make(map[int64]int, len(items))
	lines := make([]model.StockLine, 0, len(items))
	for _, item := range items {
		if i, ok := index[item.ProductID]; ok {
			lines[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(lines)
		lines = append(lines, model.StockLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

func normaliseCoupon(code *string) *string {
	if code == nil {
		return nil
	}
	c := strings.ToUpper(strings.TrimSpace(*code))
	if c == "" {
		return nil
	}
	return &c
}

func rejectionReason(err error) string {
	var shortfall *model.StockShortfallError
	switch {
	case errors.As(err, &shortfall):
		return metrics.ReasonStock
	case errors.Is(err, model.ErrBuyerNotFound):
		return metrics.ReasonBuyer
	default:
		return metrics.ReasonInternal
	}
}
