package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is a lifecycle state of an order.
type OrderStatus string

// Order lifecycle states.
const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
	StatusRefunded   OrderStatus = "refunded"
)

// AllStatuses lists every order status in lifecycle order.
var AllStatuses = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
	StatusRefunded,
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Payment statuses. Only bookkeeping; no gateway is involved.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// DefaultPaymentMethod is used when a request leaves the payment method empty.
const DefaultPaymentMethod = "cod"

// SystemActor is the journal actor for entries written by the engine itself.
const SystemActor = "system"

// Address is a shipping address snapshot embedded in an order.
type Address struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

// Variant describes the chosen variant of a product line.
type Variant struct {
	Color string `json:"color,omitempty"`
	Size  string `json:"size,omitempty"`
	Type  string `json:"type,omitempty"`
}

// Order represents a buyer order. Everything except Status, TrackingNumber
// and DeliveryDate is fixed at creation.
type Order struct {
	ID              int64           `json:"id" db:"id"`
	OrderNumber     string          `json:"orderNumber" db:"order_number"`
	BuyerID         int64           `json:"buyerId" db:"buyer_id"`
	Status          OrderStatus     `json:"status" db:"status"`
	Subtotal        decimal.Decimal `json:"subtotal" db:"subtotal"`
	ShippingCost    decimal.Decimal `json:"shippingCost" db:"shipping_cost"`
	Tax             decimal.Decimal `json:"tax" db:"tax"`
	Discount        decimal.Decimal `json:"discount" db:"discount"`
	Total           decimal.Decimal `json:"total" db:"total"`
	PaymentMethod   string          `json:"paymentMethod" db:"payment_method"`
	PaymentStatus   string          `json:"paymentStatus" db:"payment_status"`
	ShippingAddress Address         `json:"shippingAddress" db:"shipping_address"`
	Instructions    *string         `json:"instructions,omitempty" db:"instructions"`
	CouponCode      *string         `json:"couponCode,omitempty" db:"coupon_code"`
	OrderDate       time.Time       `json:"orderDate" db:"order_date"`
	DeliveryDate    *time.Time      `json:"deliveryDate,omitempty" db:"delivery_date"`
	TrackingNumber  *string         `json:"trackingNumber,omitempty" db:"tracking_number"`
}

// OrderItem is a line item snapshot of an order.
type OrderItem struct {
	ID            int64           `json:"id" db:"id"`
	OrderID       int64           `json:"orderId" db:"order_id"`
	ProductID     int64           `json:"productId" db:"product_id"`
	Name          string          `json:"name" db:"name"`
	Image         string          `json:"image,omitempty" db:"image"`
	UnitPrice     decimal.Decimal `json:"unitPrice" db:"unit_price"`
	OriginalPrice decimal.Decimal `json:"originalPrice" db:"original_price"`
	Quantity      int             `json:"quantity" db:"quantity"`
	Variant       Variant         `json:"variant" db:"variant"`
}

// JournalEntry is one append-only record of an order's status history.
type JournalEntry struct {
	ID        int64       `json:"id" db:"id"`
	OrderID   int64       `json:"orderId" db:"order_id"`
	Status    OrderStatus `json:"status" db:"status"`
	Comment   string      `json:"comment" db:"comment"`
	Actor     string      `json:"actor" db:"actor"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
}

// OrderRequest represents the request payload for creating an order.
type OrderRequest struct {
	Items           []OrderItemRequest `json:"items"`
	Pricing         Pricing            `json:"pricing"`
	PaymentMethod   string             `json:"paymentMethod"`
	ShippingAddress Address            `json:"shippingAddress"`
	Instructions    *string            `json:"instructions,omitempty"`
	CouponCode      *string            `json:"couponCode,omitempty"`
}

// OrderItemRequest represents a single line in an order request.
type OrderItemRequest struct {
	ProductID     int64           `json:"productId"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	Variant       Variant         `json:"variant"`
	Name          string          `json:"name"`
	Image         string          `json:"image,omitempty"`
}

// Pricing is the monetary breakdown submitted with an order. It is stored
// as given.
type Pricing struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// StatusUpdateRequest is the payload for an order status transition.
type StatusUpdateRequest struct {
	Status         OrderStatus `json:"status"`
	Comment        string      `json:"comment,omitempty"`
	TrackingNumber *string     `json:"trackingNumber,omitempty"`
}

// OrderResponse is an order together with its items and status history.
type OrderResponse struct {
	Order
	Items   []OrderItem    `json:"items"`
	History []JournalEntry `json:"statusHistory,omitempty"`
}

// OrderFilter narrows an order listing.
type OrderFilter struct {
	BuyerID   *int64
	Status    *OrderStatus
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// Pagination describes a page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// OrderListResponse is a page of orders.
type OrderListResponse struct {
	Orders     []OrderResponse `json:"orders"`
	Pagination Pagination      `json:"pagination"`
}

// StatusStat aggregates orders sharing one status.
type StatusStat struct {
	Status  OrderStatus     `json:"status"`
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

// OrderStats summarises orders over a date range.
type OrderStats struct {
	ByStatus     []StatusStat    `json:"byStatus"`
	TotalOrders  int             `json:"totalOrders"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
}
