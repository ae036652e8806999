package model

import (
	"fmt"
	"strings"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string           `json:"error"`
	Message       string           `json:"message"`
	Field         string           `json:"field,omitempty"`
	Shortfalls    []StockShortfall `json:"shortfalls,omitempty"`
	CorrelationID string           `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON       = "INVALID_JSON"
	ErrCodeMissingField      = "MISSING_FIELD"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeEmptyOrder        = "EMPTY_ORDER"
	ErrCodeInvalidQuantity   = "INVALID_QUANTITY"
	ErrCodeInvalidStatus     = "INVALID_STATUS"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"
	ErrCodeUnknownCoupon     = "UNKNOWN_COUPON"
	ErrCodeOrderNotFound     = "ORDER_NOT_FOUND"
	ErrCodeBuyerNotFound     = "BUYER_NOT_FOUND"
	ErrCodeUnauthorised      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrEmptyOrder      = NewDomainError(ErrCodeEmptyOrder, "Order must contain at least one item")
	ErrInvalidQuantity = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrInvalidStatus   = NewDomainError(ErrCodeInvalidStatus, "Unknown order status")
	ErrUnknownCoupon   = NewDomainError(ErrCodeUnknownCoupon, "Coupon code is not recognised")
	ErrOrderNotFound   = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrBuyerNotFound   = NewDomainError(ErrCodeBuyerNotFound, "Buyer not found")
	ErrUnauthorised    = NewDomainError(ErrCodeUnauthorised, "Authentication required")
	ErrForbidden       = NewDomainError(ErrCodeForbidden, "Caller is not allowed to perform this operation")
)

// ValidationError rejects a request because of one named field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewMissingFieldError reports a required field left empty.
func NewMissingFieldError(field string) *ValidationError {
	return &ValidationError{Field: field, Message: "is required"}
}

// StockShortfall describes one product that cannot cover the requested quantity.
type StockShortfall struct {
	ProductID int64 `json:"productId"`
	Available int   `json:"available"`
	Requested int   `json:"requested"`
}

// StockShortfallError rejects an order whose items exceed available stock.
type StockShortfallError struct {
	Items []StockShortfall
}

func (e *StockShortfallError) Error() string {
	parts := make([]string, len(e.Items))
	for i, s := range e.Items {
		parts[i] = fmt.Sprintf("product %d (available %d, requested %d)", s.ProductID, s.Available, s.Requested)
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

// TransitionError rejects a status change the lifecycle does not allow.
type TransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}
