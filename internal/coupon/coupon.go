package coupon

import (
	"context"
)

// Validator checks coupon codes submitted with an order against the
// registry of active codes.
type Validator interface {
	// Validate returns model.ErrUnknownCoupon when the code is not active.
	// Codes are compared case-insensitively.
	Validate(ctx context.Context, code string) error

	// Close releases resources held by the validator.
	Close() error
}

// CouponSet represents a set of coupon codes for fast lookup.
type CouponSet interface {
	// Contains checks if a normalised coupon code exists in the set.
	Contains(code string) bool

	// Size returns the number of coupons in the set.
	Size() int

	// Range calls fn for every code in the set.
	Range(fn func(code string))
}

// Loader defines the interface for loading coupon files.
type Loader interface {
	// Load reads a gzipped coupon file and returns a CouponSet.
	Load(ctx context.Context, filePath string) (CouponSet, error)
}
