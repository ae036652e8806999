package coupon

import (
	"context"
	"fmt"
	"sync"

	"orderdesk/internal/model"

	"github.com/rs/zerolog"
)

// registry implements Validator over the union of all loaded coupon files.
type registry struct {
	active CouponSet
	logger zerolog.Logger
}

// NewValidator loads every file concurrently and merges them into one
// registry of active codes. Any load failure aborts startup.
func NewValidator(ctx context.Context, filePaths []string, loader Loader, logger zerolog.Logger) (Validator, error) {
	logger = logger.With().Str("component", "coupon-registry").Logger()

	logger.Info().
		Int("file_count", len(filePaths)).
		Msg("initialising coupon registry")

	type loadResult struct {
		set CouponSet
		err error
	}

	results := make([]loadResult, len(filePaths))
	var wg sync.WaitGroup

	for i, filePath := range filePaths {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()

			set, err := loader.Load(ctx, path)
			results[index] = loadResult{set: set, err: err}
		}(i, filePath)
	}

	wg.Wait()

	total := 0
	for i, result := range results {
		if result.err != nil {
			logger.Error().
				Err(result.err).
				Str("file", filePaths[i]).
				Msg("failed to load coupon file")
			return nil, fmt.Errorf("failed to load coupon file %s: %w", filePaths[i], result.err)
		}
		total += result.set.Size()
	}

	active := NewMapCouponSet(total).(*mapCouponSet)
	for _, result := range results {
		result.set.Range(active.Add)
	}

	logger.Info().
		Int("active_coupons", active.Size()).
		Msg("coupon registry initialised successfully")

	return &registry{
		active: active,
		logger: logger,
	}, nil
}

// Validate reports whether code is in the active registry.
func (r *registry) Validate(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	normalised := Normalise(code)
	if normalised == "" || !r.active.Contains(normalised) {
		r.logger.Debug().Str("coupon_code", code).Msg("coupon code not active")
		return model.ErrUnknownCoupon
	}

	return nil
}

// Close releases resources held by the validator.
func (r *registry) Close() error {
	r.active = NewMapCouponSet(0)

	r.logger.Info().Msg("coupon registry closed")

	return nil
}
