package coupon

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"
)

// Normalise maps a submitted code to its registry form.
func Normalise(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// mapCouponSet implements CouponSet using a map for O(1) lookups.
type mapCouponSet struct {
	coupons map[string]struct{}
}

// NewMapCouponSet creates a new map-based coupon set.
func NewMapCouponSet(capacity int) CouponSet {
	return &mapCouponSet{
		coupons: make(map[string]struct{}, capacity),
	}
}

// Contains checks if a coupon code exists in the set.
func (s *mapCouponSet) Contains(code string) bool {
	_, exists := s.coupons[code]
	return exists
}

// Size returns the number of coupons in the set.
func (s *mapCouponSet) Size() int {
	return len(s.coupons)
}

// Range calls fn for every code in the set.
func (s *mapCouponSet) Range(fn func(code string)) {
	for code := range s.coupons {
		fn(code)
	}
}

// Add adds a coupon code to the set.
func (s *mapCouponSet) Add(code string) {
	s.coupons[Normalise(code)] = struct{}{}
}

// readGzipCodes reads one code per line from a gzip stream. Blank lines and
// lines starting with '#' are skipped.
func readGzipCodes(ctx context.Context, r io.Reader) (*mapCouponSet, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	set := NewMapCouponSet(1024).(*mapCouponSet)

	scanner := bufio.NewScanner(gzipReader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineCount := 0
	for scanner.Scan() {
		// Check context cancellation periodically
		if lineCount%100_000 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
		lineCount++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		set.Add(line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read coupon codes: %w", err)
	}

	return set, nil
}
