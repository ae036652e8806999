package service

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// OrderNumberGenerator produces human-readable order numbers.
type OrderNumberGenerator interface {
	Next(now time.Time) (string, error)
}

// ulidOrderNumbers builds "<prefix>-<ULID>": a millisecond timestamp
// followed by 80 random bits. Monotonic entropy keeps numbers generated in
// the same millisecond distinct and ordered.
type ulidOrderNumbers struct {
	prefix  string
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewOrderNumberGenerator returns a ULID-based generator.
func NewOrderNumberGenerator(prefix string) OrderNumberGenerator {
	return &ulidOrderNumbers{
		prefix:  prefix,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (g *ulidOrderNumbers) Next(now time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(now), g.entropy)
	if err != nil {
		return "", fmt.Errorf("failed to generate order number: %w", err)
	}
	return g.prefix + "-" + id.String(), nil
}
