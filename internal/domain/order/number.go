package order

import (
	"context"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

const (
	// shortNumberLen is the length of the customer-facing order number.
	shortNumberLen = 12
	// maxShortDraws bounds the short-token retry loop before widening to a
	// full-length token.
	maxShortDraws = 5

	numberFilterCapacity = 1 << 20
	numberFilterFPR      = 0.001
)

// ErrNumberExhausted is returned when even widened tokens keep colliding.
// This points at a broken random source or a poisoned table, not load.
var ErrNumberExhausted = errors.New("order number space exhausted")

// NumberGenerator draws unique order numbers: random 12-character tokens cut
// from a UUID, widening to the full 32 characters after repeated collisions.
//
// A bloom filter of issued numbers serves as a cheap in-process negative
// cache in front of the repository existence check. The database unique
// constraint stays authoritative: a concurrent checkout can still win the
// insert race, which Service.Create converts into a retry.
type NumberGenerator struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter

	// newToken is injectable for tests.
	newToken func() string
}

// NewNumberGenerator creates an empty generator. Call Warm with existing
// order numbers before first use so the filter reflects prior runs.
func NewNumberGenerator() *NumberGenerator {
	return &NumberGenerator{
		filter: bloom.NewWithEstimates(numberFilterCapacity, numberFilterFPR),
		newToken: func() string {
			return strings.ReplaceAll(uuid.New().String(), "-", "")
		},
	}
}

// Warm records already-issued order numbers in the filter.
func (g *NumberGenerator) Warm(numbers []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, n := range numbers {
		g.filter.AddString(n)
	}
}

// Mark records a number as issued after a successful insert.
func (g *NumberGenerator) Mark(number string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.filter.AddString(number)
}

// Next returns an order number not currently held by any order, according to
// the filter and the taken check. taken queries authoritative storage and is
// only consulted when the filter reports a possible hit.
func (g *NumberGenerator) Next(ctx context.Context, taken func(ctx context.Context, number string) (bool, error)) (string, error) {
	for draw := 0; draw < maxShortDraws; draw++ {
		candidate := g.newToken()[:shortNumberLen]
		free, err := g.isFree(ctx, candidate, taken)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
	}

	// Widen: a full 32-character token after repeated short collisions.
	for draw := 0; draw < maxShortDraws; draw++ {
		candidate := g.newToken()
		free, err := g.isFree(ctx, candidate, taken)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
	}
	return "", ErrNumberExhausted
}

func (g *NumberGenerator) isFree(ctx context.Context, candidate string, taken func(ctx context.Context, number string) (bool, error)) (bool, error) {
	g.mu.Lock()
	maybeTaken := g.filter.TestString(candidate)
	g.mu.Unlock()
	if !maybeTaken {
		return true, nil
	}

	// Filter hit: could be a false positive, ask the store.
	exists, err := taken(ctx, candidate)
	if err != nil {
		return false, errors.Wrap(err, "check order number")
	}
	return !exists, nil
}
