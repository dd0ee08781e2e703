package buffer

import (
	"fmt"
	"math"
)

const (
	KiB = 1024
	MiB = KiB * KiB
	GiB = KiB * MiB

	// MaxBoundedSize is the largest logical size of a bounded buffer,
	// and the largest value returned by the 32-bit size accessors.
	MaxBoundedSize = math.MaxInt32

	// MinChunkSize is the smallest chunk the growth policy allocates after
	// the initial chunk. It prevents long runs of tiny chunks.
	MinChunkSize = 128

	DefaultInitialCapacity = 1 * KiB
	DefaultMaxChunkSize    = 1 * GiB
)

// growthPolicy decides the capacity of the next chunk to allocate.
type growthPolicy struct {
	initialCapacity int
	maxChunkSize    int
	limit           int64 // Upper bound of the logical size.
}

func newGrowthPolicy(config Config) growthPolicy {
	limit := int64(math.MaxInt64)
	if !config.Unbounded {
		limit = MaxBoundedSize
	}
	initial := config.InitialCapacity
	if initial == 0 {
		initial = DefaultInitialCapacity
	}
	return growthPolicy{
		initialCapacity: initial,
		maxChunkSize:    config.MaxChunkSize,
		limit:           limit,
	}
}

// first returns the capacity of the first chunk of an empty chunk list
// that must be able to hold newCount bytes.
func (g growthPolicy) first(newCount int64) (int, error) {
	return g.clamp(max(int64(g.initialCapacity), newCount), 0)
}

// next returns the capacity of the chunk following a chunk of prevCap bytes,
// where base is the total capacity of all chunks before the new one and newCount
// is the logical size the current write is about to reach.
//
// The capacity is the larger of doubling prevCap and what is still required to
// hold newCount, and at least MinChunkSize. It is clamped to the maximum chunk
// size and so that base plus the capacity never passes the size limit.
func (g growthPolicy) next(prevCap int, base int64, newCount int64) (int, error) {
	size := max(2*int64(prevCap), newCount-base, MinChunkSize)
	return g.clamp(size, base)
}

func (g growthPolicy) clamp(size int64, base int64) (int, error) {
	if base >= g.limit {
		return 0, fmt.Errorf("%w: buffer has reached its limit of %d bytes", ErrCapacityExceeded, g.limit)
	}
	size = min(size, int64(g.maxChunkSize), g.limit-base)
	return int(max(size, 1)), nil
}
