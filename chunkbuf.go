// Package chunkbuf implements growable, write-only byte buffers for assembling
// payloads before they are flattened into a single slice or streamed to a writer.
//
// The default buffer stores its bytes in a list of chunks and never copies
// written bytes when it grows. Resetting a buffer keeps its chunks, so a buffer
// reused for many payloads stops allocating once it has seen the largest one.
package chunkbuf

import (
	"github.com/holmberd/go-chunkbuf/internal/buffer"
)

const (
	KiB = buffer.KiB
	MiB = buffer.MiB
	GiB = buffer.GiB

	MaxBoundedSize         = buffer.MaxBoundedSize
	MinChunkSize           = buffer.MinChunkSize
	DefaultInitialCapacity = buffer.DefaultInitialCapacity
	DefaultMaxChunkSize    = buffer.DefaultMaxChunkSize
)

var (
	defaultChunkPool    = NewChunkPool(DefaultChunkPoolConfig())
	ErrCapacityExceeded = buffer.ErrCapacityExceeded
	ErrInvalidRange     = buffer.ErrInvalidRange
)

type (
	// Buffer is a chunked, write-only byte buffer. See [buffer.Chunked].
	Buffer[A Allocator] = buffer.Chunked[A]

	// Contiguous is a write-only byte buffer backed by a single slice.
	Contiguous = buffer.Contiguous

	// Pool is a pool of reusable chunked buffers, safe for concurrent use.
	Pool[A Allocator] = buffer.Pool[A]

	Allocator     = buffer.Allocator
	HeapAllocator = buffer.HeapAllocator
	Stats         = buffer.Stats
)

// New creates a new bounded buffer with an initial chunk of initialCapacity bytes.
// It panics if initialCapacity is negative.
func New(initialCapacity int) *Buffer[HeapAllocator] {
	config := buffer.DefaultConfig()
	config.InitialCapacity = initialCapacity
	return buffer.NewChunked(HeapAllocator{}, nil, config)
}

// NewUnbounded creates a new buffer whose size is not limited to 32 bits.
// It panics if initialCapacity is negative.
func NewUnbounded(initialCapacity int) *Buffer[HeapAllocator] {
	config := buffer.DefaultConfig()
	config.InitialCapacity = initialCapacity
	config.Unbounded = true
	return buffer.NewChunked(HeapAllocator{}, nil, config)
}

// NewOffHeap creates a new buffer whose chunks are drawn from the default
// off-heap chunk pool. Call Release when done to return the chunks to the pool.
func NewOffHeap(initialCapacity int, unbounded bool) (*Buffer[*ChunkPool], error) {
	return Custom(defaultChunkPool, Config{InitialCapacity: initialCapacity, Unbounded: unbounded})
}

// Custom creates a new buffer with a custom allocator and config.
func Custom[A Allocator](alloc A, config Config) (*Buffer[A], error) {
	bConfig, err := config.build()
	if err != nil {
		return nil, err
	}
	return buffer.NewChunked(alloc, config.Logger, bConfig), nil
}

// NewContiguous creates a new single-slice buffer with the given initial capacity.
// It panics if initialCapacity is negative.
func NewContiguous(initialCapacity int) *Contiguous {
	return buffer.NewContiguous(initialCapacity)
}

// NewPool creates a pool of heap-backed buffers. Buffers that grew past
// maxRetain bytes are dropped on Put; a maxRetain <= 0 keeps every buffer.
func NewPool(config Config, maxRetain int64) (*Pool[HeapAllocator], error) {
	bConfig, err := config.build()
	if err != nil {
		return nil, err
	}
	return buffer.NewPool(HeapAllocator{}, config.Logger, bConfig, maxRetain), nil
}

// DefaultChunkPool returns the chunk pool shared by buffers created with NewOffHeap.
func DefaultChunkPool() *ChunkPool {
	return defaultChunkPool
}
