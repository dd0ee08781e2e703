package buffer

import (
	"log/slog"
	"sync"
)

// Pool represents a pool of reusable chunked buffers.
// A Pool is safe for concurrent use by multiple goroutines; the buffers it
// hands out are not.
type Pool[A Allocator] struct {
	pool       sync.Pool
	maxRetain  int64 // Buffers with a larger capacity are released instead of pooled.
	numCreated int
	mu         sync.Mutex
}

// NewPool creates a pool of buffers created with the given allocator and config.
// Buffers whose capacity grew past maxRetain bytes are released on Put rather
// than kept; a maxRetain <= 0 keeps every buffer.
func NewPool[A Allocator](alloc A, logger *slog.Logger, config Config, maxRetain int64) *Pool[A] {
	if err := config.Validate(); err != nil {
		panic(err)
	}
	p := &Pool[A]{maxRetain: maxRetain}
	p.pool.New = func() any {
		p.mu.Lock()
		p.numCreated++
		p.mu.Unlock()
		return NewChunked(alloc, logger, config)
	}
	return p
}

// Get retrieves an empty buffer from the pool or creates a new one.
func (p *Pool[A]) Get() *Chunked[A] {
	return p.pool.Get().(*Chunked[A])
}

// Put resets a buffer and returns it to the pool for reuse.
// The buffer must not be used after Put.
func (p *Pool[A]) Put(b *Chunked[A]) {
	if p.maxRetain > 0 && b.CapWide() > p.maxRetain {
		b.Release()
		return
	}
	b.Reset()
	p.pool.Put(b)
}

// created returns the number of buffers the pool has created.
// It is primarily intended as helper method in tests.
func (p *Pool[A]) created() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.numCreated
}
