package testutils

import (
	"sync"
	"sync/atomic"
)

// MockAllocator is a heap allocator that records its calls.
type MockAllocator struct {
	allocCalls atomic.Int64
	freeCalls  atomic.Int64

	mu    sync.Mutex
	sizes []int // Sizes of all allocated chunks, in order.
}

func (a *MockAllocator) Alloc(size int) []byte {
	a.allocCalls.Add(1)
	a.mu.Lock()
	a.sizes = append(a.sizes, size)
	a.mu.Unlock()
	return make([]byte, size)
}

func (a *MockAllocator) Free(c []byte) {
	a.freeCalls.Add(1)
}

func (a *MockAllocator) AllocCalls() int64 {
	return a.allocCalls.Load()
}

func (a *MockAllocator) FreeCalls() int64 {
	return a.freeCalls.Load()
}

func (a *MockAllocator) ChunksInUse() int64 {
	return a.AllocCalls() - a.FreeCalls()
}

// Sizes returns a copy of the sizes of all allocated chunks, in allocation order.
func (a *MockAllocator) Sizes() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]int(nil), a.sizes...)
}

func (a *MockAllocator) Reset() {
	a.allocCalls.Store(0)
	a.freeCalls.Store(0)
	a.mu.Lock()
	a.sizes = nil
	a.mu.Unlock()
}
