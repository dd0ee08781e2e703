package chunkbuf

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sys/unix"
)

const (
	minPooledSize  = 64 * KiB // Smaller chunks are allocated on the heap.
	maxPooledSize  = 64 * MiB // Larger chunks are mapped and unmapped individually.
	numSizeClasses = 11
)

// sizeClasses represents the chunk sizes held by the pool, ordered by smallest
// to largest. Each class is double the previous one, matching the buffer's
// doubling growth.
var sizeClasses = newSizeClasses()

func newSizeClasses() [numSizeClasses]int {
	var classes [numSizeClasses]int
	for i := range classes {
		classes[i] = minPooledSize << i
	}
	// Runtime assertion.
	if classes[numSizeClasses-1] != maxPooledSize || !sort.IntsAreSorted(classes[:]) {
		panic(errors.New("size classes must double from the min to the max pooled size"))
	}
	return classes
}

// classIndex returns the index of the smallest size class that can hold size
// bytes, or -1 if size is larger than every class.
func classIndex(size int) int {
	i := sort.SearchInts(sizeClasses[:], size)
	if i == numSizeClasses {
		return -1
	}
	return i
}

// ChunkPool is a thread-safe allocator of off-heap memory chunks.
// It implements the [Allocator] interface.
//
// Chunks of at least 64KB are mapped outside of the Go heap, which reduces how
// much memory the GC has to track for large buffers. Freed chunks are kept in
// per-size-class free lists and handed out again; the contents of a recycled
// chunk are unspecified. Chunks below 64KB come from the Go heap.
type ChunkPool struct {
	mu   sync.Mutex
	free [numSizeClasses][][]byte

	// freeThresholds represents the number of free chunks for each size class
	// the pool can hold before starting to release memory.
	freeThresholds [numSizeClasses]int
}

// NewChunkPool creates a new, empty chunk pool.
func NewChunkPool(config ChunkPoolConfig) *ChunkPool {
	return &ChunkPool{freeThresholds: config.FreeThresholds}
}

// Sizes returns a slice of the pooled size classes.
func (p *ChunkPool) Sizes() []int {
	return sizeClasses[:]
}

// Alloc returns a chunk of size bytes.
// It will panic if the memory cannot be mapped.
func (p *ChunkPool) Alloc(size int) []byte {
	if size < minPooledSize {
		return make([]byte, size)
	}
	ci := classIndex(size)
	if ci == -1 {
		return p.mmap(size)
	}

	p.mu.Lock()
	n := len(p.free[ci])
	if n == 0 {
		p.mu.Unlock()
		return p.mmap(sizeClasses[ci])[:size]
	}
	c := p.free[ci][n-1]
	p.free[ci][n-1] = nil
	p.free[ci] = p.free[ci][:n-1]
	p.mu.Unlock()
	return c[:size]
}

// Free returns a chunk to the pool.
// Heap chunks are left to the GC, and chunks larger than the largest size class
// are unmapped immediately.
func (p *ChunkPool) Free(c []byte) {
	if c == nil {
		return
	}
	size := cap(c)
	if size < minPooledSize {
		return
	}
	c = c[:size] // Ensure the chunk is reset to its full capacity before returning.

	ci := classIndex(size)
	if ci == -1 || sizeClasses[ci] != size {
		p.unmap(c)
		return
	}

	var chunksToUnmap [][]byte
	p.mu.Lock()
	p.free[ci] = append(p.free[ci], c)
	p.free[ci], chunksToUnmap = releaseChunks(p.free[ci], p.freeThresholds[ci])
	p.mu.Unlock()

	// Perform unmap outside of the lock to avoid blocking other operations.
	for _, chunk := range chunksToUnmap {
		p.unmap(chunk)
	}
}

// Allocate ensures that at least numChunks free chunks are available in the
// size class that holds chunkSize bytes. This is useful for pre-warming the pool.
// It will panic if chunkSize is outside of the pooled size classes.
func (p *ChunkPool) Allocate(chunkSize int, numChunks int) {
	ci := classIndex(chunkSize)
	if chunkSize < minPooledSize || ci == -1 {
		panic(fmt.Sprintf("unsupported chunk size for pre-allocation: %d", chunkSize))
	}
	if numChunks <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for n := numChunks - len(p.free[ci]); n > 0; n-- {
		p.free[ci] = append(p.free[ci], p.mmap(sizeClasses[ci]))
	}
}

// unmap releases the memory of a chunk back to the operating system.
func (p *ChunkPool) unmap(c []byte) {
	if err := unix.Munmap(c); err != nil {
		slog.Error("failed to unmap chunk", "size", len(c), "error", err)
	}
}

// mmap maps a chunk of size bytes outside of the Go heap.
func (p *ChunkPool) mmap(size int) []byte {
	c, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE,
	)
	if err != nil {
		panic(fmt.Errorf("cannot allocate %d bytes via mmap: %w", size, err))
	}
	return c
}

// numFree returns the number of free chunks in the size class holding size bytes.
// It is primarily intended as helper method in tests.
func (p *ChunkPool) numFree(size int) int {
	ci := classIndex(size)
	if ci == -1 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free[ci])
}

// releaseChunks is a generic helper that trims the free list if it exceeds the given threshold.
// It returns the updated list and a list of any chunks that were removed and should be unmapped.
func releaseChunks[P any](freeList []P, threshold int) (newList []P, toUnmap []P) {
	if threshold > 0 && len(freeList) > threshold {
		// Release half of the free chunks to prevent thrashing around the threshold.
		freeCount := len(freeList) / 2
		toUnmap = append([]P(nil), freeList[:freeCount]...)
		newList = append(freeList[:0], freeList[freeCount:]...)
		return newList, toUnmap
	}
	return freeList, nil
}
