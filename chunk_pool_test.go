package chunkbuf

import (
	"bytes"
	"testing"
)

var TestChunkPoolConfig = ChunkPoolConfig{
	FreeThresholds: [numSizeClasses]int{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10},
}

func TestChunkPool(t *testing.T) {
	t.Run("Alloc and Free single chunk for each size class", func(t *testing.T) {
		pool := NewChunkPool(TestChunkPoolConfig)
		for _, size := range pool.Sizes() {
			if numFree := pool.numFree(size); numFree != 0 {
				t.Fatalf("expected new pool for size %d to be empty, got %d chunks", size, numFree)
			}
		}

		for _, size := range pool.Sizes() {
			chunk := pool.Alloc(size)
			if len(chunk) != size || cap(chunk) != size {
				t.Errorf("expected for size %d: len/cap %d, got len=%d, cap=%d", size, size, len(chunk), cap(chunk))
			}
			chunk[0], chunk[size-1] = 1, 2 // Mapped memory is writable.
			pool.Free(chunk)
		}

		for _, size := range pool.Sizes() {
			if numFree := pool.numFree(size); numFree != 1 {
				t.Fatalf("expected for size %d: 1 free chunk after Free, got %d", size, numFree)
			}
		}
	})

	t.Run("Alloc rounds up to the size class and recycles", func(t *testing.T) {
		pool := NewChunkPool(TestChunkPoolConfig)
		chunk := pool.Alloc(minPooledSize + 1)
		if len(chunk) != minPooledSize+1 || cap(chunk) != 2*minPooledSize {
			t.Fatalf("expected len %d and cap %d, got len=%d, cap=%d",
				minPooledSize+1, 2*minPooledSize, len(chunk), cap(chunk))
		}
		pool.Free(chunk)
		if numFree := pool.numFree(2 * minPooledSize); numFree != 1 {
			t.Fatalf("expected 1 free chunk, got %d", numFree)
		}
		again := pool.Alloc(2 * minPooledSize)
		if &again[0] != &chunk[0] {
			t.Error("expected the free chunk to be recycled")
		}
		if numFree := pool.numFree(2 * minPooledSize); numFree != 0 {
			t.Errorf("expected no free chunks, got %d", numFree)
		}
		pool.Free(again)
	})

	t.Run("Small chunks come from the heap", func(t *testing.T) {
		pool := NewChunkPool(TestChunkPoolConfig)
		chunk := pool.Alloc(128)
		if len(chunk) != 128 {
			t.Fatalf("expected len 128, got %d", len(chunk))
		}
		pool.Free(chunk)
		for _, size := range pool.Sizes() {
			if numFree := pool.numFree(size); numFree != 0 {
				t.Fatalf("expected pool for size %d to be empty, got %d chunks", size, numFree)
			}
		}
	})

	t.Run("Oversized chunks are not pooled", func(t *testing.T) {
		pool := NewChunkPool(TestChunkPoolConfig)
		chunk := pool.Alloc(maxPooledSize + 1)
		if len(chunk) != maxPooledSize+1 {
			t.Fatalf("expected len %d, got %d", maxPooledSize+1, len(chunk))
		}
		pool.Free(chunk)
		if numFree := pool.numFree(maxPooledSize); numFree != 0 {
			t.Fatalf("expected no free chunks, got %d", numFree)
		}
	})

	t.Run("Free nil does not panic or add to pool", func(t *testing.T) {
		pool := NewChunkPool(TestChunkPoolConfig)
		pool.Free(nil) // This should be a no-op and should not cause a panic.
		for _, size := range pool.Sizes() {
			if numFree := pool.numFree(size); numFree != 0 {
				t.Fatalf("expected new pool for size %d to be empty, got %d chunks", size, numFree)
			}
		}
	})

	t.Run("Free releases chunks past the threshold", func(t *testing.T) {
		config := ChunkPoolConfig{}
		config.FreeThresholds[0] = 4
		pool := NewChunkPool(config)
		chunks := make([][]byte, 5)
		for i := range chunks {
			chunks[i] = pool.Alloc(minPooledSize)
		}
		for _, c := range chunks {
			pool.Free(c)
		}
		// The fifth free crosses the threshold and releases half of the list.
		if numFree := pool.numFree(minPooledSize); numFree != 3 {
			t.Fatalf("expected 3 free chunks, got %d", numFree)
		}
	})

	t.Run("Allocate pre-warms the pool", func(t *testing.T) {
		pool := NewChunkPool(TestChunkPoolConfig)
		pool.Allocate(minPooledSize, 3)
		if numFree := pool.numFree(minPooledSize); numFree != 3 {
			t.Fatalf("expected 3 free chunks, got %d", numFree)
		}
		pool.Allocate(minPooledSize, 2)
		if numFree := pool.numFree(minPooledSize); numFree != 3 {
			t.Fatalf("expected 3 free chunks to be kept, got %d", numFree)
		}
	})
}

func TestOffHeapBuffer(t *testing.T) {
	pool := NewChunkPool(TestChunkPoolConfig)
	b, err := Custom(pool, Config{InitialCapacity: minPooledSize})
	if err != nil {
		t.Fatal(err)
	}
	data := make([]byte, 3*MiB)
	for i := range data {
		data[i] = byte(i % 251)
	}
	if _, err := b.Write(data); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b.Bytes(), data) {
		t.Fatal("buffer content mismatch")
	}

	chunks := b.GetStats().Chunks
	b.Release()
	free := 0
	for _, size := range pool.Sizes() {
		free += pool.numFree(size)
	}
	if free != chunks {
		t.Errorf("expected %d chunks returned to the pool, got %d", chunks, free)
	}
}
