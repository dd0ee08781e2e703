package chunkbuf

import (
	"fmt"
	"testing"
)

// go test -bench=. -benchmem .

// payloadSizes spans payloads that fit the first chunk up to ones needing many chunks.
var payloadSizes = []int{4 * KiB, 256 * KiB, 16 * MiB}

const benchWriteSize = 512

type benchBuffer interface {
	Write(p []byte) (int, error)
	Bytes() []byte
	Reset()
}

// buildFlattenReset simulates a workload where one buffer is reused
// to assemble, flatten and discard a payload per iteration.
func buildFlattenReset(b *testing.B, buf benchBuffer, size int) {
	chunk := make([]byte, benchWriteSize)
	b.SetBytes(int64(size))
	b.ReportAllocs()
	for b.Loop() {
		buf.Reset()
		for written := 0; written < size; written += benchWriteSize {
			if _, err := buf.Write(chunk); err != nil {
				b.Fatal(err)
			}
		}
		if len(buf.Bytes()) != size {
			b.Fatal("unexpected payload size")
		}
	}
}

func BenchmarkChunkedBuildFlattenReset(b *testing.B) {
	for _, size := range payloadSizes {
		b.Run(fmt.Sprintf("size=%d", size), func(b *testing.B) {
			buildFlattenReset(b, New(0), size)
		})
	}
}

func BenchmarkContiguousBuildFlattenReset(b *testing.B) {
	for _, size := range payloadSizes {
		b.Run(fmt.Sprintf("size=%d", size), func(b *testing.B) {
			buildFlattenReset(b, NewContiguous(0), size)
		})
	}
}

// BenchmarkChunkedGrowth measures building a payload in a fresh buffer,
// which is where the chunked buffer avoids copying on growth.
func BenchmarkChunkedGrowth(b *testing.B) {
	chunk := make([]byte, benchWriteSize)
	for _, size := range payloadSizes {
		b.Run(fmt.Sprintf("size=%d", size), func(b *testing.B) {
			b.SetBytes(int64(size))
			b.ReportAllocs()
			for b.Loop() {
				buf := New(0)
				for written := 0; written < size; written += benchWriteSize {
					buf.Write(chunk)
				}
			}
		})
	}
}

func BenchmarkContiguousGrowth(b *testing.B) {
	chunk := make([]byte, benchWriteSize)
	for _, size := range payloadSizes {
		b.Run(fmt.Sprintf("size=%d", size), func(b *testing.B) {
			b.SetBytes(int64(size))
			b.ReportAllocs()
			for b.Loop() {
				buf := NewContiguous(0)
				for written := 0; written < size; written += benchWriteSize {
					buf.Write(chunk)
				}
			}
		})
	}
}

func BenchmarkOffHeapGrowth(b *testing.B) {
	chunk := make([]byte, benchWriteSize)
	size := 16 * MiB
	b.SetBytes(int64(size))
	b.ReportAllocs()
	for b.Loop() {
		buf, err := NewOffHeap(0, false)
		if err != nil {
			b.Fatal(err)
		}
		for written := 0; written < size; written += benchWriteSize {
			buf.Write(chunk)
		}
		buf.Release()
	}
}
