// Package buffer implements write-only, growable byte buffers used to assemble
// payloads before they are flattened into a single slice or streamed to a writer.
package buffer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

var (
	ErrCapacityExceeded = errors.New("buffer capacity exceeded")
	ErrInvalidRange     = errors.New("invalid range")

	errInvalidRead = errors.New("reader returned an invalid count")
)

// emptyBytes is returned for every flattened empty buffer.
var emptyBytes = []byte{}

// Stats represents buffer stats.
type Stats struct {
	Chunks      int    // Number of chunks held, including recycled ones past the write position.
	Allocations uint64 // Number of chunks requested from the allocator.
	Recycles    uint64 // Number of times a previously allocated chunk was reused after a reset.
}

// Chunked is a write-only buffer that stores its bytes in a list of chunks.
//
// When the active chunk is full the buffer moves on to the next chunk instead
// of copying its contents into a larger array. Chunks are never resized or
// moved, so the cost of growing is a single allocation. A Reset keeps every
// chunk and revisits them in order, so a buffer that is reused for many payloads
// of similar size stops allocating after the first one.
//
// A Chunked buffer is either bounded, where its logical size never passes
// MaxBoundedSize, or unbounded, where its size is only tracked as an int64.
//
// It is not safe for concurrent use.
type Chunked[A Allocator] struct {
	logger *slog.Logger
	alloc  A
	policy growthPolicy
	chunks [][]byte // Allocated chunks. Never shrinks except on Release.

	active   int   // Index of the chunk receiving the next byte.
	filled   int64 // Total capacity of the chunks before the active chunk.
	size     int64 // Logical size in bytes.
	capacity int64 // Total capacity of all chunks.

	unbounded  bool
	stats      Stats
	scratchBuf [binary.MaxVarintLen64]byte // Reusable buffer for encoding primitives.
}

// NewChunked creates a new, empty buffer and allocates its initial chunk.
// It panics if the config is invalid.
func NewChunked[A Allocator](alloc A, logger *slog.Logger, config Config) *Chunked[A] {
	if err := config.Validate(); err != nil {
		panic(err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	b := &Chunked[A]{
		logger:    logger,
		alloc:     alloc,
		policy:    newGrowthPolicy(config),
		unbounded: config.Unbounded,
	}
	size, err := b.policy.first(0)
	if err != nil {
		panic(err)
	}
	b.appendChunk(size)
	return b
}

// IsUnbounded reports whether the buffer may grow past MaxBoundedSize.
func (b *Chunked[A]) IsUnbounded() bool {
	return b.unbounded
}

// Len returns the number of bytes written.
// It panics with ErrCapacityExceeded if the size does not fit in 32 bits;
// use LenWide for unbounded buffers.
func (b *Chunked[A]) Len() int {
	return mustFit("size", b.size)
}

// Cap returns the total capacity of all allocated chunks.
// It panics with ErrCapacityExceeded if the capacity does not fit in 32 bits;
// use CapWide for unbounded buffers.
func (b *Chunked[A]) Cap() int {
	return mustFit("capacity", b.capacity)
}

// LenWide returns the number of bytes written.
func (b *Chunked[A]) LenWide() int64 {
	return b.size
}

// CapWide returns the total capacity of all allocated chunks.
func (b *Chunked[A]) CapWide() int64 {
	return b.capacity
}

// GetStats returns the buffer's stats.
func (b *Chunked[A]) GetStats() Stats {
	s := b.stats
	s.Chunks = len(b.chunks)
	return s
}

// Reset empties the buffer without releasing any chunks.
// Subsequent writes reuse the allocated chunks in order.
func (b *Chunked[A]) Reset() {
	b.active = 0
	b.filled = 0
	b.size = 0
}

// Release empties the buffer and returns all chunks to the allocator.
// The next write allocates a new initial chunk.
func (b *Chunked[A]) Release() {
	for i, c := range b.chunks {
		b.alloc.Free(c)
		b.chunks[i] = nil
	}
	b.chunks = b.chunks[:0]
	b.capacity = 0
	b.Reset()
}

// WriteByte appends the byte c to the buffer, growing the buffer as needed.
// It implements the [io.ByteWriter] interface.
func (b *Chunked[A]) WriteByte(c byte) error {
	if err := b.checkLimit(1); err != nil {
		return err
	}
	if b.available() == 0 {
		if err := b.grow(b.size + 1); err != nil {
			return err
		}
	}
	b.chunks[b.active][b.size-b.filled] = c
	b.size++
	return nil
}

// Write appends the contents of p to the buffer, growing the buffer as needed.
// It implements the [io.Writer] interface.
//
// If p does not fit within the buffer's size limit nothing is written and the
// error is ErrCapacityExceeded.
func (b *Chunked[A]) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := b.checkLimit(len(p)); err != nil {
		return 0, err
	}
	return writeChunks(b, p)
}

// WriteRange appends n bytes of src starting at off.
// The range is validated before anything is written; the error is
// ErrInvalidRange if it does not lie within src.
func (b *Chunked[A]) WriteRange(src []byte, off int, n int) error {
	if err := checkRange(len(src), off, n); err != nil {
		return err
	}
	_, err := b.Write(src[off : off+n])
	return err
}

// WriteString appends the contents of s to the buffer.
// It implements the [io.StringWriter] interface.
func (b *Chunked[A]) WriteString(s string) (n int, err error) {
	if err := b.checkLimit(len(s)); err != nil {
		return 0, err
	}
	return writeChunks(b, s)
}

// WriteUint16 appends v in big-endian order.
func (b *Chunked[A]) WriteUint16(v uint16) error {
	binary.BigEndian.PutUint16(b.scratchBuf[:2], v)
	_, err := b.Write(b.scratchBuf[:2])
	return err
}

// WriteUint32 appends v in big-endian order.
func (b *Chunked[A]) WriteUint32(v uint32) error {
	binary.BigEndian.PutUint32(b.scratchBuf[:4], v)
	_, err := b.Write(b.scratchBuf[:4])
	return err
}

// WriteUint64 appends v in big-endian order.
func (b *Chunked[A]) WriteUint64(v uint64) error {
	binary.BigEndian.PutUint64(b.scratchBuf[:8], v)
	_, err := b.Write(b.scratchBuf[:8])
	return err
}

// WriteUvarint appends v as an unsigned varint and returns the encoded length.
func (b *Chunked[A]) WriteUvarint(v uint64) (n int, err error) {
	n = binary.PutUvarint(b.scratchBuf[:], v)
	return b.Write(b.scratchBuf[:n])
}

// ReadFrom reads data from r until EOF directly into the buffer's chunks,
// growing the buffer as needed. It implements the [io.ReaderFrom] interface.
//
// The return value n is the number of bytes read. Any error except [io.EOF]
// encountered during the read is returned; the bytes read before the error
// remain in the buffer. A bounded buffer returns ErrCapacityExceeded once it
// is full and r has not reached EOF.
func (b *Chunked[A]) ReadFrom(r io.Reader) (n int64, err error) {
	for {
		if b.available() == 0 {
			if err := b.grow(b.size + 1); err != nil {
				return n, checkEOF(r, b.scratchBuf[:1], err)
			}
		}
		p := b.chunks[b.active][b.size-b.filled:]
		m, err := r.Read(p)
		if m < 0 || m > len(p) {
			panic(errInvalidRead)
		}
		b.size += int64(m)
		n += int64(m)
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
	}
}

// WriteTo writes the buffer's contents to w, chunk by chunk, without
// flattening them. It implements the [io.WriterTo] interface.
// The buffer is not modified.
func (b *Chunked[A]) WriteTo(w io.Writer) (n int64, err error) {
	remaining := b.size
	for _, c := range b.chunks {
		if remaining == 0 {
			break
		}
		k := min(int64(len(c)), remaining)
		m, err := w.Write(c[:k])
		n += int64(m)
		if err != nil {
			return n, err
		}
		if int64(m) != k {
			return n, io.ErrShortWrite
		}
		remaining -= k
	}
	return n, nil
}

// Bytes returns a copy of the buffer's contents in a single slice.
// An empty buffer returns a shared, zero-length slice without allocating.
// It panics with ErrCapacityExceeded if the contents do not fit in a slice.
func (b *Chunked[A]) Bytes() []byte {
	if b.size == 0 {
		return emptyBytes
	}
	if b.size > math.MaxInt {
		panic(fmt.Errorf("%w: size %d does not fit in a slice", ErrCapacityExceeded, b.size))
	}
	out := make([]byte, b.size)
	off := 0
	for _, c := range b.chunks {
		if off == len(out) {
			break
		}
		off += copy(out[off:], c)
	}
	return out
}

// Sum64 returns the xxhash checksum of the buffer's contents.
func (b *Chunked[A]) Sum64() uint64 {
	d := xxhash.New()
	b.WriteTo(d) // Digest writes never fail.
	return d.Sum64()
}

// Digest returns the BLAKE3-256 digest of the buffer's contents.
func (b *Chunked[A]) Digest() (sum [32]byte) {
	h := blake3.New()
	b.WriteTo(h) // Hasher writes never fail.
	h.Sum(sum[:0])
	return sum
}

// available returns the number of free bytes in the active chunk.
func (b *Chunked[A]) available() int {
	if len(b.chunks) == 0 {
		return 0
	}
	return len(b.chunks[b.active]) - int(b.size-b.filled)
}

// checkLimit returns ErrCapacityExceeded if n more bytes would pass the size limit.
func (b *Chunked[A]) checkLimit(n int) error {
	if int64(n) > b.policy.limit-b.size {
		b.logger.Warn("rejected write past buffer limit",
			"size", b.size,
			"write", n,
			"limit", b.policy.limit,
		)
		return fmt.Errorf("%w: cannot write %d bytes to a buffer of %d bytes with limit %d",
			ErrCapacityExceeded, n, b.size, b.policy.limit)
	}
	return nil
}

// grow makes the chunk after the active chunk active, allocating it if needed.
// newCount is the logical size the current write is about to reach.
// It assumes the active chunk is full.
func (b *Chunked[A]) grow(newCount int64) error {
	if len(b.chunks) == 0 {
		size, err := b.policy.first(newCount)
		if err != nil {
			return err
		}
		b.appendChunk(size)
		return nil
	}

	base := b.filled + int64(len(b.chunks[b.active]))
	if b.active+1 < len(b.chunks) {
		// Recycle a chunk from before the last reset.
		b.active++
		b.filled = base
		b.stats.Recycles++
		return nil
	}

	size, err := b.policy.next(len(b.chunks[b.active]), base, newCount)
	if err != nil {
		return err
	}
	b.appendChunk(size)
	b.active++
	b.filled = base
	return nil
}

// appendChunk allocates a chunk and appends it to the chunk list.
func (b *Chunked[A]) appendChunk(size int) {
	c := b.alloc.Alloc(size)
	if len(c) != size {
		panic(fmt.Errorf("internal error: allocator returned %d bytes, requested %d", len(c), size))
	}
	b.chunks = append(b.chunks, c)
	b.capacity += int64(size)
	b.stats.Allocations++
	b.logger.Debug("allocated chunk",
		"index", len(b.chunks)-1,
		"size", size,
		"capacity", b.capacity,
	)
}

// writeChunks copies p into the buffer, moving on to the next chunk whenever
// the active chunk fills. The caller must have checked the size limit.
func writeChunks[A Allocator, S []byte | string](b *Chunked[A], p S) (n int, err error) {
	newCount := b.size + int64(len(p))
	for len(p) > 0 {
		if b.available() == 0 {
			if err := b.grow(newCount); err != nil {
				return n, err
			}
		}
		m := copy(b.chunks[b.active][b.size-b.filled:], p)
		b.size += int64(m)
		n += m
		p = p[m:]
	}
	return n, nil
}

// checkEOF is called when a full buffer cannot grow while reading from r.
// It reads into the single byte scratch to find out whether r is exhausted:
// it returns nil at EOF, the reader's error if it fails without data, and
// growErr otherwise. A byte read by the check is dropped.
func checkEOF(r io.Reader, scratch []byte, growErr error) error {
	m, err := r.Read(scratch)
	if m == 0 && err == io.EOF {
		return nil
	}
	if m == 0 && err != nil {
		return err
	}
	return growErr
}

// mustFit returns v as an int if it fits in 32 bits, and panics otherwise.
func mustFit(name string, v int64) int {
	if v > MaxBoundedSize {
		panic(fmt.Errorf("%w: %s %d does not fit in 32 bits", ErrCapacityExceeded, name, v))
	}
	return int(v)
}

// checkRange validates that [off, off+n) lies within a slice of length size.
func checkRange(size int, off int, n int) error {
	if off < 0 || n < 0 || off > size || n > size-off {
		return fmt.Errorf("%w: offset %d and length %d out of range for length %d", ErrInvalidRange, off, n, size)
	}
	return nil
}
