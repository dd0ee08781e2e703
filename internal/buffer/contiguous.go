package buffer

import (
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
)

// readFromIncrement is the minimum free space ReadFrom makes available
// before each read.
const readFromIncrement = 8 * KiB

// Contiguous is a write-only buffer backed by a single slice that is copied
// into a larger one when it fills up. Its size is bounded by MaxBoundedSize.
//
// Unlike Chunked it can hand out its contents without copying, see Buffer.
// It is not safe for concurrent use.
type Contiguous struct {
	buf   []byte // Backing slice; len(buf) is the capacity.
	count int    // Number of bytes written.
	limit int    // Maximum size of buf.
}

// NewContiguous creates a new, empty buffer with the given initial capacity.
// A capacity of zero selects DefaultInitialCapacity.
func NewContiguous(initialCapacity int) *Contiguous {
	if initialCapacity < 0 {
		panic(fmt.Errorf("invalid initial capacity %d", initialCapacity))
	}
	if initialCapacity == 0 {
		initialCapacity = DefaultInitialCapacity
	}
	initialCapacity = min(initialCapacity, MaxBoundedSize)
	return &Contiguous{
		buf:   make([]byte, initialCapacity),
		limit: MaxBoundedSize,
	}
}

// Len returns the number of bytes written.
func (b *Contiguous) Len() int {
	return b.count
}

// Cap returns the capacity of the backing slice.
func (b *Contiguous) Cap() int {
	return len(b.buf)
}

// Reset empties the buffer, keeping its backing slice.
func (b *Contiguous) Reset() {
	b.count = 0
}

// Buffer returns the backing slice truncated to the bytes written, without copying.
// The slice aliases the buffer's storage: it is only valid until the next write
// or Reset, and must not be modified.
func (b *Contiguous) Buffer() []byte {
	return b.buf[:b.count]
}

// Bytes returns a copy of the buffer's contents.
// An empty buffer returns a shared, zero-length slice without allocating.
func (b *Contiguous) Bytes() []byte {
	if b.count == 0 {
		return emptyBytes
	}
	out := make([]byte, b.count)
	copy(out, b.buf[:b.count])
	return out
}

// WriteByte appends the byte c to the buffer.
// It implements the [io.ByteWriter] interface.
func (b *Contiguous) WriteByte(c byte) error {
	if err := b.ensure(1); err != nil {
		return err
	}
	b.buf[b.count] = c
	b.count++
	return nil
}

// Write appends the contents of p to the buffer.
// It implements the [io.Writer] interface.
func (b *Contiguous) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := b.ensure(len(p)); err != nil {
		return 0, err
	}
	n = copy(b.buf[b.count:], p)
	b.count += n
	return n, nil
}

// WriteRange appends n bytes of src starting at off.
// The error is ErrInvalidRange if the range does not lie within src.
func (b *Contiguous) WriteRange(src []byte, off int, n int) error {
	if err := checkRange(len(src), off, n); err != nil {
		return err
	}
	_, err := b.Write(src[off : off+n])
	return err
}

// WriteString appends the contents of s to the buffer.
// It implements the [io.StringWriter] interface.
func (b *Contiguous) WriteString(s string) (n int, err error) {
	if err := b.ensure(len(s)); err != nil {
		return 0, err
	}
	n = copy(b.buf[b.count:], s)
	b.count += n
	return n, nil
}

// ReadFrom reads data from r until EOF directly into the backing slice,
// growing it as needed. It implements the [io.ReaderFrom] interface.
//
// Whenever the slice is full it makes room for at least 8KB more, and grows
// like any other write, by doubling its capacity when that is larger. It
// returns ErrCapacityExceeded once the buffer is full at its limit and r has
// not reached EOF; the bytes read before remain in the buffer.
func (b *Contiguous) ReadFrom(r io.Reader) (n int64, err error) {
	var scratch [1]byte
	for {
		if b.count == len(b.buf) {
			if err := b.ensure(min(readFromIncrement, max(b.limit-b.count, 1))); err != nil {
				return n, checkEOF(r, scratch[:], err)
			}
		}
		p := b.buf[b.count:]
		m, err := r.Read(p)
		if m < 0 || m > len(p) {
			panic(errInvalidRead)
		}
		b.count += m
		n += int64(m)
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
	}
}

// WriteTo writes the buffer's contents to w.
// It implements the [io.WriterTo] interface.
func (b *Contiguous) WriteTo(w io.Writer) (n int64, err error) {
	if b.count == 0 {
		return 0, nil
	}
	m, err := w.Write(b.buf[:b.count])
	if err == nil && m != b.count {
		err = io.ErrShortWrite
	}
	return int64(m), err
}

// Sum64 returns the xxhash checksum of the buffer's contents.
func (b *Contiguous) Sum64() uint64 {
	return xxhash.Sum64(b.buf[:b.count])
}

// ensure grows the backing slice so that n more bytes fit.
//
// The new capacity is the larger of double the current capacity and the
// required size, clamped to the limit. The error is ErrCapacityExceeded if
// the required size is above the limit.
func (b *Contiguous) ensure(n int) error {
	if n <= len(b.buf)-b.count {
		return nil
	}
	if n > b.limit-b.count {
		return fmt.Errorf("%w: cannot write %d bytes to a buffer of %d bytes with limit %d",
			ErrCapacityExceeded, n, b.count, b.limit)
	}
	newCap := min(max(2*len(b.buf), b.count+n), b.limit)
	buf := make([]byte, newCap)
	copy(buf, b.buf[:b.count])
	b.buf = buf
	return nil
}
