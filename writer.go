package chunkbuf

import (
	"io"

	"github.com/holmberd/go-chunkbuf/internal/buffer"
)

const DefaultWriterSize = 4 * KiB

// Writer batches small writes to an underlying [io.Writer].
//
// Writes smaller than the batch size are collected and written to the
// underlying writer in one call when the batch is full or on Flush. Larger
// writes flush the batch and go straight to the underlying writer.
//
// If an error occurs writing to the underlying writer, no more data is accepted
// and all subsequent writes and Flush return the error. Call Flush when done.
type Writer struct {
	w    io.Writer
	buf  *buffer.Contiguous
	size int
	err  error
}

// NewWriter returns a Writer that batches writes smaller than size bytes.
// A size <= 0 selects DefaultWriterSize.
func NewWriter(w io.Writer, size int) *Writer {
	if size <= 0 {
		size = DefaultWriterSize
	}
	return &Writer{
		w:    w,
		buf:  buffer.NewContiguous(size),
		size: size,
	}
}

// Buffered returns the number of bytes waiting to be flushed.
func (w *Writer) Buffered() int {
	return w.buf.Len()
}

// Available returns how many bytes fit in the batch before it is flushed.
func (w *Writer) Available() int {
	return w.size - w.buf.Len()
}

// Reset discards any unflushed data, clears any error, and makes w write to dst.
func (w *Writer) Reset(dst io.Writer) {
	w.buf.Reset()
	w.err = nil
	w.w = dst
}

// Write writes the contents of p. It implements the [io.Writer] interface.
func (w *Writer) Write(p []byte) (n int, err error) {
	if w.err != nil {
		return 0, w.err
	}
	if len(p) > w.Available() {
		if err := w.Flush(); err != nil {
			return 0, err
		}
	}
	if len(p) >= w.size {
		// Too large to batch.
		n, err = w.w.Write(p)
		if err == nil && n < len(p) {
			err = io.ErrShortWrite
		}
		w.err = err
		return n, err
	}
	return w.buf.Write(p)
}

// WriteByte writes a single byte. It implements the [io.ByteWriter] interface.
func (w *Writer) WriteByte(c byte) error {
	if w.err != nil {
		return w.err
	}
	if w.Available() == 0 {
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return w.buf.WriteByte(c)
}

// WriteString writes the contents of s. It implements the [io.StringWriter] interface.
func (w *Writer) WriteString(s string) (n int, err error) {
	if w.err != nil {
		return 0, w.err
	}
	if len(s) > w.Available() {
		if err := w.Flush(); err != nil {
			return 0, err
		}
	}
	if len(s) >= w.size {
		n, err = io.WriteString(w.w, s)
		if err == nil && n < len(s) {
			err = io.ErrShortWrite
		}
		w.err = err
		return n, err
	}
	return w.buf.WriteString(s)
}

// Flush writes any batched data to the underlying writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if w.buf.Len() == 0 {
		return nil
	}
	p := w.buf.Buffer()
	n, err := w.w.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		w.err = err
		return err
	}
	w.buf.Reset()
	return nil
}
