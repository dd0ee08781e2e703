package chunkbuf

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	b := New(4)
	if _, err := b.Write([]byte{1, 2, 3, 4, 5}); err != nil {
		t.Fatal(err)
	}
	if got := b.Bytes(); !bytes.Equal(got, []byte{1, 2, 3, 4, 5}) {
		t.Errorf("expected [1 2 3 4 5], got %v", got)
	}
	if b.Len() != 5 {
		t.Errorf("expected length 5, got %d", b.Len())
	}
	if s := b.GetStats(); s.Allocations != 2 {
		t.Errorf("expected a growth event (2 allocations), got %d", s.Allocations)
	}
	if b.IsUnbounded() {
		t.Error("expected a bounded buffer")
	}
	if !NewUnbounded(0).IsUnbounded() {
		t.Error("expected an unbounded buffer")
	}
}

func TestReadFromSource(t *testing.T) {
	b := New(128)
	src := strings.Repeat("x", 300)
	n, err := io.Copy(b, strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if n != 300 || b.Len() != 300 || len(b.Bytes()) != 300 {
		t.Errorf("expected 300 bytes, got n=%d length=%d", n, b.Len())
	}

	var sink bytes.Buffer
	if _, err := b.WriteTo(&sink); err != nil {
		t.Fatal(err)
	}
	if sink.String() != src {
		t.Error("streamed content mismatch")
	}
}

func TestCustom(t *testing.T) {
	t.Run("Invalid config", func(t *testing.T) {
		_, err := Custom(HeapAllocator{}, Config{InitialCapacity: -1})
		if err == nil {
			t.Fatal("expected an error for an invalid config, but got nil")
		}
		if _, err := NewPool(Config{MaxChunkSize: -1}, 0); err == nil {
			t.Fatal("expected an error for an invalid pool config, but got nil")
		}
	})

	t.Run("Max chunk size", func(t *testing.T) {
		b, err := Custom(HeapAllocator{}, Config{InitialCapacity: 128, MaxChunkSize: 256})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := b.Write(make([]byte, 1000)); err != nil {
			t.Fatal(err)
		}
		if s := b.GetStats(); s.Chunks != 5 {
			// 128 + 256 + 256 + 256 + 256.
			t.Errorf("expected 5 chunks, got %d", s.Chunks)
		}
	})
}

func TestNewOffHeap(t *testing.T) {
	b, err := NewOffHeap(0, false)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Release()
	if _, err := b.WriteString("off-heap"); err != nil {
		t.Fatal(err)
	}
	if string(b.Bytes()) != "off-heap" {
		t.Errorf("expected %q, got %q", "off-heap", b.Bytes())
	}
}

func TestPool(t *testing.T) {
	p, err := NewPool(Config{InitialCapacity: 256}, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := range 3 {
		b := p.Get()
		if b.Len() != 0 {
			t.Fatalf("round %d: expected an empty buffer, got length %d", i, b.Len())
		}
		if err := b.WriteUint32(uint32(i)); err != nil {
			t.Fatal(err)
		}
		if got := b.Bytes(); !bytes.Equal(got, []byte{0, 0, 0, byte(i)}) {
			t.Errorf("round %d: unexpected content %v", i, got)
		}
		p.Put(b)
	}
}

func TestErrorsAreExported(t *testing.T) {
	b := New(4)
	if err := b.WriteRange([]byte{1}, 0, 2); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("expected %v, got %v", ErrInvalidRange, err)
	}
	c := NewContiguous(4)
	if err := c.WriteRange([]byte{1}, 2, 0); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("expected %v, got %v", ErrInvalidRange, err)
	}
}
