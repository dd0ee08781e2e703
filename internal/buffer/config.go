package buffer

import (
	"errors"
	"fmt"
)

type Config struct {
	// InitialCapacity is the size of the first chunk, in bytes.
	// Zero selects DefaultInitialCapacity.
	InitialCapacity int

	// Unbounded lifts the 32-bit limit on the buffer's logical size.
	// A bounded buffer rejects any write that would grow it past MaxBoundedSize.
	Unbounded bool

	// MaxChunkSize is the largest single chunk the growth policy will allocate.
	// Writes larger than this span several chunks.
	MaxChunkSize int
}

func (c Config) Validate() error {
	var errs []error
	if c.InitialCapacity < 0 {
		errs = append(errs, fmt.Errorf("invalid config: negative initial capacity %d", c.InitialCapacity))
	}
	if c.MaxChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("invalid config: max chunk size %d must be positive", c.MaxChunkSize))
	}
	if !c.Unbounded && c.MaxChunkSize > MaxBoundedSize {
		errs = append(errs, errors.New("invalid config: max chunk size exceeds the bounded size limit"))
	}
	return errors.Join(errs...)
}

func DefaultConfig() Config {
	return Config{
		InitialCapacity: DefaultInitialCapacity,
		Unbounded:       false,
		MaxChunkSize:    DefaultMaxChunkSize,
	}
}
