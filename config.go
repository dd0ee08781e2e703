package chunkbuf

import (
	"log/slog"

	"github.com/holmberd/go-chunkbuf/internal/buffer"
)

type Config struct {
	InitialCapacity int  // Size of the first chunk; zero selects DefaultInitialCapacity.
	Unbounded       bool // Lift the 32-bit limit on the buffer's size.
	MaxChunkSize    int  // Largest chunk the buffer allocates; zero selects DefaultMaxChunkSize.

	Logger *slog.Logger // Defaults to slog.Default().
}

// build maps the config onto the internal buffer config and validates it.
func (c Config) build() (buffer.Config, error) {
	bConfig := buffer.DefaultConfig()
	bConfig.InitialCapacity = c.InitialCapacity
	bConfig.Unbounded = c.Unbounded
	if c.MaxChunkSize != 0 {
		bConfig.MaxChunkSize = c.MaxChunkSize
	}
	if err := bConfig.Validate(); err != nil {
		return buffer.Config{}, err
	}
	return bConfig, nil
}

type ChunkPoolConfig struct {
	// Number of free chunks for each size class the pool can hold before starting to release memory.
	FreeThresholds [numSizeClasses]int
}

// DefaultChunkPoolConfig returns a config that lets each size class hold
// about 64MB of free chunks, and at least two.
func DefaultChunkPoolConfig() ChunkPoolConfig {
	var c ChunkPoolConfig
	for i, size := range sizeClasses {
		c.FreeThresholds[i] = max(2, 64*MiB/size)
	}
	return c
}
