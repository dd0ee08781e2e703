package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/cobra"

	"github.com/holmberd/go-chunkbuf"
)

// payloadWriter is the write surface shared by the chunked and contiguous buffers.
type payloadWriter interface {
	io.Writer
	Bytes() []byte
	Reset()
}

type benchResult struct {
	name     string
	elapsed  time.Duration
	allocs   uint64
	bytes    uint64
	checksum uint64
}

func benchCmd() *cobra.Command {
	var (
		size      int
		rounds    int
		writeSize int
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Compare the chunked and contiguous buffers",
		Long: `Builds a payload of --size bytes in writes of --write bytes, flattens it
and resets the buffer, --rounds times per buffer kind.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if size <= 0 || rounds <= 0 || writeSize <= 0 {
				return fmt.Errorf("size, rounds and write must be positive")
			}
			if size > chunkbuf.MaxBoundedSize {
				return fmt.Errorf("size %d exceeds the bounded size limit %d", size, chunkbuf.MaxBoundedSize)
			}
			chunk := make([]byte, writeSize)
			for i := range chunk {
				chunk[i] = byte(i)
			}

			chunked := chunkbuf.New(0)
			results := []benchResult{
				runBench("chunked", chunked, chunk, size, rounds),
				runBench("contiguous", chunkbuf.NewContiguous(0), chunk, size, rounds),
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "BUFFER\tTIME/ROUND\tALLOCS/ROUND\tBYTES/ROUND\tXXHASH")
			for _, r := range results {
				n := uint64(rounds)
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%016x\n",
					r.name, r.elapsed/time.Duration(rounds), r.allocs/n, r.bytes/n, r.checksum)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			stats := chunked.GetStats()
			fmt.Printf("chunked: %d chunks, %d allocations, %d recycles\n",
				stats.Chunks, stats.Allocations, stats.Recycles)
			return nil
		},
	}

	cmd.Flags().IntVarP(&size, "size", "s", 4*chunkbuf.MiB, "Payload size in bytes")
	cmd.Flags().IntVarP(&rounds, "rounds", "r", 100, "Number of build, flatten and reset rounds")
	cmd.Flags().IntVarP(&writeSize, "write", "w", 512, "Size of each write in bytes")

	return cmd
}

func runBench(name string, b payloadWriter, chunk []byte, size int, rounds int) benchResult {
	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	start := time.Now()

	var out []byte
	for range rounds {
		b.Reset()
		for written := 0; written < size; {
			n := min(len(chunk), size-written)
			if _, err := b.Write(chunk[:n]); err != nil {
				panic(err)
			}
			written += n
		}
		out = b.Bytes()
	}

	elapsed := time.Since(start)
	runtime.ReadMemStats(&after)
	return benchResult{
		name:     name,
		elapsed:  elapsed,
		allocs:   after.Mallocs - before.Mallocs,
		bytes:    after.TotalAlloc - before.TotalAlloc,
		checksum: xxhash.Sum64(out),
	}
}
