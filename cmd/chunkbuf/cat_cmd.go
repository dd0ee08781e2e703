package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/holmberd/go-chunkbuf"
)

func catCmd() *cobra.Command {
	var (
		unbounded bool
		initial   int
		offHeap   bool
		sum       bool
	)

	cmd := &cobra.Command{
		Use:   "cat [files...]",
		Short: "Buffer files or stdin and write them to stdout",
		Long: `Reads every file (or stdin when none are given) into a single chunked
buffer, then streams the buffer to stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := chunkbuf.Config{
				InitialCapacity: initial,
				Unbounded:       unbounded,
			}
			if offHeap {
				b, err := chunkbuf.Custom(chunkbuf.DefaultChunkPool(), config)
				if err != nil {
					return err
				}
				defer b.Release()
				return catInto(b, args, sum)
			}
			b, err := chunkbuf.Custom(chunkbuf.HeapAllocator{}, config)
			if err != nil {
				return err
			}
			return catInto(b, args, sum)
		},
	}

	cmd.Flags().BoolVar(&unbounded, "unbounded", false, "Allow input larger than 2GiB")
	cmd.Flags().IntVarP(&initial, "initial", "i", 0, "Initial chunk size in bytes (0 for the default)")
	cmd.Flags().BoolVar(&offHeap, "offheap", false, "Draw chunks from the off-heap chunk pool")
	cmd.Flags().BoolVar(&sum, "sum", false, "Print the size, chunk count and checksums to stderr")

	return cmd
}

func catInto[A chunkbuf.Allocator](b *chunkbuf.Buffer[A], paths []string, sum bool) error {
	if len(paths) == 0 {
		if _, err := b.ReadFrom(os.Stdin); err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
	}
	for _, path := range paths {
		if err := readFile(b, path); err != nil {
			return err
		}
	}

	if _, err := b.WriteTo(os.Stdout); err != nil {
		return fmt.Errorf("writing stdout: %w", err)
	}
	if sum {
		digest := b.Digest()
		fmt.Fprintf(os.Stderr, "size: %d\nchunks: %d\nxxhash: %016x\nblake3: %s\n",
			b.LenWide(), b.GetStats().Chunks, b.Sum64(), hex.EncodeToString(digest[:]))
	}
	return nil
}

func readFile(r io.ReaderFrom, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := r.ReadFrom(f); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}
