package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hupe1980/nerdgo/blobstore"
	"github.com/hupe1980/nerdgo/internal/cache"
	"github.com/hupe1980/nerdgo/internal/manifest"
)

func newRowsCmd(g *globalFlags) *cobra.Command {
	var (
		generation uint64
		cacheSize  int64
		blockSize  int64
	)

	cmd := &cobra.Command{
		Use:   "rows <id>...",
		Short: "Print stored embeddings by entity id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ids := make([]uint32, len(args))
			for i, a := range args {
				id, err := strconv.ParseUint(a, 10, 32)
				if err != nil {
					return fmt.Errorf("invalid id %q: %w", a, err)
				}
				ids[i] = uint32(id)
			}

			inner, err := openStore(ctx, g.store)
			if err != nil {
				return err
			}
			gen, err := manifest.NewStore(inner).LoadVersion(ctx, generation)
			if err != nil {
				return err
			}

			// Remote rows share blocks; the cache keeps repeated reads local.
			lru := cache.NewLRUBlockCache(cacheSize, nil)
			bs := blobstore.NewCachingStore(inner, lru, blockSize)

			type row struct {
				ID     uint32    `json:"id"`
				Vector []float32 `json:"vector"`
			}
			rows := make([]row, 0, len(ids))
			for _, id := range ids {
				vec, err := readRow(ctx, bs, gen, id)
				if err != nil {
					return err
				}
				rows = append(rows, row{ID: id, Vector: vec})
			}

			out := cmd.OutOrStdout()
			if g.json {
				return writeJSON(out, rows)
			}
			for _, r := range rows {
				parts := make([]string, len(r.Vector))
				for i, v := range r.Vector {
					parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
				}
				fmt.Fprintf(out, "%d\t%s\n", r.ID, strings.Join(parts, ","))
			}
			hits, misses := lru.Stats()
			g.logger().Debug("row cache", "hits", hits, "misses", misses, "cached", humanize.IBytes(uint64(lru.Size())))
			return nil
		},
	}
	cmd.Flags().Uint64Var(&generation, "generation", 0, "Generation to read (0 = current)")
	cmd.Flags().Int64Var(&cacheSize, "cache-size", 64<<20, "Block cache capacity in bytes")
	cmd.Flags().Int64Var(&blockSize, "block-size", 1<<20, "Block size in bytes")
	return cmd
}
