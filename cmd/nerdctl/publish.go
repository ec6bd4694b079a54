package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/nerdgo/catalog"
	"github.com/hupe1980/nerdgo/internal/manifest"
	"github.com/hupe1980/nerdgo/internal/resource"
	"github.com/hupe1980/nerdgo/merge"
)

type publishFlags struct {
	embeddings  string
	entities    string
	dim         int
	layout      string
	compression string
	ioLimit     int64
	memoryLimit int64
}

func newPublishCmd(g *globalFlags) *cobra.Command {
	f := &publishFlags{}

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Merge an extraction batch into the current generation and publish the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			layout, err := g.layout(cmd, f.layout)
			if err != nil {
				return err
			}
			compression, err := catalog.ParseCompression(f.compression)
			if err != nil {
				return err
			}

			batch, err := merge.ReadBatch(f.embeddings, f.entities, f.dim)
			if err != nil {
				return err
			}

			bs, err := openStore(ctx, g.store)
			if err != nil {
				return err
			}

			rc := resource.NewController(resource.Config{
				MemoryLimitBytes:   f.memoryLimit,
				IOLimitBytesPerSec: f.ioLimit,
			})
			m := merge.NewMerger(bs, manifest.NewStore(bs),
				merge.WithDim(f.dim),
				merge.WithLayout(layout),
				merge.WithCatalogCompression(compression),
				merge.WithResourceController(rc),
				merge.WithLogger(g.logger().Logger),
			)

			gen, err := m.Run(ctx, batch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published generation %d (%d entities, %d new)\n", gen.ID, gen.Count, batch.Len())
			return nil
		},
	}

	cmd.Flags().StringVar(&f.embeddings, "embeddings", "", "Embedding matrix of the new entities")
	cmd.Flags().StringVar(&f.entities, "entities", "", "JSON-lines extraction output for the new entities")
	cmd.Flags().IntVar(&f.dim, "dim", 768, "Embedding width")
	cmd.Flags().StringVar(&f.layout, "layout", "raw", "Matrix layout (raw, header; default from store_layout)")
	cmd.Flags().StringVar(&f.compression, "compression", "zstd", "Catalog compression (none, lz4, zstd)")
	cmd.Flags().Int64Var(&f.ioLimit, "io-limit", 0, "Write limit in bytes per second (0 = unlimited)")
	cmd.Flags().Int64Var(&f.memoryLimit, "memory-limit", 0, "Merge memory limit in bytes (0 = unlimited)")
	_ = cmd.MarkFlagRequired("embeddings")
	_ = cmd.MarkFlagRequired("entities")
	return cmd
}
