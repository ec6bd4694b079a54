package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hupe1980/nerdgo/catalog"
	"github.com/hupe1980/nerdgo/embedding"
	"github.com/hupe1980/nerdgo/merge"
)

type mergeFlags struct {
	catalogPath    string
	catalogNewPath string
	datasetPath    string
	dim            int
	embeddings1    string
	embeddings2    string
	embeddingsNew  string
	layout         string
	compression    string
}

// newMergeCmd merges files in place of a generation store: an existing
// (matrix, catalog) pair plus a new matrix and its extraction lines give a
// new pair under new paths.
func newMergeCmd(g *globalFlags) *cobra.Command {
	f := &mergeFlags{}

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge an extraction batch into an embedding file and catalog snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMerge(cmd, g, f)
		},
	}

	cmd.Flags().StringVar(&f.catalogPath, "entity-catalog", "", "Existing catalog snapshot (empty starts a new catalog)")
	cmd.Flags().StringVar(&f.catalogNewPath, "entity-catalog-new", "", "Output catalog snapshot")
	cmd.Flags().StringVar(&f.datasetPath, "entity-dataset", "", "JSON-lines extraction output for the new entities")
	cmd.Flags().IntVar(&f.dim, "embeddings-dim", 768, "Embedding width")
	cmd.Flags().StringVar(&f.embeddings1, "embeddings-1", "", "Existing embedding matrix (empty starts a new matrix)")
	cmd.Flags().StringVar(&f.embeddings2, "embeddings-2", "", "Embedding matrix of the new entities")
	cmd.Flags().StringVar(&f.embeddingsNew, "embeddings-new", "", "Output embedding matrix")
	cmd.Flags().StringVar(&f.layout, "layout", "raw", "Output matrix layout (raw, header; default from store_layout)")
	cmd.Flags().StringVar(&f.compression, "compression", "none", "Catalog compression (none, lz4, zstd)")
	for _, name := range []string{"entity-catalog-new", "entity-dataset", "embeddings-2", "embeddings-new"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func runMerge(cmd *cobra.Command, g *globalFlags, f *mergeFlags) error {
	logger := g.logger()

	layout, err := g.layout(cmd, f.layout)
	if err != nil {
		return err
	}
	compression, err := catalog.ParseCompression(f.compression)
	if err != nil {
		return err
	}
	if err := checkOutputs(
		[]string{f.catalogPath, f.datasetPath, f.embeddings1, f.embeddings2},
		[]string{f.catalogNewPath, f.embeddingsNew},
	); err != nil {
		return err
	}

	base, err := embedding.New(f.dim)
	if err != nil {
		return err
	}
	if f.embeddings1 != "" {
		if base, err = embedding.Load(f.embeddings1, f.dim); err != nil {
			return err
		}
	}
	defer base.Close()

	cat := catalog.New()
	if f.catalogPath != "" {
		if cat, err = catalog.Load(f.catalogPath); err != nil {
			return err
		}
	}
	logger.Info("loaded base", "entities", cat.Len(), "rows", base.Count())

	vectors, err := embedding.Load(f.embeddings2, f.dim)
	if err != nil {
		return err
	}
	defer vectors.Close()

	dataset, err := os.Open(f.datasetPath)
	if err != nil {
		return err
	}
	defer dataset.Close()
	raw, err := catalog.ReadRawEntities(dataset)
	if err != nil {
		return err
	}

	batch, err := merge.PairBatch(vectors, raw)
	if err != nil {
		return err
	}
	res, err := merge.Merge(base, cat, batch)
	if err != nil {
		return err
	}

	if err := embedding.Save(res.Store, f.embeddingsNew, layout); err != nil {
		return err
	}
	if err := catalog.Save(res.Catalog, f.catalogNewPath, catalog.WithCompression(compression)); err != nil {
		_ = os.Remove(f.embeddingsNew)
		return err
	}

	logger.Info("merge written",
		"embeddings", f.embeddingsNew, "catalog", f.catalogNewPath,
		"offset", res.Offset, "added", res.Added, "total", res.Catalog.Len())
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %d x %d embeddings to %s\n", res.Store.Count(), res.Store.Dim(), f.embeddingsNew)
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d entities to %s\n", res.Catalog.Len(), f.catalogNewPath)
	return nil
}

// checkOutputs fails when an output names an input or another output.
func checkOutputs(inputs, outputs []string) error {
	for i, out := range outputs {
		for _, in := range inputs {
			if sameFile(out, in) {
				return fmt.Errorf("output %s would overwrite input %s", out, in)
			}
		}
		for _, other := range outputs[i+1:] {
			if sameFile(out, other) {
				return fmt.Errorf("outputs %s and %s are the same file", out, other)
			}
		}
	}
	return nil
}

func sameFile(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && absA == absB {
		return true
	}
	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	return errA == nil && errB == nil && os.SameFile(infoA, infoB)
}
