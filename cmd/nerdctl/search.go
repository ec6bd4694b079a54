package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/nerdgo"
	"github.com/hupe1980/nerdgo/blobstore"
	"github.com/hupe1980/nerdgo/distance"
	"github.com/hupe1980/nerdgo/embedding"
	"github.com/hupe1980/nerdgo/internal/manifest"
)

type searchFlags struct {
	vector      string
	normalize   bool
	like        int64
	k           int
	temperature float64
	types       []string
	generation  uint64
	parallelism int
}

func newSearchCmd(g *globalFlags) *cobra.Command {
	f := &searchFlags{like: -1}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Predict the entities closest to a query vector",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg := g.cfg
			if cmd.Flags().Changed("temperature") {
				cfg.Temperature = f.temperature
			}

			bs, err := openStore(ctx, g.store)
			if err != nil {
				return err
			}
			gen, err := manifest.NewStore(bs).LoadVersion(ctx, f.generation)
			if err != nil {
				return err
			}
			// The stored generation decides the width.
			cfg.Dim = gen.Dim

			query, err := queryVector(ctx, bs, gen, f)
			if err != nil {
				return err
			}

			metrics := &nerdgo.BasicMetricsCollector{}
			svc, err := nerdgo.Init(ctx, cfg,
				nerdgo.WithBlobStore(bs),
				nerdgo.WithGeneration(gen.ID),
				nerdgo.WithParallelism(f.parallelism),
				nerdgo.WithLogger(g.logger()),
				nerdgo.WithMetricsCollector(metrics),
			)
			if err != nil {
				return err
			}
			defer svc.Close()

			var opts []nerdgo.PredictOption
			if len(f.types) > 0 {
				opts = append(opts, nerdgo.WithTypes(f.types...))
			}
			preds, err := svc.Predict(ctx, query, f.k, opts...)
			if err != nil {
				return err
			}

			if g.json {
				return writeJSON(cmd.OutOrStdout(), preds)
			}
			printPredictions(cmd.OutOrStdout(), preds)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.vector, "vector", "", "Query vector (comma-separated)")
	cmd.Flags().Int64Var(&f.like, "like", -1, "Use the embedding of this entity id as the query")
	cmd.Flags().BoolVar(&f.normalize, "normalize", false, "L2-normalize the --vector query")
	cmd.Flags().IntVarP(&f.k, "top-k", "k", 0, "Number of candidates (0 = configured top-k)")
	cmd.Flags().Float64Var(&f.temperature, "temperature", 0, "Softmax temperature (default from configuration)")
	cmd.Flags().StringSliceVar(&f.types, "types", nil, "Only return entities with any of these types")
	cmd.Flags().Uint64Var(&f.generation, "generation", 0, "Generation to query (0 = current)")
	cmd.Flags().IntVar(&f.parallelism, "parallelism", 0, "Scan workers (0 = configured)")
	cmd.MarkFlagsOneRequired("vector", "like")
	cmd.MarkFlagsMutuallyExclusive("vector", "like")
	return cmd
}

func queryVector(ctx context.Context, bs blobstore.BlobStore, gen *manifest.Manifest, f *searchFlags) ([]float32, error) {
	if f.like >= 0 {
		if f.like > math.MaxUint32 {
			return nil, fmt.Errorf("--like %d: entity ids are 32-bit", f.like)
		}
		return readRow(ctx, bs, gen, uint32(f.like))
	}
	vec, err := parseVector(f.vector)
	if err != nil || !f.normalize {
		return vec, err
	}
	unit, ok := distance.NormalizeL2Copy(vec)
	if !ok {
		return nil, fmt.Errorf("cannot normalize a zero query vector")
	}
	return unit, nil
}

// readRow fetches one row of a generation without loading the matrix.
func readRow(ctx context.Context, bs blobstore.BlobStore, gen *manifest.Manifest, id uint32) ([]float32, error) {
	blob, err := bs.Open(ctx, gen.EmbeddingsPath)
	if err != nil {
		return nil, err
	}
	r, err := embedding.NewReader(ctx, blob, gen.Dim)
	if err != nil {
		_ = blob.Close()
		return nil, err
	}
	defer r.Close()
	return r.Row(ctx, id)
}

func parseVector(s string) ([]float32, error) {
	parts := strings.Split(s, ",")
	vec := make([]float32, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector format: %w", err)
		}
		vec = append(vec, float32(v))
	}
	return vec, nil
}

func printPredictions(w io.Writer, preds []nerdgo.Prediction) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSCORE\tPROB\tTITLE\tTYPES")
	for _, p := range preds {
		fmt.Fprintf(tw, "%d\t%.4f\t%.4f\t%s\t%s\n", p.EntityID, p.Score, p.Probability, p.Title, strings.Join(p.Types, ","))
	}
	_ = tw.Flush()
}
