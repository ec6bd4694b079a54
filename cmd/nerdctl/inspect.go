package main

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/hupe1980/nerdgo/blobstore"
	"github.com/hupe1980/nerdgo/catalog"
	"github.com/hupe1980/nerdgo/internal/manifest"
)

type generationInfo struct {
	*manifest.Manifest
	Current        bool  `json:"current"`
	EmbeddingsSize int64 `json:"embeddings_size"`
	CatalogSize    int64 `json:"catalog_size"`
}

func newInspectCmd(g *globalFlags) *cobra.Command {
	var types int

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List the generations of a store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			bs, err := openStore(ctx, g.store)
			if err != nil {
				return err
			}
			ms := manifest.NewStore(bs)

			versions, err := ms.ListVersions(ctx)
			if err != nil {
				return err
			}
			var currentID uint64
			if cur, err := ms.Load(ctx); err == nil {
				currentID = cur.ID
			}

			infos := make([]generationInfo, 0, len(versions))
			for _, v := range versions {
				infos = append(infos, generationInfo{
					Manifest:       v,
					Current:        v.ID == currentID,
					EmbeddingsSize: blobSize(ctx, bs, v.EmbeddingsPath),
					CatalogSize:    blobSize(ctx, bs, v.CatalogPath),
				})
			}

			out := cmd.OutOrStdout()
			if g.json {
				return writeJSON(out, infos)
			}
			if len(infos) == 0 {
				fmt.Fprintln(out, "No generations published")
				return nil
			}
			printGenerations(out, infos)

			if types > 0 && currentID != 0 {
				cur := versions[slices.IndexFunc(versions, func(m *manifest.Manifest) bool { return m.ID == currentID })]
				cat, err := catalog.Read(ctx, bs, cur.CatalogPath)
				if err != nil {
					return err
				}
				printTypes(out, cat, types)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&types, "types", 0, "Also show the N most frequent entity types of the current generation")
	return cmd
}

func blobSize(ctx context.Context, bs blobstore.BlobStore, name string) int64 {
	b, err := bs.Open(ctx, name)
	if err != nil {
		return -1
	}
	defer b.Close()
	return b.Size()
}

func printGenerations(w io.Writer, infos []generationInfo) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tGEN\tPARENT\tENTITIES\tDIM\tLAYOUT\tEMBEDDINGS\tCATALOG\tCREATED")
	for _, info := range infos {
		marker := ""
		if info.Current {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%d\t%s\t%s\t%s\t%s\n",
			marker, info.ID, info.Parent, humanize.Comma(int64(info.Count)), info.Dim, info.Layout,
			size(info.EmbeddingsSize), size(info.CatalogSize), humanize.Time(info.CreatedAt))
	}
	_ = tw.Flush()
}

func size(n int64) string {
	if n < 0 {
		return "missing"
	}
	return humanize.IBytes(uint64(n))
}

func printTypes(w io.Writer, cat *catalog.Catalog, limit int) {
	type typeCount struct {
		label string
		n     uint64
	}
	var counts []typeCount
	for label, n := range cat.TypeCounts() {
		counts = append(counts, typeCount{label, n})
	}
	slices.SortFunc(counts, func(a, b typeCount) int {
		return cmp.Or(cmp.Compare(b.n, a.n), cmp.Compare(a.label, b.label))
	})

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tENTITIES")
	for _, c := range counts[:min(limit, len(counts))] {
		fmt.Fprintf(tw, "%s\t%s\n", c.label, humanize.Comma(int64(c.n)))
	}
	_ = tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	data, err := gojson.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
