package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/nerdgo/catalog"
	"github.com/hupe1980/nerdgo/catalog/sqlite"
	"github.com/hupe1980/nerdgo/internal/manifest"
)

func newExportSQLiteCmd(g *globalFlags) *cobra.Command {
	var (
		catalogPath string
		dbPath      string
		generation  uint64
	)

	cmd := &cobra.Command{
		Use:   "export-sqlite",
		Short: "Export a catalog to a SQLite database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var (
				cat *catalog.Catalog
				err error
			)
			if catalogPath != "" {
				cat, err = catalog.Load(catalogPath)
			} else {
				bs, openErr := openStore(ctx, g.store)
				if openErr != nil {
					return openErr
				}
				var gen *manifest.Manifest
				if gen, err = manifest.NewStore(bs).LoadVersion(ctx, generation); err == nil {
					cat, err = catalog.Read(ctx, bs, gen.CatalogPath)
				}
			}
			if err != nil {
				return err
			}

			db, err := sqlite.Open(ctx, dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := sqlite.Export(ctx, db, cat); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entities to %s\n", cat.Len(), dbPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Catalog snapshot file (default: a generation of --store)")
	cmd.Flags().StringVar(&dbPath, "db", "catalog.db", "SQLite database path")
	cmd.Flags().Uint64Var(&generation, "generation", 0, "Generation to export (0 = current)")
	return cmd
}
