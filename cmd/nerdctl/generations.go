package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/nerdgo/internal/manifest"
	"github.com/hupe1980/nerdgo/merge"
)

func newRollbackCmd(g *globalFlags) *cobra.Command {
	var to uint64

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Make an older generation current again",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			bs, err := openStore(ctx, g.store)
			if err != nil {
				return err
			}
			if err := manifest.NewStore(bs).Rollback(ctx, to); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generation %d is current\n", to)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&to, "to", 0, "Generation to restore")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newPruneCmd(g *globalFlags) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old generations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			bs, err := openStore(ctx, g.store)
			if err != nil {
				return err
			}
			m := merge.NewMerger(bs, manifest.NewStore(bs), merge.WithLogger(g.logger().Logger))
			removed, err := m.Prune(ctx, keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d generations %v\n", len(removed), removed)
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 2, "Number of newest generations to keep")
	return cmd
}
