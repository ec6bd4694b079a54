// Command nerdctl builds, publishes and queries entity store generations.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/nerdgo"
	"github.com/hupe1980/nerdgo/config"
	"github.com/hupe1980/nerdgo/embedding"
)

type globalFlags struct {
	store      string
	configPath string
	logLevel   string
	json       bool

	cfg config.Config
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "nerdctl",
		Short:         "Manage entity embedding stores",
		Long:          `Merge extraction batches into entity stores, publish generations and run candidate retrieval against them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.init(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&g.store, "store", "s", "./store", "Generation store: a directory, s3://bucket/prefix or minio://host/bucket/prefix")
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&g.json, "json", false, "Output as JSON")

	root.AddCommand(
		newMergeCmd(g),
		newPublishCmd(g),
		newInspectCmd(g),
		newSearchCmd(g),
		newRowsCmd(g),
		newExportSQLiteCmd(g),
		newRollbackCmd(g),
		newPruneCmd(g),
	)
	return root
}

func (g *globalFlags) logger() *nerdgo.Logger {
	return nerdgo.NewTextLogger(nerdgo.ParseLevel(g.logLevel))
}

// init loads the configuration: the file if one was given, the environment
// otherwise. Configured values fill in flags the user did not set.
func (g *globalFlags) init(cmd *cobra.Command) error {
	var err error
	if g.configPath != "" {
		g.cfg, err = config.Load(g.configPath)
	} else {
		g.cfg, err = config.FromEnv()
	}
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("log-level") {
		g.logLevel = g.cfg.LogLevel
	}
	return nil
}

// layout returns the --layout flag if set, the configured store layout
// otherwise.
func (g *globalFlags) layout(cmd *cobra.Command, flag string) (embedding.Layout, error) {
	if cmd.Flags().Changed("layout") {
		return embedding.ParseLayout(flag)
	}
	return embedding.ParseLayout(g.cfg.StoreLayout)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
