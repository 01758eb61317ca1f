package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/featherbox/internal/catalog"
	"github.com/alexisbeaulieu97/featherbox/internal/executor"
	"github.com/alexisbeaulieu97/featherbox/internal/featherbox"
	"github.com/alexisbeaulieu97/featherbox/internal/logger"
)

// rootFlags are the persistent flags every subcommand shares.
type rootFlags struct {
	projectFile string
	catalogPath string
	dataRoot    string
	verbose     bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "featherbox",
		Short:         "FeatherBox runs adapter and model pipelines over an embedded lake catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.projectFile, "project", "p", "featherbox.yaml", "Path to the project config file")
	cmd.PersistentFlags().StringVar(&flags.catalogPath, "catalog", "featherbox.db", "Path to the catalog database file")
	cmd.PersistentFlags().StringVar(&flags.dataRoot, "data-root", ".", "Root directory file adapters resolve path patterns against")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newMigrateCmd(flags))
	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newQueryCmd(flags))
	cmd.AddCommand(newDropCmd(flags))

	return cmd
}

func newLogger(flags *rootFlags) logger.Logger {
	level := "info"
	if flags.verbose {
		level = "debug"
	}
	return logger.New(logger.Options{HumanReadable: true, Level: level, Component: "featherbox"})
}

func newApp(ctx context.Context, flags *rootFlags) (*featherbox.App, error) {
	log := newLogger(flags)
	store, err := catalog.Open(ctx, flags.catalogPath, log)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	return &featherbox.App{
		Store:      store,
		Files:      executor.LocalFileSource{Root: flags.dataRoot},
		Log:        log,
		LowerBound: time.Unix(0, 0).UTC(),
	}, nil
}
