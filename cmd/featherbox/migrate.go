package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Resolve the project config into a dependency graph and commit it as the active version",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			_, adapters, models, err := loadProjectFile(flags.projectFile)
			if err != nil {
				return err
			}

			app, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer app.Store.Close()

			graphID, err := app.Migrate(ctx, adapters, models)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "committed graph %d (%d adapters, %d models)\n", graphID, len(adapters), len(models))
			return nil
		},
	}
}
