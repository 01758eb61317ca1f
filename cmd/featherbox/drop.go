package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDropCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "drop [node]",
		Short: "Drop a node's materialized table from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			app, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer app.Store.Close()

			if err := app.DropNodeData(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dropped %s\n", args[0])
			return nil
		},
	}
}
