package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/featherbox/internal/catalog"
	"github.com/alexisbeaulieu97/featherbox/internal/featherbox"
)

type runFlags struct {
	parallelism       int
	continueOnFailure bool
	only              []string
	retryAttempts     int
	retryDelayMs      int
	deadlineS         int
}

func newRunCmd(flags *rootFlags) *cobra.Command {
	rf := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the pipeline for the most recently migrated graph",
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

			opts := featherbox.RunOptions{
				Parallelism:       rf.parallelism,
				ContinueOnFailure: rf.continueOnFailure,
				Only:              rf.only,
				RetryAttempts:     rf.retryAttempts,
				RetryDelayMs:      rf.retryDelayMs,
			}
			if rf.deadlineS > 0 {
				opts.DeadlineS = &rf.deadlineS
			}

			pipelineID, summary, err := app.Run(ctx, adapters, models, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pipeline %s: %s\n", pipelineID, summary.PipelineStatus)
			for _, o := range summary.Outcomes {
				fmt.Fprintf(out, "  %-24s %-10s %s\n", o.NodeName, o.Status, o.Reason)
			}
			if summary.PipelineStatus == catalog.PipelineFailed {
				return fmt.Errorf("pipeline %s failed", pipelineID)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&rf.parallelism, "parallelism", 4, "Maximum number of actions to run concurrently within a level")
	cmd.Flags().BoolVar(&rf.continueOnFailure, "continue-on-failure", true, "Keep running independent branches after an action fails")
	cmd.Flags().StringSliceVar(&rf.only, "only", nil, "Restrict the run to the named nodes only")
	cmd.Flags().IntVar(&rf.retryAttempts, "retry-attempts", 3, "Maximum attempts per retryable action")
	cmd.Flags().IntVar(&rf.retryDelayMs, "retry-delay-ms", 1000, "Base delay between retry attempts")
	cmd.Flags().IntVar(&rf.deadlineS, "deadline-s", 0, "Overall deadline in seconds; 0 disables it")

	return cmd
}
