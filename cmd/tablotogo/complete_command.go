package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tablotogo/internal/workflow"
)

func newCompleteCommand(ctx *commandContext) *cobra.Command {
	var flags filterFlags
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "complete [search terms...]",
		Short: "Mark matching recordings as transferred without downloading",
		Long: "Write history entries for every recording a run would select, " +
			"so future runs skip them. Useful after transferring recordings " +
			"by other means, or to exclude a backlog before the first run.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			filters, err := flags.build(cfg, args)
			if err != nil {
				return err
			}

			manager, _, err := ctx.buildManager()
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			report, err := manager.Run(signalCtx, workflow.Options{
				Mode:    workflow.ModeComplete,
				Filters: filters,
				DryRun:  dryRun,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d recording(s) marked complete\n", len(report.Matches))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "test", false, "Show what would be marked complete without writing history")
	return cmd
}
