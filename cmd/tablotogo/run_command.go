package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tablotogo/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags filterFlags
	var auto bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run [search terms...]",
		Short: "Poll devices and transfer matching finished recordings",
		Long: "Poll every configured or discovered Tablo, resolve recording " +
			"metadata, and download, name, and file each finished recording " +
			"that matches the search terms and is not already in the history.",
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
				Mode:    workflow.ModeTransfer,
				Filters: filters,
				DryRun:  dryRun,
				Auto:    auto,
			})
			if err != nil {
				return err
			}
			printSummary(cmd, report)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&auto, "auto", false, "Repeat cycles on the configured interval until interrupted")
	cmd.Flags().BoolVar(&dryRun, "test", false, "Show what would transfer without downloading or writing history")
	return cmd
}

func printSummary(cmd *cobra.Command, report *workflow.CycleReport) {
	if report == nil {
		return
	}
	out := cmd.OutOrStdout()
	for _, device := range report.Devices {
		fmt.Fprintf(out, "%s: %d tv, %d movies, %d sports queued (%d duplicates, %d cached, %d failed metadata, %d transferred, %d failed)\n",
			device.Device, device.NewTV, device.NewMovies, device.NewSports,
			device.Duplicates, device.Cached, device.FailedMetadata,
			device.Transferred, device.Failed)
	}
}
