package main

import (
	"fmt"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"tablotogo/internal/metadata"
	"tablotogo/internal/workflow"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var flags filterFlags
	var long bool
	var reallyLong bool

	cmd := &cobra.Command{
		Use:   "list [search terms...]",
		Short: "Show the recordings a run would transfer",
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
				Mode:    workflow.ModeList,
				Filters: filters,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(report.Matches) == 0 {
				fmt.Fprintln(out, "No matching recordings")
				return nil
			}
			if reallyLong {
				fmt.Fprint(out, renderDocuments(report.Matches))
			} else {
				fmt.Fprintln(out, renderMatches(report.Matches, long))
			}
			fmt.Fprintf(out, "%d matching recording(s)\n", len(report.Matches))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&long, "long", "l", false, "Include identity, status, and quality columns")
	cmd.Flags().BoolVar(&reallyLong, "really-long", false, "Dump every metadata field of each match")
	return cmd
}

// renderDocuments prints the flattened source document of each match, one
// dotted-path field per line.
func renderDocuments(matches []metadata.Recording) string {
	var b strings.Builder
	for i, rec := range matches {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s (%s id %d)\n", rec.DisplayName, rec.Device, rec.RecordingID)
		flat := rec.Document.Flatten()
		keys := make([]string, 0, len(flat))
		for key := range flat {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(&b, "  %s = %s\n", key, flat[key])
		}
	}
	return b.String()
}

func renderMatches(matches []metadata.Recording, long bool) string {
	if long {
		rows := make([][]string, 0, len(matches))
		for _, rec := range matches {
			rows = append(rows, []string{
				rec.Device,
				strconv.Itoa(rec.RecordingID),
				string(rec.Type),
				rec.DisplayName,
				rec.Identity,
				rec.Status,
				formatQuality(rec.QualityHeight),
				formatDuration(rec.DurationSeconds),
			})
		}
		return renderTable(
			[]string{"Device", "ID", "Type", "Name", "Identity", "Status", "Quality", "Length"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
		)
	}

	rows := make([][]string, 0, len(matches))
	for _, rec := range matches {
		rows = append(rows, []string{
			strconv.Itoa(rec.RecordingID),
			string(rec.Type),
			rec.DisplayName,
		})
	}
	return renderTable(
		[]string{"ID", "Type", "Name"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft},
	)
}

func formatQuality(height int) string {
	if height <= 0 {
		return "-"
	}
	return strconv.Itoa(height) + "p"
}

func formatDuration(seconds int) string {
	if seconds <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
