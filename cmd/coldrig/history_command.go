package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"coldrig/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var slot string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent IV sweep runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Sweeps(slot, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(resp.Runs) == 0 {
					fmt.Fprintln(out, "No sweep runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(resp.Runs))
				for _, run := range resp.Runs {
					outcome := run.Outcome
					if run.Error != "" {
						outcome = fmt.Sprintf("%s (%s)", run.Outcome, run.Error)
					}
					rows = append(rows, []string{
						run.StartedAt.Local().Format("2006-01-02 15:04:05"),
						run.Slot,
						fmt.Sprintf("%d", run.Points),
						run.FinishedAt.Sub(run.StartedAt).Round(100 * time.Millisecond).String(),
						outcome,
						run.Path,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Started", "Slot", "Points", "Duration", "Outcome", "File"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&slot, "slot", "s", "", "Only show sweeps for this slot")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of sweep runs to show")
	return cmd
}
