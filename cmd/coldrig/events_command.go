package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"coldrig/internal/ipc"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent rig events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Events(limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(resp.Events) == 0 {
					fmt.Fprintln(out, "No events recorded")
					return nil
				}
				rows := make([][]string, 0, len(resp.Events))
				for _, event := range resp.Events {
					slot := event.Slot
					if slot == "" {
						slot = "-"
					}
					rows = append(rows, []string{
						event.At.Local().Format("2006-01-02 15:04:05"),
						event.Type,
						slot,
						event.Message,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"At", "Type", "Slot", "Message"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of events to show")
	return cmd
}
