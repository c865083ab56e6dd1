package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"coldrig/internal/ipc"
	"coldrig/internal/rig"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and rig status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderStatus(resp, colorize) {
					fmt.Fprintln(out, line)
				}
				return nil
			})
		},
	}
}

func renderStatus(resp *ipc.StatusResponse, colorize bool) []string {
	lines := renderSectionHeader("Daemon", colorize)
	runningKind := statusError
	if resp.Running {
		runningKind = statusOK
	}
	lines = append(lines,
		renderStatusLine("Running", runningKind, yesNo(resp.Running), colorize),
		renderStatusLine("PID", statusInfo, strconv.Itoa(resp.PID), colorize),
		renderStatusLine("Store", statusInfo, resp.StoreDBPath, colorize),
		renderStatusLine("Log", statusInfo, resp.LogPath, colorize),
	)
	if resp.StatusProblem != "" {
		lines = append(lines, renderStatusLine("Problem", statusError, resp.StatusProblem, colorize))
		return lines
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Rig", colorize)...)
	lines = append(lines,
		renderStatusLine("Status", rigStatusKind(resp.RigStatus), resp.RigStatus, colorize),
		renderStatusLine("Temperature", statusInfo, formatCelsius(resp.TemperatureC), colorize),
		renderStatusLine("Set-point", statusInfo, formatCelsius(resp.SetPointC), colorize),
		renderStatusLine("Humidity", statusInfo, fmt.Sprintf("%.1f %%", resp.HumidityPct), colorize),
	)

	if len(resp.Slots) > 0 {
		rows := make([][]string, 0, len(resp.Slots))
		for _, slot := range resp.Slots {
			measuredAt := "-"
			if !slot.LastMeasuredAt.IsZero() {
				measuredAt = slot.LastMeasuredAt.Local().Format("2006-01-02 15:04:05")
			}
			rows = append(rows, []string{
				slot.Name,
				formatVolts(slot.SetVoltageV),
				formatVolts(slot.LastVoltageV),
				formatAmps(slot.LastCurrentA),
				yesNo(slot.OvercurrentLatched),
				measuredAt,
			})
		}
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader("Slots", colorize)...)
		lines = append(lines, strings.Split(renderTable(
			[]string{"Slot", "Set V", "Measured V", "Current", "Tripped", "Measured At"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
		), "\n")...)
	}
	return lines
}

func rigStatusKind(status string) statusKind {
	switch rig.Status(status) {
	case rig.StatusReadyToOperate:
		return statusOK
	case rig.StatusError:
		return statusError
	case rig.StatusWarm:
		return statusWarn
	default:
		return statusInfo
	}
}

func formatCelsius(v float64) string { return fmt.Sprintf("%.1f C", v) }

func formatVolts(v float64) string { return fmt.Sprintf("%.2f V", v) }

func formatAmps(v float64) string { return fmt.Sprintf("%.3e A", v) }
