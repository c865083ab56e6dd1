package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// The daemon's control loop reads the operator's intent from sentinel files
// in the control directory: `run` asks for a cold, ready rig and `stop` asks
// for a warm, unbiased one. Exactly one must be present; these commands swap
// them atomically enough for the loop's both-or-neither check.

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Request rig startup (cool down and get ready to operate)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := setControlIntent(cfg.Paths.ControlDir, "run", "stop"); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Startup requested; the daemon will cool the chamber and bias the detectors.")
			return nil
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Request rig shutdown (unbias and warm up)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := setControlIntent(cfg.Paths.ControlDir, "stop", "run"); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Shutdown requested; the daemon will unbias the detectors and warm the chamber.")
			return nil
		},
	}
}

// setControlIntent creates the wanted marker before removing its opposite so
// the directory never ends up with neither file.
func setControlIntent(controlDir, want, drop string) error {
	wantPath := filepath.Join(controlDir, want)
	if err := os.WriteFile(wantPath, nil, 0o644); err != nil {
		return fmt.Errorf("write %s marker: %w", want, err)
	}
	dropPath := filepath.Join(controlDir, drop)
	if err := os.Remove(dropPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s marker: %w", drop, err)
	}
	return nil
}
