package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRunCommand creates the run command.
func (a *App) NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "run",
		Short:   "Run one reconciliation pass",
		GroupID: "core",
		Long: `Run fetches the current call records from OpenPhone and scheduled
visits from AxisCare, compares them, and appends any new mismatches to
the validation failure log.`,
		Example: `  # Run a single pass with credentials from the environment
  visitsync run

  # Run with verbose logging
  visitsync run -v`,
		RunE: a.runPass,
	}
}

func (a *App) runPass(cmd *cobra.Command, _ []string) error {
	engine, err := a.Engine()
	if err != nil {
		return err
	}

	result, err := engine.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("reconciliation pass: %w", err)
	}

	fmt.Println(result.Summary())
	if result.NewFailures > 0 || result.Duplicates > 0 {
		fmt.Printf("  new failures: %d\n", result.NewFailures)
		fmt.Printf("  duplicates:   %d\n", result.Duplicates)
	}

	stats := engine.Stats()
	fmt.Printf("  open: %d  correcting: %d  corrected: %d  ignored: %d\n",
		stats.Open, stats.Correcting, stats.Corrected, stats.Ignored)

	return nil
}
