package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/careops/visitsync/pkg/records"
)

// NewLogsCommand creates the logs command.
func (a *App) NewLogsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "logs",
		Short:   "Print the validation failure log",
		GroupID: "review",
		Long: `Logs prints the plain-text validation failure log, one block per
detected mismatch, in the order failures were detected.

With --open only failures still awaiting review are shown.`,
		Example: `  # Print the full log
  visitsync logs

  # Only failures still open for review
  visitsync logs --open`,
		RunE: a.runLogs,
	}

	cmd.Flags().Bool("open", false, "Show only open failures")

	return cmd
}

func (a *App) runLogs(cmd *cobra.Command, _ []string) error {
	engine, err := a.Engine()
	if err != nil {
		return err
	}

	openOnly, _ := cmd.Flags().GetBool("open")
	if !openOnly {
		fmt.Print(engine.RenderLog())
		return nil
	}

	failures := engine.Failures(records.StatusOpen, 0, 0)
	if len(failures) == 0 {
		fmt.Println("No open validation failures.")
		return nil
	}
	for _, f := range failures {
		if f.NoMatch() {
			fmt.Printf("%s  %s  %s: no corresponding visit\n", f.ID, f.DetectedAt.Format("2006-01-02 15:04:05"), f.SubjectID())
			continue
		}
		fmt.Printf("%s  %s  %s/%s: expected %q, got %q\n", f.ID, f.DetectedAt.Format("2006-01-02 15:04:05"), f.SubjectID(), f.Field, f.Expected, f.Actual)
	}
	return nil
}
