package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCorrectCommand creates the correct command.
func (a *App) NewCorrectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "correct [failure-id]",
		Short:   "Correct a validation failure against the source system",
		GroupID: "review",
		Long: `Correct applies the expected value for a validation failure back to
AxisCare and records the attempt in the audit trail.

With no argument the oldest open failure is corrected. With a failure ID
only that failure is corrected.`,
		Example: `  # Correct the oldest open failure
  visitsync correct

  # Correct a specific failure
  visitsync correct 4f1d2c8a

  # Mark a failure ignored instead of correcting it
  visitsync correct --ignore 4f1d2c8a`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.runCorrect,
	}

	cmd.Flags().Bool("ignore", false, "Mark the failure ignored instead of correcting it")

	return cmd
}

func (a *App) runCorrect(cmd *cobra.Command, args []string) error {
	engine, err := a.Engine()
	if err != nil {
		return err
	}

	ignore, _ := cmd.Flags().GetBool("ignore")
	if ignore {
		if len(args) == 0 {
			return fmt.Errorf("--ignore requires a failure ID")
		}
		if err := engine.Ignore(args[0]); err != nil {
			return fmt.Errorf("ignoring failure %s: %w", args[0], err)
		}
		fmt.Printf("Failure %s ignored.\n", args[0])
		return nil
	}

	if len(args) == 0 {
		if _, ok := engine.CurrentMismatch(); !ok {
			fmt.Println("No open validation failures.")
			return nil
		}
		action, err := engine.CorrectCurrent(cmd.Context())
		if err != nil {
			return fmt.Errorf("correcting current mismatch: %w", err)
		}
		fmt.Printf("Correction %s for failure %s: %s\n", action.ID, action.FailureID, action.Outcome)
		return nil
	}

	action, err := engine.Correct(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("correcting failure %s: %w", args[0], err)
	}
	fmt.Printf("Correction %s for failure %s: %s\n", action.ID, action.FailureID, action.Outcome)
	return nil
}
