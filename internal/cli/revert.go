package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/podev-tools/podev/internal/engine"
)

var (
	revertPO     string
	revertDryRun bool
)

var revertCmd = &cobra.Command{
	Use:   "revert <project>",
	Short: "Revert the project's applied POs from its repositories",
	Long: `Undo what apply did, in reverse plugin order: tree patches are
reversed first, then overrides are restored, then the PO's commits are
reverted. Each PO's applied records are deleted afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		req := &engine.RevertRequest{
			Project: args[0],
			PO:      revertPO,
			DryRun:  revertDryRun,
		}

		result, err := eng.Revert(context.Background(), req)
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(result)
		}

		if revertDryRun {
			PrintWarning("Dry-run: no commands were executed and records were kept")
		}
		if len(result.Reverted) == 0 {
			PrintEmptyState("Nothing to revert")
			return nil
		}
		PrintSuccess(fmt.Sprintf("Reverted %s on board %s",
			PrintCount(len(result.Reverted), "po", "pos"), result.Board))
		PrintLabelValue("Reverted", strings.Join(result.Reverted, ", "))
		if len(result.Skipped) > 0 {
			PrintLabelValue("Skipped", strings.Join(result.Skipped, ", "))
		}
		return nil
	},
}

func init() {
	revertCmd.Flags().StringVarP(&revertPO, "po", "p", "", "Revert only this PO (must be enabled in the project config)")
	revertCmd.Flags().BoolVar(&revertDryRun, "dry-run", false, "Log commands without executing them")
}
