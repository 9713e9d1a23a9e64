package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/podev-tools/podev/internal/engine"
)

var (
	applyPO      string
	applyDryRun  bool
	applyForce   bool
	applyReapply bool
)

var applyCmd = &cobra.Command{
	Use:   "apply <project>",
	Short: "Apply the project's configured POs to its repositories",
	Long: `Apply every PO the project's config enables, in plugin order:
commit patches first, then tree patches, overrides, and custom copy rules.

Repositories that already carry a PO's applied record are skipped; use
--reapply to force them through again. A PO that removes files via
.remove overrides needs --force.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		req := &engine.ApplyRequest{
			Project: args[0],
			PO:      applyPO,
			DryRun:  applyDryRun,
			Force:   applyForce,
			Reapply: applyReapply,
		}

		result, err := eng.Apply(context.Background(), req)
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(result)
		}

		if applyDryRun {
			PrintWarning("Dry-run: no commands were executed and no records were written")
		}
		if len(result.Applied) == 0 {
			PrintEmptyState("Nothing to apply")
			return nil
		}
		PrintSuccess(fmt.Sprintf("Applied %s on board %s",
			PrintCount(len(result.Applied), "po", "pos"), result.Board))
		PrintLabelValue("Applied", strings.Join(result.Applied, ", "))
		if len(result.Skipped) > 0 {
			PrintLabelValue("Skipped", strings.Join(result.Skipped, ", "))
		}
		return nil
	},
}

func init() {
	applyCmd.Flags().StringVarP(&applyPO, "po", "p", "", "Apply only this PO (must be enabled in the project config)")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Log commands without executing them")
	applyCmd.Flags().BoolVarP(&applyForce, "force", "f", false, "Allow destructive operations such as .remove overrides")
	applyCmd.Flags().BoolVar(&applyReapply, "reapply", false, "Apply even where an applied record already exists")
}
