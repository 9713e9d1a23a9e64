package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/podev-tools/podev/internal/engine"
)

var delCmd = &cobra.Command{
	Use:   "del <project> <po-name>",
	Short: "Delete a PO directory from the project's board",
	Long: `Remove po/<po-name>/ and everything under it. The board's po/
directory itself is pruned once the last PO is gone.

This only removes the PO's source tree; repositories the PO was applied
to keep their state until 'podev revert' runs.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		req := &engine.DeleteRequest{Project: args[0], Name: args[1]}
		if err := eng.DeletePO(context.Background(), req); err != nil {
			return err
		}

		PrintSuccess(fmt.Sprintf("Deleted po %s", args[1]))
		return nil
	},
}
