package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/podev-tools/podev/internal/engine"
)

var newCmd = &cobra.Command{
	Use:   "new <project> <po-name>",
	Short: "Scaffold a new PO directory for the project's board",
	Long: `Create po/<po-name>/ under the project's board tree with the
directory layout the plugins expect (commits/, patches/, overrides/).

PO names must start with "po" and may contain lowercase letters, digits,
and underscores.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		req := &engine.NewRequest{Project: args[0], Name: args[1]}
		if err := eng.NewPO(context.Background(), req); err != nil {
			return err
		}

		PrintSuccess(fmt.Sprintf("Created po %s", args[1]))
		return nil
	},
}
