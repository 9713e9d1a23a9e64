package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/podev-tools/podev/internal/engine"
)

var listCmd = &cobra.Command{
	Use:   "list <project>",
	Short: "List the project's POs and their content",
	Long: `Display every PO the project's config enables, with the commit
patches, tree patches, override files, and custom copy sections each one
carries on disk.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		result, err := eng.List(context.Background(), &engine.ListRequest{Project: args[0]})
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(result)
		}

		if len(result.POs) == 0 {
			PrintEmptyState("No POs configured")
			return nil
		}

		PrintInfo(fmt.Sprintf("POs for %s (board %s):", args[0], result.Board))
		for _, po := range result.POs {
			PrintSection(po.Name)
			printFileGroup("commits", po.CommitFiles)
			printFileGroup("patches", po.PatchFiles)
			printFileGroup("overrides", po.OverrideFiles)
			for _, sec := range po.Custom {
				PrintLabelValue(sec.Section, sec.Dir)
				PrintList(sec.Files, 2)
				if sec.CopyConfig != "" {
					PrintLabelValue("copy config", sec.CopyConfig)
				}
			}
		}
		return nil
	},
}

func printFileGroup(name string, files []string) {
	if len(files) == 0 {
		return
	}
	PrintLabelValue(name, PrintCount(len(files), "file", "files"))
	PrintList(files, 2)
}
