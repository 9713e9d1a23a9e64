package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	jsonOutput    bool
	verboseOutput bool
	workspaceDir  string
)

// rootCmd is the root command for podev.
var rootCmd = &cobra.Command{
	Use:     "podev",
	Version: "dev",
	Short:   "Board-scoped patch/override manager for multi-repo firmware trees",
	Long: `podev applies, reverts, and inspects per-board PO (patch/override) sets
across the repositories of a firmware workspace.

Each PO directory bundles commit patches, tree patches, file overrides, and
custom copy rules; podev applies them in a fixed plugin order and records
what it did per repository so the operation stays idempotent.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verboseOutput, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspaceDir, "workspace", "C", "",
		fmt.Sprintf("Workspace root (default: nearest parent directory containing %s)", workspaceFile))

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the podev CLI version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(os.Stdout, rootCmd.Version)
		},
	}
	rootCmd.AddCommand(versionCmd)

	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(revertCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(delCmd)
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}
