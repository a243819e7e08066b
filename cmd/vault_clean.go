package cmd

import (
	"fmt"
	"strings"

	"github.com/PolarWolf314/inkvault/internal/ui"
	"github.com/PolarWolf314/inkvault/internal/utils"
	"github.com/PolarWolf314/inkvault/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	cleanForce  bool
	cleanDryRun bool
)

func init() {
	cleanCmd.Flags().BoolVar(&cleanForce, "force", false, "skip confirmation prompt")
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "show what would be removed without making changes")
	VaultCmd.AddCommand(cleanCmd)
}

func resetCleanCommandState() {
	cleanForce = false
	cleanDryRun = false
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove leftovers of interrupted saves",
	Long: `Removes the hidden temp files a save leaves behind when it is interrupted
before its final rename, for example by a crash or power loss. The vault
document, its backup and the assets are never touched.

Do not run this while another inkvault process is saving the same vault.

Use --dry-run to preview what would be removed.
Use --force to skip the confirmation prompt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting clean command")
		spinner, cleanup := startSpinner("Scanning vault folder...")
		defer cleanup()

		preview, err := workflows.Clean(cmd.Context(), workflows.CleanOptions{VaultDir: vaultDir, DryRun: true})
		if err != nil {
			return reportError(spinner, "scan vault folder", err)
		}

		if len(preview.Stale) == 0 {
			spinner.FinalMSG = ui.Success.Sprint("✓") + " No leftovers found. Nothing to clean."
			return nil
		}

		table := formatStaleTable(preview.Stale)
		if cleanDryRun {
			spinner.FinalMSG = fmt.Sprintf("[dry-run] Would remove %d file(s):\n%s\nNo changes made.", len(preview.Stale), table)
			return nil
		}

		if !cleanForce {
			question := fmt.Sprintf("Found %d leftover file(s):\n%s\nRemove them?", len(preview.Stale), table)
			if !confirm(spinner, question) {
				spinner.FinalMSG = "Aborted."
				return nil
			}
		}

		result, err := workflows.Clean(cmd.Context(), workflows.CleanOptions{VaultDir: vaultDir})
		if err != nil {
			return reportError(spinner, "clean vault folder", err)
		}

		spinner.FinalMSG = fmt.Sprintf("%s Removed %d leftover file(s)", ui.Success.Sprint("✓"), result.RemovedCount)
		return nil
	},
}

// formatStaleTable renders a table of leftover files.
func formatStaleTable(entries []workflows.StaleEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %-10s  %s\n", "SIZE", "FILE")
	for _, e := range entries {
		fmt.Fprintf(&b, "  %-10s  %s\n", utils.FormatBytes(e.Size), e.RelativePath)
	}
	return b.String()
}
