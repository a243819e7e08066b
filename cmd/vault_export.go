package cmd

import (
	"fmt"
	"strings"

	"github.com/PolarWolf314/inkvault/internal/ui"
	"github.com/PolarWolf314/inkvault/internal/workflows"

	"github.com/spf13/cobra"
)

var exportOutputPath string

func init() {
	exportCmd.Flags().StringVarP(&exportOutputPath, "output", "o", "", "output path for the archive (default: inkvault-<vault>-YYYY-MM-DD.tar.gz)")
	VaultCmd.AddCommand(exportCmd)
}

// resetExportCommandState resets the export command's global state for testing.
func resetExportCommandState() {
	exportOutputPath = ""
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the encrypted vault to a backup archive",
	Long: `Creates a tar.gz archive of the vault folder for backup.

The archive includes:
  - vault.json (the encrypted vault document)
  - assets/* (every encrypted asset)

The archive never holds plaintext. A vault that is still stored unencrypted
is refused, and unencrypted assets are left out. No passphrase is needed.

Examples:
  # Export to default filename
  inkvault vault export

  # Export to custom path
  inkvault vault export -o /backups/notes.tar.gz`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting export command")
		spinner, cleanup := startSpinner("Exporting vault...")
		defer cleanup()

		result, err := workflows.Export(cmd.Context(), workflows.ExportOptions{
			VaultDir:   vaultDir,
			OutputPath: exportOutputPath,
		})
		if err != nil {
			return reportError(spinner, "export vault", err)
		}
		Logger.Infof("Archive created at %s with %d files", result.OutputPath, result.TotalFilesCount)

		var b strings.Builder
		b.WriteString(ui.Success.Sprint("✓") + " Exported vault to " + ui.Path.Sprint(result.OutputPath) + "\n\n")
		b.WriteString("Archive contents:\n")
		b.WriteString("  vault.json\n")
		if result.AssetCount > 0 {
			fmt.Fprintf(&b, "  assets/ (%d file(s))\n", result.AssetCount)
		}
		if len(result.SkippedAssets) > 0 {
			fmt.Fprintf(&b, "\n%s Left out %d unencrypted asset(s): %s\n", ui.Warning.Sprint("⚠"),
				len(result.SkippedAssets), strings.Join(result.SkippedAssets, ", "))
		}
		b.WriteString("\n" + ui.Info.Sprint("Note:") + " The archive is only as safe as your passphrase.")
		spinner.FinalMSG = b.String()
		return nil
	},
}
