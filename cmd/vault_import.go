package cmd

import (
	"fmt"

	"github.com/PolarWolf314/inkvault/internal/ui"
	"github.com/PolarWolf314/inkvault/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	importMergeFlag   bool
	importReplaceFlag bool
	importDryRunFlag  bool
)

func init() {
	importCmd.Flags().BoolVar(&importMergeFlag, "merge", false, "add files missing from the vault folder, keep existing ones")
	importCmd.Flags().BoolVar(&importReplaceFlag, "replace", false, "replace the vault document and assets with the archive")
	importCmd.Flags().BoolVar(&importDryRunFlag, "dry-run", false, "show what would be imported without making changes")
	importCmd.MarkFlagsMutuallyExclusive("merge", "replace")
	VaultCmd.AddCommand(importCmd)
}

// resetImportCommandState resets the import command's global state for testing.
func resetImportCommandState() {
	importMergeFlag = false
	importReplaceFlag = false
	importDryRunFlag = false
}

var importCmd = &cobra.Command{
	Use:   "import <archive>",
	Short: "Restore the vault from a backup archive",
	Long: `Restores a vault folder from an archive created by 'inkvault vault export'.

Into an empty location the archive is simply extracted. When a vault already
exists, choose a mode:
  --merge     add assets missing from the folder, keep everything else
  --replace   back up vault.json to vault.json.bak, drop the asset store
              and restore everything from the archive

Examples:
  inkvault vault import notes.tar.gz --vault ~/notes-restored
  inkvault vault import notes.tar.gz --replace --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting import command")
		spinner, cleanup := startSpinner("Importing vault...")
		defer cleanup()

		archivePath := args[0]
		check, err := workflows.ImportPreCheck(cmd.Context(), vaultDir, archivePath)
		if err != nil {
			return reportError(spinner, "read archive", err)
		}
		Logger.Debugf("Archive holds %d files, vault exists: %t", len(check.ArchiveFiles), check.VaultExists)

		mode := workflows.ImportModeMerge
		switch {
		case importReplaceFlag:
			mode = workflows.ImportModeReplace
		case importMergeFlag:
		case check.VaultExists:
			spinner.FinalMSG = ui.Error.Sprint("✗") + " A vault already exists in " + ui.Path.Sprint(check.VaultPath) +
				"\n" + ui.Info.Sprint("→") + " Pass " + ui.Flag.Sprint("--merge") + " or " + ui.Flag.Sprint("--replace")
			return nil
		}

		result, err := workflows.Import(cmd.Context(), workflows.ImportOptions{
			VaultDir:    vaultDir,
			ArchivePath: archivePath,
			Mode:        mode,
			DryRun:      importDryRunFlag,
		})
		if err != nil {
			return reportError(spinner, "import vault", err)
		}

		prefix := ui.Success.Sprint("✓")
		if result.DryRun {
			prefix = "[dry-run]"
		}
		switch result.Mode {
		case workflows.ImportModeReplace:
			spinner.FinalMSG = fmt.Sprintf("%s Restored %d file(s) into %s", prefix, result.FilesReplaced, ui.Path.Sprint(check.VaultPath))
		default:
			spinner.FinalMSG = fmt.Sprintf("%s Added %d file(s), skipped %d existing into %s",
				prefix, result.FilesAdded, result.FilesSkipped, ui.Path.Sprint(check.VaultPath))
		}
		if result.DryRun {
			spinner.FinalMSG += "\nNo changes made."
		}
		return nil
	},
}
