package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/PolarWolf314/inkvault/internal/ui"
	"github.com/PolarWolf314/inkvault/internal/utils"
	"github.com/PolarWolf314/inkvault/internal/workflows"
	"github.com/spf13/cobra"
)

func init() {
	AssetCmd.AddCommand(assetAddCmd)
}

var assetAddCmd = &cobra.Command{
	Use:   "add <file|dir|glob>...",
	Short: "Encrypt files into the asset store",
	Long: `Encrypts each matching file with the vault passphrase and stores it under a
new asset id. Directories are walked recursively and patterns may use **.

Examples:
  inkvault asset add photo.jpg
  inkvault asset add "scans/**/*.pdf"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting asset add command")
		Logger.Debugf("Patterns: %v", args)
		spinner, cleanup := startSpinner("Encrypting assets...")
		defer cleanup()

		passphrase, err := readPassphrase(spinner, passphraseEnv, "Vault passphrase: ")
		if err != nil {
			return reportError(spinner, "read passphrase", err)
		}

		result, err := workflows.AddAssets(cmd.Context(), workflows.AddAssetsOptions{
			VaultDir:   vaultDir,
			Passphrase: passphrase,
			Patterns:   args,
			Logger:     Logger,
		})
		if err != nil {
			return reportError(spinner, "add assets", err)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "%s Added %d asset(s)\n", ui.Success.Sprint("✓"), len(result.Added))
		for _, m := range result.Added {
			fmt.Fprintf(&b, "  %s %s %s\n",
				ui.Highlight.Sprint(m.ID),
				ui.Muted.Sprint(utils.FormatBytes(m.Size)),
				ui.Path.Sprint(filepath.Base(result.Sources[m.ID])))
		}
		spinner.FinalMSG = b.String()
		return nil
	},
}
