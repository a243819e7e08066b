package cmd

import (
	"os"

	"github.com/PolarWolf314/inkvault/internal/ui"
	"github.com/PolarWolf314/inkvault/internal/utils"
	"github.com/PolarWolf314/inkvault/internal/workflows"
	"github.com/spf13/cobra"
)

var assetGetOutput string

func init() {
	assetGetCmd.Flags().StringVarP(&assetGetOutput, "output", "o", "", "write the decrypted asset to this file instead of stdout")
	AssetCmd.AddCommand(assetGetCmd)
}

func resetAssetGetCommandState() {
	assetGetOutput = ""
}

var assetGetCmd = &cobra.Command{
	Use:   "get <asset-id>",
	Short: "Decrypt an asset",
	Long: `Decrypts one asset and writes it to --output, or to stdout.

Examples:
  inkvault asset get 3f2a9c1e-7b4d-4e8a-9c55-0d1e2f3a4b5c.png -o diagram.png
  inkvault asset get 3f2a9c1e-7b4d-4e8a-9c55-0d1e2f3a4b5c.txt | less`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting asset get command")
		spinner, cleanup := startSpinner("Decrypting asset...")
		defer cleanup()

		passphrase, err := readPassphrase(spinner, passphraseEnv, "Vault passphrase: ")
		if err != nil {
			return reportError(spinner, "read passphrase", err)
		}

		result, err := workflows.GetAsset(cmd.Context(), workflows.GetAssetOptions{
			VaultDir:   vaultDir,
			Passphrase: passphrase,
			ID:         args[0],
			OutputPath: assetGetOutput,
			Logger:     Logger,
		})
		if err != nil {
			return reportError(spinner, "decrypt asset", err)
		}

		if assetGetOutput != "" {
			spinner.FinalMSG = ui.Success.Sprint("✓") + " Wrote " + ui.Path.Sprint(assetGetOutput) + " " +
				ui.Muted.Sprint(utils.FormatBytes(int64(len(result.Data))))
			return nil
		}

		// The spinner draws on stderr, so binary data can go to stdout as is.
		_, err = os.Stdout.Write(result.Data)
		return err
	},
}
