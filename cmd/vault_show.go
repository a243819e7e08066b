package cmd

import (
	"bytes"
	"encoding/json"

	"github.com/PolarWolf314/inkvault/internal/ui"
	"github.com/PolarWolf314/inkvault/internal/workflows"
	"github.com/spf13/cobra"
)

var showPretty bool

func init() {
	showCmd.Flags().BoolVarP(&showPretty, "pretty", "p", false, "indent the JSON document")
	VaultCmd.AddCommand(showCmd)
}

func resetShowCommandState() {
	showPretty = false
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the decrypted vault document",
	Long: `Decrypts vault.json and prints the document to stdout.

Examples:
  inkvault vault show
  inkvault vault show --pretty | less`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting show command")
		spinner, cleanup := startSpinner("Decrypting vault...")
		defer cleanup()

		passphrase, err := readPassphrase(spinner, passphraseEnv, "Vault passphrase: ")
		if err != nil {
			return reportError(spinner, "read passphrase", err)
		}

		result, err := workflows.Show(cmd.Context(), workflows.ShowOptions{
			VaultDir:   vaultDir,
			Passphrase: passphrase,
			Logger:     Logger,
		})
		if err != nil {
			return reportError(spinner, "decrypt vault", err)
		}

		document := result.Document
		if showPretty {
			var buf bytes.Buffer
			if err := json.Indent(&buf, []byte(document), "", "  "); err == nil {
				document = buf.String()
			} else {
				Logger.Debugf("Document is not JSON, printing as is: %v", err)
			}
		}

		spinner.FinalMSG = document
		if result.Legacy {
			spinner.FinalMSG += "\n" + ui.Warning.Sprint("⚠") + " The vault is stored unencrypted; it will be encrypted on the next write" +
				"\n" + ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("inkvault vault edit") + " to encrypt it now"
		}
		return nil
	},
}
