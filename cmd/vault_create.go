package cmd

import (
	"github.com/PolarWolf314/inkvault/internal/ui"
	"github.com/PolarWolf314/inkvault/internal/utils"
	"github.com/PolarWolf314/inkvault/internal/workflows"
	"github.com/spf13/cobra"
)

var createFromFile string

func init() {
	createCmd.Flags().StringVarP(&createFromFile, "file", "f", "", "initial document (JSON); use - for stdin")
	VaultCmd.AddCommand(createCmd)
}

func resetCreateCommandState() {
	createFromFile = ""
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new encrypted vault",
	Long: `Creates vault.json and an empty assets/ folder in the vault location.

The new passphrase is asked for twice. It cannot be recovered, so keep it
somewhere safe. Refuses to overwrite an existing vault.

Examples:
  inkvault vault create --vault ~/notes
  inkvault vault create --file notes.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting create command")
		spinner, cleanup := startSpinner("Creating vault...")
		defer cleanup()

		var document string
		switch createFromFile {
		case "":
		case "-":
			data, err := utils.ReadStdin()
			if err != nil {
				return reportError(spinner, "read document", err)
			}
			document = string(data)
		default:
			data, err := readDocumentFile(createFromFile)
			if err != nil {
				return reportError(spinner, "read document", err)
			}
			document = string(data)
		}

		passphrase, err := readNewPassphrase(spinner, newPassphraseEnv, "New vault passphrase: ")
		if err != nil {
			return reportError(spinner, "read passphrase", err)
		}

		result, err := workflows.Create(cmd.Context(), workflows.CreateOptions{
			VaultDir:   vaultDir,
			Passphrase: passphrase,
			Document:   document,
			Logger:     Logger,
		})
		if err != nil {
			return reportError(spinner, "create vault", err)
		}

		Logger.Infof("Vault written to %s", result.VaultFile)
		spinner.FinalMSG = ui.Success.Sprint("✓") + " Vault created at " + ui.Path.Sprint(result.VaultPath) +
			"\n" + ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("inkvault vault edit") + " to start writing"
		return nil
	},
}
