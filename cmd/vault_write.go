package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	kerrors "github.com/PolarWolf314/inkvault/internal/errors"
	"github.com/PolarWolf314/inkvault/internal/storage"
	"github.com/PolarWolf314/inkvault/internal/ui"
	"github.com/PolarWolf314/inkvault/internal/utils"
	"github.com/PolarWolf314/inkvault/internal/workflows"
	"github.com/spf13/cobra"
)

var writeFromFile string

func init() {
	writeCmd.Flags().StringVarP(&writeFromFile, "file", "f", "", "read the document from a file instead of stdin")
	VaultCmd.AddCommand(writeCmd)
}

func resetWriteCommandState() {
	writeFromFile = ""
}

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Replace the vault document",
	Long: `Reads a JSON document from stdin (or --file), encrypts it and saves it
over the vault document. The previous version is kept as vault.json.bak.

Examples:
  inkvault vault show > notes.json && $EDITOR notes.json && inkvault vault write -f notes.json
  jq '.trash = []' <(inkvault vault show) | inkvault vault write`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting write command")
		spinner, cleanup := startSpinner("Saving vault...")
		defer cleanup()

		var (
			data []byte
			err  error
		)
		if writeFromFile != "" && writeFromFile != "-" {
			data, err = readDocumentFile(writeFromFile)
		} else {
			data, err = utils.ReadStdin()
		}
		if err != nil {
			return reportError(spinner, "read document", err)
		}

		passphrase, err := readPassphrase(spinner, passphraseEnv, "Vault passphrase: ")
		if err != nil {
			return reportError(spinner, "read passphrase", err)
		}

		result, err := workflows.Write(cmd.Context(), workflows.WriteOptions{
			VaultDir:   vaultDir,
			Passphrase: passphrase,
			Document:   string(data),
			Logger:     Logger,
		})
		if err != nil {
			return reportError(spinner, "save vault", err)
		}

		if !result.Changed {
			spinner.FinalMSG = ui.Info.Sprint("ℹ") + " Document unchanged; nothing was written"
			return nil
		}
		spinner.FinalMSG = ui.Success.Sprint("✓") + " Vault saved"
		return nil
	},
}

// readDocumentFile reads a document given on the command line.
func readDocumentFile(path string) ([]byte, error) {
	data, err := storage.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", kerrors.ErrNoFilesFound, path)
		}
		return nil, err
	}
	return data, nil
}
