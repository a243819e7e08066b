package cmd

import (
	"fmt"

	"github.com/PolarWolf314/inkvault/internal/ui"
	"github.com/PolarWolf314/inkvault/internal/utils"
	"github.com/PolarWolf314/inkvault/internal/workflows"
	"github.com/spf13/cobra"
)

var editEditor string

func init() {
	editCmd.Flags().StringVarP(&editEditor, "editor", "e", "", "editor command (default $VISUAL, $EDITOR, then vi)")
	VaultCmd.AddCommand(editCmd)
}

func resetEditCommandState() {
	editEditor = ""
}

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit the vault document in your editor",
	Long: `Decrypts the vault document into a private temporary file and opens it in
your editor. When the editor exits the document is checked, encrypted and
saved. The temporary file is overwritten and removed afterwards.

Examples:
  inkvault vault edit
  inkvault vault edit --editor "code --wait"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting edit command")

		editor := editEditor
		if editor == "" {
			editor = utils.GetEditor()
		}
		Logger.Debugf("Using editor %q", editor)

		passphrase, err := readPassphrase(nil, passphraseEnv, "Vault passphrase: ")
		if err != nil {
			fmt.Println(formatVaultError("read passphrase", err))
			if isUnexpectedError(err) {
				return err
			}
			return nil
		}

		result, err := workflows.Edit(cmd.Context(), workflows.EditOptions{
			VaultDir:   vaultDir,
			Passphrase: passphrase,
			Editor:     editor,
			Logger:     Logger,
		})
		if err != nil {
			fmt.Println(formatVaultError("edit vault", err))
			if isUnexpectedError(err) {
				return err
			}
			return nil
		}

		if !result.Changed {
			fmt.Println(ui.Info.Sprint("ℹ") + " No changes")
			return nil
		}
		fmt.Println(ui.Success.Sprint("✓") + " Vault saved")
		return nil
	},
}
