package cmd

import (
	"errors"
	"fmt"
	"strings"

	kerrors "github.com/PolarWolf314/inkvault/internal/errors"
	"github.com/PolarWolf314/inkvault/internal/ui"
	"github.com/PolarWolf314/inkvault/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	rotateForce   bool
	rotateRecover bool
)

func init() {
	rotateCmd.Flags().BoolVar(&rotateForce, "force", false, "skip confirmation prompt")
	rotateCmd.Flags().BoolVar(&rotateRecover, "recover", false, "also ask for the previous passphrase to re-encrypt assets an earlier rotation left behind")
	VaultCmd.AddCommand(rotateCmd)
}

func resetRotateCommandState() {
	rotateForce = false
	rotateRecover = false
}

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Change the vault passphrase",
	Long: `Re-encrypts the vault document and every asset under a new passphrase.

The vault document is committed first. Assets that cannot be written are
retried once; if some still fail, the vault already uses the new passphrase,
those assets keep their old contents and the command exits non-zero. Finish
the job with --recover, giving the new passphrase as both current and new
and the old one as the previous passphrase.

Examples:
  inkvault vault rotate
  INKVAULT_PASSPHRASE=old INKVAULT_NEW_PASSPHRASE=new inkvault vault rotate --force
  INKVAULT_PASSPHRASE=new INKVAULT_NEW_PASSPHRASE=new INKVAULT_PREVIOUS_PASSPHRASE=old inkvault vault rotate --recover --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting rotate command")
		spinner, cleanup := startSpinner("Changing passphrase...")
		defer cleanup()

		if !rotateForce {
			question := ui.Warning.Sprint("⚠") + " This re-encrypts the vault and all assets. Continue?"
			if !confirm(spinner, question) {
				Logger.Infof("Rotation cancelled by user")
				spinner.FinalMSG = ui.Warning.Sprint("⚠") + " Passphrase change cancelled"
				return nil
			}
		}

		current, err := readPassphrase(spinner, passphraseEnv, "Current passphrase: ")
		if err != nil {
			return reportError(spinner, "read passphrase", err)
		}
		next, err := readNewPassphrase(spinner, newPassphraseEnv, "New passphrase: ")
		if err != nil {
			return reportError(spinner, "read passphrase", err)
		}
		var previous []byte
		if rotateRecover {
			if previous, err = readPassphrase(spinner, previousPassphraseEnv, "Previous passphrase: "); err != nil {
				return reportError(spinner, "read passphrase", err)
			}
		}

		result, err := workflows.Rotate(cmd.Context(), workflows.RotateOptions{
			VaultDir:           vaultDir,
			CurrentPassphrase:  current,
			NewPassphrase:      next,
			RecoveryPassphrase: previous,
			Logger:             Logger,
		})
		if err != nil && !errors.Is(err, kerrors.ErrAssetMigrationIncomplete) {
			msgErr := reportError(spinner, "change passphrase", err)
			if errors.Is(err, kerrors.ErrDecryptionFailed) && !errors.Is(err, kerrors.ErrWrongCurrentPassphrase) && !rotateRecover {
				spinner.FinalMSG += "\n" + ui.Info.Sprint("→") + " An asset may still be sealed under an older passphrase; retry with " +
					ui.Flag.Sprint("--recover")
			}
			return msgErr
		}

		summary := fmt.Sprintf("%d of %d assets re-encrypted", result.AssetsMigrated, result.AssetsTotal)
		if err != nil {
			Logger.Warnf("Rotation incomplete: %v", err)
			spinner.FinalMSG = formatVaultError("change passphrase", err) + "\n" + ui.Muted.Sprint(summary)
			if len(result.Unmigrated) > 0 {
				spinner.FinalMSG += "\nNot migrated: " + strings.Join(result.Unmigrated, ", ")
			}
			return err
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Passphrase changed " + ui.Muted.Sprint(summary)
		return nil
	},
}
