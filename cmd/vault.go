package cmd

import (
	logger "github.com/PolarWolf314/inkvault/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	verbose  bool
	debug    bool
	vaultDir string
	Logger   logger.Logger

	VaultCmd = &cobra.Command{
		Use:   "vault",
		Short: "Create, read and update the encrypted vault",
		Long: `Provides creation, decryption, editing and passphrase rotation of the vault.

The vault is a folder holding an encrypted vault.json document and an assets/
directory of encrypted attachments. The folder is taken from --vault, then
$INKVAULT_DIR, then the configured vault path, then the nearest parent folder
that contains vault.json.

Passphrases are read from the terminal without echo. For scripts, set
INKVAULT_PASSPHRASE (and INKVAULT_NEW_PASSPHRASE for create and rotate).`,
		PersistentPreRun: initLogger,
	}
)

func init() {
	for _, c := range []*cobra.Command{VaultCmd, AssetCmd} {
		c.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
		c.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
		c.PersistentFlags().StringVar(&vaultDir, "vault", "", "vault folder to operate on")
	}
}

func initLogger(cmd *cobra.Command, args []string) {
	Logger = logger.Logger{
		Verbose: verbose,
		Debug:   debug,
	}
	Logger.Debugf("Initializing %s command with verbose=%t, debug=%t", cmd.CommandPath(), verbose, debug)
}

// Helper functions for testing

// GetVaultCmd returns the VaultCmd for testing.
func GetVaultCmd() *cobra.Command {
	return VaultCmd
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	vaultDir = ""
	resetCreateCommandState()
	resetShowCommandState()
	resetWriteCommandState()
	resetEditCommandState()
	resetStatusCommandState()
	resetDoctorCommandState()
	resetCleanCommandState()
	resetExportCommandState()
	resetImportCommandState()
	resetRotateCommandState()
	resetLogCommandState()
	resetAssetGetCommandState()
	resetAssetListCommandState()
	resetCobraFlagState(VaultCmd)
	resetCobraFlagState(AssetCmd)
}

// resetCobraFlagState clears the Changed marker on every flag below c to prevent test pollution.
func resetCobraFlagState(c *cobra.Command) {
	c.PersistentFlags().VisitAll(func(flag *pflag.Flag) {
		flag.Changed = false
	})
	for _, sub := range c.Commands() {
		sub.Flags().VisitAll(func(flag *pflag.Flag) {
			flag.Changed = false
		})
	}
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}
