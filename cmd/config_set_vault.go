package cmd

import (
	"os"
	"path/filepath"

	"github.com/PolarWolf314/inkvault/internal/configs"
	"github.com/PolarWolf314/inkvault/internal/ui"
	"github.com/spf13/cobra"
)

var (
	setVaultBackups   bool
	setVaultNoBackups bool
)

func init() {
	setVaultCmd.Flags().BoolVar(&setVaultBackups, "backups", false, "keep vault.json.bak before each save")
	setVaultCmd.Flags().BoolVar(&setVaultNoBackups, "no-backups", false, "stop writing vault.json.bak")
	setVaultCmd.MarkFlagsMutuallyExclusive("backups", "no-backups")
	ConfigCmd.AddCommand(setVaultCmd)
}

func resetSetVaultState() {
	setVaultBackups = false
	setVaultNoBackups = false
}

var setVaultCmd = &cobra.Command{
	Use:   "set-vault [dir]",
	Short: "Set the default vault folder",
	Long: `Stores the vault folder used when --vault and $INKVAULT_DIR are not given.
Without a directory only the backup setting is changed.

Examples:
  inkvault config set-vault ~/Documents/notes
  inkvault config set-vault --no-backups`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ConfigLogger.Infof("Starting config set-vault command")
		spinner, cleanup := startSpinnerWithFlags("Updating configuration...", configVerbose, configDebug)
		defer cleanup()

		userConfig, err := configs.LoadUserConfig()
		if err != nil {
			return ConfigLogger.ErrorfAndReturn("Failed to load user config: %v", err)
		}

		if len(args) == 1 {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return ConfigLogger.ErrorfAndReturn("Failed to resolve %s: %v", args[0], err)
			}
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				spinner.FinalMSG = ui.Error.Sprint("✗") + " " + ui.Path.Sprint(path) + " is not a directory"
				return nil
			}
			ConfigLogger.Debugf("Setting vault path to %s", path)
			userConfig.Vault.Path = path
		}
		if setVaultBackups {
			userConfig.Vault.Backups = true
		}
		if setVaultNoBackups {
			userConfig.Vault.Backups = false
		}

		if err := configs.SaveUserConfig(userConfig); err != nil {
			return ConfigLogger.ErrorfAndReturn("Failed to save user config: %v", err)
		}

		msg := ui.Success.Sprint("✓") + " Configuration updated"
		if userConfig.Vault.Path != "" {
			msg += "\n  " + ui.Field("Vault", ui.Path.Sprint(userConfig.Vault.Path), 8)
		}
		msg += "\n  " + ui.Field("Backups", ui.YesNo(userConfig.Vault.Backups), 8)
		spinner.FinalMSG = msg
		return nil
	},
}
