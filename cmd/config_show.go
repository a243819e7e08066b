package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/PolarWolf314/inkvault/internal/configs"
	"github.com/PolarWolf314/inkvault/internal/ui"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var configShowJSON bool

func init() {
	configShowCmd.Flags().BoolVar(&configShowJSON, "json", false, "output in JSON format")
	ConfigCmd.AddCommand(configShowCmd)
}

// resetConfigShowState resets the config show command's global state for testing.
func resetConfigShowState() {
	configShowJSON = false
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Displays the current inkvault configuration, with defaults filled in for
settings the file does not name.

Examples:
  inkvault config show
  inkvault config show --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ConfigLogger.Infof("Starting config show command")
		ConfigLogger.Debugf("Loading user config from %s", configs.UserConfigPath())

		userConfig, err := configs.LoadUserConfig()
		if err != nil {
			return ConfigLogger.ErrorfAndReturn("Failed to load user config: %v", err)
		}

		if configShowJSON {
			ConfigLogger.Debugf("Outputting user config as JSON")
			return outputUserConfigJSON(userConfig)
		}

		return outputUserConfigText(userConfig)
	},
}

// outputUserConfigJSON outputs user config in JSON format.
func outputUserConfigJSON(config *configs.UserConfig) error {
	output, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return ConfigLogger.ErrorfAndReturn("Failed to marshal config to JSON: %v", err)
	}
	fmt.Println(string(output))
	return nil
}

// outputUserConfigText outputs user config in human-readable format.
func outputUserConfigText(config *configs.UserConfig) error {
	fmt.Println(color.CyanString("User Configuration") + " (" + configs.UserConfigPath() + "):")
	fmt.Println()

	vaultPath := ui.Muted.Sprint("not set")
	if config.Vault.Path != "" {
		vaultPath = ui.Path.Sprint(config.Vault.Path)
	}
	fmt.Println("  " + ui.Field("Vault", vaultPath, 14))
	fmt.Println("  " + ui.Field("Backups", ui.YesNo(config.Vault.Backups), 14))

	fmt.Println()
	fmt.Println(color.CyanString("Autosave:"))
	fmt.Println("  " + ui.Field("Debounce", strconv.Itoa(config.Autosave.DebounceMS)+"ms", 14))
	fmt.Println("  " + ui.Field("Poll interval", strconv.Itoa(config.Autosave.PollIntervalMS)+"ms", 14))

	return nil
}
