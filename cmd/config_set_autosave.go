package cmd

import (
	"strconv"

	"github.com/PolarWolf314/inkvault/internal/configs"
	"github.com/PolarWolf314/inkvault/internal/ui"
	"github.com/spf13/cobra"
)

var (
	setAutosaveDebounceMS int
	setAutosavePollMS     int
)

func init() {
	setAutosaveCmd.Flags().IntVar(&setAutosaveDebounceMS, "debounce-ms", 0, "quiet period after the last edit before saving")
	setAutosaveCmd.Flags().IntVar(&setAutosavePollMS, "poll-ms", 0, "how often waiting commands check on background saves")
	setAutosaveCmd.MarkFlagsOneRequired("debounce-ms", "poll-ms")
	ConfigCmd.AddCommand(setAutosaveCmd)
}

func resetSetAutosaveState() {
	setAutosaveDebounceMS = 0
	setAutosavePollMS = 0
}

var setAutosaveCmd = &cobra.Command{
	Use:   "set-autosave",
	Short: "Tune autosave timing",
	Long: `Changes how long the vault waits after the last edit before saving, and how
often commands check on background saves. A value of 0 restores the default.

Examples:
  inkvault config set-autosave --debounce-ms 250
  inkvault config set-autosave --poll-ms 20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ConfigLogger.Infof("Starting config set-autosave command")
		spinner, cleanup := startSpinnerWithFlags("Updating configuration...", configVerbose, configDebug)
		defer cleanup()

		userConfig, err := configs.LoadUserConfig()
		if err != nil {
			return ConfigLogger.ErrorfAndReturn("Failed to load user config: %v", err)
		}

		defaults := configs.DefaultUserConfig()
		if cmd.Flags().Changed("debounce-ms") {
			userConfig.Autosave.DebounceMS = setAutosaveDebounceMS
			if setAutosaveDebounceMS == 0 {
				userConfig.Autosave.DebounceMS = defaults.Autosave.DebounceMS
			}
		}
		if cmd.Flags().Changed("poll-ms") {
			userConfig.Autosave.PollIntervalMS = setAutosavePollMS
			if setAutosavePollMS == 0 {
				userConfig.Autosave.PollIntervalMS = defaults.Autosave.PollIntervalMS
			}
		}

		if err := userConfig.Validate(); err != nil {
			spinner.FinalMSG = ui.Error.Sprint("✗") + " " + err.Error()
			return nil
		}
		if err := configs.SaveUserConfig(userConfig); err != nil {
			return ConfigLogger.ErrorfAndReturn("Failed to save user config: %v", err)
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Autosave updated" +
			"\n  " + ui.Field("Debounce", strconv.Itoa(userConfig.Autosave.DebounceMS)+"ms", 14) +
			"\n  " + ui.Field("Poll interval", strconv.Itoa(userConfig.Autosave.PollIntervalMS)+"ms", 14)
		return nil
	},
}
