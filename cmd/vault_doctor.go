package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/PolarWolf314/inkvault/internal/ui"
	"github.com/PolarWolf314/inkvault/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	doctorJSONOutput bool
	// doctorExitFunc is the function called to exit with a specific code.
	// Can be overridden for testing.
	doctorExitFunc = os.Exit
)

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSONOutput, "json", false, "output in JSON format")
	VaultCmd.AddCommand(doctorCmd)
}

// resetDoctorCommandState resets flags only; tests swap the exit function
// with SetDoctorExitFunc and restore it themselves.
func resetDoctorCommandState() {
	doctorJSONOutput = false
}

// SetDoctorExitFunc sets the exit function for testing purposes.
func SetDoctorExitFunc(f func(int)) {
	doctorExitFunc = f
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks on the vault folder",
	Long: `Runs a series of health checks on the vault folder and reports issues.
Nothing is decrypted, so no passphrase is needed.

The doctor command checks:
  - User configuration validity
  - Vault location and document format
  - Vault document permissions
  - Backup presence
  - Asset encryption and naming
  - Leftovers of interrupted writes

Exit codes:
  0 - All checks passed
  1 - Warnings found (non-critical issues)
  2 - Errors found (critical issues)

Use --json for machine-readable output.`,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting doctor command")

	spinner, cleanup := startSpinner("Running health checks...")

	result, err := workflows.Doctor(cmd.Context(), workflows.DoctorOptions{VaultDir: vaultDir})
	if err != nil {
		spinner.FinalMSG = ui.Error.Sprint("✗") + " Failed to run health checks: " + err.Error()
		cleanup()
		return err
	}

	for _, check := range result.Checks {
		Logger.Debugf("Check %s: status=%s, message=%s", check.Name, check.Status.String(), check.Message)
	}

	if doctorJSONOutput {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			cleanup()
			return Logger.ErrorfAndReturn("Failed to marshal results to JSON: %v", err)
		}
		spinner.FinalMSG = string(data)
	} else {
		spinner.FinalMSG = formatDoctorResults(result)
	}

	// The report must be printed before a non-zero exit.
	cleanup()

	if result.Summary.Errors > 0 {
		doctorExitFunc(2)
	} else if result.Summary.Warnings > 0 {
		doctorExitFunc(1)
	}
	return nil
}

// formatDoctorResults renders the doctor results in a human-readable format.
func formatDoctorResults(result *workflows.DoctorResult) string {
	var b strings.Builder

	for _, check := range result.Checks {
		var statusIcon string
		switch check.Status {
		case workflows.CheckPass:
			statusIcon = ui.Success.Sprint("✓")
		case workflows.CheckWarning:
			statusIcon = ui.Warning.Sprint("⚠")
		case workflows.CheckError:
			statusIcon = ui.Error.Sprint("✗")
		}
		fmt.Fprintf(&b, "%s %s\n", statusIcon, check.Message)
	}

	fmt.Fprintf(&b, "\nSummary: %d passed", result.Summary.Passed)
	if result.Summary.Warnings > 0 {
		fmt.Fprintf(&b, ", %s", ui.Warning.Sprintf("%d warning(s)", result.Summary.Warnings))
	}
	if result.Summary.Errors > 0 {
		fmt.Fprintf(&b, ", %s", ui.Error.Sprintf("%d error(s)", result.Summary.Errors))
	}
	b.WriteString("\n")

	if len(result.Suggestions) > 0 {
		b.WriteString("\nSuggestions:\n")
		for _, suggestion := range result.Suggestions {
			fmt.Fprintf(&b, "  %s %s\n", ui.Info.Sprint("→"), suggestion)
		}
	}

	return b.String()
}
