package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PolarWolf314/inkvault/internal/ui"
	"github.com/PolarWolf314/inkvault/internal/utils"
	"github.com/PolarWolf314/inkvault/internal/workflows"
	"github.com/spf13/cobra"
)

var statusJSON bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output in JSON format")
	VaultCmd.AddCommand(statusCmd)
}

func resetStatusCommandState() {
	statusJSON = false
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the vault folder",
	Long: `Shows where the vault lives, whether it is encrypted, and what the asset
store holds. No passphrase is needed.

Examples:
  inkvault vault status
  inkvault vault status --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting status command")
		spinner, cleanup := startSpinner("Inspecting vault...")
		defer cleanup()

		result, err := workflows.Status(cmd.Context(), workflows.StatusOptions{VaultDir: vaultDir})
		if err != nil {
			return reportError(spinner, "inspect vault", err)
		}

		if statusJSON {
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return Logger.ErrorfAndReturn("Failed to marshal status to JSON: %v", err)
			}
			spinner.FinalMSG = string(data)
			return nil
		}

		spinner.FinalMSG = formatStatus(result)
		return nil
	},
}

func formatStatus(r *workflows.StatusResult) string {
	const width = 16
	var b strings.Builder

	fmt.Fprintf(&b, "Vault %s\n\n", ui.Highlight.Sprint(r.VaultName))
	fmt.Fprintln(&b, ui.Field("Location", ui.Path.Sprint(r.VaultPath), width))

	switch r.Format {
	case workflows.FormatMissing:
		fmt.Fprintln(&b, ui.Field("Document", ui.Warning.Sprint("not created"), width))
	case workflows.FormatLegacy:
		fmt.Fprintln(&b, ui.Field("Document", ui.Warning.Sprint("unencrypted (legacy)"), width))
	default:
		fmt.Fprintln(&b, ui.Field("Document", ui.Success.Sprint("encrypted"), width))
	}
	if !r.Modified.IsZero() {
		fmt.Fprintln(&b, ui.Field("Last saved", r.Modified.Local().Format("2006-01-02 15:04:05"), width))
	}
	fmt.Fprintln(&b, ui.Field("Backup", ui.YesNo(r.HasBackup), width))
	fmt.Fprintln(&b, ui.Field("Assets", strconv.Itoa(r.AssetCount)+" "+ui.Muted.Sprint(utils.FormatBytes(r.AssetBytes)), width))

	if r.PlaintextAssets > 0 {
		fmt.Fprintf(&b, "\n%s %d assets are stored unencrypted\n", ui.Warning.Sprint("⚠"), r.PlaintextAssets)
	}
	if len(r.StaleTempFiles) > 0 {
		fmt.Fprintf(&b, "\n%s Leftovers of interrupted saves:\n%s\n", ui.Warning.Sprint("⚠"), utils.FormatPaths(r.StaleTempFiles))
	}
	if r.Format == workflows.FormatMissing {
		fmt.Fprintf(&b, "\n%s Run %s to create it\n", ui.Info.Sprint("→"), ui.Code.Sprint("inkvault vault create"))
	}

	return b.String()
}
