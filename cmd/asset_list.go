package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PolarWolf314/inkvault/internal/ui"
	"github.com/PolarWolf314/inkvault/internal/utils"
	"github.com/PolarWolf314/inkvault/internal/workflows"
	"github.com/spf13/cobra"
)

var assetListJSON bool

func init() {
	assetListCmd.Flags().BoolVar(&assetListJSON, "json", false, "output as JSON array")
	AssetCmd.AddCommand(assetListCmd)
}

func resetAssetListCommandState() {
	assetListJSON = false
}

var assetListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List stored assets",
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting asset list command")
		spinner, cleanup := startSpinner("Listing assets...")
		defer cleanup()

		infos, err := workflows.ListAssets(cmd.Context(), workflows.ListAssetsOptions{VaultDir: vaultDir})
		if err != nil {
			return reportError(spinner, "list assets", err)
		}

		if assetListJSON {
			if infos == nil {
				infos = []workflows.AssetInfo{}
			}
			data, err := json.MarshalIndent(infos, "", "  ")
			if err != nil {
				return Logger.ErrorfAndReturn("Failed to marshal assets to JSON: %v", err)
			}
			spinner.FinalMSG = string(data)
			return nil
		}

		if len(infos) == 0 {
			spinner.FinalMSG = ui.Info.Sprint("ℹ") + " No assets stored"
			return nil
		}

		var b strings.Builder
		for _, info := range infos {
			state := ""
			if !info.Encrypted {
				state = " " + ui.Warning.Sprint("unencrypted")
			}
			fmt.Fprintf(&b, "%-48s %10s  %s%s\n", info.ID, utils.FormatBytes(info.Size), info.MIMEType, state)
		}
		fmt.Fprintf(&b, "%s", ui.Muted.Sprintf("%d assets", len(infos)))
		spinner.FinalMSG = b.String()
		return nil
	},
}
