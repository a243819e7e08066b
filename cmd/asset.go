package cmd

import "github.com/spf13/cobra"

// AssetCmd groups the commands that work on encrypted attachments.
var AssetCmd = &cobra.Command{
	Use:   "asset",
	Short: "Add, list and extract encrypted attachments",
	Long: `Attachments live in the vault's assets/ folder, one encrypted file per
asset id. Notes refer to them by id.

Examples:
  inkvault asset add diagram.png scans/*.pdf
  inkvault asset list
  inkvault asset get 3f2a9c1e-7b4d-4e8a-9c55-0d1e2f3a4b5c.png -o diagram.png`,
	PersistentPreRun: initLogger,
}
