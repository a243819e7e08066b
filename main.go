package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/PolarWolf314/inkvault/cmd"
	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "inkvault",
	Short: "inkvault - an encrypted vault for your notes.",
	Long: `inkvault keeps a notes document and its attachments encrypted at rest.

The vault is a folder holding vault.json, sealed with AES-256-GCM under a key
derived from your passphrase, and an assets/ folder of encrypted attachments.
Every save goes through a temp file and an atomic rename, so an interrupted
write never leaves a half-written vault behind.

Usage:
  inkvault <command> [flags]

Available Commands:
  vault      Create, read, edit and re-key the vault document
  asset      Add, list and extract encrypted attachments
  config     Manage user configuration

Run 'inkvault help <command>' for more details on a specific command.
`,
	Run: func(cmd *cobra.Command, args []string) {
		banner := figure.NewColorFigure("inkvault", "small", "cyan", true)
		banner.Print()
		fmt.Println()
		fmt.Println("Run 'inkvault --help' to see available commands.")
	},
}

func init() {
	rootCmd.AddCommand(cmd.VaultCmd)
	rootCmd.AddCommand(cmd.AssetCmd)
	rootCmd.AddCommand(cmd.ConfigCmd)
}

func main() {
	// Interrupts cancel the context; commands stop waiting on the session.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		stop()
		os.Exit(1)
	}
}
