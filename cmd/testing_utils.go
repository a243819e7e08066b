// Package cmd contains testing utilities shared between command tests.
// This file provides common functions for setting up test environments,
// capturing output, and running commands through a fresh root command.
package cmd

import (
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PolarWolf314/inkvault/internal/configs"
	logger "github.com/PolarWolf314/inkvault/internal/logging"
	"github.com/spf13/cobra"
)

// setupTestEnvironment points the user config at a temp directory, clears the
// passphrase variables and returns a vault folder that does not exist yet.
func setupTestEnvironment(t *testing.T) string {
	t.Helper()

	originalUserSettings := configs.UserInkvaultSettings
	originalVaultSettings := configs.VaultInkvaultSettings
	t.Cleanup(func() {
		configs.UserInkvaultSettings = originalUserSettings
		configs.VaultInkvaultSettings = originalVaultSettings
		ResetGlobalState()
		ResetConfigState()
	})

	// Override user settings to use temp directory
	configs.UserInkvaultSettings = &configs.UserSettings{
		UserConfigsPath: filepath.Join(t.TempDir(), "config"),
		Username:        "testuser",
	}
	configs.VaultInkvaultSettings = &configs.VaultSettings{}

	t.Setenv(configs.VaultDirEnv, "")
	t.Setenv("NO_COLOR", "1")
	t.Setenv(passphraseEnv, "correct horse battery staple")
	t.Setenv(newPassphraseEnv, "correct horse battery staple")

	// A short poll interval keeps command waits quick.
	cfg := configs.DefaultUserConfig()
	cfg.Autosave.PollIntervalMS = 1
	if err := configs.SaveUserConfig(cfg); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	return filepath.Join(t.TempDir(), "vault")
}

// captureOutput captures both stdout and stderr during function execution.
func captureOutput(fn func() error) (string, error) {
	// Save original stdout and stderr
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	// Create pipes to capture output
	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	// Replace stdout and stderr
	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	// Channel to collect output
	outputChan := make(chan string, 2)

	// Start goroutines to read from pipes
	go func() {
		var buf bytes.Buffer
		_, err := io.Copy(&buf, stdoutReader)
		if err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		outputChan <- buf.String()
	}()

	go func() {
		var buf bytes.Buffer
		_, err := io.Copy(&buf, stderrReader)
		if err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		outputChan <- buf.String()
	}()

	// Execute the function
	err := fn()

	// Close writers to signal EOF
	stdoutWriter.Close()
	stderrWriter.Close()

	// Restore original stdout and stderr
	os.Stdout = originalStdout
	os.Stderr = originalStderr

	// Collect output
	stdout := <-outputChan
	stderr := <-outputChan

	return stdout + stderr, err
}

// createTestCLI creates a complete CLI instance for testing that runs args.
func createTestCLI(args ...string) *cobra.Command {
	ResetGlobalState()
	ResetConfigState()

	// Initialize the logger with the test flags
	Logger = logger.Logger{}
	ConfigLogger = logger.Logger{}

	// Create a fresh root command for this test
	rootCmd := &cobra.Command{
		Use:   "inkvault",
		Short: "inkvault - an encrypted vault for your notes.",
	}
	rootCmd.AddCommand(VaultCmd)
	rootCmd.AddCommand(AssetCmd)
	rootCmd.AddCommand(ConfigCmd)

	rootCmd.SetArgs(args)
	return rootCmd
}

// runCLI executes args and returns everything the command printed.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	return captureOutput(func() error {
		return createTestCLI(args...).ExecuteContext(ctx)
	})
}
