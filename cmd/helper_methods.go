package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	kerrors "github.com/PolarWolf314/inkvault/internal/errors"
	"github.com/PolarWolf314/inkvault/internal/ui"
	"github.com/PolarWolf314/inkvault/internal/utils"
	"github.com/briandowns/spinner"
)

// Environment variables that replace the interactive passphrase prompts.
const (
	passphraseEnv         = "INKVAULT_PASSPHRASE"
	newPassphraseEnv      = "INKVAULT_NEW_PASSPHRASE"
	previousPassphraseEnv = "INKVAULT_PREVIOUS_PASSPHRASE"
)

// startSpinner creates and starts a spinner with the given message when not in verbose or debug mode.
// Returns the spinner and a function that should be deferred to clean up.
//
// IMPORTANT: spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// automatically calls ui.EnsureNewline() on the final message before printing it.
func startSpinner(message string) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	return startSpinnerWithFlags(message, verbose, debug)
}

// startSpinnerWithFlags creates and starts a spinner with explicit verbose and debug flags.
// This is useful for commands that have their own flag variables (e.g., config commands).
func startSpinnerWithFlags(message string, verboseFlag, debugFlag bool) (*spinner.Spinner, func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = os.Stderr

	// Ignore color errors - continue without colored spinner if it fails.
	_ = s.Color("cyan")

	quiet := !verboseFlag && !debugFlag
	if quiet {
		s.Start()
		// Ensure log output is discarded unless in verbose mode.
		log.SetOutput(io.Discard)
	}

	cleanup := func() {
		if quiet {
			log.SetOutput(os.Stdout)
		}

		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		if quiet {
			s.Stop()
		}

		// Print final message to stdout (for tests to capture).
		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}

	return s, cleanup
}

// pauseSpinner stops a running spinner so a prompt can use the terminal.
// The returned function resumes it.
func pauseSpinner(s *spinner.Spinner) func() {
	if s == nil || !s.Active() {
		return func() {}
	}
	s.Stop()
	return s.Restart
}

// readPassphrase returns the passphrase from env or prompts for it.
func readPassphrase(s *spinner.Spinner, env, prompt string) ([]byte, error) {
	if v, ok := os.LookupEnv(env); ok {
		Logger.Debugf("Using passphrase from $%s", env)
		if v == "" {
			return nil, kerrors.ErrEmptyPassphrase
		}
		return []byte(v), nil
	}

	resume := pauseSpinner(s)
	defer resume()

	read := utils.ReadPassphrase
	if !utils.IsTerminal() {
		read = utils.ReadPassphraseFromTTY
	}
	passphrase, err := read(prompt)
	if err != nil {
		return nil, err
	}
	if len(passphrase) == 0 {
		return nil, kerrors.ErrEmptyPassphrase
	}
	return passphrase, nil
}

// readNewPassphrase returns the new passphrase from env or prompts for it twice.
func readNewPassphrase(s *spinner.Spinner, env, prompt string) ([]byte, error) {
	if v, ok := os.LookupEnv(env); ok {
		Logger.Debugf("Using new passphrase from $%s", env)
		if v == "" {
			return nil, kerrors.ErrEmptyPassphrase
		}
		return []byte(v), nil
	}

	resume := pauseSpinner(s)
	defer resume()

	return utils.ReadNewPassphrase(prompt, "Repeat passphrase: ")
}

// confirm asks a yes/no question on stdin. Anything but y/yes is a no.
func confirm(s *spinner.Spinner, question string) bool {
	resume := pauseSpinner(s)
	defer resume()

	fmt.Print(question + " [y/N]: ")
	response, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		Logger.Errorf("Failed to read response: %v", err)
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

// formatVaultError formats an error for display to the user.
func formatVaultError(action string, err error) string {
	fail := ui.Error.Sprint("✗") + " "
	hint := "\n" + ui.Info.Sprint("→") + " "

	switch {
	case errors.Is(err, kerrors.ErrNoVaultLocation):
		return fail + "No vault location configured" +
			hint + "Pass " + ui.Flag.Sprint("--vault") + " or run " + ui.Code.Sprint("inkvault config set-vault DIR")

	case errors.Is(err, kerrors.ErrVaultNotFound):
		return fail + "No vault found" +
			hint + "Run " + ui.Code.Sprint("inkvault vault create") + " first"

	case errors.Is(err, kerrors.ErrVaultExists):
		return fail + "A vault already exists here" +
			hint + "Use " + ui.Code.Sprint("inkvault vault rotate") + " to change its passphrase"

	case errors.Is(err, kerrors.ErrWrongCurrentPassphrase):
		return fail + "The current passphrase is wrong; nothing was changed"

	case errors.Is(err, kerrors.ErrDecryptionFailed):
		return fail + kerrors.ErrDecryptionFailed.Error()

	case errors.Is(err, kerrors.ErrAssetMigrationIncomplete):
		return ui.Warning.Sprint("⚠") + " " + err.Error() +
			hint + "The vault now uses the new passphrase. Run " + ui.Code.Sprint("inkvault vault rotate --recover") +
			" with the new passphrase as current and new, and the old one as the previous passphrase"

	case errors.Is(err, kerrors.ErrLegacyVault):
		return fail + "The vault document is still stored unencrypted" +
			hint + "Run " + ui.Code.Sprint("inkvault vault edit") + " and save to encrypt it first"

	case errors.Is(err, kerrors.ErrPassphraseMismatch), errors.Is(err, kerrors.ErrEmptyPassphrase),
		errors.Is(err, kerrors.ErrInvalidAssetID), errors.Is(err, kerrors.ErrAssetNotFound),
		errors.Is(err, kerrors.ErrInvalidData), errors.Is(err, kerrors.ErrNoFilesFound),
		errors.Is(err, kerrors.ErrInvalidDateFormat), errors.Is(err, kerrors.ErrFileNotFound),
		errors.Is(err, kerrors.ErrInvalidFileType), errors.Is(err, kerrors.ErrInvalidArchive):
		return fail + err.Error()

	default:
		return fail + "Failed to " + action + ": " + err.Error()
	}
}

// isUnexpectedError returns true if the error is unexpected and should cause a non-zero exit.
func isUnexpectedError(err error) bool {
	for _, expected := range []error{
		kerrors.ErrNoVaultLocation,
		kerrors.ErrVaultNotFound,
		kerrors.ErrVaultExists,
		kerrors.ErrWrongCurrentPassphrase,
		kerrors.ErrDecryptionFailed,
		kerrors.ErrPassphraseMismatch,
		kerrors.ErrEmptyPassphrase,
		kerrors.ErrInvalidAssetID,
		kerrors.ErrAssetNotFound,
		kerrors.ErrInvalidData,
		kerrors.ErrNoFilesFound,
		kerrors.ErrInvalidDateFormat,
		kerrors.ErrLegacyVault,
		kerrors.ErrFileNotFound,
		kerrors.ErrInvalidFileType,
		kerrors.ErrInvalidArchive,
	} {
		if errors.Is(err, expected) {
			return false
		}
	}
	return true
}

// reportError sets the spinner's final message for err and returns the
// error only when it should cause a non-zero exit.
func reportError(s *spinner.Spinner, action string, err error) error {
	Logger.Debugf("%s failed: %v", action, err)
	s.FinalMSG = formatVaultError(action, err)
	if isUnexpectedError(err) {
		return err
	}
	return nil
}
