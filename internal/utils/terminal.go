package utils

import (
	"bytes"
	"fmt"
	"os"
	"runtime"

	kerrors "github.com/PolarWolf314/inkvault/internal/errors"
	"github.com/PolarWolf314/inkvault/internal/secrets"
	"golang.org/x/term"
)

// ReadPassphrase prompts the user for a passphrase without echoing input.
// Returns an error if stdin is not a terminal.
func ReadPassphrase(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())

	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("cannot read passphrase: stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, prompt)
	passphrase, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr) // Add newline after hidden input

	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}

	return passphrase, nil
}

// ReadPassphraseFromTTY prompts the user for a passphrase from /dev/tty (or CON on Windows).
// This is useful when stdin is being used for other input (e.g., piping a private key).
// Returns an error if /dev/tty cannot be opened.
func ReadPassphraseFromTTY(prompt string) ([]byte, error) {
	ttyPath := "/dev/tty"
	if runtime.GOOS == "windows" {
		ttyPath = "CON"
	}

	tty, err := os.Open(ttyPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s for passphrase input: %w", ttyPath, err)
	}
	defer tty.Close()

	fd := int(tty.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("%s is not a terminal", ttyPath)
	}

	fmt.Fprint(os.Stderr, prompt)
	passphrase, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr) // Add newline after hidden input

	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}

	return passphrase, nil
}

// IsTerminal returns true if stdin is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ReadNewPassphrase prompts twice for a new passphrase and checks that both
// entries match. Uses /dev/tty when stdin is not a terminal.
func ReadNewPassphrase(prompt, confirmPrompt string) ([]byte, error) {
	read := ReadPassphrase
	if !IsTerminal() {
		read = ReadPassphraseFromTTY
	}

	first, err := read(prompt)
	if err != nil {
		return nil, err
	}
	if len(first) == 0 {
		return nil, kerrors.ErrEmptyPassphrase
	}

	second, err := read(confirmPrompt)
	if err != nil {
		secrets.Wipe(first)
		return nil, err
	}
	defer secrets.Wipe(second)

	if !bytes.Equal(first, second) {
		secrets.Wipe(first)
		return nil, kerrors.ErrPassphraseMismatch
	}
	return first, nil
}
