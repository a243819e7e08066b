package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/PolarWolf314/inkvault/internal/audit"
	kerrors "github.com/PolarWolf314/inkvault/internal/errors"
	logger "github.com/PolarWolf314/inkvault/internal/logging"
)

// EditOptions configures the edit workflow.
type EditOptions struct {
	VaultDir   string
	Passphrase []byte

	// Editor is the command line used to edit the document, e.g. "vim" or "code -w".
	Editor string

	Logger logger.Logger
}

// EditResult contains the outcome of an edit operation.
type EditResult struct {
	Changed bool
}

// runEditor is swapped out in tests.
var runEditor = editInTempFile

// Edit decrypts the vault document into a private temp file, opens it in an
// editor and saves the result if it changed. The temp file is overwritten
// and removed afterwards.
//
// Returns ErrInvalidData if the edited document is not JSON; the vault is
// left untouched in that case.
func Edit(ctx context.Context, opts EditOptions) (*EditResult, error) {
	s, c, err := openSession(opts.VaultDir, opts.Logger)
	if err != nil {
		return nil, err
	}
	defer closeSession(ctx, s, opts.Logger)

	if err := unlockSession(ctx, s, c, opts.Passphrase); err != nil {
		return nil, err
	}

	original := s.Content()
	edited, err := runEditor(ctx, opts.Editor, original)
	if err != nil {
		return nil, err
	}
	edited = strings.TrimRight(edited, "\r\n")

	if edited == original {
		opts.Logger.Infof("Document unchanged")
		return &EditResult{Changed: false}, nil
	}
	if !json.Valid([]byte(edited)) {
		return nil, fmt.Errorf("%w: edited document is not JSON", kerrors.ErrInvalidData)
	}

	// The editor has exited and the user is waiting; write before returning.
	s.SetContent(edited)
	if err := s.SaveSync(); err != nil {
		return nil, err
	}

	audit.Log(audit.LogWithUser("edit"))

	return &EditResult{Changed: true}, nil
}

func editInTempFile(ctx context.Context, editor, doc string) (string, error) {
	args := strings.Fields(editor)
	if len(args) == 0 {
		return "", fmt.Errorf("no editor configured (hint: set $EDITOR)")
	}

	// CreateTemp opens the file with mode 0600.
	f, err := os.CreateTemp("", "inkvault-*.json")
	if err != nil {
		return "", kerrors.Op(kerrors.OpWrite, os.TempDir(), err)
	}
	path := f.Name()
	defer scrubFile(path)

	if _, err := f.WriteString(doc + "\n"); err != nil {
		f.Close()
		return "", kerrors.Op(kerrors.OpWrite, path, err)
	}
	if err := f.Close(); err != nil {
		return "", kerrors.Op(kerrors.OpWrite, path, err)
	}

	cmd := exec.CommandContext(ctx, args[0], append(args[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("running editor %q: %w", args[0], err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", kerrors.Op(kerrors.OpRead, path, err)
	}
	return string(data), nil
}

// scrubFile overwrites a plaintext temp file with zeros before removing it.
func scrubFile(path string) {
	if info, err := os.Stat(path); err == nil {
		if f, err := os.OpenFile(path, os.O_WRONLY, 0); err == nil {
			_, _ = f.Write(make([]byte, info.Size()))
			_ = f.Sync()
			f.Close()
		}
	}
	_ = os.Remove(path)
}
