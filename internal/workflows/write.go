package workflows

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/PolarWolf314/inkvault/internal/audit"
	kerrors "github.com/PolarWolf314/inkvault/internal/errors"
	logger "github.com/PolarWolf314/inkvault/internal/logging"
)

// WriteOptions configures the write workflow.
type WriteOptions struct {
	VaultDir   string
	Passphrase []byte

	// Document replaces the vault plaintext. It must be JSON.
	Document string

	Logger logger.Logger
}

// WriteResult contains the outcome of a write operation.
type WriteResult struct {
	// Changed is false when Document matched the stored plaintext and
	// nothing was written.
	Changed bool
}

// Write replaces the vault document and saves it through the save coordinator.
//
// Returns ErrInvalidData if the document is not JSON.
func Write(ctx context.Context, opts WriteOptions) (*WriteResult, error) {
	if !json.Valid([]byte(opts.Document)) {
		return nil, fmt.Errorf("%w: document is not JSON", kerrors.ErrInvalidData)
	}

	s, c, err := openSession(opts.VaultDir, opts.Logger)
	if err != nil {
		return nil, err
	}
	defer closeSession(ctx, s, opts.Logger)

	if err := unlockSession(ctx, s, c, opts.Passphrase); err != nil {
		return nil, err
	}

	if s.Content() == opts.Document {
		opts.Logger.Infof("Document unchanged, nothing to write")
		return &WriteResult{Changed: false}, nil
	}

	s.SetContent(opts.Document)
	if err := saveAndWait(ctx, s, c); err != nil {
		return nil, err
	}

	audit.Log(audit.LogWithUser("write"))

	return &WriteResult{Changed: true}, nil
}
