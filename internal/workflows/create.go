package workflows

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/PolarWolf314/inkvault/internal/audit"
	"github.com/PolarWolf314/inkvault/internal/configs"
	kerrors "github.com/PolarWolf314/inkvault/internal/errors"
	logger "github.com/PolarWolf314/inkvault/internal/logging"
	"github.com/PolarWolf314/inkvault/internal/vault"
)

// CreateOptions configures the create workflow.
type CreateOptions struct {
	// VaultDir overrides the configured vault folder.
	VaultDir string

	// Passphrase protects the new vault. It is wiped once used.
	Passphrase []byte

	// Document is the initial plaintext. Empty selects an empty note tree.
	Document string

	Logger logger.Logger
}

// CreateResult contains the outcome of a create operation.
type CreateResult struct {
	VaultPath string
	VaultFile string
}

// Create writes a new encrypted vault.
//
// Returns ErrVaultExists if the folder already holds a vault document.
// Returns ErrEmptyPassphrase if no passphrase was given.
func Create(ctx context.Context, opts CreateOptions) (*CreateResult, error) {
	if len(opts.Passphrase) == 0 {
		return nil, kerrors.ErrEmptyPassphrase
	}
	if opts.Document != "" && !json.Valid([]byte(opts.Document)) {
		return nil, fmt.Errorf("%w: initial document is not JSON", kerrors.ErrInvalidData)
	}

	s, c, err := openSession(opts.VaultDir, opts.Logger)
	if err != nil {
		return nil, err
	}
	defer closeSession(ctx, s, opts.Logger)

	settings := configs.VaultInkvaultSettings
	if settings.VaultExists() {
		return nil, kerrors.ErrVaultExists
	}

	mark := len(c.events)
	if err := s.BeginCreate(opts.Passphrase, opts.Document); err != nil {
		return nil, err
	}
	if err := s.WaitIdle(ctx); err != nil {
		return nil, err
	}
	if err := c.failure(mark); err != nil {
		return nil, err
	}

	entry := audit.LogWithUser("create")
	entry.Path = settings.VaultPath
	audit.Log(entry)

	return &CreateResult{
		VaultPath: settings.VaultPath,
		VaultFile: vault.VaultPath(settings.VaultPath),
	}, nil
}
