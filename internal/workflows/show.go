package workflows

import (
	"context"

	"github.com/PolarWolf314/inkvault/internal/audit"
	"github.com/PolarWolf314/inkvault/internal/configs"
	logger "github.com/PolarWolf314/inkvault/internal/logging"
	"github.com/PolarWolf314/inkvault/internal/secrets"
	"github.com/PolarWolf314/inkvault/internal/storage"
)

// ShowOptions configures the show workflow.
type ShowOptions struct {
	VaultDir   string
	Passphrase []byte
	Logger     logger.Logger
}

// ShowResult contains the decrypted vault document.
type ShowResult struct {
	Document string

	// Legacy is true when the file on disk is still unencrypted; it will be
	// encrypted by the next write.
	Legacy bool
}

// Show decrypts the vault document.
//
// Returns ErrVaultNotFound if there is no vault at the resolved location.
// Returns ErrDecryptionFailed for a wrong passphrase or corrupted file.
func Show(ctx context.Context, opts ShowOptions) (*ShowResult, error) {
	s, c, err := openSession(opts.VaultDir, opts.Logger)
	if err != nil {
		return nil, err
	}
	defer closeSession(ctx, s, opts.Logger)

	if err := unlockSession(ctx, s, c, opts.Passphrase); err != nil {
		return nil, err
	}

	legacy := false
	if raw, err := storage.ReadFile(configs.VaultInkvaultSettings.VaultFile); err == nil {
		legacy = !secrets.IsEncrypted(raw)
	}

	audit.Log(audit.LogWithUser("show"))

	return &ShowResult{Document: s.Content(), Legacy: legacy}, nil
}
