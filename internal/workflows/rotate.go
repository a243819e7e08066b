package workflows

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/PolarWolf314/inkvault/internal/audit"
	kerrors "github.com/PolarWolf314/inkvault/internal/errors"
	logger "github.com/PolarWolf314/inkvault/internal/logging"
	"github.com/PolarWolf314/inkvault/internal/secrets"
	"github.com/PolarWolf314/inkvault/internal/vault"
)

// RotateOptions configures the rotate workflow.
type RotateOptions struct {
	VaultDir string

	// CurrentPassphrase and NewPassphrase are wiped once used.
	CurrentPassphrase []byte
	NewPassphrase     []byte

	// RecoveryPassphrase, when set, opens assets that are still sealed under
	// an earlier passphrase after an incomplete rotation. It is wiped once used.
	RecoveryPassphrase []byte

	Logger logger.Logger
}

// RotateResult contains the outcome of a rotate operation.
type RotateResult struct {
	// AssetsMigrated is the number of assets rewritten under the new passphrase.
	AssetsMigrated int

	// AssetsTotal is the number of assets that needed rewriting.
	AssetsTotal int

	// Unmigrated lists assets still sealed under the previous passphrase.
	Unmigrated []string
}

// Rotate changes the vault passphrase, re-encrypting the vault document and
// every asset.
//
// Returns ErrWrongCurrentPassphrase if CurrentPassphrase does not open the vault.
// Returns ErrAssetMigrationIncomplete, together with a non-nil result, when
// the vault was committed under the new passphrase but some assets could not
// be written, even after one retry. Those assets keep their old contents. Run
// Rotate again with the new passphrase as current and new and the previous
// passphrase as RecoveryPassphrase to finish the job.
func Rotate(ctx context.Context, opts RotateOptions) (*RotateResult, error) {
	defer secrets.Wipe(opts.CurrentPassphrase)
	defer secrets.Wipe(opts.NewPassphrase)
	defer secrets.Wipe(opts.RecoveryPassphrase)

	if len(opts.NewPassphrase) == 0 {
		return nil, kerrors.ErrEmptyPassphrase
	}

	s, c, err := openSession(opts.VaultDir, opts.Logger)
	if err != nil {
		return nil, err
	}
	defer closeSession(ctx, s, opts.Logger)

	if err := unlockSession(ctx, s, c, bytes.Clone(opts.CurrentPassphrase)); err != nil {
		if errors.Is(err, kerrors.ErrDecryptionFailed) {
			return nil, kerrors.ErrWrongCurrentPassphrase
		}
		return nil, err
	}

	total := len(s.Assets())
	mark := len(c.events)
	if len(opts.RecoveryPassphrase) > 0 {
		s.SetRecoveryPassphrase(bytes.Clone(opts.RecoveryPassphrase))
	}
	if err := s.RotatePassphrase(bytes.Clone(opts.CurrentPassphrase), bytes.Clone(opts.NewPassphrase)); err != nil {
		return nil, err
	}
	if err := s.WaitIdle(ctx); err != nil {
		return nil, err
	}

	var outcome vault.Event
	found := false
	for _, e := range c.since(mark) {
		if e.Kind == vault.EventRotated || e.Kind == vault.EventRotationFailed {
			outcome, found = e, true
		}
	}
	if !found {
		return nil, fmt.Errorf("passphrase change did not report an outcome")
	}

	result := &RotateResult{AssetsMigrated: outcome.Assets, AssetsTotal: total}
	entry := audit.LogWithUser("rotate")
	entry.AssetsCount = outcome.Assets

	if outcome.Kind == vault.EventRotationFailed {
		if !errors.Is(outcome.Err, kerrors.ErrAssetMigrationIncomplete) {
			return nil, outcome.Err
		}
		written, retryErr := s.RetryAssetWrites()
		result.AssetsMigrated += written
		entry.AssetsCount = result.AssetsMigrated
		if retryErr != nil {
			result.Unmigrated = s.PendingAssetWrites()
			entry.FailedCount = len(result.Unmigrated)
			entry.Assets = result.Unmigrated
			audit.Log(entry)
			return result, retryErr
		}
		opts.Logger.Infof("Rewrote %d assets on retry", written)
	}

	audit.Log(entry)
	return result, nil
}
