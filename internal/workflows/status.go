package workflows

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/PolarWolf314/inkvault/internal/assets"
	"github.com/PolarWolf314/inkvault/internal/configs"
	"github.com/PolarWolf314/inkvault/internal/secrets"
	"github.com/PolarWolf314/inkvault/internal/storage"
	"github.com/PolarWolf314/inkvault/internal/utils"
)

// VaultFormat describes how the vault document is stored on disk.
type VaultFormat string

const (
	FormatMissing   VaultFormat = "missing"
	FormatEncrypted VaultFormat = "encrypted"
	// FormatLegacy is an unencrypted document from before encryption existed.
	FormatLegacy VaultFormat = "legacy"
)

// StatusOptions configures the status workflow.
type StatusOptions struct {
	VaultDir string
}

// StatusResult describes a vault folder without decrypting anything.
type StatusResult struct {
	VaultName string
	VaultPath string
	Format    VaultFormat

	// Modified is the vault document's modification time.
	Modified time.Time

	HasBackup bool

	AssetCount int
	AssetBytes int64

	// PlaintextAssets counts assets stored without an envelope.
	PlaintextAssets int

	// StaleTempFiles are leftovers of interrupted writes.
	StaleTempFiles []string
}

// Status inspects the resolved vault folder. It needs no passphrase.
func Status(ctx context.Context, opts StatusOptions) (*StatusResult, error) {
	if err := configs.InitVaultSettings(opts.VaultDir); err != nil {
		return nil, err
	}
	settings := configs.VaultInkvaultSettings

	result := &StatusResult{
		VaultName: utils.VaultName(settings.VaultPath),
		VaultPath: settings.VaultPath,
		Format:    FormatMissing,
	}

	if info, err := os.Stat(settings.VaultFile); err == nil && info.Mode().IsRegular() {
		result.Modified = info.ModTime()
		raw, err := storage.ReadFile(settings.VaultFile)
		if err != nil {
			return nil, err
		}
		if secrets.IsEncrypted(raw) {
			result.Format = FormatEncrypted
		} else {
			result.Format = FormatLegacy
		}
	}

	if _, err := os.Stat(settings.BackupFile); err == nil {
		result.HasBackup = true
	}

	store := assets.NewStore(settings.AssetsPath)
	metas, err := store.List()
	if err != nil {
		return nil, err
	}
	for _, m := range metas {
		result.AssetCount++
		result.AssetBytes += m.Size
		if raw, err := store.Read(m.ID); err == nil && !secrets.IsEncrypted(raw) {
			result.PlaintextAssets++
		}
	}

	for _, dir := range []string{settings.VaultPath, settings.AssetsPath} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if storage.IsTempFile(e.Name()) {
				result.StaleTempFiles = append(result.StaleTempFiles, filepath.Join(dir, e.Name()))
			}
		}
	}

	return result, nil
}
