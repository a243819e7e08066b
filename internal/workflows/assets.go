package workflows

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/PolarWolf314/inkvault/internal/assets"
	"github.com/PolarWolf314/inkvault/internal/audit"
	"github.com/PolarWolf314/inkvault/internal/configs"
	kerrors "github.com/PolarWolf314/inkvault/internal/errors"
	logger "github.com/PolarWolf314/inkvault/internal/logging"
	"github.com/PolarWolf314/inkvault/internal/secrets"
	"github.com/PolarWolf314/inkvault/internal/storage"
)

// AddAssetsOptions configures the asset add workflow.
type AddAssetsOptions struct {
	VaultDir   string
	Passphrase []byte

	// Patterns are files, directories or glob patterns to import.
	Patterns []string

	// BaseDir resolves relative patterns. Defaults to the working directory.
	BaseDir string

	Logger logger.Logger
}

// AddAssetsResult contains the outcome of an asset add operation.
type AddAssetsResult struct {
	Added []assets.Meta

	// Sources maps each new asset id to the file it came from.
	Sources map[string]string
}

// AddAssets encrypts files into the vault's asset store under fresh ids.
//
// Returns ErrNoFilesFound if the patterns match nothing.
func AddAssets(ctx context.Context, opts AddAssetsOptions) (*AddAssetsResult, error) {
	baseDir := opts.BaseDir
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		baseDir = wd
	}

	files, err := assets.ResolveFiles(opts.Patterns, baseDir)
	if err != nil {
		return nil, err
	}
	opts.Logger.Debugf("Resolved %d files to import", len(files))

	s, c, err := openSession(opts.VaultDir, opts.Logger)
	if err != nil {
		return nil, err
	}
	defer closeSession(ctx, s, opts.Logger)

	if err := unlockSession(ctx, s, c, opts.Passphrase); err != nil {
		return nil, err
	}

	result := &AddAssetsResult{Sources: make(map[string]string, len(files))}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		data, err := storage.ReadFile(path)
		if err != nil {
			return result, err
		}
		meta, err := s.AddAsset(filepath.Base(path), data)
		secrets.Wipe(data)
		if err != nil {
			return result, err
		}
		opts.Logger.Infof("Stored %s as %s", path, meta.ID)
		result.Added = append(result.Added, meta)
		result.Sources[meta.ID] = path
	}

	entry := audit.LogWithUser("asset-add")
	for _, m := range result.Added {
		entry.Assets = append(entry.Assets, m.ID)
	}
	audit.Log(entry)

	return result, nil
}

// GetAssetOptions configures the asset get workflow.
type GetAssetOptions struct {
	VaultDir   string
	Passphrase []byte
	ID         string

	// OutputPath receives the plaintext. Empty returns it in the result only.
	OutputPath string

	Logger logger.Logger
}

// GetAssetResult contains a decrypted asset.
type GetAssetResult struct {
	Meta assets.Meta
	Data []byte
}

// GetAsset decrypts one asset.
//
// Returns ErrInvalidAssetID for ids that could escape the asset directory.
// Returns ErrAssetNotFound if no asset file exists for the id.
func GetAsset(ctx context.Context, opts GetAssetOptions) (*GetAssetResult, error) {
	if err := assets.ValidateID(opts.ID); err != nil {
		return nil, err
	}

	s, c, err := openSession(opts.VaultDir, opts.Logger)
	if err != nil {
		return nil, err
	}
	defer closeSession(ctx, s, opts.Logger)

	if err := unlockSession(ctx, s, c, opts.Passphrase); err != nil {
		return nil, err
	}

	data, err := s.ReadAsset(opts.ID)
	if err != nil {
		return nil, err
	}

	meta := assets.Meta{ID: opts.ID, Filename: opts.ID, MIMEType: assets.DetectMIME(opts.ID), Size: int64(len(data))}
	for _, m := range s.Assets() {
		if m.ID == opts.ID {
			meta.CreatedAt = m.CreatedAt
		}
	}

	entry := audit.LogWithUser("asset-get")
	entry.Assets = []string{opts.ID}

	if opts.OutputPath != "" {
		if err := storage.WriteFile(opts.OutputPath, data, 0600); err != nil {
			return nil, err
		}
		entry.Path = opts.OutputPath
	}
	audit.Log(entry)

	return &GetAssetResult{Meta: meta, Data: data}, nil
}

// ListAssetsOptions configures the asset list workflow.
type ListAssetsOptions struct {
	VaultDir string
}

// AssetInfo is one listed asset.
type AssetInfo struct {
	assets.Meta
	Encrypted bool
}

// ListAssets lists the asset store without decrypting anything.
func ListAssets(ctx context.Context, opts ListAssetsOptions) ([]AssetInfo, error) {
	if err := configs.InitVaultSettings(opts.VaultDir); err != nil {
		return nil, err
	}
	settings := configs.VaultInkvaultSettings
	if !settings.VaultExists() {
		return nil, kerrors.ErrVaultNotFound
	}

	store := assets.NewStore(settings.AssetsPath)
	metas, err := store.List()
	if err != nil {
		return nil, err
	}

	infos := make([]AssetInfo, 0, len(metas))
	for _, m := range metas {
		info := AssetInfo{Meta: m}
		if raw, err := store.Read(m.ID); err == nil {
			info.Encrypted = secrets.IsEncrypted(raw)
		}
		infos = append(infos, info)
	}
	return infos, nil
}
