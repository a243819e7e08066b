package workflows

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/PolarWolf314/inkvault/internal/audit"
	"github.com/PolarWolf314/inkvault/internal/configs"
	"github.com/PolarWolf314/inkvault/internal/storage"
)

// StaleEntry is a temp file left behind by an interrupted write.
type StaleEntry struct {
	// FilePath is the absolute path to the leftover file.
	FilePath string

	// RelativePath is the path relative to the vault folder.
	RelativePath string

	Size int64
}

// CleanOptions configures the clean workflow.
type CleanOptions struct {
	VaultDir string

	// DryRun previews what would be removed without making changes.
	DryRun bool
}

// CleanResult contains the outcome of a clean operation.
type CleanResult struct {
	Stale []StaleEntry

	// RemovedCount is the number of files removed (0 if dry-run).
	RemovedCount int

	DryRun bool
}

// Clean removes temp files left by writes that never reached their rename,
// for example after a crash or power loss. The vault document and assets
// themselves are never touched.
func Clean(ctx context.Context, opts CleanOptions) (*CleanResult, error) {
	if err := configs.InitVaultSettings(opts.VaultDir); err != nil {
		return nil, err
	}
	settings := configs.VaultInkvaultSettings

	stale, err := findStaleEntries(settings)
	if err != nil {
		return nil, fmt.Errorf("finding stale files: %w", err)
	}

	result := &CleanResult{
		Stale:  stale,
		DryRun: opts.DryRun,
	}

	if len(stale) == 0 || opts.DryRun {
		return result, nil
	}

	for _, entry := range stale {
		if err := os.Remove(entry.FilePath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("removing %s: %w", entry.FilePath, err)
		}
		result.RemovedCount++
	}

	auditEntry := audit.LogWithUser("clean")
	auditEntry.RemovedCount = result.RemovedCount
	audit.Log(auditEntry)

	return result, nil
}

// findStaleEntries lists temp files in the vault folder and asset store.
func findStaleEntries(settings *configs.VaultSettings) ([]StaleEntry, error) {
	var stale []StaleEntry

	for _, dir := range []string{settings.VaultPath, settings.AssetsPath} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}

		for _, entry := range entries {
			if !entry.Type().IsRegular() || !storage.IsTempFile(entry.Name()) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			relPath, _ := filepath.Rel(settings.VaultPath, path)

			var size int64
			if info, err := entry.Info(); err == nil {
				size = info.Size()
			}
			stale = append(stale, StaleEntry{
				FilePath:     path,
				RelativePath: relPath,
				Size:         size,
			})
		}
	}

	return stale, nil
}
