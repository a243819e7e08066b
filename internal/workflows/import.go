package workflows

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/PolarWolf314/inkvault/internal/assets"
	"github.com/PolarWolf314/inkvault/internal/audit"
	"github.com/PolarWolf314/inkvault/internal/configs"
	kerrors "github.com/PolarWolf314/inkvault/internal/errors"
	"github.com/PolarWolf314/inkvault/internal/secrets"
	"github.com/PolarWolf314/inkvault/internal/storage"
	"github.com/PolarWolf314/inkvault/internal/vault"
)

// maxArchiveEntry bounds the size of a single extracted file.
const maxArchiveEntry = 1 << 30

// ImportMode represents the import strategy.
type ImportMode int

const (
	// ImportModeMerge adds files missing from the vault folder and keeps existing ones.
	ImportModeMerge ImportMode = iota
	// ImportModeReplace backs up the current vault document, drops the asset
	// store and restores everything from the archive.
	ImportModeReplace
)

// String returns the audit log name of the mode.
func (m ImportMode) String() string {
	if m == ImportModeReplace {
		return "replace"
	}
	return "merge"
}

// ImportOptions configures the import workflow.
type ImportOptions struct {
	VaultDir string

	// ArchivePath is the path to the tar.gz archive.
	ArchivePath string

	// Mode is the import strategy (merge or replace).
	Mode ImportMode

	// DryRun previews the import without making changes.
	DryRun bool
}

// ImportResult contains the outcome of an import operation.
type ImportResult struct {
	// FilesAdded is the count of new files added (merge mode).
	FilesAdded int

	// FilesSkipped is the count of files skipped because they exist (merge mode).
	FilesSkipped int

	// FilesReplaced is the count of files extracted (replace mode).
	FilesReplaced int

	// TotalFiles is the total number of files in the archive.
	TotalFiles int

	DryRun bool
	Mode   ImportMode
}

// ImportPreCheckResult contains information from validating the archive.
type ImportPreCheckResult struct {
	ArchiveFiles []string

	// VaultExists indicates whether the target folder already holds a vault.
	VaultExists bool

	VaultPath string
}

// ImportPreCheck validates the archive and checks the target vault folder, so
// the caller can pick a mode before anything is written.
//
// Returns ErrFileNotFound if the archive doesn't exist.
// Returns ErrInvalidFileType if the archive is not a valid gzip file.
// Returns ErrInvalidArchive if the archive structure is invalid.
func ImportPreCheck(ctx context.Context, vaultDir, archivePath string) (*ImportPreCheckResult, error) {
	archiveFiles, err := readArchiveIndex(archivePath)
	if err != nil {
		return nil, err
	}

	if err := configs.InitVaultSettings(vaultDir); err != nil {
		return nil, err
	}
	settings := configs.VaultInkvaultSettings

	return &ImportPreCheckResult{
		ArchiveFiles: archiveFiles,
		VaultExists:  settings.VaultExists(),
		VaultPath:    settings.VaultPath,
	}, nil
}

// Import restores a vault folder from an archive made by Export.
//
// Returns ErrFileNotFound if the archive doesn't exist.
// Returns ErrInvalidFileType if the archive is not a valid gzip file.
// Returns ErrInvalidArchive if the archive structure is invalid.
func Import(ctx context.Context, opts ImportOptions) (*ImportResult, error) {
	archiveFiles, err := readArchiveIndex(opts.ArchivePath)
	if err != nil {
		return nil, err
	}

	if err := configs.InitVaultSettings(opts.VaultDir); err != nil {
		return nil, err
	}
	settings := configs.VaultInkvaultSettings

	result, err := performImport(opts.ArchivePath, settings, len(archiveFiles), opts.Mode, opts.DryRun)
	if err != nil {
		return nil, err
	}

	if !opts.DryRun {
		auditEntry := audit.LogWithUser("import")
		auditEntry.Mode = opts.Mode.String()
		auditEntry.FilesCount = result.TotalFiles
		auditEntry.Path = opts.ArchivePath
		audit.Log(auditEntry)
	}

	result.DryRun = opts.DryRun
	result.Mode = opts.Mode
	return result, nil
}

// readArchiveIndex checks that the archive exists, is a gzip tar and holds
// an encrypted vault document plus valid asset entries only.
func readArchiveIndex(archivePath string) ([]string, error) {
	if _, err := os.Stat(archivePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, archivePath)
	}

	var files []string
	hasVault := false
	err := walkArchive(archivePath, func(name string, data []byte) error {
		if _, err := archiveTarget(name); err != nil {
			return err
		}
		if name == vault.VaultFileName {
			if !secrets.IsEncrypted(data) {
				return fmt.Errorf("%w: vault.json is not encrypted", kerrors.ErrInvalidArchive)
			}
			hasVault = true
		}
		files = append(files, name)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !hasVault {
		return nil, fmt.Errorf("%w: archive missing vault.json", kerrors.ErrInvalidArchive)
	}
	return files, nil
}

// archiveTarget maps an archive entry name to its place in the vault folder,
// relative and slash-separated. Anything other than vault.json and
// assets/<asset id> is rejected, which also rules out path traversal.
func archiveTarget(name string) (string, error) {
	if name == vault.VaultFileName {
		return name, nil
	}
	dir, id := path.Split(name)
	if dir != vault.AssetsDirName+"/" {
		return "", fmt.Errorf("%w: unexpected entry %q", kerrors.ErrInvalidArchive, name)
	}
	if err := assets.ValidateID(id); err != nil {
		return "", fmt.Errorf("%w: %v", kerrors.ErrInvalidArchive, err)
	}
	return name, nil
}

// walkArchive calls fn with the name and contents of every regular file in
// the archive.
func walkArchive(archivePath string, fn func(name string, data []byte) error) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("%w: not a valid gzip archive", kerrors.ErrInvalidFileType)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: reading tar header: %v", kerrors.ErrInvalidArchive, err)
		}

		// Skip directories - we'll create them as needed.
		if header.Typeflag == tar.TypeDir {
			continue
		}
		if header.Typeflag != tar.TypeReg {
			return fmt.Errorf("%w: %s is not a regular file", kerrors.ErrInvalidArchive, header.Name)
		}
		if header.Size > maxArchiveEntry {
			return fmt.Errorf("%w: %s is too large", kerrors.ErrInvalidArchive, header.Name)
		}

		data, err := io.ReadAll(io.LimitReader(tarReader, maxArchiveEntry))
		if err != nil {
			return fmt.Errorf("reading %s: %w", header.Name, err)
		}
		if err := fn(header.Name, data); err != nil {
			return err
		}
	}
}

// performImport writes archive entries into the vault folder.
func performImport(archivePath string, settings *configs.VaultSettings, total int, mode ImportMode, dryRun bool) (*ImportResult, error) {
	result := &ImportResult{TotalFiles: total}

	if mode == ImportModeReplace && !dryRun {
		if settings.VaultExists() {
			if err := storage.Backup(settings.VaultFile); err != nil {
				return nil, fmt.Errorf("backing up current vault: %w", err)
			}
		}
		if err := os.RemoveAll(settings.AssetsPath); err != nil {
			return nil, fmt.Errorf("removing existing assets: %w", err)
		}
	}

	err := walkArchive(archivePath, func(name string, data []byte) error {
		rel, err := archiveTarget(name)
		if err != nil {
			return err
		}
		targetPath := filepath.Join(settings.VaultPath, filepath.FromSlash(rel))

		fileExists := false
		if _, err := os.Stat(targetPath); err == nil {
			fileExists = true
		}

		switch {
		case mode == ImportModeMerge && fileExists:
			result.FilesSkipped++
			return nil
		case dryRun && mode == ImportModeMerge:
			result.FilesAdded++
			return nil
		case dryRun:
			result.FilesReplaced++
			return nil
		}

		if err := storage.WriteFile(targetPath, data, 0600); err != nil {
			return fmt.Errorf("extracting %s: %w", name, err)
		}
		if mode == ImportModeMerge {
			result.FilesAdded++
		} else {
			result.FilesReplaced++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
