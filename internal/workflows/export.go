package workflows

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/PolarWolf314/inkvault/internal/assets"
	"github.com/PolarWolf314/inkvault/internal/audit"
	"github.com/PolarWolf314/inkvault/internal/configs"
	kerrors "github.com/PolarWolf314/inkvault/internal/errors"
	"github.com/PolarWolf314/inkvault/internal/secrets"
	"github.com/PolarWolf314/inkvault/internal/storage"
)

// ExportOptions configures the export workflow.
type ExportOptions struct {
	VaultDir string

	// OutputPath is the path for the output archive.
	// If empty, defaults to inkvault-<vault>-YYYY-MM-DD.tar.gz.
	OutputPath string
}

// ExportResult contains the outcome of an export operation.
type ExportResult struct {
	// AssetCount is the number of encrypted assets included.
	AssetCount int

	// SkippedAssets are asset ids left out because they are stored unencrypted.
	SkippedAssets []string

	// TotalFilesCount is the total number of files in the archive.
	TotalFilesCount int

	// OutputPath is the path to the created archive.
	OutputPath string
}

// Export creates a tar.gz archive of the vault folder for backup.
//
// The archive includes vault.json and every encrypted asset. It never holds
// plaintext: a legacy unencrypted vault is refused and unencrypted assets
// are skipped.
//
// Returns ErrVaultNotFound if there is no vault at the resolved location.
// Returns ErrLegacyVault if the vault document has not been encrypted yet.
func Export(ctx context.Context, opts ExportOptions) (*ExportResult, error) {
	if err := configs.InitVaultSettings(opts.VaultDir); err != nil {
		return nil, err
	}
	settings := configs.VaultInkvaultSettings
	if !settings.VaultExists() {
		return nil, kerrors.ErrVaultNotFound
	}

	raw, err := storage.ReadFile(settings.VaultFile)
	if err != nil {
		return nil, err
	}
	if !secrets.IsEncrypted(raw) {
		return nil, kerrors.ErrLegacyVault
	}

	outputPath := opts.OutputPath
	if outputPath == "" {
		outputPath = fmt.Sprintf("inkvault-%s-%s.tar.gz", filepath.Base(settings.VaultPath), time.Now().Format("2006-01-02"))
	}

	result, files, err := collectFilesToExport(settings)
	if err != nil {
		return nil, fmt.Errorf("collecting files for export: %w", err)
	}
	result.OutputPath = outputPath

	if err := createTarGzArchive(outputPath, settings.VaultPath, files); err != nil {
		_ = os.Remove(outputPath)
		return nil, fmt.Errorf("creating archive: %w", err)
	}

	auditEntry := audit.LogWithUser("export")
	auditEntry.Path = outputPath
	auditEntry.FilesCount = result.TotalFilesCount
	audit.Log(auditEntry)

	return result, nil
}

// collectFilesToExport gathers the vault document and encrypted assets.
func collectFilesToExport(settings *configs.VaultSettings) (*ExportResult, []string, error) {
	result := &ExportResult{}
	files := []string{settings.VaultFile}

	store := assets.NewStore(settings.AssetsPath)
	metas, err := store.List()
	if err != nil {
		return nil, nil, err
	}
	for _, m := range metas {
		raw, err := store.Read(m.ID)
		if err != nil {
			return nil, nil, err
		}
		if !secrets.IsEncrypted(raw) {
			result.SkippedAssets = append(result.SkippedAssets, m.ID)
			continue
		}
		path, err := store.Path(m.ID)
		if err != nil {
			return nil, nil, err
		}
		files = append(files, path)
		result.AssetCount++
	}

	result.TotalFilesCount = len(files)
	return result, files, nil
}

// createTarGzArchive creates a gzip-compressed tar archive containing the specified files.
func createTarGzArchive(outputPath, vaultPath string, files []string) error {
	outFile, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer outFile.Close()

	gzWriter := gzip.NewWriter(outFile)
	tarWriter := tar.NewWriter(gzWriter)

	for _, filePath := range files {
		if err := addFileToTar(tarWriter, vaultPath, filePath); err != nil {
			return fmt.Errorf("adding file %s to archive: %w", filePath, err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		return err
	}
	if err := gzWriter.Close(); err != nil {
		return err
	}
	return outFile.Sync()
}

// addFileToTar adds a single file to the tar archive with a slash-separated
// path relative to vaultPath.
func addFileToTar(tw *tar.Writer, vaultPath, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("creating tar header: %w", err)
	}

	relPath, err := filepath.Rel(vaultPath, filePath)
	if err != nil {
		return fmt.Errorf("getting relative path: %w", err)
	}
	header.Name = filepath.ToSlash(relPath)
	header.Mode = 0600

	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("writing tar header: %w", err)
	}

	if _, err := io.Copy(tw, file); err != nil {
		return fmt.Errorf("writing file contents: %w", err)
	}

	return nil
}
