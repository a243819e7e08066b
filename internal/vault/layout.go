package vault

import (
	"path/filepath"

	"github.com/PolarWolf314/inkvault/internal/storage"
)

// File names inside a vault folder.
const (
	VaultFileName = "vault.json"
	AssetsDirName = "assets"
)

// InitialDocument is the plaintext written to a brand new vault.
const InitialDocument = `{"tree":[],"trash":[]}`

// VaultPath returns the vault document path for a vault folder.
func VaultPath(dir string) string {
	return filepath.Join(dir, VaultFileName)
}

// BackupPath returns the backup sibling of the vault document.
func BackupPath(dir string) string {
	return storage.BackupPath(VaultPath(dir))
}

// AssetsDir returns the asset directory for a vault folder.
func AssetsDir(dir string) string {
	return filepath.Join(dir, AssetsDirName)
}
