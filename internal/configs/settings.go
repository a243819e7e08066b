package configs

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	kerrors "github.com/PolarWolf314/inkvault/internal/errors"
	"github.com/PolarWolf314/inkvault/internal/utils"
	"github.com/PolarWolf314/inkvault/internal/vault"
)

// VaultDirEnv overrides the configured vault folder.
const VaultDirEnv = "INKVAULT_DIR"

type UserSettings struct {
	UserConfigsPath string
	Username        string
}

type VaultSettings struct {
	VaultPath    string
	VaultFile    string
	BackupFile   string
	AssetsPath   string
	AuditLogPath string
}

var (
	UserInkvaultSettings  *UserSettings
	VaultInkvaultSettings *VaultSettings
)

func init() {
	configDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatalf("error getting config directory: %s", err)
	}

	username, err := utils.GetUsername()
	if err != nil {
		log.Fatalf("error getting username: %s", err)
	}

	// This is independent of which vault is open, so it is ok to init here
	UserInkvaultSettings = &UserSettings{
		UserConfigsPath: filepath.Join(configDir, "inkvault"),
		Username:        username,
	}
	VaultInkvaultSettings = &VaultSettings{}
}

// NewVaultSettings lays out the paths of a vault folder.
func NewVaultSettings(vaultPath string) *VaultSettings {
	return &VaultSettings{
		VaultPath:    vaultPath,
		VaultFile:    vault.VaultPath(vaultPath),
		BackupFile:   vault.BackupPath(vaultPath),
		AssetsPath:   vault.AssetsDir(vaultPath),
		AuditLogPath: filepath.Join(vaultPath, "audit.jsonl"),
	}
}

// ResolveVaultPath picks the vault folder: the flag value, then $INKVAULT_DIR,
// then the user config, then the nearest ancestor of the working directory
// holding a vault document.
func ResolveVaultPath(flagValue string, cfg *UserConfig) (string, error) {
	candidates := []string{flagValue, os.Getenv(VaultDirEnv)}
	if cfg != nil {
		candidates = append(candidates, cfg.Vault.Path)
	}
	for _, c := range candidates {
		if c != "" {
			return filepath.Abs(c)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	root, err := utils.FindVaultRoot(cwd, vault.VaultFileName)
	if err != nil {
		return "", fmt.Errorf("error getting vault root: %w", err)
	}
	if root == "" {
		return "", kerrors.ErrNoVaultLocation
	}
	return root, nil
}

// InitVaultSettings resolves the vault folder and publishes its layout in
// VaultInkvaultSettings.
func InitVaultSettings(flagValue string) error {
	cfg, err := LoadUserConfig()
	if err != nil {
		return err
	}

	vaultPath, err := ResolveVaultPath(flagValue, cfg)
	if err != nil {
		return err
	}

	VaultInkvaultSettings = NewVaultSettings(vaultPath)
	return nil
}

// VaultExists reports whether the resolved vault folder holds a vault document.
func (v *VaultSettings) VaultExists() bool {
	if v == nil || v.VaultFile == "" {
		return false
	}
	info, err := os.Stat(v.VaultFile)
	return err == nil && info.Mode().IsRegular()
}
