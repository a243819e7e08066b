package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/PolarWolf314/inkvault/internal/assets"
	"github.com/PolarWolf314/inkvault/internal/configs"
	"github.com/PolarWolf314/inkvault/internal/secrets"
	"github.com/PolarWolf314/inkvault/internal/storage"
)

// CheckStatus represents the result status of a health check.
type CheckStatus int

const (
	// CheckPass means the check passed.
	CheckPass CheckStatus = iota
	// CheckWarning means the check found a non-critical issue.
	CheckWarning
	// CheckError means the check found a critical issue.
	CheckError
)

// String returns a string representation of CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarning:
		return "warning"
	case CheckError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for CheckStatus.
func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// CheckResult holds the result of a single health check.
type CheckResult struct {
	Name       string      `json:"name"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// DoctorResult holds the complete result of the doctor workflow.
type DoctorResult struct {
	Checks      []CheckResult `json:"checks"`
	Summary     DoctorSummary `json:"summary"`
	Suggestions []string      `json:"suggestions,omitempty"`
}

// DoctorSummary holds counts of checks by status.
type DoctorSummary struct {
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

// DoctorOptions configures the doctor workflow.
type DoctorOptions struct {
	VaultDir string
}

// Doctor runs health checks on the vault folder without decrypting anything.
//
// The doctor workflow checks:
//   - User configuration validity
//   - Vault location and document format
//   - Vault document permissions
//   - Backup presence
//   - Asset encryption and naming
//   - Leftovers of interrupted writes
func Doctor(ctx context.Context, opts DoctorOptions) (*DoctorResult, error) {
	results := []CheckResult{checkUserConfig()}

	if err := configs.InitVaultSettings(opts.VaultDir); err != nil {
		results = append(results, CheckResult{
			Name:       "Vault location",
			Status:     CheckError,
			Message:    fmt.Sprintf("Vault location not resolved: %v", err),
			Suggestion: "Pass --vault or run 'inkvault config set-vault DIR'",
		})
	} else {
		settings := configs.VaultInkvaultSettings
		checks := []func(*configs.VaultSettings) CheckResult{
			checkVaultDocument,
			checkVaultPermissions,
			checkBackup,
			checkAssets,
			checkStaleFiles,
		}
		for _, check := range checks {
			results = append(results, check(settings))
		}
	}

	summary := calculateDoctorSummary(results)

	// Collect suggestions (deduplicated).
	var suggestions []string
	seen := make(map[string]bool)
	for _, result := range results {
		if result.Suggestion != "" && result.Status != CheckPass && !seen[result.Suggestion] {
			suggestions = append(suggestions, result.Suggestion)
			seen[result.Suggestion] = true
		}
	}

	return &DoctorResult{
		Checks:      results,
		Summary:     summary,
		Suggestions: suggestions,
	}, nil
}

// checkUserConfig checks that the user config, if present, parses and validates.
func checkUserConfig() CheckResult {
	path := configs.UserConfigPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return CheckResult{
			Name:    "User configuration",
			Status:  CheckPass,
			Message: "No user configuration, using defaults",
		}
	}

	if _, err := configs.LoadUserConfig(); err != nil {
		return CheckResult{
			Name:       "User configuration",
			Status:     CheckError,
			Message:    fmt.Sprintf("User configuration is invalid: %v", err),
			Suggestion: fmt.Sprintf("Fix or remove %s", path),
		}
	}

	return CheckResult{
		Name:    "User configuration",
		Status:  CheckPass,
		Message: "User configuration is valid",
	}
}

// checkVaultDocument checks that vault.json exists and is an encrypted envelope.
func checkVaultDocument(settings *configs.VaultSettings) CheckResult {
	if !settings.VaultExists() {
		return CheckResult{
			Name:       "Vault document",
			Status:     CheckError,
			Message:    fmt.Sprintf("No vault found in %s", settings.VaultPath),
			Suggestion: "Run 'inkvault vault create' to create one",
		}
	}

	raw, err := storage.ReadFile(settings.VaultFile)
	if err != nil {
		return CheckResult{
			Name:       "Vault document",
			Status:     CheckError,
			Message:    fmt.Sprintf("Failed to read vault document: %v", err),
			Suggestion: "Check that the vault folder is readable",
		}
	}

	if !secrets.IsEncrypted(raw) {
		if !json.Valid(raw) {
			return CheckResult{
				Name:       "Vault document",
				Status:     CheckError,
				Message:    "Vault document is neither an encrypted envelope nor JSON",
				Suggestion: "Restore vault.json from vault.json.bak or an export archive",
			}
		}
		return CheckResult{
			Name:       "Vault document",
			Status:     CheckWarning,
			Message:    "Vault document is stored unencrypted",
			Suggestion: "Run 'inkvault vault edit' and save to encrypt it",
		}
	}

	return CheckResult{
		Name:    "Vault document",
		Status:  CheckPass,
		Message: "Vault document is encrypted",
	}
}

// checkVaultPermissions checks that vault.json is not readable by other users.
func checkVaultPermissions(settings *configs.VaultSettings) CheckResult {
	info, err := os.Stat(settings.VaultFile)
	if err != nil {
		return CheckResult{
			Name:    "Vault permissions",
			Status:  CheckPass,
			Message: "No vault document to check",
		}
	}

	// Unix permissions are not meaningful on Windows.
	if runtime.GOOS == "windows" {
		return CheckResult{
			Name:    "Vault permissions",
			Status:  CheckPass,
			Message: "Permission check skipped on Windows",
		}
	}

	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return CheckResult{
			Name:       "Vault permissions",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("Vault document has permissions %04o, expected 0600", perm),
			Suggestion: fmt.Sprintf("Run 'chmod 600 %s'", settings.VaultFile),
		}
	}

	return CheckResult{
		Name:    "Vault permissions",
		Status:  CheckPass,
		Message: "Vault document permissions are 0600",
	}
}

// checkBackup checks for the backup copy written before each save.
func checkBackup(settings *configs.VaultSettings) CheckResult {
	if _, err := os.Stat(settings.BackupFile); err == nil {
		return CheckResult{
			Name:    "Backup",
			Status:  CheckPass,
			Message: "Backup of the previous save is present",
		}
	}

	cfg, err := configs.LoadUserConfig()
	if err == nil && !cfg.Vault.Backups {
		return CheckResult{
			Name:       "Backup",
			Status:     CheckWarning,
			Message:    "Backups are turned off",
			Suggestion: "Run 'inkvault config set-vault --backups' to keep a copy of the previous save",
		}
	}

	return CheckResult{
		Name:    "Backup",
		Status:  CheckPass,
		Message: "No backup yet, one is written on the next save",
	}
}

// checkAssets checks that every asset file has a valid id and is encrypted.
func checkAssets(settings *configs.VaultSettings) CheckResult {
	entries, err := os.ReadDir(settings.AssetsPath)
	if os.IsNotExist(err) {
		return CheckResult{
			Name:    "Assets",
			Status:  CheckPass,
			Message: "No asset store yet",
		}
	}
	if err != nil {
		return CheckResult{
			Name:       "Assets",
			Status:     CheckError,
			Message:    fmt.Sprintf("Failed to read asset store: %v", err),
			Suggestion: "Check that the assets folder is readable",
		}
	}

	store := assets.NewStore(settings.AssetsPath)
	var total, plaintext, invalid int
	for _, e := range entries {
		if !e.Type().IsRegular() || storage.IsTempFile(e.Name()) {
			continue
		}
		if assets.ValidateID(e.Name()) != nil {
			invalid++
			continue
		}
		total++
		if raw, err := store.Read(e.Name()); err == nil && !secrets.IsEncrypted(raw) {
			plaintext++
		}
	}

	switch {
	case invalid > 0:
		return CheckResult{
			Name:       "Assets",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("Found %d file(s) in the asset store with invalid names", invalid),
			Suggestion: "Move files that are not assets out of the assets folder",
		}
	case plaintext > 0:
		return CheckResult{
			Name:       "Assets",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("Found %d unencrypted asset(s)", plaintext),
			Suggestion: "Run 'inkvault vault rotate' to encrypt every asset",
		}
	}

	return CheckResult{
		Name:    "Assets",
		Status:  CheckPass,
		Message: fmt.Sprintf("All %d asset(s) are encrypted", total),
	}
}

// checkStaleFiles checks for temp files left by interrupted writes.
func checkStaleFiles(settings *configs.VaultSettings) CheckResult {
	stale, err := findStaleEntries(settings)
	if err != nil {
		return CheckResult{
			Name:       "Interrupted writes",
			Status:     CheckError,
			Message:    fmt.Sprintf("Failed to scan vault folder: %v", err),
			Suggestion: "Check that the vault folder is readable",
		}
	}

	if len(stale) > 0 {
		return CheckResult{
			Name:       "Interrupted writes",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("Found %d leftover temp file(s)", len(stale)),
			Suggestion: "Run 'inkvault vault clean' to remove them",
		}
	}

	return CheckResult{
		Name:    "Interrupted writes",
		Status:  CheckPass,
		Message: "No leftovers of interrupted writes",
	}
}

// calculateDoctorSummary calculates the counts of checks by status.
func calculateDoctorSummary(results []CheckResult) DoctorSummary {
	var summary DoctorSummary
	for _, result := range results {
		switch result.Status {
		case CheckPass:
			summary.Passed++
		case CheckWarning:
			summary.Warnings++
		case CheckError:
			summary.Errors++
		}
	}
	return summary
}
