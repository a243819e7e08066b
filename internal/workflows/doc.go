// Package workflows provides high-level orchestration for inkvault commands.
//
// Workflows coordinate the configs, vault, assets and audit packages to
// implement complete user-facing features. Each workflow handles a single
// command's business logic, independent of CLI concerns like flag parsing,
// passphrase prompts, spinners and output formatting.
//
// Every workflow that touches plaintext drives a vault.Session the same way
// an interactive front end would: it starts the operation, then polls the
// session until the worker reports back. Saves go through the session's
// save coordinator, so a command-line write follows the same durability
// and ordering rules as an autosave.
//
// # Available Workflows
//
//   - Create: writes a new encrypted vault
//   - Show, Write, Edit: read and replace the vault document
//   - Rotate: changes the passphrase and re-encrypts every asset
//   - AddAssets, GetAsset, ListAssets: manage encrypted attachments
//   - Status: inspects a vault folder without a passphrase
//   - Log: reads the audit trail
//   - Doctor, Clean: health checks and removal of interrupted-write leftovers
//   - Export, Import: ciphertext-only tar.gz backups of a vault folder
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package. Use
// errors.Is() to check for specific conditions:
//
//	result, err := workflows.Rotate(ctx, opts)
//	if errors.Is(err, kerrors.ErrAssetMigrationIncomplete) {
//	    // The vault already uses the new passphrase. Rotate again with
//	    // RecoveryPassphrase set to the old one to finish.
//	}
//
// # Passphrases
//
// Passphrases are passed as byte slices and wiped once used. Callers must
// not reuse a slice after handing it to a workflow.
package workflows
