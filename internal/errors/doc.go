// Package errors provides typed error values for inkvault.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching.
//
// # Error Categories
//
//   - Crypto errors: ErrEncryptionFailed, ErrDecryptionFailed, ErrInvalidData
//   - Session errors: ErrVaultLocked, ErrNoVaultLocation, ErrSaveInFlight, ...
//   - Vault file errors: ErrVaultNotFound, ErrVaultExists
//   - Asset errors: ErrInvalidAssetID, ErrAssetNotFound, ErrAssetMigrationIncomplete
//   - CLI errors: ErrNoFilesFound, ErrInvalidDateFormat, ErrPassphraseMismatch
//
// ErrDecryptionFailed is intentionally generic. Every authentication failure,
// whatever its cause, is reported with the same value and message.
//
// # I/O Errors
//
// File system failures are wrapped in an OpError naming the operation
// ("Read", "Write", "Serialization") and the path:
//
//	return kerrors.Op(kerrors.OpWrite, path, err)
//
// Handle errors in the CLI layer:
//
//	if errors.Is(err, kerrors.ErrDecryptionFailed) {
//	    // Show the wrong-passphrase message
//	}
package errors
