package errors

import (
	"errors"
	"fmt"
)

// Cryptographic errors indicate failures during encryption or decryption operations.
var (
	// ErrEncryptionFailed indicates the cipher could not seal a payload.
	ErrEncryptionFailed = errors.New("encryption failed")

	// ErrDecryptionFailed is the single error reported for any authentication failure.
	// It deliberately does not distinguish a wrong passphrase from corrupted ciphertext.
	ErrDecryptionFailed = errors.New("wrong passphrase or corrupted data")

	// ErrInvalidData indicates a malformed envelope: bad JSON, missing fields,
	// unparseable base64 or a truncated payload.
	ErrInvalidData = errors.New("invalid data")
)

// Session errors indicate the vault session cannot perform the requested operation.
var (
	// ErrVaultLocked indicates no key is cached; the vault must be unlocked first.
	ErrVaultLocked = errors.New("vault is not unlocked")

	// ErrNoVaultLocation indicates no vault folder has been configured.
	ErrNoVaultLocation = errors.New("no vault location configured")

	// ErrSaveInFlight indicates a save is currently being written.
	ErrSaveInFlight = errors.New("a save is in progress")

	// ErrRotationInProgress indicates a passphrase change is running.
	ErrRotationInProgress = errors.New("a passphrase change is in progress")

	// ErrSessionClosed indicates the session has already been shut down.
	ErrSessionClosed = errors.New("session is closed")

	// ErrWrongCurrentPassphrase indicates the current passphrase did not open the vault
	// during a passphrase change.
	ErrWrongCurrentPassphrase = errors.New("wrong current passphrase")
)

// Vault file errors indicate issues with the vault folder itself.
var (
	// ErrVaultNotFound indicates the vault folder holds no vault.json.
	ErrVaultNotFound = errors.New("vault not found")

	// ErrVaultExists indicates a vault already exists where one was to be created.
	ErrVaultExists = errors.New("vault already exists")

	// ErrLegacyVault indicates the vault document is still stored unencrypted.
	ErrLegacyVault = errors.New("vault document is not encrypted yet")
)

// Archive errors indicate issues with export and import archives.
var (
	// ErrFileNotFound indicates a file named on the command line does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidFileType indicates the archive is not gzip-compressed tar.
	ErrInvalidFileType = errors.New("invalid file type")

	// ErrInvalidArchive indicates the archive does not hold a usable vault.
	ErrInvalidArchive = errors.New("invalid archive")
)

// Asset errors indicate issues with binary asset files.
var (
	// ErrInvalidAssetID indicates an asset id failed the filename safety check.
	ErrInvalidAssetID = errors.New("invalid asset id")

	// ErrAssetNotFound indicates the asset file does not exist.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrAssetMigrationIncomplete indicates the vault moved to the new passphrase but
	// one or more assets could not be rewritten. Retrying the change fixes it.
	ErrAssetMigrationIncomplete = errors.New("vault passphrase changed but some assets were not rewritten; retry the passphrase change")
)

// CLI errors indicate issues with user input.
var (
	// ErrNoFilesFound indicates no files matched the provided patterns.
	ErrNoFilesFound = errors.New("no matching files found")

	// ErrInvalidDateFormat indicates a date filter could not be parsed.
	ErrInvalidDateFormat = errors.New("invalid date format")

	// ErrPassphraseMismatch indicates the confirmation passphrase did not match.
	ErrPassphraseMismatch = errors.New("passphrases do not match")

	// ErrEmptyPassphrase indicates an empty passphrase was entered.
	ErrEmptyPassphrase = errors.New("passphrase must not be empty")
)

// Operation names used in OpError.
const (
	OpRead          = "Read"
	OpWrite         = "Write"
	OpSerialization = "Serialization"
)

// OpError records a failed I/O or serialization step. It carries the operation
// name and path only, never file content.
type OpError struct {
	Op   string
	Path string
	Err  error
}

func (e *OpError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Op wraps err in an OpError. A nil err returns nil.
func Op(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Path: path, Err: err}
}
