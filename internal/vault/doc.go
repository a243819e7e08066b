// Package vault coordinates an unlocked vault: the cached key, the document
// plaintext, autosave and passphrase changes.
//
// A Session is driven by a single goroutine. Operations that would block
// (unlocking, creating, saving, rotating) are started with a Begin/Async
// call, run on a worker with their own copy of the key, and complete when a
// later call to Poll observes the result. Saves are debounced, only one is
// ever written at a time and requests made meanwhile collapse into one
// follow-up write.
//
// A passphrase change commits the vault document first and the assets
// second. If an asset cannot be written afterwards the vault is already on
// the new passphrase; the error wraps ErrAssetMigrationIncomplete and the
// change should be retried.
package vault
