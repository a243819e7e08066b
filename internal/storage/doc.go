// Package storage provides crash-safe file writes for the vault.
//
// WriteFile never exposes a partially written target: content goes to a
// hidden temp sibling, is synced, and is renamed over the target. A failed
// rename removes the temp file so none accumulate.
//
// Backup keeps one previous version as a ".bak" sibling. It is best-effort;
// callers log its error and carry on with the primary write:
//
//	if err := storage.Backup(path); err != nil {
//	    log.Warnf("Backup failed: %v", err)
//	}
//	return storage.WriteFile(path, data, 0600)
package storage
