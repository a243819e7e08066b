// Package audit records vault operations in a JSON Lines log kept inside the
// vault folder:
//
//	<vault>/audit.jsonl
//
// Each entry holds a UTC timestamp with microseconds, the system user, the
// operation name and operation-specific details such as asset ids or the
// number of assets rewritten by a passphrase change. Entries never contain
// passphrases or plaintext.
//
// # Usage
//
//	entry := audit.LogWithUser("rotate")
//	entry.AssetsCount = migrated
//	audit.Log(entry)
//
// # Failure Handling
//
// Audit logging is best-effort. If logging fails the operation continues
// without error.
//
// # Reading Logs
//
// Use ReadEntries() to parse the audit log for display. Malformed entries are
// silently skipped to handle partial writes.
package audit
