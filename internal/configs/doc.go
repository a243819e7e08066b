// Package configs manages user configuration and vault location for inkvault.
//
// The user config lives at <UserConfigDir>/inkvault/config.toml:
//
//	[vault]
//	path = "/home/me/Notes"
//	backups = true
//
//	[autosave]
//	debounce_ms = 500
//	poll_interval_ms = 50
//
// # Settings
//
// UserInkvaultSettings is initialized at startup. Call InitVaultSettings
// before accessing VaultInkvaultSettings; it resolves the vault folder from
// the --vault flag, $INKVAULT_DIR, the user config, or the nearest ancestor
// of the working directory that holds vault.json, in that order.
package configs
