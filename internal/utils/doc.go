// Package utils provides shared utility functions for the inkvault CLI.
//
// # Filesystem Utilities
//
//   - FindVaultRoot: walks up directories to find the folder holding a vault
//   - VaultName: display name for a vault folder
//
// # System Utilities
//
//   - GetUsername: returns the current system username
//   - GetHostname: returns the system hostname
//   - GetEditor: picks the editor used by `vault edit`
//
// # String Utilities
//
//   - FormatPaths: formats file paths for human-readable output
//   - FormatBytes: renders asset sizes
//
// # I/O Utilities
//
//   - ReadStdin: reads a piped document from standard input
//
// # Terminal Utilities
//
// Passphrases are read without echo, from stdin when it is a terminal and
// from /dev/tty otherwise so that stdin stays free for piped documents.
package utils
