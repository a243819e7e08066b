package utils

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
)

// FindVaultRoot walks up from startDir looking for a directory that contains
// a regular file called marker. Returns an empty string if none is found.
// Stops searching when it reaches the user's home directory.
func FindVaultRoot(startDir, marker string) (string, error) {
	currentDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", startDir, err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	for {
		// Stop searching at one level above home directory
		if currentDir == path.Join(homeDir, "..") {
			return "", nil
		}

		fileInfo, err := os.Stat(filepath.Join(currentDir, marker))
		if err == nil {
			if fileInfo.Mode().IsRegular() {
				return currentDir, nil
			}
		} else if !os.IsNotExist(err) {
			return "", fmt.Errorf("error checking for %s at %s: %w", marker, currentDir, err)
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", nil
		}
		currentDir = parentDir
	}
}

// VaultName returns a display name for a vault folder.
func VaultName(vaultPath string) string {
	if vaultPath == "" {
		return ""
	}
	return filepath.Base(filepath.Clean(vaultPath))
}
