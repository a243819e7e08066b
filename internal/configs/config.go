package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/PolarWolf314/inkvault/internal/vault"
)

// ConfigFileName is the user config file inside UserConfigsPath.
const ConfigFileName = "config.toml"

type UserConfig struct {
	Vault    VaultConfig    `toml:"vault"`
	Autosave AutosaveConfig `toml:"autosave"`
}

type VaultConfig struct {
	Path    string `toml:"path"`
	Backups bool   `toml:"backups"`
}

type AutosaveConfig struct {
	DebounceMS     int `toml:"debounce_ms"`
	PollIntervalMS int `toml:"poll_interval_ms"`
}

// DefaultUserConfig returns the configuration used when no file exists.
func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		Vault: VaultConfig{Backups: true},
		Autosave: AutosaveConfig{
			DebounceMS:     int(vault.DefaultDebounce / time.Millisecond),
			PollIntervalMS: int(vault.DefaultPollInterval / time.Millisecond),
		},
	}
}

// UserConfigPath returns the location of the user config file.
func UserConfigPath() string {
	return filepath.Join(UserInkvaultSettings.UserConfigsPath, ConfigFileName)
}

// LoadUserConfig loads the user configuration from the config file.
// Keys missing from the file keep their defaults.
func LoadUserConfig() (*UserConfig, error) {
	configPath := UserConfigPath()
	config := DefaultUserConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config, nil
	}

	if err := LoadTOML(configPath, config); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid user config %s: %w", configPath, err)
	}

	return config, nil
}

// SaveUserConfig saves the user configuration to the config file.
func SaveUserConfig(config *UserConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	if err := SaveTOML(UserConfigPath(), config); err != nil {
		return fmt.Errorf("failed to save user config: %w", err)
	}

	return nil
}

// Validate rejects settings the session cannot run with.
func (c *UserConfig) Validate() error {
	if c.Autosave.DebounceMS < 0 {
		return fmt.Errorf("autosave.debounce_ms must not be negative, got %d", c.Autosave.DebounceMS)
	}
	if c.Autosave.PollIntervalMS < 0 {
		return fmt.Errorf("autosave.poll_interval_ms must not be negative, got %d", c.Autosave.PollIntervalMS)
	}
	return nil
}

// Debounce is the autosave quiet period. Zero selects the session default.
func (c *UserConfig) Debounce() time.Duration {
	return time.Duration(c.Autosave.DebounceMS) * time.Millisecond
}

// PollInterval is how often a waiting command drains session workers.
func (c *UserConfig) PollInterval() time.Duration {
	return time.Duration(c.Autosave.PollIntervalMS) * time.Millisecond
}
