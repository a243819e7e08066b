package configs

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/PolarWolf314/inkvault/internal/storage"
)

// SaveTOML saves a struct to a TOML file, replacing it atomically.
func SaveTOML(filePath string, data interface{}) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(data); err != nil {
		return err
	}
	return storage.WriteFile(filePath, buf.Bytes(), 0600)
}

// LoadTOML loads a TOML file into a struct. Unknown keys are rejected so
// that a typo does not silently fall back to a default.
func LoadTOML(filePath string, data interface{}) error {
	meta, err := toml.DecodeFile(filePath, data)
	if err != nil {
		return err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown key %q in %s", undecoded[0].String(), filePath)
	}
	return nil
}
