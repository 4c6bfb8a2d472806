package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
)

// Settings holds the values kept in the persisted settings store.  Each deployment keeps its
// own store; an absent store or key leaves the zero value in place.
type Settings struct {
	DebugEnabled bool `toml:"DebugEnabled"`
}

// LoadSettings reads the settings store at path.  A missing file yields default Settings and no
// error.  A file that cannot be decoded yields default Settings and the decode error, so callers
// can report it and continue with debug logging disabled.
func LoadSettings(path string) (Settings, error) {
	var s Settings
	if path == "" {
		return s, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return s, err
	}
	if _, err := toml.Decode(string(content), &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}
