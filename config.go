package sweetsession

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the optional on-disk configuration. Every field has a working
// default; command-line flags override whatever the file says.
type Config struct {
	Port     int      `toml:"port"`
	Output   string   `toml:"output"`
	Browsers []string `toml:"browsers"`
	Open     bool     `toml:"open"`
	Keyring  bool     `toml:"keyring"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Port:   DefaultPort,
		Output: DefaultOutputPath(),
		Open:   true,
	}
}

// DefaultConfigPath returns the conventional config location,
// ~/.config/sweetsession/config.toml (or the platform equivalent).
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(dir, "sweetsession", "config.toml")
}

// LoadConfig reads the config file at path, or the default location when path
// is empty. A missing file is not an error; defaults apply.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultConfigPath()
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("sweetsession: load config %s: %w", path, err)
	}
	return cfg, nil
}

// BrowserOrder converts the configured browser names, validating each. An
// empty list means the default order.
func (c Config) BrowserOrder() ([]Browser, error) {
	if len(c.Browsers) == 0 {
		return nil, nil
	}
	out := make([]Browser, 0, len(c.Browsers))
	for _, name := range c.Browsers {
		b, err := ParseBrowser(name)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
