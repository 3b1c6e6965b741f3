// Package config handles charless.toml settings.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"tlog.app/go/errors"
)

// FileName is the file FindAndLoad looks for.
const FileName = "charless.toml"

type (
	Config struct {
		Compile Compile `toml:"compile"`
		Decode  Decode  `toml:"decode"`

		// Path is the file the config was read from. Empty for defaults.
		Path string `toml:"-"`
	}

	Compile struct {
		Strict    bool `toml:"strict"`
		Fold      bool `toml:"fold"`
		MaxOutput int  `toml:"max_output"`
	}

	Decode struct {
		Legacy          bool `toml:"legacy"`
		StackSize       int  `toml:"stack_size"`
		MemorySize      int  `toml:"memory_size"`
		MaxInstructions int  `toml:"max_instructions"`
	}
)

func Default() *Config {
	return &Config{
		Compile: Compile{
			MaxOutput: 1 << 20,
		},
		Decode: Decode{
			Legacy:          true,
			StackSize:       1024,
			MemorySize:      1024,
			MaxInstructions: 1 << 20,
		},
	}
}

// Load reads the config at path over the defaults.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read %s", path)
	}

	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, errors.Wrap(err, "parse %s", path)
	}

	if undec := md.Undecoded(); len(undec) != 0 {
		return nil, errors.New("%s: unknown key %v", path, undec[0])
	}

	err = c.validate()
	if err != nil {
		return nil, errors.Wrap(err, "%s", path)
	}

	c.Path = path

	return c, nil
}

// FindAndLoad walks up from dir looking for FileName.
// Defaults are returned if there is none.
func FindAndLoad(dir string) (*Config, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrap(err, "resolve %s", dir)
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

func (c *Config) validate() error {
	switch {
	case c.Compile.MaxOutput < 0:
		return errors.New("compile.max_output is negative")
	case c.Decode.StackSize <= 0:
		return errors.New("decode.stack_size must be positive")
	case c.Decode.MemorySize <= 0:
		return errors.New("decode.memory_size must be positive")
	case c.Decode.MaxInstructions < 0:
		return errors.New("decode.max_instructions is negative")
	}

	return nil
}
