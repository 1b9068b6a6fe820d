package host

import (
	"errors"
	"io/fs"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/fastn-stack/fastn-sub010/pkg/cache"
	"github.com/fastn-stack/fastn-sub010/pkg/eval"
)

// ConfigFile is the name of the package configuration file.
const ConfigFile = "fastn.yaml"

// Config is the configuration of a package, read from its fastn.yaml.
type Config struct {
	// Package is the name of the package, like "fastn.com". Documents of
	// the package are imported as <package>/<path>.
	Package string `yaml:"package"`
	// Root is the directory of the package.
	Root string `yaml:"root"`
	// Aliases are import aliases known to every document.
	Aliases map[string]string `yaml:"aliases"`
	// Language is the answer of the current-language processor.
	Language string `yaml:"language"`
	// BaseURL is prepended to the URLs of assets.
	BaseURL string `yaml:"base-url"`
	// DB is the path of the store database.
	DB string `yaml:"db"`
	// CacheSize bounds the number of parsed documents kept in memory.
	CacheSize int `yaml:"cache-size"`
	// AllowUnknownArgs is passed on to the interpreter.
	AllowUnknownArgs bool `yaml:"allow-unknown-args"`
}

// DefaultConfig returns the configuration of a package without a
// fastn.yaml.
func DefaultConfig() *Config {
	return &Config{Package: "main", Root: ".", Language: "en", DB: ".fastn.db",
		CacheSize: cache.DefaultSize}
}

// LoadConfig reads a configuration file. Fields it leaves out keep their
// defaults, and a missing file gives the default configuration.
func LoadConfig(fsys afero.Fs, path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	} else if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Package == "" {
		return nil, errors.New(path + ": package must not be empty")
	}
	return cfg, nil
}

// EvalConfig returns the interpreter configuration for documents of the
// package.
func (c *Config) EvalConfig() eval.Config {
	return eval.Config{Aliases: c.Aliases, AllowUnknownArgs: c.AllowUnknownArgs}
}
