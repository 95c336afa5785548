// Package config loads the optional rvm.yaml file that sits next to a
// source program, carrying virtual-disk mount defaults and default
// verbosity/color settings so they don't all have to be CLI flags.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Disk struct {
	Name        string `yaml:"name"`
	SectorSize  int    `yaml:"sectorSize"`
	SectorCount int    `yaml:"sectorCount"`
}

type Config struct {
	Disk       *Disk  `yaml:"disk"`
	Verbosity  string `yaml:"verbosity"`
	Color      bool   `yaml:"color"`
}

// Load reads and parses path. A missing file is not an error — it
// returns a zero-value Config so CLI flags and built-in defaults apply.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, errors.Wrapf(err, "read config %q", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %q", path)
	}
	return &cfg, nil
}
