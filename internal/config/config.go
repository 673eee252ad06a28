// Package config loads amrtool settings from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/scigolib/amr/internal/utils"
)

// Axis is a plane normal written as x/y/z or 1/2/3.
type Axis int

// UnmarshalYAML accepts x, y, z (any case) or 1, 2, 3.
func (a *Axis) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: normal must be a scalar", n.Line)
	}
	v, err := ParseAxis(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*a = v
	return nil
}

// MarshalYAML writes the axis letter.
func (a Axis) MarshalYAML() (interface{}, error) {
	return a.String(), nil
}

func (a Axis) String() string {
	switch a {
	case 1:
		return "x"
	case 2:
		return "y"
	case 3:
		return "z"
	}
	return strconv.Itoa(int(a))
}

// ParseAxis converts x/y/z or 1/2/3 to an Axis.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x", "1":
		return 1, nil
	case "y", "2":
		return 2, nil
	case "z", "3":
		return 3, nil
	}
	return 0, fmt.Errorf("unknown plane normal %q", s)
}

// Reader configures how a plotfile is opened.
type Reader struct {
	MaxLevel     int      `yaml:"max_level"`
	Fields       []string `yaml:"fields,omitempty"`
	Blocks       []int    `yaml:"blocks,omitempty"`
	CacheEntries int      `yaml:"cache_entries"`
	Parallelism  int      `yaml:"parallelism"`
}

// Slice configures the plane cut.
type Slice struct {
	Normal   Axis     `yaml:"normal"`
	Offset   *float64 `yaml:"offset,omitempty"`
	MaxLevel int      `yaml:"max_level"`
	Prefetch bool     `yaml:"prefetch"`
	Fields   []string `yaml:"fields,omitempty"`
	// Ranks runs the cut over an in-process group of this many ranks.
	Ranks int `yaml:"ranks"`
}

// Config is the amrtool configuration file.
type Config struct {
	Plotfile string `yaml:"plotfile,omitempty"`
	Reader   Reader `yaml:"reader"`
	Slice    Slice  `yaml:"slice"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Reader: Reader{MaxLevel: -1, Parallelism: 1},
		Slice:  Slice{Normal: 3, MaxLevel: -1, Ranks: 1},
	}
}

// Load reads and validates the YAML file at path on top of Default.
func Load(path string) (Config, error) {
	//nolint:gosec // G304: config path is caller supplied
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, utils.WrapError(utils.KindConfiguration, "read config", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, utils.WrapError(utils.KindConfiguration, "parse config", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch {
	case c.Reader.CacheEntries < 0:
		return utils.ConfigError("reader.cache_entries %d", c.Reader.CacheEntries)
	case c.Reader.Parallelism < 1:
		return utils.ConfigError("reader.parallelism %d", c.Reader.Parallelism)
	case c.Slice.Normal < 1 || c.Slice.Normal > 3:
		return utils.ConfigError("slice.normal %d", int(c.Slice.Normal))
	case c.Slice.Ranks < 1:
		return utils.ConfigError("slice.ranks %d", c.Slice.Ranks)
	}
	for _, b := range c.Reader.Blocks {
		if b < 0 {
			return utils.ConfigError("reader.blocks: negative index %d", b)
		}
	}
	return nil
}

// Marshal encodes c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
