package restyle

import (
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
)

// LineConfig describes one maintained release line. Marker is a commit known
// to exist only in that line's history and is used to recognize which line a
// branch forked from. Base is the commit to rewrite onto once the line is
// chosen, typically the commit that switched the line to the new style.
type LineConfig struct {
	Name   string `yaml:"name"`
	Marker string `yaml:"marker"`
	Base   string `yaml:"base"`
}

// ToolConfig describes the content transform tool.
type ToolConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	// VersionArgs invokes the tool for the environment probe, usually
	// ["--version"].
	VersionArgs []string `yaml:"version_args"`
	// VersionPattern is a regular expression the probe output must match.
	// Empty skips the version check but still requires the tool to exist.
	VersionPattern string `yaml:"version_pattern"`
	// MaxPasses caps the transform fixed point iteration. Zero means
	// [DefaultMaxPasses]. The tool is not guaranteed idempotent after a
	// single pass, so the minimum honored value is 2.
	MaxPasses int `yaml:"max_passes"`
}

// Config is the full configuration document.
type Config struct {
	// Lines is the ancestry test priority order. The first entry is the
	// most general line and doubles as the fallback when no marker
	// matches.
	Lines  []LineConfig `yaml:"lines"`
	Tool   ToolConfig   `yaml:"tool"`
	Filter PathFilter   `yaml:"filter"`
}

// ParseConfigYAML parses a configuration document.
func ParseConfigYAML(file []byte) (*Config, error) {
	result := &Config{}

	if err := yaml.Unmarshal(file, result); err != nil {
		return nil, err
	}

	return result, nil
}

// DefaultMaxPasses bounds the transform fixed point iteration.
const DefaultMaxPasses = 4

// DefaultConfig returns the built in configuration: a C style reformatter
// run over C sources, no maintained lines (so an explicit target is
// required).
func DefaultConfig() *Config {
	return &Config{
		Tool: ToolConfig{
			Command:     "uncrustify",
			Args:        []string{"--no-backup"},
			VersionArgs: []string{"--version"},
			MaxPasses:   DefaultMaxPasses,
		},
		Filter: PathFilter{
			Patterns:      []string{"*.c", "*.h"},
			ExcludedRoots: []string{"3rdparty"},
		},
	}
}

var errDuplicateLineName = errors.New("duplicate line name")

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if c.Tool.Command == "" {
		return ErrEmptyTransformTool
	}

	seen := make(map[string]struct{}, len(c.Lines))
	for _, line := range c.Lines {
		if line.Name == "" || line.Marker == "" || line.Base == "" {
			return fmt.Errorf("line %q: name, marker and base are all required", line.Name)
		}
		if _, found := seen[line.Name]; found {
			return fmt.Errorf("%w: %s", errDuplicateLineName, line.Name)
		}
		seen[line.Name] = struct{}{}
	}

	return nil
}
