// Package config loads the optional .testen.yml file and the testen
// section of the project's package.json.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/deixis/testen/internal/runner"
)

// File names looked up in the project root.
const (
	FileName     = ".testen.yml"
	ManifestName = "package.json"
)

// DefaultCommand runs when neither the command line nor the manifest
// names one.
const DefaultCommand = "npm test"

// Config holds the parsed .testen.yml configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	RawTimeout   string   `yaml:"timeout"`     // per-version timeout, e.g. "5m"; empty waits forever
	RawMaxOutput int      `yaml:"max_output"`  // bytes captured per stream
	Presets      []string `yaml:"presets"`     // versions tested when nothing else names one
	Shell        string   `yaml:"shell"`       // shell running the manager template
	Manager      string   `yaml:"manager"`     // template with {version} and {command}
	Concurrency  int      `yaml:"concurrency"` // parallel runs in flight; 0 is unlimited
}

// Timeout returns the configured per-version timeout, or zero.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return 0
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return runner.DefaultMaxOutput
}

// PresetVersions returns the configured presets or nil when unset. An
// explicit empty list is returned as a non-nil empty slice.
func (c *Config) PresetVersions() []string {
	if c.Presets != nil {
		return c.Presets
	}
	return nil
}

// Manifest is the part of package.json testen reads.
type Manifest struct {
	Name   string `json:"name"`
	Testen struct {
		Test string      `json:"test"`
		Node VersionList `json:"node"`
	} `json:"testen"`
}

// Command returns the manifest's test command or DefaultCommand.
func (m *Manifest) Command() string {
	if m.Testen.Test != "" {
		return m.Testen.Test
	}
	return DefaultCommand
}

// VersionList accepts a single version or a list, as strings or numbers.
type VersionList []string

func (l *VersionList) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*l = nil
	case []any:
		out := make(VersionList, 0, len(v))
		for _, item := range v {
			s, err := scalar(item)
			if err != nil {
				return err
			}
			out = append(out, s)
		}
		*l = out
	default:
		s, err := scalar(v)
		if err != nil {
			return err
		}
		*l = VersionList{s}
	}
	return nil
}

func scalar(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported node version value %v", v)
	}
}

// LoadResult holds the parsed configuration and the discovered project root.
type LoadResult struct {
	Config   *Config
	Manifest *Manifest
	Root     string // directory containing package.json; falls back to dir
}

// Load reads .testen.yml and package.json from the project root. The
// root is discovered by walking upward from dir looking for package.json.
// Missing files yield defaults.
func Load(dir string) (*LoadResult, error) {
	root, err := findProjectRoot(dir)
	if err != nil {
		// No package.json found; use dir as root.
		root = dir
	}

	cfg := &Config{}
	data, err := os.ReadFile(filepath.Join(root, FileName))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", FileName, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	manifest := &Manifest{}
	data, err = os.ReadFile(filepath.Join(root, ManifestName))
	switch {
	case err == nil:
		if err := json.Unmarshal(data, manifest); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", ManifestName, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("reading %s: %w", ManifestName, err)
	}

	return &LoadResult{Config: cfg, Manifest: manifest, Root: root}, nil
}

// findProjectRoot walks upward from dir looking for a directory containing package.json.
func findProjectRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ManifestName)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s not found", ManifestName)
		}
		dir = parent
	}
}
