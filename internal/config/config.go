// internal/config/config.go
//
// This package handles configuration and the .waymark directory structure.
// Every project that uses Waymark gets a .waymark/ folder created in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rowanvale/waymark/internal/layout"
)

const (
	// WaymarkDir is the name of the directory we create in each project
	WaymarkDir = ".waymark"

	defaultMilestoneCap = 10
	defaultLogMaxLines  = 400
	defaultContextLevel = 2
)

const defaultProjectConfigYAML = `# waymark project configuration
version: 1

# Maximum number of recent milestones retained in summary.doc.
milestone_cap: 10

# Maximum lines kept in each branch's log.doc before the oldest are trimmed.
log_max_lines: 400

# Context level used when context is called without an explicit level (1-5).
default_context_level: 2
`

// ProjectConfig models .waymark/config.yaml.
type ProjectConfig struct {
	Version             int `yaml:"version"`
	MilestoneCap        int `yaml:"milestone_cap"`
	LogMaxLines         int `yaml:"log_max_lines"`
	DefaultContextLevel int `yaml:"default_context_level"`
}

// Config holds the runtime configuration for Waymark.
type Config struct {
	// ProjectDir is the directory where the user ran `waymark` from
	ProjectDir string

	// WaymarkProjectDir is ProjectDir/.waymark
	WaymarkProjectDir string

	Project ProjectConfig
}

// InitWaymarkDir creates the .waymark directory structure in the given
// project directory and seeds a commented default config.
//
// Structure created:
// .waymark/
// ├── branches/     <- Per-branch journal + log storage
// ├── logs/         <- Process log (waymark.log)
// └── config.yaml
func InitWaymarkDir(projectDir string) error {
	tree := layout.New(filepath.Join(projectDir, WaymarkDir))
	if err := tree.Scaffold(); err != nil {
		return err
	}
	return ensureProjectConfig(tree.ConfigPath())
}

// NewConfig creates a new Config instance populated with project settings.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:        projectDir,
		WaymarkProjectDir: filepath.Join(projectDir, WaymarkDir),
		Project:           defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Tree returns the path resolver for this project's document tree.
func (c *Config) Tree() *layout.Tree {
	return layout.New(c.WaymarkProjectDir)
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.WaymarkProjectDir, layout.LogsDir)
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.WaymarkProjectDir, layout.FileConfig)
}

// MilestoneCap returns the configured summary milestone cap.
func (c *Config) MilestoneCap() int {
	return c.Project.MilestoneCap
}

// LogMaxLines returns the rotation bound for branch operation logs.
func (c *Config) LogMaxLines() int {
	return c.Project.LogMaxLines
}

// DefaultContextLevel returns the context level used when none is given.
func (c *Config) DefaultContextLevel() int {
	return c.Project.DefaultContextLevel
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version:             1,
		MilestoneCap:        defaultMilestoneCap,
		LogMaxLines:         defaultLogMaxLines,
		DefaultContextLevel: defaultContextLevel,
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if pc.MilestoneCap <= 0 {
		pc.MilestoneCap = defaultMilestoneCap
	}
	if pc.LogMaxLines <= 0 {
		pc.LogMaxLines = defaultLogMaxLines
	}
	if pc.DefaultContextLevel == 0 {
		pc.DefaultContextLevel = defaultContextLevel
	}
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if pc.DefaultContextLevel < 1 || pc.DefaultContextLevel > 5 {
		return fmt.Errorf("default_context_level must be between 1 and 5")
	}
	return nil
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}
