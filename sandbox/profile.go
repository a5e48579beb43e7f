// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Profile is a named mount set plus the launch environment that goes
// with it. Profiles support single inheritance via Extends.
type Profile struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Extends     string            `yaml:"extends,omitempty"`
	Mounts      []string          `yaml:"mounts,omitempty"`
	Env         map[string]string `yaml:"env,omitempty"`
	Terminal    TerminalConfig    `yaml:"terminal,omitempty"`
}

// TerminalConfig is the terminal geometry handed to the relay and the
// identity shim via WARREN_TERM_ROWS / WARREN_TERM_COLS.
type TerminalConfig struct {
	Rows    int `yaml:"rows,omitempty"`
	Columns int `yaml:"columns,omitempty"`
}

// MountSpecs parses the profile's mount lines.
func (p *Profile) MountSpecs() ([]MountSpec, error) {
	specs := make([]MountSpec, 0, len(p.Mounts))
	for i, line := range p.Mounts {
		spec, err := ParseMountLine(line)
		if err != nil {
			return nil, fmt.Errorf("profile %q mounts[%d]: %w", p.Name, i, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Clone creates a deep copy of the profile.
func (p *Profile) Clone() *Profile {
	clone := &Profile{
		Name:        p.Name,
		Description: p.Description,
		Extends:     p.Extends,
		Terminal:    p.Terminal,
	}
	if p.Mounts != nil {
		clone.Mounts = make([]string, len(p.Mounts))
		copy(clone.Mounts, p.Mounts)
	}
	if p.Env != nil {
		clone.Env = make(map[string]string, len(p.Env))
		for key, value := range p.Env {
			clone.Env[key] = value
		}
	}
	return clone
}

// mergeProfiles merges a child profile into its resolved parent.
// Parent mounts come first so a child can layer additional paths on
// top; env entries merge with the child winning; terminal geometry
// and description are taken from the child when set.
func mergeProfiles(parent, child *Profile) *Profile {
	result := parent.Clone()
	result.Name = child.Name
	result.Extends = ""

	if child.Description != "" {
		result.Description = child.Description
	}
	if len(child.Mounts) > 0 {
		result.Mounts = append(result.Mounts, child.Mounts...)
	}
	if len(child.Env) > 0 {
		if result.Env == nil {
			result.Env = make(map[string]string, len(child.Env))
		}
		for key, value := range child.Env {
			result.Env[key] = value
		}
	}
	if child.Terminal.Rows > 0 {
		result.Terminal.Rows = child.Terminal.Rows
	}
	if child.Terminal.Columns > 0 {
		result.Terminal.Columns = child.Terminal.Columns
	}
	return result
}

// ProfilesConfig is one profiles file: a map of profile name to
// definition under a top-level "profiles" key.
type ProfilesConfig struct {
	Profiles map[string]*Profile `yaml:"profiles"`
}

// ParseProfilesConfig parses a profiles YAML document and fills in
// each profile's Name from its map key.
func ParseProfilesConfig(data []byte) (*ProfilesConfig, error) {
	var config ProfilesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing profiles: %w", err)
	}
	for name, profile := range config.Profiles {
		if profile == nil {
			config.Profiles[name] = &Profile{Name: name}
			continue
		}
		profile.Name = name
	}
	return &config, nil
}

// LoadProfilesConfig reads and parses a profiles file.
func LoadProfilesConfig(path string) (*ProfilesConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profiles file: %w", err)
	}
	config, err := ParseProfilesConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// ProfileLoader loads and resolves profiles from built-in defaults
// and the config search paths. Later-loaded configs override earlier
// ones, so a user file can redefine a built-in profile.
type ProfileLoader struct {
	configs  []*ProfilesConfig
	resolved map[string]*Profile
}

// NewProfileLoader creates an empty loader.
func NewProfileLoader() *ProfileLoader {
	return &ProfileLoader{resolved: make(map[string]*Profile)}
}

// LoadDefaults loads the built-in default profiles.
func (l *ProfileLoader) LoadDefaults() error {
	config, err := ParseProfilesConfig([]byte(defaultProfilesYAML))
	if err != nil {
		return fmt.Errorf("parsing built-in profiles: %w", err)
	}
	l.configs = append(l.configs, config)
	return nil
}

// LoadFile loads profiles from one YAML file.
func (l *ProfileLoader) LoadFile(path string) error {
	config, err := LoadProfilesConfig(path)
	if err != nil {
		return err
	}
	l.configs = append(l.configs, config)
	return nil
}

// Resolve resolves a profile by name, applying Extends inheritance.
// Inheritance cycles are reported as errors.
func (l *ProfileLoader) Resolve(name string) (*Profile, error) {
	return l.resolve(name, nil)
}

func (l *ProfileLoader) resolve(name string, chain []string) (*Profile, error) {
	if profile, ok := l.resolved[name]; ok {
		return profile, nil
	}
	for _, ancestor := range chain {
		if ancestor == name {
			return nil, fmt.Errorf("profile inheritance cycle: %v", append(chain, name))
		}
	}

	// Last definition wins across loaded configs.
	var base *Profile
	for _, config := range l.configs {
		if profile, ok := config.Profiles[name]; ok {
			base = profile
		}
	}
	if base == nil {
		return nil, fmt.Errorf("profile not found: %s", name)
	}

	var profile *Profile
	if base.Extends != "" {
		parent, err := l.resolve(base.Extends, append(chain, name))
		if err != nil {
			return nil, fmt.Errorf("resolving parent of profile %q: %w", name, err)
		}
		profile = mergeProfiles(parent, base)
	} else {
		profile = base.Clone()
	}

	l.resolved[name] = profile
	return profile, nil
}

// List returns all available profile names, sorted.
func (l *ProfileLoader) List() []string {
	names := make(map[string]bool)
	for _, config := range l.configs {
		for name := range config.Profiles {
			names[name] = true
		}
	}
	result := make([]string, 0, len(names))
	for name := range names {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// ConfigSearchPaths returns the profile file locations, in load order
// (later files override earlier ones).
func ConfigSearchPaths() []string {
	paths := []string{"/etc/warren/profiles.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "warren", "profiles.yaml"))
	}
	if configDir := os.Getenv("WARREN_CONFIG_DIR"); configDir != "" {
		paths = append(paths, filepath.Join(configDir, "profiles.yaml"))
	}

	return paths
}

// LoadFromSearchPaths creates a loader with the built-in defaults
// plus any profile files found on the search paths.
func LoadFromSearchPaths() (*ProfileLoader, error) {
	loader := NewProfileLoader()
	if err := loader.LoadDefaults(); err != nil {
		return nil, err
	}
	for _, path := range ConfigSearchPaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := loader.LoadFile(path); err != nil {
			return nil, err
		}
	}
	return loader, nil
}

// defaultProfilesYAML contains the built-in profile definitions.
// Built-ins stay conservative: optional read-only dotfiles only, so a
// profile works on any host without declaring paths that may not
// exist.
const defaultProfilesYAML = `
profiles:
  base:
    description: "Empty baseline; extend and add mounts"
    terminal:
      rows: 24
      columns: 80

  dotfiles:
    description: "Common read-only development dotfiles"
    extends: base
    mounts:
      - "$HOME/.gitconfig:/root/.gitconfig:ro:optional"
      - "$HOME/.config/git:/root/.config/git:ro:optional"
      - "$HOME/.ssh/known_hosts:/root/.ssh/known_hosts:ro:optional"
      - "$HOME/.config/nvim:/root/.config/nvim:ro:optional"
`
