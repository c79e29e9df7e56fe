// Package profile provides named overlays for the behavior model. Profiles
// allow predefined demo presets that override transition weights and dwell
// times for specific states without touching the built-in model.
package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/example/bookshop/tools/eventgen/internal/behavior"
	"github.com/example/bookshop/tools/eventgen/internal/sampler"
)

// Errors returned by the profile package.
var (
	// ErrProfileNotFound is returned when a profile cannot be found.
	ErrProfileNotFound = errors.New("profile: not found")
	// ErrInvalidProfile is returned when a profile definition is invalid.
	ErrInvalidProfile = errors.New("profile: invalid definition")
	// ErrNoProfilesDirectory is returned when the profiles directory doesn't exist.
	ErrNoProfilesDirectory = errors.New("profile: profiles directory not found")
)

// Definition is one overlay, loaded from a YAML file in the profiles
// directory.
type Definition struct {
	// Name is the unique identifier for this profile.
	Name string `yaml:"name" json:"name"`

	// Description provides context about what this profile models.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Transitions overrides the outcome weights of specific states. Key is
	// the state name, value maps outcome name to its new weight. States not
	// listed keep the built-in table.
	Transitions map[string]map[string]float64 `yaml:"transitions,omitempty" json:"transitions,omitempty"`

	// Delays overrides the dwell-time bounds of specific states.
	Delays map[string]behavior.DelayBounds `yaml:"delays,omitempty" json:"delays,omitempty"`

	// Tags can be used to filter or categorize profiles.
	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// Validate validates the definition.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	for state, outcomes := range d.Transitions {
		if len(outcomes) == 0 {
			return fmt.Errorf("%w: empty transition override for %s", ErrInvalidProfile, state)
		}
		for outcome, weight := range outcomes {
			if weight < 0 {
				return fmt.Errorf("%w: negative weight for %s/%s", ErrInvalidProfile, state, outcome)
			}
		}
	}
	for state, bounds := range d.Delays {
		if err := bounds.Validate(); err != nil {
			return fmt.Errorf("%w: delays for %s: %v", ErrInvalidProfile, state, err)
		}
	}
	return nil
}

// Apply rewrites the model's tables and delays for the states the profile
// names. Outcome entries are applied in sorted name order so that seeded
// runs replay regardless of YAML map iteration.
func (d *Definition) Apply(m *behavior.Model) error {
	if err := d.Validate(); err != nil {
		return err
	}

	for state, outcomes := range d.Transitions {
		names := make([]string, 0, len(outcomes))
		for name := range outcomes {
			names = append(names, name)
		}
		slices.Sort(names)

		entries := make([]sampler.Entry, len(names))
		for i, name := range names {
			entries[i] = sampler.Entry{Name: name, Weight: outcomes[name]}
		}
		if err := m.SetTransitions(behavior.State(state), entries); err != nil {
			return fmt.Errorf("profile %s: %w", d.Name, err)
		}
	}

	for state, bounds := range d.Delays {
		if err := m.SetDelay(behavior.State(state), bounds); err != nil {
			return fmt.Errorf("profile %s: %w", d.Name, err)
		}
	}

	return nil
}

// Load reads a single profile definition from a YAML file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: reading %s: %w", path, err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("profile: parsing %s: %w", path, err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &def, nil
}

// LoadAll reads every .yaml/.yml file in the directory.
func LoadAll(dir string) ([]*Definition, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNoProfilesDirectory, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("profile: reading %s: %w", dir, err)
	}

	var defs []*Definition
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		def, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Find returns the named profile from a directory of definitions.
func Find(dir, name string) (*Definition, error) {
	defs, err := LoadAll(dir)
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		if def.Name == name {
			return def, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
}
