package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bookshop/tools/eventgen/internal/behavior"
)

func writeProfile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const impulseBuyerYAML = `
name: impulse-buyer
description: Heavy purchase bias for demo runs
transitions:
  PROB_VIEW_ITEM_LOGIN:
    purchase: 0.7
    add_to_cart: 0.2
    drop-off: 0.1
delays:
  PROB_VIEW_ITEM_LOGIN:
    min: 2
    max: 4
tags: [demo]
`

// TestDefinitionValidate tests profile validation.
func TestDefinitionValidate(t *testing.T) {
	tests := []struct {
		name    string
		def     Definition
		wantErr bool
	}{
		{"valid", Definition{Name: "p", Transitions: map[string]map[string]float64{"s": {"o": 1}}}, false},
		{"name only", Definition{Name: "p"}, false},
		{"missing name", Definition{}, true},
		{"empty override", Definition{Name: "p", Transitions: map[string]map[string]float64{"s": {}}}, true},
		{"negative weight", Definition{Name: "p", Transitions: map[string]map[string]float64{"s": {"o": -1}}}, true},
		{"inverted delays", Definition{Name: "p", Delays: map[string]behavior.DelayBounds{"s": {Min: 5, Max: 1}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidProfile)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestLoad tests single-profile loading from YAML.
func TestLoad(t *testing.T) {
	t.Run("valid profile", func(t *testing.T) {
		path := writeProfile(t, t.TempDir(), "impulse.yaml", impulseBuyerYAML)

		def, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "impulse-buyer", def.Name)
		assert.Equal(t, 0.7, def.Transitions["PROB_VIEW_ITEM_LOGIN"]["purchase"])
		assert.Equal(t, behavior.DelayBounds{Min: 2, Max: 4}, def.Delays["PROB_VIEW_ITEM_LOGIN"])
		assert.Equal(t, []string{"demo"}, def.Tags)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid profile fails at load", func(t *testing.T) {
		path := writeProfile(t, t.TempDir(), "bad.yaml", "description: no name\n")
		_, err := Load(path)
		assert.ErrorIs(t, err, ErrInvalidProfile)
	})
}

// TestApply verifies an overlay rewrites only the states it names.
func TestApply(t *testing.T) {
	def := &Definition{
		Name: "impulse-buyer",
		Transitions: map[string]map[string]float64{
			string(behavior.StateViewItemLogin): {
				"purchase":    0.7,
				"add_to_cart": 0.2,
				"drop-off":    0.1,
			},
		},
		Delays: map[string]behavior.DelayBounds{
			string(behavior.StateViewItemLogin): {Min: 2, Max: 4},
		},
	}

	m := behavior.Default()
	require.NoError(t, def.Apply(m))

	t.Run("named state is rewritten", func(t *testing.T) {
		table, ok := m.Table(behavior.StateViewItemLogin)
		require.True(t, ok)

		weights := make(map[string]float64)
		for _, entry := range table.Entries() {
			weights[entry.Name] = entry.Weight
		}
		assert.Equal(t, map[string]float64{"purchase": 0.7, "add_to_cart": 0.2, "drop-off": 0.1}, weights)
		assert.Equal(t, behavior.DelayBounds{Min: 2, Max: 4}, m.Delay(behavior.StateViewItemLogin))
	})

	t.Run("other states keep the built-in model", func(t *testing.T) {
		reference := behavior.Default()
		got, ok := m.Table(behavior.StateSearch)
		require.True(t, ok)
		want, _ := reference.Table(behavior.StateSearch)
		assert.Equal(t, want.Entries(), got.Entries())
		assert.Equal(t, reference.Delay(behavior.StateSearch), m.Delay(behavior.StateSearch))
	})
}

// TestApplyUnknownState verifies overlays cannot invent states.
func TestApplyUnknownState(t *testing.T) {
	def := &Definition{
		Name:        "broken",
		Transitions: map[string]map[string]float64{"PROB_NOPE": {"drop-off": 1}},
	}
	err := def.Apply(behavior.Default())
	assert.ErrorIs(t, err, behavior.ErrUnknownState)
}

// TestLoadAll tests directory scanning.
func TestLoadAll(t *testing.T) {
	t.Run("loads yaml and yml, skips others", func(t *testing.T) {
		dir := t.TempDir()
		writeProfile(t, dir, "a.yaml", "name: alpha\n")
		writeProfile(t, dir, "b.yml", "name: beta\n")
		writeProfile(t, dir, "notes.txt", "not a profile")

		defs, err := LoadAll(dir)
		require.NoError(t, err)
		require.Len(t, defs, 2)

		names := []string{defs[0].Name, defs[1].Name}
		assert.ElementsMatch(t, []string{"alpha", "beta"}, names)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := LoadAll(filepath.Join(t.TempDir(), "absent"))
		assert.ErrorIs(t, err, ErrNoProfilesDirectory)
	})
}

// TestFind tests lookup by name.
func TestFind(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "impulse.yaml", impulseBuyerYAML)

	t.Run("found", func(t *testing.T) {
		def, err := Find(dir, "impulse-buyer")
		require.NoError(t, err)
		assert.Equal(t, "impulse-buyer", def.Name)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := Find(dir, "window-shopper")
		assert.ErrorIs(t, err, ErrProfileNotFound)
	})
}
