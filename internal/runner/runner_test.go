package runner

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bookshop/tools/eventgen/internal/config"
	"github.com/example/bookshop/tools/eventgen/internal/profile"
	"github.com/example/bookshop/tools/eventgen/internal/session"
)

func writePoolCSV(t *testing.T, dir string, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("user_id,gender,age\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "%08d,female,%d\n", i, 20+i%50)
	}
	path := filepath.Join(dir, "user_pool.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func writeCatalogCSV(t *testing.T, dir string) string {
	t.Helper()
	content := "id,title,price,category,purchase_weight\n" +
		"B000001,Dune,15000,SF,50\n" +
		"B000002,Emma,9000,Novel,1\n"
	path := filepath.Join(dir, "catalog.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Name:          "runner-test",
		Sessions:      20,
		UsersToSample: 5,
		StartDate:     "2025-06-01",
		EndDate:       "2025-06-03",
		Seed:          42,
		UserPool:      writePoolCSV(t, dir, 10),
		Catalog:       writeCatalogCSV(t, dir),
	}
	cfg.ApplyDefaults()
	return cfg
}

// TestNew tests runner construction.
func TestNew(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := New(nil, nil, nil)
		assert.ErrorIs(t, err, ErrNilConfig)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := testConfig(t, t.TempDir())
		cfg.Sessions = 0
		_, err := New(cfg, nil, nil)
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("valid config", func(t *testing.T) {
		r, err := New(testConfig(t, t.TempDir()), &bytes.Buffer{}, nil)
		require.NoError(t, err)
		assert.NotNil(t, r.Recorder())
	})
}

// TestRunEndToEnd runs the full pipeline against temp datasets and checks
// the assembled log.
func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)

	var out bytes.Buffer
	r, err := New(cfg, &out, nil)
	require.NoError(t, err)

	result, err := r.Run()
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, uint64(42), result.Seed)
	assert.Equal(t, 20, result.Sessions)
	assert.Equal(t, 5, result.Users)
	assert.Equal(t, 2, result.CatalogSize)
	assert.NotEmpty(t, result.Events)

	t.Run("every session begins with the preamble", func(t *testing.T) {
		bySession := make(map[string][]session.Event)
		for _, ev := range result.Events {
			bySession[ev.SessionID] = append(bySession[ev.SessionID], ev)
		}
		assert.Len(t, bySession, 20)

		window := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		windowEnd := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
		for id, events := range bySession {
			require.GreaterOrEqual(t, len(events), 2, "session %s", id)
			assert.Equal(t, session.EventAppLaunch, events[0].Name)
			assert.Equal(t, session.EventMainPageView, events[1].Name)
			assert.False(t, events[0].Timestamp.Before(window))
			assert.True(t, events[0].Timestamp.Before(windowEnd))
		}
	})

	t.Run("console reports the loaded datasets", func(t *testing.T) {
		assert.Contains(t, out.String(), "user pool loaded (10 users)")
		assert.Contains(t, out.String(), "catalog loaded (2 items)")
	})
}

// TestRunReproducible verifies a fixed seed replays the identical log.
func TestRunReproducible(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)

	run := func() []session.Event {
		r, err := New(cfg, &bytes.Buffer{}, nil)
		require.NoError(t, err)
		result, err := r.Run()
		require.NoError(t, err)
		return result.Events
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)
}

// TestRunTimeBasedSeed verifies an unseeded run reports the seed it chose.
func TestRunTimeBasedSeed(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.Seed = 0

	r, err := New(cfg, &bytes.Buffer{}, nil)
	require.NoError(t, err)

	result, err := r.Run()
	require.NoError(t, err)
	assert.NotZero(t, result.Seed)
}

// TestRunWithoutCatalog verifies a missing catalog degrades to item-free
// sessions with a warning instead of failing.
func TestRunWithoutCatalog(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.Catalog = filepath.Join(dir, "absent.csv")

	r, err := New(cfg, &bytes.Buffer{}, nil)
	require.NoError(t, err)

	result, err := r.Run()
	require.NoError(t, err)

	assert.Zero(t, result.CatalogSize)
	assert.Greater(t, result.Warnings, 0)
	for _, ev := range result.Events {
		assert.NotContains(t, ev.Properties, session.PropItemID)
	}
}

// TestRunMissingUserPool verifies the user pool stays fatal.
func TestRunMissingUserPool(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.UserPool = filepath.Join(t.TempDir(), "absent.csv")

	r, err := New(cfg, &bytes.Buffer{}, nil)
	require.NoError(t, err)

	_, err = r.Run()
	assert.Error(t, err)
}

// TestRunOversizedSample verifies sampling more users than the pool fails.
func TestRunOversizedSample(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.UsersToSample = 500

	r, err := New(cfg, &bytes.Buffer{}, nil)
	require.NoError(t, err)

	_, err = r.Run()
	assert.Error(t, err)
}

// TestRunWithProfile verifies a named overlay is found and applied.
func TestRunWithProfile(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)

	profilesDir := filepath.Join(dir, "profiles")
	require.NoError(t, os.Mkdir(profilesDir, 0o755))
	overlay := `
name: quitter
description: Everyone leaves the main page immediately
transitions:
  PROB_MAINPAGE_LOGIN:
    drop-off: 1
  PROB_MAINPAGE_NOT_LOGIN:
    drop-off: 1
`
	require.NoError(t, os.WriteFile(filepath.Join(profilesDir, "quitter.yaml"), []byte(overlay), 0o644))

	cfg.ProfilesDir = profilesDir
	cfg.Profile = "quitter"
	p := 0.0
	cfg.ReconnectProbability = &p

	var out bytes.Buffer
	r, err := New(cfg, &out, nil)
	require.NoError(t, err)

	result, err := r.Run()
	require.NoError(t, err)
	assert.Contains(t, out.String(), `profile "quitter" applied`)

	// Every walk is forced into AppLaunch, MainPageView, main page, DropOff.
	bySession := make(map[string]int)
	for _, ev := range result.Events {
		bySession[ev.SessionID]++
	}
	for id, count := range bySession {
		assert.Equal(t, 4, count, "session %s", id)
	}

	t.Run("unknown profile fails", func(t *testing.T) {
		bad := testConfig(t, t.TempDir())
		bad.ProfilesDir = profilesDir
		bad.Profile = "missing"

		r, err := New(bad, &bytes.Buffer{}, nil)
		require.NoError(t, err)
		_, err = r.Run()
		assert.ErrorIs(t, err, profile.ErrProfileNotFound)
	})
}
