package sampler

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// TestNewIndex tests index construction over raw weight sequences.
func TestNewIndex(t *testing.T) {
	tests := []struct {
		name    string
		weights []float64
		wantErr error
		wantLen int
	}{
		{"valid weights", []float64{1, 2, 3}, nil, 3},
		{"zero rows excluded", []float64{1, 0, 3}, nil, 2},
		{"single weight", []float64{0.5}, nil, 1},
		{"empty sequence", nil, ErrInvalidDistribution, 0},
		{"all zero", []float64{0, 0, 0}, ErrInvalidDistribution, 0},
		{"negative weight", []float64{1, -0.5}, ErrNegativeWeight, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix, err := NewIndex(tt.weights)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, ix)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantLen, ix.Len())
			}
		})
	}
}

// TestIndexDrawDistribution verifies that draw frequencies converge on the
// weight proportions. Acceptance: 10000 draws within 3 percentage points.
func TestIndexDrawDistribution(t *testing.T) {
	ix, err := NewIndex([]float64{0.5, 0.3, 0.2})
	require.NoError(t, err)

	rng := newTestRNG(1)
	iterations := 10000
	counts := make([]int, 3)
	for i := 0; i < iterations; i++ {
		counts[ix.Draw(rng)]++
	}

	expected := []float64{0.5, 0.3, 0.2}
	for row, want := range expected {
		actual := float64(counts[row]) / float64(iterations)
		errorPct := math.Abs(actual-want) * 100

		t.Logf("Row %d: expected %.0f%%, actual %.2f%% (%d/%d)",
			row, want*100, actual*100, counts[row], iterations)

		assert.LessOrEqual(t, errorPct, 3.0,
			"Row %d frequency error %.2f%% exceeds 3%%", row, errorPct)
	}
}

// TestIndexZeroWeightNeverDrawn verifies zero-weight rows are unreachable.
func TestIndexZeroWeightNeverDrawn(t *testing.T) {
	ix, err := NewIndex([]float64{1, 0, 1})
	require.NoError(t, err)

	rng := newTestRNG(2)
	for i := 0; i < 1000; i++ {
		assert.NotEqual(t, 1, ix.Draw(rng))
	}
}

// TestIndexDrawReproducible verifies that a fixed seed replays identically.
func TestIndexDrawReproducible(t *testing.T) {
	ix, err := NewIndex([]float64{0.2, 0.3, 0.5})
	require.NoError(t, err)

	first := make([]int, 100)
	rng := newTestRNG(42)
	for i := range first {
		first[i] = ix.Draw(rng)
	}

	second := make([]int, 100)
	rng = newTestRNG(42)
	for i := range second {
		second[i] = ix.Draw(rng)
	}

	assert.Equal(t, first, second)
}

// TestNewTable tests table construction from named entries.
func TestNewTable(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		wantErr error
	}{
		{"valid entries", []Entry{{Name: "a", Weight: 1}, {Name: "b", Weight: 2}}, nil},
		{"weights need not sum to one", []Entry{{Name: "a", Weight: 7}, {Name: "b", Weight: 13}}, nil},
		{"empty entries", nil, ErrInvalidDistribution},
		{"all zero weights", []Entry{{Name: "a"}, {Name: "b"}}, ErrInvalidDistribution},
		{"negative weight", []Entry{{Name: "a", Weight: -1}}, ErrNegativeWeight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := NewTable(tt.entries)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, table)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, table)
			}
		})
	}
}

// TestTableChooseDistribution verifies named draws follow the weights.
func TestTableChooseDistribution(t *testing.T) {
	table, err := NewTable([]Entry{
		{Name: "heavy", Weight: 0.7},
		{Name: "light", Weight: 0.3},
	})
	require.NoError(t, err)

	rng := newTestRNG(3)
	iterations := 10000
	counts := make(map[string]int)
	for i := 0; i < iterations; i++ {
		counts[table.Choose(rng)]++
	}

	heavyPct := float64(counts["heavy"]) / float64(iterations) * 100
	errorPct := math.Abs(heavyPct - 70.0)

	t.Logf("heavy: %.2f%% (expected 70%%), light: %.2f%%",
		heavyPct, float64(counts["light"])/float64(iterations)*100)

	assert.LessOrEqual(t, errorPct, 3.0,
		"Choose distribution error %.2f%% exceeds 3%%", errorPct)
}

// TestTableEntriesCopy verifies the returned entries are detached.
func TestTableEntriesCopy(t *testing.T) {
	table, err := NewTable([]Entry{{Name: "a", Weight: 1}, {Name: "b", Weight: 2}})
	require.NoError(t, err)

	entries := table.Entries()
	entries[0].Name = "mutated"

	fresh := table.Entries()
	assert.Equal(t, "a", fresh[0].Name)
}

// TestNormalize tests weight normalization and the uniform fallback.
func TestNormalize(t *testing.T) {
	t.Run("positive sum scales to one", func(t *testing.T) {
		out, fellBack := Normalize([]float64{2, 3, 5})
		assert.False(t, fellBack)
		assert.InDelta(t, 0.2, out[0], 1e-9)
		assert.InDelta(t, 0.3, out[1], 1e-9)
		assert.InDelta(t, 0.5, out[2], 1e-9)
	})

	t.Run("zero sum falls back to uniform", func(t *testing.T) {
		out, fellBack := Normalize([]float64{0, 0, 0, 0})
		assert.True(t, fellBack)
		for _, w := range out {
			assert.InDelta(t, 0.25, w, 1e-9)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		out, fellBack := Normalize(nil)
		assert.Nil(t, out)
		assert.False(t, fellBack)
	})

	t.Run("result sums to one", func(t *testing.T) {
		out, _ := Normalize([]float64{1.5, 2.25, 0.25, 9})
		var sum float64
		for _, w := range out {
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	})
}

func BenchmarkIndexDraw(b *testing.B) {
	weights := make([]float64, 100)
	for i := range weights {
		weights[i] = float64(i%10 + 1)
	}
	ix, _ := NewIndex(weights)
	rng := newTestRNG(4)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ix.Draw(rng)
	}
}
