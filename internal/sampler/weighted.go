// Package sampler provides weighted random selection for the event generator.
// It is used for behavior-model transitions as well as user and item draws.
package sampler

import (
	"errors"
	"math/rand/v2"
)

// Errors returned by the sampler package.
var (
	// ErrInvalidDistribution is returned when a distribution is empty or
	// carries no positive weight.
	ErrInvalidDistribution = errors.New("sampler: invalid distribution")
	// ErrNegativeWeight is returned when a weight is negative.
	ErrNegativeWeight = errors.New("sampler: weight must be non-negative")
)

// Entry is a named outcome with its raw weight.
type Entry struct {
	// Name identifies the outcome.
	Name string
	// Weight is the relative selection weight. Weights need not sum to 1;
	// normalization happens at draw time.
	Weight float64
}

// indexEntry holds a cumulative weight boundary for one selectable row.
type indexEntry struct {
	row              int
	cumulativeWeight float64
}

// Index selects a row from a parallel weight sequence with probability
// proportional to its weight. The cumulative-weight array is precomputed
// once; each draw is a binary search.
type Index struct {
	entries []indexEntry
	total   float64
}

// NewIndex builds a weighted index over the given weights. Rows with zero
// weight are kept out of the pool. It returns ErrInvalidDistribution when
// the sequence is empty or all weights are zero, and ErrNegativeWeight when
// any weight is negative.
func NewIndex(weights []float64) (*Index, error) {
	if len(weights) == 0 {
		return nil, ErrInvalidDistribution
	}

	ix := &Index{entries: make([]indexEntry, 0, len(weights))}
	for row, w := range weights {
		if w < 0 {
			return nil, ErrNegativeWeight
		}
		if w == 0 {
			continue
		}
		ix.total += w
		ix.entries = append(ix.entries, indexEntry{row: row, cumulativeWeight: ix.total})
	}

	if ix.total == 0 {
		return nil, ErrInvalidDistribution
	}
	return ix, nil
}

// Draw returns one row index with probability weight/sum(weights).
func (ix *Index) Draw(rng *rand.Rand) int {
	target := rng.Float64() * ix.total

	low, high := 0, len(ix.entries)-1
	for low < high {
		mid := (low + high) / 2
		if ix.entries[mid].cumulativeWeight <= target {
			low = mid + 1
		} else {
			high = mid
		}
	}
	return ix.entries[low].row
}

// Len returns the number of selectable rows (zero-weight rows excluded).
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Total returns the sum of all selectable weights.
func (ix *Index) Total() float64 {
	return ix.total
}

// Table is a weighted outcome table: an ordered mapping of outcome name to
// weight with a precomputed index.
type Table struct {
	entries []Entry
	index   *Index
}

// NewTable builds a table from ordered entries. The ordering is preserved so
// that fixed-seed draws replay identically.
func NewTable(entries []Entry) (*Table, error) {
	weights := make([]float64, len(entries))
	for i, e := range entries {
		weights[i] = e.Weight
	}

	index, err := NewIndex(weights)
	if err != nil {
		return nil, err
	}

	return &Table{
		entries: append([]Entry(nil), entries...),
		index:   index,
	}, nil
}

// Choose draws one outcome name with probability proportional to its weight.
func (t *Table) Choose(rng *rand.Rand) string {
	return t.entries[t.index.Draw(rng)].Name
}

// Entries returns a copy of the ordered outcome entries.
func (t *Table) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

// Normalize scales weights to sum to 1. When the raw sum is zero the result
// falls back to a uniform distribution of 1/len(weights); the second return
// value reports that fallback so callers can surface a warning. An empty
// input returns nil, false.
func Normalize(weights []float64) ([]float64, bool) {
	if len(weights) == 0 {
		return nil, false
	}

	var sum float64
	for _, w := range weights {
		sum += w
	}

	out := make([]float64, len(weights))
	if sum > 0 {
		for i, w := range weights {
			out[i] = w / sum
		}
		return out, false
	}

	uniform := 1.0 / float64(len(weights))
	for i := range out {
		out[i] = uniform
	}
	return out, true
}
