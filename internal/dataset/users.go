// Package dataset loads and samples the external reference datasets: the
// user pool and the purchasable-item catalog. It also synthesizes both from
// scratch for runs that have no real CSVs at hand.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"

	"github.com/example/bookshop/tools/eventgen/internal/sampler"
)

// Errors returned by the dataset package.
var (
	// ErrPoolNotFound is returned when the user pool file is missing.
	ErrPoolNotFound = errors.New("dataset: user pool file not found")
	// ErrEmptyPool is returned when the user pool has no rows.
	ErrEmptyPool = errors.New("dataset: user pool is empty")
	// ErrMissingColumn is returned when a required CSV column is absent.
	ErrMissingColumn = errors.New("dataset: missing required column")
	// ErrBadSampleSize is returned when the requested sample exceeds the pool.
	ErrBadSampleSize = errors.New("dataset: sample size exceeds pool size")
)

// Tier classifies a user's activity frequency. Higher tiers are selected
// for sessions more often.
type Tier string

// Activity-frequency tiers.
const (
	TierHigh   Tier = "High"
	TierMedium Tier = "Medium"
	TierLow    Tier = "Low"
)

// DefaultTierWeights is the fixed tier-weight distribution used both to
// assign tiers to sampled users and to weight their session selection.
var DefaultTierWeights = map[Tier]float64{
	TierHigh:   0.6,
	TierMedium: 0.3,
	TierLow:    0.1,
}

// tierOrder fixes the draw order of tiers so seeded runs replay.
var tierOrder = []Tier{TierHigh, TierMedium, TierLow}

// User is one row of the user pool. Tier is assigned after sampling, not
// read from the file.
type User struct {
	ID     string
	Gender string
	Age    int
	Tier   Tier
}

// UserSnapshot is the per-session copy of a selected user, carrying the
// session-scoped login flag. The pool row itself is never mutated.
type UserSnapshot struct {
	UserID   string
	Gender   string
	Age      int
	LoggedIn bool
}

// LoadUserPool reads the user pool CSV. The file must contain user_id,
// gender, and age columns; extra columns are ignored. A missing file is a
// fatal error distinct from a malformed one.
func LoadUserPool(path string) ([]User, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, path)
		}
		return nil, fmt.Errorf("dataset: opening user pool: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("dataset: reading user pool header: %w", err)
	}

	cols := columnIndex(header)
	idCol, ok := cols["user_id"]
	if !ok {
		return nil, fmt.Errorf("%w: user_id", ErrMissingColumn)
	}
	genderCol, ok := cols["gender"]
	if !ok {
		return nil, fmt.Errorf("%w: gender", ErrMissingColumn)
	}
	ageCol, ok := cols["age"]
	if !ok {
		return nil, fmt.Errorf("%w: age", ErrMissingColumn)
	}

	var users []User
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: user pool line %d: %w", line, err)
		}

		age, err := strconv.Atoi(record[ageCol])
		if err != nil {
			return nil, fmt.Errorf("dataset: user pool line %d: bad age %q: %w", line, record[ageCol], err)
		}

		users = append(users, User{
			ID:     record[idCol],
			Gender: record[genderCol],
			Age:    age,
		})
	}

	if len(users) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyPool, path)
	}
	return users, nil
}

// columnIndex maps header names to their positions.
func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	return cols
}

// SampleUsers draws n users from the pool without replacement. n must not
// exceed the pool size; n equal to the pool size returns a copy of the
// whole pool.
func SampleUsers(rng *rand.Rand, pool []User, n int) ([]User, error) {
	if n <= 0 {
		return nil, fmt.Errorf("dataset: sample size must be positive, got %d", n)
	}
	if n > len(pool) {
		return nil, fmt.Errorf("%w: %d > %d", ErrBadSampleSize, n, len(pool))
	}

	sampled := append([]User(nil), pool...)
	// Partial Fisher-Yates: only the first n positions need to be drawn.
	for i := 0; i < n; i++ {
		j := i + rng.IntN(len(sampled)-i)
		sampled[i], sampled[j] = sampled[j], sampled[i]
	}
	return sampled[:n], nil
}

// AssignTiers draws an activity tier for every user in place, with
// probability proportional to the tier weights.
func AssignTiers(rng *rand.Rand, users []User, tierWeights map[Tier]float64) error {
	entries := make([]sampler.Entry, 0, len(tierOrder))
	for _, tier := range tierOrder {
		if w, ok := tierWeights[tier]; ok {
			entries = append(entries, sampler.Entry{Name: string(tier), Weight: w})
		}
	}

	table, err := sampler.NewTable(entries)
	if err != nil {
		return fmt.Errorf("dataset: tier weights: %w", err)
	}

	for i := range users {
		users[i].Tier = Tier(table.Choose(rng))
	}
	return nil
}

// UserSelector draws one user per session with probability proportional to
// their tier weight, and independently draws the session login flag.
type UserSelector struct {
	users      []User
	index      *sampler.Index
	weights    []float64
	loginRatio float64
}

// NewUserSelector builds a selector over the sampled pool. Per-user weights
// are the tier weights normalized over the pool; a zero weight sum falls
// back to a uniform distribution and reports the fallback through warnf.
func NewUserSelector(users []User, tierWeights map[Tier]float64, loginRatio float64, warnf func(format string, args ...any)) (*UserSelector, error) {
	if len(users) == 0 {
		return nil, ErrEmptyPool
	}
	if loginRatio < 0 || loginRatio > 1 {
		return nil, fmt.Errorf("dataset: login ratio must be in [0,1], got %v", loginRatio)
	}

	raw := make([]float64, len(users))
	for i, u := range users {
		raw[i] = tierWeights[u.Tier]
	}

	weights, fellBack := sampler.Normalize(raw)
	if fellBack && warnf != nil {
		warnf("no user matched a known tier; falling back to uniform selection over %d users", len(users))
	}

	index, err := sampler.NewIndex(weights)
	if err != nil {
		return nil, fmt.Errorf("dataset: user weights: %w", err)
	}

	return &UserSelector{
		users:      users,
		index:      index,
		weights:    weights,
		loginRatio: loginRatio,
	}, nil
}

// Pick draws one user with replacement and a fresh login flag.
func (s *UserSelector) Pick(rng *rand.Rand) UserSnapshot {
	u := s.users[s.index.Draw(rng)]
	return UserSnapshot{
		UserID:   u.ID,
		Gender:   u.Gender,
		Age:      u.Age,
		LoggedIn: rng.Float64() < s.loginRatio,
	}
}

// Weights returns the normalized per-user selection weights.
func (s *UserSelector) Weights() []float64 {
	return append([]float64(nil), s.weights...)
}
