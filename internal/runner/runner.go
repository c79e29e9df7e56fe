// Package runner orchestrates one generation run: loading the reference
// datasets, scheduling sessions across the date window, walking each
// session, and assembling the final event log.
package runner

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/example/bookshop/tools/eventgen/internal/behavior"
	"github.com/example/bookshop/tools/eventgen/internal/config"
	"github.com/example/bookshop/tools/eventgen/internal/dataset"
	"github.com/example/bookshop/tools/eventgen/internal/metrics"
	"github.com/example/bookshop/tools/eventgen/internal/profile"
	"github.com/example/bookshop/tools/eventgen/internal/session"
)

// ErrNilConfig is returned when the runner is created without configuration.
var ErrNilConfig = errors.New("runner: config is required")

// Runner generates one event log from a validated configuration.
type Runner struct {
	cfg      *config.Config
	out      io.Writer
	recorder *metrics.Recorder
}

// Result is the outcome of a generation run.
type Result struct {
	// RunID identifies this run in reports and export metadata.
	RunID string
	// Seed is the seed actually used, for replaying unseeded runs.
	Seed uint64
	// Events is the assembled log, in scheduling order.
	Events []session.Event
	// Sessions is the number of sessions generated.
	Sessions int
	// Users is the size of the sampled user pool.
	Users int
	// CatalogSize is the number of catalog items, zero when absent.
	CatalogSize int
	// Warnings counts non-fatal diagnostics raised during the run.
	Warnings int
	// Elapsed is the wall-clock generation time.
	Elapsed time.Duration
}

// New creates a runner. The configuration must already have defaults
// applied; Validate is re-run here so a runner can never start from an
// invalid config.
func New(cfg *config.Config, out io.Writer, recorder *metrics.Recorder) (*Runner, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if out == nil {
		out = os.Stdout
	}
	if recorder == nil {
		recorder = metrics.NewRecorder()
	}
	return &Runner{cfg: cfg, out: out, recorder: recorder}, nil
}

// Recorder returns the metrics recorder used by this runner.
func (r *Runner) Recorder() *metrics.Recorder {
	return r.recorder
}

// Run executes the full generation pipeline. Configuration and
// missing-user-pool errors are fatal; in-walk anomalies only end the
// affected session.
func (r *Runner) Run() (*Result, error) {
	started := time.Now()

	seed := r.cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed))

	result := &Result{
		RunID: uuid.New().String(),
		Seed:  seed,
	}

	warnf := func(format string, args ...any) {
		result.Warnings++
		r.recorder.Warning()
		fmt.Fprintf(r.out, "  ⚠ "+format+"\n", args...)
	}

	model := behavior.Default()
	if r.cfg.Profile != "" {
		def, err := profile.Find(r.cfg.ProfilesDir, r.cfg.Profile)
		if err != nil {
			return nil, err
		}
		if err := def.Apply(model); err != nil {
			return nil, err
		}
		fmt.Fprintf(r.out, "  ✓ profile %q applied\n", def.Name)
	}

	pool, err := dataset.LoadUserPool(r.cfg.UserPool)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(r.out, "  ✓ user pool loaded (%d users)\n", len(pool))

	sampled, err := dataset.SampleUsers(rng, pool, r.cfg.UsersToSample)
	if err != nil {
		return nil, err
	}
	if err := dataset.AssignTiers(rng, sampled, r.cfg.Tiers()); err != nil {
		return nil, err
	}
	result.Users = len(sampled)

	users, err := dataset.NewUserSelector(sampled, r.cfg.Tiers(), *r.cfg.LoginRatio, warnf)
	if err != nil {
		return nil, err
	}

	pickItem, catalogSize, err := r.itemPicker(warnf)
	if err != nil {
		return nil, err
	}
	result.CatalogSize = catalogSize

	walker, err := session.NewWalker(session.WalkerConfig{
		Model:                model,
		PickItem:             pickItem,
		ReconnectProbability: r.cfg.ReconnectProbability,
		Warnf:                warnf,
	})
	if err != nil {
		return nil, err
	}

	start, end, err := r.cfg.Window()
	if err != nil {
		return nil, err
	}
	scheduler, err := session.NewScheduler(r.cfg.Sessions, start, end)
	if err != nil {
		return nil, err
	}

	for _, at := range scheduler.StartTimes(rng) {
		user := users.Pick(rng)
		sess := session.NewSession(rng, at, user.UserID, user.LoggedIn)
		events := walker.Walk(rng, sess)

		for _, ev := range events {
			r.recorder.EventGenerated(ev.Name)
			switch ev.Name {
			case session.EventDropOff:
				r.recorder.DropOff()
			case session.EventReconnect:
				r.recorder.Reconnect()
			}
		}

		result.Events = append(result.Events, events...)
		result.Sessions++
		r.recorder.SessionGenerated()
	}

	result.Elapsed = time.Since(started)
	return result, nil
}

// itemPicker loads the catalog and builds the walker's item hook. A missing
// or empty catalog yields a nil picker, which disables item context.
func (r *Runner) itemPicker(warnf func(format string, args ...any)) (func(rng *rand.Rand) session.ItemContext, int, error) {
	if r.cfg.Catalog == "" {
		return nil, 0, nil
	}

	items, err := dataset.LoadCatalog(r.cfg.Catalog, warnf)
	if err != nil {
		return nil, 0, err
	}
	if len(items) == 0 {
		return nil, 0, nil
	}
	fmt.Fprintf(r.out, "  ✓ catalog loaded (%d items)\n", len(items))

	selector, err := dataset.NewItemSelector(items, warnf)
	if err != nil {
		return nil, 0, err
	}

	pick := func(rng *rand.Rand) session.ItemContext {
		snap := selector.Pick(rng)
		return session.ItemContext{
			ID:       snap.ID,
			Title:    snap.Title,
			Price:    snap.Price,
			Category: snap.Category,
		}
	}
	return pick, len(items), nil
}
