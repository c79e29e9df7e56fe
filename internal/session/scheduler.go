package session

import (
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"
	"time"
)

// ErrInvalidWindow is returned when the end of the date window is not after
// its start.
var ErrInvalidWindow = errors.New("session: end date must be after start date")

// Scheduler spreads session start times across a date window. The window is
// divided into equal steps and each start gets a uniform jitter of up to
// 10% of the step, so sessions appear in approximate chronological order
// with local randomness. Jitter can reorder neighbors; callers must not
// assume sorted output.
type Scheduler struct {
	total int
	start time.Time
	step  time.Duration
}

// NewScheduler plans total session starts between start and end.
func NewScheduler(total int, start, end time.Time) (*Scheduler, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("%w: %s .. %s", ErrInvalidWindow, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	var step time.Duration
	if total > 0 {
		step = end.Sub(start) / time.Duration(total)
	}

	return &Scheduler{total: total, start: start, step: step}, nil
}

// Step returns the window step between consecutive sessions.
func (s *Scheduler) Step() time.Duration {
	return s.step
}

// StartTimes yields each session index with its jittered start time.
func (s *Scheduler) StartTimes(rng *rand.Rand) iter.Seq2[int, time.Time] {
	return func(yield func(int, time.Time) bool) {
		jitterMax := s.step / 10
		for i := 0; i < s.total; i++ {
			var jitter time.Duration
			if jitterMax > 0 {
				jitter = time.Duration(rng.Int64N(int64(jitterMax)))
			}
			if !yield(i, s.start.Add(s.step*time.Duration(i)+jitter)) {
				return
			}
		}
	}
}
