// internal/practice/scheduler.go
package practice

import (
	"errors"
	"math/rand"
)

// ErrNoCandidates indicates an empty candidate set; the session must refuse
// to present an exercise.
var ErrNoCandidates = errors.New("candidate set is empty")

// NoAvoid disables the no-immediate-repeat exclusion in PickNext.
const NoAvoid = -1

// Scheduler picks the next practice target by weighted-random choice over a
// candidate set. The random source is injected so tests can replay draws.
type Scheduler struct {
	rnd *rand.Rand
}

// NewScheduler creates a scheduler backed by the given random source.
func NewScheduler(rnd *rand.Rand) *Scheduler {
	return &Scheduler{rnd: rnd}
}

// PickNext chooses a MIDI number from candidates, weighting each by its
// practice record. Candidates must be in ascending MIDI order; the walk
// order is that order, which makes a pick deterministic for a given draw.
// When avoid is a member of a multi-element set it is excluded, so the same
// pitch is never presented twice in a row unless it is the only candidate.
func (s *Scheduler) PickNext(candidates []int, t Table, avoid int) (int, error) {
	if len(candidates) == 0 {
		return 0, ErrNoCandidates
	}

	working := candidates
	if avoid != NoAvoid && len(candidates) > 1 {
		working = make([]int, 0, len(candidates)-1)
		for _, m := range candidates {
			if m != avoid {
				working = append(working, m)
			}
		}
		if len(working) == 0 {
			working = candidates
		}
	}

	weights := make([]float64, len(working))
	total := 0.0
	for i, m := range working {
		weights[i] = Weight(t, m)
		total += weights[i]
	}

	// Degenerate guard; weights are >= 1 so this cannot happen in practice.
	if total <= 0 {
		return working[s.rnd.Intn(len(working))], nil
	}

	r := s.rnd.Float64() * total
	for i, w := range weights {
		r -= w
		if r <= 0 {
			return working[i], nil
		}
	}
	// Floating-point drift left a sliver of r; the last candidate wins.
	return working[len(working)-1], nil
}
