// Package winprob solves the win probability of a point race: given a
// score (win, lose) in a race to goal, it returns the chance the
// leading-count side reaches goal first as a truncated cubic in
// x = p - 1/2, where p is the per-point win probability.
package winprob

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/mfortuna/raceodds/internal/core/taylor"
)

// ErrOutOfRange reports a score component beyond the goal it was
// quoted against.
var ErrOutOfRange = errors.New("score exceeds goal")

// state keys one solved position.
type state struct {
	win, lose, goal int
}

// Solver owns the memo table behind Solve.
//
// The RWMutex protects the table map only. The cached taylor.Poly
// values are immutable, so they are handed out uncopied and shared
// across callers. The table grows for the life of the Solver and is
// never evicted: the first quote against a goal g fills O(g^2)
// entries, every later quote against the same g is a lookup.
type Solver struct {
	mu   sync.RWMutex
	memo map[state]taylor.Poly

	hits   atomic.Int64
	misses atomic.Int64
}

// NewSolver returns a solver with an empty table.
func NewSolver() *Solver {
	return &Solver{memo: make(map[state]taylor.Poly)}
}

// Solve returns the probability that the side on win points takes a
// race to goal against a side on lose points, following the one-step
// conditioning identity
//
//	S(w, l) = p·S(w+1, l) + q·S(w, l+1)
//
// in the truncated cubic algebra, with boundaries S(goal, l) = 1 and
// S(w, goal) = 0. The win boundary is checked first, so positions on
// both boundaries at once, the degenerate goal 0 race included,
// resolve win-certain.
//
// Solve fails only when win or lose already exceeds goal, wrapping
// ErrOutOfRange. It is safe for concurrent use.
func (s *Solver) Solve(win, lose, goal int) (taylor.Poly, error) {
	if win > goal || lose > goal {
		return taylor.Poly{}, fmt.Errorf("solve %d-%d to %d: %w", win, lose, goal, ErrOutOfRange)
	}

	k := state{win: win, lose: lose, goal: goal}

	s.mu.RLock()
	v, ok := s.memo[k]
	s.mu.RUnlock()
	if ok {
		s.hits.Add(1)
		return v, nil
	}
	s.misses.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.memo[k]; ok {
		return v, nil
	}
	s.fill(win, lose, goal)
	return s.memo[k], nil
}

// fill completes the table over [win..goal] x [lose..goal] for one
// goal, walking anti-diagonals outward from the (goal, goal) corner in
// increasing (goal-w)+(goal-l) order, so both successor states of a
// cell are present before the cell itself and no recursion depth ever
// tracks the size of goal. Caller holds the write lock.
func (s *Solver) fill(win, lose, goal int) {
	maxd := (goal - win) + (goal - lose)
	for d := 0; d <= maxd; d++ {
		dw := d - (goal - lose)
		if dw < 0 {
			dw = 0
		}
		for ; dw <= d && dw <= goal-win; dw++ {
			w, l := goal-dw, goal-(d-dw)
			k := state{win: w, lose: l, goal: goal}
			if _, ok := s.memo[k]; ok {
				continue
			}
			var v taylor.Poly
			switch {
			case w == goal:
				v = taylor.One()
			case l == goal:
				v = taylor.Zero()
			default:
				v = taylor.P().Mul(s.memo[state{win: w + 1, lose: l, goal: goal}]).
					Add(taylor.Q().Mul(s.memo[state{win: w, lose: l + 1, goal: goal}]))
			}
			s.memo[k] = v
		}
	}
}

// Stats reports memo behavior since the solver was created: lookup
// hits, misses that triggered a fill, and resident table entries.
func (s *Solver) Stats() (hits, misses int64, entries int) {
	s.mu.RLock()
	entries = len(s.memo)
	s.mu.RUnlock()
	return s.hits.Load(), s.misses.Load(), entries
}
