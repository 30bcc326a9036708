// Package race tracks live point-race sessions: one Tracker per race,
// serialized on its own goroutine, publishing score and odds events on
// the bus as points land.
package race

import (
	"errors"
	"time"
)

// ErrFinished rejects score updates against a race already decided.
var ErrFinished = errors.New("race already finished")

// ErrBusy reports a saturated tracker inbox; the update was dropped.
var ErrBusy = errors.New("tracker inbox full")

// State is the score snapshot of one tracked race. Win counts points
// taken by the tracked side, Lose points taken by the opponent; the
// first side to Goal ends the race.
type State struct {
	SessionID string
	Format    string // atlas format name, "custom" for a bare goal
	Win       int
	Lose      int
	Goal      int
	StartedAt time.Time
	UpdatedAt time.Time
	Finished  bool
	Won       bool // meaningful once Finished
}
