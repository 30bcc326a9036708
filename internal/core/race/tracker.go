package race

import (
	"time"

	"github.com/google/uuid"

	"github.com/mfortuna/raceodds/internal/core/taylor"
	"github.com/mfortuna/raceodds/internal/core/winprob"
	"github.com/mfortuna/raceodds/internal/events"
	"github.com/mfortuna/raceodds/internal/telemetry"
)

// Tracker is the single source of truth for one race session.
//
// All state mutations are serialized through an inbox channel drained
// by one goroutine, so no mutex guards any field. Callers interact
// through the synchronous Point/SetScore/Quote methods, which post a
// closure and wait for it; the posting itself never blocks, a
// saturated inbox fails the call with ErrBusy instead of stalling the
// caller.
//
// The solver is shared across trackers: races quoted against the same
// goal reuse one memo table.
type Tracker struct {
	state  State
	solver *winprob.Solver
	bus    *events.Bus

	inbox chan func()
	stop  chan struct{}
}

// NewTracker starts a tracker for a fresh 0-0 race and its goroutine.
func NewTracker(format string, goal int, solver *winprob.Solver, bus *events.Bus) *Tracker {
	now := time.Now()
	t := &Tracker{
		state: State{
			SessionID: uuid.NewString(),
			Format:    format,
			Goal:      goal,
			StartedAt: now,
			UpdatedAt: now,
		},
		solver: solver,
		bus:    bus,
		inbox:  make(chan func(), 256),
		stop:   make(chan struct{}),
	}
	go t.run()
	telemetry.Metrics.RacesStarted.Inc()
	return t
}

// run is the tracker's event loop. Closures posted via do execute here
// one at a time.
func (t *Tracker) run() {
	defer close(t.stop)
	for fn := range t.inbox {
		fn()
	}
}

// do runs fn on the tracker goroutine and waits for it to finish.
func (t *Tracker) do(fn func()) error {
	done := make(chan struct{})
	select {
	case t.inbox <- func() { fn(); close(done) }:
	default:
		telemetry.Metrics.InboxOverflows.Inc()
		telemetry.Warnf("race %s: inbox full (cap=%d), dropping update", t.state.SessionID, cap(t.inbox))
		return ErrBusy
	}
	<-done
	return nil
}

// Close shuts down the tracker goroutine and waits for it to drain.
// No methods may be called after Close.
func (t *Tracker) Close() {
	close(t.inbox)
	<-t.stop
}

// SessionID is immutable after construction, so reading it off the
// tracker goroutine is safe.
func (t *Tracker) SessionID() string { return t.state.SessionID }

// PointFor scores one point for the tracked side.
func (t *Tracker) PointFor() (State, taylor.Poly, error) {
	return t.update(func(s State) (int, int) { return s.Win + 1, s.Lose }, false)
}

// PointAgainst scores one point for the opponent.
func (t *Tracker) PointAgainst() (State, taylor.Poly, error) {
	return t.update(func(s State) (int, int) { return s.Win, s.Lose + 1 }, false)
}

// SetScore replaces the score outright, the scorekeeper's correction
// path. Subject to the same range rules as a point.
func (t *Tracker) SetScore(win, lose int) (State, taylor.Poly, error) {
	return t.update(func(State) (int, int) { return win, lose }, true)
}

// Snapshot returns the current state without solving anything.
func (t *Tracker) Snapshot() (State, error) {
	var st State
	if err := t.do(func() { st = t.state }); err != nil {
		return State{}, err
	}
	return st, nil
}

// Quote returns the current state and its win polynomial without
// changing anything. A memo hit for any race already quoted.
func (t *Tracker) Quote() (State, taylor.Poly, error) {
	var (
		st   State
		odds taylor.Poly
		err  error
	)
	doErr := t.do(func() {
		st = t.state
		odds, err = t.solver.Solve(t.state.Win, t.state.Lose, t.state.Goal)
	})
	if doErr != nil {
		return State{}, taylor.Poly{}, doErr
	}
	return st, odds, err
}

// update applies a score transition on the tracker goroutine: solve
// first, commit and publish only if the new score is quotable. A score
// the solver rejects leaves the race exactly where it was.
func (t *Tracker) update(next func(State) (int, int), correction bool) (State, taylor.Poly, error) {
	var (
		st   State
		odds taylor.Poly
		err  error
	)
	doErr := t.do(func() {
		if t.state.Finished {
			st, err = t.state, ErrFinished
			return
		}
		win, lose := next(t.state)

		start := time.Now()
		odds, err = t.solver.Solve(win, lose, t.state.Goal)
		if err != nil {
			telemetry.Metrics.InvalidScores.Inc()
			st = t.state
			return
		}
		telemetry.Metrics.SolveLatency.Record(time.Since(start))
		telemetry.Metrics.OddsSolved.Inc()
		if correction {
			telemetry.Metrics.ScoreCorrections.Inc()
		} else {
			telemetry.Metrics.PointsIngested.Inc()
		}

		t.state.Win, t.state.Lose = win, lose
		t.state.UpdatedAt = time.Now()
		switch {
		case win == t.state.Goal:
			t.state.Finished, t.state.Won = true, true
		case lose == t.state.Goal:
			t.state.Finished = true
		}
		st = t.state

		t.publishUpdate(st, odds, correction)
	})
	if doErr != nil {
		return State{}, taylor.Poly{}, doErr
	}
	return st, odds, err
}

// publishUpdate emits the score and odds events for a committed
// transition, plus the finish event when this point decided the race.
// Runs on the tracker goroutine.
func (t *Tracker) publishUpdate(st State, odds taylor.Poly, correction bool) {
	f := odds.Float()

	t.publish(events.EventScoreUpdate, events.ScoreUpdateEvent{
		SessionID:  st.SessionID,
		Format:     st.Format,
		Win:        st.Win,
		Lose:       st.Lose,
		Goal:       st.Goal,
		Correction: correction,
	})
	t.publish(events.EventOddsUpdate, events.OddsUpdateEvent{
		SessionID:   st.SessionID,
		Format:      st.Format,
		Win:         st.Win,
		Lose:        st.Lose,
		Goal:        st.Goal,
		Exact:       odds.String(),
		Display:     f.String(),
		Mid:         f.Eval(0.5),
		Correction:  correction,
		Coeffs:      odds.RatStrings(),
		FloatCoeffs: [4]float64{f.C0, f.C1, f.C2, f.C3},
	})
	if st.Finished {
		telemetry.Metrics.RacesFinished.Inc()
		t.publish(events.EventRaceFinish, events.RaceFinishEvent{
			SessionID: st.SessionID,
			Win:       st.Win,
			Lose:      st.Lose,
			Goal:      st.Goal,
			Won:       st.Won,
		})
	}
}

func (t *Tracker) publish(typ events.EventType, payload any) {
	if t.bus == nil {
		return
	}
	t.bus.Publish(events.Event{
		ID:        uuid.NewString(),
		Type:      typ,
		SessionID: t.state.SessionID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
