// Package scorefeed is the inbound HTTP adapter: scorekeepers open
// race sessions and post points, spectators poll odds. Persistence and
// fanout hang off the events the trackers publish, not off this API.
package scorefeed

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/mfortuna/raceodds/internal/config"
	"github.com/mfortuna/raceodds/internal/core/race"
	"github.com/mfortuna/raceodds/internal/core/taylor"
	"github.com/mfortuna/raceodds/internal/core/winprob"
	"github.com/mfortuna/raceodds/internal/events"
	"github.com/mfortuna/raceodds/internal/telemetry"
)

// Handler exposes the scorekeeper HTTP API.
//
// Routes:
//
//	POST /v1/races             -> open a race session
//	POST /v1/races/{id}/points -> score a point or correct the board
//	GET  /v1/races/{id}/odds   -> quote the current win polynomial
//	GET  /v1/races             -> list live sessions
//	GET  /healthz              -> liveness + solver counters
type Handler struct {
	races  *race.Store
	solver *winprob.Solver
	bus    *events.Bus
	atlas  config.Atlas

	oddsLimiter *rate.Limiter
	started     time.Time
}

// NewHandler wires the API against the live race store. oddsPerSec
// caps odds quotes across all sessions; burst equals the rate.
func NewHandler(races *race.Store, solver *winprob.Solver, bus *events.Bus, atlas config.Atlas, oddsPerSec int) *Handler {
	return &Handler{
		races:       races,
		solver:      solver,
		bus:         bus,
		atlas:       atlas,
		oddsLimiter: rate.NewLimiter(rate.Limit(oddsPerSec), oddsPerSec),
		started:     time.Now(),
	}
}

// RegisterRoutes wires HTTP routes onto the provided mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/races", h.handleCreate)
	mux.HandleFunc("POST /v1/races/{id}/points", h.handlePoint)
	mux.HandleFunc("GET /v1/races/{id}/odds", h.handleOdds)
	mux.HandleFunc("GET /v1/races", h.handleList)
	mux.HandleFunc("GET /healthz", h.healthCheck)
}

// createRequest picks the race shape: a named format from the atlas,
// or a bare goal for a custom race. An empty body means the atlas
// default.
type createRequest struct {
	Format string `json:"format"`
	Goal   int    `json:"goal"`
}

// pointRequest is one scoreboard mutation. Side scores a single point;
// win and lose together replace the scoreboard outright.
type pointRequest struct {
	Side string `json:"side"`
	Win  *int   `json:"win"`
	Lose *int   `json:"lose"`
}

type raceBody struct {
	SessionID string    `json:"session_id"`
	Format    string    `json:"format"`
	Win       int       `json:"win"`
	Lose      int       `json:"lose"`
	Goal      int       `json:"goal"`
	Finished  bool      `json:"finished"`
	Won       bool      `json:"won"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type oddsBody struct {
	raceBody
	Exact       string     `json:"exact"`
	Display     string     `json:"display"`
	Mid         float64    `json:"mid"`
	Coeffs      [4]string  `json:"coeffs"`
	FloatCoeffs [4]float64 `json:"float_coeffs"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	telemetry.Metrics.APIRequests.Inc()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(w, http.StatusBadRequest, "bad request body: %v", err)
		return
	}

	var f config.Format
	switch {
	case req.Format != "":
		var ok bool
		if f, ok = h.atlas.Lookup(req.Format); !ok {
			fail(w, http.StatusBadRequest, "unknown format %q", req.Format)
			return
		}
	case req.Goal > 0:
		f = config.Format{Name: "custom", Goal: req.Goal}
	case req.Goal < 0:
		fail(w, http.StatusBadRequest, "goal must be positive, got %d", req.Goal)
		return
	default:
		f = h.atlas.DefaultFormat()
	}

	tr := race.NewTracker(f.Name, f.Goal, h.solver, h.bus)
	h.races.Put(tr)

	st, err := tr.Snapshot()
	if err != nil {
		failFromTracker(w, tr.SessionID(), err)
		return
	}

	telemetry.Infof("scorefeed: race opened  session=%s  format=%s  goal=%d", tr.SessionID(), f.Name, f.Goal)
	writeJSON(w, http.StatusCreated, stateBody(st))
}

func (h *Handler) handlePoint(w http.ResponseWriter, r *http.Request) {
	telemetry.Metrics.APIRequests.Inc()

	tr, ok := h.races.Get(r.PathValue("id"))
	if !ok {
		fail(w, http.StatusNotFound, "no such race")
		return
	}

	var req pointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "bad request body: %v", err)
		return
	}

	var (
		st   race.State
		odds taylor.Poly
		err  error
	)
	switch {
	case req.Win != nil && req.Lose != nil:
		st, odds, err = tr.SetScore(*req.Win, *req.Lose)
	case req.Side == "win":
		st, odds, err = tr.PointFor()
	case req.Side == "lose":
		st, odds, err = tr.PointAgainst()
	default:
		fail(w, http.StatusBadRequest, `side must be "win" or "lose", or send both win and lose`)
		return
	}
	if err != nil {
		failFromTracker(w, tr.SessionID(), err)
		return
	}

	telemetry.Infof("scorefeed: point  session=%s  score=%d-%d  finished=%v", st.SessionID, st.Win, st.Lose, st.Finished)
	writeJSON(w, http.StatusOK, oddsBodyFrom(st, odds))
}

func (h *Handler) handleOdds(w http.ResponseWriter, r *http.Request) {
	telemetry.Metrics.APIRequests.Inc()
	if !h.oddsLimiter.Allow() {
		telemetry.Metrics.APIThrottled.Inc()
		fail(w, http.StatusTooManyRequests, "odds rate limit exceeded")
		return
	}

	tr, ok := h.races.Get(r.PathValue("id"))
	if !ok {
		fail(w, http.StatusNotFound, "no such race")
		return
	}

	st, odds, err := tr.Quote()
	if err != nil {
		failFromTracker(w, tr.SessionID(), err)
		return
	}
	writeJSON(w, http.StatusOK, oddsBodyFrom(st, odds))
}

func (h *Handler) handleList(w http.ResponseWriter, _ *http.Request) {
	telemetry.Metrics.APIRequests.Inc()

	trackers := h.races.All()
	out := make([]raceBody, 0, len(trackers))
	for _, tr := range trackers {
		st, err := tr.Snapshot()
		if err != nil {
			continue
		}
		out = append(out, stateBody(st))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].SessionID < out[j].SessionID
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(out),
		"races": out,
	})
}

func (h *Handler) healthCheck(w http.ResponseWriter, _ *http.Request) {
	hits, misses, entries := h.solver.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"uptime":       time.Since(h.started).Round(time.Second).String(),
		"active_races": h.races.Count(),
		"solver": map[string]any{
			"memo_hits":    hits,
			"memo_misses":  misses,
			"memo_entries": entries,
		},
	})
}

func stateBody(st race.State) raceBody {
	return raceBody{
		SessionID: st.SessionID,
		Format:    st.Format,
		Win:       st.Win,
		Lose:      st.Lose,
		Goal:      st.Goal,
		Finished:  st.Finished,
		Won:       st.Won,
		StartedAt: st.StartedAt,
		UpdatedAt: st.UpdatedAt,
	}
}

func oddsBodyFrom(st race.State, odds taylor.Poly) oddsBody {
	f := odds.Float()
	return oddsBody{
		raceBody:    stateBody(st),
		Exact:       odds.String(),
		Display:     f.String(),
		Mid:         f.Eval(0.5),
		Coeffs:      odds.RatStrings(),
		FloatCoeffs: [4]float64{f.C0, f.C1, f.C2, f.C3},
	}
}

// failFromTracker maps tracker and solver errors onto HTTP statuses.
func failFromTracker(w http.ResponseWriter, session string, err error) {
	switch {
	case errors.Is(err, race.ErrFinished):
		fail(w, http.StatusConflict, "race already finished")
	case errors.Is(err, winprob.ErrOutOfRange):
		telemetry.Warnf("scorefeed: rejected score for %s: %v", session, err)
		fail(w, http.StatusUnprocessableEntity, "%v", err)
	case errors.Is(err, race.ErrBusy):
		fail(w, http.StatusServiceUnavailable, "race busy, retry")
	default:
		fail(w, http.StatusInternalServerError, "%v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		telemetry.Warnf("scorefeed: response encode: %v", err)
	}
}

func fail(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}
