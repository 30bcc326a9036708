package scorefeed

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mfortuna/raceodds/internal/config"
	"github.com/mfortuna/raceodds/internal/core/race"
	"github.com/mfortuna/raceodds/internal/core/winprob"
	"github.com/mfortuna/raceodds/internal/events"
)

func newTestAPI(t *testing.T, oddsPerSec int) (*http.ServeMux, *race.Store) {
	t.Helper()
	store := race.NewStore()
	t.Cleanup(func() {
		for _, tr := range store.All() {
			store.Delete(tr.SessionID())
		}
	})

	h := NewHandler(store, winprob.NewSolver(), events.NewBus(), config.Builtin(), oddsPerSec)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux, store
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeRace(t *testing.T, w *httptest.ResponseRecorder) raceBody {
	t.Helper()
	var v raceBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func decodeOdds(t *testing.T, w *httptest.ResponseRecorder) oddsBody {
	t.Helper()
	var v oddsBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func TestCreateRace(t *testing.T) {
	mux, store := newTestAPI(t, 100)

	t.Run("default format", func(t *testing.T) {
		w := doJSON(t, mux, http.MethodPost, "/v1/races", nil)
		require.Equal(t, http.StatusCreated, w.Code)
		body := decodeRace(t, w)
		require.Equal(t, "race30", body.Format, "empty body should open the default format")
		require.Equal(t, 30, body.Goal)
		require.NotEmpty(t, body.SessionID)
		_, ok := store.Get(body.SessionID)
		require.True(t, ok, "created race should be in the store")
	})

	t.Run("atlas format", func(t *testing.T) {
		w := doJSON(t, mux, http.MethodPost, "/v1/races", map[string]any{"format": "squash"})
		require.Equal(t, http.StatusCreated, w.Code)
		body := decodeRace(t, w)
		require.Equal(t, "squash", body.Format)
		require.Equal(t, 11, body.Goal)
	})

	t.Run("bare goal", func(t *testing.T) {
		w := doJSON(t, mux, http.MethodPost, "/v1/races", map[string]any{"goal": 5})
		require.Equal(t, http.StatusCreated, w.Code)
		body := decodeRace(t, w)
		require.Equal(t, "custom", body.Format)
		require.Equal(t, 5, body.Goal)
	})

	t.Run("unknown format", func(t *testing.T) {
		w := doJSON(t, mux, http.MethodPost, "/v1/races", map[string]any{"format": "cricket"})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("negative goal", func(t *testing.T) {
		w := doJSON(t, mux, http.MethodPost, "/v1/races", map[string]any{"goal": -3})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPointFlow(t *testing.T) {
	mux, _ := newTestAPI(t, 100)

	created := decodeRace(t, doJSON(t, mux, http.MethodPost, "/v1/races", map[string]any{"goal": 3}))
	path := "/v1/races/" + created.SessionID + "/points"

	w := doJSON(t, mux, http.MethodPost, path, map[string]any{"side": "win"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeOdds(t, w)
	require.Equal(t, 1, body.Win)
	require.Equal(t, 0, body.Lose)
	require.False(t, body.Finished)
	require.Greater(t, body.Mid, 0.5, "leading side should be favored at even point odds")
	require.NotEmpty(t, body.Exact)
	require.NotEmpty(t, body.Coeffs[0])

	doJSON(t, mux, http.MethodPost, path, map[string]any{"side": "win"})
	w = doJSON(t, mux, http.MethodPost, path, map[string]any{"side": "win"})
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeOdds(t, w)
	require.True(t, body.Finished)
	require.True(t, body.Won)
	require.Equal(t, 1.0, body.Mid, "a won race quotes certainty")

	w = doJSON(t, mux, http.MethodPost, path, map[string]any{"side": "lose"})
	require.Equal(t, http.StatusConflict, w.Code, "points after the finish should be rejected")
}

func TestPointCorrections(t *testing.T) {
	mux, _ := newTestAPI(t, 100)

	created := decodeRace(t, doJSON(t, mux, http.MethodPost, "/v1/races", map[string]any{"goal": 3}))
	path := "/v1/races/" + created.SessionID + "/points"

	w := doJSON(t, mux, http.MethodPost, path, map[string]any{"win": 2, "lose": 1})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeOdds(t, w)
	require.Equal(t, 2, body.Win)
	require.Equal(t, 1, body.Lose)

	w = doJSON(t, mux, http.MethodPost, path, map[string]any{"win": 5, "lose": 0})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, "score past the goal should be rejected")

	w = doJSON(t, mux, http.MethodGet, "/v1/races/"+created.SessionID+"/odds", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeOdds(t, w)
	require.Equal(t, 2, body.Win, "rejected correction should leave the board untouched")
	require.Equal(t, 1, body.Lose)

	w = doJSON(t, mux, http.MethodPost, path, map[string]any{"side": "sideways"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, mux, http.MethodPost, "/v1/races/nope/points", map[string]any{"side": "win"})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestOddsQuote(t *testing.T) {
	mux, _ := newTestAPI(t, 100)

	created := decodeRace(t, doJSON(t, mux, http.MethodPost, "/v1/races", map[string]any{"format": "badminton"}))

	w := doJSON(t, mux, http.MethodGet, "/v1/races/"+created.SessionID+"/odds", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeOdds(t, w)
	require.Equal(t, 0.5, body.Mid, "a fresh race at even odds is a coin flip")
	require.Equal(t, "1/2", body.Coeffs[0])
	require.Equal(t, 21, body.Goal)

	w = doJSON(t, mux, http.MethodGet, "/v1/races/nope/odds", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestOddsRateLimit(t *testing.T) {
	mux, _ := newTestAPI(t, 2)

	created := decodeRace(t, doJSON(t, mux, http.MethodPost, "/v1/races", map[string]any{"goal": 5}))
	path := "/v1/races/" + created.SessionID + "/odds"

	require.Equal(t, http.StatusOK, doJSON(t, mux, http.MethodGet, path, nil).Code)
	require.Equal(t, http.StatusOK, doJSON(t, mux, http.MethodGet, path, nil).Code)
	require.Equal(t, http.StatusTooManyRequests, doJSON(t, mux, http.MethodGet, path, nil).Code,
		"third quote inside the burst window should throttle")
}

func TestListRaces(t *testing.T) {
	mux, _ := newTestAPI(t, 100)

	a := decodeRace(t, doJSON(t, mux, http.MethodPost, "/v1/races", map[string]any{"goal": 7}))
	b := decodeRace(t, doJSON(t, mux, http.MethodPost, "/v1/races", map[string]any{"format": "squash"}))

	w := doJSON(t, mux, http.MethodGet, "/v1/races", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listing struct {
		Count int        `json:"count"`
		Races []raceBody `json:"races"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&listing))
	require.Equal(t, 2, listing.Count)

	ids := map[string]bool{}
	for _, rb := range listing.Races {
		ids[rb.SessionID] = true
	}
	require.True(t, ids[a.SessionID])
	require.True(t, ids[b.SessionID])
}

func TestHealthz(t *testing.T) {
	mux, _ := newTestAPI(t, 100)

	w := doJSON(t, mux, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Equal(t, "ok", body["status"])
	require.Contains(t, body, "solver")
	require.Contains(t, body, "active_races")
}
