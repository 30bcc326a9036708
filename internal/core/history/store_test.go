package history

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mfortuna/raceodds/internal/events"
)

func openTestStore(t *testing.T, maxBytes int64) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"), maxBytes)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRow(session string, win, lose int) Row {
	return Row{
		Ts:          time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC),
		SessionID:   session,
		Format:      "squash",
		Win:         win,
		Lose:        lose,
		Goal:        11,
		Coeffs:      [4]string{"11/16", "9/8", "-3/4", "-5/2"},
		FloatCoeffs: [4]float64{0.6875, 1.125, -0.75, -2.5},
		Mid:         0.6875,
	}
}

func TestStoreInsertAndQuery(t *testing.T) {
	s := openTestStore(t, 1<<30)

	for i := 1; i <= 3; i++ {
		_, err := s.Insert(testRow("sess-a", i, 0))
		require.NoError(t, err)
	}
	_, err := s.Insert(testRow("sess-b", 0, 1))
	require.NoError(t, err)

	require.EqualValues(t, 4, s.Count())

	t.Run("recent is newest first", func(t *testing.T) {
		rows, err := s.Recent(2)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		require.Equal(t, "sess-b", rows[0].SessionID)
		require.Equal(t, 3, rows[1].Win)
	})

	t.Run("by session is oldest first", func(t *testing.T) {
		rows, err := s.BySession("sess-a", 100)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		require.Equal(t, 1, rows[0].Win)
		require.Equal(t, 3, rows[2].Win)
	})

	t.Run("coefficients survive the round trip", func(t *testing.T) {
		rows, err := s.BySession("sess-b", 1)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.Equal(t, [4]string{"11/16", "9/8", "-3/4", "-5/2"}, rows[0].Coeffs)
		require.Equal(t, [4]float64{0.6875, 1.125, -0.75, -2.5}, rows[0].FloatCoeffs)
		require.Equal(t, 0.6875, rows[0].Mid)
		require.Equal(t, time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC), rows[0].Ts)
	})
}

func TestStoreEviction(t *testing.T) {
	// A 1-byte budget forces the size check at row 100 to evict the
	// oldest 10%.
	s := openTestStore(t, 1)

	for i := 0; i < 100; i++ {
		_, err := s.Insert(testRow(fmt.Sprintf("sess-%03d", i), i%12, 0))
		require.NoError(t, err)
	}

	require.EqualValues(t, 90, s.Count(), "crossing the budget should drop the oldest tenth")

	rows, err := s.Recent(1000)
	require.NoError(t, err)
	require.Len(t, rows, 90)
	require.Equal(t, "sess-099", rows[0].SessionID, "newest rows should survive eviction")
	for _, r := range rows {
		require.GreaterOrEqual(t, r.SessionID, "sess-010", "evicted rows should be the oldest")
	}
}

func TestStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path, 1<<30)
	require.NoError(t, err)
	_, err = s.Insert(testRow("sess-a", 5, 3))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, 1<<30)
	require.NoError(t, err)
	defer s.Close()
	require.EqualValues(t, 1, s.Count(), "reopening should pick up the persisted row count")
}

func TestAttachRecordsOddsEvents(t *testing.T) {
	s := openTestStore(t, 1<<30)
	bus := events.NewBus()
	Attach(bus, s)

	bus.Publish(events.Event{
		Type:      events.EventOddsUpdate,
		SessionID: "sess-live",
		Timestamp: time.Now(),
		Payload: events.OddsUpdateEvent{
			SessionID:   "sess-live",
			Format:      "badminton",
			Win:         19,
			Lose:        17,
			Goal:        21,
			Exact:       "x",
			Display:     "y",
			Mid:         0.75,
			Coeffs:      [4]string{"3/4", "1", "-1", "0"},
			FloatCoeffs: [4]float64{0.75, 1, -1, 0},
		},
	})

	// Unrelated event types must not produce rows.
	bus.Publish(events.Event{Type: events.EventScoreUpdate, Payload: events.ScoreUpdateEvent{}})

	rows, err := s.BySession("sess-live", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "badminton", rows[0].Format)
	require.Equal(t, 19, rows[0].Win)
	require.Equal(t, "3/4", rows[0].Coeffs[0])
	require.EqualValues(t, 1, s.Count())
}
