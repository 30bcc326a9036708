package history

import (
	"fmt"
	"time"

	"github.com/mfortuna/raceodds/internal/events"
)

// Attach subscribes the store to a bus so every odds update lands as a
// history row. A failed insert surfaces through the bus error log and
// never stops the stream.
func Attach(bus *events.Bus, store *Store) {
	bus.Subscribe(events.EventOddsUpdate, func(e events.Event) error {
		odds, ok := e.Payload.(events.OddsUpdateEvent)
		if !ok {
			return nil
		}
		if _, err := store.Insert(RowFromEvent(odds, e.Timestamp)); err != nil {
			return fmt.Errorf("record %s: %w", e.SessionID, err)
		}
		return nil
	})
}

// RowFromEvent maps an odds event onto its persisted form.
func RowFromEvent(e events.OddsUpdateEvent, ts time.Time) Row {
	return Row{
		Ts:          ts,
		SessionID:   e.SessionID,
		Format:      e.Format,
		Win:         e.Win,
		Lose:        e.Lose,
		Goal:        e.Goal,
		Coeffs:      e.Coeffs,
		FloatCoeffs: e.FloatCoeffs,
		Mid:         e.Mid,
	}
}
