package events

import "time"

// Event is the envelope that flows through the event bus. Every domain
// event (score update, odds update, race finish) is wrapped in one.
type Event struct {
	ID        string
	Type      EventType
	SessionID string
	Timestamp time.Time
	Payload   any
}

type EventType string

const (
	// Published by race trackers on every applied transition.
	EventScoreUpdate EventType = "score_update"
	EventOddsUpdate  EventType = "odds_update"
	EventRaceFinish  EventType = "race_finish"
)
