package fanout

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mfortuna/raceodds/internal/events"
)

// Envelope is the wire format for events sent over the fanout WebSocket.
type Envelope struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Timestamp time.Time       `json:"ts"`
	Payload   json.RawMessage `json:"payload"`
}

// MarshalEvent serializes an Event into a JSON-encoded Envelope.
func MarshalEvent(evt events.Event) ([]byte, error) {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	env := Envelope{
		Type:      string(evt.Type),
		ID:        evt.ID,
		SessionID: evt.SessionID,
		Timestamp: evt.Timestamp,
		Payload:   payload,
	}
	return json.Marshal(env)
}

// UnmarshalEvent deserializes a JSON Envelope back into a typed Event.
func UnmarshalEvent(data []byte) (events.Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return events.Event{}, fmt.Errorf("unmarshal envelope: %w", err)
	}

	evt := events.Event{
		ID:        env.ID,
		Type:      events.EventType(env.Type),
		SessionID: env.SessionID,
		Timestamp: env.Timestamp,
	}

	switch evt.Type {
	case events.EventScoreUpdate:
		var su events.ScoreUpdateEvent
		if err := json.Unmarshal(env.Payload, &su); err != nil {
			return evt, fmt.Errorf("unmarshal score_update: %w", err)
		}
		evt.Payload = su
	case events.EventOddsUpdate:
		var ou events.OddsUpdateEvent
		if err := json.Unmarshal(env.Payload, &ou); err != nil {
			return evt, fmt.Errorf("unmarshal odds_update: %w", err)
		}
		evt.Payload = ou
	case events.EventRaceFinish:
		var rf events.RaceFinishEvent
		if err := json.Unmarshal(env.Payload, &rf); err != nil {
			return evt, fmt.Errorf("unmarshal race_finish: %w", err)
		}
		evt.Payload = rf
	default:
		return evt, fmt.Errorf("unknown event type: %s", env.Type)
	}

	return evt, nil
}
