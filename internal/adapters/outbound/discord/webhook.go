// Package discord posts race-final announcements to a Discord channel
// webhook. A Notifier with an empty URL is a no-op, so callers never
// need to branch on whether announcements are configured.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mfortuna/raceodds/internal/events"
	"github.com/mfortuna/raceodds/internal/telemetry"
)

type Notifier struct {
	webhookURL string
	httpClient *http.Client
}

func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *Notifier) Enabled() bool { return n.webhookURL != "" }

// Attach subscribes the notifier to race finishes. Posting happens off
// the bus goroutine so a slow Discord round trip never stalls a
// tracker.
func Attach(bus *events.Bus, n *Notifier) {
	if !n.Enabled() {
		return
	}
	bus.Subscribe(events.EventRaceFinish, func(e events.Event) error {
		fin, ok := e.Payload.(events.RaceFinishEvent)
		if !ok {
			return nil
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := n.RaceFinal(ctx, fin); err != nil {
				telemetry.Warnf("discord: %v", err)
			}
		}()
		return nil
	})
}

type Embed struct {
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Color       int     `json:"color,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
	Timestamp   string  `json:"timestamp,omitempty"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type webhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

const (
	colorGreen = 0x2ECC71
	colorRed   = 0xE74C3C
)

// RaceFinal announces a decided race.
func (n *Notifier) RaceFinal(ctx context.Context, fin events.RaceFinishEvent) error {
	outcome, color := "lost", colorRed
	if fin.Won {
		outcome, color = "won", colorGreen
	}
	return n.SendEmbed(ctx, Embed{
		Title:       fmt.Sprintf("Race final — %s", outcome),
		Description: fmt.Sprintf("%d – %d in a race to %d", fin.Win, fin.Lose, fin.Goal),
		Color:       color,
		Fields: []Field{
			{Name: "Session", Value: fin.SessionID, Inline: false},
		},
	})
}

func (n *Notifier) SendText(ctx context.Context, msg string) error {
	return n.send(ctx, webhookPayload{Content: msg})
}

func (n *Notifier) SendEmbed(ctx context.Context, embed Embed) error {
	if embed.Timestamp == "" {
		embed.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return n.send(ctx, webhookPayload{Embeds: []Embed{embed}})
}

func (n *Notifier) send(ctx context.Context, payload webhookPayload) error {
	if !n.Enabled() {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("discord rate limited")
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook: status=%d", resp.StatusCode)
	}

	return nil
}
