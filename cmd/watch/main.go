// Terminal scoreboard for live odds. Connects to a raceodds fanout
// server and renders every update as it lands.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mfortuna/raceodds/internal/core/display"
	"github.com/mfortuna/raceodds/internal/events"
	"github.com/mfortuna/raceodds/internal/fanout"
	"github.com/mfortuna/raceodds/internal/telemetry"
)

var droppedUpdates atomic.Int64

type oddsMsg events.OddsUpdateEvent

type finishMsg events.RaceFinishEvent

type model struct {
	addr    string
	session string

	points    int
	finishes  int
	dropped   int64
	startTime time.Time
	recent    []string
	updates   chan tea.Msg
}

func initialModel(addr, session string, updates chan tea.Msg) model {
	return model{
		addr:      addr,
		session:   session,
		startTime: time.Now(),
		updates:   updates,
	}
}

type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func waitForUpdate(updates chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-updates
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case TickMsg:
		m.dropped = droppedUpdates.Load()
		return m, tickCmd()
	case oddsMsg:
		m.points++
		line := fmt.Sprintf("%s %-12s win %s", display.ScoreLine(msg.Win, msg.Lose, ""), msg.Format, display.Percent(msg.Mid))
		if msg.Correction {
			line += "  (corrected)"
		}
		m.recent = append([]string{line}, m.recent...)
		if len(m.recent) > 10 {
			m.recent = m.recent[:10]
		}
		return m, waitForUpdate(m.updates)
	case finishMsg:
		m.finishes++
		outcome := "LOST"
		if msg.Won {
			outcome = "WON"
		}
		line := fmt.Sprintf("%s race to %d  FINAL %s", display.ScoreLine(msg.Win, msg.Lose, ""), msg.Goal, outcome)
		m.recent = append([]string{line}, m.recent...)
		if len(m.recent) > 10 {
			m.recent = m.recent[:10]
		}
		return m, waitForUpdate(m.updates)
	}
	return m, nil
}

func (m model) View() string {
	session := m.session
	if session == "" {
		session = "all"
	}

	s := fmt.Sprintf("Odds watch  ws://%s/ws  session=%s\n\n", m.addr, session)
	s += fmt.Sprintf("Points seen:    %d\n", m.points)
	s += fmt.Sprintf("Races finished: %d\n", m.finishes)
	s += fmt.Sprintf("Duration:       %s\n", time.Since(m.startTime).Round(time.Second))
	if m.dropped > 0 {
		s += fmt.Sprintf("Dropped:        %d\n", m.dropped)
	}

	s += "\nRecent updates:\n"
	for _, line := range m.recent {
		s += line + "\n"
	}

	s += "\nPress q to quit.\n"
	return s
}

func main() {
	addr := flag.String("addr", "localhost:8091", "fanout server host:port")
	session := flag.String("session", "", "only watch this session (default all)")
	flag.Parse()

	// The TUI owns the terminal; keep telemetry quiet unless it burns.
	telemetry.Init(slog.LevelError)

	bus := events.NewBus()
	updates := make(chan tea.Msg, 64)
	bridge(bus, updates)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fanout.NewClient(*addr, *session, bus).ConnectWithRetry(ctx)

	p := tea.NewProgram(initialModel(*addr, *session, updates))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "watch: %v\n", err)
		os.Exit(1)
	}
}

// bridge forwards bus events into the TUI channel. Sends never block
// the websocket read loop; a full channel drops the update instead.
func bridge(bus *events.Bus, updates chan tea.Msg) {
	bus.Subscribe(events.EventOddsUpdate, func(e events.Event) error {
		if p, ok := e.Payload.(events.OddsUpdateEvent); ok {
			push(updates, oddsMsg(p))
		}
		return nil
	})
	bus.Subscribe(events.EventRaceFinish, func(e events.Event) error {
		if p, ok := e.Payload.(events.RaceFinishEvent); ok {
			push(updates, finishMsg(p))
		}
		return nil
	})
}

func push(updates chan tea.Msg, msg tea.Msg) {
	select {
	case updates <- msg:
	default:
		droppedUpdates.Add(1)
	}
}
