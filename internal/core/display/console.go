package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mfortuna/raceodds/internal/events"
)

// Console mirrors race activity onto a writer: one line per committed
// point, a boxed banner when a race ends. Used by the server so an
// operator tailing stderr can follow every live board.
type Console struct {
	out io.Writer
}

// AttachConsole subscribes a Console to the bus and returns it.
func AttachConsole(bus *events.Bus, out io.Writer) *Console {
	c := &Console{out: out}
	bus.Subscribe(events.EventOddsUpdate, c.onOdds)
	bus.Subscribe(events.EventRaceFinish, c.onFinish)
	return c
}

func (c *Console) onOdds(e events.Event) error {
	odds, ok := e.Payload.(events.OddsUpdateEvent)
	if !ok {
		return nil
	}

	ts := time.Now().Format("3:04:05.000 PM")
	tag := ""
	if odds.Correction {
		fmt.Fprintf(c.out, "%s\n", dividerLight)
		tag = "  (corrected)"
	}
	fmt.Fprintf(c.out, "[%s] %s %-12s %s  win %s%s\n",
		ts, shortSession(odds.SessionID), odds.Format,
		ScoreLine(odds.Win, odds.Lose, ""), Percent(odds.Mid), tag)
	return nil
}

func (c *Console) onFinish(e events.Event) error {
	fin, ok := e.Payload.(events.RaceFinishEvent)
	if !ok {
		return nil
	}

	outcome := "LOST"
	if fin.Won {
		outcome = "WON"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", dividerHeavy)
	fmt.Fprintf(&b, "  FINAL  %s  %s  race to %d  %s\n",
		shortSession(fin.SessionID), ScoreLine(fin.Win, fin.Lose, ""), fin.Goal, outcome)
	fmt.Fprintf(&b, "%s\n", dividerHeavy)
	fmt.Fprint(c.out, b.String())
	return nil
}

// shortSession trims a session UUID to its first block for log columns.
func shortSession(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
