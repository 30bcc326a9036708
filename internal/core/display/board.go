// Package display renders scoreboard lines for the terminal frontends
// and mirrors live race activity onto stderr in serve mode.
package display

import (
	"fmt"

	"github.com/mfortuna/raceodds/internal/core/taylor"
)

const (
	dividerHeavy = "========================================================================"
	dividerLight = "~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~"
)

// ScoreLine renders one scoreboard row: win right-aligned, lose
// left-aligned, two digits each, then the quote.
func ScoreLine(win, lose int, quote string) string {
	return fmt.Sprintf("[%2d-%-2d] %s", win, lose, quote)
}

// QuoteLines renders the odds for a score. The float form always
// appears; fraction prepends the exact symbolic form.
func QuoteLines(win, lose int, odds taylor.Poly, fraction bool) []string {
	lines := make([]string, 0, 2)
	if fraction {
		lines = append(lines, ScoreLine(win, lose, odds.String()))
	}
	lines = append(lines, ScoreLine(win, lose, odds.Float().String()))
	return lines
}

// Percent formats a 0..1 win chance for scoreboard columns.
func Percent(mid float64) string {
	return fmt.Sprintf("%.1f%%", mid*100)
}
