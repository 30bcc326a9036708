// Interactive win-probability shell. Reads score updates from stdin
// and prints the win polynomial for the current board after each one.
//
// Input forms:
//
//	w        one point for the tracked side
//	l        one point for the opponent
//	10 5     set the board to 10-5
//
// Anything else, including a score past the goal, prints "Invalid
// input." and leaves the board unchanged.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mfortuna/raceodds/internal/config"
	"github.com/mfortuna/raceodds/internal/core/display"
	"github.com/mfortuna/raceodds/internal/core/history"
	"github.com/mfortuna/raceodds/internal/core/taylor"
	"github.com/mfortuna/raceodds/internal/core/winprob"
	"github.com/mfortuna/raceodds/internal/telemetry"
)

func main() {
	var goal int
	flag.IntVar(&goal, "n", 30, "points needed to win the race")
	flag.IntVar(&goal, "g", 30, "points needed to win the race (alias)")
	flag.IntVar(&goal, "goal", 30, "points needed to win the race (alias)")
	fraction := flag.Bool("fraction", false, "also print the exact symbolic form")
	format := flag.String("format", "", "race format from the atlas (overrides -goal)")
	historyPath := flag.String("history", "", "journal every quote into this SQLite file")
	flag.Parse()

	formatName := "custom"
	if *format != "" {
		f, ok := config.Builtin().Lookup(*format)
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown format %q\n", *format)
			os.Exit(1)
		}
		formatName, goal = f.Name, f.Goal
	}
	if goal < 1 {
		fmt.Fprintf(os.Stderr, "goal must be at least 1, got %d\n", goal)
		os.Exit(1)
	}

	var journal *history.Store
	if *historyPath != "" {
		st, err := history.Open(*historyPath, history.DefaultMaxBytes)
		if err != nil {
			telemetry.Warnf("history disabled: %v", err)
		} else {
			journal = st
			defer journal.Close()
		}
	}

	solver := winprob.NewSolver()
	session := uuid.NewString()
	in := bufio.NewScanner(os.Stdin)

	win, lose := 0, 0
	for {
		fmt.Print("> ")
		if !in.Scan() {
			break
		}
		line := in.Text()

		nextWin, nextLose := win, lose
		switch line {
		case "w":
			nextWin++
		case "l":
			nextLose++
		default:
			parts := strings.Fields(line)
			if len(parts) != 2 {
				fmt.Println("Invalid input.")
				continue
			}
			w, errW := strconv.Atoi(parts[0])
			l, errL := strconv.Atoi(parts[1])
			if errW != nil || errL != nil {
				fmt.Println("Invalid input.")
				continue
			}
			nextWin, nextLose = w, l
		}

		odds, err := solver.Solve(nextWin, nextLose, goal)
		if err != nil {
			fmt.Println("Invalid input.")
			continue
		}
		win, lose = nextWin, nextLose

		for _, ln := range display.QuoteLines(win, lose, odds, *fraction) {
			fmt.Println(ln)
		}
		if journal != nil {
			record(journal, session, formatName, win, lose, goal, odds)
		}
	}
}

func record(journal *history.Store, session, format string, win, lose, goal int, odds taylor.Poly) {
	f := odds.Float()
	_, err := journal.Insert(history.Row{
		Ts:          time.Now(),
		SessionID:   session,
		Format:      format,
		Win:         win,
		Lose:        lose,
		Goal:        goal,
		Coeffs:      odds.RatStrings(),
		FloatCoeffs: [4]float64{f.C0, f.C1, f.C2, f.C3},
		Mid:         f.Eval(0.5),
	})
	if err != nil {
		telemetry.Warnf("history insert: %v", err)
	}
}
