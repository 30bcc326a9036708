// replay_history re-solves every position stored in a history database
// and checks the persisted coefficients against a fresh solve, then
// scores the recorded midpoints against how the races actually ended.
//
// A mismatch means the file was written by a different solver (or got
// corrupted); the calibration table shows whether quoted win chances
// line up with observed outcomes.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mfortuna/raceodds/internal/core/history"
	"github.com/mfortuna/raceodds/internal/core/winprob"
)

type bucketStats struct {
	rows int
	wins int
	mid  float64 // summed, for the bucket mean
}

func midBucket(mid float64) int {
	b := int(mid * 10)
	if b > 9 {
		b = 9
	}
	if b < 0 {
		b = 0
	}
	return b
}

func main() {
	dbPath := flag.String("db", "raceodds_history.db", "history database path")
	n := flag.Int("n", 10000, "max rows to replay, newest first")
	showMismatches := flag.Int("show", 5, "mismatched rows to print in detail")
	flag.Parse()

	store, err := history.Open(*dbPath, history.DefaultMaxBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open history: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	rows, err := store.Recent(*n)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read history: %v\n", err)
		os.Exit(1)
	}
	if len(rows) == 0 {
		fmt.Println("(no data)")
		return
	}

	solver := winprob.NewSolver()

	// Pass 1: session outcomes from terminal rows.
	outcomes := map[string]bool{}
	for _, row := range rows {
		switch {
		case row.Win == row.Goal:
			outcomes[row.SessionID] = true
		case row.Lose == row.Goal:
			outcomes[row.SessionID] = false
		}
	}

	// Pass 2: integrity check and calibration buckets.
	mismatches, invalid := 0, 0
	var buckets [10]bucketStats
	for _, row := range rows {
		exact, err := solver.Solve(row.Win, row.Lose, row.Goal)
		if err != nil {
			invalid++
			continue
		}
		if exact.RatStrings() != row.Coeffs {
			mismatches++
			if mismatches <= *showMismatches {
				fmt.Printf("mismatch id=%d session=%s [%d-%d goal %d]\n  stored: %v\n  solved: %v\n",
					row.ID, row.SessionID, row.Win, row.Lose, row.Goal, row.Coeffs, exact.RatStrings())
			}
			continue
		}

		won, decided := outcomes[row.SessionID]
		if !decided || row.Win == row.Goal || row.Lose == row.Goal {
			continue
		}
		b := midBucket(row.Mid)
		buckets[b].rows++
		buckets[b].mid += row.Mid
		if won {
			buckets[b].wins++
		}
	}

	fmt.Printf("\nReplayed %d rows: %d match, %d mismatch, %d unsolvable\n",
		len(rows), len(rows)-mismatches-invalid, mismatches, invalid)

	fmt.Println("\nCalibration (quoted win chance vs decided races):")
	fmt.Printf("%8s %8s %10s %10s\n", "bucket", "rows", "quoted", "observed")
	for i, b := range buckets {
		if b.rows == 0 {
			continue
		}
		fmt.Printf("%3d-%-3d%% %8d %9.1f%% %9.1f%%\n",
			i*10, (i+1)*10, b.rows,
			b.mid/float64(b.rows)*100,
			float64(b.wins)/float64(b.rows)*100)
	}

	if mismatches > 0 {
		os.Exit(1)
	}
}
