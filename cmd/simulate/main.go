// simulate drives a raceodds server with synthetic races: opens
// sessions over the scorefeed API and plays each one to the finish
// with a biased point coin. Exercises the whole pipeline end-to-end
// (API -> tracker -> history -> fanout) without a real scorekeeper.
//
// Usage:
//
//	go run ./cmd/simulate -addr localhost:8090 -races 3 -goal 11 -p 0.55
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/mfortuna/raceodds/internal/telemetry"
)

var client = &http.Client{Timeout: 10 * time.Second}

type raceReply struct {
	SessionID string `json:"session_id"`
	Win       int    `json:"win"`
	Lose      int    `json:"lose"`
	Goal      int    `json:"goal"`
	Finished  bool   `json:"finished"`
	Won       bool   `json:"won"`
}

func main() {
	addr := flag.String("addr", "localhost:8090", "scorefeed server host:port")
	races := flag.Int("races", 3, "concurrent races to play")
	goal := flag.Int("goal", 11, "points to win (ignored when -format is set)")
	format := flag.String("format", "", "race format from the server's atlas")
	p := flag.Float64("p", 0.55, "per-point win probability for the tracked side")
	interval := flag.Duration("interval", 300*time.Millisecond, "gap between points")
	seed := flag.Int64("seed", 0, "rng seed (0 seeds from the clock)")
	flag.Parse()

	if *p <= 0 || *p >= 1 {
		fmt.Fprintf(os.Stderr, "p must be inside (0, 1), got %v\n", *p)
		os.Exit(1)
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	base := "http://" + *addr

	var wg sync.WaitGroup
	for i := 0; i < *races; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			playRace(base, *format, *goal, *p, *interval, rand.New(rand.NewSource(*seed+int64(worker))))
		}(i)
	}
	wg.Wait()
}

func playRace(base, format string, goal int, p float64, interval time.Duration, rng *rand.Rand) {
	create := map[string]any{"goal": goal}
	if format != "" {
		create = map[string]any{"format": format}
	}
	st, err := post(base+"/v1/races", create)
	if err != nil {
		telemetry.Errorf("simulate: open race: %v", err)
		return
	}
	telemetry.Infof("simulate: race %s opened  goal=%d", st.SessionID, st.Goal)

	points := 0
	for !st.Finished {
		time.Sleep(interval)

		side := "lose"
		if rng.Float64() < p {
			side = "win"
		}
		st, err = post(base+"/v1/races/"+st.SessionID+"/points", map[string]any{"side": side})
		if err != nil {
			telemetry.Errorf("simulate: point: %v", err)
			return
		}
		points++

		// Resend the board once mid-race to exercise the correction
		// path.
		if points == 5 && !st.Finished {
			st, err = post(base+"/v1/races/"+st.SessionID+"/points", map[string]any{"win": st.Win, "lose": st.Lose})
			if err != nil {
				telemetry.Errorf("simulate: correction: %v", err)
				return
			}
		}
	}

	telemetry.Infof("simulate: race %s final %d-%d  won=%v  points=%d", st.SessionID, st.Win, st.Lose, st.Won, points)
}

func post(url string, body map[string]any) (raceReply, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return raceReply{}, err
	}

	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return raceReply{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		return raceReply{}, fmt.Errorf("%s: status=%d %s", url, resp.StatusCode, e.Error)
	}

	var reply raceReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return raceReply{}, fmt.Errorf("decode reply: %w", err)
	}
	return reply, nil
}
