// Probe a raceodds fanout server: websocket round-trip latency plus a
// count of odds updates streamed during the probe window.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mfortuna/raceodds/internal/fanout"
	"github.com/mfortuna/raceodds/internal/telemetry"
)

func main() {
	addr := flag.String("addr", "localhost:8091", "fanout server host:port")
	count := flag.Int("count", 10, "pings to send")
	interval := flag.Duration("interval", 500*time.Millisecond, "gap between pings")
	flag.Parse()

	wsURL := fmt.Sprintf("ws://%s/ws", *addr)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial %s: %v\n", wsURL, err)
		os.Exit(1)
	}
	defer conn.Close()
	fmt.Printf("connected to %s\n", wsURL)

	// Pings carry the send time; the pong echo turns into an RTT
	// sample inside the read loop.
	pongs := make(chan time.Duration, *count)
	conn.SetPongHandler(func(appData string) error {
		if ns, err := strconv.ParseInt(appData, 10, 64); err == nil {
			pongs <- time.Since(time.Unix(0, ns))
		}
		return nil
	})

	var updates atomic.Int64
	go func() {
		defer close(pongs)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if _, err := fanout.UnmarshalEvent(msg); err == nil {
				updates.Add(1)
			}
		}
	}()

	rtt := telemetry.NewLatencyTracker(*count)
	received := 0
	var minRTT, maxRTT time.Duration

loop:
	for i := 0; i < *count; i++ {
		payload := []byte(strconv.FormatInt(time.Now().UnixNano(), 10))
		if err := conn.WriteControl(websocket.PingMessage, payload, time.Now().Add(5*time.Second)); err != nil {
			fmt.Fprintf(os.Stderr, "ping %d: %v\n", i+1, err)
			break
		}

		select {
		case d, ok := <-pongs:
			if !ok {
				fmt.Fprintln(os.Stderr, "connection closed by server")
				break loop
			}
			received++
			rtt.Record(d)
			if minRTT == 0 || d < minRTT {
				minRTT = d
			}
			if d > maxRTT {
				maxRTT = d
			}
			fmt.Printf("pong %d  rtt=%s\n", received, d)
		case <-time.After(5 * time.Second):
			fmt.Printf("ping %d  timeout\n", i+1)
		}

		if i < *count-1 {
			time.Sleep(*interval)
		}
	}

	if received == 0 {
		fmt.Fprintln(os.Stderr, "no pongs received")
		os.Exit(1)
	}
	fmt.Printf("\n%d/%d pongs  min=%s  p50=%s  p99=%s  max=%s  updates_seen=%d\n",
		received, *count, minRTT, rtt.P50(), rtt.P99(), maxRTT, updates.Load())
}
