// raceodds server: HTTP scorefeed API on one port, websocket odds
// fanout on another, every solved position journaled to SQLite.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mfortuna/raceodds/internal/adapters/inbound/scorefeed"
	"github.com/mfortuna/raceodds/internal/adapters/outbound/discord"
	"github.com/mfortuna/raceodds/internal/config"
	"github.com/mfortuna/raceodds/internal/core/display"
	"github.com/mfortuna/raceodds/internal/core/history"
	"github.com/mfortuna/raceodds/internal/core/race"
	"github.com/mfortuna/raceodds/internal/core/winprob"
	"github.com/mfortuna/raceodds/internal/events"
	"github.com/mfortuna/raceodds/internal/fanout"
	"github.com/mfortuna/raceodds/internal/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Init(telemetry.ParseLogLevel(cfg.LogLevel))
	telemetry.Infof("Starting raceodds server")

	bus := events.NewBus()
	solver := winprob.NewSolver()
	races := race.NewStore()

	// ── Format atlas ────────────────────────────────────────────
	atlas, err := config.LoadFormats(cfg.FormatsPath)
	if err != nil {
		telemetry.Warnf("formats: %v (using builtin atlas)", err)
		atlas = config.Builtin()
	}

	// ── Odds history ────────────────────────────────────────────
	hist, err := history.Open(cfg.HistoryPath, int64(cfg.HistoryMaxMB)<<20)
	if err != nil {
		telemetry.Warnf("History disabled: %v", err)
	} else {
		history.Attach(bus, hist)
	}

	// ── Console mirror ──────────────────────────────────────────
	display.AttachConsole(bus, os.Stderr)

	// ── Race announcements ──────────────────────────────────────
	notifier := discord.NewNotifier(cfg.DiscordWebhook)
	discord.Attach(bus, notifier)
	if notifier.Enabled() {
		telemetry.Infof("Discord announcements enabled")
	}

	// ── Websocket fanout ────────────────────────────────────────
	fan := fanout.NewServer(bus)
	go func() {
		if err := fan.ListenAndServe(cfg.FanoutAddr); err != nil && err != http.ErrServerClosed {
			telemetry.Errorf("Fanout server: %v", err)
			os.Exit(1)
		}
	}()
	telemetry.Infof("Fanout listening on %q", cfg.FanoutAddr)

	// ── Scorefeed API ───────────────────────────────────────────
	api := scorefeed.NewHandler(races, solver, bus, atlas, cfg.OddsRateLimit)
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			telemetry.Errorf("HTTP server: %v", err)
			os.Exit(1)
		}
	}()
	telemetry.Infof("Scorefeed listening on %q  default_format=%s", cfg.HTTPAddr, atlas.Default)

	// ── Shutdown ────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	telemetry.Infof("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	for _, tr := range races.All() {
		races.Delete(tr.SessionID())
	}
	if hist != nil {
		hist.Close()
	}

	hits, misses, entries := solver.Stats()
	telemetry.Infof("Shutdown complete  points=%d  races=%d/%d  solves=%d (memo %d/%d, %d states)  history=%d  broadcasts=%d  api=%d",
		telemetry.Metrics.PointsIngested.Value(),
		telemetry.Metrics.RacesFinished.Value(),
		telemetry.Metrics.RacesStarted.Value(),
		telemetry.Metrics.OddsSolved.Value(),
		hits, misses, entries,
		telemetry.Metrics.HistoryInserts.Value(),
		telemetry.Metrics.FanoutBroadcasts.Value(),
		telemetry.Metrics.APIRequests.Value(),
	)
}
