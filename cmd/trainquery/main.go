package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"trainquery/internal/config"
	"trainquery/internal/gtfs"
	"trainquery/internal/network"
	"trainquery/internal/realtime"
	"trainquery/internal/server"
	"trainquery/internal/storage"
	"trainquery/internal/timetable"
	"trainquery/internal/timeutil"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()
	cfg := config.Load()

	// CLI flags
	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.NetworkPath, "network", cfg.NetworkPath, "Network config YAML file")
	flag.StringVar(&cfg.GTFSDir, "gtfs-dir", cfg.GTFSDir, "Directory for downloaded GTFS files")
	flag.BoolVar(&cfg.TestMode, "test-mode", cfg.TestMode, "Serve static timetables only, without GTFS or realtime feeds")
	flag.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Enable debug logging")
	flag.BoolVar(&cfg.RefreshOnly, "refresh-only", false, "Rebuild GTFS data, then exit")
	flag.Parse()

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	net, err := config.LoadNetwork(cfg.NetworkPath)
	if err != nil {
		logger.Error("failed to load network", "error", err)
		os.Exit(1)
	}
	if cfg.GTFSURL != "" {
		overrideFeedURL(net, cfg.GTFSURL, logger)
	}
	if cfg.TestMode {
		net.Feeds = nil
	}
	issues := net.Validate()
	for _, issue := range issues {
		logger.Warn("network config", "issue", issue.String())
	}
	if network.HasErrors(issues) {
		logger.Error("network config has errors", "path", cfg.NetworkPath)
		os.Exit(1)
	}
	static, err := timetable.FromStatic(net)
	if err != nil {
		logger.Error("invalid static timetable", "error", err)
		os.Exit(1)
	}

	// Cancelled on SIGINT/SIGTERM for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(cfg.DBPath, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	clock := timeutil.SystemClock{}
	store := timetable.NewStore(logger)
	worker := gtfs.NewWorker(net, cfg.GTFSDir, db, store.Installer(net, static, clock), cfg.GTFSRefresh, logger)

	if cfg.RefreshOnly {
		if len(net.Feeds) == 0 {
			logger.Error("no GTFS feeds configured")
			os.Exit(1)
		}
		logger.Info("rebuilding GTFS data")
		if err := worker.Update(ctx); err != nil {
			logger.Error("GTFS refresh failed", "error", err)
			os.Exit(1)
		}
		logger.Info("GTFS refresh complete")
		return
	}

	if len(net.Feeds) == 0 {
		store.Swap(timetable.NewSnapshot(net, static, nil, clock.Now()))
	} else {
		go func() {
			// Download on first run, then keep the data fresh
			if err := worker.EnsureData(ctx); err != nil {
				logger.Error("failed to ensure GTFS data", "error", err)
				if store.Load() == nil {
					logger.Warn("serving static timetables only")
					store.Swap(timetable.NewSnapshot(net, static, nil, clock.Now()))
				}
			}
			worker.StartBackground(ctx)
		}()
	}

	rtStore := realtime.NewStore()
	if cfg.RealtimeURL != "" && !cfg.TestMode {
		var feed network.FeedConfig
		if len(net.Feeds) > 0 {
			feed = net.Feeds[0]
		}
		fetcher := realtime.NewFetcher(net, realtime.Config{
			TripUpdatesURL: cfg.RealtimeURL,
			AlertsURL:      cfg.AlertsURL,
			Period:         cfg.RealtimePeriod,
			Feed:           feed,
		}, rtStore, logger)
		go fetcher.Start(ctx)
	}

	srv := server.New(cfg, store, rtStore, clock, logger)
	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// overrideFeedURL points the network's only feed at url, or adds one when
// the config names none.
func overrideFeedURL(net *network.Network, url string, logger *slog.Logger) {
	switch len(net.Feeds) {
	case 0:
		net.Feeds = []network.FeedConfig{{Name: "gtfs", URL: url}}
	case 1:
		net.Feeds[0].URL = url
	default:
		logger.Warn("TRAINQUERY_GTFS_URL ignored: network config has several feeds", "feeds", len(net.Feeds))
	}
}
