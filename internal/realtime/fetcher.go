package realtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"trainquery/internal/network"
	"trainquery/internal/timeutil"
)

// Config says where to poll for live data. AlertsURL may be empty.
type Config struct {
	TripUpdatesURL string
	AlertsURL      string
	Period         time.Duration
	// Feed supplies the stop ID mapping for the live feed.
	Feed network.FeedConfig
}

// Fetcher polls GTFS-RT feeds, identifies live trips and updates the store.
type Fetcher struct {
	net    *network.Network
	cfg    Config
	store  *Store
	client *http.Client
	clock  timeutil.Clock
	logger *slog.Logger
}

// NewFetcher creates a GTFS-RT feed fetcher.
func NewFetcher(net *network.Network, cfg Config, store *Store, logger *slog.Logger) *Fetcher {
	if cfg.Period <= 0 {
		cfg.Period = 60 * time.Second
	}
	return &Fetcher{
		net:    net,
		cfg:    cfg,
		store:  store,
		client: &http.Client{Timeout: 15 * time.Second},
		clock:  timeutil.SystemClock{},
		logger: logger,
	}
}

// Start begins polling. Blocks until context is cancelled.
func (f *Fetcher) Start(ctx context.Context) {
	// Fetch immediately on start
	f.poll(ctx)

	ticker := time.NewTicker(f.cfg.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.poll(ctx)
		case <-ctx.Done():
			f.logger.Info("GTFS-RT fetcher stopped")
			return
		}
	}
}

func (f *Fetcher) poll(ctx context.Context) {
	if err := f.FetchTrips(ctx); err != nil {
		f.logger.Warn("fetch trip updates failed", "error", err)
	}
	if f.cfg.AlertsURL == "" {
		return
	}
	if err := f.FetchAlerts(ctx); err != nil {
		f.logger.Warn("fetch alerts failed", "error", err)
	}
}

// FetchTrips downloads the trip updates feed once and replaces the
// identified trips in the store.
func (f *Fetcher) FetchTrips(ctx context.Context) error {
	msg, err := f.fetch(ctx, f.cfg.TripUpdatesURL)
	if err != nil {
		return err
	}
	trips, stats, err := IdentifyTrips(msg, f.net, f.cfg.Feed)
	if err != nil {
		return fmt.Errorf("identify trips: %w", err)
	}
	f.store.SetTrips(trips, f.clock.Now())
	f.logger.Info("GTFS-RT trips updated",
		"updates", stats.Updates,
		"identified", stats.Identified,
		"unmatched", stats.Unmatched,
		"unmapped_stops", stats.UnmappedStops,
	)
	return nil
}

// FetchAlerts downloads the alerts feed once and replaces the store's
// alerts.
func (f *Fetcher) FetchAlerts(ctx context.Context) error {
	msg, err := f.fetch(ctx, f.cfg.AlertsURL)
	if err != nil {
		return err
	}
	alerts := ParseAlerts(msg, f.net, f.cfg.Feed)
	f.store.SetAlerts(alerts)
	f.logger.Info("GTFS-RT alerts updated", "count", len(alerts))
	return nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) (*gtfsrt.FeedMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	msg := &gtfsrt.FeedMessage{}
	if err := proto.Unmarshal(body, msg); err != nil {
		return nil, fmt.Errorf("parse protobuf: %w", err)
	}
	return msg, nil
}
