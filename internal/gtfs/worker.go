package gtfs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"trainquery/internal/network"
	"trainquery/internal/storage"
	"trainquery/internal/timeutil"
)

// ErrNoFeedsConfigured is returned by Update when the network names no
// GTFS feeds.
var ErrNoFeedsConfigured = errors.New("no GTFS feeds configured")

// Worker keeps the reconciled GTFS data current: it downloads each feed,
// builds and merges the data, persists it and hands it to install.
type Worker struct {
	net         *network.Network
	downloaders []*Downloader
	importer    *Importer
	db          *storage.DB
	install     func(*Data)
	refresh     time.Duration
	clock       timeutil.Clock
	logger      *slog.Logger

	mu            sync.Mutex
	lastCheckDate timeutil.Date // prevents multiple checks per day
	current       *Data
}

// NewWorker creates a Worker for the feeds configured on net. install is
// called with every new data set, including one loaded from the database
// at startup.
func NewWorker(net *network.Network, dir string, db *storage.DB, install func(*Data), refresh time.Duration, logger *slog.Logger) *Worker {
	w := &Worker{
		net:      net,
		importer: NewImporter(db, logger),
		db:       db,
		install:  install,
		refresh:  refresh,
		clock:    timeutil.SystemClock{},
		logger:   logger,
	}
	for _, f := range net.Feeds {
		w.downloaders = append(w.downloaders, NewDownloader(f, dir, logger))
	}
	return w
}

// Current returns the most recently installed data, or nil.
func (w *Worker) Current() *Data {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// EnsureData installs data on startup. Stored data is reused when it was
// built against the same network config and is not yet due for refresh;
// otherwise the feeds are downloaded and rebuilt.
func (w *Worker) EnsureData(ctx context.Context) error {
	if len(w.downloaders) == 0 {
		w.logger.Info("no GTFS feeds configured")
		return nil
	}

	data, err := w.importer.Load(ctx)
	switch {
	case errors.Is(err, ErrNoStoredData):
		w.logger.Info("no GTFS data found, performing initial import")
	case err != nil:
		w.logger.Warn("stored GTFS data unreadable, rebuilding", "error", err)
	case data.ConfigHash != w.net.Hash():
		w.logger.Info("network config changed since last import, rebuilding")
	default:
		w.setCurrent(data)
		if !data.IsOld(w.refresh, w.clock.Now()) {
			w.logger.Info("GTFS data already present", "age", data.Age.Format(time.RFC3339))
			return nil
		}
		w.logger.Info("stored GTFS data is old, refreshing", "age", data.Age.Format(time.RFC3339))
	}
	return w.Update(ctx)
}

// CheckAndUpdate checks whether any feed has changed and rebuilds if so.
// Only checks once per calendar day in the network's timezone.
func (w *Worker) CheckAndUpdate(ctx context.Context) error {
	if len(w.downloaders) == 0 {
		return nil
	}
	w.mu.Lock()
	today := timeutil.DateOf(w.clock.Now(), w.net.Timezone)
	if w.lastCheckDate == today {
		w.mu.Unlock()
		return nil
	}
	w.lastCheckDate = today
	w.mu.Unlock()

	for _, d := range w.downloaders {
		if !d.Remote() {
			continue
		}
		var prev Validators
		prev.LastModified, _ = w.db.GetMetadata(ctx, storage.FeedKey("last_modified", d.Name()))
		prev.ETag, _ = w.db.GetMetadata(ctx, storage.FeedKey("etag", d.Name()))

		changed, err := d.Changed(ctx, prev)
		if err != nil {
			return err
		}
		if changed {
			w.logger.Info("GTFS feed changed", "feed", d.Name())
			return w.Update(ctx)
		}
	}
	return w.RefreshIfOld(ctx)
}

// RefreshIfOld rebuilds when the current data is older than the refresh
// period, even if no feed reported a change.
func (w *Worker) RefreshIfOld(ctx context.Context) error {
	if len(w.downloaders) == 0 {
		return nil
	}
	cur := w.Current()
	if cur != nil && !cur.IsOld(w.refresh, w.clock.Now()) {
		return nil
	}
	return w.Update(ctx)
}

// StartBackground starts the 3 AM daily check loop.
// It blocks until the context is cancelled.
func (w *Worker) StartBackground(ctx context.Context) {
	w.logger.Info("GTFS background worker started")

	for {
		next := next3AM(w.clock.Now(), w.net.Timezone)
		w.logger.Info("next GTFS check scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			if err := w.CheckAndUpdate(ctx); err != nil {
				w.logger.Error("background GTFS update failed", "error", err)
			}
		case <-ctx.Done():
			timer.Stop()
			w.logger.Info("GTFS background worker stopped")
			return
		}
	}
}

// Update performs a full fetch-parse-build-import cycle across all feeds.
func (w *Worker) Update(ctx context.Context) error {
	if len(w.downloaders) == 0 {
		return ErrNoFeedsConfigured
	}
	start := w.clock.Now()

	var (
		built []*Data
		names []string
		meta  = make(map[string]string)
	)
	for i, d := range w.downloaders {
		feed, err := d.Fetch(ctx)
		if err != nil {
			return fmt.Errorf("feed %s: %w", d.Name(), err)
		}
		data, err := Build(feed, w.net, w.net.Feeds[i], start)
		if err != nil {
			return fmt.Errorf("build feed %s: %w", d.Name(), err)
		}
		w.logger.Info("GTFS feed reconciled",
			"feed", d.Name(),
			"trips", data.Report.Trips,
			"matched", data.Report.Matched,
			"unmatched", data.Report.Unmatched,
			"deduplicated", data.Report.Deduplicated,
		)
		built = append(built, data)
		names = append(names, d.Name())
		if feed.LastModified != "" {
			meta[storage.FeedKey("last_modified", d.Name())] = feed.LastModified
		}
		if feed.ETag != "" {
			meta[storage.FeedKey("etag", d.Name())] = feed.ETag
		}
	}

	data := built[0]
	if len(built) > 1 {
		merged, err := Merge(built, names)
		if err != nil {
			return err
		}
		data = merged
	}

	if err := w.importer.Import(ctx, data); err != nil {
		return err
	}
	for k, v := range meta {
		if err := w.db.SetMetadata(ctx, k, v); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}

	w.setCurrent(data)
	return nil
}

func (w *Worker) setCurrent(data *Data) {
	w.mu.Lock()
	w.current = data
	w.mu.Unlock()
	w.install(data)
}

// next3AM returns the next 3:00 AM in loc after now.
func next3AM(now time.Time, loc *time.Location) time.Time {
	now = now.In(loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), 3, 0, 0, 0, loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
