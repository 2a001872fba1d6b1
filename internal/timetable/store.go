package timetable

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"trainquery/internal/gtfs"
	"trainquery/internal/network"
	"trainquery/internal/timeutil"
)

// Store holds the current Snapshot. Readers always see a whole snapshot,
// either the one before a Swap or the one after.
type Store struct {
	current atomic.Pointer[Snapshot]
	ready   chan struct{}
	once    sync.Once
	logger  *slog.Logger
}

// NewStore creates an empty store.
func NewStore(logger *slog.Logger) *Store {
	return &Store{ready: make(chan struct{}), logger: logger}
}

// Load returns the current snapshot, or nil before the first Swap.
func (s *Store) Load() *Snapshot {
	return s.current.Load()
}

// Swap installs snap and returns the snapshot it replaced.
func (s *Store) Swap(snap *Snapshot) *Snapshot {
	old := s.current.Swap(snap)
	s.once.Do(func() { close(s.ready) })

	attrs := []any{"snapshot", snap.ID, "static", len(snap.Static)}
	if snap.GTFS != nil {
		attrs = append(attrs, "gtfs_trips", len(snap.GTFS.Trips), "gtfs_age", snap.GTFS.Age.Format(time.RFC3339))
	}
	s.logger.Info("timetable snapshot installed", attrs...)
	return old
}

// Ready is closed once the first snapshot has been installed.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Installer returns a callback that installs a fresh snapshot for each new
// GTFS data set, suitable for gtfs.NewWorker.
func (s *Store) Installer(net *network.Network, static []*Timetable, clock timeutil.Clock) func(*gtfs.Data) {
	return func(data *gtfs.Data) {
		s.Swap(NewSnapshot(net, static, data, clock.Now()))
	}
}
