package gtfs

import (
	"context"
	"errors"
	"testing"
	"time"

	"trainquery/internal/network"
	"trainquery/internal/network/networktest"
	"trainquery/internal/storage"
	"trainquery/internal/timeutil"
)

// newTestWorker runs against the fixture feed in dir. Workers sharing a
// database must share dir too, since the feed URL is part of the network
// hash.
func newTestWorker(t *testing.T, db *storage.DB, dir string, now time.Time) (*Worker, *[]*Data) {
	t.Helper()
	net := networktest.New()
	cfg := fixtureConfig()
	cfg.URL = dir
	net.Feeds = []network.FeedConfig{cfg}

	var installed []*Data
	w := NewWorker(net, t.TempDir(), db, func(d *Data) { installed = append(installed, d) }, 24*time.Hour, discardLogger())
	w.clock = timeutil.FixedClock{T: now}
	return w, &installed
}

func TestWorkerEnsureData(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	dir := writeFixture(t)
	now := time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)

	w, installed := newTestWorker(t, db, dir, now)
	if err := w.EnsureData(ctx); err != nil {
		t.Fatalf("EnsureData: %v", err)
	}
	if len(*installed) != 1 {
		t.Fatalf("installed %d data sets, want 1", len(*installed))
	}
	if cur := w.Current(); cur == nil || len(cur.Trips) != 4 {
		t.Fatalf("Current = %+v, want the built fixture", cur)
	}
	if !db.HasData(ctx) {
		t.Error("EnsureData should persist the data")
	}

	// A restart within the refresh period reuses the stored data.
	w2, installed2 := newTestWorker(t, db, dir, now.Add(time.Hour))
	if err := w2.EnsureData(ctx); err != nil {
		t.Fatalf("warm EnsureData: %v", err)
	}
	if len(*installed2) != 1 {
		t.Fatalf("warm start installed %d data sets, want 1", len(*installed2))
	}
	if age := w2.Current().Age; !age.Equal(now) {
		t.Errorf("warm start Age = %v, want stored age %v", age, now)
	}

	// Once the data is old it is rebuilt after being installed.
	later := now.Add(25 * time.Hour)
	w3, installed3 := newTestWorker(t, db, dir, later)
	if err := w3.EnsureData(ctx); err != nil {
		t.Fatalf("stale EnsureData: %v", err)
	}
	if len(*installed3) != 2 {
		t.Fatalf("stale start installed %d data sets, want 2", len(*installed3))
	}
	if age := w3.Current().Age; !age.Equal(later) {
		t.Errorf("refreshed Age = %v, want %v", age, later)
	}
}

func TestWorkerRebuildsOnNetworkChange(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	dir := writeFixture(t)
	now := time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)

	w, _ := newTestWorker(t, db, dir, now)
	if err := w.EnsureData(ctx); err != nil {
		t.Fatalf("EnsureData: %v", err)
	}
	if err := db.SetMetadata(ctx, storage.KeyConfigHash, "stale"); err != nil {
		t.Fatal(err)
	}

	w2, installed := newTestWorker(t, db, dir, now.Add(time.Minute))
	if err := w2.EnsureData(ctx); err != nil {
		t.Fatalf("EnsureData: %v", err)
	}
	if len(*installed) != 1 {
		t.Fatalf("installed %d data sets, want 1", len(*installed))
	}
	if got := w2.Current(); got.ConfigHash == "stale" || !got.Age.Equal(now.Add(time.Minute)) {
		t.Errorf("Current = hash %q age %v, want a rebuild", got.ConfigHash, got.Age)
	}
}

func TestWorkerCheckOncePerDay(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)
	w, installed := newTestWorker(t, openTestDB(t), writeFixture(t), now)

	if err := w.CheckAndUpdate(ctx); err != nil {
		t.Fatalf("CheckAndUpdate: %v", err)
	}
	if err := w.CheckAndUpdate(ctx); err != nil {
		t.Fatalf("second CheckAndUpdate: %v", err)
	}
	if len(*installed) != 1 {
		t.Errorf("installed %d data sets, want 1", len(*installed))
	}
}

func TestNext3AM(t *testing.T) {
	loc := time.FixedZone("AEST", 10*60*60)
	tests := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2024, 1, 3, 1, 0, 0, 0, loc), time.Date(2024, 1, 3, 3, 0, 0, 0, loc)},
		{time.Date(2024, 1, 3, 3, 0, 0, 0, loc), time.Date(2024, 1, 4, 3, 0, 0, 0, loc)},
		{time.Date(2024, 1, 3, 22, 0, 0, 0, loc), time.Date(2024, 1, 4, 3, 0, 0, 0, loc)},
		{time.Date(2024, 1, 3, 18, 0, 0, 0, time.UTC), time.Date(2024, 1, 5, 3, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		if got := next3AM(tt.now, loc); !got.Equal(tt.want) {
			t.Errorf("next3AM(%v) = %v, want %v", tt.now, got, tt.want)
		}
	}
}

func TestWorkerWithoutFeeds(t *testing.T) {
	ctx := context.Background()
	var installed int
	w := NewWorker(networktest.New(), t.TempDir(), openTestDB(t), func(*Data) { installed++ }, 24*time.Hour, discardLogger())
	w.clock = timeutil.FixedClock{T: time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)}

	if err := w.Update(ctx); !errors.Is(err, ErrNoFeedsConfigured) {
		t.Errorf("Update = %v, want ErrNoFeedsConfigured", err)
	}
	for name, run := range map[string]func(context.Context) error{
		"EnsureData":     w.EnsureData,
		"CheckAndUpdate": w.CheckAndUpdate,
		"RefreshIfOld":   w.RefreshIfOld,
	} {
		if err := run(ctx); err != nil {
			t.Errorf("%s = %v, want nil", name, err)
		}
	}
	if installed != 0 {
		t.Errorf("installed %d data sets, want none", installed)
	}
}
