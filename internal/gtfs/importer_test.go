package gtfs

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"trainquery/internal/network/networktest"
	"trainquery/internal/storage"
)

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"), discardLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func builtFixture(t *testing.T) *Data {
	t.Helper()
	feed, err := ParseFS(fixtureFS(), discardLogger())
	if err != nil {
		t.Fatalf("ParseFS: %v", err)
	}
	data, err := Build(feed, networktest.New(), fixtureConfig(), time.Date(2024, 1, 1, 4, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return data
}

func TestImporterLoadEmpty(t *testing.T) {
	imp := NewImporter(openTestDB(t), discardLogger())
	if _, err := imp.Load(context.Background()); !errors.Is(err, ErrNoStoredData) {
		t.Errorf("Load on empty database = %v, want ErrNoStoredData", err)
	}
}

func TestImporterRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	imp := NewImporter(db, discardLogger())
	want := builtFixture(t)

	if err := imp.Import(ctx, want); err != nil {
		t.Fatalf("Import: %v", err)
	}
	got, err := imp.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got.ConfigHash != want.ConfigHash {
		t.Errorf("ConfigHash = %q, want %q", got.ConfigHash, want.ConfigHash)
	}
	if !got.Age.Equal(want.Age) {
		t.Errorf("Age = %v, want %v", got.Age, want.Age)
	}
	if !reflect.DeepEqual(got.Report, want.Report) {
		t.Errorf("Report = %+v, want %+v", got.Report, want.Report)
	}
	if !reflect.DeepEqual(got.Calendars, want.Calendars) {
		t.Errorf("Calendars = %+v, want %+v", got.Calendars, want.Calendars)
	}
	if !reflect.DeepEqual(got.Trips, want.Trips) {
		t.Errorf("Trips differ after round trip")
		for i := range want.Trips {
			if i < len(got.Trips) && !reflect.DeepEqual(got.Trips[i], want.Trips[i]) {
				t.Logf("trip %d: got %+v, want %+v", i, got.Trips[i], want.Trips[i])
			}
		}
	}

	n, err := db.TripCount(ctx)
	if err != nil || n != len(want.Trips) {
		t.Errorf("TripCount = %d, %v, want %d", n, err, len(want.Trips))
	}
}

func TestImporterReplacesData(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	imp := NewImporter(db, discardLogger())

	first := builtFixture(t)
	if err := imp.Import(ctx, first); err != nil {
		t.Fatalf("first Import: %v", err)
	}

	merged, err := Merge([]*Data{first, first}, []string{"a", "b"})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if err := imp.Import(ctx, merged); err != nil {
		t.Fatalf("second Import: %v", err)
	}

	got, err := imp.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Trips) != 2*len(first.Trips) {
		t.Errorf("len(Trips) = %d, want %d", len(got.Trips), 2*len(first.Trips))
	}
	if _, ok := got.Calendar("WD", "b"); !ok {
		t.Error("merged calendars should keep their sub-feed after reload")
	}
	if _, ok := got.Calendar("WD", ""); ok {
		t.Error("calendars from the first import should be gone")
	}
}
