package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mwellman/weatherbatch/internal/blob"
	"github.com/mwellman/weatherbatch/internal/models"
)

// fakeBlob is an in-memory blob.Store with controllable failures.
type fakeBlob struct {
	data     []byte
	readErr  error
	writeErr error
	writes   int
}

func (f *fakeBlob) Name() string { return "fake" }

func (f *fakeBlob) Read(ctx context.Context) ([]byte, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	if f.data == nil {
		return nil, blob.ErrNotExist
	}
	return f.data, nil
}

func (f *fakeBlob) Exists(ctx context.Context) (bool, error) {
	return f.data != nil, nil
}

func (f *fakeBlob) Write(ctx context.Context, data []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes++
	f.data = data
	return nil
}

func mustLocation(t *testing.T, v any) models.Location {
	t.Helper()
	loc, err := models.NewLocation(v)
	if err != nil {
		t.Fatalf("NewLocation(%v) error = %v", v, err)
	}
	return loc
}

// recordObservedAt formats an observation timestamp the given duration in
// the past, relative to now.
func recordObservedAt(now time.Time, ago time.Duration) string {
	return now.Add(-ago).UTC().Format(models.ObservedAtLayout)
}

func newTestStore(t *testing.T, b blob.Store, now time.Time) *Store {
	t.Helper()
	s := NewStore(context.Background(), b, nil)
	s.now = func() time.Time { return now }
	return s
}

func TestIsFresh_MissingRecord(t *testing.T) {
	s := newTestStore(t, &fakeBlob{}, time.Now())
	if s.IsFresh(mustLocation(t, "Austin")) {
		t.Error("IsFresh() = true for a never-fetched location")
	}
}

// TestIsFresh_Boundary verifies the one-hour freshness window: a record a
// minute old is fresh, a record just past the hour is stale.
func TestIsFresh_Boundary(t *testing.T) {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		ago  time.Duration
		want bool
	}{
		{"one minute old", time.Minute, true},
		{"59 minutes old", 59 * time.Minute, true},
		{"one hour and a minute old", time.Hour + time.Minute, false},
		{"a day old", 24 * time.Hour, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestStore(t, &fakeBlob{}, now)
			s.mem = models.Batch{
				"Austin": {CityName: "Austin", ObservedAt: recordObservedAt(now, tc.ago)},
			}
			if got := s.IsFresh(mustLocation(t, "Austin")); got != tc.want {
				t.Errorf("IsFresh() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsFresh_UnparsableTimestamp(t *testing.T) {
	s := newTestStore(t, &fakeBlob{}, time.Now())
	s.mem = models.Batch{
		"Austin": {CityName: "Austin", ObservedAt: "garbage"},
	}
	if s.IsFresh(mustLocation(t, "Austin")) {
		t.Error("IsFresh() = true for an unparsable timestamp, want stale")
	}
}

// TestPartition verifies input order is kept within each side and that
// duplicates are not collapsed.
func TestPartition(t *testing.T) {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, &fakeBlob{}, now)
	s.mem = models.Batch{
		"Austin": {CityName: "Austin", ObservedAt: recordObservedAt(now, time.Minute)},
		"10005":  {CityName: "New York", ObservedAt: recordObservedAt(now, 2*time.Hour)},
	}

	locs := []models.Location{
		mustLocation(t, "Lagos"),
		mustLocation(t, "Austin"),
		mustLocation(t, 10005),
		mustLocation(t, "Lagos"),
		mustLocation(t, "Austin"),
	}
	stale, fresh := s.Partition(locs)

	wantStale := []string{"Lagos", "10005", "Lagos"}
	wantFresh := []string{"Austin", "Austin"}
	if len(stale) != len(wantStale) {
		t.Fatalf("len(stale) = %d, want %d", len(stale), len(wantStale))
	}
	for i, k := range wantStale {
		if stale[i].Key() != k {
			t.Errorf("stale[%d] = %q, want %q", i, stale[i].Key(), k)
		}
	}
	if len(fresh) != len(wantFresh) {
		t.Fatalf("len(fresh) = %d, want %d", len(fresh), len(wantFresh))
	}
	for i, k := range wantFresh {
		if fresh[i].Key() != k {
			t.Errorf("fresh[%d] = %q, want %q", i, fresh[i].Key(), k)
		}
	}
}

func TestReadFresh_OmitsAbsentKeys(t *testing.T) {
	s := newTestStore(t, &fakeBlob{}, time.Now())
	s.mem = models.Batch{
		"Austin": {CityName: "Austin"},
	}

	got := s.ReadFresh([]models.Location{
		mustLocation(t, "Austin"),
		mustLocation(t, "Atlantis"),
	})
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1 (absent key silently omitted)", len(got))
	}
	if _, ok := got["Austin"]; !ok {
		t.Error("ReadFresh() missing cached key")
	}
}

// TestMergeAndPersist verifies the durable blob gets the union while the
// in-memory batch is reset to the just-fetched records only.
func TestMergeAndPersist(t *testing.T) {
	fb := &fakeBlob{}
	s := newTestStore(t, fb, time.Now())
	s.mem = models.Batch{
		"Austin": {CityName: "Austin", ObservedAt: "2026-08-26 08:00"},
		"Lagos":  {CityName: "Lagos", ObservedAt: "2026-08-26 08:00"},
	}

	fetched := models.Batch{
		"Austin": {CityName: "Austin", ObservedAt: "2026-08-26 11:00"},
		"10005":  {CityName: "New York", ObservedAt: "2026-08-26 11:00"},
	}
	got, err := s.MergeAndPersist(context.Background(), fetched)
	if err != nil {
		t.Fatalf("MergeAndPersist() error = %v", err)
	}

	if len(got) != 2 {
		t.Errorf("returned batch len = %d, want just-fetched 2", len(got))
	}

	var persisted models.Batch
	if err := json.Unmarshal(fb.data, &persisted); err != nil {
		t.Fatalf("persisted blob unparsable: %v", err)
	}
	if len(persisted) != 3 {
		t.Errorf("persisted len = %d, want merged 3", len(persisted))
	}
	if persisted["Austin"].ObservedAt != "2026-08-26 11:00" {
		t.Error("persisted blob kept the stale record on collision, want fetched to win")
	}

	if len(s.mem) != 2 {
		t.Errorf("in-memory len = %d, want just-fetched 2", len(s.mem))
	}
	if _, ok := s.mem["Lagos"]; ok {
		t.Error("in-memory batch kept an old entry after persist")
	}
}

func TestMergeAndPersist_WriteFailureLeavesMemory(t *testing.T) {
	fb := &fakeBlob{writeErr: fmt.Errorf("disk full")}
	s := newTestStore(t, fb, time.Now())
	s.mem = models.Batch{
		"Austin": {CityName: "Austin"},
	}

	_, err := s.MergeAndPersist(context.Background(), models.Batch{
		"Lagos": {CityName: "Lagos"},
	})
	if err == nil {
		t.Fatal("MergeAndPersist() expected error on write failure")
	}

	if len(s.mem) != 1 {
		t.Errorf("in-memory len = %d, want unchanged 1", len(s.mem))
	}
	if _, ok := s.mem["Austin"]; !ok {
		t.Error("in-memory batch changed despite write failure")
	}
}

// TestNewStore_ReadBack verifies a previously persisted blob is read back
// into memory at construction.
func TestNewStore_ReadBack(t *testing.T) {
	persisted := models.Batch{
		"Austin": {CityName: "Austin", ObservedAt: "2026-08-26 11:00"},
	}
	data, err := json.Marshal(persisted)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	s := NewStore(context.Background(), &fakeBlob{data: data}, nil)
	if len(s.mem) != 1 {
		t.Fatalf("in-memory len = %d, want 1 from read-back", len(s.mem))
	}
	if s.mem["Austin"].CityName != "Austin" {
		t.Error("read-back record mismatch")
	}
}

func TestNewStore_StartsEmptyOnBadBlob(t *testing.T) {
	tests := []struct {
		name string
		b    blob.Store
	}{
		{"missing blob", &fakeBlob{}},
		{"read error", &fakeBlob{readErr: errors.New("backend down")}},
		{"corrupt blob", &fakeBlob{data: []byte("not json")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStore(context.Background(), tc.b, nil)
			if len(s.mem) != 0 {
				t.Errorf("in-memory len = %d, want 0", len(s.mem))
			}
		})
	}
}
