package resources

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gputrace/tracevis/engine/models"
)

func completedTrack(trackID uint32, n int) *models.RawTrackData {
	d := models.NewRawEventTrackData(trackID, 0, uint64(n), 1, 1, 1, n)
	for i := 0; i < n; i++ {
		d.AppendEvent(models.TraceEvent{ID: uint64(i), StartNs: uint64(i), DurationNs: 10})
	}
	d.AddChunk(0)
	return d
}

func TestStoreAndGetTrackRoundTrips(t *testing.T) {
	m := NewManager(Config{CacheCapacity: 10})
	defer m.Close()

	data := completedTrack(7, 5)
	m.StoreTrack(data)

	got, ok := m.GetTrack(7)
	if !ok {
		t.Fatal("expected cached track to be found")
	}
	if len(got.Events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(got.Events))
	}
}

func TestEvictionSpillsCompletedTrackToDisk(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(Config{CacheCapacity: 1, SpillDirectory: dir})
	defer m.Close()

	m.StoreTrack(completedTrack(1, 3))
	m.StoreTrack(completedTrack(2, 4)) // evicts track 1's entry to disk

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one spill file, got %d", len(entries))
	}

	got, ok := m.GetTrack(1)
	if !ok {
		t.Fatal("expected evicted track to rehydrate from disk")
	}
	if len(got.Events) != 3 {
		t.Fatalf("expected 3 rehydrated events, got %d", len(got.Events))
	}
	if !got.AllDataReady() {
		t.Fatal("expected rehydrated track to report complete")
	}
}

func TestGetTrackMissReturnsFalse(t *testing.T) {
	m := NewManager(Config{CacheCapacity: 10})
	defer m.Close()

	if _, ok := m.GetTrack(99); ok {
		t.Fatal("expected a miss for an uncached track")
	}
}

func TestStoreTableThenGetReturnsSameWindow(t *testing.T) {
	m := NewManager(Config{CacheCapacity: 10})
	defer m.Close()

	info := models.NewTableInfo(models.TableTypeEvent)
	info.SetHeader([]string{"event_id", "name"}, "event_id")
	info.Rows = []models.Row{{Cells: []string{"1", "a"}}}
	info.TotalRows = 1
	m.StoreTable(info)

	got, ok := m.GetTable(models.TableTypeEvent)
	if !ok {
		t.Fatal("expected cached table")
	}
	if len(got.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got.Rows))
	}
}

func TestStoreEventDetailIncompleteStillCachedButNotCheckpointed(t *testing.T) {
	m := NewManager(Config{CacheCapacity: 10})
	defer m.Close()

	detail := &models.EventDetail{EventID: 42, HasExtInfo: true}
	m.StoreEventDetail(detail)

	got, ok := m.GetEventDetail(42)
	if !ok {
		t.Fatal("expected event detail to be cached even while incomplete")
	}
	if got.IsComplete() {
		t.Fatal("expected the fixture to be incomplete")
	}
	if m.Stats().CheckpointQueued != 0 {
		t.Fatal("expected an incomplete event detail not to be queued for checkpointing")
	}
}

func TestAcquireReleaseLimitsInFlight(t *testing.T) {
	m := NewManager(Config{MaxInFlight: 1})
	defer m.Close()

	m.Acquire()
	released := make(chan struct{})
	go func() {
		m.Acquire()
		close(released)
	}()

	select {
	case <-released:
		t.Fatal("expected second Acquire to block while the only slot is held")
	case <-time.After(20 * time.Millisecond):
	}

	m.Release()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("expected second Acquire to unblock after Release")
	}
	m.Release()
}

func TestMemoryUsageBytesGrowsWithCachedData(t *testing.T) {
	m := NewManager(Config{CacheCapacity: 10})
	defer m.Close()

	before := m.MemoryUsageBytes()
	m.StoreTrack(completedTrack(1, 100))
	after := m.MemoryUsageBytes()

	if after <= before {
		t.Fatalf("expected memory usage to grow after caching data, before=%d after=%d", before, after)
	}
}

func TestCheckpointLoopFlushesToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.log")
	m := NewManager(Config{CacheCapacity: 10, CheckpointPath: path, CheckpointInterval: 5 * time.Millisecond})

	m.StoreTrack(completedTrack(1, 1))
	time.Sleep(50 * time.Millisecond)
	m.Close()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected checkpoint file to exist: %v", err)
	}
	if len(raw) == 0 {
		t.Fatal("expected non-empty checkpoint log")
	}
}

func TestStatsReflectsCacheState(t *testing.T) {
	m := NewManager(Config{CacheCapacity: 10, MaxInFlight: 2})
	defer m.Close()

	m.StoreTrack(completedTrack(1, 1))
	m.Acquire()
	defer m.Release()

	stats := m.Stats()
	if stats.CacheEntries != 1 {
		t.Fatalf("expected 1 cache entry, got %d", stats.CacheEntries)
	}
	if stats.InFlight != 1 {
		t.Fatalf("expected 1 in-flight slot held, got %d", stats.InFlight)
	}
}
