package provider

import (
	"context"
	"testing"
	"time"

	"github.com/gputrace/tracevis/engine/internal/backend"
	"github.com/gputrace/tracevis/engine/models"
	"github.com/gputrace/tracevis/engine/resources"
)

func driveUntil(t *testing.T, p *Provider, done func() bool) {
	t.Helper()
	ctx := context.Background()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		p.Update(ctx)
		if done() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition never satisfied")
}

func newTestProvider(t *testing.T) (*Provider, *backend.Backend) {
	t.Helper()
	b := backend.New(backend.Options{Workers: 2, QueueCapacity: 16})
	t.Cleanup(b.Close)
	p := New(b, Callbacks{})
	return p, b
}

func TestFetchTraceThenReadyExposesTracks(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	if !p.FetchTrace(ctx, "/traces/demo.db") {
		t.Fatal("expected FetchTrace to accept while kInit")
	}
	if p.State() != models.ProviderStateLoading {
		t.Fatalf("expected kLoading, got %v", p.State())
	}
	driveUntil(t, p, func() bool { return p.State() != models.ProviderStateLoading })

	if p.State() != models.ProviderStateReady {
		t.Fatalf("expected kReady, got %v", p.State())
	}
	if len(p.Tracks()) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(p.Tracks()))
	}
}

func TestFetchTraceEmptyTraceReachesReadyWithZeroTracks(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	if !p.FetchTrace(ctx, "/traces/empty.db") {
		t.Fatal("expected FetchTrace to accept an empty trace")
	}
	driveUntil(t, p, func() bool { return p.State() != models.ProviderStateLoading })

	if p.State() != models.ProviderStateReady {
		t.Fatalf("expected kReady for an empty trace, got %v", p.State())
	}
	if len(p.Tracks()) != 0 {
		t.Fatalf("expected zero tracks, got %d", len(p.Tracks()))
	}
}

func TestFetchTraceWhileLoadingIsRejected(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	if !p.FetchTrace(ctx, "/traces/demo.db") {
		t.Fatal("expected first FetchTrace to succeed")
	}
	if p.FetchTrace(ctx, "/traces/demo.db") {
		t.Fatal("expected second FetchTrace while kLoading to be rejected")
	}
}

func TestFetchTraceFailurePathReachesErrorState(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	var gotCode models.ResultCode
	p.callbacks.TraceLoaded = func(path string, rc models.ResultCode) { gotCode = rc }

	p.FetchTrace(ctx, "/traces/missing.db")
	driveUntil(t, p, func() bool { return p.State() != models.ProviderStateLoading })

	if p.State() != models.ProviderStateError {
		t.Fatalf("expected kError, got %v", p.State())
	}
	if gotCode != models.ResultDbAccessFailed {
		t.Fatalf("expected db_access_failed callback, got %v", gotCode)
	}
}

func TestFetchTrackChunkedMergesAllChunksThenFiresCallback(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()
	p.FetchTrace(ctx, "/traces/demo.db")
	driveUntil(t, p, func() bool { return p.State() == models.ProviderStateReady })

	ready := false
	p.callbacks.TrackDataReady = func(trackID uint32, path string, groupID uint64) { ready = true }

	if !p.FetchTrackChunked(7, 0, 90_000_000_000, 30_000_000_000) {
		t.Fatal("expected chunked fetch to be accepted")
	}
	driveUntil(t, p, func() bool { return ready })

	data, ok := p.TrackData(7)
	if !ok {
		t.Fatal("expected cached track data for track 7")
	}
	if !data.AllDataReady() {
		t.Fatal("expected all 3 chunks to have arrived")
	}
	if len(data.Events) == 0 {
		t.Fatal("expected merged events")
	}
}

func TestFetchTrackChunkedNewGroupOverwritesStaleCache(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()
	p.FetchTrace(ctx, "/traces/demo.db")
	driveUntil(t, p, func() bool { return p.State() == models.ProviderStateReady })

	p.FetchTrackChunked(7, 0, 90_000_000_000, 30_000_000_000)
	driveUntil(t, p, func() bool {
		d, ok := p.TrackData(7)
		return ok && d.AllDataReady()
	})

	if !p.FetchTrack(7, 30_000_000_000, 60_000_000_000, 200) {
		t.Fatal("expected re-fetch with a fresh group to be accepted")
	}
	driveUntil(t, p, func() bool {
		d, ok := p.TrackData(7)
		return ok && d.AllDataReady() && d.GroupID != 1
	})

	data, _ := p.TrackData(7)
	if data.ChunkCount != 1 {
		t.Fatalf("expected the new single-chunk group to have replaced the old cache, got chunk count %d", data.ChunkCount)
	}
}

func TestFetchTableThenDuplicateRejected(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()
	p.FetchTrace(ctx, "/traces/demo.db")
	driveUntil(t, p, func() bool { return p.State() == models.ProviderStateReady })

	args := models.TableQueryArgs{TableType: models.TableTypeEvent, StartRow: 0, RequestedRows: 50}
	if !p.FetchTable(args) {
		t.Fatal("expected first table fetch to be accepted")
	}
	if p.FetchTable(args) {
		t.Fatal("expected duplicate pending table fetch of the same type to be rejected")
	}

	var tableReady bool
	p.callbacks.TableDataReady = func(path string, id models.RequestID) { tableReady = true }
	driveUntil(t, p, func() bool { return tableReady })

	info, ok := p.TableInfo(models.TableTypeEvent)
	if !ok {
		t.Fatal("expected cached table info")
	}
	if len(info.Rows) != 50 {
		t.Fatalf("expected 50 rows, got %d", len(info.Rows))
	}
	if len(info.Header) == 0 {
		t.Fatal("expected a discovered header")
	}
}

func TestFetchEventFansOutAndCompletes(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()
	p.FetchTrace(ctx, "/traces/demo.db")
	driveUntil(t, p, func() bool { return p.State() == models.ProviderStateReady })

	p.FetchTrackChunked(7, 0, 30_000_000_000, 30_000_000_000)
	driveUntil(t, p, func() bool {
		d, ok := p.TrackData(7)
		return ok && d.AllDataReady() && len(d.Events) > 0
	})
	data, _ := p.TrackData(7)
	eventID := data.Events[0].ID

	detail := p.FetchEvent(7, eventID)
	if detail == nil {
		t.Fatal("expected a detail object immediately")
	}
	if !detail.HasBasicInfo {
		t.Fatal("expected basic info to be populated synchronously from the cache")
	}

	driveUntil(t, p, func() bool {
		d, _ := p.EventDetail(eventID)
		return d.IsComplete()
	})
}

func TestTrackDataRevivesFromResourceManagerAfterLocalEviction(t *testing.T) {
	b := backend.New(backend.Options{Workers: 2, QueueCapacity: 16})
	t.Cleanup(b.Close)
	mgr := resources.NewManager(resources.Config{CacheCapacity: 10})
	t.Cleanup(mgr.Close)
	p := New(b, Callbacks{}, WithResourceManager(mgr))
	ctx := context.Background()

	p.FetchTrace(ctx, "/traces/demo.db")
	driveUntil(t, p, func() bool { return p.State() == models.ProviderStateReady })

	p.FetchTrackChunked(7, 0, 90_000_000_000, 30_000_000_000)
	driveUntil(t, p, func() bool {
		d, ok := p.TrackData(7)
		return ok && d.AllDataReady()
	})

	// simulate the provider's own map having evicted this track locally;
	// the resource manager should still have it.
	delete(p.tracks, 7)

	data, ok := p.TrackData(7)
	if !ok {
		t.Fatal("expected TrackData to revive the entry from the resource manager")
	}
	if len(data.Events) == 0 {
		t.Fatal("expected revived track data to carry its merged events")
	}
}

func TestCloseControllerResetsResourceManager(t *testing.T) {
	b := backend.New(backend.Options{Workers: 2, QueueCapacity: 16})
	t.Cleanup(b.Close)
	mgr := resources.NewManager(resources.Config{CacheCapacity: 10})
	t.Cleanup(mgr.Close)
	p := New(b, Callbacks{}, WithResourceManager(mgr))
	ctx := context.Background()

	p.FetchTrace(ctx, "/traces/demo.db")
	driveUntil(t, p, func() bool { return p.State() == models.ProviderStateReady })
	p.FetchTrackChunked(7, 0, 90_000_000_000, 30_000_000_000)
	driveUntil(t, p, func() bool {
		d, ok := p.TrackData(7)
		return ok && d.AllDataReady()
	})

	p.CloseController()

	if mgr.Stats().CacheEntries != 0 {
		t.Fatal("expected CloseController to clear the resource manager's cache")
	}
}

func TestCloseControllerDuringLoadingReturnsToInitWithNoCallback(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	called := false
	p.callbacks.TraceLoaded = func(path string, rc models.ResultCode) { called = true }

	p.FetchTrace(ctx, "/traces/demo.db")
	p.CloseController()

	if p.State() != models.ProviderStateInit {
		t.Fatalf("expected kInit after CloseController, got %v", p.State())
	}
	// give any in-flight backend goroutine a chance to misbehave before asserting
	time.Sleep(10 * time.Millisecond)
	p.Update(ctx)
	if called {
		t.Fatal("expected no TraceLoaded callback after a pre-ready close")
	}
}
