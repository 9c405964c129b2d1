package backend

import (
	"context"
	"testing"
	"time"

	"github.com/gputrace/tracevis/engine/models"
)

func waitFor(t *testing.T, b *Backend, future models.Handle) models.ResultCode {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		outcome := b.FutureWait(future, 0)
		if outcome.State == models.FutureStateCompleted {
			return outcome.Result
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("future never completed")
	return models.ResultTimeout
}

func TestLoadStandardTraceExposesKernelTrack(t *testing.T) {
	b := New(Options{Workers: 2, QueueCapacity: 16})
	defer b.Close()

	controller, rc := b.Alloc(context.Background())
	if rc != models.ResultSuccess {
		t.Fatalf("alloc: %v", rc)
	}
	future, _ := b.FutureAlloc()
	if rc := b.LoadAsync(controller, "/traces/demo.db", future); rc != models.ResultSuccess {
		t.Fatalf("load_async: %v", rc)
	}
	if rc := waitFor(t, b, future); rc != models.ResultSuccess {
		t.Fatalf("load result: %v", rc)
	}

	numTracks, rc := b.GetUint64(controller, models.TracePropNumberOfTracks, 0)
	if rc != models.ResultSuccess || numTracks != 2 {
		t.Fatalf("expected 2 tracks, got %d (%v)", numTracks, rc)
	}
	kernelTrack, rc := b.GetObject(controller, models.TracePropTrackHandleIndexed, 0)
	if rc != models.ResultSuccess {
		t.Fatalf("track handle: %v", rc)
	}
	id, _ := b.GetUint64(kernelTrack, models.TrackPropID, 0)
	if id != kernelTrackID {
		t.Fatalf("expected track id %d, got %d", kernelTrackID, id)
	}
}

func TestLoadEmptyTraceHasZeroTracks(t *testing.T) {
	b := New(Options{Workers: 1, QueueCapacity: 4})
	defer b.Close()

	controller, _ := b.Alloc(context.Background())
	future, _ := b.FutureAlloc()
	b.LoadAsync(controller, "/traces/empty.db", future)
	if rc := waitFor(t, b, future); rc != models.ResultSuccess {
		t.Fatalf("load result: %v", rc)
	}
	numTracks, _ := b.GetUint64(controller, models.TracePropNumberOfTracks, 0)
	if numTracks != 0 {
		t.Fatalf("expected 0 tracks, got %d", numTracks)
	}
}

func TestLoadFailurePath(t *testing.T) {
	b := New(Options{Workers: 1, QueueCapacity: 4})
	defer b.Close()

	controller, _ := b.Alloc(context.Background())
	future, _ := b.FutureAlloc()
	b.LoadAsync(controller, "/traces/missing.db", future)
	if rc := waitFor(t, b, future); rc != models.ResultDbAccessFailed {
		t.Fatalf("expected db_access_failed, got %v", rc)
	}
}

func TestTrackFetchProducesPointsWithinRange(t *testing.T) {
	b := New(Options{Workers: 2, QueueCapacity: 16})
	defer b.Close()

	controller, _ := b.Alloc(context.Background())
	loadFuture, _ := b.FutureAlloc()
	b.LoadAsync(controller, "/traces/demo.db", loadFuture)
	waitFor(t, b, loadFuture)

	kernelTrack, _ := b.GetObject(controller, models.TracePropTrackHandleIndexed, 0)

	fetchFuture, _ := b.FutureAlloc()
	outArray, _ := b.ArrayAlloc(0)
	if rc := b.TrackFetchAsync(controller, kernelTrack, 0, 30_000_000_000, fetchFuture, outArray); rc != models.ResultSuccess {
		t.Fatalf("track_fetch_async: %v", rc)
	}
	if rc := waitFor(t, b, fetchFuture); rc != models.ResultSuccess {
		t.Fatalf("fetch result: %v", rc)
	}

	arr, _ := b.ArrayGet(outArray)
	if arr.NumEntries() == 0 {
		t.Fatal("expected some points in the first 30s chunk")
	}
	for i := uint32(0); i < arr.NumEntries(); i++ {
		v, _ := arr.At(i)
		ts, _ := b.GetUint64(v.Object, models.SlicePropTimestampIndexed, 0)
		if ts >= 30_000_000_000 {
			t.Fatalf("point %d outside requested range: %d", i, ts)
		}
	}
}

func TestTableFetchRespectsPaging(t *testing.T) {
	b := New(Options{Workers: 2, QueueCapacity: 16})
	defer b.Close()

	controller, _ := b.Alloc(context.Background())
	loadFuture, _ := b.FutureAlloc()
	b.LoadAsync(controller, "/traces/demo.db", loadFuture)
	waitFor(t, b, loadFuture)

	table := models.Handle(999)
	argsHandle, _ := b.ArgumentsAlloc()
	args, _ := b.ArgumentsGet(argsHandle)
	qargs := models.TableQueryArgs{
		TableType:     models.TableTypeEvent,
		StartRow:      0,
		RequestedRows: 1000,
	}
	*args = *qargs.ToArguments(argsHandle)

	future, _ := b.FutureAlloc()
	outArray, _ := b.ArrayAlloc(0)
	if rc := b.TableFetchAsync(controller, table, argsHandle, future, outArray); rc != models.ResultSuccess {
		t.Fatalf("table_fetch_async: %v", rc)
	}
	if rc := waitFor(t, b, future); rc != models.ResultSuccess {
		t.Fatalf("fetch result: %v", rc)
	}

	arr, _ := b.ArrayGet(outArray)
	if arr.NumEntries() != 1000 {
		t.Fatalf("expected 1000 rows, got %d", arr.NumEntries())
	}
	total, _ := b.GetUint64(table, models.TablePropNumberOfRows, 0)
	if total != eventTableTotalRows {
		t.Fatalf("expected total rows %d, got %d", eventTableTotalRows, total)
	}
}
