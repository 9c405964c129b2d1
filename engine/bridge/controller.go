// Package bridge defines the Controller façade: a uniform, typed get/set
// interface over opaque handles, fronting whatever out-of-process or
// in-process backend actually owns the trace database (§4.1, §6.1). This
// package never implements a real backend — the reference implementation
// used for tests and the CLI demo lives in engine/internal/backend.
package bridge

import (
	"context"
	"time"

	"github.com/gputrace/tracevis/engine/models"
)

// Controller is the thin, typed façade over the C-shaped handle API every
// trace backend must expose (§4.1). Every method is synchronous and
// re-entrant safe from the driver goroutine; asynchronous operations return
// a future handle that the caller polls via FutureWait.
type Controller interface {
	// Alloc allocates a new controller-owned root handle.
	Alloc(ctx context.Context) (models.Handle, models.ResultCode)
	// Free releases any handle previously returned by this Controller.
	Free(handle models.Handle) models.ResultCode

	// LoadAsync begins loading a trace from path, completing future on
	// success or failure.
	LoadAsync(controller models.Handle, path string, future models.Handle) models.ResultCode

	GetUint64(handle models.Handle, prop models.Property, index uint32) (uint64, models.ResultCode)
	GetDouble(handle models.Handle, prop models.Property, index uint32) (float64, models.ResultCode)
	GetString(handle models.Handle, prop models.Property, index uint32) (string, models.ResultCode)
	GetObject(handle models.Handle, prop models.Property, index uint32) (models.Handle, models.ResultCode)

	SetUint64(handle models.Handle, prop models.Property, index uint32, value uint64) models.ResultCode
	SetDouble(handle models.Handle, prop models.Property, index uint32, value float64) models.ResultCode
	SetString(handle models.Handle, prop models.Property, index uint32, value string) models.ResultCode
	SetObject(handle models.Handle, prop models.Property, index uint32, value models.Handle) models.ResultCode

	ArrayAlloc(initialCapacity int) (models.Handle, models.ResultCode)
	ArrayFree(handle models.Handle) models.ResultCode
	ArrayGet(handle models.Handle) (*models.Array, models.ResultCode)

	ArgumentsAlloc() (models.Handle, models.ResultCode)
	ArgumentsFree(handle models.Handle) models.ResultCode
	ArgumentsGet(handle models.Handle) (*models.Arguments, models.ResultCode)

	FutureAlloc() (models.Handle, models.ResultCode)
	FutureFree(handle models.Handle) models.ResultCode
	// FutureWait polls (timeout==0) or blocks (timeout==models.InfiniteTimeout)
	// for future's completion.
	FutureWait(future models.Handle, timeout time.Duration) models.WaitOutcome
	// FutureCancel requests best-effort cancellation; callers must still
	// Wait before freeing (§4.1, §5).
	FutureCancel(future models.Handle) models.ResultCode

	GetIndexedPropertyAsync(host, target models.Handle, prop models.Property, index uint32, count uint32, future, outArray models.Handle) models.ResultCode

	TrackFetchAsync(controller, track models.Handle, tStart, tEnd uint64, future, outArray models.Handle) models.ResultCode
	GraphFetchAsync(controller, graph models.Handle, tStart, tEnd uint64, horzPixels uint32, future, outArray models.Handle) models.ResultCode
	TableFetchAsync(controller, table models.Handle, args models.Handle, future, outArray models.Handle) models.ResultCode

	SaveTrimmedTrace(controller models.Handle, tStart, tEnd uint64, path string, future models.Handle) models.ResultCode
}
