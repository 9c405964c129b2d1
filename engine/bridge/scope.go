package bridge

import "github.com/gputrace/tracevis/engine/models"

// AsyncHandles bundles the future/array/arguments handles one async request
// allocates, so callers can free them together on every exit path (§5
// "Resource lifetime discipline").
type AsyncHandles struct {
	Future    models.Handle
	Array     models.Handle
	Arguments models.Handle
	HasArgs   bool
}

// Release frees every handle in h that is non-zero, best-effort (errors are
// not actionable once a request has already failed or completed).
func Release(c Controller, h AsyncHandles) {
	if h.Future != models.InvalidHandle {
		_ = c.FutureFree(h.Future)
	}
	if h.Array != models.InvalidHandle {
		_ = c.ArrayFree(h.Array)
	}
	if h.HasArgs && h.Arguments != models.InvalidHandle {
		_ = c.ArgumentsFree(h.Arguments)
	}
}

// AllocAsync allocates a future and an output array of the given capacity,
// the pairing every async fetch needs before it can be dispatched. On any
// failure it releases whatever it already allocated before returning the
// error, so callers never need their own partial-allocation cleanup.
func AllocAsync(c Controller, arrayCapacity int) (AsyncHandles, models.ResultCode) {
	future, rc := c.FutureAlloc()
	if rc != models.ResultSuccess {
		return AsyncHandles{}, rc
	}
	array, rc := c.ArrayAlloc(arrayCapacity)
	if rc != models.ResultSuccess {
		_ = c.FutureFree(future)
		return AsyncHandles{}, rc
	}
	return AsyncHandles{Future: future, Array: array}, models.ResultSuccess
}
