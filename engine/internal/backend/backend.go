// Package backend is a reference, in-process Controller implementation used
// to exercise the bridge/provider/table engine in tests and the CLI demo. It
// is explicitly NOT the production controller: it fabricates a small fixed
// dataset and answers every property the same way a real backend would —
// through a uniform get/set property bag per handle — rather than
// implementing the real trace-database schema (a stated Non-goal).
//
// The worker pool that completes async operations is adapted from the
// engine's crawler-era multi-stage pipeline (single queue, fixed worker
// count, completion fed back through a per-future channel instead of a
// results channel).
package backend

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/gputrace/tracevis/engine/models"
)

type propKey struct {
	handle models.Handle
	prop   models.Property
	index  uint32
}

type futureState struct {
	mu        sync.Mutex
	done      bool
	cancelled bool
	result    models.ResultCode
	doneCh    chan struct{}
}

func newFutureState() *futureState {
	return &futureState{doneCh: make(chan struct{})}
}

func (f *futureState) complete(rc models.ResultCode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done {
		return
	}
	f.done = true
	f.result = rc
	close(f.doneCh)
}

func (f *futureState) requestCancel() {
	f.mu.Lock()
	f.cancelled = true
	f.mu.Unlock()
}

func (f *futureState) isCancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}

// Backend is the reference Controller. Zero value is not usable; construct
// with New.
type Backend struct {
	handleSeq uint64

	mu        sync.RWMutex
	props     map[propKey]models.Value
	arrays    map[models.Handle]*models.Array
	arguments map[models.Handle]*models.Arguments
	futures   map[models.Handle]*futureState

	// trackIndex maps a track handle to its fixture identity so async
	// fetch jobs know which synthetic dataset to draw from.
	trackIndex map[models.Handle]*trackFixture

	jobs    chan func()
	limiter *rate.Limiter
	wg      sync.WaitGroup
	closed  chan struct{}

	sql *sqlFixture
}

// Options configures the reference backend's worker pool and backpressure.
type Options struct {
	Workers        int
	QueueCapacity  int
	RateLimitRPS   float64 // 0 disables the limiter (a full job queue still reports resource-busy)
	RateLimitBurst int
}

// DefaultOptions returns sensible small-scale defaults for tests/CLI use.
func DefaultOptions() Options {
	return Options{Workers: 4, QueueCapacity: 256, RateLimitRPS: 200, RateLimitBurst: 50}
}

// New starts a reference backend with a running worker pool. Callers should
// call Close when done to stop the workers.
func New(opts Options) *Backend {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = 64
	}
	b := &Backend{
		props:      make(map[propKey]models.Value),
		arrays:     make(map[models.Handle]*models.Array),
		arguments:  make(map[models.Handle]*models.Arguments),
		futures:    make(map[models.Handle]*futureState),
		trackIndex: make(map[models.Handle]*trackFixture),
		jobs:       make(chan func(), opts.QueueCapacity),
		closed:     make(chan struct{}),
		sql:        newSQLFixture(),
	}
	if opts.RateLimitRPS > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), opts.RateLimitBurst)
	}
	for i := 0; i < opts.Workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
	return b
}

// Close stops accepting new jobs and waits for in-flight ones to drain.
func (b *Backend) Close() {
	select {
	case <-b.closed:
		return
	default:
		close(b.closed)
	}
	close(b.jobs)
	b.wg.Wait()
	_ = b.sql.db.Close()
}

func (b *Backend) worker() {
	defer b.wg.Done()
	for job := range b.jobs {
		job()
	}
}

// submit enqueues work to complete future with whatever ResultCode work
// returns, applying rate-limiting as simulated backend backpressure and
// honouring a prior FutureCancel request.
func (b *Backend) submit(future models.Handle, work func() models.ResultCode) {
	st := b.futureStateFor(future)
	select {
	case b.jobs <- func() {
		if st.isCancelled() {
			st.complete(models.ResultDbAbort)
			return
		}
		if b.limiter != nil && !b.limiter.Allow() {
			st.complete(models.ResultResourceBusy)
			return
		}
		st.complete(work())
	}:
	default:
		// Queue saturated: report busy immediately rather than blocking the
		// driver goroutine, mirroring a backend under load.
		st.complete(models.ResultResourceBusy)
	}
}

func (b *Backend) futureStateFor(future models.Handle) *futureState {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.futures[future]
	if !ok {
		st = newFutureState()
		b.futures[future] = st
	}
	return st
}

func (b *Backend) nextHandle() models.Handle {
	return models.Handle(atomic.AddUint64(&b.handleSeq, 1))
}

// --- lifecycle -------------------------------------------------------------

func (b *Backend) Alloc(ctx context.Context) (models.Handle, models.ResultCode) {
	return b.nextHandle(), models.ResultSuccess
}

func (b *Backend) Free(handle models.Handle) models.ResultCode {
	if handle == models.InvalidHandle {
		return models.ResultInvalidParameter
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for k := range b.props {
		if k.handle == handle {
			delete(b.props, k)
		}
	}
	delete(b.trackIndex, handle)
	return models.ResultSuccess
}

// --- typed property access ---------------------------------------------------

func (b *Backend) getValue(handle models.Handle, prop models.Property, index uint32) (models.Value, models.ResultCode) {
	if handle == models.InvalidHandle {
		return models.Value{}, models.ResultInvalidParameter
	}
	b.mu.RLock()
	v, ok := b.props[propKey{handle, prop, index}]
	b.mu.RUnlock()
	if !ok {
		return models.Value{}, models.ResultInvalidProperty
	}
	return v, models.ResultSuccess
}

func (b *Backend) setValue(handle models.Handle, prop models.Property, index uint32, v models.Value) models.ResultCode {
	if handle == models.InvalidHandle {
		return models.ResultInvalidParameter
	}
	b.mu.Lock()
	b.props[propKey{handle, prop, index}] = v
	b.mu.Unlock()
	return models.ResultSuccess
}

func (b *Backend) GetUint64(handle models.Handle, prop models.Property, index uint32) (uint64, models.ResultCode) {
	v, rc := b.getValue(handle, prop, index)
	return v.UInt64, rc
}

func (b *Backend) GetDouble(handle models.Handle, prop models.Property, index uint32) (float64, models.ResultCode) {
	v, rc := b.getValue(handle, prop, index)
	return v.Double, rc
}

func (b *Backend) GetString(handle models.Handle, prop models.Property, index uint32) (string, models.ResultCode) {
	v, rc := b.getValue(handle, prop, index)
	return v.String, rc
}

func (b *Backend) GetObject(handle models.Handle, prop models.Property, index uint32) (models.Handle, models.ResultCode) {
	v, rc := b.getValue(handle, prop, index)
	return v.Object, rc
}

func (b *Backend) SetUint64(handle models.Handle, prop models.Property, index uint32, value uint64) models.ResultCode {
	return b.setValue(handle, prop, index, models.Uint64Value(value))
}

func (b *Backend) SetDouble(handle models.Handle, prop models.Property, index uint32, value float64) models.ResultCode {
	return b.setValue(handle, prop, index, models.DoubleValue(value))
}

func (b *Backend) SetString(handle models.Handle, prop models.Property, index uint32, value string) models.ResultCode {
	return b.setValue(handle, prop, index, models.StringValue(value))
}

func (b *Backend) SetObject(handle models.Handle, prop models.Property, index uint32, value models.Handle) models.ResultCode {
	return b.setValue(handle, prop, index, models.ObjectValue(value))
}

// --- value-carrying handles --------------------------------------------------

func (b *Backend) ArrayAlloc(initialCapacity int) (models.Handle, models.ResultCode) {
	h := b.nextHandle()
	b.mu.Lock()
	b.arrays[h] = models.NewArray(h, initialCapacity)
	b.mu.Unlock()
	return h, models.ResultSuccess
}

func (b *Backend) ArrayFree(handle models.Handle) models.ResultCode {
	b.mu.Lock()
	delete(b.arrays, handle)
	b.mu.Unlock()
	return models.ResultSuccess
}

func (b *Backend) ArrayGet(handle models.Handle) (*models.Array, models.ResultCode) {
	b.mu.RLock()
	a, ok := b.arrays[handle]
	b.mu.RUnlock()
	if !ok {
		return nil, models.ResultInvalidParameter
	}
	return a, models.ResultSuccess
}

func (b *Backend) ArgumentsAlloc() (models.Handle, models.ResultCode) {
	h := b.nextHandle()
	b.mu.Lock()
	b.arguments[h] = models.NewArguments(h)
	b.mu.Unlock()
	return h, models.ResultSuccess
}

func (b *Backend) ArgumentsFree(handle models.Handle) models.ResultCode {
	b.mu.Lock()
	delete(b.arguments, handle)
	b.mu.Unlock()
	return models.ResultSuccess
}

func (b *Backend) ArgumentsGet(handle models.Handle) (*models.Arguments, models.ResultCode) {
	b.mu.RLock()
	a, ok := b.arguments[handle]
	b.mu.RUnlock()
	if !ok {
		return nil, models.ResultInvalidParameter
	}
	return a, models.ResultSuccess
}

func (b *Backend) FutureAlloc() (models.Handle, models.ResultCode) {
	h := b.nextHandle()
	b.mu.Lock()
	b.futures[h] = newFutureState()
	b.mu.Unlock()
	return h, models.ResultSuccess
}

func (b *Backend) FutureFree(handle models.Handle) models.ResultCode {
	b.mu.Lock()
	delete(b.futures, handle)
	b.mu.Unlock()
	return models.ResultSuccess
}

func (b *Backend) FutureWait(future models.Handle, timeout time.Duration) models.WaitOutcome {
	st := b.futureStateFor(future)
	if timeout == models.InfiniteTimeout {
		<-st.doneCh
		st.mu.Lock()
		defer st.mu.Unlock()
		return models.WaitOutcome{State: models.FutureStateCompleted, Result: st.result}
	}
	if timeout <= 0 {
		select {
		case <-st.doneCh:
			st.mu.Lock()
			defer st.mu.Unlock()
			return models.WaitOutcome{State: models.FutureStateCompleted, Result: st.result}
		default:
			return models.WaitOutcome{State: models.FutureStatePending}
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-st.doneCh:
		st.mu.Lock()
		defer st.mu.Unlock()
		return models.WaitOutcome{State: models.FutureStateCompleted, Result: st.result}
	case <-timer.C:
		return models.WaitOutcome{State: models.FutureStatePending}
	}
}

func (b *Backend) FutureCancel(future models.Handle) models.ResultCode {
	b.futureStateFor(future).requestCancel()
	return models.ResultSuccess
}
