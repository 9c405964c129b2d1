// Package provider implements the Data Provider: the request broker, cache,
// and state machine that marshals asynchronous fetches between the UI and
// the controller bridge, surfacing results via callbacks and the event bus
// (spec §4.2).
package provider

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gputrace/tracevis/engine/bridge"
	"github.com/gputrace/tracevis/engine/eventbus"
	"github.com/gputrace/tracevis/engine/models"
	"github.com/gputrace/tracevis/engine/resources"
	"github.com/gputrace/tracevis/engine/telemetry/logging"
	"github.com/gputrace/tracevis/engine/telemetry/metrics"
	"github.com/gputrace/tracevis/engine/telemetry/tracing"
)

// Callbacks bundles the six singly-bindable callback slots the provider
// invokes during Update() (§4.2.7). A nil field is simply not invoked.
type Callbacks struct {
	TraceLoaded          func(path string, rc models.ResultCode)
	TrackDataReady       func(trackID uint32, path string, groupID uint64)
	TrackMetadataChanged func(path string)
	TableDataReady       func(path string, requestID models.RequestID)
	SaveTrace            func(success bool)
	ExportTable          func(path string, success bool)
}

// Option configures optional provider dependencies; the zero value of each
// falls back to a no-op implementation.
type Option func(*Provider)

// WithLogger injects a correlated logger.
func WithLogger(l logging.Logger) Option { return func(p *Provider) { p.logger = l } }

// WithMetrics injects a metrics provider.
func WithMetrics(m metrics.Provider) Option { return func(p *Provider) { p.metrics = m } }

// WithTracer injects a tracer.
func WithTracer(t tracing.Tracer) Option { return func(p *Provider) { p.tracer = t } }

// WithEventBus injects the event bus new-track/new-table events are
// published to, in addition to the direct callback slots.
func WithEventBus(b *eventbus.Bus) Option { return func(p *Provider) { p.bus = b } }

// WithResourceManager injects a cache backing the provider's in-process
// maps: completed track data and event details are written through to it and
// read back by TrackData/EventDetail on a local miss. Tables are stored in it
// but TableInfo does not read them back, and CloseController resets it.
func WithResourceManager(m *resources.Manager) Option { return func(p *Provider) { p.resources = m } }

// Provider is the Data Provider state machine (§4.2). It is confined to a
// single goroutine: all methods must be called from the driver loop.
type Provider struct {
	controller bridge.Controller
	callbacks  Callbacks

	logger    logging.Logger
	metrics   metrics.Provider
	tracer    tracing.Tracer
	bus       *eventbus.Bus
	resources *resources.Manager

	loadStarted       metrics.Counter
	loadFailed        metrics.Counter
	requestsCompleted metrics.Counter

	state            models.ProviderState
	controllerHandle models.Handle
	loadFuture       models.Handle
	loadPath         string
	sessionID        string

	requests map[models.RequestID]*requestEntry

	tracks      map[uint32]*models.RawTrackData
	trackInfos  []models.TrackInfo
	trackHandle map[uint32]models.Handle
	topology    *models.Topology

	tables      map[models.TableType]*models.TableInfo
	tableHandle map[models.TableType]models.Handle

	events map[uint64]*models.EventDetail

	progressPercent uint64
	progressMessage string

	nextGroupID uint64
}

// requestEntry is the provider's bookkeeping for one outstanding
// DataRequest, including fields the spec's DataRequest struct doesn't need
// to expose to callers (e.g. which table type or track this came from).
type requestEntry struct {
	req     models.DataRequest
	groupID uint64
	chunk   int
	chunks  int
	trackID uint32
	isGraph bool

	tableType models.TableType
	tableArgs models.TableQueryArgs

	eventID      uint64
	eventTrackID uint32
	detailProp   models.Property
}

// New constructs a Provider in state kInit, owning no controller handle yet.
func New(controller bridge.Controller, callbacks Callbacks, opts ...Option) *Provider {
	p := &Provider{
		controller:  controller,
		callbacks:   callbacks,
		logger:      logging.New(nil),
		metrics:     metrics.NewNoopProvider(),
		tracer:      tracing.NewTracer(false),
		state:       models.ProviderStateInit,
		requests:    make(map[models.RequestID]*requestEntry),
		tracks:      make(map[uint32]*models.RawTrackData),
		trackHandle: make(map[uint32]models.Handle),
		tables:      make(map[models.TableType]*models.TableInfo),
		tableHandle: make(map[models.TableType]models.Handle),
		events:      make(map[uint64]*models.EventDetail),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.loadStarted = p.metrics.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{Namespace: "tracevis", Subsystem: "provider", Name: "trace_load_started_total"}})
	p.loadFailed = p.metrics.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{Namespace: "tracevis", Subsystem: "provider", Name: "trace_load_failed_total"}})
	p.requestsCompleted = p.metrics.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{Namespace: "tracevis", Subsystem: "provider", Name: "requests_completed_total"}, Labels: []string{"request_type"}})
	return p
}

// State returns the provider's current top-level state.
func (p *Provider) State() models.ProviderState { return p.state }

// LoadPath returns the path of the trace currently loaded or loading, or ""
// if none.
func (p *Provider) LoadPath() string { return p.loadPath }

// Tracks returns the discovered track metadata for the active trace, valid
// once State() == ProviderStateReady.
func (p *Provider) Tracks() []models.TrackInfo { return p.trackInfos }

// Topology returns the node/processor/process/thread/queue/stream/counter
// tree discovered for the active trace, valid once State() ==
// ProviderStateReady. Returns nil before a trace has ever loaded.
func (p *Provider) Topology() *models.Topology { return p.topology }

// Progress returns the most recently cached load-progress percent and
// message (§4.2.1); both are zero/empty once a load completes or none is
// in flight.
func (p *Provider) Progress() (percent uint64, message string) {
	return p.progressPercent, p.progressMessage
}

// FetchTrace begins loading a trace from path (§4.2.1). Returns false
// without side effects if a load is already in flight or the provider is in
// an error state that requires an explicit CloseController first.
func (p *Provider) FetchTrace(ctx context.Context, path string) bool {
	if p.state == models.ProviderStateLoading || p.state == models.ProviderStateError {
		return false
	}
	p.CloseController()

	handle, rc := p.controller.Alloc(ctx)
	if rc != models.ResultSuccess {
		p.logger.ErrorCtx(ctx, "provider: controller alloc failed", "result", rc.String())
		return false
	}
	future, rc := p.controller.FutureAlloc()
	if rc != models.ResultSuccess {
		_ = p.controller.Free(handle)
		return false
	}
	rc = p.controller.LoadAsync(handle, path, future)
	if rc != models.ResultSuccess {
		_ = p.controller.FutureFree(future)
		_ = p.controller.Free(handle)
		return false
	}

	p.controllerHandle = handle
	p.loadFuture = future
	p.loadPath = path
	p.sessionID = uuid.NewString()
	p.state = models.ProviderStateLoading
	p.progressPercent = 0
	p.progressMessage = ""
	p.loadStarted.Inc(1)
	return true
}

// CloseController cancels every outstanding request, waits for them to
// drain, frees every handle the provider owns, and returns to kInit (§4.2,
// §4.2.2 cancellation, §8 scenario 5).
func (p *Provider) CloseController() {
	if p.controllerHandle == models.InvalidHandle && p.loadFuture == models.InvalidHandle && len(p.requests) == 0 {
		p.state = models.ProviderStateInit
		return
	}
	for id, entry := range p.requests {
		_ = p.controller.FutureCancel(entry.req.Future)
		p.controller.FutureWait(entry.req.Future, models.InfiniteTimeout)
		p.releaseRequest(entry)
		delete(p.requests, id)
	}
	if p.loadFuture != models.InvalidHandle {
		p.controller.FutureWait(p.loadFuture, models.InfiniteTimeout)
		_ = p.controller.FutureFree(p.loadFuture)
		p.loadFuture = models.InvalidHandle
	}
	if p.controllerHandle != models.InvalidHandle {
		_ = p.controller.Free(p.controllerHandle)
		p.controllerHandle = models.InvalidHandle
	}
	p.tracks = make(map[uint32]*models.RawTrackData)
	p.trackInfos = nil
	p.trackHandle = make(map[uint32]models.Handle)
	p.tables = make(map[models.TableType]*models.TableInfo)
	p.tableHandle = make(map[models.TableType]models.Handle)
	p.events = make(map[uint64]*models.EventDetail)
	p.topology = nil
	p.progressPercent = 0
	p.progressMessage = ""
	p.loadPath = ""
	p.state = models.ProviderStateInit
	if p.resources != nil {
		p.resources.Reset()
	}
}

func (p *Provider) releaseRequest(e *requestEntry) {
	if e.req.Array != models.InvalidHandle {
		_ = p.controller.ArrayFree(e.req.Array)
	}
	if e.req.HasArguments && e.req.Arguments != models.InvalidHandle {
		_ = p.controller.ArgumentsFree(e.req.Arguments)
	}
}

// Update drives the state machine one tick (§4.2.1, §4.2.2, §5): a
// non-blocking poll of whatever is outstanding. Must be called from the
// single driver goroutine.
func (p *Provider) Update(ctx context.Context) {
	ctx, span := p.tracer.StartSpan(ctx, "provider.Update")
	defer span.End()

	switch p.state {
	case models.ProviderStateLoading:
		p.pollLoad(ctx)
	case models.ProviderStateReady:
		p.pollRequests(ctx)
	}
}

func (p *Provider) pollLoad(ctx context.Context) {
	outcome := p.controller.FutureWait(p.loadFuture, 0)
	if outcome.State == models.FutureStatePending {
		p.pollLoadProgress(ctx)
		return
	}
	rc := outcome.Result
	_ = p.controller.FutureFree(p.loadFuture)
	p.loadFuture = models.InvalidHandle

	if rc != models.ResultSuccess {
		p.state = models.ProviderStateError
		p.logger.ErrorCtx(ctx, "provider: trace load failed", "path", p.loadPath, "result", rc.String())
		p.loadFailed.Inc(1)
		if p.callbacks.TraceLoaded != nil {
			p.callbacks.TraceLoaded(p.loadPath, rc)
		}
		return
	}

	p.loadTopology(ctx)
	p.state = models.ProviderStateReady
	p.logger.InfoCtx(ctx, "provider: trace loaded", "path", p.loadPath, "tracks", len(p.trackInfos))
	if p.callbacks.TraceLoaded != nil {
		p.callbacks.TraceLoaded(p.loadPath, models.ResultSuccess)
	}
	if p.bus != nil {
		p.bus.AddEvent(eventbus.NewEvent(eventbus.KindTopologyChanged, p.loadPath, nil))
	}
}

// pollLoadProgress reads the load's progress percent while its future is
// still pending; only when the percent has moved since the last tick does
// it also re-read and cache the progress message (§4.2.1), mirroring
// HandleLoadTrace's timeout branch: the message is a separate string read
// and is never worth paying for on every poll.
func (p *Provider) pollLoadProgress(ctx context.Context) {
	percent, rc := p.controller.GetUint64(p.controllerHandle, models.TracePropProgressPercent, 0)
	if rc != models.ResultSuccess || percent == p.progressPercent {
		return
	}
	p.progressPercent = percent
	if msg, rc := p.controller.GetString(p.controllerHandle, models.TracePropProgressMessage, 0); rc == models.ResultSuccess {
		p.progressMessage = msg
	}
	p.logger.InfoCtx(ctx, "provider: trace load progress", "path", p.loadPath, "percent", percent, "message", p.progressMessage)
}

// loadTopology walks the timeline's tracks and the node/processor/process
// tree via the controller (§4.2.1), then resolves each track's topology
// owner (§4.2.1 ownership binding).
func (p *Provider) loadTopology(ctx context.Context) {
	p.topology = p.buildTopology()

	numTracks, rc := p.controller.GetUint64(p.controllerHandle, models.TracePropNumberOfTracks, 0)
	if rc != models.ResultSuccess {
		return
	}
	infos := make([]models.TrackInfo, 0, numTracks)
	for i := uint32(0); i < uint32(numTracks); i++ {
		trackHandle, rc := p.controller.GetObject(p.controllerHandle, models.TracePropTrackHandleIndexed, i)
		if rc != models.ResultSuccess {
			continue
		}
		id, _ := p.controller.GetUint64(trackHandle, models.TrackPropID, 0)
		catEnum, _ := p.controller.GetUint64(trackHandle, models.TrackPropCategoryEnum, 0)
		minTs, _ := p.controller.GetUint64(trackHandle, models.TrackPropMinimumTimestamp, 0)
		maxTs, _ := p.controller.GetUint64(trackHandle, models.TrackPropMaximumTimestamp, 0)
		numEntries, _ := p.controller.GetUint64(trackHandle, models.TrackPropNumRecords, 0)

		kind := models.TrackKindEvents
		if models.TrackCategory(catEnum) == models.TrackCategoryPMC {
			kind = models.TrackKindSamples
		}
		info := models.TrackInfo{
			Index: int(i), ID: uint32(id), Kind: kind,
			MinTimeNs: minTs, MaxTimeNs: maxTs, NumEntries: numEntries,
		}
		p.resolveTrackOwner(ctx, trackHandle, &info)
		infos = append(infos, info)
		p.trackHandle[uint32(id)] = trackHandle
	}
	p.trackInfos = infos
}

func (p *Provider) pollRequests(ctx context.Context) {
	for id, entry := range p.requests {
		outcome := p.controller.FutureWait(entry.req.Future, 0)
		if outcome.State == models.FutureStatePending {
			continue
		}
		entry.req.ResponseCode = outcome.Result
		_ = p.controller.FutureFree(entry.req.Future)
		entry.req.Future = models.InvalidHandle

		p.dispatch(ctx, entry)
		p.releaseRequest(entry)
		delete(p.requests, id)
	}
}

func (p *Provider) dispatch(ctx context.Context, entry *requestEntry) {
	p.requestsCompleted.Inc(1, entry.req.RequestType.String())
	switch entry.req.RequestType {
	case models.RequestTypeTrackFetch, models.RequestTypeGraphFetch:
		p.mergeTrackResponse(ctx, entry)
	case models.RequestTypeEventTable, models.RequestTypeSampleTable, models.RequestTypeEventSearch, models.RequestTypeSummaryKernelInstanceTable, models.RequestTypeComputeTable:
		p.mergeTableResponse(ctx, entry)
	case models.RequestTypeTableExport:
		success := entry.req.ResponseCode == models.ResultSuccess
		if p.callbacks.ExportTable != nil {
			p.callbacks.ExportTable(entry.tableArgs.OutputPath, success)
		}
	case models.RequestTypeEventExtendedData, models.RequestTypeEventFlowData, models.RequestTypeEventCallStack:
		p.mergeEventDetailResponse(ctx, entry)
	case models.RequestTypeSaveTrimmedTrace:
		success := entry.req.ResponseCode == models.ResultSuccess
		if p.callbacks.SaveTrace != nil {
			p.callbacks.SaveTrace(success)
		}
	}
}

// CancelRequest requests best-effort cancellation of an outstanding request
// (§4.2.2); the entry is only removed once its future completes during a
// later Update().
func (p *Provider) CancelRequest(id models.RequestID) {
	entry, ok := p.requests[id]
	if !ok {
		return
	}
	_ = p.controller.FutureCancel(entry.req.Future)
	entry.req.State = models.RequestStateCancelling
}

func nowStamp() uint64 {
	return uint64(time.Now().UnixNano())
}
