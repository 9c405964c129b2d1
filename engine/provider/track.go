package provider

import (
	"context"

	"github.com/gputrace/tracevis/engine/eventbus"
	"github.com/gputrace/tracevis/engine/models"
)

// defaultChunkDurationNs is the chunk size the chunked multi-request fetch
// pattern slices a whole-track fetch into (§4.2.3).
const defaultChunkDurationNs = 30_000_000_000 // 30s

// FetchWholeTrack issues a single full-fidelity track_fetch_async request
// for [tStart, tEnd] (§4.2.3). Prefer FetchTrackChunked for ranges wider
// than a chunk, which exercises the group/chunk-count merge protocol.
func (p *Provider) FetchWholeTrack(trackID uint32, tStart, tEnd uint64) bool {
	return p.fetchTrackRange(trackID, tStart, tEnd, 0, p.nextGroup(), 1, false, 0)
}

// FetchTrack issues a single viewport-binned graph_fetch_async request,
// coalescing points into horzPixels buckets (§4.2.3, used while panning).
func (p *Provider) FetchTrack(trackID uint32, tStart, tEnd uint64, horzPixels uint32) bool {
	return p.fetchTrackRange(trackID, tStart, tEnd, 0, p.nextGroup(), 1, true, horzPixels)
}

// FetchTrackChunked slices [tStart, tEnd] into chunks of chunkDurationNs and
// issues one full-fidelity fetch per chunk, all sharing a fresh group id
// (§4.2.3 "Chunked multi-request pattern", §8 scenario 2). Returns false,
// issuing nothing, for an empty range. Otherwise returns false if any chunk
// could not be issued; the other chunks are still issued.
func (p *Provider) FetchTrackChunked(trackID uint32, tStart, tEnd uint64, chunkDurationNs uint64) bool {
	if chunkDurationNs == 0 {
		chunkDurationNs = defaultChunkDurationNs
	}
	if tEnd <= tStart {
		return false
	}
	var chunks [][2]uint64
	for s := tStart; s < tEnd; s += chunkDurationNs {
		e := s + chunkDurationNs
		if e > tEnd {
			e = tEnd
		}
		chunks = append(chunks, [2]uint64{s, e})
	}
	groupID := p.nextGroup()
	ok := true
	for i, c := range chunks {
		if !p.fetchTrackRange(trackID, c[0], c[1], i, groupID, len(chunks), false, 0) {
			ok = false
		}
	}
	return ok
}

func (p *Provider) nextGroup() uint64 {
	p.nextGroupID++
	return p.nextGroupID
}

func (p *Provider) fetchTrackRange(trackID uint32, tStart, tEnd uint64, chunkIndex int, groupID uint64, chunkCount int, isGraph bool, horzPixels uint32) bool {
	if p.state != models.ProviderStateReady {
		return false
	}
	reqType := models.RequestTypeTrackFetch
	if isGraph {
		reqType = models.RequestTypeGraphFetch
	}
	reqID := models.MakeChunkRequestID(trackID, chunkIndex, groupID, reqType)
	if _, exists := p.requests[reqID]; exists {
		return false
	}
	trackHandle, ok := p.trackHandle[trackID]
	if !ok {
		return false
	}

	future, rc := p.controller.FutureAlloc()
	if rc != models.ResultSuccess {
		return false
	}
	array, rc := p.controller.ArrayAlloc(0)
	if rc != models.ResultSuccess {
		_ = p.controller.FutureFree(future)
		return false
	}

	if isGraph {
		rc = p.controller.GraphFetchAsync(p.controllerHandle, trackHandle, tStart, tEnd, horzPixels, future, array)
	} else {
		rc = p.controller.TrackFetchAsync(p.controllerHandle, trackHandle, tStart, tEnd, future, array)
	}
	if rc != models.ResultSuccess {
		_ = p.controller.ArrayFree(array)
		_ = p.controller.FutureFree(future)
		return false
	}

	p.requests[reqID] = &requestEntry{
		req: models.DataRequest{
			RequestID: reqID, RequestType: reqType, Future: future, Array: array,
			RequestTime: nowStamp(), State: models.RequestStatePending,
		},
		groupID: groupID, chunk: chunkIndex, chunks: chunkCount, trackID: trackID, isGraph: isGraph,
	}
	return true
}

// mergeTrackResponse implements §4.2.3 "Merging responses into the cache":
// stale-group rejection, per-point dedup, and chunk-completeness tracking.
func (p *Provider) mergeTrackResponse(ctx context.Context, entry *requestEntry) {
	trackID := entry.trackID
	existing := p.tracks[trackID]

	if existing != nil && existing.IsStaleResponseFor(entry.groupID, entry.req.RequestTime) {
		p.logger.InfoCtx(ctx, "provider: dropping stale track response", "track_id", trackID, "group_id", entry.groupID)
		return
	}

	if existing == nil || existing.GroupID != entry.groupID {
		kind := models.TrackKindEvents
		for _, ti := range p.trackInfos {
			if ti.ID == trackID {
				kind = ti.Kind
				break
			}
		}
		if kind == models.TrackKindSamples {
			existing = models.NewRawSampleTrackData(trackID, entry.req.RequestTime, entry.req.RequestTime, entry.groupID, entry.chunks, entry.req.RequestTime, 0)
		} else {
			existing = models.NewRawEventTrackData(trackID, entry.req.RequestTime, entry.req.RequestTime, entry.groupID, entry.chunks, entry.req.RequestTime, 0)
		}
		p.tracks[trackID] = existing
	}

	if entry.req.ResponseCode == models.ResultSuccess {
		arr, rc := p.controller.ArrayGet(entry.req.Array)
		if rc == models.ResultSuccess {
			for i := uint32(0); i < arr.NumEntries(); i++ {
				v, err := arr.At(i)
				if err != nil {
					continue
				}
				p.mergeTrackPoint(existing, v.Object)
			}
		}
	}

	existing.AddChunk(entry.chunk)
	if existing.AllDataReady() {
		if p.resources != nil {
			p.resources.StoreTrack(existing)
		}
		if p.callbacks.TrackDataReady != nil {
			p.callbacks.TrackDataReady(trackID, p.loadPath, entry.groupID)
		}
		if p.bus != nil {
			p.bus.AddEvent(eventbus.NewEvent(eventbus.KindNewTrackData, p.loadPath, trackID))
		}
	}
}

func (p *Provider) mergeTrackPoint(data *models.RawTrackData, record models.Handle) {
	switch data.Kind {
	case models.TrackKindEvents:
		id, _ := p.controller.GetUint64(record, models.SlicePropEventIDIndexed, 0)
		ts, _ := p.controller.GetUint64(record, models.SlicePropTimestampIndexed, 0)
		dur, _ := p.controller.GetUint64(record, models.SlicePropEventDurationIndexed, 0)
		level, _ := p.controller.GetUint64(record, models.SlicePropEventLevelIndexed, 0)
		name, _ := p.controller.GetString(record, models.SlicePropEventTypeStringIndexed, 0)
		data.AppendEvent(models.TraceEvent{ID: id, StartNs: ts, DurationNs: int64(dur), Level: uint8(level), Name: name})
	case models.TrackKindSamples:
		ts, _ := p.controller.GetUint64(record, models.SlicePropTimestampIndexed, 0)
		val, _ := p.controller.GetDouble(record, models.SlicePropPmcValueIndexed, 0)
		data.AppendCounter(models.TraceCounter{StartNs: ts, Value: val})
	}
}

// FreeTrack releases the cached raw data for trackID, rejecting the request
// while chunks are still arriving unless force is set (§3 Lifecycle).
func (p *Provider) FreeTrack(trackID uint32, force bool) bool {
	existing, ok := p.tracks[trackID]
	if !ok {
		return true
	}
	if !existing.AllDataReady() && !force {
		return false
	}
	delete(p.tracks, trackID)
	return true
}

// TrackData returns the cached raw data for trackID, if any, transparently
// reviving it from the resource manager's eviction cache on a local miss.
func (p *Provider) TrackData(trackID uint32) (*models.RawTrackData, bool) {
	if d, ok := p.tracks[trackID]; ok {
		return d, ok
	}
	if p.resources == nil {
		return nil, false
	}
	d, ok := p.resources.GetTrack(trackID)
	if ok {
		p.tracks[trackID] = d
	}
	return d, ok
}
