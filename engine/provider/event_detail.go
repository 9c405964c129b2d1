package provider

import (
	"context"

	"github.com/gputrace/tracevis/engine/models"
)

// detailRequest bundles one of the three per-event side-channel fetches so
// FetchEvent can issue all three with the same helper (§4.2.5).
type detailRequest struct {
	reqType models.RequestType
	prop    models.Property
}

var detailRequests = [3]detailRequest{
	{models.RequestTypeEventExtendedData, models.ExtDataPropNameIndexed},
	{models.RequestTypeEventFlowData, models.FlowTracePropEndpointIDIndexed},
	{models.RequestTypeEventCallStack, models.StackTracePropFrameSymbolIndexed},
}

// FetchEvent populates basic info synchronously from the cached track data
// and fans out three singleton async fetches for the extended-data,
// flow-control, and call-stack side channels (§4.2.5, §8 event-detail
// fan-out scenario). Returns the in-progress EventDetail; callers should
// watch IsComplete() via the event bus or by polling.
func (p *Provider) FetchEvent(trackID uint32, eventID uint64) *models.EventDetail {
	if p.state != models.ProviderStateReady {
		return nil
	}
	detail, ok := p.events[eventID]
	if !ok {
		detail = &models.EventDetail{EventID: eventID, TrackID: trackID}
		p.events[eventID] = detail
	}
	if track, ok := p.tracks[trackID]; ok {
		for _, ev := range track.Events {
			if ev.ID == eventID {
				detail.BasicInfo = ev
				detail.HasBasicInfo = true
				break
			}
		}
	}

	trackHandle, ok := p.trackHandle[trackID]
	if !ok {
		return detail
	}
	for _, dr := range detailRequests {
		p.fetchEventDetail(trackHandle, eventID, trackID, dr.reqType, dr.prop)
	}
	return detail
}

func (p *Provider) fetchEventDetail(trackHandle models.Handle, eventID uint64, trackID uint32, reqType models.RequestType, prop models.Property) bool {
	reqID := models.MakeSingletonRequestID(reqType)
	if _, exists := p.requests[reqID]; exists {
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
	rc = p.controller.GetIndexedPropertyAsync(trackHandle, trackHandle, prop, uint32(eventID), 1, future, array)
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
		eventID: eventID, eventTrackID: trackID, detailProp: prop,
	}
	return true
}

// mergeEventDetailResponse applies one of the three side-channel responses
// into the cached EventDetail, following exactly the encoding the reference
// backend's GetIndexedPropertyAsync writes (§4.2.5).
func (p *Provider) mergeEventDetailResponse(ctx context.Context, entry *requestEntry) {
	detail, ok := p.events[entry.eventID]
	if !ok {
		detail = &models.EventDetail{EventID: entry.eventID, TrackID: entry.eventTrackID}
		p.events[entry.eventID] = detail
	}

	if entry.req.ResponseCode != models.ResultSuccess {
		p.logger.ErrorCtx(ctx, "provider: event detail fetch failed", "event_id", entry.eventID, "request_type", entry.req.RequestType.String(), "result", entry.req.ResponseCode.String())
		return
	}
	arr, rc := p.controller.ArrayGet(entry.req.Array)
	if rc != models.ResultSuccess {
		return
	}

	switch entry.req.RequestType {
	case models.RequestTypeEventExtendedData:
		detail.ExtInfo = parseExtData(arr)
		detail.HasExtInfo = true
	case models.RequestTypeEventFlowData:
		detail.FlowInfo = parseFlowData(arr)
		detail.HasFlowInfo = true
	case models.RequestTypeEventCallStack:
		detail.CallStack = parseCallStack(arr)
		detail.HasCallStack = true
	}

	if p.resources != nil {
		p.resources.StoreEventDetail(detail)
	}
}

// parseExtData decodes interleaved name/value string pairs into rows.
func parseExtData(arr *models.Array) []models.ExtDataRow {
	var rows []models.ExtDataRow
	for i := uint32(0); i+1 < arr.NumEntries(); i += 2 {
		name, err := arr.At(i)
		if err != nil {
			continue
		}
		value, err := arr.At(i + 1)
		if err != nil {
			continue
		}
		rows = append(rows, models.ExtDataRow{Name: name.String, Value: value.String})
	}
	return rows
}

// parseFlowData decodes a flat list of endpoint ids into outgoing flow links.
func parseFlowData(arr *models.Array) []models.FlowLink {
	var links []models.FlowLink
	for i := uint32(0); i < arr.NumEntries(); i++ {
		v, err := arr.At(i)
		if err != nil {
			continue
		}
		links = append(links, models.FlowLink{ID: v.UInt64, Direction: models.FlowDirectionOut})
	}
	return links
}

// parseCallStack decodes a flat list of frame symbol strings into an ordered
// call stack, assigning depth by arrival order.
func parseCallStack(arr *models.Array) []models.StackFrame {
	var frames []models.StackFrame
	for i := uint32(0); i < arr.NumEntries(); i++ {
		v, err := arr.At(i)
		if err != nil {
			continue
		}
		frames = append(frames, models.StackFrame{Depth: uint64(i), Symbol: v.String})
	}
	return frames
}

// EventDetail returns the cached detail state for eventID, if any fetch has
// been issued for it, reviving it from the resource manager on a local miss.
func (p *Provider) EventDetail(eventID uint64) (*models.EventDetail, bool) {
	if d, ok := p.events[eventID]; ok {
		return d, ok
	}
	if p.resources == nil {
		return nil, false
	}
	d, ok := p.resources.GetEventDetail(eventID)
	if ok {
		p.events[eventID] = d
	}
	return d, ok
}
