package provider

import (
	"context"
	"strconv"

	"github.com/gputrace/tracevis/engine/models"
)

// infoTableRow is one decoded row of a generic info table, keyed by column
// name so callers can pull typed fields out without caring about column
// order.
type infoTableRow map[string]string

func (r infoTableRow) uint64(key string) uint64 {
	v, _ := strconv.ParseUint(r[key], 10, 64)
	return v
}

func (r infoTableRow) bool(key string) bool { return r[key] == "1" }

// readInfoTable decodes the table handle GetObject(host, prop, index)
// returns into rows keyed by column name, using the same
// TablePropNumberOfColumns/ColumnNameIndexed/NumberOfRows/RowHandleIndexed/
// TableRowPropCellValueIndexed accessors the table engine's synchronous
// table reads already use. A missing table or a table without a given
// property simply yields no rows.
func (p *Provider) readInfoTable(host models.Handle, prop models.Property, index uint32) []infoTableRow {
	table, rc := p.controller.GetObject(host, prop, index)
	if rc != models.ResultSuccess {
		return nil
	}
	numCols, rc := p.controller.GetUint64(table, models.TablePropNumberOfColumns, 0)
	if rc != models.ResultSuccess {
		return nil
	}
	cols := make([]string, numCols)
	for i := range cols {
		cols[i], _ = p.controller.GetString(table, models.TablePropColumnNameIndexed, uint32(i))
	}
	numRows, rc := p.controller.GetUint64(table, models.TablePropNumberOfRows, 0)
	if rc != models.ResultSuccess {
		return nil
	}
	rows := make([]infoTableRow, 0, numRows)
	for r := uint32(0); r < uint32(numRows); r++ {
		rowHandle, rc := p.controller.GetObject(table, models.TablePropRowHandleIndexed, r)
		if rc != models.ResultSuccess {
			continue
		}
		row := make(infoTableRow, numCols)
		for c, name := range cols {
			val, _ := p.controller.GetString(rowHandle, models.TableRowPropCellValueIndexed, uint32(c))
			row[name] = val
		}
		rows = append(rows, row)
	}
	return rows
}

// buildTopology walks the node/processor/process/thread/queue/stream/
// counter tree through the controller's info-table properties (§4.2.1,
// §3 Topology), the Go-native counterpart of the indexed-object walk
// HandleLoadSystemTopology performs: TracePropNodeInfoTableHandleIndexed
// carries every node as a row; TracePropAgentInfoTableHandleIndexed and
// TracePropProcessInfoTableHandleIndexed are scoped per node index;
// TracePropThreadInfoTableHandleIndexed/QueueInfoTableHandleIndexed/
// StreamInfoTableHandleIndexed/PmcInfoTableHandleIndexed are scoped per a
// flat process index assigned in discovery order. Every track-bearing leaf
// it finds is recorded into the returned Topology's track side map, which
// answers the forward (topology -> track) half of the binding; the reverse
// (track -> topology) half is resolved separately by resolveTrackOwner.
func (p *Provider) buildTopology() *models.Topology {
	topo := models.NewTopology()
	numNodes, rc := p.controller.GetUint64(p.controllerHandle, models.TracePropNumberOfNodes, 0)
	if rc != models.ResultSuccess {
		return topo
	}
	nodeRows := p.readInfoTable(p.controllerHandle, models.TracePropNodeInfoTableHandleIndexed, 0)

	processFlatIndex := uint32(0)
	for nodeIdx := uint32(0); nodeIdx < uint32(numNodes); nodeIdx++ {
		if int(nodeIdx) >= len(nodeRows) {
			break
		}
		nr := nodeRows[nodeIdx]
		node := &models.Node{
			ID: nr.uint64("id"), HostName: nr["host_name"], OSName: nr["os_name"],
			OSRelease: nr["os_release"], OSVersion: nr["os_version"],
		}

		for _, ar := range p.readInfoTable(p.controllerHandle, models.TracePropAgentInfoTableHandleIndexed, nodeIdx) {
			node.Processors = append(node.Processors, &models.Processor{
				ID: ar.uint64("id"), Type: ar["type"], TypeIndex: ar.uint64("type_index"), ProductName: ar["product_name"],
			})
		}

		agentByQueue := make(map[uint64]uint64)
		for _, m := range p.readInfoTable(p.controllerHandle, models.TracePropAgentQueueMappingInfoTableHandleIndexed, nodeIdx) {
			agentByQueue[m.uint64("queue_id")] = m.uint64("agent_id")
		}
		agentByStream := make(map[uint64]uint64)
		for _, m := range p.readInfoTable(p.controllerHandle, models.TracePropAgentStreamMappingInfoTableHandleIndexed, nodeIdx) {
			agentByStream[m.uint64("stream_id")] = m.uint64("agent_id")
		}
		queueByStream := make(map[uint64]uint64)
		for _, m := range p.readInfoTable(p.controllerHandle, models.TracePropStreamQueueMappingInfoTableHandleIndexed, nodeIdx) {
			queueByStream[m.uint64("stream_id")] = m.uint64("queue_id")
		}

		for _, pr := range p.readInfoTable(p.controllerHandle, models.TracePropProcessInfoTableHandleIndexed, nodeIdx) {
			proc := &models.Process{
				ID: pr.uint64("id"), StartTimeNs: pr.uint64("start_time"), EndTimeNs: pr.uint64("end_time"),
				Command: pr["command"], Environment: pr["environment"],
			}

			for _, tr := range p.readInfoTable(p.controllerHandle, models.TracePropThreadInfoTableHandleIndexed, processFlatIndex) {
				trackID := uint32(tr.uint64("track_id"))
				hasTrack := tr.bool("has_track")
				if tr["kind"] == "sampled" {
					th := &models.SampledThread{ID: tr.uint64("id"), Name: tr["name"], StartTime: tr.uint64("start_time"), EndTime: tr.uint64("end_time"), TrackID: trackID, HasTrack: hasTrack}
					proc.SampledThreads = append(proc.SampledThreads, th)
					if hasTrack {
						topo.BindTrack(trackID, models.TrackRef{Kind: models.TrackOwnerSampledThread, ID: th.ID})
					}
					continue
				}
				th := &models.InstrumentedThread{ID: tr.uint64("id"), Name: tr["name"], StartTime: tr.uint64("start_time"), EndTime: tr.uint64("end_time"), TrackID: trackID, HasTrack: hasTrack}
				proc.InstrumentedThreads = append(proc.InstrumentedThreads, th)
				if hasTrack {
					topo.BindTrack(trackID, models.TrackRef{Kind: models.TrackOwnerInstrumentedThread, ID: th.ID})
				}
			}

			for _, qr := range p.readInfoTable(p.controllerHandle, models.TracePropQueueInfoTableHandleIndexed, processFlatIndex) {
				q := &models.Queue{
					ID: qr.uint64("id"), Name: qr["name"], ProcessorID: agentByQueue[qr.uint64("id")],
					TrackID: uint32(qr.uint64("track_id")), HasTrack: qr.bool("has_track"),
				}
				proc.Queues = append(proc.Queues, q)
				if q.HasTrack {
					topo.BindTrack(q.TrackID, models.TrackRef{Kind: models.TrackOwnerQueue, ID: q.ID})
				}
			}

			for _, sr := range p.readInfoTable(p.controllerHandle, models.TracePropStreamInfoTableHandleIndexed, processFlatIndex) {
				s := &models.Stream{
					ID: sr.uint64("id"), Name: sr["name"], ProcessorID: agentByStream[sr.uint64("id")],
					TrackID: uint32(sr.uint64("track_id")), HasTrack: sr.bool("has_track"),
				}
				if queueID, ok := queueByStream[s.ID]; ok {
					s.QueueID, s.HasQueue = queueID, true
				}
				proc.Streams = append(proc.Streams, s)
				if s.HasTrack {
					topo.BindTrack(s.TrackID, models.TrackRef{Kind: models.TrackOwnerStream, ID: s.ID})
				}
			}

			for _, cr := range p.readInfoTable(p.controllerHandle, models.TracePropPmcInfoTableHandleIndexed, processFlatIndex) {
				c := &models.Counter{
					ID: cr.uint64("id"), Name: cr["name"], Description: cr["description"], Units: cr["units"],
					ValueType: models.ValueKind(cr.uint64("value_type")), ProcessorID: cr.uint64("processor_id"),
					TrackID: uint32(cr.uint64("track_id")), HasTrack: cr.bool("has_track"),
				}
				proc.Counters = append(proc.Counters, c)
				if c.HasTrack {
					topo.BindTrack(c.TrackID, models.TrackRef{Kind: models.TrackOwnerCounter, ID: c.ID})
				}
			}

			node.Processes = append(node.Processes, proc)
			processFlatIndex++
		}

		topo.AddNode(node)
	}
	return topo
}

// ownerLookup pairs a track-owner property with the topology kind it
// resolves to, walked in the exact order spec'd for ownership resolution:
// queue, stream, instrumented thread, sampled thread, counter.
var ownerLookups = [...]struct {
	prop models.Property
	kind models.TrackOwnerKind
}{
	{models.TrackPropOwnerQueueID, models.TrackOwnerQueue},
	{models.TrackPropOwnerStreamID, models.TrackOwnerStream},
	{models.TrackPropOwnerInstrumentedThreadID, models.TrackOwnerInstrumentedThread},
	{models.TrackPropOwnerSampledThreadID, models.TrackOwnerSampledThread},
	{models.TrackPropOwnerCounterID, models.TrackOwnerCounter},
}

// resolveTrackOwner sets info.Owner/OwnerKind by querying each of the five
// owner-lookup properties against trackHandle in turn; the first one that
// resolves wins (§4.2.1). None resolving leaves the track's owner unknown,
// which is logged rather than silently left at its zero value.
func (p *Provider) resolveTrackOwner(ctx context.Context, trackHandle models.Handle, info *models.TrackInfo) {
	for _, lookup := range ownerLookups {
		id, rc := p.controller.GetUint64(trackHandle, lookup.prop, 0)
		if rc == models.ResultSuccess {
			info.OwnerKind = lookup.kind
			info.Owner = models.TrackRef{Kind: lookup.kind, ID: id}
			return
		}
	}
	info.OwnerKind = models.TrackOwnerUnknown
	p.logger.WarnCtx(ctx, "provider: track owner unknown", "track_id", info.ID)
}
