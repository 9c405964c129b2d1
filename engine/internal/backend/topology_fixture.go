package backend

import (
	"fmt"
	"time"

	"github.com/gputrace/tracevis/engine/models"
)

// makeInfoTable fabricates a table handle carrying rows of named string
// cells, readable through the same TablePropNumberOfColumns/
// ColumnNameIndexed/NumberOfRows/RowHandleIndexed/
// TableRowPropCellValueIndexed accessors TableFetchAsync's rows use, so the
// provider's synchronous topology walk exercises the identical table
// machinery the asynchronous event/sample tables do.
func (b *Backend) makeInfoTable(columns []string, rows [][]string) models.Handle {
	table := b.nextHandle()
	for i, name := range columns {
		b.setValue(table, models.TablePropColumnNameIndexed, uint32(i), models.StringValue(name))
	}
	b.setValue(table, models.TablePropNumberOfColumns, 0, models.Uint64Value(uint64(len(columns))))
	for r, row := range rows {
		rowHandle := b.nextHandle()
		for i, cell := range row {
			b.setValue(rowHandle, models.TableRowPropCellValueIndexed, uint32(i), models.StringValue(cell))
		}
		b.setValue(rowHandle, models.TableRowPropNumberOfCells, 0, models.Uint64Value(uint64(len(row))))
		b.setValue(table, models.TablePropRowHandleIndexed, uint32(r), models.ObjectValue(rowHandle))
	}
	b.setValue(table, models.TablePropNumberOfRows, 0, models.Uint64Value(uint64(len(rows))))
	return table
}

// populateTopology fabricates a single node, one GPU processor, and one
// process carrying an instrumented thread, a sampled thread, a queue bound
// to kernelTrackID, a stream mapped onto that queue, and a counter bound to
// counterTrackID (§3 Topology, §4.2.1). It mirrors
// HandleLoadSystemTopology's node -> {processors, processes -> {threads,
// queues, streams, counters}} walk order, fanned out across the
// TracePropNodeInfoTableHandleIndexed family of info tables instead of a
// pointer graph.
func (b *Backend) populateTopology(controller models.Handle) {
	const (
		nodeID      = 1
		processorID = 10
		processID   = 100
		threadAID   = 200
		threadSID   = 201
		queueID     = 300
		streamID    = 400
		counterID   = 500
	)

	b.setValue(controller, models.TracePropNumberOfNodes, 0, models.Uint64Value(1))

	nodeTable := b.makeInfoTable(
		[]string{"id", "host_name", "os_name", "os_release", "os_version"},
		[][]string{{fmt.Sprint(nodeID), "node0", "linux", "6.8.0", "#1 SMP"}},
	)
	b.setValue(controller, models.TracePropNodeInfoTableHandleIndexed, 0, models.ObjectValue(nodeTable))

	agentTable := b.makeInfoTable(
		[]string{"id", "type", "type_index", "product_name"},
		[][]string{{fmt.Sprint(processorID), "gpu", "0", "MI300X"}},
	)
	b.setValue(controller, models.TracePropAgentInfoTableHandleIndexed, 0, models.ObjectValue(agentTable))

	processTable := b.makeInfoTable(
		[]string{"id", "start_time", "end_time", "command", "environment"},
		[][]string{{fmt.Sprint(processID), "0", fmt.Sprint(standardTraceEndNs), "trace_app", "ROCM_PATH=/opt/rocm"}},
	)
	b.setValue(controller, models.TracePropProcessInfoTableHandleIndexed, 0, models.ObjectValue(processTable))

	threadTable := b.makeInfoTable(
		[]string{"id", "name", "start_time", "end_time", "kind", "track_id", "has_track"},
		[][]string{
			{fmt.Sprint(threadAID), "main", "0", fmt.Sprint(standardTraceEndNs), "instrumented", "0", "0"},
			{fmt.Sprint(threadSID), "sampler", "0", fmt.Sprint(standardTraceEndNs), "sampled", "0", "0"},
		},
	)
	b.setValue(controller, models.TracePropThreadInfoTableHandleIndexed, 0, models.ObjectValue(threadTable))

	queueTable := b.makeInfoTable(
		[]string{"id", "name", "track_id", "has_track"},
		[][]string{{fmt.Sprint(queueID), "queue0", fmt.Sprint(kernelTrackID), "1"}},
	)
	b.setValue(controller, models.TracePropQueueInfoTableHandleIndexed, 0, models.ObjectValue(queueTable))

	streamTable := b.makeInfoTable(
		[]string{"id", "name", "track_id", "has_track"},
		[][]string{{fmt.Sprint(streamID), "stream0", "0", "0"}},
	)
	b.setValue(controller, models.TracePropStreamInfoTableHandleIndexed, 0, models.ObjectValue(streamTable))

	pmcTable := b.makeInfoTable(
		[]string{"id", "name", "description", "units", "value_type", "processor_id", "track_id", "has_track"},
		[][]string{{fmt.Sprint(counterID), "sqtt_util", "SQTT utilization", "percent", "1", fmt.Sprint(processorID), fmt.Sprint(counterTrackID), "1"}},
	)
	b.setValue(controller, models.TracePropPmcInfoTableHandleIndexed, 0, models.ObjectValue(pmcTable))

	agentQueueTable := b.makeInfoTable(
		[]string{"agent_id", "queue_id"},
		[][]string{{fmt.Sprint(processorID), fmt.Sprint(queueID)}},
	)
	b.setValue(controller, models.TracePropAgentQueueMappingInfoTableHandleIndexed, 0, models.ObjectValue(agentQueueTable))

	agentStreamTable := b.makeInfoTable(
		[]string{"agent_id", "stream_id"},
		[][]string{{fmt.Sprint(processorID), fmt.Sprint(streamID)}},
	)
	b.setValue(controller, models.TracePropAgentStreamMappingInfoTableHandleIndexed, 0, models.ObjectValue(agentStreamTable))

	streamQueueTable := b.makeInfoTable(
		[]string{"stream_id", "queue_id"},
		[][]string{{fmt.Sprint(streamID), fmt.Sprint(queueID)}},
	)
	b.setValue(controller, models.TracePropStreamQueueMappingInfoTableHandleIndexed, 0, models.ObjectValue(streamQueueTable))
}

// topologyQueueID and topologyCounterID are the fixture ids populateTopology
// assigns to its queue and counter leaves, shared within the package so
// fixtures.go can bind a track to one of them as its owner (it binds
// kernelTrack to the queue; pmcTrack is left without an owner).
const (
	topologyQueueID   = 300
	topologyCounterID = 500
)

// progressStages is the sequence of (percent, message) pairs the reference
// backend walks through while a load is pending, standing in for a real
// backend's gradual database ingest (§4.2.1 load-progress reporting).
var progressStages = []struct {
	percent uint64
	message string
}{
	{25, "reading trace header"},
	{60, "indexing tracks"},
	{100, "ready"},
}

// simulateProgress advances TracePropProgressPercent/Message through
// progressStages with a short real delay between each, so a driver loop
// polling FutureWait(0) observes more than one FutureStatePending tick
// before the load completes and has something to read each time.
func (b *Backend) simulateProgress(controller models.Handle) {
	for _, stage := range progressStages {
		b.setValue(controller, models.TracePropProgressPercent, 0, models.Uint64Value(stage.percent))
		b.setValue(controller, models.TracePropProgressMessage, 0, models.StringValue(stage.message))
		time.Sleep(4 * time.Millisecond)
	}
}
