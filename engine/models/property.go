package models

// Property enumerates a readable/writable attribute of a handle. The
// concrete integer values are partitioned by HandleType below so a given
// property enum only ever makes sense against one kind of handle.
type Property uint32

// Trace properties.
const (
	TracePropStartTime Property = iota
	TracePropEndTime
	TracePropNumberOfTracks
	TracePropNumberOfTables
	TracePropMemoryFootprint
	TracePropTrackHandleIndexed
	TracePropFlowTraceHandleByEventID
	TracePropStackTraceHandleByEventID
	TracePropExtInfoHandleByEventID
	TracePropTableHandleByID
	TracePropDatabaseHandle
	TracePropHistogramNumBuckets
	TracePropHistogramBucketSize
	TracePropNumberOfNodes
	TracePropNodeInfoTableHandleIndexed
	TracePropAgentInfoTableHandleIndexed
	TracePropQueueInfoTableHandleIndexed
	TracePropProcessInfoTableHandleIndexed
	TracePropThreadInfoTableHandleIndexed
	TracePropStreamInfoTableHandleIndexed
	TracePropPmcInfoTableHandleIndexed
	TracePropAgentQueueMappingInfoTableHandleIndexed
	TracePropAgentStreamMappingInfoTableHandleIndexed
	TracePropStreamQueueMappingInfoTableHandleIndexed
	TracePropProgressPercent
	TracePropProgressMessage
)

// Track properties.
const (
	TrackPropNumRecords Property = iota
	TrackPropMinimumTimestamp
	TrackPropMaximumTimestamp
	TrackPropCategoryEnum
	TrackPropCategoryString
	TrackPropID
	TrackPropNodeID
	TrackPropMainProcessName
	TrackPropSubProcessName
	TrackPropNumberOfSlices
	TrackPropMemoryFootprint
	TrackPropSliceHandleIndexed
	TrackPropSliceHandleTimed
	TrackPropNumberOfExtDataRecords
	TrackPropExtDataCategoryIndexed
	TrackPropExtDataNameIndexed
	TrackPropExtDataValueIndexed
	TrackPropInfoJSON
	TrackPropDatabaseHandle
	TrackPropTraceHandle
	TrackPropMinimumValue
	TrackPropMaximumValue
	TrackPropHistogramBucketEventDensityIndexed
	TrackPropHistogramBucketValueIndexed
	TrackPropInstanceID

	// Owner lookups (§4.2.1): which topology leaf this track is bound to.
	// Exactly one of these resolves with ResultSuccess for a bound track;
	// none resolving means the track's owner is unknown.
	TrackPropOwnerQueueID
	TrackPropOwnerStreamID
	TrackPropOwnerInstrumentedThreadID
	TrackPropOwnerSampledThreadID
	TrackPropOwnerCounterID
)

// Slice (event/sample record) properties.
const (
	SlicePropRecordIndexByTimestamp Property = iota
	SlicePropMemoryFootprint
	SlicePropNumberOfRecords
	SlicePropTimestampIndexed
	SlicePropPmcValueIndexed
	SlicePropEventIDIndexed
	SlicePropEventOperationEnumIndexed
	SlicePropEventOperationStringIndexed
	SlicePropEventDurationIndexed
	SlicePropEventTypeStringIndexed
	SlicePropEventSymbolStringIndexed
	SlicePropEventLevelIndexed
)

// Flow trace properties.
const (
	FlowTracePropNumberOfEndpoints Property = iota
	FlowTracePropEndpointTrackIDIndexed
	FlowTracePropEndpointIDIndexed
	FlowTracePropEndpointTimestampIndexed
	FlowTracePropEndpointEndTimestampIndexed
	FlowTracePropEndpointCategoryIndexed
	FlowTracePropEndpointSymbolIndexed
	FlowTracePropEndpointLevelIndexed
)

// Stack trace properties.
const (
	StackTracePropNumberOfFrames Property = iota
	StackTracePropFrameDepthIndexed
	StackTracePropFrameSymbolIndexed
	StackTracePropFrameArgsIndexed
	StackTracePropFrameCodeLineIndexed
)

// Extended data properties.
const (
	ExtDataPropNumberOfRecords Property = iota
	ExtDataPropCategoryIndexed
	ExtDataPropNameIndexed
	ExtDataPropValueIndexed
	ExtDataPropTypeIndexed
	ExtDataPropEnumIndexed
	ExtDataPropNumberOfArgumentRecords
	ExtDataPropArgumentPositionIndexed
	ExtDataPropArgumentTypeIndexed
	ExtDataPropArgumentNameIndexed
	ExtDataPropArgumentValueIndexed
)

// Table properties.
const (
	TablePropID Property = iota
	TablePropNumberOfColumns
	TablePropNumberOfRows
	TablePropDescription
	TablePropQuery
	TablePropColumnNameIndexed
	TablePropRowHandleIndexed
	TablePropColumnEnumIndexed
	TablePropColumnTypeIndexed
)

// Table row properties.
const (
	TableRowPropNumberOfCells Property = iota
	TableRowPropCellValueIndexed
)

// EventPropertyType names the per-event side channel a caller is asking for
// via GetIndexedPropertyAsync (flow trace, stack trace, or ext data).
type EventPropertyType uint8

const (
	EventPropertyFlowTrace EventPropertyType = iota
	EventPropertyStackTrace
	EventPropertyExtData
)

// SortOrder controls table query ordering.
type SortOrder uint8

const (
	SortAscending SortOrder = iota
	SortDescending
)

// TrackCategory classifies what kind of samples a track holds.
type TrackCategory uint8

const (
	TrackCategoryNotATrack TrackCategory = iota
	TrackCategoryPMC
	TrackCategoryRegion
	TrackCategoryKernelDispatch
	TrackCategorySQTT
	TrackCategoryNIC
	TrackCategoryMemoryAllocation
	TrackCategoryMemoryCopy
	TrackCategoryStream
	TrackCategoryRegionMain
	TrackCategoryRegionSample
)

func (c TrackCategory) String() string {
	switch c {
	case TrackCategoryPMC:
		return "pmc"
	case TrackCategoryRegion:
		return "region"
	case TrackCategoryKernelDispatch:
		return "kernel_dispatch"
	case TrackCategorySQTT:
		return "sqtt"
	case TrackCategoryNIC:
		return "nic"
	case TrackCategoryMemoryAllocation:
		return "memory_allocation"
	case TrackCategoryMemoryCopy:
		return "memory_copy"
	case TrackCategoryStream:
		return "stream"
	case TrackCategoryRegionMain:
		return "region_main"
	case TrackCategoryRegionSample:
		return "region_sample"
	default:
		return "not_a_track"
	}
}

// EventOperation classifies what kind of action a slice/event represents.
type EventOperation uint8

const (
	EventOperationNoOp EventOperation = iota
	EventOperationLaunch
	EventOperationDispatch
	EventOperationMemoryAllocate
	EventOperationMemoryCopy
	EventOperationLaunchSample
	numEventOperations
	EventOperationMultiple
)

func (o EventOperation) String() string {
	switch o {
	case EventOperationLaunch:
		return "launch"
	case EventOperationDispatch:
		return "dispatch"
	case EventOperationMemoryAllocate:
		return "memory_allocate"
	case EventOperationMemoryCopy:
		return "memory_copy"
	case EventOperationLaunchSample:
		return "launch_sample"
	case EventOperationMultiple:
		return "multiple"
	default:
		return "no_op"
	}
}

// OperationTypeSet is a bitset over EventOperation values, used by table
// queries and event filters to select more than one operation kind at once.
// This replaces the native scheme of packing an operation type into the
// high 4 bits of a track/event id (TABLE_QUERY_PACK_OP_TYPE): Go keeps the
// operation filter as its own typed value alongside an ordinary uint32 id.
type OperationTypeSet uint8

// Set marks op as included in the set.
func (s OperationTypeSet) Set(op EventOperation) OperationTypeSet {
	return s | (1 << uint(op))
}

// Has reports whether op is included in the set.
func (s OperationTypeSet) Has(op EventOperation) bool {
	return s&(1<<uint(op)) != 0
}

// EventID packs a database-assigned event id, the node it was recorded on,
// and the operation kind, mirroring the native 52/8/4-bit bitfield union.
type EventID struct {
	Value     uint64
	NodeIndex uint8
	Operation EventOperation
}

// PackedEventID encodes id into the native 64-bit layout (52-bit id,
// 8-bit node, 4-bit operation) for wire compatibility with indexed-property
// lookups that key off the packed value.
func (id EventID) PackedEventID() uint64 {
	return (id.Value & ((1 << 52) - 1)) |
		(uint64(id.NodeIndex) << 52) |
		(uint64(id.Operation) << 60)
}

// ParseEventID decodes a packed 64-bit event id into its components.
func ParseEventID(packed uint64) EventID {
	return EventID{
		Value:     packed & ((1 << 52) - 1),
		NodeIndex: uint8((packed >> 52) & 0xFF),
		Operation: EventOperation((packed >> 60) & 0xF),
	}
}
