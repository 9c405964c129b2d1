package models

// RequestType enumerates the kinds of async operation the provider can have
// outstanding (§4.2.2).
type RequestType uint8

const (
	RequestTypeEventTable RequestType = iota
	RequestTypeSampleTable
	RequestTypeEventSearch
	RequestTypeSummaryKernelInstanceTable
	RequestTypeComputeTable
	RequestTypeEventExtendedData
	RequestTypeEventFlowData
	RequestTypeEventCallStack
	RequestTypeSaveTrimmedTrace
	RequestTypeTableExport
	RequestTypeTrackFetch
	RequestTypeGraphFetch
	RequestTypeLoadTrace
)

func (t RequestType) String() string {
	switch t {
	case RequestTypeEventTable:
		return "event_table"
	case RequestTypeSampleTable:
		return "sample_table"
	case RequestTypeEventSearch:
		return "event_search"
	case RequestTypeSummaryKernelInstanceTable:
		return "summary_kernel_instance_table"
	case RequestTypeComputeTable:
		return "compute_table"
	case RequestTypeEventExtendedData:
		return "event_extended_data"
	case RequestTypeEventFlowData:
		return "event_flow_data"
	case RequestTypeEventCallStack:
		return "event_call_stack"
	case RequestTypeSaveTrimmedTrace:
		return "save_trimmed_trace"
	case RequestTypeTableExport:
		return "table_export"
	case RequestTypeTrackFetch:
		return "track_fetch"
	case RequestTypeGraphFetch:
		return "graph_fetch"
	case RequestTypeLoadTrace:
		return "load_trace"
	default:
		return "unknown_request"
	}
}

// isSingleton reports whether a request type has at most one instance
// in flight at a time regardless of parameters (§4.2.2): everything except
// per-track chunk fetches.
func (t RequestType) isSingleton() bool {
	return t != RequestTypeTrackFetch && t != RequestTypeGraphFetch
}

// RequestID identifies one outstanding request in the provider's request
// map (§4.2.2). Singleton request types use MakeSingletonRequestID; per-track
// chunk fetches use MakeChunkRequestID so distinct chunks of the same track
// and group coexist while exact duplicates are rejected.
type RequestID uint64

const requestTypeBits = 8

// MakeSingletonRequestID returns the constant id for a singleton request
// type.
func MakeSingletonRequestID(t RequestType) RequestID {
	return RequestID(uint64(t))
}

// MakeChunkRequestID packs (trackID, chunkIndex, groupID, type) into one
// 64-bit id for per-track chunked fetches (§4.2.2, §4.2.3).
//
// Layout (low to high bits): 8 bits request type | 16 bits chunk index |
// 16 bits group id (low 16 bits) | 24 bits track id. This keeps distinct
// chunks/groups of the same track from colliding while remaining a single
// comparable uint64 key.
func MakeChunkRequestID(trackID uint32, chunkIndex int, groupID uint64, t RequestType) RequestID {
	id := uint64(t) & 0xFF
	id |= (uint64(chunkIndex) & 0xFFFF) << requestTypeBits
	id |= (groupID & 0xFFFF) << (requestTypeBits + 16)
	id |= (uint64(trackID) & 0xFFFFFF) << (requestTypeBits + 32)
	return RequestID(id)
}

// RequestState is the lifecycle stage of one DataRequest.
type RequestState uint8

const (
	RequestStatePending RequestState = iota
	RequestStateCancelling
	RequestStateCompleted
)

// DataRequest is one outstanding async operation tracked by the provider
// (§4.2.2).
type DataRequest struct {
	RequestID    RequestID
	RequestType  RequestType
	Future       Handle
	Array        Handle
	Arguments    Handle
	HasArguments bool
	ObjectHandle Handle
	HasObject    bool

	CustomParams any
	RequestTime  uint64
	State        RequestState
	ResponseCode ResultCode
}

// ProviderState is the Data Provider's top-level state machine (§4.2).
type ProviderState uint8

const (
	ProviderStateInit ProviderState = iota
	ProviderStateLoading
	ProviderStateReady
	ProviderStateError
)

func (s ProviderState) String() string {
	switch s {
	case ProviderStateInit:
		return "init"
	case ProviderStateLoading:
		return "loading"
	case ProviderStateReady:
		return "ready"
	case ProviderStateError:
		return "error"
	default:
		return "unknown_state"
	}
}
