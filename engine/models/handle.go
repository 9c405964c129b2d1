// Package models defines the opaque handle, property, and result-code
// taxonomy shared by the controller bridge, data provider, and table engine,
// along with the track/table/event data records that flow across them.
package models

import "fmt"

// Handle identifies any data-model object (trace, track, slice, flow trace,
// stack trace, ext data, table, table row) owned by the controller backend.
// It carries no meaning on its own outside the backend that issued it.
type Handle uint64

// InvalidIndex marks an absent array index, mirroring the native
// INVALID_INDEX sentinel.
const InvalidIndex uint32 = 0xFFFFFFFF

// InvalidHandle is the zero handle; no valid object is ever assigned it.
const InvalidHandle Handle = 0

// HandleType distinguishes what kind of object a Handle refers to, so the
// bridge can validate a Get/Set call against the property enum it expects.
type HandleType uint8

const (
	HandleTypeTrace HandleType = iota
	HandleTypeDatabase
	HandleTypeTrack
	HandleTypeSlice
	HandleTypeFlowTrace
	HandleTypeStackTrace
	HandleTypeExtData
	HandleTypeTable
	HandleTypeTableRow
)

func (t HandleType) String() string {
	switch t {
	case HandleTypeTrace:
		return "trace"
	case HandleTypeDatabase:
		return "database"
	case HandleTypeTrack:
		return "track"
	case HandleTypeSlice:
		return "slice"
	case HandleTypeFlowTrace:
		return "flow_trace"
	case HandleTypeStackTrace:
		return "stack_trace"
	case HandleTypeExtData:
		return "ext_data"
	case HandleTypeTable:
		return "table"
	case HandleTypeTableRow:
		return "table_row"
	default:
		return fmt.Sprintf("handle_type(%d)", uint8(t))
	}
}

// ResultCode mirrors the controller's operation status taxonomy (§7).
type ResultCode uint32

const (
	ResultSuccess ResultCode = iota
	ResultUnknownError
	ResultTimeout
	ResultNotLoaded
	ResultAllocFailure
	ResultInvalidParameter
	ResultDbAccessFailed
	ResultInvalidProperty
	ResultNotSupported
	ResultResourceBusy
	ResultDbAbort
)

func (r ResultCode) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultUnknownError:
		return "unknown_error"
	case ResultTimeout:
		return "timeout"
	case ResultNotLoaded:
		return "not_loaded"
	case ResultAllocFailure:
		return "alloc_failure"
	case ResultInvalidParameter:
		return "invalid_parameter"
	case ResultDbAccessFailed:
		return "db_access_failed"
	case ResultInvalidProperty:
		return "invalid_property"
	case ResultNotSupported:
		return "not_supported"
	case ResultResourceBusy:
		return "resource_busy"
	case ResultDbAbort:
		return "db_abort"
	default:
		return fmt.Sprintf("result_code(%d)", uint32(r))
	}
}

// IsTransient reports whether retrying the same request later has a chance
// of succeeding (timeout, resource-busy); permanent errors never do.
func (r ResultCode) IsTransient() bool {
	return r == ResultTimeout || r == ResultResourceBusy
}

// Error makes ResultCode satisfy the error interface for non-success codes,
// so bridge/provider call sites can use ordinary Go error plumbing.
func (r ResultCode) Error() string {
	return fmt.Sprintf("rocprofvis: %s", r.String())
}

// AsError returns nil for ResultSuccess, else the ResultCode itself as an
// error.
func (r ResultCode) AsError() error {
	if r == ResultSuccess {
		return nil
	}
	return r
}
