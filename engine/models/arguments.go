package models

// Arguments is a named bag of typed key/value pairs used to parameterise
// table_fetch_async and similar RPC calls. It is the typed equivalent of
// the native "arguments" handle.
type Arguments struct {
	handle Handle
	values map[string]Value
}

// NewArguments allocates an empty Arguments bag.
func NewArguments(handle Handle) *Arguments {
	return &Arguments{handle: handle, values: make(map[string]Value)}
}

// Handle returns the arguments object's own handle.
func (a *Arguments) Handle() Handle { return a.handle }

// Set stores a named value, overwriting any prior value under that key.
func (a *Arguments) Set(key string, v Value) { a.values[key] = v }

// Get returns the value stored under key, and whether it was present.
func (a *Arguments) Get(key string) (Value, bool) {
	v, ok := a.values[key]
	return v, ok
}

// SetUint64 is a convenience wrapper around Set for uint64-typed arguments.
func (a *Arguments) SetUint64(key string, v uint64) { a.Set(key, Uint64Value(v)) }

// SetString is a convenience wrapper around Set for string-typed arguments.
func (a *Arguments) SetString(key string, v string) { a.Set(key, StringValue(v)) }

// Keys returns the argument names currently set, in no particular order.
func (a *Arguments) Keys() []string {
	keys := make([]string, 0, len(a.values))
	for k := range a.values {
		keys = append(keys, k)
	}
	return keys
}

// TableQueryArgs is the typed projection of the Arguments fields the table
// engine and provider populate for a table_fetch_async call (§4.2.4, §6.2
// TableArgs property group).
type TableQueryArgs struct {
	TableType      TableType
	StartTimeNs    uint64
	EndTimeNs      uint64
	SortColumn     int
	SortOrder      SortOrder
	Where          string
	Filter         string
	Group          string
	GroupColumns   []string
	StartRow       uint64 // InvalidIndex64 means "no paging"
	RequestedRows  uint64 // InvalidIndex64 means "no paging"
	OperationTypes OperationTypeSet
	TrackIDs       []uint32
	StringFilters  []string
	OutputPath     string // non-empty signals an export request
}

// InvalidIndex64 mirrors InvalidIndex but for the 64-bit paging fields used
// by table requests (start_row / req_row_count "no paging" sentinel, and the
// export request's INVALID_UINT64 markers).
const InvalidIndex64 uint64 = 0xFFFFFFFFFFFFFFFF

// IsPaged reports whether the args request a specific page rather than
// "all rows" (used by ExportTable, which sets both fields to
// InvalidIndex64).
func (a TableQueryArgs) IsPaged() bool {
	return a.StartRow != InvalidIndex64 && a.RequestedRows != InvalidIndex64
}

// ToArguments converts the typed query into the generic Arguments bag the
// bridge's table_fetch_async call expects.
func (a TableQueryArgs) ToArguments(handle Handle) *Arguments {
	args := NewArguments(handle)
	args.SetUint64("type", uint64(a.TableType))
	args.SetUint64("start_ts", a.StartTimeNs)
	args.SetUint64("end_ts", a.EndTimeNs)
	args.SetUint64("sort_column", uint64(a.SortColumn))
	args.SetUint64("sort_order", uint64(a.SortOrder))
	args.SetString("where", a.Where)
	args.SetString("filter", a.Filter)
	args.SetString("group", a.Group)
	args.SetUint64("start_index", a.StartRow)
	args.SetUint64("start_count", a.RequestedRows)
	args.SetUint64("operation_types", uint64(a.OperationTypes))
	if a.OutputPath != "" {
		args.SetString("output_path", a.OutputPath)
	}
	return args
}
