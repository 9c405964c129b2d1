package models

// TableType enumerates the table types the provider can cache, keyed in
// its table-info map (§3 Table info).
type TableType uint8

const (
	TableTypeEvent TableType = iota
	TableTypeSample
	TableTypeEventSearch
	TableTypeSummaryKernel
	// Compute-domain tables supplement the core visualizer tables with the
	// roofline/workload/kernel analysis views (original_source compute
	// column/use-case enums).
	TableTypeComputeWorkloadList
	TableTypeComputeWorkloadRoofline
	TableTypeComputeTopKernels
	TableTypeComputeKernelList
	TableTypeComputeKernelRoofline
	TableTypeComputeMetricCategories
	TableTypeComputeMetricTables
	TableTypeComputeMetricValues
)

func (t TableType) String() string {
	switch t {
	case TableTypeEvent:
		return "event"
	case TableTypeSample:
		return "sample"
	case TableTypeEventSearch:
		return "event_search"
	case TableTypeSummaryKernel:
		return "summary_kernel"
	case TableTypeComputeWorkloadList:
		return "compute_workload_list"
	case TableTypeComputeWorkloadRoofline:
		return "compute_workload_roofline"
	case TableTypeComputeTopKernels:
		return "compute_top_kernels"
	case TableTypeComputeKernelList:
		return "compute_kernel_list"
	case TableTypeComputeKernelRoofline:
		return "compute_kernel_roofline"
	case TableTypeComputeMetricCategories:
		return "compute_metric_categories"
	case TableTypeComputeMetricTables:
		return "compute_metric_tables"
	case TableTypeComputeMetricValues:
		return "compute_metric_values"
	default:
		return "unknown_table"
	}
}

// Row is one table row: an ordered slice of formatted string cells,
// parallel to the table's Header.
type Row struct {
	Cells []string
}

// TableInfo is the provider-cached state for one table type (§3 Table
// info): header, current window, the request parameters that produced it,
// and the backend-reported total row count.
type TableInfo struct {
	Type          TableType
	Header        []string
	Rows          []Row
	StartRow      uint64
	TotalRows     uint64
	RequestParams TableQueryArgs

	// GroupableColumns is discovered at first data arrival (§4.3.2):
	// columns whose name is non-empty, doesn't start with "_", and isn't
	// the event-id column.
	GroupableColumns []string

	// formatCache holds per-column formatted-value caches keyed by a
	// column-specific cache key (e.g. a duration column's human-readable
	// strings), avoiding re-formatting on every render pass.
	formatCache map[string]map[string]string
}

// NewTableInfo returns an empty TableInfo for the given table type.
func NewTableInfo(t TableType) *TableInfo {
	return &TableInfo{Type: t, formatCache: make(map[string]map[string]string)}
}

// FormattedCell returns a memoised formatted value for (column, rawValue),
// computing it with format on a cache miss.
func (t *TableInfo) FormattedCell(column, rawValue string, format func(string) string) string {
	bucket, ok := t.formatCache[column]
	if !ok {
		bucket = make(map[string]string)
		t.formatCache[column] = bucket
	}
	if v, ok := bucket[rawValue]; ok {
		return v
	}
	v := format(rawValue)
	bucket[rawValue] = v
	return v
}

// EndRow returns the exclusive end of the current cached window.
func (t *TableInfo) EndRow() uint64 { return t.StartRow + uint64(len(t.Rows)) }

// discoverGroupableColumns computes the groupable column set from Header,
// excluding empty names, private ("_"-prefixed) names, and the event-id
// column (§4.3.2).
func discoverGroupableColumns(header []string, eventIDColumn string) []string {
	out := make([]string, 0, len(header))
	for _, name := range header {
		if name == "" || name[0] == '_' || name == eventIDColumn {
			continue
		}
		out = append(out, name)
	}
	return out
}

// SetHeader assigns the table's column header, (re)computing the groupable
// column set the first time data arrives for this table.
func (t *TableInfo) SetHeader(header []string, eventIDColumn string) {
	if t.Header == nil {
		t.GroupableColumns = discoverGroupableColumns(header, eventIDColumn)
	}
	t.Header = header
}
