package table

import (
	"strconv"
	"strings"

	"github.com/gputrace/tracevis/engine/models"
)

// Fetcher is the subset of the provider's table API the engine drives: one
// table type's fetch/cache round trip (§4.2.4, §4.3).
type Fetcher interface {
	FetchTable(args models.TableQueryArgs) bool
	ExportTable(args models.TableQueryArgs, outputPath string) bool
	TableInfo(t models.TableType) (*models.TableInfo, bool)
}

// MouseButton distinguishes the two selection hooks (§4.3.3).
type MouseButton uint8

const (
	MouseLeft MouseButton = iota
	MouseRight
)

// SelectionHook is invoked when a cell is clicked.
type SelectionHook func(row, column int)

// NavigationHook is invoked when selected-row navigation resolves a target
// track and view range (§4.3.3).
type NavigationHook func(trackID uint32, viewStartNs, viewEndNs uint64)

// ClipboardWriter abstracts OS clipboard access so CopyRow is testable
// without a real display server; the default Engine uses an in-memory
// writer.
type ClipboardWriter interface {
	WriteString(s string) error
}

// memoryClipboard is the zero-dependency default ClipboardWriter: nothing in
// the example corpus wires a real OS clipboard library for a headless data
// layer, and this engine has no rendering surface of its own (that belongs
// to whatever UI embeds it), so writes are simply captured for the embedder
// to read back or relay to a real clipboard package.
type memoryClipboard struct{ last string }

func (m *memoryClipboard) WriteString(s string) error { m.last = s; return nil }

// Option configures an Engine at construction.
type Option func(*Engine)

func WithClipboard(w ClipboardWriter) Option  { return func(e *Engine) { e.clipboard = w } }
func WithOnLeftClick(h SelectionHook) Option  { return func(e *Engine) { e.onLeftClick = h } }
func WithOnRightClick(h SelectionHook) Option { return func(e *Engine) { e.onRightClick = h } }
func WithOnNavigate(h NavigationHook) Option  { return func(e *Engine) { e.onNavigate = h } }

// Engine is the infinite-scroll table view model for one table type. It is
// confined to the driver goroutine, like the provider (§5).
type Engine struct {
	fetcher   Fetcher
	tableType models.TableType
	clipboard ClipboardWriter

	sortColumn int
	sortOrder  models.SortOrder

	appliedFilter string
	pendingFilter string
	appliedGroup  string
	pendingGroup  string
	groupColumns  []string

	selectedRow    int
	selectedColumn int
	hasSelection   bool

	skipPrefetchThisFrame bool
	lastTotalRows         uint64
	pendingFetchInFlight  bool

	onLeftClick  SelectionHook
	onRightClick SelectionHook
	onNavigate   NavigationHook
}

// NewEngine constructs an Engine bound to one table type. It issues no
// request; the first OnFrame without data issues the initial fetch.
func NewEngine(fetcher Fetcher, tableType models.TableType, opts ...Option) *Engine {
	e := &Engine{
		fetcher:   fetcher,
		tableType: tableType,
		clipboard: &memoryClipboard{},
		sortOrder: models.SortAscending,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) currentArgs(startRow uint64, requestedRows int) models.TableQueryArgs {
	return models.TableQueryArgs{
		TableType:     e.tableType,
		SortColumn:    e.sortColumn,
		SortOrder:     e.sortOrder,
		Filter:        e.appliedFilter,
		Group:         e.appliedGroup,
		GroupColumns:  append([]string(nil), e.groupColumns...),
		StartRow:      startRow,
		RequestedRows: uint64(requestedRows),
	}
}

// OnFrame drives one tick of the row-virtualisation protocol (§4.3.1): it
// computes the spacer layout for the current cached window and, if needed,
// issues a prefetch. Returns the layout so the caller can render the top
// spacer, cached rows, and bottom spacer.
func (e *Engine) OnFrame(scrollPx, viewportPx, rowHeight float64) SpacerLayout {
	info, ok := e.fetcher.TableInfo(e.tableType)
	if !ok {
		if !e.pendingFetchInFlight {
			e.pendingFetchInFlight = e.fetcher.FetchTable(e.currentArgs(0, FetchChunkSize(VisibleRows(viewportPx, rowHeight))))
		}
		return SpacerLayout{}
	}
	e.pendingFetchInFlight = false

	if info.TotalRows != e.lastTotalRows {
		e.lastTotalRows = info.TotalRows
		e.skipPrefetchThisFrame = true
	}

	win := Window{StartRow: info.StartRow, RowCount: len(info.Rows), TotalRows: info.TotalRows}
	layout := Layout(rowHeight, win)

	if e.skipPrefetchThisFrame {
		e.skipPrefetchThisFrame = false
		return layout
	}

	plan := DecidePrefetch(scrollPx, viewportPx, rowHeight, win)
	if plan.Direction != PrefetchNone {
		e.fetcher.FetchTable(e.currentArgs(plan.NewStart, plan.RequestedRow))
	}
	return layout
}

// SetSort updates the sort spec and re-fetches from row 0 if it changed
// (§4.3.2).
func (e *Engine) SetSort(column int, order models.SortOrder) bool {
	if column == e.sortColumn && order == e.sortOrder {
		return false
	}
	e.sortColumn = column
	e.sortOrder = order
	return e.fetcher.FetchTable(e.currentArgs(0, 0))
}

// SetPendingFilter stages a filter expression without applying it yet.
func (e *Engine) SetPendingFilter(expr string) { e.pendingFilter = expr }

// SetPendingGroup stages a group column expression without applying it yet.
// Passing "" (the UI's "None") clears both the pending group and its
// column list.
func (e *Engine) SetPendingGroup(expr string) {
	e.pendingGroup = expr
	if expr == "" {
		e.groupColumns = nil
	}
}

// SubmitFilterGroup promotes pending → applied and re-fetches from row 0
// (§4.3.2).
func (e *Engine) SubmitFilterGroup() bool {
	e.appliedFilter = e.pendingFilter
	e.appliedGroup = e.pendingGroup
	return e.fetcher.FetchTable(e.currentArgs(0, 0))
}

// GroupableColumns returns the groupable column set discovered at first
// data arrival (§4.3.2), or nil if no data has arrived yet.
func (e *Engine) GroupableColumns() []string {
	info, ok := e.fetcher.TableInfo(e.tableType)
	if !ok {
		return nil
	}
	return info.GroupableColumns
}

// SelectCell records a click on (row, column) within the currently cached
// window and fires the corresponding hook (§4.3.3).
func (e *Engine) SelectCell(row, column int, button MouseButton) {
	e.selectedRow = row
	e.selectedColumn = column
	e.hasSelection = true
	switch button {
	case MouseLeft:
		if e.onLeftClick != nil {
			e.onLeftClick(row, column)
		}
	case MouseRight:
		if e.onRightClick != nil {
			e.onRightClick(row, column)
		}
	}
}

func findColumn(header []string, names ...string) int {
	for _, want := range names {
		for i, h := range header {
			if strings.EqualFold(h, want) {
				return i
			}
		}
	}
	return -1
}

func parseUint64Cell(cells []string, idx int) (uint64, bool) {
	if idx < 0 || idx >= len(cells) {
		return 0, false
	}
	v, err := strconv.ParseUint(cells[idx], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// NavigateToSelection resolves the selected row's track/stream column and
// start_ts/end_ts columns, computes the adaptive view range, and invokes
// onNavigate (§4.3.3, §4.3.4). Returns false if there is no selection or the
// required columns are missing.
func (e *Engine) NavigateToSelection() bool {
	if !e.hasSelection {
		return false
	}
	info, ok := e.fetcher.TableInfo(e.tableType)
	if !ok {
		return false
	}
	rowIdx := e.selectedRow - int(info.StartRow)
	if rowIdx < 0 || rowIdx >= len(info.Rows) {
		return false
	}
	cells := info.Rows[rowIdx].Cells

	trackIdx := findColumn(info.Header, "track_id", "stream_id")
	startIdx := findColumn(info.Header, "start_ts")
	endIdx := findColumn(info.Header, "end_ts")
	if trackIdx < 0 || startIdx < 0 {
		return false
	}
	trackID64, ok := parseUint64Cell(cells, trackIdx)
	if !ok {
		return false
	}
	startNs, ok := parseUint64Cell(cells, startIdx)
	if !ok {
		return false
	}
	var durationNs int64 = 1
	if endIdx >= 0 {
		if endNs, ok := parseUint64Cell(cells, endIdx); ok && endNs > startNs {
			durationNs = int64(endNs - startNs)
		}
	}

	lo, hi := AdaptiveViewRange(startNs, durationNs)
	if e.onNavigate != nil {
		e.onNavigate(uint32(trackID64), lo, hi)
	}
	return true
}

// CopyRow serialises the given cached row index as comma-separated values
// and writes it to the clipboard (§4.3.3).
func (e *Engine) CopyRow(row int) bool {
	info, ok := e.fetcher.TableInfo(e.tableType)
	if !ok {
		return false
	}
	idx := row - int(info.StartRow)
	if idx < 0 || idx >= len(info.Rows) {
		return false
	}
	line := strings.Join(info.Rows[idx].Cells, ",")
	return e.clipboard.WriteString(line) == nil
}

// ExportToFile re-issues the current table request with paging sentinels
// and an output path (§4.3.3); the export callback fires asynchronously
// once the provider's request completes.
func (e *Engine) ExportToFile(path string) bool {
	return e.fetcher.ExportTable(e.currentArgs(0, 0), path)
}
