// Package table implements the infinite-scroll table engine: the pure
// row-virtualisation/prefetch math (§4.3.1), sort/filter/group state
// (§4.3.2), row selection and adaptive view-range navigation (§4.3.3,
// §4.3.4), bridging a provider-cached table window to a scrolling UI
// widget. Like the provider, it is confined to the single driver goroutine.
package table

// FetchThresholdItems is the constant slack (in rows) kept between the
// visible window and the edge of the cached window before a prefetch fires
// (§4.3.1).
const FetchThresholdItems = 10

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// VisibleRows returns ⌈viewportHeight/rowHeight⌉, guarding against a
// degenerate zero row height.
func VisibleRows(viewportHeight, rowHeight float64) int {
	if rowHeight <= 0 {
		return 0
	}
	n := viewportHeight / rowHeight
	rows := int(n)
	if float64(rows) < n {
		rows++
	}
	return rows
}

// FetchPadItems is the per-viewport pad size, clamped to [10, 30] (§4.3.1).
func FetchPadItems(visibleRows int) int {
	return clamp(visibleRows/2, 10, 30)
}

// FetchChunkSize is the number of rows requested per prefetch, never below
// 1000 (§4.3.1).
func FetchChunkSize(visibleRows int) int {
	return maxInt(visibleRows*4+FetchThresholdItems+FetchPadItems(visibleRows), 1000)
}

// PrefetchDirection names which edge of the cached window triggered a
// prefetch, if any.
type PrefetchDirection uint8

const (
	PrefetchNone PrefetchDirection = iota
	PrefetchUpward
	PrefetchDownward
)

// PrefetchPlan is the decision to make during one frame's prefetch check.
type PrefetchPlan struct {
	Direction    PrefetchDirection
	NewStart     uint64
	RequestedRow int
}

// Window is the table engine's view of the provider-cached row range and
// backend total.
type Window struct {
	StartRow  uint64
	RowCount  int
	TotalRows uint64
}

// DecidePrefetch implements §4.3.1 step 2: given the current scroll
// position, viewport geometry, and cached window, decide whether to issue an
// upward or downward prefetch. Returns PrefetchNone if the cached window
// already covers the viewport with enough slack, or if everything is
// already cached (cached count >= total_rows - 1).
func DecidePrefetch(scrollPx, viewportPx, rowHeight float64, win Window) PrefetchPlan {
	if win.TotalRows == 0 {
		return PrefetchPlan{Direction: PrefetchNone}
	}
	cachedCount := uint64(win.RowCount)
	if win.TotalRows > 0 && cachedCount >= win.TotalRows-1 {
		return PrefetchPlan{Direction: PrefetchNone}
	}
	visibleRows := VisibleRows(viewportPx, rowHeight)
	pad := FetchPadItems(visibleRows)
	chunk := FetchChunkSize(visibleRows)
	endRow := win.StartRow + uint64(win.RowCount)

	startPx := float64(win.StartRow) * rowHeight
	endPx := float64(endRow) * rowHeight
	thresholdPx := float64(FetchThresholdItems) * rowHeight

	if scrollPx < startPx+thresholdPx && win.StartRow > 0 {
		back := chunk - pad - FetchThresholdItems - visibleRows
		rowAtScroll := int(scrollPx / rowHeight)
		newStart := rowAtScroll - back
		if newStart < 0 {
			newStart = 0
		}
		return PrefetchPlan{Direction: PrefetchUpward, NewStart: uint64(newStart), RequestedRow: chunk}
	}
	if scrollPx+viewportPx > endPx-thresholdPx && endRow != win.TotalRows-1 {
		rowAtScroll := int(scrollPx / rowHeight)
		newStart := rowAtScroll - pad - FetchThresholdItems
		if newStart < 0 {
			newStart = 0
		}
		return PrefetchPlan{Direction: PrefetchDownward, NewStart: uint64(newStart), RequestedRow: chunk}
	}
	return PrefetchPlan{Direction: PrefetchNone}
}

// SpacerLayout is the three-part render plan for one frame: a top spacer,
// the cached window itself (rendered by the caller), and a bottom spacer,
// keeping the scrollbar proportional to the true backend total (§4.3.1
// step 1).
type SpacerLayout struct {
	TopSpacerPx    float64
	BottomSpacerPx float64
}

// Layout computes the spacer heights for the current window.
func Layout(rowHeight float64, win Window) SpacerLayout {
	endRow := win.StartRow + uint64(win.RowCount)
	bottom := float64(0)
	if win.TotalRows > 0 && endRow < win.TotalRows {
		bottom = float64(win.TotalRows-endRow-1) * rowHeight
	}
	return SpacerLayout{
		TopSpacerPx:    float64(win.StartRow) * rowHeight,
		BottomSpacerPx: bottom,
	}
}

// View range constants for AdaptiveViewRange (§4.3.4), expressed in
// nanoseconds to match the rest of the timestamp domain.
const (
	minVisibleNs = 100_000   // 100µs
	t1Ns         = 10_000    // 10µs
	t2Ns         = 5_000_000 // 5ms
	padShort     = 9.0
	padLong      = 1.0
)

// AdaptiveViewRange computes the [lo, hi] view range to scroll/zoom to when
// navigating to an event of the given start/duration (§4.3.4). durationNs
// is clamped to at least 1ns per the precondition. A range that would start
// before 0 is shifted to start at 0, keeping its span.
func AdaptiveViewRange(startNs uint64, durationNs int64) (lo, hi uint64) {
	d := durationNs
	if d < 1 {
		d = 1
	}
	df := float64(d)

	var pad float64
	switch {
	case df < t1Ns:
		pad = padShort
	case df < t2Ns:
		pad = padShort + (padLong-padShort)*(df-t1Ns)/(t2Ns-t1Ns)
	default:
		pad = padLong
	}

	span := df * (1 + 2*pad)
	if span < minVisibleNs {
		span = minVisibleNs
	}
	center := float64(startNs) + df/2
	half := span / 2

	loF := center - half
	hiF := center + half
	if loF < 0 {
		hiF -= loF
		loF = 0
	}
	return uint64(loF), uint64(hiF)
}
