package table

import "testing"

func TestFetchPadItemsClamps(t *testing.T) {
	cases := []struct {
		visible int
		want    int
	}{
		{visible: 4, want: 10},
		{visible: 40, want: 20},
		{visible: 200, want: 30},
	}
	for _, c := range cases {
		if got := FetchPadItems(c.visible); got != c.want {
			t.Errorf("FetchPadItems(%d) = %d, want %d", c.visible, got, c.want)
		}
	}
}

func TestFetchChunkSizeNeverBelowFloor(t *testing.T) {
	if got := FetchChunkSize(10); got != 1000 {
		t.Errorf("expected floor of 1000 for a small viewport, got %d", got)
	}
	if got := FetchChunkSize(500); got <= 1000 {
		t.Errorf("expected a large viewport to exceed the floor, got %d", got)
	}
}

func TestVisibleRowsRoundsUp(t *testing.T) {
	if got := VisibleRows(100, 30); got != 4 {
		t.Fatalf("expected ceil(100/30)=4, got %d", got)
	}
	if got := VisibleRows(90, 30); got != 3 {
		t.Fatalf("expected exact division to stay at 3, got %d", got)
	}
}

func TestDecidePrefetchNoneWhenFullyCached(t *testing.T) {
	win := Window{StartRow: 0, RowCount: 10, TotalRows: 10}
	plan := DecidePrefetch(0, 300, 20, win)
	if plan.Direction != PrefetchNone {
		t.Fatalf("expected no prefetch once cached count covers total_rows-1, got %v", plan.Direction)
	}
}

func TestDecidePrefetchUpwardNearTopEdge(t *testing.T) {
	win := Window{StartRow: 1000, RowCount: 2000, TotalRows: 1_000_000}
	plan := DecidePrefetch(float64(1000*20), 400, 20, win)
	if plan.Direction != PrefetchUpward {
		t.Fatalf("expected upward prefetch near the cached window's top edge, got %v", plan.Direction)
	}
}

func TestDecidePrefetchDownwardNearBottomEdge(t *testing.T) {
	win := Window{StartRow: 0, RowCount: 100, TotalRows: 1_000_000}
	scroll := float64(100-5) * 20
	plan := DecidePrefetch(scroll, 400, 20, win)
	if plan.Direction != PrefetchDownward {
		t.Fatalf("expected downward prefetch near the cached window's bottom edge, got %v", plan.Direction)
	}
}

func TestLayoutSpacersProportionalToTotal(t *testing.T) {
	win := Window{StartRow: 100, RowCount: 50, TotalRows: 1000}
	l := Layout(20, win)
	if l.TopSpacerPx != 2000 {
		t.Fatalf("expected top spacer 100*20=2000, got %v", l.TopSpacerPx)
	}
	wantBottom := float64(1000-150-1) * 20
	if l.BottomSpacerPx != wantBottom {
		t.Fatalf("expected bottom spacer %v, got %v", wantBottom, l.BottomSpacerPx)
	}
}

func TestAdaptiveViewRangeShortEventGetsWidePad(t *testing.T) {
	lo, hi := AdaptiveViewRange(1_000_000, 1_000) // 1µs duration, well below T1
	span := hi - lo
	wantSpan := uint64(1000 * (1 + 2*9))
	if wantSpan < minVisibleNs {
		wantSpan = minVisibleNs
	}
	if span != wantSpan {
		t.Fatalf("expected span %d for a short event, got %d", wantSpan, span)
	}
}

func TestAdaptiveViewRangeLongEventGetsNarrowPad(t *testing.T) {
	lo, hi := AdaptiveViewRange(1_000_000, 10_000_000) // 10ms, above T2
	span := hi - lo
	wantSpan := uint64(float64(10_000_000) * (1 + 2*1))
	if span != wantSpan {
		t.Fatalf("expected span %d for a long event, got %d", wantSpan, span)
	}
}

func TestAdaptiveViewRangeNeverBelowMinVisible(t *testing.T) {
	lo, hi := AdaptiveViewRange(0, 1)
	if hi-lo != minVisibleNs {
		t.Fatalf("expected the minimum visible span for a near-zero-duration event, got %d", hi-lo)
	}
}
