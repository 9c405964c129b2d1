// Package eventbus is a typed, synchronous-dispatch publish/subscribe
// channel coupling the Data Provider, the table engine, and downstream view
// widgets without direct coupling (§4.4).
package eventbus

// Kind is the closed variant set an Event's Type is drawn from (§4.4).
type Kind uint8

const (
	KindNewTrackData Kind = iota
	KindNewTableData
	KindTabClosed
	KindTabSelected
	KindTrackSelectionChanged
	KindEventSelectionChanged
	KindScrollToTrack
	KindRangeChange
	KindFontSizeChanged
	KindTimeFormatChanged
	KindTopologyChanged
	KindStickyNoteEdited
	KindNavigation
	KindComputeTableSearch
)

func (k Kind) String() string {
	switch k {
	case KindNewTrackData:
		return "new_track_data"
	case KindNewTableData:
		return "new_table_data"
	case KindTabClosed:
		return "tab_closed"
	case KindTabSelected:
		return "tab_selected"
	case KindTrackSelectionChanged:
		return "track_selection_changed"
	case KindEventSelectionChanged:
		return "event_selection_changed"
	case KindScrollToTrack:
		return "scroll_to_track"
	case KindRangeChange:
		return "range_change"
	case KindFontSizeChanged:
		return "font_size_changed"
	case KindTimeFormatChanged:
		return "time_format_changed"
	case KindTopologyChanged:
		return "topology_changed"
	case KindStickyNoteEdited:
		return "sticky_note_edited"
	case KindNavigation:
		return "navigation"
	case KindComputeTableSearch:
		return "compute_table_search"
	default:
		return "unknown_kind"
	}
}

// Event is one message travelling through the bus. SourceID is commonly the
// trace file path, so subscribers for one trace can ignore events from
// another (§4.4).
type Event struct {
	Kind     Kind
	SourceID string
	Payload  any

	propagate bool
}

// NewEvent constructs an Event ready for publication.
func NewEvent(kind Kind, sourceID string, payload any) Event {
	return Event{Kind: kind, SourceID: sourceID, Payload: payload, propagate: true}
}

// StopPropagation halts further delivery of this event to later subscribers
// within the current DispatchEvents fan-out (§4.4).
func (e *Event) StopPropagation() { e.propagate = false }

// CanPropagate reports whether delivery should continue to the next
// subscriber.
func (e *Event) CanPropagate() bool { return e.propagate }
