package models

// ExtDataRow is one extended-data record attached to an event (§3 Event
// detail).
type ExtDataRow struct {
	Category     string
	Name         string
	Value        string
	CategoryEnum uint64
	HasCategory  bool
}

// FlowLinkDirection distinguishes an incoming from an outgoing flow edge.
type FlowLinkDirection uint8

const (
	FlowDirectionIn FlowLinkDirection = iota
	FlowDirectionOut
)

// FlowLink is one entry of an event's ordered flow-control list (§3 Event
// detail).
type FlowLink struct {
	ID         uint64
	Name       string
	TimestampNs uint64
	TrackID    uint32
	Direction  FlowLinkDirection
	Level      uint64
}

// StackFrame is one entry of an event's ordered call-stack list (§3 Event
// detail).
type StackFrame struct {
	Depth    uint64
	Symbol   string
	File     string
	PC       uint64
	Function string
	Arguments string
	Line     uint64
}

// EventDetail aggregates everything known about one event, keyed by event
// id (§3 Event detail, §4.2.5).
type EventDetail struct {
	EventID      uint64
	TrackID      uint32
	BasicInfo    TraceEvent
	HasBasicInfo bool
	ExtInfo      []ExtDataRow
	FlowInfo     []FlowLink
	CallStack    []StackFrame

	HasExtInfo   bool
	HasFlowInfo  bool
	HasCallStack bool
}

// IsComplete reports whether all three async side channels (ext data, flow,
// call stack) have arrived, per the event-detail-fan-out scenario (§8).
func (d *EventDetail) IsComplete() bool {
	return d.HasExtInfo && d.HasFlowInfo && d.HasCallStack
}
