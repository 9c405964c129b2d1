package models

// TrackKind distinguishes an event-valued track (spans) from a
// sample-valued track (scalar series), per §3.
type TrackKind uint8

const (
	TrackKindEvents TrackKind = iota
	TrackKindSamples
)

// TrackInfo describes one track discovered while walking the timeline's
// graphs during the load flow (§4.2.1).
type TrackInfo struct {
	Index      int
	ID         uint32
	Kind       TrackKind
	Name       string
	MinTimeNs  uint64
	MaxTimeNs  uint64
	NumEntries uint64
	MinValue   float64
	MaxValue   float64
	Owner      TrackRef
	OwnerKind  TrackOwnerKind
}

// TraceEvent is one span on an event track (§3 Raw track data).
type TraceEvent struct {
	ID           uint64
	StartNs      uint64
	DurationNs   int64 // may be negative; the controller is responsible for invalidating these
	Level        uint8
	Name         string
	ChildCount   uint64
	CombinedName string // optional; populated when events are grouped for display
}

// TraceCounter is one point on a sample track (§3 Raw track data).
type TraceCounter struct {
	StartNs uint64
	Value   float64
}

// RawTrackData is the provider-owned, merged representation of one track's
// points across all chunks of its current fetch group (§3, §4.2.3).
type RawTrackData struct {
	TrackID       uint32
	Kind          TrackKind
	RequestStart  uint64
	RequestEnd    uint64
	GroupID       uint64
	ChunkCount    int
	chunksArrived map[int]struct{}
	RequestTime   uint64 // monotonic wall-clock stamp, used for stale-response rejection

	Events   []TraceEvent
	Counters []TraceCounter

	seenEventIDs   map[uint64]struct{}
	seenTimestamps map[uint64]struct{}
}

// NewRawEventTrackData allocates an event-track cache entry for a fetch
// group with the given chunk count.
func NewRawEventTrackData(trackID uint32, start, end, groupID uint64, chunkCount int, requestTime uint64, capacity int) *RawTrackData {
	return &RawTrackData{
		TrackID: trackID, Kind: TrackKindEvents,
		RequestStart: start, RequestEnd: end, GroupID: groupID,
		ChunkCount: chunkCount, chunksArrived: make(map[int]struct{}, chunkCount),
		RequestTime:  requestTime,
		Events:       make([]TraceEvent, 0, capacity),
		seenEventIDs: make(map[uint64]struct{}, capacity),
	}
}

// NewRawSampleTrackData allocates a sample-track cache entry for a fetch
// group with the given chunk count.
func NewRawSampleTrackData(trackID uint32, start, end, groupID uint64, chunkCount int, requestTime uint64, capacity int) *RawTrackData {
	return &RawTrackData{
		TrackID: trackID, Kind: TrackKindSamples,
		RequestStart: start, RequestEnd: end, GroupID: groupID,
		ChunkCount: chunkCount, chunksArrived: make(map[int]struct{}, chunkCount),
		RequestTime:    requestTime,
		Counters:       make([]TraceCounter, 0, capacity),
		seenTimestamps: make(map[uint64]struct{}, capacity),
	}
}

// AppendEvent adds ev if its id has not already been seen in this group,
// enforcing the per-point dedup invariant (§3, §8).
func (d *RawTrackData) AppendEvent(ev TraceEvent) (added bool) {
	if _, seen := d.seenEventIDs[ev.ID]; seen {
		return false
	}
	d.seenEventIDs[ev.ID] = struct{}{}
	d.Events = append(d.Events, ev)
	return true
}

// AppendCounter adds c if its timestamp has not already been seen in this
// group.
func (d *RawTrackData) AppendCounter(c TraceCounter) (added bool) {
	if _, seen := d.seenTimestamps[c.StartNs]; seen {
		return false
	}
	d.seenTimestamps[c.StartNs] = struct{}{}
	d.Counters = append(d.Counters, c)
	return true
}

// AddChunk marks chunkIndex as delivered for this group.
func (d *RawTrackData) AddChunk(chunkIndex int) { d.chunksArrived[chunkIndex] = struct{}{} }

// AllDataReady reports whether every chunk of this group has arrived.
func (d *RawTrackData) AllDataReady() bool { return len(d.chunksArrived) >= d.ChunkCount }

// IsStaleResponseFor reports whether a response carrying responseGroupID and
// responseRequestTime should be dropped against this cache entry, per the
// oldest-request-time-wins rule (§3, §4.2.3, §5).
func (d *RawTrackData) IsStaleResponseFor(responseGroupID, responseRequestTime uint64) bool {
	if responseGroupID == d.GroupID {
		return false
	}
	return responseRequestTime < d.RequestTime
}

// RawTrackSnapshot is the durable, exported projection of a fully-merged
// RawTrackData suitable for disk spillover; it drops the in-flight dedup and
// chunk-tracking state, which has no meaning once AllDataReady() is true.
type RawTrackSnapshot struct {
	TrackID      uint32
	Kind         TrackKind
	RequestStart uint64
	RequestEnd   uint64
	GroupID      uint64
	RequestTime  uint64
	Events       []TraceEvent
	Counters     []TraceCounter
}

// Snapshot projects a completed track entry for spilling or checkpointing.
// Callers must only snapshot entries where AllDataReady() is true.
func (d *RawTrackData) Snapshot() RawTrackSnapshot {
	return RawTrackSnapshot{
		TrackID: d.TrackID, Kind: d.Kind,
		RequestStart: d.RequestStart, RequestEnd: d.RequestEnd,
		GroupID: d.GroupID, RequestTime: d.RequestTime,
		Events: d.Events, Counters: d.Counters,
	}
}

// RehydrateRawTrackData reconstructs a cache entry from a snapshot, marking
// it immediately complete (a single chunk covering the whole group) since the
// snapshot was only ever taken once the original entry finished merging.
func RehydrateRawTrackData(s RawTrackSnapshot) *RawTrackData {
	d := &RawTrackData{
		TrackID: s.TrackID, Kind: s.Kind,
		RequestStart: s.RequestStart, RequestEnd: s.RequestEnd,
		GroupID: s.GroupID, ChunkCount: 1,
		chunksArrived: map[int]struct{}{0: {}},
		RequestTime:   s.RequestTime,
		Events:        s.Events, Counters: s.Counters,
	}
	if s.Kind == TrackKindEvents {
		d.seenEventIDs = make(map[uint64]struct{}, len(s.Events))
		for _, ev := range s.Events {
			d.seenEventIDs[ev.ID] = struct{}{}
		}
	} else {
		d.seenTimestamps = make(map[uint64]struct{}, len(s.Counters))
		for _, c := range s.Counters {
			d.seenTimestamps[c.StartNs] = struct{}{}
		}
	}
	return d
}
