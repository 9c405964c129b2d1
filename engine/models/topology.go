package models

// Topology is the multi-level description of nodes, processes, devices,
// queues, streams, threads, and counters in a trace (§3, §6.2).
type Topology struct {
	Nodes   []*Node
	byID    map[uint64]*Node
	tracks  map[uint32]TrackRef // track id -> what it belongs to
}

// NewTopology returns an empty Topology ready to be populated during the
// load flow (§4.2.1).
func NewTopology() *Topology {
	return &Topology{byID: make(map[uint64]*Node), tracks: make(map[uint32]TrackRef)}
}

// AddNode registers a node and indexes it by id.
func (t *Topology) AddNode(n *Node) {
	t.Nodes = append(t.Nodes, n)
	t.byID[n.ID] = n
}

// NodeByID looks up a node by id, returning false if absent.
func (t *Topology) NodeByID(id uint64) (*Node, bool) {
	n, ok := t.byID[id]
	return n, ok
}

// BindTrack records which topology leaf a track id belongs to, so the
// bridge's "which topology object owns this track" lookups (track-queue,
// track-stream, track-instrumented-thread, track-sampled-thread,
// track-counter) can be answered from one side map.
func (t *Topology) BindTrack(trackID uint32, ref TrackRef) { t.tracks[trackID] = ref }

// TrackOwner returns what a track id is bound to, if anything.
func (t *Topology) TrackOwner(trackID uint32) (TrackRef, bool) {
	ref, ok := t.tracks[trackID]
	return ref, ok
}

// TrackOwnerKind enumerates what topology leaf a track belongs to. Unknown
// is a logged condition (§4.2.1): none of the five topology lookups
// resolved a non-nil object for the track.
type TrackOwnerKind uint8

const (
	TrackOwnerUnknown TrackOwnerKind = iota
	TrackOwnerQueue
	TrackOwnerStream
	TrackOwnerInstrumentedThread
	TrackOwnerSampledThread
	TrackOwnerCounter
)

// TrackRef identifies the topology object a track is bound to.
type TrackRef struct {
	Kind TrackOwnerKind
	ID   uint64
}

// Node is a physical/virtual host in the topology.
type Node struct {
	ID         uint64
	HostName   string
	OSName     string
	OSRelease  string
	OSVersion  string
	Processors []*Processor
	Processes  []*Process
	InfoTable  []InfoRow
}

// Processor is a GPU/CPU device attached to a Node.
type Processor struct {
	ID          uint64
	Type        string
	TypeIndex   uint64
	ProductName string
}

// Process is an OS process observed within a Node.
type Process struct {
	ID                  uint64
	StartTimeNs         uint64
	EndTimeNs           uint64
	Command             string
	Environment         string
	InstrumentedThreads []*InstrumentedThread
	SampledThreads      []*SampledThread
	Queues              []*Queue
	Streams             []*Stream
	Counters            []*Counter
	InfoTable           []InfoRow
}

// InstrumentedThread is a thread whose HIP/API calls were captured (region
// track).
type InstrumentedThread struct {
	ID        uint64
	Name      string
	StartTime uint64
	EndTime   uint64
	TrackID   uint32
	HasTrack  bool
	InfoTable []InfoRow
}

// SampledThread is a thread observed only through periodic sampling.
type SampledThread struct {
	ID        uint64
	Name      string
	StartTime uint64
	EndTime   uint64
	TrackID   uint32
	HasTrack  bool
	InfoTable []InfoRow
}

// Queue is a GPU command queue.
type Queue struct {
	ID          uint64
	Name        string
	ProcessorID uint64
	TrackID     uint32
	HasTrack    bool
	InfoTable   []InfoRow
}

// Stream is a GPU execution stream.
type Stream struct {
	ID          uint64
	Name        string
	ProcessorID uint64
	QueueID     uint64 // the hardware queue this stream executes on
	HasQueue    bool
	TrackID     uint32
	HasTrack    bool
	InfoTable   []InfoRow
}

// Counter is a performance-monitor counter source (PMC track).
type Counter struct {
	ID          uint64
	Name        string
	Description string
	Units       string
	ValueType   ValueKind
	ProcessorID uint64
	TrackID     uint32
	HasTrack    bool
	InfoTable   []InfoRow
}

// InfoRow is one row of a topology leaf's cached "info table" of display
// values (§3 Topology).
type InfoRow struct {
	Label string
	Value string
}

// Rough per-instance byte costs used for inclusive memory-usage accounting;
// these approximate the handle's own fixed fields, not a field-by-field
// unsafe.Sizeof walk, since the topology tree holds Go values rather than
// the source's fixed-layout structs.
const (
	selfSizeNode      = 96
	selfSizeProcessor = 40
	selfSizeProcess   = 96
	selfSizeThread    = 48
	selfSizeQueue     = 40
	selfSizeStream    = 40
	selfSizeCounter   = 56
	selfSizeInfoRow   = 32
)

func infoTableBytes(rows []InfoRow) uint64 { return uint64(len(rows)) * selfSizeInfoRow }

// InclusiveMemoryUsage returns this node's own footprint plus the recursive
// sum of every descendant's inclusive size: inclusive = sizeof(self) +
// Σ child.inclusive, resolving the "inclusive memory usage" open question
// (§9) via straightforward recursive accumulation into a fresh variable
// rather than reusing an accumulator as both count and out-value.
func (n *Node) InclusiveMemoryUsage() uint64 {
	total := uint64(selfSizeNode) + infoTableBytes(n.InfoTable)
	for _, p := range n.Processors {
		total += p.InclusiveMemoryUsage()
	}
	for _, p := range n.Processes {
		total += p.InclusiveMemoryUsage()
	}
	return total
}

// InclusiveMemoryUsage for a Processor is its own footprint; it has no
// further topology children.
func (p *Processor) InclusiveMemoryUsage() uint64 { return selfSizeProcessor }

// InclusiveMemoryUsage sums a Process's own footprint plus every thread,
// queue, stream, and counter bound to it.
func (p *Process) InclusiveMemoryUsage() uint64 {
	total := uint64(selfSizeProcess) + infoTableBytes(p.InfoTable)
	for _, t := range p.InstrumentedThreads {
		total += t.InclusiveMemoryUsage()
	}
	for _, t := range p.SampledThreads {
		total += t.InclusiveMemoryUsage()
	}
	for _, q := range p.Queues {
		total += q.InclusiveMemoryUsage()
	}
	for _, s := range p.Streams {
		total += s.InclusiveMemoryUsage()
	}
	for _, c := range p.Counters {
		total += c.InclusiveMemoryUsage()
	}
	return total
}

// InclusiveMemoryUsage for leaf topology objects is their own footprint;
// none of them own further topology children.
func (t *InstrumentedThread) InclusiveMemoryUsage() uint64 {
	return selfSizeThread + infoTableBytes(t.InfoTable)
}
func (t *SampledThread) InclusiveMemoryUsage() uint64 {
	return selfSizeThread + infoTableBytes(t.InfoTable)
}
func (q *Queue) InclusiveMemoryUsage() uint64 { return selfSizeQueue + infoTableBytes(q.InfoTable) }
func (s *Stream) InclusiveMemoryUsage() uint64 { return selfSizeStream + infoTableBytes(s.InfoTable) }
func (c *Counter) InclusiveMemoryUsage() uint64 {
	return selfSizeCounter + infoTableBytes(c.InfoTable)
}

// InclusiveMemoryUsage sums every node's inclusive size across the whole
// topology.
func (t *Topology) InclusiveMemoryUsage() uint64 {
	var total uint64
	for _, n := range t.Nodes {
		total += n.InclusiveMemoryUsage()
	}
	return total
}
