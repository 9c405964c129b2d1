// Package resources implements the provider's memory-budget cache: an
// LRU-bounded in-memory store for merged track data, table windows, and
// event detail, with disk spillover for evicted track data and an
// async-flushed checkpoint log recording which keys were stored. Nothing
// reads the checkpoint log back.
package resources

import (
	"container/list"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gputrace/tracevis/engine/models"
)

// Config tunes the cache's capacity, the in-flight fetch limiter, and the
// spill/checkpoint locations on disk.
type Config struct {
	// CacheCapacity bounds the number of entries kept in memory across all
	// kinds (tracks, tables, event details) before the LRU tail spills.
	CacheCapacity int
	// MaxInFlight bounds concurrently in-flight fetches the caller may
	// Acquire a slot for; zero disables the limiter.
	MaxInFlight int
	// SpillDirectory holds evicted track snapshots as JSON files. Empty
	// disables spilling; evicted entries are simply dropped.
	SpillDirectory string
	// CheckpointPath is an append-only log of cache activity. NewManager
	// does not read it.
	CheckpointPath string
	// CheckpointInterval is how often queued checkpoint lines are flushed.
	CheckpointInterval time.Duration
}

type entryKind uint8

const (
	kindTrack entryKind = iota
	kindTable
	kindEvent
)

func (k entryKind) prefix() string {
	switch k {
	case kindTrack:
		return "track"
	case kindTable:
		return "table"
	default:
		return "event"
	}
}

type cacheEntry struct {
	key   string
	kind  entryKind
	track *models.RawTrackData
	table *models.TableInfo
	event *models.EventDetail
}

// Stats is a point-in-time snapshot of the manager's bookkeeping, useful for
// diagnostics overlays and tests.
type Stats struct {
	CacheEntries     int
	SpillFiles       int
	InFlight         int
	CheckpointQueued int
	MemoryUsageBytes int64
}

// Manager is the provider's cache for completed fetch results. It is safe
// for concurrent use, but in the provider's single-threaded driver model
// (§5) it is normally touched only from the driver goroutine except for its
// async checkpoint flush, which runs on its own goroutine.
type Manager struct {
	cfg Config

	mu    sync.Mutex
	lru   *list.List
	cache map[string]*list.Element
	spill map[string]string // key -> spill file path; track entries only

	slots chan struct{}

	checkpointCh chan string
	stopCh       chan struct{}
	wg           sync.WaitGroup
	closeOnce    sync.Once
}

// NewManager creates a Manager and, if CheckpointInterval is positive,
// starts its background flush loop.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		cfg:          cfg,
		lru:          list.New(),
		cache:        make(map[string]*list.Element),
		spill:        make(map[string]string),
		checkpointCh: make(chan string, 256),
		stopCh:       make(chan struct{}),
	}
	if cfg.MaxInFlight > 0 {
		m.slots = make(chan struct{}, cfg.MaxInFlight)
	}
	if cfg.CheckpointPath != "" && cfg.CheckpointInterval > 0 {
		m.wg.Add(1)
		go m.checkpointLoop()
	}
	return m
}

// Close stops the checkpoint flush loop and waits for it to drain.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
	})
}

// Acquire blocks until an in-flight slot is available, or returns
// immediately if no limit was configured. Release must be called exactly
// once per successful Acquire.
func (m *Manager) Acquire() {
	if m.slots == nil {
		return
	}
	m.slots <- struct{}{}
}

// Release returns an in-flight slot acquired via Acquire.
func (m *Manager) Release() {
	if m.slots == nil {
		return
	}
	<-m.slots
}

func trackKey(trackID uint32) string { return fmt.Sprintf("track:%d", trackID) }
func tableKey(t models.TableType) string { return fmt.Sprintf("table:%d", t) }
func eventKey(eventID uint64) string { return fmt.Sprintf("event:%d", eventID) }

// StoreTrack caches a fully-merged track entry. Callers must only store
// entries where AllDataReady() is true; the manager's disk spillover
// depends on that invariant to reconstruct entries via RehydrateRawTrackData.
func (m *Manager) StoreTrack(data *models.RawTrackData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := trackKey(data.TrackID)
	delete(m.spill, key)
	m.put(&cacheEntry{key: key, kind: kindTrack, track: data})
	m.enqueueCheckpoint(fmt.Sprintf("store %s", key))
}

// GetTrack returns a cached track entry, transparently rehydrating it from
// disk spillover if it was evicted from memory.
func (m *Manager) GetTrack(trackID uint32) (*models.RawTrackData, bool) {
	key := trackKey(trackID)
	m.mu.Lock()
	if el, ok := m.cache[key]; ok {
		m.lru.MoveToFront(el)
		entry := el.Value.(*cacheEntry)
		m.mu.Unlock()
		return entry.track, true
	}
	spillPath, spilled := m.spill[key]
	m.mu.Unlock()
	if !spilled {
		return nil, false
	}

	raw, err := os.ReadFile(spillPath)
	if err != nil {
		return nil, false
	}
	var snap models.RawTrackSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, false
	}
	data := models.RehydrateRawTrackData(snap)

	m.mu.Lock()
	delete(m.spill, key)
	m.put(&cacheEntry{key: key, kind: kindTrack, track: data})
	m.mu.Unlock()
	return data, true
}

// StoreTable caches the current window for a table type.
func (m *Manager) StoreTable(info *models.TableInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := tableKey(info.Type)
	m.put(&cacheEntry{key: key, kind: kindTable, table: info})
	m.enqueueCheckpoint(fmt.Sprintf("store %s", key))
}

// GetTable returns a cached table window, if still resident; table
// snapshots are never spilled since their RequestParams make them cheap to
// re-fetch compared to re-materializing an export-sized result set.
func (m *Manager) GetTable(t models.TableType) (*models.TableInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.cache[tableKey(t)]
	if !ok {
		return nil, false
	}
	m.lru.MoveToFront(el)
	return el.Value.(*cacheEntry).table, true
}

// StoreEventDetail caches a resolved (or partially resolved) event detail.
func (m *Manager) StoreEventDetail(detail *models.EventDetail) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := eventKey(detail.EventID)
	m.put(&cacheEntry{key: key, kind: kindEvent, event: detail})
	if detail.IsComplete() {
		m.enqueueCheckpoint(fmt.Sprintf("store %s", key))
	}
}

// GetEventDetail returns a cached event detail entry.
func (m *Manager) GetEventDetail(eventID uint64) (*models.EventDetail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.cache[eventKey(eventID)]
	if !ok {
		return nil, false
	}
	m.lru.MoveToFront(el)
	return el.Value.(*cacheEntry).event, true
}

// put inserts or refreshes a cache entry and evicts the LRU tail while over
// capacity. Callers must hold m.mu.
func (m *Manager) put(entry *cacheEntry) {
	if el, ok := m.cache[entry.key]; ok {
		el.Value = entry
		m.lru.MoveToFront(el)
		return
	}
	el := m.lru.PushFront(entry)
	m.cache[entry.key] = el

	if m.cfg.CacheCapacity <= 0 {
		return
	}
	for len(m.cache) > m.cfg.CacheCapacity {
		m.evictOldest()
	}
}

// evictOldest drops the LRU tail, spilling completed track entries to disk
// when a spill directory is configured. Callers must hold m.mu.
func (m *Manager) evictOldest() {
	tail := m.lru.Back()
	if tail == nil {
		return
	}
	entry := tail.Value.(*cacheEntry)
	m.lru.Remove(tail)
	delete(m.cache, entry.key)

	if entry.kind != kindTrack || m.cfg.SpillDirectory == "" || !entry.track.AllDataReady() {
		return
	}
	path := filepath.Join(m.cfg.SpillDirectory, fmt.Sprintf("%s-%s.spill.json", entry.key, hashKey(entry.key)))
	raw, err := json.Marshal(entry.track.Snapshot())
	if err != nil {
		return
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return
	}
	m.spill[entry.key] = path
}

func hashKey(key string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return fmt.Sprintf("%x", h.Sum64())
}

// MemoryUsageBytes recomputes the in-memory footprint of every resident
// entry from scratch. This is a deliberate running total recomputed on
// demand rather than incremental bookkeeping: incremental counters drift
// whenever a slice is mutated in place (e.g. appending to Events after the
// entry is already cached), and recomputation is cheap relative to a fetch.
func (m *Manager) MemoryUsageBytes() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for el := m.lru.Front(); el != nil; el = el.Next() {
		total += approxBytes(el.Value.(*cacheEntry))
	}
	return total
}

const (
	approxTraceEventBytes   = 64
	approxTraceCounterBytes = 16
	approxTableCellBytes    = 24
	approxStringRowBytes    = 48
)

func approxBytes(e *cacheEntry) int64 {
	switch e.kind {
	case kindTrack:
		return int64(len(e.track.Events))*approxTraceEventBytes + int64(len(e.track.Counters))*approxTraceCounterBytes
	case kindTable:
		var total int64
		for _, row := range e.table.Rows {
			total += approxStringRowBytes
			for _, cell := range row.Cells {
				total += int64(len(cell)) + approxTableCellBytes
			}
		}
		return total
	default:
		if e.event == nil {
			return 0
		}
		total := int64(len(e.event.ExtInfo)) * approxTableCellBytes
		total += int64(len(e.event.FlowInfo)) * approxTraceCounterBytes
		total += int64(len(e.event.CallStack)) * approxTableCellBytes
		return total
	}
}

// Checkpoint enqueues a free-form note to the checkpoint log without
// blocking the caller; a full queue silently drops the note, matching the
// log's best-effort nature.
func (m *Manager) Checkpoint(note string) {
	select {
	case m.checkpointCh <- note:
	default:
	}
}

func (m *Manager) enqueueCheckpoint(note string) {
	select {
	case m.checkpointCh <- note:
	default:
	}
}

// checkpointLoop batches queued notes and appends them to CheckpointPath on
// a ticker, so a crash loses at most one interval's worth of bookkeeping.
func (m *Manager) checkpointLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.CheckpointInterval)
	defer ticker.Stop()

	var pending []string
	flush := func() {
		if len(pending) == 0 {
			return
		}
		f, err := os.OpenFile(m.cfg.CheckpointPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			pending = pending[:0]
			return
		}
		for _, line := range pending {
			fmt.Fprintln(f, line)
		}
		f.Close()
		pending = pending[:0]
	}

	for {
		select {
		case note := <-m.checkpointCh:
			pending = append(pending, note)
		case <-ticker.C:
			flush()
		case <-m.stopCh:
			for {
				select {
				case note := <-m.checkpointCh:
					pending = append(pending, note)
					continue
				default:
				}
				break
			}
			flush()
			return
		}
	}
}

// Reset drops every cached entry and forgets spilled file paths, without
// deleting the underlying spill files, so a fresh trace load doesn't
// accidentally rehydrate a different trace's track data under a colliding
// track id.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru = list.New()
	m.cache = make(map[string]*list.Element)
	m.spill = make(map[string]string)
}

// Stats returns a snapshot of the manager's current bookkeeping.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	inFlight := 0
	if m.slots != nil {
		inFlight = len(m.slots)
	}
	var total int64
	for el := m.lru.Front(); el != nil; el = el.Next() {
		total += approxBytes(el.Value.(*cacheEntry))
	}
	return Stats{
		CacheEntries:     len(m.cache),
		SpillFiles:       len(m.spill),
		InFlight:         inFlight,
		CheckpointQueued: len(m.checkpointCh),
		MemoryUsageBytes: total,
	}
}
