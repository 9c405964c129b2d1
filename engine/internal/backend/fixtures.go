package backend

import (
	"strings"

	"github.com/gputrace/tracevis/engine/models"
)

// trackFixture is the synthetic dataset backing one track handle.
type trackFixture struct {
	id   uint32
	kind models.TrackKind
	min  uint64
	max  uint64
}

// loadScenario classifies a load path into one of the fixture scenarios
// the provider's end-to-end tests drive (§8 scenarios 1-2): an empty
// trace, a load failure, the standard populated trace (track id 7, a
// kernel-dispatch event track spanning [0, 90s], matching the spec's
// chunked-fetch walkthrough exactly, plus a one-node topology), and a
// topology-free trace with a single track that resolves no owner.
type loadScenario uint8

const (
	scenarioStandard loadScenario = iota
	scenarioEmpty
	scenarioFailure
	scenarioUnownedTrack
)

func classifyPath(path string) loadScenario {
	switch {
	case strings.Contains(path, "empty"):
		return scenarioEmpty
	case strings.Contains(path, "missing"), strings.Contains(path, "fail"):
		return scenarioFailure
	case strings.Contains(path, "unowned"):
		return scenarioUnownedTrack
	default:
		return scenarioStandard
	}
}

// LoadAsync begins loading a trace. The controller handle doubles as the
// trace/timeline handle for this reference backend: a real backend would
// hand those out as distinct objects, but nothing in the bridge contract
// requires they differ, and collapsing them keeps the fixture small.
func (b *Backend) LoadAsync(controller models.Handle, path string, future models.Handle) models.ResultCode {
	b.submit(future, func() models.ResultCode {
		switch classifyPath(path) {
		case scenarioFailure:
			return models.ResultDbAccessFailed
		case scenarioEmpty:
			b.simulateProgress(controller)
			b.setValue(controller, models.TracePropStartTime, 0, models.Uint64Value(0))
			b.setValue(controller, models.TracePropEndTime, 0, models.Uint64Value(0))
			b.setValue(controller, models.TracePropNumberOfTracks, 0, models.Uint64Value(0))
			b.setValue(controller, models.TracePropNumberOfTables, 0, models.Uint64Value(0))
			return models.ResultSuccess
		case scenarioUnownedTrack:
			b.populateUnownedTrackTrace(controller)
			return models.ResultSuccess
		default:
			b.simulateProgress(controller)
			b.populateStandardTrace(controller)
			return models.ResultSuccess
		}
	})
	return models.ResultSuccess
}

const (
	standardTraceEndNs  = 90_000_000_000 // 90s, matches the chunked-fetch scenario
	kernelTrackID       = 7
	counterTrackID      = 3
	standardEventCount  = 900
	standardSampleCount = 900
)

func (b *Backend) populateStandardTrace(controller models.Handle) {
	b.setValue(controller, models.TracePropStartTime, 0, models.Uint64Value(0))
	b.setValue(controller, models.TracePropEndTime, 0, models.Uint64Value(standardTraceEndNs))
	b.setValue(controller, models.TracePropNumberOfTracks, 0, models.Uint64Value(2))
	b.setValue(controller, models.TracePropNumberOfTables, 0, models.Uint64Value(1))

	kernelTrack := b.nextHandle()
	b.setValue(controller, models.TracePropTrackHandleIndexed, 0, models.ObjectValue(kernelTrack))
	b.setValue(kernelTrack, models.TrackPropID, 0, models.Uint64Value(kernelTrackID))
	b.setValue(kernelTrack, models.TrackPropCategoryEnum, 0, models.Uint64Value(uint64(models.TrackCategoryKernelDispatch)))
	b.setValue(kernelTrack, models.TrackPropMinimumTimestamp, 0, models.Uint64Value(0))
	b.setValue(kernelTrack, models.TrackPropMaximumTimestamp, 0, models.Uint64Value(standardTraceEndNs))
	b.setValue(kernelTrack, models.TrackPropNumRecords, 0, models.Uint64Value(standardEventCount))
	b.mu.Lock()
	b.trackIndex[kernelTrack] = &trackFixture{id: kernelTrackID, kind: models.TrackKindEvents, min: 0, max: standardTraceEndNs}
	b.mu.Unlock()

	pmcTrack := b.nextHandle()
	b.setValue(controller, models.TracePropTrackHandleIndexed, 1, models.ObjectValue(pmcTrack))
	b.setValue(pmcTrack, models.TrackPropID, 0, models.Uint64Value(counterTrackID))
	b.setValue(pmcTrack, models.TrackPropCategoryEnum, 0, models.Uint64Value(uint64(models.TrackCategoryPMC)))
	b.setValue(pmcTrack, models.TrackPropMinimumTimestamp, 0, models.Uint64Value(0))
	b.setValue(pmcTrack, models.TrackPropMaximumTimestamp, 0, models.Uint64Value(standardTraceEndNs))
	b.setValue(pmcTrack, models.TrackPropNumRecords, 0, models.Uint64Value(standardSampleCount))
	b.mu.Lock()
	b.trackIndex[pmcTrack] = &trackFixture{id: counterTrackID, kind: models.TrackKindSamples, min: 0, max: standardTraceEndNs}
	b.mu.Unlock()

	b.populateTopology(controller)
	// kernelTrack is owned by the queue the topology walk bound to it;
	// pmcTrack is left without an owner property so the reverse lookup
	// falls through to TrackOwnerUnknown, exercising the logged case
	// (§4.2.1) even though the topology side already recorded it as the
	// counter's forward binding.
	b.setValue(kernelTrack, models.TrackPropOwnerQueueID, 0, models.Uint64Value(topologyQueueID))
}

// populateUnownedTrackTrace is a minimal, topology-free trace with a single
// track that answers none of the owner-lookup properties, purely to
// exercise the "no owner resolves" logged path (§4.2.1) in isolation.
func (b *Backend) populateUnownedTrackTrace(controller models.Handle) {
	b.setValue(controller, models.TracePropStartTime, 0, models.Uint64Value(0))
	b.setValue(controller, models.TracePropEndTime, 0, models.Uint64Value(standardTraceEndNs))
	b.setValue(controller, models.TracePropNumberOfTracks, 0, models.Uint64Value(1))
	b.setValue(controller, models.TracePropNumberOfTables, 0, models.Uint64Value(0))

	track := b.nextHandle()
	b.setValue(controller, models.TracePropTrackHandleIndexed, 0, models.ObjectValue(track))
	b.setValue(track, models.TrackPropID, 0, models.Uint64Value(99))
	b.setValue(track, models.TrackPropCategoryEnum, 0, models.Uint64Value(uint64(models.TrackCategoryRegion)))
	b.setValue(track, models.TrackPropMinimumTimestamp, 0, models.Uint64Value(0))
	b.setValue(track, models.TrackPropMaximumTimestamp, 0, models.Uint64Value(standardTraceEndNs))
	b.setValue(track, models.TrackPropNumRecords, 0, models.Uint64Value(0))
	b.mu.Lock()
	b.trackIndex[track] = &trackFixture{id: 99, kind: models.TrackKindEvents, min: 0, max: standardTraceEndNs}
	b.mu.Unlock()
}

// trackFixtureByHandle resolves a track handle to its fixture with a lookup
// in trackIndex, reporting false for a handle that is not a fixture track.
func (b *Backend) trackFixtureByHandle(track models.Handle) (*trackFixture, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	tf, ok := b.trackIndex[track]
	return tf, ok
}
