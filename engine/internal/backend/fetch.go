package backend

import (
	"github.com/gputrace/tracevis/engine/models"
)

// generateEvents synthesizes TraceEvent records spaced evenly across
// [tf.min, tf.max], clipped to [tStart, tEnd].
func generateEvents(tf *trackFixture, tStart, tEnd uint64) []models.TraceEvent {
	if tf.max <= tf.min {
		return nil
	}
	step := (tf.max - tf.min) / standardEventCount
	if step == 0 {
		step = 1
	}
	var out []models.TraceEvent
	for ts := tf.min; ts < tf.max; ts += step {
		if ts < tStart || ts >= tEnd {
			continue
		}
		id := ts / step
		out = append(out, models.TraceEvent{
			ID:         id,
			StartNs:    ts,
			DurationNs: int64(step / 2),
			Level:      uint8(id % 3),
			Name:       "kernel_dispatch",
			ChildCount: 0,
		})
	}
	return out
}

// generateCounters synthesizes TraceCounter samples spaced evenly across
// [tf.min, tf.max], clipped to [tStart, tEnd].
func generateCounters(tf *trackFixture, tStart, tEnd uint64) []models.TraceCounter {
	if tf.max <= tf.min {
		return nil
	}
	step := (tf.max - tf.min) / standardSampleCount
	if step == 0 {
		step = 1
	}
	var out []models.TraceCounter
	i := 0
	for ts := tf.min; ts < tf.max; ts += step {
		if ts < tStart || ts >= tEnd {
			continue
		}
		out = append(out, models.TraceCounter{StartNs: ts, Value: float64(i % 100)})
		i++
	}
	return out
}

// fetchInto renders a track's points for [tStart, tEnd] into outArray as
// object handles, each carrying per-field properties readable through the
// ordinary Get* calls — the same shape a real record handle would expose.
func (b *Backend) fetchInto(track models.Handle, tStart, tEnd uint64, outArray models.Handle) models.ResultCode {
	tf, ok := b.trackFixtureByHandle(track)
	if !ok {
		return models.ResultInvalidParameter
	}
	arr, rc := b.ArrayGet(outArray)
	if rc != models.ResultSuccess {
		return rc
	}
	switch tf.kind {
	case models.TrackKindEvents:
		for _, ev := range generateEvents(tf, tStart, tEnd) {
			h := b.nextHandle()
			b.setValue(h, models.SlicePropEventIDIndexed, 0, models.Uint64Value(ev.ID))
			b.setValue(h, models.SlicePropTimestampIndexed, 0, models.Uint64Value(ev.StartNs))
			b.setValue(h, models.SlicePropEventDurationIndexed, 0, models.Uint64Value(uint64(ev.DurationNs)))
			b.setValue(h, models.SlicePropEventLevelIndexed, 0, models.Uint64Value(uint64(ev.Level)))
			b.setValue(h, models.SlicePropEventTypeStringIndexed, 0, models.StringValue(ev.Name))
			arr.Append(models.ObjectValue(h))
		}
	case models.TrackKindSamples:
		for _, c := range generateCounters(tf, tStart, tEnd) {
			h := b.nextHandle()
			b.setValue(h, models.SlicePropTimestampIndexed, 0, models.Uint64Value(c.StartNs))
			b.setValue(h, models.SlicePropPmcValueIndexed, 0, models.DoubleValue(c.Value))
			arr.Append(models.ObjectValue(h))
		}
	}
	return models.ResultSuccess
}

// TrackFetchAsync populates outArray with full-fidelity points for track in
// [tStart, tEnd] (§4.1, §4.2.3 FetchWholeTrack).
func (b *Backend) TrackFetchAsync(controller, track models.Handle, tStart, tEnd uint64, future, outArray models.Handle) models.ResultCode {
	b.submit(future, func() models.ResultCode {
		return b.fetchInto(track, tStart, tEnd, outArray)
	})
	return models.ResultSuccess
}

// GraphFetchAsync populates outArray with points for track in [tStart, tEnd]
// pre-binned to horzPixels buckets (§4.1, §4.2.3 FetchTrack). The reference
// backend does not down-sample further than the full-fidelity fetch; a real
// backend would coalesce multiple points per bucket server-side.
func (b *Backend) GraphFetchAsync(controller, graph models.Handle, tStart, tEnd uint64, horzPixels uint32, future, outArray models.Handle) models.ResultCode {
	b.submit(future, func() models.ResultCode {
		return b.fetchInto(graph, tStart, tEnd, outArray)
	})
	return models.ResultSuccess
}

// GetIndexedPropertyAsync answers the three per-event detail side channels
// (§4.2.5): extended data, flow-control, and call-stack. Which one is being
// asked for is inferred from prop.
func (b *Backend) GetIndexedPropertyAsync(host, target models.Handle, prop models.Property, index uint32, count uint32, future, outArray models.Handle) models.ResultCode {
	b.submit(future, func() models.ResultCode {
		arr, rc := b.ArrayGet(outArray)
		if rc != models.ResultSuccess {
			return rc
		}
		switch prop {
		case models.ExtDataPropNameIndexed:
			arr.Append(models.StringValue("grid_size"))
			arr.Append(models.StringValue("128,1,1"))
			arr.Append(models.StringValue("block_size"))
			arr.Append(models.StringValue("256,1,1"))
		case models.FlowTracePropEndpointIDIndexed:
			arr.Append(models.Uint64Value(uint64(host) + 1))
		case models.StackTracePropFrameSymbolIndexed:
			arr.Append(models.StringValue("main"))
			arr.Append(models.StringValue("launch_kernel"))
		default:
			return models.ResultInvalidProperty
		}
		return models.ResultSuccess
	})
	return models.ResultSuccess
}

// SaveTrimmedTrace materialises a new trace limited to [tStart, tEnd]. The
// reference backend never writes a real file; it only simulates the async
// round trip so the provider's trim-save flow (§4.2.6) can be exercised.
func (b *Backend) SaveTrimmedTrace(controller models.Handle, tStart, tEnd uint64, path string, future models.Handle) models.ResultCode {
	b.submit(future, func() models.ResultCode {
		if tEnd <= tStart {
			return models.ResultInvalidParameter
		}
		return models.ResultSuccess
	})
	return models.ResultSuccess
}
