package models

import "testing"

func TestAppendEventDedupesByID(t *testing.T) {
	d := NewRawEventTrackData(7, 0, 1000, 1, 1, 0, 4)
	if !d.AppendEvent(TraceEvent{ID: 1, StartNs: 10}) {
		t.Fatal("expected first append to succeed")
	}
	if d.AppendEvent(TraceEvent{ID: 1, StartNs: 10}) {
		t.Fatal("expected duplicate id to be rejected")
	}
	if len(d.Events) != 1 {
		t.Fatalf("expected exactly one event, got %d", len(d.Events))
	}
}

func TestAppendCounterDedupesByTimestamp(t *testing.T) {
	d := NewRawSampleTrackData(3, 0, 1000, 1, 1, 0, 4)
	if !d.AppendCounter(TraceCounter{StartNs: 100, Value: 1}) {
		t.Fatal("expected first append to succeed")
	}
	if d.AppendCounter(TraceCounter{StartNs: 100, Value: 2}) {
		t.Fatal("expected duplicate timestamp to be rejected")
	}
	if len(d.Counters) != 1 {
		t.Fatalf("expected exactly one counter, got %d", len(d.Counters))
	}
}

func TestAllDataReadyRequiresEveryChunk(t *testing.T) {
	d := NewRawEventTrackData(7, 0, 1000, 1, 3, 0, 0)
	if d.AllDataReady() {
		t.Fatal("expected not ready with zero chunks arrived")
	}
	d.AddChunk(0)
	d.AddChunk(1)
	if d.AllDataReady() {
		t.Fatal("expected not ready with 2 of 3 chunks arrived")
	}
	d.AddChunk(2)
	if !d.AllDataReady() {
		t.Fatal("expected ready once all 3 chunks arrived")
	}
}

func TestIsStaleResponseForOldestRequestTimeWins(t *testing.T) {
	d := NewRawEventTrackData(7, 0, 1000, 5, 1, 100, 0)

	if d.IsStaleResponseFor(5, 50) {
		t.Fatal("a response from the current group must never be stale")
	}
	if !d.IsStaleResponseFor(4, 50) {
		t.Fatal("a response from an older request time should be rejected as stale")
	}
	if d.IsStaleResponseFor(6, 150) {
		t.Fatal("a response from a newer request time should not be rejected")
	}
}
