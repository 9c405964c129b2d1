package models

import "testing"

func TestMakeSingletonRequestIDIsStablePerType(t *testing.T) {
	a := MakeSingletonRequestID(RequestTypeEventTable)
	b := MakeSingletonRequestID(RequestTypeEventTable)
	if a != b {
		t.Fatalf("expected stable id for repeated calls, got %d and %d", a, b)
	}
	other := MakeSingletonRequestID(RequestTypeSampleTable)
	if a == other {
		t.Fatalf("expected distinct ids for distinct request types")
	}
}

func TestMakeChunkRequestIDDistinguishesChunksAndTracks(t *testing.T) {
	ids := map[RequestID]bool{}
	add := func(trackID uint32, chunk int, group uint64) {
		id := MakeChunkRequestID(trackID, chunk, group, RequestTypeTrackFetch)
		if ids[id] {
			t.Fatalf("collision for track=%d chunk=%d group=%d", trackID, chunk, group)
		}
		ids[id] = true
	}
	add(7, 0, 1)
	add(7, 1, 1)
	add(7, 0, 2)
	add(3, 0, 1)
}

func TestMakeChunkRequestIDRejectsExactDuplicate(t *testing.T) {
	a := MakeChunkRequestID(7, 2, 5, RequestTypeGraphFetch)
	b := MakeChunkRequestID(7, 2, 5, RequestTypeGraphFetch)
	if a != b {
		t.Fatalf("expected identical (track, chunk, group, type) to produce the same id")
	}
}
