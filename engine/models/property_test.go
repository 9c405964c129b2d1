package models

import "testing"

func TestEventIDPackRoundTrip(t *testing.T) {
	id := EventID{Value: 0xABCDEF, NodeIndex: 3, Operation: EventOperationDispatch}
	packed := id.PackedEventID()
	parsed := ParseEventID(packed)
	if parsed != id {
		t.Fatalf("round trip mismatch: got %+v, want %+v", parsed, id)
	}
}

func TestEventIDPackTruncatesValueTo52Bits(t *testing.T) {
	id := EventID{Value: ^uint64(0), NodeIndex: 0, Operation: EventOperationNoOp}
	parsed := ParseEventID(id.PackedEventID())
	if parsed.Value != (uint64(1)<<52)-1 {
		t.Fatalf("expected value truncated to 52 bits, got %#x", parsed.Value)
	}
}

func TestOperationTypeSetSetAndHas(t *testing.T) {
	var s OperationTypeSet
	s = s.Set(EventOperationLaunch)
	s = s.Set(EventOperationMemoryCopy)

	if !s.Has(EventOperationLaunch) || !s.Has(EventOperationMemoryCopy) {
		t.Fatal("expected both set operations to report present")
	}
	if s.Has(EventOperationDispatch) {
		t.Fatal("expected an operation never set to report absent")
	}
}
