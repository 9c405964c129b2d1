package models

// ValueKind names the primitive wire type carried by a property, array
// entry, or argument value.
type ValueKind uint8

const (
	ValueKindUint64 ValueKind = iota
	ValueKindDouble
	ValueKindString
	ValueKindObject
)

// Value is a tagged union over the four primitive wire types the bridge
// exchanges. Exactly one field is meaningful, selected by Kind.
type Value struct {
	Kind   ValueKind
	UInt64 uint64
	Double float64
	String string
	Object Handle
}

// Uint64Value constructs a ValueKindUint64 Value.
func Uint64Value(v uint64) Value { return Value{Kind: ValueKindUint64, UInt64: v} }

// DoubleValue constructs a ValueKindDouble Value.
func DoubleValue(v float64) Value { return Value{Kind: ValueKindDouble, Double: v} }

// StringValue constructs a ValueKindString Value.
func StringValue(v string) Value { return Value{Kind: ValueKindString, String: v} }

// ObjectValue constructs a ValueKindObject Value.
func ObjectValue(v Handle) Value { return Value{Kind: ValueKindObject, Object: v} }
