package models

import "fmt"

// ErrOutOfRange is returned by Array.At when the requested index is >=
// NumEntries(), so an out-of-range array read never returns undefined data
// (§3, §8). Indexed property reads through a Controller report an unset
// index with a ResultCode instead.
var ErrOutOfRange = fmt.Errorf("rocprofvis: index out of range")

// Array is the in-process counterpart of an array handle: a homogeneous,
// variable-length sequence of Values produced by an async fetch.
type Array struct {
	handle  Handle
	entries []Value
}

// NewArray allocates an Array with the given initial capacity reserved.
func NewArray(handle Handle, capacity int) *Array {
	if capacity < 0 {
		capacity = 0
	}
	return &Array{handle: handle, entries: make([]Value, 0, capacity)}
}

// Handle returns the array's own handle.
func (a *Array) Handle() Handle { return a.handle }

// NumEntries returns the number of populated entries.
func (a *Array) NumEntries() uint32 { return uint32(len(a.entries)) }

// Append adds a value to the end of the array.
func (a *Array) Append(v Value) { a.entries = append(a.entries, v) }

// At returns the entry at idx, or ErrOutOfRange if idx >= NumEntries().
func (a *Array) At(idx uint32) (Value, error) {
	if idx >= uint32(len(a.entries)) {
		return Value{}, ErrOutOfRange
	}
	return a.entries[idx], nil
}

// Entries returns the array's backing slice; callers must not mutate it.
func (a *Array) Entries() []Value { return a.entries }
