package voxel

import "fmt"

// InvalidInputError reports a request that cannot be voxelized at all: an
// empty point set with no explicit bounds, degenerate explicit bounds, or
// a non-positive voxel size. It is always returned before any aggregation
// work starts.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

func invalidInputf(format string, args ...any) *InvalidInputError {
	return &InvalidInputError{Reason: fmt.Sprintf(format, args...)}
}

// OutOfRangeError reports a slice or projection index outside
// [0, dims-1] on the requested axis. Indices are never silently clamped:
// an invalid index means the caller's state is wrong and should surface.
type OutOfRangeError struct {
	Axis  Axis
	Index int
	Max   int // largest valid index on the axis
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("index %d out of range on axis %s (valid 0..%d)", e.Index, e.Axis, e.Max)
}
