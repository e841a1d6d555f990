//go:build !profile

package prof

import "io"

// Profiling errors (defined for API compatibility; never returned by
// the stubs).
var (
	// ErrCPUProfileActive indicates CPU profiling is already active.
	ErrCPUProfileActive error

	// ErrInvalidProfile indicates an unknown snapshot profile name.
	ErrInvalidProfile error
)

// Profile names a pprof snapshot profile.
type Profile string

// Snapshot profile names.
const (
	ProfileHeap      Profile = "heap"
	ProfileAllocs    Profile = "allocs"
	ProfileGoroutine Profile = "goroutine"
	ProfileBlock     Profile = "block"
	ProfileMutex     Profile = "mutex"
)

// StartCPU is a no-op when built without the "profile" tag.
func StartCPU(_ string) error { return nil }

// StopCPU is a no-op when built without the "profile" tag.
func StopCPU() {}

// Snapshot is a no-op when built without the "profile" tag.
func Snapshot(_ Profile, _ string) error { return nil }

// SnapshotTo is a no-op when built without the "profile" tag.
func SnapshotTo(_ Profile, _ io.Writer) error { return nil }
