// Package prof provides opt-in profiling for driver development.
//
// The driver's poll path is called from tight loops (or, on hardware,
// interrupt context), so profiling support must cost nothing when it is
// not wanted. The package is gated on the "profile" build tag:
//
//	go test -tags profile ./otg/
//
// Without the tag every exported function is a no-op, so call sites can
// stay in place permanently.
//
// CPU profiles bracket a region explicitly:
//
//	prof.StartCPU("poll.prof")
//	defer prof.StopCPU()
//
// Snapshot profiles capture a point in time:
//
//	prof.Snapshot(prof.ProfileHeap, "heap.prof")
//
// With the tag set the package also serves the standard
// [net/http/pprof] endpoints on localhost:6060.
package prof
