//go:build profile

package prof

import (
	"errors"
	"io"
	"net/http"
	"os"
	"runtime/pprof"
	"sync"

	_ "net/http/pprof" // Register HTTP handlers at /debug/pprof/
)

func init() {
	go func() {
		println(http.ListenAndServe("localhost:6060", nil))
	}()
}

// Profiling errors.
var (
	// ErrCPUProfileActive indicates CPU profiling is already active.
	ErrCPUProfileActive = errors.New("cpu profile already active")

	// ErrInvalidProfile indicates an unknown snapshot profile name.
	ErrInvalidProfile = errors.New("invalid profile")
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

var (
	cpuMutex  sync.Mutex
	cpuFile   *os.File
	cpuActive bool
)

// StartCPU starts CPU profiling into the file at path. Returns
// [ErrCPUProfileActive] if a profile is already being collected.
func StartCPU(path string) error {
	cpuMutex.Lock()
	defer cpuMutex.Unlock()

	if cpuActive {
		return ErrCPUProfileActive
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return err
	}
	cpuFile = f
	cpuActive = true
	return nil
}

// StopCPU stops CPU profiling. Safe to call when profiling is not
// active.
func StopCPU() {
	cpuMutex.Lock()
	defer cpuMutex.Unlock()

	if !cpuActive {
		return
	}
	pprof.StopCPUProfile()
	cpuFile.Close()
	cpuFile = nil
	cpuActive = false
}

// Snapshot writes the named profile to the file at path.
func Snapshot(profile Profile, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return SnapshotTo(profile, f)
}

// SnapshotTo writes the named profile to w in binary protobuf format.
func SnapshotTo(profile Profile, w io.Writer) error {
	p := pprof.Lookup(string(profile))
	if p == nil {
		return ErrInvalidProfile
	}
	return p.WriteTo(w, 0)
}
