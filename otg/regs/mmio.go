//go:build tinygo

package regs

import (
	"runtime/volatile"
	"unsafe"
)

// MMIO implements [Access] over a memory-mapped OTG register block at a
// fixed base address. All accesses are volatile word loads and stores.
type MMIO struct {
	base uintptr
}

// NewMMIO returns an MMIO access primitive for a core mapped at base.
func NewMMIO(base uintptr) MMIO {
	return MMIO{base: base}
}

// Read performs a volatile word load at base+offset.
func (m MMIO) Read(offset uint32) uint32 {
	return volatile.LoadUint32((*uint32)(unsafe.Pointer(m.base + uintptr(offset))))
}

// Write performs a volatile word store at base+offset.
func (m MMIO) Write(offset uint32, value uint32) {
	volatile.StoreUint32((*uint32)(unsafe.Pointer(m.base+uintptr(offset))), value)
}

var _ Access = MMIO{}
