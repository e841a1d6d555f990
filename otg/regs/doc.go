// Package regs provides typed access to the register map of a device-side
// USB OTG controller core.
//
// The package defines the register offsets, field masks, and status
// encodings of the OTG core's four register blocks:
//
//   - Global: core configuration, reset control, interrupt status and
//     masks, receive-status queue, FIFO sizing
//   - Device: device configuration, control, and per-endpoint interrupt
//     masks
//   - Per-endpoint IN/OUT: endpoint control, interrupt, and transfer
//     sizing registers, at a fixed stride per endpoint number
//   - Power and clock gating
//
// All access funnels through the [Access] interface, a word-granular
// read/write primitive. On real silicon this is memory-mapped I/O (see
// the tinygo build of [MMIO]); in tests it is a behavioral model of the
// core ([github.com/ardnew/otgusb/otg/sim]).
//
// [Block] wraps an [Access] with read/modify/write helpers. Callers are
// expected to hold whatever mutual exclusion the surrounding driver
// requires; the helpers themselves perform no locking.
package regs
