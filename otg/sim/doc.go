// Package sim provides a behavioral model of a device-side USB OTG
// controller core for driver tests and examples.
//
// [Core] implements both the word-level register access primitive
// ([github.com/ardnew/otgusb/otg/regs.Access]) and the platform contract
// ([github.com/ardnew/otgusb/otg.Peripheral]), so a driver can be
// constructed directly over it:
//
//	core := sim.New()
//	drv := otg.New(core, make([]byte, 256))
//
// The model reproduces the hardware contract the driver depends on:
//
//   - The AHB-idle handshake is always ready and FIFO flushes complete
//     immediately, so the driver's busy-wait loops terminate
//   - Latched interrupt status bits are write-one-to-clear; the
//     receive-FIFO-non-empty and IN-endpoint bits are derived state
//   - The receive status queue peeks on GRXSTSR and pops on GRXSTSP,
//     and FIFO-window reads drain the popped packet's data words
//   - FIFO-window writes capture transmitted IN data per endpoint
//
// Tests drive the model with the Inject methods (bus reset, enumeration
// done, suspend, wakeup, OUT/SETUP packets, IN completion) and observe
// driver behavior through the captured IN data, the receive queue
// depth, the event trace of re-arms, copies, and flushes, and the
// ordered register write log (for sequencing assertions such as the
// bring-up order).
//
// Core is not safe for concurrent use; tests drive it and the driver
// from a single goroutine, mirroring the driver's own single-context
// polling requirement.
package sim
