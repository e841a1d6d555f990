package otg

import (
	"github.com/ardnew/otgusb/otg/regs"
)

// EndpointCount is the number of hardware endpoints per direction.
const EndpointCount = 4

// Peripheral describes one OTG core instance and its platform
// integration. Platform ports implement this interface; the driver
// consumes it and never assumes a particular silicon vendor.
type Peripheral interface {
	// EnableClock enables the peripheral's clock domain. Called once at
	// the start of [Bus.Enable], before any register access.
	EnableClock()

	// Registers returns the word-level access primitive for the core's
	// register map.
	Registers() regs.Access

	// HighSpeed reports whether the core has a high-speed PHY. It
	// selects the turnaround time and PHY configuration during
	// bring-up; enumeration still negotiates the bus speed.
	HighSpeed() bool

	// FIFODepthWords is the total depth of the core's shared packet
	// FIFO memory, in 32-bit words.
	FIFODepthWords() uint16

	// TxFifoCount is the number of transmit FIFOs the core variant
	// provides. At least EndpointCount.
	TxFifoCount() int
}

// rearmStrategy selects when a hardware OUT endpoint is re-armed
// (clear-NAK, re-enable) relative to the software copy out of the
// receive FIFO. Revisions disagree on this; using the wrong sequencing
// corrupts received data. The strategy is fixed during [Bus.Enable] from
// the core identifier register so the poll path never re-reads it.
type rearmStrategy uint8

const (
	rearmNever        rearmStrategy = iota // Unrecognized core: hardware re-arms itself
	rearmAtCompletion                      // Re-arm on the OUT/SETUP-completed status entry
	rearmAfterCopy                         // Re-arm only after the software copy succeeds
)

// Core identifier values of the known revision families.
const (
	coreIDRev1a = 0x0000_1100
	coreIDRev1b = 0x0000_1200
	coreIDRev2a = 0x0000_2000
	coreIDRev2b = 0x0000_2100
)

// rearmForCoreID maps a core identifier to its re-arm strategy.
func rearmForCoreID(id uint32) rearmStrategy {
	switch id {
	case coreIDRev1a, coreIDRev1b:
		return rearmAtCompletion
	case coreIDRev2a, coreIDRev2b:
		return rearmAfterCopy
	default:
		return rearmNever
	}
}

// String returns a human-readable strategy name.
func (s rearmStrategy) String() string {
	switch s {
	case rearmAtCompletion:
		return "at-completion"
	case rearmAfterCopy:
		return "after-copy"
	default:
		return "never"
	}
}
