// Package otg implements the device-side driver for a USB On-The-Go
// controller core, exposed through the [github.com/ardnew/otgusb/bus]
// framework contract.
//
// The driver owns four concerns:
//
//   - [Bus.AllocEndpoint]: endpoint number/direction assignment against
//     the hardware endpoint count, with packet memory planning
//   - [Bus.Enable]: the one-shot peripheral bring-up sequence through
//     the global, device, and power-clock register blocks
//   - [Bus.Reset] / FIFO layout: partitioning the core's shared FIFO
//     memory into one receive FIFO and per-endpoint transmit FIFOs, and
//     activating hardware endpoints
//   - [Bus.Poll]: translating raw interrupt and receive-FIFO status into
//     protocol events while coordinating per-endpoint receive buffers
//
// # Concurrency
//
// One mutex per [Bus] serializes every register access and buffer-state
// mutation. Poll, Write, and Read must
// additionally be confined to a single execution context (an interrupt
// handler or one polling goroutine); the driver provides no internal
// queuing.
//
// # Backpressure
//
// Each OUT endpoint owns a single-packet software buffer. While the
// buffer holds an undrained packet, Poll withholds the hardware re-arm
// and leaves the receive status entry unpopped, so the core delivers no
// further packets to that endpoint until the framework drains the buffer
// with [Bus.Read].
//
// # Silicon revisions
//
// Controller revisions differ in when an OUT endpoint must be re-armed
// relative to the software copy out of the receive FIFO. The core
// identifier register is read once during [Bus.Enable] and folded into a
// re-arm strategy, keeping the poll path free of revision checks.
//
// # Zero-Allocation Design
//
// Endpoint slots are fixed arrays, receive buffers are carved from one
// caller-supplied pool at allocation time, and the poll path performs no
// heap allocation.
package otg
