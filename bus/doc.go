// Package bus defines the contract between a USB device framework and a
// device-side controller driver.
//
// A controller driver (such as [github.com/ardnew/otgusb/otg]) implements
// the [Driver] interface. The generic USB device framework above it, the
// layer that owns the standard request state machine, descriptors, and
// class logic, consumes the driver exclusively through this contract:
//
//   - Endpoint allocation during framework setup ([Driver.AllocEndpoint])
//   - One-shot peripheral bring-up ([Driver.Enable])
//   - Event polling from an interrupt handler or polling task
//     ([Driver.Poll]), reacting to the returned [PollResult]
//   - Packet transfer and stall control in response to events
//
// # Addresses
//
// An [EndpointAddress] packs a hardware endpoint number (the low nibble)
// with the USB direction bit (0x80 = IN, device to host). Address 0x81 is
// endpoint 1 IN; address 0x02 is endpoint 2 OUT.
//
// # Polling
//
// [Driver.Poll] translates raw controller status into one of five
// outcomes: a bus reset, a resume or suspend power transition, a data
// event carrying per-endpoint completion masks, or nothing. Poll is a
// complete micro-transaction; the framework calls it repeatedly and never
// concurrently with itself.
//
// # Capabilities
//
// [Capabilities] surfaces documented hardware quirks the framework must
// honor, such as applying a SET_ADDRESS before acknowledging its status
// stage.
package bus
