package bus

import "fmt"

// Direction is the USB transfer direction of an endpoint.
type Direction uint8

// USB transfer directions.
const (
	DirectionOut Direction = 0x00 // Host to device
	DirectionIn  Direction = 0x80 // Device to host
)

// String returns a human-readable direction name.
func (d Direction) String() string {
	if d == DirectionIn {
		return "IN"
	}
	return "OUT"
}

// EndpointType is the USB transfer type of an endpoint
// (USB 2.0 Specification Table 9-13).
type EndpointType uint8

// USB endpoint transfer types.
const (
	EndpointTypeControl     EndpointType = 0x00 // Control transfer
	EndpointTypeIsochronous EndpointType = 0x01 // Isochronous transfer
	EndpointTypeBulk        EndpointType = 0x02 // Bulk transfer
	EndpointTypeInterrupt   EndpointType = 0x03 // Interrupt transfer
)

// String returns a human-readable transfer type name.
func (t EndpointType) String() string {
	switch t {
	case EndpointTypeControl:
		return "Control"
	case EndpointTypeIsochronous:
		return "Isochronous"
	case EndpointTypeBulk:
		return "Bulk"
	case EndpointTypeInterrupt:
		return "Interrupt"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// EndpointAddress is a direction-tagged endpoint number. The low nibble
// holds the endpoint number; bit 7 holds the direction (0x80 = IN).
type EndpointAddress uint8

// NewEndpointAddress packs an endpoint number and direction into an address.
func NewEndpointAddress(number uint8, dir Direction) EndpointAddress {
	return EndpointAddress(number&0x0F | uint8(dir))
}

// Index returns the endpoint number (0-15).
func (a EndpointAddress) Index() uint8 {
	return uint8(a) & 0x0F
}

// Direction returns the endpoint direction.
func (a EndpointAddress) Direction() Direction {
	return Direction(uint8(a) & 0x80)
}

// IsIn returns true for an IN endpoint (device to host).
func (a EndpointAddress) IsIn() bool {
	return a.Direction() == DirectionIn
}

// IsOut returns true for an OUT endpoint (host to device).
func (a EndpointAddress) IsOut() bool {
	return a.Direction() == DirectionOut
}

// String returns the address in the conventional "EPn DIR" form.
func (a EndpointAddress) String() string {
	return fmt.Sprintf("EP%d %s", a.Index(), a.Direction())
}

// AutoNumber requests allocation of any free endpoint number.
const AutoNumber = -1

// EndpointConfig is a transient endpoint allocation request, produced by
// the framework and consumed once by [Driver.AllocEndpoint].
type EndpointConfig struct {
	// Number is the requested endpoint number, or AutoNumber to let the
	// driver pick the first free number (never 0, which is reserved for
	// control transfers and handed out only by explicit request).
	Number int

	// Type is the endpoint transfer type.
	Type EndpointType

	// MaxPacketSize is the maximum packet size in bytes.
	MaxPacketSize uint16

	// Interval is the polling interval for interrupt and isochronous
	// endpoints, in frames.
	Interval uint8

	// PairOf optionally hints that this endpoint pairs with an already
	// allocated endpoint number in the opposite direction. AutoNumber
	// when unused.
	PairOf int
}

// Event classifies the outcome of one [Driver.Poll] call.
type Event uint8

// Poll outcomes, in decreasing priority.
const (
	EventNone    Event = iota // Nothing pending
	EventReset                // Bus reset (or enumeration complete)
	EventResume               // Remote wakeup / resume signalling
	EventSuspend              // Bus suspend
	EventData                 // Endpoint data activity
)

// String returns a human-readable event name.
func (e Event) String() string {
	switch e {
	case EventNone:
		return "none"
	case EventReset:
		return "reset"
	case EventResume:
		return "resume"
	case EventSuspend:
		return "suspend"
	case EventData:
		return "data"
	default:
		return "unknown"
	}
}

// PollResult is the translated outcome of one poll of the controller.
// The three masks are meaningful only when Event is [EventData]; bit n of
// a mask refers to endpoint number n.
type PollResult struct {
	Event Event

	// EpOut flags OUT endpoints holding a received data packet.
	EpOut uint16

	// EpInComplete flags IN endpoints whose transmit completed.
	EpInComplete uint16

	// EpSetup flags OUT endpoints holding a received SETUP packet.
	EpSetup uint16
}

// Capabilities declares controller quirks the framework must honor.
type Capabilities struct {
	// SetAddressBeforeStatus is true when the controller requires the
	// device address to be programmed before the SET_ADDRESS status
	// stage is acknowledged, rather than after.
	SetAddressBeforeStatus bool
}

// Driver is the extension-point contract a device-side controller driver
// provides to the USB device framework.
//
// AllocEndpoint is called only during framework setup, Enable exactly
// once afterwards. Poll, Write, Read, and the stall operations may then
// be called freely, but only from a single execution context; the driver
// provides no reentrancy protection beyond its own critical section.
type Driver interface {
	// AllocEndpoint assigns an endpoint number in the given direction
	// and reserves packet memory for it. It returns
	// [github.com/ardnew/otgusb/pkg.ErrInvalidEndpoint] for an occupied
	// or out-of-range explicit number and
	// [github.com/ardnew/otgusb/pkg.ErrEndpointOverflow] when no free
	// number remains.
	AllocEndpoint(dir Direction, cfg EndpointConfig) (EndpointAddress, error)

	// Enable performs the one-shot peripheral bring-up sequence and
	// connects to the bus. Calling it more than once per session is
	// undefined.
	Enable()

	// Reset reconfigures all allocated endpoints after a bus reset and
	// clears the device address. Endpoint allocation survives.
	Reset()

	// SetDeviceAddress programs the 7-bit device address.
	SetDeviceAddress(addr uint8)

	// Write transmits a packet on an IN endpoint, returning the byte
	// count accepted.
	Write(addr EndpointAddress, data []byte) (int, error)

	// Read drains a received packet from an OUT endpoint's buffer into
	// buf, returning the byte count copied.
	Read(addr EndpointAddress, buf []byte) (int, error)

	// SetStalled sets or clears the stall condition on an endpoint.
	// Addresses beyond the hardware endpoint count are ignored.
	SetStalled(addr EndpointAddress, stalled bool)

	// IsStalled reports the stall condition of an endpoint. Addresses
	// beyond the hardware endpoint count report stalled.
	IsStalled(addr EndpointAddress) bool

	// Poll translates pending controller status into a protocol event.
	Poll() PollResult

	// Capabilities reports controller quirks.
	Capabilities() Capabilities
}
