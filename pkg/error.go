package pkg

import "errors"

// Driver errors.
var (
	// ErrInvalidEndpoint indicates a bad endpoint address: direction
	// mismatch, index out of range, an unallocated slot, or an explicit
	// request for an endpoint number the hardware does not have.
	ErrInvalidEndpoint = errors.New("invalid endpoint")

	// ErrEndpointOverflow indicates no free endpoint number remains in
	// the requested direction.
	ErrEndpointOverflow = errors.New("endpoint overflow")

	// ErrNoMemory indicates the endpoint memory pool is exhausted.
	ErrNoMemory = errors.New("insufficient endpoint memory")

	// ErrBufferTooSmall indicates the provided buffer is too small for
	// the received packet.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrBusy indicates the endpoint still holds an in-flight packet.
	ErrBusy = errors.New("endpoint busy")

	// ErrWouldBlock indicates no data is available to read.
	ErrWouldBlock = errors.New("operation would block")

	// ErrNotConfigured indicates the endpoint or peripheral has not
	// been configured for the operation.
	ErrNotConfigured = errors.New("not configured")

	// ErrStall indicates an endpoint stall condition.
	ErrStall = errors.New("endpoint stalled")

	// ErrOverrun indicates a received packet exceeded the endpoint's
	// receive buffer capacity.
	ErrOverrun = errors.New("data overrun")

	// ErrProtocol indicates an unexpected hardware status code.
	ErrProtocol = errors.New("protocol error")

	// ErrUnsupported indicates an unsupported operation or feature.
	ErrUnsupported = errors.New("not supported")
)

// BufferState describes the software receive buffer of an OUT endpoint.
type BufferState int

// Receive buffer states. A buffer leaves Empty when the controller
// delivers a completed OUT or SETUP packet, and returns to Empty when
// the framework layer drains it.
const (
	BufferEmpty     BufferState = iota // No packet pending
	BufferDataOut                      // Holds an OUT data packet
	BufferDataSetup                    // Holds a SETUP packet
)

// String returns a string representation of the buffer state.
func (s BufferState) String() string {
	switch s {
	case BufferEmpty:
		return "empty"
	case BufferDataOut:
		return "data-out"
	case BufferDataSetup:
		return "data-setup"
	default:
		return "unknown"
	}
}
