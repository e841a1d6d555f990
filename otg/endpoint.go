package otg

import (
	"github.com/ardnew/otgusb/bus"
	"github.com/ardnew/otgusb/otg/regs"
	"github.com/ardnew/otgusb/pkg"
)

// EndpointDescriptor captures one allocated endpoint's identity.
// Immutable once created; allocation survives bus resets.
type EndpointDescriptor struct {
	Address       bus.EndpointAddress
	Type          bus.EndpointType
	MaxPacketSize uint16
	Interval      uint8
}

// ep0MaxPacketBits encodes the control endpoint's maximum packet size
// into the 2-bit field of its control register (64, 32, 16, or 8 bytes).
func ep0MaxPacketBits(size uint16) uint32 {
	switch {
	case size >= 64:
		return 0
	case size >= 32:
		return 1
	case size >= 16:
		return 2
	default:
		return 3
	}
}

// EndpointIn owns one IN (device to host) endpoint: its descriptor and
// its per-endpoint register group. Methods are called only under the bus
// critical section.
type EndpointIn struct {
	descriptor EndpointDescriptor
	regs       regs.Block
}

func newEndpointIn(descriptor EndpointDescriptor, block regs.Block) *EndpointIn {
	return &EndpointIn{descriptor: descriptor, regs: block}
}

// Descriptor returns the endpoint's descriptor.
func (e *EndpointIn) Descriptor() EndpointDescriptor { return e.descriptor }

// Address returns the endpoint's direction-tagged address.
func (e *EndpointIn) Address() bus.EndpointAddress { return e.descriptor.Address }

// configure activates the hardware endpoint with its descriptor's type
// and packet size, NAKing until the first write arms it.
func (e *EndpointIn) configure() {
	n := e.descriptor.Address.Index()
	if n == 0 {
		e.regs.Put(regs.DIEPCTL(0),
			regs.EPCTLSNAK|ep0MaxPacketBits(e.descriptor.MaxPacketSize))
		return
	}
	e.regs.Put(regs.DIEPCTL(n),
		regs.EPCTLSNAK|
			regs.EPCTLUSBAEP|
			regs.EPCTLSD0PID|
			uint32(e.descriptor.Type)<<regs.EPCTLEPTYPShift|
			uint32(n)<<regs.EPCTLTXFNUMShift|
			uint32(e.descriptor.MaxPacketSize)&regs.EPCTLMPSIZMask)
}

// deconfigure deactivates the hardware endpoint and clears its latched
// interrupt state. Allocation is untouched.
func (e *EndpointIn) deconfigure() {
	n := e.descriptor.Address.Index()
	e.regs.Modify(regs.DIEPCTL(n),
		regs.EPCTLUSBAEP|regs.EPCTLEPENA|regs.EPCTLSNAK,
		regs.EPCTLSNAK)
	e.regs.Put(regs.DIEPTSIZ(n), 0)
	e.regs.Put(regs.DIEPINT(n), 0xFFFFFFFF)
}

// write programs a single-packet transmit and pushes the payload into
// the endpoint's FIFO. A still-pending previous packet reports ErrBusy;
// payloads beyond the maximum packet size report ErrBufferTooSmall.
func (e *EndpointIn) write(data []byte) error {
	n := e.descriptor.Address.Index()

	if e.regs.HasBits(regs.DIEPCTL(n), regs.EPCTLEPENA) &&
		e.regs.Field(regs.DIEPTSIZ(n), regs.EPTSIZPKTCNTMask, regs.EPTSIZPKTCNTShift) != 0 {
		return pkg.ErrBusy
	}
	if len(data) > int(e.descriptor.MaxPacketSize) {
		return pkg.ErrBufferTooSmall
	}

	e.regs.Put(regs.DIEPTSIZ(n),
		1<<regs.EPTSIZPKTCNTShift|uint32(len(data))&regs.EPTSIZXFRSIZMask)
	e.regs.SetBits(regs.DIEPCTL(n), regs.EPCTLEPENA|regs.EPCTLCNAK)

	for i := 0; i < len(data); i += 4 {
		var w uint32
		for j := 0; j < 4 && i+j < len(data); j++ {
			w |= uint32(data[i+j]) << (8 * j)
		}
		e.regs.FifoWriteWord(n, w)
	}

	return nil
}

// EndpointOut owns one OUT (host to device) endpoint: its descriptor,
// its register group, and its single-packet receive buffer. Methods are
// called only under the bus critical section.
type EndpointOut struct {
	descriptor EndpointDescriptor
	regs       regs.Block
	buffer     *endpointBuffer
}

func newEndpointOut(descriptor EndpointDescriptor, block regs.Block, buffer *endpointBuffer) *EndpointOut {
	return &EndpointOut{descriptor: descriptor, regs: block, buffer: buffer}
}

// Descriptor returns the endpoint's descriptor.
func (e *EndpointOut) Descriptor() EndpointDescriptor { return e.descriptor }

// Address returns the endpoint's direction-tagged address.
func (e *EndpointOut) Address() bus.EndpointAddress { return e.descriptor.Address }

// configure activates the hardware endpoint, arming it to receive.
func (e *EndpointOut) configure() {
	n := e.descriptor.Address.Index()
	if n == 0 {
		e.regs.Put(regs.DOEPTSIZ(0),
			1<<regs.EPTSIZSTUPCNTShift|
				1<<regs.EPTSIZPKTCNTShift|
				uint32(e.descriptor.MaxPacketSize)&regs.EPTSIZXFRSIZMask)
		e.regs.Put(regs.DOEPCTL(0),
			regs.EPCTLEPENA|regs.EPCTLCNAK|
				ep0MaxPacketBits(e.descriptor.MaxPacketSize))
		return
	}
	e.regs.Put(regs.DOEPTSIZ(n),
		1<<regs.EPTSIZPKTCNTShift|
			uint32(e.descriptor.MaxPacketSize)&regs.EPTSIZXFRSIZMask)
	e.regs.Put(regs.DOEPCTL(n),
		regs.EPCTLEPENA|regs.EPCTLCNAK|
			regs.EPCTLUSBAEP|
			regs.EPCTLSD0PID|
			uint32(e.descriptor.Type)<<regs.EPCTLEPTYPShift|
			uint32(e.descriptor.MaxPacketSize)&regs.EPCTLMPSIZMask)
}

// deconfigure deactivates the hardware endpoint and discards any
// buffered packet. Allocation is untouched.
func (e *EndpointOut) deconfigure() {
	n := e.descriptor.Address.Index()
	e.regs.Modify(regs.DOEPCTL(n),
		regs.EPCTLUSBAEP|regs.EPCTLEPENA|regs.EPCTLSNAK,
		regs.EPCTLSNAK)
	e.regs.Put(regs.DOEPTSIZ(n), 0)
	e.buffer.reset()
}

// bufferState reports the receive buffer's state.
func (e *EndpointOut) bufferState() pkg.BufferState {
	return e.buffer.state
}

// fillFromFIFO copies a completed packet from the shared receive FIFO
// into the endpoint's buffer. Used only by the poll path.
func (e *EndpointOut) fillFromFIFO(count uint16, isSetup bool) error {
	return e.buffer.fillFromFIFO(e.regs, e.descriptor.Address.Index(), count, isSetup)
}

// read drains the buffered packet into buf.
func (e *EndpointOut) read(buf []byte) (int, error) {
	return e.buffer.read(buf)
}

// rearm clears the hardware NAK and re-enables the endpoint for the
// next packet. Revision families disagree on when this must happen; see
// rearmStrategy.
func (e *EndpointOut) rearm() {
	e.regs.SetBits(regs.DOEPCTL(e.descriptor.Address.Index()),
		regs.EPCTLCNAK|regs.EPCTLEPENA)
}
