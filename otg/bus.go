package otg

import (
	"fmt"
	"sync"

	"github.com/ardnew/otgusb/bus"
	"github.com/ardnew/otgusb/otg/regs"
	"github.com/ardnew/otgusb/pkg"
)

// rxFifoMarginWords pads the receive FIFO beyond the buffer word total.
// The margin is larger than the reference-manual minimum; the required
// headroom was established empirically on hardware, not by formula.
const rxFifoMarginWords = 30

// Bus is the device-side driver for one OTG controller core. It
// implements [bus.Driver].
//
// Construct with [New], allocate endpoints, then call [Bus.Enable]
// exactly once. Thereafter call [Bus.Poll] from a single execution
// context and react to the returned events.
type Bus struct {
	peripheral Peripheral

	// mu is the critical section guarding the register block and all
	// endpoint/buffer state.
	mu    sync.Mutex
	regs  regs.Block
	alloc *endpointAllocator
	rearm rearmStrategy
}

// New constructs a driver for the given core. The pool backs OUT packet
// buffers; it must outlive the Bus and be large enough for the sum of
// the word-rounded maximum packet sizes of all OUT endpoints.
func New(peripheral Peripheral, pool []byte) *Bus {
	block := regs.NewBlock(peripheral.Registers())
	return &Bus{
		peripheral: peripheral,
		regs:       block,
		alloc:      newEndpointAllocator(block, pool),
	}
}

// AllocEndpoint assigns an endpoint number in the given direction and
// reserves packet memory for it. Implements [bus.Driver].
func (b *Bus) AllocEndpoint(dir bus.Direction, cfg bus.EndpointConfig) (bus.EndpointAddress, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.alloc.allocEndpoint(dir, cfg)
}

// Enable performs the one-shot bring-up sequence: clock enable, AHB
// handshake, global USB configuration, interrupt unmasking, and finally
// the logical connect. Not idempotent; call exactly once per session.
func (b *Bus) Enable() {
	b.peripheral.EnableClock()

	b.mu.Lock()
	defer b.mu.Unlock()

	// Wait for AHB ready
	for !b.regs.HasBits(regs.GRSTCTL, regs.GRSTCTLAHBIDL) {
	}

	// Configure the core as a device: no SRP, turnaround time per speed
	// grade, force device mode.
	if b.peripheral.HighSpeed() {
		b.regs.Modify(regs.GUSBCFG,
			regs.GUSBCFGSRPCAP|regs.GUSBCFGTRDTMask|regs.GUSBCFGTOCALMask|
				regs.GUSBCFGFDMOD|regs.GUSBCFGPHYSEL,
			0x9<<regs.GUSBCFGTRDTShift|
				0x1<<regs.GUSBCFGTOCALShift|
				regs.GUSBCFGFDMOD|regs.GUSBCFGPHYSEL)
	} else {
		b.regs.Modify(regs.GUSBCFG,
			regs.GUSBCFGSRPCAP|regs.GUSBCFGTRDTMask|regs.GUSBCFGFDMOD,
			0x6<<regs.GUSBCFGTRDTShift|regs.GUSBCFGFDMOD)
	}

	// Disable VBUS sensing
	b.regs.Put(regs.GCCFG, regs.GCCFGNOVBUSSENS)

	// Enable the PHY clock
	b.regs.Put(regs.PCGCCTL, 0)

	// Soft disconnect while configuring
	b.regs.SetBits(regs.DCTL, regs.DCTLSDIS)

	// Device speed: full speed
	b.regs.Modify(regs.DCFG, regs.DCFGDSPDMask, regs.DSPDFullSpeed<<regs.DCFGDSPDShift)

	// Unmask IN endpoint transfer-complete
	b.regs.Put(regs.DIEPMSK, regs.DIEPMSKXFRCM)

	// Unmask core interrupts
	b.regs.Put(regs.GINTMSK,
		regs.GINTUSBRST|regs.GINTENUMDNE|
			regs.GINTUSBSUSP|regs.GINTWKUPINT|
			regs.GINTIEPINT|regs.GINTRXFLVL)

	// Acknowledge everything latched before we were listening
	b.regs.Put(regs.GINTSTS, 0xFFFFFFFF)

	// Unmask the global interrupt
	b.regs.SetBits(regs.GAHBCFG, regs.GAHBCFGGINT)

	// Fix the re-arm strategy for this silicon once, off the poll path.
	coreID := b.regs.Get(regs.CID)
	b.rearm = rearmForCoreID(coreID)

	// Power up the PHY and connect
	b.regs.SetBits(regs.GCCFG, regs.GCCFGPWRDWN)
	b.regs.ClearBits(regs.DCTL, regs.DCTLSDIS)

	pkg.LogInfo(pkg.ComponentDriver, "peripheral enabled",
		"coreID", fmt.Sprintf("0x%08X", coreID),
		"rearm", b.rearm.String(),
		"highSpeed", b.peripheral.HighSpeed())
}

// configureAll computes and programs the FIFO layout plan, flushes both
// FIFO directions, and activates every allocated endpoint. Caller holds
// the critical section.
func (b *Bus) configureAll() {
	// The receive FIFO takes the buffer word total plus an empirical
	// margin; see rxFifoMarginWords.
	rxWords := b.alloc.memory.totalRxBufferWords() + rxFifoMarginWords
	b.regs.Put(regs.GRXFSIZ, uint32(rxWords))
	fifoTop := uint32(rxWords)

	for i := 0; i < b.peripheral.TxFifoCount(); i++ {
		words := uint32(b.alloc.memory.txFifoSizeWords(i))
		offset := uint32(regs.DIEPTXF0)
		if i > 0 {
			offset = regs.DIEPTXF(i)
		}
		// Depth in the high half, start address in the low half.
		b.regs.Put(offset, words<<16|fifoTop)
		fifoTop += words
	}

	if fifoTop > uint32(b.peripheral.FIFODepthWords()) {
		panic(fmt.Sprintf("otg: FIFO plan needs %d words, core has %d",
			fifoTop, b.peripheral.FIFODepthWords()))
	}

	// Flush both directions before arming endpoints.
	b.regs.Modify(regs.GRSTCTL,
		regs.GRSTCTLRXFFLSH|regs.GRSTCTLTXFFLSH|regs.GRSTCTLTXFNUMMask,
		regs.GRSTCTLRXFFLSH|regs.GRSTCTLTXFFLSH|
			regs.TXFNumAll<<regs.GRSTCTLTXFNUMShift)
	for b.regs.Get(regs.GRSTCTL)&(regs.GRSTCTLRXFFLSH|regs.GRSTCTLTXFFLSH) != 0 {
	}

	for _, ep := range b.alloc.endpointsIn {
		if ep == nil {
			continue
		}
		b.regs.SetBits(regs.DAINTMSK, 1<<ep.Address().Index())
		ep.configure()
	}

	for _, ep := range b.alloc.endpointsOut {
		if ep == nil {
			continue
		}
		if ep.Address().Index() == 0 {
			b.regs.SetBits(regs.DAINTMSK, 1<<regs.DAINTMSKOEPShift)
		}
		ep.configure()
	}

	pkg.LogDebug(pkg.ComponentDriver, "endpoints configured",
		"rxFifoWords", rxWords, "fifoTopWords", fifoTop)
}

// deconfigureAll masks both endpoint interrupt groups and deactivates
// every allocated endpoint. Allocation state is untouched. Caller holds
// the critical section.
func (b *Bus) deconfigureAll() {
	b.regs.Put(regs.DAINTMSK, 0)

	for _, ep := range b.alloc.endpointsIn {
		if ep != nil {
			ep.deconfigure()
		}
	}
	for _, ep := range b.alloc.endpointsOut {
		if ep != nil {
			ep.deconfigure()
		}
	}
}

// Reset reconfigures all allocated endpoints and clears the device
// address. The framework calls it in response to an [bus.EventReset].
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.configureAll()
	b.regs.Modify(regs.DCFG, regs.DCFGDADMask, 0)
}

// SetDeviceAddress programs the 7-bit device address.
func (b *Bus) SetDeviceAddress(addr uint8) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.regs.Modify(regs.DCFG, regs.DCFGDADMask, uint32(addr)<<regs.DCFGDADShift)
}

// Write transmits a packet on an IN endpoint, returning the byte count
// accepted.
func (b *Bus) Write(addr bus.EndpointAddress, data []byte) (int, error) {
	if !addr.IsIn() || addr.Index() >= EndpointCount {
		return 0, pkg.ErrInvalidEndpoint
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ep := b.alloc.endpointsIn[addr.Index()]
	if ep == nil {
		return 0, pkg.ErrInvalidEndpoint
	}
	if err := ep.write(data); err != nil {
		return 0, err
	}
	return len(data), nil
}

// Read drains a received packet from an OUT endpoint's buffer into buf.
func (b *Bus) Read(addr bus.EndpointAddress, buf []byte) (int, error) {
	if !addr.IsOut() || addr.Index() >= EndpointCount {
		return 0, pkg.ErrInvalidEndpoint
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ep := b.alloc.endpointsOut[addr.Index()]
	if ep == nil {
		return 0, pkg.ErrInvalidEndpoint
	}
	return ep.read(buf)
}

// SetStalled sets or clears an endpoint's stall handshake. The stall
// bit is addressed directly in hardware, independent of the allocator's
// slot table. Out-of-range addresses are ignored.
func (b *Bus) SetStalled(addr bus.EndpointAddress, stalled bool) {
	if addr.Index() >= EndpointCount {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	offset := regs.DOEPCTL(addr.Index())
	if addr.IsIn() {
		offset = regs.DIEPCTL(addr.Index())
	}
	if stalled {
		b.regs.SetBits(offset, regs.EPCTLSTALL)
	} else {
		b.regs.ClearBits(offset, regs.EPCTLSTALL)
	}

	pkg.LogDebug(pkg.ComponentEndpoint, "stall changed",
		"address", addr.String(), "stalled", stalled)
}

// IsStalled reports an endpoint's stall handshake. Out-of-range
// addresses report stalled.
func (b *Bus) IsStalled(addr bus.EndpointAddress) bool {
	if addr.Index() >= EndpointCount {
		return true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	offset := regs.DOEPCTL(addr.Index())
	if addr.IsIn() {
		offset = regs.DIEPCTL(addr.Index())
	}
	return b.regs.HasBits(offset, regs.EPCTLSTALL)
}

// Poll translates pending controller status into a protocol event. One
// call is one complete micro-transaction: it pops at most one receive
// status entry, and outcomes are prioritized bus reset > enumeration
// done > wakeup > suspend > data.
func (b *Bus) Poll() bus.PollResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	sts := b.regs.Get(regs.GINTSTS)

	switch {
	case sts&regs.GINTUSBRST != 0:
		b.regs.Put(regs.GINTSTS, regs.GINTUSBRST)
		b.deconfigureAll()

		// Discard anything still in the receive FIFO.
		b.regs.SetBits(regs.GRSTCTL, regs.GRSTCTLRXFFLSH)
		for b.regs.HasBits(regs.GRSTCTL, regs.GRSTCTLRXFFLSH) {
		}

		pkg.LogDebug(pkg.ComponentDriver, "bus reset")
		return bus.PollResult{Event: bus.EventReset}

	case sts&regs.GINTENUMDNE != 0:
		b.regs.Put(regs.GINTSTS, regs.GINTENUMDNE)
		pkg.LogDebug(pkg.ComponentDriver, "enumeration done")
		return bus.PollResult{Event: bus.EventReset}

	case sts&regs.GINTWKUPINT != 0:
		b.regs.Put(regs.GINTSTS, regs.GINTWKUPINT)
		pkg.LogDebug(pkg.ComponentDriver, "resume")
		return bus.PollResult{Event: bus.EventResume}

	case sts&regs.GINTUSBSUSP != 0:
		b.regs.Put(regs.GINTSTS, regs.GINTUSBSUSP)
		pkg.LogDebug(pkg.ComponentDriver, "suspend")
		return bus.PollResult{Event: bus.EventSuspend}
	}

	var epOut, epInComplete, epSetup uint16

	// RXFLVL and IEPINT are read-only reflections; no acknowledgment.
	if sts&regs.GINTRXFLVL != 0 {
		entry := b.regs.RxStatusPeek()
		epNum := entry.EpNum()
		byteCount := entry.ByteCount()
		status := entry.PacketStatus()

		switch status {
		case regs.PktStsOutReceived:
			// Marked from the buffer scan below once the packet lands.

		case regs.PktStsSetupReceived:
			// A SETUP aborts any in-flight control response; flush the
			// stale packet out of the transmit FIFO so it is never sent.
			if int(epNum) < EndpointCount &&
				b.regs.Field(regs.DIEPTSIZ(epNum), regs.EPTSIZPKTCNTMask, regs.EPTSIZPKTCNTShift) != 0 {
				b.regs.Modify(regs.GRSTCTL,
					regs.GRSTCTLTXFNUMMask|regs.GRSTCTLTXFFLSH,
					uint32(epNum)<<regs.GRSTCTLTXFNUMShift|regs.GRSTCTLTXFFLSH)
				for b.regs.HasBits(regs.GRSTCTL, regs.GRSTCTLTXFFLSH) {
				}
			}

		case regs.PktStsOutCompleted, regs.PktStsSetupComplete:
			if b.rearm == rearmAtCompletion && int(epNum) < EndpointCount {
				if ep := b.alloc.endpointsOut[epNum]; ep != nil {
					ep.rearm()
				}
			}
			b.regs.RxStatusPop()

		default:
			b.regs.RxStatusPop()
		}

		if status == regs.PktStsOutReceived || status == regs.PktStsSetupReceived {
			if int(epNum) < EndpointCount {
				if ep := b.alloc.endpointsOut[epNum]; ep != nil && ep.bufferState() == pkg.BufferEmpty {
					b.regs.RxStatusPop()

					isSetup := status == regs.PktStsSetupReceived
					if err := ep.fillFromFIFO(byteCount, isSetup); err != nil {
						pkg.LogWarn(pkg.ComponentDriver, "receive copy failed",
							"address", ep.Address().String(), "error", err)
					}
					if b.rearm == rearmAfterCopy {
						ep.rearm()
					}
				}
				// A non-Empty buffer leaves the entry unpopped and the
				// endpoint un-re-armed: backpressure until Read drains it.
			}
		}
	}

	if sts&regs.GINTIEPINT != 0 {
		for _, ep := range b.alloc.endpointsIn {
			if ep == nil {
				continue
			}
			n := ep.Address().Index()
			if b.regs.HasBits(regs.DIEPINT(n), regs.DIEPINTXFRC) {
				b.regs.Put(regs.DIEPINT(n), regs.DIEPINTXFRC)
				epInComplete |= 1 << n
			}
		}
	}

	// Second pass: fold buffer state into the masks. This catches
	// packets buffered on earlier calls whose status entry is long gone,
	// including previously backpressured ones.
	for _, ep := range b.alloc.endpointsOut {
		if ep == nil {
			continue
		}
		switch ep.bufferState() {
		case pkg.BufferDataOut:
			epOut |= 1 << ep.Address().Index()
		case pkg.BufferDataSetup:
			epSetup |= 1 << ep.Address().Index()
		}
	}

	if epOut|epInComplete|epSetup != 0 {
		return bus.PollResult{
			Event:        bus.EventData,
			EpOut:        epOut,
			EpInComplete: epInComplete,
			EpSetup:      epSetup,
		}
	}
	return bus.PollResult{Event: bus.EventNone}
}

// Capabilities reports this controller's quirks: the device address must
// be programmed before the SET_ADDRESS status stage is acknowledged.
func (b *Bus) Capabilities() bus.Capabilities {
	return bus.Capabilities{SetAddressBeforeStatus: true}
}

var _ bus.Driver = (*Bus)(nil)
