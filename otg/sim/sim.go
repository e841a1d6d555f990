package sim

import (
	"github.com/ardnew/otgusb/otg"
	"github.com/ardnew/otgusb/otg/regs"
	"github.com/ardnew/otgusb/pkg"
)

// DefaultFIFODepthWords is the modeled shared FIFO depth, matching a
// full-speed core's 1.25 KiB of packet memory.
const DefaultFIFODepthWords = 320

// DefaultCoreID is the modeled core identifier, a revision that re-arms
// OUT endpoints after the software copy.
const DefaultCoreID = 0x0000_2000

// TraceKind classifies an entry in the core's event trace.
type TraceKind uint8

// Trace event kinds.
const (
	TraceRearm   TraceKind = iota // OUT endpoint re-armed (CNAK written)
	TraceCopy                     // Data-bearing receive status entry popped
	TraceRxFlush                  // Receive FIFO flushed
	TraceTxFlush                  // Transmit FIFO flushed
)

// TraceEvent is one recorded hardware-visible event. For TraceTxFlush,
// Endpoint holds the raw FIFO-number field (0x10 flushes all).
type TraceEvent struct {
	Kind     TraceKind
	Endpoint uint8
}

// rxEntry is one receive status queue entry with its packet data.
type rxEntry struct {
	status regs.RxStatus
	data   []uint32
}

// RegisterWrite is one recorded register write, in program order.
type RegisterWrite struct {
	Offset uint32
	Value  uint32
}

// Core is a behavioral model of one OTG controller core.
type Core struct {
	mem map[uint32]uint32

	// Receive status queue and the data words of the entry most
	// recently popped.
	rxQueue []rxEntry
	rxData  []uint32

	// Captured IN data words per endpoint FIFO.
	inWords [otg.EndpointCount][]uint32

	trace    []TraceEvent
	writeLog []RegisterWrite

	clockEnabled bool
	highSpeed    bool
	fifoDepth    uint16
	txFifoCount  int
}

// New returns a core model with full-speed defaults.
func New() *Core {
	c := &Core{
		mem:         make(map[uint32]uint32),
		fifoDepth:   DefaultFIFODepthWords,
		txFifoCount: otg.EndpointCount,
	}
	c.mem[regs.CID] = DefaultCoreID
	return c
}

// SetCoreID sets the value of the core identifier register.
func (c *Core) SetCoreID(id uint32) { c.mem[regs.CID] = id }

// SetHighSpeed sets whether the model reports a high-speed PHY.
func (c *Core) SetHighSpeed(hs bool) { c.highSpeed = hs }

// SetFIFODepthWords overrides the modeled shared FIFO depth.
func (c *Core) SetFIFODepthWords(words uint16) { c.fifoDepth = words }

// SetTxFifoCount overrides the modeled transmit FIFO count.
func (c *Core) SetTxFifoCount(n int) { c.txFifoCount = n }

// EnableClock implements [otg.Peripheral].
func (c *Core) EnableClock() { c.clockEnabled = true }

// ClockEnabled reports whether the driver enabled the clock domain.
func (c *Core) ClockEnabled() bool { return c.clockEnabled }

// Registers implements [otg.Peripheral].
func (c *Core) Registers() regs.Access { return c }

// HighSpeed implements [otg.Peripheral].
func (c *Core) HighSpeed() bool { return c.highSpeed }

// FIFODepthWords implements [otg.Peripheral].
func (c *Core) FIFODepthWords() uint16 { return c.fifoDepth }

// TxFifoCount implements [otg.Peripheral].
func (c *Core) TxFifoCount() int { return c.txFifoCount }

// latchedInterrupts are the GINTSTS bits with write-one-to-clear
// semantics; the rest are derived on read.
const latchedInterrupts = regs.GINTUSBRST | regs.GINTENUMDNE |
	regs.GINTUSBSUSP | regs.GINTWKUPINT

// Read implements [regs.Access] with the model's derived-state and
// queue semantics.
func (c *Core) Read(offset uint32) uint32 {
	switch {
	case offset == regs.GRSTCTL:
		// AHB master is always idle; flushes completed at write time.
		return c.mem[offset] | regs.GRSTCTLAHBIDL

	case offset == regs.GINTSTS:
		v := c.mem[offset] & latchedInterrupts
		if len(c.rxQueue) > 0 {
			v |= regs.GINTRXFLVL
		}
		for n := uint8(0); n < otg.EndpointCount; n++ {
			if c.mem[regs.DIEPINT(n)]&regs.DIEPINTXFRC != 0 {
				v |= regs.GINTIEPINT
				break
			}
		}
		return v

	case offset == regs.GRXSTSR:
		if len(c.rxQueue) == 0 {
			return 0
		}
		return uint32(c.rxQueue[0].status)

	case offset == regs.GRXSTSP:
		if len(c.rxQueue) == 0 {
			return 0
		}
		entry := c.rxQueue[0]
		c.rxQueue = c.rxQueue[1:]
		c.rxData = entry.data
		if len(entry.data) > 0 {
			c.trace = append(c.trace, TraceEvent{Kind: TraceCopy, Endpoint: entry.status.EpNum()})
		}
		return uint32(entry.status)

	case c.isFifoWindow(offset):
		if len(c.rxData) == 0 {
			return 0
		}
		w := c.rxData[0]
		c.rxData = c.rxData[1:]
		return w

	default:
		return c.mem[offset]
	}
}

// Write implements [regs.Access] with the model's command-bit and
// write-one-to-clear semantics. Every write is appended to the write
// log, except FIFO-window data pushes.
func (c *Core) Write(offset uint32, value uint32) {
	if !c.isFifoWindow(offset) {
		c.writeLog = append(c.writeLog, RegisterWrite{Offset: offset, Value: value})
	}

	switch {
	case offset == regs.GRSTCTL:
		if value&regs.GRSTCTLRXFFLSH != 0 {
			c.rxQueue = nil
			c.rxData = nil
			c.trace = append(c.trace, TraceEvent{Kind: TraceRxFlush})
		}
		if value&regs.GRSTCTLTXFFLSH != 0 {
			num := uint8((value & regs.GRSTCTLTXFNUMMask) >> regs.GRSTCTLTXFNUMShift)
			c.flushTxFifo(num)
			c.trace = append(c.trace, TraceEvent{Kind: TraceTxFlush, Endpoint: num})
		}
		// Flushes complete immediately.
		c.mem[offset] = value &^ (regs.GRSTCTLRXFFLSH | regs.GRSTCTLTXFFLSH)

	case offset == regs.GINTSTS:
		c.mem[offset] &^= value & latchedInterrupts

	case c.isDiepint(offset):
		c.mem[offset] &^= value

	case c.isDoepctl(offset):
		n := uint8((offset - regs.DOEPCTL(0)) / 0x20)
		if value&regs.EPCTLCNAK != 0 {
			c.trace = append(c.trace, TraceEvent{Kind: TraceRearm, Endpoint: n})
		}
		// CNAK and SNAK are self-clearing command bits.
		c.mem[offset] = value &^ (regs.EPCTLCNAK | regs.EPCTLSNAK)

	case c.isDiepctl(offset):
		c.mem[offset] = value &^ (regs.EPCTLCNAK | regs.EPCTLSNAK)

	case c.isFifoWindow(offset):
		n := uint8((offset - regs.FIFO(0)) / 0x1000)
		if int(n) < len(c.inWords) {
			c.inWords[n] = append(c.inWords[n], value)
		}

	default:
		c.mem[offset] = value
	}
}

func (c *Core) isFifoWindow(offset uint32) bool {
	return offset >= regs.FIFO(0)
}

func (c *Core) isDiepint(offset uint32) bool {
	for n := uint8(0); n < otg.EndpointCount; n++ {
		if offset == regs.DIEPINT(n) {
			return true
		}
	}
	return false
}

func (c *Core) isDiepctl(offset uint32) bool {
	for n := uint8(0); n < otg.EndpointCount; n++ {
		if offset == regs.DIEPCTL(n) {
			return true
		}
	}
	return false
}

func (c *Core) isDoepctl(offset uint32) bool {
	for n := uint8(0); n < otg.EndpointCount; n++ {
		if offset == regs.DOEPCTL(n) {
			return true
		}
	}
	return false
}

// flushTxFifo discards captured IN data for one FIFO, or all of them
// when num is the flush-all encoding.
func (c *Core) flushTxFifo(num uint8) {
	if num == regs.TXFNumAll {
		for i := range c.inWords {
			c.inWords[i] = nil
		}
		return
	}
	if int(num) < len(c.inWords) {
		c.inWords[num] = nil
	}
}

// packWords packs bytes into little-endian data words.
func packWords(data []byte) []uint32 {
	words := make([]uint32, (len(data)+3)/4)
	for i, b := range data {
		words[i/4] |= uint32(b) << (8 * (i % 4))
	}
	return words
}

// InjectReset latches the bus-reset interrupt.
func (c *Core) InjectReset() {
	c.mem[regs.GINTSTS] |= regs.GINTUSBRST
	pkg.LogDebug(pkg.ComponentSim, "injected bus reset")
}

// InjectEnumDone latches the enumeration-done interrupt.
func (c *Core) InjectEnumDone() {
	c.mem[regs.GINTSTS] |= regs.GINTENUMDNE
}

// InjectSuspend latches the suspend interrupt.
func (c *Core) InjectSuspend() {
	c.mem[regs.GINTSTS] |= regs.GINTUSBSUSP
}

// InjectWakeup latches the wakeup interrupt.
func (c *Core) InjectWakeup() {
	c.mem[regs.GINTSTS] |= regs.GINTWKUPINT
}

// InjectOut queues an OUT-received status entry carrying data for the
// given endpoint.
func (c *Core) InjectOut(epNum uint8, data []byte) {
	c.rxQueue = append(c.rxQueue, rxEntry{
		status: regs.EncodeRxStatus(epNum, uint16(len(data)), regs.PktStsOutReceived),
		data:   packWords(data),
	})
	pkg.LogDebug(pkg.ComponentSim, "injected OUT packet", "epNum", epNum, "len", len(data))
}

// InjectSetup queues a SETUP-received status entry carrying the 8-byte
// setup packet for the given endpoint.
func (c *Core) InjectSetup(epNum uint8, data []byte) {
	c.rxQueue = append(c.rxQueue, rxEntry{
		status: regs.EncodeRxStatus(epNum, uint16(len(data)), regs.PktStsSetupReceived),
		data:   packWords(data),
	})
	pkg.LogDebug(pkg.ComponentSim, "injected SETUP packet", "epNum", epNum, "len", len(data))
}

// InjectOutCompleted queues an OUT-transaction-completed status entry.
func (c *Core) InjectOutCompleted(epNum uint8) {
	c.rxQueue = append(c.rxQueue, rxEntry{
		status: regs.EncodeRxStatus(epNum, 0, regs.PktStsOutCompleted),
	})
}

// InjectSetupCompleted queues a SETUP-transaction-completed status entry.
func (c *Core) InjectSetupCompleted(epNum uint8) {
	c.rxQueue = append(c.rxQueue, rxEntry{
		status: regs.EncodeRxStatus(epNum, 0, regs.PktStsSetupComplete),
	})
}

// CompleteIn latches transfer-complete for an IN endpoint and releases
// the endpoint, as hardware does once the packet has gone out on the
// bus.
func (c *Core) CompleteIn(epNum uint8) {
	c.mem[regs.DIEPINT(epNum)] |= regs.DIEPINTXFRC
	c.mem[regs.DIEPCTL(epNum)] &^= regs.EPCTLEPENA
	c.mem[regs.DIEPTSIZ(epNum)] &^= regs.EPTSIZPKTCNTMask
}

// InData returns the bytes the driver pushed to an IN endpoint's
// transmit FIFO since the last flush, trimmed to the programmed
// transfer size.
func (c *Core) InData(epNum uint8) []byte {
	if int(epNum) >= len(c.inWords) {
		return nil
	}
	size := int(c.mem[regs.DIEPTSIZ(epNum)] & regs.EPTSIZXFRSIZMask)
	data := make([]byte, 0, len(c.inWords[epNum])*4)
	for _, w := range c.inWords[epNum] {
		data = append(data, byte(w), byte(w>>8), byte(w>>16), byte(w>>24))
	}
	if size <= len(data) {
		data = data[:size]
	}
	return data
}

// ClearInData discards captured IN data for an endpoint.
func (c *Core) ClearInData(epNum uint8) {
	if int(epNum) < len(c.inWords) {
		c.inWords[epNum] = nil
	}
}

// PendingRxEntries reports the receive status queue depth.
func (c *Core) PendingRxEntries() int { return len(c.rxQueue) }

// Trace returns the recorded event trace.
func (c *Core) Trace() []TraceEvent { return c.trace }

// ClearTrace discards the recorded event trace.
func (c *Core) ClearTrace() { c.trace = nil }

// WriteLog returns every recorded register write in program order.
func (c *Core) WriteLog() []RegisterWrite { return c.writeLog }

// ClearWriteLog discards the recorded register writes.
func (c *Core) ClearWriteLog() { c.writeLog = nil }

// Register returns the raw stored value of a register, bypassing the
// model's derived-state reads.
func (c *Core) Register(offset uint32) uint32 { return c.mem[offset] }

var (
	_ regs.Access    = (*Core)(nil)
	_ otg.Peripheral = (*Core)(nil)
)
