package regs

// Access is the word-level read/write primitive over the OTG register
// map. Offsets are byte offsets from the peripheral base address and are
// always word-aligned.
type Access interface {
	Read(offset uint32) uint32
	Write(offset uint32, value uint32)
}

// Global register block offsets.
const (
	GOTGCTL  = 0x000 // Control and status
	GAHBCFG  = 0x008 // AHB configuration
	GUSBCFG  = 0x00C // USB configuration
	GRSTCTL  = 0x010 // Reset control
	GINTSTS  = 0x014 // Core interrupt status
	GINTMSK  = 0x018 // Core interrupt mask
	GRXSTSR  = 0x01C // Receive status debug read (peek)
	GRXSTSP  = 0x020 // Receive status read and pop
	GRXFSIZ  = 0x024 // Receive FIFO size
	DIEPTXF0 = 0x028 // Endpoint 0 transmit FIFO size
	GCCFG    = 0x038 // Core configuration
	CID      = 0x03C // Core identifier
)

// Device register block offsets.
const (
	DCFG     = 0x800 // Device configuration
	DCTL     = 0x804 // Device control
	DSTS     = 0x808 // Device status
	DIEPMSK  = 0x810 // IN endpoint common interrupt mask
	DOEPMSK  = 0x814 // OUT endpoint common interrupt mask
	DAINT    = 0x818 // All endpoints interrupt status
	DAINTMSK = 0x81C // All endpoints interrupt mask
)

// Power and clock gating register offset.
const PCGCCTL = 0xE00

// Per-endpoint register strides and bases.
const (
	inEndpointBase  = 0x900
	outEndpointBase = 0xB00
	endpointStride  = 0x20
	fifoBase        = 0x1000
	fifoStride      = 0x1000
)

// DIEPCTL returns the IN endpoint control register offset for endpoint n.
func DIEPCTL(n uint8) uint32 { return inEndpointBase + endpointStride*uint32(n) }

// DIEPINT returns the IN endpoint interrupt register offset for endpoint n.
func DIEPINT(n uint8) uint32 { return DIEPCTL(n) + 0x08 }

// DIEPTSIZ returns the IN endpoint transfer size register offset for endpoint n.
func DIEPTSIZ(n uint8) uint32 { return DIEPCTL(n) + 0x10 }

// DTXFSTS returns the IN endpoint FIFO status register offset for endpoint n.
func DTXFSTS(n uint8) uint32 { return DIEPCTL(n) + 0x18 }

// DOEPCTL returns the OUT endpoint control register offset for endpoint n.
func DOEPCTL(n uint8) uint32 { return outEndpointBase + endpointStride*uint32(n) }

// DOEPINT returns the OUT endpoint interrupt register offset for endpoint n.
func DOEPINT(n uint8) uint32 { return DOEPCTL(n) + 0x08 }

// DOEPTSIZ returns the OUT endpoint transfer size register offset for endpoint n.
func DOEPTSIZ(n uint8) uint32 { return DOEPCTL(n) + 0x10 }

// DIEPTXF returns the transmit FIFO size register offset for FIFO n >= 1.
// FIFO 0 lives at [DIEPTXF0].
func DIEPTXF(n int) uint32 { return 0x104 + 4*uint32(n-1) }

// FIFO returns the data FIFO window offset for endpoint n. Repeated word
// reads or writes at this offset pop from or push to the packet FIFO.
func FIFO(n uint8) uint32 { return fifoBase + fifoStride*uint32(n) }

// GAHBCFG bits.
const (
	GAHBCFGGINT = 1 << 0 // Global interrupt enable
)

// GUSBCFG bits and fields.
const (
	GUSBCFGTOCALMask  = 0x7 << 0  // FS timeout calibration
	GUSBCFGPHYSEL     = 1 << 6    // Full-speed serial transceiver select
	GUSBCFGSRPCAP     = 1 << 8    // SRP capability
	GUSBCFGTRDTMask   = 0xF << 10 // USB turnaround time
	GUSBCFGTRDTShift  = 10
	GUSBCFGTOCALShift = 0
	GUSBCFGFDMOD      = 1 << 30 // Force device mode
)

// GRSTCTL bits and fields.
const (
	GRSTCTLCSRST       = 1 << 0    // Core soft reset
	GRSTCTLRXFFLSH     = 1 << 4    // Receive FIFO flush
	GRSTCTLTXFFLSH     = 1 << 5    // Transmit FIFO flush
	GRSTCTLTXFNUMMask  = 0x1F << 6 // Transmit FIFO number to flush
	GRSTCTLTXFNUMShift = 6
	GRSTCTLAHBIDL      = 1 << 31 // AHB master idle
)

// TXFNumAll flushes all transmit FIFOs when written to the TXFNUM field.
const TXFNumAll = 0x10

// GINTSTS and GINTMSK bits. Status bits are write-one-to-clear except
// RXFLVL and IEPINT, which are read-only reflections of pending state.
const (
	GINTRXFLVL  = 1 << 4  // Receive FIFO non-empty
	GINTUSBSUSP = 1 << 11 // USB suspend
	GINTUSBRST  = 1 << 12 // USB reset
	GINTENUMDNE = 1 << 13 // Enumeration done
	GINTIEPINT  = 1 << 18 // IN endpoint interrupt
	GINTOEPINT  = 1 << 19 // OUT endpoint interrupt
	GINTWKUPINT = 1 << 31 // Resume / remote wakeup detected
)

// GCCFG bits.
const (
	GCCFGPWRDWN     = 1 << 16 // Transceiver power down (1 = powered up)
	GCCFGNOVBUSSENS = 1 << 21 // VBUS sensing disable
)

// DCFG fields.
const (
	DCFGDSPDMask  = 0x3 << 0 // Device speed
	DCFGDSPDShift = 0
	DCFGDADMask   = 0x7F << 4 // Device address
	DCFGDADShift  = 4
)

// DCFG device speed encodings.
const (
	DSPDFullSpeed = 0x3 // Full speed with internal FS PHY
)

// DCTL bits.
const (
	DCTLSDIS = 1 << 1 // Soft disconnect
)

// DIEPMSK bits.
const (
	DIEPMSKXFRCM = 1 << 0 // Transfer completed interrupt mask
)

// DAINTMSK fields.
const (
	DAINTMSKIEPMMask = 0xFFFF << 0  // IN endpoint interrupt enables
	DAINTMSKOEPMMask = 0xFFFF << 16 // OUT endpoint interrupt enables
	DAINTMSKOEPShift = 16
)

// DIEPCTL and DOEPCTL bits and fields. The two register families share
// one bit layout; TXFNUM is meaningful only for IN endpoints.
const (
	EPCTLMPSIZMask   = 0x7FF << 0 // Maximum packet size
	EPCTLUSBAEP      = 1 << 15    // Active endpoint
	EPCTLNAKSTS      = 1 << 17    // NAK status
	EPCTLEPTYPMask   = 0x3 << 18  // Endpoint type
	EPCTLEPTYPShift  = 18
	EPCTLSTALL       = 1 << 21 // Stall handshake
	EPCTLTXFNUMMask  = 0xF << 22 // Transmit FIFO number
	EPCTLTXFNUMShift = 22
	EPCTLCNAK        = 1 << 26 // Clear NAK
	EPCTLSNAK        = 1 << 27 // Set NAK
	EPCTLSD0PID      = 1 << 28 // Set DATA0 PID
	EPCTLEPDIS       = 1 << 30 // Endpoint disable
	EPCTLEPENA       = 1 << 31 // Endpoint enable
)

// DIEPINT bits.
const (
	DIEPINTXFRC = 1 << 0 // Transfer completed
)

// DIEPTSIZ and DOEPTSIZ fields.
const (
	EPTSIZXFRSIZMask   = 0x7FFFF << 0 // Transfer size in bytes
	EPTSIZPKTCNTMask   = 0x3FF << 19  // Packet count
	EPTSIZPKTCNTShift  = 19
	EPTSIZSTUPCNTMask  = 0x3 << 29 // SETUP packet count (OUT EP0)
	EPTSIZSTUPCNTShift = 29
)

// RxStatus is a decoded receive-status queue entry (GRXSTSR/GRXSTSP).
type RxStatus uint32

// Receive packet status codes (the PKTSTS field of a status entry).
const (
	PktStsGlobalNAK     = 0x1 // Global OUT NAK effective
	PktStsOutReceived   = 0x2 // OUT data packet received
	PktStsOutCompleted  = 0x3 // OUT transaction completed
	PktStsSetupComplete = 0x4 // SETUP transaction completed
	PktStsSetupReceived = 0x6 // SETUP packet received
)

// EpNum returns the endpoint number of the status entry.
func (s RxStatus) EpNum() uint8 { return uint8(s & 0xF) }

// ByteCount returns the byte count of the received packet.
func (s RxStatus) ByteCount() uint16 { return uint16(s>>4) & 0x7FF }

// PacketStatus returns the packet status code of the entry.
func (s RxStatus) PacketStatus() uint8 { return uint8(s>>17) & 0xF }

// EncodeRxStatus packs an endpoint number, byte count, and packet status
// code into a receive-status word. The behavioral core model uses it to
// synthesize status entries; real hardware produces them directly.
func EncodeRxStatus(epNum uint8, byteCount uint16, pktSts uint8) RxStatus {
	return RxStatus(uint32(epNum&0xF) |
		uint32(byteCount&0x7FF)<<4 |
		uint32(pktSts&0xF)<<17)
}

// Block wraps an [Access] with read/modify/write helpers for one OTG
// core instance. Block performs no locking; the driver serializes access
// under its critical section.
type Block struct {
	mem Access
}

// NewBlock returns a Block over the given access primitive.
func NewBlock(mem Access) Block {
	return Block{mem: mem}
}

// Get reads the register at offset.
func (b Block) Get(offset uint32) uint32 {
	return b.mem.Read(offset)
}

// Put writes value to the register at offset.
func (b Block) Put(offset, value uint32) {
	b.mem.Write(offset, value)
}

// SetBits sets bits in the register at offset (read-modify-write).
func (b Block) SetBits(offset, bits uint32) {
	b.mem.Write(offset, b.mem.Read(offset)|bits)
}

// ClearBits clears bits in the register at offset (read-modify-write).
func (b Block) ClearBits(offset, bits uint32) {
	b.mem.Write(offset, b.mem.Read(offset)&^bits)
}

// HasBits reports whether all bits are set in the register at offset.
func (b Block) HasBits(offset, bits uint32) bool {
	return b.mem.Read(offset)&bits == bits
}

// Modify replaces the masked field of the register at offset with value,
// which must already be shifted into field position.
func (b Block) Modify(offset, mask, value uint32) {
	b.mem.Write(offset, b.mem.Read(offset)&^mask|value&mask)
}

// Field extracts the masked field of the register at offset, shifted
// down to bit 0.
func (b Block) Field(offset, mask uint32, shift uint) uint32 {
	return (b.mem.Read(offset) & mask) >> shift
}

// RxStatusPeek reads the receive-status queue head without popping it.
func (b Block) RxStatusPeek() RxStatus {
	return RxStatus(b.mem.Read(GRXSTSR))
}

// RxStatusPop pops and returns the receive-status queue head.
func (b Block) RxStatusPop() RxStatus {
	return RxStatus(b.mem.Read(GRXSTSP))
}

// FifoReadWord pops one data word from endpoint n's receive FIFO window.
func (b Block) FifoReadWord(n uint8) uint32 {
	return b.mem.Read(FIFO(n))
}

// FifoWriteWord pushes one data word to endpoint n's transmit FIFO window.
func (b Block) FifoWriteWord(n uint8, value uint32) {
	b.mem.Write(FIFO(n), value)
}
