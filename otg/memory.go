package otg

import (
	"github.com/ardnew/otgusb/otg/regs"
	"github.com/ardnew/otgusb/pkg"
)

// minTxFifoWords is the smallest transmit FIFO the core accepts, in
// 32-bit words. Unallocated FIFOs are still planned at this size.
const minTxFifoWords = 16

// maxTxFifos bounds the per-number transmit FIFO size table. Core
// variants provide between EndpointCount and maxTxFifos transmit FIFOs.
const maxTxFifos = 6

// memoryAllocator plans transmit FIFO sizes per endpoint number and
// carves OUT packet buffers from one fixed pool. Sizes are reported in
// 32-bit words, the granularity of the core's FIFO memory.
type memoryAllocator struct {
	txFifoWords  [maxTxFifos]uint16
	pool         []byte
	poolUsed     int
	rxTotalWords uint16
}

func newMemoryAllocator(pool []byte) *memoryAllocator {
	return &memoryAllocator{pool: pool}
}

// sizeWords converts a byte size to 32-bit words, rounding up.
func sizeWords(size uint16) uint16 {
	return (size + 3) / 4
}

// allocateTxFifo plans the transmit FIFO for the given endpoint number.
func (m *memoryAllocator) allocateTxFifo(number uint8, maxPacketSize uint16) error {
	if int(number) >= len(m.txFifoWords) {
		return pkg.ErrInvalidEndpoint
	}
	words := sizeWords(maxPacketSize)
	if words < minTxFifoWords {
		words = minTxFifoWords
	}
	m.txFifoWords[number] = words
	return nil
}

// txFifoSizeWords returns the planned size of transmit FIFO number, in
// words. FIFOs without an allocated endpoint report the hardware
// minimum.
func (m *memoryAllocator) txFifoSizeWords(number int) uint16 {
	words := uint16(0)
	if number < len(m.txFifoWords) {
		words = m.txFifoWords[number]
	}
	if words < minTxFifoWords {
		words = minTxFifoWords
	}
	return words
}

// allocateRxBuffer carves a receive packet buffer from the pool and
// accounts its word size toward the shared receive FIFO plan.
func (m *memoryAllocator) allocateRxBuffer(maxPacketSize uint16) (*endpointBuffer, error) {
	size := int(sizeWords(maxPacketSize)) * 4
	if m.poolUsed+size > len(m.pool) {
		return nil, pkg.ErrNoMemory
	}
	buf := &endpointBuffer{
		data: m.pool[m.poolUsed : m.poolUsed+size],
	}
	m.poolUsed += size
	m.rxTotalWords += sizeWords(maxPacketSize)
	return buf, nil
}

// totalRxBufferWords returns the word total of all allocated receive
// buffers.
func (m *memoryAllocator) totalRxBufferWords() uint16 {
	return m.rxTotalWords
}

// endpointBuffer is the single-packet software receive buffer of one OUT
// endpoint. All mutation happens under the bus critical section.
type endpointBuffer struct {
	data  []byte
	count uint16
	state pkg.BufferState
}

// fillFromFIFO pops count bytes of packet data from the shared receive
// FIFO through endpoint n's FIFO window and tags the buffer Setup or
// Out. The FIFO words are always drained, even when the packet exceeds
// the buffer; the overflow is truncated and reported.
func (b *endpointBuffer) fillFromFIFO(block regs.Block, n uint8, count uint16, isSetup bool) error {
	stored := int(count)
	if stored > len(b.data) {
		stored = len(b.data)
	}

	words := (int(count) + 3) / 4
	for i := 0; i < words; i++ {
		w := block.FifoReadWord(n)
		for j := 0; j < 4; j++ {
			idx := i*4 + j
			if idx < stored {
				b.data[idx] = byte(w >> (8 * j))
			}
		}
	}

	b.count = uint16(stored)
	if isSetup {
		b.state = pkg.BufferDataSetup
	} else {
		b.state = pkg.BufferDataOut
	}

	if stored < int(count) {
		return pkg.ErrOverrun
	}
	return nil
}

// read drains the buffered packet into buf and returns the buffer to
// Empty. A too-small buf leaves the packet buffered.
func (b *endpointBuffer) read(buf []byte) (int, error) {
	if b.state == pkg.BufferEmpty {
		return 0, pkg.ErrWouldBlock
	}
	if len(buf) < int(b.count) {
		return 0, pkg.ErrBufferTooSmall
	}
	n := copy(buf, b.data[:b.count])
	b.count = 0
	b.state = pkg.BufferEmpty
	return n, nil
}

// reset discards any buffered packet.
func (b *endpointBuffer) reset() {
	b.count = 0
	b.state = pkg.BufferEmpty
}
