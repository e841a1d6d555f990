package otg

import (
	"github.com/ardnew/otgusb/bus"
	"github.com/ardnew/otgusb/otg/regs"
	"github.com/ardnew/otgusb/pkg"
)

// endpointAllocator assigns endpoint numbers and directions, bounded by
// the hardware endpoint count, and reserves packet memory through the
// memory allocator. One per Bus, created at construction, never torn
// down.
//
// Invariant: bit n of a direction's bitmap is set exactly when slot n of
// that direction's array holds a live endpoint.
type endpointAllocator struct {
	bitmapIn     uint8
	bitmapOut    uint8
	endpointsIn  [EndpointCount]*EndpointIn
	endpointsOut [EndpointCount]*EndpointOut
	memory       *memoryAllocator
	regs         regs.Block
}

func newEndpointAllocator(block regs.Block, pool []byte) *endpointAllocator {
	return &endpointAllocator{
		memory: newMemoryAllocator(pool),
		regs:   block,
	}
}

// allocNumber claims an endpoint number in the given direction's bitmap.
// An explicit request fails on an out-of-range or occupied number; an
// automatic request scans upward from 1, never handing out the control
// endpoint number 0.
func allocNumber(bitmap *uint8, number int) (uint8, error) {
	if number != bus.AutoNumber {
		if number < 0 || number >= EndpointCount {
			return 0, pkg.ErrInvalidEndpoint
		}
		if *bitmap&(1<<number) != 0 {
			return 0, pkg.ErrInvalidEndpoint
		}
		*bitmap |= 1 << number
		return uint8(number), nil
	}

	// Skip EP0
	for n := uint8(1); n < EndpointCount; n++ {
		if *bitmap&(1<<n) == 0 {
			*bitmap |= 1 << n
			return n, nil
		}
	}
	return 0, pkg.ErrEndpointOverflow
}

// alloc claims a number and builds the descriptor for it.
func alloc(bitmap *uint8, cfg bus.EndpointConfig, dir bus.Direction) (EndpointDescriptor, error) {
	number, err := allocNumber(bitmap, cfg.Number)
	if err != nil {
		return EndpointDescriptor{}, err
	}
	return EndpointDescriptor{
		Address:       bus.NewEndpointAddress(number, dir),
		Type:          cfg.Type,
		MaxPacketSize: cfg.MaxPacketSize,
		Interval:      cfg.Interval,
	}, nil
}

// allocIn claims an IN endpoint and plans its transmit FIFO.
//
// The bitmap bit stays claimed even when the FIFO planning fails; see
// the package notes on allocation rollback.
func (a *endpointAllocator) allocIn(cfg bus.EndpointConfig) (*EndpointIn, error) {
	descriptor, err := alloc(&a.bitmapIn, cfg, bus.DirectionIn)
	if err != nil {
		return nil, err
	}
	if err := a.memory.allocateTxFifo(descriptor.Address.Index(), descriptor.MaxPacketSize); err != nil {
		return nil, err
	}
	return newEndpointIn(descriptor, a.regs), nil
}

// allocOut claims an OUT endpoint and carves its receive buffer.
//
// As with allocIn, buffer exhaustion does not release the claimed
// bitmap bit.
func (a *endpointAllocator) allocOut(cfg bus.EndpointConfig) (*EndpointOut, error) {
	descriptor, err := alloc(&a.bitmapOut, cfg, bus.DirectionOut)
	if err != nil {
		return nil, err
	}
	buffer, err := a.memory.allocateRxBuffer(descriptor.MaxPacketSize)
	if err != nil {
		return nil, err
	}
	return newEndpointOut(descriptor, a.regs, buffer), nil
}

// allocEndpoint dispatches on direction and stores the resulting
// endpoint in its number's slot.
func (a *endpointAllocator) allocEndpoint(dir bus.Direction, cfg bus.EndpointConfig) (bus.EndpointAddress, error) {
	switch dir {
	case bus.DirectionOut:
		ep, err := a.allocOut(cfg)
		if err != nil {
			return 0, err
		}
		a.endpointsOut[ep.Address().Index()] = ep
		pkg.LogDebug(pkg.ComponentAllocator, "endpoint allocated",
			"address", ep.Address().String(),
			"type", ep.Descriptor().Type.String(),
			"maxPacketSize", ep.Descriptor().MaxPacketSize)
		return ep.Address(), nil
	default:
		ep, err := a.allocIn(cfg)
		if err != nil {
			return 0, err
		}
		a.endpointsIn[ep.Address().Index()] = ep
		pkg.LogDebug(pkg.ComponentAllocator, "endpoint allocated",
			"address", ep.Address().String(),
			"type", ep.Descriptor().Type.String(),
			"maxPacketSize", ep.Descriptor().MaxPacketSize)
		return ep.Address(), nil
	}
}
