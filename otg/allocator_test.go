package otg

import (
	"errors"
	"testing"

	"github.com/ardnew/otgusb/bus"
	"github.com/ardnew/otgusb/otg/regs"
	"github.com/ardnew/otgusb/pkg"
)

func TestAllocNumberExplicit(t *testing.T) {
	tests := []struct {
		name    string
		bitmap  uint8
		number  int
		want    uint8
		wantErr error
	}{
		{name: "free number", bitmap: 0, number: 2, want: 2},
		{name: "control number", bitmap: 0, number: 0, want: 0},
		{name: "occupied number", bitmap: 1 << 2, number: 2, wantErr: pkg.ErrInvalidEndpoint},
		{name: "out of range", bitmap: 0, number: EndpointCount, wantErr: pkg.ErrInvalidEndpoint},
		{name: "negative", bitmap: 0, number: -2, wantErr: pkg.ErrInvalidEndpoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bitmap := tt.bitmap
			got, err := allocNumber(&bitmap, tt.number)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				if bitmap != tt.bitmap {
					t.Errorf("failed request mutated bitmap: %08b -> %08b", tt.bitmap, bitmap)
				}
				return
			}
			if got != tt.want {
				t.Errorf("number = %d, want %d", got, tt.want)
			}
			if bitmap&(1<<got) == 0 {
				t.Errorf("bitmap %08b does not claim number %d", bitmap, got)
			}
		})
	}
}

func TestAllocNumberAuto(t *testing.T) {
	var bitmap uint8

	// Automatic allocation never hands out the control endpoint.
	for want := uint8(1); want < EndpointCount; want++ {
		got, err := allocNumber(&bitmap, bus.AutoNumber)
		if err != nil {
			t.Fatalf("allocNumber: %v", err)
		}
		if got != want {
			t.Fatalf("number = %d, want %d", got, want)
		}
	}

	before := bitmap
	if _, err := allocNumber(&bitmap, bus.AutoNumber); !errors.Is(err, pkg.ErrEndpointOverflow) {
		t.Fatalf("exhausted: err = %v, want ErrEndpointOverflow", err)
	}
	if bitmap != before {
		t.Errorf("overflow mutated bitmap: %08b -> %08b", before, bitmap)
	}

	// Number 0 remains claimable explicitly.
	if got, err := allocNumber(&bitmap, 0); err != nil || got != 0 {
		t.Errorf("explicit 0 after exhaustion: got %d, %v", got, err)
	}
}

func TestAllocEndpointDirectionsIndependent(t *testing.T) {
	block := regs.NewBlock(newFifoAccess())
	a := newEndpointAllocator(block, make([]byte, 64))

	out, err := a.allocEndpoint(bus.DirectionOut, bus.EndpointConfig{
		Number: 1, Type: bus.EndpointTypeBulk, MaxPacketSize: 16,
	})
	if err != nil {
		t.Fatalf("alloc OUT: %v", err)
	}
	in, err := a.allocEndpoint(bus.DirectionIn, bus.EndpointConfig{
		Number: 1, Type: bus.EndpointTypeBulk, MaxPacketSize: 16,
	})
	if err != nil {
		t.Fatalf("alloc IN sharing a number with OUT: %v", err)
	}

	if out.Index() != 1 || out.IsIn() {
		t.Errorf("OUT address = %v", out)
	}
	if in.Index() != 1 || !in.IsIn() {
		t.Errorf("IN address = %v", in)
	}
	if a.endpointsOut[1] == nil || a.endpointsIn[1] == nil {
		t.Error("allocated endpoints missing from their slots")
	}
}

func TestAllocEndpointKeepsClaimOnMemoryFailure(t *testing.T) {
	block := regs.NewBlock(newFifoAccess())
	// Room for exactly one 64-byte packet buffer.
	a := newEndpointAllocator(block, make([]byte, 64))

	if _, err := a.allocEndpoint(bus.DirectionOut, bus.EndpointConfig{
		Number: bus.AutoNumber, Type: bus.EndpointTypeBulk, MaxPacketSize: 64,
	}); err != nil {
		t.Fatalf("first alloc: %v", err)
	}

	// The pool is spent; the next allocation fails but its claimed
	// number is not released.
	if _, err := a.allocEndpoint(bus.DirectionOut, bus.EndpointConfig{
		Number: bus.AutoNumber, Type: bus.EndpointTypeBulk, MaxPacketSize: 64,
	}); !errors.Is(err, pkg.ErrNoMemory) {
		t.Fatalf("second alloc: err = %v, want ErrNoMemory", err)
	}
	if a.endpointsOut[2] != nil {
		t.Error("failed allocation left an endpoint in its slot")
	}
	if a.bitmapOut&(1<<2) == 0 {
		t.Error("failed allocation released its claimed number")
	}
	if _, err := a.allocEndpoint(bus.DirectionOut, bus.EndpointConfig{
		Number: 2, Type: bus.EndpointTypeBulk, MaxPacketSize: 8,
	}); !errors.Is(err, pkg.ErrInvalidEndpoint) {
		t.Errorf("re-request of leaked number: err = %v, want ErrInvalidEndpoint", err)
	}
}

func TestAllocEndpointAutoSkipsControl(t *testing.T) {
	block := regs.NewBlock(newFifoAccess())
	a := newEndpointAllocator(block, make([]byte, 256))

	addr, err := a.allocEndpoint(bus.DirectionIn, bus.EndpointConfig{
		Number: bus.AutoNumber, Type: bus.EndpointTypeInterrupt, MaxPacketSize: 8,
	})
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if addr.Index() == 0 {
		t.Error("automatic allocation handed out the control endpoint")
	}
}
