// Package dma implements the Game Boy's block-transfer engines: OAM DMA
// (0xFF46, all models) and the CGB general-purpose/HBlank VRAM DMA pair
// (HDMA1-5, 0xFF51-0xFF55). Both engines operate on plain read/write
// callbacks so they stay decoupled from the bus's concrete memory map.
package dma

// ReadFunc and WriteFunc are bus-level accessors the DMA engines use.
type ReadFunc func(addr uint16) byte
type WriteFunc func(addr uint16, value byte)

// OAM implements the 0xFF46-triggered object-attribute-memory transfer:
// 160 bytes copied at 4 T-cycles per byte (640 T-cycles total) per
// SPEC_FULL.md §4.7. While Active, the bus must deny all non-HRAM/IE
// access.
type OAM struct {
	active bool
	src    uint16
	index  int
	sub    int // T-cycles elapsed within the current byte, 0..3
}

// Start begins a transfer from src (already shifted: written value << 8).
func (o *OAM) Start(src uint16) {
	o.active = true
	o.src = src
	o.index = 0
	o.sub = 0
}

func (o *OAM) Active() bool { return o.active }

// Tick advances the transfer by one T-cycle, copying one byte every 4th
// cycle.
func (o *OAM) Tick(read ReadFunc, write WriteFunc) {
	if !o.active {
		return
	}
	o.sub++
	if o.sub < 4 {
		return
	}
	o.sub = 0
	write(0xFE00+uint16(o.index), read(o.src+uint16(o.index)))
	o.index++
	if o.index >= 0xA0 {
		o.active = false
	}
}

// HDMA implements the CGB general-purpose (GDMA) and HBlank-triggered
// (HDMA) VRAM block transfers via the 0xFF51-0xFF55 register window, per
// spec.md §4.7: GDMA copies length bytes in one shot; HDMA copies one
// 16-byte block each time the PPU enters Mode 0, until the length field
// wraps to 0xFF or is cancelled by a bit7=0 write to HDMA5.
type HDMA struct {
	srcHi, srcLo byte
	dstHi, dstLo byte

	length int // remaining 16-byte blocks; <=0 means inactive
	src    uint16
	dst    uint16
}

func (h *HDMA) WriteSrcHi(v byte) { h.srcHi = v }
func (h *HDMA) WriteSrcLo(v byte) { h.srcLo = v & 0xF0 }
func (h *HDMA) WriteDstHi(v byte) { h.dstHi = v & 0x1F }
func (h *HDMA) WriteDstLo(v byte) { h.dstLo = v & 0xF0 }

// WriteControl handles a write to HDMA5. When it returns startGDMA=true,
// the caller must immediately copy `blocks*16` bytes from Source() to
// Dest() and then call FinishGDMA; this type models no CPU stall time. Otherwise the transfer is now armed (or cancelled) for
// per-HBlank stepping via StepHBlankBlock.
func (h *HDMA) WriteControl(v byte) (blocks int, startGDMA bool) {
	if h.length > 0 && v&0x80 == 0 {
		h.length = 0 // cancel an active HBlank transfer
		return 0, false
	}
	h.src = uint16(h.srcHi)<<8 | uint16(h.srcLo)
	h.dst = 0x8000 | uint16(h.dstHi)<<8 | uint16(h.dstLo)
	blocks = int(v&0x7F) + 1
	if v&0x80 == 0 {
		h.length = 0
		return blocks, true
	}
	h.length = blocks
	return blocks, false
}

// FinishGDMA clears the armed state after the caller performs an
// immediate general-purpose transfer.
func (h *HDMA) FinishGDMA() { h.length = 0 }

// Source and Dest report the current (auto-advancing) transfer addresses.
func (h *HDMA) Source() uint16 { return h.src }
func (h *HDMA) Dest() uint16   { return h.dst }

// ReadControl returns the HDMA5 readback value: bit7 clear plus
// remaining-blocks-1 while active, 0xFF once complete or inactive.
func (h *HDMA) ReadControl() byte {
	if h.length <= 0 {
		return 0xFF
	}
	return byte(h.length - 1)
}

func (h *HDMA) Active() bool { return h.length > 0 }

// StepHBlankBlock performs one 16-byte block's worth of address
// bookkeeping; call once per HBlank entry while Active(). The caller
// copies the 16 bytes at the returned addresses.
func (h *HDMA) StepHBlankBlock() (src, dst uint16, ok bool) {
	if h.length <= 0 {
		return 0, 0, false
	}
	src, dst = h.src, h.dst
	h.src += 16
	h.dst += 16
	h.length--
	return src, dst, true
}
