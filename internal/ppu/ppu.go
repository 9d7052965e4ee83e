package ppu

// InterruptRequester is a callback signature to request IF bits (0:VBlank, 1:STAT, etc.).
type InterruptRequester func(bit int)

// Mode-3 length is nominally 172-289 dots depending on sprite/window load;
// this scheduler uses the fixed Pan Docs approximation (80/172/204) rather
// than per-dot sprite-fetch penalties, matching SPEC_FULL.md's scope.
const (
	ModeHBlank = 0
	ModeVBlank = 1
	ModeOAM    = 2
	ModeDraw   = 3
)

// PPU models VRAM/OAM, LCDC/STAT regs, LY/LYC, CGB palette RAM, and a
// scanline renderer that composites BG, window, and sprites into an RGBA
// frame buffer once per HBlank entry.
type PPU struct {
	vram [2][0x2000]byte // bank 0 always; bank 1 only meaningful in CGB mode
	vbk  byte            // FF4F: VRAM bank select (CGB)
	oam  [0xA0]byte      // 0xFE00-0xFE9F

	lcdc byte // FF40
	stat byte // FF41
	scy  byte // FF42
	scx  byte // FF43
	ly   byte // FF44
	lyc  byte // FF45
	bgp  byte // FF47 (DMG)
	obp0 byte // FF48 (DMG)
	obp1 byte // FF49 (DMG)
	wy   byte // FF4A
	wx   byte // FF4B

	// CGB palette RAM: 8 palettes * 4 colors * 2 bytes (BGR555).
	bgPalette  [64]byte
	objPalette [64]byte
	bcps       byte // FF68
	ocps       byte // FF6A

	dot      int  // dots within current line [0..455]
	winLine  int  // internal window line counter, advances only on drawn rows
	cgb      bool // Game Boy Color mode active

	frame     [160 * 144]uint32 // RGBA8888, row-major
	frameDone bool              // set once per VBlank entry; cleared by ConsumeFrame

	req InterruptRequester
}

// New constructs a DMG-mode PPU.
func New(req InterruptRequester) *PPU { return NewCGB(req, false) }

// NewCGB constructs a PPU with CGB palette RAM and VRAM bank 1 enabled
// when cgb is true.
func NewCGB(req InterruptRequester, cgb bool) *PPU { return &PPU{req: req, cgb: cgb} }

func (p *PPU) vramBank() int {
	if p.cgb {
		return int(p.vbk & 0x01)
	}
	return 0
}

// CPURead returns bytes for VRAM, OAM, and PPU IO registers. Returns 0xFF for others.
func (p *PPU) CPURead(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if (p.stat & 0x03) == ModeDraw {
			return 0xFF
		}
		return p.vram[p.vramBank()][addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		m := p.stat & 0x03
		if m == ModeOAM || m == ModeDraw {
			return 0xFF
		}
		return p.oam[addr-0xFE00]
	case addr == 0xFF40:
		return p.lcdc
	case addr == 0xFF41:
		return 0x80 | (p.stat & 0x7F)
	case addr == 0xFF42:
		return p.scy
	case addr == 0xFF43:
		return p.scx
	case addr == 0xFF44:
		return p.ly
	case addr == 0xFF45:
		return p.lyc
	case addr == 0xFF47:
		return p.bgp
	case addr == 0xFF48:
		return p.obp0
	case addr == 0xFF49:
		return p.obp1
	case addr == 0xFF4A:
		return p.wy
	case addr == 0xFF4B:
		return p.wx
	case addr == 0xFF4F:
		if !p.cgb {
			return 0xFF
		}
		return 0xFE | (p.vbk & 0x01)
	case addr == 0xFF68:
		return p.bcps
	case addr == 0xFF69:
		if !p.cgb {
			return 0xFF
		}
		return p.bgPalette[p.bcps&0x3F]
	case addr == 0xFF6A:
		return p.ocps
	case addr == 0xFF6B:
		if !p.cgb {
			return 0xFF
		}
		return p.objPalette[p.ocps&0x3F]
	default:
		return 0xFF
	}
}

// CPUWrite handles writes to VRAM, OAM, and PPU IO regs. Others are ignored here.
func (p *PPU) CPUWrite(addr uint16, value byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if (p.stat & 0x03) == ModeDraw {
			return
		}
		p.vram[p.vramBank()][addr-0x8000] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		m := p.stat & 0x03
		if m == ModeOAM || m == ModeDraw {
			return
		}
		p.oam[addr-0xFE00] = value
	case addr == 0xFF40:
		prev := p.lcdc
		p.lcdc = value
		if (p.lcdc&0x80) == 0 && (prev&0x80) != 0 {
			p.ly = 0
			p.dot = 0
			p.winLine = 0
			p.setMode(ModeHBlank)
			p.updateLYC()
		} else if (p.lcdc&0x80) != 0 && (prev&0x80) == 0 {
			p.ly = 0
			p.dot = 0
			p.setMode(ModeOAM)
			p.updateLYC()
		}
	case addr == 0xFF41:
		p.stat = (p.stat & 0x07) | (value & 0x78)
	case addr == 0xFF42:
		p.scy = value
	case addr == 0xFF43:
		p.scx = value
	case addr == 0xFF44:
		p.ly = 0
		p.dot = 0
		p.updateLYC()
		if (p.lcdc & 0x80) != 0 {
			p.setMode(ModeOAM)
		}
	case addr == 0xFF45:
		p.lyc = value
		p.updateLYC()
	case addr == 0xFF47:
		p.bgp = value
	case addr == 0xFF48:
		p.obp0 = value
	case addr == 0xFF49:
		p.obp1 = value
	case addr == 0xFF4A:
		p.wy = value
	case addr == 0xFF4B:
		p.wx = value
	case addr == 0xFF4F:
		if p.cgb {
			p.vbk = value & 0x01
		}
	case addr == 0xFF68:
		p.bcps = value & 0xBF
	case addr == 0xFF69:
		if !p.cgb {
			return
		}
		p.bgPalette[p.bcps&0x3F] = value
		if p.bcps&0x80 != 0 {
			p.bcps = 0x80 | ((p.bcps + 1) & 0x3F)
		}
	case addr == 0xFF6A:
		p.ocps = value & 0xBF
	case addr == 0xFF6B:
		if !p.cgb {
			return
		}
		p.objPalette[p.ocps&0x3F] = value
		if p.ocps&0x80 != 0 {
			p.ocps = 0x80 | ((p.ocps + 1) & 0x3F)
		}
	}
}

// VRAMRead reads VRAM from a specific bank, bypassing CPU access gating.
// Used by DMA engines and the renderer, which must see bank-1 tile/attribute
// data regardless of the CPU-visible VBK selection.
func (p *PPU) VRAMRead(bank int, addr uint16) byte {
	if bank < 0 || bank > 1 || addr < 0x8000 || addr > 0x9FFF {
		return 0xFF
	}
	return p.vram[bank][addr-0x8000]
}

// VRAMWrite writes VRAM in a specific bank; used by GDMA/HDMA, which target
// VRAM directly and are not subject to the mode-3 CPU lockout.
func (p *PPU) VRAMWrite(bank int, addr uint16, value byte) {
	if bank < 0 || bank > 1 || addr < 0x8000 || addr > 0x9FFF {
		return
	}
	p.vram[bank][addr-0x8000] = value
}

// OAMWriteDirect writes OAM bytes bypassing the mode2/3 CPU lockout, for
// the OAM DMA engine (which is not a CPU access and is never blocked by
// its own transfer).
func (p *PPU) OAMWriteDirect(addr uint16, value byte) {
	if addr < 0xFE00 || addr > 0xFE9F {
		return
	}
	p.oam[addr-0xFE00] = value
}

// Tick advances PPU state by the given number of dots (T-cycles).
func (p *PPU) Tick(cycles int) {
	if cycles <= 0 {
		return
	}
	for i := 0; i < cycles; i++ {
		if (p.lcdc & 0x80) == 0 {
			continue
		}
		p.dot++

		var mode byte
		if p.ly >= 144 {
			mode = ModeVBlank
		} else {
			switch {
			case p.dot < 80:
				mode = ModeOAM
			case p.dot < 80+172:
				mode = ModeDraw
			default:
				mode = ModeHBlank
			}
		}
		prevMode := p.stat & 0x03
		p.setMode(mode)
		if mode == ModeHBlank && prevMode == ModeDraw {
			p.renderScanline()
		}

		if p.dot >= 456 {
			p.dot = 0
			p.ly++
			if p.ly == 144 {
				p.frameDone = true
				if p.req != nil {
					p.req(0)
				}
				if (p.stat & (1 << 4)) != 0 {
					if p.req != nil {
						p.req(1)
					}
				}
			} else if p.ly > 153 {
				p.ly = 0
				p.winLine = 0
			}
			p.updateLYC()
			if p.ly >= 144 {
				p.setMode(ModeVBlank)
			} else {
				p.setMode(ModeOAM)
			}
		}
	}
}

func (p *PPU) setMode(mode byte) {
	prev := p.stat & 0x03
	if prev == mode {
		return
	}
	p.stat = (p.stat &^ 0x03) | (mode & 0x03)
	switch mode {
	case ModeHBlank:
		if (p.stat & (1 << 3)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	case ModeOAM:
		if (p.stat & (1 << 5)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	}
}

func (p *PPU) updateLYC() {
	if p.ly == p.lyc {
		p.stat |= 1 << 2
		if (p.stat & (1 << 6)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	} else {
		p.stat &^= 1 << 2
	}
}

// ConsumeFrame reports whether a full frame has completed since the last
// call, returning the RGBA8888 pixel buffer (row-major, 160x144).
func (p *PPU) ConsumeFrame() (*[160 * 144]uint32, bool) {
	if !p.frameDone {
		return nil, false
	}
	p.frameDone = false
	return &p.frame, true
}

// Frame returns the current frame buffer without consuming the done flag,
// for hosts that redraw every tick rather than waiting for VBlank.
func (p *PPU) Frame() *[160 * 144]uint32 { return &p.frame }

// Expose palettes and scroll for renderer convenience (optional helpers)
func (p *PPU) BGP() byte  { return p.bgp }
func (p *PPU) OBP0() byte { return p.obp0 }
func (p *PPU) OBP1() byte { return p.obp1 }
func (p *PPU) LCDC() byte { return p.lcdc }
func (p *PPU) SCY() byte  { return p.scy }
func (p *PPU) SCX() byte  { return p.scx }
func (p *PPU) WY() byte   { return p.wy }
func (p *PPU) WX() byte   { return p.wx }
