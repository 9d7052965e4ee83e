package ppu

// dmgShades maps a 2-bit DMG color index through a palette byte (BGP/OBP0/OBP1)
// to one of four built-in greyscale shades, matching the classic DMG screen.
var dmgShades = [4]uint32{
	0xFFFFFFFF, // white
	0xFFAAAAAA,
	0xFF555555,
	0xFF000000, // black
}

func dmgColor(paletteReg byte, index byte) uint32 {
	shade := (paletteReg >> (index * 2)) & 0x03
	return dmgShades[shade]
}

// cgbColor converts a BGR555 palette entry (two bytes, little-endian) into
// an opaque RGBA8888 color using the common 5-to-8-bit channel expansion.
func cgbColor(lo, hi byte) uint32 {
	v := uint16(lo) | uint16(hi)<<8
	r5 := byte(v & 0x1F)
	g5 := byte((v >> 5) & 0x1F)
	b5 := byte((v >> 10) & 0x1F)
	expand := func(c5 byte) byte { return (c5 << 3) | (c5 >> 2) }
	r, g, b := expand(r5), expand(g5), expand(b5)
	return 0xFF000000 | uint32(b)<<16 | uint32(g)<<8 | uint32(r)
}

type spriteEntry struct {
	y, x, tile, attr byte
	oamIndex         int
}

// renderScanline composites BG, window, and sprites for the current LY
// into the frame buffer. Called once, at the HBlank transition, so the
// whole line is produced atomically rather than dot-by-dot.
func (p *PPU) renderScanline() {
	ly := p.ly
	if ly >= 144 {
		return
	}

	bgEnabled := p.lcdc&0x01 != 0 || p.cgb // on CGB bit0 repurposed as priority override
	winEnabled := p.lcdc&0x20 != 0 && p.wy <= ly
	objEnabled := p.lcdc&0x02 != 0
	tallSprites := p.lcdc&0x04 != 0

	bgMapBase := uint16(0x9800)
	if p.lcdc&0x08 != 0 {
		bgMapBase = 0x9C00
	}
	winMapBase := uint16(0x9800)
	if p.lcdc&0x40 != 0 {
		winMapBase = 0x9C00
	}
	tileData8000 := p.lcdc&0x10 != 0

	var lineColor [160]uint32
	var lineBGIndex [160]byte // raw BG/window color index, for sprite priority
	var lineBGAttrPrio [160]bool

	if bgEnabled {
		bgY := uint16(ly) + uint16(p.scy)
		mapRow := (bgY >> 3) & 31
		fineY := byte(bgY & 7)
		for x := 0; x < 160; x++ {
			bgX := (uint16(x) + uint16(p.scx))
			mapCol := (bgX >> 3) & 31
			fineX := byte(bgX & 7)
			idx, attr := p.fetchBGPixel(bgMapBase, mapRow, mapCol, fineX, fineY, tileData8000)
			lineBGIndex[x] = idx
			lineBGAttrPrio[x] = attr&0x80 != 0
			lineColor[x] = p.bgWindowColor(idx, attr)
		}
	} else {
		for x := 0; x < 160; x++ {
			lineColor[x] = dmgShades[0]
		}
	}

	if winEnabled {
		wx := int(p.wx) - 7
		drew := false
		winFineY := byte(p.winLine & 7)
		mapRow := uint16(p.winLine>>3) & 31
		for x := 0; x < 160; x++ {
			if x < wx {
				continue
			}
			drew = true
			winX := uint16(x - wx)
			mapCol := (winX >> 3) & 31
			fineX := byte(winX & 7)
			idx, attr := p.fetchBGPixel(winMapBase, mapRow, mapCol, fineX, winFineY, tileData8000)
			lineBGIndex[x] = idx
			lineBGAttrPrio[x] = attr&0x80 != 0
			lineColor[x] = p.bgWindowColor(idx, attr)
		}
		if drew {
			p.winLine++
		}
	}

	if objEnabled {
		p.renderSprites(ly, tallSprites, lineColor[:], lineBGIndex[:], lineBGAttrPrio[:])
	}

	base := int(ly) * 160
	copy(p.frame[base:base+160], lineColor[:])
}

// fetchBGPixel returns the 2-bit color index and CGB tile attribute byte
// (0 on DMG) for one BG/window pixel.
func (p *PPU) fetchBGPixel(mapBase uint16, mapRow, mapCol uint16, fineX, fineY byte, tileData8000 bool) (byte, byte) {
	mapAddr := mapBase + mapRow*32 + mapCol
	tileNum := p.vram[0][mapAddr-0x8000]

	var attr byte
	bank := 0
	flipX, flipY := false, false
	if p.cgb {
		attr = p.vram[1][mapAddr-0x8000]
		bank = int((attr >> 3) & 0x01)
		flipX = attr&0x20 != 0
		flipY = attr&0x40 != 0
	}

	effFineY := fineY
	if flipY {
		effFineY = 7 - fineY
	}

	var tileBase uint16
	if tileData8000 {
		tileBase = 0x8000 + uint16(tileNum)*16 + uint16(effFineY)*2
	} else {
		tileBase = 0x9000 + uint16(int8(tileNum))*16 + uint16(effFineY)*2
	}
	lo := p.vram[bank][tileBase-0x8000]
	hi := p.vram[bank][tileBase+1-0x8000]

	bit := fineX
	if !flipX {
		bit = 7 - fineX
	}
	idx := ((hi>>bit)&1)<<1 | ((lo >> bit) & 1)
	return idx, attr
}

func (p *PPU) bgWindowColor(idx, attr byte) uint32 {
	if p.cgb {
		pal := attr & 0x07
		off := int(pal)*8 + int(idx)*2
		return cgbColor(p.bgPalette[off], p.bgPalette[off+1])
	}
	return dmgColor(p.bgp, idx)
}

func (p *PPU) renderSprites(ly byte, tall bool, line []uint32, bgIndex []byte, bgPriority []bool) {
	height := 8
	if tall {
		height = 16
	}

	var candidates []spriteEntry
	for i := 0; i < 40 && len(candidates) < 10; i++ {
		off := i * 4
		y := p.oam[off] - 16
		x := p.oam[off+1]
		tile := p.oam[off+2]
		attr := p.oam[off+3]
		if int(ly) < int(y) || int(ly) >= int(y)+height {
			continue
		}
		candidates = append(candidates, spriteEntry{y: y, x: x, tile: tile, attr: attr, oamIndex: i})
	}

	if !p.cgb {
		// DMG priority: smaller X wins; OAM index breaks ties. Sort so the
		// highest-priority sprite is drawn last (so it overwrites lower
		// priority pixels as we iterate in order below).
		for i := 1; i < len(candidates); i++ {
			j := i
			for j > 0 && (candidates[j].x > candidates[j-1].x ||
				(candidates[j].x == candidates[j-1].x && candidates[j].oamIndex > candidates[j-1].oamIndex)) {
				candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
				j--
			}
		}
	} else {
		// CGB priority is pure OAM order; reverse so index 0 draws last
		// (highest priority) using the same "later draws win" loop below.
		for i, j := 0, len(candidates)-1; i < j; i, j = i+1, j-1 {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		}
	}

	for _, s := range candidates {
		tile := s.tile
		if tall {
			tile &^= 0x01
		}
		flipY := s.attr&0x40 != 0
		flipX := s.attr&0x20 != 0
		rowInSprite := int(ly) - int(s.y)
		if flipY {
			rowInSprite = height - 1 - rowInSprite
		}
		useTile := uint16(tile)
		if tall && rowInSprite >= 8 {
			useTile++
			rowInSprite -= 8
		}
		bank := 0
		if p.cgb {
			bank = int((s.attr >> 3) & 0x01)
		}
		tileBase := 0x8000 + useTile*16 + uint16(rowInSprite)*2
		lo := p.vram[bank][tileBase-0x8000]
		hi := p.vram[bank][tileBase+1-0x8000]

		behindBG := s.attr&0x80 != 0

		for px := 0; px < 8; px++ {
			sx := int(s.x) - 8 + px
			if sx < 0 || sx >= 160 {
				continue
			}
			bit := px
			if !flipX {
				bit = 7 - px
			}
			idx := ((hi>>byte(bit))&1)<<1 | ((lo >> byte(bit)) & 1)
			if idx == 0 {
				continue // transparent
			}
			if behindBG && bgIndex[sx] != 0 {
				continue
			}
			if p.cgb && bgPriority[sx] && bgIndex[sx] != 0 && p.lcdc&0x01 != 0 {
				continue // CGB master BG-over-OBJ priority bit
			}
			line[sx] = p.objColor(idx, s.attr)
		}
	}
}

func (p *PPU) objColor(idx, attr byte) uint32 {
	if p.cgb {
		pal := attr & 0x07
		off := int(pal)*8 + int(idx)*2
		return cgbColor(p.objPalette[off], p.objPalette[off+1])
	}
	reg := p.obp0
	if attr&0x10 != 0 {
		reg = p.obp1
	}
	return dmgColor(reg, idx)
}
