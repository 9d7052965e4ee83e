package cart

// romOnly implements a cartridge with a single fixed ROM bank and, for
// cart types 0x08/0x09, a flat unbanked external RAM window.
type romOnly struct {
	rom     []byte
	ram     []byte
	battery bool
}

func newROMOnly(rom []byte, ramSize int, battery bool) *romOnly {
	c := &romOnly{rom: rom, battery: battery}
	if ramSize > 0 {
		c.ram = make([]byte, ramSize)
	}
	return c
}

// NewROMOnly wraps rom as a cartridge with no banking and no external RAM,
// without checking its header.
func NewROMOnly(rom []byte) Cartridge { return newROMOnly(rom, 0, false) }

func (c *romOnly) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		if int(addr) < len(c.rom) {
			return c.rom[addr]
		}
		return 0xFF
	case addr >= 0xA000 && addr <= 0xBFFF:
		off := int(addr - 0xA000)
		if off < len(c.ram) {
			return c.ram[off]
		}
		return 0xFF
	default:
		return 0xFF
	}
}

func (c *romOnly) Write(addr uint16, value byte) {
	if addr >= 0xA000 && addr <= 0xBFFF {
		off := int(addr - 0xA000)
		if off < len(c.ram) {
			c.ram[off] = value
		}
	}
	// 0x0000-0x7FFF: no banking registers, writes are no-ops.
}

func (c *romOnly) HasBattery() bool { return c.battery }

func (c *romOnly) DumpRAM() []byte {
	if len(c.ram) == 0 {
		return nil
	}
	out := make([]byte, len(c.ram))
	copy(out, c.ram)
	return out
}

func (c *romOnly) LoadRAM(data []byte) {
	if len(data) == len(c.ram) {
		copy(c.ram, data)
	}
}
