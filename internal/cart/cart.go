package cart

// Cartridge is the interface the Bus uses for ROM/RAM banking. Addresses
// are CPU addresses; Read/Write cover both the 0x0000-0x7FFF banking-
// control region and the 0xA000-0xBFFF external RAM window.
type Cartridge interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)

	// HasBattery reports whether this cartridge's external RAM survives
	// power loss and should be persisted by the host (SPEC_FULL.md §6.2).
	HasBattery() bool
	// DumpRAM returns a copy of external RAM bytes (nil if none/unbacked).
	DumpRAM() []byte
	// LoadRAM accepts previously-dumped RAM bytes of matching size.
	LoadRAM(data []byte)
}

// hasRTC is implemented by cartridges exposing MBC3-style real-time-clock
// registers. The bus does not use it: the MBC3 latches its clock itself on
// writes to 0x6000-0x7FFF.
type hasRTC interface {
	LatchClock()
}

// New picks a Cartridge implementation based on the ROM header's declared
// MBC type. Multicart MBC1 wiring (ambiguous in the source material) is
// left unimplemented (see DESIGN.md's Open Question decisions).
func New(rom []byte) (Cartridge, error) {
	if !HeaderChecksumOK(rom) {
		return nil, ErrBadChecksum
	}
	h, err := ParseHeader(rom)
	if err != nil {
		return nil, err
	}
	switch h.CartType {
	case 0x00, 0x08, 0x09:
		return newROMOnly(rom, h.RAMSizeBytes, h.CartType == 0x09), nil
	case 0x01, 0x02, 0x03:
		return newMBC1(rom, h.RAMSizeBytes, h.CartType == 0x03), nil
	case 0x0F, 0x10, 0x11, 0x12, 0x13:
		hasRTCRegs := h.CartType == 0x0F || h.CartType == 0x10
		battery := h.CartType == 0x0F || h.CartType == 0x10 || h.CartType == 0x13
		return newMBC3(rom, h.RAMSizeBytes, battery, hasRTCRegs), nil
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E:
		return newMBC5(rom, h.RAMSizeBytes, h.CartType == 0x1B || h.CartType == 0x1E), nil
	default:
		return nil, &UnsupportedMBCError{Code: h.CartType}
	}
}
