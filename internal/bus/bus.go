package bus

import (
	"io"
	"os"

	"github.com/arjunnair/gbcview/internal/apu"
	"github.com/arjunnair/gbcview/internal/cart"
	"github.com/arjunnair/gbcview/internal/dma"
	"github.com/arjunnair/gbcview/internal/interrupt"
	"github.com/arjunnair/gbcview/internal/joypad"
	"github.com/arjunnair/gbcview/internal/ppu"
	"github.com/arjunnair/gbcview/internal/timer"
)

// Bus wires CPU-visible address space to cartridge, WRAM, HRAM, PPU, and
// the timer/joypad/interrupt/DMA sub-components. CGB extensions (VRAM
// bank select, WRAM bank select, HDMA/GDMA, KEY1 speed switch) sit
// alongside the DMG-only register set the teacher's bus started from.
type Bus struct {
	cart cart.Cartridge
	ppu  *ppu.PPU
	apu  *apu.APU

	irq   interrupt.Controller
	timer *timer.Timer
	joyp  *joypad.Joypad
	oam   dma.OAM
	hdma  dma.HDMA

	cgb bool

	// WRAM: bank 0 fixed at 0xC000-0xCFFF; banks 1-7 switchable at
	// 0xD000-0xDFFF via SVBK (CGB only; DMG always uses bank 1).
	wram [8][0x1000]byte
	svbk byte

	hram [0x7F]byte

	sb byte
	sc byte
	sw io.Writer

	key1     byte // FF4D: bit0 armed, bit7 current speed (read-only)
	speedSub int  // double-speed sub-cycle counter: PPU/DMA ticks happen on every 2nd CPU cycle

	bootROM     []byte
	bootEnabled bool

	debugTimer bool
}

// New constructs a DMG Bus for rom. A ROM whose header cart.New rejects
// (such as a bare test program) is mapped as a ROM-only cartridge.
func New(rom []byte) *Bus {
	c, err := cart.New(rom)
	if err != nil {
		c = cart.NewROMOnly(rom)
	}
	return NewWithCartridge(c, false)
}

// NewWithCartridge wires a provided cartridge implementation. cgb selects
// CGB-only registers (VRAM bank 1, WRAM banking, HDMA, KEY1).
func NewWithCartridge(c cart.Cartridge, cgb bool) *Bus {
	b := &Bus{cart: c, cgb: cgb}
	b.timer = timer.New(func(bit int) { b.irq.Request(bit) })
	b.joyp = joypad.New(func(bit int) { b.irq.Request(bit) })
	b.ppu = ppu.NewCGB(func(bit int) { b.irq.Request(bit) }, cgb)
	b.apu = apu.New()
	b.svbk = 1
	if os.Getenv("GB_DEBUG_TIMER") != "" {
		b.debugTimer = true
	}
	return b
}

// PPU returns the internal PPU for host rendering helpers.
func (b *Bus) PPU() *ppu.PPU { return b.ppu }

// Cart returns the underlying cartridge for battery persistence.
func (b *Bus) Cart() cart.Cartridge { return b.cart }

// APU returns the internal sound register file.
func (b *Bus) APU() *apu.APU { return b.apu }

// Interrupts exposes the interrupt controller for the CPU's dispatch loop.
func (b *Bus) Interrupts() *interrupt.Controller { return &b.irq }

// DoubleSpeed reports whether the CGB double-speed mode is currently active.
func (b *Bus) DoubleSpeed() bool { return b.key1&0x80 != 0 }

// SpeedSwitchArmed reports whether a STOP-triggered speed switch is pending.
func (b *Bus) SpeedSwitchArmed() bool { return b.key1&0x01 != 0 }

// ExecuteSpeedSwitch toggles the current speed and clears the arm bit; the
// CPU calls this when it executes STOP with the switch armed.
func (b *Bus) ExecuteSpeedSwitch() {
	if b.key1&0x01 == 0 {
		return
	}
	b.key1 = (b.key1 ^ 0x80) &^ 0x01
}

func (b *Bus) wramBank() int {
	if !b.cgb {
		return 1
	}
	n := int(b.svbk & 0x07)
	if n == 0 {
		n = 1
	}
	return n
}

func (b *Bus) Read(addr uint16) byte {
	if b.oam.Active() && !(addr >= 0xFF80 && addr <= 0xFFFE) && addr != 0xFFFF {
		return 0xFF
	}
	return b.rawRead(addr)
}

// rawRead performs the address decode without the OAM-DMA CPU-access gate,
// for the DMA engine's own source reads (which are not CPU accesses and
// are never blocked by the transfer they belong to).
func (b *Bus) rawRead(addr uint16) byte {
	switch {
	case addr < 0x8000:
		if b.bootEnabled && addr < 0x0100 && len(b.bootROM) >= 0x100 {
			return b.bootROM[addr]
		}
		if b.cgb && b.bootEnabled && addr >= 0x0200 && addr < 0x0900 && len(b.bootROM) >= 0x900 {
			return b.bootROM[addr]
		}
		if b.cart == nil {
			return 0xFF
		}
		return b.cart.Read(addr)
	case addr >= 0x8000 && addr <= 0x9FFF:
		return b.ppu.CPURead(addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		if b.cart == nil {
			return 0xFF
		}
		return b.cart.Read(addr)
	case addr >= 0xC000 && addr <= 0xCFFF:
		return b.wram[0][addr-0xC000]
	case addr >= 0xD000 && addr <= 0xDFFF:
		return b.wram[b.wramBank()][addr-0xD000]
	case addr >= 0xE000 && addr <= 0xFDFF:
		return b.rawRead(addr - 0x2000)
	case addr >= 0xFE00 && addr <= 0xFE9F:
		return b.ppu.CPURead(addr)
	case addr >= 0xFF80 && addr <= 0xFFFE:
		return b.hram[addr-0xFF80]
	case addr == 0xFF00:
		return b.joyp.Read()
	case addr == 0xFF01:
		return b.sb
	case addr == 0xFF02:
		return 0x7E | (b.sc & 0x81)
	case addr == 0xFF04:
		return b.timer.DIV()
	case addr == 0xFF05:
		return b.timer.TIMA()
	case addr == 0xFF06:
		return b.timer.TMA()
	case addr == 0xFF07:
		return 0xF8 | b.timer.TAC()
	case addr == 0xFF0F:
		return b.irq.ReadIF()
	case addr >= 0xFF10 && addr <= 0xFF26, addr >= 0xFF30 && addr <= 0xFF3F:
		return b.apu.CPURead(addr)
	case addr == 0xFF40, addr == 0xFF41, addr == 0xFF42, addr == 0xFF43,
		addr == 0xFF44, addr == 0xFF45,
		addr == 0xFF47, addr == 0xFF48, addr == 0xFF49,
		addr == 0xFF4A, addr == 0xFF4B,
		addr == 0xFF4F, addr == 0xFF68, addr == 0xFF69, addr == 0xFF6A, addr == 0xFF6B:
		return b.ppu.CPURead(addr)
	case addr == 0xFF46:
		return 0xFF
	case addr == 0xFF4D:
		if !b.cgb {
			return 0xFF
		}
		return 0x7E | (b.key1 & 0x81)
	case addr == 0xFF51, addr == 0xFF52, addr == 0xFF53, addr == 0xFF54:
		return 0xFF // write-only
	case addr == 0xFF55:
		if !b.cgb {
			return 0xFF
		}
		return b.hdma.ReadControl()
	case addr == 0xFF70:
		if !b.cgb {
			return 0xFF
		}
		return 0xF8 | (b.svbk & 0x07)
	case addr == 0xFF50:
		return 0xFF
	case addr == 0xFFFF:
		return b.irq.ReadIE()
	}
	return 0xFF
}

func (b *Bus) Write(addr uint16, value byte) {
	if b.oam.Active() && !(addr >= 0xFF80 && addr <= 0xFFFE) && addr != 0xFFFF {
		return
	}
	switch {
	case addr < 0x8000:
		if b.cart != nil {
			b.cart.Write(addr, value)
		}
		return
	case addr >= 0x8000 && addr <= 0x9FFF:
		b.ppu.CPUWrite(addr, value)
		return
	case addr >= 0xA000 && addr <= 0xBFFF:
		if b.cart != nil {
			b.cart.Write(addr, value)
		}
		return
	case addr >= 0xC000 && addr <= 0xCFFF:
		b.wram[0][addr-0xC000] = value
		return
	case addr >= 0xD000 && addr <= 0xDFFF:
		b.wram[b.wramBank()][addr-0xD000] = value
		return
	case addr >= 0xE000 && addr <= 0xFDFF:
		b.Write(addr-0x2000, value)
		return
	case addr >= 0xFE00 && addr <= 0xFE9F:
		b.ppu.CPUWrite(addr, value)
		return
	case addr >= 0xFF80 && addr <= 0xFFFE:
		b.hram[addr-0xFF80] = value
		return
	case addr == 0xFF00:
		b.joyp.WriteSelect(value)
		return
	case addr == 0xFF01:
		b.sb = value
		return
	case addr == 0xFF02:
		b.sc = value & 0x81
		if b.sc&0x80 != 0 {
			if b.sw != nil {
				_, _ = b.sw.Write([]byte{b.sb})
			}
			b.irq.Request(interrupt.Serial)
			b.sc &^= 0x80
		}
		return
	case addr == 0xFF04:
		b.timer.WriteDIV()
		return
	case addr == 0xFF05:
		b.timer.WriteTIMA(value)
		return
	case addr == 0xFF06:
		b.timer.WriteTMA(value)
		return
	case addr == 0xFF07:
		b.timer.WriteTAC(value)
		return
	case addr == 0xFF0F:
		b.irq.WriteIF(value)
		return
	case addr >= 0xFF10 && addr <= 0xFF26, addr >= 0xFF30 && addr <= 0xFF3F:
		b.apu.CPUWrite(addr, value)
		return
	case addr == 0xFF40, addr == 0xFF41, addr == 0xFF42, addr == 0xFF43,
		addr == 0xFF44, addr == 0xFF45,
		addr == 0xFF47, addr == 0xFF48, addr == 0xFF49,
		addr == 0xFF4A, addr == 0xFF4B,
		addr == 0xFF4F, addr == 0xFF68, addr == 0xFF69, addr == 0xFF6A, addr == 0xFF6B:
		b.ppu.CPUWrite(addr, value)
		return
	case addr == 0xFF46:
		b.oam.Start(uint16(value) << 8)
		return
	case addr == 0xFF4D:
		if b.cgb {
			b.key1 = (b.key1 & 0x80) | (value & 0x01)
		}
		return
	case addr == 0xFF51:
		if b.cgb {
			b.hdma.WriteSrcHi(value)
		}
		return
	case addr == 0xFF52:
		if b.cgb {
			b.hdma.WriteSrcLo(value)
		}
		return
	case addr == 0xFF53:
		if b.cgb {
			b.hdma.WriteDstHi(value)
		}
		return
	case addr == 0xFF54:
		if b.cgb {
			b.hdma.WriteDstLo(value)
		}
		return
	case addr == 0xFF55:
		if !b.cgb {
			return
		}
		blocks, start := b.hdma.WriteControl(value)
		if start {
			b.runGDMA(blocks)
		}
		return
	case addr == 0xFF50:
		if value != 0x00 {
			b.bootEnabled = false
		}
		return
	case addr == 0xFF70:
		if b.cgb {
			b.svbk = value & 0x07
		}
		return
	case addr == 0xFFFF:
		b.irq.WriteIE(value)
		return
	}
}

// runGDMA performs an immediate general-purpose VRAM transfer of
// blocks*16 bytes, bypassing the mode-3 VRAM CPU lockout (DMA writes
// VRAM directly through the PPU's bank-aware accessor). The whole copy
// completes inside the HDMA5 write; no CPU stall cycles are charged for it.
func (b *Bus) runGDMA(blocks int) {
	src := b.hdma.Source()
	dst := b.hdma.Dest()
	bank := 0
	if b.cgb {
		bank = int(b.cpuVBK())
	}
	for i := 0; i < blocks*16; i++ {
		v := b.rawRead(src + uint16(i))
		b.ppu.VRAMWrite(bank, dst+uint16(i), v)
	}
	b.hdma.FinishGDMA()
}

func (b *Bus) cpuVBK() byte { return b.ppu.CPURead(0xFF4F) & 0x01 }

// Joypad button bitmasks for SetJoypadState. Bits set mean "pressed".
const (
	JoypRight     = joypad.Right
	JoypLeft      = joypad.Left
	JoypUp        = joypad.Up
	JoypDown      = joypad.Down
	JoypA         = joypad.A
	JoypB         = joypad.B
	JoypSelectBtn = joypad.Select
	JoypStart     = joypad.Start
)

// SetJoypadState sets which buttons are currently pressed.
func (b *Bus) SetJoypadState(mask byte) { b.joyp.SetButtons(mask) }

// SetSerialWriter sets a sink that receives bytes written via the serial port.
func (b *Bus) SetSerialWriter(w io.Writer) { b.sw = w }

// SetBootROM loads a boot ROM to be mapped at 0x0000-0x00FF (DMG, 256
// bytes) or 0x0000-0x08FF (CGB, 2304 bytes with the 0x0100-0x01FF
// cartridge-header gap left to the cartridge) until disabled via 0xFF50.
func (b *Bus) SetBootROM(data []byte) {
	b.bootROM = nil
	b.bootEnabled = false
	if len(data) >= 0x100 {
		b.bootROM = append([]byte(nil), data...)
		b.bootEnabled = true
	}
}

// Tick advances timer, PPU, and DMA engines by the given number of CPU
// T-cycles. The timer runs off the CPU clock and advances on every CPU
// cycle, so DIV counts twice as fast in real time in CGB double-speed
// mode. PPU and DMA run off the dot clock and, in double-speed mode,
// advance only on every second CPU cycle.
func (b *Bus) Tick(cycles int) {
	if cycles <= 0 {
		return
	}
	for i := 0; i < cycles; i++ {
		b.timer.Tick(1)
		b.speedSub++
		if b.DoubleSpeed() && b.speedSub%2 == 1 {
			continue
		}
		prevMode := b.ppuMode()
		b.ppu.Tick(1)
		if b.cgb && b.hdma.Active() && prevMode != ppu.ModeHBlank && b.ppuMode() == ppu.ModeHBlank {
			b.stepHDMABlock()
		}
		b.oam.Tick(b.rawRead, b.ppu.OAMWriteDirect)
	}
}

func (b *Bus) ppuMode() byte { return b.ppu.CPURead(0xFF41) & 0x03 }

func (b *Bus) stepHDMABlock() {
	src, dst, ok := b.hdma.StepHBlankBlock()
	if !ok {
		return
	}
	bank := 0
	if b.cgb {
		bank = int(b.cpuVBK())
	}
	for i := 0; i < 16; i++ {
		v := b.rawRead(src + uint16(i))
		b.ppu.VRAMWrite(bank, dst+uint16(i), v)
	}
}
