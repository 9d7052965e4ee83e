// Package emu wires cartridge, bus, and CPU into the top-level scheduler
// a host drives one frame at a time.
package emu

import (
	"errors"
	"io"
	"log"
	"os"

	"github.com/arjunnair/gbcview/internal/bus"
	"github.com/arjunnair/gbcview/internal/cart"
	"github.com/arjunnair/gbcview/internal/cpu"
)

// FRAME_NANOS is a 60Hz frame period (1/60 s). A 70224-dot frame at
// 4.194304MHz is slightly longer, about 16.74ms (59.7275Hz refresh).
const FRAME_NANOS = 16_666_666

// cyclesPerFrame is the dot-clock length of one frame: 456 dots/line * 154
// lines. In CGB double-speed mode the CPU burns twice as many T-cycles to
// cover the same wall-clock frame (internal/bus halves PPU/DMA advance
// per CPU cycle to compensate).
const cyclesPerFrame = 456 * 154

var (
	// ErrNotInitialized is returned by operations that require a loaded
	// cartridge (Frame, StepFrame) when none has been inserted yet.
	ErrNotInitialized = errors.New("emu: no cartridge loaded")
	// ErrBusy is returned when Frame is called re-entrantly from within
	// an in-progress frame (e.g. from a callback invoked during Step).
	ErrBusy = errors.New("emu: frame already in progress")
)

// FrameBuffer is a 160x144 RGBA8888 pixel grid, row-major, top-left origin.
type FrameBuffer = [160 * 144]uint32

// EventKind distinguishes a button press from a release.
type EventKind int

const (
	Pressed EventKind = iota
	Released
)

// Button enumerates the eight physical joypad inputs.
type Button int

const (
	BtnA Button = iota
	BtnB
	BtnSelect
	BtnStart
	BtnUp
	BtnDown
	BtnLeft
	BtnRight
)

// JoypadEvent is a single button transition to apply before stepping a frame.
type JoypadEvent struct {
	Kind   EventKind
	Button Button
}

func buttonMask(b Button) byte {
	switch b {
	case BtnA:
		return bus.JoypA
	case BtnB:
		return bus.JoypB
	case BtnSelect:
		return bus.JoypSelectBtn
	case BtnStart:
		return bus.JoypStart
	case BtnUp:
		return bus.JoypUp
	case BtnDown:
		return bus.JoypDown
	case BtnLeft:
		return bus.JoypLeft
	case BtnRight:
		return bus.JoypRight
	}
	return 0
}

// Config contains settings that affect emulation behavior.
type Config struct {
	Trace    bool // log each CPU instruction (PC, opcode, cpu.Disassemble mnemonic) before it runs
	LimitFPS bool // not read by Machine: Frame never sleeps or throttles
	ForceCGB bool // run CGB-only registers even if the cartridge predates CGB
	ForceDMG bool // disable CGB registers even on a CGB-aware cartridge
}

// Machine owns the cartridge, bus, and CPU for one inserted ROM and
// exposes the per-frame scheduler a host drives.
type Machine struct {
	cfg Config

	b   *bus.Bus
	c   *cpu.CPU
	cgb bool

	romBytes  []byte
	bootBytes []byte
	romPath   string

	buttons byte
	inFrame bool
}

// New constructs a Machine with no cartridge loaded.
func New(cfg Config) *Machine {
	return &Machine{cfg: cfg}
}

// LoadCartridge parses rom's header, selects an MBC, wires a fresh Bus and
// CPU, and optionally maps boot at 0x0000 instead of jumping straight to
// the cartridge's entry point.
func (m *Machine) LoadCartridge(rom []byte, boot []byte) error {
	h, err := cart.ParseHeader(rom)
	if err != nil {
		return err
	}
	c, err := cart.New(rom)
	if err != nil {
		return err
	}

	cgb := h.CGBAware()
	if m.cfg.ForceCGB {
		cgb = true
	}
	if m.cfg.ForceDMG {
		cgb = false
	}

	if len(boot) == 0 {
		boot = m.bootBytes // fall back to a boot ROM staged via SetBootROM
	}

	m.b = bus.NewWithCartridge(c, cgb)
	m.c = cpu.New(m.b)
	m.cgb = cgb
	m.romBytes = append([]byte(nil), rom...)
	m.bootBytes = append([]byte(nil), boot...)
	m.buttons = 0

	if len(boot) > 0 {
		m.b.SetBootROM(boot)
		m.c.SetPC(0x0000)
	} else {
		m.c.ResetNoBoot()
		m.c.SetPC(0x0100)
	}
	return nil
}

// LoadROMFromFile reads a .gb/.gbc image from disk and loads it with no
// boot ROM.
func (m *Machine) LoadROMFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := m.LoadCartridge(data, nil); err != nil {
		return err
	}
	m.romPath = path
	return nil
}

// InsertCartridge loads rom with no boot ROM, matching the host API's
// cartridge-swap entry point.
func (m *Machine) InsertCartridge(rom []byte) error {
	return m.LoadCartridge(rom, nil)
}

// Eject clears the currently loaded cartridge; subsequent Frame/StepFrame
// calls return ErrNotInitialized until a new cartridge is inserted.
func (m *Machine) Eject() {
	m.b = nil
	m.c = nil
	m.romBytes = nil
	m.romPath = ""
}

// Reset reloads the most recently inserted cartridge (and boot ROM, if
// any) from scratch, matching a physical console's reset button.
func (m *Machine) Reset() error {
	if m.romBytes == nil {
		return ErrNotInitialized
	}
	return m.LoadCartridge(m.romBytes, m.bootBytes)
}

// Bus exposes the underlying bus for host rendering/debug tooling.
func (m *Machine) Bus() *bus.Bus { return m.b }

// CPU exposes the underlying CPU for host debug tooling.
func (m *Machine) CPU() *cpu.CPU { return m.c }

// SetSerialWriter forwards serial-port bytes (0xFF01/0xFF02) to w, used by
// test ROMs that report pass/fail over the link cable.
func (m *Machine) SetSerialWriter(w io.Writer) {
	if m.b != nil {
		m.b.SetSerialWriter(w)
	}
}

func (m *Machine) applyEvents(events []JoypadEvent) {
	for _, e := range events {
		mask := buttonMask(e.Button)
		if e.Kind == Pressed {
			m.buttons |= mask
		} else {
			m.buttons &^= mask
		}
	}
	if m.b != nil {
		m.b.SetJoypadState(m.buttons)
	}
}

// Frame applies the given joypad events, runs the scheduler
// (cpu.step -> bus.Tick driving ppu/dma/timer -> interrupt dispatch) for
// one 70224-dot frame, and returns the resulting pixel buffer.
func (m *Machine) Frame(events []JoypadEvent) (FrameBuffer, error) {
	var empty FrameBuffer
	if m.b == nil || m.c == nil {
		return empty, ErrNotInitialized
	}
	if m.inFrame {
		return empty, ErrBusy
	}
	m.inFrame = true
	defer func() { m.inFrame = false }()

	m.applyEvents(events)

	budget := cyclesPerFrame
	if m.b.DoubleSpeed() {
		budget *= 2
	}
	elapsed := 0
	for elapsed < budget {
		if m.c.Locked() {
			break
		}
		if m.cfg.Trace {
			pc := m.c.PC
			mn, _ := m.c.Disassemble(pc)
			log.Printf("PC=%04X OP=%02X %s", pc, m.b.Read(pc), mn)
		}
		elapsed += m.c.Step()
		if m.b.DoubleSpeed() && budget == cyclesPerFrame {
			budget *= 2 // STOP toggled speed mid-frame; extend the remaining budget
		}
	}
	return *m.b.PPU().Frame(), nil
}

// StepFrame runs one frame and discards the pixel buffer's staleness
// check, for hosts that pull the framebuffer separately. Kept alongside
// Frame for compatibility with existing callers.
func (m *Machine) StepFrame() {
	_, _ = m.Frame(nil)
}

// StepFrameNoRender is identical to StepFrame; rendering is always
// produced internally; this name is kept for callers (Blargg test
// harness) that only care about CPU/serial-port progress, not pixels.
func (m *Machine) StepFrameNoRender() {
	_, _ = m.Frame(nil)
}

// FrameSnapshot returns the live RGBA8888 pixel buffer without stepping.
func (m *Machine) FrameSnapshot() *FrameBuffer {
	if m.b == nil {
		return nil
	}
	return m.b.PPU().Frame()
}

// Framebuffer returns the live frame as packed R,G,B,A bytes (row-major),
// the layout image.RGBA and crc32.ChecksumIEEE expect.
func (m *Machine) Framebuffer() []byte {
	fb := m.FrameSnapshot()
	if fb == nil {
		return nil
	}
	out := make([]byte, 0, len(fb)*4)
	for _, px := range fb {
		out = append(out, byte(px), byte(px>>8), byte(px>>16), byte(px>>24))
	}
	return out
}

// SetBootROM stages a boot ROM to be mapped on the next LoadCartridge (or
// Reset). Call before LoadCartridge so the boot image takes effect on
// first load.
func (m *Machine) SetBootROM(data []byte) {
	m.bootBytes = append([]byte(nil), data...)
	if m.b != nil {
		m.b.SetBootROM(data)
	}
}

// ROMPath reports the filesystem path of the last cartridge loaded via
// LoadROMFromFile, or "" if the current cartridge was loaded from memory.
func (m *Machine) ROMPath() string { return m.romPath }

// LoadBattery restores previously-dumped external RAM into the loaded
// cartridge, if it has battery-backed RAM. Reports whether it was applied.
func (m *Machine) LoadBattery(data []byte) bool {
	if m.b == nil || m.b.Cart() == nil || !m.b.Cart().HasBattery() {
		return false
	}
	m.b.Cart().LoadRAM(data)
	return true
}

// SaveBattery returns a copy of the loaded cartridge's external RAM for
// persistence, if it has battery-backed RAM.
func (m *Machine) SaveBattery() ([]byte, bool) {
	if m.b == nil || m.b.Cart() == nil || !m.b.Cart().HasBattery() {
		return nil, false
	}
	data := m.b.Cart().DumpRAM()
	if data == nil {
		return nil, false
	}
	return data, true
}

// cgbCompatSetNames/cgbCompatSets are the built-in DMG-on-CGB compatibility
// palettes a CGB's boot ROM would otherwise pick via its title/checksum
// handshake. Indices match the IDs returned by autoCompatPaletteFromHeader.
var cgbCompatSetNames = [6]string{"Green", "Sepia", "Blue", "Red", "Pastel", "Gray"}

var cgbCompatSets = [6][4]uint32{
	{0xE0F8D0FF, 0x88C070FF, 0x346856FF, 0x081820FF}, // Green
	{0xFFF6D3FF, 0xF9A875FF, 0xEB6B6FFF, 0x7C3F58FF}, // Sepia
	{0xF0F0FFFF, 0x8888F8FF, 0x4040B0FF, 0x000040FF}, // Blue
	{0xFFF0F0FF, 0xF88888FF, 0xB04040FF, 0x400000FF}, // Red
	{0xFDE2E4FF, 0xC5D8D1FF, 0x8E9AAFFF, 0x4A4E69FF}, // Pastel
	{0xFFFFFFFF, 0xA8A8A8FF, 0x545454FF, 0x000000FF}, // Gray
}

// CompatPalette returns the DMG-on-CGB compatibility palette a real CGB
// boot ROM would auto-select for the loaded (non-CGB-aware) cartridge,
// based on its title and header checksum.
func (m *Machine) CompatPalette() (name string, shades [4]uint32, ok bool) {
	if m.romBytes == nil {
		return "", shades, false
	}
	h, err := cart.ParseHeader(m.romBytes)
	if err != nil {
		return "", shades, false
	}
	id, ok := autoCompatPaletteFromHeader(h)
	if !ok {
		return "", shades, false
	}
	id = id % len(cgbCompatSets)
	return cgbCompatSetNames[id], cgbCompatSets[id], true
}

// Buttons mirrors the teacher's convenience struct for hosts that prefer
// whole-state updates over discrete JoypadEvents.
type Buttons struct {
	A, B, Start, Select   bool
	Up, Down, Left, Right bool
}

// SetButtons overwrites the pressed-button state directly.
func (m *Machine) SetButtons(b Buttons) {
	var mask byte
	if b.A {
		mask |= bus.JoypA
	}
	if b.B {
		mask |= bus.JoypB
	}
	if b.Select {
		mask |= bus.JoypSelectBtn
	}
	if b.Start {
		mask |= bus.JoypStart
	}
	if b.Up {
		mask |= bus.JoypUp
	}
	if b.Down {
		mask |= bus.JoypDown
	}
	if b.Left {
		mask |= bus.JoypLeft
	}
	if b.Right {
		mask |= bus.JoypRight
	}
	m.buttons = mask
	if m.b != nil {
		m.b.SetJoypadState(mask)
	}
}
