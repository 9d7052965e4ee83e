package ppu

import "testing"

// advanceLines ticks the PPU forward by n full visible lines (456 dots each).
func advanceLines(p *PPU, n int) { p.Tick(456 * n) }

func TestWindowActivationAndCounter(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF40, 0x80|0x01|0x20) // LCD+BG+Window on
	p.CPUWrite(0xFF4A, 10)             // WY = 10
	p.CPUWrite(0xFF4B, 7)              // WX = 7 -> winXStart = 0

	advanceLines(p, 10)
	if ly := p.CPURead(0xFF44); ly != 10 {
		t.Fatalf("expected LY=10, got %d", ly)
	}
	// Drive through the full line so renderScanline runs and winLine advances.
	advanceLines(p, 1)
	if p.winLine != 1 {
		t.Fatalf("expected winLine=1 after one drawn window row, got %d", p.winLine)
	}
}

func TestWindowNotVisibleWhenWXTooLarge(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF40, 0x80|0x01|0x20)
	p.CPUWrite(0xFF4A, 5)
	p.CPUWrite(0xFF4B, 255) // off the right edge: window contributes nothing
	advanceLines(p, 10)
	if p.winLine != 0 {
		t.Fatalf("expected winLine=0 when WX is off-screen, got %d", p.winLine)
	}
}
