package bios

import "testing"

// fakeRegisters is a minimal Registers implementation for exercising
// Dispatch without a real cpu.CPU.
type fakeRegisters struct {
	ah, al, bh, bl, ch, cl, dh, dl uint8
	zf, cf                         bool
}

func (r *fakeRegisters) AH() uint8 { return r.ah }
func (r *fakeRegisters) AL() uint8 { return r.al }
func (r *fakeRegisters) BH() uint8 { return r.bh }
func (r *fakeRegisters) BL() uint8 { return r.bl }
func (r *fakeRegisters) CH() uint8 { return r.ch }
func (r *fakeRegisters) CL() uint8 { return r.cl }
func (r *fakeRegisters) DH() uint8 { return r.dh }
func (r *fakeRegisters) DL() uint8 { return r.dl }

func (r *fakeRegisters) SetAH(v uint8) { r.ah = v }
func (r *fakeRegisters) SetAL(v uint8) { r.al = v }
func (r *fakeRegisters) SetBH(v uint8) { r.bh = v }
func (r *fakeRegisters) SetBL(v uint8) { r.bl = v }
func (r *fakeRegisters) SetCH(v uint8) { r.ch = v }
func (r *fakeRegisters) SetCL(v uint8) { r.cl = v }
func (r *fakeRegisters) SetDH(v uint8) { r.dh = v }
func (r *fakeRegisters) SetDL(v uint8) { r.dl = v }

func (r *fakeRegisters) SetZF(v bool) { r.zf = v }
func (r *fakeRegisters) SetCF(v bool) { r.cf = v }

// fakeMemory backs a flat 1 MiB address space for test purposes.
type fakeMemory struct {
	bytes [1 << 20]uint8
}

func newTestBIOS() (*BIOS, *fakeMemory) {
	mem := &fakeMemory{}
	b := New(&Config{
		ReadMemory:  func(addr uint32) uint8 { return mem.bytes[addr] },
		WriteMemory: func(addr uint32, v uint8) { mem.bytes[addr] = v },
		Equipment:   Equipment{NumFloppyDrives: 1, FPUInstalled: false, MemorySizeKiB: 640},
	})
	return b, mem
}

func TestAH00SetVideoMode(t *testing.T) {
	b, _ := newTestBIOS()

	regs := &fakeRegisters{ah: 0x00, al: videoModeMDA80x25}
	b.Dispatch(0x10, regs)
	if got := b.CurrentVideoMode(); got != videoModeMDA80x25 {
		t.Fatalf("video mode = 0x%02x, want 0x%02x", got, videoModeMDA80x25)
	}

	regs = &fakeRegisters{ah: 0x00, al: 0x42}
	b.Dispatch(0x10, regs)
	if got := b.CurrentVideoMode(); got != videoModeMDA80x25 {
		t.Fatalf("unsupported mode changed BDA: got 0x%02x", got)
	}
}

func TestAH02SetCursorPositionClamps(t *testing.T) {
	b, _ := newTestBIOS()

	regs := &fakeRegisters{ah: 0x02, dh: 5, dl: 10, bh: 0}
	b.Dispatch(0x10, regs)
	pos := b.CursorPositionForPage(0)
	if pos.Row != 5 || pos.Col != 10 {
		t.Fatalf("cursor = %+v, want row=5 col=10", pos)
	}

	regs = &fakeRegisters{ah: 0x02, dh: 100, dl: 200, bh: 0}
	b.Dispatch(0x10, regs)
	pos = b.CursorPositionForPage(0)
	if pos.Row != mdaRows-1 || pos.Col != mdaColumns-1 {
		t.Fatalf("cursor = %+v, want clamped to (%d,%d)", pos, mdaRows-1, mdaColumns-1)
	}
}

func TestAH03ReadCursorPositionReturnsShape(t *testing.T) {
	b, _ := newTestBIOS()

	b.Dispatch(0x10, &fakeRegisters{ah: 0x02, dh: 10, dl: 20})
	regs := &fakeRegisters{ah: 0x03}
	b.Dispatch(0x10, regs)

	if regs.dh != 10 || regs.dl != 20 {
		t.Fatalf("cursor = (%d,%d), want (10,20)", regs.dh, regs.dl)
	}
	if regs.ch != defaultCursorShapeStart || regs.cl != defaultCursorShapeEnd {
		t.Fatalf("cursor shape = (%d,%d), want (%d,%d)", regs.ch, regs.cl, defaultCursorShapeStart, defaultCursorShapeEnd)
	}
}

func TestAH05SetActivePageClampsToZero(t *testing.T) {
	b, _ := newTestBIOS()

	b.Dispatch(0x10, &fakeRegisters{ah: 0x05, al: 0})
	if b.CurrentPage() != 0 {
		t.Fatalf("active page = %d, want 0", b.CurrentPage())
	}
	b.Dispatch(0x10, &fakeRegisters{ah: 0x05, al: 1})
	if b.CurrentPage() != 0 {
		t.Fatalf("active page after AL=1 = %d, want unchanged 0", b.CurrentPage())
	}
}

func fillVRAMRow(b *BIOS, row int, cols int, char, attr uint8) {
	for col := 0; col < cols; col++ {
		off := cellOffset(row, col)
		b.writeVRAMByte(off, char)
		b.writeVRAMByte(off+1, attr)
	}
}

func TestAH06ScrollUpSubRegion(t *testing.T) {
	b, _ := newTestBIOS()

	for row := 0; row < 3; row++ {
		fillVRAMRow(b, row, 3, 'A'+uint8(row), 0x07)
	}

	regs := &fakeRegisters{ah: 0x06, al: 1, ch: 0, cl: 0, dh: 2, dl: 2, bh: 0x70}
	b.Dispatch(0x10, regs)

	for col := 0; col < 3; col++ {
		if got := b.readVRAMByte(cellOffset(0, col)); got != 'B' {
			t.Fatalf("row0 col%d = %q, want 'B'", col, got)
		}
		if got := b.readVRAMByte(cellOffset(1, col)); got != 'C' {
			t.Fatalf("row1 col%d = %q, want 'C'", col, got)
		}
		if got := b.readVRAMByte(cellOffset(2, col)); got != ' ' {
			t.Fatalf("row2 col%d = %q, want ' '", col, got)
		}
		if got := b.readVRAMByte(cellOffset(2, col) + 1); got != 0x70 {
			t.Fatalf("row2 col%d attr = 0x%02x, want 0x70", col, got)
		}
	}
}

func TestAH06ScrollEntireScreenClears(t *testing.T) {
	b, _ := newTestBIOS()

	for row := 0; row < mdaRows; row++ {
		fillVRAMRow(b, row, mdaColumns, 'Z'-uint8(row), 0x2F)
	}

	regs := &fakeRegisters{ah: 0x06, al: mdaRows, ch: 0, cl: 0, dh: mdaRows - 1, dl: mdaColumns - 1, bh: 0x07}
	b.Dispatch(0x10, regs)

	for row := 0; row < mdaRows; row++ {
		for col := 0; col < mdaColumns; col++ {
			if got := b.readVRAMByte(cellOffset(row, col)); got != ' ' {
				t.Fatalf("row%d col%d = %q, want ' '", row, col, got)
			}
			if got := b.readVRAMByte(cellOffset(row, col) + 1); got != 0x07 {
				t.Fatalf("row%d col%d attr = 0x%02x, want 0x07", row, col, got)
			}
		}
	}
}

func TestAH07ScrollDown(t *testing.T) {
	b, _ := newTestBIOS()

	fillVRAMRow(b, 0, 3, 'X', 0x07)
	fillVRAMRow(b, 1, 3, 'Y', 0x07)

	regs := &fakeRegisters{ah: 0x07, al: 1, ch: 0, cl: 0, dh: 1, dl: 2, bh: 0x10}
	b.Dispatch(0x10, regs)

	for col := 0; col < 3; col++ {
		if got := b.readVRAMByte(cellOffset(1, col)); got != 'X' {
			t.Fatalf("row1 col%d = %q, want 'X'", col, got)
		}
		if got := b.readVRAMByte(cellOffset(0, col)); got != ' ' {
			t.Fatalf("row0 col%d = %q, want ' '", col, got)
		}
	}
}

func TestAH0ETeletypeOutputAdvancesAndWraps(t *testing.T) {
	b, _ := newTestBIOS()

	regs := &fakeRegisters{ah: 0x0E, al: 'H', bl: 0x07}
	b.Dispatch(0x10, regs)
	pos := b.CursorPositionForPage(0)
	if pos.Col != 1 {
		t.Fatalf("cursor col after teletype = %d, want 1", pos.Col)
	}
	if got := b.readVRAMByte(cellOffset(0, 0)); got != 'H' {
		t.Fatalf("VRAM[0,0] = %q, want 'H'", got)
	}

	regs = &fakeRegisters{ah: 0x0E, al: '\n', bl: 0x07}
	b.Dispatch(0x10, regs)
	if b.CursorPositionForPage(0).Row != 1 {
		t.Fatalf("cursor row after LF = %d, want 1", b.CursorPositionForPage(0).Row)
	}
}
