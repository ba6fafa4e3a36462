package bios

// int10 implements the INT 10h video services: mode set, cursor shape
// and position, active page, scroll up/down, character read/write and
// teletype output.
func (b *BIOS) int10(regs Registers) {
	switch regs.AH() {
	case 0x00:
		b.setVideoMode(regs.AL())
	case 0x01:
		b.setCursorShape(regs.CH(), regs.CL())
	case 0x02:
		b.setCursorPositionFromRegs(regs)
	case 0x03:
		b.readCursorPositionIntoRegs(regs)
	case 0x05:
		b.setActivePage(regs.AL())
	case 0x06:
		b.scroll(regs, scrollUp)
	case 0x07:
		b.scroll(regs, scrollDown)
	case 0x08:
		b.readCharAttr(regs)
	case 0x09:
		b.writeCharAttr(regs)
	case 0x0E:
		b.teletypeOutput(regs)
	case 0x0F:
		b.getVideoMode(regs)
	default:
		// Unsupported function: no-op.
	}
}

func (b *BIOS) setVideoMode(mode uint8) {
	if mode == videoModeMDA80x25 {
		b.writeBDAByte(bdaVideoMode, mode)
	}
	// Unsupported modes are ignored; the BDA keeps its prior value.
}

func (b *BIOS) setCursorShape(startLine, endLine uint8) {
	b.writeBDAByte(bdaCursorShapeStart, startLine)
	b.writeBDAByte(bdaCursorShapeEnd, endLine)
}

func (b *BIOS) setCursorPositionFromRegs(regs Registers) {
	page := regs.BH()
	pos := TextPosition{Row: regs.DH(), Col: regs.DL()}
	b.setCursorPosition(page, clampCursor(pos))
}

func clampCursor(pos TextPosition) TextPosition {
	if pos.Row > mdaRows-1 {
		pos.Row = mdaRows - 1
	}
	if pos.Col > mdaColumns-1 {
		pos.Col = mdaColumns - 1
	}
	return pos
}

func (b *BIOS) readCursorPositionIntoRegs(regs Registers) {
	pos := b.cursorPosition(regs.BH())
	regs.SetDH(pos.Row)
	regs.SetDL(pos.Col)
	regs.SetCH(b.readBDAByte(bdaCursorShapeStart))
	regs.SetCL(b.readBDAByte(bdaCursorShapeEnd))
}

func (b *BIOS) setActivePage(page uint8) {
	if page == 0 {
		b.writeBDAByte(bdaActivePage, 0)
	}
	// MDA has exactly one page; any other request is silently ignored.
}

func (b *BIOS) getVideoMode(regs Registers) {
	regs.SetAL(b.readBDAByte(bdaVideoMode))
	regs.SetAH(uint8(b.readBDAWord(bdaVideoColumns)))
	regs.SetBH(b.activePage())
}

type scrollDirection int

const (
	scrollUp scrollDirection = iota
	scrollDown
)

// scroll implements AH=0x06/0x07: scroll (or clear, when AL==0) the
// rectangle [CH,CL]-[DH,DL] by AL lines, filling exposed lines with a
// space and the BH attribute byte.
func (b *BIOS) scroll(regs Registers, dir scrollDirection) {
	lines := int(regs.AL())
	top, left := int(regs.CH()), int(regs.CL())
	bottom, right := int(regs.DH()), int(regs.DL())
	fillAttr := regs.BH()

	if bottom >= mdaRows {
		bottom = mdaRows - 1
	}
	if right >= mdaColumns {
		right = mdaColumns - 1
	}
	if top > bottom || left > right {
		return
	}

	height := bottom - top + 1
	if lines == 0 || lines >= height {
		b.fillRect(top, left, bottom, right, fillAttr)
		return
	}

	if dir == scrollUp {
		for row := top; row <= bottom-lines; row++ {
			b.copyRow(row+lines, row, left, right)
		}
		b.fillRect(bottom-lines+1, left, bottom, right, fillAttr)
	} else {
		for row := bottom; row >= top+lines; row-- {
			b.copyRow(row-lines, row, left, right)
		}
		b.fillRect(top, left, top+lines-1, right, fillAttr)
	}
}

func (b *BIOS) copyRow(srcRow, dstRow, left, right int) {
	for col := left; col <= right; col++ {
		char := b.readVRAMByte(cellOffset(srcRow, col))
		attr := b.readVRAMByte(cellOffset(srcRow, col) + 1)
		b.writeVRAMByte(cellOffset(dstRow, col), char)
		b.writeVRAMByte(cellOffset(dstRow, col)+1, attr)
	}
}

func (b *BIOS) fillRect(top, left, bottom, right int, attr uint8) {
	for row := top; row <= bottom; row++ {
		for col := left; col <= right; col++ {
			b.writeVRAMByte(cellOffset(row, col), ' ')
			b.writeVRAMByte(cellOffset(row, col)+1, attr)
		}
	}
}

func cellOffset(row, col int) uint32 {
	return uint32((row*mdaColumns + col) * 2)
}

func (b *BIOS) readCharAttr(regs Registers) {
	pos := b.cursorPosition(b.activePage())
	off := cellOffset(int(pos.Row), int(pos.Col))
	regs.SetAL(b.readVRAMByte(off))
	regs.SetAH(b.readVRAMByte(off + 1))
}

func (b *BIOS) writeCharAttr(regs Registers) {
	pos := b.cursorPosition(b.activePage())
	count := int(regs.CH())<<8 | int(regs.CL())
	char, attr := regs.AL(), regs.BL()
	col := int(pos.Col)
	for i := 0; i < count && col+i < mdaColumns; i++ {
		off := cellOffset(int(pos.Row), col+i)
		b.writeVRAMByte(off, char)
		b.writeVRAMByte(off+1, attr)
	}
}

// teletypeOutput implements AH=0x0E: write a glyph at the cursor,
// advance it, honoring CR/LF/BS, scrolling the screen up one line when
// the cursor would move past the last row.
func (b *BIOS) teletypeOutput(regs Registers) {
	page := b.activePage()
	pos := b.cursorPosition(page)
	ch := regs.AL()

	switch ch {
	case '\r':
		pos.Col = 0
	case '\n':
		pos.Row++
	case 0x08: // backspace
		if pos.Col > 0 {
			pos.Col--
		}
	default:
		off := cellOffset(int(pos.Row), int(pos.Col))
		b.writeVRAMByte(off, ch)
		b.writeVRAMByte(off+1, regs.BL())
		pos.Col++
		if pos.Col >= mdaColumns {
			pos.Col = 0
			pos.Row++
		}
	}

	if pos.Row >= mdaRows {
		for row := 0; row < mdaRows-1; row++ {
			b.copyRow(row+1, row, 0, mdaColumns-1)
		}
		b.fillRect(mdaRows-1, 0, mdaRows-1, mdaColumns-1, regs.BL())
		pos.Row = mdaRows - 1
	}

	b.setCursorPosition(page, pos)
}
