package bios

// int16 implements INT 16h AH=0x00 (read character, blocking) and
// AH=0x01 (check status, non-blocking).
func (b *BIOS) int16(regs Registers) Result {
	switch regs.AH() {
	case 0x00:
		return b.readKeyChar(regs)
	case 0x01:
		b.checkKeyStatus(regs)
		return ResultHandled
	default:
		return ResultHandled
	}
}

func (b *BIOS) readKeyChar(regs Registers) Result {
	if len(b.keyboardBuffer) == 0 {
		return ResultKeepPolling
	}
	event := b.keyboardBuffer[0]
	b.keyboardBuffer = b.keyboardBuffer[1:]
	regs.SetAL(event.ascii)
	regs.SetAH(event.scancode)
	return ResultHandled
}

func (b *BIOS) checkKeyStatus(regs Registers) {
	if len(b.keyboardBuffer) == 0 {
		regs.SetZF(true)
		return
	}
	event := b.keyboardBuffer[0]
	regs.SetAL(event.ascii)
	regs.SetAH(event.scancode)
	regs.SetZF(false)
}

// xtScancodeToASCII maps the XT keyboard's unshifted make codes to US
// ASCII. Codes with no mapping (function keys, modifiers, unassigned)
// are zero and produce no BIOS buffer entry.
var xtScancodeToASCII = buildXTScancodeTable()

func buildXTScancodeTable() [256]uint8 {
	var t [256]uint8
	rows := []struct {
		start uint8
		chars string
	}{
		{0x02, "1234567890-="},
		{0x10, "qwertyuiop[]"},
		{0x1E, "asdfghjkl;'`"},
		{0x2C, "zxcvbnm,./"},
	}
	for _, row := range rows {
		for i, ch := range row.chars {
			t[int(row.start)+i] = uint8(ch)
		}
	}
	t[0x39] = ' '  // space bar
	t[0x1C] = '\r' // enter
	t[0x0E] = 0x08 // backspace
	t[0x0F] = '\t' // tab
	t[0x01] = 0x1B // escape
	return t
}
