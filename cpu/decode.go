package cpu

// fetchByte reads the next byte at CS:IP and advances IP.
func (c *CPU) fetchByte() uint8 {
	b := c.readMemByte(segCS, c.ip)
	c.ip++
	return b
}

func (c *CPU) fetchWord() uint16 {
	lo := c.fetchByte()
	hi := c.fetchByte()
	return uint16(lo) | uint16(hi)<<8
}

// modRM holds a decoded ModR/M byte: the register field (reg) and the
// resolved second operand (rm), which may be a register or a memory
// location depending on mod.
type modRM struct {
	reg uint8
	rm  operandAddress
}

// effectiveAddressUsesBP is indexed by the r/m field for mod != 0b11
// and marks the encodings whose base is BP (default segment SS). The
// direct disp16 form (mod==00, rm==6) does not use BP; decodeModRM
// excludes it explicitly.
var effectiveAddressUsesBP = [8]bool{false, false, true, true, false, false, true, false}

func (c *CPU) effectiveAddressOffset(rm uint8, mod uint8) uint16 {
	switch rm {
	case 0:
		return c.regs[regBX] + c.regs[regSI]
	case 1:
		return c.regs[regBX] + c.regs[regDI]
	case 2:
		return c.regs[regBP] + c.regs[regSI]
	case 3:
		return c.regs[regBP] + c.regs[regDI]
	case 4:
		return c.regs[regSI]
	case 5:
		return c.regs[regDI]
	case 6:
		if mod == 0 {
			return 0 // caller adds the direct disp16
		}
		return c.regs[regBP]
	case 7:
		return c.regs[regBX]
	}
	return 0
}

// decodeModRM reads the ModR/M byte (and any displacement) and
// resolves both the reg field and the r/m operand. w selects whether
// a register r/m resolves to a byte or word register.
func (c *CPU) decodeModRM(w width) modRM {
	b := c.fetchByte()
	mod := b >> 6
	reg := (b >> 3) & 0x07
	rm := b & 0x07

	if mod == 0b11 {
		return modRM{reg: reg, rm: c.registerOperandFor(rm, w)}
	}

	offset := c.effectiveAddressOffset(rm, mod)
	if mod == 0 && rm == 6 {
		offset = c.fetchWord()
	} else if mod == 1 {
		disp := int8(c.fetchByte())
		offset += uint16(int16(disp))
	} else if mod == 2 {
		disp := int16(c.fetchWord())
		offset += uint16(disp)
	}

	segment := segDS
	if effectiveAddressUsesBP[rm] && !(mod == 0 && rm == 6) {
		segment = segSS
	}
	if c.segmentOverride >= 0 {
		segment = uint8(c.segmentOverride)
	}

	return modRM{reg: reg, rm: memoryOperand(segment, offset)}
}

// registerOperandFor maps a 3-bit register field plus width to the
// conventional 8086 register (AL/AX, CL/CX, ... or AH/BH/... for byte
// width indices 4-7).
func (c *CPU) registerOperandFor(field uint8, w width) operandAddress {
	if w == widthWord {
		return registerOperand(field, 0)
	}
	if field < 4 {
		return registerOperand(field, 0)
	}
	return registerOperand(field-4, 1)
}

// stepOneInstruction consumes prefixes, the opcode byte, and dispatches
// through the static opcode table.
func (c *CPU) stepOneInstruction() ExecStatus {
	c.segmentOverride = -1
	c.repPrefix = repNone

	opcodeByte := c.consumePrefixes()
	entry := opcodeTable[opcodeByte]
	if entry.handler == nil {
		return StatusDecodeFail
	}
	return entry.handler(c, entry)
}

// consumePrefixes loops over segment-override/LOCK/REP prefix bytes
// and returns the first true opcode byte.
func (c *CPU) consumePrefixes() uint8 {
	for {
		b := c.fetchByte()
		switch b {
		case 0x26:
			c.segmentOverride = int8(segES)
		case 0x2E:
			c.segmentOverride = int8(segCS)
		case 0x36:
			c.segmentOverride = int8(segSS)
		case 0x3E:
			c.segmentOverride = int8(segDS)
		case 0xF0: // LOCK: no-op for a single-core interpreter
		case 0xF2:
			c.repPrefix = repNotEqual
		case 0xF3:
			c.repPrefix = repEqual
		default:
			return b
		}
	}
}
