package cpu

// String instructions operate on SI/DI through DS:SI/ES:DI (DS is
// overridable, ES is not), stepping by 1 (byte) or 2 (word), up or
// down per DF, and can be
// prefixed by REP/REPE/REPNE to repeat up to CX times.
func init() {
	opcodeTable[0xA4] = opcodeEntry{"MOVSB", repWrapped(movsOnce(widthByte), false)}
	opcodeTable[0xA5] = opcodeEntry{"MOVSW", repWrapped(movsOnce(widthWord), false)}
	opcodeTable[0xA6] = opcodeEntry{"CMPSB", repWrapped(cmpsOnce(widthByte), true)}
	opcodeTable[0xA7] = opcodeEntry{"CMPSW", repWrapped(cmpsOnce(widthWord), true)}
	opcodeTable[0xAA] = opcodeEntry{"STOSB", repWrapped(stosOnce(widthByte), false)}
	opcodeTable[0xAB] = opcodeEntry{"STOSW", repWrapped(stosOnce(widthWord), false)}
	opcodeTable[0xAC] = opcodeEntry{"LODSB", repWrapped(lodsOnce(widthByte), false)}
	opcodeTable[0xAD] = opcodeEntry{"LODSW", repWrapped(lodsOnce(widthWord), false)}
	opcodeTable[0xAE] = opcodeEntry{"SCASB", repWrapped(scasOnce(widthByte), true)}
	opcodeTable[0xAF] = opcodeEntry{"SCASW", repWrapped(scasOnce(widthWord), true)}
}

// stringStep performs one iteration of a string instruction (one
// byte/word moved, compared, stored, loaded, or scanned).
type stringStep func(c *CPU)

func (c *CPU) stringDSSeg() uint8 {
	if c.segmentOverride >= 0 {
		return uint8(c.segmentOverride)
	}
	return segDS
}

func (c *CPU) advance(reg uint8, w width) {
	step := uint16(1)
	if w == widthWord {
		step = 2
	}
	if c.flag(flagDF) {
		c.regs[reg] -= step
	} else {
		c.regs[reg] += step
	}
}

func movsOnce(w width) stringStep {
	return func(c *CPU) {
		value := c.readOperand(memoryOperand(c.stringDSSeg(), c.regs[regSI]), w)
		c.writeOperand(memoryOperand(segES, c.regs[regDI]), w, value)
		c.advance(regSI, w)
		c.advance(regDI, w)
	}
}

func stosOnce(w width) stringStep {
	return func(c *CPU) {
		value := c.readOperand(registerOperand(regAX, 0), w)
		c.writeOperand(memoryOperand(segES, c.regs[regDI]), w, value)
		c.advance(regDI, w)
	}
}

func lodsOnce(w width) stringStep {
	return func(c *CPU) {
		value := c.readOperand(memoryOperand(c.stringDSSeg(), c.regs[regSI]), w)
		c.writeOperand(registerOperand(regAX, 0), w, value)
		c.advance(regSI, w)
	}
}

func cmpsOnce(w width) stringStep {
	return func(c *CPU) {
		a := c.readOperand(memoryOperand(c.stringDSSeg(), c.regs[regSI]), w)
		b := c.readOperand(memoryOperand(segES, c.regs[regDI]), w)
		c.subWithFlags(a, b, 0, w)
		c.advance(regSI, w)
		c.advance(regDI, w)
	}
}

func scasOnce(w width) stringStep {
	return func(c *CPU) {
		al := c.readOperand(registerOperand(regAX, 0), w)
		mem := c.readOperand(memoryOperand(segES, c.regs[regDI]), w)
		c.subWithFlags(al, mem, 0, w)
		c.advance(regDI, w)
	}
}

// repWrapped adapts a single string-instruction step into an opcode
// handler that honours the REP/REPE/REPNE prefix consumed earlier in
// this instruction by consumePrefixes. checksZF is true only for
// CMPS/SCAS, which stop early on a ZF mismatch with the prefix's
// sense; MOVS/STOS/LODS ignore ZF entirely and run the full count.
func repWrapped(step stringStep, checksZF bool) func(c *CPU, e opcodeEntry) ExecStatus {
	return func(c *CPU, e opcodeEntry) ExecStatus {
		if c.repPrefix == repNone {
			step(c)
			return StatusOK
		}
		for c.regs[regCX] != 0 {
			c.regs[regCX]--
			step(c)
			if checksZF {
				if c.repPrefix == repEqual && !c.flag(flagZF) {
					break
				}
				if c.repPrefix == repNotEqual && c.flag(flagZF) {
					break
				}
			}
		}
		return StatusOK
	}
}
