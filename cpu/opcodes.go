package cpu

// opcodeEntry is one row of the static 256-entry opcode table.
// mnemonic exists purely for debugging and log output.
type opcodeEntry struct {
	mnemonic string
	handler  func(c *CPU, e opcodeEntry) ExecStatus
}

var opcodeTable [256]opcodeEntry

// aluOp is one of the eight group-1 ALU operations sharing opcodes
// 0x00-0x3D's regular layout. apply returns the result to write back
// (ignored for cmp/test-style comparisons, which only affect flags).
type aluOp struct {
	name      string
	apply     func(c *CPU, dst, src uint32, w width) uint32
	writeBack bool
}

var aluOps = [8]aluOp{
	{"ADD", func(c *CPU, dst, src uint32, w width) uint32 { return c.addWithFlags(dst, src, 0, w) }, true},
	{"OR", func(c *CPU, dst, src uint32, w width) uint32 { return c.logicWithFlags(dst|src, w) }, true},
	{"ADC", func(c *CPU, dst, src uint32, w width) uint32 { return c.addWithFlags(dst, src, boolToUint32(c.flag(flagCF)), w) }, true},
	{"SBB", func(c *CPU, dst, src uint32, w width) uint32 { return c.subWithFlags(dst, src, boolToUint32(c.flag(flagCF)), w) }, true},
	{"AND", func(c *CPU, dst, src uint32, w width) uint32 { return c.logicWithFlags(dst&src, w) }, true},
	{"SUB", func(c *CPU, dst, src uint32, w width) uint32 { return c.subWithFlags(dst, src, 0, w) }, true},
	{"XOR", func(c *CPU, dst, src uint32, w width) uint32 { return c.logicWithFlags(dst^src, w) }, true},
	{"CMP", func(c *CPU, dst, src uint32, w width) uint32 { return c.subWithFlags(dst, src, 0, w) }, false},
}

func init() {
	buildALUBlock()
	buildDataTransfer()
	buildIncDecPushPop()
	buildJumpsAndCalls()
	buildGroups()
	buildStringAndMisc()
	buildFlagsAndControl()
}

// buildALUBlock fills opcodes 0x00-0x3D: eight operations x
// {Eb,Gb / Ev,Gv / Gb,Eb / Gv,Ev / AL,imm8 / AX,imm16}.
func buildALUBlock() {
	for i, op := range aluOps {
		op := op
		base := uint8(i * 8)

		opcodeTable[base+0] = opcodeEntry{op.name + " Eb,Gb", aluModRM(op, widthByte, false)}
		opcodeTable[base+1] = opcodeEntry{op.name + " Ev,Gv", aluModRM(op, widthWord, false)}
		opcodeTable[base+2] = opcodeEntry{op.name + " Gb,Eb", aluModRM(op, widthByte, true)}
		opcodeTable[base+3] = opcodeEntry{op.name + " Gv,Ev", aluModRM(op, widthWord, true)}
		opcodeTable[base+4] = opcodeEntry{op.name + " AL,ib", aluAccumImm(op, widthByte)}
		opcodeTable[base+5] = opcodeEntry{op.name + " eAX,iv", aluAccumImm(op, widthWord)}
	}
}

// aluModRM builds a handler for a ModR/M-addressed ALU instruction.
// regIsDest distinguishes the Gb,Eb/Gv,Ev encodings (register is the
// destination) from Eb,Gb/Ev,Gv (r/m is the destination).
func aluModRM(op aluOp, w width, regIsDest bool) func(c *CPU, e opcodeEntry) ExecStatus {
	return func(c *CPU, e opcodeEntry) ExecStatus {
		m := c.decodeModRM(w)
		regAddr := c.registerOperandFor(m.reg, w)

		var dstAddr, srcAddr operandAddress
		if regIsDest {
			dstAddr, srcAddr = regAddr, m.rm
		} else {
			dstAddr, srcAddr = m.rm, regAddr
		}

		dst := c.readOperand(dstAddr, w)
		src := c.readOperand(srcAddr, w)
		result := op.apply(c, dst, src, w)
		if op.writeBack {
			c.writeOperand(dstAddr, w, result)
		}
		return StatusOK
	}
}

func aluAccumImm(op aluOp, w width) func(c *CPU, e opcodeEntry) ExecStatus {
	return func(c *CPU, e opcodeEntry) ExecStatus {
		var imm uint32
		if w == widthByte {
			imm = uint32(c.fetchByte())
		} else {
			imm = uint32(c.fetchWord())
		}
		accum := registerOperand(regAX, 0)
		dst := c.readOperand(accum, w)
		result := op.apply(c, dst, imm, w)
		if op.writeBack {
			c.writeOperand(accum, w, result)
		}
		return StatusOK
	}
}

// buildDataTransfer fills MOV's several encodings plus XCHG.
func buildDataTransfer() {
	// MOV Eb,Gb / Ev,Gv / Gb,Eb / Gv,Ev (0x88-0x8B)
	opcodeTable[0x88] = opcodeEntry{"MOV Eb,Gb", movModRM(widthByte, false)}
	opcodeTable[0x89] = opcodeEntry{"MOV Ev,Gv", movModRM(widthWord, false)}
	opcodeTable[0x8A] = opcodeEntry{"MOV Gb,Eb", movModRM(widthByte, true)}
	opcodeTable[0x8B] = opcodeEntry{"MOV Gv,Ev", movModRM(widthWord, true)}

	// MOV Ew,Sw / MOV Sw,Ew (0x8C, 0x8E): segment registers.
	opcodeTable[0x8C] = opcodeEntry{"MOV Ew,Sw", func(c *CPU, e opcodeEntry) ExecStatus {
		m := c.decodeModRM(widthWord)
		c.writeOperand(m.rm, widthWord, uint32(c.segs[m.reg&0x03]))
		return StatusOK
	}}
	opcodeTable[0x8E] = opcodeEntry{"MOV Sw,Ew", func(c *CPU, e opcodeEntry) ExecStatus {
		m := c.decodeModRM(widthWord)
		c.segs[m.reg&0x03] = uint16(c.readOperand(m.rm, widthWord))
		return StatusOK
	}}

	// MOV AL/AX, [imm16] and MOV [imm16], AL/AX (0xA0-0xA3).
	opcodeTable[0xA0] = opcodeEntry{"MOV AL,Ob", movAccumDirect(widthByte, true)}
	opcodeTable[0xA1] = opcodeEntry{"MOV AX,Ov", movAccumDirect(widthWord, true)}
	opcodeTable[0xA2] = opcodeEntry{"MOV Ob,AL", movAccumDirect(widthByte, false)}
	opcodeTable[0xA3] = opcodeEntry{"MOV Ov,AX", movAccumDirect(widthWord, false)}

	// MOV reg8, imm8 (0xB0-0xB7) and MOV reg16, imm16 (0xB8-0xBF).
	for r := uint8(0); r < 8; r++ {
		r := r
		opcodeTable[0xB0+r] = opcodeEntry{"MOV reg8,ib", func(c *CPU, e opcodeEntry) ExecStatus {
			c.writeOperand(c.registerOperandFor(r, widthByte), widthByte, uint32(c.fetchByte()))
			return StatusOK
		}}
		opcodeTable[0xB8+r] = opcodeEntry{"MOV reg16,iv", func(c *CPU, e opcodeEntry) ExecStatus {
			c.writeRegWord(r, c.fetchWord())
			return StatusOK
		}}
	}

	// MOV Eb,ib / MOV Ev,iv (0xC6/0xC7).
	opcodeTable[0xC6] = opcodeEntry{"MOV Eb,ib", func(c *CPU, e opcodeEntry) ExecStatus {
		m := c.decodeModRM(widthByte)
		c.writeOperand(m.rm, widthByte, uint32(c.fetchByte()))
		return StatusOK
	}}
	opcodeTable[0xC7] = opcodeEntry{"MOV Ev,iv", func(c *CPU, e opcodeEntry) ExecStatus {
		m := c.decodeModRM(widthWord)
		c.writeOperand(m.rm, widthWord, uint32(c.fetchWord()))
		return StatusOK
	}}

	// XCHG Eb,Gb / Ev,Gv (0x86/0x87).
	opcodeTable[0x86] = opcodeEntry{"XCHG Eb,Gb", xchgModRM(widthByte)}
	opcodeTable[0x87] = opcodeEntry{"XCHG Ev,Gv", xchgModRM(widthWord)}

	// XCHG AX, reg16 (0x91-0x97); 0x90 is NOP (XCHG AX,AX).
	opcodeTable[0x90] = opcodeEntry{"NOP", func(c *CPU, e opcodeEntry) ExecStatus { return StatusOK }}
	for r := uint8(1); r < 8; r++ {
		r := r
		opcodeTable[0x90+r] = opcodeEntry{"XCHG AX,reg", func(c *CPU, e opcodeEntry) ExecStatus {
			c.regs[regAX], c.regs[r] = c.regs[r], c.regs[regAX]
			return StatusOK
		}}
	}

	// LEA Gv,M (0x8D): load the effective address itself, not its contents.
	opcodeTable[0x8D] = opcodeEntry{"LEA Gv,M", func(c *CPU, e opcodeEntry) ExecStatus {
		m := c.decodeModRM(widthWord)
		if m.rm.kind != operandAddressMemory {
			return StatusDecodeFail
		}
		c.writeRegWord(m.reg, m.rm.mem.offset)
		return StatusOK
	}}

	// LES/LDS Gv,Mp (0xC4/0xC5): load a far pointer into reg + ES/DS.
	opcodeTable[0xC4] = opcodeEntry{"LES Gv,Mp", loadFarPointer(segES)}
	opcodeTable[0xC5] = opcodeEntry{"LDS Gv,Mp", loadFarPointer(segDS)}

	// XLAT (0xD7): AL = [BX + unsigned AL], default segment DS.
	opcodeTable[0xD7] = opcodeEntry{"XLAT", func(c *CPU, e opcodeEntry) ExecStatus {
		seg := segDS
		if c.segmentOverride >= 0 {
			seg = uint8(c.segmentOverride)
		}
		offset := c.regs[regBX] + uint16(c.readRegByte(registerAddress{index: regAX}))
		c.writeRegByte(registerAddress{index: regAX}, c.readMemByte(seg, offset))
		return StatusOK
	}}
}

func loadFarPointer(seg uint8) func(c *CPU, e opcodeEntry) ExecStatus {
	return func(c *CPU, e opcodeEntry) ExecStatus {
		m := c.decodeModRM(widthWord)
		if m.rm.kind != operandAddressMemory {
			return StatusDecodeFail
		}
		c.writeRegWord(m.reg, c.readMemWord(m.rm.mem.segment, m.rm.mem.offset))
		c.segs[seg] = c.readMemWord(m.rm.mem.segment, m.rm.mem.offset+2)
		return StatusOK
	}
}

func movModRM(w width, regIsDest bool) func(c *CPU, e opcodeEntry) ExecStatus {
	return func(c *CPU, e opcodeEntry) ExecStatus {
		m := c.decodeModRM(w)
		regAddr := c.registerOperandFor(m.reg, w)
		if regIsDest {
			c.writeOperand(regAddr, w, c.readOperand(m.rm, w))
		} else {
			c.writeOperand(m.rm, w, c.readOperand(regAddr, w))
		}
		return StatusOK
	}
}

func xchgModRM(w width) func(c *CPU, e opcodeEntry) ExecStatus {
	return func(c *CPU, e opcodeEntry) ExecStatus {
		m := c.decodeModRM(w)
		regAddr := c.registerOperandFor(m.reg, w)
		a, b := c.readOperand(regAddr, w), c.readOperand(m.rm, w)
		c.writeOperand(regAddr, w, b)
		c.writeOperand(m.rm, w, a)
		return StatusOK
	}
}

func movAccumDirect(w width, load bool) func(c *CPU, e opcodeEntry) ExecStatus {
	return func(c *CPU, e opcodeEntry) ExecStatus {
		offset := c.fetchWord()
		seg := segDS
		if c.segmentOverride >= 0 {
			seg = uint8(c.segmentOverride)
		}
		addr := memoryOperand(seg, offset)
		accum := registerOperand(regAX, 0)
		if load {
			c.writeOperand(accum, w, c.readOperand(addr, w))
		} else {
			c.writeOperand(addr, w, c.readOperand(accum, w))
		}
		return StatusOK
	}
}

// buildIncDecPushPop fills the single-byte register INC/DEC/PUSH/POP
// opcodes (0x40-0x5F).
func buildIncDecPushPop() {
	for r := uint8(0); r < 8; r++ {
		r := r
		opcodeTable[0x40+r] = opcodeEntry{"INC reg", func(c *CPU, e opcodeEntry) ExecStatus {
			c.regs[r] = uint16(c.incWithFlags(uint32(c.regs[r]), widthWord))
			return StatusOK
		}}
		opcodeTable[0x48+r] = opcodeEntry{"DEC reg", func(c *CPU, e opcodeEntry) ExecStatus {
			c.regs[r] = uint16(c.decWithFlags(uint32(c.regs[r]), widthWord))
			return StatusOK
		}}
		opcodeTable[0x50+r] = opcodeEntry{"PUSH reg", func(c *CPU, e opcodeEntry) ExecStatus {
			c.pushWord(c.regs[r])
			return StatusOK
		}}
		opcodeTable[0x58+r] = opcodeEntry{"POP reg", func(c *CPU, e opcodeEntry) ExecStatus {
			c.regs[r] = c.popWord()
			return StatusOK
		}}
	}

	// PUSH/POP segment registers: ES,CS,SS,DS at 0x06/07,0x0E,0x16/17,0x1E/1F.
	segPush := []struct {
		opcode uint8
		seg    uint8
	}{{0x06, segES}, {0x0E, segCS}, {0x16, segSS}, {0x1E, segDS}}
	for _, sp := range segPush {
		sp := sp
		opcodeTable[sp.opcode] = opcodeEntry{"PUSH seg", func(c *CPU, e opcodeEntry) ExecStatus {
			c.pushWord(c.segs[sp.seg])
			return StatusOK
		}}
	}
	segPop := []struct {
		opcode uint8
		seg    uint8
	}{{0x07, segES}, {0x17, segSS}, {0x1F, segDS}}
	for _, sp := range segPop {
		sp := sp
		opcodeTable[sp.opcode] = opcodeEntry{"POP seg", func(c *CPU, e opcodeEntry) ExecStatus {
			c.segs[sp.seg] = c.popWord()
			return StatusOK
		}}
	}

	// TEST Eb,Gb / Ev,Gv / AL,ib / AX,iv: AND without write-back.
	opcodeTable[0x84] = opcodeEntry{"TEST Eb,Gb", func(c *CPU, e opcodeEntry) ExecStatus {
		m := c.decodeModRM(widthByte)
		c.logicWithFlags(c.readOperand(m.rm, widthByte)&uint32(c.readRegByte(registerAddress{index: m.reg & 3, byteOffset: m.reg >> 2})), widthByte)
		return StatusOK
	}}
	opcodeTable[0x85] = opcodeEntry{"TEST Ev,Gv", func(c *CPU, e opcodeEntry) ExecStatus {
		m := c.decodeModRM(widthWord)
		c.logicWithFlags(c.readOperand(m.rm, widthWord)&uint32(c.readRegWord(m.reg)), widthWord)
		return StatusOK
	}}
	opcodeTable[0xA8] = opcodeEntry{"TEST AL,ib", func(c *CPU, e opcodeEntry) ExecStatus {
		imm := uint32(c.fetchByte())
		c.logicWithFlags(uint32(c.readRegByte(registerAddress{index: regAX}))&imm, widthByte)
		return StatusOK
	}}
	opcodeTable[0xA9] = opcodeEntry{"TEST AX,iv", func(c *CPU, e opcodeEntry) ExecStatus {
		imm := uint32(c.fetchWord())
		c.logicWithFlags(uint32(c.regs[regAX])&imm, widthWord)
		return StatusOK
	}}
}

// buildJumpsAndCalls fills the control-transfer opcodes: short/near/far
// jumps, conditional jumps, loop family, and call/ret variants.
func buildJumpsAndCalls() {
	type cond struct {
		opcode uint8
		name   string
		test   func(c *CPU) bool
	}
	conds := []cond{
		{0x70, "JO", func(c *CPU) bool { return c.flag(flagOF) }},
		{0x71, "JNO", func(c *CPU) bool { return !c.flag(flagOF) }},
		{0x72, "JB", func(c *CPU) bool { return c.flag(flagCF) }},
		{0x73, "JNB", func(c *CPU) bool { return !c.flag(flagCF) }},
		{0x74, "JZ", func(c *CPU) bool { return c.flag(flagZF) }},
		{0x75, "JNZ", func(c *CPU) bool { return !c.flag(flagZF) }},
		{0x76, "JBE", func(c *CPU) bool { return c.flag(flagCF) || c.flag(flagZF) }},
		{0x77, "JA", func(c *CPU) bool { return !c.flag(flagCF) && !c.flag(flagZF) }},
		{0x78, "JS", func(c *CPU) bool { return c.flag(flagSF) }},
		{0x79, "JNS", func(c *CPU) bool { return !c.flag(flagSF) }},
		{0x7A, "JP", func(c *CPU) bool { return c.flag(flagPF) }},
		{0x7B, "JNP", func(c *CPU) bool { return !c.flag(flagPF) }},
		{0x7C, "JL", func(c *CPU) bool { return c.flag(flagSF) != c.flag(flagOF) }},
		{0x7D, "JGE", func(c *CPU) bool { return c.flag(flagSF) == c.flag(flagOF) }},
		{0x7E, "JLE", func(c *CPU) bool { return c.flag(flagZF) || c.flag(flagSF) != c.flag(flagOF) }},
		{0x7F, "JG", func(c *CPU) bool { return !c.flag(flagZF) && c.flag(flagSF) == c.flag(flagOF) }},
	}
	for _, cd := range conds {
		cd := cd
		opcodeTable[cd.opcode] = opcodeEntry{cd.name, func(c *CPU, e opcodeEntry) ExecStatus {
			disp := int8(c.fetchByte())
			if cd.test(c) {
				c.ip = uint16(int32(c.ip) + int32(disp))
			}
			return StatusOK
		}}
	}

	// LOOPNZ/LOOPZ/LOOP/JCXZ (0xE0-0xE3): decrement CX first for the
	// LOOP family, then test the combined condition.
	opcodeTable[0xE0] = opcodeEntry{"LOOPNZ", loopHandler(func(c *CPU) bool { return c.regs[regCX] != 0 && !c.flag(flagZF) })}
	opcodeTable[0xE1] = opcodeEntry{"LOOPZ", loopHandler(func(c *CPU) bool { return c.regs[regCX] != 0 && c.flag(flagZF) })}
	opcodeTable[0xE2] = opcodeEntry{"LOOP", loopHandler(func(c *CPU) bool { return c.regs[regCX] != 0 })}
	opcodeTable[0xE3] = opcodeEntry{"JCXZ", func(c *CPU, e opcodeEntry) ExecStatus {
		disp := int8(c.fetchByte())
		if c.regs[regCX] == 0 {
			c.ip = uint16(int32(c.ip) + int32(disp))
		}
		return StatusOK
	}}

	opcodeTable[0xEB] = opcodeEntry{"JMP rel8", func(c *CPU, e opcodeEntry) ExecStatus {
		disp := int8(c.fetchByte())
		c.ip = uint16(int32(c.ip) + int32(disp))
		return StatusOK
	}}
	opcodeTable[0xE9] = opcodeEntry{"JMP rel16", func(c *CPU, e opcodeEntry) ExecStatus {
		disp := int16(c.fetchWord())
		c.ip = uint16(int32(c.ip) + int32(disp))
		return StatusOK
	}}
	opcodeTable[0xEA] = opcodeEntry{"JMP ptr16:16", func(c *CPU, e opcodeEntry) ExecStatus {
		newIP := c.fetchWord()
		newCS := c.fetchWord()
		c.ip = newIP
		c.segs[segCS] = newCS
		return StatusOK
	}}

	opcodeTable[0xE8] = opcodeEntry{"CALL rel16", func(c *CPU, e opcodeEntry) ExecStatus {
		disp := int16(c.fetchWord())
		c.pushWord(c.ip)
		c.ip = uint16(int32(c.ip) + int32(disp))
		return StatusOK
	}}
	opcodeTable[0x9A] = opcodeEntry{"CALL ptr16:16", func(c *CPU, e opcodeEntry) ExecStatus {
		newIP := c.fetchWord()
		newCS := c.fetchWord()
		c.pushWord(c.segs[segCS])
		c.pushWord(c.ip)
		c.ip = newIP
		c.segs[segCS] = newCS
		return StatusOK
	}}

	opcodeTable[0xC3] = opcodeEntry{"RET", func(c *CPU, e opcodeEntry) ExecStatus {
		c.ip = c.popWord()
		return StatusOK
	}}
	opcodeTable[0xC2] = opcodeEntry{"RET imm16", func(c *CPU, e opcodeEntry) ExecStatus {
		extra := c.fetchWord()
		c.ip = c.popWord()
		c.regs[regSP] += extra
		return StatusOK
	}}
	opcodeTable[0xCB] = opcodeEntry{"RETF", func(c *CPU, e opcodeEntry) ExecStatus {
		c.ip = c.popWord()
		c.segs[segCS] = c.popWord()
		return StatusOK
	}}
	opcodeTable[0xCA] = opcodeEntry{"RETF imm16", func(c *CPU, e opcodeEntry) ExecStatus {
		extra := c.fetchWord()
		c.ip = c.popWord()
		c.segs[segCS] = c.popWord()
		c.regs[regSP] += extra
		return StatusOK
	}}
}

func loopHandler(test func(c *CPU) bool) func(c *CPU, e opcodeEntry) ExecStatus {
	return func(c *CPU, e opcodeEntry) ExecStatus {
		disp := int8(c.fetchByte())
		c.regs[regCX]--
		if test(c) {
			c.ip = uint16(int32(c.ip) + int32(disp))
		}
		return StatusOK
	}
}

// buildGroups fills the ModR/M-extended group opcodes: 0x80-0x83
// (ALU immediate), 0xD0-0xD3 (shift/rotate), 0xF6/0xF7 (unary), and
// 0xFE/0xFF (INC/DEC/CALL/JMP/PUSH).
func buildGroups() {
	opcodeTable[0x80] = opcodeEntry{"grp1 Eb,ib", grp1(widthByte, false)}
	opcodeTable[0x81] = opcodeEntry{"grp1 Ev,iv", grp1(widthWord, false)}
	opcodeTable[0x83] = opcodeEntry{"grp1 Ev,ib", grp1(widthWord, true)}

	opcodeTable[0xD0] = opcodeEntry{"grp2 Eb,1", grp2(widthByte, grp2SourceOne)}
	opcodeTable[0xD1] = opcodeEntry{"grp2 Ev,1", grp2(widthWord, grp2SourceOne)}
	opcodeTable[0xD2] = opcodeEntry{"grp2 Eb,CL", grp2(widthByte, grp2SourceCL)}
	opcodeTable[0xD3] = opcodeEntry{"grp2 Ev,CL", grp2(widthWord, grp2SourceCL)}

	opcodeTable[0xF6] = opcodeEntry{"grp3 Eb", grp3(widthByte)}
	opcodeTable[0xF7] = opcodeEntry{"grp3 Ev", grp3(widthWord)}

	opcodeTable[0xFE] = opcodeEntry{"grp4 Eb", grp45(widthByte, false)}
	opcodeTable[0xFF] = opcodeEntry{"grp5 Ev", grp45(widthWord, true)}
}

// grp1 implements opcodes 0x80/0x81/0x83: the reg field of the ModR/M
// byte selects which of the eight ALU operations to apply. signExtendImm
// is true only for 0x83, whose immediate is a sign-extended byte.
func grp1(w width, signExtendImm bool) func(c *CPU, e opcodeEntry) ExecStatus {
	return func(c *CPU, e opcodeEntry) ExecStatus {
		m := c.decodeModRM(w)
		var imm uint32
		if signExtendImm {
			imm = uint32(int32(int8(c.fetchByte())))
		} else if w == widthByte {
			imm = uint32(c.fetchByte())
		} else {
			imm = uint32(c.fetchWord())
		}
		imm &= widthMaxValue[w]

		op := aluOps[m.reg&0x07]
		dst := c.readOperand(m.rm, w)
		result := op.apply(c, dst, imm, w)
		if op.writeBack {
			c.writeOperand(m.rm, w, result)
		}
		return StatusOK
	}
}

type grp2Source uint8

const (
	grp2SourceOne grp2Source = iota
	grp2SourceCL
)

// grp2 implements the shift/rotate group (0xD0-0xD3). The count is 1
// for 0xD0/0xD1 and the full, unmasked CL value for 0xD2/0xD3; the
// handler applies that many single-position steps through
// shiftRotateOnce within one instruction. A count of zero leaves the
// operand and flags unchanged.
func grp2(w width, src grp2Source) func(c *CPU, e opcodeEntry) ExecStatus {
	return func(c *CPU, e opcodeEntry) ExecStatus {
		m := c.decodeModRM(w)
		count := uint(1)
		if src == grp2SourceCL {
			count = uint(c.regs[regCX] & 0xFF)
		}
		value := c.readOperand(m.rm, w)
		for i := uint(0); i < count; i++ {
			value = c.shiftRotateOnce(value, m.reg&0x07, w)
		}
		if count > 0 {
			c.writeOperand(m.rm, w, value)
		}
		return StatusOK
	}
}

// shiftRotateOnce applies a single shift/rotate step and updates flags,
// dispatching on the group-2 reg field: 0 ROL, 1 ROR, 2 RCL, 3 RCR,
// 4 SHL/SAL, 5 SHR, 7 SAR (6 is not defined on the 8086 and behaves as
// SHL here).
func (c *CPU) shiftRotateOnce(value uint32, kind uint8, w width) uint32 {
	bits := uint32(8)
	if w == widthWord {
		bits = 16
	}
	signBit := widthSignBit[w]
	topBit := value&signBit != 0

	switch kind {
	case 0: // ROL
		carryOut := topBit
		value = ((value << 1) | boolToUint32(carryOut)) & widthMaxValue[w]
		c.setFlag(flagCF, carryOut)
		c.setFlag(flagOF, carryOut != (value&signBit != 0))
	case 1: // ROR
		carryOut := value&1 != 0
		value = (value >> 1) | (boolToUint32(carryOut) << (bits - 1))
		value &= widthMaxValue[w]
		c.setFlag(flagCF, carryOut)
		c.setFlag(flagOF, (value&signBit != 0) != (value&(signBit>>1) != 0))
	case 2: // RCL
		oldCF := boolToUint32(c.flag(flagCF))
		carryOut := topBit
		value = ((value << 1) | oldCF) & widthMaxValue[w]
		c.setFlag(flagCF, carryOut)
		c.setFlag(flagOF, carryOut != (value&signBit != 0))
	case 3: // RCR
		oldCF := boolToUint32(c.flag(flagCF))
		carryOut := value&1 != 0
		c.setFlag(flagOF, topBit != (oldCF != 0))
		value = (value >> 1) | (oldCF << (bits - 1))
		value &= widthMaxValue[w]
		c.setFlag(flagCF, carryOut)
	case 4, 6: // SHL/SAL
		carryOut := topBit
		result := (value << 1) & widthMaxValue[w]
		c.setFlag(flagCF, carryOut)
		c.setFlag(flagOF, carryOut != (result&signBit != 0))
		c.setParityZeroSign(result, w)
		value = result
	case 5: // SHR
		carryOut := value&1 != 0
		c.setFlag(flagOF, topBit)
		result := value >> 1
		c.setFlag(flagCF, carryOut)
		c.setParityZeroSign(result, w)
		value = result
	case 7: // SAR
		carryOut := value&1 != 0
		result := (value >> 1) | (boolToUint32(topBit) * signBit)
		c.setFlag(flagCF, carryOut)
		c.setFlag(flagOF, false)
		c.setParityZeroSign(result, w)
		value = result
	}
	return value
}

// grp3 implements 0xF6/0xF7: TEST/NOT/NEG/MUL/IMUL/DIV/IDIV, selected
// by the ModR/M reg field.
func grp3(w width) func(c *CPU, e opcodeEntry) ExecStatus {
	return func(c *CPU, e opcodeEntry) ExecStatus {
		m := c.decodeModRM(w)
		switch m.reg & 0x07 {
		case 0, 1: // TEST Eb/Ev, imm
			var imm uint32
			if w == widthByte {
				imm = uint32(c.fetchByte())
			} else {
				imm = uint32(c.fetchWord())
			}
			c.logicWithFlags(c.readOperand(m.rm, w)&imm, w)
		case 2: // NOT
			value := c.readOperand(m.rm, w)
			c.writeOperand(m.rm, w, ^value&widthMaxValue[w])
		case 3: // NEG
			value := c.readOperand(m.rm, w)
			result := c.subWithFlags(0, value, 0, w)
			c.setFlag(flagCF, value != 0)
			c.writeOperand(m.rm, w, result)
		case 4: // MUL
			c.mulUnsigned(c.readOperand(m.rm, w), w)
		case 5: // IMUL
			c.mulSigned(c.readOperand(m.rm, w), w)
		case 6: // DIV
			return c.divUnsigned(c.readOperand(m.rm, w), w)
		case 7: // IDIV
			return c.divSigned(c.readOperand(m.rm, w), w)
		}
		return StatusOK
	}
}

// grp45 implements 0xFE (INC/DEC Eb only) and 0xFF (INC/DEC/CALL/JMP/
// PUSH Ev), selected by the ModR/M reg field.
func grp45(w width, extended bool) func(c *CPU, e opcodeEntry) ExecStatus {
	return func(c *CPU, e opcodeEntry) ExecStatus {
		m := c.decodeModRM(w)
		switch m.reg & 0x07 {
		case 0:
			c.writeOperand(m.rm, w, c.incWithFlags(c.readOperand(m.rm, w), w))
		case 1:
			c.writeOperand(m.rm, w, c.decWithFlags(c.readOperand(m.rm, w), w))
		case 2: // CALL near indirect
			if !extended {
				return StatusDecodeFail
			}
			target := c.readOperand(m.rm, widthWord)
			c.pushWord(c.ip)
			c.ip = uint16(target)
		case 3: // CALL far indirect
			if !extended || m.rm.kind != operandAddressMemory {
				return StatusDecodeFail
			}
			newIP := c.readMemWord(m.rm.mem.segment, m.rm.mem.offset)
			newCS := c.readMemWord(m.rm.mem.segment, m.rm.mem.offset+2)
			c.pushWord(c.segs[segCS])
			c.pushWord(c.ip)
			c.ip = newIP
			c.segs[segCS] = newCS
		case 4: // JMP near indirect
			if !extended {
				return StatusDecodeFail
			}
			c.ip = uint16(c.readOperand(m.rm, widthWord))
		case 5: // JMP far indirect
			if !extended || m.rm.kind != operandAddressMemory {
				return StatusDecodeFail
			}
			c.ip = c.readMemWord(m.rm.mem.segment, m.rm.mem.offset)
			c.segs[segCS] = c.readMemWord(m.rm.mem.segment, m.rm.mem.offset+2)
		case 6: // PUSH Ev
			if !extended {
				return StatusDecodeFail
			}
			c.pushWord(uint16(c.readOperand(m.rm, widthWord)))
		default:
			return StatusDecodeFail
		}
		return StatusOK
	}
}

// buildStringAndMisc fills IN/OUT port I/O opcodes plus the accumulator
// sign-extension pair and POP Ev. String-move opcodes live in
// strings_ops.go.
func buildStringAndMisc() {
	opcodeTable[0x8F] = opcodeEntry{"POP Ev", func(c *CPU, e opcodeEntry) ExecStatus {
		m := c.decodeModRM(widthWord)
		if m.reg&0x07 != 0 {
			return StatusDecodeFail
		}
		c.writeOperand(m.rm, widthWord, uint32(c.popWord()))
		return StatusOK
	}}

	opcodeTable[0x98] = opcodeEntry{"CBW", func(c *CPU, e opcodeEntry) ExecStatus {
		c.regs[regAX] = uint16(int16(int8(c.regs[regAX])))
		return StatusOK
	}}
	opcodeTable[0x99] = opcodeEntry{"CWD", func(c *CPU, e opcodeEntry) ExecStatus {
		if c.regs[regAX]&0x8000 != 0 {
			c.regs[regDX] = 0xFFFF
		} else {
			c.regs[regDX] = 0
		}
		return StatusOK
	}}

	opcodeTable[0xE4] = opcodeEntry{"IN AL,ib", inFixed(widthByte)}
	opcodeTable[0xE5] = opcodeEntry{"IN AX,ib", inFixed(widthWord)}
	opcodeTable[0xE6] = opcodeEntry{"OUT ib,AL", outFixed(widthByte)}
	opcodeTable[0xE7] = opcodeEntry{"OUT ib,AX", outFixed(widthWord)}
	opcodeTable[0xEC] = opcodeEntry{"IN AL,DX", inDX(widthByte)}
	opcodeTable[0xED] = opcodeEntry{"IN AX,DX", inDX(widthWord)}
	opcodeTable[0xEE] = opcodeEntry{"OUT DX,AL", outDX(widthByte)}
	opcodeTable[0xEF] = opcodeEntry{"OUT DX,AX", outDX(widthWord)}
}

func portSize(w width) uint8 {
	if w == widthByte {
		return 1
	}
	return 2
}

func inFixed(w width) func(c *CPU, e opcodeEntry) ExecStatus {
	return func(c *CPU, e opcodeEntry) ExecStatus {
		port := uint16(c.fetchByte())
		return c.doIn(port, w)
	}
}

func outFixed(w width) func(c *CPU, e opcodeEntry) ExecStatus {
	return func(c *CPU, e opcodeEntry) ExecStatus {
		port := uint16(c.fetchByte())
		return c.doOut(port, w)
	}
}

func inDX(w width) func(c *CPU, e opcodeEntry) ExecStatus {
	return func(c *CPU, e opcodeEntry) ExecStatus { return c.doIn(c.regs[regDX], w) }
}

func outDX(w width) func(c *CPU, e opcodeEntry) ExecStatus {
	return func(c *CPU, e opcodeEntry) ExecStatus { return c.doOut(c.regs[regDX], w) }
}

func (c *CPU) doIn(port uint16, w width) ExecStatus {
	value, err := c.config.ReadPort(port, portSize(w))
	if err != nil {
		return StatusCallbackDeclined
	}
	c.writeOperand(registerOperand(regAX, 0), w, value)
	return StatusOK
}

func (c *CPU) doOut(port uint16, w width) ExecStatus {
	value := c.readOperand(registerOperand(regAX, 0), w)
	if err := c.config.WritePort(port, portSize(w), value); err != nil {
		return StatusCallbackDeclined
	}
	return StatusOK
}

// buildFlagsAndControl fills the flag-manipulation, HLT, and
// PUSHF/POPF/LAHF/SAHF opcodes.
func buildFlagsAndControl() {
	opcodeTable[0xF4] = opcodeEntry{"HLT", func(c *CPU, e opcodeEntry) ExecStatus {
		c.halted = true
		return StatusHalt
	}}
	opcodeTable[0xF5] = opcodeEntry{"CMC", func(c *CPU, e opcodeEntry) ExecStatus {
		c.setFlag(flagCF, !c.flag(flagCF))
		return StatusOK
	}}
	opcodeTable[0xF8] = opcodeEntry{"CLC", func(c *CPU, e opcodeEntry) ExecStatus { c.setFlag(flagCF, false); return StatusOK }}
	opcodeTable[0xF9] = opcodeEntry{"STC", func(c *CPU, e opcodeEntry) ExecStatus { c.setFlag(flagCF, true); return StatusOK }}
	opcodeTable[0xFA] = opcodeEntry{"CLI", func(c *CPU, e opcodeEntry) ExecStatus { c.setFlag(flagIF, false); return StatusOK }}
	opcodeTable[0xFB] = opcodeEntry{"STI", func(c *CPU, e opcodeEntry) ExecStatus { c.setFlag(flagIF, true); return StatusOK }}
	opcodeTable[0xFC] = opcodeEntry{"CLD", func(c *CPU, e opcodeEntry) ExecStatus { c.setFlag(flagDF, false); return StatusOK }}
	opcodeTable[0xFD] = opcodeEntry{"STD", func(c *CPU, e opcodeEntry) ExecStatus { c.setFlag(flagDF, true); return StatusOK }}

	opcodeTable[0x9C] = opcodeEntry{"PUSHF", func(c *CPU, e opcodeEntry) ExecStatus {
		c.pushWord(c.flags)
		return StatusOK
	}}
	opcodeTable[0x9D] = opcodeEntry{"POPF", func(c *CPU, e opcodeEntry) ExecStatus {
		c.SetFlags(c.popWord())
		return StatusOK
	}}
	opcodeTable[0x9E] = opcodeEntry{"SAHF", func(c *CPU, e opcodeEntry) ExecStatus {
		ah := c.readRegByte(registerAddress{index: regAX, byteOffset: 1})
		c.flags = (c.flags &^ 0xFF) | uint16(ah)
		c.flags |= 0x0002
		return StatusOK
	}}
	opcodeTable[0x9F] = opcodeEntry{"LAHF", func(c *CPU, e opcodeEntry) ExecStatus {
		c.writeRegByte(registerAddress{index: regAX, byteOffset: 1}, uint8(c.flags))
		return StatusOK
	}}

	opcodeTable[0xCC] = opcodeEntry{"INT3", func(c *CPU, e opcodeEntry) ExecStatus {
		c.serviceInterrupt(3)
		return StatusOK
	}}
	opcodeTable[0xCD] = opcodeEntry{"INT ib", func(c *CPU, e opcodeEntry) ExecStatus {
		vector := c.fetchByte()
		if !c.vectorPopulated(vector) {
			c.lastUnhandledVector = vector
			return StatusUnhandledInterrupt
		}
		c.serviceInterrupt(vector)
		return StatusOK
	}}
	opcodeTable[0xCE] = opcodeEntry{"INTO", func(c *CPU, e opcodeEntry) ExecStatus {
		if c.flag(flagOF) {
			c.serviceInterrupt(4)
		}
		return StatusOK
	}}
	opcodeTable[0xCF] = opcodeEntry{"IRET", func(c *CPU, e opcodeEntry) ExecStatus {
		c.iret()
		return StatusOK
	}}
}
