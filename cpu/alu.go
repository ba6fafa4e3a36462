package cpu

// parityTable[b] is true when b has an even number of set bits, used
// for PF which is always computed over the low byte of the result
// regardless of operand width.
var parityTable = buildParityTable()

func buildParityTable() [256]bool {
	var t [256]bool
	for i := 0; i < 256; i++ {
		bits := 0
		for v := i; v != 0; v >>= 1 {
			bits += v & 1
		}
		t[i] = bits%2 == 0
	}
	return t
}

func (c *CPU) setParityZeroSign(result uint32, w width) {
	c.setFlag(flagPF, parityTable[uint8(result)])
	c.setFlag(flagZF, result&widthMaxValue[w] == 0)
	c.setFlag(flagSF, result&widthSignBit[w] != 0)
}

// addWithFlags computes a+b+carryIn at width w, sets CF/OF/AF plus the
// common PF/ZF/SF, and returns the truncated result.
func (c *CPU) addWithFlags(a, b uint32, carryIn uint32, w width) uint32 {
	full := a + b + carryIn
	result := full & widthMaxValue[w]

	c.setFlag(flagCF, full > widthMaxValue[w])
	c.setFlag(flagAF, (a&0xF)+(b&0xF)+carryIn > 0xF)

	signA := a&widthSignBit[w] != 0
	signB := b&widthSignBit[w] != 0
	signR := result&widthSignBit[w] != 0
	c.setFlag(flagOF, signA == signB && signA != signR)

	c.setParityZeroSign(result, w)
	return result
}

// subWithFlags computes a-b-borrowIn at width w with 8086 flag
// semantics (CF set means a borrow was needed).
func (c *CPU) subWithFlags(a, b uint32, borrowIn uint32, w width) uint32 {
	full := int64(a) - int64(b) - int64(borrowIn)
	result := uint32(full) & widthMaxValue[w]

	c.setFlag(flagCF, full < 0)
	c.setFlag(flagAF, int64(a&0xF)-int64(b&0xF)-int64(borrowIn) < 0)

	signA := a&widthSignBit[w] != 0
	signB := b&widthSignBit[w] != 0
	signR := result&widthSignBit[w] != 0
	c.setFlag(flagOF, signA != signB && signA != signR)

	c.setParityZeroSign(result, w)
	return result
}

// logicWithFlags applies a bitwise op's common flag contract: CF and
// OF are cleared, AF is undefined (cleared here), PF/ZF/SF reflect the
// result.
func (c *CPU) logicWithFlags(result uint32, w width) uint32 {
	result &= widthMaxValue[w]
	c.setFlag(flagCF, false)
	c.setFlag(flagOF, false)
	c.setParityZeroSign(result, w)
	return result
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// incWithFlags and decWithFlags adjust a value by one without
// disturbing CF, matching the documented INC/DEC behaviour.
func (c *CPU) incWithFlags(value uint32, w width) uint32 {
	cf := c.flag(flagCF)
	result := c.addWithFlags(value, 1, 0, w)
	c.setFlag(flagCF, cf)
	return result
}

func (c *CPU) decWithFlags(value uint32, w width) uint32 {
	cf := c.flag(flagCF)
	result := c.subWithFlags(value, 1, 0, w)
	c.setFlag(flagCF, cf)
	return result
}

// mulUnsigned implements MUL: AX = AL*src (byte) or DX:AX = AX*src
// (word). CF and OF are set when the upper half is non-zero.
func (c *CPU) mulUnsigned(src uint32, w width) {
	if w == widthByte {
		al := uint32(c.readRegByte(registerAddress{index: regAX}))
		result := al * src
		c.regs[regAX] = uint16(result)
		overflow := result>>8 != 0
		c.setFlag(flagCF, overflow)
		c.setFlag(flagOF, overflow)
		return
	}
	ax := uint32(c.regs[regAX])
	result := ax * src
	c.regs[regAX] = uint16(result)
	c.regs[regDX] = uint16(result >> 16)
	overflow := c.regs[regDX] != 0
	c.setFlag(flagCF, overflow)
	c.setFlag(flagOF, overflow)
}

// mulSigned implements IMUL with a single (non-ModR/M-dest) operand,
// following the same AX/DX:AX destination convention as mulUnsigned.
func (c *CPU) mulSigned(src uint32, w width) {
	if w == widthByte {
		al := int32(int8(c.readRegByte(registerAddress{index: regAX})))
		result := al * int32(int8(src))
		c.regs[regAX] = uint16(int16(result))
		fits := result == int32(int8(result))
		c.setFlag(flagCF, !fits)
		c.setFlag(flagOF, !fits)
		return
	}
	ax := int32(int16(c.regs[regAX]))
	result := ax * int32(int16(src))
	c.regs[regAX] = uint16(result)
	c.regs[regDX] = uint16(result >> 16)
	fits := result == int32(int16(result))
	c.setFlag(flagCF, !fits)
	c.setFlag(flagOF, !fits)
}

// divUnsigned implements DIV. A zero divisor raises interrupt 0
// (divide error) instead of crashing the interpreter.
func (c *CPU) divUnsigned(src uint32, w width) ExecStatus {
	if src == 0 {
		c.serviceInterrupt(0)
		return StatusOK
	}
	if w == widthByte {
		dividend := uint32(c.regs[regAX])
		quotient := dividend / src
		if quotient > 0xFF {
			c.serviceInterrupt(0)
			return StatusOK
		}
		remainder := dividend % src
		c.writeRegByte(registerAddress{index: regAX}, uint8(quotient))
		c.writeRegByte(registerAddress{index: regAX, byteOffset: 1}, uint8(remainder))
		return StatusOK
	}
	dividend := uint32(c.regs[regDX])<<16 | uint32(c.regs[regAX])
	quotient := dividend / src
	if quotient > 0xFFFF {
		c.serviceInterrupt(0)
		return StatusOK
	}
	remainder := dividend % src
	c.regs[regAX] = uint16(quotient)
	c.regs[regDX] = uint16(remainder)
	return StatusOK
}

// divSigned implements IDIV, following the same divide-error semantics
// as divUnsigned.
func (c *CPU) divSigned(src uint32, w width) ExecStatus {
	if w == widthByte {
		divisor := int32(int8(src))
		if divisor == 0 {
			c.serviceInterrupt(0)
			return StatusOK
		}
		dividend := int32(int16(c.regs[regAX]))
		quotient := dividend / divisor
		if quotient > 127 || quotient < -128 {
			c.serviceInterrupt(0)
			return StatusOK
		}
		remainder := dividend % divisor
		c.writeRegByte(registerAddress{index: regAX}, uint8(int8(quotient)))
		c.writeRegByte(registerAddress{index: regAX, byteOffset: 1}, uint8(int8(remainder)))
		return StatusOK
	}
	divisor := int32(int16(src))
	if divisor == 0 {
		c.serviceInterrupt(0)
		return StatusOK
	}
	dividend := int32(c.regs[regDX])<<16 | int32(c.regs[regAX])
	quotient := dividend / divisor
	if quotient > 32767 || quotient < -32768 {
		c.serviceInterrupt(0)
		return StatusOK
	}
	remainder := dividend % divisor
	c.regs[regAX] = uint16(int16(quotient))
	c.regs[regDX] = uint16(int16(remainder))
	return StatusOK
}
