package cpu

// width distinguishes 8- and 16-bit operands.
type width uint8

const (
	widthByte width = iota
	widthWord
)

var widthMaxValue = [2]uint32{0xFF, 0xFFFF}
var widthSignBit = [2]uint32{0x80, 0x8000}

// register indices into CPU.regs, word-addressable.
const (
	regAX uint8 = iota
	regCX
	regDX
	regBX
	regSP
	regBP
	regSI
	regDI
	numRegisters
)

// segment register indices into CPU.segs.
const (
	segES uint8 = iota
	segCS
	segSS
	segDS
	numSegments
)

// registerAddress names a register plus, for byte operands, which
// half of the word it addresses (AL/AH vs AX, etc).
type registerAddress struct {
	index      uint8
	byteOffset uint8 // 0 = low byte or full word, 1 = high byte
}

// memoryAddress is a segment:offset pair whose segment is already
// resolved (the decoder fills in segment from the addressing mode's
// default or an override prefix).
type memoryAddress struct {
	segment uint8
	offset  uint16
}

type operandAddressKind uint8

const (
	operandAddressRegister operandAddressKind = iota
	operandAddressMemory
)

// operandAddress is a tagged union: every operand carries an address,
// either a register or a memory location, resolved independently of
// how its value is read or written.
type operandAddress struct {
	kind tagKind
	reg  registerAddress
	mem  memoryAddress
}

type tagKind = operandAddressKind

func registerOperand(index uint8, byteOffset uint8) operandAddress {
	return operandAddress{kind: operandAddressRegister, reg: registerAddress{index: index, byteOffset: byteOffset}}
}

func memoryOperand(segment uint8, offset uint16) operandAddress {
	return operandAddress{kind: operandAddressMemory, mem: memoryAddress{segment: segment, offset: offset}}
}

// readOperandFn and writeOperandFn are 2x2 dispatch tables keyed by
// [operandAddressKind][width], so each instruction handler is written
// once per semantic rather than once per addressing mode.
var readOperandFn = [2][2]func(c *CPU, addr operandAddress) uint32{
	operandAddressRegister: {
		widthByte: func(c *CPU, addr operandAddress) uint32 { return uint32(c.readRegByte(addr.reg)) },
		widthWord: func(c *CPU, addr operandAddress) uint32 { return uint32(c.readRegWord(addr.reg.index)) },
	},
	operandAddressMemory: {
		widthByte: func(c *CPU, addr operandAddress) uint32 {
			return uint32(c.readMemByte(addr.mem.segment, addr.mem.offset))
		},
		widthWord: func(c *CPU, addr operandAddress) uint32 {
			return uint32(c.readMemWord(addr.mem.segment, addr.mem.offset))
		},
	},
}

var writeOperandFn = [2][2]func(c *CPU, addr operandAddress, value uint32){
	operandAddressRegister: {
		widthByte: func(c *CPU, addr operandAddress, value uint32) { c.writeRegByte(addr.reg, uint8(value)) },
		widthWord: func(c *CPU, addr operandAddress, value uint32) { c.writeRegWord(addr.reg.index, uint16(value)) },
	},
	operandAddressMemory: {
		widthByte: func(c *CPU, addr operandAddress, value uint32) {
			c.writeMemByte(addr.mem.segment, addr.mem.offset, uint8(value))
		},
		widthWord: func(c *CPU, addr operandAddress, value uint32) {
			c.writeMemWord(addr.mem.segment, addr.mem.offset, uint16(value))
		},
	},
}

func (c *CPU) readOperand(addr operandAddress, w width) uint32 {
	return readOperandFn[addr.kind][w](c, addr)
}

func (c *CPU) writeOperand(addr operandAddress, w width, value uint32) {
	writeOperandFn[addr.kind][w](c, addr, value)
}

func (c *CPU) readRegByte(addr registerAddress) uint8 {
	word := c.regs[addr.index]
	if addr.byteOffset == 1 {
		return uint8(word >> 8)
	}
	return uint8(word)
}

func (c *CPU) writeRegByte(addr registerAddress, value uint8) {
	word := &c.regs[addr.index]
	if addr.byteOffset == 1 {
		*word = (*word &^ 0xFF00) | uint16(value)<<8
	} else {
		*word = (*word &^ 0x00FF) | uint16(value)
	}
}

func (c *CPU) readRegWord(index uint8) uint16 {
	return c.regs[index]
}

func (c *CPU) writeRegWord(index uint8, value uint16) {
	c.regs[index] = value
}
