package bios

// int11 implements INT 11h: return the BDA equipment word in AX.
func (b *BIOS) int11(regs Registers) {
	word := b.readBDAWord(bdaEquipmentWord)
	regs.SetAH(uint8(word >> 8))
	regs.SetAL(uint8(word))
}

// int12 implements INT 12h: return configured conventional memory size
// in KiB, in AX.
func (b *BIOS) int12(regs Registers) {
	size := b.config.Equipment.MemorySizeKiB
	regs.SetAH(uint8(size >> 8))
	regs.SetAL(uint8(size))
}

// int1A implements INT 1Ah AH=0x00: return the BDA tick count in
// CX:DX and the midnight-rollover flag in AL. This implementation
// never rolls the counter over (a 32-bit tick count at 18.2 Hz would
// take years to wrap), so AL is always 0.
func (b *BIOS) int1A(regs Registers) {
	if regs.AH() != 0x00 {
		return
	}
	count := b.readBDADWord(bdaTimerTickCount)
	regs.SetCH(uint8(count >> 24))
	regs.SetCL(uint8(count >> 16))
	regs.SetDH(uint8(count >> 8))
	regs.SetDL(uint8(count))
	regs.SetAL(0)
}
