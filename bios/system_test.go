package bios

import "testing"

func TestInt11ReportsEquipmentWord(t *testing.T) {
	mem := &fakeMemory{}
	b := New(&Config{
		ReadMemory:  func(addr uint32) uint8 { return mem.bytes[addr] },
		WriteMemory: func(addr uint32, v uint8) { mem.bytes[addr] = v },
		Equipment:   Equipment{NumFloppyDrives: 2, FPUInstalled: true, MemorySizeKiB: 640},
	})

	regs := &fakeRegisters{}
	b.Dispatch(0x11, regs)
	word := uint16(regs.ah)<<8 | uint16(regs.al)

	if word&0x1 == 0 {
		t.Fatalf("equipment word = 0x%04x, floppy-present bit clear", word)
	}
	if word&0x2 == 0 {
		t.Fatalf("equipment word = 0x%04x, FPU bit clear", word)
	}
	if drives := (word >> 6) & 0x3; drives != 1 {
		t.Fatalf("equipment word drive count field = %d, want 1 (2 drives - 1)", drives)
	}
}

func TestInt12ReportsMemorySize(t *testing.T) {
	b, _ := newTestBIOS()
	regs := &fakeRegisters{}
	b.Dispatch(0x12, regs)
	size := uint16(regs.ah)<<8 | uint16(regs.al)
	if size != 640 {
		t.Fatalf("memory size = %d, want 640", size)
	}
}

func TestInt1ATickCountRoundTrips(t *testing.T) {
	b, _ := newTestBIOS()

	for i := 0; i < 5; i++ {
		b.Tick()
	}

	regs := &fakeRegisters{ah: 0x00}
	b.Dispatch(0x1A, regs)
	count := uint32(regs.ch)<<24 | uint32(regs.cl)<<16 | uint32(regs.dh)<<8 | uint32(regs.dl)
	if count != 5 {
		t.Fatalf("tick count = %d, want 5", count)
	}
	if regs.al != 0 {
		t.Fatalf("midnight flag = %d, want 0", regs.al)
	}
}

func TestInt1AIgnoresUnsupportedFunction(t *testing.T) {
	b, _ := newTestBIOS()
	b.Tick()

	regs := &fakeRegisters{ah: 0x01, ch: 0xAA}
	b.Dispatch(0x1A, regs)
	if regs.ch != 0xAA {
		t.Fatalf("AH=0x01 modified registers, want no-op")
	}
}
