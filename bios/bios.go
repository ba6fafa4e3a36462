// Package bios implements the selected BIOS interrupt services
// (video, keyboard, equipment, memory size, time-of-day) that an XT-era
// BIOS exposes to real-mode software, plus the BIOS Data Area those
// services read and update. It is driven by cpu.CPU's
// StatusUnhandledInterrupt result: a software INT whose vector table
// entry has never been populated with real 8086 code is dispatched
// here instead, the way the devices package's peripherals are driven
// by port I/O rather than memory-mapped registers.
package bios

// Registers is the subset of cpu.CPU's register API the BIOS service
// layer reads and writes. Defined here (rather than importing cpu)
// so bios has no dependency on the instruction interpreter; cpu.CPU
// satisfies it directly.
type Registers interface {
	AH() uint8
	AL() uint8
	BH() uint8
	BL() uint8
	CH() uint8
	CL() uint8
	DH() uint8
	DL() uint8

	SetAH(uint8)
	SetAL(uint8)
	SetBH(uint8)
	SetBL(uint8)
	SetCH(uint8)
	SetCL(uint8)
	SetDH(uint8)
	SetDL(uint8)

	SetZF(bool)
	SetCF(bool)
}

// Result reports how Dispatch wants the caller to proceed.
type Result int

const (
	// ResultHandled means the service ran to completion; the caller
	// resumes execution at the instruction after the INT.
	ResultHandled Result = iota
	// ResultKeepPolling means the service found nothing to do (an
	// empty keyboard buffer for a blocking read) and the caller should
	// rewind IP back onto the INT instruction so the next
	// RunInstructionCycle call retries it, the way real BIOS code
	// spin-loops inside INT 16h AH=0x00.
	ResultKeepPolling
)

// Equipment describes the fixed hardware configuration INT 11h/12h
// report, mirroring devices.PPIConfig's fields since on real hardware
// both are derived from the same DIP-switch bank.
type Equipment struct {
	NumFloppyDrives int
	FPUInstalled    bool
	MemorySizeKiB   int
}

// Config supplies the BIOS service layer's only external dependency:
// byte-addressed access to the 20-bit physical address space. Video
// RAM is reached through the same callbacks at its memory-mapped
// window; devices.MDAController has its own pair for the renderer.
type Config struct {
	ReadMemory  func(address uint32) uint8
	WriteMemory func(address uint32, value uint8)

	Equipment Equipment
}

// BIOS owns the BDA and the keyboard input buffer the keyboard
// pipeline's scancodes are translated into.
type BIOS struct {
	config *Config

	keyboardBuffer []keyEvent
}

type keyEvent struct {
	ascii    uint8
	scancode uint8
}

// New creates a BIOS wired to config, initializes the BDA to power-on
// defaults (MDA text mode 7, 80 columns, cursor shape 12-13, equipment
// word from config.Equipment) and clears VRAM-adjacent state the same
// way a real POST routine would.
func New(config *Config) *BIOS {
	b := &BIOS{config: config}
	b.writeBDAByte(bdaVideoMode, videoModeMDA80x25)
	b.writeBDAWord(bdaVideoColumns, mdaColumns)
	b.writeBDAByte(bdaCursorShapeStart, defaultCursorShapeStart)
	b.writeBDAByte(bdaCursorShapeEnd, defaultCursorShapeEnd)
	b.writeBDAByte(bdaActivePage, 0)
	b.writeBDAWord(bdaCRTCBasePort, mdaCRTCBasePort)
	b.writeBDAWord(bdaEquipmentWord, equipmentWord(config.Equipment))
	b.writeBDADWord(bdaTimerTickCount, 0)
	return b
}

func equipmentWord(e Equipment) uint16 {
	var w uint16
	if e.NumFloppyDrives > 0 {
		w |= 1 << 0
	}
	if e.FPUInstalled {
		w |= 1 << 1
	}
	w |= 0x3 << 4 // initial video mode: 80x25 monochrome
	drives := e.NumFloppyDrives
	if drives < 1 {
		drives = 1
	}
	if drives > 4 {
		drives = 4
	}
	w |= uint16(drives-1) << 6
	return w
}

// Dispatch services the software interrupt vector, translating it
// into BDA/VRAM updates and register results exactly as the equivalent
// AH-keyed handler in an XT BIOS ROM would. Unrecognized vectors are a
// silent no-op: there is simply no service installed for them.
func (b *BIOS) Dispatch(vector uint8, regs Registers) Result {
	switch vector {
	case 0x10:
		b.int10(regs)
		return ResultHandled
	case 0x11:
		b.int11(regs)
		return ResultHandled
	case 0x12:
		b.int12(regs)
		return ResultHandled
	case 0x16:
		return b.int16(regs)
	case 0x1A:
		b.int1A(regs)
		return ResultHandled
	default:
		return ResultHandled
	}
}

// Tick advances the BDA timer tick count by one, the same counter
// INT 1Ah AH=0x00 reads back. Callers drive this at the BIOS's nominal
// 18.2 Hz (one tick per ~54.9 ms), typically from PIT channel 0's IRQ.
func (b *BIOS) Tick() {
	count := b.readBDADWord(bdaTimerTickCount)
	count++
	b.writeBDADWord(bdaTimerTickCount, count)
}

// HandleScancode is the keyboard pipeline's scancode-delivery hook
// (wired as devices.KeyboardConfig.SendScancode by machine.Machine),
// translating a raw XT make/break code into the BIOS keyboard buffer
// INT 16h reads from. Break codes (bit 7 set) and unmapped scancodes
// produce no entry, matching a real BIOS int09 handler that drops key
// releases and unrecognized keys rather than queuing a null character.
func (b *BIOS) HandleScancode(scancode uint8) {
	if scancode&0x80 != 0 {
		return // key release
	}
	ascii := xtScancodeToASCII[scancode]
	if ascii == 0 {
		return
	}
	if len(b.keyboardBuffer) >= keyboardBufferCapacity {
		return
	}
	b.keyboardBuffer = append(b.keyboardBuffer, keyEvent{ascii: ascii, scancode: scancode})
}

func (b *BIOS) readBDAByte(offset uint16) uint8 {
	return b.config.ReadMemory(bdaPhysicalAddress(offset))
}

func (b *BIOS) writeBDAByte(offset uint16, value uint8) {
	b.config.WriteMemory(bdaPhysicalAddress(offset), value)
}

func (b *BIOS) readBDAWord(offset uint16) uint16 {
	lo := b.readBDAByte(offset)
	hi := b.readBDAByte(offset + 1)
	return uint16(lo) | uint16(hi)<<8
}

func (b *BIOS) writeBDAWord(offset uint16, value uint16) {
	b.writeBDAByte(offset, uint8(value))
	b.writeBDAByte(offset+1, uint8(value>>8))
}

func (b *BIOS) readBDADWord(offset uint16) uint32 {
	lo := b.readBDAWord(offset)
	hi := b.readBDAWord(offset + 2)
	return uint32(lo) | uint32(hi)<<16
}

func (b *BIOS) writeBDADWord(offset uint16, value uint32) {
	b.writeBDAWord(offset, uint16(value))
	b.writeBDAWord(offset+2, uint16(value>>16))
}

func bdaPhysicalAddress(offset uint16) uint32 {
	return uint32(bdaSegment)<<4 + uint32(offset)
}

func (b *BIOS) readVRAMByte(offset uint32) uint8 {
	if offset >= mdaVRAMWindowSize {
		return 0xFF
	}
	return b.config.ReadMemory(mdaVRAMPhysicalBase + offset)
}

func (b *BIOS) writeVRAMByte(offset uint32, value uint8) {
	if offset >= mdaVRAMWindowSize {
		return
	}
	b.config.WriteMemory(mdaVRAMPhysicalBase+offset, value)
}
