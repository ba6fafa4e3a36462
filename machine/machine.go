// Package machine wires a cpu.CPU, the devices package's peripherals
// and the bios service layer into a runnable PC/XT-class machine: it
// owns conventional RAM, MDA video RAM and the BIOS ROM image, routes
// port I/O through a devices.IOBus, and routes peripheral IRQs into a
// single devices.InterruptController the CPU polls at instruction
// boundaries.
package machine

import (
	"fmt"
	"log"

	"xt86/bios"
	"xt86/cpu"
	"xt86/devices"
)

// Memory map: conventional RAM starts at 0, MDA VRAM is a fixed 4 KiB
// window at 0xB0000, and the BIOS ROM occupies the top 64 KiB.
const (
	ramBase  = 0x00000
	ramMax   = 640 * 1024
	vramBase = 0xB0000
	vramSize = 0x1000
	romBase  = 0xF0000
	romSize  = 0x10000
)

// Config describes the fixed hardware configuration and host callbacks
// a Machine is built with. Fields mirror devices.PPIConfig/MDAConfig
// since those are the components that ultimately consume them.
type Config struct {
	MemoryKiB       int // 1..640, clamped
	NumFloppyDrives int
	FPUInstalled    bool
	DisplayMode     uint8

	// ROM is copied to the top of the ROM window (address romBase+
	// romSize-len(ROM)); nil or empty leaves ROM all zero.
	ROM []byte

	WritePixel        func(pos devices.Position, colour devices.RGB)
	Background        devices.RGB
	Foreground        devices.RGB
	IntenseForeground devices.RGB

	// SetSpeakerFrequency receives the PC speaker's audible frequency
	// whenever it changes; 0 means the speaker is off. Optional.
	SetSpeakerFrequency func(hz uint32)

	Debug bool
}

// Machine owns every piece of state a running PC/XT-class emulation
// session needs and the glue between them.
type Machine struct {
	config *Config

	ram  []byte
	vram [vramSize]byte
	rom  [romSize]byte

	cpu *cpu.CPU

	ioBus *devices.IOBus
	dma   *devices.DMAController
	pit   *devices.PITController
	ppi   *devices.PPIController
	kbd   *devices.Keyboard
	mda   *devices.MDAController
	ic    *devices.InterruptController

	bios *bios.BIOS

	debug bool
}

// New builds a fully wired Machine: RAM sized per config, devices
// constructed and registered onto the IO bus, IRQ lines routed to the
// interrupt controller, and the BIOS service layer primed with the
// equipment word config implies.
func New(config *Config) *Machine {
	memKiB := config.MemoryKiB
	if memKiB <= 0 || memKiB > 640 {
		memKiB = 640
	}

	m := &Machine{
		config: config,
		ram:    make([]byte, memKiB*1024),
		debug:  config.Debug,
	}

	if len(config.ROM) > 0 {
		n := copy(m.rom[romSize-len(config.ROM):], config.ROM)
		if m.debug {
			log.Printf("machine: loaded %d ROM bytes at 0x%x", n, romBase+romSize-len(config.ROM))
		}
	}

	m.ic = devices.NewInterruptController()

	// SW1 positions 3-4 encode motherboard RAM in 64 KiB banks, capped
	// at the four-bank encoding the switch block can express.
	memSizeCode := memKiB/64 - 1
	if memSizeCode < 0 {
		memSizeCode = 0
	}
	if memSizeCode > 3 {
		memSizeCode = 3
	}

	m.ppi = devices.NewPPIController(&devices.PPIConfig{
		NumFloppyDrives:       config.NumFloppyDrives,
		FPUInstalled:          config.FPUInstalled,
		MemorySizeCode:        uint8(memSizeCode),
		DisplayMode:           config.DisplayMode,
		SetPCSpeakerFrequency: func(ctx any, hz uint32) {
			if config.SetSpeakerFrequency != nil {
				config.SetSpeakerFrequency(hz)
			}
		},
		SetKeyboardControl: func(ctx any, enableClear bool, clock bool) {
			m.kbd.SetKeyboardControl(enableClear, clock)
		},
	})

	m.kbd = devices.NewKeyboard(&devices.KeyboardConfig{
		SendScancode: func(ctx any, scancode uint8) {
			m.ppi.SetScancode(scancode)
			m.bios.HandleScancode(scancode)
		},
		RaiseIRQ1: func(ctx any) { m.ic.RaiseIRQ(1) },
	})

	m.pit = devices.NewPITController(&devices.PITConfig{
		RaiseIRQ0: func(ctx any) {
			m.ic.RaiseIRQ(0)
			m.bios.Tick()
		},
		SetSpeakerFrequency: func(ctx any, hz uint32) {
			m.ppi.SetPCSpeakerFrequencyFromPIT(hz)
		},
	})

	m.dma = devices.NewDMAController(&devices.DMAConfig{
		ReadMemoryByte:  func(ctx any, address uint32) uint8 { return m.ReadMemory(address) },
		WriteMemoryByte: func(ctx any, address uint32, value uint8) { m.WriteMemory(address, value) },
		// No disk controller is modelled, so the device side of a DMA
		// transfer has nothing to move.
		ReadDeviceByte:  func(ctx any, channel uint8) uint8 { return 0xFF },
		WriteDeviceByte: func(ctx any, channel uint8, value uint8) {},
	})

	m.mda = devices.NewMDAController(&devices.MDAConfig{
		ReadVRAMByte:      func(ctx any, address uint32) uint8 { return m.vram[address] },
		WriteVRAMByte:     func(ctx any, address uint32, value uint8) { m.vram[address] = value },
		WritePixel:        func(ctx any, pos devices.Position, colour devices.RGB) { m.writePixel(pos, colour) },
		Background:        config.Background,
		Foreground:        config.Foreground,
		IntenseForeground: config.IntenseForeground,
	})

	m.bios = bios.New(&bios.Config{
		ReadMemory:  m.ReadMemory,
		WriteMemory: m.WriteMemory,
		Equipment: bios.Equipment{
			NumFloppyDrives: config.NumFloppyDrives,
			FPUInstalled:    config.FPUInstalled,
			MemorySizeKiB:   memKiB,
		},
	})

	m.ioBus = devices.NewIOBus()
	m.ioBus.RegisterDevice(0x00, 0x0F, m.dma)
	m.ioBus.RegisterDevice(0x20, 0x21, m.ic)
	m.ioBus.RegisterDevice(0x40, 0x43, m.pit)
	m.ioBus.RegisterDevice(0x60, 0x63, m.ppi)
	m.ioBus.RegisterDevice(0x81, 0x81, m.dma)
	m.ioBus.RegisterDevice(0x82, 0x83, m.dma)
	m.ioBus.RegisterDevice(0x87, 0x87, m.dma)
	// The MDA owns the whole 0x3B0-0x3BF block; the controller answers
	// 0xFF for the ports it does not decode.
	m.ioBus.RegisterDevice(0x3B0, 0x3BF, m.mda)

	m.cpu = cpu.NewCPU(&cpu.Config{
		ReadMemory:       m.ReadMemory,
		WriteMemory:      m.WriteMemory,
		ReadPort:         m.readPort,
		WritePort:        m.writePort,
		PendingInterrupt: m.ic.AcknowledgeInterrupt,
	})

	return m
}

// writePixel forwards MDA renders to the host callback, discarding the
// call if the embedding program did not provide one (e.g. a headless
// cmd/xt86 smoke test).
func (m *Machine) writePixel(pos devices.Position, colour devices.RGB) {
	if m.config.WritePixel != nil {
		m.config.WritePixel(pos, colour)
	}
}

// CPU exposes the underlying interpreter for callers that need direct
// register access (tests, cmd/xt86's final-state dump).
func (m *Machine) CPU() *cpu.CPU { return m.cpu }

// ReadMemory implements cpu.Config.ReadMemory and bios.Config.ReadMemory:
// routes a 20-bit physical address to RAM, VRAM, ROM, or returns 0xFF
// for an unmapped hole.
func (m *Machine) ReadMemory(address uint32) uint8 {
	switch {
	case address < uint32(len(m.ram)):
		return m.ram[address]
	case address >= vramBase && address < vramBase+vramSize:
		return m.vram[address-vramBase]
	case address >= romBase && address < romBase+romSize:
		return m.rom[address-romBase]
	default:
		return 0xFF
	}
}

// WriteMemory implements cpu.Config.WriteMemory and bios.Config.WriteMemory.
// Writes to ROM or to an unmapped hole are discarded, logged when Debug
// is set.
func (m *Machine) WriteMemory(address uint32, value uint8) {
	switch {
	case address < uint32(len(m.ram)):
		m.ram[address] = value
	case address >= vramBase && address < vramBase+vramSize:
		m.vram[address-vramBase] = value
	default:
		if m.debug {
			log.Printf("machine: discarded write of 0x%02x to unmapped/ROM address 0x%x", value, address)
		}
	}
}

func (m *Machine) readPort(port uint16, size uint8) (uint32, error) {
	data := make([]byte, size)
	err := m.ioBus.HandleIO(port, devices.IODirectionIn, size, data)
	if err != nil {
		if m.debug {
			log.Printf("machine: %v", err)
		}
		return 0xFFFFFFFF, nil
	}
	var value uint32
	for i, b := range data {
		value |= uint32(b) << (8 * i)
	}
	return value, nil
}

func (m *Machine) writePort(port uint16, size uint8, value uint32) error {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(value >> (8 * i))
	}
	if err := m.ioBus.HandleIO(port, devices.IODirectionOut, size, data); err != nil {
		if m.debug {
			log.Printf("machine: %v", err)
		}
	}
	return nil
}

// LoadImage copies image into RAM at address, for booting a flat
// binary without going through the ROM/reset-vector path.
func (m *Machine) LoadImage(image []byte, address uint32) error {
	if address+uint32(len(image)) > uint32(len(m.ram)) {
		return fmt.Errorf("machine: image of %d bytes at 0x%x overruns %d-byte RAM", len(image), address, len(m.ram))
	}
	copy(m.ram[address:], image)
	if m.debug {
		log.Printf("machine: loaded %d bytes at 0x%x", len(image), address)
	}
	return nil
}

// Step executes exactly one CPU instruction cycle, servicing a
// software interrupt whose vector was never installed in the guest's
// IVT through the BIOS layer instead of faulting. A BIOS handler that
// reports ResultKeepPolling (an empty keyboard buffer on a blocking
// read) rewinds IP back onto the two-byte INT instruction so the next
// Step call retries it, the Go-level analogue of a real BIOS spin loop.
func (m *Machine) Step() cpu.ExecStatus {
	status := m.cpu.RunInstructionCycle()
	if status != cpu.StatusUnhandledInterrupt {
		return status
	}

	vector := m.cpu.LastUnhandledVector()
	if m.bios.Dispatch(vector, m.cpu) == bios.ResultKeepPolling {
		m.cpu.SetIP(m.cpu.IP() - 2)
	}
	return cpu.StatusOK
}

// PITTick advances the PIT by one tick of its 1.193182 MHz input
// clock; callers typically batch several per host millisecond.
func (m *Machine) PITTick() { m.pit.Tick() }

// KeyboardTickMs advances the keyboard pipeline by one millisecond.
func (m *Machine) KeyboardTickMs() { m.kbd.TickMs() }

// HandleKeyPress enqueues a raw XT make/break scancode for eventual
// delivery by the keyboard pipeline.
func (m *Machine) HandleKeyPress(scancode uint8) { m.kbd.HandleKeyPress(scancode) }

// DMATransferByte drives one DMA transfer cycle on channel, normally
// invoked by a disk/floppy controller this machine does not model.
func (m *Machine) DMATransferByte(channel uint8) { m.dma.TransferByte(channel) }

// RenderMDA redraws every MDA text cell through the configured
// WritePixel callback.
func (m *Machine) RenderMDA() { m.mda.Render() }
