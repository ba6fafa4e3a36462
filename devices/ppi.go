package devices

import (
	"fmt"
	"sync"
)

// PPI ports (8255).
const (
	ppiPortA       uint16 = 0x60
	ppiPortB       uint16 = 0x61
	ppiPortC       uint16 = 0x62
	ppiPortControl uint16 = 0x63
)

// Port B control bits.
const (
	ppiPortBTimer2Gate          uint8 = 1 << 0
	ppiPortBSpeakerData         uint8 = 1 << 1
	ppiPortBDipSwitchSelect     uint8 = 1 << 2
	ppiPortBKeyboardClock       uint8 = 1 << 6
	ppiPortBKeyboardEnableClear uint8 = 1 << 7
)

// PPIConfig describes the fixed machine configuration PPIController
// synthesizes into port C, plus the callbacks it fires on state
// change.
type PPIConfig struct {
	Context context

	NumFloppyDrives int // clamped to 1-4; 0 means "no floppy installed"
	FPUInstalled    bool
	MemorySizeCode  uint8 // bits 2-3 of SW1-4, board-specific encoding
	DisplayMode     uint8 // bits 0-1 of SW5-8

	SetPCSpeakerFrequency func(ctx context, hz uint32)
	// SetKeyboardControl reports the keyboard-control bits of port B:
	// enableClear is bit 7 (1 = clear latch and inhibit), clock is the
	// level of bit 6 (0 = clock held low, arming a reset).
	SetKeyboardControl func(ctx context, enableClear bool, clock bool)
}

// PPIController implements the 8255 Programmable Peripheral Interface
// as wired on the PC/XT: port A latches keyboard scancodes, port B is
// a software-controlled byte (PIT gate 2, speaker data, DIP bank
// select, keyboard clock/enable), port C synthesizes one of two
// DIP-switch banks depending on port B bit 2.
type PPIController struct {
	mu sync.Mutex

	config *PPIConfig

	portA uint8
	portB uint8

	speakerFrequencyFromPIT uint32
}

// NewPPIController creates a PPIController wired to config. Keyboard
// clock starts enabled (bit 6 set) and keyboard read enabled (bit 7
// clear), matching the 8255's power-on behavior.
func NewPPIController(config *PPIConfig) *PPIController {
	return &PPIController{
		config: config,
		portB:  ppiPortBKeyboardClock,
	}
}

// HandleIO implements PortDevice.
func (p *PPIController) HandleIO(port uint16, direction uint8, size uint8, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if size != 1 {
		return fmt.Errorf("PPIController: unsupported I/O size %d on port 0x%x", size, port)
	}

	if direction == IODirectionIn {
		value, err := p.readPortLocked(port)
		if err != nil {
			return err
		}
		data[0] = value
		return nil
	}
	return p.writePortLocked(port, data[0])
}

func (p *PPIController) readPortLocked(port uint16) (uint8, error) {
	switch port {
	case ppiPortA:
		return p.portA, nil
	case ppiPortB:
		return p.portB, nil
	case ppiPortC:
		return p.readPortCLocked(), nil
	default:
		return 0xFF, fmt.Errorf("PPIController: unhandled read on port 0x%x", port)
	}
}

func (p *PPIController) readPortCLocked() uint8 {
	cfg := p.config
	if cfg == nil {
		return 0xFF
	}
	// Undefined bits read high.
	if p.portB&ppiPortBDipSwitchSelect == 0 {
		c := uint8(0xF0)
		if cfg.NumFloppyDrives > 0 {
			c |= 0x01
		}
		if cfg.FPUInstalled {
			c |= 1 << 1
		}
		c |= (cfg.MemorySizeCode & 0x03) << 2
		return c
	}
	c := uint8(0xF0)
	c |= cfg.DisplayMode & 0x03
	drives := cfg.NumFloppyDrives
	if drives < 1 {
		drives = 1
	}
	if drives > 4 {
		drives = 4
	}
	c |= uint8((drives-1)&0x03) << 2
	return c
}

func (p *PPIController) writePortLocked(port uint16, value uint8) error {
	switch port {
	case ppiPortB:
		p.writePortBLocked(value)
		return nil
	case ppiPortControl:
		// The BIOS always writes the mode-set byte (0x99) here; the
		// controller's port directions are hardcoded, so this is a
		// no-op.
		return nil
	default:
		// Writes to port A or C are ignored; they are configured as
		// inputs.
		return nil
	}
}

func (p *PPIController) writePortBLocked(value uint8) {
	oldSpeakerEnabled := p.isSpeakerEnabledLocked()
	oldKeyboardControl := p.portB & (ppiPortBKeyboardEnableClear | ppiPortBKeyboardClock)

	p.portB = value

	if value&ppiPortBKeyboardEnableClear != 0 {
		p.portA = 0
	}

	speakerEnabled := p.isSpeakerEnabledLocked()
	if oldSpeakerEnabled != speakerEnabled && p.config != nil && p.config.SetPCSpeakerFrequency != nil {
		freq := uint32(0)
		if speakerEnabled {
			freq = p.speakerFrequencyFromPIT
		}
		p.config.SetPCSpeakerFrequency(p.config.Context, freq)
	}

	keyboardControl := p.portB & (ppiPortBKeyboardEnableClear | ppiPortBKeyboardClock)
	if oldKeyboardControl != keyboardControl && p.config != nil && p.config.SetKeyboardControl != nil {
		p.config.SetKeyboardControl(
			p.config.Context,
			p.portB&ppiPortBKeyboardEnableClear != 0,
			p.portB&ppiPortBKeyboardClock != 0,
		)
	}
}

func (p *PPIController) isSpeakerEnabledLocked() bool {
	return p.portB&ppiPortBTimer2Gate != 0 && p.portB&ppiPortBSpeakerData != 0
}

// IsPCSpeakerEnabled reports whether both the PIT gate and the
// speaker-data bit are set.
func (p *PPIController) IsPCSpeakerEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isSpeakerEnabledLocked()
}

// SetPCSpeakerFrequencyFromPIT is the PIT's channel-2 frequency
// publication hook; it fires the speaker-frequency callback only if
// the speaker is currently enabled and the frequency actually
// changed.
func (p *PPIController) SetPCSpeakerFrequencyFromPIT(hz uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	old := p.speakerFrequencyFromPIT
	p.speakerFrequencyFromPIT = hz
	if p.isSpeakerEnabledLocked() && hz != old && p.config != nil && p.config.SetPCSpeakerFrequency != nil {
		p.config.SetPCSpeakerFrequency(p.config.Context, hz)
	}
}

// SetScancode latches a scancode onto port A, as the keyboard
// interface does on each byte it delivers.
func (p *PPIController) SetScancode(scancode uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.portA = scancode
}
