package devices

import (
	"fmt"
	"sync"
)

// PIT ports (8253/8254).
const (
	pitPortCounter0 uint16 = 0x40
	pitPortCounter1 uint16 = 0x41
	pitPortCounter2 uint16 = 0x42
	pitPortCommand  uint16 = 0x43
)

// Read/write access modes, bits 5-4 of the command byte.
const (
	pitAccessLatch uint8 = iota
	pitAccessLSB
	pitAccessMSB
	pitAccessLOHI
)

const pitBaseFrequencyHz = 1193182

// PITConfig supplies the callbacks a PITController uses to signal the
// rest of the machine.
type PITConfig struct {
	Context context

	// RaiseIRQ0 is called on every low-to-high transition of counter
	// 0's output, never on every terminal count.
	RaiseIRQ0 func(ctx context)

	// SetSpeakerFrequency publishes counter 2's current frequency, in
	// Hz, 0 meaning "no output" (reload == 0).
	SetSpeakerFrequency func(ctx context, hz uint32)
}

type pitCounter struct {
	accessMode uint8 // latch/LSB/MSB/LOHI, selected by the last command byte
	opMode     uint8 // 0, 2 and 3 are the only modes implemented

	reload   uint16
	value    uint16
	latched  uint16
	hasLatch bool

	// Which half of a two-byte LOHI access is next: false = low byte,
	// true = high byte. Tracked separately per direction so an
	// interleaved read does not corrupt a half-finished reload write.
	lohiWritePhase bool
	lohiReadPhase  bool

	outputHigh bool // current level of the counter's OUT pin
}

// PITController implements the 8253/8254 Programmable Interval Timer:
// three 16-bit counters, channel 0 driving the system timer IRQ and
// channel 2 driving the PC speaker frequency.
type PITController struct {
	mu sync.Mutex

	config   *PITConfig
	counters [3]pitCounter
}

// NewPITController creates a PITController wired to config.
func NewPITController(config *PITConfig) *PITController {
	p := &PITController{config: config}
	for i := range p.counters {
		p.counters[i].opMode = 3
		p.counters[i].accessMode = pitAccessLOHI
		p.counters[i].outputHigh = true
	}
	return p
}

// HandleIO implements PortDevice.
func (p *PITController) HandleIO(port uint16, direction uint8, size uint8, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if size != 1 {
		return fmt.Errorf("PITController: unsupported I/O size %d on port 0x%x", size, port)
	}

	switch port {
	case pitPortCounter0, pitPortCounter1, pitPortCounter2:
		index := port - pitPortCounter0
		if direction == IODirectionOut {
			p.writeCounter(int(index), data[0])
		} else {
			data[0] = p.readCounter(int(index))
		}
		return nil

	case pitPortCommand:
		if direction == IODirectionOut {
			p.writeCommand(data[0])
			return nil
		}
		return fmt.Errorf("PITController: command port 0x%x is write-only", port)

	default:
		return fmt.Errorf("PITController: unhandled port 0x%x", port)
	}
}

func (p *PITController) writeCommand(value uint8) {
	counterSelect := (value >> 6) & 0x03
	if counterSelect == 0x03 {
		// 8254 read-back command: not implemented, ignored.
		return
	}
	accessMode := (value >> 4) & 0x03
	opMode := (value >> 1) & 0x07
	c := &p.counters[counterSelect]

	if accessMode == pitAccessLatch {
		c.latched = c.value
		c.hasLatch = true
		c.lohiReadPhase = false
		return
	}

	c.accessMode = accessMode
	c.opMode = opMode
	c.hasLatch = false
	c.lohiWritePhase = false
	c.lohiReadPhase = false
	// Modes 2 and 3 drive OUT high as soon as they're programmed; mode 0
	// holds OUT low until its one-shot count completes.
	c.outputHigh = opMode == 2 || opMode == 3
}

func (p *PITController) writeCounter(index int, value uint8) {
	c := &p.counters[index]
	switch c.accessMode {
	case pitAccessLSB:
		c.reload = uint16(value)
		p.loadCounter(index)
	case pitAccessMSB:
		c.reload = uint16(value) << 8
		p.loadCounter(index)
	case pitAccessLOHI:
		if !c.lohiWritePhase {
			c.reload = (c.reload & 0xFF00) | uint16(value)
			c.lohiWritePhase = true
		} else {
			c.reload = (c.reload & 0x00FF) | uint16(value)<<8
			c.lohiWritePhase = false
			p.loadCounter(index)
		}
	}
}

// loadCounter applies a freshly written reload value. A literal reload
// of 0 publishes 0 Hz rather than the 65536-implied divide, so a
// zeroed channel 2 silences the speaker.
func (p *PITController) loadCounter(index int) {
	c := &p.counters[index]
	c.value = c.reload
	if index == 2 && p.config != nil && p.config.SetSpeakerFrequency != nil {
		p.config.SetSpeakerFrequency(p.config.Context, pitFrequency(c.reload))
	}
}

func pitFrequency(reload uint16) uint32 {
	if reload == 0 {
		return 0
	}
	return uint32(pitBaseFrequencyHz) / uint32(reload)
}

func (p *PITController) readCounter(index int) uint8 {
	c := &p.counters[index]
	if c.hasLatch {
		if !c.lohiReadPhase {
			c.lohiReadPhase = true
			return uint8(c.latched)
		}
		c.hasLatch = false
		c.lohiReadPhase = false
		return uint8(c.latched >> 8)
	}

	switch c.accessMode {
	case pitAccessLSB:
		return uint8(c.value)
	case pitAccessMSB:
		return uint8(c.value >> 8)
	case pitAccessLOHI:
		if !c.lohiReadPhase {
			c.lohiReadPhase = true
			return uint8(c.value)
		}
		c.lohiReadPhase = false
		return uint8(c.value >> 8)
	default:
		return uint8(c.value)
	}
}

// Tick advances every counter by one input clock and raises IRQ0 on a
// low-to-high transition of counter 0's output. Callers drive this at
// the PIT's 1.193182 MHz input rate or any consistent approximation.
func (p *PITController) Tick() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.counters {
		p.tickCounter(i)
	}
}

func (p *PITController) tickCounter(index int) {
	c := &p.counters[index]
	wasHigh := c.outputHigh

	switch c.opMode {
	case 0:
		// Interrupt on terminal count: counts down once and stops;
		// output rises once and stays high until reprogrammed.
		if c.value != 0 {
			c.value--
			if c.value == 0 {
				c.outputHigh = true
			}
		}
	case 2:
		// Rate generator: reaching 1 drops the output low for that
		// tick; reaching 0 raises it, reloads and fires the
		// terminal-count action.
		if c.value == 0 {
			c.value = c.reload
		}
		c.value--
		switch c.value {
		case 0:
			c.outputHigh = true
			c.value = c.reload
		case 1:
			c.outputHigh = false
		default:
			c.outputHigh = true
		}
	case 3:
		// Square wave: decrements by two per tick; reaching zero
		// toggles the output and reloads.
		if c.value < 2 {
			c.value = c.reload
		}
		c.value -= 2
		if c.value == 0 {
			c.outputHigh = !c.outputHigh
			c.value = c.reload
		}
	default:
		if c.value == 0 {
			c.value = c.reload
		}
		c.value--
		c.outputHigh = c.value != 0
	}

	if index == 0 && !wasHigh && c.outputHigh {
		if p.config != nil && p.config.RaiseIRQ0 != nil {
			p.config.RaiseIRQ0(p.config.Context)
		}
	}
}
