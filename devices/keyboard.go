package devices

import "sync"

// KeyboardBufferSize is the capacity of the pending-scancode FIFO.
const KeyboardBufferSize = 16

// resetHoldThresholdMs is the minimum duration the clock line must be
// held low before a reset is recognised.
const resetHoldThresholdMs = 20

const scancodeSelfTestOK = 0xAA

// KeyboardConfig supplies the callbacks the keyboard pipeline uses to
// deliver scancodes and interrupts to the rest of the machine.
type KeyboardConfig struct {
	Context context

	SendScancode func(ctx context, scancode uint8)
	RaiseIRQ1    func(ctx context)
}

// Keyboard implements the XT keyboard scan-code pipeline: a bounded
// FIFO, clock/enable levels driven by the PPI, a millisecond-tick
// reset detector and a send/ack handshake.
type Keyboard struct {
	mu sync.Mutex

	config *KeyboardConfig

	fifo []uint8

	clockReleased   bool
	enableClear     bool
	clockLowMs      uint32
	waitingForAck   bool
	prevEnableClear bool
}

// NewKeyboard creates a Keyboard wired to config. The clock line
// starts released and the controller starts uninhibited, matching
// PPIController's power-on port B value.
func NewKeyboard(config *KeyboardConfig) *Keyboard {
	return &Keyboard{config: config, clockReleased: true}
}

// HandleKeyPress enqueues scancode, silently dropping it if the FIFO
// is already at capacity. Callers are responsible for OR-ing 0x80 into
// the make code to express a key release.
func (k *Keyboard) HandleKeyPress(scancode uint8) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.fifo) >= KeyboardBufferSize {
		return
	}
	k.fifo = append(k.fifo, scancode)
}

// SetKeyboardControl is the PPI's set_keyboard_control callback. Both
// parameters carry the raw bit state of port B: enableClear true means
// bit 7 is set (clear latch and inhibit); clock is the level of bit 6,
// where false means the clock is held low, arming a reset.
func (k *Keyboard) SetKeyboardControl(enableClear bool, clock bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !enableClear && k.prevEnableClear {
		// Falling edge of enable-clear completes the ack handshake.
		k.waitingForAck = false
	}
	k.prevEnableClear = enableClear
	k.enableClear = enableClear

	if !clock && k.clockReleased {
		k.clockLowMs = 0
	}
	k.clockReleased = clock
}

// TickMs advances the keyboard pipeline by one millisecond: it checks
// for a reset condition and, if eligible, delivers the next pending
// scancode.
func (k *Keyboard) TickMs() {
	k.mu.Lock()
	defer k.mu.Unlock()

	clockHeldLow := !k.clockReleased
	if clockHeldLow {
		k.clockLowMs++
		if k.clockLowMs == resetHoldThresholdMs {
			k.fifo = k.fifo[:0]
			k.fifo = append(k.fifo, scancodeSelfTestOK)
		}
	}

	if k.enableClear || clockHeldLow || len(k.fifo) == 0 || k.waitingForAck {
		return
	}

	scancode := k.fifo[0]
	k.fifo = k.fifo[1:]
	if k.config != nil {
		if k.config.SendScancode != nil {
			k.config.SendScancode(k.config.Context, scancode)
		}
		if k.config.RaiseIRQ1 != nil {
			k.config.RaiseIRQ1(k.config.Context)
		}
	}
	k.waitingForAck = true
}
