package bios

import "testing"

func TestHandleScancodeQueuesMappedMakeCode(t *testing.T) {
	b, _ := newTestBIOS()

	b.HandleScancode(0x1E) // 'a' make code
	regs := &fakeRegisters{ah: 0x01}
	b.Dispatch(0x16, regs)
	if regs.zf {
		t.Fatalf("ZF set after queuing a key, want clear")
	}
	if regs.al != 'a' {
		t.Fatalf("AL = %q, want 'a'", regs.al)
	}
}

func TestHandleScancodeIgnoresBreakCode(t *testing.T) {
	b, _ := newTestBIOS()

	b.HandleScancode(0x1E | 0x80) // break code
	regs := &fakeRegisters{ah: 0x01}
	b.Dispatch(0x16, regs)
	if !regs.zf {
		t.Fatalf("ZF clear after break code, want set (no key queued)")
	}
}

func TestHandleScancodeIgnoresUnmapped(t *testing.T) {
	b, _ := newTestBIOS()

	b.HandleScancode(0x3B) // F1, unmapped
	regs := &fakeRegisters{ah: 0x01}
	b.Dispatch(0x16, regs)
	if !regs.zf {
		t.Fatalf("ZF clear after unmapped scancode, want set")
	}
}

func TestHandleScancodeDropsWhenBufferFull(t *testing.T) {
	b, _ := newTestBIOS()

	for i := 0; i < keyboardBufferCapacity+4; i++ {
		b.HandleScancode(0x1E)
	}
	if len(b.keyboardBuffer) != keyboardBufferCapacity {
		t.Fatalf("buffer length = %d, want capped at %d", len(b.keyboardBuffer), keyboardBufferCapacity)
	}
}

func TestAH00ReadCharBlocksUntilQueued(t *testing.T) {
	b, _ := newTestBIOS()

	regs := &fakeRegisters{ah: 0x00}
	if got := b.Dispatch(0x16, regs); got != ResultKeepPolling {
		t.Fatalf("Dispatch on empty buffer = %v, want ResultKeepPolling", got)
	}

	b.HandleScancode(0x1E)
	regs = &fakeRegisters{ah: 0x00}
	if got := b.Dispatch(0x16, regs); got != ResultHandled {
		t.Fatalf("Dispatch after key queued = %v, want ResultHandled", got)
	}
	if regs.al != 'a' {
		t.Fatalf("AL = %q, want 'a'", regs.al)
	}
	if regs.ah != 0x1E {
		t.Fatalf("AH scancode = 0x%02x, want 0x1E", regs.ah)
	}

	// The event is consumed; a second read blocks again.
	regs = &fakeRegisters{ah: 0x00}
	if got := b.Dispatch(0x16, regs); got != ResultKeepPolling {
		t.Fatalf("second Dispatch = %v, want ResultKeepPolling (buffer drained)", got)
	}
}

func TestAH01CheckStatusDoesNotConsume(t *testing.T) {
	b, _ := newTestBIOS()

	b.HandleScancode(0x1E)
	b.Dispatch(0x16, &fakeRegisters{ah: 0x01})
	b.Dispatch(0x16, &fakeRegisters{ah: 0x01})
	if len(b.keyboardBuffer) != 1 {
		t.Fatalf("buffer length after two status checks = %d, want 1 (non-consuming)", len(b.keyboardBuffer))
	}
}
