package devices

import "testing"

func TestPPISpeakerRequiresBothGateAndData(t *testing.T) {
	var published []uint32
	cfg := &PPIConfig{
		SetPCSpeakerFrequency: func(ctx context, hz uint32) { published = append(published, hz) },
	}
	p := NewPPIController(cfg)
	p.SetPCSpeakerFrequencyFromPIT(440)

	writeByte(t, p, ppiPortB, ppiPortBTimer2Gate) // gate only
	if p.IsPCSpeakerEnabled() {
		t.Fatalf("speaker should not be enabled with only the gate bit set")
	}

	writeByte(t, p, ppiPortB, ppiPortBTimer2Gate|ppiPortBSpeakerData)
	if !p.IsPCSpeakerEnabled() {
		t.Fatalf("speaker should be enabled once both gate and data bits are set")
	}
	if len(published) == 0 || published[len(published)-1] != 440 {
		t.Fatalf("expected 440 Hz published on speaker enable, got %v", published)
	}
}

func TestPPIKeyboardControlCallbackFiresOnChange(t *testing.T) {
	type call struct {
		enableClear, clock bool
	}
	var calls []call
	cfg := &PPIConfig{
		SetKeyboardControl: func(ctx context, enableClear, clock bool) {
			calls = append(calls, call{enableClear, clock})
		},
	}
	p := NewPPIController(cfg)

	// Power-on state already has the clock bit set (released); writing
	// the same value should not trigger a callback.
	writeByte(t, p, ppiPortB, ppiPortBKeyboardClock)
	if len(calls) != 0 {
		t.Fatalf("no-op write should not fire callback, got %v", calls)
	}

	writeByte(t, p, ppiPortB, 0) // pull clock low
	if len(calls) != 1 || calls[0].clock {
		t.Fatalf("expected one callback reporting the clock held low, got %v", calls)
	}

	writeByte(t, p, ppiPortB, ppiPortBKeyboardEnableClear)
	if len(calls) != 2 || !calls[1].enableClear {
		t.Fatalf("expected second callback reporting enableClear=true, got %v", calls)
	}
}

func TestPPIPortCBankSelect(t *testing.T) {
	cfg := &PPIConfig{
		NumFloppyDrives: 2,
		FPUInstalled:    true,
		MemorySizeCode:  0x03,
		DisplayMode:     0x01,
	}
	p := NewPPIController(cfg)

	writeByte(t, p, ppiPortB, 0) // bank 0 (SW1-4)
	c := readByte(t, p, ppiPortC)
	if c&0x01 == 0 {
		t.Fatalf("bit 0 (floppy present) should be set")
	}
	if c&0x02 == 0 {
		t.Fatalf("bit 1 (fpu) should be set")
	}
	if (c>>2)&0x03 != 0x03 {
		t.Fatalf("bits 2-3 should carry memory size code")
	}

	writeByte(t, p, ppiPortB, ppiPortBDipSwitchSelect) // bank 1 (SW5-8)
	c = readByte(t, p, ppiPortC)
	if c&0x03 != 0x01 {
		t.Fatalf("bits 0-1 should carry display mode, got 0x%x", c&0x03)
	}
	if (c>>2)&0x03 != 0x01 { // 2 drives encoded as drives-1
		t.Fatalf("bits 2-3 should carry floppy-count-minus-one, got 0x%x", (c>>2)&0x03)
	}
}

func TestPPIEnableClearClearsPortALatch(t *testing.T) {
	p := NewPPIController(&PPIConfig{})
	p.SetScancode(0x1C)
	if got := readByte(t, p, ppiPortA); got != 0x1C {
		t.Fatalf("port A = 0x%x, want 0x1c", got)
	}
	writeByte(t, p, ppiPortB, ppiPortBKeyboardEnableClear)
	if got := readByte(t, p, ppiPortA); got != 0 {
		t.Fatalf("port A should clear on enable-clear write, got 0x%x", got)
	}
}
