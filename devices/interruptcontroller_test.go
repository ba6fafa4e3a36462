package devices

import "testing"

func TestInterruptControllerMaskedByDefault(t *testing.T) {
	c := NewInterruptController()
	c.RaiseIRQ(0)
	if c.HasPendingInterrupt() {
		t.Fatalf("all lines should be masked on power-on")
	}
}

func TestInterruptControllerInitAndVector(t *testing.T) {
	c := NewInterruptController()

	// ICW1: begin init, ICW4 needed.
	writeByte(t, c, picPortCommand, 0x11)
	// ICW2: vector offset 0x08.
	writeByte(t, c, picPortData, 0x08)
	// ICW4 (single-chip model has no ICW3 cascade byte to consume).
	writeByte(t, c, picPortData, 0x01)
	// OCW1: unmask IRQ0 and IRQ1.
	writeByte(t, c, picPortData, 0xFC)

	c.RaiseIRQ(1)
	if !c.HasPendingInterrupt() {
		t.Fatalf("IRQ1 should be pending once unmasked")
	}
	vector, ok := c.AcknowledgeInterrupt()
	if !ok || vector != 0x09 {
		t.Fatalf("vector = 0x%x, ok=%v; want 0x09, true", vector, ok)
	}
	if c.HasPendingInterrupt() {
		t.Fatalf("no interrupt should remain pending after acknowledge")
	}
}

func TestInterruptControllerPriorityIsLowestLineFirst(t *testing.T) {
	c := NewInterruptController()
	writeByte(t, c, picPortCommand, 0x11)
	writeByte(t, c, picPortData, 0x08)
	writeByte(t, c, picPortData, 0x01)
	writeByte(t, c, picPortData, 0x00) // unmask everything

	c.RaiseIRQ(3)
	c.RaiseIRQ(1)
	vector, ok := c.AcknowledgeInterrupt()
	if !ok || vector != 0x09 {
		t.Fatalf("should service IRQ1 before IRQ3, got vector 0x%x", vector)
	}
}

func TestInterruptControllerEOIClearsInService(t *testing.T) {
	c := NewInterruptController()
	writeByte(t, c, picPortCommand, 0x11)
	writeByte(t, c, picPortData, 0x08)
	writeByte(t, c, picPortData, 0x01)
	writeByte(t, c, picPortData, 0x00)

	c.RaiseIRQ(0)
	c.AcknowledgeInterrupt()
	if c.isr == 0 {
		t.Fatalf("isr should record the in-service line before EOI")
	}
	writeByte(t, c, picPortCommand, 0x20) // non-specific EOI
	if c.isr != 0 {
		t.Fatalf("isr should be cleared after EOI, got 0x%x", c.isr)
	}
}
