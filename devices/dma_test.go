package devices

import "testing"

func writeByte(t *testing.T, d PortDevice, port uint16, value uint8) {
	t.Helper()
	buf := []byte{value}
	if err := d.HandleIO(port, IODirectionOut, 1, buf); err != nil {
		t.Fatalf("write port 0x%x: %v", port, err)
	}
}

func readByte(t *testing.T, d PortDevice, port uint16) uint8 {
	t.Helper()
	buf := []byte{0}
	if err := d.HandleIO(port, IODirectionIn, 1, buf); err != nil {
		t.Fatalf("read port 0x%x: %v", port, err)
	}
	return buf[0]
}

func TestDMAFlipFlopRoundTrip(t *testing.T) {
	d := NewDMAController(&DMAConfig{})

	writeByte(t, d, dmaPortChannel0Address, 0x34)
	writeByte(t, d, dmaPortChannel0Address, 0x12)

	lo := readByte(t, d, dmaPortChannel0Address)
	hi := readByte(t, d, dmaPortChannel0Address)
	if lo != 0x34 || hi != 0x12 {
		t.Fatalf("got lo=0x%x hi=0x%x, want lo=0x34 hi=0x12", lo, hi)
	}
	if d.channels[0].currentAddress != 0x1234 {
		t.Fatalf("currentAddress = 0x%x, want 0x1234", d.channels[0].currentAddress)
	}
}

func TestDMAWriteTransferAndTerminalCount(t *testing.T) {
	memory := make([]byte, 1<<20)
	var deviceByte uint8 = 0x42

	cfg := &DMAConfig{
		ReadDeviceByte: func(ctx context, channel uint8) uint8 { return deviceByte },
		WriteMemoryByte: func(ctx context, address uint32, value uint8) {
			memory[address] = value
		},
	}
	d := NewDMAController(cfg)

	// Program channel 0: address 0x1000, count 0 (the 8237 counts down
	// from N meaning N+1 transfers, so a count of 0 reaches TC after a
	// single transfer).
	writeByte(t, d, dmaPortChannel0Address, 0x00)
	writeByte(t, d, dmaPortChannel0Address, 0x10)
	writeByte(t, d, dmaPortChannel0Count, 0x00)
	writeByte(t, d, dmaPortChannel0Count, 0x00)

	// Mode: write transfer type, channel 0.
	writeByte(t, d, dmaPortMode, dmaModeTransferTypeWrite|0x00)
	// Unmask channel 0.
	writeByte(t, d, dmaPortSingleMask, 0x00)

	d.TransferByte(0)

	if memory[0x1000] != deviceByte {
		t.Fatalf("memory[0x1000] = 0x%x, want 0x%x", memory[0x1000], deviceByte)
	}
	status := readByte(t, d, dmaPortCommandStatus)
	if status&0x01 == 0 {
		t.Fatalf("status register TC bit not set: 0x%x", status)
	}
	if d.maskRegister&0x01 == 0 {
		t.Fatalf("channel should auto-mask after TC without auto-init")
	}
}

func TestDMAAutoInitReloadsAddressAndCount(t *testing.T) {
	memory := make([]byte, 1<<20)
	cfg := &DMAConfig{
		ReadDeviceByte:  func(ctx context, channel uint8) uint8 { return 0 },
		WriteMemoryByte: func(ctx context, address uint32, value uint8) { memory[address] = value },
	}
	d := NewDMAController(cfg)

	writeByte(t, d, dmaPortChannel1Address, 0x00)
	writeByte(t, d, dmaPortChannel1Address, 0x20)
	writeByte(t, d, dmaPortChannel1Count, 0x00)
	writeByte(t, d, dmaPortChannel1Count, 0x00)

	writeByte(t, d, dmaPortMode, dmaModeTransferTypeWrite|dmaModeAutoInitialize|0x01)

	// Single mask register: bits 0-1 select the channel, bit 2 is the
	// mask flag. value = 0x01 selects channel 1 with mask cleared.
	writeByte(t, d, dmaPortSingleMask, 0x01)

	d.TransferByte(1)

	if d.channels[1].currentAddress != 0x2000 {
		t.Fatalf("auto-init should reload currentAddress to base, got 0x%x", d.channels[1].currentAddress)
	}
	if d.channels[1].currentCount != 0x0000 {
		t.Fatalf("auto-init should reload currentCount to base, got 0x%x", d.channels[1].currentCount)
	}
	if d.maskRegister&(1<<1) != 0 {
		t.Fatalf("channel should remain unmasked after auto-init TC")
	}
}

func TestDMADisabledControllerSkipsTransfer(t *testing.T) {
	called := false
	cfg := &DMAConfig{
		ReadDeviceByte:  func(ctx context, channel uint8) uint8 { called = true; return 0 },
		WriteMemoryByte: func(ctx context, address uint32, value uint8) {},
	}
	d := NewDMAController(cfg)
	writeByte(t, d, dmaPortCommandStatus, 0x04) // disable bit
	writeByte(t, d, dmaPortSingleMask, 0x00)
	writeByte(t, d, dmaPortMode, dmaModeTransferTypeWrite)

	d.TransferByte(0)
	if called {
		t.Fatalf("disabled controller should not perform transfers")
	}
}
