package devices

import "testing"

func newTestMDA(t *testing.T) (*MDAController, []byte, map[Position]RGB) {
	t.Helper()
	vram := make([]byte, mdaVRAMSize)
	pixels := make(map[Position]RGB)
	cfg := &MDAConfig{
		ReadVRAMByte:  func(ctx context, addr uint32) uint8 { return vram[addr] },
		WriteVRAMByte: func(ctx context, addr uint32, v uint8) { vram[addr] = v },
		WritePixel: func(ctx context, pos Position, colour RGB) {
			pixels[pos] = colour
		},
		Background:        RGB{0, 0, 0},
		Foreground:        RGB{0, 200, 0},
		IntenseForeground: RGB{0, 255, 0},
	}
	m := NewMDAController(cfg)
	return m, vram, pixels
}

func TestMDAInitFillsVRAMWithSpaces(t *testing.T) {
	_, vram, _ := newTestMDA(t)
	if vram[0] != ' ' || vram[1] != 0x07 {
		t.Fatalf("vram[0:2] = %v, want [' ', 0x07]", vram[0:2])
	}
	last := mdaVRAMSize - 2
	if vram[last] != ' ' || vram[last+1] != 0x07 {
		t.Fatalf("last cell not initialised to space/default attribute")
	}
}

func TestMDARegisterPortRoundTrip(t *testing.T) {
	m, _, _ := newTestMDA(t)
	writeByte(t, m, mdaPortRegisterIndex, 0x0A)
	writeByte(t, m, mdaPortRegisterData, 0x55)
	if got := readByte(t, m, mdaPortRegisterIndex); got != 0x0A {
		t.Fatalf("register index = 0x%x, want 0x0A", got)
	}
	if got := readByte(t, m, mdaPortRegisterData); got != 0x55 {
		t.Fatalf("register data = 0x%x, want 0x55", got)
	}
}

func TestMDAUnderlineForcesSolidScanline(t *testing.T) {
	m, vram, pixels := newTestMDA(t)
	// Underline attribute: background 000, foreground 001.
	vram[0] = 'A'
	vram[1] = 0x01
	m.writeChar(0, 0)

	for x := 0; x < mdaCharWidth; x++ {
		pos := Position{X: x, Y: mdaUnderlinePosition}
		colour, ok := pixels[pos]
		if !ok {
			t.Fatalf("pixel %v not written", pos)
		}
		if colour != m.config.Foreground {
			t.Fatalf("underline scanline pixel %v = %v, want foreground", pos, colour)
		}
	}
}

func TestMDAInverseVideoSwapsColours(t *testing.T) {
	m, vram, pixels := newTestMDA(t)
	vram[0] = 'A'
	vram[1] = 0x70 // background=111, foreground=000: inverse video
	m.writeChar(0, 0)

	sawBackgroundAsForeground := false
	for pos, colour := range pixels {
		if pos.Y >= mdaCharHeight || pos.X >= mdaCharWidth {
			continue
		}
		if colour == m.config.Foreground {
			sawBackgroundAsForeground = true
		}
	}
	if !sawBackgroundAsForeground {
		t.Fatalf("inverse video should paint some pixels with the normal foreground colour as background")
	}
}
