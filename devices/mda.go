package devices

import (
	"fmt"
	"sync"
)

// MDA ports.
const (
	mdaPortRegisterIndex uint16 = 0x3B4
	mdaPortRegisterData  uint16 = 0x3B5
	mdaPortControl       uint16 = 0x3B8
	mdaPortStatus        uint16 = 0x3BA
)

const mdaNumRegisters = 18

// Columns/rows of the standard 80x25 MDA text mode.
const (
	mdaColumns = 80
	mdaRows    = 25
)

const mdaVRAMSize = mdaColumns * mdaRows * 2

// Position of the underline scanline within a character cell.
const mdaUnderlinePosition = 12

// RGB is a simple 8-bit-per-channel colour, matching the original
// source's RGB triple.
type RGB struct {
	R, G, B uint8
}

// Position is a device pixel coordinate.
type Position struct {
	X, Y int
}

// MDAConfig supplies MDA's VRAM access and pixel-output callbacks plus
// its three-colour palette.
type MDAConfig struct {
	Context context

	ReadVRAMByte  func(ctx context, address uint32) uint8
	WriteVRAMByte func(ctx context, address uint32, value uint8)
	WritePixel    func(ctx context, pos Position, colour RGB)

	Background       RGB
	Foreground       RGB
	IntenseForeground RGB

	// Font overrides the built-in placeholder glyph table; Font[ch]
	// is 14 rows of a 9-bit bitmap, one bit per pixel of the 9-pixel
	// character cell: bit 8 is the leftmost pixel, bit 0 the rightmost.
	Font *[256][mdaCharHeight]uint16
}

// MDAController implements the Monochrome Display Adapter: an 18
// register CRTC, a register-index latch, control/status bytes, and a
// renderer that reads externally-owned VRAM through callbacks.
type MDAController struct {
	mu sync.Mutex

	config *MDAConfig

	registers        [mdaNumRegisters]uint8
	selectedRegister uint8
	controlPort      uint8
	statusPort       uint8
}

// power-on CRTC register values, matching the defaults an MDA BIOS
// programs for 80x25 text mode.
var mdaPowerOnRegisters = [mdaNumRegisters]uint8{
	0x61, 0x50, 0x52, 0x0F, 0x19, 0x06, 0x19, 0x19,
	0x02, 0x0D, 0x0B, 0x0C, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00,
}

// NewMDAController creates an MDAController wired to config and fills
// VRAM with space/default-attribute pairs.
func NewMDAController(config *MDAConfig) *MDAController {
	m := &MDAController{
		config:      config,
		registers:   mdaPowerOnRegisters,
		controlPort: 0x29, // high-res, video enable, blink enable
		statusPort:  0x00,
	}
	if config != nil && config.WriteVRAMByte != nil {
		for i := uint32(0); i < mdaVRAMSize; i += 2 {
			config.WriteVRAMByte(config.Context, i, ' ')
			config.WriteVRAMByte(config.Context, i+1, 0x07)
		}
	}
	return m
}

// HandleIO implements PortDevice.
func (m *MDAController) HandleIO(port uint16, direction uint8, size uint8, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if size != 1 {
		return fmt.Errorf("MDAController: unsupported I/O size %d on port 0x%x", size, port)
	}

	if direction == IODirectionIn {
		data[0] = m.readPortLocked(port)
		return nil
	}
	m.writePortLocked(port, data[0])
	return nil
}

func (m *MDAController) readPortLocked(port uint16) uint8 {
	switch port {
	case mdaPortRegisterIndex:
		return m.selectedRegister
	case mdaPortRegisterData:
		if int(m.selectedRegister) < mdaNumRegisters {
			return m.registers[m.selectedRegister]
		}
		return 0xFF
	case mdaPortControl:
		return m.controlPort
	case mdaPortStatus:
		return m.statusPort
	default:
		return 0xFF
	}
}

func (m *MDAController) writePortLocked(port uint16, value uint8) {
	switch port {
	case mdaPortRegisterIndex:
		m.selectedRegister = value
	case mdaPortRegisterData:
		if int(m.selectedRegister) < mdaNumRegisters {
			m.registers[m.selectedRegister] = value
		}
	case mdaPortControl:
		m.controlPort = value
	case mdaPortStatus:
		m.statusPort = value
	default:
		// Ignored.
	}
}

func (m *MDAController) readVRAM(address uint32) uint8 {
	if m.config != nil && m.config.ReadVRAMByte != nil && address < mdaVRAMSize {
		return m.config.ReadVRAMByte(m.config.Context, address)
	}
	return 0xFF
}

func (m *MDAController) font() *[256][mdaCharHeight]uint16 {
	if m.config != nil && m.config.Font != nil {
		return m.config.Font
	}
	return &defaultMDAFont
}

// writeChar rasterizes the glyph at (row, col) into pixels via the
// write-pixel callback. Only the documented attribute combinations are
// distinguished; any other combination renders as normal video.
func (m *MDAController) writeChar(row, col int) {
	if m.config == nil || m.config.WritePixel == nil {
		return
	}
	charAddr := uint32((row*mdaColumns + col) * 2)
	charValue := m.readVRAM(charAddr)
	attrValue := m.readVRAM(charAddr + 1)
	bitmap := m.font()[charValue]

	intense := attrValue&0x08 != 0
	background := (attrValue >> 4) & 0x07
	foregroundAttr := attrValue & 0x07

	var fg, bg RGB
	underline := false

	switch {
	case background == 0x00 && foregroundAttr == 0x07:
		fg = pickForeground(m.config, intense)
		bg = m.config.Background
	case background == 0x07 && foregroundAttr == 0x00:
		fg = m.config.Background
		bg = pickForeground(m.config, false)
	case background == 0x00 && foregroundAttr == 0x00:
		fg = m.config.Background
		bg = m.config.Background
	case background == 0x00 && foregroundAttr == 0x01:
		underline = true
		fg = pickForeground(m.config, intense)
		bg = m.config.Background
	default:
		fg = pickForeground(m.config, intense)
		bg = m.config.Background
	}

	originX := col * mdaCharWidth
	originY := row * mdaCharHeight
	for y := 0; y < mdaCharHeight; y++ {
		rowBitmap := bitmap[y]
		if y == mdaUnderlinePosition && underline {
			rowBitmap = 0xFFFF
		}
		for x := 0; x < mdaCharWidth; x++ {
			isForeground := rowBitmap&(1<<(mdaCharWidth-1-x)) != 0
			colour := bg
			if isForeground {
				colour = fg
			}
			m.config.WritePixel(m.config.Context, Position{X: originX + x, Y: originY + y}, colour)
		}
	}
}

func pickForeground(config *MDAConfig, intense bool) RGB {
	if intense {
		return config.IntenseForeground
	}
	return config.Foreground
}

// Render redraws every text cell. The MDA has no dirty tracking:
// every pixel is re-emitted every call.
func (m *MDAController) Render() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for row := 0; row < mdaRows; row++ {
		for col := 0; col < mdaColumns; col++ {
			m.writeChar(row, col)
		}
	}
}
