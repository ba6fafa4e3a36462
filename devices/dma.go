package devices

import (
	"fmt"
	"sync"
)

// DMA ports, channels 0-3 (ports 0x00-0x0F).
const (
	dmaPortChannel0Address uint16 = 0x00
	dmaPortChannel0Count   uint16 = 0x01
	dmaPortChannel1Address uint16 = 0x02
	dmaPortChannel1Count   uint16 = 0x03
	dmaPortChannel2Address uint16 = 0x04
	dmaPortChannel2Count   uint16 = 0x05
	dmaPortChannel3Address uint16 = 0x06
	dmaPortChannel3Count   uint16 = 0x07
	dmaPortCommandStatus   uint16 = 0x08
	dmaPortRequest         uint16 = 0x09
	dmaPortSingleMask      uint16 = 0x0A
	dmaPortMode            uint16 = 0x0B
	dmaPortFlipFlopReset   uint16 = 0x0C
	dmaPortMasterReset     uint16 = 0x0D
	dmaPortAllMask         uint16 = 0x0F

	dmaPortPageChannel0 uint16 = 0x87
	dmaPortPageChannel1 uint16 = 0x83
	dmaPortPageChannel2 uint16 = 0x81
	dmaPortPageChannel3 uint16 = 0x82
)

// Byte-pointer flip-flop state.
const (
	dmaRegisterLSB uint8 = iota
	dmaRegisterMSB
)

// Transfer types, bits 2-3 of the mode register.
const (
	dmaModeTransferTypeVerify uint8 = 0x00 << 2
	dmaModeTransferTypeWrite  uint8 = 0x01 << 2
	dmaModeTransferTypeRead   uint8 = 0x02 << 2
)

const (
	dmaModeAutoInitialize   uint8 = 1 << 4
	dmaModeAddressDecrement uint8 = 1 << 5
)

const DMANumChannels = 4

// DMAConfig supplies the memory/device byte transfer callbacks a
// DMAController needs to move data during TransferByte.
type DMAConfig struct {
	Context context

	ReadMemoryByte  func(ctx context, address uint32) uint8
	WriteMemoryByte func(ctx context, address uint32, value uint8)
	ReadDeviceByte  func(ctx context, channel uint8) uint8
	WriteDeviceByte func(ctx context, channel uint8, value uint8)
}

// context is an opaque caller-supplied value threaded through every
// device callback.
type context = any

type dmaChannelState struct {
	baseAddress    uint16
	currentAddress uint16
	baseCount      uint16
	currentCount   uint16
	mode           uint8
	pageRegister   uint8
}

// DMAController implements the 8237 DMA controller: four channels,
// address/count flip-flop registers, page registers and a single
// status/command register pair.
type DMAController struct {
	mu sync.Mutex

	config *DMAConfig

	channels       [DMANumChannels]dmaChannelState
	commandRegister uint8
	requestRegister uint8
	maskRegister    uint8
	statusRegister  uint8
	flipFlop        uint8
}

// NewDMAController creates a DMAController wired to config.
func NewDMAController(config *DMAConfig) *DMAController {
	d := &DMAController{config: config}
	d.reset()
	return d
}

func (d *DMAController) reset() {
	d.channels = [DMANumChannels]dmaChannelState{}
	d.commandRegister = 0
	d.requestRegister = 0
	d.statusRegister = 0
	d.flipFlop = dmaRegisterLSB
	// Power-on state masks every channel.
	d.maskRegister = 0x0F
}

func (d *DMAController) readRegisterByte(value uint16) uint8 {
	var b uint8
	if d.flipFlop == dmaRegisterMSB {
		b = uint8(value >> 8)
		d.flipFlop = dmaRegisterLSB
	} else {
		b = uint8(value)
		d.flipFlop = dmaRegisterMSB
	}
	return b
}

func (d *DMAController) writeRegisterByte(base, current *uint16, value uint8) {
	if d.flipFlop == dmaRegisterMSB {
		*base = (*base & 0x00FF) | (uint16(value) << 8)
		d.flipFlop = dmaRegisterLSB
	} else {
		*base = (*base & 0xFF00) | uint16(value)
		d.flipFlop = dmaRegisterMSB
	}
	// A write always mirrors base into current.
	*current = *base
}

// HandleIO implements PortDevice.
func (d *DMAController) HandleIO(port uint16, direction uint8, size uint8, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if size != 1 {
		return fmt.Errorf("DMAController: unsupported I/O size %d on port 0x%x", size, port)
	}

	if direction == IODirectionIn {
		data[0] = d.readPortLocked(port)
		return nil
	}
	d.writePortLocked(port, data[0])
	return nil
}

func (d *DMAController) readPortLocked(port uint16) uint8 {
	switch port {
	case dmaPortChannel0Address, dmaPortChannel0Count,
		dmaPortChannel1Address, dmaPortChannel1Count,
		dmaPortChannel2Address, dmaPortChannel2Count,
		dmaPortChannel3Address, dmaPortChannel3Count:
		channelIndex := port / 2
		isCount := port%2 == 1
		ch := &d.channels[channelIndex]
		if isCount {
			return d.readRegisterByte(ch.currentCount)
		}
		return d.readRegisterByte(ch.currentAddress)

	case dmaPortCommandStatus:
		status := d.statusRegister
		d.statusRegister = 0
		return status

	default:
		return 0xFF
	}
}

func (d *DMAController) writePortLocked(port uint16, value uint8) {
	switch port {
	case dmaPortChannel0Address, dmaPortChannel0Count,
		dmaPortChannel1Address, dmaPortChannel1Count,
		dmaPortChannel2Address, dmaPortChannel2Count,
		dmaPortChannel3Address, dmaPortChannel3Count:
		channelIndex := port / 2
		isCount := port%2 == 1
		ch := &d.channels[channelIndex]
		if isCount {
			d.writeRegisterByte(&ch.baseCount, &ch.currentCount, value)
		} else {
			d.writeRegisterByte(&ch.baseAddress, &ch.currentAddress, value)
		}

	case dmaPortCommandStatus:
		d.commandRegister = value

	case dmaPortRequest:
		d.requestRegister = value

	case dmaPortSingleMask:
		channelIndex := value & 0x03
		shouldMask := (value>>2)&1 != 0
		if shouldMask {
			d.maskRegister |= 1 << channelIndex
		} else {
			d.maskRegister &^= 1 << channelIndex
		}

	case dmaPortMode:
		channelIndex := value & 0x03
		d.channels[channelIndex].mode = value

	case dmaPortFlipFlopReset:
		d.flipFlop = dmaRegisterLSB

	case dmaPortMasterReset:
		d.reset()

	case dmaPortAllMask:
		d.maskRegister = value & 0x0F

	case dmaPortPageChannel0:
		d.channels[0].pageRegister = value
	case dmaPortPageChannel1:
		d.channels[1].pageRegister = value
	case dmaPortPageChannel2:
		d.channels[2].pageRegister = value
	case dmaPortPageChannel3:
		d.channels[3].pageRegister = value

	default:
		// Writes to unused/read-only ports are discarded.
	}
}

// TransferByte performs a single DMA transfer cycle on channel. It is
// a no-op when the controller is disabled, the channel is masked, or
// channelIndex is out of range.
func (d *DMAController) TransferByte(channelIndex uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if channelIndex >= DMANumChannels {
		return
	}
	if d.commandRegister&0x04 != 0 {
		return
	}
	if d.maskRegister&(1<<channelIndex) != 0 {
		return
	}

	ch := &d.channels[channelIndex]
	address := uint32(ch.pageRegister)<<16 | uint32(ch.currentAddress)

	switch ch.mode & (0x03 << 2) {
	case dmaModeTransferTypeVerify:
		// No data movement.
	case dmaModeTransferTypeWrite:
		if d.config != nil && d.config.ReadDeviceByte != nil && d.config.WriteMemoryByte != nil {
			value := d.config.ReadDeviceByte(d.config.Context, channelIndex)
			d.config.WriteMemoryByte(d.config.Context, address, value)
		}
	case dmaModeTransferTypeRead:
		if d.config != nil && d.config.ReadMemoryByte != nil && d.config.WriteDeviceByte != nil {
			value := d.config.ReadMemoryByte(d.config.Context, address)
			d.config.WriteDeviceByte(d.config.Context, channelIndex, value)
		}
	default:
		// Reserved transfer type, no-op.
	}

	if ch.mode&dmaModeAddressDecrement == 0 {
		ch.currentAddress++
	} else {
		ch.currentAddress--
	}

	ch.currentCount--
	if ch.currentCount == 0xFFFF {
		d.statusRegister |= 1 << channelIndex
		if ch.mode&dmaModeAutoInitialize != 0 {
			ch.currentAddress = ch.baseAddress
			ch.currentCount = ch.baseCount
		} else {
			d.maskRegister |= 1 << channelIndex
		}
	}
}
