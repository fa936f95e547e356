// Package flash drives a W25Q32JV serial NOR flash over an SPI bus.
//
// Every operation blocks until the chip reports it is done. There is no
// timeout: a chip that never clears its busy bit hangs the caller. There is
// no verification either; a write torn by power loss reads back as whatever
// the cells hold.
package flash

import (
	"fmt"
	"io"
	"iter"
	"slices"

	"go-stepsampler/debug"
	"go-stepsampler/hw"
)

// Instruction set (subset used here)
const (
	cmdWriteEnable  byte = 0x06
	cmdWriteDisable byte = 0x04
	cmdPageProgram  byte = 0x02
	cmdReadData     byte = 0x03
	cmdReadSR1      byte = 0x05
	cmdReadSR2      byte = 0x35
	cmdReadSR3      byte = 0x15
	cmdSectorErase  byte = 0x20
	cmdChipErase    byte = 0xC7
)

const (
	PageSize   = 256
	SectorSize = 4096
	Capacity   = 4 << 20 // 32 Mbit

	ErasedByte byte = 0xFF
)

// Status register 1 bits
const (
	StatusBusy byte = 0x01
	StatusWEL  byte = 0x02
)

// Register selects one of the three status registers
type Register int

const (
	SR1 Register = iota + 1
	SR2
	SR3
)

// Device is a W25Q32JV on a bus
type Device struct {
	bus hw.Bus
}

// New creates a device driver on bus
func New(bus hw.Bus) *Device {
	return &Device{bus: bus}
}

// Init puts the chip in a known state. The first write on this part only
// works after a write-disable has been issued once.
func (d *Device) Init() {
	d.WriteEnable(false)
}

// WriteEnable sets or clears the write enable latch. The chip clears the
// latch by itself after every program or erase.
func (d *Device) WriteEnable(on bool) {
	cmd := cmdWriteDisable
	if on {
		cmd = cmdWriteEnable
	}
	d.bus.Select(true)
	d.bus.Transfer(cmd)
	d.bus.Select(false)
}

// address sends an instruction followed by a 24-bit address, MSB first.
// The chip must already be selected.
func (d *Device) address(cmd byte, addr uint32) {
	d.bus.Transfer(cmd)
	d.bus.Transfer(byte(addr >> 16))
	d.bus.Transfer(byte(addr >> 8))
	d.bus.Transfer(byte(addr))
}

// ReadStatus returns one status register
func (d *Device) ReadStatus(reg Register) byte {
	var cmd byte
	switch reg {
	case SR1:
		cmd = cmdReadSR1
	case SR2:
		cmd = cmdReadSR2
	case SR3:
		cmd = cmdReadSR3
	default:
		panic(fmt.Sprintf("flash: no status register %d", reg))
	}

	d.bus.Select(true)
	d.bus.Transfer(cmd)
	v := d.bus.Transfer(0x00)
	d.bus.Select(false)
	return v
}

// WaitBusy polls status register 1 until the busy bit clears. Never gives up.
func (d *Device) WaitBusy() {
	polls := 0
	for d.ReadStatus(SR1)&StatusBusy != 0 {
		polls++
	}
	if polls > 0 {
		debug.LogEvery(16, "flash", "busy for %d polls", polls)
	}
}

// SectorErase erases the 4 KiB sector containing addr to 0xFF
func (d *Device) SectorErase(addr uint32) {
	addr &^= SectorSize - 1

	d.WriteEnable(true)
	d.bus.Select(true)
	d.address(cmdSectorErase, addr)
	d.bus.Select(false)

	d.WaitBusy()
	d.WriteEnable(false)
	debug.Log("flash", "sector erase 0x%06X", addr)
}

// ChipErase erases the whole chip. This takes seconds on real parts.
func (d *Device) ChipErase() {
	d.WriteEnable(true)
	d.bus.Select(true)
	d.bus.Transfer(cmdChipErase)
	d.bus.Select(false)

	d.WaitBusy()
	d.WriteEnable(false)
	debug.Log("flash", "chip erase")
}

// PageProgram writes data starting at addr. The chip's address counter wraps
// at the end of the 256-byte page, so a run that crosses a page boundary
// lands at the start of the same page. The run is not split here.
func (d *Device) PageProgram(addr uint32, data []byte) {
	d.WriteEnable(true)
	d.bus.Select(true)
	d.address(cmdPageProgram, addr)
	for _, b := range data {
		d.bus.Transfer(b)
	}
	d.bus.Select(false)

	d.WaitBusy()
	d.WriteEnable(false)
	debug.Log("flash", "program 0x%06X len=%d", addr, len(data))
}

// Read returns a lazy sequence of n bytes starting at addr. Each iteration
// issues a fresh read command; stopping early releases the chip.
func (d *Device) Read(addr uint32, n int) iter.Seq[byte] {
	return func(yield func(byte) bool) {
		d.bus.Select(true)
		defer d.bus.Select(false)

		d.address(cmdReadData, addr)
		for i := 0; i < n; i++ {
			if !yield(d.bus.Transfer(0x00)) {
				return
			}
		}
	}
}

// ReadBytes reads n bytes starting at addr
func (d *Device) ReadBytes(addr uint32, n int) []byte {
	return slices.Collect(d.Read(addr, n))
}

// Dump writes one "0xADDRESS: 0xDATA" line per byte in [start, end)
func (d *Device) Dump(w io.Writer, start, end uint32) error {
	if end <= start {
		return nil
	}
	addr := start
	for b := range d.Read(start, int(end-start)) {
		if _, err := fmt.Fprintf(w, "0x%06X: 0x%02X\n", addr, b); err != nil {
			return err
		}
		addr++
	}
	return nil
}
