package flash

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"go-stepsampler/debug"
)

// Chip emulates a W25Q32JV behind a chip-select line. It implements hw.Bus.
//
// Program and erase execute when the chip is deselected, as on the real part.
// While an operation is in flight, the chip holds its busy bit for BusyPolls
// status reads and ignores every other instruction.
type Chip struct {
	mu  sync.Mutex
	mem []byte

	// BusyPolls is how many SR1 reads report busy after a program or erase
	BusyPolls int

	selected bool
	cmd      byte
	haveCmd  bool
	addrN    int
	addr     uint32

	latch    [PageSize]byte
	latchOff int
	latchN   int

	wel  bool
	busy int
	sr2  byte
	sr3  byte

	image *os.File
	err   error
}

// NewChip returns an erased chip
func NewChip() *Chip {
	c := &Chip{
		mem: bytes.Repeat([]byte{ErasedByte}, Capacity),
		sr3: 0x60, // output driver strength 25%, the factory default
	}
	return c
}

// OpenChip returns a chip backed by an image file. A missing file starts
// erased and is created; an existing file must be exactly Capacity bytes.
// Every completed program or erase is written through to the file.
func OpenChip(path string) (*Chip, error) {
	c := NewChip()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read flash image: %w", err)
	case len(data) != Capacity:
		return nil, fmt.Errorf("flash image %s: size %d, want %d", path, len(data), Capacity)
	default:
		copy(c.mem, data)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open flash image: %w", err)
	}
	if len(data) != Capacity {
		if _, err := f.WriteAt(c.mem, 0); err != nil {
			f.Close()
			return nil, fmt.Errorf("init flash image: %w", err)
		}
	}
	c.image = f
	debug.Log("flash", "image %s opened", path)
	return c, nil
}

// Close releases the backing image, if any
func (c *Chip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.image == nil {
		return nil
	}
	err := c.image.Close()
	c.image = nil
	return err
}

// Err returns the first image write error. The bus has no error path, so
// write-through failures are parked here.
func (c *Chip) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Bytes returns a copy of the array contents in [start, start+n)
func (c *Chip) Bytes(start uint32, n int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, n)
	for i := range out {
		out[i] = c.mem[(start+uint32(i))%Capacity]
	}
	return out
}

// Select drives chip select. Deselecting commits a pending program or erase.
func (c *Chip) Select(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if on {
		c.selected = true
		c.haveCmd = false
		c.addrN = 0
		c.addr = 0
		c.latchN = 0
		return
	}
	if c.selected && c.haveCmd {
		c.commit()
	}
	c.selected = false
}

// Transfer clocks one byte in and returns the byte clocked out
func (c *Chip) Transfer(b byte) byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.selected {
		return ErasedByte
	}

	if !c.haveCmd {
		c.cmd = b
		c.haveCmd = true
		return 0x00
	}

	switch c.cmd {
	case cmdReadSR1:
		return c.status1()
	case cmdReadSR2:
		return c.sr2
	case cmdReadSR3:
		return c.sr3
	}

	if c.busy > 0 {
		return ErasedByte
	}

	switch c.cmd {
	case cmdReadData, cmdPageProgram, cmdSectorErase:
		if c.addrN < 3 {
			c.addr = c.addr<<8 | uint32(b)
			c.addrN++
			if c.addrN == 3 {
				c.addr %= Capacity
				c.latchOff = int(c.addr % PageSize)
				for i := range c.latch {
					c.latch[i] = ErasedByte
				}
			}
			return 0x00
		}
	default:
		return 0x00
	}

	switch c.cmd {
	case cmdReadData:
		v := c.mem[c.addr]
		c.addr = (c.addr + 1) % Capacity
		return v
	case cmdPageProgram:
		c.latch[c.latchOff] = b
		c.latchOff = (c.latchOff + 1) % PageSize
		c.latchN++
	}
	return 0x00
}

func (c *Chip) status1() byte {
	var sr byte
	if c.busy > 0 {
		sr |= StatusBusy
		c.busy--
		if c.busy == 0 {
			c.wel = false
		}
	}
	if c.wel {
		sr |= StatusWEL
	}
	return sr
}

// commit runs at deselect for instructions that act on release
func (c *Chip) commit() {
	if c.busy > 0 {
		return
	}

	switch c.cmd {
	case cmdWriteEnable:
		c.wel = true
	case cmdWriteDisable:
		c.wel = false
	case cmdPageProgram:
		if !c.wel || c.addrN < 3 || c.latchN == 0 {
			return
		}
		base := c.addr &^ (PageSize - 1)
		for i, b := range c.latch {
			c.mem[base+uint32(i)] &= b
		}
		c.startBusy()
		c.writeThrough(base, PageSize)
	case cmdSectorErase:
		if !c.wel || c.addrN < 3 {
			return
		}
		base := c.addr &^ (SectorSize - 1)
		fill(c.mem[base:base+SectorSize], ErasedByte)
		c.startBusy()
		c.writeThrough(base, SectorSize)
	case cmdChipErase:
		if !c.wel {
			return
		}
		fill(c.mem, ErasedByte)
		c.startBusy()
		c.writeThrough(0, Capacity)
	}
}

func (c *Chip) startBusy() {
	c.busy = c.BusyPolls
	if c.busy == 0 {
		c.wel = false
	}
}

func (c *Chip) writeThrough(start uint32, n int) {
	if c.image == nil {
		return
	}
	if _, err := c.image.WriteAt(c.mem[start:start+uint32(n)], int64(start)); err != nil {
		debug.Log("flash", "image write 0x%06X: %v", start, err)
		if c.err == nil {
			c.err = err
		}
	}
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}
