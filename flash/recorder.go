package flash

import (
	"fmt"

	"go-stepsampler/hw"
)

// Op is one chip-select frame seen on the bus
type Op struct {
	Cmd  byte
	Addr uint32 // only for addressed instructions
	Len  int    // payload bytes after the address
}

func (o Op) String() string {
	switch o.Cmd {
	case cmdReadData, cmdPageProgram, cmdSectorErase:
		return fmt.Sprintf("%s 0x%06X len=%d", opName(o.Cmd), o.Addr, o.Len)
	}
	return opName(o.Cmd)
}

func opName(cmd byte) string {
	switch cmd {
	case cmdWriteEnable:
		return "WREN"
	case cmdWriteDisable:
		return "WRDI"
	case cmdPageProgram:
		return "PP"
	case cmdReadData:
		return "READ"
	case cmdReadSR1:
		return "RDSR1"
	case cmdReadSR2:
		return "RDSR2"
	case cmdReadSR3:
		return "RDSR3"
	case cmdSectorErase:
		return "SE"
	case cmdChipErase:
		return "CE"
	}
	return fmt.Sprintf("0x%02X", cmd)
}

// Recorder passes bus traffic through and keeps a log of frames
type Recorder struct {
	bus hw.Bus
	ops []Op

	open bool
	n    int
	cur  Op
}

// NewRecorder wraps bus
func NewRecorder(bus hw.Bus) *Recorder {
	return &Recorder{bus: bus}
}

func (r *Recorder) Select(on bool) {
	if on {
		r.open = true
		r.n = 0
		r.cur = Op{}
	} else if r.open {
		if r.n > 0 {
			r.ops = append(r.ops, r.cur)
		}
		r.open = false
	}
	r.bus.Select(on)
}

func (r *Recorder) Transfer(b byte) byte {
	if r.open {
		switch {
		case r.n == 0:
			r.cur.Cmd = b
		case addressed(r.cur.Cmd) && r.n <= 3:
			r.cur.Addr = r.cur.Addr<<8 | uint32(b)
		default:
			r.cur.Len++
		}
		r.n++
	}
	return r.bus.Transfer(b)
}

// Ops returns the recorded frames
func (r *Recorder) Ops() []Op {
	return r.ops
}

// Reset forgets recorded frames
func (r *Recorder) Reset() {
	r.ops = nil
}

func addressed(cmd byte) bool {
	return cmd == cmdReadData || cmd == cmdPageProgram || cmd == cmdSectorErase
}
