// Package persist saves and restores the sequencer context at fixed flash
// offsets.
//
// Layout, bit for bit:
//
//	0x000000  pattern table, 8 patterns x 8 steps x {enabled, value hi, value lo, repeat}
//	0x000100  status {saved, pattern, step, freeRun, mode, record}
//	0x000106  8 x {idx, seqLength}
//
// A save is erase then program with no checksum, so power loss mid-save
// leaves a partial image that restore cannot detect unless it breaks a bound.
package persist

import (
	"errors"
	"fmt"
	"io"

	"go-stepsampler/debug"
	"go-stepsampler/flash"
	"go-stepsampler/sequencer"
)

const (
	PatternTableAddr uint32 = 0x000000
	StatusAddr       uint32 = 0x000100

	stepRecordSize   = 4
	PatternTableSize = sequencer.NumPatterns * sequencer.NumSteps * stepRecordSize
	statusHeaderSize = 6
	StatusSize       = statusHeaderSize + 2*sequencer.NumPatterns

	savedMarker byte = 0x01
)

// ErrCorruptContext is returned when a saved context breaks a state bound
var ErrCorruptContext = errors.New("corrupt saved context")

// Context reads and writes the sequencer context on a flash device
type Context struct {
	dev     *flash.Device
	console io.Writer
}

// New creates a context store on dev. console receives the saved flag
// before and after each save; nil discards it.
func New(dev *flash.Device, console io.Writer) *Context {
	if console == nil {
		console = io.Discard
	}
	return &Context{dev: dev, console: console}
}

// Save marks st as saved and writes it. The caller must hold exclusive
// access to st for the whole call.
func (c *Context) Save(st *sequencer.State) {
	fmt.Fprintf(c.console, "saved=%d\n", boolByte(st.Status.Saved))
	st.Status.Saved = true

	c.dev.SectorErase(StatusAddr)
	c.dev.PageProgram(StatusAddr, EncodeStatus(st))
	c.dev.PageProgram(PatternTableAddr, EncodePatternTable(st))

	fmt.Fprintf(c.console, "saved=%d\n", boolByte(st.Status.Saved))
	debug.Log("persist", "saved pattern=%d step=%d", st.Status.CurrPatternIdx, st.Status.CurrStepIdx)
}

// Restore loads a saved context into st. When nothing was saved, st is reset
// to factory settings and the pattern table is not read. st is left
// untouched when the saved context is corrupt.
func (c *Context) Restore(st *sequencer.State) (bool, error) {
	status := c.dev.ReadBytes(StatusAddr, StatusSize)
	if status[0] != savedMarker {
		st.InitializeFactory()
		debug.Log("persist", "no saved context (marker 0x%02X), factory init", status[0])
		return false, nil
	}

	table := c.dev.ReadBytes(PatternTableAddr, PatternTableSize)

	var loaded sequencer.State
	DecodeStatus(&loaded, status)
	DecodePatternTable(&loaded, table)
	if err := loaded.Validate(); err != nil {
		debug.Log("persist", "restore failed: %v", err)
		return false, fmt.Errorf("%w: %v", ErrCorruptContext, err)
	}

	*st = loaded
	debug.Log("persist", "restored pattern=%d step=%d", st.Status.CurrPatternIdx, st.Status.CurrStepIdx)
	return true, nil
}

// EncodePatternTable serializes every step of every pattern
func EncodePatternTable(st *sequencer.State) []byte {
	buf := make([]byte, 0, PatternTableSize)
	for _, pat := range st.Patterns {
		for _, s := range pat.Steps {
			buf = append(buf, boolByte(s.Enabled), byte(s.Value>>8), byte(s.Value), s.Repeat)
		}
	}
	return buf
}

// DecodePatternTable fills the steps of st from buf. Counters restart at
// their repeat count.
func DecodePatternTable(st *sequencer.State, buf []byte) {
	off := 0
	for p := range st.Patterns {
		for i := range st.Patterns[p].Steps {
			rec := buf[off : off+stepRecordSize]
			st.Patterns[p].Steps[i] = sequencer.Step{
				Enabled: rec[0] != 0,
				Value:   uint16(rec[1])<<8 | uint16(rec[2]),
				Repeat:  rec[3],
				Counter: rec[3],
			}
			off += stepRecordSize
		}
	}
}

// EncodeStatus serializes the status header and per-pattern metadata
func EncodeStatus(st *sequencer.State) []byte {
	s := st.Status
	buf := []byte{
		boolByte(s.Saved),
		s.CurrPatternIdx,
		s.CurrStepIdx,
		boolByte(s.FreeRun),
		byte(s.Mode),
		boolByte(s.RecordEnable),
	}
	for _, pat := range st.Patterns {
		buf = append(buf, pat.Idx, pat.SeqLength)
	}
	return buf
}

// DecodeStatus fills the status and pattern metadata of st from buf
func DecodeStatus(st *sequencer.State, buf []byte) {
	st.Status = sequencer.Status{
		Saved:          buf[0] == savedMarker,
		CurrPatternIdx: buf[1],
		CurrStepIdx:    buf[2],
		FreeRun:        buf[3] != 0,
		Mode:           sequencer.PatternMode(buf[4]),
		RecordEnable:   buf[5] != 0,
	}
	for p := range st.Patterns {
		off := statusHeaderSize + 2*p
		st.Patterns[p].Idx = buf[off]
		st.Patterns[p].SeqLength = buf[off+1]
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
