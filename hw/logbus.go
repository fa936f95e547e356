package hw

import (
	"sync"

	"go-stepsampler/debug"
)

// LogBus is a bus with no device on it. Each chip-select frame is logged
// under Category and the last one kept for inspection.
type LogBus struct {
	Category string

	mu    sync.Mutex
	frame []byte
	last  []byte
}

func (b *LogBus) Select(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if on {
		b.frame = b.frame[:0]
		return
	}
	b.last = append(b.last[:0], b.frame...)
	debug.LogEvery(64, b.Category, "frame % X", b.last)
}

// Transfer reads back 0xFF, an undriven MISO line
func (b *LogBus) Transfer(x byte) byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frame = append(b.frame, x)
	return 0xFF
}

// Last returns a copy of the last complete frame
func (b *LogBus) Last() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.last...)
}

// MultiDAC writes every value to several DACs.
type MultiDAC []DAC

func (m MultiDAC) Write(v uint16) {
	for _, d := range m {
		d.Write(v)
	}
}
