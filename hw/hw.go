// Package hw declares the hardware capabilities the sequencer core consumes.
// Everything here is a thin seam: the core never touches pins or registers,
// only these interfaces.
package hw

import "io"

// Bus is a full-duplex byte bus with a chip select line (SPI).
type Bus interface {
	// Select asserts (true) or releases (false) the device's chip select.
	Select(on bool)
	// Transfer shifts one byte out and returns the byte shifted in.
	Transfer(b byte) byte
}

// ADC acquires one analog sample. Blocks until the conversion is ready.
type ADC interface {
	Sample() uint16
}

// DAC drives the analog output.
type DAC interface {
	Write(value uint16)
}

// Indicators are the panel LEDs the engine drives.
type Indicators interface {
	ClearSteps()
	SetStep(idx int)
	SetRecord(on bool)
	SetPlayback(on bool)
}

// Console is the diagnostic character stream (USART on the board).
type Console = io.Writer

// NopIndicators drops every LED update.
type NopIndicators struct{}

func (NopIndicators) ClearSteps()      {}
func (NopIndicators) SetStep(int)      {}
func (NopIndicators) SetRecord(bool)   {}
func (NopIndicators) SetPlayback(bool) {}

// FuncADC adapts a function to ADC.
type FuncADC func() uint16

func (f FuncADC) Sample() uint16 { return f() }

// FuncDAC adapts a function to DAC.
type FuncDAC func(uint16)

func (f FuncDAC) Write(v uint16) { f(v) }
