package midi

import (
	"sync/atomic"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-stepsampler/debug"
	"go-stepsampler/sequencer"
)

// Realtime status bytes
const (
	clockByte byte = 0xF8
	startByte byte = 0xFA
)

// Mapping assigns panel controls to MIDI messages
type Mapping struct {
	GateNote     uint8 // note-on fires the gate
	ClockDivider int   // if > 0, every Nth MIDI clock also fires the gate
	StepNoteBase uint8 // step buttons are StepNoteBase..StepNoteBase+7
	EncoderCC    uint8 // relative encoder: 1..63 clockwise, 65..127 counterclockwise
	RecordCC     uint8
	PlaybackCC   uint8
	SaveCC       uint8
	ModeCC       uint8
	OutChannel   uint8 // LEDs and DAC output
}

// DefaultMapping returns the stock controller layout
func DefaultMapping() Mapping {
	return Mapping{
		GateNote:     60,
		ClockDivider: 0,
		StepNoteBase: 36,
		EncoderCC:    20,
		RecordCC:     21,
		PlaybackCC:   22,
		SaveCC:       23,
		ModeCC:       24,
		OutChannel:   0,
	}
}

// Sink receives panel triggers. *dispatch.Dispatcher satisfies it.
type Sink interface {
	PostGate() bool
	PostStepButtons(mask uint8) bool
	PostEncoder(pos uint8) bool
	PostPlayback() bool
	PostRecord() bool
	PostSave() bool
	PostMode() bool
}

// CVInput is the ADC fed by incoming pitch bend
type CVInput struct {
	value atomic.Uint32
}

// Set stores a 14-bit pitch bend value as a 10-bit sample
func (c *CVInput) Set(bend14 uint16) {
	c.value.Store(uint32(bend14&0x3FFF) >> 4)
}

// SetSample stores a 10-bit value directly, clamped to full scale
func (c *CVInput) SetSample(v uint16) {
	if v > sequencer.MaxValue {
		v = sequencer.MaxValue
	}
	c.value.Store(uint32(v))
}

// Sample returns the latest 10-bit value
func (c *CVInput) Sample() uint16 {
	return uint16(c.value.Load())
}

// Translator turns incoming messages into panel triggers
type Translator struct {
	m     Mapping
	sink  Sink
	cv    *CVInput
	ticks int
}

// NewTranslator creates a translator posting to sink. cv may be nil.
func NewTranslator(m Mapping, sink Sink, cv *CVInput) *Translator {
	return &Translator{m: m, sink: sink, cv: cv}
}

// Translate handles one message and reports whether it was mapped
func (t *Translator) Translate(msg gomidi.Message) bool {
	if len(msg) == 1 {
		return t.realtime(msg[0])
	}

	var channel, key, velocity, cc, value uint8
	var rel int16
	var abs uint16

	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		if velocity == 0 {
			return false
		}
		if key == t.m.GateNote {
			t.sink.PostGate()
			return true
		}
		if key >= t.m.StepNoteBase && key < t.m.StepNoteBase+sequencer.NumSteps {
			t.sink.PostStepButtons(1 << (key - t.m.StepNoteBase))
			return true
		}

	case msg.GetControlChange(&channel, &cc, &value):
		return t.control(cc, value)

	case msg.GetPitchBend(&channel, &rel, &abs):
		if t.cv != nil {
			t.cv.Set(abs)
			return true
		}
	}
	return false
}

func (t *Translator) control(cc, value uint8) bool {
	if cc == t.m.EncoderCC {
		switch {
		case value >= 1 && value <= 63:
			t.sink.PostEncoder(sequencer.RotaryRest)
			t.sink.PostEncoder(sequencer.RotaryLineB)
		case value >= 65:
			t.sink.PostEncoder(sequencer.RotaryRest)
			t.sink.PostEncoder(sequencer.RotaryLineA)
		default:
			return false
		}
		return true
	}

	// buttons fire on press only
	if value == 0 {
		return false
	}
	switch cc {
	case t.m.RecordCC:
		t.sink.PostRecord()
	case t.m.PlaybackCC:
		t.sink.PostPlayback()
	case t.m.SaveCC:
		t.sink.PostSave()
	case t.m.ModeCC:
		t.sink.PostMode()
	default:
		return false
	}
	return true
}

func (t *Translator) realtime(b byte) bool {
	if t.m.ClockDivider <= 0 {
		return false
	}
	switch b {
	case startByte:
		t.ticks = 0
		debug.Log("midi", "clock start")
		return true
	case clockByte:
		t.ticks++
		if t.ticks >= t.m.ClockDivider {
			t.ticks = 0
			t.sink.PostGate()
		}
		return true
	}
	return false
}

// BendFromDAC maps a 12-bit DAC code onto the signed 14-bit pitch bend range
func BendFromDAC(v uint16) int16 {
	return int16(v&0x0FFF)<<2 - 8192
}
