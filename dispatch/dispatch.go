// Package dispatch routes panel triggers to the sequencer engine, one event
// at a time.
package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"

	"go-stepsampler/debug"
	"go-stepsampler/hw"
	"go-stepsampler/sequencer"
)

// Trigger is an input source
type Trigger int

const (
	Gate Trigger = iota
	StepButton
	Encoder
	Playback
	Record
	Save
	Mode
	numTriggers
)

func (t Trigger) String() string {
	switch t {
	case Gate:
		return "gate"
	case StepButton:
		return "step"
	case Encoder:
		return "encoder"
	case Playback:
		return "playback"
	case Record:
		return "record"
	case Save:
		return "save"
	case Mode:
		return "mode"
	}
	return fmt.Sprintf("trigger(%d)", int(t))
}

// encoderQueue is how many encoder position samples may be pending
const encoderQueue = 8

// Saver writes the state somewhere durable. It is called with the engine
// locked.
type Saver interface {
	Save(st *sequencer.State)
}

// Clearer is called after each handled event, once the trigger may fire again
type Clearer func(t Trigger)

// Dispatcher owns the event loop. Posts never block: a trigger that is
// already pending swallows the new edge, like a latched interrupt flag.
type Dispatcher struct {
	engine *sequencer.Engine
	adc    hw.ADC
	dac    hw.DAC
	saver  Saver
	clear  Clearer

	pending [numTriggers]chan uint8
	dropped [numTriggers]atomic.Uint64
	handled [numTriggers]atomic.Uint64

	// Notify observers (TUI) after each handled event
	UpdateChan chan struct{}
}

// New creates a dispatcher. saver may be nil, in which case Save is ignored.
func New(engine *sequencer.Engine, adc hw.ADC, dac hw.DAC, saver Saver) *Dispatcher {
	d := &Dispatcher{
		engine:     engine,
		adc:        adc,
		dac:        dac,
		saver:      saver,
		UpdateChan: make(chan struct{}, 1),
	}
	for i := range d.pending {
		size := 1
		if Trigger(i) == Encoder {
			size = encoderQueue
		}
		d.pending[i] = make(chan uint8, size)
	}
	return d
}

// SetClearer sets the hook run after each handled event
func (d *Dispatcher) SetClearer(fn Clearer) {
	d.clear = fn
}

// Post queues an edge on t. Returns false if the edge was coalesced.
func (d *Dispatcher) Post(t Trigger, payload uint8) bool {
	select {
	case d.pending[t] <- payload:
		return true
	default:
		d.dropped[t].Add(1)
		debug.LogEvery(32, "dispatch", "coalesced %s", t)
		return false
	}
}

func (d *Dispatcher) PostGate() bool                  { return d.Post(Gate, 0) }
func (d *Dispatcher) PostStepButtons(mask uint8) bool { return d.Post(StepButton, mask) }
func (d *Dispatcher) PostEncoder(pos uint8) bool      { return d.Post(Encoder, pos) }
func (d *Dispatcher) PostPlayback() bool              { return d.Post(Playback, 0) }
func (d *Dispatcher) PostRecord() bool                { return d.Post(Record, 0) }
func (d *Dispatcher) PostSave() bool                  { return d.Post(Save, 0) }
func (d *Dispatcher) PostMode() bool                  { return d.Post(Mode, 0) }

// Dropped returns how many posts on t were coalesced
func (d *Dispatcher) Dropped(t Trigger) uint64 {
	return d.dropped[t].Load()
}

// Handled returns how many events on t ran to completion
func (d *Dispatcher) Handled(t Trigger) uint64 {
	return d.handled[t].Load()
}

// Run handles events until ctx is cancelled (blocking - run in goroutine)
func (d *Dispatcher) Run(ctx context.Context) {
	debug.Log("dispatch", "loop started")
	for {
		var t Trigger
		var payload uint8

		select {
		case <-ctx.Done():
			debug.Log("dispatch", "loop stopped")
			return
		case payload = <-d.pending[Gate]:
			t = Gate
		case payload = <-d.pending[StepButton]:
			t = StepButton
		case payload = <-d.pending[Encoder]:
			t = Encoder
		case payload = <-d.pending[Playback]:
			t = Playback
		case payload = <-d.pending[Record]:
			t = Record
		case payload = <-d.pending[Save]:
			t = Save
		case payload = <-d.pending[Mode]:
			t = Mode
		}

		d.Handle(t, payload)
	}
}

// Handle runs one event to completion, then clears the trigger and
// notifies observers
func (d *Dispatcher) Handle(t Trigger, payload uint8) {
	switch t {
	case Gate:
		d.gate()
	case StepButton:
		d.engine.PressStepButtons(payload)
	case Encoder:
		d.engine.SelectPattern(payload)
	case Playback:
		d.engine.SetPlaybackEnable()
	case Record:
		d.engine.SetRecordEnable()
	case Save:
		if d.saver != nil {
			d.engine.Do(d.saver.Save)
		}
	case Mode:
		d.engine.TogglePatternMode()
	default:
		debug.Log("dispatch", "unknown trigger %d", int(t))
		return
	}

	d.handled[t].Add(1)
	if d.clear != nil {
		d.clear(t)
	}
	if t != Gate {
		debug.Log("dispatch", "handled %s payload=%d", t, payload)
	}

	// Non-blocking notify
	select {
	case d.UpdateChan <- struct{}{}:
	default:
	}
}

// gate advances the playhead, then either passes the live input through
// (and records it) or plays back the stored step
func (d *Dispatcher) gate() {
	d.engine.Advance()

	if d.engine.FreeRun() {
		v := d.adc.Sample()
		d.dac.Write(v)
		d.engine.RecordSample(v)
		return
	}
	d.dac.Write(d.engine.PlayCurrentStep())
}
