// Package midi connects the sequencer panel to a MIDI controller: buttons,
// encoder, gate and CV come in, step LEDs and the DAC output go out.
package midi

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"go-stepsampler/debug"
	"go-stepsampler/sequencer"
)

var sendCount uint64

// Panel is a MIDI controller standing in for the front panel.
// It implements hw.Indicators (LED mirror) and hw.DAC (pitch bend out).
// Ports can be swapped while it runs; with none connected, output is dropped.
type Panel struct {
	m Mapping

	mu       sync.Mutex
	inPort   drivers.In
	outPort  drivers.Out
	send     func(msg gomidi.Message) error
	stopFunc func()

	translator *Translator
	CV         *CVInput

	outChan chan gomidi.Message
}

// NewPanel opens the output port. Either port may be nil. Input is not
// opened until Listen, so the panel can be handed to the engine before the
// dispatcher that consumes its triggers exists.
func NewPanel(m Mapping, inPort drivers.In, outPort drivers.Out) (*Panel, error) {
	p := &Panel{
		m:       m,
		inPort:  inPort,
		CV:      &CVInput{},
		outChan: make(chan gomidi.Message, 64),
	}

	if err := p.openOut(outPort); err != nil {
		return nil, err
	}

	debug.Log("midi", "panel in=%v out=%v", portName(inPort), portName(outPort))
	return p, nil
}

// Listen opens the input port and posts translated messages to sink.
// Without an input port it only records the sink.
func (p *Panel) Listen(sink Sink) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.translator = NewTranslator(p.m, sink, p.CV)
	return p.openIn(p.inPort)
}

// Connect replaces the current ports. Input is opened only after Listen.
func (p *Panel) Connect(inPort drivers.In, outPort drivers.Out) error {
	p.Disconnect()

	if err := p.openOut(outPort); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inPort = inPort
	if p.translator == nil {
		return nil
	}
	return p.openIn(inPort)
}

// Disconnect stops listening and drops the output port
func (p *Panel) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopFunc != nil {
		p.stopFunc()
		p.stopFunc = nil
	}
	p.inPort = nil
	p.outPort = nil
	p.send = nil
}

// Connected returns the names of the open ports, "-" for none
func (p *Panel) Connected() (in, out string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return portName(p.inPort), portName(p.outPort)
}

func (p *Panel) openOut(outPort drivers.Out) error {
	if outPort == nil {
		return nil
	}
	send, err := gomidi.SendTo(outPort)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}

	p.mu.Lock()
	p.outPort = outPort
	p.send = send
	p.mu.Unlock()
	return nil
}

// openIn must be called with mu held
func (p *Panel) openIn(inPort drivers.In) error {
	if inPort == nil {
		return nil
	}

	tr := p.translator
	stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
		if !tr.Translate(msg) {
			debug.LogEvery(32, "midi", "unmapped %s", msg)
		}
	})
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	p.stopFunc = stop
	return nil
}

// Run drains outgoing messages until ctx is cancelled (blocking - run in goroutine)
func (p *Panel) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-p.outChan:
			p.mu.Lock()
			send := p.send
			p.mu.Unlock()
			if send == nil {
				continue
			}
			if err := send(msg); err != nil {
				debug.Log("midi", "send: %v", err)
			}
			atomic.AddUint64(&sendCount, 1)
		}
	}
}

// queue is non-blocking; LED and DAC updates happen under the engine lock
func (p *Panel) queue(msg gomidi.Message) {
	select {
	case p.outChan <- msg:
	default:
		debug.LogEvery(32, "midi", "output queue full, dropped %s", msg)
	}
}

func (p *Panel) ClearSteps() {
	for i := 0; i < sequencer.NumSteps; i++ {
		p.queue(gomidi.NoteOff(p.m.OutChannel, p.m.StepNoteBase+uint8(i)))
	}
}

func (p *Panel) SetStep(idx int) {
	if idx < 0 || idx >= sequencer.NumSteps {
		return
	}
	p.queue(gomidi.NoteOn(p.m.OutChannel, p.m.StepNoteBase+uint8(idx), 127))
}

func (p *Panel) SetRecord(on bool) {
	p.queue(gomidi.ControlChange(p.m.OutChannel, p.m.RecordCC, ccValue(on)))
}

func (p *Panel) SetPlayback(on bool) {
	p.queue(gomidi.ControlChange(p.m.OutChannel, p.m.PlaybackCC, ccValue(on)))
}

// Write sends the DAC code as pitch bend
func (p *Panel) Write(v uint16) {
	p.queue(gomidi.Pitchbend(p.m.OutChannel, BendFromDAC(v)))
}

// Sample returns the latest CV input (pitch bend in)
func (p *Panel) Sample() uint16 {
	return p.CV.Sample()
}

// Close stops listening
func (p *Panel) Close() error {
	p.Disconnect()
	return nil
}

// SendCount returns the number of messages sent by all panels
func SendCount() uint64 {
	return atomic.LoadUint64(&sendCount)
}

func ccValue(on bool) uint8 {
	if on {
		return 127
	}
	return 0
}

func portName(p fmt.Stringer) string {
	if p == nil {
		return "-"
	}
	return p.String()
}
