package hw

import "sync"

// Panel is an in-memory LED panel. The TUI and the MIDI LED mirror read it;
// the engine writes it through Indicators.
type Panel struct {
	mu       sync.RWMutex
	steps    [8]bool
	record   bool
	playback bool

	// OnChange is called after every update (outside the lock)
	OnChange func()
}

// PanelState is a copy of every LED on the panel.
type PanelState struct {
	Steps    [8]bool
	Record   bool
	Playback bool
}

// NewPanel creates a dark panel
func NewPanel() *Panel {
	return &Panel{}
}

func (p *Panel) ClearSteps() {
	p.mu.Lock()
	p.steps = [8]bool{}
	p.mu.Unlock()
	p.changed()
}

func (p *Panel) SetStep(idx int) {
	p.mu.Lock()
	if idx >= 0 && idx < len(p.steps) {
		p.steps[idx] = true
	}
	p.mu.Unlock()
	p.changed()
}

func (p *Panel) SetRecord(on bool) {
	p.mu.Lock()
	p.record = on
	p.mu.Unlock()
	p.changed()
}

func (p *Panel) SetPlayback(on bool) {
	p.mu.Lock()
	p.playback = on
	p.mu.Unlock()
	p.changed()
}

// State returns a snapshot of the LEDs
func (p *Panel) State() PanelState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return PanelState{Steps: p.steps, Record: p.record, Playback: p.playback}
}

func (p *Panel) changed() {
	if p.OnChange != nil {
		p.OnChange()
	}
}

// MultiIndicators fans LED updates out to several sinks.
type MultiIndicators []Indicators

func (m MultiIndicators) ClearSteps() {
	for _, i := range m {
		i.ClearSteps()
	}
}

func (m MultiIndicators) SetStep(idx int) {
	for _, i := range m {
		i.SetStep(idx)
	}
}

func (m MultiIndicators) SetRecord(on bool) {
	for _, i := range m {
		i.SetRecord(on)
	}
}

func (m MultiIndicators) SetPlayback(on bool) {
	for _, i := range m {
		i.SetPlayback(on)
	}
}
