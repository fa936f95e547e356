package sequencer

import (
	"fmt"
	"io"
	"math/bits"
	"sync"

	"go-stepsampler/debug"
	"go-stepsampler/hw"
)

// Engine owns the sequencer state and serializes every operation on it.
// Each exported method takes the lock for its whole run, so handlers never
// observe each other half-way.
type Engine struct {
	mu      sync.Mutex
	state   *State
	rotary  Rotary
	leds    hw.Indicators
	console io.Writer
}

// NewEngine creates an engine around st. The engine is the only owner of st
// from here on; use Do for exclusive access.
func NewEngine(st *State, leds hw.Indicators) *Engine {
	if leds == nil {
		leds = hw.NopIndicators{}
	}
	return &Engine{
		state:   st,
		leds:    leds,
		console: io.Discard,
	}
}

// SetConsole sets the diagnostic output (pattern index echo)
func (e *Engine) SetConsole(w io.Writer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if w == nil {
		w = io.Discard
	}
	e.console = w
}

// Do runs fn with exclusive access to the state
func (e *Engine) Do(fn func(st *State)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.state)
}

// Snapshot returns a copy of the state
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.state
}

// Advance handles one gate edge and lights the landed step
func (e *Engine) Advance() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.state.AdvanceStep()
	e.leds.ClearSteps()
	e.leds.SetStep(idx)
	debug.LogEvery(64, "engine", "advance pattern=%d step=%d", e.state.Status.CurrPatternIdx, idx)
	return idx
}

// ToggleStep edits step i of the current pattern
func (e *Engine) ToggleStep(i int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.ToggleStep(i)
	st := e.state.CurrentPattern().Steps[i]
	debug.Log("engine", "toggle step=%d enabled=%v repeat=%d seqLength=%d",
		i, st.Enabled, st.Repeat, e.state.CurrentPattern().SeqLength)
}

// StepFromMask maps a step button bitmask to a step index.
// Buttons are mutually exclusive; any mask without exactly one bit is ignored.
func StepFromMask(mask uint8) (int, bool) {
	if bits.OnesCount8(mask) != 1 {
		return 0, false
	}
	return bits.TrailingZeros8(mask), true
}

// PressStepButtons toggles the step whose button bit is set in mask
func (e *Engine) PressStepButtons(mask uint8) bool {
	i, ok := StepFromMask(mask)
	if !ok {
		debug.Log("engine", "ignored step button mask %08b", mask)
		return false
	}
	e.ToggleStep(i)
	return true
}

// SetRecordEnable toggles recording and returns the new setting
func (e *Engine) SetRecordEnable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	on := !e.state.Status.RecordEnable
	e.state.Status.RecordEnable = on
	e.leds.SetRecord(on)
	debug.Log("engine", "record=%v", on)
	return on
}

// SetPlaybackEnable toggles free-run and returns the new setting
func (e *Engine) SetPlaybackEnable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	on := !e.state.Status.FreeRun
	e.state.Status.FreeRun = on
	e.leds.SetPlayback(on)
	debug.Log("engine", "freeRun=%v", on)
	return on
}

// SetPatternMode sets the traversal direction
func (e *Engine) SetPatternMode(m PatternMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if m > Backward {
		panic(fmt.Sprintf("unknown pattern mode %d", m))
	}
	e.state.Status.Mode = m
	debug.Log("engine", "mode=%s", m)
}

// TogglePatternMode flips between forward and backward traversal
func (e *Engine) TogglePatternMode() PatternMode {
	e.mu.Lock()
	defer e.mu.Unlock()

	m := Forward
	if e.state.Status.Mode == Forward {
		m = Backward
	}
	e.state.Status.Mode = m
	debug.Log("engine", "mode=%s", m)
	return m
}

// SelectPattern handles one encoder position sample. Recording is always
// switched off first so a pattern change never records into the new pattern.
func (e *Engine) SelectPattern(pos uint8) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.Status.RecordEnable = false
	e.leds.SetRecord(false)

	idx := int(e.state.Status.CurrPatternIdx)
	if delta := e.rotary.Turn(pos); delta != 0 {
		idx = e.state.ShiftPattern(delta)
		fmt.Fprintf(e.console, "%d", idx)
		debug.Log("engine", "pattern=%d", idx)
	}
	return idx
}

// RecordSample stores v in the current step when recording is on
func (e *Engine) RecordSample(v uint16) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.Status.RecordEnable {
		return false
	}
	if v > MaxValue {
		v = MaxValue
	}
	e.state.CurrentStep().Value = v
	return true
}

// PlayCurrentStep returns the stored value under the playhead
func (e *Engine) PlayCurrentStep() uint16 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.CurrentStep().Value
}

// FreeRun reports whether the engine passes live input through
func (e *Engine) FreeRun() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Status.FreeRun
}

// SyncIndicators drives every LED from the current state (after a restore)
func (e *Engine) SyncIndicators() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.leds.ClearSteps()
	e.leds.SetStep(int(e.state.Status.CurrStepIdx))
	e.leds.SetRecord(e.state.Status.RecordEnable)
	e.leds.SetPlayback(e.state.Status.FreeRun)
}
