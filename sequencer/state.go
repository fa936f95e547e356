package sequencer

import "fmt"

const (
	NumPatterns = 8
	NumSteps    = 8
	MaxRepeat   = 2    // a step plays at most MaxRepeat+1 gates in a row
	MaxValue    = 1023 // 10-bit ADC full scale
)

// PatternMode is the traversal direction
type PatternMode uint8

const (
	Forward PatternMode = iota
	Backward
)

func (m PatternMode) String() string {
	switch m {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// MarshalText encodes the mode by name
func (m PatternMode) MarshalText() ([]byte, error) {
	if m > Backward {
		return nil, fmt.Errorf("unknown pattern mode %d", uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name
func (m *PatternMode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "forward":
		*m = Forward
	case "backward":
		*m = Backward
	default:
		return fmt.Errorf("unknown pattern mode %q", b)
	}
	return nil
}

// next returns the neighbouring step index in this direction, wrapping at the ends
func (m PatternMode) next(idx int) int {
	if m == Backward {
		if idx == 0 {
			return NumSteps - 1
		}
		return idx - 1
	}
	if idx == NumSteps-1 {
		return 0
	}
	return idx + 1
}

// Step holds one recorded sample
type Step struct {
	Enabled bool   `yaml:"enabled"`
	Value   uint16 `yaml:"value"`
	Repeat  uint8  `yaml:"repeat"`
	Counter uint8  `yaml:"-"` // runtime only, counts down from Repeat
}

// Pattern is a row of steps
type Pattern struct {
	Steps [NumSteps]Step `yaml:"steps"`
	Idx   uint8          `yaml:"idx"`

	// SeqLength is a display counter, adjusted by toggles and never recomputed
	SeqLength uint8 `yaml:"seqLength"`
}

// Status holds the sequencer mode flags and playhead
type Status struct {
	FreeRun        bool        `yaml:"freeRun"`
	RecordEnable   bool        `yaml:"recordEnable"`
	Saved          bool        `yaml:"saved"`
	CurrPatternIdx uint8       `yaml:"pattern"`
	CurrStepIdx    uint8       `yaml:"step"`
	Mode           PatternMode `yaml:"mode"`
}

// State is the whole sequencer: all patterns plus status.
// The current pattern is always derived from Status.CurrPatternIdx.
type State struct {
	Patterns [NumPatterns]Pattern `yaml:"patterns"`
	Status   Status               `yaml:"status"`
}

// NewState creates a state with factory settings
func NewState() *State {
	s := &State{}
	s.InitializeFactory()
	return s
}

// InitializeFactory resets every pattern and the status to factory settings
func (s *State) InitializeFactory() {
	for i := range s.Patterns {
		for j := range s.Patterns[i].Steps {
			s.Patterns[i].Steps[j] = Step{Enabled: true}
		}
		s.Patterns[i].SeqLength = NumSteps
		s.Patterns[i].Idx = uint8(i)
	}

	s.Status = Status{
		FreeRun: true,
		Mode:    Forward,
	}
}

// Pattern returns pattern i. Panics if i is out of range.
func (s *State) Pattern(i int) *Pattern {
	mustIndex("pattern", i, NumPatterns)
	return &s.Patterns[i]
}

// CurrentPattern returns the selected pattern
func (s *State) CurrentPattern() *Pattern {
	return s.Pattern(int(s.Status.CurrPatternIdx))
}

// CurrentStep returns the step under the playhead
func (s *State) CurrentStep() *Step {
	return s.CurrentPattern().Step(int(s.Status.CurrStepIdx))
}

// Step returns step i. Panics if i is out of range.
func (p *Pattern) Step(i int) *Step {
	mustIndex("step", i, NumSteps)
	return &p.Steps[i]
}

// EnabledCount returns how many steps are enabled
func (p *Pattern) EnabledCount() int {
	n := 0
	for _, st := range p.Steps {
		if st.Enabled {
			n++
		}
	}
	return n
}

// AdvanceStep moves the playhead for one gate edge and returns the landed index.
//
// A step with a pending repeat holds the playhead and counts down instead.
// Disabled steps are passed over without consuming the gate. If no step is
// enabled the playhead stays where it was.
func (s *State) AdvanceStep() int {
	pat := s.CurrentPattern()
	origin := int(s.Status.CurrStepIdx)
	idx := origin

	// every iteration either decrements a counter or moves, so this terminates
	for moves := 0; moves < NumSteps; {
		st := pat.Step(idx)
		if st.Counter != 0 {
			st.Counter--
		} else {
			st.Counter = st.Repeat
			idx = s.Status.Mode.next(idx)
			moves++
		}

		if pat.Steps[idx].Enabled {
			s.Status.CurrStepIdx = uint8(idx)
			return idx
		}
	}

	s.Status.CurrStepIdx = uint8(origin)
	return origin
}

// ToggleStep cycles step i of the current pattern through
// repeat 0 -> 1 -> 2 -> disabled -> enabled.
func (s *State) ToggleStep(i int) {
	pat := s.CurrentPattern()
	st := pat.Step(i)

	switch {
	case st.Enabled && st.Repeat < MaxRepeat:
		st.Repeat++
		st.Counter++
		pat.SeqLength++
	case st.Enabled:
		st.Enabled = false
		st.Repeat = 0
		st.Counter = 0
		pat.SeqLength -= 2
	default:
		st.Enabled = true
		pat.SeqLength++
	}
}

// ShiftPattern moves the pattern selection by delta, wrapping at the ends
func (s *State) ShiftPattern(delta int) int {
	idx := (int(s.Status.CurrPatternIdx) + delta) % NumPatterns
	if idx < 0 {
		idx += NumPatterns
	}
	s.Status.CurrPatternIdx = uint8(idx)
	return idx
}

// Validate checks every bound a state must satisfy before the engine uses it
func (s *State) Validate() error {
	if s.Status.CurrPatternIdx >= NumPatterns {
		return fmt.Errorf("current pattern %d out of range", s.Status.CurrPatternIdx)
	}
	if s.Status.CurrStepIdx >= NumSteps {
		return fmt.Errorf("current step %d out of range", s.Status.CurrStepIdx)
	}
	if s.Status.Mode > Backward {
		return fmt.Errorf("unknown pattern mode %d", s.Status.Mode)
	}
	for p := range s.Patterns {
		for i, st := range s.Patterns[p].Steps {
			if st.Repeat > MaxRepeat {
				return fmt.Errorf("pattern %d step %d: repeat %d > %d", p, i, st.Repeat, MaxRepeat)
			}
			if st.Counter > st.Repeat {
				return fmt.Errorf("pattern %d step %d: counter %d > repeat %d", p, i, st.Counter, st.Repeat)
			}
			if st.Value > MaxValue {
				return fmt.Errorf("pattern %d step %d: value %d > %d", p, i, st.Value, MaxValue)
			}
		}
	}
	return nil
}
