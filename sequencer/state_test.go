package sequencer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertCounterInvariant(t *testing.T, s *State) {
	t.Helper()
	for p := range s.Patterns {
		for i, st := range s.Patterns[p].Steps {
			assert.LessOrEqual(t, st.Counter, st.Repeat, "pattern %d step %d", p, i)
			assert.LessOrEqual(t, st.Repeat, uint8(MaxRepeat), "pattern %d step %d", p, i)
		}
	}
}

func TestInitializeFactory(t *testing.T) {
	s := &State{}
	s.Status.CurrPatternIdx = 5
	s.Patterns[3].Steps[2] = Step{Value: 99, Repeat: 2, Counter: 1}

	s.InitializeFactory()

	for i, pat := range s.Patterns {
		assert.Equal(t, uint8(i), pat.Idx)
		assert.Equal(t, uint8(NumSteps), pat.SeqLength)
		for _, st := range pat.Steps {
			assert.Equal(t, Step{Enabled: true}, st)
		}
	}
	assert.Equal(t, Status{FreeRun: true, Mode: Forward}, s.Status)
	assert.Same(t, &s.Patterns[0], s.CurrentPattern())
}

func TestCurrentPatternFollowsIndex(t *testing.T) {
	s := NewState()
	s.Status.CurrPatternIdx = 6
	assert.Same(t, &s.Patterns[6], s.CurrentPattern())

	s.Status.CurrPatternIdx = 1
	assert.Same(t, &s.Patterns[1], s.CurrentPattern())
}

func TestToggleSequence(t *testing.T) {
	s := NewState()
	pat := s.CurrentPattern()
	start := pat.SeqLength

	s.ToggleStep(4)
	assert.Equal(t, Step{Enabled: true, Repeat: 1, Counter: 1}, pat.Steps[4])
	assert.Equal(t, start+1, pat.SeqLength)

	s.ToggleStep(4)
	assert.Equal(t, Step{Enabled: true, Repeat: 2, Counter: 2}, pat.Steps[4])
	assert.Equal(t, start+2, pat.SeqLength)

	s.ToggleStep(4)
	assert.Equal(t, Step{Enabled: false}, pat.Steps[4])
	assert.Equal(t, start, pat.SeqLength)

	s.ToggleStep(4)
	assert.Equal(t, Step{Enabled: true}, pat.Steps[4])
	assert.Equal(t, start+1, pat.SeqLength)

	assertCounterInvariant(t, s)
}

func TestToggleOnlyTouchesCurrentPattern(t *testing.T) {
	s := NewState()
	s.Status.CurrPatternIdx = 2
	s.ToggleStep(0)

	assert.Equal(t, uint8(1), s.Patterns[2].Steps[0].Repeat)
	for p := range s.Patterns {
		if p == 2 {
			continue
		}
		assert.Equal(t, Step{Enabled: true}, s.Patterns[p].Steps[0], "pattern %d", p)
	}
}

func TestSeqLengthWrapsLikeAByte(t *testing.T) {
	s := NewState()
	pat := s.CurrentPattern()
	pat.SeqLength = 1

	pat.Steps[0] = Step{Enabled: true, Repeat: 2, Counter: 2}
	s.ToggleStep(0)

	assert.Equal(t, uint8(255), pat.SeqLength)
}

func TestAdvanceForward(t *testing.T) {
	s := NewState()

	var visited []int
	for i := 0; i < 10; i++ {
		visited = append(visited, s.AdvanceStep())
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 0, 1, 2}, visited)
}

func TestAdvanceBackward(t *testing.T) {
	s := NewState()
	s.Status.Mode = Backward

	var visited []int
	for i := 0; i < 10; i++ {
		visited = append(visited, s.AdvanceStep())
	}
	assert.Equal(t, []int{7, 6, 5, 4, 3, 2, 1, 0, 7, 6}, visited)
}

func TestAdvanceRepeatDwell(t *testing.T) {
	s := NewState()
	s.ToggleStep(3)
	s.ToggleStep(3)
	require.Equal(t, uint8(2), s.CurrentPattern().Steps[3].Repeat)

	var visited []int
	for i := 0; i < 8; i++ {
		visited = append(visited, s.AdvanceStep())
		assertCounterInvariant(t, s)
	}
	assert.Equal(t, []int{1, 2, 3, 3, 3, 4, 5, 6}, visited)
	assert.Equal(t, uint8(2), s.CurrentPattern().Steps[3].Counter, "counter reloads when the step is consumed")
}

func TestAdvanceRepeatDwellBackward(t *testing.T) {
	s := NewState()
	s.Status.Mode = Backward
	s.ToggleStep(6)

	var visited []int
	for i := 0; i < 4; i++ {
		visited = append(visited, s.AdvanceStep())
	}
	assert.Equal(t, []int{7, 6, 6, 5}, visited)
}

func TestAdvanceSkipsDisabled(t *testing.T) {
	s := NewState()
	pat := s.CurrentPattern()
	pat.Steps[1].Enabled = false
	pat.Steps[2].Enabled = false
	pat.Steps[7].Enabled = false

	var visited []int
	for i := 0; i < 6; i++ {
		visited = append(visited, s.AdvanceStep())
	}
	assert.Equal(t, []int{3, 4, 5, 6, 0, 3}, visited)
}

func TestAdvanceSingleEnabledStep(t *testing.T) {
	for start := 0; start < NumSteps; start++ {
		for _, mode := range []PatternMode{Forward, Backward} {
			s := NewState()
			s.Status.Mode = mode
			s.Status.CurrStepIdx = uint8(start)
			for i := range s.CurrentPattern().Steps {
				s.CurrentPattern().Steps[i].Enabled = i == 5
			}

			for n := 0; n < 5; n++ {
				assert.Equal(t, 5, s.AdvanceStep(), "start=%d mode=%s", start, mode)
			}
		}
	}
}

func TestAdvanceAllDisabledLeavesIndex(t *testing.T) {
	s := NewState()
	s.Status.CurrStepIdx = 4
	for i := range s.CurrentPattern().Steps {
		s.CurrentPattern().Steps[i].Enabled = false
	}

	assert.Equal(t, 4, s.AdvanceStep())
	assert.Equal(t, uint8(4), s.Status.CurrStepIdx)

	s.Status.Mode = Backward
	assert.Equal(t, 4, s.AdvanceStep())
}

func TestAdvanceDisabledStepWithStaleCounterTerminates(t *testing.T) {
	s := NewState()
	pat := s.CurrentPattern()
	for i := range pat.Steps {
		pat.Steps[i] = Step{Repeat: 2, Counter: 2}
	}

	assert.Equal(t, 0, s.AdvanceStep())
}

func TestToggleAndAdvanceKeepInvariant(t *testing.T) {
	s := NewState()
	ops := []int{0, 0, 3, -1, 3, 3, -1, -1, 7, 0, -1, 5, 5, 5, -1, -1, -1, 2, -1}
	for _, op := range ops {
		if op < 0 {
			s.AdvanceStep()
		} else {
			s.ToggleStep(op)
		}
		assertCounterInvariant(t, s)
	}
}

func TestShiftPattern(t *testing.T) {
	tests := []struct {
		name  string
		start uint8
		delta int
		want  int
	}{
		{"up", 3, 1, 4},
		{"down", 3, -1, 2},
		{"wrap up", 7, 1, 0},
		{"wrap down", 0, -1, 7},
		{"none", 5, 0, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState()
			s.Status.CurrPatternIdx = tt.start
			assert.Equal(t, tt.want, s.ShiftPattern(tt.delta))
			assert.Equal(t, uint8(tt.want), s.Status.CurrPatternIdx)
		})
	}
}

func TestOutOfRangeIndexPanics(t *testing.T) {
	s := NewState()

	s.Status.CurrPatternIdx = NumPatterns
	assert.PanicsWithError(t, "invariant violated: pattern index 8 out of range [0,8)", func() {
		s.CurrentPattern()
	})

	s.Status.CurrPatternIdx = 0
	s.Status.CurrStepIdx = 200
	assert.Panics(t, func() { s.AdvanceStep() })

	assert.Panics(t, func() { s.ToggleStep(-1) })
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *State)
		err    string
	}{
		{"factory", func(s *State) {}, ""},
		{"pattern index", func(s *State) { s.Status.CurrPatternIdx = 9 }, "current pattern 9 out of range"},
		{"step index", func(s *State) { s.Status.CurrStepIdx = 8 }, "current step 8 out of range"},
		{"mode", func(s *State) { s.Status.Mode = 2 }, "unknown pattern mode 2"},
		{"repeat", func(s *State) { s.Patterns[1].Steps[2].Repeat = 3 }, "pattern 1 step 2: repeat 3 > 2"},
		{"counter", func(s *State) { s.Patterns[0].Steps[0].Counter = 1 }, "pattern 0 step 0: counter 1 > repeat 0"},
		{"value", func(s *State) { s.Patterns[7].Steps[7].Value = 1024 }, "pattern 7 step 7: value 1024 > 1023"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState()
			tt.mutate(s)
			err := s.Validate()
			if tt.err == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.err)
		})
	}
}

func TestPatternModeString(t *testing.T) {
	assert.Equal(t, "forward", Forward.String())
	assert.Equal(t, "backward", Backward.String())
	assert.Equal(t, "mode(9)", PatternMode(9).String())
}

func TestPatternModeText(t *testing.T) {
	b, err := Backward.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "backward", string(b))

	_, err = PatternMode(3).MarshalText()
	assert.Error(t, err)

	var m PatternMode
	require.NoError(t, m.UnmarshalText([]byte("backward")))
	assert.Equal(t, Backward, m)
	assert.EqualError(t, m.UnmarshalText([]byte("sideways")), `unknown pattern mode "sideways"`)
}
