package patchfile

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-stepsampler/sequencer"
)

func TestExportImportRoundTrip(t *testing.T) {
	st := sequencer.NewState()
	st.ToggleStep(1)
	st.ToggleStep(1)
	st.ToggleStep(6)
	st.ToggleStep(6)
	st.ToggleStep(6)
	st.Patterns[0].Steps[2].Value = 777
	st.Status.CurrPatternIdx = 3
	st.Status.Mode = sequencer.Backward
	st.Status.Saved = true

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, st))

	got, err := Import(&buf)
	require.NoError(t, err)
	assert.Equal(t, *st, *got)
}

func TestExportFormat(t *testing.T) {
	st := sequencer.NewState()
	st.Status.Mode = sequencer.Backward

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, st))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "version: 1\npatterns:\n"), out)
	assert.Contains(t, out, "mode: backward\n")
	assert.Contains(t, out, "seqLength: 8\n")
	assert.NotContains(t, out, "counter")
}

func TestImportRestartsCounters(t *testing.T) {
	st := sequencer.NewState()
	st.ToggleStep(0)
	st.Patterns[0].Steps[0].Counter = 0

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, st))
	got, err := Import(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), got.Patterns[0].Steps[0].Counter)
}

func TestImportErrors(t *testing.T) {
	valid := func() string {
		var buf bytes.Buffer
		require.NoError(t, Export(&buf, sequencer.NewState()))
		return buf.String()
	}

	tests := []struct {
		name string
		doc  string
		err  string
	}{
		{"version", strings.Replace(valid(), "version: 1", "version: 2", 1), "unsupported patch version: 2"},
		{"unknown field", valid() + "tempo: 120\n", "field tempo not found"},
		{"bad mode", strings.Replace(valid(), "mode: forward", "mode: sideways", 1), `unknown pattern mode "sideways"`},
		{"bad repeat", strings.Replace(valid(), "repeat: 0", "repeat: 5", 1), "invalid patch: pattern 0 step 0: repeat 5 > 2"},
		{"not yaml", "{{{", "decode patch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Import(strings.NewReader(tt.doc))
			assert.ErrorContains(t, err, tt.err)
		})
	}
}

func TestImportVersionSentinel(t *testing.T) {
	_, err := Import(strings.NewReader("version: 9\n"))
	assert.ErrorIs(t, err, ErrVersion)
}
