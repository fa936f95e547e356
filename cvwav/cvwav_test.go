package cvwav

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-stepsampler/sequencer"
)

func TestPCMMapping(t *testing.T) {
	assert.Equal(t, -32768, ToPCM(0))
	assert.Equal(t, 32704, ToPCM(1023))
	assert.Equal(t, 0, ToPCM(512))
	assert.Equal(t, 32704, ToPCM(4000), "clamped")

	for _, v := range []uint16{0, 1, 100, 511, 512, 1000, 1023} {
		assert.Equal(t, v, FromPCM(ToPCM(v), 16), "value %d", v)
	}

	assert.Equal(t, uint16(0), FromPCM(-1<<20, 16))
	assert.Equal(t, uint16(1023), FromPCM(1<<20, 16))
	assert.Equal(t, uint16(512), FromPCM(0, 24))
}

func testState() sequencer.State {
	st := sequencer.NewState()
	for i := range st.Patterns[0].Steps {
		st.Patterns[0].Steps[i].Value = uint16(i * 128)
	}
	st.Status.CurrStepIdx = sequencer.NumSteps - 1
	return *st
}

func renderFile(t *testing.T, st sequencer.State, opts RenderOptions) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, Render(f, st, opts))
	require.NoError(t, f.Close())
	return path
}

func TestRenderImportRoundTrip(t *testing.T) {
	st := testState()
	path := renderFile(t, st, RenderOptions{SampleRate: 8000, GateSamples: 100})

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := Import(f, path)
	require.NoError(t, err)
	assert.Equal(t, [8]uint16{0, 128, 256, 384, 512, 640, 768, 896}, got)
}

func TestRenderFollowsRepeats(t *testing.T) {
	st := testState()
	st.ToggleStep(0)
	st.Patterns[0].Steps[3].Enabled = false
	path := renderFile(t, st, RenderOptions{SampleRate: 8000, GateSamples: 10, Gates: 9})

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	require.True(t, dec.IsValidFile())
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	require.Len(t, buf.Data, 90)

	var gates []uint16
	for g := 0; g < 9; g++ {
		gates = append(gates, FromPCM(buf.Data[g*10], 16))
	}
	assert.Equal(t, []uint16{0, 0, 128, 256, 512, 640, 768, 896, 0}, gates)
}

func TestRenderLeavesCallerState(t *testing.T) {
	st := testState()
	renderFile(t, st, RenderOptions{GateSamples: 1, Gates: 3})
	assert.Equal(t, uint8(sequencer.NumSteps-1), st.Status.CurrStepIdx)
}

func TestImportErrors(t *testing.T) {
	_, err := Import(bytes.NewReader(nil), "x.flac")
	assert.ErrorContains(t, err, "unsupported audio format")

	_, err = Import(bytes.NewReader([]byte("not a wav file at all")), "x.wav")
	assert.Error(t, err)

	st := testState()
	path := renderFile(t, st, RenderOptions{GateSamples: 1, Gates: 2})
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = Import(f, path)
	assert.ErrorContains(t, err, "2 samples, need at least 8")
}
