package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-stepsampler/hw"
	"go-stepsampler/sequencer"
)

type fakeDAC struct {
	mu     sync.Mutex
	writes []uint16
}

func (f *fakeDAC) Write(v uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, v)
}

func (f *fakeDAC) Writes() []uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint16(nil), f.writes...)
}

type fakeSaver struct {
	saved []sequencer.State
}

func (f *fakeSaver) Save(st *sequencer.State) {
	st.Status.Saved = true
	f.saved = append(f.saved, *st)
}

type fixture struct {
	d      *Dispatcher
	engine *sequencer.Engine
	panel  *hw.Panel
	dac    *fakeDAC
	saver  *fakeSaver
	adcVal uint16
}

func newFixture() *fixture {
	f := &fixture{
		panel: hw.NewPanel(),
		dac:   &fakeDAC{},
		saver: &fakeSaver{},
	}
	f.engine = sequencer.NewEngine(sequencer.NewState(), f.panel)
	f.d = New(f.engine, hw.FuncADC(func() uint16 { return f.adcVal }), f.dac, f.saver)
	return f
}

func TestGateFreeRunPassesThrough(t *testing.T) {
	f := newFixture()
	f.adcVal = 300

	f.d.Handle(Gate, 0)

	assert.Equal(t, []uint16{300}, f.dac.Writes())
	snap := f.engine.Snapshot()
	assert.Equal(t, uint8(1), snap.Status.CurrStepIdx)
	assert.Equal(t, uint16(0), snap.Patterns[0].Steps[1].Value, "record is off")
}

func TestGateFreeRunRecords(t *testing.T) {
	f := newFixture()
	f.d.Handle(Record, 0)

	for _, v := range []uint16{100, 200, 300} {
		f.adcVal = v
		f.d.Handle(Gate, 0)
	}

	snap := f.engine.Snapshot()
	assert.Equal(t, uint16(100), snap.Patterns[0].Steps[1].Value)
	assert.Equal(t, uint16(200), snap.Patterns[0].Steps[2].Value)
	assert.Equal(t, uint16(300), snap.Patterns[0].Steps[3].Value)
	assert.Equal(t, []uint16{100, 200, 300}, f.dac.Writes())
}

func TestGatePlayback(t *testing.T) {
	f := newFixture()
	f.engine.Do(func(st *sequencer.State) {
		st.Patterns[0].Steps[1].Value = 11
		st.Patterns[0].Steps[2].Value = 22
	})
	f.d.Handle(Playback, 0)
	require.False(t, f.engine.FreeRun())

	f.adcVal = 999
	f.d.Handle(Gate, 0)
	f.d.Handle(Gate, 0)

	assert.Equal(t, []uint16{11, 22}, f.dac.Writes())
	assert.Equal(t, [8]bool{2: true}, f.panel.State().Steps)
}

func TestStepButton(t *testing.T) {
	f := newFixture()

	f.d.Handle(StepButton, 0x04)
	f.d.Handle(StepButton, 0x06)

	snap := f.engine.Snapshot()
	assert.Equal(t, uint8(1), snap.Patterns[0].Steps[2].Repeat)
	assert.Equal(t, uint8(0), snap.Patterns[0].Steps[1].Repeat, "multi-bit mask ignored")
}

func TestEncoderSelectsPattern(t *testing.T) {
	f := newFixture()
	f.d.Handle(Record, 0)

	f.d.Handle(Encoder, sequencer.RotaryRest)
	f.d.Handle(Encoder, sequencer.RotaryLineB)

	snap := f.engine.Snapshot()
	assert.Equal(t, uint8(1), snap.Status.CurrPatternIdx)
	assert.False(t, snap.Status.RecordEnable)
	assert.False(t, f.panel.State().Record)
}

func TestSaveRunsUnderEngineLock(t *testing.T) {
	f := newFixture()
	f.d.Handle(StepButton, 0x01)

	f.d.Handle(Save, 0)

	require.Len(t, f.saver.saved, 1)
	assert.Equal(t, uint8(1), f.saver.saved[0].Patterns[0].Steps[0].Repeat)
	assert.True(t, f.engine.Snapshot().Status.Saved)
}

func TestSaveWithoutSaver(t *testing.T) {
	engine := sequencer.NewEngine(sequencer.NewState(), nil)
	d := New(engine, hw.FuncADC(func() uint16 { return 0 }), hw.FuncDAC(func(uint16) {}), nil)

	assert.NotPanics(t, func() { d.Handle(Save, 0) })
	assert.False(t, engine.Snapshot().Status.Saved)
}

func TestModeToggles(t *testing.T) {
	f := newFixture()
	f.d.Handle(Mode, 0)
	assert.Equal(t, sequencer.Backward, f.engine.Snapshot().Status.Mode)

	f.d.Handle(Gate, 0)
	assert.Equal(t, uint8(7), f.engine.Snapshot().Status.CurrStepIdx)
}

func TestHandleClearsAndNotifies(t *testing.T) {
	f := newFixture()
	var cleared []Trigger
	f.d.SetClearer(func(t Trigger) { cleared = append(cleared, t) })

	f.d.Handle(Gate, 0)
	f.d.Handle(Record, 0)
	f.d.Handle(Trigger(42), 0)

	assert.Equal(t, []Trigger{Gate, Record}, cleared)
	assert.Equal(t, uint64(1), f.d.Handled(Gate))
	assert.Equal(t, uint64(1), f.d.Handled(Record))

	select {
	case <-f.d.UpdateChan:
	default:
		t.Fatal("expected an update notification")
	}
}

func TestPostCoalescesPendingEdge(t *testing.T) {
	f := newFixture()

	assert.True(t, f.d.PostGate())
	assert.False(t, f.d.PostGate())
	assert.False(t, f.d.PostGate())
	assert.Equal(t, uint64(2), f.d.Dropped(Gate))

	assert.True(t, f.d.PostStepButtons(0x01))
	assert.False(t, f.d.PostStepButtons(0x02))

	for i := 0; i < encoderQueue; i++ {
		assert.True(t, f.d.PostEncoder(sequencer.RotaryRest))
	}
	assert.False(t, f.d.PostEncoder(sequencer.RotaryRest))
}

func TestRunHandlesPostedEvents(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.d.Run(ctx)
		close(done)
	}()

	require.True(t, f.d.PostEncoder(sequencer.RotaryRest))
	require.True(t, f.d.PostEncoder(sequencer.RotaryLineB))
	require.Eventually(t, func() bool {
		return f.d.Handled(Encoder) == 2
	}, time.Second, time.Millisecond)
	assert.Equal(t, uint8(1), f.engine.Snapshot().Status.CurrPatternIdx)

	for i := uint64(1); i <= 3; i++ {
		require.True(t, f.d.PostGate())
		require.Eventually(t, func() bool {
			return f.d.Handled(Gate) == i
		}, time.Second, time.Millisecond)
	}
	assert.Equal(t, uint8(3), f.engine.Snapshot().Status.CurrStepIdx)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestTriggerString(t *testing.T) {
	assert.Equal(t, "gate", Gate.String())
	assert.Equal(t, "encoder", Encoder.String())
	assert.Equal(t, "trigger(9)", Trigger(9).String())
}
