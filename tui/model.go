package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-stepsampler/dispatch"
	"go-stepsampler/hw"
	"go-stepsampler/midi"
	"go-stepsampler/sequencer"
	"go-stepsampler/theme"
	"go-stepsampler/widgets"
)

// cvStep is how far one arrow press moves the keyboard CV
const cvStep = 32

type Model struct {
	Engine     *sequencer.Engine
	Dispatcher *dispatch.Dispatcher
	Panel      *hw.Panel
	CV         *midi.CVInput // keyboard stand-in for the CV jack (may be nil)
	MIDI       *midi.Panel   // connection status line (may be nil)
	Theme      *theme.Theme
	Title      string
	quitting   bool
}

type UpdateMsg struct{}

func NewModel(engine *sequencer.Engine, d *dispatch.Dispatcher, panel *hw.Panel, cv *midi.CVInput, th *theme.Theme) Model {
	if th == nil {
		th = theme.New(nil)
	}
	return Model{
		Engine:     engine,
		Dispatcher: d,
		Panel:      panel,
		CV:         cv,
		Theme:      th,
		Title:      "stepsampler",
	}
}

func ListenForUpdates(d *dispatch.Dispatcher) tea.Cmd {
	return func() tea.Msg {
		<-d.UpdateChan
		return UpdateMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return ListenForUpdates(m.Dispatcher)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case " ":
			m.Dispatcher.PostGate()

		case "1", "2", "3", "4", "5", "6", "7", "8":
			idx := msg.String()[0] - '1'
			m.Dispatcher.PostStepButtons(1 << idx)

		case "]":
			m.Dispatcher.PostEncoder(sequencer.RotaryRest)
			m.Dispatcher.PostEncoder(sequencer.RotaryLineB)

		case "[":
			m.Dispatcher.PostEncoder(sequencer.RotaryRest)
			m.Dispatcher.PostEncoder(sequencer.RotaryLineA)

		case "r":
			m.Dispatcher.PostRecord()

		case "p":
			m.Dispatcher.PostPlayback()

		case "s":
			m.Dispatcher.PostSave()

		case "m":
			m.Dispatcher.PostMode()

		case "up", "k":
			m.nudgeCV(cvStep)

		case "down", "j":
			m.nudgeCV(-cvStep)
		}

	case UpdateMsg:
		return m, ListenForUpdates(m.Dispatcher)
	}

	return m, nil
}

func (m Model) nudgeCV(delta int) {
	if m.CV == nil {
		return
	}
	v := max(int(m.CV.Sample())+delta, 0)
	m.CV.SetSample(uint16(v))
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	st := m.Engine.Snapshot()
	leds := m.Panel.State()
	th := m.Theme
	sym := th.Symbols

	// Styles
	headerStyle := lipgloss.NewStyle().Foreground(th.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(th.Muted())
	valueStyle := lipgloss.NewStyle().Foreground(th.FG())

	mode := "PLAYBACK"
	if st.Status.FreeRun {
		mode = "FREE-RUN"
	}
	rec := widgets.RenderLED(leds.Record, 'R', '-', th.Warning(), th.Muted())
	play := widgets.RenderLED(leds.Playback, 'F', '-', th.Success(), th.Muted())

	pat := st.Patterns[st.Status.CurrPatternIdx]
	header := headerStyle.Render(fmt.Sprintf("%s  %s  pattern %d/%d  %s  len:%d",
		m.Title, mode, st.Status.CurrPatternIdx+1, sequencer.NumPatterns, st.Status.Mode, pat.SeqLength))

	// Step rows: number, state, LED, repeat, value
	var nums, states, lights, repeats, values []string
	for i, s := range pat.Steps {
		nums = append(nums, dimStyle.Render(fmt.Sprintf("%d", i+1)))

		switch {
		case !s.Enabled:
			states = append(states, dimStyle.Render(string(sym.StepOff)))
		case i == int(st.Status.CurrStepIdx):
			states = append(states, lipgloss.NewStyle().Foreground(th.Active()).Render(string(sym.StepPlayhead)))
		default:
			states = append(states, valueStyle.Render(string(sym.StepOn)))
		}

		lights = append(lights, widgets.RenderLED(leds.Steps[i], sym.LEDOn, sym.LEDOff, th.Success(), th.Muted()))

		rep := ""
		if s.Repeat > 0 {
			rep = fmt.Sprintf("x%d", s.Repeat+1)
		}
		repeats = append(repeats, dimStyle.Render(rep))

		norm := float64(s.Value) / sequencer.MaxValue
		values = append(values, lipgloss.NewStyle().Foreground(th.Color(norm)).
			Render(string(widgets.Spark(int(s.Value), sequencer.MaxValue))))
	}

	const cell = 4
	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("  ")
	out.WriteString(rec)
	out.WriteString(play)
	out.WriteString("\n\n")
	for _, row := range [][]string{nums, states, lights, repeats, values} {
		out.WriteString(widgets.RenderCells(row, cell))
		out.WriteString("\n")
	}

	if m.CV != nil {
		out.WriteString("\n")
		out.WriteString(valueStyle.Render(fmt.Sprintf("cv in: %4d", m.CV.Sample())))
		out.WriteString("\n")
	}

	if m.MIDI != nil {
		in, outPort := m.MIDI.Connected()
		out.WriteString(dimStyle.Render(fmt.Sprintf("midi in: %s  out: %s", in, outPort)))
		out.WriteString("\n")
	}

	out.WriteString("\n")
	out.WriteString(dimStyle.Render(widgets.RenderKeyLine(Keys)))

	return out.String()
}

// Keys lists the front panel bindings
var Keys = []widgets.KeyBinding{
	{Key: "space", Desc: "gate"},
	{Key: "1-8", Desc: "step"},
	{Key: "[ ]", Desc: "pattern"},
	{Key: "r", Desc: "record"},
	{Key: "p", Desc: "playback"},
	{Key: "m", Desc: "mode"},
	{Key: "s", Desc: "save"},
	{Key: "↑↓", Desc: "cv"},
	{Key: "q", Desc: "quit"},
}
