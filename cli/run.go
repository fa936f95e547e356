package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"go-stepsampler/config"
	"go-stepsampler/debug"
	"go-stepsampler/dispatch"
	"go-stepsampler/hw"
	"go-stepsampler/midi"
	"go-stepsampler/sequencer"
	"go-stepsampler/theme"
	"go-stepsampler/tui"
)

type runOptions struct {
	inPort   string
	outPort  string
	headless bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sequencer",
		Long: `Restore the saved context and run the sequencer with the terminal front
panel. A MIDI controller named by --in/--out (or the config) mirrors the panel:
it sends gates, buttons, encoder turns and CV, and receives the step LEDs and
the DAC output as pitch bend. The controller can be plugged in at any time.

A corrupt saved context aborts the run; use "erase --context" to reset it.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.inPort, "in", "", "MIDI input port name substring (overrides config)")
	cmd.Flags().StringVar(&opts.outPort, "out", "", "MIDI output port name substring (overrides config)")
	cmd.Flags().BoolVar(&opts.headless, "headless", false, "run without the terminal panel until interrupted")

	return cmd
}

func runRun(rootOpts *RootOptions, opts *runOptions, cmd *cobra.Command) error {
	cfg := rootOpts.Config
	if opts.inPort != "" {
		cfg.MIDI.InPort = opts.inPort
	}
	if opts.outPort != "" {
		cfg.MIDI.OutPort = opts.outPort
	}

	// The TUI owns the terminal; console diagnostics go to the debug log
	console := debug.Writer("console")
	if opts.headless {
		console = cmd.ErrOrStderr()
	}

	s, err := openStore(cfg, console)
	if err != nil {
		return err
	}
	defer s.Close()

	st, saved, err := s.restore()
	if err != nil {
		return err
	}
	debug.Log("cli", "context restored, saved=%v", saved)

	th, err := loadTheme(cfg.UI.Palette)
	if err != nil {
		return err
	}

	mp, watcher, err := newMIDIPanel(cfg.MIDI)
	if err != nil {
		return err
	}

	// Front panel: terminal LEDs always, MIDI mirror when connected
	panel := hw.NewPanel()
	leds := hw.MultiIndicators{panel}
	cv := &midi.CVInput{}
	var adc hw.ADC = cv
	// The board's DAC has no bus here; its frames go to the debug log
	dac := hw.MultiDAC{hw.NewMCP4922(&hw.LogBus{Category: "dac"})}
	if mp != nil {
		defer mp.Close()
		leds = append(leds, mp)
		dac = append(dac, mp)
		adc, cv = mp, mp.CV
	}

	engine := sequencer.NewEngine(st, leds)
	engine.SetConsole(console)
	d := dispatch.New(engine, adc, dac, s.ctx)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	if mp != nil {
		if err := mp.Listen(d); err != nil {
			return err
		}
		go mp.Run(ctx)
		go watcher.Run(ctx)
		go func() {
			// a controller plugged in late gets the current LEDs
			for ev := range watcher.Events() {
				if ev.Type == midi.PortsConnected {
					engine.SyncIndicators()
				}
			}
		}()
	}

	engine.SyncIndicators()

	if opts.headless {
		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.OutOrStdout(), "stepsampler running on %s, ctrl+c to stop\n", cfg.FlashImage)
		<-sigCtx.Done()
	} else {
		m := tui.NewModel(engine, d, panel, cv, th)
		m.MIDI = mp
		p := tea.NewProgram(m, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("tui: %w", err)
		}
	}

	// Let an in-flight save finish before the image closes
	cancel()
	<-done

	return s.Close()
}

// loadTheme builds the theme from a .gpl palette, or the built-in one
func loadTheme(path string) (*theme.Theme, error) {
	if path == "" {
		return theme.New(nil), nil
	}
	palette, err := theme.LoadGPL(path)
	if err != nil {
		return nil, fmt.Errorf("palette: %w", err)
	}
	return theme.New(palette), nil
}

// newMIDIPanel creates the MIDI panel and its port watcher. No ports
// configured means no MIDI panel and no scanning.
func newMIDIPanel(m config.MIDIConfig) (*midi.Panel, *midi.Watcher, error) {
	if m.InPort == "" && m.OutPort == "" {
		return nil, nil, nil
	}
	p, err := midi.NewPanel(mappingFrom(m), nil, nil)
	if err != nil {
		return nil, nil, err
	}
	return p, midi.NewWatcher(p, m.InPort, m.OutPort), nil
}

// mappingFrom converts the validated config numbers into a MIDI mapping
func mappingFrom(m config.MIDIConfig) midi.Mapping {
	return midi.Mapping{
		GateNote:     uint8(m.GateNote),
		ClockDivider: m.ClockDivider,
		StepNoteBase: uint8(m.StepNoteBase),
		EncoderCC:    uint8(m.EncoderCC),
		RecordCC:     uint8(m.RecordCC),
		PlaybackCC:   uint8(m.PlaybackCC),
		SaveCC:       uint8(m.SaveCC),
		ModeCC:       uint8(m.ModeCC),
		OutChannel:   uint8(m.OutChannel),
	}
}
