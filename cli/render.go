package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go-stepsampler/cvwav"
	"go-stepsampler/sequencer"
)

type renderOptions struct {
	output      string
	gates       int
	rate        int
	gateSamples int
	pattern     int
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the saved pattern's CV output to a WAV file",
		Long: `Play a pattern of the saved context for a number of gates and write the
stepped DAC output as a mono 16-bit WAV file. The flash image is not changed.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "stepsampler.wav", "output file")
	cmd.Flags().IntVar(&opts.gates, "gates", 2*sequencer.NumSteps, "gates to render")
	cmd.Flags().IntVar(&opts.rate, "rate", cvwav.DefaultSampleRate, "sample rate in Hz")
	cmd.Flags().IntVar(&opts.gateSamples, "gate-samples", cvwav.DefaultGateSamples, "samples held per gate")
	cmd.Flags().IntVarP(&opts.pattern, "pattern", "p", 0, "pattern 1-8 (default: the saved current pattern)")

	return cmd
}

func runRender(rootOpts *RootOptions, opts *renderOptions, cmd *cobra.Command) error {
	if opts.pattern < 0 || opts.pattern > sequencer.NumPatterns {
		return fmt.Errorf("pattern %d out of range 1-%d", opts.pattern, sequencer.NumPatterns)
	}

	s, err := openStore(rootOpts.Config, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	st, _, err := s.restore()
	if err != nil {
		return err
	}
	if opts.pattern > 0 {
		st.Status.CurrPatternIdx = uint8(opts.pattern - 1)
		st.Status.CurrStepIdx = 0
	}

	f, err := os.Create(opts.output)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	defer f.Close()

	err = cvwav.Render(f, *st, cvwav.RenderOptions{
		SampleRate:  opts.rate,
		GateSamples: opts.gateSamples,
		Gates:       opts.gates,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "rendered pattern %d, %d gates to %s\n",
		st.Status.CurrPatternIdx+1, opts.gates, opts.output)
	return nil
}
