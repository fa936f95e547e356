package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go-stepsampler/cvwav"
	"go-stepsampler/sequencer"
)

// NewSampleCommand creates the sample command.
func NewSampleCommand(rootOpts *RootOptions) *cobra.Command {
	var pattern int

	cmd := &cobra.Command{
		Use:   "sample <audio-file>",
		Short: "Sample a WAV or MP3 file into a pattern's step values",
		Long: `Split the first channel of a WAV or MP3 file into eight equal slices and
store each slice's mean level as a step value, then save the context.
Step enables and repeats are kept.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSample(rootOpts, args[0], pattern, cmd)
		},
	}

	cmd.Flags().IntVarP(&pattern, "pattern", "p", 0, "pattern 1-8 (default: the saved current pattern)")

	return cmd
}

func runSample(opts *RootOptions, path string, pattern int, cmd *cobra.Command) error {
	if pattern < 0 || pattern > sequencer.NumPatterns {
		return fmt.Errorf("pattern %d out of range 1-%d", pattern, sequencer.NumPatterns)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("sample: %w", err)
	}
	defer f.Close()

	values, err := cvwav.Import(f, path)
	if err != nil {
		return err
	}

	s, err := openStore(opts.Config, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	st, _, err := s.restore()
	if err != nil {
		return err
	}

	idx := int(st.Status.CurrPatternIdx)
	if pattern > 0 {
		idx = pattern - 1
	}
	for i, v := range values {
		st.Patterns[idx].Steps[i].Value = v
	}
	s.ctx.Save(st)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "pattern %d:", idx+1)
	for _, v := range values {
		fmt.Fprintf(out, " %d", v)
	}
	fmt.Fprintln(out)

	return s.Close()
}
