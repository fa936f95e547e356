package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"go-stepsampler/flash"
	"go-stepsampler/persist"
)

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	var start, end uint32

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print a flash region one byte per line",
		Long: `Print the flash bytes in [start, end) as "0xADDRESS: 0xDATA" lines.

The default range covers the saved context: the pattern table and the status
block. Addresses accept 0x prefixes.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(rootOpts, start, end, cmd)
		},
	}

	cmd.Flags().Uint32Var(&start, "start", persist.PatternTableAddr, "first address")
	cmd.Flags().Uint32Var(&end, "end", persist.StatusAddr+persist.StatusSize, "end address (exclusive)")

	return cmd
}

func runDump(opts *RootOptions, start, end uint32, cmd *cobra.Command) error {
	if end > flash.Capacity {
		return fmt.Errorf("end 0x%06X beyond flash capacity 0x%06X", end, flash.Capacity)
	}
	if end < start {
		return fmt.Errorf("end 0x%06X before start 0x%06X", end, start)
	}

	s, err := openStore(opts.Config, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	return s.dev.Dump(cmd.OutOrStdout(), start, end)
}
