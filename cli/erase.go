package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"go-stepsampler/persist"
)

// NewEraseCommand creates the erase command.
func NewEraseCommand(rootOpts *RootOptions) *cobra.Command {
	var yes, contextOnly bool

	cmd := &cobra.Command{
		Use:   "erase",
		Short: "Erase the flash image",
		Long: `Erase the whole flash image, or only the sector holding the saved
context with --context. Either way the next run starts from factory defaults.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to erase %s without --yes", rootOpts.Config.FlashImage)
			}
			return runErase(rootOpts, contextOnly, cmd)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the erase")
	cmd.Flags().BoolVar(&contextOnly, "context", false, "erase only the saved context sector")

	return cmd
}

func runErase(opts *RootOptions, contextOnly bool, cmd *cobra.Command) error {
	s, err := openStore(opts.Config, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	if contextOnly {
		s.dev.SectorErase(persist.StatusAddr)
		fmt.Fprintf(cmd.OutOrStdout(), "erased context sector of %s\n", opts.Config.FlashImage)
	} else {
		s.dev.ChipErase()
		fmt.Fprintf(cmd.OutOrStdout(), "erased %s\n", opts.Config.FlashImage)
	}

	return s.Close()
}
