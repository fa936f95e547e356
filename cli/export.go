package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"go-stepsampler/patchfile"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Write the saved context as a YAML patch",
		Long: `Write the saved context as a YAML patch file, or to stdout when no file
is given. An image without a saved context exports the factory defaults.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runExport(rootOpts, path, cmd)
		},
	}

	return cmd
}

func runExport(opts *RootOptions, path string, cmd *cobra.Command) error {
	s, err := openStore(opts.Config, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	st, saved, err := s.restore()
	if err != nil {
		return err
	}
	if !saved {
		fmt.Fprintln(cmd.ErrOrStderr(), "no saved context, exporting factory defaults")
	}

	var w io.Writer = cmd.OutOrStdout()
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		defer f.Close()
		w = f
	}

	return patchfile.Export(w, st)
}
