package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go-stepsampler/patchfile"
)

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Save a YAML patch into the flash image",
		Long: `Read a YAML patch, check it against the sequencer bounds and save it as
the flash context. The next run restores it.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runImport(opts *RootOptions, path string, cmd *cobra.Command) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	defer f.Close()

	st, err := patchfile.Import(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	s, err := openStore(opts.Config, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	s.ctx.Save(st)
	fmt.Fprintf(cmd.OutOrStdout(), "imported %s into %s\n", path, opts.Config.FlashImage)
	return s.Close()
}
