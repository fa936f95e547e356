// Package cli is the stepsampler command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"go-stepsampler/config"
	"go-stepsampler/debug"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string // empty: ~/.config/stepsampler/config.json
	FlashImage string // overrides config.FlashImage
	Debug      bool
	DebugLog   string

	// Config is loaded before any subcommand runs
	Config *config.Config
}

// NewRootCommand creates the root command for the stepsampler CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "stepsampler",
		Short: "stepsampler - 8 step CV sequencer and sampler",
		Long: `An 8 step, 8 pattern CV sequencer with a sample-and-hold input.

The sequencer context lives in an emulated SPI NOR flash image and survives
restarts. The front panel is the terminal, a MIDI controller, or both.`,
		SilenceErrors: true, // main prints the error
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.config/stepsampler/config.json)")
	cmd.PersistentFlags().StringVar(&opts.FlashImage, "flash", "", "flash image file (overrides config)")
	cmd.PersistentFlags().BoolVarP(&opts.Debug, "debug", "d", false, "write the debug log")
	cmd.PersistentFlags().StringVar(&opts.DebugLog, "debug-log", "", "debug log path (default ~/.config/stepsampler/debug.log)")

	// Add subcommands
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewEraseCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewSampleCommand(opts))

	return cmd
}

// load reads the config and applies flag overrides
func (o *RootOptions) load() error {
	var cfg *config.Config
	var err error
	if o.ConfigPath != "" {
		cfg, err = config.LoadFrom(o.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if o.FlashImage != "" {
		cfg.FlashImage = o.FlashImage
	}
	if o.Debug {
		cfg.Debug = true
	}
	if cfg.Debug {
		if err := debug.Enable(o.DebugLog); err != nil {
			return err
		}
	}

	o.Config = cfg
	debug.Log("cli", "config loaded, flash=%s", cfg.FlashImage)
	return nil
}
