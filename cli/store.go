package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go-stepsampler/config"
	"go-stepsampler/flash"
	"go-stepsampler/persist"
	"go-stepsampler/sequencer"
)

// store is an opened flash image with the context store on top
type store struct {
	chip *flash.Chip
	dev  *flash.Device
	ctx  *persist.Context
}

// openStore opens (or creates) the configured flash image. console receives
// the save diagnostics.
func openStore(cfg *config.Config, console io.Writer) (*store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.FlashImage), 0755); err != nil {
		return nil, fmt.Errorf("flash image dir: %w", err)
	}

	chip, err := flash.OpenChip(cfg.FlashImage)
	if err != nil {
		return nil, err
	}
	chip.BusyPolls = cfg.BusyPolls

	dev := flash.New(chip)
	dev.Init()

	return &store{
		chip: chip,
		dev:  dev,
		ctx:  persist.New(dev, console),
	}, nil
}

// restore loads the saved context, or factory defaults if none was saved
func (s *store) restore() (*sequencer.State, bool, error) {
	st := sequencer.NewState()
	saved, err := s.ctx.Restore(st)
	if err != nil {
		return nil, false, fmt.Errorf("restore: %w", err)
	}
	return st, saved, nil
}

// Close releases the image and reports any write-through failure
func (s *store) Close() error {
	err := s.chip.Err()
	if cerr := s.chip.Close(); err == nil {
		err = cerr
	}
	return err
}
