// Package patchfile exports and imports the sequencer state as YAML, for
// moving patterns between machines outside the flash image.
package patchfile

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"go-stepsampler/sequencer"
)

// Version is the current document version
const Version = 1

// ErrVersion is returned for documents written by an unknown version
var ErrVersion = errors.New("unsupported patch version")

// Document is the on-disk form
type Document struct {
	Version         int `yaml:"version"`
	sequencer.State `yaml:",inline"`
}

// Export writes st as a YAML document
func Export(w io.Writer, st *sequencer.State) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Document{Version: Version, State: *st}); err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	return enc.Close()
}

// Import reads a YAML document. Unknown fields are rejected, step counters
// restart at their repeat count and the result is validated.
func Import(r io.Reader) (*sequencer.State, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	if doc.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, doc.Version)
	}

	st := doc.State
	for p := range st.Patterns {
		for i := range st.Patterns[p].Steps {
			s := &st.Patterns[p].Steps[i]
			s.Counter = s.Repeat
		}
	}
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("invalid patch: %w", err)
	}
	return &st, nil
}
