package midi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// ErrScanTimeout is returned when the MIDI backend does not answer
var ErrScanTimeout = errors.New("midi port scan timed out")

// Ports is a snapshot of the available MIDI ports
type Ports struct {
	Ins  []drivers.In
	Outs []drivers.Out
}

// Scan lists ports, giving up after timeout (CoreMIDI can hang).
// A driver must be registered by the binary, e.g. by importing rtmididrv.
func Scan(timeout time.Duration) (Ports, error) {
	ch := make(chan Ports, 1)
	go func() {
		ch <- Ports{Ins: gomidi.GetInPorts(), Outs: gomidi.GetOutPorts()}
	}()

	select {
	case p := <-ch:
		return p, nil
	case <-time.After(timeout):
		return Ports{}, ErrScanTimeout
	}
}

// InNames returns the input port names
func (p Ports) InNames() []string {
	names := make([]string, len(p.Ins))
	for i, in := range p.Ins {
		names[i] = in.String()
	}
	return names
}

// OutNames returns the output port names
func (p Ports) OutNames() []string {
	names := make([]string, len(p.Outs))
	for i, out := range p.Outs {
		names[i] = out.String()
	}
	return names
}

// FindIn returns the first input whose name contains name (case-insensitive).
// An empty name matches nothing and returns nil without error.
func (p Ports) FindIn(name string) (drivers.In, error) {
	if name == "" {
		return nil, nil
	}
	if i := match(p.InNames(), name); i >= 0 {
		return p.Ins[i], nil
	}
	return nil, fmt.Errorf("no MIDI input matching %q", name)
}

// FindOut returns the first output whose name contains name (case-insensitive)
func (p Ports) FindOut(name string) (drivers.Out, error) {
	if name == "" {
		return nil, nil
	}
	if i := match(p.OutNames(), name); i >= 0 {
		return p.Outs[i], nil
	}
	return nil, fmt.Errorf("no MIDI output matching %q", name)
}

// match returns the index of the first name containing want, or -1
func match(names []string, want string) int {
	want = strings.ToLower(want)
	for i, n := range names {
		if strings.Contains(strings.ToLower(n), want) {
			return i
		}
	}
	return -1
}

// CloseDriver releases the MIDI backend
func CloseDriver() {
	gomidi.CloseDriver()
}
