package midi

import (
	"context"
	"time"

	"go-stepsampler/debug"
)

// PortEvent is emitted when the watched ports connect or disconnect
type PortEvent struct {
	Type PortEventType
	In   string
	Out  string
}

type PortEventType int

const (
	PortsConnected PortEventType = iota
	PortsDisconnected
)

// Watcher keeps a Panel connected to the named ports as controllers are
// plugged in and out.
type Watcher struct {
	panel    *Panel
	inName   string
	outName  string
	pollRate time.Duration
	timeout  time.Duration
	scan     func(timeout time.Duration) (Ports, error)
	events   chan PortEvent
}

// NewWatcher watches for ports whose names contain inName / outName
func NewWatcher(p *Panel, inName, outName string) *Watcher {
	return &Watcher{
		panel:    p,
		inName:   inName,
		outName:  outName,
		pollRate: time.Second,
		timeout:  3 * time.Second,
		scan:     Scan,
		events:   make(chan PortEvent, 16),
	}
}

// Events returns a channel of connect/disconnect events
func (w *Watcher) Events() <-chan PortEvent {
	return w.events
}

// Run polls until ctx is cancelled (blocking - run in goroutine)
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollRate)
	defer ticker.Stop()

	// Initial scan
	w.poll()

	for {
		select {
		case <-ctx.Done():
			w.panel.Disconnect()
			close(w.events)
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

func (w *Watcher) poll() {
	ports, err := w.scan(w.timeout)
	if err != nil {
		// CoreMIDI is hung - skip this scan
		debug.LogEvery(10, "midi", "scan: %v", err)
		return
	}

	in, _ := ports.FindIn(w.inName)
	out, _ := ports.FindOut(w.outName)

	curIn, curOut := w.panel.Connected()
	if portName(in) == curIn && portName(out) == curOut {
		return
	}

	if in == nil && out == nil {
		w.panel.Disconnect()
		debug.Log("midi", "disconnected")
		w.emit(PortEvent{Type: PortsDisconnected, In: curIn, Out: curOut})
		return
	}

	if err := w.panel.Connect(in, out); err != nil {
		debug.Log("midi", "connect: %v", err)
		w.panel.Disconnect()
		return
	}
	in1, out1 := w.panel.Connected()
	debug.Log("midi", "connected in=%s out=%s", in1, out1)
	w.emit(PortEvent{Type: PortsConnected, In: in1, Out: out1})
}

func (w *Watcher) emit(ev PortEvent) {
	select {
	case w.events <- ev:
	default:
	}
}
