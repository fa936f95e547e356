package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-stepsampler/midi"
	"go-stepsampler/sequencer"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	arg := ""
	if len(os.Args) > 2 {
		arg = os.Args[2]
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "monitor":
		monitor(arg)
	case "leds":
		testLEDs(arg)
	case "poll":
		pollDevices()
	default:
		usage()
	}
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list           - List all MIDI ports")
	fmt.Println("  monitor <in>   - Print the panel triggers an input produces")
	fmt.Println("  leds <out>     - Chase the step LEDs and sweep the DAC bend")
	fmt.Println("  poll           - Poll for device changes")
}

func scan() (midi.Ports, bool) {
	ports, err := midi.Scan(3 * time.Second)
	if err != nil {
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return ports, false
	}
	return ports, true
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	ports, ok := scan()
	if !ok {
		return
	}
	for i, name := range ports.InNames() {
		fmt.Printf("  %d: %s\n", i, name)
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, name := range ports.OutNames() {
		fmt.Printf("  %d: %s\n", i, name)
	}
}

// printSink prints every trigger instead of posting it
type printSink struct{}

func (printSink) print(format string, args ...any) bool {
	fmt.Printf("[%s] %s\n", time.Now().Format("15:04:05.000"), fmt.Sprintf(format, args...))
	return true
}

func (s printSink) PostGate() bool                  { return s.print("gate") }
func (s printSink) PostStepButtons(mask uint8) bool { return s.print("step buttons %08b", mask) }
func (s printSink) PostEncoder(pos uint8) bool      { return s.print("encoder position %d", pos) }
func (s printSink) PostPlayback() bool              { return s.print("playback") }
func (s printSink) PostRecord() bool                { return s.print("record") }
func (s printSink) PostSave() bool                  { return s.print("save") }
func (s printSink) PostMode() bool                  { return s.print("mode") }

func monitor(name string) {
	ports, ok := scan()
	if !ok {
		return
	}
	in, err := ports.FindIn(name)
	if err != nil || in == nil {
		fmt.Printf("No input matching %q\n", name)
		return
	}

	cv := &midi.CVInput{}
	tr := midi.NewTranslator(midi.DefaultMapping(), printSink{}, cv)
	stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, timestampms int32) {
		if !tr.Translate(msg) {
			fmt.Printf("  unmapped: %s\n", msg)
			return
		}
		if msg.Type() == gomidi.PitchBendMsg {
			fmt.Printf("  cv in: %d\n", cv.Sample())
		}
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer stop()

	fmt.Printf("Listening on %s. Press Enter to stop...\n", in.String())
	fmt.Scanln()
}

func testLEDs(name string) {
	ports, ok := scan()
	if !ok {
		return
	}
	out, err := ports.FindOut(name)
	if err != nil || out == nil {
		fmt.Printf("No output matching %q\n", name)
		return
	}

	p, err := midi.NewPanel(midi.DefaultMapping(), nil, out)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	fmt.Println("Chasing step LEDs...")
	for i := 0; i < 2*sequencer.NumSteps; i++ {
		p.ClearSteps()
		p.SetStep(i % sequencer.NumSteps)
		p.Write(uint16(i * 0x0FFF / (2*sequencer.NumSteps - 1)))
		time.Sleep(150 * time.Millisecond)
	}

	p.SetRecord(true)
	p.SetPlayback(true)
	fmt.Println("Press Enter to clear...")
	fmt.Scanln()

	p.ClearSteps()
	p.SetRecord(false)
	p.SetPlayback(false)
	time.Sleep(100 * time.Millisecond)

	fmt.Printf("Done! %d messages sent\n", midi.SendCount())
}

func pollDevices() {
	fmt.Println("Polling for device changes every 2 seconds...")
	fmt.Println("Connect/disconnect a controller to test. Ctrl+C to exit.")

	lastIn := ""
	lastOut := ""

	for {
		ports, ok := scan()
		if !ok {
			return
		}
		inNames, outNames := ports.InNames(), ports.OutNames()

		currentIn := strings.Join(inNames, ",")
		currentOut := strings.Join(outNames, ",")

		if currentIn != lastIn || currentOut != lastOut {
			fmt.Printf("\n[%s] Device change detected!\n", time.Now().Format("15:04:05"))
			fmt.Printf("  Inputs: %v\n", inNames)
			fmt.Printf("  Outputs: %v\n", outNames)

			lastIn = currentIn
			lastOut = currentOut
		}

		time.Sleep(2 * time.Second)
	}
}
