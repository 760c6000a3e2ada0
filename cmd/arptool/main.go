package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"future-arp/config"
	"future-arp/debug"
	"future-arp/host"
	"future-arp/midi"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	var err error
	switch os.Args[1] {
	case "list":
		err = listPorts()
	case "watch":
		err = watchPorts()
	case "render":
		err = render(os.Args[2:])
	case "monitor":
		err = monitor(os.Args[2:])
	default:
		usage()
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("futureArp tools")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list                                     - List all MIDI ports")
	fmt.Println("  watch                                    - Poll for port changes")
	fmt.Println("  render <in.mid> <out.mid> [rate] [len]   - Run a MIDI file through the arpeggiator")
	fmt.Println("  monitor [port]                           - Print incoming events as the engine sees them")
}

func listPorts() error {
	fmt.Printf("(waiting up to %v...)\n", midi.ScanTimeout)
	ports, err := midi.ListPorts(midi.ScanTimeout)
	if err != nil {
		return fmt.Errorf("%w (fix: sudo killall coreaudiod midiserver)", err)
	}

	fmt.Println("=== MIDI Input Ports ===")
	for i, name := range ports.InNames() {
		fmt.Printf("  %d: %s\n", i, name)
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, name := range ports.OutNames() {
		fmt.Printf("  %d: %s\n", i, name)
	}
	return nil
}

func watchPorts() error {
	fmt.Println("Polling for port changes every 2 seconds. Ctrl+C to exit.")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var lastIn, lastOut string
	for {
		ports, err := midi.ListPorts(midi.ScanTimeout)
		if err != nil {
			fmt.Printf("[%s] %v\n", time.Now().Format("15:04:05"), err)
		} else {
			currentIn := strings.Join(ports.InNames(), ",")
			currentOut := strings.Join(ports.OutNames(), ",")
			if currentIn != lastIn || currentOut != lastOut {
				fmt.Printf("\n[%s] Port change detected\n", time.Now().Format("15:04:05"))
				fmt.Printf("  Inputs: %v\n", ports.InNames())
				fmt.Printf("  Outputs: %v\n", ports.OutNames())
				lastIn, lastOut = currentIn, currentOut
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func render(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: render <in.mid> <out.mid> [rate] [noteLength]")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	opts := host.RenderOptions{
		SampleRate:       cfg.Block.SampleRate,
		BlockFrames:      cfg.Block.Frames,
		Rate:             cfg.Params.Rate,
		NoteLength:       cfg.Params.NoteLength,
		NormalizeNoteOff: cfg.NormalizeNoteOff,
	}
	if len(args) > 2 {
		if opts.Rate, err = strconv.ParseFloat(args[2], 64); err != nil {
			return fmt.Errorf("bad rate %q: %w", args[2], err)
		}
	}
	if len(args) > 3 {
		if opts.NoteLength, err = strconv.ParseFloat(args[3], 64); err != nil {
			return fmt.Errorf("bad note length %q: %w", args[3], err)
		}
	}

	in, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(args[1])
	if err != nil {
		return err
	}

	stats, err := host.Render(in, out, opts)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", args[0], err)
	}

	fmt.Printf("%d blocks, %d events in, %d events out -> %s\n", stats.Blocks, stats.EventsIn, stats.EventsOut, args[1])
	return nil
}

func monitor(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	want := cfg.Input.Name
	if len(args) > 0 {
		want = args[0]
	}
	if want == "" {
		return fmt.Errorf("no input port: pass one or set input.name in the config")
	}

	if cfg.Debug {
		if err := debug.Enable(); err == nil {
			defer debug.Disable()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pm := midi.NewPortManager(want, "")
	go pm.Run(ctx)

	fmt.Printf("Waiting for %q. Ctrl+C to exit.\n", want)
	for {
		select {
		case <-ctx.Done():
			if n := pm.Dropped(); n > 0 {
				fmt.Printf("%d events dropped\n", n)
			}
			return nil
		case ev, ok := <-pm.Events():
			if !ok {
				return nil
			}
			state := "connected"
			if ev.Type == midi.DeviceDisconnected {
				state = "disconnected"
			}
			fmt.Printf("[%s] %s %s: %s\n", time.Now().Format("15:04:05"), ev.Dir, state, ev.Name)
		case ev := <-pm.Input():
			if cfg.NormalizeNoteOff {
				ev = ev.NormalizeNoteOff()
			}
			fmt.Printf("[%s] %s\n", time.Now().Format("15:04:05.000"), describe(ev))
		}
	}
}

func describe(ev midi.Event) string {
	switch ev.Type() {
	case midi.NoteOn:
		return fmt.Sprintf("ch%-2d note-on  %3d vel %3d", ev.Channel()+1, ev.Data1, ev.Data2)
	case midi.NoteOff:
		return fmt.Sprintf("ch%-2d note-off %3d vel %3d", ev.Channel()+1, ev.Data1, ev.Data2)
	case midi.CC:
		return fmt.Sprintf("ch%-2d cc        %3d val %3d", ev.Channel()+1, ev.Data1, ev.Data2)
	default:
		return fmt.Sprintf("ch%-2d 0x%02X      %3d     %3d", ev.Channel()+1, ev.Type(), ev.Data1, ev.Data2)
	}
}
