// Package host drives the arpeggiator engine: live, at a fixed block period
// against MIDI ports, or offline over a Standard MIDI File.
package host

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"future-arp/arp"
	"future-arp/config"
	"future-arp/debug"
	"future-arp/midi"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// Sender writes one MIDI message to an output
type Sender func(gomidi.Message) error

// DefaultMaxBlockEvents bounds the input consumed in a single block
const DefaultMaxBlockEvents = 256

// UI refresh rate
const uiFPS = 30

// Options configures a Runner
type Options struct {
	Block            config.BlockConfig
	Controls         config.ControlsConfig
	NormalizeNoteOff bool
	MaxBlockEvents   int // 0 = DefaultMaxBlockEvents
}

// OptionsFromConfig builds runner options from the loaded config
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Block:            cfg.Block,
		Controls:         cfg.Controls,
		NormalizeNoteOff: cfg.NormalizeNoteOff,
	}
}

// Stats are cumulative runner counters
type Stats struct {
	Blocks     uint64
	EventsIn   uint64
	EventsOut  uint64
	Deferred   uint64 // blocks that left input waiting for the next block
	SendErrors uint64
}

// Snapshot is the gate view published for the UI after each block
type Snapshot struct {
	Gates [arp.NumPitches]bool // sounding
	Armed [arp.NumPitches]bool // held
	Held  int
}

// Runner feeds live input to the engine once per block and sends the result.
// All buffers are allocated up front; a block only touches them.
type Runner struct {
	plugin *arp.Plugin
	input  <-chan midi.Event
	send   Sender
	opts   Options

	in  []midi.Event
	out []midi.Event

	blocks     atomic.Uint64
	eventsIn   atomic.Uint64
	eventsOut  atomic.Uint64
	deferred   atomic.Uint64
	sendErrors atomic.Uint64

	snapMu sync.Mutex
	snap   Snapshot

	// Notify TUI of updates
	UpdateChan chan struct{}
}

// NewRunner creates a runner for plugin reading from input and writing to
// send. A nil send discards output.
func NewRunner(plugin *arp.Plugin, input <-chan midi.Event, send Sender, opts Options) *Runner {
	if opts.MaxBlockEvents <= 0 {
		opts.MaxBlockEvents = DefaultMaxBlockEvents
	}
	if send == nil {
		send = func(gomidi.Message) error { return nil }
	}
	plugin.Activate()
	return &Runner{
		plugin:     plugin,
		input:      input,
		send:       send,
		opts:       opts,
		in:         make([]midi.Event, 0, opts.MaxBlockEvents),
		out:        make([]midi.Event, 0, arp.OutputCapacity(opts.MaxBlockEvents)),
		UpdateChan: make(chan struct{}, 1),
	}
}

// Run processes one block per period until ctx is cancelled, then releases
// every open gate (blocking - run in goroutine)
func (r *Runner) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	period := r.opts.Block.Period()
	if period <= 0 {
		period = config.DefaultConfig().Block.Period()
	}
	debug.Log("runner", "start: period=%v frames=%d rate=%d", period, r.opts.Block.Frames, r.opts.Block.SampleRate)

	ticker := time.NewTicker(period)
	uiTicker := time.NewTicker(time.Second / uiFPS)
	defer ticker.Stop()
	defer uiTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			n := r.release()
			debug.Log("runner", "stop: released %d notes after %d blocks", n, r.blocks.Load())
			r.notify()
			return
		case <-ticker.C:
			r.Step()
		case <-uiTicker.C:
			r.notify()
		}
	}
}

// Step runs exactly one block: drain pending input, process, send
func (r *Runner) Step() {
	in := r.drain(r.in[:0])
	out := r.plugin.Run(nil, nil, r.opts.Block.Frames, in, r.out[:0])

	for _, ev := range out {
		if err := r.send(ev.Message()); err != nil {
			r.sendErrors.Add(1)
			debug.LogEvery(100, "runner", "send: %v", err)
		}
	}

	r.blocks.Add(1)
	r.eventsIn.Add(uint64(len(in)))
	r.eventsOut.Add(uint64(len(out)))
	r.publish()
}

// drain takes at most MaxBlockEvents pending events without blocking.
// Mapped CCs become parameter changes and never reach the engine.
func (r *Runner) drain(in []midi.Event) []midi.Event {
	for len(in) < r.opts.MaxBlockEvents {
		select {
		case ev := <-r.input:
			if r.automate(ev) {
				continue
			}
			if r.opts.NormalizeNoteOff {
				ev = ev.NormalizeNoteOff()
			}
			in = append(in, ev)
		default:
			return in
		}
	}
	if len(r.input) > 0 {
		r.deferred.Add(1)
	}
	return in
}

// automate applies a CC mapped onto a parameter, reporting whether it did
func (r *Runner) automate(ev midi.Event) bool {
	if ev.Type() != midi.CC {
		return false
	}
	params := r.plugin.Params()
	switch {
	case r.opts.Controls.RateCC != 0 && ev.Data1 == r.opts.Controls.RateCC:
		params.SetNormalized(arp.ParamRate, float64(ev.Data2)/127)
	case r.opts.Controls.NoteLengthCC != 0 && ev.Data1 == r.opts.Controls.NoteLengthCC:
		params.SetNormalized(arp.ParamNoteLength, float64(ev.Data2)/127)
	default:
		return false
	}
	return true
}

// release sends a note-off for every open gate and returns how many
func (r *Runner) release() int {
	out := r.plugin.Engine().Release(r.out[:0])
	for _, ev := range out {
		if err := r.send(ev.Message()); err != nil {
			r.sendErrors.Add(1)
		}
	}
	r.eventsOut.Add(uint64(len(out)))
	r.publish()
	return len(out)
}

// publish copies the gate table for the UI unless a reader holds the lock;
// the block never waits on the UI
func (r *Runner) publish() {
	if !r.snapMu.TryLock() {
		return
	}
	r.plugin.Engine().Gates(&r.snap.Gates)
	r.plugin.Engine().ArmedPitches(&r.snap.Armed)
	r.snap.Held = r.plugin.Engine().Held()
	r.snapMu.Unlock()
}

func (r *Runner) notify() {
	select {
	case r.UpdateChan <- struct{}{}:
	default:
	}
}

// Snapshot returns the last published gate view
func (r *Runner) Snapshot() Snapshot {
	r.snapMu.Lock()
	defer r.snapMu.Unlock()
	return r.snap
}

// Stats returns the cumulative counters
func (r *Runner) Stats() Stats {
	return Stats{
		Blocks:     r.blocks.Load(),
		EventsIn:   r.eventsIn.Load(),
		EventsOut:  r.eventsOut.Load(),
		Deferred:   r.deferred.Load(),
		SendErrors: r.sendErrors.Load(),
	}
}

// Params returns the parameter store the engine reads
func (r *Runner) Params() *arp.Params {
	return r.plugin.Params()
}
