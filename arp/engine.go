// Package arp implements the note-gate engine: a fixed table of 128 per-pitch
// retrigger states, updated once per processing block. Every held pitch is
// re-emitted as a note-on/note-off pair whose period follows the rate
// parameter and whose gate length follows the note length parameter.
//
// The engine is driven synchronously by a host, one block at a time. It never
// blocks, logs or allocates when the output slice has enough capacity.
package arp

import (
	"math"

	"future-arp/midi"
)

const (
	// NumPitches is the size of the gate table, one slot per MIDI note number
	NumPitches = midi.MaxPitch + 1

	// DecayStep is subtracted from every running countdown once per block,
	// whatever the block's frame count or sample rate.
	DecayStep = 0.1

	// epsilon absorbs the rounding left by repeated DecayStep subtraction so
	// that R - n*0.1 reaching a threshold exactly counts as reaching it.
	epsilon = 1e-9
)

// GateState is the retrigger state of one pitch
type GateState struct {
	Countdown    float64 // steps left until the next transition
	GateOpen     bool    // a synthesized note-on is sounding
	LastStatus   uint8   // last raw status byte seen for this pitch
	LastVelocity uint8
}

// Armed reports whether the pitch's last status is a note-on. Only armed
// pitches take part in Advance.
func (g GateState) Armed() bool {
	return g.LastStatus&midi.StatusMask == midi.NoteOn
}

// ParamSource supplies the two engine parameters. *Params implements it.
type ParamSource interface {
	Rate() float64
	NoteLength() float64
}

// Engine holds the gate table for every pitch
type Engine struct {
	gates  [NumPitches]GateState
	params ParamSource
}

// NewEngine creates an engine reading its parameters from params.
// A nil params uses a private store with the defaults.
func NewEngine(params ParamSource) *Engine {
	if params == nil {
		params = NewParams()
	}
	return &Engine{params: params}
}

// OutputCapacity is the output slice capacity that guarantees Process never
// allocates for a block of n incoming events: every forwarded note-off plus
// at most one synthesized event per pitch.
func OutputCapacity(n int) int {
	return n + NumPitches
}

// Reset zeroes every gate (host activation)
func (e *Engine) Reset() {
	e.gates = [NumPitches]GateState{}
}

// Process runs one block: Ingest then Advance. Output is appended to out in
// emission order and returned. frames is not used for timing; the engine
// advances one step per call.
func (e *Engine) Process(frames int, in []midi.Event, out []midi.Event) []midi.Event {
	out = e.Ingest(in, out)
	return e.Advance(out)
}

// Ingest consumes a block's incoming events in order. Note-ons arm their
// pitch; note-offs are forwarded unchanged and re-arm the countdown. Events
// whose pitch is out of range are dropped without touching any slot.
//
// A gate is only ever open on an armed pitch. The forwarded note-off closes
// it; any other message landing on an open gate first emits a synthesized
// note-off. Either way each event yields at most one output.
func (e *Engine) Ingest(in []midi.Event, out []midi.Event) []midi.Event {
	for _, ev := range in {
		if ev.Data1 > midi.MaxPitch {
			continue
		}
		g := &e.gates[ev.Data1]

		switch ev.Type() {
		case midi.NoteOn:
			g.Countdown = 0
			g.GateOpen = false
		case midi.NoteOff:
			out = append(out, ev)
			g.Countdown = e.rate()
			g.GateOpen = false
		default:
			if g.GateOpen {
				out = append(out, noteOff(g, ev.Data1))
				g.GateOpen = false
			}
		}

		g.LastStatus = ev.Status
		g.LastVelocity = ev.Data2
	}
	return out
}

// Advance scans pitches 0 to 127 once, opening and closing gates
func (e *Engine) Advance(out []midi.Event) []midi.Event {
	rate := e.rate()
	cutoff := (1-e.noteLength())*rate + epsilon

	for i := range e.gates {
		g := &e.gates[i]
		if !g.Armed() {
			continue
		}

		if g.Countdown <= epsilon && !g.GateOpen {
			out = append(out, noteOn(g, uint8(i)))
			g.Countdown = rate
			g.GateOpen = true
			continue
		}

		g.Countdown -= DecayStep

		if g.Countdown <= cutoff && g.GateOpen {
			out = append(out, noteOff(g, uint8(i)))
			g.GateOpen = false
		}
	}
	return out
}

// Release closes every open gate with a note-off and resets the table, so
// nothing is left sounding when the host stops.
func (e *Engine) Release(out []midi.Event) []midi.Event {
	for i := range e.gates {
		g := &e.gates[i]
		if g.GateOpen && g.Armed() {
			out = append(out, noteOff(g, uint8(i)))
		}
	}
	e.Reset()
	return out
}

// Gate returns a copy of one pitch's state (zero value when out of range)
func (e *Engine) Gate(pitch int) GateState {
	if pitch < 0 || pitch >= NumPitches {
		return GateState{}
	}
	return e.gates[pitch]
}

// Gates copies the open flag of every pitch into dst
func (e *Engine) Gates(dst *[NumPitches]bool) {
	for i := range e.gates {
		dst[i] = e.gates[i].GateOpen
	}
}

// ArmedPitches copies the armed flag of every pitch into dst
func (e *Engine) ArmedPitches(dst *[NumPitches]bool) {
	for i := range e.gates {
		dst[i] = e.gates[i].Armed()
	}
}

// Held counts armed pitches
func (e *Engine) Held() int {
	n := 0
	for i := range e.gates {
		if e.gates[i].Armed() {
			n++
		}
	}
	return n
}

func (e *Engine) rate() float64 {
	return finite(e.params.Rate())
}

func (e *Engine) noteLength() float64 {
	return finite(e.params.NoteLength())
}

// finite maps NaN and infinities to 0
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func noteOn(g *GateState, pitch uint8) midi.Event {
	return midi.Event{Status: g.LastStatus, Data1: pitch, Data2: g.LastVelocity}
}

// noteOff clears bit 0x10, turning 0x9n into 0x8n on the same channel
func noteOff(g *GateState, pitch uint8) midi.Event {
	return midi.Event{Status: g.LastStatus &^ 0x10, Data1: pitch, Data2: g.LastVelocity}
}
