package arp

import (
	"fmt"

	"future-arp/midi"
)

// Info is the static plugin descriptor a host adapter publishes
type Info struct {
	Label       string // [A-Za-z0-9_] only
	Description string
	Maker       string
	License     string
	Version     [3]int
	UniqueID    int64
}

// VersionString formats Version as major.minor.patch
func (i Info) VersionString() string {
	return fmt.Sprintf("%d.%d.%d", i.Version[0], i.Version[1], i.Version[2])
}

// FourCC packs four characters into a plugin id
func FourCC(a, b, c, d byte) int64 {
	return int64(a)<<24 | int64(b)<<16 | int64(c)<<8 | int64(d)
}

// PluginInfo describes this arpeggiator
var PluginInfo = Info{
	Label:       "futureArp",
	Description: "A Midi Arpeggiator with audio effect",
	Maker:       "Key2",
	License:     "ISC",
	Version:     [3]int{1, 0, 0},
	UniqueID:    FourCC('m', 'M', 'A', 'r'),
}

// Processor is the block callback a host adapter drives
type Processor interface {
	Process(frames int, in []midi.Event, out []midi.Event) []midi.Event
	Release(out []midi.Event) []midi.Event
	Reset()
}

var _ Processor = (*Engine)(nil)

// Plugin bundles the parameter store and the engine behind the calls a host
// makes: parameter get/set, activation and the per-block run.
type Plugin struct {
	params *Params
	engine *Engine
}

// NewPlugin creates a plugin with default parameters and zeroed gates
func NewPlugin() *Plugin {
	params := NewParams()
	return &Plugin{
		params: params,
		engine: NewEngine(params),
	}
}

func (p *Plugin) Info() Info {
	return PluginInfo
}

func (p *Plugin) Params() *Params {
	return p.params
}

func (p *Plugin) Engine() *Engine {
	return p.engine
}

// GetParameter returns a parameter value by index
func (p *Plugin) GetParameter(index int) float64 {
	return p.params.Get(index)
}

// SetParameter stores a parameter value by index (clamped)
func (p *Plugin) SetParameter(index int, value float64) {
	p.params.Set(index, value)
}

// Activate resets the gate table, as hosts do when (re)starting audio
func (p *Plugin) Activate() {
	p.engine.Reset()
}

// Run copies audio straight through and processes one block of MIDI.
// Channels missing on either side are skipped; at most frames samples are
// copied per channel.
func (p *Plugin) Run(inputs, outputs [][]float32, frames int, events []midi.Event, out []midi.Event) []midi.Event {
	for ch := range outputs {
		if ch >= len(inputs) {
			break
		}
		n := min(frames, len(inputs[ch]), len(outputs[ch]))
		if n <= 0 {
			continue
		}
		copy(outputs[ch][:n], inputs[ch][:n])
	}
	return p.engine.Process(frames, events, out)
}
