package arp

import (
	"math"
	"sync/atomic"
)

// Parameter indices
const (
	ParamRate = iota
	ParamNoteLength
	ParamCount
)

// Descriptor describes one automatable parameter to a host or UI
type Descriptor struct {
	Name        string
	ShortName   string
	Symbol      string
	Unit        string
	Min         float64
	Max         float64
	Default     float64
	Automatable bool
}

// Descriptors holds the ranges and defaults, indexed by parameter
var Descriptors = [ParamCount]Descriptor{
	ParamRate: {
		Name:        "Rate",
		ShortName:   "Rate",
		Symbol:      "Rate",
		Unit:        "steps",
		Min:         0,
		Max:         16,
		Default:     1,
		Automatable: true,
	},
	ParamNoteLength: {
		Name:        "Note Length",
		ShortName:   "NoteLen",
		Symbol:      "NoteLen",
		Min:         0.01,
		Max:         1,
		Default:     1,
		Automatable: true,
	},
}

// Clamp limits v to the declared range
func (d Descriptor) Clamp(v float64) float64 {
	if v < d.Min {
		return d.Min
	}
	if v > d.Max {
		return d.Max
	}
	return v
}

// Normalize maps v into 0-1 across the declared range
func (d Descriptor) Normalize(v float64) float64 {
	span := d.Max - d.Min
	if span <= 0 {
		return 0
	}
	return (d.Clamp(v) - d.Min) / span
}

// Denormalize maps n (0-1) back into the declared range
func (d Descriptor) Denormalize(n float64) float64 {
	n = math.Max(0, math.Min(1, n))
	return d.Min + n*(d.Max-d.Min)
}

// Params is the parameter store. Values are kept as atomic float bits so a
// control surface can write while the block loop reads, without locking.
// Every stored value is already clamped to its declared range.
type Params struct {
	values [ParamCount]atomic.Uint64
}

// NewParams creates a store holding the defaults
func NewParams() *Params {
	p := &Params{}
	p.Reset()
	return p
}

// Reset restores every parameter to its default
func (p *Params) Reset() {
	for i := range p.values {
		p.values[i].Store(math.Float64bits(Descriptors[i].Default))
	}
}

// Get returns the current value, or 0 for an unknown index
func (p *Params) Get(index int) float64 {
	if index < 0 || index >= ParamCount {
		return 0
	}
	return math.Float64frombits(p.values[index].Load())
}

// Set clamps value into range and stores it. NaN and unknown indices are
// ignored.
func (p *Params) Set(index int, value float64) {
	if index < 0 || index >= ParamCount {
		return
	}
	if math.IsNaN(value) {
		return
	}
	p.values[index].Store(math.Float64bits(Descriptors[index].Clamp(value)))
}

// Nudge adds delta to a parameter and returns the clamped result
func (p *Params) Nudge(index int, delta float64) float64 {
	p.Set(index, p.Get(index)+delta)
	return p.Get(index)
}

// SetNormalized sets a parameter from a 0-1 position (sliders, CC knobs)
func (p *Params) SetNormalized(index int, n float64) {
	if index < 0 || index >= ParamCount {
		return
	}
	p.Set(index, Descriptors[index].Denormalize(n))
}

// Normalized returns the 0-1 position of a parameter
func (p *Params) Normalized(index int) float64 {
	if index < 0 || index >= ParamCount {
		return 0
	}
	return Descriptors[index].Normalize(p.Get(index))
}

func (p *Params) Rate() float64 {
	return p.Get(ParamRate)
}

func (p *Params) NoteLength() float64 {
	return p.Get(ParamNoteLength)
}

// Snapshot returns all values at once
func (p *Params) Snapshot() [ParamCount]float64 {
	var out [ParamCount]float64
	for i := range out {
		out[i] = p.Get(i)
	}
	return out
}
