package midi

import (
	"errors"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

var (
	ErrScanTimeout  = errors.New("midi: port scan timed out")
	ErrPortNotFound = errors.New("midi: port not found")
)

// ScanTimeout bounds a port scan (CoreMIDI can hang)
const ScanTimeout = 3 * time.Second

// ExcludedPorts are virtual/system ports never picked by substring matching.
var ExcludedPorts = []string{"Midi Through", "Through Port", "Dummy"}

// Ports is a snapshot of the available input and output ports
type Ports struct {
	Ins  []drivers.In
	Outs []drivers.Out
}

// InNames returns the input port names in driver order
func (p Ports) InNames() []string {
	names := make([]string, len(p.Ins))
	for i, in := range p.Ins {
		names[i] = in.String()
	}
	return names
}

// OutNames returns the output port names in driver order
func (p Ports) OutNames() []string {
	names := make([]string, len(p.Outs))
	for i, out := range p.Outs {
		names[i] = out.String()
	}
	return names
}

// FindIn returns the first input matching want
func (p Ports) FindIn(want string) (drivers.In, error) {
	idx := MatchPort(p.InNames(), want)
	if idx < 0 {
		return nil, ErrPortNotFound
	}
	return p.Ins[idx], nil
}

// FindOut returns the first output matching want
func (p Ports) FindOut(want string) (drivers.Out, error) {
	idx := MatchPort(p.OutNames(), want)
	if idx < 0 {
		return nil, ErrPortNotFound
	}
	return p.Outs[idx], nil
}

// ListPorts scans the driver for ports, giving up after timeout
func ListPorts(timeout time.Duration) (Ports, error) {
	ch := make(chan Ports, 1)
	go func() {
		ch <- Ports{Ins: gomidi.GetInPorts(), Outs: gomidi.GetOutPorts()}
	}()

	select {
	case p := <-ch:
		return p, nil
	case <-time.After(timeout):
		// User needs to run: sudo killall coreaudiod midiserver
		return Ports{}, ErrScanTimeout
	}
}

// MatchPort returns the index of the port matching want, or -1.
// An exact name wins; otherwise the first case-insensitive substring match
// that is not an excluded virtual port. An empty want matches nothing.
func MatchPort(names []string, want string) int {
	if want == "" {
		return -1
	}
	for i, name := range names {
		if name == want {
			return i
		}
	}
	lower := strings.ToLower(want)
	for i, name := range names {
		if isExcluded(name) {
			continue
		}
		if strings.Contains(strings.ToLower(name), lower) {
			return i
		}
	}
	return -1
}

func isExcluded(name string) bool {
	name = strings.ToLower(name)
	for _, ex := range ExcludedPorts {
		if strings.Contains(name, strings.ToLower(ex)) {
			return true
		}
	}
	return false
}
