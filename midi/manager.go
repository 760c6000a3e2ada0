package midi

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"future-arp/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// DeviceEvent is emitted when the configured ports connect/disconnect
type DeviceEvent struct {
	Type DeviceEventType
	Dir  Direction
	Name string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

// Direction tells whether a port is an input or an output
type Direction int

const (
	DirIn Direction = iota
	DirOut
)

func (d Direction) String() string {
	if d == DirOut {
		return "out"
	}
	return "in"
}

// InputBuffer is the capacity of the live input channel
const InputBuffer = 256

// PortManager keeps the configured input and output ports open, following
// hot-plug. Input messages are delivered on Input() as Events; when the
// channel is full they are dropped and counted.
type PortManager struct {
	inWant  string
	outWant string

	mu      sync.RWMutex
	inPort  drivers.In
	inName  string
	stopIn  func()
	outPort drivers.Out
	outName string
	send    func(gomidi.Message) error

	input    chan Event
	dropped  atomic.Uint64
	events   chan DeviceEvent
	pollRate time.Duration
}

// NewPortManager creates a manager for the named ports (substring match).
// Either name may be empty to leave that side unconnected.
func NewPortManager(in, out string) *PortManager {
	return &PortManager{
		inWant:   in,
		outWant:  out,
		input:    make(chan Event, InputBuffer),
		events:   make(chan DeviceEvent, 16),
		pollRate: time.Second,
	}
}

// Events returns a channel of connect/disconnect events
func (pm *PortManager) Events() <-chan DeviceEvent {
	return pm.events
}

// Input returns the channel of incoming channel messages
func (pm *PortManager) Input() <-chan Event {
	return pm.input
}

// Dropped returns how many input messages were dropped on a full channel
func (pm *PortManager) Dropped() uint64 {
	return pm.dropped.Load()
}

// Status returns the names of the connected ports ("" when disconnected)
func (pm *PortManager) Status() (in, out string) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.inName, pm.outName
}

// Send writes msg to the output port. It is a no-op while disconnected.
func (pm *PortManager) Send(msg gomidi.Message) error {
	pm.mu.RLock()
	send := pm.send
	pm.mu.RUnlock()
	if send == nil {
		return nil
	}
	return send(msg)
}

// Run starts the polling loop (blocking - run in goroutine)
func (pm *PortManager) Run(ctx context.Context) {
	ticker := time.NewTicker(pm.pollRate)
	defer ticker.Stop()

	// Initial scan
	pm.scan()

	for {
		select {
		case <-ctx.Done():
			pm.closeAll()
			close(pm.events)
			return
		case <-ticker.C:
			pm.scan()
		}
	}
}

func (pm *PortManager) scan() {
	ports, err := ListPorts(ScanTimeout)
	if err != nil {
		debug.Log("ports", "scan: %v", err)
		return
	}

	inNames := ports.InNames()
	outNames := ports.OutNames()

	pm.mu.RLock()
	inName, outName := pm.inName, pm.outName
	pm.mu.RUnlock()

	// Check for disconnects
	if inName != "" && !contains(inNames, inName) {
		pm.closeIn()
		pm.emit(DeviceEvent{Type: DeviceDisconnected, Dir: DirIn, Name: inName})
		inName = ""
	}
	if outName != "" && !contains(outNames, outName) {
		pm.closeOut()
		pm.emit(DeviceEvent{Type: DeviceDisconnected, Dir: DirOut, Name: outName})
		outName = ""
	}

	if inName == "" && pm.inWant != "" {
		if in, err := ports.FindIn(pm.inWant); err == nil {
			if err := pm.openIn(in); err != nil {
				debug.Log("ports", "open input %s: %v", in.String(), err)
			} else {
				pm.emit(DeviceEvent{Type: DeviceConnected, Dir: DirIn, Name: in.String()})
			}
		}
	}
	if outName == "" && pm.outWant != "" {
		if out, err := ports.FindOut(pm.outWant); err == nil {
			if err := pm.openOut(out); err != nil {
				debug.Log("ports", "open output %s: %v", out.String(), err)
			} else {
				pm.emit(DeviceEvent{Type: DeviceConnected, Dir: DirOut, Name: out.String()})
			}
		}
	}
}

func (pm *PortManager) openIn(in drivers.In) error {
	name := in.String()
	stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, timestampms int32) {
		ev, ok := FromMessage(msg, 0)
		if !ok {
			return
		}
		select {
		case pm.input <- ev:
		default:
			pm.dropped.Add(1)
		}
	}, gomidi.HandleError(func(err error) {
		debug.Log("ports", "listener %s: %v", name, err)
	}))
	if err != nil {
		return fmt.Errorf("listen %q: %w", name, err)
	}

	pm.mu.Lock()
	pm.inPort = in
	pm.inName = name
	pm.stopIn = stop
	pm.mu.Unlock()
	debug.Log("ports", "input connected: %s", name)
	return nil
}

func (pm *PortManager) openOut(out drivers.Out) error {
	name := out.String()
	send, err := gomidi.SendTo(out)
	if err != nil {
		return fmt.Errorf("open output %q: %w", name, err)
	}

	pm.mu.Lock()
	pm.outPort = out
	pm.outName = name
	pm.send = send
	pm.mu.Unlock()
	debug.Log("ports", "output connected: %s", name)
	return nil
}

func (pm *PortManager) closeIn() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.stopIn != nil {
		pm.stopIn()
		pm.stopIn = nil
	}
	if pm.inPort != nil {
		pm.inPort.Close()
		pm.inPort = nil
	}
	pm.inName = ""
}

func (pm *PortManager) closeOut() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.outPort != nil {
		pm.outPort.Close()
		pm.outPort = nil
	}
	pm.send = nil
	pm.outName = ""
}

func (pm *PortManager) closeAll() {
	pm.closeIn()
	pm.closeOut()
}

// emit never blocks the scan; a slow UI just misses a status update
func (pm *PortManager) emit(ev DeviceEvent) {
	select {
	case pm.events <- ev:
	default:
	}
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
