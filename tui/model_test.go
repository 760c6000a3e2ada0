package tui

import (
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"future-arp/arp"
	"future-arp/host"
	"future-arp/midi"
	"future-arp/theme"
)

type fakePorts struct {
	in, out string
	events  chan midi.DeviceEvent
}

func (f *fakePorts) Status() (string, string)        { return f.in, f.out }
func (f *fakePorts) Events() <-chan midi.DeviceEvent { return f.events }
func (f *fakePorts) Dropped() uint64                 { return 3 }

func newTestModel() (Model, *fakePorts) {
	runner := host.NewRunner(arp.NewPlugin(), nil, nil, host.Options{})
	ports := &fakePorts{in: "KeyStep", events: make(chan midi.DeviceEvent, 1)}
	return NewModel(runner, ports, theme.New(nil)), ports
}

func press(m Model, key string) Model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
	return next.(Model)
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSelectWraps(t *testing.T) {
	m, _ := newTestModel()
	m = press(m, "j")
	if m.Selected() != arp.ParamNoteLength {
		t.Errorf("expected note length selected, got %d", m.Selected())
	}
	m = press(m, "j")
	if m.Selected() != arp.ParamRate {
		t.Errorf("expected wrap to rate, got %d", m.Selected())
	}
	m = press(m, "k")
	if m.Selected() != arp.ParamNoteLength {
		t.Errorf("expected wrap back to note length, got %d", m.Selected())
	}
}

func TestNudgeKeys(t *testing.T) {
	m, _ := newTestModel()
	params := m.Runner.Params()

	m = press(m, "l")
	if !near(params.Rate(), 1.1) {
		t.Errorf("fine nudge: expected 1.1, got %v", params.Rate())
	}
	m = press(m, "L")
	if !near(params.Rate(), 2.1) {
		t.Errorf("coarse nudge: expected 2.1, got %v", params.Rate())
	}
	m = press(m, "r")
	if params.Rate() != 1 {
		t.Errorf("reset: expected 1, got %v", params.Rate())
	}

	m = press(m, "j")
	m = press(m, "H")
	if !near(params.NoteLength(), 0.9) {
		t.Errorf("coarse nudge down: expected 0.9, got %v", params.NoteLength())
	}
	for i := 0; i < 20; i++ {
		m = press(m, "H")
	}
	if params.NoteLength() != arp.Descriptors[arp.ParamNoteLength].Min {
		t.Errorf("expected clamp at minimum, got %v", params.NoteLength())
	}

	m = press(m, "R")
	if params.NoteLength() != 1 || params.Rate() != 1 {
		t.Errorf("reset all failed: %v %v", params.Rate(), params.NoteLength())
	}
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel()
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if next.(Model).View() != "" {
		t.Error("view should be empty after quit")
	}
}

func TestDeviceEvent(t *testing.T) {
	m, ports := newTestModel()
	next, cmd := m.Update(DeviceEventMsg{Type: midi.DeviceDisconnected, Dir: midi.DirIn, Name: "KeyStep"})
	if cmd == nil {
		t.Fatal("expected to keep listening for devices")
	}
	view := next.(Model).View()
	if !strings.Contains(view, "in disconnected: KeyStep") {
		t.Errorf("missing device status in view:\n%s", view)
	}

	ports.events <- midi.DeviceEvent{Type: midi.DeviceConnected, Dir: midi.DirOut, Name: "FLUID"}
	if msg, ok := cmd().(DeviceEventMsg); !ok || msg.Name != "FLUID" {
		t.Errorf("unexpected listener result %+v", msg)
	}

	close(ports.events)
	if msg := ListenForDevices(ports)(); msg != nil {
		t.Errorf("closed channel should end listening, got %+v", msg)
	}
}

func TestView(t *testing.T) {
	m, _ := newTestModel()
	view := m.View()
	for _, want := range []string{"futureArp 1.0.0", "Rate", "Note Length", "KeyStep", "dropped 3", "C4"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
