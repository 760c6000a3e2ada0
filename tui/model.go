package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"future-arp/arp"
	"future-arp/host"
	"future-arp/midi"
	"future-arp/theme"
	"future-arp/widgets"
)

// Ports is the view of the port manager the UI needs
type Ports interface {
	Status() (in, out string)
	Events() <-chan midi.DeviceEvent
	Dropped() uint64
}

// Nudge sizes per parameter
var steps = [arp.ParamCount]struct{ fine, coarse float64 }{
	arp.ParamRate:       {fine: arp.DecayStep, coarse: 1},
	arp.ParamNoteLength: {fine: 0.01, coarse: 0.1},
}

const sliderWidth = 32

type Model struct {
	Runner   *host.Runner
	Ports    Ports
	Theme    *theme.Theme
	selected int
	quitting bool
	status   string // last device event
}

type UpdateMsg struct{}

type DeviceEventMsg midi.DeviceEvent

func NewModel(runner *host.Runner, ports Ports, th *theme.Theme) Model {
	return Model{
		Runner: runner,
		Ports:  ports,
		Theme:  th,
	}
}

func ListenForUpdates(runner *host.Runner) tea.Cmd {
	return func() tea.Msg {
		<-runner.UpdateChan
		return UpdateMsg{}
	}
}

// ListenForDevices waits for the next port event; it stops once the
// manager closes its channel
func ListenForDevices(ports Ports) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ports.Events()
		if !ok {
			return nil
		}
		return DeviceEventMsg(event)
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{ListenForUpdates(m.Runner)}
	if m.Ports != nil {
		cmds = append(cmds, ListenForDevices(m.Ports))
	}
	return tea.Batch(cmds...)
}

// Selected returns the index of the parameter under the cursor
func (m Model) Selected() int {
	return m.selected
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	params := m.Runner.Params()

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "j", "down":
			m.selected = (m.selected + 1) % arp.ParamCount
		case "k", "up":
			m.selected = (m.selected + arp.ParamCount - 1) % arp.ParamCount

		case "h", "left":
			params.Nudge(m.selected, -steps[m.selected].fine)
		case "l", "right":
			params.Nudge(m.selected, steps[m.selected].fine)
		case "H", "shift+left":
			params.Nudge(m.selected, -steps[m.selected].coarse)
		case "L", "shift+right":
			params.Nudge(m.selected, steps[m.selected].coarse)

		case "r":
			params.Set(m.selected, arp.Descriptors[m.selected].Default)
		case "R":
			params.Reset()
		}

	case UpdateMsg:
		return m, ListenForUpdates(m.Runner)

	case DeviceEventMsg:
		event := midi.DeviceEvent(msg)
		state := "connected"
		if event.Type == midi.DeviceDisconnected {
			state = "disconnected"
		}
		m.status = fmt.Sprintf("%s %s: %s", event.Dir, state, event.Name)
		return m, ListenForDevices(m.Ports)
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	params := m.Runner.Params()
	snap := m.Runner.Snapshot()
	stats := m.Runner.Stats()
	info := arp.PluginInfo

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent()).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())

	header := headerStyle.Render(fmt.Sprintf("%s %s  held:%d", info.Label, info.VersionString(), snap.Held))

	var ports string
	if m.Ports != nil {
		in, out := m.Ports.Status()
		ports = widgets.RenderPort("in ", in, in != "", m.Theme) + "\n" +
			widgets.RenderPort("out", out, out != "", m.Theme)
	}

	var sliders []string
	for i, d := range arp.Descriptors {
		sliders = append(sliders, widgets.RenderSlider(widgets.Slider{
			Label:    d.Name,
			Value:    params.Get(i),
			Min:      d.Min,
			Max:      d.Max,
			Unit:     d.Unit,
			Selected: i == m.selected,
		}, sliderWidth, m.Theme))
	}

	strip := widgets.RenderGateStrip(&snap.Gates, &snap.Armed, 12, m.Theme)

	counters := fmt.Sprintf("blocks %d  in %d  out %d  deferred %d  send errors %d",
		stats.Blocks, stats.EventsIn, stats.EventsOut, stats.Deferred, stats.SendErrors)
	if m.Ports != nil {
		counters += fmt.Sprintf("  dropped %d", m.Ports.Dropped())
	}

	help := dimStyle.Render("j/k:select  h/l:fine  H/L:coarse  r:reset  R:reset all  q:quit")

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	if ports != "" {
		out.WriteString(ports)
		out.WriteString("\n\n")
	}
	out.WriteString(strings.Join(sliders, "\n"))
	out.WriteString("\n\n")
	out.WriteString(strip)
	out.WriteString("\n\n")
	out.WriteString(dimStyle.Render(counters))
	if m.status != "" {
		out.WriteString("\n")
		out.WriteString(dimStyle.Render(m.status))
	}
	out.WriteString("\n\n")
	out.WriteString(help)

	return out.String()
}
