package widgets

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"future-arp/theme"
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName returns the name of a MIDI note number, middle C (60) being C4
func NoteName(pitch int) string {
	if pitch < 0 || pitch > 127 {
		return "?"
	}
	return fmt.Sprintf("%s%d", noteNames[pitch%12], pitch/12-1)
}

// Slider is one parameter row
type Slider struct {
	Label    string
	Value    float64
	Min      float64
	Max      float64
	Unit     string
	Selected bool
}

// RenderSlider draws "> Label  ━━━━●─────  1.00 unit" across width cells of track
func RenderSlider(s Slider, width int, th *theme.Theme) string {
	if width < 2 {
		width = 2
	}
	norm := 0.0
	if s.Max > s.Min {
		norm = math.Max(0, math.Min(1, (s.Value-s.Min)/(s.Max-s.Min)))
	}
	knob := int(math.Round(norm * float64(width-1)))

	var track strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i == knob:
			track.WriteRune(th.Symbols.SliderKnob)
		case i < knob:
			track.WriteRune(th.Symbols.SliderFill)
		default:
			track.WriteRune(th.Symbols.SliderEmpty)
		}
	}

	marker := "  "
	labelStyle := lipgloss.NewStyle().Foreground(th.FG())
	trackStyle := lipgloss.NewStyle().Foreground(th.Color(0.3 + 0.7*norm))
	if s.Selected {
		marker = "> "
		labelStyle = labelStyle.Foreground(th.Accent()).Bold(true)
	}

	value := fmt.Sprintf("%6.2f", s.Value)
	if s.Unit != "" {
		value += " " + s.Unit
	}
	return marker + labelStyle.Render(fmt.Sprintf("%-12s", s.Label)) + " " + trackStyle.Render(track.String()) + " " + value
}

// RenderGateStrip draws every pitch, perRow to a line, labelled with the first
// note of the line. Sounding pitches are brightest, held but silent ones dimmer.
func RenderGateStrip(open, armed *[128]bool, perRow int, th *theme.Theme) string {
	if perRow <= 0 {
		perRow = 12
	}
	openStyle := lipgloss.NewStyle().Foreground(th.Active())
	armedStyle := lipgloss.NewStyle().Foreground(th.Accent())
	idleStyle := lipgloss.NewStyle().Foreground(th.Muted())
	labelStyle := lipgloss.NewStyle().Foreground(th.FG())

	var lines []string
	for start := 0; start < len(open); start += perRow {
		var line strings.Builder
		line.WriteString(labelStyle.Render(fmt.Sprintf("%-4s", NoteName(start))))
		for p := start; p < start+perRow && p < len(open); p++ {
			switch {
			case open[p]:
				line.WriteString(openStyle.Render(string(th.Symbols.GateOpen)))
			case armed[p]:
				line.WriteString(armedStyle.Render(string(th.Symbols.GateArmed)))
			default:
				line.WriteString(idleStyle.Render(string(th.Symbols.GateIdle)))
			}
		}
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

// RenderPort renders a port name with its connection dot
func RenderPort(label, name string, connected bool, th *theme.Theme) string {
	dot := lipgloss.NewStyle().Foreground(th.Warning()).Render(string(th.Symbols.Disconnected))
	if connected {
		dot = lipgloss.NewStyle().Foreground(th.Success()).Render(string(th.Symbols.Connected))
	}
	if name == "" {
		name = "-"
	}
	return fmt.Sprintf("%s %s %s", dot, label, name)
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}
