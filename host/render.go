package host

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"future-arp/arp"
	"future-arp/debug"
	"future-arp/midi"

	"gitlab.com/gomidi/midi/v2/smf"
)

// ErrNoTracks is returned when the input file holds no channel messages
var ErrNoTracks = errors.New("render: no playable events")

// Output file timing: MetricTicks at a fixed 120 BPM
const (
	renderPPQ       = 960
	renderBPM       = 120
	usPerQuarter    = 60_000_000 / renderBPM
	defaultTail     = 200
	defaultRate     = 48000
	defaultBlockLen = 256
)

// RenderOptions configures an offline render
type RenderOptions struct {
	SampleRate       int
	BlockFrames      int
	TailBlocks       int // blocks processed after the last input event
	Rate             float64
	NoteLength       float64
	NormalizeNoteOff bool
}

// RenderStats summarises a render
type RenderStats struct {
	Blocks    int
	EventsIn  int
	EventsOut int
}

type timedEvent struct {
	us int64
	ev midi.Event
}

// Render reads a Standard MIDI File from r, plays it through the engine one
// block at a time and writes the engine output to w as a single-track SMF.
// Events keep their in-block frame; synthesized events land on the block
// start. Gates still open at the end are released.
func Render(r io.Reader, w io.Writer, opts RenderOptions) (RenderStats, error) {
	var stats RenderStats
	if opts.SampleRate <= 0 {
		opts.SampleRate = defaultRate
	}
	if opts.BlockFrames <= 0 {
		opts.BlockFrames = defaultBlockLen
	}
	if opts.TailBlocks <= 0 {
		opts.TailBlocks = defaultTail
	}

	var input []timedEvent
	rd := smf.ReadTracksFrom(r)
	rd.Do(func(te smf.TrackEvent) {
		ev, ok := midi.FromMessage(te.Message, 0)
		if !ok {
			return
		}
		if opts.NormalizeNoteOff {
			ev = ev.NormalizeNoteOff()
		}
		input = append(input, timedEvent{us: te.AbsMicroSeconds, ev: ev})
	})
	if err := rd.Error(); err != nil {
		return stats, fmt.Errorf("read smf: %w", err)
	}
	if len(input) == 0 {
		return stats, ErrNoTracks
	}
	sort.SliceStable(input, func(i, j int) bool { return input[i].us < input[j].us })

	plugin := arp.NewPlugin()
	plugin.SetParameter(arp.ParamRate, opts.Rate)
	plugin.SetParameter(arp.ParamNoteLength, opts.NoteLength)

	blockLen := int64(opts.BlockFrames)
	frameOf := func(us int64) int64 {
		return us * int64(opts.SampleRate) / 1_000_000
	}
	lastBlock := frameOf(input[len(input)-1].us)/blockLen + int64(opts.TailBlocks)

	var output []timedEvent
	emit := func(block int64, out []midi.Event) {
		for _, ev := range out {
			frame := block*blockLen + int64(ev.Frame)
			output = append(output, timedEvent{us: frame * 1_000_000 / int64(opts.SampleRate), ev: ev})
		}
	}

	in := make([]midi.Event, 0, arp.NumPitches)
	out := make([]midi.Event, 0, arp.OutputCapacity(arp.NumPitches))
	next := 0
	for block := int64(0); block <= lastBlock; block++ {
		in = in[:0]
		for next < len(input) {
			frame := frameOf(input[next].us)
			if frame/blockLen != block {
				break
			}
			ev := input[next].ev
			ev.Frame = uint32(frame % blockLen)
			in = append(in, ev)
			next++
		}

		out = plugin.Run(nil, nil, opts.BlockFrames, in, out[:0])
		// forwarded events keep their frame, so restore time order
		sort.SliceStable(out, func(i, j int) bool { return out[i].Frame < out[j].Frame })
		emit(block, out)

		stats.Blocks++
		stats.EventsIn += len(in)
	}
	emit(lastBlock+1, plugin.Engine().Release(out[:0]))
	stats.EventsOut = len(output)

	if err := writeSMF(w, output); err != nil {
		return stats, err
	}
	debug.Log("render", "blocks=%d in=%d out=%d", stats.Blocks, stats.EventsIn, stats.EventsOut)
	return stats, nil
}

func writeSMF(w io.Writer, events []timedEvent) error {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(renderPPQ)

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(renderBPM))

	var last int64
	for _, te := range events {
		tick := te.us * renderPPQ / usPerQuarter
		tr.Add(uint32(tick-last), te.ev.Message())
		last = tick
	}
	tr.Close(0)

	if err := s.Add(tr); err != nil {
		return fmt.Errorf("add track: %w", err)
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("write smf: %w", err)
	}
	return nil
}
