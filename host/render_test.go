package host

import (
	"bytes"
	"errors"
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// heldNote writes one note held for length ticks at 120 BPM, 960 ppq
func heldNote(t *testing.T, key uint8, length uint32) *bytes.Buffer {
	t.Helper()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(960)

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(120))
	tr.Add(0, gomidi.NoteOn(0, key, 100))
	tr.Add(length, gomidi.NoteOff(0, key))
	tr.Close(0)
	if err := s.Add(tr); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	return &buf
}

type noteAt struct {
	tick uint32
	on   bool
	key  uint8
}

func readNotes(t *testing.T, data []byte) []noteAt {
	t.Helper()
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(s.Tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(s.Tracks))
	}

	var notes []noteAt
	var abs uint32
	var ch, key, vel uint8
	for _, ev := range s.Tracks[0] {
		abs += ev.Delta
		switch {
		case ev.Message.GetNoteOn(&ch, &key, &vel):
			notes = append(notes, noteAt{tick: abs, on: true, key: key})
		case ev.Message.GetNoteOff(&ch, &key, &vel):
			notes = append(notes, noteAt{tick: abs, on: false, key: key})
		}
	}
	return notes
}

func TestRenderHeldNote(t *testing.T) {
	// 1000 ticks at 120 BPM is about 0.52s, 52 blocks of 480 frames
	in := heldNote(t, 60, 1000)

	var out bytes.Buffer
	stats, err := Render(in, &out, RenderOptions{
		SampleRate:       48000,
		BlockFrames:      480,
		TailBlocks:       10,
		Rate:             1,
		NoteLength:       0.5,
		NormalizeNoteOff: true,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if stats.EventsIn != 2 {
		t.Errorf("expected 2 input events, got %d", stats.EventsIn)
	}
	if stats.Blocks != 63 {
		t.Errorf("expected 63 blocks, got %d", stats.Blocks)
	}

	notes := readNotes(t, out.Bytes())
	var ons, offs int
	for _, n := range notes {
		if n.key != 60 {
			t.Errorf("unexpected key %d", n.key)
		}
		if n.on {
			ons++
		} else {
			offs++
		}
	}
	// Fires on blocks 0, 11, 22, 33, 44; cut on 5, 16, 27, 38, 49; the
	// forwarded release lands in block 52
	if ons != 5 || offs != 6 {
		t.Errorf("expected 5 note-ons and 6 note-offs, got %d and %d", ons, offs)
	}
	if stats.EventsOut != 11 {
		t.Errorf("expected 11 output events, got %d", stats.EventsOut)
	}

	if len(notes) < 2 || !notes[0].on || notes[0].tick != 0 {
		t.Fatalf("expected first note-on at tick 0, got %+v", notes)
	}
	// Block 5 starts 50ms in: 96 ticks at 120 BPM
	if notes[1].on || notes[1].tick != 96 {
		t.Errorf("expected first note-off at tick 96, got %+v", notes[1])
	}
}

func TestRenderReleasesAtEnd(t *testing.T) {
	// Note-on only: the gate is still open when the render stops
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(960)
	var tr smf.Track
	tr.Add(0, gomidi.NoteOn(2, 40, 90))
	tr.Close(0)
	if err := s.Add(tr); err != nil {
		t.Fatal(err)
	}
	var in bytes.Buffer
	if _, err := s.WriteTo(&in); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if _, err := Render(&in, &out, RenderOptions{BlockFrames: 480, TailBlocks: 1, Rate: 1, NoteLength: 1}); err != nil {
		t.Fatalf("render: %v", err)
	}

	notes := readNotes(t, out.Bytes())
	if len(notes) != 2 || !notes[0].on || notes[1].on {
		t.Fatalf("expected on then released off, got %+v", notes)
	}
}

func TestRenderEmpty(t *testing.T) {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(960)
	var tr smf.Track
	tr.Add(0, smf.MetaTempo(100))
	tr.Close(0)
	if err := s.Add(tr); err != nil {
		t.Fatal(err)
	}
	var in bytes.Buffer
	if _, err := s.WriteTo(&in); err != nil {
		t.Fatal(err)
	}

	_, err := Render(&in, &bytes.Buffer{}, RenderOptions{})
	if !errors.Is(err, ErrNoTracks) {
		t.Errorf("expected ErrNoTracks, got %v", err)
	}
}
