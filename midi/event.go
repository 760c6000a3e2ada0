package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"
)

// MIDI message types (high nibble of the status byte)
const (
	NoteOff    uint8 = 0x80
	NoteOn     uint8 = 0x90
	CC         uint8 = 0xB0
	StatusMask uint8 = 0xF0
)

// MaxPitch is the highest valid note number
const MaxPitch = 127

// Event is a 3-byte channel message plus its frame offset within the block.
// Frame is carried through but never interpreted by the engine.
type Event struct {
	Frame  uint32
	Status uint8 // message type | channel
	Data1  uint8 // pitch or controller
	Data2  uint8 // velocity or value
}

// Type returns the message type with the channel bits stripped
func (e Event) Type() uint8 {
	return e.Status & StatusMask
}

// Channel returns the 0-based MIDI channel
func (e Event) Channel() uint8 {
	return e.Status & 0x0F
}

func (e Event) IsNoteOn() bool {
	return e.Type() == NoteOn
}

func (e Event) IsNoteOff() bool {
	return e.Type() == NoteOff
}

// NormalizeNoteOff rewrites a note-on with velocity 0 into a note-off on the
// same channel. Many keyboards release keys this way.
func (e Event) NormalizeNoteOff() Event {
	if e.IsNoteOn() && e.Data2 == 0 {
		e.Status = NoteOff | e.Channel()
	}
	return e
}

// Message converts the event to a gomidi message for sending
func (e Event) Message() gomidi.Message {
	switch e.Type() {
	case 0xC0, 0xD0: // program change, channel pressure
		return gomidi.Message{e.Status, e.Data1}
	default:
		return gomidi.Message{e.Status, e.Data1, e.Data2}
	}
}

// FromMessage converts raw message bytes into an Event. Only channel voice
// messages are accepted; system and meta messages have no pitch field.
func FromMessage(msg []byte, frame uint32) (Event, bool) {
	if len(msg) < 2 {
		return Event{}, false
	}
	status := msg[0]
	if status < NoteOff || status >= 0xF0 {
		return Event{}, false
	}
	ev := Event{Frame: frame, Status: status, Data1: msg[1]}
	if len(msg) >= 3 {
		ev.Data2 = msg[2]
	}
	return ev, true
}
