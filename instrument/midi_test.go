package instrument_test

import (
	"testing"

	"github.com/vsariola/mixseq"
	"github.com/vsariola/mixseq/instrument"
	"gitlab.com/gomidi/midi/v2"
)

type midiLog struct {
	msgs []midi.Message
}

func (l *midiLog) send(msg midi.Message) error {
	l.msgs = append(l.msgs, msg)
	return nil
}

func (l *midiLog) notes(t *testing.T) (on, off []uint8) {
	t.Helper()
	for _, msg := range l.msgs {
		var ch, key, vel uint8
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			on = append(on, key)
		case msg.GetNoteEnd(&ch, &key):
			off = append(off, key)
		}
	}
	return
}

func TestMIDISendsOnAudioClock(t *testing.T) {
	var l midiLog
	m := instrument.NewMIDI(l.send, 0, 1000)
	m.Trigger(60, 100, 0.5)
	m.Render(make(mixseq.AudioBuffer, 100), 0) // 0 .. 0.1 s
	if len(l.msgs) != 0 {
		t.Fatalf("nothing should be sent before the scheduled time, got %d messages", len(l.msgs))
	}
	m.Render(make(mixseq.AudioBuffer, 500), 0.1) // 0.1 .. 0.6 s
	on, off := l.notes(t)
	if len(on) != 1 || on[0] != 60 || len(off) != 0 {
		t.Fatalf("expected a single note-on, got on %v off %v", on, off)
	}
	m.Render(make(mixseq.AudioBuffer, 500), 0.6)
	_, off = l.notes(t)
	if len(off) != 1 || off[0] != 60 {
		t.Fatalf("expected the note-off after the gate, got %v", off)
	}
}

func TestMIDICancelScheduled(t *testing.T) {
	var l midiLog
	m := instrument.NewMIDI(l.send, 0, 1000)
	if err := m.SetParameter("gate", 0.5); err != nil {
		t.Fatalf("SetParameter failed: %v", err)
	}
	m.Trigger(60, 100, 1.0)
	m.Trigger(62, 100, 2.0)
	m.Render(make(mixseq.AudioBuffer, 1200), 0) // 0 .. 1.2 s, note 60 starts
	m.CancelScheduled(1.1)
	m.Render(make(mixseq.AudioBuffer, 3000), 1.2)
	on, off := l.notes(t)
	if len(on) != 1 || on[0] != 60 {
		t.Fatalf("the cancelled note should never start, got note-ons %v", on)
	}
	if len(off) != 1 || off[0] != 60 {
		t.Fatalf("the sounding note should still be released, got note-offs %v", off)
	}
}

func TestMIDIParameters(t *testing.T) {
	var l midiLog
	m := instrument.NewMIDI(l.send, 0, 1000)
	if err := m.SetParameter("transpose", 12); err != nil {
		t.Fatalf("SetParameter failed: %v", err)
	}
	if err := m.SetParameter("gate", 100); err == nil {
		t.Fatalf("gate out of range should fail")
	}
	if err := m.SetParameter("cutoff", 1); err == nil {
		t.Fatalf("unknown parameter should fail")
	}
	m.Trigger(60, 100, 0)
	m.Render(make(mixseq.AudioBuffer, 10), 0)
	if err := m.Dispose(); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	on, off := l.notes(t)
	if len(on) != 1 || on[0] != 72 {
		t.Fatalf("expected transposed note 72, got %v", on)
	}
	if len(off) != 1 || off[0] != 72 {
		t.Fatalf("Dispose should release the sounding note, got %v", off)
	}
}
