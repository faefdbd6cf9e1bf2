package instrument

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vsariola/mixseq"
	"gitlab.com/gomidi/midi/v2"
)

type (
	// MIDI is an instrument that plays its notes on an external MIDI device.
	// Triggers are queued with their audio time and sent when the audio
	// block containing them is rendered, so the notes follow the audio clock
	// instead of the moment the sequencer scheduled them. Every note-on is
	// followed by a note-off after the gate time.
	MIDI struct {
		send       func(msg midi.Message) error
		sampleRate int

		mu        sync.Mutex
		channel   uint8
		gate      float64 // seconds
		transpose int
		queue     []midiEvent // sorted by at
		sounding  [128]int
		err       error
	}

	midiEvent struct {
		at       float64
		on       bool
		note     byte
		velocity byte
	}
)

var midiParameters = map[string]mixseq.EffectParameter{
	"channel":   {Name: "channel", MinValue: 0, MaxValue: 15, Default: 0},
	"gate":      {Name: "gate", MinValue: 0.01, MaxValue: 10, Default: 0.1},
	"transpose": {Name: "transpose", MinValue: -48, MaxValue: 48, Default: 0},
}

const (
	midiQueueSize = 256
	allNotesOff   = 123 // channel mode message
)

// NewMIDI returns an instrument sending its notes with send, typically the
// function returned by midi.SendTo for an output port. sampleRate is the
// rate of the audio clock driving the player.
func NewMIDI(send func(msg midi.Message) error, channel uint8, sampleRate int) *MIDI {
	return &MIDI{
		send:       send,
		sampleRate: sampleRate,
		channel:    channel & 0xF,
		gate:       midiParameters["gate"].Default,
		queue:      make([]midiEvent, 0, midiQueueSize),
	}
}

func (m *MIDI) Trigger(note, velocity byte, at float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := min(max(int(note)+m.transpose, 0), 127)
	if len(m.queue)+2 > cap(m.queue) {
		return // the device is not keeping up; drop the note rather than grow in the audio path
	}
	m.insert(midiEvent{at: at, on: true, note: byte(n), velocity: velocity})
	m.insert(midiEvent{at: at + m.gate, note: byte(n)})
}

func (m *MIDI) SetParameter(name string, value float64) error {
	p, ok := midiParameters[name]
	if !ok {
		return &mixseq.ValidationError{Op: "SetParameter", Field: "name", Value: name, Rule: "one of channel, gate, transpose"}
	}
	if !(value >= p.MinValue && value <= p.MaxValue) {
		return &mixseq.ValidationError{Op: "SetParameter", Field: name, Value: value, Rule: fmt.Sprintf("in [%g, %g]", p.MinValue, p.MaxValue)}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch name {
	case "channel":
		m.flushAll()
		m.channel = uint8(value)
	case "gate":
		m.gate = value
	case "transpose":
		m.transpose = int(value)
	}
	return nil
}

// Render sends every queued message falling before the end of buf. The
// buffer itself is left untouched.
func (m *MIDI) Render(buf mixseq.AudioBuffer, at float64) {
	end := at + float64(len(buf))/float64(m.sampleRate)
	m.mu.Lock()
	defer m.mu.Unlock()
	i := 0
	for ; i < len(m.queue) && m.queue[i].at < end; i++ {
		m.sendEvent(m.queue[i])
	}
	m.queue = m.queue[:copy(m.queue, m.queue[i:])]
}

// CancelScheduled drops the notes that have not started before after. The
// notes already sounding still get their note-off.
func (m *MIDI) CancelScheduled(after float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var dropped [128]int
	kept := m.queue[:0]
	for _, e := range m.queue {
		if e.at >= after {
			if e.on {
				dropped[e.note]++
				continue
			}
			if dropped[e.note] > 0 {
				dropped[e.note]--
				continue
			}
		}
		kept = append(kept, e)
	}
	m.queue = kept
}

// Dispose silences every sounding note and returns the first error the
// output reported, if any.
func (m *MIDI) Dispose() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushAll()
	m.sendMessage(midi.ControlChange(m.channel, allNotesOff, 0))
	return m.err
}

// Err returns the first error the output reported.
func (m *MIDI) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *MIDI) insert(e midiEvent) {
	i := sort.Search(len(m.queue), func(i int) bool { return m.queue[i].at > e.at })
	m.queue = append(m.queue, midiEvent{})
	copy(m.queue[i+1:], m.queue[i:])
	m.queue[i] = e
}

// flushAll sends a note-off for every sounding note and empties the queue.
func (m *MIDI) flushAll() {
	for note, n := range m.sounding {
		for ; n > 0; n-- {
			m.sendMessage(midi.NoteOff(m.channel, uint8(note)))
		}
		m.sounding[note] = 0
	}
	m.queue = m.queue[:0]
}

func (m *MIDI) sendEvent(e midiEvent) {
	if e.on {
		m.sounding[e.note]++
		m.sendMessage(midi.NoteOn(m.channel, e.note, e.velocity))
		return
	}
	if m.sounding[e.note] > 0 {
		m.sounding[e.note]--
	}
	m.sendMessage(midi.NoteOff(m.channel, e.note))
}

func (m *MIDI) sendMessage(msg midi.Message) {
	if err := m.send(msg); err != nil && m.err == nil {
		m.err = err
	}
}
