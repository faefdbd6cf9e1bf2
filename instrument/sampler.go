package instrument

import (
	"fmt"
	"math"
	"sync"

	"github.com/vsariola/mixseq"
)

type (
	// Sampler plays back a decoded sample every time it is triggered. The
	// note is ignored; the velocity scales the level. Voices are mixed into
	// the block in Render, starting at the exact frame of their trigger.
	Sampler struct {
		name       string
		frames     mixseq.AudioBuffer
		sampleRate int
		norm       float32 // normalization gain computed by the bank

		mu     sync.Mutex
		gain   float32
		start  int // first frame played, from the "start" parameter
		voices []samplerVoice
	}

	samplerVoice struct {
		at   float64
		pos  int
		gain float32
	}
)

var samplerParameters = map[string]mixseq.EffectParameter{
	"gain":  {Name: "gain", MinValue: -60, MaxValue: 12, Default: 0}, // decibels
	"start": {Name: "start", MinValue: 0, MaxValue: 0.99, Default: 0}, // fraction of the sample
}

// MaxSamplerVoices is the polyphony of a sampler. When all voices are in
// use, a new trigger steals the oldest one.
const MaxSamplerVoices = 8

// NewSampler returns a sampler playing frames, recorded at sampleRate. norm
// is applied on top of the gain parameter; use 1 for no normalization.
func NewSampler(name string, frames mixseq.AudioBuffer, sampleRate int, norm float32) *Sampler {
	return &Sampler{
		name:       name,
		frames:     frames,
		sampleRate: sampleRate,
		norm:       norm,
		gain:       1,
		voices:     make([]samplerVoice, 0, MaxSamplerVoices),
	}
}

func (s *Sampler) Name() string { return s.name }

// Duration returns the length of the sample in seconds.
func (s *Sampler) Duration() float64 {
	return float64(len(s.frames)) / float64(s.sampleRate)
}

func (s *Sampler) Trigger(note, velocity byte, at float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.voices) == MaxSamplerVoices {
		s.voices = s.voices[:copy(s.voices, s.voices[1:])]
	}
	s.voices = append(s.voices, samplerVoice{at: at, pos: s.start, gain: float32(velocity) / 127})
}

func (s *Sampler) SetParameter(name string, value float64) error {
	p, ok := samplerParameters[name]
	if !ok {
		return &mixseq.ValidationError{Op: "SetParameter", Field: "name", Value: name, Rule: "one of gain, start"}
	}
	if !(value >= p.MinValue && value <= p.MaxValue) {
		return &mixseq.ValidationError{Op: "SetParameter", Field: name, Value: value, Rule: fmt.Sprintf("in [%g, %g]", p.MinValue, p.MaxValue)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch name {
	case "gain":
		s.gain = float32(math.Pow(10, value/20))
	case "start":
		s.start = int(value * float64(len(s.frames)))
	}
	return nil
}

// Render mixes the voices into buf. at is the audio time of buf[0].
func (s *Sampler) Render(buf mixseq.AudioBuffer, at float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.voices[:0]
	for _, v := range s.voices {
		offset := int(math.Round((v.at - at) * float64(s.sampleRate)))
		if offset >= len(buf) {
			kept = append(kept, v)
			continue
		}
		g := v.gain * s.gain * s.norm
		for i := max(offset, 0); i < len(buf) && v.pos < len(s.frames); i++ {
			buf[i][0] += s.frames[v.pos][0] * g
			buf[i][1] += s.frames[v.pos][1] * g
			v.pos++
		}
		if v.pos < len(s.frames) {
			kept = append(kept, v)
		}
	}
	s.voices = kept
}

// CancelScheduled drops the voices that have not started before after.
func (s *Sampler) CancelScheduled(after float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.voices[:0]
	for _, v := range s.voices {
		if v.at < after {
			kept = append(kept, v)
		}
	}
	s.voices = kept
}

// Active returns the number of voices playing or waiting to play.
func (s *Sampler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.voices)
}

func (s *Sampler) Dispose() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voices = s.voices[:0]
	s.frames = nil
	return nil
}
