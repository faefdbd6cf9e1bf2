package mixseq

import (
	"fmt"
	"slices"
)

type (
	// TimeSignature is the meter of the song, e.g. 4/4 or 7/8.
	TimeSignature struct {
		Numerator   int
		Denominator int
	}

	// SongPos represents a position in the song in musical terms. Bar and
	// Beat are zero based; Sixteenth is the step within the beat.
	SongPos struct {
		Bar       int
		Beat      int
		Sixteenth int
	}
)

const (
	DefaultBPM = 120
	MinBPM     = 20
	MaxBPM     = 300

	// StepsPerQuarter is the resolution of the step sequencer: every step is
	// a sixteenth note.
	StepsPerQuarter = 4
)

var (
	validNumerators   = []int{2, 3, 4, 5, 6, 7, 8, 9, 12}
	validDenominators = []int{2, 4, 8, 16}

	DefaultTimeSignature = TimeSignature{Numerator: 4, Denominator: 4}
)

// Validate returns a ValidationError if the numerator is not one of 2, 3, 4,
// 5, 6, 7, 8, 9 or 12, or the denominator is not one of 2, 4, 8 or 16.
func (t TimeSignature) Validate() error {
	if !slices.Contains(validNumerators, t.Numerator) {
		return validationErr("SetTimeSignature", "numerator", t.Numerator, "one of 2, 3, 4, 5, 6, 7, 8, 9, 12")
	}
	if !slices.Contains(validDenominators, t.Denominator) {
		return validationErr("SetTimeSignature", "denominator", t.Denominator, "one of 2, 4, 8, 16")
	}
	return nil
}

// StepsPerBeat returns how many sixteenth steps one beat of the signature
// is, e.g. 4 for x/4 and 2 for x/8. For x/16, a beat is a single step.
func (t TimeSignature) StepsPerBeat() int {
	return max(16/t.Denominator, 1)
}

// StepsPerBar returns the length of one bar in sixteenth steps.
func (t TimeSignature) StepsPerBar() int {
	return t.Numerator * t.StepsPerBeat()
}

func (t TimeSignature) String() string {
	return fmt.Sprintf("%d/%d", t.Numerator, t.Denominator)
}

// SongPos converts a song position in steps to bars, beats and sixteenths.
func (t TimeSignature) SongPos(step int) SongPos {
	if step < 0 {
		step = 0
	}
	perBeat := t.StepsPerBeat()
	perBar := t.StepsPerBar()
	return SongPos{
		Bar:       step / perBar,
		Beat:      (step % perBar) / perBeat,
		Sixteenth: step % perBeat,
	}
}

// Step converts a position back to steps.
func (t TimeSignature) Step(pos SongPos) int {
	return pos.Bar*t.StepsPerBar() + pos.Beat*t.StepsPerBeat() + pos.Sixteenth
}

func (p SongPos) String() string {
	return fmt.Sprintf("%d:%d:%d", p.Bar, p.Beat, p.Sixteenth)
}

// ValidateBPM returns a ValidationError if bpm is not positive.
func ValidateBPM(bpm float64) error {
	if !(bpm > 0) {
		return validationErr("SetBPM", "bpm", bpm, "greater than 0")
	}
	return nil
}

// SamplesPerStep returns the duration of one sixteenth step in samples.
func SamplesPerStep(sampleRate int, bpm float64) float64 {
	return float64(sampleRate) * 60 / (bpm * StepsPerQuarter)
}
