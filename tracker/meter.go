package tracker

import (
	"math"
	"time"

	"github.com/viterin/vek/vek32"
)

// Meter is the activity meter of the tracks, indexed by track order. There
// is no audio analysis: a track's level jumps to the velocity of the note
// it triggered and then decays exponentially, and the peak level is held
// until ClearPeaks.
type Meter struct {
	levels   []float32
	peaks    []float32
	halfLife time.Duration
}

const DefaultMeterHalfLife = 150 * time.Millisecond

func NewMeter(halfLife time.Duration) *Meter {
	if halfLife <= 0 {
		halfLife = DefaultMeterHalfLife
	}
	return &Meter{halfLife: halfLife}
}

// Resize sets the number of tracks. Levels of the remaining tracks are kept.
func (m *Meter) Resize(n int) {
	m.levels = resizeLevels(m.levels, n)
	m.peaks = resizeLevels(m.peaks, n)
}

// Hit raises the level of track i to level, if it is below it.
func (m *Meter) Hit(i int, level float32) {
	if i < 0 || i >= len(m.levels) {
		return
	}
	m.levels[i] = max(m.levels[i], level)
	m.peaks[i] = max(m.peaks[i], level)
}

// Decay lets the levels fall for a duration of d.
func (m *Meter) Decay(d time.Duration) {
	if d <= 0 || len(m.levels) == 0 {
		return
	}
	factor := float32(math.Exp2(-d.Seconds() / m.halfLife.Seconds()))
	vek32.MulNumber_Inplace(m.levels, factor)
}

func (m *Meter) ClearPeaks() {
	m.peaks = vek32.Zeros_Into(m.peaks, len(m.peaks))
}

// Levels returns a copy of the current levels and held peaks.
func (m *Meter) Levels() (levels, peaks []float32) {
	return append([]float32(nil), m.levels...), append([]float32(nil), m.peaks...)
}

// Loudest returns the highest current level.
func (m *Meter) Loudest() float32 {
	if len(m.levels) == 0 {
		return 0
	}
	return vek32.Max(m.levels)
}

func resizeLevels(s []float32, n int) []float32 {
	if n <= len(s) {
		return s[:n]
	}
	return append(s, make([]float32, n-len(s))...)
}
