package tracker

import (
	"time"

	"github.com/vsariola/mixseq"
)

// TapTempo computes a tempo from the last taps of the user. The mean of the
// intervals between the last TapWindow taps gives the tempo; tempos outside
// [mixseq.MinBPM, mixseq.MaxBPM] are rejected. A tap more than TapTimeout
// after the previous one starts a new measurement.
type TapTempo struct {
	taps [TapWindow]time.Time
	n    int
}

const (
	TapWindow  = 4
	TapTimeout = 2 * time.Second
)

// Tap records a tap at t. It returns the measured tempo and true if there
// were enough taps for a measurement and the tempo is in the allowed range.
func (tt *TapTempo) Tap(t time.Time) (bpm float64, ok bool) {
	if tt.n > 0 && t.Sub(tt.taps[tt.n-1]) > TapTimeout {
		tt.Reset()
	}
	if tt.n == TapWindow {
		copy(tt.taps[:], tt.taps[1:])
		tt.n--
	}
	tt.taps[tt.n] = t
	tt.n++
	if tt.n < 2 {
		return 0, false
	}
	mean := tt.taps[tt.n-1].Sub(tt.taps[0]) / time.Duration(tt.n-1)
	if mean <= 0 {
		return 0, false
	}
	bpm = 60000 / (float64(mean) / float64(time.Millisecond))
	if bpm < mixseq.MinBPM || bpm > mixseq.MaxBPM {
		return 0, false
	}
	return bpm, true
}

// Count returns the number of taps in the current measurement.
func (tt *TapTempo) Count() int { return tt.n }

func (tt *TapTempo) Reset() {
	tt.n = 0
}
