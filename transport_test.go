package mixseq_test

import (
	"errors"
	"math"
	"testing"

	"github.com/vsariola/mixseq"
)

func TestTimeSignatureValidate(t *testing.T) {
	tests := []struct {
		sig mixseq.TimeSignature
		ok  bool
	}{
		{mixseq.TimeSignature{Numerator: 4, Denominator: 4}, true},
		{mixseq.TimeSignature{Numerator: 7, Denominator: 8}, true},
		{mixseq.TimeSignature{Numerator: 12, Denominator: 16}, true},
		{mixseq.TimeSignature{Numerator: 2, Denominator: 2}, true},
		{mixseq.TimeSignature{Numerator: 10, Denominator: 4}, false},
		{mixseq.TimeSignature{Numerator: 1, Denominator: 4}, false},
		{mixseq.TimeSignature{Numerator: 4, Denominator: 3}, false},
		{mixseq.TimeSignature{Numerator: 4, Denominator: 32}, false},
	}
	for _, tt := range tests {
		err := tt.sig.Validate()
		if tt.ok && err != nil {
			t.Errorf("%v: unexpected error %v", tt.sig, err)
		}
		var verr *mixseq.ValidationError
		if !tt.ok && !errors.As(err, &verr) {
			t.Errorf("%v: expected ValidationError, got %v", tt.sig, err)
		}
	}
}

func TestSongPos(t *testing.T) {
	sig := mixseq.TimeSignature{Numerator: 3, Denominator: 4}
	pos := sig.SongPos(29)
	if pos != (mixseq.SongPos{Bar: 2, Beat: 1, Sixteenth: 1}) {
		t.Fatalf("SongPos(29) in 3/4 = %v", pos)
	}
	if s := sig.Step(pos); s != 29 {
		t.Fatalf("Step(%v) = %d, expected 29", pos, s)
	}
	if pos.String() != "2:1:1" {
		t.Fatalf("unexpected string %q", pos.String())
	}
	if n := (mixseq.TimeSignature{Numerator: 7, Denominator: 8}).StepsPerBar(); n != 14 {
		t.Fatalf("7/8 should be 14 steps per bar, got %d", n)
	}
}

func TestValidateBPM(t *testing.T) {
	for _, bpm := range []float64{0, -10, math.NaN()} {
		if mixseq.ValidateBPM(bpm) == nil {
			t.Errorf("bpm %v should be rejected", bpm)
		}
	}
	if err := mixseq.ValidateBPM(0.5); err != nil {
		t.Errorf("bpm 0.5 should be accepted: %v", err)
	}
	if s := mixseq.SamplesPerStep(48000, 120); s != 6000 {
		t.Errorf("SamplesPerStep(48000, 120) = %v, expected 6000", s)
	}
}
