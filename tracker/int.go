package tracker

import (
	"math"

	"github.com/vsariola/mixseq"
)

type (
	Int struct {
		IntData
	}

	IntData interface {
		Value() int
		Range() intRange

		setValue(int) error
	}

	intRange struct {
		Min, Max int
	}

	Tempo     Model
	StepCount Model
	UndoDepth Model
)

func (v Int) Add(delta int) (ok bool) {
	return v.Set(v.Value() + delta)
}

// Set clamps value to the range and sets it. ok is false if the value did
// not change.
func (v Int) Set(value int) (ok bool) {
	r := v.Range()
	value = r.Clamp(value)
	if value == v.Value() || value < r.Min || value > r.Max {
		return false
	}
	return v.setValue(value) == nil
}

func (r intRange) Clamp(value int) int {
	return max(min(value, r.Max), r.Min)
}

// Model methods

func (m *Model) Tempo() *Tempo         { return (*Tempo)(m) }
func (m *Model) StepCount() *StepCount { return (*StepCount)(m) }
func (m *Model) UndoDepth() *UndoDepth { return (*UndoDepth)(m) }

// Tempo methods

func (v *Tempo) Int() Int                 { return Int{v} }
func (v *Tempo) Value() int               { return int(math.Round(v.bpm)) }
func (v *Tempo) setValue(value int) error { return (*Model)(v).SetBPM(float64(value)) }
func (v *Tempo) Range() intRange          { return intRange{mixseq.MinBPM, mixseq.MaxBPM} }

// StepCount methods

func (v *StepCount) Int() Int                 { return Int{v} }
func (v *StepCount) Value() int               { return v.graph.NumSteps }
func (v *StepCount) setValue(value int) error { return (*Model)(v).ResizeSteps(value) }
func (v *StepCount) Range() intRange          { return intRange{mixseq.MinNumSteps, 64} }

// UndoDepth methods

func (v *UndoDepth) Int() Int                 { return Int{v} }
func (v *UndoDepth) Value() int               { return v.history.Capacity() }
func (v *UndoDepth) setValue(value int) error { return v.history.SetCapacity(value) }
func (v *UndoDepth) Range() intRange          { return intRange{1, 1000} }
