package instrument

import (
	"sync"

	"github.com/vsariola/mixseq"
)

type (
	// Recorder is an instrument that makes no sound but remembers everything
	// it was asked to do. It stands in for a real instrument when rendering
	// a session without an audio device, and in tests.
	Recorder struct {
		mu        sync.Mutex
		triggers  []Trigger
		params    map[string]float64
		cancels   []float64
		disposed  bool
		DisposeFn func() error // optional; called by Dispose
	}

	// Trigger is one note the Recorder received.
	Trigger struct {
		Note     byte
		Velocity byte
		At       float64
	}
)

func NewRecorder() *Recorder {
	return &Recorder{params: map[string]float64{}}
}

func (r *Recorder) Trigger(note, velocity byte, at float64) {
	r.mu.Lock()
	r.triggers = append(r.triggers, Trigger{Note: note, Velocity: velocity, At: at})
	r.mu.Unlock()
}

func (r *Recorder) SetParameter(name string, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return mixseq.ErrDisposed
	}
	r.params[name] = value
	return nil
}

// CancelScheduled forgets the triggers at or after the given time, like an
// instrument with a queue would.
func (r *Recorder) CancelScheduled(after float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels = append(r.cancels, after)
	kept := r.triggers[:0]
	for _, t := range r.triggers {
		if t.At < after {
			kept = append(kept, t)
		}
	}
	r.triggers = kept
}

func (r *Recorder) Dispose() error {
	r.mu.Lock()
	r.disposed = true
	f := r.DisposeFn
	r.mu.Unlock()
	if f != nil {
		return f()
	}
	return nil
}

// Triggers returns a copy of the received triggers, in the order received.
func (r *Recorder) Triggers() []Trigger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Trigger(nil), r.triggers...)
}

// Cancels returns the times CancelScheduled was called with.
func (r *Recorder) Cancels() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.cancels...)
}

func (r *Recorder) Parameter(name string) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.params[name]
	return v, ok
}

func (r *Recorder) Disposed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disposed
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.triggers = nil
	r.cancels = nil
	r.mu.Unlock()
}
