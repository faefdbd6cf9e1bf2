package mixseq

type (
	// InstrumentID identifies an instrument in the instrument pool. Zero
	// means no instrument is assigned.
	InstrumentID int

	// Instrument is an opaque sound generating unit. The sequencer never
	// looks inside; it only triggers notes at a scheduled audio time (in
	// seconds of the audio clock, not wall-clock time) and sets parameters
	// from its declared parameter surface.
	Instrument interface {
		Trigger(note, velocity byte, at float64)
		SetParameter(name string, value float64) error
		Dispose() error
	}

	// Canceler is optionally implemented by instruments that queue triggers
	// scheduled in the future. CancelScheduled drops every trigger scheduled
	// at or after the given audio time. The transport calls it on stop.
	Canceler interface {
		CancelScheduled(after float64)
	}

	// Renderer is optionally implemented by instruments that produce output
	// of their own. The player calls Render once per audio block, after the
	// triggers scheduled inside the block have been dispatched; at is the
	// audio time of the first frame of buf. Render mixes into buf.
	Renderer interface {
		Render(buf AudioBuffer, at float64)
	}

	// AudioBuffer is a buffer of stereo samples, the unit the audio callback
	// renders.
	AudioBuffer [][2]float32

	// AudioContext is an audio output that calls the given callback every
	// time it needs more samples. Closing the returned io.Closer-like
	// AudioCloser stops the callbacks.
	AudioContext interface {
		Play(func(buf AudioBuffer) error) AudioCloser
		SampleRate() int
	}

	AudioCloser interface {
		Close() error
	}
)
