package oto

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/vsariola/mixseq"
)

type (
	// OtoContext is an audio output pulling its samples from a callback.
	// oto reads the audio from a player on its own goroutine, so the
	// callback is in effect the audio callback, and the samples it renders
	// are the audio clock of the session.
	OtoContext struct {
		context    *oto.Context
		sampleRate int
		format     oto.Format
		frames     int
	}

	OtoOutput struct {
		player *oto.Player
		reader *callbackReader
	}

	// callbackReader renders the samples with the callback and encodes them
	// to the format of the context.
	callbackReader struct {
		callback func(buf mixseq.AudioBuffer) error
		format   oto.Format
		buf      mixseq.AudioBuffer

		mu  sync.Mutex
		err error
	}
)

// NewContext creates the oto context. Only one context can exist in a
// process. The samples are 32-bit floats if useFloat is true and 16-bit signed
// integers otherwise; frames is the size of the device buffer.
func NewContext(sampleRate, frames int, useFloat bool) (*OtoContext, error) {
	format := oto.FormatSignedInt16LE
	if useFloat {
		format = oto.FormatFloat32LE
	}
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       format,
		BufferSize:   frameDuration(sampleRate, frames),
	}
	context, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &OtoContext{context: context, sampleRate: sampleRate, format: format, frames: frames}, nil
}

func (c *OtoContext) SampleRate() int { return c.sampleRate }

// Play starts pulling audio from callback. The callback is called from the
// oto goroutine; when it returns an error, the output stops and the error
// is returned by Close.
func (c *OtoContext) Play(callback func(buf mixseq.AudioBuffer) error) mixseq.AudioCloser {
	r := newCallbackReader(callback, c.format, c.frames)
	player := c.context.NewPlayer(r)
	player.SetBufferSize(c.frames * frameSize(c.format))
	player.Play()
	return &OtoOutput{player: player, reader: r}
}

func (c *OtoContext) Close() error {
	if err := c.context.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

// Close stops the output and disposes of its resources.
func (o *OtoOutput) Close() error {
	o.player.Pause()
	err := errors.Join(o.reader.Err(), o.player.Err())
	if cerr := o.player.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("cannot close oto player: %w", cerr))
	}
	return err
}

func newCallbackReader(callback func(buf mixseq.AudioBuffer) error, format oto.Format, frames int) *callbackReader {
	return &callbackReader{callback: callback, format: format, buf: make(mixseq.AudioBuffer, frames)}
}

// Read renders as many whole frames as fit in p. The buffer is reused
// between calls, so reading does not allocate after the first call.
func (r *callbackReader) Read(p []byte) (int, error) {
	if err := r.Err(); err != nil {
		return 0, err
	}
	n := len(p) / frameSize(r.format)
	if n == 0 {
		return 0, nil
	}
	if cap(r.buf) < n {
		r.buf = make(mixseq.AudioBuffer, n)
	}
	buf := r.buf[:n]
	if err := r.callback(buf); err != nil {
		r.mu.Lock()
		r.err = err
		r.mu.Unlock()
		return 0, err
	}
	if r.format == oto.FormatFloat32LE {
		return EncodeFloat32LE(p, buf), nil
	}
	return Encode16BitLE(p, buf), nil
}

func (r *callbackReader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func frameSize(format oto.Format) int {
	if format == oto.FormatFloat32LE {
		return 8
	}
	return 4
}
