package instrument

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/viterin/vek/vek32"
	"github.com/vsariola/mixseq"
)

type (
	// Decoder turns a file handle into samples. Decoding is left entirely to
	// the decoder: the bank never reads files itself. A decoder returns
	// ErrUnsupported for handles it does not know how to decode, e.g. a text
	// file in a sample directory.
	Decoder interface {
		Decode(handle string) (Sample, error)
	}

	// DecoderFunc adapts a function to the Decoder interface.
	DecoderFunc func(handle string) (Sample, error)

	// Sample is a decoded stereo sample.
	Sample struct {
		SampleRate int
		Frames     mixseq.AudioBuffer
	}

	// Bank keeps the samples loaded from directories, each registered as a
	// Sampler in the instrument pool.
	Bank struct {
		pool       *Pool
		sampleRate int
		entries    []BankEntry
		tmp        []float32
	}

	// BankEntry describes one loaded sample.
	BankEntry struct {
		Handle   string
		ID       mixseq.InstrumentID
		Peak     float32 // absolute peak before normalization, 1 = full scale
		Norm     float32 // gain that brings the peak to NormalizedPeak
		Duration float64 // seconds
	}
)

var ErrUnsupported = errors.New("unsupported sample format")

// NormalizedPeak is the level the bank normalizes every sample to, about
// -1 dBFS.
const NormalizedPeak = 0.891

func (f DecoderFunc) Decode(handle string) (Sample, error) { return f(handle) }

func NewBank(pool *Pool, sampleRate int) *Bank {
	return &Bank{pool: pool, sampleRate: sampleRate}
}

// LoadDirectory decodes every handle with dec and registers a normalized
// Sampler in the pool for each of them. Handles are processed in sorted
// order, so the ids are stable for the same directory. Handles the decoder
// does not support are skipped; other failures do not stop the loading,
// but are joined into the returned error. The entries that were loaded are
// returned even if err != nil.
func (b *Bank) LoadDirectory(handles []string, dec Decoder) ([]BankEntry, error) {
	sorted := append([]string(nil), handles...)
	sort.Strings(sorted)
	var (
		loaded []BankEntry
		errs   []error
	)
	for _, h := range sorted {
		s, err := dec.Decode(h)
		if errors.Is(err, ErrUnsupported) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("could not decode %s: %w", h, err))
			continue
		}
		if s.SampleRate != b.sampleRate {
			errs = append(errs, fmt.Errorf("%s: sample rate %d differs from the output rate %d", h, s.SampleRate, b.sampleRate))
			continue
		}
		if len(s.Frames) == 0 {
			errs = append(errs, fmt.Errorf("%s: empty sample", h))
			continue
		}
		peak := b.peak(s.Frames)
		e := BankEntry{
			Handle:   h,
			Peak:     peak,
			Norm:     1,
			Duration: float64(len(s.Frames)) / float64(s.SampleRate),
		}
		if peak > 0 {
			e.Norm = NormalizedPeak / peak
		}
		e.ID = b.pool.Add(NewSampler(h, s.Frames, s.SampleRate, e.Norm))
		b.entries = append(b.entries, e)
		loaded = append(loaded, e)
	}
	return loaded, errors.Join(errs...)
}

// Entries returns all the samples loaded so far.
func (b *Bank) Entries() []BankEntry {
	return append([]BankEntry(nil), b.entries...)
}

// Lookup finds the latest loaded sample with the given handle.
func (b *Bank) Lookup(handle string) (BankEntry, bool) {
	for i := len(b.entries) - 1; i >= 0; i-- {
		if b.entries[i].Handle == handle {
			return b.entries[i], true
		}
	}
	return BankEntry{}, false
}

// peak returns the absolute peak over both channels.
func (b *Bank) peak(frames mixseq.AudioBuffer) float32 {
	if len(b.tmp) < len(frames) {
		b.tmp = append(b.tmp, make([]float32, len(frames)-len(b.tmp))...)
	}
	var ret float32
	for chn := range 2 {
		// deinterleave the channel
		for i := range frames {
			b.tmp[i] = frames[i][chn]
		}
		o := b.tmp[:len(frames)]
		vek32.Abs_Inplace(o)
		if p := vek32.Max(o); p > ret && !math.IsInf(float64(p), 0) {
			ret = p
		}
	}
	return ret
}
