package cmd

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/vsariola/mixseq"
	"github.com/vsariola/mixseq/instrument"
)

// SampleHandles lists the files of dir in fsys, as handles for WavDecoder.
func SampleHandles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("could not list samples: %w", err)
	}
	var handles []string
	for _, e := range entries {
		if !e.IsDir() {
			handles = append(handles, path.Join(dir, e.Name()))
		}
	}
	return handles, nil
}

// WavDecoder decodes .wav files of fsys. Handles with other extensions are
// not supported.
func WavDecoder(fsys fs.FS) instrument.Decoder {
	return instrument.DecoderFunc(func(handle string) (instrument.Sample, error) {
		if !strings.EqualFold(path.Ext(handle), ".wav") {
			return instrument.Sample{}, instrument.ErrUnsupported
		}
		data, err := fs.ReadFile(fsys, handle)
		if err != nil {
			return instrument.Sample{}, err
		}
		frames, sampleRate, err := mixseq.DecodeWav(data)
		if err != nil {
			return instrument.Sample{}, err
		}
		return instrument.Sample{SampleRate: sampleRate, Frames: frames}, nil
	})
}
