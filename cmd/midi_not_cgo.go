//go:build !cgo

package cmd

import (
	"errors"
	"io"

	"gitlab.com/gomidi/midi/v2"
)

// OpenMIDIOutput always fails: with no cgo, there is no MIDI driver.
func OpenMIDIOutput(port string) (func(msg midi.Message) error, io.Closer, error) {
	return nil, nil, errors.New("MIDI output is not available in builds without cgo")
}
