//go:build cgo

package cmd

import (
	"io"

	"github.com/vsariola/mixseq/tracker/gomidi"
	"gitlab.com/gomidi/midi/v2"
)

// OpenMIDIOutput opens the first MIDI output port whose name contains port.
// Closing the returned closer closes the port and the driver.
func OpenMIDIOutput(port string) (func(msg midi.Message) error, io.Closer, error) {
	context := gomidi.NewContext()
	send, err := context.OpenBy(port)
	if err != nil {
		context.Close()
		return nil, nil, err
	}
	return send, context, nil
}
