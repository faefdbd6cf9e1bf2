package gomidi

import (
	"errors"
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

type (
	// RTMIDIContext lists the MIDI output ports of the system and opens
	// them for instrument.MIDI.
	RTMIDIContext struct {
		driver             *rtmididrv.Driver
		outputDevices      []RTMIDIDevice
		devicesInitialized bool
		open               []drivers.Out
	}

	RTMIDIDevice struct {
		context *RTMIDIContext
		out     drivers.Out
	}
)

var ErrNoDriver = errors.New("no MIDI driver available")

// Open the driver.
func NewContext() *RTMIDIContext {
	m := RTMIDIContext{}
	// there's not much we can do if this fails, so just use m.driver = nil to
	// indicate no driver available
	m.driver, _ = rtmididrv.New()
	return &m
}

func (m *RTMIDIContext) OutputDevices(yield func(RTMIDIDevice) bool) {
	if !m.devicesInitialized {
		m.initOutputDevices()
	}
	for _, device := range m.outputDevices {
		if !yield(device) {
			break
		}
	}
}

func (m *RTMIDIContext) initOutputDevices() {
	if m.driver == nil {
		return
	}
	outs, err := m.driver.Outs()
	if err != nil {
		return
	}
	for _, out := range outs {
		m.outputDevices = append(m.outputDevices, RTMIDIDevice{context: m, out: out})
	}
	m.devicesInitialized = true
}

// Open opens the output port and returns a function sending messages to it.
// The port stays open until the context is closed.
func (d RTMIDIDevice) Open() (func(msg midi.Message) error, error) {
	if d.context.driver == nil {
		return nil, ErrNoDriver
	}
	if !d.out.IsOpen() {
		if err := d.out.Open(); err != nil {
			return nil, fmt.Errorf("opening MIDI output failed: %w", err)
		}
		d.context.open = append(d.context.open, d.out)
	}
	send, err := midi.SendTo(d.out)
	if err != nil {
		return nil, fmt.Errorf("opening MIDI output failed: %w", err)
	}
	return send, nil
}

func (d RTMIDIDevice) String() string {
	return d.out.String()
}

// OpenBy opens the first output port whose name contains name, ignoring
// case.
func (c *RTMIDIContext) OpenBy(name string) (func(msg midi.Message) error, error) {
	if c.driver == nil {
		return nil, ErrNoDriver
	}
	for output := range c.OutputDevices {
		if strings.Contains(strings.ToLower(output.String()), strings.ToLower(name)) {
			return output.Open()
		}
	}
	return nil, fmt.Errorf("could not find a MIDI output matching %q", name)
}

func (c *RTMIDIContext) Close() error {
	if c.driver == nil {
		return nil
	}
	var errs []error
	for _, out := range c.open {
		if out.IsOpen() {
			errs = append(errs, out.Close())
		}
	}
	c.open = nil
	errs = append(errs, c.driver.Close())
	return errors.Join(errs...)
}
