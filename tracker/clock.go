package tracker

// Clock is the shared transport clock. It counts the frames the audio
// output has rendered, so its time is the audio time the instruments are
// scheduled against; it never looks at the wall clock.
type Clock struct {
	SampleRate int
	Frame      int64
}

// Time returns the audio time of the next frame to be rendered, in seconds.
func (c *Clock) Time() float64 {
	return c.FrameTime(float64(c.Frame))
}

// FrameTime converts a (fractional) frame position to seconds.
func (c *Clock) FrameTime(frame float64) float64 {
	return frame / float64(c.SampleRate)
}

func (c *Clock) Advance(frames int) {
	c.Frame += int64(frames)
}
