package tracker

import (
	"math"
	"time"

	"github.com/vsariola/mixseq"
)

type (
	// Player is the transport of the session: a state machine that plays
	// the step sequence tracks of the current graph snapshot. It runs in the
	// audio callback: the audio output calls Process for every block, and
	// the player fires a tick at the exact frame of every step boundary,
	// triggering the instruments with the audio time of the boundary. It is
	// controlled by messages from the model via the broker and sends its
	// status back the same way; all sends are non-blocking.
	Player struct {
		clock       Clock
		instruments Instruments
		broker      *Broker
		metrics     *Metrics

		state       TransportState
		bpm         float64
		patternLoop bool
		loop        Loop
		lookahead   float64 // in frames

		currentStep int     // the step the next tick plays
		songStep    int     // song position of the next tick
		playedStep  int     // the step being heard in the last block, -1 if none
		ending      bool    // the last step was played, stop at the next boundary
		nextTick    float64 // frame of the next step boundary
		lastTick    float64
		pauseOffset float64 // frames from the pause to the next boundary

		pending   pendingTicks
		mask      []bool
		triggered uint64
		missing   bool
	}

	// Instruments is where the player finds the instruments of the tracks,
	// usually an *instrument.Pool. Get is called from the audio callback and
	// must not block.
	Instruments interface {
		Get(id mixseq.InstrumentID) (mixseq.Instrument, bool)
		All(yield func(mixseq.InstrumentID, mixseq.Instrument) bool)
	}

	TransportState int

	// Loop is the song loop region, in song steps: when enabled, reaching
	// End moves the song position back to Start without stopping.
	Loop struct {
		Enabled    bool
		Start, End int
	}

	PlayMsg        struct{}
	PauseMsg       struct{}
	StopMsg        struct{}
	BPMMsg         struct{ float64 }
	PatternLoopMsg struct{ bool }
	LoopMsg        struct{ Loop }

	pendingTick struct {
		frame    float64
		step     int
		songStep int
	}

	// pendingTicks is a fixed size ring of the ticks fired ahead of the
	// render position, kept until the render position has passed them.
	pendingTicks struct {
		buf   [maxPendingTicks]pendingTick
		start int
		n     int
	}
)

const (
	Stopped TransportState = iota
	Playing
	Paused
)

const maxPendingTicks = 64

var transportStateNames = [...]string{"stopped", "playing", "paused"}

func (s TransportState) String() string {
	if s < 0 || int(s) >= len(transportStateNames) {
		return "unknown"
	}
	return transportStateNames[s]
}

// Validate returns a ValidationError if the loop is enabled and does not
// have a positive length.
func (l Loop) Validate() error {
	if !l.Enabled {
		return nil
	}
	if l.Start < 0 {
		return &mixseq.ValidationError{Op: "SetLoop", Field: "start", Value: l.Start, Rule: "non-negative"}
	}
	if l.End <= l.Start {
		return &mixseq.ValidationError{Op: "SetLoop", Field: "end", Value: l.End, Rule: "greater than start"}
	}
	return nil
}

// NewPlayer returns a stopped player at the default tempo. Triggers are
// scheduled lookahead ahead of the render position.
func NewPlayer(broker *Broker, instruments Instruments, sampleRate int, lookahead time.Duration, metrics *Metrics) *Player {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Player{
		clock:       Clock{SampleRate: sampleRate},
		instruments: instruments,
		broker:      broker,
		metrics:     metrics,
		bpm:         mixseq.DefaultBPM,
		patternLoop: true,
		lookahead:   lookahead.Seconds() * float64(sampleRate),
		playedStep:  -1,
		lastTick:    math.Inf(-1),
	}
}

// Process advances the transport by one audio block. It handles the
// messages from the model, fires the ticks of the step boundaries falling in
// the block (or within the lookahead after it), lets the instruments
// implementing mixseq.Renderer render into buf, and reports the status to
// the model. buf is cleared first.
func (p *Player) Process(buf mixseq.AudioBuffer) {
	start := time.Now()
	p.processMessages()
	g := p.broker.Graph.Load()
	blockStart := float64(p.clock.Frame)
	blockEnd := blockStart + float64(len(buf))
	p.pending.drop(blockStart)
	clear(buf)
	p.triggered = 0
	for p.state == Playing && p.nextTick < blockEnd+p.lookahead && !p.pending.full() {
		p.tick(g)
	}
	if t, ok := p.pending.lastBefore(blockEnd); ok {
		p.playedStep = t.step
	}
	blockTime := p.clock.Time()
	for _, inst := range p.instruments.All {
		if r, ok := inst.(mixseq.Renderer); ok {
			r.Render(buf, blockTime)
		}
	}
	p.clock.Advance(len(buf))
	p.send(nil)
	p.metrics.TickWork.Observe(time.Since(start).Seconds())
}

// Status returns the current state of the transport. It must be called
// from the goroutine calling Process.
func (p *Player) Status() PlayerStatus {
	return PlayerStatus{
		State:       p.state,
		BPM:         p.bpm,
		CurrentStep: p.currentStep,
		PlayedStep:  p.playedStep,
		SongStep:    p.songStep,
		Frame:       p.clock.Frame,
	}
}

// Pending returns the number of ticks fired ahead that the render position
// has not passed yet.
func (p *Player) Pending() int { return p.pending.Len() }

func (p *Player) processMessages() {
loop:
	for { // process new message
		select {
		case msg := <-p.broker.ToPlayer:
			switch m := msg.(type) {
			case PlayMsg:
				p.play()
			case PauseMsg:
				p.pause()
			case StopMsg:
				p.stop(float64(p.clock.Frame))
			case BPMMsg:
				p.setBPM(m.float64)
			case PatternLoopMsg:
				p.patternLoop = m.bool
			case LoopMsg:
				if m.Loop.Validate() == nil {
					p.loop = m.Loop
				}
			default:
				// ignore unknown messages
			}
		default:
			break loop
		}
	}
}

func (p *Player) play() {
	now := float64(p.clock.Frame)
	switch p.state {
	case Paused:
		p.state = Playing
		p.nextTick = now + p.pauseOffset
		p.lastTick = p.nextTick - mixseq.SamplesPerStep(p.clock.SampleRate, p.bpm)
		return
	case Playing:
		p.stop(now)
	}
	p.state = Playing
	p.currentStep, p.songStep = 0, 0
	p.ending = false
	p.nextTick = now
	p.lastTick = math.Inf(-1)
}

// pause stops the transport but keeps its position. The ticks fired ahead
// that have not been heard yet are cancelled and will be fired again on
// resume.
func (p *Player) pause() {
	if p.state != Playing {
		return
	}
	now := float64(p.clock.Frame)
	if t, ok := p.pending.firstFrom(now); ok {
		p.currentStep, p.songStep = t.step, t.songStep
		p.nextTick = t.frame
		p.ending = false
	}
	p.pending.clear()
	p.cancelScheduled(now)
	p.pauseOffset = max(p.nextTick-now, 0)
	p.state = Paused
}

// stop resets the position and cancels every trigger scheduled at or after
// frame, whatever the state was.
func (p *Player) stop(frame float64) {
	p.state = Stopped
	p.currentStep, p.songStep = 0, 0
	p.playedStep = -1
	p.ending = false
	p.missing = false
	p.pending.clear()
	p.cancelScheduled(frame)
}

func (p *Player) setBPM(bpm float64) {
	if mixseq.ValidateBPM(bpm) != nil {
		return
	}
	p.bpm = bpm
	if p.state == Playing {
		// the boundary following the last tick moves to the new tempo
		p.nextTick = max(p.lastTick+mixseq.SamplesPerStep(p.clock.SampleRate, bpm), float64(p.clock.Frame))
	}
}

func (p *Player) tick(g *mixseq.Graph) {
	frame := p.nextTick
	if p.ending {
		p.stop(frame)
		return
	}
	numSteps := mixseq.DefaultNumSteps
	if g != nil {
		numSteps = g.NumSteps
		p.currentStep %= numSteps // the graph may have been resized
		p.trigger(g, p.clock.FrameTime(frame))
	}
	p.metrics.Ticks.Inc()
	p.pending.push(pendingTick{frame: frame, step: p.currentStep, songStep: p.songStep})
	p.lastTick = frame
	p.nextTick = frame + mixseq.SamplesPerStep(p.clock.SampleRate, p.bpm)
	p.advance(numSteps)
}

// trigger dispatches the active steps at the current step of every audible
// step sequence track. Missing instruments are skipped.
func (p *Player) trigger(g *mixseq.Graph, at float64) {
	p.mask = g.AudibleMask(p.mask)
	for i := range g.Tracks {
		t := &g.Tracks[i]
		if t.Content != mixseq.StepSequence || !p.mask[i] || p.currentStep >= len(t.Steps) {
			continue
		}
		s := t.Steps[p.currentStep]
		if !s.Active {
			continue
		}
		inst, ok := p.instruments.Get(t.Instrument)
		if !ok {
			p.metrics.MissingInstruments.Inc()
			if !p.missing {
				p.missing = true
				p.SendAlert("MissingInstrument", "a track plays an instrument that is not loaded", Warning)
			}
			continue
		}
		inst.Trigger(s.Note, s.Velocity, at)
		p.metrics.Triggers.Inc()
		if i < 64 {
			p.triggered |= 1 << i
		}
	}
}

func (p *Player) advance(numSteps int) {
	p.songStep++
	if p.loop.Enabled && p.songStep >= p.loop.End {
		p.songStep = p.loop.Start
		p.currentStep = p.loop.Start % numSteps
		return
	}
	if p.patternLoop || p.currentStep < numSteps-1 {
		p.currentStep = (p.currentStep + 1) % numSteps
		return
	}
	p.ending = true
}

func (p *Player) cancelScheduled(frame float64) {
	at := p.clock.FrameTime(frame)
	for _, inst := range p.instruments.All {
		if c, ok := inst.(mixseq.Canceler); ok {
			c.CancelScheduled(at)
		}
	}
}

func (p *Player) SendAlert(name, message string, priority AlertPriority) {
	p.send(Alert{
		Name:     name,
		Priority: priority,
		Message:  message,
		Duration: defaultAlertDuration,
	})
}

// all sends from player are always non-blocking, to ensure that the player
// thread cannot end up in a dead-lock
func (p *Player) send(data any) {
	TrySend(p.broker.ToModel, MsgToModel{
		HasStatus: true,
		Status:    p.Status(),
		Triggered: p.triggered,
		Data:      data,
	})
}

func (q *pendingTicks) full() bool { return q.n == len(q.buf) }

func (q *pendingTicks) push(t pendingTick) {
	if q.full() {
		return
	}
	q.buf[(q.start+q.n)%len(q.buf)] = t
	q.n++
}

// drop forgets the ticks before frame, which have been rendered.
func (q *pendingTicks) drop(frame float64) {
	for q.n > 0 && q.buf[q.start].frame < frame {
		q.start = (q.start + 1) % len(q.buf)
		q.n--
	}
}

func (q *pendingTicks) clear() {
	q.start, q.n = 0, 0
}

// Len returns the number of pending ticks.
func (q *pendingTicks) Len() int { return q.n }

// firstFrom returns the first tick at or after frame.
func (q *pendingTicks) firstFrom(frame float64) (pendingTick, bool) {
	for i := range q.n {
		t := q.buf[(q.start+i)%len(q.buf)]
		if t.frame >= frame {
			return t, true
		}
	}
	return pendingTick{}, false
}

// lastBefore returns the last tick before frame.
func (q *pendingTicks) lastBefore(frame float64) (pendingTick, bool) {
	for i := q.n - 1; i >= 0; i-- {
		t := q.buf[(q.start+i)%len(q.buf)]
		if t.frame < frame {
			return t, true
		}
	}
	return pendingTick{}, false
}
