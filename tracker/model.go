package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vsariola/mixseq"
	"github.com/vsariola/mixseq/instrument"
	"golang.org/x/time/rate"
)

type (
	// Model is the control surface of a session. It owns the current graph
	// snapshot and the command history, and mirrors the transport state
	// reported by the player. Everything the UI or any other control layer
	// does goes through the model: transport changes are sent to the player
	// as messages, graph changes are executed as commands and the resulting
	// snapshot is published to the player atomically.
	//
	// Model is not safe for concurrent use. All its methods must be called
	// from a single control goroutine, the one running ProcessMsg; other
	// goroutines can use Post.
	Model struct {
		broker  *Broker
		graph   *mixseq.Graph
		history *History
		pool    *instrument.Pool
		bank    *instrument.Bank
		log     *slog.Logger
		metrics *Metrics
		alerts  Alerts
		tap     TapTempo
		meter   *Meter
		timers  *timers
		now     func() time.Time

		sampleRate  int
		status      PlayerStatus
		bpm         float64
		sig         mixseq.TimeSignature
		loop        Loop
		patternLoop bool

		visualStep  int
		visualLimit rate.Sometimes
		closed      bool
	}

	ModelOptions struct {
		SampleRate   int
		UndoCapacity int
		Logger       *slog.Logger
		Metrics      *Metrics
		// VisualInterval is the minimum interval between updates of
		// VisualStep while playing.
		VisualInterval time.Duration
		MeterHalfLife  time.Duration
		// Now is the wall clock used for tap tempo; nil means time.Now.
		Now func() time.Time
	}

	// TransportStatus is the transport state as shown to the user.
	TransportStatus struct {
		State         TransportState
		BPM           float64
		CurrentStep   int
		SongPos       mixseq.SongPos
		TimeSignature mixseq.TimeSignature
		Loop          Loop
		PatternLoop   bool
	}

	// postedFunc is a function posted to the control goroutine.
	postedFunc func()
)

const (
	DefaultVisualInterval = 30 * time.Millisecond
	DefaultSampleRate     = 44100

	tapTimer  = "tap"
	peakTimer = "peaks"
	peakHold  = 1500 * time.Millisecond
)

// NewModel returns a model controlling the session g. The instruments of
// the tracks are looked up from pool, and the bank loading samples
// registers its samplers in it too.
func NewModel(broker *Broker, pool *instrument.Pool, g *mixseq.Graph, opts ModelOptions) *Model {
	if opts.SampleRate <= 0 {
		opts.SampleRate = DefaultSampleRate
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	if opts.VisualInterval <= 0 {
		opts.VisualInterval = DefaultVisualInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m := &Model{
		broker:      broker,
		pool:        pool,
		bank:        instrument.NewBank(pool, opts.SampleRate),
		log:         opts.Logger,
		metrics:     opts.Metrics,
		meter:       NewMeter(opts.MeterHalfLife),
		timers:      newTimers(broker.ToModel),
		now:         opts.Now,
		sampleRate:  opts.SampleRate,
		bpm:         mixseq.DefaultBPM,
		sig:         mixseq.DefaultTimeSignature,
		patternLoop: true,
		visualStep:  -1,
		visualLimit: rate.Sometimes{First: 1, Interval: opts.VisualInterval},
		status:      PlayerStatus{BPM: mixseq.DefaultBPM, PlayedStep: -1},
	}
	m.history = NewHistory(m, opts.UndoCapacity)
	m.SetGraph(g)
	return m
}

// Graph returns the current snapshot.
func (m *Model) Graph() *mixseq.Graph { return m.graph }

// SetGraph makes g the current snapshot and publishes it to the player.
// History calls it after every command.
func (m *Model) SetGraph(g *mixseq.Graph) {
	m.graph = g
	m.broker.Graph.Store(g)
	m.meter.Resize(len(g.Tracks))
}

func (m *Model) History() *History { return m.history }
func (m *Model) Alerts() *Alerts   { return &m.alerts }
func (m *Model) Bank() *instrument.Bank {
	return m.bank
}

// Execute runs cmd through the history, so that it can be undone.
func (m *Model) Execute(cmd Command) error {
	if err := m.history.Execute(cmd); err != nil {
		m.log.Warn("command failed", "op", cmd.Op(), "err", err)
		return err
	}
	m.metrics.Commands.WithLabelValues(cmd.Op()).Inc()
	m.log.Debug("command executed", "op", cmd.Op())
	return nil
}

func (m *Model) Undo() error {
	if err := m.history.Undo(); err != nil {
		m.log.Warn("undo failed", "err", err)
		return err
	}
	return nil
}

func (m *Model) Redo() error {
	if err := m.history.Redo(); err != nil {
		m.log.Warn("redo failed", "err", err)
		return err
	}
	return nil
}

// Transport

func (m *Model) Play() {
	m.status.State = Playing
	m.send(PlayMsg{})
}

func (m *Model) Pause() {
	if m.status.State == Playing {
		m.status.State = Paused
	}
	m.send(PauseMsg{})
}

func (m *Model) Stop() {
	m.status.State = Stopped
	m.status.CurrentStep, m.status.SongStep, m.status.PlayedStep = 0, 0, -1
	m.visualStep = -1
	m.send(StopMsg{})
}

// SetBPM changes the tempo. A playing transport switches to the new tempo
// at the next step boundary.
func (m *Model) SetBPM(bpm float64) error {
	if err := mixseq.ValidateBPM(bpm); err != nil {
		return err
	}
	m.bpm = bpm
	m.send(BPMMsg{bpm})
	return nil
}

func (m *Model) BPM() float64 { return m.bpm }

// SetTimeSignature sets the meter used to show the song position.
func (m *Model) SetTimeSignature(sig mixseq.TimeSignature) error {
	if err := sig.Validate(); err != nil {
		return err
	}
	m.sig = sig
	return nil
}

// SetLoop sets the song loop region, in song steps.
func (m *Model) SetLoop(enabled bool, start, end int) error {
	l := Loop{Enabled: enabled, Start: start, End: end}
	if err := l.Validate(); err != nil {
		return err
	}
	m.loop = l
	m.send(LoopMsg{l})
	return nil
}

// SetPatternLoop chooses whether the pattern repeats or the transport stops
// after the last step.
func (m *Model) SetPatternLoop(enabled bool) {
	m.patternLoop = enabled
	m.send(PatternLoopMsg{enabled})
}

// Tap records a tempo tap now. When the taps give a tempo, it becomes the
// tempo of the session and is returned with true.
func (m *Model) Tap() (float64, bool) {
	bpm, ok := m.tap.Tap(m.now())
	m.timers.after(tapTimer, TapTimeout, m.tap.Reset)
	if !ok {
		return 0, false
	}
	if err := m.SetBPM(bpm); err != nil {
		return 0, false
	}
	return bpm, true
}

// TapCount returns the number of taps in the current tempo measurement.
func (m *Model) TapCount() int { return m.tap.Count() }

// Status returns the transport state, as last reported by the player.
func (m *Model) Status() TransportStatus {
	return TransportStatus{
		State:         m.status.State,
		BPM:           m.bpm,
		CurrentStep:   m.status.CurrentStep,
		SongPos:       m.sig.SongPos(m.status.SongStep),
		TimeSignature: m.sig,
		Loop:          m.loop,
		PatternLoop:   m.patternLoop,
	}
}

// VisualStep returns the step to highlight, -1 if none. While playing it is
// updated at most once per VisualInterval.
func (m *Model) VisualStep() int { return m.visualStep }

// Levels returns the track activity levels and their held peaks, indexed by
// track order.
func (m *Model) Levels() (levels, peaks []float32) { return m.meter.Levels() }

// Activity returns the highest current track level, for a session wide
// activity indicator.
func (m *Model) Activity() float32 { return m.meter.Loudest() }

// Tracks

func (m *Model) CreateTrack(kind mixseq.TrackKind, content mixseq.ContentKind, name string) (mixseq.TrackID, error) {
	cmd := &CreateTrack{Kind: kind, Content: content, Name: name}
	if err := m.Execute(cmd); err != nil {
		return 0, err
	}
	return cmd.TrackID(), nil
}

func (m *Model) CreateReturnTrack(name string) (mixseq.TrackID, error) {
	cmd := &CreateReturnTrack{Name: name}
	if err := m.Execute(cmd); err != nil {
		return 0, err
	}
	return cmd.TrackID(), nil
}

func (m *Model) CreateChain(name string, instr mixseq.InstrumentID) (mixseq.TrackID, error) {
	cmd := &CreateChain{Name: name, Instrument: instr}
	if err := m.Execute(cmd); err != nil {
		return 0, err
	}
	return cmd.TrackID(), nil
}

func (m *Model) CreateSoundChain(name string, instr mixseq.InstrumentID) (mixseq.TrackID, error) {
	cmd := &CreateSoundChain{Name: name, Instrument: instr}
	if err := m.Execute(cmd); err != nil {
		return 0, err
	}
	return cmd.TrackID(), nil
}

func (m *Model) DeleteTrack(id mixseq.TrackID) error {
	return m.Execute(&DeleteTrack{ID: id})
}

func (m *Model) MoveTrack(id mixseq.TrackID, to int) error {
	return m.Execute(&MoveTrack{ID: id, To: to})
}

func (m *Model) RenameTrack(id mixseq.TrackID, name string) error {
	return m.Execute(&RenameTrack{ID: id, Name: name})
}

func (m *Model) ToggleMute(id mixseq.TrackID) error { return m.Execute(&ToggleMute{ID: id}) }
func (m *Model) ToggleSolo(id mixseq.TrackID) error { return m.Execute(&ToggleSolo{ID: id}) }

func (m *Model) SetVolume(id mixseq.TrackID, decibels float64) error {
	return m.Execute(&SetVolume{ID: id, Decibels: decibels})
}

func (m *Model) SetPan(id mixseq.TrackID, pan float64) error {
	return m.Execute(&SetPan{ID: id, Pan: pan})
}

func (m *Model) CreateSend(source, ret mixseq.TrackID, name string, amount float64) (mixseq.SendID, error) {
	cmd := &CreateSend{Source: source, Return: ret, Name: name, Amount: amount}
	if err := m.Execute(cmd); err != nil {
		return 0, err
	}
	return cmd.SendID(), nil
}

func (m *Model) ToggleStep(track mixseq.TrackID, index int) error {
	return m.Execute(&ToggleStep{Track: track, Index: index})
}

// ResizeSteps changes the number of steps of every step sequence track.
// Resizing is not a command: it cannot be undone, and it clears the history
// because the recorded commands refer to the old step layout.
func (m *Model) ResizeSteps(numSteps int) error {
	g, err := mixseq.ResizeSteps(m.graph, numSteps)
	if err != nil {
		return err
	}
	m.SetGraph(g)
	m.history.Clear()
	m.log.Info("steps resized", "steps", numSteps)
	return nil
}

// LoadDirectory decodes the sample files of a directory with dec and
// registers them as sampler instruments. Files the decoder does not support
// are skipped; the other failures are returned joined, after loading
// everything else.
func (m *Model) LoadDirectory(handles []string, dec instrument.Decoder) ([]instrument.BankEntry, error) {
	entries, err := m.bank.LoadDirectory(handles, dec)
	m.log.Info("samples loaded", "loaded", len(entries), "files", len(handles))
	if err != nil {
		m.log.Warn("loading samples failed", "err", err)
		m.alerts.AddNamed("LoadDirectory", fmt.Sprintf("Some samples could not be loaded: %v", err), Warning)
	}
	return entries, err
}

// Messages

// Post runs f on the control goroutine. It blocks if the message queue of
// the model is full.
func (m *Model) Post(f func()) {
	m.broker.ToModel <- MsgToModel{Data: postedFunc(f)}
}

// ProcessMsg handles a message sent to the model: player status, alerts,
// timer callbacks and posted functions.
func (m *Model) ProcessMsg(msg MsgToModel) {
	if msg.HasStatus {
		m.processStatus(msg.Status, msg.Triggered)
	}
	switch d := msg.Data.(type) {
	case nil:
	case Alert:
		m.alerts.AddAlert(d)
		m.log.Warn("player alert", "name", d.Name, "priority", d.Priority, "message", d.Message)
	case timerMsg:
		m.timers.fire(d)
	case postedFunc:
		d()
	default:
		m.log.Debug("unknown message", "type", fmt.Sprintf("%T", d))
	}
}

func (m *Model) processStatus(s PlayerStatus, triggered uint64) {
	if d := s.Frame - m.status.Frame; d > 0 {
		m.meter.Decay(time.Duration(d) * time.Second / time.Duration(m.sampleRate))
	}
	if triggered != 0 {
		for i := range min(len(m.graph.Tracks), 64) {
			if triggered&(1<<i) != 0 {
				m.meter.Hit(i, stepLevel(m.graph, i, s.PlayedStep))
			}
		}
		if !m.timers.running(peakTimer) {
			m.timers.after(peakTimer, peakHold, m.meter.ClearPeaks)
		}
	}
	m.status = s
	if s.State != Playing {
		m.visualStep = s.PlayedStep
		return
	}
	m.visualLimit.Do(func() { m.visualStep = s.PlayedStep })
}

// Run processes the messages to the model until ctx is done or the model is
// asked to quit via the broker.
func (m *Model) Run(ctx context.Context) {
	defer close(m.broker.FinishedModel)
	for {
		select {
		case msg := <-m.broker.ToModel:
			m.ProcessMsg(msg)
		case <-m.broker.CloseModel:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Close stops the transport and the timers and disposes the effects of the
// session graph. Closing twice does nothing.
func (m *Model) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	m.timers.stopAll()
	m.send(StopMsg{})
	if err := mixseq.Dispose(m.graph); err != nil {
		m.log.Error("disposing the session failed", "err", err)
		return err
	}
	return nil
}

func (m *Model) send(msg any) {
	if !TrySend(m.broker.ToPlayer, msg) {
		m.log.Warn("player message queue full, message dropped", "msg", fmt.Sprintf("%T", msg))
	}
}

// stepLevel is the meter level of a note of track i, from the velocity of
// the step being played.
func stepLevel(g *mixseq.Graph, i, step int) float32 {
	t := &g.Tracks[i]
	if step < 0 || step >= len(t.Steps) || !t.Steps[step].Active {
		return 1
	}
	return float32(t.Steps[step].Velocity) / 127
}
