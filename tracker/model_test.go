package tracker_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/vsariola/mixseq"
	"github.com/vsariola/mixseq/instrument"
	"github.com/vsariola/mixseq/tracker"
)

func newModel(t *testing.T, opts tracker.ModelOptions) (*tracker.Model, *tracker.Broker) {
	t.Helper()
	broker := tracker.NewBroker()
	pool := instrument.NewPool()
	pool.Add(instrument.NewRecorder())
	g, err := mixseq.NewGraph(mixseq.DefaultNumSteps)
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}
	return tracker.NewModel(broker, pool, g, opts), broker
}

func status(state tracker.TransportState, songStep, playedStep int) tracker.MsgToModel {
	return tracker.MsgToModel{HasStatus: true, Status: tracker.PlayerStatus{
		State:       state,
		BPM:         mixseq.DefaultBPM,
		CurrentStep: songStep % mixseq.DefaultNumSteps,
		PlayedStep:  playedStep,
		SongStep:    songStep,
	}}
}

func TestModelSongPos(t *testing.T) {
	m, _ := newModel(t, tracker.ModelOptions{})
	m.ProcessMsg(status(tracker.Playing, 21, 4))
	if got, want := m.Status().SongPos, (mixseq.SongPos{Bar: 1, Beat: 1, Sixteenth: 1}); got != want {
		t.Fatalf("expected %v in 4/4, got %v", want, got)
	}
	if err := m.SetTimeSignature(mixseq.TimeSignature{Numerator: 7, Denominator: 8}); err != nil {
		t.Fatalf("SetTimeSignature failed: %v", err)
	}
	if got, want := m.Status().SongPos, (mixseq.SongPos{Bar: 1, Beat: 3, Sixteenth: 1}); got != want {
		t.Fatalf("expected %v in 7/8, got %v", want, got)
	}
	var verr *mixseq.ValidationError
	if err := m.SetTimeSignature(mixseq.TimeSignature{Numerator: 4, Denominator: 3}); !errors.As(err, &verr) {
		t.Fatalf("expected a ValidationError for 4/3, got %v", err)
	}
}

func TestModelVisualStep(t *testing.T) {
	m, _ := newModel(t, tracker.ModelOptions{VisualInterval: time.Hour})
	if m.VisualStep() != -1 {
		t.Fatalf("expected no visual step before playing, got %d", m.VisualStep())
	}
	m.ProcessMsg(status(tracker.Playing, 2, 2))
	if m.VisualStep() != 2 {
		t.Fatalf("expected the first status to update the visual step, got %d", m.VisualStep())
	}
	m.ProcessMsg(status(tracker.Playing, 3, 3))
	if m.VisualStep() != 2 {
		t.Fatalf("expected the visual step to be rate limited, got %d", m.VisualStep())
	}
	m.ProcessMsg(status(tracker.Stopped, 0, -1))
	if m.VisualStep() != -1 {
		t.Fatalf("expected stopping to clear the visual step, got %d", m.VisualStep())
	}
}

func TestModelLoop(t *testing.T) {
	m, _ := newModel(t, tracker.ModelOptions{})
	if m.LoopToggle().Enabled() {
		t.Fatalf("loop toggle should be disabled without a loop region")
	}
	var verr *mixseq.ValidationError
	if err := m.SetLoop(true, 8, 4); !errors.As(err, &verr) {
		t.Fatalf("expected a ValidationError for an empty region, got %v", err)
	}
	if err := m.SetLoop(false, 4, 12); err != nil {
		t.Fatalf("SetLoop failed: %v", err)
	}
	m.LoopToggle().Bool().Toggle()
	if l := m.Status().Loop; !l.Enabled || l.Start != 4 || l.End != 12 {
		t.Fatalf("expected the loop 4..12 enabled, got %+v", l)
	}
	m.PatternLoop().Bool().Toggle()
	if m.Status().PatternLoop {
		t.Fatalf("expected pattern loop to be toggled off")
	}
}

func TestModelTap(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	m, _ := newModel(t, tracker.ModelOptions{Now: func() time.Time { return now }})
	defer m.Close()
	if _, ok := m.Tap(); ok {
		t.Fatalf("a single tap should not give a tempo")
	}
	now = now.Add(500 * time.Millisecond)
	bpm, ok := m.Tap()
	if !ok || bpm != 120 {
		t.Fatalf("expected 120 bpm, got %v, %v", bpm, ok)
	}
	now = now.Add(time.Second)
	if bpm, ok = m.Tap(); !ok || bpm != 80 {
		t.Fatalf("expected 80 bpm, got %v, %v", bpm, ok)
	}
	if m.BPM() != 80 || m.TapCount() != 3 {
		t.Fatalf("expected the tempo to be 80 after 3 taps, got %v after %d", m.BPM(), m.TapCount())
	}
}

func TestModelResizeStepsClearsHistory(t *testing.T) {
	m, _ := newModel(t, tracker.ModelOptions{})
	id, err := m.CreateSoundChain("Kick", 1)
	if err != nil {
		t.Fatalf("CreateSoundChain failed: %v", err)
	}
	if err := m.ToggleStep(id, 3); err != nil {
		t.Fatalf("ToggleStep failed: %v", err)
	}
	if err := m.ResizeSteps(32); err != nil {
		t.Fatalf("ResizeSteps failed: %v", err)
	}
	if m.History().CanUndo() {
		t.Fatalf("expected resizing to clear the history")
	}
	tr, _ := m.Graph().Track(id)
	if len(tr.Steps) != 32 || !tr.Steps[3].Active || tr.Steps[20].Active {
		t.Fatalf("unexpected steps after resizing: %v", tr.Steps)
	}
	if err := m.ResizeSteps(2); err == nil {
		t.Fatalf("expected an error for 2 steps")
	}
}

func TestModelLoadTemplate(t *testing.T) {
	m, _ := newModel(t, tracker.ModelOptions{})
	old := m.Graph()
	if _, err := m.CreateReturnTrack("Verb"); err != nil {
		t.Fatalf("CreateReturnTrack failed: %v", err)
	}
	tmpl, err := tracker.DefaultSessionTemplate()
	if err != nil {
		t.Fatalf("DefaultSessionTemplate failed: %v", err)
	}
	tmpl.BPM = 90
	if err := m.LoadTemplate(tmpl); err != nil {
		t.Fatalf("LoadTemplate failed: %v", err)
	}
	if !old.Disposed() {
		t.Fatalf("expected the previous session to be disposed")
	}
	if m.History().CanUndo() {
		t.Fatalf("expected loading to clear the history")
	}
	if len(m.Graph().Tracks) != 6 || m.BPM() != 90 {
		t.Fatalf("expected the template session at 90 bpm, got %d tracks at %v", len(m.Graph().Tracks), m.BPM())
	}
	if levels, _ := m.Levels(); len(levels) != 6 {
		t.Fatalf("expected a meter for every track, got %d", len(levels))
	}
}

func TestModelAlertsAndPost(t *testing.T) {
	m, broker := newModel(t, tracker.ModelOptions{})
	m.ProcessMsg(tracker.MsgToModel{Data: tracker.Alert{Name: "Glitch", Priority: tracker.Warning, Message: "buffer underrun"}})
	if m.Alerts().Len() != 1 {
		t.Fatalf("expected 1 alert, got %d", m.Alerts().Len())
	}
	ran := false
	m.Post(func() { ran = true })
	msg, ok := tracker.TimeoutReceive(broker.ToModel, time.Second)
	if !ok {
		t.Fatalf("expected the posted function in the model queue")
	}
	m.ProcessMsg(msg)
	if !ran {
		t.Fatalf("expected the posted function to run")
	}
}

func TestModelActions(t *testing.T) {
	m, _ := newModel(t, tracker.ModelOptions{})
	if m.PauseAction().Enabled() || m.StopAction().Enabled() || m.UndoAction().Enabled() {
		t.Fatalf("pause, stop and undo should be disabled in a new session")
	}
	m.AddSoundChainAction().Do()
	m.AddReturnTrackAction().Do()
	if len(m.Graph().Tracks) != 3 {
		t.Fatalf("expected 3 tracks, got %d", len(m.Graph().Tracks))
	}
	m.UndoAction().Do()
	if len(m.Graph().Tracks) != 2 || !m.RedoAction().Enabled() {
		t.Fatalf("expected undo to remove the return track")
	}
	m.IsPlaying().Bool().Toggle()
	if !m.PauseAction().Enabled() {
		t.Fatalf("expected pause to be enabled while playing")
	}
	m.PauseAction().Do()
	if s := m.Status().State; s != tracker.Paused {
		t.Fatalf("expected paused, got %v", s)
	}
	m.StopAction().Do()
	if s := m.Status().State; s != tracker.Stopped {
		t.Fatalf("expected stopped, got %v", s)
	}
}

func TestModelRunAndClose(t *testing.T) {
	m, broker := newModel(t, tracker.ModelOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)
	steps := make(chan int, 1)
	m.Post(func() { steps <- m.Graph().NumSteps })
	if n, ok := tracker.TimeoutReceive(steps, time.Second); !ok || n != mixseq.DefaultNumSteps {
		t.Fatalf("expected the posted function to run on the model loop, got %d, %v", n, ok)
	}
	broker.CloseModel <- struct{}{}
	select {
	case <-broker.FinishedModel:
	case <-time.After(time.Second):
		t.Fatalf("expected the model loop to finish")
	}
	g := m.Graph()
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if !g.Disposed() {
		t.Fatalf("expected Close to dispose the session")
	}
}

type modelFuzzState struct {
	model *tracker.Model
	ids   []mixseq.TrackID
	sends []mixseq.SendID
}

func (s *modelFuzzState) track(seed int) mixseq.TrackID {
	if len(s.ids) == 0 {
		return mixseq.TrackID(seed)
	}
	return s.ids[seed%len(s.ids)]
}

func (s *modelFuzzState) Iterate(yield func(string, func(p string, t *testing.T)) bool, seed int) {
	m := s.model
	s.IterateAction("Play", m.PlayAction(), yield)
	s.IterateAction("Pause", m.PauseAction(), yield)
	s.IterateAction("Stop", m.StopAction(), yield)
	s.IterateAction("Undo", m.UndoAction(), yield)
	s.IterateAction("Redo", m.RedoAction(), yield)
	s.IterateAction("AddSoundChain", m.AddSoundChainAction(), yield)
	s.IterateAction("AddReturnTrack", m.AddReturnTrackAction(), yield)
	s.IterateBool("Playing", m.IsPlaying().Bool(), yield, seed)
	s.IterateBool("PatternLoop", m.PatternLoop().Bool(), yield, seed)
	s.IterateBool("Loop", m.LoopToggle().Bool(), yield, seed)
	yield("CreateChain", func(p string, t *testing.T) {
		if id, err := m.CreateChain("", 0); err == nil {
			s.ids = append(s.ids, id)
		}
	})
	yield("DeleteTrack", func(p string, t *testing.T) { m.DeleteTrack(s.track(seed)) })
	yield("MoveTrack", func(p string, t *testing.T) { m.MoveTrack(s.track(seed), seed%8-2) })
	yield("ToggleMute", func(p string, t *testing.T) { m.ToggleMute(s.track(seed)) })
	yield("ToggleSolo", func(p string, t *testing.T) { m.ToggleSolo(s.track(seed)) })
	yield("SetVolume", func(p string, t *testing.T) { m.SetVolume(s.track(seed), float64(seed%40-30)) })
	yield("SetPan", func(p string, t *testing.T) { m.SetPan(s.track(seed), float64(seed%5-2)/2) })
	yield("ToggleStep", func(p string, t *testing.T) { m.ToggleStep(s.track(seed), seed%20) })
	yield("CreateSend", func(p string, t *testing.T) {
		if id, err := m.CreateSend(s.track(seed), s.track(seed/3), "", float64(seed%11)/10); err == nil {
			s.sends = append(s.sends, id)
		}
	})
	yield("Execute.SetParent", func(p string, t *testing.T) {
		m.Execute(&tracker.SetParent{ID: s.track(seed), Parent: s.track(seed / 5)})
	})
	yield("SetBPM", func(p string, t *testing.T) { m.SetBPM(float64(seed%400 - 50)) })
	yield("SetLoop", func(p string, t *testing.T) { m.SetLoop(seed%2 == 0, seed%16, seed%32) })
	yield("ResizeSteps", func(p string, t *testing.T) { m.ResizeSteps(seed%40 + 1) })
	yield("Invariants", func(p string, t *testing.T) { checkGraph(p, t, m.Graph()) })
}

func (s *modelFuzzState) IterateAction(name string, a tracker.Action, yield func(string, func(p string, t *testing.T)) bool) {
	yield(name+".Do", func(p string, t *testing.T) {
		a.Do()
	})
}

func (s *modelFuzzState) IterateBool(name string, b tracker.Bool, yield func(string, func(p string, t *testing.T)) bool, seed int) {
	yield(name+".Set", func(p string, t *testing.T) {
		b.Set(seed%2 == 0)
	})
	yield(name+".Toggle", func(p string, t *testing.T) {
		b.Toggle()
	})
}

func checkGraph(p string, t *testing.T, g *mixseq.Graph) {
	masters := 0
	for i, tr := range g.Tracks {
		if tr.Order != i {
			t.Errorf("Path: %s track %d has order %d at index %d", p, tr.ID, tr.Order, i)
		}
		if tr.Kind == mixseq.MasterKind {
			masters++
		}
		if tr.Content == mixseq.StepSequence && len(tr.Steps) != g.NumSteps {
			t.Errorf("Path: %s track %d has %d steps, expected %d", p, tr.ID, len(tr.Steps), g.NumSteps)
		}
		if tr.Parent != 0 {
			if _, ok := g.Track(tr.Parent); !ok {
				t.Errorf("Path: %s track %d is routed to a missing track %d", p, tr.ID, tr.Parent)
			}
		}
	}
	if masters != 1 {
		t.Errorf("Path: %s expected exactly one master track, got %d", p, masters)
	}
	for _, s := range g.Sends {
		dst, ok := g.Track(s.Destination)
		if !ok || dst.Kind != mixseq.Return {
			t.Errorf("Path: %s send %d does not go to a return track", p, s.ID)
		}
		if _, ok := g.Track(s.Source); !ok {
			t.Errorf("Path: %s send %d has a missing source", p, s.ID)
		}
		if s.Amount < 0 || s.Amount > 1 {
			t.Errorf("Path: %s send %d amount out of range: %v", p, s.ID, s.Amount)
		}
	}
}

func FuzzModel(f *testing.F) {
	seed := make([]byte, 1)
	for i := range seed {
		seed[i] = byte(i)
	}
	f.Add(seed)
	f.Fuzz(func(t *testing.T, slice []byte) {
		reader := bytes.NewReader(slice)
		broker := tracker.NewBroker()
		pool := instrument.NewPool()
		pool.Add(instrument.NewRecorder())
		g, err := mixseq.NewGraph(mixseq.DefaultNumSteps)
		if err != nil {
			t.Fatalf("NewGraph failed: %v", err)
		}
		model := tracker.NewModel(broker, pool, g, tracker.ModelOptions{SampleRate: 48000})
		player := tracker.NewPlayer(broker, pool, 48000, 0, nil)
		buf := make(mixseq.AudioBuffer, 512)
		closeChan := make(chan struct{})
		go func() {
			for {
				select {
				case <-closeChan:
					return
				default:
					player.Process(buf)
				}
			}
		}()
		state := modelFuzzState{model: model}
		count := 0
		state.Iterate(func(n string, f func(p string, t *testing.T)) bool {
			count++
			return true
		}, 0)
		totalPath := ""
		for m, err := binary.ReadVarint(reader); err == nil; m, err = binary.ReadVarint(reader) {
			seed := int(m)
			if seed < 0 {
				seed = -seed
			}
			index := seed % count
			state.Iterate(func(n string, f func(p string, t *testing.T)) bool {
				if index == 0 {
					totalPath += n + ". "
					f(totalPath, t)
				}
				index--
				return index > 0
			}, seed)
		drain:
			for {
				select {
				case msg := <-broker.ToModel:
					model.ProcessMsg(msg)
				default:
					break drain
				}
			}
			checkGraph(totalPath, t, model.Graph())
		}
		closeChan <- struct{}{}
		model.Close()
	})
}

func TestModelActivity(t *testing.T) {
	m, _ := newModel(t, tracker.ModelOptions{})
	defer m.Close()
	if got := m.Activity(); got != 0 {
		t.Fatalf("expected no activity before playing, got %v", got)
	}
	msg := status(tracker.Playing, 0, 0)
	msg.Triggered = 1
	m.ProcessMsg(msg)
	if got := m.Activity(); got != 1 {
		t.Fatalf("expected full activity after a trigger, got %v", got)
	}
	if levels, _ := m.Levels(); levels[0] != m.Activity() {
		t.Fatalf("expected the activity to follow the loudest track, got %v", levels)
	}
}
