package mixseq_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/vsariola/mixseq"
)

func newGraph(t *testing.T) *mixseq.Graph {
	t.Helper()
	g, err := mixseq.NewGraph(mixseq.DefaultNumSteps)
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}
	return g
}

func mustCreate(t *testing.T, g *mixseq.Graph, kind mixseq.TrackKind, content mixseq.ContentKind, name string) (*mixseq.Graph, mixseq.TrackID) {
	t.Helper()
	g, id, err := mixseq.CreateTrack(g, kind, content, name)
	if err != nil {
		t.Fatalf("CreateTrack(%v, %v, %q) failed: %v", kind, content, name, err)
	}
	return g, id
}

func checkOrder(t *testing.T, g *mixseq.Graph) {
	t.Helper()
	for i, tr := range g.Tracks {
		if tr.Order != i {
			t.Fatalf("track %d (%s) has order %d, expected %d", tr.ID, tr.Name, tr.Order, i)
		}
	}
	for i, sc := range g.Scenes {
		if sc.Order != i {
			t.Fatalf("scene %d has order %d, expected %d", sc.ID, sc.Order, i)
		}
	}
}

func TestNewGraphHasSingleMaster(t *testing.T) {
	g := newGraph(t)
	if len(g.Tracks) != 1 {
		t.Fatalf("new graph has %d tracks, expected 1", len(g.Tracks))
	}
	if g.Tracks[0].Kind != mixseq.MasterKind || g.Tracks[0].ID != g.Master {
		t.Fatalf("first track is not the master: %+v", g.Tracks[0])
	}
	g2, _, err := mixseq.CreateTrack(g, mixseq.MasterKind, mixseq.Audio, "another master")
	var serr *mixseq.StructuralError
	if !errors.As(err, &serr) {
		t.Fatalf("creating a second master: expected StructuralError, got %v", err)
	}
	if g2 != g {
		t.Fatalf("failed CreateTrack should return the input graph")
	}
	if _, err := mixseq.NewGraph(2); err == nil {
		t.Fatalf("NewGraph(2) should fail")
	}
}

func TestCreateTrackDefaults(t *testing.T) {
	g := newGraph(t)
	g, id := mustCreate(t, g, mixseq.Regular, mixseq.StepSequence, "")
	tr, ok := g.Track(id)
	if !ok {
		t.Fatalf("created track %d not found", id)
	}
	if len(tr.Steps) != mixseq.DefaultNumSteps {
		t.Errorf("got %d steps, expected %d", len(tr.Steps), mixseq.DefaultNumSteps)
	}
	if tr.Control != (mixseq.Control{}) {
		t.Errorf("control block is not the default: %+v", tr.Control)
	}
	if tr.Name == "" {
		t.Errorf("track should get a generated name")
	}
	for i, s := range tr.Steps {
		if s.Active {
			t.Errorf("step %d should be inactive", i)
		}
	}
	checkOrder(t, g)
}

func TestCreateSendToRegularTrackFails(t *testing.T) {
	g := newGraph(t)
	g, a := mustCreate(t, g, mixseq.Regular, mixseq.StepSequence, "A")
	g, b := mustCreate(t, g, mixseq.Regular, mixseq.Audio, "B")
	g2, _, err := mixseq.CreateSend(g, a, b, "", 0.5)
	var serr *mixseq.StructuralError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StructuralError, got %v", err)
	}
	if g2 != g {
		t.Fatalf("failed CreateSend should return the very same graph")
	}
	g3, _, err := mixseq.CreateSend(g, 12345, b, "", 0.5)
	if !errors.Is(err, mixseq.ErrNotFound) {
		t.Fatalf("send from unknown track: expected ErrNotFound, got %v", err)
	}
	if g3 != g {
		t.Fatalf("failed CreateSend should return the very same graph")
	}
}

func TestDeleteTrackCascades(t *testing.T) {
	g := newGraph(t)
	g, a := mustCreate(t, g, mixseq.Regular, mixseq.Audio, "A")
	g, r1 := mustCreate(t, g, mixseq.Return, mixseq.Audio, "R1")
	g, r2 := mustCreate(t, g, mixseq.Return, mixseq.Audio, "R2")
	var err error
	g, _, err = mixseq.CreateSend(g, a, r1, "", 0.3)
	if err != nil {
		t.Fatalf("CreateSend failed: %v", err)
	}
	g, _, err = mixseq.CreateSend(g, r2, r1, "", 0.3)
	if err != nil {
		t.Fatalf("CreateSend failed: %v", err)
	}
	g, _, err = mixseq.CreateSend(g, a, r2, "", 0.3)
	if err != nil {
		t.Fatalf("CreateSend failed: %v", err)
	}
	g, _, err = mixseq.AddClip(g, a, mixseq.Clip{Start: 0, Duration: 2, Content: "kick.wav"})
	if err != nil {
		t.Fatalf("AddClip failed: %v", err)
	}
	before := g
	g, removed, err := mixseq.DeleteTrack(g, r1)
	if err != nil {
		t.Fatalf("DeleteTrack failed: %v", err)
	}
	for _, s := range g.Sends {
		if s.Source == r1 || s.Destination == r1 {
			t.Fatalf("send %+v still references the deleted track", s)
		}
	}
	if len(g.Sends) != 1 || len(removed.Sends) != 2 {
		t.Fatalf("expected 1 remaining and 2 removed sends, got %d and %d", len(g.Sends), len(removed.Sends))
	}
	checkOrder(t, g)
	g, removedA, err := mixseq.DeleteTrack(g, a)
	if err != nil {
		t.Fatalf("DeleteTrack failed: %v", err)
	}
	if len(g.Sends) != 0 {
		t.Fatalf("expected no sends after deleting the source, got %v", g.Sends)
	}
	if len(removedA.Track.Clips) != 1 {
		t.Fatalf("removed track should carry its clips")
	}
	checkOrder(t, g)
	g, err = mixseq.RestoreTrack(g, removedA)
	if err != nil {
		t.Fatalf("RestoreTrack failed: %v", err)
	}
	g, err = mixseq.RestoreTrack(g, removed)
	if err != nil {
		t.Fatalf("RestoreTrack failed: %v", err)
	}
	if !reflect.DeepEqual(g, before) {
		t.Fatalf("restoring the deleted tracks did not give back the original graph")
	}
	if _, _, err := mixseq.DeleteTrack(g, g.Master); err == nil {
		t.Fatalf("deleting the master should fail")
	}
	if _, _, err := mixseq.DeleteTrack(g, 9999); !errors.Is(err, mixseq.ErrNotFound) {
		t.Fatalf("deleting an unknown track: expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTrackReroutesChildren(t *testing.T) {
	g := newGraph(t)
	g, bus := mustCreate(t, g, mixseq.Regular, mixseq.Audio, "bus")
	g, child := mustCreate(t, g, mixseq.Regular, mixseq.StepSequence, "child")
	g, err := mixseq.SetParent(g, child, bus)
	if err != nil {
		t.Fatalf("SetParent failed: %v", err)
	}
	if _, err := mixseq.SetParent(g, bus, child); err == nil {
		t.Fatalf("routing the bus to its child should fail")
	}
	g, _, err = mixseq.DeleteTrack(g, bus)
	if err != nil {
		t.Fatalf("DeleteTrack failed: %v", err)
	}
	if tr, _ := g.Track(child); tr.Parent != 0 {
		t.Fatalf("child should be routed to the master after its bus is deleted, got parent %d", tr.Parent)
	}
}

func TestAudibility(t *testing.T) {
	g := newGraph(t)
	g, a := mustCreate(t, g, mixseq.Regular, mixseq.StepSequence, "A")
	g, b := mustCreate(t, g, mixseq.Regular, mixseq.StepSequence, "B")
	if !g.Audible(a) || !g.Audible(b) {
		t.Fatalf("with no solo or mute, every track should be audible")
	}
	g, err := mixseq.ToggleSolo(g, b)
	if err != nil {
		t.Fatalf("ToggleSolo failed: %v", err)
	}
	if g.Audible(a) {
		t.Errorf("A should be inaudible while B is soloed")
	}
	if !g.Audible(b) {
		t.Errorf("soloed B should be audible")
	}
	if !g.Audible(g.Master) {
		t.Errorf("master should be audible regardless of solo")
	}
	mask := g.AudibleMask(make([]bool, 0, 8))
	if !reflect.DeepEqual(mask, []bool{true, false, true}) {
		t.Errorf("AudibleMask = %v", mask)
	}
	g, _ = mixseq.ToggleSolo(g, b)
	if !g.Audible(a) {
		t.Errorf("clearing B's solo should make A audible again")
	}
	g, _ = mixseq.ToggleMute(g, a)
	if g.Audible(a) {
		t.Errorf("muted A should not be audible")
	}
	tr, _ := g.Track(a)
	if tr.Control.Solo || !tr.Control.Mute {
		t.Errorf("mute and solo should be stored independently: %+v", tr.Control)
	}
}

func TestMoveTrackKeepsTotalOrder(t *testing.T) {
	g := newGraph(t)
	var ids []mixseq.TrackID
	for _, name := range []string{"a", "b", "c", "d"} {
		var id mixseq.TrackID
		g, id = mustCreate(t, g, mixseq.Regular, mixseq.Audio, name)
		ids = append(ids, id)
	}
	g, err := mixseq.MoveTrack(g, ids[3], 1)
	if err != nil {
		t.Fatalf("MoveTrack failed: %v", err)
	}
	checkOrder(t, g)
	if g.Tracks[1].ID != ids[3] || g.Tracks[2].ID != ids[0] {
		t.Fatalf("unexpected order after move: %v", g.Tracks)
	}
	if _, err := mixseq.MoveTrack(g, ids[0], len(g.Tracks)); err == nil {
		t.Fatalf("moving beyond the end should fail")
	}
	g, _, _ = mixseq.DeleteTrack(g, ids[1])
	checkOrder(t, g)
}

func TestSteps(t *testing.T) {
	g := newGraph(t)
	g, a := mustCreate(t, g, mixseq.Regular, mixseq.StepSequence, "A")
	g, au := mustCreate(t, g, mixseq.Regular, mixseq.Audio, "audio")
	g, err := mixseq.ToggleStep(g, a, 3)
	if err != nil {
		t.Fatalf("ToggleStep failed: %v", err)
	}
	if tr, _ := g.Track(a); !tr.Steps[3].Active {
		t.Fatalf("step 3 should be active")
	}
	var verr *mixseq.ValidationError
	for _, index := range []int{-1, mixseq.DefaultNumSteps} {
		if g2, err := mixseq.ToggleStep(g, a, index); !errors.As(err, &verr) || g2 != g {
			t.Errorf("ToggleStep(%d): expected ValidationError and unchanged graph, got %v", index, err)
		}
	}
	if _, err := mixseq.ToggleStep(g, au, 0); err == nil {
		t.Errorf("toggling a step of an audio track should fail")
	}
	if _, err := mixseq.SetStep(g, a, 0, mixseq.Step{Active: true, Note: 200, Velocity: 100}); !errors.As(err, &verr) {
		t.Errorf("note 200 should fail validation, got %v", err)
	}
	g2, err := mixseq.ResizeSteps(g, 8)
	if err != nil {
		t.Fatalf("ResizeSteps failed: %v", err)
	}
	if tr, _ := g2.Track(a); len(tr.Steps) != 8 || !tr.Steps[3].Active {
		t.Fatalf("resize should keep the existing steps, got %v", tr.Steps)
	}
	if tr, _ := g.Track(a); len(tr.Steps) != mixseq.DefaultNumSteps {
		t.Fatalf("resize must not modify the original graph")
	}
	if g3, err := mixseq.ResizeSteps(g, 2); !errors.As(err, &verr) || g3 != g {
		t.Fatalf("resize to 2 steps should fail validation, got %v", err)
	}
}

func TestControlValidation(t *testing.T) {
	g := newGraph(t)
	g, a := mustCreate(t, g, mixseq.Regular, mixseq.Audio, "A")
	tests := []struct {
		name string
		op   func() (*mixseq.Graph, error)
	}{
		{"pan too small", func() (*mixseq.Graph, error) { return mixseq.SetPan(g, a, -1.5) }},
		{"pan too large", func() (*mixseq.Graph, error) { return mixseq.SetPan(g, a, 1.01) }},
		{"send amount", func() (*mixseq.Graph, error) { return mixseq.SetSendAmount(g, 1, 2) }},
		{"clip duration", func() (*mixseq.Graph, error) {
			g2, _, err := mixseq.AddClip(g, a, mixseq.Clip{Duration: 0})
			return g2, err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g2, err := tt.op()
			var verr *mixseq.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if g2 != g {
				t.Fatalf("failed operation should return the input graph")
			}
		})
	}
	g2, err := mixseq.SetPan(g, a, -1)
	if err != nil {
		t.Fatalf("SetPan(-1) failed: %v", err)
	}
	if tr, _ := g2.Track(a); tr.Control.Pan != -1 {
		t.Fatalf("pan not set")
	}
}

func TestScenes(t *testing.T) {
	g := newGraph(t)
	g, a := mustCreate(t, g, mixseq.Regular, mixseq.Audio, "A")
	g, clip, err := mixseq.AddClip(g, a, mixseq.Clip{Duration: 4, Content: "loop.wav"})
	if err != nil {
		t.Fatalf("AddClip failed: %v", err)
	}
	before := g
	g, sc, err := mixseq.CreateScene(g, "")
	if err != nil {
		t.Fatalf("CreateScene failed: %v", err)
	}
	g, err = mixseq.SetClipLaunch(g, sc, a, mixseq.ClipLaunch{Clip: clip, Playing: true})
	if err != nil {
		t.Fatalf("SetClipLaunch failed: %v", err)
	}
	g2, removed, err := mixseq.DeleteTrack(g, a)
	if err != nil {
		t.Fatalf("DeleteTrack failed: %v", err)
	}
	if len(g2.Scenes[0].Launch) != 0 {
		t.Fatalf("deleting a track should remove its launch states")
	}
	g3, err := mixseq.RestoreTrack(g2, removed)
	if err != nil {
		t.Fatalf("RestoreTrack failed: %v", err)
	}
	if !reflect.DeepEqual(g3, g) {
		t.Fatalf("restore did not bring back the launch state")
	}
	g, err = mixseq.ClearClipLaunch(g, sc, a)
	if err != nil {
		t.Fatalf("ClearClipLaunch failed: %v", err)
	}
	g, _, err = mixseq.DeleteScene(g, sc)
	if err != nil {
		t.Fatalf("DeleteScene failed: %v", err)
	}
	if !reflect.DeepEqual(g, before) {
		t.Fatalf("deleting the scene should give back the graph before it was created")
	}
}

func TestDispose(t *testing.T) {
	g := newGraph(t)
	g, a := mustCreate(t, g, mixseq.Regular, mixseq.Audio, "A")
	failing := &failingUnit{}
	node, err := mixseq.CreateEffectNode(mixseq.Reverb, mixseq.EffectOptions{Unit: failing})
	if err != nil {
		t.Fatalf("CreateEffectNode failed: %v", err)
	}
	g, _, err = mixseq.AddEffect(g, a, -1, node)
	if err != nil {
		t.Fatalf("AddEffect failed: %v", err)
	}
	node2, _ := mixseq.CreateEffectNode(mixseq.Chorus, mixseq.EffectOptions{})
	g, _, err = mixseq.AddEffect(g, a, 0, node2)
	if err != nil {
		t.Fatalf("AddEffect failed: %v", err)
	}
	err = mixseq.Dispose(g)
	var derr *mixseq.DisposalError
	if !errors.As(err, &derr) || len(derr.Errs) != 1 {
		t.Fatalf("expected DisposalError with one error, got %v", err)
	}
	if failing.calls != 1 {
		t.Fatalf("unit disposed %d times, expected 1", failing.calls)
	}
	if err2 := mixseq.Dispose(g); err2 != err || failing.calls != 1 {
		t.Fatalf("Dispose should be idempotent")
	}
	if !g.Disposed() {
		t.Fatalf("graph should report disposed")
	}
	if _, _, err := mixseq.CreateTrack(g, mixseq.Regular, mixseq.Audio, "late"); !errors.Is(err, mixseq.ErrDisposed) {
		t.Fatalf("expected ErrDisposed after Dispose, got %v", err)
	}
}

type failingUnit struct{ calls int }

func (f *failingUnit) SetParameter(string, float64) error { return nil }
func (f *failingUnit) Dispose() error {
	f.calls++
	return errors.New("device busy")
}
