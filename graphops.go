package mixseq

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

type (
	// RemovedTrack is everything DeleteTrack removed from the graph, so that
	// RestoreTrack can put it back exactly as it was.
	RemovedTrack struct {
		Track    Track
		Index    int
		Sends    []RemovedSend // in ascending Index order
		Launch   map[SceneID]ClipLaunch
		Children []TrackID // tracks that were routed to the deleted track
	}

	RemovedSend struct {
		Send  Send
		Index int
	}

	RemovedClip struct {
		Clip  Clip
		Index int
	}
)

// CreateTrack appends a new track with a default control block to the end of
// the track order. kind must be Regular or Return: the master track is only
// ever created by NewGraph. Step sequence tracks get g.NumSteps inactive
// steps.
func CreateTrack(g *Graph, kind TrackKind, content ContentKind, name string) (*Graph, TrackID, error) {
	if err := g.checkLive(); err != nil {
		return g, 0, err
	}
	switch kind {
	case Regular, Return:
	case MasterKind:
		return g, 0, structuralErr("CreateTrack", int(g.Master), "the master track can only be created at initialization")
	default:
		return g, 0, validationErr("CreateTrack", "kind", kind, "regular or return")
	}
	if content < StepSequence || content > Automation {
		return g, 0, validationErr("CreateTrack", "content", content, "step-sequence, audio or automation")
	}
	if kind == Return {
		content = Audio
	}
	t := Track{
		ID:      TrackID(g.allocID()),
		Name:    name,
		Kind:    kind,
		Content: content,
	}
	if t.Name == "" {
		t.Name = fmt.Sprintf("%s %d", kind, t.ID)
	}
	if content == StepSequence {
		t.Steps = defaultSteps(g.NumSteps)
	}
	ret := g.Copy()
	ret.Tracks = reindexTracks(insertAt(g.Tracks, len(g.Tracks), t))
	return ret, t.ID, nil
}

// CreateReturnTrack creates a return track: a bus that receives audio only
// through sends.
func CreateReturnTrack(g *Graph, name string) (*Graph, TrackID, error) {
	return CreateTrack(g, Return, Audio, name)
}

// CreateChain creates a regular audio track, optionally seeded with an
// instrument (instr == 0 means none), ready to have effects added to it.
func CreateChain(g *Graph, name string, instr InstrumentID) (*Graph, TrackID, error) {
	ret, id, err := CreateTrack(g, Regular, Audio, name)
	if err != nil || instr == 0 {
		return ret, id, err
	}
	i, _ := ret.TrackIndex(id)
	ret.Tracks[i].Instrument = instr // ret.Tracks is a fresh slice, nobody else sees it yet
	return ret, id, nil
}

// CreateSoundChain creates a step sequence track playing the given
// instrument.
func CreateSoundChain(g *Graph, name string, instr InstrumentID) (*Graph, TrackID, error) {
	if instr == 0 {
		return g, 0, validationErr("CreateSoundChain", "instrument", instr, "an instrument id")
	}
	ret, id, err := CreateTrack(g, Regular, StepSequence, name)
	if err != nil {
		return ret, id, err
	}
	i, _ := ret.TrackIndex(id)
	ret.Tracks[i].Instrument = instr
	return ret, id, nil
}

// DeleteTrack removes a track. The removal cascades: all sends having the
// track as source or destination, the clips it owns and its clip launch
// states are removed too, and the tracks routed to it are routed to the
// master instead. The remaining tracks are reindexed.
func DeleteTrack(g *Graph, id TrackID) (*Graph, RemovedTrack, error) {
	if err := g.checkLive(); err != nil {
		return g, RemovedTrack{}, err
	}
	index, ok := g.TrackIndex(id)
	if !ok {
		return g, RemovedTrack{}, notFound("DeleteTrack", "track", int(id))
	}
	if g.Tracks[index].Kind == MasterKind {
		return g, RemovedTrack{}, structuralErr("DeleteTrack", int(id), "the master track cannot be deleted")
	}
	removed := RemovedTrack{Track: g.Tracks[index], Index: index}
	ret := g.Copy()
	tracks := deleteAt(g.Tracks, index)
	for i := range tracks {
		if tracks[i].Parent == id {
			tracks[i].Parent = 0
			removed.Children = append(removed.Children, tracks[i].ID)
		}
	}
	ret.Tracks = reindexTracks(tracks)
	var sends []Send
	for i, s := range g.Sends {
		if s.Source == id || s.Destination == id {
			removed.Sends = append(removed.Sends, RemovedSend{Send: s, Index: i})
			continue
		}
		sends = append(sends, s)
	}
	if len(removed.Sends) > 0 {
		ret.Sends = sends
	}
	for i, sc := range g.Scenes {
		l, ok := sc.Launch[id]
		if !ok {
			continue
		}
		if removed.Launch == nil {
			removed.Launch = make(map[SceneID]ClipLaunch)
			ret.Scenes = copySlice(g.Scenes)
		}
		removed.Launch[sc.ID] = l
		ret.Scenes[i] = withoutLaunch(sc, id)
	}
	return ret, removed, nil
}

// RestoreTrack puts back a track removed by DeleteTrack, with its sends,
// clip launch states and the routing of its children.
func RestoreTrack(g *Graph, r RemovedTrack) (*Graph, error) {
	if err := g.checkLive(); err != nil {
		return g, err
	}
	if _, exists := g.TrackIndex(r.Track.ID); exists {
		return g, structuralErr("RestoreTrack", int(r.Track.ID), "track already exists")
	}
	if r.Index < 0 || r.Index > len(g.Tracks) {
		return g, validationErr("RestoreTrack", "index", r.Index, fmt.Sprintf("in [0, %d]", len(g.Tracks)))
	}
	ret := g.Copy()
	tracks := insertAt(g.Tracks, r.Index, r.Track)
	for _, child := range r.Children {
		for i := range tracks {
			if tracks[i].ID == child {
				tracks[i].Parent = r.Track.ID
			}
		}
	}
	ret.Tracks = reindexTracks(tracks)
	if len(r.Sends) > 0 {
		sends := g.Sends
		for _, s := range r.Sends {
			sends = insertAt(sends, min(s.Index, len(sends)), s.Send)
		}
		ret.Sends = sends
	}
	if len(r.Launch) > 0 {
		ret.Scenes = copySlice(g.Scenes)
		for i, sc := range ret.Scenes {
			if l, ok := r.Launch[sc.ID]; ok {
				ret.Scenes[i] = withLaunch(sc, r.Track.ID, l)
			}
		}
	}
	return ret, nil
}

// MoveTrack moves a track to a new position in the track order, shifting
// the tracks in between.
func MoveTrack(g *Graph, id TrackID, to int) (*Graph, error) {
	if err := g.checkLive(); err != nil {
		return g, err
	}
	from, ok := g.TrackIndex(id)
	if !ok {
		return g, notFound("MoveTrack", "track", int(id))
	}
	if to < 0 || to >= len(g.Tracks) {
		return g, validationErr("MoveTrack", "index", to, fmt.Sprintf("in [0, %d)", len(g.Tracks)))
	}
	if from == to {
		return g, nil
	}
	ret := g.Copy()
	ret.Tracks = reindexTracks(moveTo(g.Tracks, from, to))
	return ret, nil
}

func RenameTrack(g *Graph, id TrackID, name string) (*Graph, error) {
	return updateTrack(g, "RenameTrack", id, func(t *Track) error {
		t.Name = name
		return nil
	})
}

func ToggleMute(g *Graph, id TrackID) (*Graph, error) {
	return updateTrack(g, "ToggleMute", id, func(t *Track) error {
		t.Control.Mute = !t.Control.Mute
		return nil
	})
}

func ToggleSolo(g *Graph, id TrackID) (*Graph, error) {
	return updateTrack(g, "ToggleSolo", id, func(t *Track) error {
		t.Control.Solo = !t.Control.Solo
		return nil
	})
}

func ToggleArm(g *Graph, id TrackID) (*Graph, error) {
	return updateTrack(g, "ToggleArm", id, func(t *Track) error {
		if t.Kind != Regular {
			return structuralErr("ToggleArm", int(id), "only regular tracks can be armed")
		}
		t.Control.Armed = !t.Control.Armed
		return nil
	})
}

// SetVolume sets the volume of a track in decibels. -Inf is allowed and
// means silence.
func SetVolume(g *Graph, id TrackID, decibels float64) (*Graph, error) {
	if math.IsNaN(decibels) || math.IsInf(decibels, 1) {
		return g, validationErr("SetVolume", "decibels", decibels, "a finite number or -Inf")
	}
	return updateTrack(g, "SetVolume", id, func(t *Track) error {
		t.Control.Volume = decibels
		return nil
	})
}

func SetPan(g *Graph, id TrackID, value float64) (*Graph, error) {
	if !(value >= -1 && value <= 1) {
		return g, validationErr("SetPan", "pan", value, "in [-1, 1]")
	}
	return updateTrack(g, "SetPan", id, func(t *Track) error {
		t.Control.Pan = value
		return nil
	})
}

// SetParent routes a track to a bus. parent == 0 routes the track directly
// to the master. A track has at most one parent and the routing can never
// form a cycle.
func SetParent(g *Graph, id, parent TrackID) (*Graph, error) {
	if err := g.checkLive(); err != nil {
		return g, err
	}
	if parent != 0 {
		p, ok := g.Track(parent)
		if !ok {
			return g, notFound("SetParent", "parent track", int(parent))
		}
		if p.Kind == MasterKind {
			parent = 0
		}
		for cur := parent; cur != 0; {
			if cur == id {
				return g, structuralErr("SetParent", int(id), "routing would form a cycle")
			}
			t, _ := g.Track(cur)
			cur = t.Parent
		}
	}
	return updateTrack(g, "SetParent", id, func(t *Track) error {
		if t.Kind == MasterKind {
			return structuralErr("SetParent", int(id), "the master track has no parent")
		}
		t.Parent = parent
		return nil
	})
}

func AssignInstrument(g *Graph, id TrackID, instr InstrumentID) (*Graph, error) {
	return updateTrack(g, "AssignInstrument", id, func(t *Track) error {
		if t.Kind != Regular {
			return structuralErr("AssignInstrument", int(id), "only regular tracks can play instruments")
		}
		t.Instrument = instr
		return nil
	})
}

// CreateSend routes the source track to a return track. It fails, returning
// g unchanged, if the destination is not a return track or either track is
// unknown.
func CreateSend(g *Graph, source, returnTrack TrackID, name string, amount float64) (*Graph, SendID, error) {
	if err := g.checkLive(); err != nil {
		return g, 0, err
	}
	src, ok := g.Track(source)
	if !ok {
		return g, 0, notFound("CreateSend", "source track", int(source))
	}
	dst, ok := g.Track(returnTrack)
	if !ok {
		return g, 0, notFound("CreateSend", "return track", int(returnTrack))
	}
	if dst.Kind != Return {
		return g, 0, structuralErr("CreateSend", int(returnTrack), "destination is a "+dst.Kind.String()+" track, not a return track")
	}
	if src.Kind == MasterKind || source == returnTrack {
		return g, 0, structuralErr("CreateSend", int(source), "cannot send from this track to itself or from the master")
	}
	if !(amount >= 0 && amount <= 1) {
		return g, 0, validationErr("CreateSend", "amount", amount, "in [0, 1]")
	}
	s := Send{ID: SendID(g.allocID()), Name: name, Source: source, Destination: returnTrack, Amount: amount}
	if s.Name == "" {
		s.Name = dst.Name
	}
	ret := g.Copy()
	ret.Sends = insertAt(g.Sends, len(g.Sends), s)
	return ret, s.ID, nil
}

func DeleteSend(g *Graph, id SendID) (*Graph, RemovedSend, error) {
	if err := g.checkLive(); err != nil {
		return g, RemovedSend{}, err
	}
	i, ok := g.SendIndex(id)
	if !ok {
		return g, RemovedSend{}, notFound("DeleteSend", "send", int(id))
	}
	ret := g.Copy()
	ret.Sends = deleteAt(g.Sends, i)
	return ret, RemovedSend{Send: g.Sends[i], Index: i}, nil
}

// RestoreSend puts back a send removed by DeleteSend. Both ends of the send
// must still exist.
func RestoreSend(g *Graph, r RemovedSend) (*Graph, error) {
	if err := g.checkLive(); err != nil {
		return g, err
	}
	if _, ok := g.Track(r.Send.Source); !ok {
		return g, notFound("RestoreSend", "source track", int(r.Send.Source))
	}
	if dst, ok := g.Track(r.Send.Destination); !ok || dst.Kind != Return {
		return g, notFound("RestoreSend", "return track", int(r.Send.Destination))
	}
	ret := g.Copy()
	ret.Sends = insertAt(g.Sends, max(0, min(r.Index, len(g.Sends))), r.Send)
	return ret, nil
}

func SetSendAmount(g *Graph, id SendID, amount float64) (*Graph, error) {
	if err := g.checkLive(); err != nil {
		return g, err
	}
	if !(amount >= 0 && amount <= 1) {
		return g, validationErr("SetSendAmount", "amount", amount, "in [0, 1]")
	}
	i, ok := g.SendIndex(id)
	if !ok {
		return g, notFound("SetSendAmount", "send", int(id))
	}
	ret := g.Copy()
	ret.Sends = copySlice(g.Sends)
	ret.Sends[i].Amount = amount
	return ret, nil
}

// SetStep replaces the step at index of a step sequence track.
func SetStep(g *Graph, id TrackID, index int, step Step) (*Graph, error) {
	if step.Note > 127 || step.Velocity > 127 {
		return g, validationErr("SetStep", "note/velocity", step, "in [0, 127]")
	}
	return updateTrack(g, "SetStep", id, func(t *Track) error {
		if err := checkStepIndex("SetStep", t, index); err != nil {
			return err
		}
		t.Steps = copySlice(t.Steps)
		t.Steps[index] = step
		return nil
	})
}

// ToggleStep flips the active flag of a step.
func ToggleStep(g *Graph, id TrackID, index int) (*Graph, error) {
	return updateTrack(g, "ToggleStep", id, func(t *Track) error {
		if err := checkStepIndex("ToggleStep", t, index); err != nil {
			return err
		}
		t.Steps = copySlice(t.Steps)
		t.Steps[index].Active = !t.Steps[index].Active
		return nil
	})
}

// ResizeSteps changes the number of steps of every step sequence track. Steps
// beyond the new length are dropped; new steps are inactive. This is a
// structural operation: numSteps must be greater than 2.
func ResizeSteps(g *Graph, numSteps int) (*Graph, error) {
	if err := g.checkLive(); err != nil {
		return g, err
	}
	if numSteps < MinNumSteps {
		return g, validationErr("ResizeSteps", "numSteps", numSteps, "greater than 2")
	}
	if numSteps == g.NumSteps {
		return g, nil
	}
	ret := g.Copy()
	ret.NumSteps = numSteps
	ret.Tracks = copySlice(g.Tracks)
	for i := range ret.Tracks {
		t := &ret.Tracks[i]
		if t.Content != StepSequence {
			continue
		}
		steps := defaultSteps(numSteps)
		copy(steps, t.Steps)
		t.Steps = steps
	}
	return ret, nil
}

// AddEffect inserts an effect node to the chain of a track at index; index
// -1 appends. A node created with CreateEffectNode gets its id here; a node
// that already has an id (e.g. one returned by RemoveEffect) keeps it.
func AddEffect(g *Graph, id TrackID, index int, node EffectNode) (*Graph, int, error) {
	params, ok := node.Kind.Parameters()
	if !ok {
		return g, 0, &UnknownEffectTypeError{Kind: node.Kind}
	}
	values := make(map[string]float64, len(params))
	for _, p := range params {
		values[p.Name] = p.Default
	}
	for name, v := range node.Params {
		if err := checkEffectParam("AddEffect", node.Kind, name, v); err != nil {
			return g, 0, err
		}
		values[name] = v
	}
	node.Params = values
	isNew := node.ID == 0
	var nodeID int
	ret, err := updateTrack(g, "AddEffect", id, func(t *Track) error {
		if index == -1 {
			index = len(t.Chain)
		}
		if index < 0 || index > len(t.Chain) {
			return validationErr("AddEffect", "index", index, fmt.Sprintf("in [0, %d]", len(t.Chain)))
		}
		if isNew {
			node.ID = g.allocID()
		}
		nodeID = node.ID
		t.Chain = insertAt(t.Chain, index, node)
		return nil
	})
	if err == nil && isNew {
		g.register(node.unit)
	}
	return ret, nodeID, err
}

// RemoveEffect removes the effect at index from the chain of a track and
// returns it. The processing unit of the node is not disposed, as the node
// may still be put back; Dispose releases it.
func RemoveEffect(g *Graph, id TrackID, index int) (*Graph, EffectNode, error) {
	var removed EffectNode
	ret, err := updateTrack(g, "RemoveEffect", id, func(t *Track) error {
		if err := checkEffectIndex("RemoveEffect", t, index); err != nil {
			return err
		}
		removed = t.Chain[index]
		t.Chain = deleteAt(t.Chain, index)
		return nil
	})
	return ret, removed, err
}

func SetEffectBypass(g *Graph, id TrackID, index int, bypass bool) (*Graph, error) {
	return updateTrack(g, "SetEffectBypass", id, func(t *Track) error {
		if err := checkEffectIndex("SetEffectBypass", t, index); err != nil {
			return err
		}
		t.Chain = copySlice(t.Chain)
		t.Chain[index].Bypass = bypass
		return nil
	})
}

// SetEffectParam sets one parameter of an effect node, validated against the
// parameter table of its kind.
func SetEffectParam(g *Graph, id TrackID, index int, name string, value float64) (*Graph, error) {
	return updateTrack(g, "SetEffectParam", id, func(t *Track) error {
		if err := checkEffectIndex("SetEffectParam", t, index); err != nil {
			return err
		}
		if err := checkEffectParam("SetEffectParam", t.Chain[index].Kind, name, value); err != nil {
			return err
		}
		t.Chain = copySlice(t.Chain)
		t.Chain[index] = t.Chain[index].Copy()
		t.Chain[index].Params[name] = value
		return nil
	})
}

// AddClip adds a clip to an audio or automation track, keeping the clips
// sorted by start time. A clip with zero ID gets a new id.
func AddClip(g *Graph, id TrackID, clip Clip) (*Graph, ClipID, error) {
	if !(clip.Start >= 0) || !(clip.Duration > 0) || !(clip.FadeIn >= 0) || !(clip.FadeOut >= 0) || clip.FadeIn+clip.FadeOut > clip.Duration {
		return g, 0, validationErr("AddClip", "clip", clip, "non-negative times with fades fitting the duration")
	}
	isNew := clip.ID == 0
	ret, err := updateTrack(g, "AddClip", id, func(t *Track) error {
		if t.Kind != Regular || t.Content == StepSequence {
			return structuralErr("AddClip", int(id), "only regular audio or automation tracks own clips")
		}
		if isNew {
			clip.ID = ClipID(g.allocID())
		}
		i := sort.Search(len(t.Clips), func(i int) bool { return t.Clips[i].Start > clip.Start })
		t.Clips = insertAt(t.Clips, i, clip)
		return nil
	})
	if err != nil {
		return ret, 0, err
	}
	return ret, clip.ID, nil
}

// RemoveClip removes a clip from a track and returns it with its position,
// for RestoreClip.
func RemoveClip(g *Graph, id TrackID, clipID ClipID) (*Graph, RemovedClip, error) {
	var removed RemovedClip
	ret, err := updateTrack(g, "RemoveClip", id, func(t *Track) error {
		for i, c := range t.Clips {
			if c.ID == clipID {
				removed = RemovedClip{Clip: c, Index: i}
				t.Clips = deleteAt(t.Clips, i)
				return nil
			}
		}
		return notFound("RemoveClip", "clip", int(clipID))
	})
	return ret, removed, err
}

// RestoreClip puts back a clip removed by RemoveClip at its old position.
func RestoreClip(g *Graph, id TrackID, r RemovedClip) (*Graph, error) {
	return updateTrack(g, "RestoreClip", id, func(t *Track) error {
		if t.Kind != Regular || t.Content == StepSequence {
			return structuralErr("RestoreClip", int(id), "only regular audio or automation tracks own clips")
		}
		for _, c := range t.Clips {
			if c.ID == r.Clip.ID {
				return structuralErr("RestoreClip", int(r.Clip.ID), "clip already exists")
			}
		}
		t.Clips = insertAt(t.Clips, max(0, min(r.Index, len(t.Clips))), r.Clip)
		return nil
	})
}

// CreateScene appends a new scene with no clip launch states.
func CreateScene(g *Graph, name string) (*Graph, SceneID, error) {
	if err := g.checkLive(); err != nil {
		return g, 0, err
	}
	sc := Scene{ID: SceneID(g.allocID()), Name: name}
	if sc.Name == "" {
		sc.Name = fmt.Sprintf("Scene %d", len(g.Scenes)+1)
	}
	ret := g.Copy()
	ret.Scenes = reindexScenes(insertAt(g.Scenes, len(g.Scenes), sc))
	return ret, sc.ID, nil
}

// DeleteScene removes a scene and reindexes the scene order. The removed
// scene, with its Order, can be put back with RestoreScene.
func DeleteScene(g *Graph, id SceneID) (*Graph, Scene, error) {
	if err := g.checkLive(); err != nil {
		return g, Scene{}, err
	}
	i, ok := g.SceneIndex(id)
	if !ok {
		return g, Scene{}, notFound("DeleteScene", "scene", int(id))
	}
	ret := g.Copy()
	ret.Scenes = reindexScenes(deleteAt(g.Scenes, i))
	return ret, g.Scenes[i], nil
}

func RestoreScene(g *Graph, sc Scene) (*Graph, error) {
	if err := g.checkLive(); err != nil {
		return g, err
	}
	if _, exists := g.SceneIndex(sc.ID); exists {
		return g, structuralErr("RestoreScene", int(sc.ID), "scene already exists")
	}
	ret := g.Copy()
	ret.Scenes = reindexScenes(insertAt(g.Scenes, max(0, min(sc.Order, len(g.Scenes))), sc))
	return ret, nil
}

// SetClipLaunch sets the launch state of a track in a scene. The clip must
// belong to the track.
func SetClipLaunch(g *Graph, scene SceneID, track TrackID, launch ClipLaunch) (*Graph, error) {
	if err := g.checkLive(); err != nil {
		return g, err
	}
	i, ok := g.SceneIndex(scene)
	if !ok {
		return g, notFound("SetClipLaunch", "scene", int(scene))
	}
	t, ok := g.Track(track)
	if !ok {
		return g, notFound("SetClipLaunch", "track", int(track))
	}
	found := false
	for _, c := range t.Clips {
		found = found || c.ID == launch.Clip
	}
	if !found {
		return g, notFound("SetClipLaunch", "clip", int(launch.Clip))
	}
	ret := g.Copy()
	ret.Scenes = copySlice(g.Scenes)
	ret.Scenes[i] = withLaunch(g.Scenes[i], track, launch)
	return ret, nil
}

// ClearClipLaunch removes the launch state of a track in a scene.
func ClearClipLaunch(g *Graph, scene SceneID, track TrackID) (*Graph, error) {
	if err := g.checkLive(); err != nil {
		return g, err
	}
	i, ok := g.SceneIndex(scene)
	if !ok {
		return g, notFound("ClearClipLaunch", "scene", int(scene))
	}
	if _, ok := g.Scenes[i].Launch[track]; !ok {
		return g, nil
	}
	ret := g.Copy()
	ret.Scenes = copySlice(g.Scenes)
	ret.Scenes[i] = withoutLaunch(g.Scenes[i], track)
	return ret, nil
}

// Dispose releases every processing unit ever added to the graph or to any
// graph derived from the same NewGraph call, waiting until all of them are
// released. It is idempotent: later calls return the result of the first
// one. Afterwards, every operation on these graphs returns ErrDisposed.
func Dispose(g *Graph) error {
	if g == nil {
		return nil
	}
	r := g.res
	r.once.Do(func() {
		r.mu.Lock()
		units := r.units
		r.units = nil
		r.disposed = true
		r.mu.Unlock()
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			errs []error
		)
		for _, u := range units {
			wg.Add(1)
			go func(u Effect) {
				defer wg.Done()
				if err := u.Dispose(); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}(u)
		}
		wg.Wait()
		if len(errs) > 0 {
			r.err = &DisposalError{Errs: errs}
		}
	})
	return r.err
}

// updateTrack applies f to a copy of the track and returns a new graph with
// the track replaced. If f fails, g is returned as is.
func updateTrack(g *Graph, op string, id TrackID, f func(t *Track) error) (*Graph, error) {
	if err := g.checkLive(); err != nil {
		return g, err
	}
	i, ok := g.TrackIndex(id)
	if !ok {
		return g, notFound(op, "track", int(id))
	}
	t := g.Tracks[i]
	if err := f(&t); err != nil {
		return g, err
	}
	ret := g.Copy()
	ret.Tracks = copySlice(g.Tracks)
	ret.Tracks[i] = t
	return ret, nil
}

func checkStepIndex(op string, t *Track, index int) error {
	if t.Content != StepSequence {
		return structuralErr(op, int(t.ID), "not a step sequence track")
	}
	if index < 0 || index >= len(t.Steps) {
		return validationErr(op, "step", index, fmt.Sprintf("in [0, %d)", len(t.Steps)))
	}
	return nil
}

func checkEffectIndex(op string, t *Track, index int) error {
	if index < 0 || index >= len(t.Chain) {
		return validationErr(op, "effect index", index, fmt.Sprintf("in [0, %d)", len(t.Chain)))
	}
	return nil
}

func defaultSteps(n int) []Step {
	ret := make([]Step, n)
	for i := range ret {
		ret[i] = Step{Note: DefaultNote, Velocity: DefaultVelocity}
	}
	return ret
}

func reindexTracks(tracks []Track) []Track {
	for i := range tracks {
		tracks[i].Order = i
	}
	return tracks
}

func reindexScenes(scenes []Scene) []Scene {
	for i := range scenes {
		scenes[i].Order = i
	}
	return scenes
}

func withLaunch(sc Scene, track TrackID, l ClipLaunch) Scene {
	sc = sc.Copy()
	if sc.Launch == nil {
		sc.Launch = make(map[TrackID]ClipLaunch)
	}
	sc.Launch[track] = l
	return sc
}

func withoutLaunch(sc Scene, track TrackID) Scene {
	sc = sc.Copy()
	delete(sc.Launch, track)
	if len(sc.Launch) == 0 {
		sc.Launch = nil
	}
	return sc
}
