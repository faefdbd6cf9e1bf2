package mixseq

import (
	"sync"
)

type (
	// Graph is an immutable snapshot of the session: the ordered tracks with
	// their steps, clips and effect chains, the sends between them and the
	// scenes. Graphs are never modified after construction; all operations
	// in this package take a *Graph and return a new one, sharing the
	// sub-structures that did not change. On error, the operations return
	// the input pointer itself, so the caller can keep using it as is.
	//
	// Go does not have immutable slices, so the exported slices must be
	// treated as read-only by everyone reading a snapshot.
	Graph struct {
		Tracks   []Track // Tracks[i].Order == i always
		Sends    []Send
		Scenes   []Scene // Scenes[i].Order == i always
		NumSteps int     // number of steps in every step sequence track
		Master   TrackID // the only master track, created by NewGraph

		res *resources
	}

	TrackID int
	SendID  int
	SceneID int
	ClipID  int

	// Track is a mixer channel and, depending on Content, the notes it
	// plays. Kind tells how the track is routed: regular tracks carry
	// instruments or audio, return tracks only receive audio via sends and
	// the master track is where all audio ends up.
	Track struct {
		ID         TrackID
		Name       string
		Kind       TrackKind
		Content    ContentKind
		Order      int
		Steps      []Step // len(Steps) == Graph.NumSteps for StepSequence tracks, nil otherwise
		Clips      []Clip
		Control    Control
		Chain      EffectChain
		Parent     TrackID // the bus this track is routed to; 0 means the master
		Instrument InstrumentID
	}

	// Control is the per-track control block. Mute and Solo are stored
	// independently; whether a track is heard is always derived with
	// Audible.
	Control struct {
		Armed  bool
		Mute   bool
		Solo   bool
		Pan    float64 // -1 (left) .. 1 (right)
		Volume float64 // in decibels, 0 = unity
	}

	// Step is a single slot of a step sequence track.
	Step struct {
		Active   bool
		Note     byte
		Velocity byte
	}

	// Clip is a piece of audio placed on a track timeline. Times are in
	// seconds. Content is a reference to the sample buffer, resolved by the
	// instrument layer.
	Clip struct {
		ID       ClipID
		Start    float64
		Duration float64
		FadeIn   float64
		FadeOut  float64
		Content  string
	}

	// Send routes a part of the Source track signal to a return track.
	Send struct {
		ID          SendID
		Name        string
		Source      TrackID
		Destination TrackID
		Amount      float64 // 0 .. 1
	}

	// Scene groups clip launch states of the session view.
	Scene struct {
		ID     SceneID
		Name   string
		Order  int
		Launch map[TrackID]ClipLaunch
	}

	ClipLaunch struct {
		Clip    ClipID
		Playing bool
	}

	TrackKind   int
	ContentKind int

	// resources is shared by all the snapshots derived from the same
	// NewGraph call: the id counter, so that ids are never reused within a
	// session, and the processing units to release on Dispose.
	resources struct {
		mu       sync.Mutex
		nextID   int
		units    []Effect
		once     sync.Once
		disposed bool
		err      error
	}
)

const (
	Regular TrackKind = iota
	Return
	MasterKind
)

const (
	StepSequence ContentKind = iota
	Audio
	Automation
)

const (
	DefaultNumSteps = 16
	DefaultVelocity = 100
	DefaultNote     = 60
	MinNumSteps     = 3
)

var trackKindNames = [...]string{"regular", "return", "master"}
var contentKindNames = [...]string{"step-sequence", "audio", "automation"}

func (k TrackKind) String() string {
	if k < 0 || int(k) >= len(trackKindNames) {
		return "unknown"
	}
	return trackKindNames[k]
}

func (k ContentKind) String() string {
	if k < 0 || int(k) >= len(contentKindNames) {
		return "unknown"
	}
	return contentKindNames[k]
}

// NewGraph returns an empty graph containing only the master track. This is
// the only place where a master track is ever created.
func NewGraph(numSteps int) (*Graph, error) {
	if numSteps < MinNumSteps {
		return nil, validationErr("NewGraph", "numSteps", numSteps, "greater than 2")
	}
	g := &Graph{NumSteps: numSteps, res: &resources{nextID: 1}}
	master := Track{
		ID:      TrackID(g.allocID()),
		Name:    "Master",
		Kind:    MasterKind,
		Content: Audio,
	}
	g.Tracks = []Track{master}
	g.Master = master.ID
	return g, nil
}

// Copy returns a shallow copy of the graph: a new Graph value sharing all
// the slices of the original. Operations then replace only the slices they
// change.
func (g *Graph) Copy() *Graph {
	ret := *g
	return &ret
}

// Disposed reports if Dispose has been called on this graph or any other
// graph sharing its processing resources.
func (g *Graph) Disposed() bool {
	g.res.mu.Lock()
	defer g.res.mu.Unlock()
	return g.res.disposed
}

// TrackIndex returns the order index of the track with the given id.
func (g *Graph) TrackIndex(id TrackID) (int, bool) {
	for i := range g.Tracks {
		if g.Tracks[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// Track returns the track with the given id.
func (g *Graph) Track(id TrackID) (Track, bool) {
	if i, ok := g.TrackIndex(id); ok {
		return g.Tracks[i], true
	}
	return Track{}, false
}

func (g *Graph) SendIndex(id SendID) (int, bool) {
	for i := range g.Sends {
		if g.Sends[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func (g *Graph) SceneIndex(id SceneID) (int, bool) {
	for i := range g.Scenes {
		if g.Scenes[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// SendsFrom returns the sends whose source is the given track.
func (g *Graph) SendsFrom(id TrackID) []Send {
	var ret []Send
	for _, s := range g.Sends {
		if s.Source == id {
			ret = append(ret, s)
		}
	}
	return ret
}

// AnySoloed reports whether any track of the session is soloed.
func (g *Graph) AnySoloed() bool {
	for i := range g.Tracks {
		if g.Tracks[i].Control.Solo && g.Tracks[i].Kind != MasterKind {
			return true
		}
	}
	return false
}

// Audible derives whether a track is heard: it is not muted, and either no
// track in the session is soloed or this track is. The master track is
// not silenced by the solo state of the other tracks, only by its own mute.
func (g *Graph) Audible(id TrackID) bool {
	i, ok := g.TrackIndex(id)
	if !ok {
		return false
	}
	return g.audibleAt(i, g.AnySoloed())
}

func (g *Graph) audibleAt(i int, anySoloed bool) bool {
	t := &g.Tracks[i]
	if t.Kind == MasterKind {
		return !t.Control.Mute
	}
	if t.Control.Mute {
		return false
	}
	return !anySoloed || t.Control.Solo
}

// AudibleMask fills mask with the audibility of every track, in order, and
// returns the filled slice. It reuses the capacity of mask so that the
// realtime code can call it without allocating.
func (g *Graph) AudibleMask(mask []bool) []bool {
	mask = mask[:0]
	anySoloed := g.AnySoloed()
	for i := range g.Tracks {
		mask = append(mask, g.audibleAt(i, anySoloed))
	}
	return mask
}

func (g *Graph) allocID() int {
	g.res.mu.Lock()
	defer g.res.mu.Unlock()
	ret := g.res.nextID
	g.res.nextID++
	return ret
}

func (g *Graph) checkLive() error {
	if g == nil || g.Disposed() {
		return ErrDisposed
	}
	return nil
}

func (g *Graph) register(u Effect) {
	if u == nil {
		return
	}
	g.res.mu.Lock()
	g.res.units = append(g.res.units, u)
	g.res.mu.Unlock()
}

// Copy makes a deep copy of a Track.
func (t Track) Copy() Track {
	t.Steps = copySlice(t.Steps)
	t.Clips = copySlice(t.Clips)
	t.Chain = t.Chain.Copy()
	return t
}

// Copy makes a deep copy of a Scene.
func (s Scene) Copy() Scene {
	if s.Launch != nil {
		launch := make(map[TrackID]ClipLaunch, len(s.Launch))
		for k, v := range s.Launch {
			launch[k] = v
		}
		s.Launch = launch
	}
	return s
}

func copySlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	ret := make([]T, len(s))
	copy(ret, s)
	return ret
}

// insertAt returns a new slice with v inserted at index i.
func insertAt[T any](s []T, i int, v T) []T {
	ret := make([]T, 0, len(s)+1)
	ret = append(ret, s[:i]...)
	ret = append(ret, v)
	return append(ret, s[i:]...)
}

// deleteAt returns a new slice without the element at index i. An empty
// result is nil, so that deleting the last element gives back the same
// value a graph had before the element was ever added.
func deleteAt[T any](s []T, i int) []T {
	if len(s) == 1 {
		return nil
	}
	ret := make([]T, 0, len(s)-1)
	ret = append(ret, s[:i]...)
	return append(ret, s[i+1:]...)
}

// moveTo returns a new slice with the element at from moved to index to.
func moveTo[T any](s []T, from, to int) []T {
	v := s[from]
	return insertAt(deleteAt(s, from), to, v)
}
