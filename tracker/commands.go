package tracker

import (
	"github.com/vsariola/mixseq"
)

type (
	// Command is one reversible change to the session graph, executed
	// through History. The set of commands is closed: every command is one
	// of the types below. A command captures, when it is applied, whatever
	// it needs to revert itself, so the same command value must not be
	// executed twice.
	Command interface {
		Op() string
		apply(g *mixseq.Graph) (*mixseq.Graph, error)
		revert(g *mixseq.Graph) (*mixseq.Graph, error)
	}

	CreateTrack struct {
		Kind    mixseq.TrackKind
		Content mixseq.ContentKind
		Name    string
		trackCreation
	}

	CreateReturnTrack struct {
		Name string
		trackCreation
	}

	// CreateChain creates an audio track, optionally playing Instrument.
	CreateChain struct {
		Name       string
		Instrument mixseq.InstrumentID
		trackCreation
	}

	// CreateSoundChain creates a step sequence track playing Instrument.
	CreateSoundChain struct {
		Name       string
		Instrument mixseq.InstrumentID
		trackCreation
	}

	DeleteTrack struct {
		ID      mixseq.TrackID
		removed mixseq.RemovedTrack
	}

	MoveTrack struct {
		ID   mixseq.TrackID
		To   int
		from int
	}

	RenameTrack struct {
		ID   mixseq.TrackID
		Name string
		old  string
	}

	ToggleMute struct{ ID mixseq.TrackID }
	ToggleSolo struct{ ID mixseq.TrackID }
	ToggleArm  struct{ ID mixseq.TrackID }

	SetVolume struct {
		ID       mixseq.TrackID
		Decibels float64
		old      float64
	}

	SetPan struct {
		ID  mixseq.TrackID
		Pan float64
		old float64
	}

	// SetParent routes a track to a bus; Parent 0 routes it to the master.
	SetParent struct {
		ID     mixseq.TrackID
		Parent mixseq.TrackID
		old    mixseq.TrackID
	}

	CreateSend struct {
		Source mixseq.TrackID
		Return mixseq.TrackID
		Name   string
		Amount float64
		id     mixseq.SendID
		undone *mixseq.RemovedSend
	}

	DeleteSend struct {
		ID      mixseq.SendID
		removed mixseq.RemovedSend
	}

	SetSendAmount struct {
		ID     mixseq.SendID
		Amount float64
		old    float64
	}

	ToggleStep struct {
		Track mixseq.TrackID
		Index int
	}

	// SetStepNote sets the note and velocity of a step, keeping its active
	// flag.
	SetStepNote struct {
		Track    mixseq.TrackID
		Index    int
		Note     byte
		Velocity byte
		old      mixseq.Step
	}

	// AddEffect inserts Node at Index of the chain of Track; Index -1
	// appends.
	AddEffect struct {
		Track mixseq.TrackID
		Index int
		Node  mixseq.EffectNode
		at    int
	}

	RemoveEffect struct {
		Track   mixseq.TrackID
		Index   int
		removed mixseq.EffectNode
	}

	SetEffectBypass struct {
		Track  mixseq.TrackID
		Index  int
		Bypass bool
		old    bool
	}

	SetEffectParam struct {
		Track mixseq.TrackID
		Index int
		Param string
		Value float64
		old   float64
	}

	AddClip struct {
		Track mixseq.TrackID
		Clip  mixseq.Clip
	}

	RemoveClip struct {
		Track   mixseq.TrackID
		Clip    mixseq.ClipID
		removed mixseq.RemovedClip
	}

	CreateScene struct {
		Name   string
		id     mixseq.SceneID
		undone *mixseq.Scene
	}

	DeleteScene struct {
		ID      mixseq.SceneID
		removed mixseq.Scene
	}

	SetClipLaunch struct {
		Scene  mixseq.SceneID
		Track  mixseq.TrackID
		Launch mixseq.ClipLaunch
		old    mixseq.ClipLaunch
		had    bool
	}

	// trackCreation is the common part of the commands creating a track.
	// Redo puts back the very track that undo removed, so the track keeps
	// its id.
	trackCreation struct {
		id     mixseq.TrackID
		undone *mixseq.RemovedTrack
	}
)

func (c *CreateTrack) Op() string       { return "CreateTrack" }
func (c *CreateReturnTrack) Op() string { return "CreateReturnTrack" }
func (c *CreateChain) Op() string       { return "CreateChain" }
func (c *CreateSoundChain) Op() string  { return "CreateSoundChain" }
func (c *DeleteTrack) Op() string       { return "DeleteTrack" }
func (c *MoveTrack) Op() string         { return "MoveTrack" }
func (c *RenameTrack) Op() string       { return "RenameTrack" }
func (c *ToggleMute) Op() string        { return "ToggleMute" }
func (c *ToggleSolo) Op() string        { return "ToggleSolo" }
func (c *ToggleArm) Op() string         { return "ToggleArm" }
func (c *SetVolume) Op() string         { return "SetVolume" }
func (c *SetPan) Op() string            { return "SetPan" }
func (c *SetParent) Op() string         { return "SetParent" }
func (c *CreateSend) Op() string        { return "CreateSend" }
func (c *DeleteSend) Op() string        { return "DeleteSend" }
func (c *SetSendAmount) Op() string     { return "SetSendAmount" }
func (c *ToggleStep) Op() string        { return "ToggleStep" }
func (c *SetStepNote) Op() string       { return "SetStepNote" }
func (c *AddEffect) Op() string         { return "AddEffect" }
func (c *RemoveEffect) Op() string      { return "RemoveEffect" }
func (c *SetEffectBypass) Op() string   { return "SetEffectBypass" }
func (c *SetEffectParam) Op() string    { return "SetEffectParam" }
func (c *AddClip) Op() string           { return "AddClip" }
func (c *RemoveClip) Op() string        { return "RemoveClip" }
func (c *CreateScene) Op() string       { return "CreateScene" }
func (c *DeleteScene) Op() string       { return "DeleteScene" }
func (c *SetClipLaunch) Op() string     { return "SetClipLaunch" }

// track creation

// TrackID returns the id of the created track, once the command has been
// executed.
func (c *trackCreation) TrackID() mixseq.TrackID { return c.id }

func (c *trackCreation) create(g *mixseq.Graph, f func(*mixseq.Graph) (*mixseq.Graph, mixseq.TrackID, error)) (*mixseq.Graph, error) {
	if c.undone != nil {
		ret, err := mixseq.RestoreTrack(g, *c.undone)
		if err == nil {
			c.undone = nil
		}
		return ret, err
	}
	ret, id, err := f(g)
	if err == nil {
		c.id = id
	}
	return ret, err
}

func (c *trackCreation) revert(g *mixseq.Graph) (*mixseq.Graph, error) {
	ret, removed, err := mixseq.DeleteTrack(g, c.id)
	if err == nil {
		c.undone = &removed
	}
	return ret, err
}

func (c *CreateTrack) apply(g *mixseq.Graph) (*mixseq.Graph, error) {
	return c.create(g, func(g *mixseq.Graph) (*mixseq.Graph, mixseq.TrackID, error) {
		return mixseq.CreateTrack(g, c.Kind, c.Content, c.Name)
	})
}

func (c *CreateReturnTrack) apply(g *mixseq.Graph) (*mixseq.Graph, error) {
	return c.create(g, func(g *mixseq.Graph) (*mixseq.Graph, mixseq.TrackID, error) {
		return mixseq.CreateReturnTrack(g, c.Name)
	})
}

func (c *CreateChain) apply(g *mixseq.Graph) (*mixseq.Graph, error) {
	return c.create(g, func(g *mixseq.Graph) (*mixseq.Graph, mixseq.TrackID, error) {
		return mixseq.CreateChain(g, c.Name, c.Instrument)
	})
}

func (c *CreateSoundChain) apply(g *mixseq.Graph) (*mixseq.Graph, error) {
	return c.create(g, func(g *mixseq.Graph) (*mixseq.Graph, mixseq.TrackID, error) {
		return mixseq.CreateSoundChain(g, c.Name, c.Instrument)
	})
}

// track edits

func (c *DeleteTrack) apply(g *mixseq.Graph) (*mixseq.Graph, error) {
	ret, removed, err := mixseq.DeleteTrack(g, c.ID)
	if err == nil {
		c.removed = removed
	}
	return ret, err
}

func (c *DeleteTrack) revert(g *mixseq.Graph) (*mixseq.Graph, error) {
	return mixseq.RestoreTrack(g, c.removed)
}

func (c *MoveTrack) apply(g *mixseq.Graph) (*mixseq.Graph, error) {
	if i, ok := g.TrackIndex(c.ID); ok {
		c.from = i
	}
	return mixseq.MoveTrack(g, c.ID, c.To)
}

func (c *MoveTrack) revert(g *mixseq.Graph) (*mixseq.Graph, error) {
	return mixseq.MoveTrack(g, c.ID, c.from)
}

func (c *RenameTrack) apply(g *mixseq.Graph) (*mixseq.Graph, error) {
	if t, ok := g.Track(c.ID); ok {
		c.old = t.Name
	}
	return mixseq.RenameTrack(g, c.ID, c.Name)
}

func (c *RenameTrack) revert(g *mixseq.Graph) (*mixseq.Graph, error) {
	return mixseq.RenameTrack(g, c.ID, c.old)
}

func (c *ToggleMute) apply(g *mixseq.Graph) (*mixseq.Graph, error)  { return mixseq.ToggleMute(g, c.ID) }
func (c *ToggleMute) revert(g *mixseq.Graph) (*mixseq.Graph, error) { return mixseq.ToggleMute(g, c.ID) }
func (c *ToggleSolo) apply(g *mixseq.Graph) (*mixseq.Graph, error)  { return mixseq.ToggleSolo(g, c.ID) }
func (c *ToggleSolo) revert(g *mixseq.Graph) (*mixseq.Graph, error) { return mixseq.ToggleSolo(g, c.ID) }
func (c *ToggleArm) apply(g *mixseq.Graph) (*mixseq.Graph, error)   { return mixseq.ToggleArm(g, c.ID) }
func (c *ToggleArm) revert(g *mixseq.Graph) (*mixseq.Graph, error)  { return mixseq.ToggleArm(g, c.ID) }

func (c *SetVolume) apply(g *mixseq.Graph) (*mixseq.Graph, error) {
	if t, ok := g.Track(c.ID); ok {
		c.old = t.Control.Volume
	}
	return mixseq.SetVolume(g, c.ID, c.Decibels)
}

func (c *SetVolume) revert(g *mixseq.Graph) (*mixseq.Graph, error) {
	return mixseq.SetVolume(g, c.ID, c.old)
}

func (c *SetPan) apply(g *mixseq.Graph) (*mixseq.Graph, error) {
	if t, ok := g.Track(c.ID); ok {
		c.old = t.Control.Pan
	}
	return mixseq.SetPan(g, c.ID, c.Pan)
}

func (c *SetPan) revert(g *mixseq.Graph) (*mixseq.Graph, error) {
	return mixseq.SetPan(g, c.ID, c.old)
}

func (c *SetParent) apply(g *mixseq.Graph) (*mixseq.Graph, error) {
	if t, ok := g.Track(c.ID); ok {
		c.old = t.Parent
	}
	return mixseq.SetParent(g, c.ID, c.Parent)
}

func (c *SetParent) revert(g *mixseq.Graph) (*mixseq.Graph, error) {
	return mixseq.SetParent(g, c.ID, c.old)
}

// sends

// SendID returns the id of the created send, once the command has been
// executed.
func (c *CreateSend) SendID() mixseq.SendID { return c.id }

func (c *CreateSend) apply(g *mixseq.Graph) (*mixseq.Graph, error) {
	if c.undone != nil {
		ret, err := mixseq.RestoreSend(g, *c.undone)
		if err == nil {
			c.undone = nil
		}
		return ret, err
	}
	ret, id, err := mixseq.CreateSend(g, c.Source, c.Return, c.Name, c.Amount)
	if err == nil {
		c.id = id
	}
	return ret, err
}

func (c *CreateSend) revert(g *mixseq.Graph) (*mixseq.Graph, error) {
	ret, removed, err := mixseq.DeleteSend(g, c.id)
	if err == nil {
		c.undone = &removed
	}
	return ret, err
}

func (c *DeleteSend) apply(g *mixseq.Graph) (*mixseq.Graph, error) {
	ret, removed, err := mixseq.DeleteSend(g, c.ID)
	if err == nil {
		c.removed = removed
	}
	return ret, err
}

func (c *DeleteSend) revert(g *mixseq.Graph) (*mixseq.Graph, error) {
	return mixseq.RestoreSend(g, c.removed)
}

func (c *SetSendAmount) apply(g *mixseq.Graph) (*mixseq.Graph, error) {
	if i, ok := g.SendIndex(c.ID); ok {
		c.old = g.Sends[i].Amount
	}
	return mixseq.SetSendAmount(g, c.ID, c.Amount)
}

func (c *SetSendAmount) revert(g *mixseq.Graph) (*mixseq.Graph, error) {
	return mixseq.SetSendAmount(g, c.ID, c.old)
}

// steps

func (c *ToggleStep) apply(g *mixseq.Graph) (*mixseq.Graph, error) {
	return mixseq.ToggleStep(g, c.Track, c.Index)
}

func (c *ToggleStep) revert(g *mixseq.Graph) (*mixseq.Graph, error) {
	return mixseq.ToggleStep(g, c.Track, c.Index)
}

func (c *SetStepNote) apply(g *mixseq.Graph) (*mixseq.Graph, error) {
	step := mixseq.Step{Note: c.Note, Velocity: c.Velocity}
	if t, ok := g.Track(c.Track); ok && c.Index >= 0 && c.Index < len(t.Steps) {
		c.old = t.Steps[c.Index]
		step.Active = c.old.Active
	}
	return mixseq.SetStep(g, c.Track, c.Index, step)
}

func (c *SetStepNote) revert(g *mixseq.Graph) (*mixseq.Graph, error) {
	return mixseq.SetStep(g, c.Track, c.Index, c.old)
}

// effects

// NodeID returns the id of the added effect node, once the command has been
// executed.
func (c *AddEffect) NodeID() int { return c.Node.ID }

func (c *AddEffect) apply(g *mixseq.Graph) (*mixseq.Graph, error) {
	c.at = c.Index
	if t, ok := g.Track(c.Track); ok && c.Index == -1 {
		c.at = len(t.Chain)
	}
	ret, id, err := mixseq.AddEffect(g, c.Track, c.at, c.Node)
	if err == nil {
		c.Node.ID = id
	}
	return ret, err
}

func (c *AddEffect) revert(g *mixseq.Graph) (*mixseq.Graph, error) {
	ret, _, err := mixseq.RemoveEffect(g, c.Track, c.at)
	return ret, err
}

func (c *RemoveEffect) apply(g *mixseq.Graph) (*mixseq.Graph, error) {
	ret, removed, err := mixseq.RemoveEffect(g, c.Track, c.Index)
	if err == nil {
		c.removed = removed
	}
	return ret, err
}

func (c *RemoveEffect) revert(g *mixseq.Graph) (*mixseq.Graph, error) {
	ret, _, err := mixseq.AddEffect(g, c.Track, c.Index, c.removed)
	return ret, err
}

func (c *SetEffectBypass) apply(g *mixseq.Graph) (*mixseq.Graph, error) {
	if t, ok := g.Track(c.Track); ok && c.Index >= 0 && c.Index < len(t.Chain) {
		c.old = t.Chain[c.Index].Bypass
	}
	return mixseq.SetEffectBypass(g, c.Track, c.Index, c.Bypass)
}

func (c *SetEffectBypass) revert(g *mixseq.Graph) (*mixseq.Graph, error) {
	return mixseq.SetEffectBypass(g, c.Track, c.Index, c.old)
}

func (c *SetEffectParam) apply(g *mixseq.Graph) (*mixseq.Graph, error) {
	if t, ok := g.Track(c.Track); ok && c.Index >= 0 && c.Index < len(t.Chain) {
		c.old = t.Chain[c.Index].Params[c.Param]
	}
	return mixseq.SetEffectParam(g, c.Track, c.Index, c.Param, c.Value)
}

func (c *SetEffectParam) revert(g *mixseq.Graph) (*mixseq.Graph, error) {
	return mixseq.SetEffectParam(g, c.Track, c.Index, c.Param, c.old)
}

// clips

func (c *AddClip) apply(g *mixseq.Graph) (*mixseq.Graph, error) {
	ret, id, err := mixseq.AddClip(g, c.Track, c.Clip)
	if err == nil {
		c.Clip.ID = id
	}
	return ret, err
}

func (c *AddClip) revert(g *mixseq.Graph) (*mixseq.Graph, error) {
	ret, _, err := mixseq.RemoveClip(g, c.Track, c.Clip.ID)
	return ret, err
}

func (c *RemoveClip) apply(g *mixseq.Graph) (*mixseq.Graph, error) {
	ret, removed, err := mixseq.RemoveClip(g, c.Track, c.Clip)
	if err == nil {
		c.removed = removed
	}
	return ret, err
}

func (c *RemoveClip) revert(g *mixseq.Graph) (*mixseq.Graph, error) {
	return mixseq.RestoreClip(g, c.Track, c.removed)
}

// scenes

func (c *CreateScene) SceneID() mixseq.SceneID { return c.id }

func (c *CreateScene) apply(g *mixseq.Graph) (*mixseq.Graph, error) {
	if c.undone != nil {
		ret, err := mixseq.RestoreScene(g, *c.undone)
		if err == nil {
			c.undone = nil
		}
		return ret, err
	}
	ret, id, err := mixseq.CreateScene(g, c.Name)
	if err == nil {
		c.id = id
	}
	return ret, err
}

func (c *CreateScene) revert(g *mixseq.Graph) (*mixseq.Graph, error) {
	ret, removed, err := mixseq.DeleteScene(g, c.id)
	if err == nil {
		c.undone = &removed
	}
	return ret, err
}

func (c *DeleteScene) apply(g *mixseq.Graph) (*mixseq.Graph, error) {
	ret, removed, err := mixseq.DeleteScene(g, c.ID)
	if err == nil {
		c.removed = removed
	}
	return ret, err
}

func (c *DeleteScene) revert(g *mixseq.Graph) (*mixseq.Graph, error) {
	return mixseq.RestoreScene(g, c.removed)
}

func (c *SetClipLaunch) apply(g *mixseq.Graph) (*mixseq.Graph, error) {
	c.had = false
	if i, ok := g.SceneIndex(c.Scene); ok {
		c.old, c.had = g.Scenes[i].Launch[c.Track]
	}
	return mixseq.SetClipLaunch(g, c.Scene, c.Track, c.Launch)
}

func (c *SetClipLaunch) revert(g *mixseq.Graph) (*mixseq.Graph, error) {
	if c.had {
		return mixseq.SetClipLaunch(g, c.Scene, c.Track, c.old)
	}
	return mixseq.ClearClipLaunch(g, c.Scene, c.Track)
}
