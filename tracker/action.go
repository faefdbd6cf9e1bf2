package tracker

import "github.com/vsariola/mixseq"

type (
	// Action describes a user action that can be performed on the model, which
	// can be initiated by calling the Do() method. It is usually initiated by a
	// button press or a menu item. Action advertises whether it is enabled, so
	// UI can e.g. gray out buttons when the underlying action is not allowed.
	// The underlying Doer can optionally implement the Enabler interface to
	// decide if the action is enabled or not; if it does not implement the
	// Enabler interface, the action is always allowed.
	Action struct {
		doer Doer
	}

	// Doer is an interface that defines a single Do() method, which is called
	// when an action is performed.
	Doer interface {
		Do()
	}

	// Enabler is an interface that defines a single Enabled() method, which
	// is used by the UI to check if UI Action/Bool etc. is enabled or not.
	Enabler interface {
		Enabled() bool
	}
)

// Action methods

func MakeAction(doer Doer) Action {
	return Action{doer: doer}
}

func (a Action) Do() {
	e, ok := a.doer.(Enabler)
	if ok && !e.Enabled() {
		return
	}
	if a.doer != nil {
		a.doer.Do()
	}
}

func (a Action) Enabled() bool {
	if a.doer == nil {
		return false // no doer, not allowed
	}
	e, ok := a.doer.(Enabler)
	if !ok {
		return true // not enabler, always allowed
	}
	return e.Enabled()
}

// play
type play Model

func (m *Model) PlayAction() Action { return MakeAction((*play)(m)) }
func (m *play) Do()                 { (*Model)(m).Play() }

// pause
type pause Model

func (m *Model) PauseAction() Action { return MakeAction((*pause)(m)) }
func (m *pause) Enabled() bool       { return m.status.State == Playing }
func (m *pause) Do()                 { (*Model)(m).Pause() }

// stopPlaying
type stopPlaying Model

func (m *Model) StopAction() Action  { return MakeAction((*stopPlaying)(m)) }
func (m *stopPlaying) Enabled() bool { return m.status.State != Stopped }
func (m *stopPlaying) Do()           { (*Model)(m).Stop() }

// tap
type tap Model

func (m *Model) TapAction() Action { return MakeAction((*tap)(m)) }
func (m *tap) Do()                 { (*Model)(m).Tap() }

// undo
type undo Model

func (m *Model) UndoAction() Action { return MakeAction((*undo)(m)) }
func (m *undo) Enabled() bool       { return m.history.CanUndo() }
func (m *undo) Do() {
	if err := (*Model)(m).Undo(); err != nil {
		m.alerts.Add("Undo failed: "+err.Error(), Error)
	}
}

// redo
type redo Model

func (m *Model) RedoAction() Action { return MakeAction((*redo)(m)) }
func (m *redo) Enabled() bool       { return m.history.CanRedo() }
func (m *redo) Do() {
	if err := (*Model)(m).Redo(); err != nil {
		m.alerts.Add("Redo failed: "+err.Error(), Error)
	}
}

// addSoundChain
type addSoundChain Model

func (m *Model) AddSoundChainAction() Action { return MakeAction((*addSoundChain)(m)) }
func (m *addSoundChain) Enabled() bool       { return m.pool.Len() > 0 }
func (m *addSoundChain) Do() {
	var instr mixseq.InstrumentID
	for id := range m.pool.All {
		instr = id
		break
	}
	if _, err := (*Model)(m).CreateSoundChain("", instr); err != nil {
		m.alerts.Add("Adding a track failed: "+err.Error(), Error)
	}
}

// addReturnTrack
type addReturnTrack Model

func (m *Model) AddReturnTrackAction() Action { return MakeAction((*addReturnTrack)(m)) }
func (m *addReturnTrack) Do() {
	if _, err := (*Model)(m).CreateReturnTrack(""); err != nil {
		m.alerts.Add("Adding a return track failed: "+err.Error(), Error)
	}
}
