package tracker

type (
	Bool struct {
		BoolData
	}

	BoolData interface {
		Value() bool
		Enabled() bool
		setValue(bool)
	}

	IsPlaying   Model
	PatternLoop Model
	LoopToggle  Model
)

func (v Bool) Toggle() {
	v.Set(!v.Value())
}

func (v Bool) Set(value bool) {
	if v.Enabled() && v.Value() != value {
		v.setValue(value)
	}
}

// Model methods

func (m *Model) IsPlaying() *IsPlaying     { return (*IsPlaying)(m) }
func (m *Model) PatternLoop() *PatternLoop { return (*PatternLoop)(m) }
func (m *Model) LoopToggle() *LoopToggle   { return (*LoopToggle)(m) }

// IsPlaying methods

func (m *IsPlaying) Bool() Bool  { return Bool{m} }
func (m *IsPlaying) Value() bool { return m.status.State == Playing }
func (m *IsPlaying) setValue(val bool) {
	if val {
		(*Model)(m).Play()
	} else {
		(*Model)(m).Pause()
	}
}
func (m *IsPlaying) Enabled() bool { return true }

// PatternLoop methods

func (m *PatternLoop) Bool() Bool        { return Bool{m} }
func (m *PatternLoop) Value() bool       { return m.patternLoop }
func (m *PatternLoop) setValue(val bool) { (*Model)(m).SetPatternLoop(val) }
func (m *PatternLoop) Enabled() bool     { return true }

// LoopToggle methods

func (m *LoopToggle) Bool() Bool  { return Bool{m} }
func (m *LoopToggle) Value() bool { return m.loop.Enabled }
func (m *LoopToggle) setValue(val bool) {
	(*Model)(m).SetLoop(val, m.loop.Start, m.loop.End)
}
func (m *LoopToggle) Enabled() bool { return m.loop.End > m.loop.Start }
