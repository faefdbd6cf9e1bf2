package tracker

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"

	"github.com/vsariola/mixseq"
	"gopkg.in/yaml.v3"
)

//go:embed templates/default.yml
var defaultSessionYAML []byte

type (
	// SessionTemplate describes a starting session: the tempo, the step
	// sequence tracks with their active steps and the return tracks they
	// send to. Tracks refer to instruments by their pool ids.
	SessionTemplate struct {
		NumSteps      int                  `yaml:"numSteps"`
		BPM           float64              `yaml:"bpm"`
		TimeSignature mixseq.TimeSignature `yaml:"timeSignature"`
		Returns       []ReturnTemplate     `yaml:"returns"`
		Tracks        []TrackTemplate      `yaml:"tracks"`

		// NewEffectUnit creates the processing units of the effects. If nil,
		// parameter-only units are used.
		NewEffectUnit func(mixseq.EffectKind) mixseq.Effect `yaml:"-"`
	}

	ReturnTemplate struct {
		Name    string           `yaml:"name"`
		Effects []EffectTemplate `yaml:"effects"`
	}

	TrackTemplate struct {
		Name       string              `yaml:"name"`
		Instrument mixseq.InstrumentID `yaml:"instrument"`
		Note       byte                `yaml:"note"`
		Velocity   byte                `yaml:"velocity"`
		Steps      []int               `yaml:"steps,flow"`
		Volume     float64             `yaml:"volume"`
		Pan        float64             `yaml:"pan"`
		Effects    []EffectTemplate    `yaml:"effects"`
		Sends      []SendTemplate      `yaml:"sends"`
	}

	EffectTemplate struct {
		Kind   mixseq.EffectKind  `yaml:"kind"`
		Preset string             `yaml:"preset"`
		Params map[string]float64 `yaml:"params"`
	}

	// SendTemplate sends the track to the return track named To.
	SendTemplate struct {
		To     string  `yaml:"to"`
		Amount float64 `yaml:"amount"`
	}
)

// DefaultSessionTemplate returns the built-in starting session.
func DefaultSessionTemplate() (SessionTemplate, error) {
	return ParseSessionTemplate(defaultSessionYAML)
}

// ParseSessionTemplate parses a session template from YAML. Unknown fields
// are errors.
func ParseSessionTemplate(data []byte) (SessionTemplate, error) {
	t := SessionTemplate{
		NumSteps:      mixseq.DefaultNumSteps,
		BPM:           mixseq.DefaultBPM,
		TimeSignature: mixseq.DefaultTimeSignature,
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return SessionTemplate{}, fmt.Errorf("could not parse session template: %w", err)
	}
	if err := mixseq.ValidateBPM(t.BPM); err != nil {
		return SessionTemplate{}, err
	}
	if err := t.TimeSignature.Validate(); err != nil {
		return SessionTemplate{}, err
	}
	return t, nil
}

// Build creates the graph of the template. If it fails, everything created
// so far is disposed.
func (t SessionTemplate) Build() (*mixseq.Graph, error) {
	g, err := mixseq.NewGraph(t.NumSteps)
	if err != nil {
		return nil, err
	}
	if g, err = t.build(g); err != nil {
		return nil, errors.Join(err, mixseq.Dispose(g))
	}
	return g, nil
}

func (t SessionTemplate) build(g *mixseq.Graph) (*mixseq.Graph, error) {
	var err error
	returns := map[string]mixseq.TrackID{}
	for _, r := range t.Returns {
		var id mixseq.TrackID
		if g, id, err = mixseq.CreateReturnTrack(g, r.Name); err != nil {
			return g, fmt.Errorf("return track %q: %w", r.Name, err)
		}
		if g, err = t.addEffects(g, id, r.Effects); err != nil {
			return g, fmt.Errorf("return track %q: %w", r.Name, err)
		}
		returns[r.Name] = id
	}
	for _, tt := range t.Tracks {
		if g, err = t.buildTrack(g, tt, returns); err != nil {
			return g, fmt.Errorf("track %q: %w", tt.Name, err)
		}
	}
	return g, nil
}

func (t SessionTemplate) buildTrack(g *mixseq.Graph, tt TrackTemplate, returns map[string]mixseq.TrackID) (*mixseq.Graph, error) {
	g, id, err := mixseq.CreateSoundChain(g, tt.Name, tt.Instrument)
	if err != nil {
		return g, err
	}
	step := mixseq.Step{Active: true, Note: tt.Note, Velocity: tt.Velocity}
	if step.Note == 0 {
		step.Note = mixseq.DefaultNote
	}
	if step.Velocity == 0 {
		step.Velocity = mixseq.DefaultVelocity
	}
	for _, i := range tt.Steps {
		if g, err = mixseq.SetStep(g, id, i, step); err != nil {
			return g, err
		}
	}
	if g, err = mixseq.SetVolume(g, id, tt.Volume); err != nil {
		return g, err
	}
	if g, err = mixseq.SetPan(g, id, tt.Pan); err != nil {
		return g, err
	}
	if g, err = t.addEffects(g, id, tt.Effects); err != nil {
		return g, err
	}
	for _, s := range tt.Sends {
		ret, ok := returns[s.To]
		if !ok {
			return g, fmt.Errorf("send to unknown return track %q", s.To)
		}
		if g, _, err = mixseq.CreateSend(g, id, ret, s.To, s.Amount); err != nil {
			return g, err
		}
	}
	return g, nil
}

func (t SessionTemplate) addEffects(g *mixseq.Graph, id mixseq.TrackID, effects []EffectTemplate) (*mixseq.Graph, error) {
	for _, e := range effects {
		if _, ok := e.Kind.Parameters(); !ok {
			return g, &mixseq.UnknownEffectTypeError{Kind: e.Kind}
		}
		var unit mixseq.Effect
		if t.NewEffectUnit != nil {
			unit = t.NewEffectUnit(e.Kind)
		}
		node, err := mixseq.CreateEffectNode(e.Kind, mixseq.EffectOptions{Preset: e.Preset, Params: e.Params, Unit: unit})
		if err == nil {
			g, _, err = mixseq.AddEffect(g, id, -1, node)
		}
		if err != nil {
			if unit != nil {
				err = errors.Join(err, unit.Dispose())
			}
			return g, err
		}
	}
	return g, nil
}

// LoadTemplate replaces the session with a new one built from t. The old
// graph is disposed and the history cleared.
func (m *Model) LoadTemplate(t SessionTemplate) error {
	g, err := t.Build()
	if err != nil {
		return err
	}
	m.Stop()
	old := m.graph
	m.SetGraph(g)
	m.history.Clear()
	if err := mixseq.Dispose(old); err != nil {
		m.log.Warn("disposing the previous session failed", "err", err)
	}
	m.sig = t.TimeSignature
	m.log.Info("session loaded", "tracks", len(g.Tracks), "steps", g.NumSteps)
	return m.SetBPM(t.BPM)
}
