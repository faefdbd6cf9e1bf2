package mixseq

import (
	"embed"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v2"
)

//go:embed presets/*.yml
var effectPresetFS embed.FS

type (
	// EffectKind is the type of an effect unit, e.g. "filter" or "reverb".
	// Always in lowercase; the set of kinds is closed and listed in
	// EffectTypes.
	EffectKind string

	// EffectParameter documents one parameter that an effect kind takes.
	EffectParameter struct {
		Name     string // should be found with this name in EffectNode.Params
		MinValue float64
		MaxValue float64
		Default  float64
	}

	// Effect is the opaque processing unit behind an effect node. The
	// sequencer core does no signal processing; whoever renders the audio
	// provides the units and keeps them in sync with the snapshots.
	Effect interface {
		SetParameter(name string, value float64) error
		Dispose() error
	}

	// EffectNode is one entry of an effect chain. Params always contains a
	// value for every parameter of the kind.
	EffectNode struct {
		ID     int
		Kind   EffectKind
		Bypass bool
		Params map[string]float64
		unit   Effect
	}

	// EffectChain is the ordered list of effects a track signal goes
	// through.
	EffectChain []EffectNode

	// EffectOptions are the optional arguments of CreateEffectNode. Preset
	// values are applied first, then Params on top of them.
	EffectOptions struct {
		Preset string
		Params map[string]float64
		Bypass bool
		Unit   Effect // if nil, a parameter-only unit is created
	}

	// parameterUnit is the built-in Effect: it keeps track of the parameter
	// surface but does not process audio.
	parameterUnit struct {
		kind     EffectKind
		mu       sync.Mutex
		params   map[string]float64
		disposed bool
	}
)

const (
	Filter           EffectKind = "filter"
	Panner           EffectKind = "panner"
	AutoWah          EffectKind = "auto-wah"
	BitCrusher       EffectKind = "bit-crusher"
	Distortion       EffectKind = "distortion"
	FeedbackDelay    EffectKind = "feedback-delay"
	PingPongDelay    EffectKind = "ping-pong-delay"
	Reverb           EffectKind = "reverb"
	Freeverb         EffectKind = "freeverb"
	JCReverb         EffectKind = "jc-reverb"
	PitchShift       EffectKind = "pitch-shift"
	FrequencyShifter EffectKind = "frequency-shifter"
	Chorus           EffectKind = "chorus"
	Phaser           EffectKind = "phaser"
	Tremolo          EffectKind = "tremolo"
	StereoWidener    EffectKind = "stereo-widener"
)

// EffectTypes documents all the available effect kinds and what parameters
// they take. Every kind additionally takes "wet", see wetParameter.
var EffectTypes = map[EffectKind][]EffectParameter{
	Filter: {
		{Name: "frequency", MinValue: 10, MaxValue: 20000, Default: 350},
		{Name: "q", MinValue: 0.0001, MaxValue: 100, Default: 1},
		{Name: "gain", MinValue: -40, MaxValue: 40, Default: 0}},
	Panner: {
		{Name: "pan", MinValue: -1, MaxValue: 1, Default: 0}},
	AutoWah: {
		{Name: "baseFrequency", MinValue: 10, MaxValue: 2000, Default: 100},
		{Name: "octaves", MinValue: 0, MaxValue: 8, Default: 6},
		{Name: "sensitivity", MinValue: -40, MaxValue: 0, Default: 0},
		{Name: "q", MinValue: 0.1, MaxValue: 10, Default: 2}},
	BitCrusher: {
		{Name: "bits", MinValue: 1, MaxValue: 16, Default: 4}},
	Distortion: {
		{Name: "distortion", MinValue: 0, MaxValue: 1, Default: 0.4}},
	FeedbackDelay: {
		{Name: "delayTime", MinValue: 0, MaxValue: 1, Default: 0.25},
		{Name: "feedback", MinValue: 0, MaxValue: 1, Default: 0.125}},
	PingPongDelay: {
		{Name: "delayTime", MinValue: 0, MaxValue: 1, Default: 0.25},
		{Name: "feedback", MinValue: 0, MaxValue: 1, Default: 0.2}},
	Reverb: {
		{Name: "decay", MinValue: 0.001, MaxValue: 60, Default: 1.5},
		{Name: "preDelay", MinValue: 0, MaxValue: 1, Default: 0.01}},
	Freeverb: {
		{Name: "roomSize", MinValue: 0, MaxValue: 1, Default: 0.7},
		{Name: "dampening", MinValue: 0, MaxValue: 20000, Default: 3000}},
	JCReverb: {
		{Name: "roomSize", MinValue: 0, MaxValue: 1, Default: 0.5}},
	PitchShift: {
		{Name: "pitch", MinValue: -24, MaxValue: 24, Default: 0},
		{Name: "windowSize", MinValue: 0.03, MaxValue: 0.1, Default: 0.1},
		{Name: "delayTime", MinValue: 0, MaxValue: 1, Default: 0},
		{Name: "feedback", MinValue: 0, MaxValue: 1, Default: 0}},
	FrequencyShifter: {
		{Name: "frequency", MinValue: -2000, MaxValue: 2000, Default: 0}},
	Chorus: {
		{Name: "frequency", MinValue: 0, MaxValue: 20, Default: 1.5},
		{Name: "delayTime", MinValue: 2, MaxValue: 20, Default: 3.5},
		{Name: "depth", MinValue: 0, MaxValue: 1, Default: 0.7},
		{Name: "spread", MinValue: 0, MaxValue: 180, Default: 180}},
	Phaser: {
		{Name: "frequency", MinValue: 0, MaxValue: 20, Default: 0.5},
		{Name: "octaves", MinValue: 0, MaxValue: 8, Default: 3},
		{Name: "baseFrequency", MinValue: 10, MaxValue: 2000, Default: 350},
		{Name: "q", MinValue: 0, MaxValue: 100, Default: 10}},
	Tremolo: {
		{Name: "frequency", MinValue: 0, MaxValue: 40, Default: 10},
		{Name: "depth", MinValue: 0, MaxValue: 1, Default: 0.5},
		{Name: "spread", MinValue: 0, MaxValue: 180, Default: 180}},
	StereoWidener: {
		{Name: "width", MinValue: 0, MaxValue: 1, Default: 0.5}},
}

var wetParameter = EffectParameter{Name: "wet", MinValue: 0, MaxValue: 1, Default: 1}

var (
	effectPresets     map[EffectKind]map[string]map[string]float64
	effectPresetsOnce sync.Once
	effectPresetsErr  error
)

// EffectKinds returns all the known effect kinds, sorted.
func EffectKinds() []EffectKind {
	ret := make([]EffectKind, 0, len(EffectTypes))
	for k := range EffectTypes {
		ret = append(ret, k)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

// DisplayName returns the kind in a form suitable for showing to a user,
// e.g. "Ping Pong Delay".
func (k EffectKind) DisplayName() string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(k), "-", " "))
}

// Parameters returns the parameters of the kind, including wet, and false
// if the kind is unknown.
func (k EffectKind) Parameters() ([]EffectParameter, bool) {
	params, ok := EffectTypes[k]
	if !ok {
		return nil, false
	}
	ret := make([]EffectParameter, 0, len(params)+1)
	ret = append(ret, params...)
	return append(ret, wetParameter), true
}

// Parameter returns the parameter description with the given name.
func (k EffectKind) Parameter(name string) (EffectParameter, bool) {
	if name == wetParameter.Name {
		_, ok := EffectTypes[k]
		return wetParameter, ok
	}
	for _, p := range EffectTypes[k] {
		if p.Name == name {
			return p, true
		}
	}
	return EffectParameter{}, false
}

// EffectPresets returns the names of the built-in presets for a kind.
func EffectPresets(kind EffectKind) []string {
	presets, _ := loadEffectPresets()
	ret := make([]string, 0, len(presets[kind]))
	for name := range presets[kind] {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// CreateEffectNode creates a new effect node of the given kind. The node
// gets the default value of every parameter, overridden by the preset and
// then by the explicit parameters in options. wet defaults to 1. The node id
// is assigned when the node is added to a graph with AddEffect.
func CreateEffectNode(kind EffectKind, options EffectOptions) (EffectNode, error) {
	params, ok := kind.Parameters()
	if !ok {
		return EffectNode{}, &UnknownEffectTypeError{Kind: kind}
	}
	values := make(map[string]float64, len(params))
	for _, p := range params {
		values[p.Name] = p.Default
	}
	if options.Preset != "" {
		presets, err := loadEffectPresets()
		if err != nil {
			return EffectNode{}, err
		}
		preset, ok := presets[kind][options.Preset]
		if !ok {
			return EffectNode{}, validationErr("CreateEffectNode", "preset", options.Preset, "a preset of "+string(kind))
		}
		maps.Copy(values, preset)
	}
	for name, v := range options.Params {
		if err := checkEffectParam("CreateEffectNode", kind, name, v); err != nil {
			return EffectNode{}, err
		}
		values[name] = v
	}
	unit := options.Unit
	if unit == nil {
		unit = &parameterUnit{kind: kind, params: maps.Clone(values)}
	}
	return EffectNode{Kind: kind, Bypass: options.Bypass, Params: values, unit: unit}, nil
}

// Unit returns the processing unit of the node.
func (n EffectNode) Unit() Effect { return n.unit }

// Wet returns the dry/wet mix of the node, 1 being fully wet.
func (n EffectNode) Wet() float64 { return n.Params[wetParameter.Name] }

// Copy makes a deep copy of the node; the processing unit is shared.
func (n EffectNode) Copy() EffectNode {
	n.Params = maps.Clone(n.Params)
	return n
}

// Copy makes a deep copy of the chain.
func (c EffectChain) Copy() EffectChain {
	if c == nil {
		return nil
	}
	ret := make(EffectChain, len(c))
	for i, n := range c {
		ret[i] = n.Copy()
	}
	return ret
}

func checkEffectParam(op string, kind EffectKind, name string, v float64) error {
	p, ok := kind.Parameter(name)
	if !ok {
		return validationErr(op, "parameter", name, "a parameter of "+string(kind))
	}
	if !(v >= p.MinValue && v <= p.MaxValue) {
		return validationErr(op, name, v, fmt.Sprintf("in [%g, %g]", p.MinValue, p.MaxValue))
	}
	return nil
}

func loadEffectPresets() (map[EffectKind]map[string]map[string]float64, error) {
	effectPresetsOnce.Do(func() {
		effectPresets = make(map[EffectKind]map[string]map[string]float64)
		entries, err := effectPresetFS.ReadDir("presets")
		if err != nil {
			effectPresetsErr = fmt.Errorf("could not read effect presets: %w", err)
			return
		}
		for _, e := range entries {
			data, err := effectPresetFS.ReadFile("presets/" + e.Name())
			if err != nil {
				effectPresetsErr = fmt.Errorf("could not read effect preset %s: %w", e.Name(), err)
				return
			}
			var presets map[string]map[string]float64
			if err := yaml.UnmarshalStrict(data, &presets); err != nil {
				effectPresetsErr = fmt.Errorf("could not parse effect preset %s: %w", e.Name(), err)
				return
			}
			kind := EffectKind(strings.TrimSuffix(e.Name(), ".yml"))
			effectPresets[kind] = presets
		}
	})
	return effectPresets, effectPresetsErr
}

func (u *parameterUnit) SetParameter(name string, value float64) error {
	if err := checkEffectParam("SetParameter", u.kind, name, value); err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.disposed {
		return ErrDisposed
	}
	u.params[name] = value
	return nil
}

func (u *parameterUnit) Dispose() error {
	u.mu.Lock()
	u.disposed = true
	u.mu.Unlock()
	return nil
}
