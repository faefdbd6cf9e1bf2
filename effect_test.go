package mixseq_test

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/vsariola/mixseq"
)

func TestCreateEffectNodeAllKinds(t *testing.T) {
	kinds := mixseq.EffectKinds()
	if len(kinds) != 16 {
		t.Fatalf("expected 16 effect kinds, got %d", len(kinds))
	}
	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			node, err := mixseq.CreateEffectNode(kind, mixseq.EffectOptions{})
			if err != nil {
				t.Fatalf("CreateEffectNode failed: %v", err)
			}
			if node.Wet() != 1 {
				t.Errorf("wet should default to 1, got %v", node.Wet())
			}
			params, _ := kind.Parameters()
			if len(node.Params) != len(params) {
				t.Errorf("node has %d params, kind declares %d", len(node.Params), len(params))
			}
			if node.Unit() == nil {
				t.Errorf("node should have a processing unit")
			}
			if kind.DisplayName() == "" {
				t.Errorf("empty display name")
			}
		})
	}
}

func TestCreateEffectNodeUnknownKind(t *testing.T) {
	_, err := mixseq.CreateEffectNode("flanger", mixseq.EffectOptions{})
	var uerr *mixseq.UnknownEffectTypeError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UnknownEffectTypeError, got %v", err)
	}
	if uerr.Kind != "flanger" {
		t.Fatalf("error names kind %q", uerr.Kind)
	}
}

func TestCreateEffectNodeOptions(t *testing.T) {
	node, err := mixseq.CreateEffectNode(mixseq.Reverb, mixseq.EffectOptions{Preset: "plate", Params: map[string]float64{"decay": 3}})
	if err != nil {
		t.Fatalf("CreateEffectNode failed: %v", err)
	}
	if node.Params["decay"] != 3 {
		t.Errorf("explicit params should override the preset, got decay %v", node.Params["decay"])
	}
	if node.Wet() != 0.6 {
		t.Errorf("preset wet not applied, got %v", node.Wet())
	}
	node, err = mixseq.CreateEffectNode(mixseq.FeedbackDelay, mixseq.EffectOptions{Params: map[string]float64{"wet": 0.25}})
	if err != nil {
		t.Fatalf("CreateEffectNode failed: %v", err)
	}
	if node.Wet() != 0.25 {
		t.Errorf("wet override not applied, got %v", node.Wet())
	}
	var verr *mixseq.ValidationError
	if _, err := mixseq.CreateEffectNode(mixseq.BitCrusher, mixseq.EffectOptions{Params: map[string]float64{"bits": 32}}); !errors.As(err, &verr) {
		t.Errorf("bits 32 should fail validation, got %v", err)
	}
	if _, err := mixseq.CreateEffectNode(mixseq.BitCrusher, mixseq.EffectOptions{Params: map[string]float64{"decay": 1}}); !errors.As(err, &verr) {
		t.Errorf("unknown parameter should fail validation, got %v", err)
	}
	if _, err := mixseq.CreateEffectNode(mixseq.Reverb, mixseq.EffectOptions{Preset: "cathedral"}); !errors.As(err, &verr) {
		t.Errorf("unknown preset should fail validation, got %v", err)
	}
	if presets := mixseq.EffectPresets(mixseq.Reverb); !reflect.DeepEqual(presets, []string{"hall", "plate", "room"}) {
		t.Errorf("unexpected reverb presets %v", presets)
	}
}

func TestEffectChainOperations(t *testing.T) {
	g := newGraph(t)
	g, a := mustCreate(t, g, mixseq.Regular, mixseq.Audio, "A")
	filter, _ := mixseq.CreateEffectNode(mixseq.Filter, mixseq.EffectOptions{})
	before := g
	g, id, err := mixseq.AddEffect(g, a, -1, filter)
	if err != nil {
		t.Fatalf("AddEffect failed: %v", err)
	}
	if id == 0 {
		t.Fatalf("added node should get an id")
	}
	g2, err := mixseq.SetEffectParam(g, a, 0, "frequency", 1000)
	if err != nil {
		t.Fatalf("SetEffectParam failed: %v", err)
	}
	if tr, _ := g.Track(a); tr.Chain[0].Params["frequency"] != 350 {
		t.Fatalf("SetEffectParam modified the original snapshot")
	}
	if _, err := mixseq.SetEffectParam(g, a, 0, "frequency", 50000); err == nil {
		t.Fatalf("out of range parameter should fail")
	}
	g2, err = mixseq.SetEffectBypass(g2, a, 0, true)
	if err != nil {
		t.Fatalf("SetEffectBypass failed: %v", err)
	}
	if tr, _ := g2.Track(a); !tr.Chain[0].Bypass || tr.Chain[0].ID != id {
		t.Fatalf("bypass not set: %+v", tr.Chain[0])
	}
	g3, removed, err := mixseq.RemoveEffect(g, a, 0)
	if err != nil {
		t.Fatalf("RemoveEffect failed: %v", err)
	}
	if !reflect.DeepEqual(g3, before) {
		t.Fatalf("removing the only effect should give back the original graph")
	}
	g4, id2, err := mixseq.AddEffect(g3, a, 0, removed)
	if err != nil || id2 != id {
		t.Fatalf("re-adding a removed node should keep its id, got %d, %v", id2, err)
	}
	if !reflect.DeepEqual(g4, g) {
		t.Fatalf("re-adding the removed node should give back the graph with the effect")
	}
}

func TestAddEffectFillsDefaults(t *testing.T) {
	g := newGraph(t)
	g, a := mustCreate(t, g, mixseq.Regular, mixseq.Audio, "A")
	g, _, err := mixseq.AddEffect(g, a, -1, mixseq.EffectNode{Kind: mixseq.Filter})
	if err != nil {
		t.Fatalf("AddEffect failed: %v", err)
	}
	tr, _ := g.Track(a)
	params, _ := mixseq.Filter.Parameters()
	for _, p := range params {
		if v, ok := tr.Chain[0].Params[p.Name]; !ok || v != p.Default {
			t.Errorf("parameter %s: expected default %v, got %v (present %v)", p.Name, p.Default, v, ok)
		}
	}
	g, err = mixseq.SetEffectParam(g, a, 0, "q", 2)
	if err != nil {
		t.Fatalf("SetEffectParam failed: %v", err)
	}
	if tr, _ := g.Track(a); tr.Chain[0].Params["q"] != 2 {
		t.Fatalf("expected q 2, got %v", tr.Chain[0].Params["q"])
	}
	bad := mixseq.EffectNode{Kind: mixseq.Filter, Params: map[string]float64{"frequency": 50000}}
	if g2, _, err := mixseq.AddEffect(g, a, -1, bad); err == nil || g2 != g {
		t.Fatalf("out of range parameter should fail and leave the graph, got %v", err)
	}
	if _, err := mixseq.SetEffectParam(g, a, 0, "q", math.NaN()); err == nil {
		t.Fatalf("NaN parameter should fail")
	}
}
