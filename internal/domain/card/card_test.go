package card

import (
	"strings"
	"testing"
)

func TestRecord_Immutability(t *testing.T) {
	numerics := map[string]float64{FieldHP: 100}
	effects := []string{"突進", ""}

	r := New("ゴブリン", numerics, map[string]string{FieldClass: "ニュートラル"}, effects, nil, nil, "")

	numerics[FieldHP] = 999
	effects[0] = "mutated"

	if v, _ := r.Numeric(FieldHP); v != 100 {
		t.Errorf("record observed caller mutation: hp=%g", v)
	}
	if r.Effects()[0] != "突進" {
		t.Errorf("record observed caller mutation: effect=%q", r.Effects()[0])
	}
	if len(r.Effects()) != 1 {
		t.Errorf("empty effect slots should be dropped, got %d effects", len(r.Effects()))
	}
}

func TestRecord_NumericMissing(t *testing.T) {
	r := New("スペル", nil, nil, nil, nil, nil, "")
	if _, ok := r.Numeric(FieldAttack); ok {
		t.Error("missing field should report ok=false")
	}
}

func TestRecord_SearchableText(t *testing.T) {
	r := New("ゴブリン",
		map[string]float64{FieldHP: 100},
		map[string]string{FieldType: "フォロワー", FieldRarity: "ブロンズ"},
		[]string{"突進を持つ"},
		nil,
		[]string{"突進"},
		"")

	text := r.SearchableText()
	for _, want := range []string{"ゴブリン", "突進を持つ", "フォロワー", "ブロンズ"} {
		if !strings.Contains(text, want) {
			t.Errorf("searchable text missing %q: %q", want, text)
		}
	}
}

func TestRecord_ContextTextFallback(t *testing.T) {
	r := New("アミュレットX", nil, map[string]string{FieldType: "アミュレット"}, nil, nil, nil, "")
	if r.ContextText() == "" {
		t.Error("context text must never be empty")
	}
}
