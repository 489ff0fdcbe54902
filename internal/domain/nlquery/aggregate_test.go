package nlquery

import (
	"testing"

	"github.com/shirokane-labs/cardex/internal/domain/card"
)

func numericCard(title string, fields map[string]float64) card.Record {
	return card.New(title, fields, nil, nil, nil, nil, "")
}

func TestDetectAggregation_Max(t *testing.T) {
	spec, ok := DetectAggregation("一番高いHPのカードは？")
	if !ok {
		t.Fatal("expected detection")
	}
	if spec.Kind() != AggMax || spec.Field() != card.FieldHP {
		t.Errorf("expected max/hp, got %s/%s", spec.Kind(), spec.Field())
	}
	if spec.Trigger() != "一番高い" {
		t.Errorf("expected trigger 一番高い, got %q", spec.Trigger())
	}
	if spec.FieldTerm() != "HP" {
		t.Errorf("expected field term HP, got %q", spec.FieldTerm())
	}
}

func TestDetectAggregation_Min(t *testing.T) {
	spec, ok := DetectAggregation("コストが最小のカード")
	if !ok {
		t.Fatal("expected detection")
	}
	if spec.Kind() != AggMin || spec.Field() != card.FieldCost {
		t.Errorf("expected min/cost, got %s/%s", spec.Kind(), spec.Field())
	}
}

func TestDetectAggregation_DamageAliasResolvesToAttack(t *testing.T) {
	spec, ok := DetectAggregation("ダメージが一番高いカードを教えて")
	if !ok {
		t.Fatal("expected detection")
	}
	if spec.Field() != card.FieldAttack {
		t.Errorf("ダメージ should resolve to attack in aggregation context, got %s", spec.Field())
	}
}

func TestDetectAggregation_TopN_Arabic(t *testing.T) {
	spec, ok := DetectAggregation("攻撃力トップ5のカード")
	if !ok {
		t.Fatal("expected detection")
	}
	if spec.Kind() != AggTopN || spec.Count() != 5 || spec.Field() != card.FieldAttack {
		t.Errorf("expected topn/5/attack, got %s/%d/%s", spec.Kind(), spec.Count(), spec.Field())
	}
}

func TestDetectAggregation_TopN_Kanji(t *testing.T) {
	spec, ok := DetectAggregation("HP上位三のカードを見せて")
	if !ok {
		t.Fatal("expected detection")
	}
	if spec.Kind() != AggTopN || spec.Count() != 3 {
		t.Errorf("expected topn/3, got %s/%d", spec.Kind(), spec.Count())
	}
}

func TestDetectAggregation_FullWidthCount(t *testing.T) {
	spec, ok := DetectAggregation("コスト上位３")
	if !ok {
		t.Fatal("expected detection")
	}
	if spec.Count() != 3 {
		t.Errorf("expected count 3, got %d", spec.Count())
	}
}

func TestDetectAggregation_NoFieldNearTrigger(t *testing.T) {
	if _, ok := DetectAggregation("一番高い山はどこ"); ok {
		t.Error("trigger without a card field should not detect")
	}
}

func TestDetectAggregation_NoTrigger(t *testing.T) {
	if _, ok := DetectAggregation("HPが高めのカード"); ok {
		t.Error("text without an extremum marker should not detect")
	}
}

func TestParseCount_Kanji(t *testing.T) {
	cases := map[string]int{"三": 3, "十": 10, "十五": 15, "二十": 20, "二十一": 21}
	for s, want := range cases {
		if got := parseCount(s); got != want {
			t.Errorf("parseCount(%q) = %d, want %d", s, got, want)
		}
	}
}

func TestSelectAggregation_MaxKeepsAllTies(t *testing.T) {
	records := []card.Record{
		numericCard("A", map[string]float64{card.FieldHP: 100}),
		numericCard("B", map[string]float64{card.FieldHP: 100}),
		numericCard("C", map[string]float64{card.FieldHP: 100}),
		numericCard("D", map[string]float64{card.FieldHP: 50}),
	}
	spec := NewAggregationSpec(AggMax, card.FieldHP, 0)

	got := SelectAggregation(records, spec)
	if len(got) != 3 {
		t.Fatalf("expected all 3 tied records, got %d", len(got))
	}
}

func TestSelectAggregation_MinExcludesMissingField(t *testing.T) {
	records := []card.Record{
		numericCard("A", map[string]float64{card.FieldCost: 2}),
		numericCard("B", nil),
		numericCard("C", map[string]float64{card.FieldCost: 5}),
	}
	spec := NewAggregationSpec(AggMin, card.FieldCost, 0)

	got := SelectAggregation(records, spec)
	if len(got) != 1 || got[0].Title() != "A" {
		t.Fatalf("expected only A, got %d records", len(got))
	}
}

func TestSelectAggregation_EmptyCollection(t *testing.T) {
	for _, kind := range []AggKind{AggMax, AggMin, AggTopN} {
		spec := NewAggregationSpec(kind, card.FieldHP, 3)
		if got := SelectAggregation(nil, spec); len(got) != 0 {
			t.Errorf("%s over empty collection should return [], got %d", kind, len(got))
		}
	}
}

func TestSelectAggregation_AllInvalidYieldsEmpty(t *testing.T) {
	records := []card.Record{numericCard("A", nil), numericCard("B", nil)}
	spec := NewAggregationSpec(AggMax, card.FieldHP, 0)
	if got := SelectAggregation(records, spec); len(got) != 0 {
		t.Errorf("all-invalid input should yield empty result, got %d", len(got))
	}
}

func TestSelectAggregation_TopN(t *testing.T) {
	records := []card.Record{
		numericCard("A", map[string]float64{card.FieldAttack: 10}),
		numericCard("B", map[string]float64{card.FieldAttack: 30}),
		numericCard("C", map[string]float64{card.FieldAttack: 20}),
	}

	got := SelectAggregation(records, NewAggregationSpec(AggTopN, card.FieldAttack, 2))
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Title() != "B" || got[1].Title() != "C" {
		t.Errorf("expected descending order [B C], got [%s %s]", got[0].Title(), got[1].Title())
	}
}

func TestSelectAggregation_TopNCountEdgeCases(t *testing.T) {
	records := []card.Record{
		numericCard("A", map[string]float64{card.FieldAttack: 10}),
		numericCard("B", map[string]float64{card.FieldAttack: 30}),
	}

	if got := SelectAggregation(records, NewAggregationSpec(AggTopN, card.FieldAttack, 0)); len(got) != 0 {
		t.Errorf("count=0 should return [], got %d", len(got))
	}
	if got := SelectAggregation(records, NewAggregationSpec(AggTopN, card.FieldAttack, -2)); len(got) != 0 {
		t.Errorf("negative count should return [], got %d", len(got))
	}
	if got := SelectAggregation(records, NewAggregationSpec(AggTopN, card.FieldAttack, 10)); len(got) != 2 {
		t.Errorf("count beyond valid records should return all valid, got %d", len(got))
	}
}
