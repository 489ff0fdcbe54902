package vector

import "github.com/shirokane-labs/cardex/internal/domain/query"

// Namespaces names the index partitions the engine can query. Each card is
// embedded per facet: one partition per effect slot, one per Q&A side, one
// for flavor text, and one pre-combined all-effects partition used only for
// plateau escalation.
type Namespaces struct {
	Effects  []string
	Question string
	Answer   string
	Flavor   string
	Combined string
}

// DefaultNamespaces returns the standard partition layout.
func DefaultNamespaces() Namespaces {
	return Namespaces{
		Effects: []string{
			"effect_1", "effect_2", "effect_3", "effect_4", "effect_5",
			"effect_6", "effect_7", "effect_8", "effect_9",
		},
		Question: "qa_question",
		Answer:   "qa_answer",
		Flavor:   "flavor",
		Combined: "all_effects",
	}
}

// Stage0 derives the first-stage namespace set from the query type. The
// combined partition is always excluded here to keep the first pass narrow
// and namespace-attributable; it only enters on plateau escalation.
func (n Namespaces) Stage0(t query.Type) []string {
	out := append([]string(nil), n.Effects...)
	switch t {
	case query.Semantic:
		out = append(out, n.Question, n.Answer, n.Flavor)
	case query.Hybrid:
		out = append(out, n.Question)
	}
	return out
}
