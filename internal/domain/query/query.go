package query

import "fmt"

// Type is the retrieval strategy class assigned to a query.
type Type string

// Query types.
const (
	Greeting   Type = "greeting"
	Semantic   Type = "semantic"
	Filterable Type = "filterable"
	Hybrid     Type = "hybrid"
)

// ParseType validates a query type string.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case Greeting, Semantic, Filterable, Hybrid:
		return Type(s), nil
	default:
		return "", fmt.Errorf("unknown query type: %q", s)
	}
}

// Classification is the immutable per-query routing decision.
type Classification struct {
	queryType      Type
	confidence     float64
	summary        string
	filterKeywords []string
	searchKeywords []string
	reasoning      string
}

// NewClassification creates a classification. Confidence is clamped to [0,1];
// keyword slices are copied.
func NewClassification(
	t Type, confidence float64, summary string,
	filterKeywords, searchKeywords []string, reasoning string,
) Classification {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return Classification{
		queryType:      t,
		confidence:     confidence,
		summary:        summary,
		filterKeywords: append([]string(nil), filterKeywords...),
		searchKeywords: append([]string(nil), searchKeywords...),
		reasoning:      reasoning,
	}
}

// QueryType returns the assigned retrieval strategy class.
func (c *Classification) QueryType() Type { return c.queryType }

// Confidence returns the routing confidence in [0,1].
func (c *Classification) Confidence() float64 { return c.confidence }

// Summary returns a short restatement of the query intent.
func (c *Classification) Summary() string { return c.summary }

// FilterKeywords returns the operator/field/value tokens driving structured filtering.
func (c *Classification) FilterKeywords() []string { return c.filterKeywords }

// SearchKeywords returns the descriptive tokens driving semantic retrieval.
func (c *Classification) SearchKeywords() []string { return c.searchKeywords }

// Reasoning returns the rationale recorded by the classifier.
func (c *Classification) Reasoning() string { return c.reasoning }
