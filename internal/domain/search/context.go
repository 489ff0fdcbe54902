package search

// ContextItem is one scored piece of retrieval evidence handed to the
// answer generator.
type ContextItem struct {
	title string
	text  string
	score float64
}

// NewContextItem creates a context item. Score is clamped to [0,1]; an
// empty text falls back to the title so callers never receive a blank item.
func NewContextItem(title, text string, score float64) ContextItem {
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	if text == "" {
		text = title
	}
	return ContextItem{title: title, text: text, score: score}
}

// Title returns the card title, the natural deduplication key.
func (c *ContextItem) Title() string { return c.title }

// Text returns the evidence text.
func (c *ContextItem) Text() string { return c.text }

// Score returns the relevance score in [0,1].
func (c *ContextItem) Score() float64 { return c.score }

// WithScore returns a copy with the score replaced (still clamped).
func (c *ContextItem) WithScore(score float64) ContextItem {
	return NewContextItem(c.title, c.text, score)
}

// Quality summarizes a merged result set so callers can decide whether to
// attach a low-confidence disclaimer.
type Quality struct {
	ResultCount  int
	OverallScore float64
}

// EvaluateQuality computes quality over a merged result list. The overall
// score is the mean of the returned scores, zero for an empty set.
func EvaluateQuality(items []ContextItem) Quality {
	q := Quality{ResultCount: len(items)}
	if len(items) == 0 {
		return q
	}
	var sum float64
	for i := range items {
		sum += items[i].Score()
	}
	q.OverallScore = sum / float64(len(items))
	return q
}
