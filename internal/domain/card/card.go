package card

import "strings"

// Canonical numeric field names.
const (
	FieldHP     = "hp"
	FieldAttack = "attack"
	FieldCost   = "cost"
)

// Canonical categorical field names.
const (
	FieldClass  = "class"
	FieldRarity = "rarity"
	FieldType   = "type"
)

// QA is one question/answer pair attached to a card.
type QA struct {
	Question string
	Answer   string
}

// Record is a single card, immutable after load.
type Record struct {
	title      string
	numerics   map[string]float64
	categories map[string]string
	effects    []string
	qa         []QA
	keywords   []string
	flavor     string
}

// New creates a card record. Input maps and slices are copied so the
// record stays immutable regardless of what the loader does afterwards.
func New(
	title string,
	numerics map[string]float64,
	categories map[string]string,
	effects []string,
	qa []QA,
	keywords []string,
	flavor string,
) Record {
	r := Record{
		title:      title,
		numerics:   make(map[string]float64, len(numerics)),
		categories: make(map[string]string, len(categories)),
		effects:    make([]string, 0, len(effects)),
		qa:         append([]QA(nil), qa...),
		keywords:   append([]string(nil), keywords...),
		flavor:     flavor,
	}
	for k, v := range numerics {
		r.numerics[k] = v
	}
	for k, v := range categories {
		r.categories[k] = v
	}
	for _, e := range effects {
		if e != "" {
			r.effects = append(r.effects, e)
		}
	}
	return r
}

// Title returns the canonical card title.
func (r *Record) Title() string { return r.title }

// Numeric returns a numeric field value. The second return is false when
// the field is absent on this card.
func (r *Record) Numeric(field string) (float64, bool) {
	v, ok := r.numerics[field]
	return v, ok
}

// Category returns a categorical field value (class, rarity, type).
func (r *Record) Category(field string) (string, bool) {
	v, ok := r.categories[field]
	return v, ok
}

// Effects returns the populated effect texts in slot order.
func (r *Record) Effects() []string { return r.effects }

// QAPairs returns the card's question/answer pairs.
func (r *Record) QAPairs() []QA { return r.qa }

// Keywords returns the card's keyword tags.
func (r *Record) Keywords() []string { return r.keywords }

// Flavor returns the flavor text.
func (r *Record) Flavor() string { return r.flavor }

// SearchableText concatenates the fields keyword matching runs over:
// title, effects, categorical values, and keyword tags.
func (r *Record) SearchableText() string {
	var b strings.Builder
	b.WriteString(r.title)
	for _, e := range r.effects {
		b.WriteByte(' ')
		b.WriteString(e)
	}
	for _, f := range []string{FieldType, FieldClass, FieldRarity} {
		if v, ok := r.categories[f]; ok && v != "" {
			b.WriteByte(' ')
			b.WriteString(v)
		}
	}
	for _, k := range r.keywords {
		b.WriteByte(' ')
		b.WriteString(k)
	}
	return b.String()
}

// ContextText builds the text carried into answer-generation context:
// title plus effects, falling back to categorical fields when a card
// has no effect text at all.
func (r *Record) ContextText() string {
	if len(r.effects) == 0 {
		parts := []string{r.title}
		for _, f := range []string{FieldType, FieldClass, FieldRarity} {
			if v, ok := r.categories[f]; ok && v != "" {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, " / ")
	}
	return r.title + ": " + strings.Join(r.effects, " ")
}
