package nlquery

import (
	"math"
	"regexp"
	"strconv"

	"github.com/shirokane-labs/cardex/internal/domain/condition"
)

// DefaultToleranceFraction is the approximate-window size as a fraction of
// the target value. Implementation-defined; overridable via config.
const DefaultToleranceFraction = 0.2

// defaultFieldWindow is how many runes around a matched number set are
// scanned for a field synonym.
const defaultFieldWindow = 10

// Parsed holds the numeric conditions extracted from one query, bucketed
// by variant. Every bucket may be empty.
type Parsed struct {
	ranges       []condition.Condition
	multiples    []condition.Condition
	approximates []condition.Condition
	equalities   []condition.Condition
}

// Ranges returns the extracted range conditions.
func (p *Parsed) Ranges() []condition.Condition { return p.ranges }

// Multiples returns the extracted set-membership conditions.
func (p *Parsed) Multiples() []condition.Condition { return p.multiples }

// Approximates returns the extracted tolerance-window conditions.
func (p *Parsed) Approximates() []condition.Condition { return p.approximates }

// Equalities returns the extracted exact-value conditions.
func (p *Parsed) Equalities() []condition.Condition { return p.equalities }

// All returns every extracted condition in matcher order.
func (p *Parsed) All() []condition.Condition {
	out := make([]condition.Condition, 0,
		len(p.ranges)+len(p.multiples)+len(p.approximates)+len(p.equalities))
	out = append(out, p.ranges...)
	out = append(out, p.multiples...)
	out = append(out, p.approximates...)
	out = append(out, p.equalities...)
	return out
}

// Empty reports whether nothing was extracted.
func (p *Parsed) Empty() bool {
	return len(p.ranges) == 0 && len(p.multiples) == 0 &&
		len(p.approximates) == 0 && len(p.equalities) == 0
}

// Parser extracts numeric conditions from free query text. Patterns are an
// ordered list of independent matchers; earlier matchers claim their text
// spans so later, more general ones do not re-interpret the same numbers.
type Parser struct {
	toleranceFraction float64
	window            int
	matchers          []matcher
}

type span struct{ start, end int }

func (s span) overlaps(o span) bool { return s.start < o.end && o.start < s.end }

type rawMatch struct {
	cond condition.Condition
	at   span
}

type matcher struct {
	name    string
	extract func(p *Parser, text string) []rawMatch
}

// NewParser creates a numeric condition parser. A non-positive fraction
// falls back to the default.
func NewParser(toleranceFraction float64) *Parser {
	if toleranceFraction <= 0 {
		toleranceFraction = DefaultToleranceFraction
	}
	p := &Parser{toleranceFraction: toleranceFraction, window: defaultFieldWindow}
	p.matchers = []matcher{
		{"range_from_to", extractRangeFromTo},
		{"range_bounded", extractRangeBounded},
		{"multiple", extractMultiple},
		{"approximate", extractApproximate},
		{"range_at_least", extractAtLeast},
		{"range_at_most", extractAtMost},
		{"equality", extractEquality},
	}
	return p
}

// Parse runs every matcher over the text. Matches whose field cannot be
// resolved from surrounding context are dropped, never guessed.
func (p *Parser) Parse(text string) Parsed {
	text = NormalizeDigits(text)

	var parsed Parsed
	var claimed []span
	for _, m := range p.matchers {
		for _, raw := range m.extract(p, text) {
			taken := false
			for _, c := range claimed {
				if raw.at.overlaps(c) {
					taken = true
					break
				}
			}
			if taken {
				continue
			}
			claimed = append(claimed, raw.at)
			switch raw.cond.Kind() {
			case condition.KindRange:
				parsed.ranges = append(parsed.ranges, raw.cond)
			case condition.KindMultiple:
				parsed.multiples = append(parsed.multiples, raw.cond)
			case condition.KindApproximate:
				parsed.approximates = append(parsed.approximates, raw.cond)
			case condition.KindEquality:
				parsed.equalities = append(parsed.equalities, raw.cond)
			}
		}
	}
	return parsed
}

// Tolerance computes the approximate window half-width for a target value:
// a fixed fraction of the value, never below 1 so it is always positive.
func (p *Parser) Tolerance(value float64) float64 {
	tol := math.Round(value * p.toleranceFraction)
	if tol < 1 {
		tol = 1
	}
	return tol
}

var (
	reRangeFromTo  = regexp.MustCompile(`(\d+)\s*(?:から|〜|～|~)\s*(\d+)`)
	reRangeBounded = regexp.MustCompile(`(\d+)\s*以上\s*(\d+)\s*以下`)
	reMultiple     = regexp.MustCompile(`\d+(?:\s*(?:か|または|、)\s*\d+)+`)
	reApproximate  = regexp.MustCompile(`(?:約|およそ|だいたい)\s*(\d+)|(\d+)\s*(?:くらい|ぐらい|程度|前後)`)
	reAtLeast      = regexp.MustCompile(`(\d+)\s*以上`)
	reAtMost       = regexp.MustCompile(`(\d+)\s*以下`)
	reNumber       = regexp.MustCompile(`\d+`)
)

func extractRangeFromTo(p *Parser, text string) []rawMatch {
	var out []rawMatch
	for _, m := range reRangeFromTo.FindAllStringSubmatchIndex(text, -1) {
		field, ok := fieldNearSpan(text, m[0], m[1], p.window)
		if !ok {
			continue
		}
		lo := parseNumber(text[m[2]:m[3]])
		hi := parseNumber(text[m[4]:m[5]])
		if lo > hi {
			lo, hi = hi, lo
		}
		if cond, err := condition.NewRange(field, lo, hi); err == nil {
			out = append(out, rawMatch{cond, span{m[0], m[1]}})
		}
	}
	return out
}

func extractRangeBounded(p *Parser, text string) []rawMatch {
	var out []rawMatch
	for _, m := range reRangeBounded.FindAllStringSubmatchIndex(text, -1) {
		field, ok := fieldNearSpan(text, m[0], m[1], p.window)
		if !ok {
			continue
		}
		lo := parseNumber(text[m[2]:m[3]])
		hi := parseNumber(text[m[4]:m[5]])
		if lo > hi {
			lo, hi = hi, lo
		}
		if cond, err := condition.NewRange(field, lo, hi); err == nil {
			out = append(out, rawMatch{cond, span{m[0], m[1]}})
		}
	}
	return out
}

func extractMultiple(p *Parser, text string) []rawMatch {
	var out []rawMatch
	for _, m := range reMultiple.FindAllStringIndex(text, -1) {
		field, ok := fieldNearSpan(text, m[0], m[1], p.window)
		if !ok {
			continue
		}
		var values []float64
		for _, n := range reNumber.FindAllString(text[m[0]:m[1]], -1) {
			values = append(values, parseNumber(n))
		}
		if cond, err := condition.NewMultiple(field, values); err == nil {
			out = append(out, rawMatch{cond, span{m[0], m[1]}})
		}
	}
	return out
}

func extractApproximate(p *Parser, text string) []rawMatch {
	var out []rawMatch
	for _, m := range reApproximate.FindAllStringSubmatchIndex(text, -1) {
		field, ok := fieldNearSpan(text, m[0], m[1], p.window)
		if !ok {
			continue
		}
		numStart, numEnd := m[2], m[3]
		if numStart < 0 {
			numStart, numEnd = m[4], m[5]
		}
		value := parseNumber(text[numStart:numEnd])
		if cond, err := condition.NewApproximate(field, value, p.Tolerance(value)); err == nil {
			out = append(out, rawMatch{cond, span{m[0], m[1]}})
		}
	}
	return out
}

func extractAtLeast(p *Parser, text string) []rawMatch {
	var out []rawMatch
	for _, m := range reAtLeast.FindAllStringSubmatchIndex(text, -1) {
		field, ok := fieldNearSpan(text, m[0], m[1], p.window)
		if !ok {
			continue
		}
		lo := parseNumber(text[m[2]:m[3]])
		if cond, err := condition.NewRange(field, lo, math.Inf(1)); err == nil {
			out = append(out, rawMatch{cond, span{m[0], m[1]}})
		}
	}
	return out
}

func extractAtMost(p *Parser, text string) []rawMatch {
	var out []rawMatch
	for _, m := range reAtMost.FindAllStringSubmatchIndex(text, -1) {
		field, ok := fieldNearSpan(text, m[0], m[1], p.window)
		if !ok {
			continue
		}
		hi := parseNumber(text[m[2]:m[3]])
		if cond, err := condition.NewRange(field, math.Inf(-1), hi); err == nil {
			out = append(out, rawMatch{cond, span{m[0], m[1]}})
		}
	}
	return out
}

// extractEquality claims bare "<field> N" pairings, e.g. "コスト3のカード".
// It runs last so any number already bound to comparison syntax is taken.
func extractEquality(p *Parser, text string) []rawMatch {
	var out []rawMatch
	for _, m := range reNumber.FindAllStringIndex(text, -1) {
		field, ok := fieldNearSpan(text, m[0], m[1], p.window)
		if !ok {
			continue
		}
		if cond, err := condition.NewEquality(field, parseNumber(text[m[0]:m[1]])); err == nil {
			out = append(out, rawMatch{cond, span{m[0], m[1]}})
		}
	}
	return out
}

func parseNumber(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
