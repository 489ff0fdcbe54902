package nlquery

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shirokane-labs/cardex/internal/domain/card"
)

// AggKind discriminates aggregation intents.
type AggKind string

// Aggregation kinds.
const (
	AggMax  AggKind = "max"
	AggMin  AggKind = "min"
	AggTopN AggKind = "topn"
)

// aggFieldWindow is the rune window around a trigger scanned for the
// target field. Wider than the numeric window: the field often sits a few
// particles away from the extremum marker.
const aggFieldWindow = 12

// AggregationSpec describes a detected max/min/top-N intent. Count is
// meaningful for TopN only.
type AggregationSpec struct {
	kind      AggKind
	field     string
	count     int
	trigger   string
	fieldTerm string
}

// NewAggregationSpec builds a spec directly, bypassing text detection.
func NewAggregationSpec(kind AggKind, field string, count int) AggregationSpec {
	return AggregationSpec{kind: kind, field: field, count: count}
}

// Kind returns the aggregation kind.
func (s *AggregationSpec) Kind() AggKind { return s.kind }

// Field returns the canonical target field.
func (s *AggregationSpec) Field() string { return s.field }

// Count returns the requested result count (TopN only).
func (s *AggregationSpec) Count() int { return s.count }

// Trigger returns the query token that triggered detection.
func (s *AggregationSpec) Trigger() string { return s.trigger }

// FieldTerm returns the query token the field was resolved from.
func (s *AggregationSpec) FieldTerm() string { return s.fieldTerm }

var (
	reTopN      = regexp.MustCompile(`(?:上位|トップ|ベスト)\s*(\d+|[一二三四五六七八九十]+)`)
	maxTriggers = []string{"一番高い", "最大", "最高", "トップ"}
	minTriggers = []string{"一番低い", "最小", "最低", "ボトム"}
)

// IsAggregationTrigger reports whether tok contains an extremum or top-N
// trigger word.
func IsAggregationTrigger(tok string) bool {
	if reTopN.MatchString(NormalizeDigits(tok)) {
		return true
	}
	for _, trig := range maxTriggers {
		if strings.Contains(tok, trig) {
			return true
		}
	}
	for _, trig := range minTriggers {
		if strings.Contains(tok, trig) {
			return true
		}
	}
	return false
}

// DetectAggregation scans free text for a max/min/top-N intent. Detection
// is purely textual. Returns false when no trigger fires or when no field
// term can be resolved near the trigger.
func DetectAggregation(text string) (AggregationSpec, bool) {
	text = NormalizeDigits(text)

	// Top-N first: "トップ5" must not be read as a bare extremum marker.
	if m := reTopN.FindStringSubmatchIndex(text); m != nil {
		field, term, ok := findAggregationField(windowAround(text, m[0], m[1], aggFieldWindow))
		if !ok {
			return AggregationSpec{}, false
		}
		return AggregationSpec{
			kind:      AggTopN,
			field:     field,
			count:     parseCount(text[m[2]:m[3]]),
			trigger:   text[m[0]:m[1]],
			fieldTerm: term,
		}, true
	}

	groups := []struct {
		kind     AggKind
		triggers []string
	}{{AggMax, maxTriggers}, {AggMin, minTriggers}}
	for _, g := range groups {
		for _, trig := range g.triggers {
			idx := strings.Index(text, trig)
			if idx < 0 {
				continue
			}
			field, term, ok := findAggregationField(windowAround(text, idx, idx+len(trig), aggFieldWindow))
			if !ok {
				continue
			}
			return AggregationSpec{kind: g.kind, field: field, trigger: trig, fieldTerm: term}, true
		}
	}

	return AggregationSpec{}, false
}

var kanjiDigits = map[rune]int{
	'一': 1, '二': 2, '三': 3, '四': 4, '五': 5,
	'六': 6, '七': 7, '八': 8, '九': 9,
}

// parseCount reads an Arabic or spelled-out small number (一..九十九).
func parseCount(s string) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	// Kanji: [digit]十[digit] with every part optional except one.
	before, after, hasTen := strings.Cut(s, "十")
	if !hasTen {
		total := 0
		for _, r := range s {
			total = total*10 + kanjiDigits[r]
		}
		return total
	}
	tens := 1
	if before != "" {
		tens = kanjiDigits[[]rune(before)[0]]
	}
	units := 0
	if after != "" {
		units = kanjiDigits[[]rune(after)[0]]
	}
	return tens*10 + units
}

// SelectAggregation executes an aggregation spec over a record list.
// Records whose field is missing are excluded from comparison. Max/Min
// return every record tied at the extremum. TopN with count <= 0 returns
// an empty result; a short input returns all valid records.
func SelectAggregation(records []card.Record, spec AggregationSpec) []card.Record {
	type valued struct {
		rec   card.Record
		value float64
	}
	valid := make([]valued, 0, len(records))
	for _, r := range records {
		if v, ok := r.Numeric(spec.field); ok {
			valid = append(valid, valued{r, v})
		}
	}
	if len(valid) == 0 {
		return []card.Record{}
	}

	switch spec.kind {
	case AggMax, AggMin:
		extremum := valid[0].value
		for _, v := range valid[1:] {
			if (spec.kind == AggMax && v.value > extremum) ||
				(spec.kind == AggMin && v.value < extremum) {
				extremum = v.value
			}
		}
		out := make([]card.Record, 0, 1)
		for _, v := range valid {
			if v.value == extremum {
				out = append(out, v.rec)
			}
		}
		return out

	case AggTopN:
		if spec.count <= 0 {
			return []card.Record{}
		}
		sort.SliceStable(valid, func(i, j int) bool { return valid[i].value > valid[j].value })
		n := spec.count
		if n > len(valid) {
			n = len(valid)
		}
		out := make([]card.Record, 0, n)
		for _, v := range valid[:n] {
			out = append(out, v.rec)
		}
		return out

	default:
		return []card.Record{}
	}
}
