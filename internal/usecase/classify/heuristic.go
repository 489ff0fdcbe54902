package classify

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shirokane-labs/cardex/internal/domain/nlquery"
	"github.com/shirokane-labs/cardex/internal/domain/query"
)

// greetingLexicon covers standalone pleasantries. Longer forms come first so
// that stripping them leaves no partial tail behind.
var greetingLexicon = []string{
	"こんにちは", "こんばんは", "おはようございます", "おはよう",
	"ありがとうございます", "ありがとう", "はじめまして",
	"よろしくお願いします", "よろしく", "やあ", "ハロー",
	"hello", "thank you", "thanks", "hi",
}

// semanticIntentWords mark descriptive intent that widens a filterable query
// into a hybrid one.
var semanticIntentWords = []string{"強い", "おすすめ", "オススメ", "人気", "最強", "使いやすい"}

// categoryCues suggest an attribute filter without any numeric syntax.
var categoryCues = []string{"クラス", "レアリティ", "タイプ", "属性", "レジェンド", "エピック", "レア", "ノーマル"}

var (
	reDigits      = regexp.MustCompile(`\d+`)
	rePunctuation = regexp.MustCompile(`[\s。、．，,.!！?？～〜・]+`)
	reParticles   = regexp.MustCompile(`の|を|が|は|で|と|も|や|から|まで|より`)
)

// tokenStopwords are filler words that carry no retrieval signal.
var tokenStopwords = map[string]struct{}{
	"カード": {}, "教えて": {}, "ください": {}, "について": {},
	"こと": {}, "もの": {}, "どれ": {}, "どの": {}, "何": {}, "ある": {},
}

// Heuristic classifies queries with lexical rules alone. It backs mock mode
// and the fallback path when the remote provider is unreachable.
type Heuristic struct {
	parser *nlquery.Parser
}

// NewHeuristic creates a heuristic classifier. toleranceFraction feeds the
// numeric condition parser; pass nlquery.DefaultToleranceFraction unless
// configured otherwise.
func NewHeuristic(toleranceFraction float64) *Heuristic {
	return &Heuristic{parser: nlquery.NewParser(toleranceFraction)}
}

// Classify assigns a retrieval strategy to a raw query. It never fails:
// malformed input degrades to a low-confidence semantic classification.
func (h *Heuristic) Classify(rawQuery string) query.Classification {
	trimmed := strings.TrimSpace(rawQuery)
	if trimmed == "" {
		return query.NewClassification(query.Semantic, 0.3, "empty query",
			nil, nil, "query is empty or whitespace only")
	}
	if isGreeting(trimmed) {
		return query.NewClassification(query.Greeting, 0.95, "greeting",
			nil, nil, "query matches the greeting lexicon with no other content")
	}

	text := nlquery.NormalizeDigits(trimmed)

	var filterKeywords []string
	agg, hasAgg := nlquery.DetectAggregation(text)
	if hasAgg {
		filterKeywords = append(filterKeywords, agg.Trigger(), agg.FieldTerm())
	}
	parsed := h.parser.Parse(text)
	for _, c := range parsed.All() {
		filterKeywords = append(filterKeywords, c.String())
	}

	if hasAgg || !parsed.Empty() {
		searchKeywords := contentTokens(text)
		if cue, ok := firstMatch(text, semanticIntentWords); ok {
			return query.NewClassification(query.Hybrid, 0.8,
				"numeric filter with descriptive intent",
				filterKeywords, searchKeywords,
				"numeric or aggregation condition detected alongside descriptive intent word "+strconv.Quote(cue))
		}
		return query.NewClassification(query.Filterable, 0.85, "numeric filter",
			filterKeywords, searchKeywords,
			"numeric or aggregation condition detected")
	}

	if cue, ok := firstMatch(text, categoryCues); ok {
		return query.NewClassification(query.Filterable, 0.7, "category filter",
			[]string{cue}, contentTokens(text),
			"category cue detected: "+cue)
	}

	return query.NewClassification(query.Semantic, 0.6, "semantic search",
		nil, contentTokens(text),
		"no structured condition detected")
}

// isGreeting reports whether text is a pleasantry with no substantive
// remainder once greeting tokens and punctuation are stripped.
func isGreeting(text string) bool {
	rest := strings.ToLower(text)
	matched := false
	for _, g := range greetingLexicon {
		if strings.Contains(rest, g) {
			matched = true
			rest = strings.ReplaceAll(rest, g, "")
		}
	}
	if !matched {
		return false
	}
	return rePunctuation.ReplaceAllString(rest, "") == ""
}

// contentTokens extracts descriptive tokens: punctuation- and
// particle-separated segments minus stopwords, filter terms, and stray
// single-kana leftovers.
func contentTokens(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, seg := range rePunctuation.Split(text, -1) {
		for _, tok := range reParticles.Split(seg, -1) {
			if tok == "" || isStrayKana(tok) {
				continue
			}
			if _, stop := tokenStopwords[tok]; stop {
				continue
			}
			if isFilterTerm(tok) {
				continue
			}
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			out = append(out, tok)
		}
	}
	return out
}

// isFilterTerm reports whether a token belongs to the structured-filter
// vocabulary rather than the descriptive one.
func isFilterTerm(tok string) bool {
	if reDigits.MatchString(tok) {
		return true
	}
	_, ok := nlquery.FindField(tok)
	return ok
}

func isStrayKana(tok string) bool {
	r, size := utf8.DecodeRuneInString(tok)
	if size != len(tok) {
		return false
	}
	return r >= 'ぁ' && r <= 'ゖ'
}

func firstMatch(text string, candidates []string) (string, bool) {
	for _, c := range candidates {
		if strings.Contains(text, c) {
			return c, true
		}
	}
	return "", false
}
