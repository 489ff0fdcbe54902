package dbfilter

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/shirokane-labs/cardex/internal/domain/card"
	"github.com/shirokane-labs/cardex/internal/domain/condition"
	"github.com/shirokane-labs/cardex/internal/domain/nlquery"
	"github.com/shirokane-labs/cardex/internal/domain/query"
	"github.com/shirokane-labs/cardex/internal/domain/search"
)

// Service evaluates structured and keyword filters against the in-memory
// card corpus. Every path is CPU-bound and degrades to an empty result
// rather than failing.
type Service struct {
	corpus CorpusReader
	parser *nlquery.Parser
	logger *zap.Logger
}

// New creates a database filter service.
func New(corpus CorpusReader, parser *nlquery.Parser, logger *zap.Logger) *Service {
	return &Service{corpus: corpus, parser: parser, logger: logger}
}

var (
	reDigits         = regexp.MustCompile(`\d+`)
	reTokenSeparator = regexp.MustCompile(`[\s。、．，,.!！?？～〜・の]+`)
)

// Filter runs the structured path: numeric conditions and aggregation
// extracted from the raw query, conjoined with any non-numeric fragments the
// classification carries. Falls back to a raw-text matcher when structured
// analysis yields nothing usable.
func (s *Service) Filter(
	_ context.Context, rawQuery string, cls query.Classification, topK int,
) []search.ContextItem {
	records, err := s.corpus.Records()
	if err != nil {
		s.logger.Warn("Filter search skipped, corpus unavailable", zap.Error(err))
		return nil
	}
	if topK <= 0 {
		return nil
	}

	text := nlquery.NormalizeDigits(strings.TrimSpace(rawQuery))
	parsed := s.parser.Parse(text)
	conds := parsed.All()
	frags := textFragments(cls.FilterKeywords())
	agg, hasAgg := nlquery.DetectAggregation(text)

	if !hasAgg && len(conds) == 0 && len(frags) == 0 {
		return s.fallback(records, text, topK)
	}

	candidates := make([]card.Record, 0, len(records))
	for _, rec := range records {
		if matchesConditions(rec, conds) && matchesFragments(rec, frags) {
			candidates = append(candidates, rec)
		}
	}

	if hasAgg {
		candidates = nlquery.SelectAggregation(candidates, agg)
	}

	items := make([]search.ContextItem, 0, len(candidates))
	for _, rec := range candidates {
		items = append(items, search.NewContextItem(rec.Title(), rec.ContextText(), 1.0))
	}
	if len(items) > topK {
		items = items[:topK]
	}
	return items
}

// FilterSearch runs the keyword-only path: each keyword found as a substring
// of a card's searchable text contributes equal weight, scores are the
// normalized sum, zero-match cards are excluded.
func (s *Service) FilterSearch(_ context.Context, keywords []string, topK int) []search.ContextItem {
	records, err := s.corpus.Records()
	if err != nil {
		s.logger.Warn("Keyword search skipped, corpus unavailable", zap.Error(err))
		return nil
	}
	return scoreByKeywords(records, keywords, topK)
}

// fallback is the conservative raw-text matcher: it re-reads numeric
// patterns straight off the query and otherwise degrades to substring
// scoring over content tokens.
func (s *Service) fallback(records []card.Record, text string, topK int) []search.ContextItem {
	parsed := s.parser.Parse(text)
	if conds := parsed.All(); len(conds) > 0 {
		items := make([]search.ContextItem, 0, len(records))
		for _, rec := range records {
			if matchesConditions(rec, conds) {
				items = append(items, search.NewContextItem(rec.Title(), rec.ContextText(), 1.0))
			}
		}
		if len(items) > topK {
			items = items[:topK]
		}
		return items
	}
	return scoreByKeywords(records, fallbackTokens(text), topK)
}

func scoreByKeywords(records []card.Record, keywords []string, topK int) []search.ContextItem {
	if len(keywords) == 0 || topK <= 0 {
		return nil
	}
	items := make([]search.ContextItem, 0, len(records))
	for _, rec := range records {
		haystack := rec.SearchableText()
		matched := 0
		for _, kw := range keywords {
			if kw != "" && strings.Contains(haystack, kw) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		score := float64(matched) / float64(len(keywords))
		items = append(items, search.NewContextItem(rec.Title(), rec.ContextText(), score))
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Score() > items[j].Score() })
	if len(items) > topK {
		items = items[:topK]
	}
	return items
}

// matchesConditions is a conjunction: every condition must hold.
func matchesConditions(rec card.Record, conds []condition.Condition) bool {
	for i := range conds {
		if !conds[i].Matches(&rec) {
			return false
		}
	}
	return true
}

// matchesFragments requires every free-text fragment to appear somewhere in
// the card's searchable text, which spans the title, every populated effect
// slot, and the categorical fields.
func matchesFragments(rec card.Record, frags []string) bool {
	if len(frags) == 0 {
		return true
	}
	haystack := rec.SearchableText()
	for _, f := range frags {
		if !strings.Contains(haystack, f) {
			return false
		}
	}
	return true
}

// textFragments keeps the classification's filter keywords that are plain
// text rather than operator/field/value tokens.
func textFragments(filterKeywords []string) []string {
	var out []string
	for _, kw := range filterKeywords {
		if kw == "" || reDigits.MatchString(kw) {
			continue
		}
		if _, ok := nlquery.FindField(kw); ok {
			continue
		}
		if nlquery.IsAggregationTrigger(kw) {
			continue
		}
		out = append(out, kw)
	}
	return out
}

// fallbackTokens splits the query into coarse substring probes, dropping
// numeric spans already handled by the condition parser.
func fallbackTokens(text string) []string {
	var out []string
	for _, seg := range reTokenSeparator.Split(text, -1) {
		seg = reDigits.ReplaceAllString(seg, "")
		if seg == "" {
			continue
		}
		out = append(out, seg)
	}
	return out
}
