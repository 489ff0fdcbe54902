package nlquery

import (
	"strings"

	"github.com/shirokane-labs/cardex/internal/domain/card"
)

// fieldSynonyms maps natural-language attribute terms to canonical card
// field names. Longer terms are listed first inside each entry so that
// e.g. マナコスト wins over コスト when both occur.
var fieldSynonyms = []struct {
	canonical string
	terms     []string
}{
	{card.FieldHP, []string{"ヒットポイント", "ライフ", "体力", "ＨＰ", "HP", "hp"}},
	{card.FieldAttack, []string{"アタック", "攻撃力", "攻撃", "パワー"}},
	{card.FieldCost, []string{"マナコスト", "コスト", "マナ", "費用"}},
}

// aggregationAliases are field terms that resolve differently in an
// aggregation context: "ダメージが一番高い" asks about attack even though
// damage can refer to other things elsewhere.
var aggregationAliases = map[string]string{
	"ダメージ": card.FieldAttack,
}

// NormalizeField resolves a single attribute term to its canonical field
// name. Returns false for unrecognized terms.
func NormalizeField(term string) (string, bool) {
	t := strings.TrimSpace(term)
	for _, s := range fieldSynonyms {
		for _, syn := range s.terms {
			if strings.EqualFold(t, syn) {
				return s.canonical, true
			}
		}
	}
	return "", false
}

// FindField scans free text for the first recognizable field synonym and
// returns its canonical name. Returns false when no field term occurs.
func FindField(text string) (string, bool) {
	best := -1
	canonical := ""
	for _, s := range fieldSynonyms {
		for _, syn := range s.terms {
			if idx := strings.Index(text, syn); idx >= 0 && (best < 0 || idx < best) {
				best = idx
				canonical = s.canonical
			}
		}
	}
	if best < 0 {
		return "", false
	}
	return canonical, true
}

// findAggregationField resolves a field term for the aggregation detector,
// consulting the detector-specific alias table before the shared synonyms.
func findAggregationField(text string) (canonical, term string, ok bool) {
	best := -1
	for alias, field := range aggregationAliases {
		if idx := strings.Index(text, alias); idx >= 0 && (best < 0 || idx < best) {
			best, canonical, term = idx, field, alias
		}
	}
	for _, s := range fieldSynonyms {
		for _, syn := range s.terms {
			if idx := strings.Index(text, syn); idx >= 0 && (best < 0 || idx < best) {
				best, canonical, term = idx, s.canonical, syn
			}
		}
	}
	return canonical, term, best >= 0
}

// fieldNearSpan resolves the field a matched number span refers to by
// scanning a window of runes on both sides of the span. Returns false when
// no field term occurs in the window; the caller drops the match rather
// than guessing.
func fieldNearSpan(text string, start, end, window int) (string, bool) {
	return FindField(windowAround(text, start, end, window))
}

// windowAround returns the text segment covering a byte span plus a fixed
// number of runes of context on each side.
func windowAround(text string, start, end, window int) string {
	runes := []rune(text)
	offsets := make([]int, len(runes)+1)
	pos := 0
	for i, r := range runes {
		offsets[i] = pos
		pos += len(string(r))
	}
	offsets[len(runes)] = pos

	rs, re := len(runes), 0
	for i := 0; i < len(runes); i++ {
		if offsets[i] >= start && i < rs {
			rs = i
		}
		if offsets[i] < end {
			re = i + 1
		}
	}
	if rs > re {
		rs = re
	}

	lo := rs - window
	if lo < 0 {
		lo = 0
	}
	hi := re + window
	if hi > len(runes) {
		hi = len(runes)
	}
	return string(runes[lo:hi])
}

var digitNormalizer = strings.NewReplacer(
	"０", "0", "１", "1", "２", "2", "３", "3", "４", "4",
	"５", "5", "６", "6", "７", "7", "８", "8", "９", "9",
)

// NormalizeDigits converts full-width digits to ASCII so a single numeric
// grammar covers both input styles.
func NormalizeDigits(s string) string {
	return digitNormalizer.Replace(s)
}
