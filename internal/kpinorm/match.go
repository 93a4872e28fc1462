package kpinorm

import (
	"fmt"
	"strings"

	"github.com/crestline-labs/fincompare/internal/model"
)

const (
	// fuzzyWordSimilarity is the per-word Levenshtein similarity above which
	// two words count as a fuzzy match.
	fuzzyWordSimilarity = 0.7

	// wordOverlapThreshold is the overlap ratio required for a word-level
	// match.
	wordOverlapThreshold = 0.7

	// minMatchWordLen excludes short filler words from overlap scoring.
	minMatchWordLen = 2
)

// knownShortNames are companies commonly referred to by very short names,
// where normal fuzzy matching is too strict. Keys are normalized forms.
var knownShortNames = map[string]struct{}{
	"3m": {}, "ibm": {}, "ge": {}, "hp": {}, "at t": {},
	"bp": {}, "ups": {}, "amd": {}, "aig": {},
}

// ValidateCompanyNameMatch compares a user-entered company name against an
// extracted one. Branches are tried in priority order and short-circuit on
// success; the acceptance threshold applied to the returned confidence is
// the caller's concern. The result is always well-formed: confidence is
// never NaN, even for empty inputs.
func ValidateCompanyNameMatch(userName, aiName string) model.NameMatchResult {
	normUser := NormalizeCompanyName(userName)
	normAI := NormalizeCompanyName(aiName)

	res := model.NameMatchResult{
		NormalizedUser: normUser,
		NormalizedAI:   normAI,
	}

	if normUser == "" || normAI == "" {
		res.Issues = append(res.Issues, "one or both names are empty after normalization")
		return res
	}

	// 1. Exact match of normalized forms.
	if normUser == normAI {
		res.IsMatch = true
		res.Confidence = 1.0
		return res
	}

	// 2. Word-overlap with fuzzy per-word matching.
	ratio := wordOverlapRatio(normUser, normAI)
	if ratio >= wordOverlapThreshold {
		res.IsMatch = true
		res.Confidence = min(ratio+0.1, 1.0)
		return res
	}

	// 3. Known short names.
	_, userShort := knownShortNames[normUser]
	_, aiShort := knownShortNames[normAI]
	if userShort || aiShort {
		if userShort && aiShort && normUser == normAI {
			res.IsMatch = true
			res.Confidence = 0.95
			return res
		}
		if (len(normUser) <= 3 || len(normAI) <= 3) &&
			(strings.HasPrefix(normUser, normAI) || strings.HasPrefix(normAI, normUser)) {
			res.IsMatch = true
			res.Confidence = 0.85
			return res
		}
	}

	// 4. Abbreviation: the longer name is more than twice the shorter's
	// length and starts with it.
	if isAbbreviation(normUser, normAI) {
		res.IsMatch = true
		res.Confidence = 0.75
		return res
	}

	// 5. Substring containment in either direction.
	if strings.Contains(normUser, normAI) || strings.Contains(normAI, normUser) {
		res.IsMatch = true
		res.Confidence = 0.8
		return res
	}

	// 6. No match; report the raw overlap ratio.
	res.Confidence = ratio
	res.Issues = append(res.Issues,
		fmt.Sprintf("names %q and %q do not match", normUser, normAI),
		fmt.Sprintf("word overlap %.2f below required %.2f", ratio, wordOverlapThreshold),
	)
	return res
}

// wordOverlapRatio tokenizes both names into words longer than
// minMatchWordLen and returns (exact + fuzzy matches) / min(word counts).
// Zero eligible words on either side yields 0, never NaN.
func wordOverlapRatio(a, b string) float64 {
	wordsA := eligibleWords(a)
	wordsB := eligibleWords(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	matched := 0
	used := make([]bool, len(wordsB))
	for _, wa := range wordsA {
		for i, wb := range wordsB {
			if used[i] {
				continue
			}
			if wa == wb || similarity(wa, wb) > fuzzyWordSimilarity {
				matched++
				used[i] = true
				break
			}
		}
	}

	return float64(matched) / float64(min(len(wordsA), len(wordsB)))
}

func eligibleWords(s string) []string {
	var out []string
	for _, w := range strings.Fields(s) {
		if len(w) > minMatchWordLen {
			out = append(out, w)
		}
	}
	return out
}

func isAbbreviation(a, b string) bool {
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if shorter == "" {
		return false
	}
	return len(longer) > 2*len(shorter) && strings.HasPrefix(longer, shorter)
}
