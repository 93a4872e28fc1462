package kpinorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalSuffixRe strips trailing legal entity suffixes, with or without a
// trailing period.
var legalSuffixRe = regexp.MustCompile(`(?i)[\s,]+(inc|corp|corporation|ltd|limited|llc|llp|plc|co|company)\.?$`)

var (
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9\s]`)
	multiWsRe  = regexp.MustCompile(`\s+`)
)

// asciiFolder decomposes accented letters and drops combining marks, so
// "Société Générale" and "Societe Generale" normalize identically.
var asciiFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeCompanyName canonicalizes a company name for matching: accents
// folded, lowercased, punctuation removed, whitespace collapsed, then legal
// suffixes stripped (repeatedly, so "X Co Inc." fully reduces). The result
// is idempotent under re-normalization.
func NormalizeCompanyName(name string) string {
	s := strings.TrimSpace(name)
	if s == "" {
		return ""
	}

	if folded, _, err := transform.String(asciiFolder, s); err == nil {
		s = folded
	}
	s = strings.ToLower(s)

	// Punctuation goes first so a suffix attached by a hyphen or slash
	// ("Acme-Co", "Baxter/Inc") is visible to the suffix strip. Running
	// the strip on the collapsed form keeps the whole function idempotent.
	s = nonAlnumRe.ReplaceAllString(s, " ")
	s = multiWsRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	for {
		stripped := strings.TrimSpace(legalSuffixRe.ReplaceAllString(s, ""))
		if stripped == s {
			break
		}
		s = stripped
	}

	return s
}
