package engine

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`\b\w{3,}\b`)

// legalSuffixes are corporate form tokens that carry no matching signal and
// would otherwise inflate similarity between unrelated companies.
var legalSuffixes = map[string]struct{}{
	"spa": {}, "srl": {}, "snc": {}, "sas": {}, "coop": {},
	"societa": {}, "group": {}, "holding": {}, "soc": {},
	"inc": {}, "llc": {}, "ltd": {}, "gmbh": {}, "corp": {}, "co": {},
}

// tokenize lowercases the input and extracts significant words, dropping
// legal-form suffixes.
func tokenize(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, word := range tokenPattern.FindAllString(strings.ToLower(s), -1) {
		if _, skip := legalSuffixes[word]; skip {
			continue
		}
		tokens[word] = struct{}{}
	}
	return tokens
}

// TextSimilarity computes a normalized [0,1] similarity between an invoice
// counterparty name and a transaction description using token overlap.
// The score is the overlap coefficient: shared tokens divided by the size of
// the smaller token set, so a short counterparty name fully contained in a
// long bank description still scores 1.0.
func TextSimilarity(counterparty, description string) float64 {
	a := tokenize(counterparty)
	b := tokenize(description)

	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	smaller, larger := a, b
	if len(b) < len(a) {
		smaller, larger = b, a
	}

	shared := 0
	for token := range smaller {
		if _, ok := larger[token]; ok {
			shared++
		}
	}

	return float64(shared) / float64(len(smaller))
}
