package model

import (
	"strings"

	"golang.org/x/text/cases"
)

// keywordFolder folds keywords for case-insensitive comparison.
// cases.Caser is stateful, so a fresh one is created per call.
func keywordFolder() cases.Caser {
	return cases.Fold()
}

// KeywordKey returns the normalized form of a search keyword used as a lookup
// key in configuration files and the crawl history. Surrounding whitespace is
// trimmed, inner whitespace collapsed and the result Unicode case-folded, so
// "Gaming", " gaming " and "GAMING" share one key.
func KeywordKey(keyword string) string {
	collapsed := strings.Join(strings.Fields(keyword), " ")
	return keywordFolder().String(collapsed)
}
