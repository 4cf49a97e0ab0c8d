package therapy

import "strings"

// Keyword matching here is deliberately case-insensitive substring matching.
// It can false-positive on fragments inside longer words ("hopeless" inside
// "hopelessness" is intended, but unrelated containments are possible).
// Upgrading to stemming or NLP is a product decision, not a code fix.

func normalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func containsAnyKeyword(normalized string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(normalized, keyword) {
			return true
		}
	}
	return false
}

// countKeywordHits counts distinct matching keywords: each keyword in the
// list contributes at most once no matter how often it occurs in the text.
func countKeywordHits(normalized string, keywords []string) int {
	hits := 0
	for _, keyword := range keywords {
		if strings.Contains(normalized, keyword) {
			hits++
		}
	}
	return hits
}
