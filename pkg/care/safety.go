package care

import "strings"

// Lexicon is the bilingual set of crisis-indicator phrases.
//
// Matching is deliberately conservative: plain case-insensitive substring
// containment, no stemming or fuzzy matching. A false positive costs one
// safety message; a false negative is not acceptable in this domain.
type Lexicon []string

// IsCrisis reports whether any lexicon phrase occurs in the message text.
func (l Lexicon) IsCrisis(text string) bool {
	lowered := strings.ToLower(text)
	if strings.TrimSpace(lowered) == "" {
		return false
	}

	for _, phrase := range l {
		if phrase == "" {
			continue
		}
		if strings.Contains(lowered, phrase) {
			return true
		}
	}

	return false
}
